package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"chatd/internal/config"
)

// clearEnv unsets CHATD_* variables that would leak into config resolution.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		if name, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(name, config.EnvPrefix) {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
}

func resolve(t *testing.T, args ...string) config.Config {
	t.Helper()
	root := newRootCmd()
	var got config.Config
	root.RunE = func(cmd *cobra.Command, _ []string) error {
		c, err := loadConfig(cmd)
		got = c
		return err
	}
	root.SetArgs(args)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute %v: %v", args, err)
	}
	return got
}

func TestLoadConfigPrecedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "chatd.yaml")
	yaml := "addr: \":6000\"\ncache_dir: /from/file\nlog_format: json\nmax_queue_depth: 4\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHATD_CACHE_DIR", "/from/env")
	t.Setenv("CHATD_MAX_QUEUE_DEPTH", "8")

	cfg := resolve(t, "--config", path, "--max-queue-depth", "16", "--cors=false")
	if cfg.Addr != ":6000" {
		t.Fatalf("addr from file lost: %q", cfg.Addr)
	}
	if cfg.CacheDir != "/from/env" {
		t.Fatalf("env should override file: %q", cfg.CacheDir)
	}
	if cfg.MaxQueueDepth != 16 {
		t.Fatalf("flag should override env: %d", cfg.MaxQueueDepth)
	}
	if cfg.LogFormat != "json" || cfg.LogLevel != config.DefaultLogLevel {
		t.Fatalf("log settings: %q %q", cfg.LogFormat, cfg.LogLevel)
	}
	if cfg.CORSEnabled == nil || *cfg.CORSEnabled {
		t.Fatalf("cors flag not applied")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	cfg := resolve(t)
	if cfg.Addr != config.DefaultAddr || cfg.Backend != config.BackendLlamaServer {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.CORSEnabled == nil || !*cfg.CORSEnabled || len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("cors defaults: %v %v", cfg.CORSEnabled, cfg.CORSOrigins)
	}
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	clearEnv(t)
	root := newRootCmd()
	root.RunE = func(cmd *cobra.Command, _ []string) error {
		_, err := loadConfig(cmd)
		return err
	}
	root.SetArgs([]string{"--backend", "onnx"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "onnx") {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger(config.Config{LogLevel: "warn", LogFormat: "json"}, &buf)
	if err != nil {
		t.Fatal(err)
	}
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), `"message":"shown"`) {
		t.Fatalf("unexpected output: %s", buf.String())
	}
	if _, err := newLogger(config.Config{LogLevel: "loud", LogFormat: "json"}, &buf); err == nil {
		t.Fatalf("expected error for bad level")
	}
}

func TestNewLoaderInProcessNeedsBuildTag(t *testing.T) {
	nop := zerolog.Nop()
	_, err := newLoader(config.Config{Backend: config.BackendLlama}, &nop)
	if err == nil {
		t.Skip("built with -tags=llama")
	}
	if !strings.Contains(err.Error(), "-tags=llama") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestModelsCommandListsCatalog(t *testing.T) {
	clearEnv(t)
	cacheDir := t.TempDir()
	seeded := filepath.Join(cacheDir, "THUDM", "chatglm3-6b")
	if err := os.MkdirAll(seeded, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(seeded, "model.gguf"), bytes.Repeat([]byte("x"), 2048), 0o644); err != nil {
		t.Fatal(err)
	}

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"models", "--cache-dir", cacheDir, "--log-level", "error"})
	if err := root.Execute(); err != nil {
		t.Fatalf("models: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + 3 models, got:\n%s", out.String())
	}
	var glm string
	for _, l := range lines {
		if strings.HasPrefix(l, "THUDM/chatglm3-6b") {
			glm = l
		}
	}
	if !strings.Contains(glm, "downloaded") || !strings.Contains(glm, "2.0 kB") {
		t.Fatalf("seeded model row: %q", glm)
	}
}

func TestDownloadCommandRejectsBadInput(t *testing.T) {
	clearEnv(t)
	cases := [][]string{
		{"download", "x/y", "--cache-dir", t.TempDir()},
		{"download", "THUDM/chatglm3-6b", "--source", "ftp", "--cache-dir", t.TempDir()},
		{"download"},
	}
	for _, args := range cases {
		root := newRootCmd()
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		root.SetArgs(args)
		if err := root.Execute(); err == nil {
			t.Fatalf("%v: expected error", args)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "chatd version dev\n" {
		t.Fatalf("version output %q", got)
	}
}
