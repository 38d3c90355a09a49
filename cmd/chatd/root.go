package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"chatd/internal/backend"
	"chatd/internal/backend/llamacpp"
	"chatd/internal/backend/llamaserver"
	"chatd/internal/cache"
	"chatd/internal/chat"
	"chatd/internal/config"
	"chatd/internal/hub"
	"chatd/internal/manager"
	"chatd/internal/registry"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "chatd",
		Short: "Download local chat models and serve them over HTTP",
		Long: `chatd downloads chat models from Hugging Face or ModelScope into a local cache
and answers chat requests against them, including image input for vision models.

Running chatd without a subcommand starts the HTTP server.`,
		SilenceUsage: true,
		RunE:         runServe,
	}
	addConfigFlags(root.PersistentFlags())
	root.AddCommand(newServeCmd(), newModelsCmd(), newDownloadCmd(), newVersionCmd())
	return root
}

func addConfigFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (.yaml, .yml, .json or .toml)")
	fs.String("addr", "", "HTTP listen address (default "+config.DefaultAddr+")")
	fs.String("cache-dir", "", "model cache directory (default "+config.DefaultCacheDir+")")
	fs.String("catalog", "", "model catalog file; builtin catalog when empty")
	fs.String("log-level", "", "log level: trace|debug|info|warn|error")
	fs.String("log-format", "", "log format: console|json")

	fs.String("hf-endpoint", "", "Hugging Face endpoint")
	fs.String("modelscope-endpoint", "", "ModelScope endpoint")
	fs.String("hub-revision", "", "repository revision to download")
	fs.Int("download-concurrency", 0, "parallel file transfers per download")
	fs.Int("download-retries", 0, "retries per HTTP request to the hub")

	fs.String("backend", "", "model runtime: llama-server|llama")
	fs.String("llama-bin", "", "llama-server binary")
	fs.Int("llama-ctx-size", 0, "context size passed to the runtime")
	fs.Int("llama-ngl", 0, "layers offloaded to the GPU")
	fs.Int("llama-threads", 0, "runtime threads")

	fs.Int("max-queue-depth", 0, "queued chat requests per model before 429")
	fs.Int("max-wait-seconds", 0, "seconds a chat request may wait for its model")
	fs.Int64("max-body-bytes", 0, "maximum JSON request body size")
	fs.Bool("cors", true, "enable CORS")
	fs.StringSlice("cors-origins", nil, "allowed CORS origins")
	fs.Bool("reject-image-for-text-models", false, "fail chat requests that send an image to a text-only model")
}

// loadConfig resolves configuration: file, then CHATD_* environment, then flags, then defaults.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	fs := cmd.Flags()
	var cfg config.Config
	if path, _ := fs.GetString("config"); path != "" {
		c, err := config.Load(path)
		if err != nil {
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		}
		cfg = c
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		return cfg, err
	}

	overrideString(fs, "addr", &cfg.Addr)
	overrideString(fs, "cache-dir", &cfg.CacheDir)
	overrideString(fs, "catalog", &cfg.CatalogPath)
	overrideString(fs, "log-level", &cfg.LogLevel)
	overrideString(fs, "log-format", &cfg.LogFormat)
	overrideString(fs, "hf-endpoint", &cfg.HFEndpoint)
	overrideString(fs, "modelscope-endpoint", &cfg.ModelScopeEndpoint)
	overrideString(fs, "hub-revision", &cfg.HubRevision)
	overrideInt(fs, "download-concurrency", &cfg.DownloadConcurrency)
	overrideInt(fs, "download-retries", &cfg.DownloadRetries)
	overrideString(fs, "backend", &cfg.Backend)
	overrideString(fs, "llama-bin", &cfg.LlamaBin)
	overrideInt(fs, "llama-ctx-size", &cfg.LlamaCtxSize)
	overrideInt(fs, "llama-ngl", &cfg.LlamaNGL)
	overrideInt(fs, "llama-threads", &cfg.LlamaThreads)
	overrideInt(fs, "max-queue-depth", &cfg.MaxQueueDepth)
	overrideInt(fs, "max-wait-seconds", &cfg.MaxWaitSeconds)
	if fs.Changed("max-body-bytes") {
		cfg.MaxBodyBytes, _ = fs.GetInt64("max-body-bytes")
	}
	if fs.Changed("cors") {
		on, _ := fs.GetBool("cors")
		cfg.CORSEnabled = &on
	}
	if fs.Changed("cors-origins") {
		cfg.CORSOrigins, _ = fs.GetStringSlice("cors-origins")
	}
	if fs.Changed("reject-image-for-text-models") {
		cfg.RejectImageForTextModels, _ = fs.GetBool("reject-image-for-text-models")
	}

	if err := cfg.ApplyDefaults(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func overrideString(fs *pflag.FlagSet, name string, dst *string) {
	if fs.Changed(name) {
		*dst, _ = fs.GetString(name)
	}
}

func overrideInt(fs *pflag.FlagSet, name string, dst *int) {
	if fs.Changed(name) {
		*dst, _ = fs.GetInt(name)
	}
}

// newLogger builds the root logger. Console output goes to w with timestamps.
func newLogger(cfg config.Config, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level: %w", err)
	}
	if cfg.LogFormat == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// newLoader selects the model runtime named by cfg.Backend.
func newLoader(cfg config.Config, log *zerolog.Logger) (backend.Loader, error) {
	switch cfg.Backend {
	case config.BackendLlama:
		if !llamacpp.Built {
			return nil, fmt.Errorf("backend %q needs a binary built with -tags=llama", cfg.Backend)
		}
		return llamacpp.New(llamacpp.Options{
			CtxSize:   cfg.LlamaCtxSize,
			Threads:   cfg.LlamaThreads,
			GPULayers: cfg.LlamaNGL,
			Logger:    log,
		}), nil
	default:
		return llamaserver.New(llamaserver.Options{
			Bin:       cfg.LlamaBin,
			Host:      cfg.LlamaHost,
			PortStart: cfg.LlamaPortStart,
			PortEnd:   cfg.LlamaPortEnd,
			CtxSize:   cfg.LlamaCtxSize,
			NGL:       cfg.LlamaNGL,
			Threads:   cfg.LlamaThreads,
			ExtraArgs: cfg.LlamaExtraArgs,
			Logger:    log,
		}), nil
	}
}

// newManager wires catalog, cache, hub client, runtime and chat engine into a Manager.
func newManager(cfg config.Config, log zerolog.Logger) (*manager.Manager, error) {
	reg, err := registry.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	store, err := cache.New(cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	loader, err := newLoader(cfg, &log)
	if err != nil {
		return nil, err
	}
	client := hub.NewClient(hub.Options{
		HFEndpoint:         cfg.HFEndpoint,
		ModelScopeEndpoint: cfg.ModelScopeEndpoint,
		Token:              cfg.HubToken,
		Revision:           cfg.HubRevision,
		Concurrency:        cfg.DownloadConcurrency,
		Retries:            cfg.DownloadRetries,
		Logger:             &log,
	})
	return manager.NewWithConfig(manager.ManagerConfig{
		Registry:      reg,
		Cache:         store,
		Hub:           client,
		Loader:        loader,
		Engine:        chat.New(chat.Options{Logger: &log, RejectImageForText: cfg.RejectImageForTextModels}),
		Logger:        &log,
		MaxQueueDepth: cfg.MaxQueueDepth,
		MaxWait:       cfg.MaxWait(),
	})
}

// setup is shared by every command that needs a Manager.
func setup(cmd *cobra.Command) (config.Config, zerolog.Logger, *manager.Manager, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return cfg, zerolog.Nop(), nil, err
	}
	log, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return cfg, log, nil, err
	}
	mgr, err := newManager(cfg, log)
	if err != nil {
		return cfg, log, nil, err
	}
	return cfg, log, mgr, nil
}
