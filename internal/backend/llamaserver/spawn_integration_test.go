//go:build integration
// +build integration

package llamaserver

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"chatd/internal/backend"
	"chatd/pkg/types"
)

func buildFakeServer(t *testing.T) string {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "fake_llama_server")
	cmd := exec.Command("go", "build", "-o", bin, "./testdata/fake_llama_server")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build fake server: %v: %s", err, out)
	}
	return bin
}

func TestSpawnLoadChatStop(t *testing.T) {
	bin := buildFakeServer(t)
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "model-f16.gguf"))
	l := New(Options{Bin: bin, PortStart: 31300, PortEnd: 31320, ReadyTimeout: 10 * time.Second})
	ctx := context.Background()

	m, err := backend.Load(ctx, l, "org/m", dir, types.CausalText)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	tc, ok := m.Weights.(backend.TextChatter)
	if !ok {
		t.Fatalf("causal weights must implement TextChatter")
	}
	resp, hist, err := tc.Chat(ctx, m.Tokenizer, "hi", nil)
	if err != nil || resp == "" || len(hist) != 1 {
		t.Fatalf("chat: %q %v %v", resp, hist, err)
	}
	w := m.Weights.(*textWeights)
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	select {
	case <-w.proc.done:
	case <-time.After(5 * time.Second):
		t.Fatalf("process still running after Close")
	}
}

func TestSpawnEarlyExit(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "model.gguf"))
	l := New(Options{Bin: "false", ReadyTimeout: 5 * time.Second})
	if _, err := l.LoadWeights(context.Background(), dir, types.CausalText, backend.OptionsFor(types.CausalText)); err == nil {
		t.Fatalf("expected early exit error")
	}
}
