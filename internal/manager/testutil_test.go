package manager

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"chatd/internal/backend/backendtest"
	"chatd/internal/cache"
	"chatd/internal/hub"
	"chatd/internal/hub/hubtest"
)

const (
	visionID = "Qwen/Qwen2.5-VL-3B-Instruct"
	textID   = "THUDM/chatglm3-6b"
)

type harness struct {
	m     *Manager
	hub   *hubtest.Server
	rt    *backendtest.Runtime
	cache *cache.Store
	pub   *MemoryPublisher
}

// newHarness wires a Manager to a fake hub and the in-memory runtime.
func newHarness(t *testing.T, cfg ManagerConfig) *harness {
	t.Helper()
	srv := hubtest.NewServer()
	t.Cleanup(srv.Close)
	srv.AddRepo(visionID, map[string][]byte{
		"model.gguf":      make([]byte, 4096),
		"mmproj-f16.gguf": make([]byte, 1024),
		"config.json":     []byte(`{}`),
	})
	srv.AddRepo(textID, map[string][]byte{"model-f16.gguf": make([]byte, 2048)})

	store, err := cache.New(filepath.Join(t.TempDir(), "models"))
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	rt := backendtest.New("fine, thanks")
	pub := NewMemoryPublisher()
	cfg.Cache = store
	cfg.Hub = hub.NewClient(hub.Options{HFEndpoint: srv.URL, ModelScopeEndpoint: srv.URL, Retries: -1})
	cfg.Loader = rt
	cfg.Publisher = pub
	m, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	return &harness{m: m, hub: srv, rt: rt, cache: store, pub: pub}
}

// seed places artifacts for id directly in the cache.
func (h *harness) seed(t *testing.T, id string) {
	t.Helper()
	p, err := h.cache.Path(id)
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	if err := os.MkdirAll(p, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(p, "model.gguf"), []byte("gguf"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// waitSettled polls until id leaves the downloading state.
func (h *harness) waitSettled(t *testing.T, id string) DownloadStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if st := h.m.Status(id); st.State != StateDownloading {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("download of %s did not settle", id)
	return DownloadStatus{}
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}

func contains(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}
