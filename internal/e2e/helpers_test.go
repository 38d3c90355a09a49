package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"chatd/internal/backend/backendtest"
	"chatd/internal/cache"
	"chatd/internal/httpapi"
	"chatd/internal/hub"
	"chatd/internal/hub/hubtest"
	"chatd/internal/manager"
	"chatd/pkg/types"
)

const (
	visionID = "Qwen/Qwen2.5-VL-3B-Instruct"
	textID   = "deepseek-ai/DeepSeek-R1-Distill-Qwen-1.5B"
)

type stack struct {
	srv   *httptest.Server
	hub   *hubtest.Server
	rt    *backendtest.Runtime
	cache *cache.Store
	mgr   *manager.Manager
}

// newStack serves the HTTP API over a Manager backed by a fake hub and the in-memory runtime.
func newStack(t *testing.T, cfg manager.ManagerConfig) *stack {
	t.Helper()
	h := hubtest.NewServer()
	t.Cleanup(h.Close)
	h.AddRepo(visionID, map[string][]byte{
		"model-f16.gguf":  bytes.Repeat([]byte{1}, 8192),
		"mmproj-f16.gguf": bytes.Repeat([]byte{2}, 1024),
		"config.json":     []byte(`{"architectures":["Qwen2_5_VLForConditionalGeneration"]}`),
	})
	h.AddRepo(textID, map[string][]byte{"model-q4.gguf": bytes.Repeat([]byte{3}, 4096)})

	store, err := cache.New(filepath.Join(t.TempDir(), "models"))
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	rt := backendtest.New("A cat sitting on a windowsill.")
	cfg.Cache = store
	cfg.Hub = hub.NewClient(hub.Options{HFEndpoint: h.URL, ModelScopeEndpoint: h.URL, Retries: -1})
	cfg.Loader = rt
	mgr, err := manager.NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close(context.Background()) })

	srv := httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(srv.Close)
	return &stack{srv: srv, hub: h, rt: rt, cache: store, mgr: mgr}
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload any) (*http.Response, []byte) {
	t.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func (s *stack) status(t *testing.T, id string) types.ModelStatusResponse {
	t.Helper()
	resp, body := httpGet(t, s.srv.URL+"/model_status/"+id)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/model_status %d %s", resp.StatusCode, body)
	}
	var st types.ModelStatusResponse
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("status json: %v body=%s", err, body)
	}
	return st
}

// pollUntil polls /model_status until done reports true.
func (s *stack) pollUntil(t *testing.T, id string, done func(types.ModelStatusResponse) bool) types.ModelStatusResponse {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		st := s.status(t, id)
		if done(st) {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("status of %s did not settle: %+v", id, st)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (s *stack) download(t *testing.T, id, source string) {
	t.Helper()
	resp, body := httpPostJSON(t, s.srv.URL+"/download_model", types.DownloadRequest{ModelID: id, Source: source})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/download_model %d %s", resp.StatusCode, body)
	}
	s.pollUntil(t, id, func(st types.ModelStatusResponse) bool { return st.Downloaded })
}
