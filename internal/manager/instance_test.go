package manager

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chatd/pkg/types"
)

func TestInstanceIsMemoized(t *testing.T) {
	h := newHarness(t, ManagerConfig{})
	h.seed(t, textID)
	a, err := h.m.Instance(testCtx(t), textID)
	if err != nil {
		t.Fatalf("Instance: %v", err)
	}
	b, err := h.m.Instance(testCtx(t), textID)
	if err != nil {
		t.Fatalf("Instance again: %v", err)
	}
	if a != b {
		t.Fatalf("expected the identical instance")
	}
	if a.Tokenizer == nil || a.Processor != nil {
		t.Fatalf("text instance companions: %+v", a.Model)
	}
	if h.rt.Loads() != 1 {
		t.Fatalf("loads = %d", h.rt.Loads())
	}
}

func TestInstanceConcurrentFirstCallsShareLoad(t *testing.T) {
	h := newHarness(t, ManagerConfig{})
	h.seed(t, visionID)
	h.rt.SetLoadDelay(50 * time.Millisecond)
	var wg sync.WaitGroup
	got := make([]*Instance, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inst, err := h.m.Instance(context.Background(), visionID)
			if err != nil {
				t.Errorf("Instance: %v", err)
				return
			}
			got[i] = inst
		}(i)
	}
	wg.Wait()
	for _, inst := range got[1:] {
		if inst != got[0] {
			t.Fatalf("instances differ")
		}
	}
	if h.rt.Loads() != 1 {
		t.Fatalf("loads = %d, want 1", h.rt.Loads())
	}
	names := h.pub.Names()
	if !contains(names, "instance_load_start") || !contains(names, "instance_ready") {
		t.Fatalf("events %v", names)
	}
}

func TestInstanceRequiresArtifacts(t *testing.T) {
	h := newHarness(t, ManagerConfig{})
	_, err := h.m.Instance(testCtx(t), textID)
	if !IsModelLoadError(err) {
		t.Fatalf("expected model load error, got %v", err)
	}
	if h.hub.Requests() != 0 {
		t.Fatalf("instance construction must never download")
	}
	if _, err := h.m.Instance(testCtx(t), "nope/x"); !IsUnsupportedModel(err) {
		t.Fatalf("expected unsupported model, got %v", err)
	}
}

func TestInstanceLoadFailureNotCached(t *testing.T) {
	h := newHarness(t, ManagerConfig{})
	h.seed(t, textID)
	h.rt.FailLoad(func(string, types.Architecture) error { return errors.New("bad weights") })
	if _, err := h.m.Instance(testCtx(t), textID); !IsModelLoadError(err) {
		t.Fatalf("expected model load error, got %v", err)
	}
	if !contains(h.pub.Names(), "instance_load_error") {
		t.Fatalf("events %v", h.pub.Names())
	}
	h.rt.FailLoad(nil)
	if _, err := h.m.Instance(testCtx(t), textID); err != nil {
		t.Fatalf("failed loads must not be memoized: %v", err)
	}
}
