package manager

import (
	"context"
	"testing"
	"time"

	"chatd/internal/hub"
)

func TestCloseWaitsForDownloadsAndClosesInstances(t *testing.T) {
	h := newHarness(t, ManagerConfig{})
	h.seed(t, visionID)
	if _, err := h.m.Instance(testCtx(t), visionID); err != nil {
		t.Fatalf("Instance: %v", err)
	}
	if err := h.m.RequestDownload(textID, hub.HuggingFace); err != nil {
		t.Fatalf("RequestDownload: %v", err)
	}
	if err := h.m.Close(testCtx(t)); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if st := h.m.Status(textID); st.State != StateDownloaded {
		t.Fatalf("close should have waited for the worker, status %+v", st)
	}
	// validation instance + cached instance
	if h.rt.Closes() != 2 {
		t.Fatalf("closes = %d", h.rt.Closes())
	}
	if err := h.m.RequestDownload(textID, hub.HuggingFace); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestCloseDuringInstanceLoadReleasesModel(t *testing.T) {
	h := newHarness(t, ManagerConfig{})
	h.seed(t, visionID)
	h.rt.SetLoadDelay(200 * time.Millisecond)
	errCh := make(chan error, 1)
	go func() {
		_, err := h.m.Instance(context.Background(), visionID)
		errCh <- err
	}()
	time.Sleep(50 * time.Millisecond)
	if err := h.m.Close(testCtx(t)); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case err := <-errCh:
		if err != ErrClosed {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Instance did not return")
	}
	if h.rt.Loads() != 1 || h.rt.Closes() != 1 {
		t.Fatalf("loads=%d closes=%d", h.rt.Loads(), h.rt.Closes())
	}
	if h.m.instances.get(visionID) != nil {
		t.Fatalf("instance stored after close")
	}
}

func TestCloseAbandonsStuckDownloads(t *testing.T) {
	h := newHarness(t, ManagerConfig{})
	release := h.hub.Hold()
	defer release()
	if err := h.m.RequestDownload(textID, hub.HuggingFace); err != nil {
		t.Fatalf("RequestDownload: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := h.m.Close(ctx); err == nil {
		t.Fatalf("expected abandon error")
	}
	// the canceled worker records a failure and cleans up
	st := h.waitSettled(t, textID)
	if st.State != StateError || h.cache.Exists(textID) {
		t.Fatalf("status after abandon %+v", st)
	}
}

func TestNewWithConfigRequiresCollaborators(t *testing.T) {
	if _, err := NewWithConfig(ManagerConfig{}); err == nil {
		t.Fatalf("expected error without cache")
	}
	h := newHarness(t, ManagerConfig{})
	if h.m.maxQueueDepth != defaultMaxQueueDepth || h.m.maxWait != defaultMaxWait {
		t.Fatalf("defaults not applied: depth=%d wait=%v", h.m.maxQueueDepth, h.m.maxWait)
	}
	if h.m.Registry().Len() != 3 {
		t.Fatalf("builtin registry expected")
	}
}

func TestSetEventPublisherNilRestoresNoop(t *testing.T) {
	h := newHarness(t, ManagerConfig{})
	h.m.SetEventPublisher(nil)
	h.seed(t, textID)
	if _, err := h.m.Instance(testCtx(t), textID); err != nil {
		t.Fatalf("Instance: %v", err)
	}
	if len(h.pub.Events()) != 0 {
		t.Fatalf("events delivered to detached publisher")
	}
}
