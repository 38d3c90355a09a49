package manager

import (
	"context"
	"errors"
	"testing"
	"time"

	"chatd/internal/chat"
	"chatd/pkg/types"
)

func TestChatVisionThroughManager(t *testing.T) {
	h := newHarness(t, ManagerConfig{})
	h.seed(t, visionID)
	hist := types.History{{Query: "hi", Response: "hello"}}
	resp, err := h.m.Chat(testCtx(t), types.ChatRequest{ModelID: visionID, Query: "how are you", History: hist})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Response != "fine, thanks" {
		t.Fatalf("response %q", resp.Response)
	}
	if len(resp.History) != 2 || resp.History[1] != (types.Turn{Query: "how are you", Response: "fine, thanks"}) {
		t.Fatalf("history %v", resp.History)
	}
}

func TestChatTextWithoutHistory(t *testing.T) {
	h := newHarness(t, ManagerConfig{})
	h.seed(t, textID)
	resp, err := h.m.Chat(testCtx(t), types.ChatRequest{ModelID: textID, Query: "q"})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(resp.History) != 1 || h.rt.Chats() != 1 {
		t.Fatalf("history %v chats %d", resp.History, h.rt.Chats())
	}
}

func TestChatErrors(t *testing.T) {
	h := newHarness(t, ManagerConfig{Engine: chat.New(chat.Options{RejectImageForText: true})})
	if _, err := h.m.Chat(testCtx(t), types.ChatRequest{ModelID: "nope/x", Query: "q"}); !IsUnsupportedModel(err) {
		t.Fatalf("expected unsupported model, got %v", err)
	}
	if _, err := h.m.Chat(testCtx(t), types.ChatRequest{ModelID: textID, Query: "q"}); !IsModelLoadError(err) {
		t.Fatalf("expected model load error before download, got %v", err)
	}
	h.seed(t, textID)
	_, err := h.m.Chat(testCtx(t), types.ChatRequest{ModelID: textID, Query: "q", ImageData: "aGk="})
	if !chat.IsUnsupportedModality(err) {
		t.Fatalf("expected unsupported modality, got %v", err)
	}
	h.seed(t, visionID)
	_, err = h.m.Chat(testCtx(t), types.ChatRequest{ModelID: visionID, Query: "q", ImageData: "@@@"})
	if !chat.IsImageDecode(err) {
		t.Fatalf("expected image decode error, got %v", err)
	}
	if h.rt.Generations() != 0 {
		t.Fatalf("generation ran for a malformed image")
	}
}

func TestBeginGenerationQueueTimeout(t *testing.T) {
	h := newHarness(t, ManagerConfig{MaxQueueDepth: 1, MaxWait: 20 * time.Millisecond})
	h.seed(t, textID)
	inst, err := h.m.Instance(testCtx(t), textID)
	if err != nil {
		t.Fatalf("Instance: %v", err)
	}
	// First acquire occupies both queue and gen slots
	rel, err := h.m.beginGeneration(context.Background(), inst)
	if err != nil {
		t.Fatalf("beginGeneration first: %v", err)
	}
	defer rel()
	// Second should time out on the queue slot (depth=1)
	if _, err := h.m.beginGeneration(context.Background(), inst); !IsTooBusy(err) {
		t.Fatalf("expected tooBusyError, got %v", err)
	}
	if _, err := h.m.Chat(context.Background(), types.ChatRequest{ModelID: textID, Query: "q"}); !IsTooBusy(err) {
		t.Fatalf("chat should be rejected as too busy, got %v", err)
	}
}

func TestBeginGenerationGenTimeoutReleasesQueue(t *testing.T) {
	h := newHarness(t, ManagerConfig{MaxQueueDepth: 2, MaxWait: 20 * time.Millisecond})
	h.seed(t, textID)
	inst, _ := h.m.Instance(testCtx(t), textID)
	// Occupy genCh so acquisitions block at the gen stage
	inst.genCh <- struct{}{}
	if _, err := h.m.beginGeneration(context.Background(), inst); !IsTooBusy(err) {
		t.Fatalf("expected tooBusyError on gen wait, got %v", err)
	}
	if n := len(inst.queueCh); n != 0 {
		t.Fatalf("queue slot leaked: %d", n)
	}
	<-inst.genCh

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.m.beginGeneration(ctx, inst); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestChatSerializedPerInstance(t *testing.T) {
	h := newHarness(t, ManagerConfig{})
	h.seed(t, textID)
	h.rt.SetGenerateDelay(30 * time.Millisecond)
	start := time.Now()
	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		go func() {
			_, err := h.m.Chat(context.Background(), types.ChatRequest{ModelID: textID, Query: "q"})
			errs <- err
		}()
	}
	for i := 0; i < 3; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("chat: %v", err)
		}
	}
	if el := time.Since(start); el < 90*time.Millisecond {
		t.Fatalf("chats overlapped: %v", el)
	}
}
