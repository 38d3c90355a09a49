package chat

import (
	"context"
	"errors"
	"fmt"
	"image"

	"chatd/internal/backend"
	"chatd/pkg/types"
)

// Request is one decoded chat turn.
type Request struct {
	Query   string
	History types.History
	// Image is nil when the request carried none.
	Image image.Image
}

// Dispatcher produces a reply for one architecture.
type Dispatcher interface {
	SupportsImages() bool
	Respond(ctx context.Context, m *backend.Model, req Request) (string, types.History, error)
}

// visionDispatcher drives processor-based multimodal generation.
type visionDispatcher struct{}

func (visionDispatcher) SupportsImages() bool { return true }

func (visionDispatcher) Respond(ctx context.Context, m *backend.Model, req Request) (string, types.History, error) {
	if m.Processor == nil {
		return "", nil, errors.New("vision model has no processor")
	}
	msgs := backend.HistoryMessages(req.History)
	parts := make([]backend.Content, 0, 2)
	var images []image.Image
	if req.Image != nil {
		parts = append(parts, backend.Content{Kind: backend.ImageContent, Image: req.Image})
		images = append(images, req.Image)
	}
	parts = append(parts, backend.Content{Kind: backend.TextContent, Text: req.Query})
	msgs = append(msgs, backend.Message{Role: "user", Parts: parts})

	prompt, err := m.Processor.ApplyChatTemplate(ctx, msgs, true)
	if err != nil {
		return "", nil, fmt.Errorf("apply chat template: %w", err)
	}
	in, err := m.Processor.Process(ctx, []string{prompt}, images)
	if err != nil {
		return "", nil, fmt.Errorf("process inputs: %w", err)
	}
	out, err := m.Weights.Generate(ctx, in)
	if err != nil {
		return "", nil, fmt.Errorf("generate: %w", err)
	}
	texts, err := m.Processor.BatchDecode(ctx, trimPrompt(in.InputIDs, out), true)
	if err != nil {
		return "", nil, fmt.Errorf("decode output: %w", err)
	}
	if len(texts) == 0 {
		return "", nil, errors.New("generation returned no output")
	}
	return texts[0], req.History.Append(req.Query, texts[0]), nil
}

// trimPrompt drops the echoed prompt ids from each generated sequence.
func trimPrompt(in, out [][]int32) [][]int32 {
	trimmed := make([][]int32, len(out))
	for i, seq := range out {
		if i < len(in) && len(in[i]) <= len(seq) {
			seq = seq[len(in[i]):]
		}
		trimmed[i] = seq
	}
	return trimmed
}

// textDispatcher delegates to the weights' integrated chat routine.
type textDispatcher struct{}

func (textDispatcher) SupportsImages() bool { return false }

func (textDispatcher) Respond(ctx context.Context, m *backend.Model, req Request) (string, types.History, error) {
	tc, ok := m.Weights.(backend.TextChatter)
	if !ok {
		return "", nil, errors.New("text model weights have no chat routine")
	}
	return tc.Chat(ctx, m.Tokenizer, req.Query, req.History)
}
