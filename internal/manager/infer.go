package manager

import (
	"context"
	"time"

	"chatd/pkg/types"
)

// Chat runs one conversational turn against req.ModelID. The instance is constructed on first
// use; generation per instance is serialized.
func (m *Manager) Chat(ctx context.Context, req types.ChatRequest) (types.ChatResponse, error) {
	desc, ok := m.registry.Describe(req.ModelID)
	if !ok {
		return types.ChatResponse{}, ErrUnsupportedModel(req.ModelID)
	}
	arch := string(desc.Architecture)
	inst, err := m.Instance(ctx, req.ModelID)
	if err != nil {
		chatRequestsTotal.WithLabelValues(arch, "error").Inc()
		return types.ChatResponse{}, err
	}
	release, err := m.beginGeneration(ctx, inst)
	if err != nil {
		chatRequestsTotal.WithLabelValues(arch, "rejected").Inc()
		return types.ChatResponse{}, err
	}
	defer release()

	start := time.Now()
	resp, history, err := m.engine.Chat(ctx, inst.Model, req.Query, req.History, req.ImageData)
	chatDuration.WithLabelValues(arch).Observe(time.Since(start).Seconds())
	chatRequestsTotal.WithLabelValues(arch, result(err)).Inc()
	if err != nil {
		m.log.Error().Err(err).Str("model", req.ModelID).Msg("chat failed")
		return types.ChatResponse{}, err
	}
	m.log.Debug().Str("model", req.ModelID).Int("turns", len(history)).Dur("elapsed", time.Since(start)).Msg("chat done")
	return types.ChatResponse{Response: resp, History: history}, nil
}
