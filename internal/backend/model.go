package backend

import (
	"context"
	"errors"
	"fmt"

	"chatd/pkg/types"
)

// Model is a loaded chat model: weights plus the companion handle for its architecture
// (Tokenizer for causal_text, Processor for vision_language).
type Model struct {
	ID           string
	Architecture types.Architecture
	Dir          string
	Weights      Weights
	Tokenizer    Tokenizer
	Processor    Processor
}

// Load builds a Model from dir. Weights are closed again if the companion handle fails to load.
func Load(ctx context.Context, l Loader, id, dir string, arch types.Architecture) (*Model, error) {
	if l == nil {
		return nil, errors.New("no model loader configured")
	}
	if !arch.Valid() {
		return nil, fmt.Errorf("unsupported architecture %q", arch)
	}
	w, err := l.LoadWeights(ctx, dir, arch, OptionsFor(arch))
	if err != nil {
		return nil, fmt.Errorf("load weights: %w", err)
	}
	m := &Model{ID: id, Architecture: arch, Dir: dir, Weights: w}
	switch arch {
	case types.VisionLanguage:
		m.Processor, err = l.LoadProcessor(ctx, dir, w)
		if err != nil {
			err = fmt.Errorf("load processor: %w", err)
		}
	case types.CausalText:
		m.Tokenizer, err = l.LoadTokenizer(ctx, dir, w)
		if err != nil {
			err = fmt.Errorf("load tokenizer: %w", err)
		}
	}
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	return m, nil
}

// Close releases the weights.
func (m *Model) Close() error {
	if m == nil || m.Weights == nil {
		return nil
	}
	return m.Weights.Close()
}
