//go:build !llama

package llamacpp

import (
	"context"
	"fmt"

	"chatd/internal/backend"
	"chatd/pkg/types"
)

// Built reports whether real llama.cpp support is compiled in.
const Built = false

// Loader refuses to load anything in builds without the 'llama' tag.
type Loader struct{}

func New(Options) *Loader { return &Loader{} }

func (*Loader) LoadWeights(context.Context, string, types.Architecture, backend.LoadOptions) (backend.Weights, error) {
	return nil, fmt.Errorf("%w: rebuild with -tags=llama", backend.ErrUnavailable)
}

func (*Loader) LoadTokenizer(context.Context, string, backend.Weights) (backend.Tokenizer, error) {
	return nil, backend.ErrUnavailable
}

func (*Loader) LoadProcessor(context.Context, string, backend.Weights) (backend.Processor, error) {
	return nil, backend.ErrUnavailable
}

func (*Loader) CheckArtifacts([]string, types.Architecture) error {
	return fmt.Errorf("%w: rebuild with -tags=llama", backend.ErrUnavailable)
}
