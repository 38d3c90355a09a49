// Package llamacpp runs causal_text models in-process through go-llama.cpp.
//
// The runtime is only compiled with the 'llama' build tag. Default builds get a stub whose
// loader fails with backend.ErrUnavailable, keeping them CGO-free.
package llamacpp

import "github.com/rs/zerolog"

// Options configures the in-process runtime.
type Options struct {
	CtxSize   int
	Threads   int
	GPULayers int
	MaxTokens int
	Logger    *zerolog.Logger
}
