// Package chat turns a query, prior history and an optional image into a model reply,
// dispatching on the model's architecture.
package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"chatd/internal/backend"
	"chatd/pkg/types"
)

// Options configures an Engine.
type Options struct {
	Logger *zerolog.Logger
	// RejectImageForText fails requests that send an image to a causal_text model instead of
	// ignoring the image.
	RejectImageForText bool
}

// Engine routes chat calls to the Dispatcher registered for the model architecture.
type Engine struct {
	log         zerolog.Logger
	rejectImage bool
	dispatchers map[types.Architecture]Dispatcher
}

// New returns an Engine with the vision_language and causal_text dispatchers registered.
func New(opts Options) *Engine {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "chat").Logger()
	}
	return &Engine{
		log:         log,
		rejectImage: opts.RejectImageForText,
		dispatchers: map[types.Architecture]Dispatcher{
			types.VisionLanguage: visionDispatcher{},
			types.CausalText:     textDispatcher{},
		},
	}
}

// Chat produces a reply and returns history extended by exactly one turn. The caller's history
// slice is not modified.
func (e *Engine) Chat(ctx context.Context, m *backend.Model, query string, history types.History, encodedImage string) (string, types.History, error) {
	if m == nil {
		return "", nil, errors.New("no model instance")
	}
	d, ok := e.dispatchers[m.Architecture]
	if !ok {
		return "", nil, fmt.Errorf("no dispatcher for architecture %q", m.Architecture)
	}
	req := Request{Query: query, History: history}
	if encodedImage != "" {
		if !d.SupportsImages() {
			if e.rejectImage {
				return "", nil, ErrUnsupportedModality(m.ID)
			}
			e.log.Warn().Str("model", m.ID).Msg("ignoring image for text-only model")
		} else {
			img, err := DecodeImage(encodedImage)
			if err != nil {
				return "", nil, err
			}
			req.Image = img
		}
	}
	resp, newHistory, err := d.Respond(ctx, m, req)
	if err != nil {
		return "", nil, err
	}
	if req.Image != nil {
		b := req.Image.Bounds()
		e.log.Debug().Str("model", m.ID).Int("width", b.Dx()).Int("height", b.Dy()).Msg("image turn")
	}
	return resp, newHistory, nil
}
