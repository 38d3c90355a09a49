// Package backend defines the narrow interface the server uses to drive a model runtime, and the
// Model value that bundles loaded weights with their tokenizer or processor.
//
// Runtimes live in subpackages: llamaserver (one llama-server process per model), llamacpp
// (in-process, build tag "llama") and backendtest (scriptable, for tests).
package backend

import (
	"context"
	"errors"
	"image"

	"chatd/pkg/types"
)

// ErrUnavailable is returned by runtimes that were not compiled into this binary.
var ErrUnavailable = errors.New("model runtime not available in this build")

// ContentKind tags a message part.
type ContentKind string

const (
	TextContent  ContentKind = "text"
	ImageContent ContentKind = "image"
)

// Content is one ordered part of a chat message.
type Content struct {
	Kind  ContentKind
	Text  string
	Image image.Image
}

// Message is a role-tagged chat message made of ordered parts.
type Message struct {
	Role  string
	Parts []Content
}

// TextMessage builds a single-part text message.
func TextMessage(role, text string) Message {
	return Message{Role: role, Parts: []Content{{Kind: TextContent, Text: text}}}
}

// Text concatenates the text parts of m.
func (m Message) Text() string {
	var s string
	for _, p := range m.Parts {
		if p.Kind == TextContent {
			s += p.Text
		}
	}
	return s
}

// Inputs is a processed generation batch. InputIDs holds the prompt token ids per sample.
type Inputs struct {
	Prompts  []string
	InputIDs [][]int32
	Images   []image.Image
}

// LoadOptions are the per-architecture loading parameters.
type LoadOptions struct {
	// DeviceMap is the placement policy; "auto" lets the runtime decide.
	DeviceMap string
	// HalfPrecision requests reduced-precision weights where the runtime supports it.
	HalfPrecision bool
}

// OptionsFor returns the loading parameters for an architecture.
func OptionsFor(arch types.Architecture) LoadOptions {
	switch arch {
	case types.CausalText:
		return LoadOptions{DeviceMap: "auto", HalfPrecision: true}
	default:
		return LoadOptions{DeviceMap: "auto"}
	}
}

// Weights is a loaded model.
type Weights interface {
	// Generate returns, per sample, the prompt token ids followed by the generated ids.
	Generate(ctx context.Context, in Inputs) ([][]int32, error)
	Close() error
}

// TextChatter is implemented by weights with an integrated conversational routine.
type TextChatter interface {
	Chat(ctx context.Context, tok Tokenizer, query string, history types.History) (string, types.History, error)
}

// Tokenizer renders chat messages into a prompt.
type Tokenizer interface {
	ApplyChatTemplate(ctx context.Context, msgs []Message, addGenerationPrompt bool) (string, error)
}

// Processor prepares multimodal inputs and decodes generated ids.
type Processor interface {
	Tokenizer
	Process(ctx context.Context, texts []string, images []image.Image) (Inputs, error)
	BatchDecode(ctx context.Context, ids [][]int32, skipSpecialTokens bool) ([]string, error)
}

// Loader constructs runtime objects from a model directory.
type Loader interface {
	LoadWeights(ctx context.Context, dir string, arch types.Architecture, opts LoadOptions) (Weights, error)
	LoadTokenizer(ctx context.Context, dir string, w Weights) (Tokenizer, error)
	LoadProcessor(ctx context.Context, dir string, w Weights) (Processor, error)
}
