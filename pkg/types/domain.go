package types

import (
	"encoding/json"
	"fmt"
)

// Architecture identifies the model family a descriptor belongs to. It is resolved once when the
// catalog is defined and drives both loading options and chat dispatch.
type Architecture string

const (
	// CausalText models are text-only autoregressive models with an integrated chat routine.
	CausalText Architecture = "causal_text"
	// VisionLanguage models accept interleaved image and text input through a processor.
	VisionLanguage Architecture = "vision_language"
)

// Valid reports whether a is one of the supported architectures.
func (a Architecture) Valid() bool {
	return a == CausalText || a == VisionLanguage
}

// ModelDescriptor describes a model the server knows how to download and serve.
type ModelDescriptor struct {
	// Hub identifier, also used as the cache path key.
	// example: Qwen/Qwen2.5-VL-3B-Instruct
	ID string `json:"id" yaml:"id" toml:"id" example:"Qwen/Qwen2.5-VL-3B-Instruct"`
	// Human-friendly name.
	// example: Qwen2.5-VL-3B-Instruct
	Name string `json:"name" yaml:"name" toml:"name" example:"Qwen2.5-VL-3B-Instruct"`
	// Parameter count class.
	// example: 3B
	Size string `json:"size" yaml:"size" toml:"size" example:"3B"`
	// Architecture family.
	// example: vision_language
	Architecture Architecture `json:"type" yaml:"type" toml:"type" example:"vision_language"`
}

// Turn is one completed (query, response) exchange. On the wire it is a two element array.
type Turn struct {
	Query    string
	Response string
}

// MarshalJSON encodes the turn as a [query, response] pair.
func (t Turn) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{t.Query, t.Response})
}

// UnmarshalJSON accepts exactly a two element array of strings.
func (t *Turn) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("history turn must be a [query, response] pair: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("history turn must be a [query, response] pair, got %d elements", len(raw))
	}
	var q, r string
	if err := json.Unmarshal(raw[0], &q); err != nil {
		return fmt.Errorf("history turn query must be a string: %w", err)
	}
	if err := json.Unmarshal(raw[1], &r); err != nil {
		return fmt.Errorf("history turn response must be a string: %w", err)
	}
	t.Query, t.Response = q, r
	return nil
}

// History is an ordered conversation, oldest turn first.
type History []Turn

// Append returns a new history with one turn added. The receiver is never modified, so callers
// can keep using the history they passed in.
func (h History) Append(query, response string) History {
	out := make(History, len(h), len(h)+1)
	copy(out, h)
	return append(out, Turn{Query: query, Response: response})
}

// MarshalJSON encodes a nil history as an empty list so responses always carry an array.
func (h History) MarshalJSON() ([]byte, error) {
	if h == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Turn(h))
}
