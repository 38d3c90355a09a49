// Package llamaserver runs models through llama.cpp's llama-server, one process per model
// directory.
package llamaserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chatd/internal/backend"
	"chatd/pkg/types"
)

const (
	defaultBin          = "llama-server"
	defaultHost         = "127.0.0.1"
	defaultReadyTimeout = 60 * time.Second
	defaultMaxTokens    = 512
)

// Options configures how llama-server processes are launched.
type Options struct {
	Bin          string
	Host         string
	PortStart    int
	PortEnd      int
	CtxSize      int
	NGL          int
	Threads      int
	ExtraArgs    []string
	ReadyTimeout time.Duration
	MaxTokens    int
	Logger       *zerolog.Logger
}

// Loader implements backend.Loader on top of llama-server.
type Loader struct {
	opts Options
	// Timeout=0: every call carries a context deadline or the caller's context.
	http *http.Client
	log  zerolog.Logger
}

// New returns a Loader with defaults applied to opts.
func New(opts Options) *Loader {
	if strings.TrimSpace(opts.Bin) == "" {
		opts.Bin = defaultBin
	}
	if strings.TrimSpace(opts.Host) == "" {
		opts.Host = defaultHost
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = defaultReadyTimeout
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "llama_server").Logger()
	}
	return &Loader{opts: opts, http: &http.Client{Timeout: 0}, log: log}
}

// LoadWeights spawns llama-server for the GGUF weights found in dir.
func (l *Loader) LoadWeights(ctx context.Context, dir string, arch types.Architecture, opts backend.LoadOptions) (backend.Weights, error) {
	model, mmproj, err := findGGUF(dir, arch, opts.HalfPrecision)
	if err != nil {
		return nil, err
	}
	proc, err := l.spawn(ctx, model, mmproj)
	if err != nil {
		return nil, err
	}
	w := &weights{c: &client{baseURL: proc.baseURL, http: l.http}, proc: proc, maxTokens: l.opts.MaxTokens}
	if arch == types.CausalText {
		return &textWeights{weights: w}, nil
	}
	return w, nil
}

// CheckArtifacts rejects listings without the GGUF files llama-server needs.
func (l *Loader) CheckArtifacts(files []string, arch types.Architecture) error {
	return backend.CheckGGUF(files, arch)
}

func (l *Loader) LoadTokenizer(_ context.Context, _ string, w backend.Weights) (backend.Tokenizer, error) {
	c, err := clientOf(w)
	if err != nil {
		return nil, err
	}
	return &tokenizer{c: c}, nil
}

func (l *Loader) LoadProcessor(_ context.Context, _ string, w backend.Weights) (backend.Processor, error) {
	c, err := clientOf(w)
	if err != nil {
		return nil, err
	}
	return &processor{tokenizer{c: c}}, nil
}

func clientOf(w backend.Weights) (*client, error) {
	switch v := w.(type) {
	case *weights:
		return v.c, nil
	case *textWeights:
		return v.c, nil
	}
	return nil, errors.New("llama-server: weights were not loaded by this backend")
}

// findGGUF picks the model file and, for vision models, the multimodal projector.
// With half set, a file whose name mentions f16 is preferred.
func findGGUF(dir string, arch types.Architecture, half bool) (model, mmproj string, err error) {
	var models, projectors []string
	err = filepath.WalkDir(dir, func(p string, d os.DirEntry, werr error) error {
		if werr != nil {
			return werr
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(p), ".gguf") {
			return nil
		}
		if strings.HasPrefix(strings.ToLower(d.Name()), "mmproj") {
			projectors = append(projectors, p)
		} else {
			models = append(models, p)
		}
		return nil
	})
	if err != nil {
		return "", "", fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(models) == 0 {
		return "", "", fmt.Errorf("no GGUF weights in %s", dir)
	}
	sort.Strings(models)
	sort.Strings(projectors)
	model = models[0]
	if half {
		for _, m := range models {
			if strings.Contains(strings.ToLower(filepath.Base(m)), "f16") {
				model = m
				break
			}
		}
	}
	if arch == types.VisionLanguage {
		if len(projectors) == 0 {
			return "", "", fmt.Errorf("vision model in %s has no mmproj projector", dir)
		}
		mmproj = projectors[0]
	}
	return model, mmproj, nil
}
