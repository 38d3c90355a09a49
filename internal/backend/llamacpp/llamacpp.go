//go:build llama

package llamacpp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"
	"github.com/rs/zerolog"

	"chatd/internal/backend"
	"chatd/pkg/types"
)

// Built reports whether real llama.cpp support is compiled in.
const Built = true

// Loader loads GGUF weights in-process.
type Loader struct {
	opts Options
	log  zerolog.Logger
}

func New(opts Options) *Loader {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 512
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "llamacpp").Logger()
	}
	return &Loader{opts: opts, log: log}
}

func (l *Loader) LoadWeights(_ context.Context, dir string, arch types.Architecture, opts backend.LoadOptions) (backend.Weights, error) {
	if arch != types.CausalText {
		return nil, fmt.Errorf("llamacpp: %s models are not supported in-process", arch)
	}
	path, err := pickModel(dir, opts.HalfPrecision)
	if err != nil {
		return nil, err
	}
	mo := []llama.ModelOption{llama.SetContext(l.opts.CtxSize)}
	if opts.HalfPrecision {
		mo = append(mo, llama.EnableF16Memory)
	}
	if l.opts.GPULayers > 0 {
		mo = append(mo, llama.SetGPULayers(l.opts.GPULayers))
	}
	m, err := llama.New(path, mo...)
	if err != nil {
		return nil, fmt.Errorf("llamacpp: load %s: %w", path, err)
	}
	l.log.Info().Str("path", path).Msg("weights loaded")
	return &weights{model: m, threads: l.opts.Threads, maxTokens: l.opts.MaxTokens}, nil
}

func (l *Loader) CheckArtifacts(files []string, arch types.Architecture) error {
	if arch != types.CausalText {
		return fmt.Errorf("llamacpp: %s models are not supported in-process", arch)
	}
	return backend.CheckGGUF(files, arch)
}

func (l *Loader) LoadTokenizer(context.Context, string, backend.Weights) (backend.Tokenizer, error) {
	return chatML{}, nil
}

func (l *Loader) LoadProcessor(context.Context, string, backend.Weights) (backend.Processor, error) {
	return nil, errors.New("llamacpp: no multimodal processor")
}

// chatML renders prompts with the ChatML template.
type chatML struct{}

func (chatML) ApplyChatTemplate(_ context.Context, msgs []backend.Message, addGen bool) (string, error) {
	return backend.RenderChatML(msgs, addGen, ""), nil
}

// weights owns a loaded model. go-llama.cpp models are not safe for concurrent use.
type weights struct {
	mu        sync.Mutex
	model     *llama.LLama
	threads   int
	maxTokens int
}

func (w *weights) Generate(context.Context, backend.Inputs) ([][]int32, error) {
	return nil, errors.New("llamacpp: token-level generation is not exposed; use Chat")
}

func (w *weights) Chat(ctx context.Context, tok backend.Tokenizer, query string, history types.History) (string, types.History, error) {
	msgs := append(backend.HistoryMessages(history), backend.TextMessage("user", query))
	prompt, err := tok.ApplyChatTemplate(ctx, msgs, true)
	if err != nil {
		return "", nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.model == nil {
		return "", nil, errors.New("llamacpp: model closed")
	}
	w.model.SetTokenCallback(func(string) bool {
		return ctx.Err() == nil
	})
	text, err := w.model.Predict(prompt,
		llama.SetTokens(w.maxTokens),
		llama.SetThreads(max(1, w.threads)),
		llama.SetStopWords("<|im_end|>"),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", nil, ctx.Err()
		}
		return "", nil, err
	}
	resp := strings.TrimSpace(strings.TrimSuffix(text, "<|im_end|>"))
	return resp, history.Append(query, resp), nil
}

func (w *weights) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.model != nil {
		w.model.Free()
		w.model = nil
	}
	return nil
}

func pickModel(dir string, half bool) (string, error) {
	matches, _ := filepath.Glob(filepath.Join(dir, "*.gguf"))
	var models []string
	for _, m := range matches {
		if !strings.HasPrefix(strings.ToLower(filepath.Base(m)), "mmproj") {
			models = append(models, m)
		}
	}
	if len(models) == 0 {
		return "", fmt.Errorf("no GGUF weights in %s", dir)
	}
	sort.Strings(models)
	if half {
		for _, m := range models {
			if strings.Contains(strings.ToLower(filepath.Base(m)), "f16") {
				return m, nil
			}
		}
	}
	return models[0], nil
}
