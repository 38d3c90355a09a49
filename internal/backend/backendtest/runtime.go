// Package backendtest provides a scriptable in-memory model runtime that records how it is used.
package backendtest

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"chatd/internal/backend"
	"chatd/pkg/types"
)

// EOS is appended after every generated sequence and dropped when decoding skips special tokens.
const EOS int32 = -1

// Runtime implements backend.Loader. Zero value is not usable; call New.
type Runtime struct {
	mu sync.Mutex

	reply     string
	loadErr   func(dir string, arch types.Architecture) error
	genErr    error
	loadDelay time.Duration
	genDelay  time.Duration
	gguf      bool

	loads       int
	closes      int
	generations int
	chats       int
	prompts     []string
	images      int
	lastOpts    backend.LoadOptions
}

// New returns a runtime that answers every prompt with reply.
func New(reply string) *Runtime {
	return &Runtime{reply: reply}
}

// FailLoad installs a hook consulted by LoadWeights; a non-nil result fails the load.
func (r *Runtime) FailLoad(fn func(dir string, arch types.Architecture) error) {
	r.mu.Lock()
	r.loadErr = fn
	r.mu.Unlock()
}

// FailGenerate makes Generate and Chat return err.
func (r *Runtime) FailGenerate(err error) {
	r.mu.Lock()
	r.genErr = err
	r.mu.Unlock()
}

// RequireGGUF makes CheckArtifacts apply the GGUF listing rules of the llama.cpp runtimes.
func (r *Runtime) RequireGGUF(on bool) {
	r.mu.Lock()
	r.gguf = on
	r.mu.Unlock()
}

// CheckArtifacts accepts any listing unless RequireGGUF is on.
func (r *Runtime) CheckArtifacts(files []string, arch types.Architecture) error {
	r.mu.Lock()
	on := r.gguf
	r.mu.Unlock()
	if !on {
		return nil
	}
	return backend.CheckGGUF(files, arch)
}

// SetLoadDelay slows LoadWeights down.
func (r *Runtime) SetLoadDelay(d time.Duration) {
	r.mu.Lock()
	r.loadDelay = d
	r.mu.Unlock()
}

// SetGenerateDelay slows Generate and Chat down.
func (r *Runtime) SetGenerateDelay(d time.Duration) {
	r.mu.Lock()
	r.genDelay = d
	r.mu.Unlock()
}

// Loads returns how many weight loads succeeded.
func (r *Runtime) Loads() int { r.mu.Lock(); defer r.mu.Unlock(); return r.loads }

// Closes returns how many weights were closed.
func (r *Runtime) Closes() int { r.mu.Lock(); defer r.mu.Unlock(); return r.closes }

// Generations returns how many Generate calls were made.
func (r *Runtime) Generations() int { r.mu.Lock(); defer r.mu.Unlock(); return r.generations }

// Chats returns how many integrated chat calls were made.
func (r *Runtime) Chats() int { r.mu.Lock(); defer r.mu.Unlock(); return r.chats }

// Images returns how many images were passed to Generate.
func (r *Runtime) Images() int { r.mu.Lock(); defer r.mu.Unlock(); return r.images }

// LastOptions returns the options of the most recent LoadWeights call.
func (r *Runtime) LastOptions() backend.LoadOptions {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastOpts
}

// Prompts returns every prompt passed to Generate, in order.
func (r *Runtime) Prompts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.prompts...)
}

func (r *Runtime) LoadWeights(ctx context.Context, dir string, arch types.Architecture, opts backend.LoadOptions) (backend.Weights, error) {
	r.mu.Lock()
	hook, delay := r.loadErr, r.loadDelay
	r.lastOpts = opts
	r.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if hook != nil {
		if err := hook(dir, arch); err != nil {
			return nil, err
		}
	}
	r.mu.Lock()
	r.loads++
	r.mu.Unlock()
	return &weights{rt: r, arch: arch}, nil
}

func (r *Runtime) LoadTokenizer(_ context.Context, _ string, w backend.Weights) (backend.Tokenizer, error) {
	if _, ok := w.(*weights); !ok {
		return nil, errors.New("backendtest: foreign weights")
	}
	return tokenizer{}, nil
}

func (r *Runtime) LoadProcessor(_ context.Context, _ string, w backend.Weights) (backend.Processor, error) {
	if _, ok := w.(*weights); !ok {
		return nil, errors.New("backendtest: foreign weights")
	}
	return processor{}, nil
}

func (r *Runtime) wait(ctx context.Context) error {
	r.mu.Lock()
	d, err := r.genDelay, r.genErr
	r.mu.Unlock()
	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

type weights struct {
	rt   *Runtime
	arch types.Architecture
	once sync.Once
}

// Generate echoes the prompt ids followed by the reply and EOS.
func (w *weights) Generate(ctx context.Context, in backend.Inputs) ([][]int32, error) {
	w.rt.mu.Lock()
	w.rt.generations++
	w.rt.prompts = append(w.rt.prompts, in.Prompts...)
	w.rt.images += len(in.Images)
	reply := w.rt.reply
	w.rt.mu.Unlock()
	if err := w.rt.wait(ctx); err != nil {
		return nil, err
	}
	out := make([][]int32, len(in.InputIDs))
	for i, ids := range in.InputIDs {
		seq := append([]int32(nil), ids...)
		seq = append(seq, encode(reply)...)
		out[i] = append(seq, EOS)
	}
	return out, nil
}

// Chat answers with the reply and appends one turn.
func (w *weights) Chat(ctx context.Context, _ backend.Tokenizer, query string, history types.History) (string, types.History, error) {
	w.rt.mu.Lock()
	w.rt.chats++
	w.rt.prompts = append(w.rt.prompts, query)
	reply := w.rt.reply
	w.rt.mu.Unlock()
	if err := w.rt.wait(ctx); err != nil {
		return "", nil, err
	}
	return reply, history.Append(query, reply), nil
}

func (w *weights) Close() error {
	w.once.Do(func() {
		w.rt.mu.Lock()
		w.rt.closes++
		w.rt.mu.Unlock()
	})
	return nil
}

type tokenizer struct{}

func (tokenizer) ApplyChatTemplate(_ context.Context, msgs []backend.Message, addGen bool) (string, error) {
	return backend.RenderChatML(msgs, addGen, "<image>"), nil
}

type processor struct{ tokenizer }

func (processor) Process(_ context.Context, texts []string, images []image.Image) (backend.Inputs, error) {
	in := backend.Inputs{Prompts: texts, Images: images}
	for _, t := range texts {
		in.InputIDs = append(in.InputIDs, encode(t))
	}
	return in, nil
}

func (processor) BatchDecode(_ context.Context, ids [][]int32, skipSpecial bool) ([]string, error) {
	out := make([]string, len(ids))
	for i, seq := range ids {
		rs := make([]rune, 0, len(seq))
		for _, id := range seq {
			if id < 0 {
				if skipSpecial {
					continue
				}
				rs = append(rs, []rune("</s>")...)
				continue
			}
			rs = append(rs, rune(id))
		}
		out[i] = string(rs)
	}
	return out, nil
}

func encode(s string) []int32 {
	out := make([]int32, 0, len(s))
	for _, r := range s {
		out = append(out, int32(r))
	}
	return out
}
