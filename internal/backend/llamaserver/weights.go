package llamaserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"regexp"
	"strings"

	"chatd/internal/backend"
	"chatd/pkg/types"
)

// mediaMarker is where llama-server splices image embeddings into the prompt.
const mediaMarker = "<__media__>"

var specialTokenRe = regexp.MustCompile(`<\|[^|>]*\|>|</?s>`)

// weights is a model served by a llama-server process.
type weights struct {
	c         *client
	proc      *process
	maxTokens int
}

// Generate runs one completion per sample and returns prompt ids followed by generated ids.
func (w *weights) Generate(ctx context.Context, in backend.Inputs) ([][]int32, error) {
	if len(in.Prompts) != len(in.InputIDs) {
		return nil, fmt.Errorf("inputs mismatch: %d prompts, %d id rows", len(in.Prompts), len(in.InputIDs))
	}
	var media []string
	for _, img := range in.Images {
		s, err := encodePNG(img)
		if err != nil {
			return nil, err
		}
		media = append(media, s)
	}
	out := make([][]int32, len(in.Prompts))
	for i, prompt := range in.Prompts {
		req := completionRequest{Prompt: prompt, NPredict: w.maxTokens, ReturnTokens: true, CachePrompt: true}
		if len(media) > 0 {
			req.Prompt = multimodalPrompt{PromptString: prompt, MultimodalData: media}
		}
		res, err := w.c.complete(ctx, req)
		if err != nil {
			return nil, err
		}
		seq := make([]int32, 0, len(in.InputIDs[i])+len(res.Tokens))
		seq = append(seq, in.InputIDs[i]...)
		out[i] = append(seq, res.Tokens...)
	}
	return out, nil
}

func (w *weights) Close() error {
	if w.proc == nil {
		return nil
	}
	return w.proc.stop()
}

// textWeights adds the integrated chat routine used by causal_text models.
type textWeights struct {
	*weights
}

// Chat renders history plus query through tok and completes it.
func (w *textWeights) Chat(ctx context.Context, tok backend.Tokenizer, query string, history types.History) (string, types.History, error) {
	if tok == nil {
		return "", nil, errors.New("chat requires a tokenizer")
	}
	msgs := append(backend.HistoryMessages(history), backend.TextMessage("user", query))
	prompt, err := tok.ApplyChatTemplate(ctx, msgs, true)
	if err != nil {
		return "", nil, err
	}
	res, err := w.c.complete(ctx, completionRequest{Prompt: prompt, NPredict: w.maxTokens, CachePrompt: true})
	if err != nil {
		return "", nil, err
	}
	resp := strings.TrimSpace(res.Content)
	return resp, history.Append(query, resp), nil
}

// tokenizer renders messages with the model's own chat template.
type tokenizer struct {
	c *client
}

// ApplyChatTemplate always ends with the assistant generation prompt; the server template
// endpoint does not expose a switch for it.
func (t *tokenizer) ApplyChatTemplate(ctx context.Context, msgs []backend.Message, _ bool) (string, error) {
	wire := make([]templateMessage, 0, len(msgs))
	for _, m := range msgs {
		var b strings.Builder
		for _, p := range m.Parts {
			switch p.Kind {
			case backend.ImageContent:
				b.WriteString(mediaMarker)
			case backend.TextContent:
				b.WriteString(p.Text)
			}
		}
		wire = append(wire, templateMessage{Role: m.Role, Content: b.String()})
	}
	return t.c.applyTemplate(ctx, wire)
}

// processor tokenizes prompts and decodes generated ids through the server.
type processor struct {
	tokenizer
}

func (p *processor) Process(ctx context.Context, texts []string, images []image.Image) (backend.Inputs, error) {
	in := backend.Inputs{Prompts: texts, Images: images}
	for _, t := range texts {
		ids, err := p.c.tokenize(ctx, t)
		if err != nil {
			return backend.Inputs{}, err
		}
		in.InputIDs = append(in.InputIDs, ids)
	}
	return in, nil
}

func (p *processor) BatchDecode(ctx context.Context, ids [][]int32, skipSpecial bool) ([]string, error) {
	out := make([]string, len(ids))
	for i, seq := range ids {
		s, err := p.c.detokenize(ctx, seq)
		if err != nil {
			return nil, err
		}
		if skipSpecial {
			s = specialTokenRe.ReplaceAllString(s, "")
		}
		out[i] = s
	}
	return out, nil
}

func encodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
