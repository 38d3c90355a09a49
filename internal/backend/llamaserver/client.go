package llamaserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// client speaks the llama-server native HTTP API.
type client struct {
	baseURL string
	http    *http.Client
}

type templateMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Prompt       any  `json:"prompt"`
	NPredict     int  `json:"n_predict,omitempty"`
	ReturnTokens bool `json:"return_tokens"`
	CachePrompt  bool `json:"cache_prompt"`
}

// multimodalPrompt is the prompt object form accepted when images accompany the text.
type multimodalPrompt struct {
	PromptString   string   `json:"prompt_string"`
	MultimodalData []string `json:"multimodal_data"`
}

type completionResponse struct {
	Content string  `json:"content"`
	Tokens  []int32 `json:"tokens"`
}

func (c *client) applyTemplate(ctx context.Context, msgs []templateMessage) (string, error) {
	var out struct {
		Prompt string `json:"prompt"`
	}
	err := c.post(ctx, "/apply-template", map[string]any{"messages": msgs}, &out)
	return out.Prompt, err
}

func (c *client) tokenize(ctx context.Context, text string) ([]int32, error) {
	var out struct {
		Tokens []int32 `json:"tokens"`
	}
	err := c.post(ctx, "/tokenize", map[string]any{"content": text, "add_special": true, "parse_special": true}, &out)
	return out.Tokens, err
}

func (c *client) detokenize(ctx context.Context, ids []int32) (string, error) {
	var out struct {
		Content string `json:"content"`
	}
	if ids == nil {
		ids = []int32{}
	}
	err := c.post(ctx, "/detokenize", map[string]any{"tokens": ids}, &out)
	return out.Content, err
}

func (c *client) complete(ctx context.Context, req completionRequest) (completionResponse, error) {
	var out completionResponse
	err := c.post(ctx, "/completion", req, &out)
	return out, err
}

func (c *client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("llama-server %s: %s: %s", path, resp.Status, bytes.TrimSpace(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("llama-server %s: decode: %w", path, err)
	}
	return nil
}
