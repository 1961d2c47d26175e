package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaClient talks to a local Ollama server over /api/chat
type OllamaClient struct {
	baseURL    string
	httpClient *http.Client
	models     map[Tier]string
}

// NewOllamaClient creates a new Ollama client
func NewOllamaClient(baseURL string, models map[Tier]string) *OllamaClient {
	return &OllamaClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		models:     models,
	}
}

func (c *OllamaClient) Name() Provider {
	return ProviderOllama
}

func (c *OllamaClient) Available() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// ollamaRequest is the body of POST /api/chat
type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   any             `json:"format,omitempty"`
	Think    bool            `json:"think,omitempty"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64  `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type ollamaResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	DoneReason      string        `json:"done_reason,omitempty"`
	PromptEvalCount int           `json:"prompt_eval_count,omitempty"`
	EvalCount       int           `json:"eval_count,omitempty"`
}

// buildOllamaRequest maps a Request onto the chat endpoint. A schema goes
// into format natively; plain JSON mode uses the "json" format.
func buildOllamaRequest(model string, req *Request) ollamaRequest {
	out := ollamaRequest{
		Model:    model,
		Messages: make([]ollamaMessage, 0, len(req.Messages)+1),
		Think:    req.ThinkingBudget > 0,
	}
	if req.System != "" {
		out.Messages = append(out.Messages, ollamaMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, ollamaMessage{Role: m.Role, Content: m.Content})
	}

	switch {
	case req.Schema != nil:
		out.Format = req.Schema
	case req.JSONMode:
		out.Format = "json"
	}

	if req.Temperature > 0 || req.MaxTokens > 0 || len(req.Stop) > 0 {
		out.Options = &ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
			Stop:        req.Stop,
		}
	}
	return out
}

func (c *OllamaClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	model, ok := modelFor(req, c.models)
	if !ok {
		return nil, fmt.Errorf("no model configured for tier %d", req.Tier)
	}

	body, err := json.Marshal(buildOllamaRequest(model, req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, sanitizeErrorBody(string(bodyBytes)))
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("decoding interrupted: %w", ctx.Err())
		}
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	// A reply cut off at num_predict cannot satisfy a schema
	if req.Schema != nil && out.DoneReason == "length" {
		return nil, fmt.Errorf("ollama reply truncated after %d tokens", out.EvalCount)
	}

	return &Response{
		Content:      out.Message.Content,
		Model:        out.Model,
		Provider:     ProviderOllama,
		InputTokens:  out.PromptEvalCount,
		OutputTokens: out.EvalCount,
		FinishReason: out.DoneReason,
	}, nil
}
