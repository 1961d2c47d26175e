package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const anthropicAPIURL = "https://api.anthropic.com/v1/messages"

// AnthropicClient calls the Anthropic Messages API
type AnthropicClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	models     map[Tier]string
}

// NewAnthropicClient creates a new Anthropic client
func NewAnthropicClient(apiKey string, models map[Tier]string) *AnthropicClient {
	return &AnthropicClient{
		apiKey:     apiKey,
		baseURL:    anthropicAPIURL,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		models:     models,
	}
}

func (c *AnthropicClient) Name() Provider {
	return ProviderAnthropic
}

func (c *AnthropicClient) Available() bool {
	return c.apiKey != ""
}

// anthropicMinThinking is the smallest budget the API accepts for extended
// thinking; smaller budgets leave thinking off.
const anthropicMinThinking = 1024

type anthropicRequest struct {
	Model         string             `json:"model"`
	MaxTokens     int                `json:"max_tokens"`
	System        string             `json:"system,omitempty"`
	Messages      []anthropicMessage `json:"messages"`
	Temperature   float64            `json:"temperature,omitempty"`
	StopSequences []string           `json:"stop_sequences,omitempty"`
	Thinking      *anthropicThinking `json:"thinking,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicThinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// buildAnthropicRequest maps a Request onto the Messages API. The schema
// rides in the system prompt. With thinking enabled max_tokens must exceed
// the budget and temperature is left unset. Without thinking, schema
// requests are prefilled with "{" so the reply starts as a JSON object; the
// prefill is returned so the caller can put it back in front of the text.
func buildAnthropicRequest(model string, req *Request) (anthropicRequest, string) {
	out := anthropicRequest{
		Model:         model,
		MaxTokens:     req.MaxTokens,
		System:        systemWithSchema(req),
		Messages:      make([]anthropicMessage, 0, len(req.Messages)+1),
		Temperature:   req.Temperature,
		StopSequences: req.Stop,
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = 8192
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, anthropicMessage{Role: m.Role, Content: m.Content})
	}

	if req.ThinkingBudget >= anthropicMinThinking {
		out.Thinking = &anthropicThinking{Type: "enabled", BudgetTokens: req.ThinkingBudget}
		if out.MaxTokens <= req.ThinkingBudget {
			out.MaxTokens = req.ThinkingBudget + 8192
		}
		out.Temperature = 0
		return out, ""
	}

	if req.Schema != nil {
		out.Messages = append(out.Messages, anthropicMessage{Role: "assistant", Content: "{"})
		return out, "{"
	}
	return out, ""
}

func (c *AnthropicClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	model, ok := modelFor(req, c.models)
	if !ok {
		return nil, fmt.Errorf("no model configured for tier %d", req.Tier)
	}

	anthropicReq, prefill := buildAnthropicRequest(model, req)
	body, err := json.Marshal(anthropicReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("anthropic returned status %d: %s", resp.StatusCode, sanitizeErrorBody(string(bodyBytes)))
	}

	var out anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	// Thinking blocks are dropped; only text reaches the caller
	var text strings.Builder
	text.WriteString(prefill)
	for _, block := range out.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &Response{
		Content:      text.String(),
		Model:        out.Model,
		Provider:     ProviderAnthropic,
		InputTokens:  out.Usage.InputTokens,
		OutputTokens: out.Usage.OutputTokens,
		FinishReason: out.StopReason,
	}, nil
}
