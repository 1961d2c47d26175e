package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"
)

// GeminiClient implements the Client interface on the Google Gen AI SDK.
// It is the only provider with native response schemas and thinking budgets.
type GeminiClient struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	models  map[Tier]string

	mu     sync.Mutex
	client *genai.Client
}

// GeminiOption configures a GeminiClient
type GeminiOption func(*GeminiClient)

// WithGeminiBaseURL points the client at another endpoint (tests, proxies).
func WithGeminiBaseURL(u string) GeminiOption {
	return func(c *GeminiClient) { c.baseURL = u }
}

// NewGeminiClient creates a new Gemini client. The SDK client is built
// lazily on the first call so a missing key only fails requests.
func NewGeminiClient(apiKey string, models map[Tier]string, opts ...GeminiOption) *GeminiClient {
	c := &GeminiClient{
		apiKey:  apiKey,
		timeout: 5 * time.Minute,
		models:  models,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *GeminiClient) Name() Provider {
	return ProviderGemini
}

func (c *GeminiClient) Available() bool {
	return c.apiKey != ""
}

// sdk returns the shared SDK client, building it on first use. A failed
// build is retried on the next call.
func (c *GeminiClient) sdk(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("gemini API key is not set")
	}

	cfg := &genai.ClientConfig{
		APIKey:     c.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: c.timeout},
	}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	c.client = client
	return client, nil
}

func (c *GeminiClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	model, ok := modelFor(req, c.models)
	if !ok {
		return nil, fmt.Errorf("no model configured for tier %d", req.Tier)
	}

	client, err := c.sdk(ctx)
	if err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == "assistant" || m.Role == "model" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	resp, err := client.Models.GenerateContent(ctx, model, contents, c.buildConfig(req))
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %s", sanitizeErrorBody(err.Error()))
	}

	out := &Response{
		Content:  resp.Text(),
		Model:    model,
		Provider: ProviderGemini,
	}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	if len(resp.Candidates) > 0 {
		out.FinishReason = strings.ToLower(string(resp.Candidates[0].FinishReason))
	}
	return out, nil
}

func (c *GeminiClient) buildConfig(req *Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		StopSequences: req.Stop,
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.JSONMode || req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
	}
	if req.Schema != nil {
		cfg.ResponseJsonSchema = req.Schema
	}
	if req.ThinkingBudget > 0 {
		cfg.ThinkingConfig = &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(int32(req.ThinkingBudget)),
		}
	}
	return cfg
}
