package llm

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIClient implements the Client interface on langchaingo's OpenAI driver.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	models  map[Tier]string

	mu  sync.Mutex
	llm *openai.LLM
}

// NewOpenAIClient creates a new OpenAI client. baseURL may be empty.
func NewOpenAIClient(apiKey, baseURL string, models map[Tier]string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		models:  models,
	}
}

func (c *OpenAIClient) Name() Provider {
	return ProviderOpenAI
}

func (c *OpenAIClient) Available() bool {
	return c.apiKey != ""
}

func (c *OpenAIClient) driver() (*openai.LLM, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.llm != nil {
		return c.llm, nil
	}

	opts := []openai.Option{
		openai.WithToken(c.apiKey),
		openai.WithHTTPClient(&http.Client{Timeout: 5 * time.Minute}),
	}
	if c.baseURL != "" {
		opts = append(opts, openai.WithBaseURL(c.baseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	c.llm = llm
	return llm, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	model, ok := modelFor(req, c.models)
	if !ok {
		return nil, fmt.Errorf("no model configured for tier %d", req.Tier)
	}

	llm, err := c.driver()
	if err != nil {
		return nil, err
	}

	messages := make([]llms.MessageContent, 0, len(req.Messages)+1)
	if system := systemWithSchema(req); system != "" {
		messages = append(messages, textMessage(llms.ChatMessageTypeSystem, system))
	}
	for _, m := range req.Messages {
		role := llms.ChatMessageTypeHuman
		if m.Role == "assistant" {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, textMessage(role, m.Content))
	}

	callOpts := []llms.CallOption{llms.WithModel(model)}
	if req.JSONMode || req.Schema != nil {
		callOpts = append(callOpts, llms.WithJSONMode())
	}
	if req.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(req.Temperature))
	}
	if len(req.Stop) > 0 {
		callOpts = append(callOpts, llms.WithStopWords(req.Stop))
	}

	resp, err := llm.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %s", sanitizeErrorBody(err.Error()))
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	choice := resp.Choices[0]
	return &Response{
		Content:      choice.Content,
		Model:        model,
		Provider:     ProviderOpenAI,
		InputTokens:  intInfo(choice.GenerationInfo, "PromptTokens"),
		OutputTokens: intInfo(choice.GenerationInfo, "CompletionTokens"),
		FinishReason: choice.StopReason,
	}, nil
}

func textMessage(role llms.ChatMessageType, text string) llms.MessageContent {
	return llms.MessageContent{
		Role:  role,
		Parts: []llms.ContentPart{llms.TextContent{Text: text}},
	}
}

func intInfo(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
