package llm

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// Provider represents an LLM provider
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderOllama    Provider = "ollama"
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// Tier represents the LLM tier for routing
type Tier int

const (
	TierFast     Tier = 1 // Auto-fill suggestions
	TierBalanced Tier = 2
	TierThorough Tier = 3 // Script generation
)

// String names the tier after the calls routed to it.
func (t Tier) String() string {
	switch t {
	case TierFast:
		return "suggestion"
	case TierBalanced:
		return "balanced"
	case TierThorough:
		return "generation"
	}
	return fmt.Sprintf("tier-%d", int(t))
}

// Request represents an LLM completion request
type Request struct {
	Tier        Tier
	Model       string // Overrides the tier model when set
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	Stop        []string
	JSONMode    bool

	// Schema constrains the JSON output. Providers with native structured
	// output send it as-is; the others get it as an instruction.
	Schema *jsonschema.Schema

	// ThinkingBudget caps reasoning tokens on providers that support it.
	ThinkingBudget int
}

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserMessage is a shorthand for a single user turn.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// Response represents an LLM completion response
type Response struct {
	Content      string
	Model        string
	Provider     Provider
	InputTokens  int
	OutputTokens int
	FinishReason string
	Cached       bool // True if response was served from cache
}

// Client is the interface for LLM providers
type Client interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
	Name() Provider
	Available() bool
}

// Completer is the narrow view consumers need; routers and their cache and
// usage wrappers all satisfy it.
type Completer interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// RouterConfig holds router configuration
type RouterConfig struct {
	DefaultProvider Provider
	Providers       map[Provider]ProviderConfig
	TierModels      map[Tier]map[Provider]string
}

// ProviderConfig holds provider-specific configuration
type ProviderConfig struct {
	Enabled bool
	BaseURL string
	APIKey  string
}

// modelFor picks the request override or the tier model.
func modelFor(req *Request, models map[Tier]string) (string, bool) {
	if req.Model != "" {
		return req.Model, true
	}
	m, ok := models[req.Tier]
	return m, ok && m != ""
}
