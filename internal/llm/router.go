package llm

import (
	"context"
	"fmt"

	"github.com/QTest-hq/casegen/internal/config"
	"github.com/rs/zerolog/log"
)

// Router routes LLM requests to a provider based on tier and availability.
// A request is sent to exactly one provider: availability decides which one,
// a failed call is never re-sent elsewhere.
type Router struct {
	config    *RouterConfig
	clients   map[Provider]Client
	fallbacks []Provider // Fallback order
}

// NewRouter creates a new LLM router from config
func NewRouter(cfg *config.Config) (*Router, error) {
	r := &Router{
		clients:   make(map[Provider]Client),
		fallbacks: []Provider{ProviderGemini, ProviderAnthropic, ProviderOpenAI, ProviderOllama},
	}

	r.config = &RouterConfig{
		DefaultProvider: Provider(cfg.LLM.DefaultProvider),
		Providers:       make(map[Provider]ProviderConfig),
		TierModels:      make(map[Tier]map[Provider]string),
	}

	if key := cfg.LLM.GeminiAPIKey(); key != "" {
		models := map[Tier]string{
			TierFast:     cfg.LLM.SuggestionModel,
			TierBalanced: cfg.LLM.SuggestionModel,
			TierThorough: cfg.LLM.GenerationModel,
		}
		var opts []GeminiOption
		if cfg.LLM.GeminiBaseURL != "" {
			opts = append(opts, WithGeminiBaseURL(cfg.LLM.GeminiBaseURL))
		}
		r.register(ProviderGemini, ProviderConfig{Enabled: true, APIKey: key, BaseURL: cfg.LLM.GeminiBaseURL},
			NewGeminiClient(key, models, opts...), models)
	}

	if cfg.LLM.OllamaURL != "" {
		models := map[Tier]string{
			TierFast:     cfg.LLM.OllamaSuggestionModel,
			TierBalanced: cfg.LLM.OllamaSuggestionModel,
			TierThorough: cfg.LLM.OllamaGenerationModel,
		}
		r.register(ProviderOllama, ProviderConfig{Enabled: true, BaseURL: cfg.LLM.OllamaURL},
			NewOllamaClient(cfg.LLM.OllamaURL, models), models)
	}

	if cfg.LLM.AnthropicKey != "" {
		models := map[Tier]string{
			TierFast:     cfg.LLM.AnthropicSuggestionModel,
			TierBalanced: cfg.LLM.AnthropicSuggestionModel,
			TierThorough: cfg.LLM.AnthropicGenerationModel,
		}
		r.register(ProviderAnthropic, ProviderConfig{Enabled: true, APIKey: cfg.LLM.AnthropicKey},
			NewAnthropicClient(cfg.LLM.AnthropicKey, models), models)
	}

	if cfg.LLM.OpenAIKey != "" {
		models := map[Tier]string{
			TierFast:     cfg.LLM.OpenAISuggestionModel,
			TierBalanced: cfg.LLM.OpenAISuggestionModel,
			TierThorough: cfg.LLM.OpenAIGenerationModel,
		}
		r.register(ProviderOpenAI, ProviderConfig{Enabled: true, APIKey: cfg.LLM.OpenAIKey, BaseURL: cfg.LLM.OpenAIBaseURL},
			NewOpenAIClient(cfg.LLM.OpenAIKey, cfg.LLM.OpenAIBaseURL, models), models)
	}

	if len(r.clients) == 0 {
		return nil, fmt.Errorf("no LLM providers configured")
	}

	return r, nil
}

func (r *Router) register(p Provider, pc ProviderConfig, client Client, models map[Tier]string) {
	r.config.Providers[p] = pc
	r.clients[p] = client
	for tier, model := range models {
		if r.config.TierModels[tier] == nil {
			r.config.TierModels[tier] = make(map[Provider]string)
		}
		r.config.TierModels[tier][p] = model
	}
}

// Complete sends the request to the first available provider for its tier.
func (r *Router) Complete(ctx context.Context, req *Request) (*Response, error) {
	providers := r.getProvidersForTier(req.Tier)
	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers available for tier %d", req.Tier)
	}

	for _, provider := range providers {
		client, ok := r.clients[provider]
		if !ok {
			continue
		}

		if !client.Available() {
			log.Debug().Str("provider", string(provider)).Msg("provider not available, trying next")
			continue
		}

		log.Debug().
			Str("provider", string(provider)).
			Int("tier", int(req.Tier)).
			Msg("routing request to provider")

		resp, err := client.Complete(ctx, req)
		if err != nil {
			log.Warn().
				Err(err).
				Str("provider", string(provider)).
				Msg("provider request failed")
			return nil, fmt.Errorf("%s: %w", provider, err)
		}

		return resp, nil
	}

	return nil, fmt.Errorf("no available providers for tier %d", req.Tier)
}

// getProvidersForTier returns providers that can handle the given tier, in priority order
func (r *Router) getProvidersForTier(tier Tier) []Provider {
	providers := make([]Provider, 0)

	tierModels := r.config.TierModels[tier]
	if _, hasDefault := tierModels[r.config.DefaultProvider]; hasDefault {
		providers = append(providers, r.config.DefaultProvider)
	}

	// Remaining providers follow the fallback order so routing is deterministic
	for _, fallback := range r.fallbacks {
		if fallback == r.config.DefaultProvider && len(providers) > 0 {
			continue
		}
		if _, ok := tierModels[fallback]; ok && r.clients[fallback] != nil {
			providers = append(providers, fallback)
		}
	}

	return providers
}

// Providers lists the configured providers in fallback order.
func (r *Router) Providers() []Provider {
	out := make([]Provider, 0, len(r.clients))
	for _, p := range r.fallbacks {
		if _, ok := r.clients[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// HealthCheck verifies at least one provider is available
func (r *Router) HealthCheck() error {
	for _, provider := range r.Providers() {
		if r.clients[provider].Available() {
			log.Debug().Str("provider", string(provider)).Msg("provider available")
			return nil
		}
	}
	return fmt.Errorf("no LLM providers available")
}
