package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080"`
	Env      string `env:"ENV" envDefault:"development"`
	LogLevel string `env:"CASEGEN_LOG_LEVEL" envDefault:"info"`

	// Run history; empty disables it
	DatabaseURL string `env:"DATABASE_URL"`

	// Generation events; empty disables them
	NATSURL string `env:"NATS_URL"`

	// LLM
	LLM LLMConfig
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	// Default provider: gemini, ollama, anthropic, openai
	DefaultProvider string `env:"LLM_DEFAULT_PROVIDER" envDefault:"gemini"`

	// Gemini settings. The key is looked up under several names.
	GeminiKey       string `env:"GEMINI_API_KEY"`
	GoogleKey       string `env:"GOOGLE_API_KEY"`
	LegacyKey       string `env:"API_KEY"`
	GeminiBaseURL   string `env:"GEMINI_BASE_URL"`
	GenerationModel string `env:"CASEGEN_GENERATION_MODEL" envDefault:"gemini-3-pro-preview"`
	SuggestionModel string `env:"CASEGEN_SUGGESTION_MODEL" envDefault:"gemini-3-flash-preview"`
	ThinkingBudget  int    `env:"CASEGEN_THINKING_BUDGET" envDefault:"2048"`

	// Ollama settings
	OllamaURL             string `env:"OLLAMA_URL"`
	OllamaGenerationModel string `env:"OLLAMA_GENERATION_MODEL" envDefault:"qwen2.5-coder:14b"`
	OllamaSuggestionModel string `env:"OLLAMA_SUGGESTION_MODEL" envDefault:"qwen2.5-coder:7b"`

	// Anthropic settings
	AnthropicKey             string `env:"ANTHROPIC_API_KEY"`
	AnthropicGenerationModel string `env:"ANTHROPIC_GENERATION_MODEL" envDefault:"claude-3-5-sonnet-20241022"`
	AnthropicSuggestionModel string `env:"ANTHROPIC_SUGGESTION_MODEL" envDefault:"claude-3-haiku-20240307"`

	// OpenAI settings
	OpenAIKey             string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL         string `env:"OPENAI_BASE_URL"`
	OpenAIGenerationModel string `env:"OPENAI_GENERATION_MODEL" envDefault:"gpt-4o"`
	OpenAISuggestionModel string `env:"OPENAI_SUGGESTION_MODEL" envDefault:"gpt-4o-mini"`

	// Response cache: memory or none
	CacheType string        `env:"CASEGEN_LLM_CACHE" envDefault:"none"`
	CacheTTL  time.Duration `env:"CASEGEN_LLM_CACHE_TTL" envDefault:"1h"`
	CacheSize int           `env:"CASEGEN_LLM_CACHE_SIZE" envDefault:"256"`

	// Budget limits, 0 means unlimited
	HourlyTokenLimit  int64   `env:"CASEGEN_HOURLY_TOKEN_LIMIT"`
	DailyTokenLimit   int64   `env:"CASEGEN_DAILY_TOKEN_LIMIT"`
	MonthlyBudgetUSD  float64 `env:"CASEGEN_MONTHLY_BUDGET_USD"`
	RequestsPerMinute int     `env:"CASEGEN_REQUESTS_PER_MINUTE"`
}

// GeminiAPIKey returns the first Gemini key found.
func (c LLMConfig) GeminiAPIKey() string {
	for _, k := range []string{c.GeminiKey, c.GoogleKey, c.LegacyKey} {
		if k != "" {
			return k
		}
	}
	return ""
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseEnv fills target from the environment using its env tags.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	switch c.LLM.DefaultProvider {
	case "gemini":
		if c.LLM.GeminiAPIKey() == "" {
			return fmt.Errorf("GEMINI_API_KEY required when using gemini provider")
		}
	case "ollama":
		if c.LLM.OllamaURL == "" {
			return fmt.Errorf("OLLAMA_URL required when using ollama provider")
		}
	case "anthropic":
		if c.LLM.AnthropicKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY required when using anthropic provider")
		}
	case "openai":
		if c.LLM.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY required when using openai provider")
		}
	default:
		return fmt.Errorf("unknown LLM provider %q", c.LLM.DefaultProvider)
	}

	if c.LLM.ThinkingBudget < 0 {
		return fmt.Errorf("CASEGEN_THINKING_BUDGET must not be negative")
	}

	return nil
}
