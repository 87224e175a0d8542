package provider

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/cloudwego/eino/components/model"
)

// defaultTimeout bounds a completion call when MODEL_TIMEOUT is unset.
const defaultTimeout = 60 * time.Second

// ConfigFromEnv resolves a Config from environment variables. MODEL_PROVIDER
// selects the backend; each provider reads its own native credential vars.
//
// Environment variables:
//
//	MODEL_PROVIDER = openrouter | ollama | openai | azure | ark | gemini (default: openrouter)
//	MODEL_TIMEOUT  = per-call timeout in seconds (default: 60)
//
//	OpenRouter: OPENROUTER_API_KEY, OPENROUTER_MODEL (default: mistralai/mistral-7b-instruct:free),
//	            OPENROUTER_BASE_URL (default: https://openrouter.ai/api/v1)
//	Ollama:     OLLAMA_HOST (default: http://localhost:11434), OLLAMA_MODEL (default: llama3)
//	OpenAI:     OPENAI_API_KEY, OPENAI_MODEL (default: gpt-4o-mini), OPENAI_BASE_URL
//	Azure:      AZURE_OPENAI_API_KEY, AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_DEPLOYMENT,
//	            AZURE_OPENAI_API_VERSION (default: 2024-02-01)
//	Ark:        ARK_API_KEY, ARK_MODEL, ARK_BASE_URL
//	Gemini:     GOOGLE_API_KEY, GEMINI_MODEL (default: gemini-1.5-flash)
func ConfigFromEnv() *Config {
	return &Config{
		Backend: Backend(getEnvOrDefault("MODEL_PROVIDER", string(BackendOpenRouter))),
		OpenRouter: ProviderOpenRouter{
			APIKey:  os.Getenv("OPENROUTER_API_KEY"),
			Model:   getEnvOrDefault("OPENROUTER_MODEL", "mistralai/mistral-7b-instruct:free"),
			BaseURL: getEnvOrDefault("OPENROUTER_BASE_URL", defaultOpenRouterBaseURL),
		},
		Ollama: ProviderOllama{
			Host:  getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434"),
			Model: getEnvOrDefault("OLLAMA_MODEL", "llama3"),
		},
		OpenAI: ProviderOpenAI{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			Model:   getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
		},
		AzureOpenAI: ProviderAzureOpenAI{
			APIKey:     os.Getenv("AZURE_OPENAI_API_KEY"),
			Endpoint:   os.Getenv("AZURE_OPENAI_ENDPOINT"),
			Deployment: os.Getenv("AZURE_OPENAI_DEPLOYMENT"),
			APIVersion: getEnvOrDefault("AZURE_OPENAI_API_VERSION", "2024-02-01"),
		},
		Ark: ProviderArk{
			APIKey:  os.Getenv("ARK_API_KEY"),
			Model:   os.Getenv("ARK_MODEL"),
			BaseURL: os.Getenv("ARK_BASE_URL"),
		},
		Gemini: ProviderGemini{
			APIKey: os.Getenv("GOOGLE_API_KEY"),
			Model:  getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		},
		Timeout: time.Duration(getEnvInt("MODEL_TIMEOUT", int(defaultTimeout/time.Second))) * time.Second,
	}
}

// New constructs a chat model from an explicit Config, delegating to the
// appropriate backend constructor. It validates the config first so callers
// get a clear error at startup rather than on the first request.
func New(ctx context.Context, cfg *Config) (model.BaseChatModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendOpenRouter:
		return newOpenRouter(ctx, cfg)
	case BackendOllama:
		return newOllama(ctx, cfg)
	case BackendOpenAI:
		return newOpenAI(ctx, cfg)
	case BackendAzure:
		return newAzure(ctx, cfg)
	case BackendArk:
		return newArk(ctx, cfg)
	case BackendGemini:
		return newGemini(ctx, cfg)
	}
	// Unreachable: Validate rejects unknown backends.
	return nil, cfg.Validate()
}

// NewCompleterFromEnv resolves the provider config from the environment and
// returns a ready Completer along with the config it was built from.
func NewCompleterFromEnv(ctx context.Context) (*ChainCompleter, *Config, error) {
	cfg := ConfigFromEnv()
	m, err := New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	c, err := NewCompleter(ctx, m, cfg)
	if err != nil {
		return nil, nil, err
	}
	return c, cfg, nil
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
