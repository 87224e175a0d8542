// Package provider adapts LLM chat backends to the single completion call
// the answer pipelines need. Backends are selected at runtime from
// configuration: OpenRouter, OpenAI, Azure OpenAI, Ollama, Volcano Ark and
// Google Gemini.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
)

// Backend enumerates the supported LLM inference providers.
type Backend string

const (
	// BackendOpenRouter selects the OpenRouter OpenAI-compatible gateway.
	BackendOpenRouter Backend = "openrouter"
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendArk selects the Volcano Engine Ark runtime.
	BackendArk Backend = "ark"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
)

// ProviderOpenRouter holds OpenRouter settings.
type ProviderOpenRouter struct {
	// APIKey is the OpenRouter key (OPENROUTER_API_KEY).
	APIKey string
	// Model is the default model slug (OPENROUTER_MODEL).
	Model string
	// BaseURL overrides the gateway endpoint (OPENROUTER_BASE_URL).
	BaseURL string
}

// ProviderOllama holds Ollama settings.
type ProviderOllama struct {
	// Host is the Ollama API endpoint (OLLAMA_HOST).
	Host string
	// Model is the Ollama model name (OLLAMA_MODEL).
	Model string
}

// ProviderOpenAI holds OpenAI settings.
type ProviderOpenAI struct {
	// APIKey is the OpenAI key (OPENAI_API_KEY).
	APIKey string
	// Model is the model name (OPENAI_MODEL).
	Model string
	// BaseURL overrides the API endpoint for compatible servers (OPENAI_BASE_URL).
	BaseURL string
}

// ProviderAzureOpenAI holds Azure OpenAI settings.
type ProviderAzureOpenAI struct {
	// APIKey is the resource key (AZURE_OPENAI_API_KEY).
	APIKey string
	// Endpoint is the resource endpoint (AZURE_OPENAI_ENDPOINT).
	Endpoint string
	// Deployment is the deployment name (AZURE_OPENAI_DEPLOYMENT).
	Deployment string
	// APIVersion is the REST API version (AZURE_OPENAI_API_VERSION).
	APIVersion string
}

// ProviderArk holds Volcano Engine Ark settings.
type ProviderArk struct {
	// APIKey is the Ark key (ARK_API_KEY).
	APIKey string
	// Model is the endpoint ID or model name (ARK_MODEL).
	Model string
	// BaseURL overrides the regional endpoint (ARK_BASE_URL).
	BaseURL string
}

// ProviderGemini holds Google Gemini settings.
type ProviderGemini struct {
	// APIKey is the Google API key (GOOGLE_API_KEY).
	APIKey string
	// Model is the Gemini model name (GEMINI_MODEL).
	Model string
}

// Config holds all provider-level configuration resolved from environment
// variables or explicit caller-supplied values. Only the block matching
// Backend is read.
type Config struct {
	// Backend identifies which inference provider to use.
	Backend Backend

	OpenRouter  ProviderOpenRouter
	Ollama      ProviderOllama
	OpenAI      ProviderOpenAI
	AzureOpenAI ProviderAzureOpenAI
	Ark         ProviderArk
	Gemini      ProviderGemini

	// Timeout bounds every completion call (MODEL_TIMEOUT, seconds).
	Timeout time.Duration
}

// Validate reports the first missing setting for the selected backend,
// naming the environment variable that supplies it.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendOpenRouter:
		if c.OpenRouter.APIKey == "" {
			return fmt.Errorf("provider: OPENROUTER_API_KEY is required for openrouter backend")
		}
		if c.OpenRouter.Model == "" {
			return fmt.Errorf("provider: OPENROUTER_MODEL is required for openrouter backend")
		}
	case BackendOllama:
		if c.Ollama.Model == "" {
			return fmt.Errorf("provider: OLLAMA_MODEL is required for ollama backend")
		}
	case BackendOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("provider: OPENAI_API_KEY is required for openai backend")
		}
		if c.OpenAI.Model == "" {
			return fmt.Errorf("provider: OPENAI_MODEL is required for openai backend")
		}
	case BackendAzure:
		if c.AzureOpenAI.APIKey == "" {
			return fmt.Errorf("provider: AZURE_OPENAI_API_KEY is required for azure backend")
		}
		if c.AzureOpenAI.Endpoint == "" {
			return fmt.Errorf("provider: AZURE_OPENAI_ENDPOINT is required for azure backend")
		}
		if c.AzureOpenAI.Deployment == "" {
			return fmt.Errorf("provider: AZURE_OPENAI_DEPLOYMENT is required for azure backend")
		}
	case BackendArk:
		if c.Ark.APIKey == "" {
			return fmt.Errorf("provider: ARK_API_KEY is required for ark backend")
		}
		if c.Ark.Model == "" {
			return fmt.Errorf("provider: ARK_MODEL is required for ark backend")
		}
	case BackendGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("provider: GOOGLE_API_KEY is required for gemini backend")
		}
		if c.Gemini.Model == "" {
			return fmt.Errorf("provider: GEMINI_MODEL is required for gemini backend")
		}
	default:
		return fmt.Errorf("provider: unknown backend %q (valid: openrouter, ollama, openai, azure, ark, gemini)", c.Backend)
	}
	return nil
}

// Params are the per-call decoding parameters.
type Params struct {
	// Temperature controls response randomness.
	Temperature float32
	// MaxTokens caps the response length. Zero leaves the backend default.
	MaxTokens int
	// Model overrides the configured model on backends that route by model
	// name per request. Empty keeps the configured model.
	Model string
}

// Completer turns a prompt into generated text. Implementations bound each
// call with their own timeout and must be safe for concurrent use.
type Completer interface {
	// Complete runs one completion and returns the generated text.
	// Failures are returned as *Error.
	Complete(ctx context.Context, msgs []*schema.Message, p Params) (string, error)
}

// Error is returned when a backend call fails for any reason: network,
// quota, timeout, or a model-side error.
type Error struct {
	// Backend is the provider that failed.
	Backend Backend
	// Err is the underlying failure.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider: %s completion failed: %v", e.Backend, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
