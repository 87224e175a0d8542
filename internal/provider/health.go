package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// HealthCheck probes the configured backend with a request that consumes no
// tokens: the model listing for OpenAI-compatible APIs and /api/tags for
// Ollama. Backends without such an endpoint report healthy.
func (c *Config) HealthCheck(ctx context.Context) error {
	var url, bearer string
	switch c.Backend {
	case BackendOpenRouter:
		base := c.OpenRouter.BaseURL
		if base == "" {
			base = defaultOpenRouterBaseURL
		}
		url, bearer = strings.TrimRight(base, "/")+"/models", c.OpenRouter.APIKey
	case BackendOpenAI:
		base := c.OpenAI.BaseURL
		if base == "" {
			base = "https://api.openai.com/v1"
		}
		url, bearer = strings.TrimRight(base, "/")+"/models", c.OpenAI.APIKey
	case BackendOllama:
		url = strings.TrimRight(c.Ollama.Host, "/") + "/api/tags"
	default:
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("provider: health request: %w", err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider: %s unreachable: %w", c.Backend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider: %s health check returned HTTP %d", c.Backend, resp.StatusCode)
	}
	return nil
}
