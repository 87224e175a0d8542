// Package embedder provides implementations of the rag.Embedder interface for
// converting question and chunk text into fixed-size dense vectors. Each
// implementation talks to its backend (OpenAI, Azure OpenAI, Ollama) over
// plain HTTP.
package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxOpenAIInputs is the number of texts sent per embeddings request. Larger
// batches are split and the results concatenated in order.
const maxOpenAIInputs = 256

// OpenAIEmbedder implements rag.Embedder against the OpenAI or Azure OpenAI
// embeddings API. Every request asks for exactly dimensions components so
// text-embedding-3 models fit the bot collections, which are all created
// with the same vector size. It is safe for concurrent use.
type OpenAIEmbedder struct {
	endpoint   string
	apiKey     string
	model      string
	dimensions int
	azure      bool
	client     *http.Client
}

// OpenAIConfig holds the settings for constructing an OpenAIEmbedder.
type OpenAIConfig struct {
	// BaseURL is the API base. For OpenAI: "https://api.openai.com/v1".
	// For Azure: "https://<resource>.openai.azure.com/openai".
	BaseURL string
	// APIKey is sent as a Bearer token, or as the api-key header for Azure.
	APIKey string
	// Model is the embedding model, or the deployment name for Azure.
	// Defaults to text-embedding-3-small.
	Model string
	// Dimensions is requested from the API and enforced on the response.
	// Defaults to DefaultDimensions.
	Dimensions int
	// Azure selects deployment-style URLs and api-key auth.
	Azure bool
	// APIVersion is the Azure api-version query value. Ignored unless Azure.
	APIVersion string
	// Timeout bounds each request. Defaults to 30s.
	Timeout time.Duration
}

// NewOpenAIEmbedder constructs an OpenAIEmbedder from cfg, filling the
// model, dimension and timeout defaults.
func NewOpenAIEmbedder(cfg *OpenAIConfig) *OpenAIEmbedder {
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = DefaultDimensions
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	endpoint := base + "/embeddings"
	if cfg.Azure {
		endpoint = base + "/deployments/" + url.PathEscape(model) + "/embeddings?api-version=" + url.QueryEscape(cfg.APIVersion)
	}

	return &OpenAIEmbedder{
		endpoint:   endpoint,
		apiKey:     cfg.APIKey,
		model:      model,
		dimensions: dims,
		azure:      cfg.Azure,
		client:     &http.Client{Timeout: timeout},
	}
}

type embeddingsRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model,omitempty"`
	Dimensions int      `json:"dimensions"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Embed returns one vector per text, in input order. An empty input makes
// no request.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxOpenAIInputs {
		end := min(start+maxOpenAIInputs, len(texts))
		vecs, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body := embeddingsRequest{Input: texts, Dimensions: e.dimensions}
	if !e.azure {
		body.Model = e.model
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("openai embedder: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("openai embedder: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.azure {
		req.Header.Set("api-key", e.apiKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai embedder: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("openai embedder: read response: %w", err)
	}

	var result embeddingsResponse
	decodeErr := json.Unmarshal(raw, &result)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && result.Error != nil && result.Error.Message != "" {
			return nil, fmt.Errorf("openai embedder: HTTP %d: %s", resp.StatusCode, result.Error.Message)
		}
		return nil, fmt.Errorf("openai embedder: HTTP %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("openai embedder: decode response: %w", decodeErr)
	}
	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("openai embedder: expected %d embeddings, got %d", len(texts), len(result.Data))
	}

	// Data may arrive out of order; place each vector by its index.
	vecs := make([][]float32, len(texts))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("openai embedder: index %d out of range [0, %d)", d.Index, len(texts))
		}
		if vecs[d.Index] != nil {
			return nil, fmt.Errorf("openai embedder: duplicate index %d", d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	if err := checkDimensions("openai embedder", vecs, e.dimensions); err != nil {
		return nil, err
	}
	return vecs, nil
}
