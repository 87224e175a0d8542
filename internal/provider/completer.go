package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// ChainCompleter implements Completer on top of an eino chat model. The model
// runs inside a compiled single-node chain so that globally registered
// callback handlers (tracing) observe every call.
type ChainCompleter struct {
	// runnable is the compiled messages -> message chain.
	runnable compose.Runnable[[]*schema.Message, *schema.Message]
	// backend labels errors and logs.
	backend Backend
	// timeout bounds each Complete call.
	timeout time.Duration
	// modelOverride is true for backends that route on a per-request model name.
	modelOverride bool
}

// NewCompleter compiles m into a Completer configured by cfg.
func NewCompleter(ctx context.Context, m model.BaseChatModel, cfg *Config) (*ChainCompleter, error) {
	if m == nil {
		return nil, fmt.Errorf("provider: chat model must not be nil")
	}
	chain := compose.NewChain[[]*schema.Message, *schema.Message]()
	chain.AppendChatModel(m)
	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("provider: compile chain: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ChainCompleter{
		runnable:      runnable,
		backend:       cfg.Backend,
		timeout:       timeout,
		modelOverride: cfg.Backend == BackendOpenRouter || cfg.Backend == BackendOpenAI,
	}, nil
}

// Complete runs one completion under the configured timeout and returns the
// message content. Any failure is returned as *Error.
func (c *ChainCompleter) Complete(ctx context.Context, msgs []*schema.Message, p Params) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	opts := []model.Option{model.WithTemperature(p.Temperature)}
	if p.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(p.MaxTokens))
	}
	if p.Model != "" && c.modelOverride {
		opts = append(opts, model.WithModel(p.Model))
	}

	out, err := c.runnable.Invoke(ctx, msgs, compose.WithChatModelOption(opts...))
	if err != nil {
		return "", &Error{Backend: c.backend, Err: err}
	}
	if out == nil {
		return "", &Error{Backend: c.backend, Err: errors.New("empty response")}
	}
	return out.Content, nil
}
