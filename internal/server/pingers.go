package server

import (
	"context"
	"fmt"

	"github.com/54b3r/plugmind-go/internal/provider"
)

// funcPinger adapts a probe function to the Pinger interface.
type funcPinger struct {
	name string
	fn   func(ctx context.Context) error
}

// NewPinger returns a Pinger named name that calls fn. Used for the Qdrant
// store and the bot registry, whose Ping methods already wrap their errors.
func NewPinger(name string, fn func(ctx context.Context) error) Pinger {
	return &funcPinger{name: name, fn: fn}
}

func (p *funcPinger) Name() string { return p.name }

func (p *funcPinger) Ping(ctx context.Context) error { return p.fn(ctx) }

// ModelPinger probes the completion backend with its token-free health
// endpoint.
type ModelPinger struct {
	cfg *provider.Config
}

// NewModelPinger constructs a ModelPinger for the resolved provider config.
func NewModelPinger(cfg *provider.Config) *ModelPinger {
	return &ModelPinger{cfg: cfg}
}

// Name returns the backend label, e.g. "openrouter".
func (p *ModelPinger) Name() string { return string(p.cfg.Backend) }

// Ping runs the provider health check.
func (p *ModelPinger) Ping(ctx context.Context) error {
	if err := p.cfg.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%s health check failed: %w", p.cfg.Backend, err)
	}
	return nil
}
