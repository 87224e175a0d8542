package sqlagent

import (
	"context"
	"fmt"

	"github.com/54b3r/plugmind-go/internal/bot"
	"github.com/54b3r/plugmind-go/internal/logging"
)

// Pipeline resolves searchbot questions through a shared agent cache.
type Pipeline struct {
	cache *Cache
}

// NewPipeline returns a Pipeline reading agents from cache.
func NewPipeline(cache *Cache) *Pipeline {
	return &Pipeline{cache: cache}
}

// Resolve answers question for the searchbot b. The answer is the ordered
// result sequence; sources are always empty.
//
// ErrNoAllowedTables is returned before any stage runs when b has no
// allow-list. A failure to connect to the tenant database is returned as an
// error. Generation and execution failures are reported in the result.
func (p *Pipeline) Resolve(ctx context.Context, b *bot.Config, question string) (bot.Result, error) {
	if len(b.AllowedTables) == 0 {
		return bot.Result{}, fmt.Errorf("%w: bot %q", ErrNoAllowedTables, b.ID)
	}

	ctx = logging.WithLogger(ctx, logging.FromContext(ctx).With("bot_id", b.ID))

	agent, release, err := p.cache.GetOrBuild(ctx, b)
	if err != nil {
		return bot.Result{}, err
	}
	defer release()

	st := agent.Run(ctx, question)

	outcome := bot.OutcomeRows
	switch {
	case st.Failed:
		outcome = bot.OutcomeSQLFailed
	case st.Partial:
		outcome = bot.OutcomePartial
	}
	results := st.Results
	if results == nil {
		results = []map[string]any{}
	}
	return bot.Result{Answer: results, Sources: []string{}, Outcome: outcome}, nil
}

// Invalidate drops the cached agent for botID.
func (p *Pipeline) Invalidate(botID string) bool {
	return p.cache.Invalidate(botID)
}
