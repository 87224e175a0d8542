package sqlagent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"

	"github.com/54b3r/plugmind-go/internal/bot"
	"github.com/54b3r/plugmind-go/internal/logging"
	"github.com/54b3r/plugmind-go/internal/provider"
	"github.com/54b3r/plugmind-go/internal/sqlconn"
)

// Builder compiles an Agent for b. It is called at most once per
// (bot ID, fingerprint) at a time, and not again while the result stays
// cached.
type Builder func(ctx context.Context, b *bot.Config) (*Agent, error)

// NewBuilder returns the production Builder: it opens a read-only
// connection with sqlconn and binds it to completer. SQL is generated at
// temperature 0 with the bot's model and token limit.
func NewBuilder(completer provider.Completer) Builder {
	return func(ctx context.Context, b *bot.Config) (*Agent, error) {
		conn, err := sqlconn.Open(ctx, b.Database)
		if err != nil {
			return nil, err
		}
		params := provider.Params{Temperature: 0, MaxTokens: b.MaxTokens, Model: b.ModelName}
		return NewAgent(b.ID, b.Fingerprint(), conn, b.AllowedTables, completer, params), nil
	}
}

// ErrCacheClosed is returned by GetOrBuild after Close.
var ErrCacheClosed = errors.New("sqlagent: agent cache closed")

// entry is one cached agent. refs and evicted are guarded by Cache.mu.
// The agent is closed once it is evicted and no query holds it.
type entry struct {
	agent       *Agent
	fingerprint string
	refs        int
	evicted     bool
}

// cacheMetrics holds the Prometheus collectors owned by a Cache.
type cacheMetrics struct {
	// builds counts completed builds partitioned by result: "ok" or "error".
	builds *prometheus.CounterVec
	// hits counts lookups served by an already-built entry.
	hits prometheus.Counter
	// entries is the number of cached agents.
	entries prometheus.Gauge
}

func newCacheMetrics(reg prometheus.Registerer) *cacheMetrics {
	factory := promauto.With(reg)
	return &cacheMetrics{
		builds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plugmind",
			Subsystem: "agent_cache",
			Name:      "builds_total",
			Help:      "Total number of searchbot agent builds, partitioned by result.",
		}, []string{"result"}),
		hits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "plugmind",
			Subsystem: "agent_cache",
			Name:      "hits_total",
			Help:      "Total number of agent lookups served from the cache.",
		}),
		entries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "plugmind",
			Subsystem: "agent_cache",
			Name:      "entries",
			Help:      "Number of compiled searchbot agents currently cached.",
		}),
	}
}

// Cache memoizes compiled agents per bot ID.
//
// Concurrent first lookups for one (bot, fingerprint) pair collapse into a
// single build through a singleflight group. The mutex only guards the map
// of finished agents, so a lookup for one bot never waits on another bot's
// build. If the allow-list or the connection descriptor changes, the next
// lookup builds a fresh agent and replaces the cached one.
//
// Every agent handed out is leased: GetOrBuild returns a release func the
// caller runs when its query is done. An evicted agent is closed only after
// its last lease is released, so a query never loses its connection midway.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
	flight  singleflight.Group
	build   Builder
	metrics *cacheMetrics
}

// NewCache returns an empty cache. reg may be nil to skip metric
// registration.
func NewCache(build Builder, reg prometheus.Registerer) *Cache {
	return &Cache{
		entries: make(map[string]*entry),
		build:   build,
		metrics: newCacheMetrics(reg),
	}
}

// GetOrBuild returns the agent for b, building it if needed, together with
// a release func that must be called once the caller is done with the
// agent. A failed build is not cached; the next call retries.
func (c *Cache) GetOrBuild(ctx context.Context, b *bot.Config) (*Agent, func(), error) {
	fp := b.Fingerprint()
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, nil, ErrCacheClosed
		}
		if e, ok := c.entries[b.ID]; ok && e.fingerprint == fp {
			e.refs++
			c.mu.Unlock()
			c.metrics.hits.Inc()
			return e.agent, c.releaser(e), nil
		}
		c.mu.Unlock()

		var built bool
		ch := c.flight.DoChan(b.ID+"\x00"+fp, func() (any, error) {
			return c.install(ctx, b, fp, &built)
		})
		var res singleflight.Result
		select {
		case res = <-ch:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
		if res.Err != nil {
			return nil, nil, res.Err
		}

		e := res.Val.(*entry)
		c.mu.Lock()
		if e.evicted {
			// Replaced or invalidated before this caller could lease it.
			c.mu.Unlock()
			continue
		}
		e.refs++
		c.mu.Unlock()
		if !built {
			c.metrics.hits.Inc()
		}
		return e.agent, c.releaser(e), nil
	}
}

// install builds the agent for (b, fp) and stores it, evicting any entry
// for another fingerprint. It runs inside the singleflight group.
func (c *Cache) install(ctx context.Context, b *bot.Config, fp string, built *bool) (*entry, error) {
	c.mu.Lock()
	if e, ok := c.entries[b.ID]; ok && e.fingerprint == fp {
		c.mu.Unlock()
		return e, nil
	}
	c.mu.Unlock()

	*built = true
	// The build outlives the first caller's cancellation so that callers
	// sharing this flight are not failed by it.
	agent, err := c.build(context.WithoutCancel(ctx), b)
	if err != nil {
		c.metrics.builds.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("sqlagent: build agent for bot %q: %w", b.ID, err)
	}
	c.metrics.builds.WithLabelValues("ok").Inc()

	e := &entry{agent: agent, fingerprint: fp}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = agent.Close()
		return nil, ErrCacheClosed
	}
	var stale *Agent
	if old, ok := c.entries[b.ID]; ok {
		logging.FromContext(ctx).Info("sqlagent: configuration changed, replacing agent")
		stale = c.evictLocked(b.ID, old)
	}
	c.entries[b.ID] = e
	c.metrics.entries.Set(float64(len(c.entries)))
	c.mu.Unlock()

	if stale != nil {
		_ = stale.Close()
	}
	logging.FromContext(ctx).Info("sqlagent: agent built", "tables", len(b.AllowedTables))
	return e, nil
}

// releaser returns the func that ends one lease on e. Calling it more than
// once has no further effect.
func (c *Cache) releaser(e *entry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			e.refs--
			idle := e.evicted && e.refs == 0
			c.mu.Unlock()
			if idle {
				_ = e.agent.Close()
			}
		})
	}
}

// Invalidate drops the cached agent for botID. The next lookup rebuilds.
// Queries already holding the old agent finish on it; its connection is
// closed when the last of them releases it.
func (c *Cache) Invalidate(botID string) bool {
	c.mu.Lock()
	e, ok := c.entries[botID]
	var stale *Agent
	if ok {
		stale = c.evictLocked(botID, e)
	}
	c.mu.Unlock()
	if stale != nil {
		_ = stale.Close()
	}
	return ok
}

// Len reports the number of cached agents.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close empties the cache. Idle agents are closed now and leased ones when
// released. Builds still in flight close their agent on completion.
func (c *Cache) Close() {
	c.mu.Lock()
	c.closed = true
	var idle []*Agent
	for id, e := range c.entries {
		if a := c.evictLocked(id, e); a != nil {
			idle = append(idle, a)
		}
	}
	c.mu.Unlock()

	for _, a := range idle {
		_ = a.Close()
	}
}

// evictLocked removes e from the map and marks it evicted. It returns the
// agent when nothing holds it, for the caller to close outside the lock.
// c.mu must be held.
func (c *Cache) evictLocked(botID string, e *entry) *Agent {
	delete(c.entries, botID)
	c.metrics.entries.Set(float64(len(c.entries)))
	e.evicted = true
	if e.refs == 0 {
		return e.agent
	}
	return nil
}
