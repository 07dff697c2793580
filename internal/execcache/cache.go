package execcache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/execdef/internal/execution"
	"github.com/roach88/execdef/internal/ir"
	"github.com/roach88/execdef/internal/model"
)

// DefaultMaxEntries bounds the results a cache keeps.
const DefaultMaxEntries = 128

// Cache is an execution factory whose prepared executions share results.
//
// Thread-safety: Cache is safe for concurrent use.
type Cache struct {
	*execution.Factory

	max int

	executions singleflight.Group
	reads      singleflight.Group

	mu      sync.Mutex
	order   []string
	results map[string]*execution.Result
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxEntries bounds the number of cached results. Zero keeps
// everything.
//
// Default: DefaultMaxEntries
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		c.max = n
	}
}

// New creates a cache over a factory for workspace and backend. The
// factory options configure the wrapped execution.Factory.
func New(workspace string, backend execution.Backend, factoryOpts []execution.FactoryOption, opts ...Option) *Cache {
	c := &Cache{
		max:     DefaultMaxEntries,
		results: make(map[string]*execution.Result),
	}
	for _, opt := range opts {
		opt(c)
	}
	factoryOpts = append(append([]execution.FactoryOption{}, factoryOpts...), execution.WithOwner(c))
	c.Factory = execution.NewFactory(workspace, backend, factoryOpts...)
	return c
}

// ForDefinition implements execution.ExecutionFactory.
func (c *Cache) ForDefinition(def *model.Definition) execution.PreparedExecution {
	return c.wrap(c.Factory.ForDefinition(def))
}

// ForInsightByRef prepares a cached execution of a saved insight by
// reference.
func (c *Cache) ForInsightByRef(insight *model.Insight, filters ...model.Filter) (execution.PreparedExecution, error) {
	p, err := c.Factory.ForInsightByRef(insight, filters...)
	if err != nil {
		return nil, err
	}
	return c.wrap(p), nil
}

// Prepare turns a preparation into a cached prepared execution.
func (c *Cache) Prepare(ctx context.Context, prep model.Preparation) (execution.PreparedExecution, error) {
	p, err := c.Factory.Prepare(ctx, prep)
	if err != nil {
		return nil, err
	}
	return c.wrap(p), nil
}

func (c *Cache) wrap(p execution.PreparedExecution) execution.PreparedExecution {
	if ce, ok := p.(*cachedExecution); ok {
		return ce
	}
	return &cachedExecution{PreparedExecution: p, cache: c}
}

// Len returns the number of cached results.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}

// Purge drops every cached result.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = nil
	c.results = make(map[string]*execution.Result)
}

// ReadWindow reads a window of r. Concurrent reads of the same window of
// the same result share one read.
func (c *Cache) ReadWindow(ctx context.Context, r *execution.Result, offset, limit []int) (*execution.DataView, error) {
	key := ir.WindowKey(r.Fingerprint(), offset, limit)
	v, err, _ := c.reads.Do(key, func() (any, error) {
		return r.ReadWindow(ctx, offset, limit)
	})
	if err != nil {
		return nil, err
	}
	return v.(*execution.DataView), nil
}

// execute returns the cached result for key or runs fn once for all
// concurrent callers. The first caller's context governs the shared run.
func (c *Cache) execute(ctx context.Context, key string, fn func(ctx context.Context) (*execution.Result, error)) (*execution.Result, error) {
	if r, ok := c.lookup(key); ok {
		lookupsTotal.WithLabelValues(outcomeHit).Inc()
		slog.Debug("execution cache hit", "execution_key", key)
		return r, nil
	}

	v, err, shared := c.executions.Do(key, func() (any, error) {
		if r, ok := c.lookup(key); ok {
			return r, nil
		}
		r, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.store(key, r)
		return r, nil
	})
	if shared {
		lookupsTotal.WithLabelValues(outcomeShared).Inc()
	} else {
		lookupsTotal.WithLabelValues(outcomeMiss).Inc()
	}
	if err != nil {
		return nil, err
	}
	r, ok := v.(*execution.Result)
	if !ok {
		return nil, fmt.Errorf("execution cache: unexpected value %T", v)
	}
	return r, nil
}

func (c *Cache) lookup(key string) (*execution.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.results[key]
	return r, ok
}

func (c *Cache) store(key string, r *execution.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.results[key]; !ok {
		c.order = append(c.order, key)
	}
	c.results[key] = r
	for c.max > 0 && len(c.order) > c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.results, oldest)
		evictionsTotal.Inc()
		slog.Debug("execution cache eviction", "execution_key", oldest)
	}
}

// cachedExecution routes Execute through the cache. Everything else is
// served by the wrapped prepared execution, whose transforms come back
// through Cache.ForDefinition.
type cachedExecution struct {
	execution.PreparedExecution
	cache *Cache
}

// Execute returns the shared result of this definition.
func (e *cachedExecution) Execute(ctx context.Context) (*execution.Result, error) {
	key := ir.ExecutionKey(e.Definition().Workspace(), e.Fingerprint())
	return e.cache.execute(ctx, key, e.PreparedExecution.Execute)
}
