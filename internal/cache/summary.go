package cache

import (
	"context"
	"strings"
	"time"

	"buestanflow/internal/core"
	"buestanflow/internal/services"
)

// Builder derives a summary, typically services.SummaryService.
type Builder interface {
	Build(ctx context.Context, period core.Period, opts services.SummaryOptions) (core.Summary, error)
}

// SummaryCache memoizes complete summaries per period and options.
// Summaries with failed widgets are never stored.
type SummaryCache struct {
	lru     *LRUCache[core.Summary]
	builder Builder
}

func NewSummaryCache(builder Builder, maxSize int, ttl time.Duration) *SummaryCache {
	return &SummaryCache{
		lru:     NewLRUCache[core.Summary](maxSize, ttl),
		builder: builder,
	}
}

// Build returns the cached summary when present, otherwise builds and
// stores it. The boolean reports a cache hit.
func (c *SummaryCache) Build(ctx context.Context, period core.Period, opts services.SummaryOptions) (core.Summary, bool, error) {
	key := SummaryKey(period, opts)
	if s, ok := c.lru.Get(key); ok {
		return s, true, nil
	}
	s, err := c.builder.Build(ctx, period, opts)
	if err != nil {
		return core.Summary{}, false, err
	}
	if len(s.Errors) == 0 {
		c.lru.Set(key, s)
	}
	return s, false, nil
}

// Invalidate drops every cached summary of period.
func (c *SummaryCache) Invalidate(period core.Period) int {
	prefix := period.String() + "|"
	return c.lru.DeleteFunc(func(key string) bool {
		return strings.HasPrefix(key, prefix)
	})
}

func (c *SummaryCache) Purge() { c.lru.Purge() }

func (c *SummaryCache) Size() int { return c.lru.Size() }

// CleanExpired lets a Manager sweep the cache.
func (c *SummaryCache) CleanExpired() int { return c.lru.CleanExpired() }

// SummaryKey identifies a summary by period, selector and alert order.
// Empty options map to the same key as their defaults.
func SummaryKey(period core.Period, opts services.SummaryOptions) string {
	sel := opts.Selector
	if sel == "" {
		sel = services.SelectAll
	}
	order := opts.AlertOrder
	if order == "" {
		order = services.OrderSource
	}
	return period.String() + "|" + string(sel) + "|" + string(order)
}
