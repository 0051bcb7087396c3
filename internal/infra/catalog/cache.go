package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"mcpbridge/internal/domain"
	"mcpbridge/internal/infra/telemetry"
)

const refreshKey = "catalog"

// Source fetches the authoritative tool catalog.
type Source interface {
	FetchCatalog(ctx context.Context) (domain.ToolCatalog, error)
}

type Options struct {
	TTL            time.Duration
	StaleOnError   bool
	RefreshTimeout time.Duration
	Metrics        domain.Metrics
	Health         *telemetry.HealthTracker
	Logger         *zap.Logger
	Now            func() time.Time
}

// Cache serves the tool catalog from memory for TTL and refetches on demand.
// Concurrent readers that find the entry expired share one backend fetch.
type Cache struct {
	source         Source
	ttl            time.Duration
	staleOnError   bool
	refreshTimeout time.Duration
	metrics        domain.Metrics
	health         *telemetry.HealthCheck
	logger         *zap.Logger
	now            func() time.Time

	mu      sync.RWMutex
	current domain.ToolCatalog
	loaded  bool
	expired bool

	group singleflight.Group
}

func NewCache(source Source, opts Options) *Cache {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = time.Duration(domain.DefaultCatalogTTLSeconds) * time.Second
	}
	refreshTimeout := opts.RefreshTimeout
	if refreshTimeout <= 0 {
		refreshTimeout = time.Duration(domain.DefaultBackendTimeoutSeconds) * time.Second
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Cache{
		source:         source,
		ttl:            ttl,
		staleOnError:   opts.StaleOnError,
		refreshTimeout: refreshTimeout,
		metrics:        metrics,
		health:         opts.Health.Register("catalog", 0),
		logger:         logger.Named("catalog"),
		now:            now,
	}
}

// Get returns the cached catalog while it is younger than the TTL and
// refreshes it otherwise.
//
// When a refresh fails and an earlier catalog exists, Get returns that
// catalog together with an error matching domain.ErrStaleCatalog, unless
// the cache was built with StaleOnError disabled. A failure before any
// successful fetch always returns the zero catalog and the fetch error.
func (c *Cache) Get(ctx context.Context) (domain.ToolCatalog, error) {
	if cached, ok := c.fresh(); ok {
		c.metrics.ObserveCatalogLookup(domain.CatalogLookupHit)
		return cached, nil
	}
	return c.refresh(ctx, false)
}

// Refresh fetches the catalog regardless of its age. Concurrent calls share
// the in-flight fetch.
func (c *Cache) Refresh(ctx context.Context) (domain.ToolCatalog, error) {
	return c.refresh(ctx, true)
}

// Snapshot returns the last successfully fetched catalog without I/O.
func (c *Cache) Snapshot() (domain.ToolCatalog, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current, c.loaded
}

// Invalidate forces the next Get to refetch. The previous catalog remains
// available as a stale fallback.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.expired = true
	c.mu.Unlock()
}

func (c *Cache) fresh() (domain.ToolCatalog, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded || c.expired {
		return domain.ToolCatalog{}, false
	}
	if c.current.Age(c.now()) >= c.ttl {
		return domain.ToolCatalog{}, false
	}
	return c.current, true
}

// refresh runs at most one fetch at a time. Unless forced, a flight that
// finds the entry already renewed by the previous flight serves it instead
// of fetching again.
func (c *Cache) refresh(ctx context.Context, force bool) (domain.ToolCatalog, error) {
	ch := c.group.DoChan(refreshKey, func() (any, error) {
		if !force {
			if cached, ok := c.fresh(); ok {
				return cached, nil
			}
		}
		// The fetch outlives any single caller so the others still get a result.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
		defer cancel()
		return c.fetch(fetchCtx)
	})

	select {
	case <-ctx.Done():
		return domain.ToolCatalog{}, ctx.Err()
	case res := <-ch:
		if res.Err == nil {
			c.metrics.ObserveCatalogLookup(domain.CatalogLookupRefreshed)
			return res.Val.(domain.ToolCatalog), nil
		}
		return c.fallback(res.Err)
	}
}

func (c *Cache) fetch(ctx context.Context) (domain.ToolCatalog, error) {
	start := c.now()
	catalog, err := c.source.FetchCatalog(ctx)
	c.metrics.ObserveCatalogRefresh(c.now().Sub(start), err)
	if err != nil {
		c.health.Fail(err)
		return domain.ToolCatalog{}, domain.Wrap(domain.CodeUnavailable, "catalog.refresh", err)
	}

	if catalog.Tools == nil {
		catalog.Tools = []domain.ToolDescriptor{}
	}
	catalog.FetchedAt = c.now()

	c.mu.Lock()
	c.current = catalog
	c.loaded = true
	c.expired = false
	c.mu.Unlock()

	c.health.Beat()
	c.metrics.SetCatalogTools(len(catalog.Tools))
	c.logger.Info("catalog refreshed",
		telemetry.EventField(telemetry.EventCatalogFetch),
		zap.Int("tools", len(catalog.Tools)),
		telemetry.DurationField(c.now().Sub(start)),
	)
	return catalog, nil
}

func (c *Cache) fallback(cause error) (domain.ToolCatalog, error) {
	const op = "catalog.get"

	c.mu.RLock()
	previous, loaded := c.current, c.loaded
	c.mu.RUnlock()

	if !loaded || !c.staleOnError {
		c.metrics.ObserveCatalogLookup(domain.CatalogLookupFailed)
		return domain.ToolCatalog{}, cause
	}

	c.metrics.ObserveCatalogLookup(domain.CatalogLookupStale)
	c.logger.Warn("serving stale catalog",
		telemetry.EventField(telemetry.EventCatalogStale),
		zap.Time("fetched_at", previous.FetchedAt),
		zap.Error(cause),
	)
	return previous, domain.E(domain.CodeUnavailable, op, "serving stale catalog",
		fmt.Errorf("%w: %w", domain.ErrStaleCatalog, cause))
}
