package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/signalsfoundry/astroengine/internal/clock"
	"github.com/signalsfoundry/astroengine/internal/logging"
	"github.com/signalsfoundry/astroengine/internal/observability"
)

// entry is a cached value plus its creation instant. Staleness is judged
// against the injected clock so TTL behaviour is testable; the LRU's own
// wall-clock TTL is a backstop against unbounded retention.
type entry struct {
	value     []byte
	createdAt time.Time
}

// Options configures a Cache. Zero values get defaults; Shared is optional.
type Options struct {
	LocalSize int           // bounded LRU capacity, default 1024
	TTL       time.Duration // entry lifetime, default 15m
	Shared    SharedStore   // distributed layer, nil for local-only
	Clock     clock.Clock   // default wall clock
	Log       logging.Logger
	Metrics   *observability.ScanCollector

	// PollAttempts and PollInterval bound how long a caller waits on
	// another process's in-flight computation before computing on its own.
	PollAttempts int
	PollInterval time.Duration
}

// Cache is the layered relationship cache: a fast in-process bounded LRU in
// front of an optional shared store, with single-flight de-duplication of
// concurrent identical computations. Construct one at application start and
// pass it by reference; Clear exists for test isolation.
type Cache struct {
	local   *expirable.LRU[string, entry]
	shared  SharedStore
	clk     clock.Clock
	ttl     time.Duration
	log     logging.Logger
	metrics *observability.ScanCollector
	group   singleflight.Group

	pollAttempts int
	pollInterval time.Duration
}

// New builds a cache from options.
func New(opts Options) *Cache {
	size := opts.LocalSize
	if size <= 0 {
		size = 1024
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	log := opts.Log
	if log == nil {
		log = logging.Noop()
	}
	attempts := opts.PollAttempts
	if attempts <= 0 {
		attempts = 50
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	return &Cache{
		local:        expirable.NewLRU[string, entry](size, nil, ttl),
		shared:       opts.Shared,
		clk:          clk,
		ttl:          ttl,
		log:          log,
		metrics:      opts.Metrics,
		pollAttempts: attempts,
		pollInterval: interval,
	}
}

// Clear drops the in-process layer. Shared entries expire by their own TTL.
func (c *Cache) Clear() {
	c.local.Purge()
}

// GetOrCompute returns the cached value for key, computing it at most once
// per process for concurrent identical callers. Lookup order: local layer,
// shared layer (hits promoted locally), then compute. Shared-layer outages
// degrade silently to local-only; they are logged and counted, never
// surfaced to the caller.
func (c *Cache) GetOrCompute(ctx context.Context, key string, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	if v, ok := c.lookupLocal(key); ok {
		c.metrics.CacheOp("local", "hit")
		return v, nil
	}
	c.metrics.CacheOp("local", "miss")

	if v, ok := c.lookupShared(ctx, key); ok {
		c.store(ctx, key, v, false)
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Another local caller may have populated the entry while this one
		// queued behind the flight.
		if v, ok := c.lookupLocal(key); ok {
			return v, nil
		}
		return c.computeWithClaim(ctx, key, compute)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// computeWithClaim runs the cross-process arm of single-flight: claim the
// key in the shared store, and when another process holds the claim, poll
// for its result a bounded number of times before computing independently.
func (c *Cache) computeWithClaim(ctx context.Context, key string, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	claimed := c.claim(ctx, key)
	if !claimed {
		if v, ok := c.pollForResult(ctx, key); ok {
			return v, nil
		}
		// The claim holder is slow or gone; computing twice beats blocking
		// forever.
		c.metrics.CacheOp("compute", "fallback")
	}

	c.metrics.CacheOp("compute", "run")
	v, err := compute(ctx)
	if err != nil {
		if claimed {
			c.releaseClaim(ctx, key)
		}
		return nil, err
	}
	c.store(ctx, key, v, true)
	if claimed {
		c.releaseClaim(ctx, key)
	}
	return v, nil
}

func (c *Cache) lookupLocal(key string) ([]byte, bool) {
	e, ok := c.local.Get(key)
	if !ok {
		return nil, false
	}
	if c.clk.Now().Sub(e.createdAt) > c.ttl {
		c.local.Remove(key)
		return nil, false
	}
	return e.value, true
}

func (c *Cache) lookupShared(ctx context.Context, key string) ([]byte, bool) {
	if c.shared == nil {
		return nil, false
	}
	v, err := c.shared.Get(ctx, key)
	if err != nil {
		if err != ErrSharedMiss {
			c.metrics.CacheOp("shared", "error")
			c.log.Warn(ctx, "shared cache read failed; continuing local-only",
				logging.String("error", err.Error()))
		} else {
			c.metrics.CacheOp("shared", "miss")
		}
		return nil, false
	}
	c.metrics.CacheOp("shared", "hit")
	return v, true
}

// store writes the local layer always and the shared layer best-effort.
func (c *Cache) store(ctx context.Context, key string, value []byte, writeShared bool) {
	c.local.Add(key, entry{value: value, createdAt: c.clk.Now()})
	if !writeShared || c.shared == nil {
		return
	}
	if err := c.shared.Set(ctx, key, value, c.ttl); err != nil {
		c.metrics.CacheOp("shared", "error")
		c.log.Warn(ctx, "shared cache write failed; entry is local-only",
			logging.String("error", err.Error()))
	}
}

func (c *Cache) claim(ctx context.Context, key string) bool {
	if c.shared == nil {
		return true
	}
	ok, err := c.shared.SetNX(ctx, "inflight:"+key, []byte("1"), c.claimTTL())
	if err != nil {
		// A broken shared store cannot arbitrate; proceed as claim holder.
		c.metrics.CacheOp("shared", "error")
		return true
	}
	return ok
}

func (c *Cache) releaseClaim(ctx context.Context, key string) {
	if c.shared == nil {
		return
	}
	if err := c.shared.Del(ctx, "inflight:"+key); err != nil {
		c.metrics.CacheOp("shared", "error")
	}
}

// claimTTL keeps abandoned claims from wedging a key forever.
func (c *Cache) claimTTL() time.Duration {
	d := time.Duration(c.pollAttempts) * c.pollInterval * 2
	if d < time.Second {
		d = time.Second
	}
	return d
}

// pollForResult waits for another process's computation by re-checking the
// layers a bounded number of times. It never blocks past the attempt
// budget or the context deadline.
func (c *Cache) pollForResult(ctx context.Context, key string) ([]byte, bool) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for i := 0; i < c.pollAttempts; i++ {
		select {
		case <-ctx.Done():
			return nil, false
		case <-ticker.C:
		}
		if v, ok := c.lookupLocal(key); ok {
			return v, true
		}
		if v, ok := c.lookupShared(ctx, key); ok {
			c.store(ctx, key, v, false)
			return v, true
		}
	}
	return nil, false
}
