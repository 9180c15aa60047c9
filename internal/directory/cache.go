package directory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// upper bound for a shared fetch, which no single caller can cancel
const refreshTimeout = 30 * time.Second

// Fetcher is implemented by Client.
type Fetcher interface {
	Fetch(ctx context.Context) ([]Server, error)
}

// Cache keeps the last fetched relay list for ttl. Concurrent refreshes
// share a single upstream request.
type Cache struct {
	fetcher Fetcher
	ttl     time.Duration
	log     *slog.Logger
	now     func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	servers   []Server
	fetchedAt time.Time
}

func NewCache(fetcher Fetcher, ttl time.Duration, log *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &Cache{fetcher: fetcher, ttl: ttl, log: log, now: time.Now}
}

// Servers returns the cached list, fetching it when missing or stale.
func (c *Cache) Servers(ctx context.Context) ([]Server, error) {
	c.mu.RLock()
	fresh := c.servers != nil && c.now().Sub(c.fetchedAt) < c.ttl
	servers := c.servers
	c.mu.RUnlock()

	if fresh {
		return cloneServers(servers), nil
	}
	return c.Refresh(ctx)
}

// Refresh forces a fetch. On failure the previous list is kept.
// A caller whose ctx ends returns early; the shared fetch keeps running for
// the other waiters.
func (c *Cache) Refresh(ctx context.Context) ([]Server, error) {
	ch := c.group.DoChan("servers", func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		servers, err := c.fetcher.Fetch(fetchCtx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.servers = servers
		c.fetchedAt = c.now()
		c.mu.Unlock()

		c.log.Info("relay directory refreshed", "servers", len(servers))
		return servers, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}

	if res.Err != nil {
		c.log.Error("failed to fetch steam servers", "error", res.Err)
		return nil, res.Err
	}
	if res.Shared {
		c.log.Debug("relay directory refresh shared")
	}

	return cloneServers(res.Val.([]Server)), nil
}

// CacheStatus describes what the cache currently holds.
type CacheStatus struct {
	Servers   int       `json:"servers"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`
	Fresh     bool      `json:"fresh"`
}

func (c *Cache) Status() CacheStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return CacheStatus{
		Servers:   len(c.servers),
		FetchedAt: c.fetchedAt,
		Fresh:     c.servers != nil && c.now().Sub(c.fetchedAt) < c.ttl,
	}
}

func cloneServers(in []Server) []Server {
	out := make([]Server, len(in))
	copy(out, in)
	return out
}
