package resolver

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/teragrab/teragrab/utils"
)

// Cache remembers recent resolutions by share key. Direct URLs are signed
// and time-limited upstream, so entries carry a TTL well below the signed
// lifetime. Redis is preferred when available; otherwise an in-process
// map serves a single instance. A nil *Cache never hits.
type Cache struct {
	ttl time.Duration
	rdb *redis.Client

	mu  sync.Mutex
	mem map[string]memEntry
}

type memEntry struct {
	link      ResolvedLink
	expiresAt time.Time
}

// NewCache builds a cache with the given TTL. rdb may be nil.
func NewCache(ttl time.Duration, rdb *redis.Client) *Cache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Cache{
		ttl: ttl,
		rdb: rdb,
		mem: make(map[string]memEntry),
	}
}

// Get returns the cached resolution for a share key, if still fresh.
func (c *Cache) Get(ctx context.Context, key string) (*ResolvedLink, bool) {
	if c == nil {
		return nil, false
	}

	if c.rdb != nil {
		rctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		b, err := c.rdb.Get(rctx, "resolve:"+key).Bytes()
		if err != nil {
			return nil, false
		}
		var link ResolvedLink
		if err := json.Unmarshal(b, &link); err != nil {
			return nil, false
		}
		return &link, true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.mem[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.mem, key)
		return nil, false
	}
	link := entry.link
	return &link, true
}

// Set stores a resolution. Failures are logged and swallowed; caching is
// best-effort.
func (c *Cache) Set(ctx context.Context, key string, link *ResolvedLink) {
	if c == nil || link == nil {
		return
	}

	if c.rdb != nil {
		b, err := json.Marshal(link)
		if err != nil {
			return
		}
		rctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := c.rdb.Set(rctx, "resolve:"+key, b, c.ttl).Err(); err != nil {
			utils.Sugar.Warnf("resolution cache set failed key=%s err=%v", key, err)
		}
		return
	}

	c.mu.Lock()
	c.mem[key] = memEntry{link: *link, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}
