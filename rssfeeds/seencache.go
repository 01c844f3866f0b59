package rssfeeds

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	seenKey = "localwire:seen_urls"
	seenTTL = 7 * 24 * time.Hour
)

// SeenCache is an optional Redis-backed set of normalized URLs already
// harvested, consulted before the database existence check so repeat runs
// skip known links cheaply. A nil cache is a no-op; if Redis is unreachable
// at construction the cache is disabled with a warning.
type SeenCache struct {
	client *redis.Client
}

// NewSeenCache connects to Redis and verifies connectivity. Returns nil
// (cache disabled) when addr is empty or the ping fails.
func NewSeenCache(addr, password string) *SeenCache {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("seencache: redis unreachable at %s: %v (cache disabled)", addr, err)
		return nil
	}
	return &SeenCache{client: client}
}

// Contains reports whether the normalized URL was seen before. Errors count
// as not seen so a flaky cache never drops candidates.
func (c *SeenCache) Contains(ctx context.Context, normalizedURL string) bool {
	if c == nil {
		return false
	}
	ok, err := c.client.SIsMember(ctx, seenKey, normalizedURL).Result()
	if err != nil {
		return false
	}
	return ok
}

// Add records a normalized URL and refreshes the set TTL.
func (c *SeenCache) Add(ctx context.Context, normalizedURL string) {
	if c == nil {
		return
	}
	if err := c.client.SAdd(ctx, seenKey, normalizedURL).Err(); err != nil {
		log.Printf("seencache: add failed: %v", err)
		return
	}
	c.client.Expire(ctx, seenKey, seenTTL)
}

func (c *SeenCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
