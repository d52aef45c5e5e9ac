package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores rendered scrape documents in Redis so identical
// searches submitted within the TTL reuse the document instead of
// paying for another proxy render.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis at the given URL (redis://host:port) and
// verifies the connection.
func New(redisURL string, ttl time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache: invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: redis ping failed: %w", err)
	}

	return &Cache{client: client, ttl: ttl}, nil
}

// Get returns the cached document for the query, if present.
func (c *Cache) Get(ctx context.Context, query string) (string, bool) {
	html, err := c.client.Get(ctx, buildKey(query)).Result()
	if err != nil {
		return "", false
	}
	return html, true
}

// Set stores the document with the configured TTL. Failures are logged
// and swallowed; the cache is an optimization, not a dependency.
func (c *Cache) Set(ctx context.Context, query, html string) {
	if err := c.client.Set(ctx, buildKey(query), html, c.ttl).Err(); err != nil {
		log.Printf("[cache] set failed: %v", err)
	}
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func buildKey(query string) string {
	hash := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return fmt.Sprintf("leadgen:scrape:%x", hash[:8])
}
