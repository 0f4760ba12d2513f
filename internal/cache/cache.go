// Package cache is a Redis-backed read cache whose keys are namespaced by
// workspace id, so dropping every cached read for one tenant is a single bulk
// operation rather than an enumerated list.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	defaultTimeout = 5 * time.Second
	scanBatch      = 200
)

// Config captures the settings for establishing a Redis connection.
type Config struct {
	Addr    string
	DB      int
	Timeout time.Duration
}

// Connect initialises a Redis client and validates connectivity with a ping.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}

// Cache stores serialized reads under ws:<workspace_id>:<key>.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func New(client *redis.Client, ttl time.Duration, log zerolog.Logger) *Cache {
	return &Cache{client: client, ttl: ttl, log: log}
}

// Key builds the namespaced cache key for a workspace-scoped read.
func Key(workspaceID uuid.UUID, name string) string {
	return fmt.Sprintf("ws:%s:%s", workspaceID, name)
}

func (c *Cache) Get(ctx context.Context, workspaceID uuid.UUID, name string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, Key(workspaceID, name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return val, true, nil
}

func (c *Cache) Set(ctx context.Context, workspaceID uuid.UUID, name string, value []byte) error {
	return c.client.Set(ctx, Key(workspaceID, name), value, c.ttl).Err()
}

// InvalidateWorkspace deletes every cached read for the workspace in one
// SCAN+DEL pass and returns how many keys were dropped.
func (c *Cache) InvalidateWorkspace(ctx context.Context, workspaceID uuid.UUID) (int64, error) {
	pattern := fmt.Sprintf("ws:%s:*", workspaceID)

	var dropped int64
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return dropped, fmt.Errorf("cache scan: %w", err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return dropped, fmt.Errorf("cache del: %w", err)
			}
			dropped += n
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	c.log.Debug().
		Str("workspace_id", workspaceID.String()).
		Int64("keys", dropped).
		Msg("workspace cache invalidated")
	return dropped, nil
}
