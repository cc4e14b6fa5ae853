// Package cache keeps a Redis snapshot of the last known-good contest state.
// The coordinator falls back to this snapshot when the persistence gateway is
// unreachable on a fresh start, instead of resetting to hard defaults every
// time the process restarts.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/reto-anonimo/apiserver/config"
	"github.com/reto-anonimo/apiserver/types"
)

const stateKey = "contest:state:snapshot"

// StateCache stores contest-state snapshots in Redis.
type StateCache struct {
	client *redis.Client
}

// NewStateCache connects to Redis and verifies the connection.
func NewStateCache(cfg config.RedisConfig) (*StateCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &StateCache{client: client}, nil
}

// Save overwrites the snapshot. A nil cache is a no-op; snapshot failures are
// logged and swallowed because the snapshot is an optimization, never the
// source of truth.
func (c *StateCache) Save(ctx context.Context, state types.ContestState) {
	if c == nil {
		return
	}
	data, err := json.Marshal(state)
	if err != nil {
		log.Printf("state cache: marshal snapshot: %v", err)
		return
	}
	if err := c.client.Set(ctx, stateKey, data, 0).Err(); err != nil {
		log.Printf("state cache: save snapshot: %v", err)
	}
}

// Load returns the snapshot, or nil when there is none or it is corrupt.
// Corrupt snapshots are discarded.
func (c *StateCache) Load(ctx context.Context) *types.ContestState {
	if c == nil {
		return nil
	}
	data, err := c.client.Get(ctx, stateKey).Bytes()
	if err != nil {
		return nil
	}
	var state types.ContestState
	if err := json.Unmarshal(data, &state); err != nil {
		_ = c.client.Del(ctx, stateKey).Err()
		return nil
	}
	return &state
}

// Close releases the Redis connection.
func (c *StateCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
