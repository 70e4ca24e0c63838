package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTileBackend is the primary (networked) tile tier.
type RedisTileBackend struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTileBackend(client *redis.Client, ttl time.Duration) *RedisTileBackend {
	return &RedisTileBackend{client: client, ttl: ttl}
}

func (r *RedisTileBackend) Store(ctx context.Context, tileID string, data []byte) error {
	if err := r.client.Set(ctx, tileKey(tileID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("storing tile: %w", err)
	}
	return nil
}

func (r *RedisTileBackend) Fetch(ctx context.Context, tileID string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, tileKey(tileID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("getting tile: %w", err)
	}
	return val, true, nil
}

// Existing issues all EXISTS checks in a single pipelined round trip.
func (r *RedisTileBackend) Existing(ctx context.Context, tileIDs []string) ([]string, error) {
	if len(tileIDs) == 0 {
		return nil, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(tileIDs))
	for i, id := range tileIDs {
		cmds[i] = pipe.Exists(ctx, tileKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("checking tiles: %w", err)
	}

	existing := make([]string, 0, len(tileIDs))
	for i, cmd := range cmds {
		if cmd.Val() > 0 {
			existing = append(existing, tileIDs[i])
		}
	}
	return existing, nil
}

func (r *RedisTileBackend) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func tileKey(tileID string) string {
	return fmt.Sprintf("routesight:tile:%s", tileID)
}
