package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const recentKey = "routesight:sessions:recent"

// historyCap bounds the recent-sessions list.
const historyCap = 50

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Set writes the session record. Only the first write of an id enters the
// history list; snapshot updates keep the session's creation-order position,
// so history stays most-recently-created-first.
func (r *RedisStore) Set(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshalling session: %w", err)
	}
	key := formatKey(session.ID)

	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("checking session: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, data, r.ttl)
	if exists == 0 {
		pipe.LPush(ctx, recentKey, session.ID)
		pipe.LTrim(ctx, recentKey, 0, historyCap-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	val, err := r.client.Get(ctx, formatKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	var session Session
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return nil, fmt.Errorf("unmarshalling session: %w", err)
	}
	return &session, nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, formatKey(sessionID))
	pipe.LRem(ctx, recentKey, 0, sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Recent lists stored sessions most-recent-first. Ids whose record already
// expired are skipped.
func (r *RedisStore) Recent(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 || limit > historyCap {
		limit = historyCap
	}
	ids, err := r.client.LRange(ctx, recentKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("listing recent sessions: %w", err)
	}

	summaries := make([]Summary, 0, len(ids))
	for _, id := range ids {
		session, err := r.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, Summary{
			ID:          session.ID,
			CreatedAt:   session.CreatedAt,
			Status:      session.Status,
			Origin:      session.Origin,
			Destination: session.Destination,
			TilesTotal:  len(session.Tiles),
		})
	}
	return summaries, nil
}

func formatKey(sessionID string) string {
	return fmt.Sprintf("routesight:session:%s", sessionID)
}
