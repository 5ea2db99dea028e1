package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix namespaces tracker keys in a shared Redis
const DefaultRedisKeyPrefix = "taskgate:failures:"

// RedisFailureTracker shares failure streaks across service instances. Each
// agent is one hash holding "count" and "last_hash".
type RedisFailureTracker struct {
	client redis.UniversalClient
	prefix string
	// retention bounds how long an idle streak lives in Redis. Zero keeps
	// entries until a success or an explicit reset.
	retention time.Duration
}

// RedisTrackerOptions configures a RedisFailureTracker
type RedisTrackerOptions struct {
	KeyPrefix string
	Retention time.Duration
}

// NewRedisFailureTracker wraps an existing client
func NewRedisFailureTracker(client redis.UniversalClient, opts RedisTrackerOptions) (*RedisFailureTracker, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if opts.Retention < 0 {
		return nil, fmt.Errorf("retention cannot be negative (got %v)", opts.Retention)
	}
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisFailureTracker{client: client, prefix: prefix, retention: opts.Retention}, nil
}

func (t *RedisFailureTracker) key(agentID string) string {
	return t.prefix + agentID
}

// Failures implements FailureTracker
func (t *RedisFailureTracker) Failures(ctx context.Context, agentID string) (int, error) {
	raw, err := t.client.HGet(ctx, t.key(agentID), "count").Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read failure count for %s: %w", agentID, err)
	}
	count, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("corrupt failure count for %s: %w", agentID, err)
	}
	return count, nil
}

// RecordFailure implements FailureTracker
func (t *RedisFailureTracker) RecordFailure(ctx context.Context, agentID, payloadHash string) (int, error) {
	key := t.key(agentID)

	var incr *redis.IntCmd
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.HIncrBy(ctx, key, "count", 1)
		pipe.HSet(ctx, key, "last_hash", payloadHash)
		if t.retention > 0 {
			pipe.Expire(ctx, key, t.retention)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to record failure for %s: %w", agentID, err)
	}
	return int(incr.Val()), nil
}

// Reset implements FailureTracker
func (t *RedisFailureTracker) Reset(ctx context.Context, agentID string) error {
	if err := t.client.Del(ctx, t.key(agentID)).Err(); err != nil {
		return fmt.Errorf("failed to reset failures for %s: %w", agentID, err)
	}
	return nil
}

// LastPayloadHash returns the hash recorded with the agent's latest failure
func (t *RedisFailureTracker) LastPayloadHash(ctx context.Context, agentID string) (string, error) {
	hash, err := t.client.HGet(ctx, t.key(agentID), "last_hash").Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read last hash for %s: %w", agentID, err)
	}
	return hash, nil
}
