package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/steveyegge/taskgate/internal/config"
	"github.com/steveyegge/taskgate/internal/gates"
	"github.com/steveyegge/taskgate/internal/pipeline"
)

// ensureStore opens storage for commands annotated no-store that only need
// it on some paths
func ensureStore(ctx context.Context) error {
	if store != nil {
		return nil
	}
	var err error
	store, err = openStore(ctx)
	return err
}

// buildPipeline assembles a pipeline over st from the loaded configuration.
// The returned cleanup releases the tracker connection.
func buildPipeline(ctx context.Context, st pipeline.Store) (*pipeline.Pipeline, func(), error) {
	var policy *gates.ContentPolicy
	if pipeCfg.PolicyFile != "" {
		var err error
		policy, err = config.LoadPolicy(pipeCfg.PolicyFile)
		if err != nil {
			return nil, nil, err
		}
	}

	tracker, closeTracker, err := newTracker(ctx, pipeCfg)
	if err != nil {
		return nil, nil, err
	}

	p, err := pipeline.New(pipeCfg.PipelineOptions(st, tracker, policy, logger))
	if err != nil {
		closeTracker()
		return nil, nil, err
	}
	return p, closeTracker, nil
}

// newTracker returns the Redis tracker when TASKGATE_REDIS_ADDR is set and
// the in-process tracker otherwise
func newTracker(ctx context.Context, cfg config.PipelineConfig) (pipeline.FailureTracker, func(), error) {
	if cfg.RedisAddr == "" {
		return pipeline.NewMemoryFailureTracker(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	tracker, err := pipeline.NewRedisFailureTracker(client, pipeline.RedisTrackerOptions{
		Retention: cfg.RedisRetention,
	})
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Warn("failed to close redis client", "error", err)
		}
	}
	return tracker, closeFn, nil
}
