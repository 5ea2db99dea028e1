// Package pipeline runs every validation gate over a task payload and turns
// the merged findings into a single verdict. It owns the only cross-call
// state: the task-type cache and the per-agent failure tracker.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/steveyegge/taskgate/internal/gates"
	"github.com/steveyegge/taskgate/internal/types"
)

const (
	// DefaultMaxConsecutiveFailures is the lockout threshold per agent
	DefaultMaxConsecutiveFailures = 5
	// DefaultCacheTTL is how long a task-type lookup is reused
	DefaultCacheTTL = 10 * time.Second
	// DefaultNegativeCacheTTL is the effective lifetime of a cached "not found"
	DefaultNegativeCacheTTL = 2 * time.Second
	// DefaultCacheSize bounds the number of cached task types
	DefaultCacheSize = 1024
	// DefaultSchemaBaseURL prefixes the schema link returned to callers
	DefaultSchemaBaseURL = "/api/v1/task-types"

	// anonymousAgent keys the failure tracker when no agent id is supplied
	anonymousAgent = "anonymous"
)

// Store is the registry and audit log the pipeline reads and writes.
// storage.Storage satisfies it.
type Store interface {
	GetTaskTypeConfig(ctx context.Context, id string) (*types.TaskTypeConfig, error)
	InsertAuditRecord(ctx context.Context, rec *types.AuditRecord) error
}

// Config holds pipeline construction parameters. Only Store is required.
type Config struct {
	Store   Store
	Tracker FailureTracker // Optional: defaults to an in-memory tracker

	// Gates overrides the default gate set. Merge order follows slice order.
	Gates       []gates.Gate
	GateOptions gates.Options
	Parallel    bool // Evaluate gates concurrently

	MaxConsecutiveFailures int
	CacheTTL               time.Duration
	NegativeCacheTTL       time.Duration
	CacheSize              int
	SchemaBaseURL          string

	Now    func() time.Time
	Logger *slog.Logger
}

// Options are per-call settings
type Options struct {
	// DryRun marks the call as validation-only. Dry runs are still rate
	// limited, tracked and audited.
	DryRun  bool
	AgentID string
}

// Stats is a point-in-time snapshot of pipeline counters
type Stats struct {
	CachedTaskTypes int   `json:"cached_task_types"`
	Validations     int64 `json:"validations"`
	Passed          int64 `json:"passed"`
	Failed          int64 `json:"failed"`
	Flagged         int64 `json:"flagged"`
	RateLimited     int64 `json:"rate_limited"`
	AuditFailures   int64 `json:"audit_failures"`
	GatePanics      int64 `json:"gate_panics"`
}

// Pipeline validates task payloads. It is safe for concurrent use.
type Pipeline struct {
	store         Store
	tracker       FailureTracker
	runner        *gates.Runner
	cache         *taskTypeCache
	maxFailures   int
	schemaBaseURL string
	now           func() time.Time
	logger        *slog.Logger

	auditLogLimiter rate.Sometimes

	validations   atomic.Int64
	passed        atomic.Int64
	failed        atomic.Int64
	flagged       atomic.Int64
	rateLimited   atomic.Int64
	auditFailures atomic.Int64
	gatePanics    atomic.Int64
}

// New creates a pipeline
func New(cfg *Config) (*Pipeline, error) {
	if cfg == nil || cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracker := cfg.Tracker
	if tracker == nil {
		tracker = NewMemoryFailureTracker()
	}
	maxFailures := cfg.MaxConsecutiveFailures
	if maxFailures <= 0 {
		maxFailures = DefaultMaxConsecutiveFailures
	}
	baseURL := cfg.SchemaBaseURL
	if baseURL == "" {
		baseURL = DefaultSchemaBaseURL
	}

	gateList := cfg.Gates
	if len(gateList) == 0 {
		opts := cfg.GateOptions
		if opts.Now == nil {
			opts.Now = now
		}
		var err error
		gateList, err = gates.DefaultGates(opts)
		if err != nil {
			return nil, err
		}
	}
	runner, err := gates.NewRunner(&gates.Config{
		Gates:    gateList,
		Parallel: cfg.Parallel,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gate runner: %w", err)
	}

	cache, err := newTaskTypeCache(cfg.CacheSize, cfg.CacheTTL, cfg.NegativeCacheTTL, now)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		store:           cfg.Store,
		tracker:         tracker,
		runner:          runner,
		cache:           cache,
		maxFailures:     maxFailures,
		schemaBaseURL:   strings.TrimRight(baseURL, "/"),
		now:             now,
		logger:          logger,
		auditLogLimiter: rate.Sometimes{First: 3, Interval: 30 * time.Second},
	}, nil
}

// ValidateTask runs the full pipeline for one payload. It never returns an
// error: infrastructure failures are logged and folded into the verdict
// (registry failure fails closed, audit and tracker failures are ignored).
func (p *Pipeline) ValidateTask(ctx context.Context, payload types.Payload, opts Options) *types.PipelineResult {
	p.validations.Add(1)

	agentID := strings.TrimSpace(opts.AgentID)
	if agentID == "" {
		agentID = anonymousAgent
	}
	taskTypeID := payload.TaskTypeID()

	hash, err := HashPayload(payload)
	if err != nil {
		p.logger.WarnContext(ctx, "payload hash failed", "agent", agentID, "error", err)
	}

	failures, err := p.tracker.Failures(ctx, agentID)
	if err != nil {
		p.logger.WarnContext(ctx, "failure tracker read failed", "agent", agentID, "error", err)
		failures = 0
	}

	if failures >= p.maxFailures {
		p.rateLimited.Add(1)
		result := types.NewResult()
		result.AddError(types.ValidationError{
			Field: "agent_id",
			Code:  types.CodeRateLimitExceeded,
			Message: fmt.Sprintf("%d consecutive validation failures; further attempts are blocked",
				failures),
			Suggestion: "Stop retrying and escalate this task to a human operator for review",
			Constraint: map[string]any{"max_consecutive_failures": p.maxFailures},
		})
		p.logger.InfoContext(ctx, "agent rate limited", "agent", agentID, "failures", failures)
		p.audit(ctx, &types.AuditRecord{
			AgentID:       agentID,
			TaskTypeID:    taskTypeID,
			PayloadHash:   hash,
			Outcome:       types.OutcomeRateLimited,
			Errors:        result.Errors,
			AttemptNumber: failures + 1,
			DryRun:        opts.DryRun,
		})
		return p.finish(result, taskTypeID)
	}

	cfg := p.loadTaskType(ctx, taskTypeID)

	results, merged := p.runner.RunAll(ctx, payload, cfg)
	for _, res := range results {
		if res != nil && res.Error != nil {
			p.gatePanics.Add(1)
		}
	}

	attempt := failures + 1
	if merged.Valid {
		if err := p.tracker.Reset(ctx, agentID); err != nil {
			p.logger.WarnContext(ctx, "failure tracker reset failed", "agent", agentID, "error", err)
		}
	} else {
		count, err := p.tracker.RecordFailure(ctx, agentID, hash)
		if err != nil {
			p.logger.WarnContext(ctx, "failure tracker write failed", "agent", agentID, "error", err)
		} else {
			attempt = count
		}
	}

	outcome := outcomeFor(merged)
	switch outcome {
	case types.OutcomeFailed:
		p.failed.Add(1)
	case types.OutcomeFlaggedForReview:
		p.flagged.Add(1)
	default:
		p.passed.Add(1)
	}

	p.logger.DebugContext(ctx, "task validated",
		"agent", agentID,
		"task_type", taskTypeID,
		"outcome", outcome,
		"errors", len(merged.Errors),
		"warnings", len(merged.Warnings),
		"dry_run", opts.DryRun,
		"gates", gates.Summary(results))

	p.audit(ctx, &types.AuditRecord{
		AgentID:       agentID,
		TaskTypeID:    taskTypeID,
		PayloadHash:   hash,
		Outcome:       outcome,
		Errors:        merged.Errors,
		SoftFlags:     softFlags(merged),
		AttemptNumber: attempt,
		DryRun:        opts.DryRun,
	})

	return p.finish(merged, taskTypeID)
}

// loadTaskType resolves a task type through the cache. Registry errors other
// than not-found are logged and treated as not-found without being cached.
func (p *Pipeline) loadTaskType(ctx context.Context, id string) *types.TaskTypeConfig {
	if id == "" {
		return nil
	}
	if cfg, ok := p.cache.get(id); ok {
		return cfg
	}

	cfg, err := p.store.GetTaskTypeConfig(ctx, id)
	switch {
	case errors.Is(err, types.ErrTaskTypeNotFound):
		p.cache.put(id, nil)
		return nil
	case err != nil:
		p.logger.WarnContext(ctx, "task type lookup failed", "task_type", id, "error", err)
		return nil
	case cfg == nil:
		p.cache.put(id, nil)
		return nil
	}

	p.cache.put(id, cfg)
	return cfg
}

// audit writes the record on a best-effort basis
func (p *Pipeline) audit(ctx context.Context, rec *types.AuditRecord) {
	rec.ID = uuid.NewString()
	rec.CreatedAt = p.now().UTC()
	if rec.Errors == nil {
		rec.Errors = []types.ValidationError{}
	}

	// the audit row should land even if the caller has gone away
	if err := p.store.InsertAuditRecord(context.WithoutCancel(ctx), rec); err != nil {
		p.auditFailures.Add(1)
		p.auditLogLimiter.Do(func() {
			p.logger.WarnContext(ctx, "audit write failed",
				"agent", rec.AgentID,
				"outcome", rec.Outcome,
				"total_failures", p.auditFailures.Load(),
				"error", err)
		})
	}
}

func (p *Pipeline) finish(result *types.Result, taskTypeID string) *types.PipelineResult {
	return &types.PipelineResult{
		Result:            *result,
		TaskTypeSchemaURL: p.SchemaURL(taskTypeID),
	}
}

// SchemaURL returns the link to a task type's schema document
func (p *Pipeline) SchemaURL(taskTypeID string) string {
	if taskTypeID == "" {
		return p.schemaBaseURL
	}
	return p.schemaBaseURL + "/" + url.PathEscape(taskTypeID)
}

// FlushCache drops every cached task type so the next call re-reads the
// registry
func (p *Pipeline) FlushCache() {
	p.cache.flush()
	p.logger.Info("task type cache flushed")
}

// ResetFailures clears an agent's failure streak, lifting a lockout
func (p *Pipeline) ResetFailures(ctx context.Context, agentID string) error {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return fmt.Errorf("agent id is required")
	}
	if err := p.tracker.Reset(ctx, agentID); err != nil {
		return fmt.Errorf("failed to reset agent %s: %w", agentID, err)
	}
	p.logger.InfoContext(ctx, "agent failure streak reset", "agent", agentID)
	return nil
}

// Stats returns current counters
func (p *Pipeline) Stats() Stats {
	return Stats{
		CachedTaskTypes: p.cache.len(),
		Validations:     p.validations.Load(),
		Passed:          p.passed.Load(),
		Failed:          p.failed.Load(),
		Flagged:         p.flagged.Load(),
		RateLimited:     p.rateLimited.Load(),
		AuditFailures:   p.auditFailures.Load(),
		GatePanics:      p.gatePanics.Load(),
	}
}

func outcomeFor(r *types.Result) types.Outcome {
	switch {
	case !r.Valid:
		return types.OutcomeFailed
	case r.Flagged:
		return types.OutcomeFlaggedForReview
	default:
		return types.OutcomePassed
	}
}

// softFlags returns the content-policy warnings that sent the task to review
func softFlags(r *types.Result) []types.ValidationError {
	var flags []types.ValidationError
	for _, w := range r.Warnings {
		if w.Code == types.CodeProhibitedContent {
			flags = append(flags, w)
		}
	}
	return flags
}
