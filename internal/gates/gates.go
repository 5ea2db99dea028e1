package gates

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/steveyegge/taskgate/internal/types"
	"golang.org/x/sync/errgroup"
)

// GateType identifies the validation gates
type GateType string

const (
	GateSchema  GateType = "schema"
	GatePII     GateType = "pii"
	GateContent GateType = "content"
	GateBudget  GateType = "budget"
)

// Gate is one independent validator. Gates are pure: they read the payload
// and the task type snapshot and return findings, nothing else.
type Gate interface {
	Type() GateType
	Check(payload types.Payload, cfg *types.TaskTypeConfig) *types.Result
}

// Result represents the outcome of a single gate run
type Result struct {
	Gate     GateType
	Findings *types.Result
	Duration time.Duration
	// Error is set when the gate panicked; Findings is then empty
	Error error
}

// Runner executes gates and merges their findings
type Runner struct {
	gates    []Gate
	parallel bool
	logger   *slog.Logger
}

// Config holds gate runner configuration
type Config struct {
	Gates    []Gate
	Parallel bool         // Evaluate gates concurrently; merge order is unchanged
	Logger   *slog.Logger // Optional: defaults to slog.Default()
}

// NewRunner creates a new gate runner
func NewRunner(cfg *Config) (*Runner, error) {
	if cfg == nil || len(cfg.Gates) == 0 {
		return nil, fmt.Errorf("at least one gate is required")
	}
	for i, g := range cfg.Gates {
		if g == nil {
			return nil, fmt.Errorf("gate %d is nil", i)
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		gates:    append([]Gate(nil), cfg.Gates...),
		parallel: cfg.Parallel,
		logger:   logger,
	}, nil
}

// RunAll executes every gate and returns the per-gate results plus the merged
// verdict. A failing gate never stops the others: callers get every problem
// in one round trip.
func (r *Runner) RunAll(ctx context.Context, payload types.Payload, cfg *types.TaskTypeConfig) ([]*Result, *types.Result) {
	results := make([]*Result, len(r.gates))

	if r.parallel {
		var g errgroup.Group
		for i, gate := range r.gates {
			g.Go(func() error {
				results[i] = r.runGate(ctx, gate, payload, cfg)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, gate := range r.gates {
			results[i] = r.runGate(ctx, gate, payload, cfg)
		}
	}

	return results, Merge(results)
}

// runGate runs one gate, converting a panic into an empty finding set
func (r *Runner) runGate(ctx context.Context, gate Gate, payload types.Payload, cfg *types.TaskTypeConfig) (result *Result) {
	result = &Result{Gate: gate.Type()}
	start := time.Now()

	defer func() {
		result.Duration = time.Since(start)
		if rec := recover(); rec != nil {
			result.Findings = types.NewResult()
			result.Error = fmt.Errorf("gate %s panicked: %v", gate.Type(), rec)
			r.logger.ErrorContext(ctx, "validation gate panicked",
				"gate", gate.Type(),
				"panic", rec,
				"stack", string(debug.Stack()))
		}
	}()

	findings := gate.Check(payload, cfg)
	if findings == nil {
		findings = types.NewResult()
	}
	result.Findings = findings
	return result
}

// Merge concatenates findings in gate order
func Merge(results []*Result) *types.Result {
	merged := types.NewResult()
	for _, res := range results {
		if res == nil || res.Findings == nil {
			continue
		}
		for _, e := range res.Findings.Errors {
			merged.AddError(e)
		}
		for _, w := range res.Findings.Warnings {
			merged.AddWarning(w)
		}
		if res.Findings.Flagged {
			merged.Flagged = true
		}
	}
	merged.Valid = len(merged.Errors) == 0
	return merged
}

// Options tunes the default gate set
type Options struct {
	Now            func() time.Time
	MinLeadTime    time.Duration
	MinHourlyRate  float64
	HighHourlyRate float64
	Policy         *ContentPolicy
}

// DefaultGates returns the standard gate set in merge order: schema, PII,
// content policy, budget.
func DefaultGates(opts Options) ([]Gate, error) {
	policy := opts.Policy
	if policy == nil {
		policy = DefaultContentPolicy()
	}
	content, err := NewContentScanner(policy)
	if err != nil {
		return nil, fmt.Errorf("failed to build content scanner: %w", err)
	}

	return []Gate{
		NewSchemaValidator(opts.Now, opts.MinLeadTime),
		NewPIIScanner(),
		content,
		NewBudgetValidator(opts.MinHourlyRate, opts.HighHourlyRate),
	}, nil
}

// formatResult renders a gate result as a one-line summary
func formatResult(result *Result) string {
	status := "✓ PASSED"
	if result.Findings != nil && len(result.Findings.Errors) > 0 {
		status = "✗ FAILED"
	}
	line := fmt.Sprintf("%s: %s", result.Gate, status)
	if result.Findings != nil {
		line += fmt.Sprintf(" (%d errors, %d warnings)", len(result.Findings.Errors), len(result.Findings.Warnings))
	}
	if result.Error != nil {
		line += fmt.Sprintf(" [contained: %v]", result.Error)
	}
	return line
}

// Summary renders all gate results, one line each
func Summary(results []*Result) []string {
	lines := make([]string, 0, len(results))
	for _, res := range results {
		if res == nil {
			continue
		}
		lines = append(lines, formatResult(res))
	}
	return lines
}
