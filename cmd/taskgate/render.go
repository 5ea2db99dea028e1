package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/steveyegge/taskgate/internal/types"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

// verdict names the outcome of a result for display
func verdict(r *types.PipelineResult) types.Outcome {
	switch {
	case r.HasCode(types.CodeRateLimitExceeded):
		return types.OutcomeRateLimited
	case !r.Valid:
		return types.OutcomeFailed
	case r.Flagged:
		return types.OutcomeFlaggedForReview
	default:
		return types.OutcomePassed
	}
}

// exitCodeFor maps a result to the validate exit status
func exitCodeFor(r *types.PipelineResult) int {
	switch verdict(r) {
	case types.OutcomeRateLimited:
		return exitRateLimited
	case types.OutcomeFailed:
		return exitInvalid
	default:
		return 0
	}
}

func renderResult(w io.Writer, r *types.PipelineResult) {
	switch verdict(r) {
	case types.OutcomePassed:
		fmt.Fprintf(w, "%s Task payload is valid\n", green("✓"))
	case types.OutcomeFlaggedForReview:
		fmt.Fprintf(w, "%s Task payload is valid but flagged for manual review\n", yellow("⚠"))
	case types.OutcomeRateLimited:
		fmt.Fprintf(w, "%s Rate limited\n", red("✗"))
	default:
		fmt.Fprintf(w, "%s Task payload rejected (%d error(s))\n", red("✗"), len(r.Errors))
	}

	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "\nErrors:\n")
		for _, e := range r.Errors {
			renderFinding(w, red, e)
		}
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(w, "\nWarnings:\n")
		for _, e := range r.Warnings {
			renderFinding(w, yellow, e)
		}
	}
	if r.TaskTypeSchemaURL != "" {
		fmt.Fprintf(w, "\nSchema: %s\n", cyan(r.TaskTypeSchemaURL))
	}
}

func renderFinding(w io.Writer, paint func(a ...interface{}) string, e types.ValidationError) {
	fmt.Fprintf(w, "  %s %s: %s\n", paint(string(e.Code)), e.Field, e.Message)
	if e.Detected != "" {
		fmt.Fprintf(w, "    %s %s\n", gray("detected:"), e.Detected)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(w, "    %s %s\n", gray("suggestion:"), e.Suggestion)
	}
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderOutcome(o types.Outcome) string {
	switch o {
	case types.OutcomePassed:
		return green(string(o))
	case types.OutcomeFlaggedForReview:
		return yellow(string(o))
	default:
		return red(string(o))
	}
}

// codes lists the distinct error codes of an audit record
func codes(errs []types.ValidationError) string {
	seen := make(map[types.Code]bool)
	var out []string
	for _, e := range errs {
		if !seen[e.Code] {
			seen[e.Code] = true
			out = append(out, string(e.Code))
		}
	}
	if len(out) == 0 {
		return "-"
	}
	return strings.Join(out, ",")
}
