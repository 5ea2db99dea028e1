package gates

import (
	"fmt"
	"math"

	"github.com/steveyegge/taskgate/internal/types"
)

const (
	// DefaultMinHourlyRate is the implied-wage floor in USD per hour
	DefaultMinHourlyRate = 5.0
	// DefaultHighHourlyRate is the implied rate above which a warning is raised
	DefaultHighHourlyRate = 500.0
)

// BudgetValidator judges the economics of a numeric budget. Presence and
// type of budget_usd belong to the schema gate.
type BudgetValidator struct {
	minHourlyRate  float64
	highHourlyRate float64
}

// NewBudgetValidator creates a budget gate; non-positive rates fall back to
// the defaults.
func NewBudgetValidator(minHourlyRate, highHourlyRate float64) *BudgetValidator {
	if minHourlyRate <= 0 {
		minHourlyRate = DefaultMinHourlyRate
	}
	if highHourlyRate <= 0 {
		highHourlyRate = DefaultHighHourlyRate
	}
	return &BudgetValidator{minHourlyRate: minHourlyRate, highHourlyRate: highHourlyRate}
}

// Type implements Gate
func (v *BudgetValidator) Type() GateType { return GateBudget }

// Check implements Gate
func (v *BudgetValidator) Check(payload types.Payload, cfg *types.TaskTypeConfig) *types.Result {
	result := types.NewResult()

	budget, ok := toFloat(payload["budget_usd"])
	if !ok {
		return result
	}

	// Repeats the schema gate's floor check so it still fires for task types
	// that declare no field schemas.
	if cfg != nil && budget < cfg.MinimumBudgetUSD {
		result.AddError(budgetBelowMinimum(budget, cfg))
	}

	hours, ok := toFloat(payload["duration_hours"])
	if !ok || hours <= 0 {
		return result
	}

	rate := budget / hours
	switch {
	case rate < v.minHourlyRate:
		suggested := math.Round(v.minHourlyRate*hours*100) / 100
		result.AddError(types.ValidationError{
			Field: "budget_usd",
			Code:  types.CodeBelowMinimum,
			Message: fmt.Sprintf("Implied rate $%.2f/hr is below the $%.2f/hr minimum",
				rate, v.minHourlyRate),
			Suggestion: fmt.Sprintf("%.2f", suggested),
			Constraint: map[string]any{
				"min_hourly_rate":      v.minHourlyRate,
				"duration_hours":       hours,
				"minimum_budget_total": suggested,
			},
		})
	case rate > v.highHourlyRate:
		result.AddWarning(types.ValidationError{
			Field: "budget_usd",
			Code:  types.CodeHighBudgetWarning,
			Message: fmt.Sprintf("Implied rate $%.2f/hr is unusually high (above $%.2f/hr); double-check budget_usd and duration_hours",
				rate, v.highHourlyRate),
		})
	}

	return result
}
