package gates

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/steveyegge/taskgate/internal/types"
)

// DefaultMinLeadTime is how far in the future datetime_start must be
const DefaultMinLeadTime = time.Hour

// baseFields are accepted on every task type without raising UNKNOWN_FIELD
var baseFields = map[string]bool{
	"task_type":       true,
	"task_type_id":    true,
	"title":           true,
	"description":     true,
	"budget_usd":      true,
	"duration_hours":  true,
	"datetime_start":  true,
	"location_zone":   true,
	"requirements":    true,
	"skills_required": true,
	"coordinates":     true,
	"latitude":        true,
	"longitude":       true,
	"country":         true,
	"is_remote":       true,
	"private_address": true,
	"private_notes":   true,
	"private_contact": true,
	"deadline":        true,
	"urgency":         true,
}

var datetimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// SchemaValidator checks a payload against the task type's declared fields
type SchemaValidator struct {
	now         func() time.Time
	minLeadTime time.Duration
}

// NewSchemaValidator creates a schema gate. A nil clock means time.Now and a
// zero lead time means DefaultMinLeadTime.
func NewSchemaValidator(now func() time.Time, minLeadTime time.Duration) *SchemaValidator {
	if now == nil {
		now = time.Now
	}
	if minLeadTime <= 0 {
		minLeadTime = DefaultMinLeadTime
	}
	return &SchemaValidator{now: now, minLeadTime: minLeadTime}
}

// Type implements Gate
func (v *SchemaValidator) Type() GateType { return GateSchema }

// Check implements Gate. A missing or inactive task type is the one case
// that returns early: nothing else can be checked without a schema.
func (v *SchemaValidator) Check(payload types.Payload, cfg *types.TaskTypeConfig) *types.Result {
	result := types.NewResult()

	if cfg == nil || !cfg.IsActive {
		id := payload.TaskTypeID()
		msg := fmt.Sprintf("Task type %q does not exist or is not active", id)
		if id == "" {
			msg = "task_type is required"
		}
		result.AddError(types.ValidationError{
			Field:      "task_type",
			Code:       types.CodeInvalidTaskType,
			Message:    msg,
			Suggestion: "Fetch the list of active task types and use one of their identifiers",
		})
		return result
	}

	v.checkRequired(payload, cfg, result)
	v.checkFieldSchemas(payload, cfg, result)
	v.checkDatetime(payload, result)
	v.checkBudgetAndDuration(payload, cfg, result)
	v.checkAddress(payload, cfg, result)
	v.checkUnknownFields(payload, cfg, result)

	return result
}

func (v *SchemaValidator) checkRequired(payload types.Payload, cfg *types.TaskTypeConfig, result *types.Result) {
	for _, field := range cfg.RequiredFields {
		if isMissing(payload, field) {
			result.AddError(types.ValidationError{
				Field:   field,
				Code:    types.CodeMissingRequired,
				Message: fmt.Sprintf("%s is required for task type %s", field, cfg.ID),
			})
		}
	}
}

func (v *SchemaValidator) checkFieldSchemas(payload types.Payload, cfg *types.TaskTypeConfig, result *types.Result) {
	names := make([]string, 0, len(cfg.FieldSchemas))
	for name := range cfg.FieldSchemas {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if isMissing(payload, name) {
			continue
		}
		schema := cfg.FieldSchemas[name]
		value := payload[name]

		switch schema.Type {
		case types.FieldNumber:
			checkNumber(name, value, schema, result)
		case types.FieldString:
			checkString(name, value, schema, result)
		case types.FieldArray:
			checkArray(name, value, schema, result)
		}
	}
}

func checkNumber(name string, value any, schema types.FieldSchema, result *types.Result) {
	n, ok := toFloat(value)
	if !ok {
		result.AddError(typeError(name, schema.Type, value))
		return
	}
	if schema.Min != nil && n < *schema.Min {
		result.AddError(types.ValidationError{
			Field:      name,
			Code:       types.CodeBelowMinimum,
			Message:    fmt.Sprintf("%s must be at least %s (got %s)", name, formatNumber(*schema.Min), formatNumber(n)),
			Constraint: map[string]any{"min": *schema.Min},
		})
	}
	if schema.Max != nil && n > *schema.Max {
		result.AddError(types.ValidationError{
			Field:      name,
			Code:       types.CodeAboveMaximum,
			Message:    fmt.Sprintf("%s must be at most %s (got %s)", name, formatNumber(*schema.Max), formatNumber(n)),
			Constraint: map[string]any{"max": *schema.Max},
		})
	}
}

func checkString(name string, value any, schema types.FieldSchema, result *types.Result) {
	s, ok := value.(string)
	if !ok {
		result.AddError(typeError(name, schema.Type, value))
		return
	}
	length := utf8.RuneCountInString(s)
	if schema.MinLength != nil && length < *schema.MinLength {
		result.AddError(types.ValidationError{
			Field:      name,
			Code:       types.CodeStringTooShort,
			Message:    fmt.Sprintf("%s must be at least %d characters (got %d)", name, *schema.MinLength, length),
			Constraint: map[string]any{"min_length": *schema.MinLength},
		})
	}
	if schema.MaxLength != nil && length > *schema.MaxLength {
		result.AddError(types.ValidationError{
			Field:      name,
			Code:       types.CodeStringTooLong,
			Message:    fmt.Sprintf("%s must be at most %d characters (got %d)", name, *schema.MaxLength, length),
			Constraint: map[string]any{"max_length": *schema.MaxLength},
		})
	}
}

func checkArray(name string, value any, schema types.FieldSchema, result *types.Result) {
	items, ok := toSlice(value)
	if !ok {
		result.AddError(typeError(name, schema.Type, value))
		return
	}
	if schema.MinItems != nil && len(items) < *schema.MinItems {
		result.AddError(types.ValidationError{
			Field:      name,
			Code:       types.CodeArrayTooFew,
			Message:    fmt.Sprintf("%s must contain at least %d items (got %d)", name, *schema.MinItems, len(items)),
			Constraint: map[string]any{"min_items": *schema.MinItems},
		})
	}
	if len(schema.AllowedValues) == 0 {
		return
	}

	allowed := make(map[string]bool, len(schema.AllowedValues))
	for _, a := range schema.AllowedValues {
		allowed[a] = true
	}
	var invalid []string
	for _, item := range items {
		s := fmt.Sprint(item)
		if !allowed[s] {
			invalid = append(invalid, s)
		}
	}
	if len(invalid) > 0 {
		result.AddError(types.ValidationError{
			Field:      name,
			Code:       types.CodeInvalidValue,
			Message:    fmt.Sprintf("%s contains values that are not allowed: %s", name, strings.Join(invalid, ", ")),
			Constraint: map[string]any{"allowed_values": append([]string(nil), schema.AllowedValues...)},
		})
	}
}

func (v *SchemaValidator) checkDatetime(payload types.Payload, result *types.Result) {
	if isMissing(payload, "datetime_start") {
		return
	}
	raw := payload["datetime_start"]
	s, _ := raw.(string)

	start, ok := parseDatetime(s)
	if !ok {
		result.AddError(types.ValidationError{
			Field:      "datetime_start",
			Code:       types.CodeInvalidDatetime,
			Message:    fmt.Sprintf("datetime_start %v is not a valid datetime", raw),
			Suggestion: "Use ISO 8601 / RFC 3339, e.g. 2025-06-01T09:00:00Z",
		})
		return
	}

	earliest := v.now().Add(v.minLeadTime)
	if start.Before(earliest) {
		result.AddError(types.ValidationError{
			Field:      "datetime_start",
			Code:       types.CodeInvalidDatetime,
			Message:    fmt.Sprintf("datetime_start must be at least %s in the future", v.minLeadTime),
			Suggestion: fmt.Sprintf("Use a start time after %s", earliest.UTC().Format(time.RFC3339)),
			Constraint: map[string]any{"earliest": earliest.UTC().Format(time.RFC3339)},
		})
	}
}

func (v *SchemaValidator) checkBudgetAndDuration(payload types.Payload, cfg *types.TaskTypeConfig, result *types.Result) {
	if budget, ok := toFloat(payload["budget_usd"]); ok && budget < cfg.MinimumBudgetUSD {
		result.AddError(budgetBelowMinimum(budget, cfg))
	}

	if cfg.MaximumDurationHr > 0 {
		if hours, ok := toFloat(payload["duration_hours"]); ok && hours > cfg.MaximumDurationHr {
			result.AddError(types.ValidationError{
				Field: "duration_hours",
				Code:  types.CodeDurationExceedsMax,
				Message: fmt.Sprintf("duration_hours %s exceeds the %s hour maximum for %s",
					formatNumber(hours), formatNumber(cfg.MaximumDurationHr), cfg.ID),
				Suggestion: "Split the work into several shorter tasks",
				Constraint: map[string]any{"maximum_duration_hr": cfg.MaximumDurationHr},
			})
		}
	}
}

// checkAddress enforces requires_address for on-site tasks
func (v *SchemaValidator) checkAddress(payload types.Payload, cfg *types.TaskTypeConfig, result *types.Result) {
	if !cfg.RequiresAddress {
		return
	}
	if remote, _ := payload["is_remote"].(bool); remote {
		return
	}
	if isMissing(payload, "private_address") {
		result.AddError(types.ValidationError{
			Field:      "private_address",
			Code:       types.CodeMissingRequired,
			Message:    fmt.Sprintf("Task type %s requires an address", cfg.ID),
			Suggestion: "Put the street address in private_address; it is only shared with the assigned worker",
		})
	}
}

func (v *SchemaValidator) checkUnknownFields(payload types.Payload, cfg *types.TaskTypeConfig, result *types.Result) {
	known := make(map[string]bool, len(cfg.RequiredFields)+len(cfg.OptionalFields))
	for _, f := range cfg.RequiredFields {
		known[f] = true
	}
	for _, f := range cfg.OptionalFields {
		known[f] = true
	}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if baseFields[k] || known[k] {
			continue
		}
		if _, declared := cfg.FieldSchemas[k]; declared {
			continue
		}
		result.AddWarning(types.ValidationError{
			Field:   k,
			Code:    types.CodeUnknownField,
			Message: fmt.Sprintf("%s is not a recognized field for task type %s and will be ignored", k, cfg.ID),
		})
	}
}

func budgetBelowMinimum(budget float64, cfg *types.TaskTypeConfig) types.ValidationError {
	return types.ValidationError{
		Field: "budget_usd",
		Code:  types.CodeBudgetBelowMinimum,
		Message: fmt.Sprintf("budget_usd $%.2f is below the $%.2f minimum for %s",
			budget, cfg.MinimumBudgetUSD, cfg.ID),
		Suggestion: fmt.Sprintf("%.2f", cfg.MinimumBudgetUSD),
		Constraint: map[string]any{"minimum_budget_usd": cfg.MinimumBudgetUSD},
	}
}

func typeError(name string, want types.FieldType, value any) types.ValidationError {
	return types.ValidationError{
		Field:      name,
		Code:       types.CodeInvalidType,
		Message:    fmt.Sprintf("%s must be a %s (got %s)", name, want, describeType(value)),
		Constraint: map[string]any{"type": string(want)},
	}
}

// isMissing treats absent keys, nulls and blank strings alike
func isMissing(payload types.Payload, field string) bool {
	v, ok := payload[field]
	if !ok || v == nil {
		return true
	}
	if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
		return true
	}
	return false
}

// toFloat accepts JSON numbers, Go numeric types and numeric strings
func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []string:
		out := make([]any, len(s))
		for i, item := range s {
			out[i] = item
		}
		return out, true
	}
	return nil, false
}

func parseDatetime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func describeType(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any, []string:
		return "array"
	case map[string]any:
		return "object"
	case nil:
		return "null"
	}
	if _, ok := toFloat(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
