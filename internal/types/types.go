package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrTaskTypeNotFound is returned by registry lookups for unknown task types
var ErrTaskTypeNotFound = errors.New("task type not found")

// TaskTypeConfig is a task category definition fetched from the task-type
// registry. The pipeline treats it as an immutable snapshot.
type TaskTypeConfig struct {
	ID                 string                 `json:"id" yaml:"id"`
	DisplayName        string                 `json:"display_name" yaml:"display_name"`
	Category           string                 `json:"category" yaml:"category"`
	RequiredFields     []string               `json:"required_fields" yaml:"required_fields"`
	OptionalFields     []string               `json:"optional_fields,omitempty" yaml:"optional_fields"`
	FieldSchemas       map[string]FieldSchema `json:"field_schemas,omitempty" yaml:"field_schemas"`
	MinimumBudgetUSD   float64                `json:"minimum_budget_usd" yaml:"minimum_budget_usd"`
	MaximumDurationHr  float64                `json:"maximum_duration_hr" yaml:"maximum_duration_hr"`
	ProhibitedKeywords []string               `json:"prohibited_keywords,omitempty" yaml:"prohibited_keywords"`
	RequiresAddress    bool                   `json:"requires_address" yaml:"requires_address"`
	IsActive           bool                   `json:"is_active" yaml:"is_active"`
}

// Validate checks that a task type definition is usable by the registry.
func (c *TaskTypeConfig) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if c.MinimumBudgetUSD < 0 {
		return fmt.Errorf("minimum_budget_usd cannot be negative (got %.2f)", c.MinimumBudgetUSD)
	}
	if c.MaximumDurationHr < 0 {
		return fmt.Errorf("maximum_duration_hr cannot be negative (got %.2f)", c.MaximumDurationHr)
	}
	for name, schema := range c.FieldSchemas {
		if !schema.Type.IsValid() {
			return fmt.Errorf("field %s: invalid type %q", name, schema.Type)
		}
		if schema.Min != nil && schema.Max != nil && *schema.Min > *schema.Max {
			return fmt.Errorf("field %s: min %.2f exceeds max %.2f", name, *schema.Min, *schema.Max)
		}
		if schema.MinLength != nil && schema.MaxLength != nil && *schema.MinLength > *schema.MaxLength {
			return fmt.Errorf("field %s: min_length %d exceeds max_length %d", name, *schema.MinLength, *schema.MaxLength)
		}
	}
	return nil
}

// FieldType is the declared type of a task payload field
type FieldType string

const (
	FieldNumber FieldType = "number"
	FieldString FieldType = "string"
	FieldArray  FieldType = "array"
)

// IsValid checks if the field type value is valid
func (t FieldType) IsValid() bool {
	switch t {
	case FieldNumber, FieldString, FieldArray:
		return true
	}
	return false
}

// FieldSchema constrains a single payload field. Nil pointers mean "no bound".
type FieldSchema struct {
	Type          FieldType `json:"type" yaml:"type"`
	Min           *float64  `json:"min,omitempty" yaml:"min"`
	Max           *float64  `json:"max,omitempty" yaml:"max"`
	MinLength     *int      `json:"min_length,omitempty" yaml:"min_length"`
	MaxLength     *int      `json:"max_length,omitempty" yaml:"max_length"`
	MinItems      *int      `json:"min_items,omitempty" yaml:"min_items"`
	AllowedValues []string  `json:"allowed_values,omitempty" yaml:"allowed_values"`
}

// Payload is the caller-supplied task body. Values are whatever JSON decoding
// produced (string, float64, bool, []any, map[string]any, nil).
type Payload map[string]any

// TaskTypeID returns the task type identifier, accepting either task_type_id
// or task_type.
func (p Payload) TaskTypeID() string {
	for _, key := range []string{"task_type_id", "task_type"} {
		if s, ok := p[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// Code is a stable, machine-branchable validation code
type Code string

const (
	CodeInvalidTaskType    Code = "INVALID_TASK_TYPE"
	CodeMissingRequired    Code = "MISSING_REQUIRED"
	CodeInvalidType        Code = "INVALID_TYPE"
	CodeBelowMinimum       Code = "BELOW_MINIMUM"
	CodeAboveMaximum       Code = "ABOVE_MAXIMUM"
	CodeStringTooShort     Code = "STRING_TOO_SHORT"
	CodeStringTooLong      Code = "STRING_TOO_LONG"
	CodeArrayTooFew        Code = "ARRAY_TOO_FEW"
	CodeInvalidValue       Code = "INVALID_VALUE"
	CodeInvalidDatetime    Code = "INVALID_DATETIME"
	CodeBudgetBelowMinimum Code = "BUDGET_BELOW_MINIMUM"
	CodeDurationExceedsMax Code = "DURATION_EXCEEDS_MAX"
	CodePIIDetected        Code = "PII_DETECTED"
	CodeProhibitedContent  Code = "PROHIBITED_CONTENT"
	CodeRateLimitExceeded  Code = "RATE_LIMIT_EXCEEDED"

	// Warning-only codes
	CodeUnknownField      Code = "UNKNOWN_FIELD"
	CodeHighBudgetWarning Code = "HIGH_BUDGET_WARNING"
)

// ValidationError is a single finding produced by a gate. It is used for both
// errors and warnings; which list it lands in decides its severity.
type ValidationError struct {
	Field      string         `json:"field"`
	Code       Code           `json:"code"`
	Message    string         `json:"message"`
	Suggestion string         `json:"suggestion,omitempty"`
	Detected   string         `json:"detected,omitempty"`
	Constraint map[string]any `json:"constraint,omitempty"`
}

// Result is the outcome of one gate, or of the merged pipeline
type Result struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []ValidationError `json:"warnings"`
	Flagged  bool              `json:"flagged,omitempty"`
}

// NewResult returns an empty passing result
func NewResult() *Result {
	return &Result{
		Valid:    true,
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}
}

// AddError appends an error and marks the result invalid
func (r *Result) AddError(e ValidationError) {
	r.Errors = append(r.Errors, e)
	r.Valid = false
}

// AddWarning appends a warning; warnings never affect validity
func (r *Result) AddWarning(w ValidationError) {
	r.Warnings = append(r.Warnings, w)
}

// HasCode reports whether any error carries the given code
func (r *Result) HasCode(code Code) bool {
	for _, e := range r.Errors {
		if e.Code == code {
			return true
		}
	}
	return false
}

// PipelineResult is what the orchestrator hands back to callers
type PipelineResult struct {
	Result
	TaskTypeSchemaURL string `json:"task_type_schema_url"`
}

// Outcome is the coarse audit tag for a validation call
type Outcome string

const (
	OutcomePassed           Outcome = "passed"
	OutcomeFailed           Outcome = "failed"
	OutcomeFlaggedForReview Outcome = "flagged_for_review"
	OutcomeRateLimited      Outcome = "rate_limited"
)

// IsValid checks if the outcome value is valid
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomePassed, OutcomeFailed, OutcomeFlaggedForReview, OutcomeRateLimited:
		return true
	}
	return false
}

// AuditRecord is written once per validation call
type AuditRecord struct {
	ID            string            `json:"id"`
	AgentID       string            `json:"agent_id"`
	TaskTypeID    string            `json:"task_type_id"`
	PayloadHash   string            `json:"payload_hash"`
	Outcome       Outcome           `json:"validation_result"`
	Errors        []ValidationError `json:"errors"`
	SoftFlags     []ValidationError `json:"soft_flags,omitempty"`
	AttemptNumber int               `json:"attempt_number"`
	DryRun        bool              `json:"dry_run"`
	CreatedAt     time.Time         `json:"created_at"`
}

// AuditFilter narrows ListAuditRecords queries
type AuditFilter struct {
	AgentID    string
	TaskTypeID string
	Outcome    Outcome
	Limit      int
}
