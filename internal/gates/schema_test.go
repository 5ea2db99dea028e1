package gates

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/taskgate/internal/types"
)

func newTestSchemaValidator() *SchemaValidator {
	return NewSchemaValidator(func() time.Time { return fixedNow }, 0)
}

func findError(r *types.Result, field string, code types.Code) *types.ValidationError {
	for i := range r.Errors {
		if r.Errors[i].Field == field && r.Errors[i].Code == code {
			return &r.Errors[i]
		}
	}
	return nil
}

func TestSchema_ValidPayload(t *testing.T) {
	res := newTestSchemaValidator().Check(validPayload(), testTaskType())
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
}

func TestSchema_InvalidTaskType(t *testing.T) {
	v := newTestSchemaValidator()

	t.Run("unknown", func(t *testing.T) {
		res := v.Check(types.Payload{"task_type": "teleport", "title": "x"}, nil)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, types.CodeInvalidTaskType, res.Errors[0].Code)
		assert.Contains(t, res.Errors[0].Message, "teleport")
	})

	t.Run("inactive", func(t *testing.T) {
		cfg := testTaskType()
		cfg.IsActive = false
		res := v.Check(validPayload(), cfg)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, types.CodeInvalidTaskType, res.Errors[0].Code)
	})

	t.Run("missing identifier", func(t *testing.T) {
		res := v.Check(types.Payload{}, nil)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, "task_type is required", res.Errors[0].Message)
	})
}

func TestSchema_MissingRequired(t *testing.T) {
	payload := validPayload()
	delete(payload, "description")
	payload["title"] = "   "

	res := newTestSchemaValidator().Check(payload, testTaskType())

	assert.False(t, res.Valid)
	assert.NotNil(t, findError(res, "title", types.CodeMissingRequired))
	assert.NotNil(t, findError(res, "description", types.CodeMissingRequired))
}

func TestSchema_NullCountsAsMissing(t *testing.T) {
	payload := validPayload()
	payload["budget_usd"] = nil

	res := newTestSchemaValidator().Check(payload, testTaskType())
	assert.NotNil(t, findError(res, "budget_usd", types.CodeMissingRequired))
	assert.Nil(t, findError(res, "budget_usd", types.CodeInvalidType))
}

func TestSchema_NumberBounds(t *testing.T) {
	v := newTestSchemaValidator()

	payload := validPayload()
	payload["stops"] = 0.0
	res := v.Check(payload, testTaskType())
	e := findError(res, "stops", types.CodeBelowMinimum)
	require.NotNil(t, e)
	assert.Equal(t, 1.0, e.Constraint["min"])

	payload["stops"] = 11
	res = v.Check(payload, testTaskType())
	e = findError(res, "stops", types.CodeAboveMaximum)
	require.NotNil(t, e)
	assert.Equal(t, 10.0, e.Constraint["max"])

	payload["stops"] = json.Number("3")
	res = v.Check(payload, testTaskType())
	assert.True(t, res.Valid, "errors: %+v", res.Errors)
}

func TestSchema_InvalidType(t *testing.T) {
	payload := validPayload()
	payload["stops"] = "several"
	payload["title"] = 42.0
	payload["vehicle"] = "car"

	res := newTestSchemaValidator().Check(payload, testTaskType())

	for _, field := range []string{"stops", "title", "vehicle"} {
		e := findError(res, field, types.CodeInvalidType)
		require.NotNil(t, e, "expected INVALID_TYPE for %s", field)
	}
	assert.Contains(t, findError(res, "stops", types.CodeInvalidType).Message, "got string")
}

func TestSchema_NumericStringAccepted(t *testing.T) {
	payload := validPayload()
	payload["budget_usd"] = "30"

	res := newTestSchemaValidator().Check(payload, testTaskType())
	assert.True(t, res.Valid, "errors: %+v", res.Errors)
}

func TestSchema_StringLength(t *testing.T) {
	v := newTestSchemaValidator()

	payload := validPayload()
	payload["title"] = "Help"
	res := v.Check(payload, testTaskType())
	e := findError(res, "title", types.CodeStringTooShort)
	require.NotNil(t, e)
	assert.Equal(t, 5, e.Constraint["min_length"])

	payload["title"] = strings.Repeat("a", 81)
	res = v.Check(payload, testTaskType())
	require.NotNil(t, findError(res, "title", types.CodeStringTooLong))

	// length is measured in characters, not bytes
	payload["title"] = strings.Repeat("é", 80)
	res = v.Check(payload, testTaskType())
	assert.Nil(t, findError(res, "title", types.CodeStringTooLong))
}

func TestSchema_Array(t *testing.T) {
	v := newTestSchemaValidator()

	payload := validPayload()
	payload["vehicle"] = []any{}
	res := v.Check(payload, testTaskType())
	require.NotNil(t, findError(res, "vehicle", types.CodeArrayTooFew))

	payload["vehicle"] = []any{"car", "helicopter", "boat"}
	res = v.Check(payload, testTaskType())
	e := findError(res, "vehicle", types.CodeInvalidValue)
	require.NotNil(t, e)
	assert.Contains(t, e.Message, "helicopter, boat")
	assert.Equal(t, []string{"bike", "car", "van"}, e.Constraint["allowed_values"])

	payload["vehicle"] = []string{"bike", "van"}
	res = v.Check(payload, testTaskType())
	assert.True(t, res.Valid, "errors: %+v", res.Errors)
}

func TestSchema_Datetime(t *testing.T) {
	v := newTestSchemaValidator()

	tests := []struct {
		name    string
		value   any
		wantErr bool
	}{
		{"thirty minutes ahead", fixedNow.Add(30 * time.Minute).Format(time.RFC3339), true},
		{"in the past", fixedNow.Add(-24 * time.Hour).Format(time.RFC3339), true},
		{"two hours ahead", fixedNow.Add(2 * time.Hour).Format(time.RFC3339), false},
		{"exactly one hour ahead", fixedNow.Add(time.Hour).Format(time.RFC3339), false},
		{"local layout", "2025-06-02 09:00", false},
		{"unparsable", "next tuesday-ish", true},
		{"not a string", 12345.0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			payload := validPayload()
			payload["datetime_start"] = tc.value
			res := v.Check(payload, testTaskType())
			e := findError(res, "datetime_start", types.CodeInvalidDatetime)
			if tc.wantErr {
				require.NotNil(t, e)
			} else {
				assert.Nil(t, e)
			}
		})
	}
}

func TestSchema_DatetimeTooSoonReportsEarliest(t *testing.T) {
	payload := validPayload()
	payload["datetime_start"] = fixedNow.Add(30 * time.Minute).Format(time.RFC3339)

	res := newTestSchemaValidator().Check(payload, testTaskType())
	e := findError(res, "datetime_start", types.CodeInvalidDatetime)
	require.NotNil(t, e)
	assert.Equal(t, "2025-06-01T13:00:00Z", e.Constraint["earliest"])
}

func TestSchema_BudgetFloor(t *testing.T) {
	v := newTestSchemaValidator()

	payload := validPayload()
	payload["budget_usd"] = 25.0
	res := v.Check(payload, testTaskType())
	assert.Nil(t, findError(res, "budget_usd", types.CodeBudgetBelowMinimum))

	payload["budget_usd"] = 24.99
	res = v.Check(payload, testTaskType())
	e := findError(res, "budget_usd", types.CodeBudgetBelowMinimum)
	require.NotNil(t, e)
	assert.Equal(t, "25.00", e.Suggestion)
	assert.Equal(t, 25.0, e.Constraint["minimum_budget_usd"])
}

func TestSchema_DurationExceedsMax(t *testing.T) {
	payload := validPayload()
	payload["duration_hours"] = 9.0
	payload["budget_usd"] = 200.0

	res := newTestSchemaValidator().Check(payload, testTaskType())
	e := findError(res, "duration_hours", types.CodeDurationExceedsMax)
	require.NotNil(t, e)
	assert.Equal(t, 8.0, e.Constraint["maximum_duration_hr"])
}

func TestSchema_RequiresAddress(t *testing.T) {
	v := newTestSchemaValidator()
	cfg := testTaskType()
	cfg.RequiresAddress = true

	res := v.Check(validPayload(), cfg)
	require.NotNil(t, findError(res, "private_address", types.CodeMissingRequired))

	payload := validPayload()
	payload["private_address"] = "123 Main St"
	res = v.Check(payload, cfg)
	assert.True(t, res.Valid, "errors: %+v", res.Errors)

	payload = validPayload()
	payload["is_remote"] = true
	res = v.Check(payload, cfg)
	assert.True(t, res.Valid, "errors: %+v", res.Errors)
}

func TestSchema_UnknownFieldsWarnSorted(t *testing.T) {
	payload := validPayload()
	payload["zebra"] = 1
	payload["package_size"] = "small"
	payload["apple"] = "x"

	res := newTestSchemaValidator().Check(payload, testTaskType())

	assert.True(t, res.Valid)
	require.Len(t, res.Warnings, 2)
	assert.Equal(t, "apple", res.Warnings[0].Field)
	assert.Equal(t, "zebra", res.Warnings[1].Field)
	assert.Equal(t, types.CodeUnknownField, res.Warnings[0].Code)
}

func TestSchema_FieldOrderIsDeterministic(t *testing.T) {
	payload := types.Payload{
		"task_type":   "delivery",
		"title":       "Hi",
		"description": "short",
		"budget_usd":  "lots",
		"stops":       99.0,
	}

	v := newTestSchemaValidator()
	first := v.Check(payload, testTaskType())
	for i := 0; i < 20; i++ {
		again := v.Check(payload, testTaskType())
		assert.Equal(t, first.Errors, again.Errors)
	}
	require.NotEmpty(t, first.Errors)
	assert.Equal(t, "budget_usd", first.Errors[0].Field)
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{12.5, 12.5, true},
		{7, 7, true},
		{int64(3), 3, true},
		{json.Number("4.25"), 4.25, true},
		{" 9.5 ", 9.5, true},
		{"abc", 0, false},
		{"NaN", 0, false},
		{true, 0, false},
		{nil, 0, false},
	}
	for _, tc := range tests {
		got, ok := toFloat(tc.in)
		assert.Equal(t, tc.ok, ok, "input %v", tc.in)
		assert.Equal(t, tc.want, got, "input %v", tc.in)
	}
}
