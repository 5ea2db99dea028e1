package gates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/taskgate/internal/patterns"
	"github.com/steveyegge/taskgate/internal/types"
)

func TestPII_DetectsPhoneInDescription(t *testing.T) {
	payload := types.Payload{
		"title":       "Help moving a couch",
		"description": "Text me at 555-123-4567 when you arrive",
	}

	res := NewPIIScanner().Check(payload, nil)

	require.Len(t, res.Errors, 1)
	e := res.Errors[0]
	assert.Equal(t, "description", e.Field)
	assert.Equal(t, types.CodePIIDetected, e.Code)
	assert.Equal(t, "555****567", e.Detected)
	assert.Contains(t, e.Suggestion, patterns.PrivateContact)
	assert.NotContains(t, e.Message, "555-123-4567")
}

func TestPII_AddressSuggestsPrivateAddress(t *testing.T) {
	payload := types.Payload{"title": "Pick up at 123 Main St today"}

	res := NewPIIScanner().Check(payload, nil)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "title", res.Errors[0].Field)
	assert.Contains(t, res.Errors[0].Suggestion, patterns.PrivateAddress)
	assert.NotContains(t, res.Errors[0].Detected, "Main St")
}

func TestPII_OneErrorPerPatternPerField(t *testing.T) {
	payload := types.Payload{
		"description": "Call 555-123-4567 or 555-987-6543, or email jo@example.com",
	}

	res := NewPIIScanner().Check(payload, nil)

	var phones, emails int
	for _, e := range res.Errors {
		switch {
		case e.Detected == "555****567":
			phones++
		case e.Detected == "jo***@example.com":
			emails++
		}
	}
	assert.Equal(t, 1, phones)
	assert.Equal(t, 1, emails)
	assert.Len(t, res.Errors, 2)
}

func TestPII_ScansRequirementsArray(t *testing.T) {
	payload := types.Payload{
		"requirements": []any{"bring gloves", "reach me at someone@example.com"},
	}

	res := NewPIIScanner().Check(payload, nil)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "requirements", res.Errors[0].Field)
}

func TestPII_PrivateFieldsAreExempt(t *testing.T) {
	payload := types.Payload{
		"title":           "Assemble a bookshelf",
		"description":     "Flat-pack bookshelf, tools provided",
		"private_address": "123 Main St, Apt 4B",
		"private_contact": "555-123-4567, jane@example.com",
		"private_notes":   "Ask for John at the door",
	}

	res := NewPIIScanner().Check(payload, nil)

	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
}

func TestPII_IgnoresFalsePositives(t *testing.T) {
	for _, text := range []string{
		"Paint a 2 bedroom apartment",
		"Need 2 people for 3 hours",
		"Starts 2025-03-01 14:00",
		"Looking for a therapist to help with stress",
	} {
		t.Run(text, func(t *testing.T) {
			res := NewPIIScanner().Check(types.Payload{"description": text}, nil)
			assert.Empty(t, res.Errors)
		})
	}
}

func TestPII_NonStringValuesIgnored(t *testing.T) {
	res := NewPIIScanner().Check(types.Payload{"title": 5551234567.0}, nil)
	assert.Empty(t, res.Errors)
}
