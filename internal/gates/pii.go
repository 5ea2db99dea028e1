package gates

import (
	"fmt"
	"strings"

	"github.com/steveyegge/taskgate/internal/patterns"
	"github.com/steveyegge/taskgate/internal/types"
)

// PublicFields are the only payload fields the PII scanner reads. Private
// fields are released by a separate service and never pass through here.
var PublicFields = []string{"title", "description", "location_zone", "requirements"}

// PIIScanner flags personal information in public task fields
type PIIScanner struct {
	library []*patterns.Pattern
}

// NewPIIScanner creates a PII gate over the default pattern library
func NewPIIScanner() *PIIScanner {
	return &PIIScanner{library: patterns.Library()}
}

// Type implements Gate
func (s *PIIScanner) Type() GateType { return GatePII }

// Check implements Gate. Only the first surviving match of each pattern is
// reported per field so one field with repeated numbers yields one error.
func (s *PIIScanner) Check(payload types.Payload, _ *types.TaskTypeConfig) *types.Result {
	result := types.NewResult()

	for _, field := range PublicFields {
		text := fieldText(payload[field])
		if text == "" {
			continue
		}

		for _, p := range s.library {
			match, ok := p.FirstMatch(text)
			if !ok {
				continue
			}
			result.AddError(types.ValidationError{
				Field:      field,
				Code:       types.CodePIIDetected,
				Message:    fmt.Sprintf("%s appears to contain a %s (%s)", field, p.Description, p.Name),
				Suggestion: fmt.Sprintf("Remove it from %s and put it in %s, which is only shared with the assigned worker", field, p.PrivateField),
				Detected:   p.Mask(match),
			})
		}
	}

	return result
}

// fieldText flattens a payload value into scannable text. Arrays are
// space-joined; non-text scalars are not scanned.
func fieldText(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		return strings.Join(val, " ")
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if item == nil {
				continue
			}
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, " ")
	}
	return ""
}
