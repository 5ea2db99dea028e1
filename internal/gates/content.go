package gates

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/steveyegge/taskgate/internal/types"
)

// ContentFields are scanned by the content policy gate
var ContentFields = []string{"title", "description"}

// ContentPolicy is the two-tier keyword list
type ContentPolicy struct {
	HardBlock []string `yaml:"hard_block"`
	SoftFlag  []string `yaml:"soft_flag"`
}

// DefaultContentPolicy returns a copy of the built-in keyword tiers
func DefaultContentPolicy() *ContentPolicy {
	return &ContentPolicy{
		HardBlock: append([]string(nil), DefaultHardBlockTerms...),
		SoftFlag:  append([]string(nil), DefaultSoftFlagTerms...),
	}
}

// Extend appends extra terms to each tier, skipping duplicates
func (p *ContentPolicy) Extend(hard, soft []string) {
	p.HardBlock = appendUnique(p.HardBlock, hard)
	p.SoftFlag = appendUnique(p.SoftFlag, soft)
}

// Validate checks that both tiers are well formed and disjoint
func (p *ContentPolicy) Validate() error {
	hard := make(map[string]bool, len(p.HardBlock))
	for _, term := range p.HardBlock {
		norm := normalizeTerm(term)
		if norm == "" {
			return fmt.Errorf("hard_block contains an empty term")
		}
		hard[norm] = true
	}
	for _, term := range p.SoftFlag {
		norm := normalizeTerm(term)
		if norm == "" {
			return fmt.Errorf("soft_flag contains an empty term")
		}
		if hard[norm] {
			return fmt.Errorf("term %q appears in both hard_block and soft_flag", term)
		}
	}
	return nil
}

type keyword struct {
	term string
	re   *regexp.Regexp
}

// ContentScanner matches text against the keyword tiers on word boundaries,
// so "therapist" never matches "rapist".
type ContentScanner struct {
	hard []keyword
	soft []keyword

	// compiled per-task-type keywords, keyed by normalized term
	typeTerms sync.Map
}

// NewContentScanner compiles a content policy
func NewContentScanner(policy *ContentPolicy) (*ContentScanner, error) {
	if policy == nil {
		policy = DefaultContentPolicy()
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid content policy: %w", err)
	}

	s := &ContentScanner{}
	for _, term := range policy.HardBlock {
		s.hard = append(s.hard, keyword{term: term, re: compileTerm(term)})
	}
	for _, term := range policy.SoftFlag {
		s.soft = append(s.soft, keyword{term: term, re: compileTerm(term)})
	}
	return s, nil
}

// Type implements Gate
func (s *ContentScanner) Type() GateType { return GateContent }

// Check implements Gate. Hard-block matches are errors; soft-flag matches
// are warnings that set Flagged so the task goes to manual review.
func (s *ContentScanner) Check(payload types.Payload, cfg *types.TaskTypeConfig) *types.Result {
	result := types.NewResult()

	var typeKeywords []keyword
	if cfg != nil {
		typeKeywords = s.taskTypeKeywords(cfg.ProhibitedKeywords)
	}

	for _, field := range ContentFields {
		text, _ := payload[field].(string)
		if strings.TrimSpace(text) == "" {
			continue
		}

		if matched := matchTerms(s.hard, text); len(matched) > 0 {
			result.AddError(types.ValidationError{
				Field:      field,
				Code:       types.CodeProhibitedContent,
				Message:    fmt.Sprintf("%s contains prohibited content: %s", field, quoteTerms(matched)),
				Suggestion: "Tasks involving illegal or harmful activity are not allowed on this platform",
			})
		}

		if len(typeKeywords) > 0 {
			if matched := matchTerms(typeKeywords, text); len(matched) > 0 {
				result.AddError(types.ValidationError{
					Field: field,
					Code:  types.CodeProhibitedContent,
					Message: fmt.Sprintf("%s contains content not allowed for task type %s: %s",
						field, cfg.ID, quoteTerms(matched)),
					Suggestion: "Choose a task type that fits this work or remove the restricted terms",
				})
			}
		}

		if matched := matchTerms(s.soft, text); len(matched) > 0 {
			result.AddWarning(types.ValidationError{
				Field:   field,
				Code:    types.CodeProhibitedContent,
				Message: fmt.Sprintf("%s mentions %s; the task will be held for manual review", field, quoteTerms(matched)),
			})
			result.Flagged = true
		}
	}

	return result
}

// taskTypeKeywords compiles and memoizes per-type prohibited keywords
func (s *ContentScanner) taskTypeKeywords(terms []string) []keyword {
	out := make([]keyword, 0, len(terms))
	for _, term := range terms {
		norm := normalizeTerm(term)
		if norm == "" {
			continue
		}
		if cached, ok := s.typeTerms.Load(norm); ok {
			out = append(out, keyword{term: term, re: cached.(*regexp.Regexp)})
			continue
		}
		re := compileTerm(term)
		s.typeTerms.Store(norm, re)
		out = append(out, keyword{term: term, re: re})
	}
	return out
}

func matchTerms(keywords []keyword, text string) []string {
	var matched []string
	for _, kw := range keywords {
		if kw.re.MatchString(text) {
			matched = append(matched, kw.term)
		}
	}
	return matched
}

// compileTerm builds a case-insensitive, word-bounded regexp. Words of a
// multi-word phrase may be separated by any whitespace run.
func compileTerm(term string) *regexp.Regexp {
	words := strings.Fields(term)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b` + strings.Join(words, `\s+`) + `\b`)
}

func normalizeTerm(term string) string {
	return strings.ToLower(strings.Join(strings.Fields(term), " "))
}

func quoteTerms(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = fmt.Sprintf("%q", t)
	}
	return strings.Join(quoted, ", ")
}

func appendUnique(dst, extra []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, t := range dst {
		seen[normalizeTerm(t)] = true
	}
	for _, t := range extra {
		norm := normalizeTerm(t)
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		dst = append(dst, t)
	}
	return dst
}
