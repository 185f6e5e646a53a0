package question

import (
	"fmt"
	"strings"
)

// Issue is one problem found while validating a question.
type Issue struct {
	Field   string
	Message string
}

// ValidationError reports why a question was rejected.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Issues) == 0 {
		return ""
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Field, issue.Message))
	}
	return "invalid question: " + strings.Join(parts, "; ")
}

type issueCollector struct {
	issues []Issue
}

func (c *issueCollector) add(field, format string, args ...any) {
	c.issues = append(c.issues, Issue{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (c *issueCollector) result() error {
	if len(c.issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: c.issues}
}

// Validate checks the record invariants: a non-empty prompt, exactly four
// distinct non-empty options, a correct option that is one of them, and an
// explanation.
func Validate(q *Question) error {
	c := &issueCollector{}
	if q == nil {
		c.add("question", "is null")
		return c.result()
	}
	if strings.TrimSpace(q.Prompt) == "" {
		c.add("question", "is required")
	}
	if len(q.Options) != OptionCount {
		c.add("choices", "want %d options, got %d", OptionCount, len(q.Options))
	}
	seen := make(map[string]struct{}, len(q.Options))
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			c.add(fmt.Sprintf("choices[%d]", i), "is empty")
			continue
		}
		if _, dup := seen[opt]; dup {
			c.add(fmt.Sprintf("choices[%d]", i), "duplicates %q", opt)
		}
		seen[opt] = struct{}{}
	}
	if strings.TrimSpace(q.CorrectOption) == "" {
		c.add("correct_answer", "is required")
	} else if q.CorrectLetter() == NoCorrectAnswer {
		c.add("correct_answer", "%q is not one of the choices", q.CorrectOption)
	}
	if strings.TrimSpace(q.Explanation) == "" {
		c.add("explanation", "is required")
	}
	return c.result()
}

// Normalize trims surrounding whitespace from every text field. Generation
// responses often pad the correct answer differently from the matching
// option; trimming both sides first keeps such records valid.
func Normalize(q *Question) {
	if q == nil {
		return
	}
	q.Prompt = strings.TrimSpace(q.Prompt)
	q.CorrectOption = strings.TrimSpace(q.CorrectOption)
	q.Explanation = strings.TrimSpace(q.Explanation)
	for i := range q.Options {
		q.Options[i] = strings.TrimSpace(q.Options[i])
	}
}
