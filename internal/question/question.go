// Package question defines the multiple-choice question record shared by the
// generation pipeline, the question bank and the quiz session engine.
package question

import (
	"fmt"
	"strings"
)

// OptionCount is the number of answer choices every question carries.
const OptionCount = 4

// NoCorrectAnswer is returned by CorrectLetter when the record's correct
// option is not among its choices.
const NoCorrectAnswer = "no correct answer found"

// Question is a single multiple-choice question. Field names on the wire
// follow the generation schema so records round-trip through every store
// unchanged.
type Question struct {
	ID            string   `json:"id,omitempty" yaml:"id,omitempty"`
	Prompt        string   `json:"question" yaml:"question"`
	Options       []string `json:"choices" yaml:"choices"`
	CorrectOption string   `json:"correct_answer" yaml:"correct_answer"`
	Explanation   string   `json:"explanation" yaml:"explanation"`
	Source        string   `json:"source,omitempty" yaml:"source,omitempty"`
}

// Bank is an ordered question sequence in insertion order.
type Bank []Question

// Clone returns a deep copy of the bank so snapshots never alias store state.
func (b Bank) Clone() Bank {
	if b == nil {
		return Bank{}
	}
	out := make(Bank, len(b))
	for i, q := range b {
		out[i] = q.Clone()
	}
	return out
}

// Clone returns a copy of q with its own options slice.
func (q Question) Clone() Question {
	opts := make([]string, len(q.Options))
	copy(opts, q.Options)
	q.Options = opts
	return q
}

// Letter returns the option letter for a zero-based option index ("A" for 0).
func Letter(index int) string {
	return string(rune('A' + index))
}

// LetterIndex parses an option letter (case-insensitive) into a zero-based
// index. It reports false for anything that is not a single letter.
func LetterIndex(letter string) (int, bool) {
	letter = strings.ToUpper(strings.TrimSpace(letter))
	if len(letter) != 1 || letter[0] < 'A' || letter[0] > 'Z' {
		return 0, false
	}
	return int(letter[0] - 'A'), true
}

// CorrectLetter returns the letter of the correct option, or NoCorrectAnswer
// when the correct option is absent from the choices.
func (q Question) CorrectLetter() string {
	for i, opt := range q.Options {
		if opt == q.CorrectOption {
			return Letter(i)
		}
	}
	return NoCorrectAnswer
}

// OptionFor returns the option text behind a letter.
func (q Question) OptionFor(letter string) (string, error) {
	i, ok := LetterIndex(letter)
	if !ok || i >= len(q.Options) {
		return "", fmt.Errorf("option %q out of range", letter)
	}
	return q.Options[i], nil
}
