package question

import (
	"fmt"
	"strings"
)

// Difficulty is the requested question difficulty.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// ParseDifficulty accepts a difficulty name in any case.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case Easy, Medium, Hard:
		return d, nil
	}
	return "", fmt.Errorf("unknown difficulty %q (want easy, medium or hard)", s)
}

// Configuration is the per-request generation setting. It is passed
// explicitly through sizing and generation so concurrent requests never
// share state.
type Configuration struct {
	TargetQuestionCount int        `json:"question_count"`
	Difficulty          Difficulty `json:"difficulty"`
}

// Validate checks the count is positive and the difficulty is known.
func (c Configuration) Validate() error {
	if c.TargetQuestionCount <= 0 {
		return fmt.Errorf("question count must be positive, got %d", c.TargetQuestionCount)
	}
	if _, err := ParseDifficulty(string(c.Difficulty)); err != nil {
		return err
	}
	return nil
}
