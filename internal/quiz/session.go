// Package quiz runs a single-user quiz over a snapshot of the question bank.
package quiz

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/dgallion1/docquiz/internal/question"
)

var (
	ErrGraded          = errors.New("quiz already graded")
	ErrIndexOutOfRange = errors.New("question index out of range")
	ErrInvalidOption   = errors.New("invalid option letter")
)

// State is the session lifecycle stage.
type State string

const (
	Answering State = "answering"
	Graded    State = "graded"
)

// Direction moves the current question.
type Direction int

const (
	Next Direction = iota
	Previous
)

// ParseDirection accepts "next" or "previous" ("prev" also works).
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "next":
		return Next, nil
	case "previous", "prev":
		return Previous, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// Mark is the outcome for one question after grading.
type Mark string

const (
	Right Mark = "right"
	Wrong Mark = "wrong"
)

// Grade is the result of submitting a session. Unanswered questions are
// marked wrong.
type Grade struct {
	Score   int    `json:"score"`
	Total   int    `json:"total"`
	Results []Mark `json:"results"`
}

// Session is not safe for concurrent use; callers own one session per user.
type Session struct {
	id        string
	questions question.Bank
	current   int
	answers   map[int]string
	state     State
	grade     Grade
}

// New starts a session over a private copy of questions.
func New(id string, questions question.Bank) *Session {
	return &Session{
		id:        id,
		questions: questions.Clone(),
		answers:   make(map[int]string),
		state:     Answering,
	}
}

func (s *Session) ID() string        { return s.id }
func (s *Session) Len() int          { return len(s.questions) }
func (s *Session) State() State      { return s.state }
func (s *Session) CurrentIndex() int { return s.current }

// Progress is the number of questions with an answer recorded.
func (s *Session) Progress() int { return len(s.answers) }

// Answers returns a copy of the selected letters by question index.
func (s *Session) Answers() map[int]string {
	return maps.Clone(s.answers)
}

// Question returns the question at index i.
func (s *Session) Question(i int) (question.Question, error) {
	if i < 0 || i >= len(s.questions) {
		return question.Question{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	return s.questions[i].Clone(), nil
}

// Current returns the question at the current index.
func (s *Session) Current() (question.Question, error) {
	return s.Question(s.current)
}

// SelectAnswer records letter as the answer for question index, replacing
// any earlier choice. Letters are case-insensitive and limited to the
// question's options.
func (s *Session) SelectAnswer(index int, letter string) error {
	if s.state == Graded {
		return ErrGraded
	}
	if index < 0 || index >= len(s.questions) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	opt, ok := question.LetterIndex(letter)
	if !ok || opt >= len(s.questions[index].Options) {
		return fmt.Errorf("%w: %q", ErrInvalidOption, letter)
	}
	s.answers[index] = question.Letter(opt)
	return nil
}

// Navigate moves to the next or previous question, wrapping at either end,
// and returns the new index. It works in any state and does nothing on an
// empty session.
func (s *Session) Navigate(d Direction) int {
	n := len(s.questions)
	if n == 0 {
		return 0
	}
	switch d {
	case Next:
		s.current = (s.current + 1) % n
	case Previous:
		s.current = (s.current - 1 + n) % n
	}
	return s.current
}

// Submit grades the session. Later calls return the same grade.
func (s *Session) Submit() Grade {
	if s.state == Graded {
		return s.copyGrade()
	}
	g := Grade{Total: len(s.questions), Results: make([]Mark, len(s.questions))}
	for i, q := range s.questions {
		chosen, ok := s.answers[i]
		if ok && chosen == q.CorrectLetter() {
			g.Results[i] = Right
			g.Score++
		} else {
			g.Results[i] = Wrong
		}
	}
	s.grade = g
	s.state = Graded
	return s.copyGrade()
}

// Grade returns the grade of a submitted session.
func (s *Session) Grade() (Grade, bool) {
	if s.state != Graded {
		return Grade{}, false
	}
	return s.copyGrade(), true
}

func (s *Session) copyGrade() Grade {
	g := s.grade
	g.Results = slices.Clone(s.grade.Results)
	return g
}
