package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dgallion1/docquiz/internal/quiz"
)

// quizView is what a client sees of its session. The correct answer and
// explanation only appear once the session is graded.
type quizView struct {
	ID       string        `json:"quiz_id"`
	State    quiz.State    `json:"state"`
	Current  int           `json:"current"`
	Total    int           `json:"total"`
	Answered int           `json:"answered"`
	Question *questionView `json:"question,omitempty"`
	Grade    *quiz.Grade   `json:"grade,omitempty"`
}

type questionView struct {
	ID            string   `json:"id,omitempty"`
	Prompt        string   `json:"question"`
	Choices       []string `json:"choices"`
	Source        string   `json:"source,omitempty"`
	Selected      string   `json:"selected,omitempty"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

func newQuizView(q *quiz.Session) quizView {
	v := quizView{
		ID:       q.ID(),
		State:    q.State(),
		Current:  q.CurrentIndex(),
		Total:    q.Len(),
		Answered: q.Progress(),
	}
	cur, err := q.Current()
	if err == nil {
		qv := &questionView{
			ID:       cur.ID,
			Prompt:   cur.Prompt,
			Choices:  cur.Options,
			Source:   cur.Source,
			Selected: q.Answers()[q.CurrentIndex()],
		}
		if g, ok := q.Grade(); ok {
			qv.CorrectAnswer = cur.CorrectLetter()
			qv.Explanation = cur.Explanation
			v.Grade = &g
		}
		v.Question = qv
	} else if g, ok := q.Grade(); ok {
		v.Grade = &g
	}
	return v
}

type answerRequest struct {
	Index  *int   `json:"index"`
	Answer string `json:"answer"`
}

type navigateRequest struct {
	Direction string `json:"direction"`
}

// handleStartQuiz starts a session over a snapshot of the bank and binds it
// to the caller's cookie, replacing any earlier session.
func (s *Server) handleStartQuiz(w http.ResponseWriter, r *http.Request) {
	b, err := s.orchestrator.Assembler().Load(r.Context())
	if err != nil {
		s.log.Error("load bank", "error", err)
		jsonError(w, "failed to load question bank", http.StatusInternalServerError)
		return
	}
	if len(b) == 0 {
		jsonError(w, "question bank is empty", http.StatusConflict)
		return
	}

	cookie, _ := s.cookies.Get(r, cookieName)
	if old, ok := cookie.Values[cookieQuizKey].(string); ok {
		s.quizzes.Remove(old)
	}

	q := s.quizzes.Start(b)
	cookie.Values[cookieQuizKey] = q.ID()
	if err := cookie.Save(r, w); err != nil {
		s.quizzes.Remove(q.ID())
		s.log.Error("save quiz cookie", "error", err)
		jsonError(w, "failed to save session", http.StatusInternalServerError)
		return
	}
	s.log.Info("quiz started", "quiz_id", q.ID(), "questions", q.Len())
	writeJSON(w, http.StatusCreated, newQuizView(q))
}

func (s *Server) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	s.withQuiz(w, r, func(*quiz.Session) error { return nil })
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.withQuiz(w, r, func(q *quiz.Session) error {
		idx := q.CurrentIndex()
		if req.Index != nil {
			idx = *req.Index
		}
		return q.SelectAnswer(idx, req.Answer)
	})
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	dir, err := quiz.ParseDirection(req.Direction)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.withQuiz(w, r, func(q *quiz.Session) error {
		q.Navigate(dir)
		return nil
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	s.withQuiz(w, r, func(q *quiz.Session) error {
		g := q.Submit()
		s.log.Info("quiz graded", "quiz_id", q.ID(), "score", g.Score, "total", g.Total)
		return nil
	})
}

// withQuiz runs fn against the caller's session and writes the resulting
// view.
func (s *Server) withQuiz(w http.ResponseWriter, r *http.Request, fn func(*quiz.Session) error) {
	cookie, _ := s.cookies.Get(r, cookieName)
	id, _ := cookie.Values[cookieQuizKey].(string)

	var (
		view quizView
		err  error
	)
	found := id != "" && s.quizzes.WithSession(id, func(q *quiz.Session) {
		if err = fn(q); err == nil {
			view = newQuizView(q)
		}
	})
	if !found {
		jsonError(w, "no active quiz", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), quizErrorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func quizErrorStatus(err error) int {
	switch {
	case errors.Is(err, quiz.ErrGraded):
		return http.StatusConflict
	case errors.Is(err, quiz.ErrIndexOutOfRange), errors.Is(err, quiz.ErrInvalidOption):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}
