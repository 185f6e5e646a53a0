package api

import (
	"net/http"
)

func (s *Server) handleGetBank(w http.ResponseWriter, r *http.Request) {
	b, err := s.orchestrator.Assembler().Load(r.Context())
	if err != nil {
		s.log.Error("load bank", "error", err)
		jsonError(w, "failed to load question bank", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":     len(b),
		"questions": b,
	})
}

// handleResetBank empties the bank and drops every live quiz built from it.
func (s *Server) handleResetBank(w http.ResponseWriter, r *http.Request) {
	if err := s.orchestrator.Assembler().Reset(r.Context()); err != nil {
		s.log.Error("reset bank", "error", err)
		jsonError(w, "failed to reset question bank", http.StatusInternalServerError)
		return
	}
	s.quizzes.Clear()
	s.log.Info("question bank reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
