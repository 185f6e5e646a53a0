package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/docquiz/internal/pipeline"
	"github.com/dgallion1/docquiz/internal/question"
	"github.com/go-chi/chi/v5"
)

// maxFilesPerRequest bounds the request body together with MaxUploadBytes.
const maxFilesPerRequest = 10

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*maxFilesPerRequest+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		if tooLarge := new(http.MaxBytesError); errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	qcfg, err := s.requestConfig(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}
	if len(files) > maxFilesPerRequest {
		jsonError(w, fmt.Sprintf("at most %d files per request", maxFilesPerRequest), http.StatusBadRequest)
		return
	}

	uploads := make([]pipeline.Upload, 0, len(files))
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		f, err := fh.Open()
		if err != nil {
			jsonError(w, "failed to open "+filename, http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
		f.Close()
		if err != nil {
			jsonError(w, "failed to read "+filename, http.StatusInternalServerError)
			return
		}
		if int64(len(data)) > s.cfg.MaxUploadBytes {
			jsonError(w, fmt.Sprintf("%s exceeds max size (%d bytes)", filename, s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		uploads = append(uploads, pipeline.Upload{Filename: filename, Data: data})
	}

	if r.FormValue("wait") == "true" {
		report, err := s.orchestrator.Run(r.Context(), pipeline.Request{Documents: uploads, Config: qcfg})
		if err != nil {
			s.log.Error("generation run failed", "error", err)
			jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, report)
		return
	}

	job := pipeline.NewJob(uploads, qcfg)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"status":   pipeline.StatusQueued,
		"files":    job.Files,
		"poll_url": fmt.Sprintf("/api/generate/%s", job.ID),
	})
}

// requestConfig reads question_count and difficulty, falling back to the
// server defaults.
func (s *Server) requestConfig(r *http.Request) (question.Configuration, error) {
	cfg := question.Configuration{
		TargetQuestionCount: s.cfg.DefaultQuestionCount,
		Difficulty:          question.Difficulty(s.cfg.DefaultDifficulty),
	}
	if v := r.FormValue("question_count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid question_count %q", v)
		}
		cfg.TargetQuestionCount = n
	}
	if v := r.FormValue("difficulty"); v != "" {
		d, err := question.ParseDifficulty(v)
		if err != nil {
			return cfg, err
		}
		cfg.Difficulty = d
	}
	return cfg, cfg.Validate()
}

func (s *Server) handleGenerateStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
