package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dgallion1/docquiz/internal/config"
	"github.com/dgallion1/docquiz/internal/generate"
	"github.com/dgallion1/docquiz/internal/pipeline"
	"github.com/dgallion1/docquiz/internal/quiz"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

const (
	cookieName    = "docquiz"
	cookieQuizKey = "quiz_id"
)

// Server is the HTTP API server for docquiz.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	llm          *generate.Client
	quizzes      *quiz.Registry
	cookies      *sessions.CookieStore
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. llm may be nil, in which
// case LLM stats are reported unavailable.
func NewServer(orch *pipeline.Orchestrator, llm *generate.Client, log *slog.Logger, cfg config.Config) *Server {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "api")

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		secret = securecookie.GenerateRandomKey(32)
		log.Warn("SESSION_SECRET not set, quiz cookies will not survive a restart")
	}
	cookies := sessions.NewCookieStore(secret)
	cookies.Options.HttpOnly = true
	cookies.Options.SameSite = http.SameSiteLaxMode

	s := &Server{
		orchestrator: orch,
		llm:          llm,
		quizzes:      quiz.NewRegistry(cfg.MaxQuizSessions),
		cookies:      cookies,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

// Start runs the idle quiz sweep until ctx is done.
func (s *Server) Start(ctx context.Context) {
	interval := min(s.cfg.QuizTTL/2, 5*time.Minute)
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweepQuizzes()
			}
		}
	}()
}

func (s *Server) sweepQuizzes() {
	if n := s.quizzes.Cleanup(s.cfg.QuizTTL); n > 0 {
		s.log.Info("expired quiz sessions", "removed", n, "live", s.quizzes.Len())
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/generate", s.handleGenerate)
		r.Get("/generate/{jobID}", s.handleGenerateStatus)

		r.Get("/bank", s.handleGetBank)
		r.Delete("/bank", s.handleResetBank)

		r.Post("/quiz", s.handleStartQuiz)
		r.Get("/quiz", s.handleGetQuiz)
		r.Post("/quiz/answer", s.handleAnswer)
		r.Post("/quiz/navigate", s.handleNavigate)
		r.Post("/quiz/submit", s.handleSubmit)

		r.Get("/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
