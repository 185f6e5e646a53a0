// Package config loads server and CLI settings from defaults, an optional
// YAML or TOML file named by DOCQUIZ_CONFIG, and the environment, in that
// order of precedence (environment wins).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Generation model
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	// Worker pool
	WorkerCount           int
	MaxQueueSize          int
	MaxConcurrentGenerate int

	// Generation call limits
	RequestsPerSecond float64
	RequestBurst      int
	GenerateTimeout   time.Duration
	MaxRetries        int

	// Uploads and extraction
	MaxUploadBytes       int64
	MinExtractChars      int
	PDFFallbackPdftotext bool

	// Request defaults
	DefaultQuestionCount int
	DefaultDifficulty    string

	// Question bank
	BankDriver string
	BankPath   string
	BankDSN    string

	// HTTP
	SessionSecret   string
	CORSOrigins     []string
	QuizTTL         time.Duration // Idle time before a quiz session is dropped.
	MaxQuizSessions int

	// Job state
	JobTTL time.Duration
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:                  "8090",
		OpenAIModel:           "gpt-4.1-mini",
		WorkerCount:           2,
		MaxQueueSize:          100,
		MaxConcurrentGenerate: 4,
		RequestsPerSecond:     2,
		RequestBurst:          4,
		GenerateTimeout:       90 * time.Second,
		MaxRetries:            3,
		MaxUploadBytes:        52428800, // 50MB
		MinExtractChars:       50,
		PDFFallbackPdftotext:  true,
		DefaultQuestionCount:  10,
		DefaultDifficulty:     "medium",
		BankDriver:            "file",
		BankPath:              "question_bank.json",
		QuizTTL:               2 * time.Hour,
		MaxQuizSessions:       1000,
		JobTTL:                1 * time.Hour,
	}
}

// Load builds the configuration. A DOCQUIZ_CONFIG file that cannot be read or
// parsed is an error; malformed environment values fall back silently.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("DOCQUIZ_CONFIG"); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)

	cfg.OpenAIAPIKey = envOr("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIModel = envOr("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.OpenAIBaseURL = envOr("OPENAI_BASE_URL", cfg.OpenAIBaseURL)

	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.MaxConcurrentGenerate = envInt("MAX_CONCURRENT_GENERATE", cfg.MaxConcurrentGenerate)

	cfg.RequestsPerSecond = envFloat("GENERATE_RPS", cfg.RequestsPerSecond)
	cfg.RequestBurst = envInt("GENERATE_BURST", cfg.RequestBurst)
	cfg.GenerateTimeout = envDuration("GENERATE_TIMEOUT", cfg.GenerateTimeout)
	cfg.MaxRetries = envInt("MAX_RETRIES", cfg.MaxRetries)

	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.MinExtractChars = envInt("MIN_EXTRACT_CHARS", cfg.MinExtractChars)
	cfg.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", cfg.PDFFallbackPdftotext)

	cfg.DefaultQuestionCount = envInt("DEFAULT_QUESTION_COUNT", cfg.DefaultQuestionCount)
	cfg.DefaultDifficulty = envOr("DEFAULT_DIFFICULTY", cfg.DefaultDifficulty)

	cfg.BankDriver = envOr("BANK_DRIVER", cfg.BankDriver)
	cfg.BankPath = envOr("BANK_PATH", cfg.BankPath)
	cfg.BankDSN = envOr("BANK_DSN", cfg.BankDSN)

	cfg.SessionSecret = envOr("SESSION_SECRET", cfg.SessionSecret)
	cfg.CORSOrigins = envList("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.QuizTTL = envDuration("QUIZ_TTL", cfg.QuizTTL)
	cfg.MaxQuizSessions = envInt("MAX_QUIZ_SESSIONS", cfg.MaxQuizSessions)

	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)

	cfg.clamp()
	return cfg, nil
}

// clamp replaces non-positive limits with their defaults.
func (c *Config) clamp() {
	d := Defaults()
	if c.WorkerCount <= 0 {
		c.WorkerCount = d.WorkerCount
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = d.MaxQueueSize
	}
	if c.MaxConcurrentGenerate <= 0 {
		c.MaxConcurrentGenerate = d.MaxConcurrentGenerate
	}
	if c.RequestBurst <= 0 {
		c.RequestBurst = d.RequestBurst
	}
	if c.GenerateTimeout <= 0 {
		c.GenerateTimeout = d.GenerateTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.MinExtractChars <= 0 {
		c.MinExtractChars = d.MinExtractChars
	}
	if c.DefaultQuestionCount <= 0 {
		c.DefaultQuestionCount = d.DefaultQuestionCount
	}
	if c.QuizTTL <= 0 {
		c.QuizTTL = d.QuizTTL
	}
	if c.MaxQuizSessions <= 0 {
		c.MaxQuizSessions = d.MaxQuizSessions
	}
	if c.JobTTL <= 0 {
		c.JobTTL = d.JobTTL
	}
}

// Validate checks settings the server cannot run without.
func (c Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	switch c.BankDriver {
	case "memory", "file", "sqlite", "postgres":
	default:
		return fmt.Errorf("BANK_DRIVER must be memory, file, sqlite or postgres, got %q", c.BankDriver)
	}
	if c.BankDriver == "postgres" && c.BankDSN == "" {
		return fmt.Errorf("BANK_DSN is required for the postgres bank")
	}
	switch strings.ToLower(c.DefaultDifficulty) {
	case "easy", "medium", "hard":
	default:
		return fmt.Errorf("DEFAULT_DIFFICULTY must be easy, medium or hard, got %q", c.DefaultDifficulty)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList reads a comma-separated list, dropping empty items.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
