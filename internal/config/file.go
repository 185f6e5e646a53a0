package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config for YAML and TOML files. Pointer fields tell an
// absent key from a zero value; durations are strings like "90s".
type fileConfig struct {
	Port *string `yaml:"port" toml:"port"`

	OpenAI struct {
		APIKey  *string `yaml:"api_key" toml:"api_key"`
		Model   *string `yaml:"model" toml:"model"`
		BaseURL *string `yaml:"base_url" toml:"base_url"`
	} `yaml:"openai" toml:"openai"`

	Workers struct {
		Count              *int `yaml:"count" toml:"count"`
		QueueSize          *int `yaml:"queue_size" toml:"queue_size"`
		MaxConcurrentCalls *int `yaml:"max_concurrent_calls" toml:"max_concurrent_calls"`
	} `yaml:"workers" toml:"workers"`

	Generate struct {
		RequestsPerSecond *float64 `yaml:"requests_per_second" toml:"requests_per_second"`
		Burst             *int     `yaml:"burst" toml:"burst"`
		Timeout           *string  `yaml:"timeout" toml:"timeout"`
		MaxRetries        *int     `yaml:"max_retries" toml:"max_retries"`
		QuestionCount     *int     `yaml:"question_count" toml:"question_count"`
		Difficulty        *string  `yaml:"difficulty" toml:"difficulty"`
	} `yaml:"generate" toml:"generate"`

	Upload struct {
		MaxBytes             *int64 `yaml:"max_bytes" toml:"max_bytes"`
		MinExtractChars      *int   `yaml:"min_extract_chars" toml:"min_extract_chars"`
		PDFFallbackPdftotext *bool  `yaml:"pdf_fallback_pdftotext" toml:"pdf_fallback_pdftotext"`
	} `yaml:"upload" toml:"upload"`

	Bank struct {
		Driver *string `yaml:"driver" toml:"driver"`
		Path   *string `yaml:"path" toml:"path"`
		DSN    *string `yaml:"dsn" toml:"dsn"`
	} `yaml:"bank" toml:"bank"`

	HTTP struct {
		SessionSecret   *string  `yaml:"session_secret" toml:"session_secret"`
		CORSOrigins     []string `yaml:"cors_origins" toml:"cors_origins"`
		QuizTTL         *string  `yaml:"quiz_ttl" toml:"quiz_ttl"`
		MaxQuizSessions *int     `yaml:"max_quiz_sessions" toml:"max_quiz_sessions"`
	} `yaml:"http" toml:"http"`

	JobTTL *string `yaml:"job_ttl" toml:"job_ttl"`
}

// applyFile overlays the settings in path onto cfg. The format follows the
// extension: .yaml/.yml or .toml. Unknown keys are rejected.
func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&fc); err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("config %s: unsupported format %q (want .yaml, .yml or .toml)", path, ext)
	}
	if err := fc.apply(cfg); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

func (fc *fileConfig) apply(cfg *Config) error {
	set(&cfg.Port, fc.Port)

	set(&cfg.OpenAIAPIKey, fc.OpenAI.APIKey)
	set(&cfg.OpenAIModel, fc.OpenAI.Model)
	set(&cfg.OpenAIBaseURL, fc.OpenAI.BaseURL)

	set(&cfg.WorkerCount, fc.Workers.Count)
	set(&cfg.MaxQueueSize, fc.Workers.QueueSize)
	set(&cfg.MaxConcurrentGenerate, fc.Workers.MaxConcurrentCalls)

	set(&cfg.RequestsPerSecond, fc.Generate.RequestsPerSecond)
	set(&cfg.RequestBurst, fc.Generate.Burst)
	set(&cfg.MaxRetries, fc.Generate.MaxRetries)
	set(&cfg.DefaultQuestionCount, fc.Generate.QuestionCount)
	set(&cfg.DefaultDifficulty, fc.Generate.Difficulty)
	if err := setDuration(&cfg.GenerateTimeout, "generate.timeout", fc.Generate.Timeout); err != nil {
		return err
	}

	set(&cfg.MaxUploadBytes, fc.Upload.MaxBytes)
	set(&cfg.MinExtractChars, fc.Upload.MinExtractChars)
	set(&cfg.PDFFallbackPdftotext, fc.Upload.PDFFallbackPdftotext)

	set(&cfg.BankDriver, fc.Bank.Driver)
	set(&cfg.BankPath, fc.Bank.Path)
	set(&cfg.BankDSN, fc.Bank.DSN)

	set(&cfg.SessionSecret, fc.HTTP.SessionSecret)
	if fc.HTTP.CORSOrigins != nil {
		cfg.CORSOrigins = fc.HTTP.CORSOrigins
	}
	set(&cfg.MaxQuizSessions, fc.HTTP.MaxQuizSessions)
	if err := setDuration(&cfg.QuizTTL, "http.quiz_ttl", fc.HTTP.QuizTTL); err != nil {
		return err
	}

	return setDuration(&cfg.JobTTL, "job_ttl", fc.JobTTL)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, key string, v *string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
