// Package generate asks a chat-completion model for one multiple-choice
// question per text unit.
package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/dgallion1/docquiz/internal/chunker"
	"github.com/dgallion1/docquiz/internal/question"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4.1-mini"

// Options configures a Client.
type Options struct {
	APIKey            string
	Model             string
	BaseURL           string  // Empty uses the OpenAI default.
	RequestsPerSecond float64 // <= 0 disables rate limiting.
	Burst             int
	Stats             *LLMStats // Optional latency sink.
	Logger            *slog.Logger
}

// Client generates questions through the OpenAI chat completions API with a
// strict JSON schema response format.
type Client struct {
	api        *openai.Client
	httpClient *http.Client
	model      string
	limiter    *rate.Limiter
	stats      *LLMStats
	log        *slog.Logger
}

func NewClient(opts Options) *Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	httpClient := &http.Client{Timeout: 120 * time.Second}
	cfg.HTTPClient = httpClient

	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), max(opts.Burst, 1))
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		api:        openai.NewClientWithConfig(cfg),
		httpClient: httpClient,
		model:      model,
		limiter:    limiter,
		stats:      opts.Stats,
		log:        log.With("component", "generate"),
	}
}

// Model returns the model name requests are sent to.
func (c *Client) Model() string { return c.model }

// Stats returns the latency sink passed in Options, or nil.
func (c *Client) Stats() *LLMStats { return c.stats }

// Generate requests one question for unit. The returned record is trimmed but
// not validated; callers validate before accepting it.
func (c *Client) Generate(ctx context.Context, unit chunker.TextUnit, difficulty question.Difficulty) (*question.Question, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: UserPrompt(difficulty, unit.Text)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   SchemaName,
				Schema: QuestionSchema(),
				Strict: true,
			},
		},
	})
	elapsed := time.Since(start)
	if c.stats != nil {
		c.stats.Record(elapsed.Milliseconds())
	}
	if err != nil {
		return nil, classify(err)
	}

	c.log.Debug("completion received",
		"source", unit.Source,
		"unit", unit.Index,
		"prompt_tokens", resp.Usage.PromptTokens,
		"estimated_tokens", chunker.EstimateTokens(unit.Text),
		"ms", elapsed.Milliseconds(),
	)

	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return nil, fmt.Errorf("model refused: %s", truncate(msg.Refusal, 200))
	}
	content := stripCodeBlock(msg.Content)
	if content == "" || content == "null" {
		return nil, ErrEmptyResponse
	}

	var q question.Question
	if err := json.Unmarshal([]byte(content), &q); err != nil {
		return nil, fmt.Errorf("decode question json: %w (raw: %s)", err, truncate(content, 200))
	}
	question.Normalize(&q)
	q.Source = unit.Source
	return &q, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// stripCodeBlock removes a markdown fence some models wrap JSON in.
func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}
