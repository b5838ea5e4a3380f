// Package openai implements the analysis.Analyzer capability against an
// OpenAI-compatible chat completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bissquit/incident-triage/internal/analysis"
	"golang.org/x/time/rate"
)

const systemPrompt = `You are an SRE incident analyst. Analyze the reported incident and respond with a single JSON object, no prose, using exactly these keys:
"summary" (short technical description),
"root_causes" (array; each element is either a string or an object with "cause", "likelihood" (high/medium/low), "reasoning", "components" (array of strings)),
"customer_message" (customer-facing status text),
"action_items" (array; each element is either a string or an object with "priority" (high/medium/low), "action", "owner", "command"),
"suggested_severity" (low/medium/high/critical),
"severity_justification" (string),
"similar_patterns" (array of strings),
"preventive_measures" (array of strings).`

// Client errors.
var (
	ErrMissingAPIKey = errors.New("openai: missing api key")
	ErrNoChoices     = errors.New("openai: response contains no choices")
)

// Config contains OpenAI client configuration.
type Config struct {
	BaseURL           string
	APIKey            string
	Model             string
	Timeout           time.Duration
	MaxTokens         int
	RequestsPerMinute int
}

// Client calls an OpenAI-compatible chat completions API.
type Client struct {
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
	http      *http.Client
	limiter   *rate.Limiter
}

// NewClient creates a new OpenAI client.
func NewClient(cfg Config) *Client {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	return &Client{
		baseURL:   baseURL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		http:      &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Analyze implements analysis.Analyzer. Any error it returns is absorbed
// by the normalizer's fallback branch and never fails incident creation.
func (c *Client) Analyze(ctx context.Context, req analysis.Request) (*analysis.RawAnalysis, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, ErrMissingAPIKey
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	userPrompt := fmt.Sprintf("Title: %s\nDeclared severity: %s\nDescription: %s",
		req.Title, req.Severity, req.Description)

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.2,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call openai: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai status=%d", resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return nil, ErrNoChoices
	}

	var raw analysis.RawAnalysis
	content := stripCodeFence(out.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("parse analysis json: %w", err)
	}
	raw.TokensUsed = out.Usage.TotalTokens

	slog.Debug("incident analysis completed",
		"model", c.model,
		"tokens", raw.TokensUsed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &raw, nil
}

// stripCodeFence removes a surrounding markdown code fence. Models return
// fenced JSON often enough that parsing the content directly would fail.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
