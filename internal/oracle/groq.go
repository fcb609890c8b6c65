package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sony/gobreaker"

	"github.com/i474232898/livability/internal/resilience"
)

const (
	DefaultGroqURL   = "https://api.groq.com/openai/v1"
	DefaultGroqModel = "llama-3.3-70b-versatile"
)

// Groq calls the Groq OpenAI-compatible chat completions API.
type Groq struct {
	baseURL string
	apiKey  string
	model   string
	cfg     resilience.HTTPClientConfig
	cb      *gobreaker.CircuitBreaker
}

// NewGroq creates a new Groq oracle.
func NewGroq(baseURL, apiKey, model string, client *http.Client) *Groq {
	if baseURL == "" {
		baseURL = DefaultGroqURL
	}
	if model == "" {
		model = DefaultGroqModel
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Groq{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		cfg: resilience.HTTPClientConfig{
			Client:  client,
			Backoff: resilience.DefaultBackoff,
		},
		cb: resilience.NewBreaker("groq"),
	}
}

// WithBackoff overrides the retry policy.
func (g *Groq) WithBackoff(b resilience.BackoffConfig) *Groq {
	g.cfg.Backoff = b
	return g
}

func (*Groq) Name() string { return "groq" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends one system and one user message and returns the first
// choice's content.
func (g *Groq) Complete(ctx context.Context, system, user string) (string, error) {
	if g.apiKey == "" {
		return "", eris.New("groq: api key not configured")
	}

	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "groq: marshal request")
	}

	resp, err := resilience.Do(ctx, g.cfg, g.cb, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return "", eris.Wrap(err, "groq: chat completion")
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", eris.Wrap(err, "groq: decode response")
	}
	if len(out.Choices) == 0 {
		return "", eris.New("groq: response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}
