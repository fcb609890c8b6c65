// Package oracle adapts LLM providers to the scoring oracle interface.
package oracle

import (
	"context"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/i474232898/livability/internal/livability"
)

// Provider names accepted by New.
const (
	ProviderGroq      = "groq"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Config selects and configures one provider.
type Config struct {
	Provider string

	GroqURL   string
	GroqKey   string
	GroqModel string

	AnthropicKey   string
	AnthropicModel string

	GeminiKey   string
	GeminiModel string

	HTTPClient *http.Client
}

// New builds the configured oracle.
func New(ctx context.Context, cfg Config) (livability.Oracle, error) {
	switch cfg.Provider {
	case "", ProviderGroq:
		return NewGroq(cfg.GroqURL, cfg.GroqKey, cfg.GroqModel, cfg.HTTPClient), nil
	case ProviderAnthropic:
		if cfg.AnthropicKey == "" {
			return nil, eris.New("oracle: anthropic key is required")
		}
		return NewAnthropic(cfg.AnthropicKey, cfg.AnthropicModel), nil
	case ProviderGemini:
		return NewGemini(ctx, cfg.GeminiKey, cfg.GeminiModel)
	default:
		return nil, eris.Errorf("oracle: unknown provider %q", cfg.Provider)
	}
}
