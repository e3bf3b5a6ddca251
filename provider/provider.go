package provider

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mohammad-safakhou/voyager/config"
	openai_provider "github.com/mohammad-safakhou/voyager/provider/openai"
)

// Provider is the interface the extraction agent and the trip-brief
// summarizer talk to. Implementations are expected to be safe for
// concurrent use.
type Provider interface {
	// Complete sends a system instruction plus a user prompt and returns
	// the raw model output.
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// NewProvider creates an LLM provider from configuration. Only OpenAI is
// implemented for now; the type switch keeps the call sites stable when
// more providers land.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case "openai", "":
		return openai_provider.NewClient(cfg.APIKey, cfg.Model, cfg.Temperature, cfg.MaxTokens, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown llm provider type: %q", cfg.Type)
	}
}
