package providers

import (
	"context"
	"os"
)

// Config represents the configuration for an LLM provider
type Config struct {
	Model       string
	Temperature float64
	Prompt      string
	// Images are raw page images sent alongside the prompt
	Images [][]byte
}

// Provider defines the interface for an LLM provider
type Provider interface {
	ExtractText(ctx context.Context, config Config) (string, error)
}

// DefaultModel returns the model used when a producer names none. The
// provider's *_MODEL environment variable wins over the built-in default.
func DefaultModel(provider string) string {
	var env, fallback string
	switch provider {
	case "ollama":
		env, fallback = "OLLAMA_MODEL", "mistral-small3.2:24b"
	case "openai":
		env, fallback = "OPENAI_MODEL", "gpt-4o"
	case "gemini":
		env, fallback = "GEMINI_MODEL", "gemini-2.5-flash"
	default:
		return ""
	}
	if model := os.Getenv(env); model != "" {
		return model
	}
	return fallback
}
