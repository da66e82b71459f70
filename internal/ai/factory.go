package ai

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// NewCompleter builds the completer for cfg.Provider. An empty provider means
// Hugging Face. Without an API key it returns ErrDisabled and a nil Completer.
func NewCompleter(ctx context.Context, cfg Config) (Completer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderHuggingFace, ProviderOpenAI:
		client, err := NewClient(cfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	case ProviderGemini:
		client, err := NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}
}

// APIKeyFromEnv returns the API key conventionally exported for provider.
func APIKeyFromEnv(provider string) string {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderOpenAI:
		return firstEnv("OPENAI_API_KEY")
	case ProviderGemini:
		return firstEnv("GEMINI_API_KEY")
	default:
		return firstEnv("HUGGINGFACE_API_KEY", "HF_API_KEY")
	}
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}
