package ai

import (
	"context"
	"errors"
	"time"
)

// Completer sends a single prompt to a hosted language model and returns the
// raw text of its reply.
type Completer interface {
	Enabled() bool
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config holds language model provider settings.
type Config struct {
	Provider    string // huggingface|openai|gemini
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	HTTPTimeout time.Duration
}

// Supported providers.
const (
	ProviderHuggingFace = "huggingface"
	ProviderOpenAI      = "openai"
	ProviderGemini      = "gemini"
)

var (
	ErrDisabled = errors.New("ai completer disabled")
	ErrTimeout  = errors.New("ai completion timed out")
)

// RawRisk is one item of the JSON array the model is asked to produce.
type RawRisk struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Severity       string `json:"severity"`
	Recommendation string `json:"recommendation"`
	Quote          string `json:"quote"`
}
