package ai

import (
	"context"
	"fmt"
	"strings"
)

type completerChain struct {
	primary  Completer
	fallback Completer
}

// WithFallback returns a completer that first tries the primary implementation and
// falls back to the provided completer when the primary is unavailable, fails or
// produces an empty reply.
func WithFallback(primary, fallback Completer) Completer {
	if primary == nil {
		return fallback
	}
	if fallback == nil {
		return primary
	}
	return &completerChain{primary: primary, fallback: fallback}
}

func (c *completerChain) Enabled() bool {
	if c == nil {
		return false
	}
	if c.primary != nil && c.primary.Enabled() {
		return true
	}
	if c.fallback != nil && c.fallback.Enabled() {
		return true
	}
	return false
}

func (c *completerChain) Complete(ctx context.Context, prompt string) (string, error) {
	if c == nil {
		return "", ErrDisabled
	}
	var primaryErr error
	if c.primary != nil && c.primary.Enabled() {
		content, err := c.primary.Complete(ctx, prompt)
		if err == nil && strings.TrimSpace(content) != "" {
			return content, nil
		}
		primaryErr = err
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if c.fallback != nil && c.fallback.Enabled() {
		content, err := c.fallback.Complete(ctx, prompt)
		if err != nil && primaryErr != nil {
			return "", fmt.Errorf("fallback: %w (primary: %v)", err, primaryErr)
		}
		return content, err
	}
	if primaryErr != nil {
		return "", primaryErr
	}
	return "", ErrDisabled
}
