package outbound

import (
	"context"
	"errors"
	"fmt"
)

// ===== Text Generation Ports =====

// ErrEmptyCompletion is returned when the provider answers without text.
var ErrEmptyCompletion = errors.New("provider returned an empty completion")

// ErrProviderNotConfigured is returned when no API key is configured.
var ErrProviderNotConfigured = errors.New("text provider is not configured")

// ProviderError is a non-success response from the text provider.
type ProviderError struct {
	StatusCode int
	Body       string
	Err        error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider error (status %d): %s", e.StatusCode, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("provider error: %v", e.Err)
	}
	return "provider error"
}

// Unwrap returns the wrapped error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// CompletionOptions holds sampling parameters.
type CompletionOptions struct {
	MaxTokens   int
	Temperature float64
}

// TextProviderPort defines text generation.
type TextProviderPort interface {
	// Complete generates text for a single-turn prompt.
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
}
