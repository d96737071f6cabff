// Package textgen is the text-generation collaborator: provider clients for
// chat-style completion APIs plus retry, latency statistics and a disabled
// stand-in used when no provider is configured.
package textgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrDisabled is returned by the disabled client.
var ErrDisabled = errors.New("text generation is not configured")

// Request is one generation call.
type Request struct {
	Model  string
	Prompt string
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Disabled fails every request with ErrDisabled.
type Disabled struct{}

func (Disabled) Generate(context.Context, Request) (string, error) {
	return "", ErrDisabled
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("%s: retryable error (status %d): %s", e.Provider, e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
