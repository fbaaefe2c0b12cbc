package model

import (
	"context"
	"errors"
	"fmt"

	ctxpkg "github.com/stupiduntilnot/studbot/internal/context"
)

// Request is one completion call. JSON asks the provider for a JSON object
// response when the backend supports it.
type Request struct {
	Messages []ctxpkg.Message
	JSON     bool
}

// CompletionResponse is the common response model for model providers.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
}

// Provider is the text-completion service abstraction.
type Provider interface {
	ChatCompletion(ctx context.Context, req Request) (CompletionResponse, error)
}

// CompletionError reports that the completion service failed or timed out.
type CompletionError struct {
	Provider string
	Timeout  bool
	Cause    error
}

func (e *CompletionError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s completion timed out: %v", e.Provider, e.Cause)
	}
	return fmt.Sprintf("%s completion failed: %v", e.Provider, e.Cause)
}

func (e *CompletionError) Unwrap() error { return e.Cause }

// AsCompletionError normalizes err into a *CompletionError, marking context
// deadline errors as timeouts.
func AsCompletionError(provider string, err error) *CompletionError {
	if err == nil {
		return nil
	}
	var ce *CompletionError
	if errors.As(err, &ce) {
		return ce
	}
	return &CompletionError{
		Provider: provider,
		Timeout:  errors.Is(err, context.DeadlineExceeded),
		Cause:    err,
	}
}
