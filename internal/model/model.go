package model

import (
	"context"
	"errors"

	ctxpkg "github.com/stupiduntilnot/notesassist/internal/context"
)

// ErrEmptyResponse is returned by providers when the service answered
// without any text content.
var ErrEmptyResponse = errors.New("empty model response")

// CompletionResponse is the common response model for model providers.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
}

// Provider sends an alternating user/assistant message list, together with
// the provider's fixed system instruction, and returns the reply text.
type Provider interface {
	Name() string
	ChatCompletion(ctx context.Context, messages []ctxpkg.Message) (CompletionResponse, error)
}
