package ai

import (
	"context"

	"github.com/tripweaver/tripweaver/core"
)

// Client is the interface for completion clients.
// This re-exports the core interface for convenience.
type Client interface {
	GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error)
}

// Ensure OpenAIClient implements Client
var _ Client = (*OpenAIClient)(nil)
