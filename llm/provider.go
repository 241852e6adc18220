// Package llm provides the chat completion boundary. The completion
// service is treated as opaque text-in text-out with no determinism
// guarantees; retries and error classification happen at this layer.
package llm

import (
	"context"

	"github.com/aerodesk-ai/aerodesk/types"
)

// Provider generates a completion for a message sequence.
type Provider interface {
	Complete(ctx context.Context, messages []types.Message) (string, error)
}
