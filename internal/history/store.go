// Package history provides internal conversation memory per session.
// This package is internal and should not be imported by external projects.
package history

import (
	"context"

	"github.com/aerodesk-ai/aerodesk/types"
)

// Store keeps the recent messages of each session. Implementations cap
// retention at a configured message count; older turns are dropped.
type Store interface {
	// Append adds messages to the session's history.
	Append(ctx context.Context, sessionID string, messages ...types.Message) error

	// Recent returns up to limit most recent messages, oldest first.
	Recent(ctx context.Context, sessionID string, limit int) ([]types.Message, error)

	// Clear removes the session's history.
	Clear(ctx context.Context, sessionID string) error

	// Close releases any resources held by the store.
	Close() error
}
