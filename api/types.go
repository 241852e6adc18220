// Package api defines the request and response shapes of the HTTP
// surface.
package api

import (
	"time"

	"github.com/aerodesk-ai/aerodesk/types"
)

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	// SessionID groups turns into one conversation. Optional; without
	// it no conversation memory is kept.
	SessionID string `json:"session_id,omitempty"`
	// Query is the user's question.
	Query string `json:"query"`
}

// ChatResponse is the answer payload.
type ChatResponse struct {
	Answer     string                       `json:"answer"`
	Intent     types.IntentLabel            `json:"intent"`
	Grounded   bool                         `json:"grounded"`
	Citations  []types.Citation             `json:"citations,omitempty"`
	Confidence map[types.SourceType]float64 `json:"confidence,omitempty"`
	Trace      types.RouteTrace             `json:"trace"`
	CreatedAt  time.Time                    `json:"created_at"`
}
