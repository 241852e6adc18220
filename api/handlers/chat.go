package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/aerodesk-ai/aerodesk/api"
	"github.com/aerodesk-ai/aerodesk/chat"
	"github.com/aerodesk-ai/aerodesk/types"
)

// maxQueryLength bounds user input before it reaches the pipeline.
const maxQueryLength = 4000

// ChatHandler serves the query-in/answer-out exchange.
type ChatHandler struct {
	engine *chat.Engine
	logger *zap.Logger
}

// NewChatHandler creates the chat handler.
func NewChatHandler(engine *chat.Engine, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{
		engine: engine,
		logger: logger.With(zap.String("component", "chat_handler")),
	}
}

// HandleChat handles POST /api/v1/chat.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest,
			"method not allowed", h.logger)
		return
	}

	var req api.ChatRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"query must not be empty", h.logger)
		return
	}
	if len(query) > maxQueryLength {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"query too long", h.logger)
		return
	}

	ans, trace, err := h.engine.Ask(r.Context(), types.Query{
		SessionID: req.SessionID,
		Text:      query,
	})
	if err != nil {
		if e, ok := err.(*types.Error); ok {
			WriteError(w, e, h.logger)
			return
		}
		WriteErrorMessage(w, http.StatusInternalServerError, types.ErrInternalError,
			"unable to answer", h.logger)
		return
	}

	WriteSuccess(w, api.ChatResponse{
		Answer:     ans.Text,
		Intent:     ans.Intent,
		Grounded:   ans.Grounded,
		Citations:  ans.Citations,
		Confidence: ans.Confidence,
		Trace:      trace,
		CreatedAt:  ans.CreatedAt,
	})
}
