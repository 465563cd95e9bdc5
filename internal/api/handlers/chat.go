package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/api/middleware"
	"github.com/dvloznov/finance-assistant/internal/assistant"
)

// ChatHandler handles the consumer-facing chat endpoint.
type ChatHandler struct {
	assistant *assistant.Assistant
	log       zerolog.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(a *assistant.Assistant, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{assistant: a, log: log}
}

// Chat handles POST /api/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message        string `json:"message"`
		ConversationID string `json:"conversation_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Message is required")
		return
	}
	// A missing conversation id starts a fresh conversation; the id is
	// echoed back so the client can continue it.
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	resp, err := h.assistant.HandleMessage(r.Context(), req.ConversationID, req.Message)
	if err != nil {
		h.log.Error().Err(err).Str("conversation_id", req.ConversationID).Msg("Failed to process message")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to process message")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"conversation_id":  req.ConversationID,
		"response":         resp.Response,
		"action":           resp.Action,
		"functions_called": resp.FunctionsCalled,
		"steps_executed":   resp.StepsExecuted,
	})
}
