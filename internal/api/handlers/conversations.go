package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/api/middleware"
	"github.com/dvloznov/finance-assistant/internal/conversation"
)

// ConversationsHandler exposes conversation inspection and deletion.
type ConversationsHandler struct {
	memory *conversation.Memory
	log    zerolog.Logger
}

// NewConversationsHandler creates a new conversations handler.
func NewConversationsHandler(memory *conversation.Memory, log zerolog.Logger) *ConversationsHandler {
	return &ConversationsHandler{memory: memory, log: log}
}

// History handles GET /api/conversations/{id}
func (h *ConversationsHandler) History(w http.ResponseWriter, r *http.Request, conversationID string) {
	messages, err := h.memory.History(r.Context(), conversationID)
	if err != nil {
		h.log.Error().Err(err).Str("conversation_id", conversationID).Msg("Failed to load conversation")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load conversation")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"conversation_id": conversationID,
		"messages":        messages,
		"count":           len(messages),
	})
}

// Clear handles DELETE /api/conversations/{id}
func (h *ConversationsHandler) Clear(w http.ResponseWriter, r *http.Request, conversationID string) {
	if err := h.memory.Clear(r.Context(), conversationID); err != nil {
		h.log.Error().Err(err).Str("conversation_id", conversationID).Msg("Failed to clear conversation")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to clear conversation")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"conversation_id": conversationID,
		"status":          "cleared",
	})
}
