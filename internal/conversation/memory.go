// Package conversation keeps the per-conversation message log: append-only,
// bounded, persisted through the key-value store.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/store"
)

// DefaultRecentTurns is how many trailing messages the prompt assembler
// pulls into the model context.
const DefaultRecentTurns = 5

// Memory reads and writes conversation logs. Conversations are created
// lazily on first append and removed entirely by Clear; there is no
// tombstone.
type Memory struct {
	kv store.KV
}

// NewMemory creates a conversation memory over the given KV backend.
func NewMemory(kv store.KV) *Memory {
	return &Memory{kv: kv}
}

func key(conversationID string) string {
	return store.ConversationKeyPrefix + conversationID
}

// Append adds one message to the conversation, evicting the oldest entries
// beyond the 50-message cap.
func (m *Memory) Append(ctx context.Context, conversationID string, msg domain.ConversationMessage) error {
	if conversationID == "" {
		return fmt.Errorf("conversation: missing conversation id")
	}

	return store.Update(ctx, m.kv, key(conversationID), func(old []byte) ([]byte, error) {
		conv := domain.Conversation{ID: conversationID}
		if old != nil {
			if err := json.Unmarshal(old, &conv); err != nil {
				return nil, fmt.Errorf("conversation %s: decode: %w", conversationID, err)
			}
		}

		conv.Messages = append(conv.Messages, msg)
		if overflow := len(conv.Messages) - domain.MaxConversationMessages; overflow > 0 {
			conv.Messages = conv.Messages[overflow:]
		}
		return json.Marshal(conv)
	})
}

// History returns the full stored message list for a conversation. A
// conversation that has never been written yields an empty history.
func (m *Memory) History(ctx context.Context, conversationID string) ([]domain.ConversationMessage, error) {
	data, _, err := m.kv.Get(ctx, key(conversationID))
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("conversation %s: %w", conversationID, err)
	}

	var conv domain.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("conversation %s: decode: %w", conversationID, err)
	}
	return conv.Messages, nil
}

// Recent returns the most recent k messages (DefaultRecentTurns when k <= 0).
func (m *Memory) Recent(ctx context.Context, conversationID string, k int) ([]domain.ConversationMessage, error) {
	if k <= 0 {
		k = DefaultRecentTurns
	}

	messages, err := m.History(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if len(messages) > k {
		messages = messages[len(messages)-k:]
	}
	return messages, nil
}

// Clear removes a conversation entirely.
func (m *Memory) Clear(ctx context.Context, conversationID string) error {
	return m.kv.Delete(ctx, key(conversationID))
}
