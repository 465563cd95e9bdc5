package domain

import "time"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationMessage is one turn in a conversation.
type ConversationMessage struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is an ordered message log keyed by conversation id.
// It holds at most MaxConversationMessages entries; the oldest are
// evicted first.
type Conversation struct {
	ID       string                `json:"id"`
	Messages []ConversationMessage `json:"messages"`
}

// MaxConversationMessages bounds a conversation's stored history.
// There is no summarization; older turns are simply dropped.
const MaxConversationMessages = 50
