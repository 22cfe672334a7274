package chat

import (
	"time"

	"github.com/google/uuid"
)

// Participant is the counterpart shown on a conversation summary.
type Participant struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"displayName"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
}

// ConversationView is a conversation summary for the caller: their
// counterpart, the latest message preview and the derived unread count.
type ConversationView struct {
	ID            uuid.UUID   `json:"id"`
	Counterpart   Participant `json:"counterpart"`
	LastMessage   string      `json:"lastMessage,omitempty"`
	LastMessageAt *time.Time  `json:"lastMessageAt,omitempty"`
	UnreadCount   int64       `json:"unreadCount"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// StartConversationInput opens (or returns) the thread with another user.
type StartConversationInput struct {
	UserID uuid.UUID `json:"userId" validate:"required"`
}

// SendMessageInput carries a new message over HTTP or websocket. Ref is the
// client correlation id of the originating frame; it is echoed on the
// messageSent push and never read from the payload body.
type SendMessageInput struct {
	ConversationID uuid.UUID `json:"conversationId" validate:"required"`
	Content        string    `json:"content" validate:"required,max=2000"`
	Ref            string    `json:"-"`
}

// MessagesReadPayload is pushed to the counterpart after a bulk mark-read.
type MessagesReadPayload struct {
	ConversationID uuid.UUID `json:"conversationId"`
	ReaderID       uuid.UUID `json:"readerId"`
	Count          int64     `json:"count"`
}

// TypingPayload is relayed to the counterpart; it is never persisted.
type TypingPayload struct {
	ConversationID uuid.UUID `json:"conversationId"`
	UserID         uuid.UUID `json:"userId"`
	IsTyping       bool      `json:"isTyping"`
}
