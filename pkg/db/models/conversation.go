package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation is a direct-message thread between exactly two users. The
// pair is stored normalized (UserAID < UserBID by string comparison) so the
// unique index enforces at most one conversation per unordered pair.
type Conversation struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserAID       uuid.UUID  `gorm:"column:user_a_id;type:uuid;not null;uniqueIndex:idx_conversation_pair" json:"user_a_id"`
	UserBID       uuid.UUID  `gorm:"column:user_b_id;type:uuid;not null;uniqueIndex:idx_conversation_pair" json:"user_b_id"`
	LastMessage   *string    `gorm:"column:last_message" json:"last_message,omitempty"`
	LastMessageAt *time.Time `gorm:"column:last_message_at" json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// HasParticipant reports whether userID is one of the two participants.
func (c Conversation) HasParticipant(userID uuid.UUID) bool {
	return c.UserAID == userID || c.UserBID == userID
}

// OtherParticipant returns the counterpart of userID, or uuid.Nil when
// userID is not a participant.
func (c Conversation) OtherParticipant(userID uuid.UUID) uuid.UUID {
	switch userID {
	case c.UserAID:
		return c.UserBID
	case c.UserBID:
		return c.UserAID
	}
	return uuid.Nil
}

// NormalizePair orders two user ids into the canonical storage order.
func NormalizePair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() > b.String() {
		return b, a
	}
	return a, b
}
