package model

import (
	"fmt"
	"time"
)

// Conversation is a chat thread, either 1:1 or group
type Conversation struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:200;not null;default:''"` // groups only
	IsGroup   bool      `json:"is_group" gorm:"not null;default:false"`
	PairKey   *string   `json:"-" gorm:"size:64;uniqueIndex"` // NULL for groups
	CreatedAt time.Time `json:"created_at"`

	// Relations
	Participants []ConversationParticipant `json:"-" gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

// ConversationParticipant binds a user to a conversation with read progress
type ConversationParticipant struct {
	ID             int64     `json:"id" gorm:"primaryKey"`
	ConversationID int64     `json:"conversation_id" gorm:"uniqueIndex:idx_conv_user;not null"`
	UserID         int64     `json:"user_id" gorm:"uniqueIndex:idx_conv_user;index;not null"`
	JoinedAt       time.Time `json:"joined_at" gorm:"autoCreateTime"`
	LastReadAt     time.Time `json:"last_read_at" gorm:"not null"` // zero time = never read

	// Relations
	User User `json:"-" gorm:"foreignKey:UserID"`
}

// MaxConversationNameLength matches conversations.name VARCHAR(200), counted in characters
const MaxConversationNameLength = 200

// NeverRead is the last_read_at of a participant who never marked a conversation read
var NeverRead = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)

// PairKey returns the canonical dedup key of an unordered user pair, e.g. "3:7"
func PairKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// GroupName is the broadcast group of a conversation
func GroupName(conversationID int64) string {
	return fmt.Sprintf("conv_%d", conversationID)
}
