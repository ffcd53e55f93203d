package model

import "time"

// Message is a persisted chat message. Listing order is (created_at desc, id desc).
type Message struct {
	ID             int64      `json:"id" gorm:"primaryKey"`
	ConversationID int64      `json:"conversation_id" gorm:"not null;index:idx_messages_listing,priority:1"`
	SenderID       int64      `json:"sender_id" gorm:"not null;index"`
	Content        string     `json:"content" gorm:"type:text;not null;default:''"`
	CreatedAt      time.Time  `json:"created_at" gorm:"not null;index:idx_messages_listing,priority:2,sort:desc"`
	EditedAt       *time.Time `json:"edited_at,omitempty"`
	IsDeleted      bool       `json:"is_deleted" gorm:"not null;default:false"`

	// Relations
	Sender User `json:"-" gorm:"foreignKey:SenderID"`
}

// ToResponse renders the message payload shared by REST and realtime
func (m *Message) ToResponse() MessageResponse {
	return MessageResponse{
		ID:      m.ID,
		Content: m.Content,
		Sender: SenderRef{
			ID:       m.SenderID,
			Username: m.Sender.Username,
		},
		CreatedAt: m.CreatedAt,
		EditedAt:  m.EditedAt,
	}
}
