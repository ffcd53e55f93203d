package model

import "time"

// ========== Conversation DTOs ==========

type CreateConversationRequest struct {
	IsGroup bool    `json:"is_group"`
	Name    string  `json:"name"` // required for group
	Users   []int64 `json:"users" binding:"required,min=1,dive,min=1"`
}

type RenameConversationRequest struct {
	Name string `json:"name" binding:"required,max=200"`
}

// ParticipantResponse is the read progress of one participant
type ParticipantResponse struct {
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username"`
	LastReadAt time.Time `json:"last_read_at"`
}

type ConversationResponse struct {
	ID           int64                 `json:"id"`
	Name         string                `json:"name"`
	IsGroup      bool                  `json:"is_group"`
	CreatedAt    time.Time             `json:"created_at"`
	Participants []ParticipantResponse `json:"participants"`
	LastMessage  *MessageResponse      `json:"last_message"`
	UnreadCount  int64                 `json:"unread_count"`
}

type ReadResponse struct {
	Status     string    `json:"status"`
	LastReadAt time.Time `json:"last_read_at"`
}

// ========== Message DTOs ==========

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type MessageListRequest struct {
	Cursor   string `form:"cursor"`
	PageSize int    `form:"page_size"`
}

type SenderRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type MessageResponse struct {
	ID        int64      `json:"id"`
	Content   string     `json:"content"`
	Sender    SenderRef  `json:"sender"`
	CreatedAt time.Time  `json:"created_at"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
}

type MessagePage struct {
	Results    []MessageResponse `json:"results"`
	NextCursor *string           `json:"next_cursor"`
}

// ========== Relationship DTOs ==========

type RelationshipResponse struct {
	UserID  int64 `json:"user_id"`
	Blocked bool  `json:"blocked"`
	Friends bool  `json:"friends"`
}

type FriendshipResponse struct {
	FriendshipID int64 `json:"friendship_id"`
	User1        int64 `json:"user1"`
	User2        int64 `json:"user2"`
}

// ========== Common ==========

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
