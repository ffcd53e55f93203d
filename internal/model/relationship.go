package model

import "time"

// Block is an ordered (blocker, blocked) pair. The symmetric predicate is derived.
type Block struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	BlockerID int64     `json:"blocker_id" gorm:"uniqueIndex:idx_block_pair;not null"`
	BlockedID int64     `json:"blocked_id" gorm:"uniqueIndex:idx_block_pair;index;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// Friendship is stored once per pair with User1ID < User2ID
type Friendship struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	User1ID   int64     `json:"user1_id" gorm:"uniqueIndex:idx_friend_pair;not null"`
	User2ID   int64     `json:"user2_id" gorm:"uniqueIndex:idx_friend_pair;index;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizePair orders two user ids so the smaller comes first
func NormalizePair(a, b int64) (int64, int64) {
	if a < b {
		return a, b
	}
	return b, a
}

// FriendRequestStatus is the state of a friend request
type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "PENDING"
	FriendRequestAccepted FriendRequestStatus = "ACCEPTED"
	FriendRequestRejected FriendRequestStatus = "REJECTED"
	FriendRequestCanceled FriendRequestStatus = "CANCELED"
)

// FriendRequest is the request whose acceptance creates a Friendship
type FriendRequest struct {
	ID         int64               `json:"id" gorm:"primaryKey"`
	FromUserID int64               `json:"from" gorm:"not null;index"`
	ToUserID   int64               `json:"to" gorm:"not null;index"`
	Status     FriendRequestStatus `json:"status" gorm:"type:varchar(10);not null;default:'PENDING'"`
	Message    string              `json:"message" gorm:"size:255;not null;default:''"`
	CreatedAt  time.Time           `json:"created_at"`
	DecidedAt  *time.Time          `json:"decided_at,omitempty"`
}
