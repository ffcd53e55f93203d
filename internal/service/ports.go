package service

import (
	"context"
	"time"

	"github.com/tkdhub/chatcore/internal/model"
	"github.com/tkdhub/chatcore/internal/repository"
)

// The stores below are satisfied by the gorm repositories; tests use in-memory fakes.

type ConversationStore interface {
	Create(ctx context.Context, conv *model.Conversation, userIDs []int64) error
	FindByID(ctx context.Context, id int64) (*model.Conversation, error)
	FindByPairKey(ctx context.Context, pairKey string) (*model.Conversation, error)
	IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error)
	OtherParticipantID(ctx context.Context, conversationID, userID int64) (int64, bool, error)
	ListParticipants(ctx context.Context, conversationIDs []int64) ([]model.ConversationParticipant, error)
	ListForUser(ctx context.Context, userID int64) ([]model.Conversation, error)
	MarkRead(ctx context.Context, conversationID, userID int64) (time.Time, bool, error)
	Rename(ctx context.Context, conversationID int64, name string) error
}

type MessageStore interface {
	Create(ctx context.Context, msg *model.Message) error
	FindByID(ctx context.Context, id int64) (*model.Message, error)
	ListPage(ctx context.Context, conversationID int64, cursor *repository.Cursor, limit int) ([]model.Message, error)
	LastMessages(ctx context.Context, conversationIDs []int64) (map[int64]*model.Message, error)
	CountUnread(ctx context.Context, conversationIDs []int64, userID int64) (map[int64]int64, error)
	SoftDelete(ctx context.Context, id int64) error
}

type RelationshipStore interface {
	IsEitherBlocking(ctx context.Context, a, b int64) (bool, error)
	AreFriends(ctx context.Context, a, b int64) (bool, error)
	CreateBlock(ctx context.Context, blockerID, blockedID int64) error
	DeleteBlock(ctx context.Context, blockerID, blockedID int64) error
	AcceptFriendRequest(ctx context.Context, requestID, actorID int64) (*model.Friendship, error)
}

type UserStore interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
	ExistingIDs(ctx context.Context, ids []int64) ([]int64, error)
}

// Publisher fans an event out to every connection subscribed to a group
type Publisher interface {
	Publish(ctx context.Context, group string, event any) error
}

var (
	_ ConversationStore = (*repository.ConversationRepository)(nil)
	_ MessageStore      = (*repository.MessageRepository)(nil)
	_ RelationshipStore = (*repository.RelationshipRepository)(nil)
	_ UserStore         = (*repository.UserRepository)(nil)
)
