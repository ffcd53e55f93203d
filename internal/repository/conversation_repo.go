package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/tkdhub/chatcore/internal/model"
	"gorm.io/gorm"
)

// ConversationRepository handles database operations for conversations and participants
type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create inserts a conversation and all of its participant rows in one transaction
func (r *ConversationRepository) Create(ctx context.Context, conv *model.Conversation, userIDs []int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Participants").Create(conv).Error; err != nil {
			return errors.Wrap(err, "convRepo.Create.InsertConversation")
		}

		parts := make([]model.ConversationParticipant, 0, len(userIDs))
		for _, id := range userIDs {
			parts = append(parts, model.ConversationParticipant{
				ConversationID: conv.ID,
				UserID:         id,
				LastReadAt:     model.NeverRead,
			})
		}
		if err := tx.Omit("User").Create(&parts).Error; err != nil {
			return errors.Wrap(err, "convRepo.Create.InsertParticipants")
		}
		conv.Participants = parts
		return nil
	})
}

// FindByID finds a conversation by ID
func (r *ConversationRepository) FindByID(ctx context.Context, id int64) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&conv).Error
	if err != nil {
		return nil, errors.Wrap(err, "convRepo.FindByID")
	}
	return &conv, nil
}

// FindByPairKey finds the 1:1 conversation of a user pair
func (r *ConversationRepository) FindByPairKey(ctx context.Context, pairKey string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.WithContext(ctx).
		Where("pair_key = ? AND is_group = ?", pairKey, false).
		First(&conv).Error
	if err != nil {
		return nil, errors.Wrap(err, "convRepo.FindByPairKey")
	}
	return &conv, nil
}

// IsParticipant is the single membership existence query
func (r *ConversationRepository) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "convRepo.IsParticipant")
	}
	return count > 0, nil
}

// OtherParticipantID returns the counterpart of userID in a 1:1 conversation
func (r *ConversationRepository) OtherParticipantID(ctx context.Context, conversationID, userID int64) (int64, bool, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&model.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id <> ?", conversationID, userID).
		Order("user_id").
		Limit(1).
		Pluck("user_id", &ids).Error
	if err != nil {
		return 0, false, errors.Wrap(err, "convRepo.OtherParticipantID")
	}
	if len(ids) == 0 {
		return 0, false, nil
	}
	return ids[0], true, nil
}

// ListParticipants batch-loads participants (with usernames) of several conversations
func (r *ConversationRepository) ListParticipants(ctx context.Context, conversationIDs []int64) ([]model.ConversationParticipant, error) {
	parts := []model.ConversationParticipant{}
	if len(conversationIDs) == 0 {
		return parts, nil
	}
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("conversation_id IN ?", conversationIDs).
		Order("conversation_id, user_id").
		Find(&parts).Error
	if err != nil {
		return nil, errors.Wrap(err, "convRepo.ListParticipants")
	}
	return parts, nil
}

// ListForUser returns the conversations a user participates in, newest first
func (r *ConversationRepository) ListForUser(ctx context.Context, userID int64) ([]model.Conversation, error) {
	conversations := []model.Conversation{}
	err := r.db.WithContext(ctx).
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id").
		Where("cp.user_id = ?", userID).
		Order("conversations.created_at DESC, conversations.id DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, errors.Wrap(err, "convRepo.ListForUser")
	}
	return conversations, nil
}

// MarkRead advances last_read_at to the database clock, never moving it
// backwards. It waits for in-flight message inserts of the conversation, so
// every message committed later is stamped after the new mark. It returns the
// stored value and false when the user is not a participant.
func (r *ConversationRepository) MarkRead(ctx context.Context, conversationID, userID int64) (time.Time, bool, error) {
	var row struct {
		LastReadAt time.Time
	}
	var found bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`SELECT id FROM conversations WHERE id = ? FOR UPDATE`, conversationID).Error; err != nil {
			return err
		}
		res := tx.Raw(`UPDATE conversation_participants
			SET last_read_at = GREATEST(last_read_at, clock_timestamp())
			WHERE conversation_id = ? AND user_id = ?
			RETURNING last_read_at`, conversationID, userID).Scan(&row)
		if res.Error != nil {
			return res.Error
		}
		found = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return time.Time{}, false, errors.Wrap(err, "convRepo.MarkRead")
	}
	return row.LastReadAt, found, nil
}

// Rename updates the display name of a group
func (r *ConversationRepository) Rename(ctx context.Context, conversationID int64, name string) error {
	err := r.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ? AND is_group = ?", conversationID, true).
		Update("name", name).Error
	return errors.Wrap(err, "convRepo.Rename")
}
