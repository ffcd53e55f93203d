package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/tkdhub/chatcore/internal/model"
	"gorm.io/gorm"
)

// MessageRepository handles database operations for Message
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts a new message and loads its sender. created_at comes from
// the database clock, strictly after every read mark already stored for the
// conversation, so a message is never hidden by a read that preceded it.
func (r *MessageRepository) Create(ctx context.Context, msg *model.Message) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// shared with other senders, exclusive against MarkRead
		if err := tx.Exec(`SELECT id FROM conversations WHERE id = ? FOR SHARE`, msg.ConversationID).Error; err != nil {
			return err
		}

		var stamp time.Time
		if err := tx.Raw(`SELECT GREATEST(
				clock_timestamp(),
				COALESCE((SELECT max(last_read_at) FROM conversation_participants WHERE conversation_id = ?), '-infinity')
					+ interval '1 microsecond')`, msg.ConversationID).
			Scan(&stamp).Error; err != nil {
			return err
		}
		msg.CreatedAt = stamp.UTC()

		if err := tx.Omit("Sender").Create(msg).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", msg.SenderID).First(&msg.Sender).Error
	})
	return errors.Wrap(err, "msgRepo.Create")
}

// FindByID finds a message by ID
func (r *MessageRepository) FindByID(ctx context.Context, id int64) (*model.Message, error) {
	var msg model.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("id = ?", id).
		First(&msg).Error
	if err != nil {
		return nil, errors.Wrap(err, "msgRepo.FindByID")
	}
	return &msg, nil
}

// ListPage returns up to limit visible messages strictly older than cursor,
// ordered (created_at desc, id desc)
func (r *MessageRepository) ListPage(ctx context.Context, conversationID int64, cursor *Cursor, limit int) ([]model.Message, error) {
	messages := []model.Message{}
	query := r.db.WithContext(ctx).
		Preload("Sender").
		Where("conversation_id = ? AND is_deleted = ?", conversationID, false)

	if cursor != nil {
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, errors.Wrap(err, "msgRepo.ListPage")
	}
	return messages, nil
}

// LastMessages returns the newest visible message of each conversation, keyed by conversation id
func (r *MessageRepository) LastMessages(ctx context.Context, conversationIDs []int64) (map[int64]*model.Message, error) {
	result := make(map[int64]*model.Message, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return result, nil
	}

	latest := r.db.Model(&model.Message{}).
		Select("DISTINCT ON (conversation_id) id").
		Where("conversation_id IN ? AND is_deleted = ?", conversationIDs, false).
		Order("conversation_id, created_at DESC, id DESC")

	var messages []model.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("id IN (?)", latest).
		Find(&messages).Error
	if err != nil {
		return nil, errors.Wrap(err, "msgRepo.LastMessages")
	}
	for i := range messages {
		result[messages[i].ConversationID] = &messages[i]
	}
	return result, nil
}

// CountUnread counts, per conversation, visible messages newer than the user's last_read_at
func (r *MessageRepository) CountUnread(ctx context.Context, conversationIDs []int64, userID int64) (map[int64]int64, error) {
	result := make(map[int64]int64, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return result, nil
	}

	var rows []struct {
		ConversationID int64
		Unread         int64
	}
	err := r.db.WithContext(ctx).
		Table("messages m").
		Select("m.conversation_id, COUNT(*) AS unread").
		Joins("JOIN conversation_participants cp ON cp.conversation_id = m.conversation_id AND cp.user_id = ?", userID).
		Where("m.conversation_id IN ? AND m.is_deleted = ?", conversationIDs, false).
		Where("m.created_at > cp.last_read_at").
		Group("m.conversation_id").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "msgRepo.CountUnread")
	}
	for _, row := range rows {
		result[row.ConversationID] = row.Unread
	}
	return result, nil
}

// SoftDelete hides a message from listings without removing the row
func (r *MessageRepository) SoftDelete(ctx context.Context, id int64) error {
	err := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ?", id).
		Update("is_deleted", true).Error
	return errors.Wrap(err, "msgRepo.SoftDelete")
}
