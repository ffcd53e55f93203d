package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/tkdhub/chatcore/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrFriendRequestNotPending  = errors.New("friend request is not pending")
	ErrFriendRequestNotForActor = errors.New("friend request addressed to another user")
)

// RelationshipRepository handles blocks, friendships and friend requests
type RelationshipRepository struct {
	db *gorm.DB
}

func NewRelationshipRepository(db *gorm.DB) *RelationshipRepository {
	return &RelationshipRepository{db: db}
}

// IsEitherBlocking reports whether a blocks b or b blocks a
func (r *RelationshipRepository) IsEitherBlocking(ctx context.Context, a, b int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "relRepo.IsEitherBlocking")
	}
	return count > 0, nil
}

// AreFriends checks the normalized friendship pair
func (r *RelationshipRepository) AreFriends(ctx context.Context, a, b int64) (bool, error) {
	u1, u2 := model.NormalizePair(a, b)
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Friendship{}).
		Where("user1_id = ? AND user2_id = ?", u1, u2).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "relRepo.AreFriends")
	}
	return count > 0, nil
}

// CreateBlock records blocker -> blocked; repeating it is a no-op
func (r *RelationshipRepository) CreateBlock(ctx context.Context, blockerID, blockedID int64) error {
	block := model.Block{BlockerID: blockerID, BlockedID: blockedID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "blocker_id"}, {Name: "blocked_id"}},
			DoNothing: true,
		}).
		Create(&block).Error
	return errors.Wrap(err, "relRepo.CreateBlock")
}

// DeleteBlock removes blocker -> blocked if present
func (r *RelationshipRepository) DeleteBlock(ctx context.Context, blockerID, blockedID int64) error {
	err := r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&model.Block{}).Error
	return errors.Wrap(err, "relRepo.DeleteBlock")
}

// CreateFriendRequest inserts a pending request
func (r *RelationshipRepository) CreateFriendRequest(ctx context.Context, req *model.FriendRequest) error {
	req.Status = model.FriendRequestPending
	err := r.db.WithContext(ctx).Create(req).Error
	return errors.Wrap(err, "relRepo.CreateFriendRequest")
}

// AcceptFriendRequest accepts a pending request addressed to actorID. In one
// transaction it marks the request accepted, gets-or-creates the normalized
// friendship and cancels a pending request in the opposite direction.
func (r *RelationshipRepository) AcceptFriendRequest(ctx context.Context, requestID, actorID int64) (*model.Friendship, error) {
	var friendship model.Friendship
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req model.FriendRequest
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", requestID).
			First(&req).Error; err != nil {
			return err
		}
		if req.ToUserID != actorID {
			return ErrFriendRequestNotForActor
		}
		if req.Status != model.FriendRequestPending {
			return ErrFriendRequestNotPending
		}

		now := time.Now()
		if err := tx.Model(&req).Updates(map[string]interface{}{
			"status":     model.FriendRequestAccepted,
			"decided_at": now,
		}).Error; err != nil {
			return err
		}

		u1, u2 := model.NormalizePair(req.FromUserID, req.ToUserID)
		if err := tx.Where(model.Friendship{User1ID: u1, User2ID: u2}).
			FirstOrCreate(&friendship).Error; err != nil {
			return err
		}

		return tx.Model(&model.FriendRequest{}).
			Where("status = ? AND from_user_id = ? AND to_user_id = ?",
				model.FriendRequestPending, req.ToUserID, req.FromUserID).
			Updates(map[string]interface{}{
				"status":     model.FriendRequestCanceled,
				"decided_at": now,
			}).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "relRepo.AcceptFriendRequest")
	}
	return &friendship, nil
}
