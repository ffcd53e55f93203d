package service

import (
	"context"
	"log"

	"github.com/pkg/errors"
	"github.com/tkdhub/chatcore/internal/model"
	"github.com/tkdhub/chatcore/internal/repository"
	"github.com/tkdhub/chatcore/pkg/apperror"
)

// RelationshipService is the block/friendship gate shared by REST and realtime paths
type RelationshipService struct {
	rels  RelationshipStore
	users UserStore
}

func NewRelationshipService(rels RelationshipStore, users UserStore) *RelationshipService {
	return &RelationshipService{rels: rels, users: users}
}

// IsEitherBlocking reports whether a blocks b or b blocks a
func (s *RelationshipService) IsEitherBlocking(ctx context.Context, a, b int64) (bool, error) {
	blocked, err := s.rels.IsEitherBlocking(ctx, a, b)
	if err != nil {
		return false, apperror.ErrPersistence(err)
	}
	return blocked, nil
}

// AreFriends reports whether a and b have an accepted friendship
func (s *RelationshipService) AreFriends(ctx context.Context, a, b int64) (bool, error) {
	friends, err := s.rels.AreFriends(ctx, a, b)
	if err != nil {
		return false, apperror.ErrPersistence(err)
	}
	return friends, nil
}

// Relationship summarizes how actor and other relate
func (s *RelationshipService) Relationship(ctx context.Context, actorID, otherID int64) (*model.RelationshipResponse, error) {
	if err := s.requireUser(ctx, otherID); err != nil {
		return nil, err
	}
	blocked, err := s.IsEitherBlocking(ctx, actorID, otherID)
	if err != nil {
		return nil, err
	}
	friends, err := s.AreFriends(ctx, actorID, otherID)
	if err != nil {
		return nil, err
	}
	return &model.RelationshipResponse{UserID: otherID, Blocked: blocked, Friends: friends}, nil
}

// BlockUser records that blocker blocks blocked. Blocking twice is a no-op.
func (s *RelationshipService) BlockUser(ctx context.Context, blockerID, blockedID int64) error {
	if blockerID == blockedID {
		return apperror.ErrSelfBlock
	}
	if err := s.requireUser(ctx, blockedID); err != nil {
		return err
	}
	if err := s.rels.CreateBlock(ctx, blockerID, blockedID); err != nil {
		return apperror.ErrPersistence(err)
	}
	log.Printf("⛔ User %d blocked user %d", blockerID, blockedID)
	return nil
}

// UnblockUser removes the block blocker -> blocked; a missing block is not an error
func (s *RelationshipService) UnblockUser(ctx context.Context, blockerID, blockedID int64) error {
	if err := s.rels.DeleteBlock(ctx, blockerID, blockedID); err != nil {
		return apperror.ErrPersistence(err)
	}
	return nil
}

// AcceptFriendRequest accepts a pending request addressed to actor and creates the friendship
func (s *RelationshipService) AcceptFriendRequest(ctx context.Context, requestID, actorID int64) (*model.FriendshipResponse, error) {
	friendship, err := s.rels.AcceptFriendRequest(ctx, requestID, actorID)
	switch {
	case err == nil:
	case repository.IsNotFound(err):
		return nil, apperror.ErrFriendRequestMissing
	case errors.Is(err, repository.ErrFriendRequestNotForActor):
		return nil, apperror.ErrNotRequestRecipient
	case errors.Is(err, repository.ErrFriendRequestNotPending):
		return nil, apperror.ErrRequestNotPending
	default:
		return nil, apperror.ErrPersistence(err)
	}
	return &model.FriendshipResponse{
		FriendshipID: friendship.ID,
		User1:        friendship.User1ID,
		User2:        friendship.User2ID,
	}, nil
}

func (s *RelationshipService) requireUser(ctx context.Context, id int64) error {
	if _, err := s.users.FindByID(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return apperror.ErrUserNotFound
		}
		return apperror.ErrPersistence(err)
	}
	return nil
}
