package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkdhub/chatcore/internal/model"
	"github.com/tkdhub/chatcore/pkg/apperror"
)

func TestRelationshipService_BlockGateIsSymmetric(t *testing.T) {
	store := newMemStore()
	svc := NewRelationshipService(store, memUsers{store})
	ctx := context.Background()
	a, b, c := store.addUser("ana"), store.addUser("bruno"), store.addUser("carla")

	require.NoError(t, svc.BlockUser(ctx, a, b))
	require.NoError(t, svc.BlockUser(ctx, a, b))

	for _, pair := range [][2]int64{{a, b}, {b, a}, {a, c}, {c, b}} {
		ab, err := svc.IsEitherBlocking(ctx, pair[0], pair[1])
		require.NoError(t, err)
		ba, err := svc.IsEitherBlocking(ctx, pair[1], pair[0])
		require.NoError(t, err)
		assert.Equal(t, ab, ba)
	}

	rel, err := svc.Relationship(ctx, b, a)
	require.NoError(t, err)
	assert.True(t, rel.Blocked)
	assert.False(t, rel.Friends)

	require.NoError(t, svc.UnblockUser(ctx, a, b))
	blocked, err := svc.IsEitherBlocking(ctx, b, a)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestRelationshipService_BlockValidation(t *testing.T) {
	store := newMemStore()
	svc := NewRelationshipService(store, memUsers{store})
	ctx := context.Background()
	a := store.addUser("ana")

	assert.ErrorIs(t, svc.BlockUser(ctx, a, a), apperror.ErrSelfBlock)
	assert.ErrorIs(t, svc.BlockUser(ctx, a, 999), apperror.ErrUserNotFound)

	_, err := svc.Relationship(ctx, a, 999)
	assert.ErrorIs(t, err, apperror.ErrUserNotFound)
}

func TestRelationshipService_AcceptFriendRequest(t *testing.T) {
	store := newMemStore()
	svc := NewRelationshipService(store, memUsers{store})
	ctx := context.Background()
	a, b := store.addUser("ana"), store.addUser("bruno")
	store.requests[50] = &model.FriendRequest{ID: 50, FromUserID: b, ToUserID: a, Status: model.FriendRequestPending}

	_, err := svc.AcceptFriendRequest(ctx, 50, b)
	assert.ErrorIs(t, err, apperror.ErrNotRequestRecipient)

	_, err = svc.AcceptFriendRequest(ctx, 51, a)
	assert.ErrorIs(t, err, apperror.ErrFriendRequestMissing)

	resp, err := svc.AcceptFriendRequest(ctx, 50, a)
	require.NoError(t, err)
	assert.Equal(t, a, resp.User1)
	assert.Equal(t, b, resp.User2)

	friends, err := svc.AreFriends(ctx, b, a)
	require.NoError(t, err)
	assert.True(t, friends)

	_, err = svc.AcceptFriendRequest(ctx, 50, a)
	assert.ErrorIs(t, err, apperror.ErrRequestNotPending)
}
