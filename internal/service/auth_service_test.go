package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkdhub/chatcore/pkg/apperror"
	"github.com/tkdhub/chatcore/pkg/auth"
)

func TestAuthenticateCredential(t *testing.T) {
	store := newMemStore()
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	svc := NewAuthService(memUsers{store}, jwtManager, nil)
	ctx := context.Background()
	id := store.addUser("ana")

	token, err := jwtManager.GenerateToken(id, "ana", "ALUMNO")
	require.NoError(t, err)

	identity, err := svc.AuthenticateCredential(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, id, identity.ID)
	assert.Equal(t, "ana", identity.Username)

	t.Run("missing", func(t *testing.T) {
		_, err := svc.AuthenticateCredential(ctx, "")
		assert.ErrorIs(t, err, apperror.ErrInvalidCredential)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := svc.AuthenticateCredential(ctx, "abc.def.ghi")
		assert.Equal(t, apperror.CodeUnauthenticated, apperror.CodeOf(err))
	})

	t.Run("unknown user", func(t *testing.T) {
		ghost, err := jwtManager.GenerateToken(999, "ghost", "ALUMNO")
		require.NoError(t, err)
		_, err = svc.AuthenticateCredential(ctx, ghost)
		assert.ErrorIs(t, err, apperror.ErrInvalidCredential)
	})
}

func TestRevoke_RequiresRedis(t *testing.T) {
	store := newMemStore()
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	svc := NewAuthService(memUsers{store}, jwtManager, nil)

	token, err := jwtManager.GenerateToken(store.addUser("ana"), "ana", "ALUMNO")
	require.NoError(t, err)

	err = svc.Revoke(context.Background(), token)
	assert.Equal(t, apperror.CodeInternal, apperror.CodeOf(err))
}
