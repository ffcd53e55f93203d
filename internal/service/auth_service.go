package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tkdhub/chatcore/internal/model"
	"github.com/tkdhub/chatcore/internal/repository"
	"github.com/tkdhub/chatcore/pkg/apperror"
	"github.com/tkdhub/chatcore/pkg/auth"
)

const blacklistPrefix = "blacklist:"

// AuthService resolves bearer credentials into identities. Issuing
// credentials belongs to the identity service; IssueToken exists for dev tooling.
type AuthService struct {
	users      UserStore
	jwtManager *auth.JWTManager
	rdb        *redis.Client // nil disables revocation
}

func NewAuthService(users UserStore, jwtManager *auth.JWTManager, rdb *redis.Client) *AuthService {
	return &AuthService{
		users:      users,
		jwtManager: jwtManager,
		rdb:        rdb,
	}
}

// AuthenticateCredential validates a token, rejects revoked ones and loads the user
func (s *AuthService) AuthenticateCredential(ctx context.Context, token string) (*model.Identity, error) {
	if token == "" {
		return nil, apperror.ErrInvalidCredential
	}

	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeUnauthenticated, "invalid or expired token", err)
	}

	if s.rdb != nil {
		exists, err := s.rdb.Exists(ctx, blacklistPrefix+token).Result()
		if err != nil {
			// fail closed
			return nil, apperror.Wrap(apperror.CodeInternal, "auth server error", err)
		}
		if exists > 0 {
			return nil, apperror.ErrRevokedCredential
		}
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.ErrInvalidCredential
		}
		return nil, apperror.ErrPersistence(err)
	}
	return user.ToIdentity(), nil
}

// Revoke blacklists a token until it would have expired anyway
func (s *AuthService) Revoke(ctx context.Context, token string) error {
	if s.rdb == nil {
		return apperror.Internal("token revocation is unavailable without redis")
	}

	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		return apperror.Wrap(apperror.CodeUnauthenticated, "invalid or expired token", err)
	}

	expiresIn := time.Until(claims.ExpiresAt.Time)
	if expiresIn <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, blacklistPrefix+token, "revoked", expiresIn).Err(); err != nil {
		return apperror.Wrap(apperror.CodeInternal, "failed to revoke token", err)
	}
	return nil
}

// IssueToken signs a credential for a user
func (s *AuthService) IssueToken(user *model.User) (string, error) {
	return s.jwtManager.GenerateToken(user.ID, user.Username, string(user.Role))
}
