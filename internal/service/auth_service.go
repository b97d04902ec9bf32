package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"taskboard/internal/apperror"
	"taskboard/internal/auth"
	"taskboard/internal/cache"
	"taskboard/internal/model"
	"taskboard/internal/repository"
)

// Failed logins lock an account for a cooling-off period instead of
// disabling it.
const (
	MaxFailedLogins = 5
	LockoutDuration = 30 * time.Minute
)

// UserStore is the persistence surface AuthService and UserService need.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TokenCache tracks live refresh tokens and revoked access tokens.
type TokenCache interface {
	SaveRefresh(ctx context.Context, jti, userID string, ttl time.Duration) error
	ConsumeRefresh(ctx context.Context, jti string) (string, error)
	DeleteRefresh(ctx context.Context, jti string) error
	DenyAccess(ctx context.Context, jti string, ttl time.Duration) error
	IsAccessDenied(ctx context.Context, jti string) (bool, error)
}

type AuthService struct {
	users  UserStore
	tokens *auth.TokenService
	store  TokenCache
	hasher *auth.PasswordHasher
	now    func() time.Time
}

func NewAuthService(users UserStore, tokens *auth.TokenService, store TokenCache, hasher *auth.PasswordHasher) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		store:  store,
		hasher: hasher,
		now:    time.Now,
	}
}

// errInvalidCredentials is deliberately the same for an unknown email and
// a wrong password, so the endpoint cannot be used to probe which emails
// are registered.
func errInvalidCredentials() error {
	return apperror.New(apperror.CodeUnauthorized, "invalid email or password")
}

// Register creates an account with an argon2id password hash.
func (s *AuthService) Register(ctx context.Context, email, password, displayName string) (*model.User, error) {
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, storeErr("user", err)
	}
	if existing != nil {
		return nil, apperror.Conflict("email already registered")
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeStore, "failed to hash password", err)
	}

	user := &model.User{
		Email:          email,
		HashedPassword: hashed,
		DisplayName:    displayName,
		IsActive:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.Conflict("email already registered")
		}
		return nil, storeErr("user", err)
	}
	return user, nil
}

// Login verifies credentials, enforces the lockout policy and issues an
// access/refresh pair. The refresh token's jti is whitelisted for its
// lifetime; Refresh consumes it.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, *auth.TokenPair, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, storeErr("user", err)
	}
	if user == nil {
		return nil, nil, errInvalidCredentials()
	}

	now := s.now().UTC()
	if !user.IsActive {
		return nil, nil, apperror.New(apperror.CodeUnauthorized, "account is disabled")
	}
	if user.IsLocked(now) {
		return nil, nil, apperror.New(apperror.CodeUnauthorized, "account temporarily locked")
	}

	if !s.hasher.Verify(password, user.HashedPassword) {
		user.FailedLoginAttempts++
		if user.FailedLoginAttempts >= MaxFailedLogins {
			lockedUntil := now.Add(LockoutDuration)
			user.LockedUntil = &lockedUntil
			user.FailedLoginAttempts = 0
		}
		if err := s.users.Update(ctx, user); err != nil {
			return nil, nil, storeErr("user", err)
		}
		return nil, nil, errInvalidCredentials()
	}

	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now
	if err := s.users.Update(ctx, user); err != nil {
		return nil, nil, storeErr("user", err)
	}

	pair, err := s.issuePair(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh rotates an access/refresh pair. The presented refresh token is
// consumed, so replays of it fail.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.tokens.Parse(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return nil, apperror.New(apperror.CodeUnauthorized, "invalid or expired refresh token")
	}

	if _, err := s.store.ConsumeRefresh(ctx, claims.ID); err != nil {
		if errors.Is(err, cache.ErrTokenNotFound) {
			return nil, apperror.New(apperror.CodeUnauthorized, "refresh token revoked")
		}
		return nil, apperror.Wrap(apperror.CodeStore, "token store failure", err)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, apperror.New(apperror.CodeUnauthorized, "invalid or expired refresh token")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.New(apperror.CodeUnauthorized, "invalid or expired refresh token")
		}
		return nil, storeErr("user", err)
	}
	if !user.IsActive {
		return nil, apperror.New(apperror.CodeUnauthorized, "account is disabled")
	}

	return s.issuePair(ctx, user.ID)
}

// Logout revokes the presented access token for its remaining lifetime
// and drops the refresh token's whitelist entry when one is supplied.
func (s *AuthService) Logout(ctx context.Context, access *auth.Claims, refreshToken string) error {
	if access.ExpiresAt != nil {
		ttl := access.ExpiresAt.Time.Sub(s.now())
		if err := s.store.DenyAccess(ctx, access.ID, ttl); err != nil {
			return apperror.Wrap(apperror.CodeStore, "token store failure", err)
		}
	}

	if refreshToken == "" {
		return nil
	}
	claims, err := s.tokens.Parse(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		// An already-expired refresh token needs no revocation.
		return nil
	}
	if err := s.store.DeleteRefresh(ctx, claims.ID); err != nil {
		return apperror.Wrap(apperror.CodeStore, "token store failure", err)
	}
	return nil
}

// ChangePassword requires the current password to match before rehashing.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return storeErr("user", err)
	}
	if !s.hasher.Verify(current, user.HashedPassword) {
		return apperror.New(apperror.CodeUnauthorized, "current password is incorrect")
	}

	hashed, err := s.hasher.Hash(next)
	if err != nil {
		return apperror.Wrap(apperror.CodeStore, "failed to hash password", err)
	}
	user.HashedPassword = hashed
	if err := s.users.Update(ctx, user); err != nil {
		return storeErr("user", err)
	}
	return nil
}

func (s *AuthService) issuePair(ctx context.Context, userID uuid.UUID) (*auth.TokenPair, error) {
	pair, refresh, err := s.tokens.GeneratePair(userID)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeStore, "failed to issue tokens", err)
	}
	if err := s.store.SaveRefresh(ctx, refresh.ID, userID.String(), s.tokens.RefreshTTL()); err != nil {
		return nil, apperror.Wrap(apperror.CodeStore, "token store failure", err)
	}
	return pair, nil
}
