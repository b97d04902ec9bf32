package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"taskboard/internal/apperror"
	"taskboard/internal/auth"
	"taskboard/internal/cache"
	"taskboard/internal/model"
)

// fakeUserStore keeps users in memory keyed by email.
type fakeUserStore struct {
	byEmail map[string]*model.User
	updated *model.User
}

func (f *fakeUserStore) Create(ctx context.Context, user *model.User) error {
	user.ID = uuid.New()
	f.byEmail[user.Email] = user
	return nil
}

func (f *fakeUserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return f.byEmail[email], nil
}

func (f *fakeUserStore) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) Update(ctx context.Context, user *model.User) error {
	f.updated = user
	return nil
}

func (f *fakeUserStore) Delete(ctx context.Context, id uuid.UUID) error { return nil }

// fakeTokenCache mirrors the Redis whitelist/denylist in maps.
type fakeTokenCache struct {
	refresh map[string]string
	denied  map[string]struct{}
}

func newFakeTokenCache() *fakeTokenCache {
	return &fakeTokenCache{refresh: map[string]string{}, denied: map[string]struct{}{}}
}

func (f *fakeTokenCache) SaveRefresh(ctx context.Context, jti, userID string, ttl time.Duration) error {
	f.refresh[jti] = userID
	return nil
}

func (f *fakeTokenCache) ConsumeRefresh(ctx context.Context, jti string) (string, error) {
	userID, ok := f.refresh[jti]
	if !ok {
		return "", cache.ErrTokenNotFound
	}
	delete(f.refresh, jti)
	return userID, nil
}

func (f *fakeTokenCache) DeleteRefresh(ctx context.Context, jti string) error {
	delete(f.refresh, jti)
	return nil
}

func (f *fakeTokenCache) DenyAccess(ctx context.Context, jti string, ttl time.Duration) error {
	f.denied[jti] = struct{}{}
	return nil
}

func (f *fakeTokenCache) IsAccessDenied(ctx context.Context, jti string) (bool, error) {
	_, ok := f.denied[jti]
	return ok, nil
}

func newAuthFixture() (*AuthService, *fakeUserStore, *fakeTokenCache, *auth.PasswordHasher) {
	users := &fakeUserStore{byEmail: map[string]*model.User{}}
	store := newFakeTokenCache()
	hasher := auth.NewPasswordHasher(1, 16*1024, 1)
	tokens := auth.NewTokenService("test-secret-key", 30*time.Minute, 24*time.Hour)
	svc := NewAuthService(users, tokens, store, hasher)
	svc.now = fixedNow
	return svc, users, store, hasher
}

func registerUser(t *testing.T, svc *AuthService) *model.User {
	t.Helper()
	user, err := svc.Register(context.Background(), "alice@example.com", "s3cret-passw0rd", "Alice")
	assert.NoError(t, err)
	return user
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	svc, _, _, _ := newAuthFixture()
	registerUser(t, svc)

	_, err := svc.Register(context.Background(), "alice@example.com", "another-pass", "Alice Again")

	assert.True(t, apperror.Is(err, apperror.CodeConflict))
}

func TestAuthService_LoginAndRefresh_RotatesRefreshToken(t *testing.T) {
	// Arrange
	svc, _, store, _ := newAuthFixture()
	registerUser(t, svc)

	// Act
	user, pair, err := svc.Login(context.Background(), "alice@example.com", "s3cret-passw0rd")

	// Assert
	assert.NoError(t, err)
	assert.NotNil(t, user.LastLoginAt)
	assert.Len(t, store.refresh, 1)

	// Refresh consumes the old jti and stores a new one
	newPair, err := svc.Refresh(context.Background(), pair.RefreshToken)
	assert.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, newPair.RefreshToken)
	assert.Len(t, store.refresh, 1)

	// A replay of the consumed token fails
	_, err = svc.Refresh(context.Background(), pair.RefreshToken)
	assert.True(t, apperror.Is(err, apperror.CodeUnauthorized))
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, users, _, _ := newAuthFixture()
	registerUser(t, svc)

	_, _, err := svc.Login(context.Background(), "alice@example.com", "wrong")

	assert.True(t, apperror.Is(err, apperror.CodeUnauthorized))
	assert.Equal(t, 1, users.byEmail["alice@example.com"].FailedLoginAttempts)
}

func TestAuthService_Login_UnknownEmailSameError(t *testing.T) {
	svc, _, _, _ := newAuthFixture()
	registerUser(t, svc)

	_, _, unknownErr := svc.Login(context.Background(), "nobody@example.com", "whatever")
	_, _, wrongErr := svc.Login(context.Background(), "alice@example.com", "wrong")

	// Both failures must read identically to a probing client
	assert.Equal(t, wrongErr.Error(), unknownErr.Error())
}

func TestAuthService_Login_LocksAfterRepeatedFailures(t *testing.T) {
	svc, users, _, _ := newAuthFixture()
	registerUser(t, svc)

	for i := 0; i < MaxFailedLogins; i++ {
		_, _, err := svc.Login(context.Background(), "alice@example.com", "wrong")
		assert.Error(t, err)
	}

	user := users.byEmail["alice@example.com"]
	if assert.NotNil(t, user.LockedUntil) {
		assert.Equal(t, fixedNow().Add(LockoutDuration), *user.LockedUntil)
	}

	// Even the right password is refused while locked
	_, _, err := svc.Login(context.Background(), "alice@example.com", "s3cret-passw0rd")
	assert.True(t, apperror.Is(err, apperror.CodeUnauthorized))
	assert.Contains(t, err.Error(), "locked")
}

func TestAuthService_Logout_RevokesBothTokens(t *testing.T) {
	svc, _, store, _ := newAuthFixture()
	registerUser(t, svc)

	_, pair, err := svc.Login(context.Background(), "alice@example.com", "s3cret-passw0rd")
	assert.NoError(t, err)

	tokens := auth.NewTokenService("test-secret-key", 30*time.Minute, 24*time.Hour)
	accessClaims, err := tokens.Parse(pair.AccessToken, auth.TokenTypeAccess)
	assert.NoError(t, err)

	err = svc.Logout(context.Background(), accessClaims, pair.RefreshToken)

	assert.NoError(t, err)
	assert.Empty(t, store.refresh)
	denied, err := store.IsAccessDenied(context.Background(), accessClaims.ID)
	assert.NoError(t, err)
	assert.True(t, denied)
}

func TestAuthService_ChangePassword_RequiresCurrent(t *testing.T) {
	svc, _, _, hasher := newAuthFixture()
	user := registerUser(t, svc)

	err := svc.ChangePassword(context.Background(), user.ID, "wrong", "new-passw0rd-123")
	assert.True(t, apperror.Is(err, apperror.CodeUnauthorized))

	err = svc.ChangePassword(context.Background(), user.ID, "s3cret-passw0rd", "new-passw0rd-123")
	assert.NoError(t, err)
	assert.True(t, hasher.Verify("new-passw0rd-123", user.HashedPassword))
}
