package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the "type" claim, so a refresh token can never be
// used as an access token or vice versa.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrWrongTokenUse = errors.New("wrong token type")
)

// Claims is the payload of both token kinds. UserID stays a string in the
// claim set; callers parse it where a uuid.UUID is required.
type Claims struct {
	UserID    string `json:"uid"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// TokenPair is what login and refresh hand back to clients.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// TokenService issues and validates HS256-signed token pairs.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (s *TokenService) AccessTTL() time.Duration  { return s.accessTTL }
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// GeneratePair issues a fresh access/refresh pair for the user. Each token
// gets its own jti; the refresh jti is what the Redis whitelist tracks.
func (s *TokenService) GeneratePair(userID uuid.UUID) (*TokenPair, *Claims, error) {
	access, _, err := s.generate(userID, TokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, nil, err
	}
	refresh, refreshClaims, err := s.generate(userID, TokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, refreshClaims, nil
}

func (s *TokenService) generate(userID uuid.UUID, tokenType string, ttl time.Duration) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		UserID:    userID.String(),
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, claims, nil
}

// Parse validates the signature, expiry and token type.
func (s *TokenService) Parse(tokenStr, wantType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != wantType {
		return nil, ErrWrongTokenUse
	}
	return claims, nil
}
