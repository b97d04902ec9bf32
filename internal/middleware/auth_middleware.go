package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"taskboard/internal/auth"
)

// Context keys populated by JWTAuthMiddleware.
const (
	UserIDKey = "userID"
	ClaimsKey = "authClaims"
)

// DenyChecker answers whether an access token's jti has been revoked.
type DenyChecker interface {
	IsAccessDenied(ctx context.Context, jti string) (bool, error)
}

// JWTAuthMiddleware authenticates requests with a Bearer access token.
// The parsed user id lands in the context under UserIDKey as a uuid.UUID,
// the full claims under ClaimsKey. denied may be nil when no revocation
// store is wired (tests).
func JWTAuthMiddleware(tokens *auth.TokenService, denied DenyChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			c.Abort()
			return
		}

		claims, err := tokens.Parse(parts[1], auth.TokenTypeAccess)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID in token"})
			c.Abort()
			return
		}

		if denied != nil {
			revoked, err := denied.IsAccessDenied(c.Request.Context(), claims.ID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify token"})
				c.Abort()
				return
			}
			if revoked {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
				c.Abort()
				return
			}
		}

		c.Set(UserIDKey, userID)
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}
