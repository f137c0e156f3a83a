// Package middleware provides gin middleware for the dashboard API.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"parceldesk/internal/infrastructure/auth"
	"parceldesk/internal/shared/errors"
)

const (
	ContextAccountID = "account_id"
	ContextRole      = "role"
)

// RequireAuth verifies the Bearer token and stores the claims on the
// request context.
func RequireAuth(verifier *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := ""
		if strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			appErr := errors.GetAppError(err)
			c.AbortWithStatusJSON(appErr.Code, gin.H{"error": appErr.Message})
			return
		}

		c.Set(ContextAccountID, claims.AccountID)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextRole) != "admin" {
			c.AbortWithStatusJSON(403, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

// AccountID returns the authenticated account id from the context.
func AccountID(c *gin.Context) uint {
	if v, ok := c.Get(ContextAccountID); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}
