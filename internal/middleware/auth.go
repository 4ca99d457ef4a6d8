package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"spot-service/internal/session"
)

// AuthMiddleware validates the Authorization bearer token and stores the
// user id on the gin context.
func AuthMiddleware(verifier *session.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		userID, err := verifier.Verify(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("userID", userID)
		c.Request = c.Request.WithContext(session.WithUserID(c.Request.Context(), userID))
		c.Next()
	}
}

// OptionalAuthMiddleware resolves the user id when a valid bearer token is
// present but lets anonymous requests through.
func OptionalAuthMiddleware(verifier *session.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			if userID, err := verifier.Verify(parts[1]); err == nil {
				c.Set("userID", userID)
				c.Request = c.Request.WithContext(session.WithUserID(c.Request.Context(), userID))
			}
		}
		c.Next()
	}
}
