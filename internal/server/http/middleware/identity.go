package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	// UserIDContextKey is a gin context key for the resolved user identifier.
	UserIDContextKey = "userID"
	userIDHeader     = "X-User-ID"
)

// IdentityRequired resolves the user from the identity header installed by
// the upstream auth gateway. Authentication itself happens before requests
// reach this service.
func IdentityRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.GetHeader(userIDHeader), 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		c.Set(UserIDContextKey, id)
		c.Next()
	}
}
