package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/courtside/courtside-chat/internal/common"
	"github.com/gin-gonic/gin"
)

// InternalAPIKey guards service-to-service routes (membership notifications
// from the group service). Checks the X-API-Key header.
func InternalAPIKey(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-API-Key")
		if expected == "" || key == "" {
			Abort(c, http.StatusUnauthorized, common.ErrUnauthorized)
			return
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(expected)) != 1 {
			Abort(c, http.StatusUnauthorized, common.ErrUnauthorized)
			return
		}
		c.Set("internal", true)
		c.Next()
	}
}
