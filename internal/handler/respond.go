package handler

import (
	"time"

	"github.com/courtside/courtside-chat/internal/common"
	"github.com/courtside/courtside-chat/internal/middleware"
	"github.com/courtside/courtside-chat/pkg/logger"
	"github.com/gin-gonic/gin"
)

// respondError maps a service error to its status and localized message
func respondError(c *gin.Context, err error) {
	status := common.StatusFor(err)
	if status >= 500 {
		logger.GetLogger().Error().Err(err).
			Str("path", c.FullPath()).
			Str("user_id", middleware.GetUserID(c)).
			Msg("request failed")
	}
	common.ErrorResponse(c, status, middleware.Translate(c, common.MessageKey(err)), err)
}

// respondKey writes a 4xx response with a specific message key
func respondKey(c *gin.Context, status int, key string, err error) {
	common.ErrorResponse(c, status, middleware.Translate(c, key), err)
}

func formatCursor(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
