package middleware

import (
	"time"

	"github.com/courtside/courtside-chat/pkg/ginutil"
	"github.com/courtside/courtside-chat/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RequestLogger logs each chat request with the channel it addressed.
// Realtime streams are logged once, when they close.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()[:8]
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()

		status := c.Writer.Status()
		log := logger.GetLogger()
		var event *zerolog.Event
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		case c.Request.URL.Path == "/health":
			event = log.Debug()
		default:
			event = log.Info()
		}

		// access_token rides in the query on stream upgrades
		query := c.Request.URL.Query()
		if query.Has("access_token") {
			query.Set("access_token", "***")
		}

		event.
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("route", routeLabel(c)).
			Str("path", c.Request.URL.Path).
			Str("query", query.Encode()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("user_id", GetUserID(c))

		if ref, ok := routeChannel(c); ok {
			event.Str("channel", ref.Key())
		}
		if id, err := ginutil.ParamUint64(c, "id"); err == nil && c.FullPath() == "/api/v1/messages/:id" {
			event.Uint64("message_id", id)
		}

		if c.IsWebsocket() {
			event.Msg("stream closed")
			return
		}
		event.Int("body_size", c.Writer.Size()).Msg("request")
	}
}
