package handler

import (
	"net/http"

	"github.com/courtside/courtside-chat/internal/middleware"
	"github.com/courtside/courtside-chat/internal/service"
	"github.com/courtside/courtside-chat/internal/ws"
	"github.com/courtside/courtside-chat/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WSHandler streams channel events over WebSocket
type WSHandler struct {
	hub            *ws.Hub
	gate           service.AccessGate
	allowedOrigins []string
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler
func NewWSHandler(hub *ws.Hub, gate service.AccessGate, allowedOrigins []string) *WSHandler {
	h := &WSHandler{
		hub:            hub,
		gate:           gate,
		allowedOrigins: allowedOrigins,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin validates the request origin against allowed origins
func (h *WSHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // Same-origin requests don't have Origin header
	}

	// If no allowed origins configured, allow all (development mode)
	if len(h.allowedOrigins) == 0 {
		return true
	}

	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || origin == allowed {
			return true
		}
	}

	return false
}

// Connect handles GET /ws/conversations/:id and GET /ws/groups/:group_id
// @Summary 채널 실시간 이벤트 WebSocket
// @Tags realtime
// @Router /ws/conversations/{id} [get]
func (h *WSHandler) Connect(c *gin.Context) {
	ref, err := channelFromPath(c)
	if err != nil {
		respondKey(c, http.StatusBadRequest, "chat.invalid_channel", err)
		return
	}
	userID := middleware.GetUserID(c)

	// access is checked before the upgrade so failures stay plain HTTP
	if err := h.gate.CanRead(c.Request.Context(), ref, userID); err != nil {
		respondError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	if err := ws.Serve(h.hub, conn, ref, userID); err != nil {
		log := logger.WithChannel(ref.Key())
		log.Warn().Err(err).Str("user_id", userID).Msg("websocket subscribe failed")
	}
}
