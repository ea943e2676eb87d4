package handler

import (
	"net/http"

	"github.com/courtside/courtside-chat/internal/common"
	"github.com/courtside/courtside-chat/internal/domain"
	"github.com/courtside/courtside-chat/internal/middleware"
	"github.com/courtside/courtside-chat/internal/service"
	"github.com/courtside/courtside-chat/pkg/ginutil"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var messageValidator = validator.New()

// MessageHandler handles channel history and send requests for both
// direct conversations and group channels
type MessageHandler struct {
	service service.MessageService
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(service service.MessageService) *MessageHandler {
	return &MessageHandler{service: service}
}

// channelFromPath resolves the channel addressed by the route
func channelFromPath(c *gin.Context) (domain.ChannelRef, error) {
	if c.Param("group_id") != "" {
		id, err := ginutil.ParamUint64(c, "group_id")
		return domain.GroupChannel(id), err
	}
	id, err := ginutil.ParamUint64(c, "id")
	return domain.DirectChannel(id), err
}

// ListMessages handles GET /api/v1/conversations/:id/messages and
// GET /api/v1/groups/:group_id/messages
// @Summary 메시지 기록 조회 (최신순 커서)
// @Tags messages
// @Produce json
// @Param before query string false "RFC 3339 커서"
// @Param before_id query int false "커서 동률 해소용 메시지 ID"
// @Param limit query int false "페이지 크기"
// @Success 200 {object} common.APIResponse{data=[]domain.MessageView}
// @Router /api/v1/conversations/{id}/messages [get]
func (h *MessageHandler) ListMessages(c *gin.Context) {
	ref, err := channelFromPath(c)
	if err != nil {
		respondKey(c, http.StatusBadRequest, "chat.invalid_channel", err)
		return
	}

	before, err := ginutil.QueryTime(c, "before")
	if err != nil {
		respondKey(c, http.StatusBadRequest, "chat.invalid_cursor", err)
		return
	}
	beforeID, err := ginutil.QueryUint64(c, "before_id")
	if err != nil {
		respondKey(c, http.StatusBadRequest, "chat.invalid_cursor", err)
		return
	}
	if beforeID != 0 && before == nil {
		respondKey(c, http.StatusBadRequest, "chat.invalid_cursor", common.ErrValidation)
		return
	}
	limit := ginutil.QueryInt(c, "limit", 0)

	page, err := h.service.FetchPage(c.Request.Context(), ref, middleware.GetUserID(c), domain.PageQuery{
		Before:   before,
		BeforeID: beforeID,
		PageSize: limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	meta := &common.Meta{Limit: len(page.Messages), HasMore: page.HasMore}
	if oldest := page.Oldest(); oldest != nil && page.HasMore {
		meta.NextBefore = formatCursor(oldest.CreatedAt)
		meta.NextID = oldest.ID
	}
	c.JSON(http.StatusOK, common.APIResponse{Data: page.Messages, Meta: meta})
}

// SendMessage handles POST /api/v1/conversations/:id/messages and
// POST /api/v1/groups/:group_id/messages
// @Summary 메시지 보내기
// @Tags messages
// @Accept json
// @Produce json
// @Param request body domain.SendMessageRequest true "메시지 내용"
// @Success 201 {object} common.APIResponse{data=domain.MessageView}
// @Router /api/v1/conversations/{id}/messages [post]
func (h *MessageHandler) SendMessage(c *gin.Context) {
	ref, err := channelFromPath(c)
	if err != nil {
		respondKey(c, http.StatusBadRequest, "chat.invalid_channel", err)
		return
	}

	var req domain.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondKey(c, http.StatusBadRequest, "error.bad_request", err)
		return
	}
	if err := messageValidator.Struct(&req); err != nil {
		respondKey(c, http.StatusBadRequest, "error.validation", err)
		return
	}

	result, err := h.service.Send(c.Request.Context(), ref, middleware.GetUserID(c), service.SendInput{
		Content:  req.Content,
		ImageURL: req.ImageURL,
		ClientID: req.ClientID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	common.CreatedResponse(c, result)
}

// EditMessage handles PATCH /api/v1/messages/:id
// @Summary 메시지 수정 (1:1 대화, 작성자만)
// @Tags messages
// @Accept json
// @Produce json
// @Param id path int true "메시지 ID"
// @Param request body domain.EditMessageRequest true "수정 내용"
// @Success 200 {object} common.APIResponse{data=domain.MessageView}
// @Router /api/v1/messages/{id} [patch]
func (h *MessageHandler) EditMessage(c *gin.Context) {
	id, err := ginutil.ParamUint64(c, "id")
	if err != nil {
		respondKey(c, http.StatusBadRequest, "error.bad_request", err)
		return
	}

	var req domain.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondKey(c, http.StatusBadRequest, "error.bad_request", err)
		return
	}
	if err := messageValidator.Struct(&req); err != nil {
		respondKey(c, http.StatusBadRequest, "error.validation", err)
		return
	}

	result, err := h.service.Edit(c.Request.Context(), id, middleware.GetUserID(c), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, common.APIResponse{Data: result})
}
