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

var conversationValidator = validator.New()

// ConversationHandler handles direct conversation directory requests
type ConversationHandler struct {
	service service.DirectoryService
}

// NewConversationHandler creates a new ConversationHandler
func NewConversationHandler(service service.DirectoryService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

// GetOrCreate handles POST /api/v1/conversations
// @Summary 1:1 대화방 조회 또는 생성
// @Tags conversations
// @Accept json
// @Produce json
// @Param request body domain.CreateConversationRequest true "상대 사용자"
// @Success 200 {object} common.APIResponse{data=domain.ConversationResponse}
// @Router /api/v1/conversations [post]
func (h *ConversationHandler) GetOrCreate(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req domain.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondKey(c, http.StatusBadRequest, "error.bad_request", err)
		return
	}
	if err := conversationValidator.Struct(&req); err != nil {
		respondKey(c, http.StatusBadRequest, "error.validation", err)
		return
	}
	if req.OtherUserID == userID {
		respondKey(c, http.StatusBadRequest, "chat.self_conversation", common.ErrValidation)
		return
	}

	result, err := h.service.GetOrCreateConversation(c.Request.Context(), userID, req.OtherUserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, common.APIResponse{Data: result})
}

// List handles GET /api/v1/conversations
// @Summary 내 대화방 목록
// @Tags conversations
// @Produce json
// @Success 200 {object} common.APIResponse{data=[]domain.ConversationSummary}
// @Router /api/v1/conversations [get]
func (h *ConversationHandler) List(c *gin.Context) {
	result, err := h.service.ListConversations(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, common.APIResponse{Data: result})
}

// Get handles GET /api/v1/conversations/:id
// @Summary 대화방 조회
// @Tags conversations
// @Produce json
// @Param id path int true "대화방 ID"
// @Success 200 {object} common.APIResponse{data=domain.ConversationResponse}
// @Router /api/v1/conversations/{id} [get]
func (h *ConversationHandler) Get(c *gin.Context) {
	id, err := ginutil.ParamUint64(c, "id")
	if err != nil {
		respondKey(c, http.StatusBadRequest, "chat.invalid_channel", err)
		return
	}
	userID := middleware.GetUserID(c)

	conv, err := h.service.GetConversation(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, common.APIResponse{Data: &domain.ConversationResponse{
		ID:          conv.ID,
		OtherUserID: conv.Other(userID),
		CreatedAt:   conv.CreatedAt,
	}})
}

// MarkRead handles POST /api/v1/conversations/:id/read
// @Summary 읽음 처리
// @Tags conversations
// @Param id path int true "대화방 ID"
// @Success 204
// @Router /api/v1/conversations/{id}/read [post]
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	id, err := ginutil.ParamUint64(c, "id")
	if err != nil {
		respondKey(c, http.StatusBadRequest, "chat.invalid_channel", err)
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), id, middleware.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
