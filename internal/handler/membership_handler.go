package handler

import (
	"net/http"

	"github.com/courtside/courtside-chat/internal/common"
	"github.com/courtside/courtside-chat/internal/domain"
	"github.com/courtside/courtside-chat/internal/service"
	"github.com/courtside/courtside-chat/pkg/ginutil"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var membershipValidator = validator.New()

// MembershipHandler receives membership transitions from the group service
type MembershipHandler struct {
	service service.MessageService
}

// NewMembershipHandler creates a new MembershipHandler
func NewMembershipHandler(service service.MessageService) *MembershipHandler {
	return &MembershipHandler{service: service}
}

// Notify handles POST /internal/groups/:group_id/membership-events
// @Summary 그룹 멤버십 변경 알림 (내부용)
// @Tags internal
// @Accept json
// @Param group_id path int true "그룹 ID"
// @Param request body domain.MembershipChange true "변경 내용"
// @Success 202
// @Router /internal/groups/{group_id}/membership-events [post]
func (h *MembershipHandler) Notify(c *gin.Context) {
	groupID, err := ginutil.ParamUint64(c, "group_id")
	if err != nil {
		respondKey(c, http.StatusBadRequest, "chat.invalid_channel", err)
		return
	}

	var req domain.MembershipChange
	if err := c.ShouldBindJSON(&req); err != nil {
		respondKey(c, http.StatusBadRequest, "error.bad_request", err)
		return
	}
	if err := membershipValidator.Struct(&req); err != nil {
		respondKey(c, http.StatusBadRequest, "error.validation", err)
		return
	}

	if err := h.service.NotifyMembershipChange(c.Request.Context(), groupID, req); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, common.APIResponse{Data: gin.H{"group_id": groupID, "user_id": req.UserID}})
}
