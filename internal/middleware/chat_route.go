package middleware

import (
	"strings"

	"github.com/courtside/courtside-chat/internal/domain"
	"github.com/courtside/courtside-chat/pkg/ginutil"
	"github.com/gin-gonic/gin"
)

const noChannel = "none"

// routeChannel returns the channel addressed by the matched route, if any.
// Group routes carry :group_id, direct routes sit under /conversations/:id.
func routeChannel(c *gin.Context) (domain.ChannelRef, bool) {
	if id, err := ginutil.ParamUint64(c, "group_id"); err == nil {
		return domain.GroupChannel(id), true
	}
	if strings.Contains(c.FullPath(), "/conversations/:id") {
		if id, err := ginutil.ParamUint64(c, "id"); err == nil {
			return domain.DirectChannel(id), true
		}
	}
	return domain.ChannelRef{}, false
}

// channelKindLabel is the low-cardinality form of routeChannel for metrics
func channelKindLabel(c *gin.Context) string {
	if ref, ok := routeChannel(c); ok {
		return string(ref.Kind)
	}
	return noChannel
}

// routeLabel returns the route template (e.g. /api/v1/groups/:group_id/messages)
// so ids never become label values
func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}
