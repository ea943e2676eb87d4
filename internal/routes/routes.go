package routes

import (
	_ "github.com/courtside/courtside-chat/docs"
	"github.com/courtside/courtside-chat/internal/config"
	"github.com/courtside/courtside-chat/internal/handler"
	"github.com/courtside/courtside-chat/internal/middleware"
	"github.com/courtside/courtside-chat/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Setup configures all chat routes
func Setup(
	router *gin.Engine,
	conversationHandler *handler.ConversationHandler,
	messageHandler *handler.MessageHandler,
	membershipHandler *handler.MembershipHandler,
	wsHandler *handler.WSHandler,
	jwtManager *jwt.Manager,
	redisClient *redis.Client,
	cfg *config.Config,
) {
	auth := middleware.JWTAuth(jwtManager)
	sendLimit := middleware.RateLimit(redisClient, middleware.SendRateLimitConfig(cfg.Chat.SendRatePerMinute))

	// Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/api/v1", auth)

	// 1:1 대화방
	conversations := api.Group("/conversations")
	conversations.GET("", conversationHandler.List)
	conversations.POST("", conversationHandler.GetOrCreate)
	conversations.GET("/:id", conversationHandler.Get)
	conversations.POST("/:id/read", conversationHandler.MarkRead)
	conversations.GET("/:id/messages", messageHandler.ListMessages)
	conversations.POST("/:id/messages", sendLimit, messageHandler.SendMessage)

	// 그룹 채널
	groups := api.Group("/groups")
	groups.GET("/:group_id/messages", messageHandler.ListMessages)
	groups.POST("/:group_id/messages", sendLimit, messageHandler.SendMessage)

	api.PATCH("/messages/:id", messageHandler.EditMessage)

	// 실시간 스트림 (토큰은 헤더 또는 access_token 쿼리)
	live := router.Group("/ws", auth)
	live.GET("/conversations/:id", wsHandler.Connect)
	live.GET("/groups/:group_id", wsHandler.Connect)

	// 서비스 간 호출
	internal := router.Group("/internal", middleware.InternalAPIKey(cfg.InternalAPIKey))
	internal.POST("/groups/:group_id/membership-events", membershipHandler.Notify)
}
