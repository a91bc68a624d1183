package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/campusmind/campusmind/internal/app/controllers"
	"github.com/campusmind/campusmind/internal/app/models"
	"github.com/campusmind/campusmind/internal/middleware"
	"github.com/campusmind/campusmind/internal/realtime"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	authController *controllers.AuthController,
	chatController *controllers.ChatController,
	communityController *controllers.CommunityController,
	gateway *realtime.Gateway,
	authMiddleware *middleware.AuthMiddleware,
) {
	// API version group
	v1 := router.Group("/api/v1")

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/login", authController.Login)
		auth.POST("/refresh", authController.Refresh)
	}

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	{
		authenticated.POST("/auth/logout", authController.Logout)
		// The socket handshake cannot read the HttpOnly session cookie, so
		// clients exchange their session for a short-lived socket credential
		authenticated.GET("/auth/socket-token", authController.SocketToken)

		conversations := authenticated.Group("/conversations")
		{
			conversations.GET("", chatController.ListConversations)
			conversations.POST("", chatController.StartConversation)
			conversations.GET("/:id/messages", chatController.History)
			conversations.DELETE("/:id", chatController.Delete)
		}

		communities := authenticated.Group("/communities")
		{
			communities.GET("", communityController.List)
			communities.GET("/:id", communityController.Get)
			communities.POST("/:id/join", communityController.Join)
			communities.POST("/:id/leave", communityController.Leave)

			// Students cannot create communities
			staffOnly := communities.Group("")
			staffOnly.Use(authMiddleware.RoleRequired(models.RoleCounsellor, models.RoleAdmin, models.RoleSuperAdmin))
			{
				staffOnly.POST("", communityController.Create)
			}
		}
	}

	// Websocket handshake authenticates itself with the socket token; the
	// JWT middleware would reject the token's scope here
	router.GET("/ws", gateway.HandleConnection)
}
