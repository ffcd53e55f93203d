package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tkdhub/chatcore/internal/middleware"
)

// Routes groups the handlers mounted by RegisterRoutes
type Routes struct {
	Authn         middleware.CredentialAuthenticator
	Auth          *AuthHandler
	Chat          *ChatHandler
	Relationships *RelationshipHandler
	WS            *WSHandler
}

// RegisterRoutes mounts the health check, the REST API under /api/v1 and
// the realtime endpoint
func RegisterRoutes(router *gin.Engine, r Routes) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "chatcore",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	api := router.Group("/api/v1")
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(r.Authn))
	{
		// Auth
		protected.GET("/auth/me", r.Auth.Me)
		protected.POST("/auth/logout", r.Auth.Logout)

		// Conversations
		protected.GET("/conversations", r.Chat.GetConversations)
		protected.POST("/conversations/create", r.Chat.CreateConversation)
		protected.GET("/conversations/:id", r.Chat.GetConversation)
		protected.PATCH("/conversations/:id", r.Chat.RenameConversation)
		protected.POST("/conversations/:id/read", r.Chat.MarkAsRead)

		// Messages
		protected.GET("/conversations/:id/messages", r.Chat.GetMessages)
		protected.POST("/conversations/:id/messages", r.Chat.SendMessage)
		protected.DELETE("/conversations/:id/messages/:messageId", r.Chat.DeleteMessage)

		// Relationships
		protected.GET("/users/:id/relationship", r.Relationships.GetRelationship)
		protected.POST("/users/:id/block", r.Relationships.BlockUser)
		protected.DELETE("/users/:id/block", r.Relationships.UnblockUser)
		protected.POST("/friends/requests/:id/accept", r.Relationships.AcceptFriendRequest)
	}

	// WebSocket endpoint (auth via query parameter)
	router.GET("/ws/conversations/:id", r.WS.HandleWebSocket)
}
