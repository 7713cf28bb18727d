package httpapi

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/chatcore/chatcore/internal/adapters/gateway"
	"github.com/chatcore/chatcore/internal/app/orch"
	"github.com/chatcore/chatcore/internal/auth"
	"github.com/chatcore/chatcore/internal/config"
)

type Server struct {
	orch *orch.Orchestrator
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, ws *gateway.Controller, verifier *auth.Verifier) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	s := &Server{orch: o}
	log.Info().Str("module", "adapters.httpapi").Msg("router setup")

	api := r.Group("/api")
	api.GET("/ws", func(c *gin.Context) {
		ws.Handle(ctx, c)
	})

	authed := api.Group("", AuthMiddleware(verifier))

	chat := authed.Group("/chat")
	chat.POST("/send-private-message", s.sendPrivateMessage)
	chat.POST("/send-room-message", s.sendRoomMessage)
	chat.GET("/contacts", s.contacts)
	chat.GET("/private-messages/:id", s.conversation)
	chat.POST("/set-private-seen/:id", s.setSeen)
	chat.POST("/reaction", s.react)
	chat.DELETE("/message/:id", s.deleteMessage)

	rooms := authed.Group("/rooms")
	rooms.POST("", s.createRoom)
	rooms.GET("/search", s.searchRooms)
	rooms.GET("/public", s.publicRooms)
	rooms.GET("/active", s.activeRooms)
	rooms.GET("/favorites", s.favoriteRooms)
	rooms.GET("/:id", s.roomByID)
	rooms.PATCH("/:id", s.updateRoom)
	rooms.POST("/:id/leave", s.leaveRoom)
	rooms.POST("/:id/favorite", s.addFavorite)
	rooms.DELETE("/:id/favorite", s.removeFavorite)
	rooms.POST("/:id/kick", s.roleHandler(o.KickUser))
	rooms.POST("/:id/ban", s.roleHandler(o.BanUser))
	rooms.POST("/:id/unban", s.roleHandler(o.UnbanUser))
	rooms.POST("/:id/set-admin", s.roleHandler(o.SetAdmin))
	rooms.POST("/:id/remove-admin", s.roleHandler(o.RemoveAdmin))
	rooms.POST("/:id/set-owner", s.roleHandler(o.SetOwner))
	rooms.POST("/:id/remove-owner", s.roleHandler(o.RemoveOwner))
	rooms.POST("/:id/set-member", s.roleHandler(o.AddMember))
	rooms.POST("/:id/remove-member", s.roleHandler(o.RemoveMember))

	authed.POST("/users/fcm-token", s.registerFCMToken)

	friends := authed.Group("/friends")
	friends.GET("", s.listFriends)
	friends.GET("/requests", s.listFriendRequests)
	friends.POST("/request", s.sendFriendRequest)
	friends.POST("/accept", s.acceptFriendRequest)
	friends.DELETE("/request/:id", s.cancelFriendRequest)
	friends.DELETE("/:id", s.deleteFriend)

	blocks := authed.Group("/blocks")
	blocks.GET("", s.listBlocks)
	blocks.POST("", s.blockUser)
	blocks.DELETE("/:id", s.unblockUser)

	notifications := authed.Group("/notifications")
	notifications.GET("", s.listNotifications)
	notifications.GET("/count", s.notificationCount)
	notifications.POST("/:id/read", s.markNotificationRead)

	return r
}
