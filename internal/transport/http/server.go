package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ashbrook/roomengine/internal/config"
	"github.com/ashbrook/roomengine/internal/transport/ws"
)

// NewServer builds the management HTTP surface plus the WebSocket bridge
// on a single gin router.
func NewServer(cfg config.Config, room *RoomHandlers, history *HistoryHandlers, wsHandler *ws.Handler, adminCfg AdminAuthConfig, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) { c.String(stdhttp.StatusOK, "ok") })

	router.GET("/ws/rooms/:room_id", func(c *gin.Context) {
		wsHandler.ServeRoom(c.Writer, c.Request, c.Param("room_id"), c.Query("user_id"))
	})

	router.POST("/api/admin/login", AdminLoginHandler(adminCfg, logger))

	api := router.Group("/api/rooms", AdminAuthMiddleware(adminCfg, logger))
	{
		api.POST("", room.CreateRoom)
		api.GET("", room.ListRooms)
		api.GET("/:room_id", room.GetRoom)
		api.DELETE("/:room_id", room.CloseRoom)
		api.POST("/:room_id/reset-admins", room.ResetAdmins)
		api.DELETE("/:room_id/bans/:user_id", room.UnbanUser)
		api.GET("/:room_id/messages", history.ListMessages)
		api.GET("/:room_id/sessions", history.ListSessions)
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
