package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/niranda/ukrainians-api/internal/auth"
	"github.com/niranda/ukrainians-api/internal/config"
	"github.com/niranda/ukrainians-api/internal/metrics"
	"github.com/niranda/ukrainians-api/internal/mw"
	"github.com/niranda/ukrainians-api/internal/ws"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// SetupRouter 统一初始化 Gin 中间件、REST API 以及 WebSocket 端点。
func SetupRouter(cfg config.Config, db *gorm.DB, h *Handler, hub *ws.Hub) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())
	r.Use(mw.CORS(cfg.Env))
	// 控制单个 IP+路由的速率，挡住浏览器侧的失控重试。
	r.Use(mw.RateLimit(rate.Every(time.Second/20), 40))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")

	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/refresh", h.RefreshToken)

	// 需要 Bearer Token 的业务接口。
	authed := api.Group("")
	authed.Use(auth.AuthMiddleware(cfg, db))

	authed.GET("/rooms", h.ListRooms)
	authed.POST("/rooms", h.CreateRoom)
	authed.GET("/rooms/interacted", h.InteractedRooms)
	authed.GET("/rooms/interacted-users", h.InteractedUsers)
	authed.GET("/rooms/:id", h.GetRoom)
	authed.PUT("/rooms/:id", h.UpdateRoom)
	authed.DELETE("/rooms/:id", h.DeleteRoom)
	authed.GET("/rooms/:id/messages", h.ListMessages)

	authed.POST("/messages", h.CreateMessage)
	authed.GET("/messages/:id", h.GetMessage)
	authed.PUT("/messages/:id", h.UpdateMessage)
	authed.DELETE("/messages/:id", h.DeleteMessage)

	authed.GET("/users/online", h.OnlineUsers)

	// 实时端点：身份由客户端连接后自报（AddUserConnectionId）。
	r.GET("/ws", ws.Serve(hub))

	return r
}
