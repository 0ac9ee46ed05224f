package http

import (
	"rainet_server/internal/config"
	"rainet_server/internal/http/handlers"
	"rainet_server/internal/http/middleware"
	"rainet_server/internal/repository"
	"rainet_server/internal/ws"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires the HTTP surface: health, leaderboard and the
// websocket endpoint the whole game protocol runs over. users may be
// nil in open-login mode.
func RegisterRoutes(r *gin.Engine, hub *ws.Hub, users *repository.UserRepository, cfg *config.Config) {
	r.GET("/healthz", handlers.Health)

	r.GET("/leaderboard",
		middleware.RedisRateLimit(cfg.ConnRateLimit, cfg.ConnRateWindow),
		handlers.Leaderboard(users))

	r.GET("/ws",
		middleware.RedisRateLimit(cfg.ConnRateLimit, cfg.ConnRateWindow),
		ws.HandleWS(hub))
}
