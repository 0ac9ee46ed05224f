package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rainet_server/internal/config"
	"rainet_server/internal/db"
	httpServer "rainet_server/internal/http"
	"rainet_server/internal/http/middleware"
	"rainet_server/internal/logger"
	"rainet_server/internal/repository"
	"rainet_server/internal/service"
	"rainet_server/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_JSON") == "true")
	cfg := config.Load()

	var store repository.UserStore
	var users *repository.UserRepository
	if cfg.DatabaseURL != "" {
		pool := db.Connect(cfg.DatabaseURL)
		defer pool.Close()
		users = repository.NewUserRepository(pool)
		store = users
	} else {
		logger.Info("no DATABASE_URL, using in-memory user store")
		store = repository.NewMemoryUserStore()
	}

	tokens := service.NewTokenService(cfg.JWTSecret)
	ratings := service.NewRatingService(store, logger.Get())
	hub := ws.NewHub(cfg, store, tokens, ratings, logger.Get())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub.StartSweep(ctx)

	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	r := gin.Default()
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	httpServer.RegisterRoutes(r, hub, users, cfg)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "require_login", cfg.RequireLogin)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("forced shutdown", "error", err)
	}

	logger.Info("server exited")
}
