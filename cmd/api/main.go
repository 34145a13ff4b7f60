package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pcbooking/internal/app"
	"pcbooking/internal/config"
	"pcbooking/internal/database"
	"pcbooking/internal/pkg/logger"
	"pcbooking/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl := logger.Init(cfg.AppEnv, cfg.LogLevel)
	defer func() { _ = zl.Sync() }()

	if config.IsProdLike(cfg.AppEnv) {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		zl.Fatal("db connect", zap.Error(err))
	}
	if err := database.Migrate(db, repository.Models()...); err != nil {
		zl.Fatal("db migrate", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			zl.Fatal("redis ping", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		zl.Info("session ledger on redis", zap.String("addr", cfg.RedisAddr))
	} else {
		zl.Warn("REDIS_ADDR is empty, session ledger kept in memory")
	}

	application, err := app.New(app.Deps{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		Log:    zl,
	})
	if err != nil {
		zl.Fatal("build app", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           application.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	zl.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("http shutdown", zap.Error(err))
	}
	if err := application.Close(ctx); err != nil {
		zl.Error("notification flush", zap.Error(err))
	}
}
