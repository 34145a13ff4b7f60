package main

import (
	"context"
	"log"
	"time"

	"pcbooking/internal/config"
	"pcbooking/internal/database"
	"pcbooking/internal/pkg/logger"
	"pcbooking/internal/repository"

	"github.com/joho/godotenv"
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

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		zl.Fatal("db connect failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := repository.NewRevokedTokenRepository(db).DeleteExpired(ctx, time.Now())
	if err != nil {
		zl.Fatal("cleanup revoked_tokens failed", zap.Error(err))
	}
	zl.Info("auth cleanup completed", zap.Int64("revoked_tokens", n))
}
