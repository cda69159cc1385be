package main

import (
	"context"
	"os"
	"time"

	"github.com/abdullah-koca/lunora/config"
	"github.com/abdullah-koca/lunora/internal/database"
	"github.com/abdullah-koca/lunora/internal/logger"
	"github.com/abdullah-koca/lunora/internal/migrate"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Отдельный бинарь для прогонки миграций в CI/CD, без запуска сервера.
func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.L()

	cfg := config.Load(log)
	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := migrate.MigrateStoreDB(ctx, db, log, migrate.DefaultMigrateOptions()); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}
	log.Info("migrations applied")
}
