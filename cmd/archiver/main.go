package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/loadtrail/freight-authz/internal/infra/config"
	"github.com/loadtrail/freight-authz/internal/infra/database"
	"github.com/loadtrail/freight-authz/internal/infra/logger"
	postgresrepo "github.com/loadtrail/freight-authz/internal/repository/postgres"
	"github.com/loadtrail/freight-authz/internal/usecase"
)

// Archives history records older than the retention horizon. Intended to run
// from cron; prints the number of archived records on success.
func main() {
	olderThanDays := flag.Int("older-than-days", 0, "archive records older than this many days (defaults to retention.default_days)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	days := *olderThanDays
	if days <= 0 {
		days = cfg.Retention.DefaultDays
	}

	zapLogger, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, zapLogger)
	if err != nil {
		log.Fatalf("failed to init postgres: %v", err)
	}
	defer pool.Close()

	history := postgresrepo.NewHistoryRepository(pool)
	archiver := usecase.NewArchiveService(history, zapLogger)

	archived, err := archiver.ArchiveOlderThan(ctx, days)
	if err != nil {
		log.Printf("archival failed: %v", err)
		os.Exit(1)
	}

	fmt.Printf("archived %d records older than %d days\n", archived, days)
}
