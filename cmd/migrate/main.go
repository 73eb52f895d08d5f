package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/lecture-booking-api/migrations"
	"github.com/noah-isme/lecture-booking-api/pkg/config"
	"github.com/noah-isme/lecture-booking-api/pkg/database"
	"github.com/noah-isme/lecture-booking-api/pkg/logger"
)

// Usage: migrate [up|down|status|version]
func main() {
	flag.Parse()
	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	dir := "."
	if cfg.Migrations.Dir != "" {
		goose.SetBaseFS(nil)
		dir = cfg.Migrations.Dir
	} else {
		goose.SetBaseFS(migrations.FS)
	}
	if err := goose.SetDialect("postgres"); err != nil {
		logr.Fatal("failed to set goose dialect", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch command {
	case "up":
		err = goose.UpContext(ctx, db.DB, dir)
	case "down":
		err = goose.DownContext(ctx, db.DB, dir)
	case "status":
		err = goose.StatusContext(ctx, db.DB, dir)
	case "version":
		var version int64
		version, err = goose.GetDBVersionContext(ctx, db.DB)
		if err == nil {
			logr.Info("current migration version", zap.Int64("version", version))
		}
	default:
		logr.Fatal("unknown migrate command", zap.String("command", command))
	}
	if err != nil {
		logr.Fatal("migration failed", zap.String("command", command), zap.Error(err))
	}
	logr.Info("migration finished", zap.String("command", command), zap.String("source", dir))
}
