// Package main runs the background worker: confirmation emails and refresh
// token pruning.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gowra/backend/config"
	"github.com/gowra/backend/internal/auth"
	"github.com/gowra/backend/internal/emails"
	"github.com/gowra/backend/internal/worker"
	"github.com/gowra/backend/pkg/database"
	"github.com/gowra/backend/pkg/mailer"
	"github.com/gowra/backend/pkg/queue"
	"github.com/gowra/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var m mailer.Mailer
	if cfg.Email.SMTPHost != "" {
		m = mailer.NewSMTP(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPUser, cfg.Email.SMTPPass,
			cfg.Email.FromAddress, cfg.Email.FromName)
	} else {
		logger.Warn("SMTP_HOST not set, emails will be logged only")
		m = mailer.NewLog(logger)
	}

	emailRepo := emails.NewRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewEmailProcessor(emailRepo, m, jobQueue, logger)

	authRepo := auth.NewRepository(pool)
	pruner := worker.NewTokenPruner(authRepo, time.Hour, logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go pruner.Run(runCtx)
	go processor.Run(runCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
