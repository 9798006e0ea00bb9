package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/parentmeet/parentmeet/internal/app"
	"github.com/parentmeet/parentmeet/internal/config"
	"github.com/parentmeet/parentmeet/internal/notify"
	"github.com/parentmeet/parentmeet/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create database pool", zap.Error(err))
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()

	queue := notify.NewQueue(redisClient)
	notificationRepo := repository.NewNotificationRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	emailSender := notify.NewEmailSender(cfg.SendgridAPIKey, cfg.EmailFrom, cfg.EmailFromName)

	var telegramSender *notify.TelegramSender
	if cfg.TelegramToken != "" {
		telegramSender, err = notify.NewTelegramSender(cfg.TelegramToken)
		if err != nil {
			logger.Fatal("Failed to create telegram sender", zap.Error(err))
		}
		logger.Info("Telegram notification channel enabled")
	}

	dispatcher := notify.NewDispatcher(queue, notificationRepo, userRepo, emailSender, telegramSender, logger)

	if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("Dispatcher stopped with error", zap.Error(err))
	}
}
