package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/parentmeet/parentmeet/internal/app"
	"github.com/parentmeet/parentmeet/internal/auth"
	"github.com/parentmeet/parentmeet/internal/config"
	"github.com/parentmeet/parentmeet/internal/controller"
	"github.com/parentmeet/parentmeet/internal/notify"
	"github.com/parentmeet/parentmeet/internal/repository"
	"github.com/parentmeet/parentmeet/internal/service"
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

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()

	userRepo := repository.NewUserRepository(pool)
	teacherRepo := repository.NewTeacherRepository(pool)
	parentRepo := repository.NewParentRepository(pool)
	slotRepo := repository.NewSlotRepository(pool)
	apptRepo := repository.NewAppointmentRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)

	queue := notify.NewQueue(redisClient)
	authManager := auth.NewManager(cfg.JWTSecret, 24*time.Hour)

	userService := service.NewUserService(userRepo, teacherRepo, parentRepo, authManager, logger)
	slotService := service.NewSlotService(pool, slotRepo, logger)
	generatorService := service.NewSlotGeneratorService(pool, slotRepo, logger)
	notificationService := service.NewNotificationService(notificationRepo, apptRepo, slotRepo, parentRepo, teacherRepo, queue, logger)
	appointmentService := service.NewAppointmentService(pool, apptRepo, slotRepo, parentRepo, teacherRepo, notificationService, logger)
	calendarService := service.NewCalendarService(slotRepo, logger)

	scheduler := app.NewScheduler(notificationService, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	handler := controller.NewHandler(
		userService,
		slotService,
		generatorService,
		appointmentService,
		calendarService,
		notificationService,
		logger,
	)
	router := controller.NewRouter(handler, authManager, cfg.CORSOrigins, logger)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
