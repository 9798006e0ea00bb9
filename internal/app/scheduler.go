package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/parentmeet/parentmeet/internal/service"
)

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	notifications *service.NotificationService
	logger        *zap.Logger
	stopChan      chan struct{}
}

// NewScheduler создаёт новый планировщик
func NewScheduler(notifications *service.NotificationService, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		notifications: notifications,
		logger:        logger,
		stopChan:      make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler")

	go s.runReminderTask(ctx)
}

// Stop останавливает фоновые задачи
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
}

// runReminderTask периодически ставит в очередь напоминания о завтрашних встречах
func (s *Scheduler) runReminderTask(ctx context.Context) {
	// Первый запуск сразу при старте
	s.enqueueReminders(ctx)

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.enqueueReminders(ctx)
		case <-s.stopChan:
			s.logger.Info("Reminder task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Reminder task cancelled")
			return
		}
	}
}

// enqueueReminders создаёт напоминания для всех подтверждённых встреч на завтра
func (s *Scheduler) enqueueReminders(ctx context.Context) {
	s.logger.Info("Starting reminder enqueue run")

	count, err := s.notifications.EnqueueUpcomingReminders(ctx)
	if err != nil {
		s.logger.Error("Failed to enqueue reminders", zap.Error(err))
		return
	}

	s.logger.Info("Reminder enqueue run completed", zap.Int("count", count))
}
