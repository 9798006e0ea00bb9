package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/parentmeet/parentmeet/internal/model"
	"github.com/parentmeet/parentmeet/internal/repository"
)

// allowedTransitions описывает машину статусов записи.
// Из терминальных статусов переходов нет.
var allowedTransitions = map[model.AppointmentStatus][]model.AppointmentStatus{
	model.AppointmentStatusPending: {
		model.AppointmentStatusConfirmed,
		model.AppointmentStatusCancelled,
		model.AppointmentStatusNoShow,
	},
	model.AppointmentStatusConfirmed: {
		model.AppointmentStatusCompleted,
		model.AppointmentStatusCancelled,
		model.AppointmentStatusNoShow,
	},
}

func canTransition(from, to model.AppointmentStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

type AppointmentService struct {
	db            TxBeginner
	apptRepo      AppointmentRepo
	slotRepo      SlotRepo
	parentRepo    ParentRepo
	teacherRepo   TeacherRepo
	notifications *NotificationService
	logger        *zap.Logger
}

func NewAppointmentService(
	db TxBeginner,
	apptRepo AppointmentRepo,
	slotRepo SlotRepo,
	parentRepo ParentRepo,
	teacherRepo TeacherRepo,
	notifications *NotificationService,
	logger *zap.Logger,
) *AppointmentService {
	return &AppointmentService{
		db:            db,
		apptRepo:      apptRepo,
		slotRepo:      slotRepo,
		parentRepo:    parentRepo,
		teacherRepo:   teacherRepo,
		notifications: notifications,
		logger:        logger,
	}
}

// BookInput — параметры бронирования
type BookInput struct {
	ParentID    int64             `json:"parent_id"`
	SlotID      int64             `json:"slot_id"`
	MeetingMode model.MeetingMode `json:"meeting_mode"`
	Notes       *string           `json:"notes,omitempty"`
}

// Book бронирует слот для родителя. Создание записи и пометка слота
// занятым коммитятся вместе; проигравший из двух одновременных
// бронирований получает ErrSlotUnavailable.
func (s *AppointmentService) Book(ctx context.Context, in BookInput) (*model.Appointment, error) {
	if in.MeetingMode != model.MeetingModeOnline && in.MeetingMode != model.MeetingModeFaceToFace {
		return nil, fmt.Errorf("%w: unknown meeting mode %q", ErrInvalidInput, in.MeetingMode)
	}

	parent, err := s.parentRepo.GetByID(ctx, in.ParentID)
	if err != nil {
		return nil, fmt.Errorf("get parent: %w", err)
	}
	if parent == nil {
		return nil, fmt.Errorf("parent %d: %w", in.ParentID, ErrNotFound)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Блокируем строку слота на время проверки и пометки
	slot, err := s.slotRepo.GetByIDForUpdateTx(ctx, tx, in.SlotID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return nil, fmt.Errorf("slot %d: %w", in.SlotID, ErrNotFound)
	}
	if slot.IsBooked {
		return nil, ErrSlotUnavailable
	}

	teacher, err := s.teacherRepo.GetByID(ctx, slot.TeacherID)
	if err != nil {
		return nil, fmt.Errorf("get teacher: %w", err)
	}
	if teacher == nil {
		return nil, fmt.Errorf("teacher %d: %w", slot.TeacherID, ErrNotFound)
	}

	// check-and-set: даже под блокировкой перепроверяем is_booked в самом UPDATE
	booked, err := s.slotRepo.MarkBookedTx(ctx, tx, slot.ID)
	if err != nil {
		return nil, err
	}
	if !booked {
		return nil, ErrSlotUnavailable
	}

	appt := &model.Appointment{
		ParentID:    parent.ID,
		TeacherID:   slot.TeacherID,
		SlotID:      slot.ID,
		MeetingMode: in.MeetingMode,
		Status:      model.AppointmentStatusPending,
		Notes:       in.Notes,
	}

	if err := s.apptRepo.CreateTx(ctx, tx, appt); err != nil {
		return nil, err
	}

	queued, err := s.notifications.EnqueueBookingTx(ctx, tx, appt, parent, teacher, slot)
	if err != nil {
		return nil, fmt.Errorf("enqueue notifications: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	// После коммита — только best-effort доставка
	s.notifications.Push(ctx, queued)

	s.logger.Info("Appointment booked",
		zap.Int64("appointment_id", appt.ID),
		zap.Int64("parent_id", parent.ID),
		zap.Int64("teacher_id", slot.TeacherID),
		zap.Int64("slot_id", slot.ID),
		zap.String("meeting_mode", string(in.MeetingMode)),
	)

	appt.Parent = parent
	appt.Teacher = teacher
	appt.Slot = slot

	return appt, nil
}

// GetByID получает запись по ID
func (s *AppointmentService) GetByID(ctx context.Context, id int64) (*model.Appointment, error) {
	appt, err := s.apptRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt == nil {
		return nil, fmt.Errorf("appointment %d: %w", id, ErrNotFound)
	}
	return appt, nil
}

// List получает записи по фильтру
func (s *AppointmentService) List(ctx context.Context, filter repository.AppointmentFilter) ([]*model.Appointment, error) {
	return s.apptRepo.List(ctx, filter)
}

// Summary считает записи по статусам
func (s *AppointmentService) Summary(ctx context.Context, filter repository.AppointmentFilter) (map[model.AppointmentStatus]int, error) {
	return s.apptRepo.CountByStatus(ctx, filter)
}

// UpdateStatus переводит запись в новый статус по машине состояний.
// Отмена дополнительно освобождает слот в той же транзакции.
func (s *AppointmentService) UpdateStatus(ctx context.Context, id int64, newStatus model.AppointmentStatus) (*model.Appointment, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	appt, err := s.apptRepo.GetByIDForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	if appt == nil {
		return nil, fmt.Errorf("appointment %d: %w", id, ErrNotFound)
	}

	if !canTransition(appt.Status, newStatus) {
		return nil, &StatusTransitionError{From: appt.Status, To: newStatus}
	}

	oldStatus := appt.Status

	if err := s.apptRepo.UpdateStatusTx(ctx, tx, id, newStatus); err != nil {
		return nil, err
	}
	appt.Status = newStatus

	var queued []*model.Notification

	parent, teacher, slot, err := s.notifications.loadParticipants(ctx, appt)
	if err != nil {
		return nil, err
	}

	switch newStatus {
	case model.AppointmentStatusCancelled:
		// Отмена освобождает слот для повторного бронирования
		if err := s.slotRepo.MarkAvailableTx(ctx, tx, appt.SlotID); err != nil {
			return nil, err
		}
		queued, err = s.notifications.EnqueueCancellationTx(ctx, tx, appt, parent, teacher, slot)
	case model.AppointmentStatusConfirmed:
		queued, err = s.notifications.EnqueueStatusChangeTx(ctx, tx, appt, parent, teacher, slot)
	}
	if err != nil {
		return nil, fmt.Errorf("enqueue notifications: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	s.notifications.Push(ctx, queued)

	s.logger.Info("Appointment status updated",
		zap.Int64("appointment_id", id),
		zap.String("from", string(oldStatus)),
		zap.String("to", string(newStatus)),
	)

	return appt, nil
}

// Cancel отменяет запись и освобождает слот
func (s *AppointmentService) Cancel(ctx context.Context, id int64) (*model.Appointment, error) {
	return s.UpdateStatus(ctx, id, model.AppointmentStatusCancelled)
}
