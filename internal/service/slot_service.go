package service

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/parentmeet/parentmeet/internal/model"
	"github.com/parentmeet/parentmeet/internal/repository"
)

type SlotService struct {
	db       TxBeginner
	slotRepo SlotRepo
	logger   *zap.Logger
}

func NewSlotService(db TxBeginner, slotRepo SlotRepo, logger *zap.Logger) *SlotService {
	return &SlotService{
		db:       db,
		slotRepo: slotRepo,
		logger:   logger,
	}
}

// validateSlotTimes проверяет корректность интервала
func validateSlotTimes(start, end model.DayTime) error {
	if start >= end {
		return ErrInvalidTimeRange
	}
	return nil
}

// findConflict ищет пересечение кандидата с существующими слотами того же
// дня и недели. excludeID > 0 исключает сам обновляемый слот из сравнения.
func findConflict(existing []*model.AvailableSlot, start, end model.DayTime, excludeID int64) *model.AvailableSlot {
	for _, e := range existing {
		if excludeID > 0 && e.ID == excludeID {
			continue
		}
		if e.Overlaps(start, end) {
			return e
		}
	}
	return nil
}

// Create создаёт один слот после проверки интервала и пересечений
func (s *SlotService) Create(ctx context.Context, slot *model.AvailableSlot) error {
	if err := validateSlotTimes(slot.StartTime, slot.EndTime); err != nil {
		return err
	}
	if slot.DayOfWeek < 0 || slot.DayOfWeek > 6 {
		return fmt.Errorf("%w: day_of_week must be 0..6", ErrInvalidTimeRange)
	}

	existing, err := s.slotRepo.ListForWeekDay(ctx, slot.TeacherID, slot.WeekStartDate, slot.DayOfWeek)
	if err != nil {
		return fmt.Errorf("list existing slots: %w", err)
	}

	if conflict := findConflict(existing, slot.StartTime, slot.EndTime, 0); conflict != nil {
		return &SlotConflictError{SlotID: conflict.ID}
	}

	if err := s.slotRepo.Create(ctx, slot); err != nil {
		return err
	}

	s.logger.Info("Slot created",
		zap.Int64("slot_id", slot.ID),
		zap.Int64("teacher_id", slot.TeacherID),
		zap.Int("day_of_week", slot.DayOfWeek),
		zap.String("start", slot.StartTime.String()),
		zap.String("end", slot.EndTime.String()),
	)

	return nil
}

// GetByID получает слот по ID
func (s *SlotService) GetByID(ctx context.Context, id int64) (*model.AvailableSlot, error) {
	slot, err := s.slotRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, fmt.Errorf("slot %d: %w", id, ErrNotFound)
	}
	return slot, nil
}

// List получает слоты по фильтру
func (s *SlotService) List(ctx context.Context, filter repository.SlotFilter) ([]*model.AvailableSlot, error) {
	return s.slotRepo.List(ctx, filter)
}

// UpdateInput — изменяемые поля слота
type UpdateInput struct {
	DayOfWeek     int           `json:"day_of_week"`
	StartTime     model.DayTime `json:"start_time"`
	EndTime       model.DayTime `json:"end_time"`
	WeekStartDate model.Date    `json:"week_start_date"`
}

// Update меняет время слота. Занятый слот менять нельзя.
func (s *SlotService) Update(ctx context.Context, id int64, in UpdateInput) (*model.AvailableSlot, error) {
	slot, err := s.slotRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, fmt.Errorf("slot %d: %w", id, ErrNotFound)
	}
	if slot.IsBooked {
		return nil, ErrSlotInUse
	}

	if err := validateSlotTimes(in.StartTime, in.EndTime); err != nil {
		return nil, err
	}
	if in.DayOfWeek < 0 || in.DayOfWeek > 6 {
		return nil, fmt.Errorf("%w: day_of_week must be 0..6", ErrInvalidTimeRange)
	}

	existing, err := s.slotRepo.ListForWeekDay(ctx, slot.TeacherID, in.WeekStartDate, in.DayOfWeek)
	if err != nil {
		return nil, fmt.Errorf("list existing slots: %w", err)
	}

	// Сам обновляемый слот исключаем из сравнения
	if conflict := findConflict(existing, in.StartTime, in.EndTime, slot.ID); conflict != nil {
		return nil, &SlotConflictError{SlotID: conflict.ID}
	}

	slot.DayOfWeek = in.DayOfWeek
	slot.StartTime = in.StartTime
	slot.EndTime = in.EndTime
	slot.WeekStartDate = in.WeekStartDate

	if err := s.slotRepo.Update(ctx, slot); err != nil {
		return nil, err
	}

	s.logger.Info("Slot updated", zap.Int64("slot_id", slot.ID))

	return slot, nil
}

// Delete удаляет слот. Занятый слот удалять нельзя.
func (s *SlotService) Delete(ctx context.Context, id int64) error {
	slot, err := s.slotRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if slot == nil {
		return fmt.Errorf("slot %d: %w", id, ErrNotFound)
	}
	if slot.IsBooked {
		return ErrSlotInUse
	}

	if err := s.slotRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Slot deleted", zap.Int64("slot_id", id))

	return nil
}

// BulkEntry — один слот в ручном пакетном создании
type BulkEntry struct {
	DayOfWeek int           `json:"day_of_week"`
	StartTime model.DayTime `json:"start_time"`
	EndTime   model.DayTime `json:"end_time"`
}

// BulkCreate создаёт пачку слотов одной транзакцией.
// В отличие от генераторов, пакетное создание падает на первом же конфликте.
func (s *SlotService) BulkCreate(ctx context.Context, teacherID int64, weekStart model.Date, entries []BulkEntry) ([]*model.AvailableSlot, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no slots given", ErrInvalidPattern)
	}

	for _, e := range entries {
		if err := validateSlotTimes(e.StartTime, e.EndTime); err != nil {
			return nil, err
		}
		if e.DayOfWeek < 0 || e.DayOfWeek > 6 {
			return nil, fmt.Errorf("%w: day_of_week must be 0..6", ErrInvalidTimeRange)
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	byDay := make(map[int][]BulkEntry)
	for _, e := range entries {
		byDay[e.DayOfWeek] = append(byDay[e.DayOfWeek], e)
	}

	days := make([]int, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Ints(days)

	var slots []*model.AvailableSlot
	for _, day := range days {
		// Блокируем слоты дня, чтобы параллельное создание не прошло мимо проверки
		existing, err := s.slotRepo.ListForWeekDayTx(ctx, tx, teacherID, weekStart, day)
		if err != nil {
			return nil, fmt.Errorf("list existing slots: %w", err)
		}

		for _, e := range byDay[day] {
			if conflict := findConflict(existing, e.StartTime, e.EndTime, 0); conflict != nil {
				return nil, &SlotConflictError{SlotID: conflict.ID}
			}

			slot := &model.AvailableSlot{
				TeacherID:     teacherID,
				DayOfWeek:     day,
				StartTime:     e.StartTime,
				EndTime:       e.EndTime,
				WeekStartDate: weekStart,
			}
			slots = append(slots, slot)
			// Кандидаты одной пачки тоже не должны пересекаться между собой
			existing = append(existing, slot)
		}
	}

	if err := s.slotRepo.CreateBatchTx(ctx, tx, slots); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Info("Slots bulk created",
		zap.Int64("teacher_id", teacherID),
		zap.Int("count", len(slots)),
	)

	return slots, nil
}
