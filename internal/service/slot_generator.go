package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parentmeet/parentmeet/internal/model"
)

const (
	minMeetingDuration = 15
	maxMeetingDuration = 120

	// Предохранитель от генерации на годы вперёд
	maxGenerationRangeDays = 366
)

var dayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// SlotGeneratorService разворачивает повторяющийся шаблон доступности
// в конкретные слоты.
type SlotGeneratorService struct {
	db       TxBeginner
	slotRepo SlotRepo
	logger   *zap.Logger
}

func NewSlotGeneratorService(db TxBeginner, slotRepo SlotRepo, logger *zap.Logger) *SlotGeneratorService {
	return &SlotGeneratorService{
		db:       db,
		slotRepo: slotRepo,
		logger:   logger,
	}
}

// SmartSlotConfig — шаблон генерации на одну неделю
type SmartSlotConfig struct {
	TeacherID              int64         `json:"teacher_id"`
	DaysOfWeek             []int         `json:"days_of_week"`
	StartTime              model.DayTime `json:"start_time"`
	EndTime                model.DayTime `json:"end_time"`
	MeetingDurationMinutes int           `json:"meeting_duration_minutes"`
	WeekStartDate          model.Date    `json:"week_start_date"`
}

// PreviewSlot — один кандидат в предпросмотре
type PreviewSlot struct {
	DayOfWeek int           `json:"day_of_week"`
	DayName   string        `json:"day_name"`
	StartTime model.DayTime `json:"start_time"`
	EndTime   model.DayTime `json:"end_time"`
}

// SmartPreview — результат предпросмотра, ничего не сохраняется
type SmartPreview struct {
	TotalSlots   int           `json:"total_slots"`
	SlotsPerDay  int           `json:"slots_per_day"`
	TimeRange    string        `json:"time_range"`
	Days         []string      `json:"days"`
	TotalHours   float64       `json:"total_hours"`
	PreviewSlots []PreviewSlot `json:"preview_slots"`
}

// GenerationSummary — итоги генерации
type GenerationSummary struct {
	TotalCreated int      `json:"total_created"`
	TotalSkipped int      `json:"total_skipped"`
	Conflicts    []string `json:"conflicts"`
}

// GenerationResult — созданные слоты и итоги
type GenerationResult struct {
	CreatedSlots []*model.AvailableSlot `json:"created_slots"`
	Summary      GenerationSummary      `json:"summary"`
}

// tileInterval нарезает [start, end) на интервалы длиной duration минут
// с паузой gap минут между соседними. Возвращает времена начала.
// Хвост, не вмещающийся целиком до end, отбрасывается.
func tileInterval(start, end model.DayTime, duration, gap int) []model.DayTime {
	var starts []model.DayTime
	for t := start; t.Add(duration) <= end; t = t.Add(duration + gap) {
		starts = append(starts, t)
	}
	return starts
}

// normalizeDays убирает дубликаты и сортирует дни по возрастанию
func normalizeDays(days []int) ([]int, error) {
	if len(days) == 0 {
		return nil, fmt.Errorf("%w: days_of_week is empty", ErrInvalidPattern)
	}

	seen := make(map[int]bool)
	var out []int
	for _, d := range days {
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("%w: day_of_week %d out of range", ErrInvalidPattern, d)
		}
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}

	sort.Ints(out)
	return out, nil
}

func validatePattern(start, end model.DayTime, duration int) error {
	if start >= end {
		return fmt.Errorf("%w: start time must be before end time", ErrInvalidPattern)
	}
	if duration < minMeetingDuration || duration > maxMeetingDuration {
		return fmt.Errorf("%w: meeting duration must be between %d and %d minutes",
			ErrInvalidPattern, minMeetingDuration, maxMeetingDuration)
	}
	return nil
}

// Preview считает кандидатов по шаблону, не сохраняя их.
// Использует ту же нарезку и ту же проверку конфликтов, что и Create,
// поэтому предпросмотр в точности совпадает с тем, что будет создано.
func (s *SlotGeneratorService) Preview(ctx context.Context, cfg SmartSlotConfig) (*SmartPreview, error) {
	if err := validatePattern(cfg.StartTime, cfg.EndTime, cfg.MeetingDurationMinutes); err != nil {
		return nil, err
	}

	days, err := normalizeDays(cfg.DaysOfWeek)
	if err != nil {
		return nil, err
	}

	starts := tileInterval(cfg.StartTime, cfg.EndTime, cfg.MeetingDurationMinutes, 0)

	preview := &SmartPreview{
		SlotsPerDay: len(starts),
		TimeRange:   cfg.StartTime.String() + " - " + cfg.EndTime.String(),
	}

	for _, day := range days {
		preview.Days = append(preview.Days, dayNames[day])

		existing, err := s.slotRepo.ListForWeekDay(ctx, cfg.TeacherID, cfg.WeekStartDate, day)
		if err != nil {
			return nil, fmt.Errorf("list existing slots: %w", err)
		}

		for _, start := range starts {
			end := start.Add(cfg.MeetingDurationMinutes)
			if findConflict(existing, start, end, 0) != nil {
				continue
			}
			preview.PreviewSlots = append(preview.PreviewSlots, PreviewSlot{
				DayOfWeek: day,
				DayName:   dayNames[day],
				StartTime: start,
				EndTime:   end,
			})
		}
	}

	preview.TotalSlots = len(preview.PreviewSlots)
	preview.TotalHours = float64(preview.TotalSlots*cfg.MeetingDurationMinutes) / 60

	return preview, nil
}

// Create разворачивает шаблон и сохраняет неконфликтующие слоты одной
// транзакцией. Конфликтующие кандидаты пропускаются и попадают в отчёт.
func (s *SlotGeneratorService) Create(ctx context.Context, cfg SmartSlotConfig) (*GenerationResult, error) {
	if err := validatePattern(cfg.StartTime, cfg.EndTime, cfg.MeetingDurationMinutes); err != nil {
		return nil, err
	}

	days, err := normalizeDays(cfg.DaysOfWeek)
	if err != nil {
		return nil, err
	}

	starts := tileInterval(cfg.StartTime, cfg.EndTime, cfg.MeetingDurationMinutes, 0)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	group := uuid.New()
	result := &GenerationResult{Summary: GenerationSummary{Conflicts: []string{}}}

	for _, day := range days {
		// Блокируем слоты дня на время проверки, чтобы параллельная
		// генерация не создала пересекающиеся слоты
		existing, err := s.slotRepo.ListForWeekDayTx(ctx, tx, cfg.TeacherID, cfg.WeekStartDate, day)
		if err != nil {
			return nil, fmt.Errorf("list existing slots: %w", err)
		}

		for _, start := range starts {
			end := start.Add(cfg.MeetingDurationMinutes)

			if conflict := findConflict(existing, start, end, 0); conflict != nil {
				result.Summary.TotalSkipped++
				result.Summary.Conflicts = append(result.Summary.Conflicts,
					fmt.Sprintf("%s %s-%s overlaps slot %d", dayNames[day], start, end, conflict.ID))
				continue
			}

			slot := &model.AvailableSlot{
				TeacherID:      cfg.TeacherID,
				DayOfWeek:      day,
				StartTime:      start,
				EndTime:        end,
				WeekStartDate:  cfg.WeekStartDate,
				GeneratedGroup: &group,
			}
			result.CreatedSlots = append(result.CreatedSlots, slot)
			existing = append(existing, slot)
		}
	}

	if err := s.slotRepo.CreateBatchTx(ctx, tx, result.CreatedSlots); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	result.Summary.TotalCreated = len(result.CreatedSlots)

	s.logger.Info("Smart slots generated",
		zap.Int64("teacher_id", cfg.TeacherID),
		zap.String("group", group.String()),
		zap.Int("created", result.Summary.TotalCreated),
		zap.Int("skipped", result.Summary.TotalSkipped),
	)

	return result, nil
}

// AdvancedPattern — шаблон генерации с паузами между слотами
type AdvancedPattern struct {
	DaysOfWeek           []int         `json:"days_of_week"`
	StartTime            model.DayTime `json:"start_time"`
	EndTime              model.DayTime `json:"end_time"`
	SlotDurationMinutes  int           `json:"slot_duration_minutes"`
	BreakDurationMinutes int           `json:"break_duration_minutes"`
}

// DateRange — включительный диапазон дат
type DateRange struct {
	StartDate model.Date `json:"start_date"`
	EndDate   model.Date `json:"end_date"`
}

// TimeRange — интервал времени внутри дня
type TimeRange struct {
	StartTime model.DayTime `json:"start_time"`
	EndTime   model.DayTime `json:"end_time"`
}

// Exclusions — исключаемые даты и интервалы времени
type Exclusions struct {
	Dates      []model.Date `json:"dates"`
	TimeRanges []TimeRange  `json:"time_ranges"`
}

// AdvancedBulkConfig — генерация по диапазону дат с исключениями
type AdvancedBulkConfig struct {
	TeacherID  int64           `json:"teacher_id"`
	Pattern    AdvancedPattern `json:"pattern"`
	DateRange  DateRange       `json:"date_range"`
	Exclusions *Exclusions     `json:"exclusions,omitempty"`
}

// GenerateAdvanced разворачивает шаблон на каждый подходящий день диапазона
// дат, пропуская исключённые даты и интервалы. Конфликты пропускаются
// и попадают в отчёт; вся генерация идёт одной транзакцией.
func (s *SlotGeneratorService) GenerateAdvanced(ctx context.Context, cfg AdvancedBulkConfig) (*GenerationResult, error) {
	p := cfg.Pattern

	if err := validatePattern(p.StartTime, p.EndTime, p.SlotDurationMinutes); err != nil {
		return nil, err
	}
	if p.BreakDurationMinutes < 0 {
		return nil, fmt.Errorf("%w: break duration cannot be negative", ErrInvalidPattern)
	}

	days, err := normalizeDays(p.DaysOfWeek)
	if err != nil {
		return nil, err
	}
	wantDay := make(map[int]bool, len(days))
	for _, d := range days {
		wantDay[d] = true
	}

	if cfg.DateRange.EndDate.Before(cfg.DateRange.StartDate) {
		return nil, fmt.Errorf("%w: end_date is before start_date", ErrInvalidPattern)
	}
	if cfg.DateRange.StartDate.AddDays(maxGenerationRangeDays).Before(cfg.DateRange.EndDate) {
		return nil, fmt.Errorf("%w: date range exceeds %d days", ErrInvalidPattern, maxGenerationRangeDays)
	}

	excludedDate := make(map[string]bool)
	var excludedRanges []TimeRange
	if cfg.Exclusions != nil {
		for _, d := range cfg.Exclusions.Dates {
			excludedDate[d.String()] = true
		}
		excludedRanges = cfg.Exclusions.TimeRanges
	}

	starts := tileInterval(p.StartTime, p.EndTime, p.SlotDurationMinutes, p.BreakDurationMinutes)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	group := uuid.New()
	result := &GenerationResult{Summary: GenerationSummary{Conflicts: []string{}}}

	for date := cfg.DateRange.StartDate; !date.After(cfg.DateRange.EndDate); date = date.AddDays(1) {
		day := date.DayOfWeek()
		if !wantDay[day] || excludedDate[date.String()] {
			continue
		}

		weekStart := date.WeekStart()

		existing, err := s.slotRepo.ListForWeekDayTx(ctx, tx, cfg.TeacherID, weekStart, day)
		if err != nil {
			return nil, fmt.Errorf("list existing slots: %w", err)
		}

		for _, start := range starts {
			end := start.Add(p.SlotDurationMinutes)

			if overlapsAny(excludedRanges, start, end) {
				continue
			}

			if conflict := findConflict(existing, start, end, 0); conflict != nil {
				result.Summary.TotalSkipped++
				result.Summary.Conflicts = append(result.Summary.Conflicts,
					fmt.Sprintf("%s %s-%s overlaps slot %d", date, start, end, conflict.ID))
				continue
			}

			slot := &model.AvailableSlot{
				TeacherID:      cfg.TeacherID,
				DayOfWeek:      day,
				StartTime:      start,
				EndTime:        end,
				WeekStartDate:  weekStart,
				GeneratedGroup: &group,
			}
			result.CreatedSlots = append(result.CreatedSlots, slot)
			existing = append(existing, slot)
		}
	}

	if err := s.slotRepo.CreateBatchTx(ctx, tx, result.CreatedSlots); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	result.Summary.TotalCreated = len(result.CreatedSlots)

	s.logger.Info("Advanced slots generated",
		zap.Int64("teacher_id", cfg.TeacherID),
		zap.String("group", group.String()),
		zap.String("from", cfg.DateRange.StartDate.String()),
		zap.String("to", cfg.DateRange.EndDate.String()),
		zap.Int("created", result.Summary.TotalCreated),
		zap.Int("skipped", result.Summary.TotalSkipped),
	)

	return result, nil
}

// overlapsAny проверяет пересечение интервала с любым из списка
func overlapsAny(ranges []TimeRange, start, end model.DayTime) bool {
	for _, r := range ranges {
		if start < r.EndTime && r.StartTime < end {
			return true
		}
	}
	return false
}
