package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/parentmeet/parentmeet/internal/model"
	"github.com/parentmeet/parentmeet/internal/repository"
)

// CalendarService собирает недельные и месячные представления расписания
type CalendarService struct {
	slotRepo SlotRepo
	logger   *zap.Logger
}

func NewCalendarService(slotRepo SlotRepo, logger *zap.Logger) *CalendarService {
	return &CalendarService{
		slotRepo: slotRepo,
		logger:   logger,
	}
}

// DaySchedule — один день недельного расписания
type DaySchedule struct {
	DayOfWeek int                    `json:"day_of_week"`
	DayName   string                 `json:"day_name"`
	Date      model.Date             `json:"date"`
	Slots     []*model.AvailableSlot `json:"slots"`
	Available int                    `json:"available"`
	Booked    int                    `json:"booked"`
}

// WeeklySchedule — расписание учителя на неделю
type WeeklySchedule struct {
	TeacherID      int64         `json:"teacher_id"`
	WeekStartDate  model.Date    `json:"week_start_date"`
	Days           []DaySchedule `json:"days"`
	TotalAvailable int           `json:"total_available"`
	TotalBooked    int           `json:"total_booked"`
}

// WeekSchedule собирает расписание недели, в которую попадает дата
func (s *CalendarService) WeekSchedule(ctx context.Context, teacherID int64, date model.Date) (*WeeklySchedule, error) {
	weekStart := date.WeekStart()

	slots, err := s.slotRepo.List(ctx, repository.SlotFilter{
		TeacherID:     teacherID,
		WeekStartDate: &weekStart,
	})
	if err != nil {
		return nil, err
	}

	schedule := &WeeklySchedule{
		TeacherID:     teacherID,
		WeekStartDate: weekStart,
	}

	byDay := make(map[int][]*model.AvailableSlot)
	for _, slot := range slots {
		byDay[slot.DayOfWeek] = append(byDay[slot.DayOfWeek], slot)
	}

	for day := 0; day < 7; day++ {
		ds := DaySchedule{
			DayOfWeek: day,
			DayName:   dayNames[day],
			Date:      weekStart.AddDays(day),
			Slots:     byDay[day],
		}
		for _, slot := range ds.Slots {
			if slot.IsBooked {
				ds.Booked++
			} else {
				ds.Available++
			}
		}
		schedule.TotalAvailable += ds.Available
		schedule.TotalBooked += ds.Booked
		schedule.Days = append(schedule.Days, ds)
	}

	return schedule, nil
}

// MonthWeek — сводка одной недели месяца
type MonthWeek struct {
	WeekStartDate model.Date `json:"week_start_date"`
	TotalSlots    int        `json:"total_slots"`
	Available     int        `json:"available"`
	Booked        int        `json:"booked"`
}

// MonthView — помесячная сводка расписания учителя
type MonthView struct {
	TeacherID int64       `json:"teacher_id"`
	Year      int         `json:"year"`
	Month     int         `json:"month"`
	Weeks     []MonthWeek `json:"weeks"`
}

// Month собирает сводку по всем неделям, пересекающим указанный месяц
func (s *CalendarService) Month(ctx context.Context, teacherID int64, year, month int) (*MonthView, error) {
	first := model.NewDate(year, time.Month(month), 1)
	last := model.NewDate(year, time.Month(month)+1, 1).AddDays(-1)

	view := &MonthView{
		TeacherID: teacherID,
		Year:      year,
		Month:     month,
	}

	for weekStart := first.WeekStart(); !weekStart.After(last); weekStart = weekStart.AddDays(7) {
		ws := weekStart
		slots, err := s.slotRepo.List(ctx, repository.SlotFilter{
			TeacherID:     teacherID,
			WeekStartDate: &ws,
		})
		if err != nil {
			return nil, err
		}

		week := MonthWeek{WeekStartDate: weekStart, TotalSlots: len(slots)}
		for _, slot := range slots {
			if slot.IsBooked {
				week.Booked++
			} else {
				week.Available++
			}
		}
		view.Weeks = append(view.Weeks, week)
	}

	return view, nil
}

// WeekImage рисует PNG расписания недели, в которую попадает дата
func (s *CalendarService) WeekImage(ctx context.Context, teacherID int64, date model.Date) ([]byte, error) {
	weekStart := date.WeekStart()

	slots, err := s.slotRepo.List(ctx, repository.SlotFilter{
		TeacherID:     teacherID,
		WeekStartDate: &weekStart,
	})
	if err != nil {
		return nil, err
	}

	return renderWeekImage(weekStart, slots)
}
