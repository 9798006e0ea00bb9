package model

import (
	"time"

	"github.com/google/uuid"
)

// AvailableSlot — интервал времени учителя, доступный для записи.
// День недели: 0 = понедельник, 6 = воскресенье.
type AvailableSlot struct {
	ID             int64      `json:"id"`
	TeacherID      int64      `json:"teacher_id"`
	DayOfWeek      int        `json:"day_of_week"`
	StartTime      DayTime    `json:"start_time"`
	EndTime        DayTime    `json:"end_time"`
	WeekStartDate  Date       `json:"week_start_date"` // понедельник недели слота
	IsBooked       bool       `json:"is_booked"`
	GeneratedGroup *uuid.UUID `json:"generated_group,omitempty"` // id пакета генерации
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Дополнительные поля для удобства (не из БД)
	Teacher *Teacher `json:"teacher,omitempty"`
}

// Overlaps проверяет пересечение интервалов [start, end) на одном дне
func (s *AvailableSlot) Overlaps(start, end DayTime) bool {
	return start < s.EndTime && s.StartTime < end
}

// Date возвращает календарную дату слота
func (s *AvailableSlot) Date() Date {
	return s.WeekStartDate.AddDays(s.DayOfWeek)
}
