package model

import "time"

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"   // Ожидает подтверждения учителя
	AppointmentStatusConfirmed AppointmentStatus = "confirmed" // Подтверждено
	AppointmentStatusCompleted AppointmentStatus = "completed" // Встреча состоялась
	AppointmentStatusCancelled AppointmentStatus = "cancelled" // Отменено
	AppointmentStatusNoShow    AppointmentStatus = "no_show"   // Родитель не пришёл
)

// Terminal сообщает, является ли статус конечным
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCancelled || s == AppointmentStatusNoShow
}

type MeetingMode string

const (
	MeetingModeOnline     MeetingMode = "online"
	MeetingModeFaceToFace MeetingMode = "face_to_face"
)

type Appointment struct {
	ID          int64             `json:"id"`
	ParentID    int64             `json:"parent_id"`
	TeacherID   int64             `json:"teacher_id"`
	SlotID      int64             `json:"slot_id"`
	MeetingMode MeetingMode       `json:"meeting_mode"`
	Status      AppointmentStatus `json:"status"`
	Notes       *string           `json:"notes,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`

	// Дополнительные поля для удобства (не из БД)
	Parent  *Parent        `json:"parent,omitempty"`
	Teacher *Teacher       `json:"teacher,omitempty"`
	Slot    *AvailableSlot `json:"slot,omitempty"`
}
