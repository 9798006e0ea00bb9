package model

import "time"

type NotificationType string

const (
	NotificationAppointmentConfirmation NotificationType = "appointment_confirmation"
	NotificationAppointmentCancellation NotificationType = "appointment_cancellation"
	NotificationAppointmentReminder     NotificationType = "appointment_reminder"
	NotificationTeacherAlert            NotificationType = "teacher_notification"
)

type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

// Notification — запись outbox-журнала уведомлений.
// Создаётся в той же транзакции, что и породившее её событие,
// отправляется фоновым диспетчером.
type Notification struct {
	ID             int64              `json:"id"`
	RecipientEmail string             `json:"recipient_email"`
	RecipientName  string             `json:"recipient_name"`
	Type           NotificationType   `json:"notification_type"`
	Status         NotificationStatus `json:"status"`
	Subject        string             `json:"subject"`
	Content        string             `json:"content"`
	AppointmentID  *int64             `json:"appointment_id,omitempty"`
	SentAt         *time.Time         `json:"sent_at,omitempty"`
	ErrorMessage   *string            `json:"error_message,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}
