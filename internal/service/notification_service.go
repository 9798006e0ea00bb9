package service

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	"go.uber.org/zap"

	"github.com/parentmeet/parentmeet/internal/model"
	"github.com/parentmeet/parentmeet/internal/repository"
)

// Шаблоны писем. Темы и тексты рендерятся при создании outbox-записи,
// диспетчер отправляет уже готовый контент.
var emailTemplates = template.Must(template.New("emails").Parse(`
{{define "appointment_confirmation_subject"}}Appointment with {{.TeacherName}} on {{.Date}}{{end}}
{{define "appointment_confirmation_body"}}Dear {{.RecipientName}},

Your appointment with {{.TeacherName}} ({{.TeacherSubject}}) has been registered.

Date: {{.Date}}
Time: {{.StartTime}} - {{.EndTime}}
Meeting mode: {{.MeetingMode}}
Student: {{.StudentName}}

You will receive another message once the teacher confirms the appointment.
{{end}}
{{define "appointment_cancellation_subject"}}Appointment on {{.Date}} cancelled{{end}}
{{define "appointment_cancellation_body"}}Dear {{.RecipientName}},

The appointment on {{.Date}} at {{.StartTime}} has been cancelled.
The time slot is available again.
{{end}}
{{define "appointment_reminder_subject"}}Reminder: appointment tomorrow at {{.StartTime}}{{end}}
{{define "appointment_reminder_body"}}Dear {{.RecipientName}},

This is a reminder about your appointment with {{.TeacherName}} tomorrow,
{{.Date}}, {{.StartTime}} - {{.EndTime}} ({{.MeetingMode}}).
{{end}}
{{define "teacher_notification_subject"}}New appointment request on {{.Date}}{{end}}
{{define "teacher_notification_body"}}Dear {{.RecipientName}},

{{.ParentName}} (parent of {{.StudentName}}) booked an appointment with you.

Date: {{.Date}}
Time: {{.StartTime}} - {{.EndTime}}
Meeting mode: {{.MeetingMode}}

Please confirm or decline the appointment.
{{end}}
{{define "appointment_status_subject"}}Appointment on {{.Date}} {{.Status}}{{end}}
{{define "appointment_status_body"}}Dear {{.RecipientName}},

Your appointment with {{.TeacherName}} on {{.Date}} at {{.StartTime}} is now {{.Status}}.
{{end}}
`))

type emailData struct {
	RecipientName  string
	ParentName     string
	TeacherName    string
	TeacherSubject string
	StudentName    string
	Date           string
	StartTime      string
	EndTime        string
	MeetingMode    string
	Status         string
}

func renderEmail(kind string, data emailData) (subject, body string, err error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, kind+"_subject", data); err != nil {
		return "", "", fmt.Errorf("render subject: %w", err)
	}
	subject = buf.String()

	buf.Reset()
	if err := emailTemplates.ExecuteTemplate(&buf, kind+"_body", data); err != nil {
		return "", "", fmt.Errorf("render body: %w", err)
	}
	body = buf.String()

	return subject, body, nil
}

// NotificationService ведёт outbox-журнал и кормит очередь диспетчера.
// Отправка всегда best-effort: сбой очереди или письма не влияет
// на транзакции бронирования.
type NotificationService struct {
	repo      NotificationRepo
	apptRepo  AppointmentRepo
	slotRepo  SlotRepo
	parents   ParentRepo
	teachers  TeacherRepo
	queue     NotificationQueue
	logger    *zap.Logger
}

func NewNotificationService(
	repo NotificationRepo,
	apptRepo AppointmentRepo,
	slotRepo SlotRepo,
	parents ParentRepo,
	teachers TeacherRepo,
	queue NotificationQueue,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		repo:     repo,
		apptRepo: apptRepo,
		slotRepo: slotRepo,
		parents:  parents,
		teachers: teachers,
		queue:    queue,
		logger:   logger,
	}
}

func buildEmailData(appt *model.Appointment, parent *model.Parent, teacher *model.Teacher, slot *model.AvailableSlot) emailData {
	return emailData{
		ParentName:     parent.User.FullName(),
		TeacherName:    teacher.User.FullName(),
		TeacherSubject: teacher.Subject,
		StudentName:    parent.StudentName,
		Date:           slot.Date().String(),
		StartTime:      slot.StartTime.String(),
		EndTime:        slot.EndTime.String(),
		MeetingMode:    string(appt.MeetingMode),
		Status:         string(appt.Status),
	}
}

func (s *NotificationService) enqueueTx(ctx context.Context, q repository.Querier, kind model.NotificationType, tmpl string, email, name string, apptID int64, data emailData) (*model.Notification, error) {
	data.RecipientName = name

	subject, body, err := renderEmail(tmpl, data)
	if err != nil {
		return nil, err
	}

	n := &model.Notification{
		RecipientEmail: email,
		RecipientName:  name,
		Type:           kind,
		Status:         model.NotificationStatusPending,
		Subject:        subject,
		Content:        body,
		AppointmentID:  &apptID,
	}

	if err := s.repo.CreateTx(ctx, q, n); err != nil {
		return nil, err
	}

	return n, nil
}

// EnqueueBookingTx пишет в outbox подтверждение родителю и оповещение
// учителю внутри транзакции бронирования
func (s *NotificationService) EnqueueBookingTx(ctx context.Context, q repository.Querier, appt *model.Appointment, parent *model.Parent, teacher *model.Teacher, slot *model.AvailableSlot) ([]*model.Notification, error) {
	data := buildEmailData(appt, parent, teacher, slot)

	toParent, err := s.enqueueTx(ctx, q, model.NotificationAppointmentConfirmation, "appointment_confirmation",
		parent.User.Email, parent.User.FullName(), appt.ID, data)
	if err != nil {
		return nil, err
	}

	toTeacher, err := s.enqueueTx(ctx, q, model.NotificationTeacherAlert, "teacher_notification",
		teacher.User.Email, teacher.User.FullName(), appt.ID, data)
	if err != nil {
		return nil, err
	}

	return []*model.Notification{toParent, toTeacher}, nil
}

// EnqueueCancellationTx пишет в outbox уведомления об отмене обеим сторонам
func (s *NotificationService) EnqueueCancellationTx(ctx context.Context, q repository.Querier, appt *model.Appointment, parent *model.Parent, teacher *model.Teacher, slot *model.AvailableSlot) ([]*model.Notification, error) {
	data := buildEmailData(appt, parent, teacher, slot)

	toParent, err := s.enqueueTx(ctx, q, model.NotificationAppointmentCancellation, "appointment_cancellation",
		parent.User.Email, parent.User.FullName(), appt.ID, data)
	if err != nil {
		return nil, err
	}

	toTeacher, err := s.enqueueTx(ctx, q, model.NotificationAppointmentCancellation, "appointment_cancellation",
		teacher.User.Email, teacher.User.FullName(), appt.ID, data)
	if err != nil {
		return nil, err
	}

	return []*model.Notification{toParent, toTeacher}, nil
}

// EnqueueStatusChangeTx уведомляет родителя о смене статуса записи
func (s *NotificationService) EnqueueStatusChangeTx(ctx context.Context, q repository.Querier, appt *model.Appointment, parent *model.Parent, teacher *model.Teacher, slot *model.AvailableSlot) ([]*model.Notification, error) {
	data := buildEmailData(appt, parent, teacher, slot)

	n, err := s.enqueueTx(ctx, q, model.NotificationAppointmentConfirmation, "appointment_status",
		parent.User.Email, parent.User.FullName(), appt.ID, data)
	if err != nil {
		return nil, err
	}

	return []*model.Notification{n}, nil
}

// Push отправляет ID уведомлений в очередь диспетчера. Вызывается после
// коммита; сбой только логируется — диспетчер подберёт записи при обходе
// pending-строк.
func (s *NotificationService) Push(ctx context.Context, notifications []*model.Notification) {
	for _, n := range notifications {
		if err := s.queue.Push(ctx, n.ID); err != nil {
			s.logger.Warn("Failed to push notification to queue, sweep will pick it up",
				zap.Int64("notification_id", n.ID),
				zap.Error(err),
			)
		}
	}
}

// EnqueueUpcomingReminders ставит напоминания о завтрашних подтверждённых
// встречах. Возвращает количество созданных напоминаний.
func (s *NotificationService) EnqueueUpcomingReminders(ctx context.Context) (int, error) {
	tomorrow := model.DateOf(time.Now().AddDate(0, 0, 1))

	appts, err := s.apptRepo.ListConfirmedForDay(ctx, tomorrow.WeekStart(), tomorrow.DayOfWeek())
	if err != nil {
		return 0, fmt.Errorf("list confirmed appointments: %w", err)
	}

	var created []*model.Notification
	for _, appt := range appts {
		exists, err := s.repo.HasReminderFor(ctx, appt.ID)
		if err != nil {
			return 0, err
		}
		if exists {
			continue
		}

		parent, teacher, slot, err := s.loadParticipants(ctx, appt)
		if err != nil {
			s.logger.Warn("Skipping reminder, participants not loaded",
				zap.Int64("appointment_id", appt.ID),
				zap.Error(err),
			)
			continue
		}

		data := buildEmailData(appt, parent, teacher, slot)
		data.RecipientName = parent.User.FullName()

		subject, body, err := renderEmail("appointment_reminder", data)
		if err != nil {
			return 0, err
		}

		apptID := appt.ID
		n := &model.Notification{
			RecipientEmail: parent.User.Email,
			RecipientName:  parent.User.FullName(),
			Type:           model.NotificationAppointmentReminder,
			Status:         model.NotificationStatusPending,
			Subject:        subject,
			Content:        body,
			AppointmentID:  &apptID,
		}

		if err := s.repo.Create(ctx, n); err != nil {
			return len(created), err
		}
		created = append(created, n)
	}

	s.Push(ctx, created)

	return len(created), nil
}

func (s *NotificationService) loadParticipants(ctx context.Context, appt *model.Appointment) (*model.Parent, *model.Teacher, *model.AvailableSlot, error) {
	parent, err := s.parents.GetByID(ctx, appt.ParentID)
	if err != nil {
		return nil, nil, nil, err
	}
	if parent == nil {
		return nil, nil, nil, fmt.Errorf("parent %d: %w", appt.ParentID, ErrNotFound)
	}

	teacher, err := s.teachers.GetByID(ctx, appt.TeacherID)
	if err != nil {
		return nil, nil, nil, err
	}
	if teacher == nil {
		return nil, nil, nil, fmt.Errorf("teacher %d: %w", appt.TeacherID, ErrNotFound)
	}

	slot, err := s.slotRepo.GetByID(ctx, appt.SlotID)
	if err != nil {
		return nil, nil, nil, err
	}
	if slot == nil {
		return nil, nil, nil, fmt.Errorf("slot %d: %w", appt.SlotID, ErrNotFound)
	}

	return parent, teacher, slot, nil
}

// GetByID получает уведомление по ID
func (s *NotificationService) GetByID(ctx context.Context, id int64) (*model.Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, fmt.Errorf("notification %d: %w", id, ErrNotFound)
	}
	return n, nil
}

// List получает уведомления постранично
func (s *NotificationService) List(ctx context.Context, skip, limit int) ([]*model.Notification, error) {
	return s.repo.List(ctx, skip, limit)
}

// Resend возвращает неотправленное уведомление в очередь
func (s *NotificationService) Resend(ctx context.Context, id int64) error {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n == nil {
		return fmt.Errorf("notification %d: %w", id, ErrNotFound)
	}

	if err := s.repo.ResetPending(ctx, id); err != nil {
		return err
	}

	s.Push(ctx, []*model.Notification{n})

	s.logger.Info("Notification requeued", zap.Int64("notification_id", id))

	return nil
}
