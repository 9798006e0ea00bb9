package service

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/parentmeet/parentmeet/internal/model"
	"github.com/parentmeet/parentmeet/internal/repository"
)

// Интерфейсы зависимостей сервисов. Реализации — pgx-репозитории и
// redis-очередь; в тестах подменяются in-memory двойниками.

// TxBeginner открывает транзакцию. Реализуется *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type UserRepo interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, skip, limit int) ([]*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id int64) error
}

type TeacherRepo interface {
	Create(ctx context.Context, teacher *model.Teacher) error
	GetByID(ctx context.Context, id int64) (*model.Teacher, error)
	GetByUserID(ctx context.Context, userID int64) (*model.Teacher, error)
	List(ctx context.Context, subject string, skip, limit int) ([]*model.Teacher, error)
	Update(ctx context.Context, teacher *model.Teacher) error
	Delete(ctx context.Context, id int64) error
}

type ParentRepo interface {
	Create(ctx context.Context, parent *model.Parent) error
	GetByID(ctx context.Context, id int64) (*model.Parent, error)
	GetByUserID(ctx context.Context, userID int64) (*model.Parent, error)
	List(ctx context.Context, skip, limit int) ([]*model.Parent, error)
	Update(ctx context.Context, parent *model.Parent) error
	Delete(ctx context.Context, id int64) error
}

type SlotRepo interface {
	Create(ctx context.Context, slot *model.AvailableSlot) error
	CreateBatchTx(ctx context.Context, q repository.Querier, slots []*model.AvailableSlot) error
	GetByID(ctx context.Context, id int64) (*model.AvailableSlot, error)
	GetByIDForUpdateTx(ctx context.Context, q repository.Querier, id int64) (*model.AvailableSlot, error)
	List(ctx context.Context, filter repository.SlotFilter) ([]*model.AvailableSlot, error)
	ListForWeekDay(ctx context.Context, teacherID int64, weekStart model.Date, dayOfWeek int) ([]*model.AvailableSlot, error)
	ListForWeekDayTx(ctx context.Context, q repository.Querier, teacherID int64, weekStart model.Date, dayOfWeek int) ([]*model.AvailableSlot, error)
	MarkBookedTx(ctx context.Context, q repository.Querier, id int64) (bool, error)
	MarkAvailableTx(ctx context.Context, q repository.Querier, id int64) error
	Update(ctx context.Context, slot *model.AvailableSlot) error
	Delete(ctx context.Context, id int64) error
}

type AppointmentRepo interface {
	CreateTx(ctx context.Context, q repository.Querier, appt *model.Appointment) error
	GetByID(ctx context.Context, id int64) (*model.Appointment, error)
	GetByIDForUpdateTx(ctx context.Context, q repository.Querier, id int64) (*model.Appointment, error)
	GetActiveBySlotID(ctx context.Context, slotID int64) (*model.Appointment, error)
	List(ctx context.Context, filter repository.AppointmentFilter) ([]*model.Appointment, error)
	ListConfirmedForDay(ctx context.Context, weekStart model.Date, dayOfWeek int) ([]*model.Appointment, error)
	CountByStatus(ctx context.Context, filter repository.AppointmentFilter) (map[model.AppointmentStatus]int, error)
	UpdateStatusTx(ctx context.Context, q repository.Querier, id int64, status model.AppointmentStatus) error
}

type NotificationRepo interface {
	Create(ctx context.Context, n *model.Notification) error
	CreateTx(ctx context.Context, q repository.Querier, n *model.Notification) error
	GetByID(ctx context.Context, id int64) (*model.Notification, error)
	List(ctx context.Context, skip, limit int) ([]*model.Notification, error)
	ResetPending(ctx context.Context, id int64) error
	HasReminderFor(ctx context.Context, appointmentID int64) (bool, error)
}

// NotificationQueue — очередь для фонового диспетчера. Реализуется notify.Queue.
type NotificationQueue interface {
	Push(ctx context.Context, notificationID int64) error
}
