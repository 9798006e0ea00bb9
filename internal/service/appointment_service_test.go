package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parentmeet/parentmeet/internal/model"
	"github.com/parentmeet/parentmeet/internal/repository"
)

type apptEnv struct {
	db       *fakeDB
	slots    *memSlotRepo
	appts    *memApptRepo
	notifs   *memNotificationRepo
	queue    *fakeQueue
	svc      *AppointmentService
	freeSlot *model.AvailableSlot
}

func newApptEnv() *apptEnv {
	db := &fakeDB{}
	slots := newMemSlotRepo()
	appts := newMemApptRepo(slots)
	notifs := newMemNotificationRepo()
	queue := &fakeQueue{}

	parents := &memParentRepo{parents: map[int64]*model.Parent{
		1: {
			ID: 1, UserID: 10, StudentName: "Anna Ivanova", StudentClass: "5B",
			User: &model.User{ID: 10, Email: "parent@example.com", FirstName: "Olga", LastName: "Ivanova", Role: model.RoleParent},
		},
	}}
	teachers := &memTeacherRepo{teachers: map[int64]*model.Teacher{
		1: {
			ID: 1, UserID: 20, Subject: "Mathematics",
			User: &model.User{ID: 20, Email: "teacher@example.com", FirstName: "Pavel", LastName: "Smirnov", Role: model.RoleTeacher},
		},
	}}

	notifications := NewNotificationService(notifs, appts, slots, parents, teachers, queue, zap.NewNop())
	svc := NewAppointmentService(db, appts, slots, parents, teachers, notifications, zap.NewNop())

	env := &apptEnv{db: db, slots: slots, appts: appts, notifs: notifs, queue: queue, svc: svc}
	env.freeSlot = slots.add(&model.AvailableSlot{
		TeacherID:     1,
		DayOfWeek:     0,
		StartTime:     model.NewDayTime(9, 0),
		EndTime:       model.NewDayTime(9, 30),
		WeekStartDate: testWeek,
	})
	return env
}

func TestBook(t *testing.T) {
	ctx := context.Background()
	env := newApptEnv()

	appt, err := env.svc.Book(ctx, BookInput{
		ParentID:    1,
		SlotID:      env.freeSlot.ID,
		MeetingMode: model.MeetingModeOnline,
	})
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusPending, appt.Status)
	assert.True(t, env.freeSlot.IsBooked)
	assert.True(t, env.db.lastTx.committed)

	// Подтверждение родителю и оповещение учителю пишутся той же транзакцией
	require.Len(t, env.notifs.items, 2)
	assert.Len(t, env.queue.pushed, 2)

	// Запись возвращается с участниками
	require.NotNil(t, appt.Parent)
	require.NotNil(t, appt.Teacher)
	require.NotNil(t, appt.Slot)
	assert.Equal(t, "Olga Ivanova", appt.Parent.User.FullName())
}

func TestBookSlotAlreadyBooked(t *testing.T) {
	ctx := context.Background()
	env := newApptEnv()
	env.freeSlot.IsBooked = true

	_, err := env.svc.Book(ctx, BookInput{
		ParentID:    1,
		SlotID:      env.freeSlot.ID,
		MeetingMode: model.MeetingModeFaceToFace,
	})
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	assert.Empty(t, env.appts.appts)
	assert.Empty(t, env.notifs.items)
}

func TestBookLosesRace(t *testing.T) {
	ctx := context.Background()
	env := newApptEnv()

	// Конкурент занимает слот между чтением под блокировкой и check-and-set
	env.slots.beforeMarkBooked = func() {
		env.freeSlot.IsBooked = true
	}

	_, err := env.svc.Book(ctx, BookInput{
		ParentID:    1,
		SlotID:      env.freeSlot.ID,
		MeetingMode: model.MeetingModeOnline,
	})
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	assert.Empty(t, env.appts.appts)
	assert.True(t, env.db.lastTx.rolledBack)
}

func TestBookUnknownMeetingMode(t *testing.T) {
	ctx := context.Background()
	env := newApptEnv()

	_, err := env.svc.Book(ctx, BookInput{
		ParentID:    1,
		SlotID:      env.freeSlot.ID,
		MeetingMode: model.MeetingMode("hybrid"),
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.False(t, env.freeSlot.IsBooked)
	assert.Empty(t, env.appts.appts)
}

func TestBookUnknownSlot(t *testing.T) {
	ctx := context.Background()
	env := newApptEnv()

	_, err := env.svc.Book(ctx, BookInput{
		ParentID:    1,
		SlotID:      999,
		MeetingMode: model.MeetingModeOnline,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBookQueueFailureDoesNotFailBooking(t *testing.T) {
	ctx := context.Background()
	env := newApptEnv()
	env.queue.failing = true

	appt, err := env.svc.Book(ctx, BookInput{
		ParentID:    1,
		SlotID:      env.freeSlot.ID,
		MeetingMode: model.MeetingModeOnline,
	})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, appt.Status)

	// Outbox-записи сохранены, их подберёт обход pending-строк
	assert.Len(t, env.notifs.items, 2)
	assert.Empty(t, env.queue.pushed)
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from model.AppointmentStatus
		to   model.AppointmentStatus
		ok   bool
	}{
		{model.AppointmentStatusPending, model.AppointmentStatusConfirmed, true},
		{model.AppointmentStatusPending, model.AppointmentStatusCancelled, true},
		{model.AppointmentStatusPending, model.AppointmentStatusNoShow, true},
		{model.AppointmentStatusPending, model.AppointmentStatusCompleted, false},
		{model.AppointmentStatusConfirmed, model.AppointmentStatusCompleted, true},
		{model.AppointmentStatusConfirmed, model.AppointmentStatusCancelled, true},
		{model.AppointmentStatusCompleted, model.AppointmentStatusPending, false},
		{model.AppointmentStatusCompleted, model.AppointmentStatusCancelled, false},
		{model.AppointmentStatusCancelled, model.AppointmentStatusConfirmed, false},
		{model.AppointmentStatusNoShow, model.AppointmentStatusConfirmed, false},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			env := newApptEnv()
			appt, err := env.svc.Book(ctx, BookInput{
				ParentID:    1,
				SlotID:      env.freeSlot.ID,
				MeetingMode: model.MeetingModeOnline,
			})
			require.NoError(t, err)
			appt.Status = tt.from

			_, err = env.svc.UpdateStatus(ctx, appt.ID, tt.to)
			if tt.ok {
				assert.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, ErrInvalidStatusTransition)
			var transErr *StatusTransitionError
			require.ErrorAs(t, err, &transErr)
			assert.Equal(t, tt.from, transErr.From)
			assert.Equal(t, tt.to, transErr.To)
		})
	}
}

func TestCancelFreesSlotForRebooking(t *testing.T) {
	ctx := context.Background()
	env := newApptEnv()

	appt, err := env.svc.Book(ctx, BookInput{
		ParentID:    1,
		SlotID:      env.freeSlot.ID,
		MeetingMode: model.MeetingModeOnline,
	})
	require.NoError(t, err)
	require.True(t, env.freeSlot.IsBooked)

	cancelled, err := env.svc.Cancel(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)
	assert.False(t, env.freeSlot.IsBooked)

	// Обе стороны получают уведомление об отмене
	notifs, _ := env.notifs.List(ctx, 0, 100)
	var cancellations int
	for _, n := range notifs {
		if n.Type == model.NotificationAppointmentCancellation {
			cancellations++
		}
	}
	assert.Equal(t, 2, cancellations)

	// Освобождённый слот можно бронировать заново
	rebooked, err := env.svc.Book(ctx, BookInput{
		ParentID:    1,
		SlotID:      env.freeSlot.ID,
		MeetingMode: model.MeetingModeFaceToFace,
	})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, rebooked.Status)
	assert.True(t, env.freeSlot.IsBooked)
}

func TestNoShowKeepsSlotBooked(t *testing.T) {
	ctx := context.Background()
	env := newApptEnv()

	appt, err := env.svc.Book(ctx, BookInput{
		ParentID:    1,
		SlotID:      env.freeSlot.ID,
		MeetingMode: model.MeetingModeOnline,
	})
	require.NoError(t, err)

	_, err = env.svc.UpdateStatus(ctx, appt.ID, model.AppointmentStatusNoShow)
	require.NoError(t, err)

	// Неявка не освобождает слот
	assert.True(t, env.freeSlot.IsBooked)
}

func TestConfirmNotifiesParent(t *testing.T) {
	ctx := context.Background()
	env := newApptEnv()

	appt, err := env.svc.Book(ctx, BookInput{
		ParentID:    1,
		SlotID:      env.freeSlot.ID,
		MeetingMode: model.MeetingModeOnline,
	})
	require.NoError(t, err)

	before := len(env.notifs.items)
	confirmed, err := env.svc.UpdateStatus(ctx, appt.ID, model.AppointmentStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, confirmed.Status)
	assert.Len(t, env.notifs.items, before+1)
}

func TestListFiltersByDateRange(t *testing.T) {
	ctx := context.Background()
	env := newApptEnv()

	// freeSlot — понедельник testWeek; добавляем четверг той же недели
	// и понедельник следующей
	thursday := env.slots.add(&model.AvailableSlot{
		TeacherID:     1,
		DayOfWeek:     3,
		StartTime:     model.NewDayTime(9, 0),
		EndTime:       model.NewDayTime(9, 30),
		WeekStartDate: testWeek,
	})
	nextMonday := env.slots.add(&model.AvailableSlot{
		TeacherID:     1,
		DayOfWeek:     0,
		StartTime:     model.NewDayTime(9, 0),
		EndTime:       model.NewDayTime(9, 30),
		WeekStartDate: testWeek.AddDays(7),
	})

	first, err := env.svc.Book(ctx, BookInput{ParentID: 1, SlotID: env.freeSlot.ID, MeetingMode: model.MeetingModeOnline})
	require.NoError(t, err)
	second, err := env.svc.Book(ctx, BookInput{ParentID: 1, SlotID: thursday.ID, MeetingMode: model.MeetingModeOnline})
	require.NoError(t, err)
	third, err := env.svc.Book(ctx, BookInput{ParentID: 1, SlotID: nextMonday.ID, MeetingMode: model.MeetingModeOnline})
	require.NoError(t, err)

	weekEnd := testWeek.AddDays(6)

	// Только текущая неделя
	appts, err := env.svc.List(ctx, repository.AppointmentFilter{StartDate: &testWeek, EndDate: &weekEnd})
	require.NoError(t, err)
	require.Len(t, appts, 2)
	assert.Equal(t, first.ID, appts[0].ID)
	assert.Equal(t, second.ID, appts[1].ID)

	// Открытый диапазон: всё начиная с четверга
	thursdayDate := testWeek.AddDays(3)
	appts, err = env.svc.List(ctx, repository.AppointmentFilter{StartDate: &thursdayDate})
	require.NoError(t, err)
	require.Len(t, appts, 2)
	assert.Equal(t, second.ID, appts[0].ID)
	assert.Equal(t, third.ID, appts[1].ID)

	// Границы включительны
	appts, err = env.svc.List(ctx, repository.AppointmentFilter{StartDate: &thursdayDate, EndDate: &thursdayDate})
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, second.ID, appts[0].ID)
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	env := newApptEnv()

	second := env.slots.add(&model.AvailableSlot{
		TeacherID:     1,
		DayOfWeek:     0,
		StartTime:     model.NewDayTime(10, 0),
		EndTime:       model.NewDayTime(10, 30),
		WeekStartDate: testWeek,
	})

	first, err := env.svc.Book(ctx, BookInput{ParentID: 1, SlotID: env.freeSlot.ID, MeetingMode: model.MeetingModeOnline})
	require.NoError(t, err)
	_, err = env.svc.Book(ctx, BookInput{ParentID: 1, SlotID: second.ID, MeetingMode: model.MeetingModeOnline})
	require.NoError(t, err)

	_, err = env.svc.UpdateStatus(ctx, first.ID, model.AppointmentStatusConfirmed)
	require.NoError(t, err)

	counts, err := env.svc.Summary(ctx, repository.AppointmentFilter{ParentID: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, counts[model.AppointmentStatusPending])
	assert.Equal(t, 1, counts[model.AppointmentStatusConfirmed])
}
