package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parentmeet/parentmeet/internal/model"
)

func newSlotEnv() (*memSlotRepo, *SlotService) {
	repo := newMemSlotRepo()
	svc := NewSlotService(&fakeDB{}, repo, zap.NewNop())
	return repo, svc
}

func TestSlotCreate(t *testing.T) {
	ctx := context.Background()
	repo, svc := newSlotEnv()

	slot := &model.AvailableSlot{
		TeacherID:     1,
		DayOfWeek:     0,
		StartTime:     model.NewDayTime(9, 0),
		EndTime:       model.NewDayTime(9, 30),
		WeekStartDate: testWeek,
	}
	require.NoError(t, svc.Create(ctx, slot))
	assert.NotZero(t, slot.ID)
	assert.Len(t, repo.slots, 1)
}

func TestSlotCreateInvalidTimeRange(t *testing.T) {
	ctx := context.Background()
	_, svc := newSlotEnv()

	err := svc.Create(ctx, &model.AvailableSlot{
		TeacherID:     1,
		DayOfWeek:     0,
		StartTime:     model.NewDayTime(10, 0),
		EndTime:       model.NewDayTime(9, 0),
		WeekStartDate: testWeek,
	})
	assert.ErrorIs(t, err, ErrInvalidTimeRange)

	err = svc.Create(ctx, &model.AvailableSlot{
		TeacherID:     1,
		DayOfWeek:     0,
		StartTime:     model.NewDayTime(9, 0),
		EndTime:       model.NewDayTime(9, 0),
		WeekStartDate: testWeek,
	})
	assert.ErrorIs(t, err, ErrInvalidTimeRange)
}

func TestSlotCreateConflict(t *testing.T) {
	ctx := context.Background()
	repo, svc := newSlotEnv()

	existing := repo.add(&model.AvailableSlot{
		TeacherID:     1,
		DayOfWeek:     0,
		StartTime:     model.NewDayTime(9, 0),
		EndTime:       model.NewDayTime(10, 0),
		WeekStartDate: testWeek,
	})

	// Частичное пересечение: [09:30, 10:30) против [09:00, 10:00)
	err := svc.Create(ctx, &model.AvailableSlot{
		TeacherID:     1,
		DayOfWeek:     0,
		StartTime:     model.NewDayTime(9, 30),
		EndTime:       model.NewDayTime(10, 30),
		WeekStartDate: testWeek,
	})
	require.ErrorIs(t, err, ErrSlotConflict)

	var conflictErr *SlotConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, existing.ID, conflictErr.SlotID)

	// Встык — не пересечение
	err = svc.Create(ctx, &model.AvailableSlot{
		TeacherID:     1,
		DayOfWeek:     0,
		StartTime:     model.NewDayTime(10, 0),
		EndTime:       model.NewDayTime(11, 0),
		WeekStartDate: testWeek,
	})
	assert.NoError(t, err)

	// Другой день недели не конфликтует
	err = svc.Create(ctx, &model.AvailableSlot{
		TeacherID:     1,
		DayOfWeek:     1,
		StartTime:     model.NewDayTime(9, 30),
		EndTime:       model.NewDayTime(10, 30),
		WeekStartDate: testWeek,
	})
	assert.NoError(t, err)
}

func TestSlotUpdateExcludesSelf(t *testing.T) {
	ctx := context.Background()
	repo, svc := newSlotEnv()

	slot := repo.add(&model.AvailableSlot{
		TeacherID:     1,
		DayOfWeek:     0,
		StartTime:     model.NewDayTime(9, 0),
		EndTime:       model.NewDayTime(10, 0),
		WeekStartDate: testWeek,
	})

	// Сдвиг внутри собственного интервала не считается конфликтом
	updated, err := svc.Update(ctx, slot.ID, UpdateInput{
		DayOfWeek:     0,
		StartTime:     model.NewDayTime(9, 30),
		EndTime:       model.NewDayTime(10, 30),
		WeekStartDate: testWeek,
	})
	require.NoError(t, err)
	assert.Equal(t, "09:30", updated.StartTime.String())
	assert.Equal(t, "10:30", updated.EndTime.String())
}

func TestSlotUpdateConflictWithOther(t *testing.T) {
	ctx := context.Background()
	repo, svc := newSlotEnv()

	slot := repo.add(&model.AvailableSlot{
		TeacherID:     1,
		DayOfWeek:     0,
		StartTime:     model.NewDayTime(9, 0),
		EndTime:       model.NewDayTime(10, 0),
		WeekStartDate: testWeek,
	})
	other := repo.add(&model.AvailableSlot{
		TeacherID:     1,
		DayOfWeek:     0,
		StartTime:     model.NewDayTime(11, 0),
		EndTime:       model.NewDayTime(12, 0),
		WeekStartDate: testWeek,
	})

	_, err := svc.Update(ctx, slot.ID, UpdateInput{
		DayOfWeek:     0,
		StartTime:     model.NewDayTime(11, 30),
		EndTime:       model.NewDayTime(12, 30),
		WeekStartDate: testWeek,
	})
	require.ErrorIs(t, err, ErrSlotConflict)

	var conflictErr *SlotConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, other.ID, conflictErr.SlotID)
}

func TestSlotUpdateBooked(t *testing.T) {
	ctx := context.Background()
	repo, svc := newSlotEnv()

	slot := repo.add(&model.AvailableSlot{
		TeacherID:     1,
		DayOfWeek:     0,
		StartTime:     model.NewDayTime(9, 0),
		EndTime:       model.NewDayTime(10, 0),
		WeekStartDate: testWeek,
		IsBooked:      true,
	})

	_, err := svc.Update(ctx, slot.ID, UpdateInput{
		DayOfWeek:     0,
		StartTime:     model.NewDayTime(9, 0),
		EndTime:       model.NewDayTime(10, 0),
		WeekStartDate: testWeek,
	})
	assert.ErrorIs(t, err, ErrSlotInUse)
}

func TestSlotDelete(t *testing.T) {
	ctx := context.Background()
	repo, svc := newSlotEnv()

	free := repo.add(&model.AvailableSlot{
		TeacherID:     1,
		DayOfWeek:     0,
		StartTime:     model.NewDayTime(9, 0),
		EndTime:       model.NewDayTime(10, 0),
		WeekStartDate: testWeek,
	})
	booked := repo.add(&model.AvailableSlot{
		TeacherID:     1,
		DayOfWeek:     0,
		StartTime:     model.NewDayTime(10, 0),
		EndTime:       model.NewDayTime(11, 0),
		WeekStartDate: testWeek,
		IsBooked:      true,
	})

	assert.ErrorIs(t, svc.Delete(ctx, booked.ID), ErrSlotInUse)
	require.NoError(t, svc.Delete(ctx, free.ID))

	_, err := svc.GetByID(ctx, free.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSlotBulkCreate(t *testing.T) {
	ctx := context.Background()
	repo, svc := newSlotEnv()

	slots, err := svc.BulkCreate(ctx, 1, testWeek, []BulkEntry{
		{DayOfWeek: 0, StartTime: model.NewDayTime(9, 0), EndTime: model.NewDayTime(9, 30)},
		{DayOfWeek: 0, StartTime: model.NewDayTime(9, 30), EndTime: model.NewDayTime(10, 0)},
		{DayOfWeek: 2, StartTime: model.NewDayTime(14, 0), EndTime: model.NewDayTime(14, 30)},
	})
	require.NoError(t, err)
	assert.Len(t, slots, 3)
	assert.Len(t, repo.slots, 3)
}

func TestSlotBulkCreateFailsAtomically(t *testing.T) {
	ctx := context.Background()
	repo, svc := newSlotEnv()

	repo.add(&model.AvailableSlot{
		TeacherID:     1,
		DayOfWeek:     0,
		StartTime:     model.NewDayTime(9, 0),
		EndTime:       model.NewDayTime(10, 0),
		WeekStartDate: testWeek,
	})

	// Вторая запись пересекается с существующим слотом: пачка падает целиком
	_, err := svc.BulkCreate(ctx, 1, testWeek, []BulkEntry{
		{DayOfWeek: 1, StartTime: model.NewDayTime(9, 0), EndTime: model.NewDayTime(9, 30)},
		{DayOfWeek: 0, StartTime: model.NewDayTime(9, 30), EndTime: model.NewDayTime(10, 30)},
	})
	assert.ErrorIs(t, err, ErrSlotConflict)
	assert.Len(t, repo.slots, 1)
}

func TestSlotBulkCreateInBatchOverlap(t *testing.T) {
	ctx := context.Background()
	_, svc := newSlotEnv()

	// Кандидаты одной пачки пересекаются между собой
	_, err := svc.BulkCreate(ctx, 1, testWeek, []BulkEntry{
		{DayOfWeek: 0, StartTime: model.NewDayTime(9, 0), EndTime: model.NewDayTime(10, 0)},
		{DayOfWeek: 0, StartTime: model.NewDayTime(9, 30), EndTime: model.NewDayTime(10, 30)},
	})
	assert.True(t, errors.Is(err, ErrSlotConflict))
}
