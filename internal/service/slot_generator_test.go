package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parentmeet/parentmeet/internal/model"
)

// понедельник
var testWeek = model.NewDate(2026, time.August, 24)

func newGeneratorEnv() (*memSlotRepo, *SlotGeneratorService) {
	repo := newMemSlotRepo()
	gen := NewSlotGeneratorService(&fakeDB{}, repo, zap.NewNop())
	return repo, gen
}

func TestTileInterval(t *testing.T) {
	tests := []struct {
		name     string
		start    model.DayTime
		end      model.DayTime
		duration int
		gap      int
		want     []model.DayTime
	}{
		{
			name:  "exact fit",
			start: model.NewDayTime(9, 0), end: model.NewDayTime(10, 30), duration: 30,
			want: []model.DayTime{model.NewDayTime(9, 0), model.NewDayTime(9, 30), model.NewDayTime(10, 0)},
		},
		{
			name:  "trailing partial dropped",
			start: model.NewDayTime(9, 0), end: model.NewDayTime(10, 30), duration: 40,
			want: []model.DayTime{model.NewDayTime(9, 0), model.NewDayTime(9, 40)},
		},
		{
			name:  "with break between slots",
			start: model.NewDayTime(9, 0), end: model.NewDayTime(10, 30), duration: 30, gap: 15,
			want: []model.DayTime{model.NewDayTime(9, 0), model.NewDayTime(9, 45)},
		},
		{
			name:  "duration longer than interval",
			start: model.NewDayTime(9, 0), end: model.NewDayTime(9, 30), duration: 60,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tileInterval(tt.start, tt.end, tt.duration, tt.gap)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSmartCreateTiling(t *testing.T) {
	ctx := context.Background()
	_, gen := newGeneratorEnv()

	result, err := gen.Create(ctx, SmartSlotConfig{
		TeacherID:              1,
		DaysOfWeek:             []int{0},
		StartTime:              model.NewDayTime(9, 0),
		EndTime:                model.NewDayTime(10, 30),
		MeetingDurationMinutes: 30,
		WeekStartDate:          testWeek,
	})
	require.NoError(t, err)

	require.Len(t, result.CreatedSlots, 3)
	assert.Equal(t, "09:00", result.CreatedSlots[0].StartTime.String())
	assert.Equal(t, "09:30", result.CreatedSlots[0].EndTime.String())
	assert.Equal(t, "10:00", result.CreatedSlots[2].StartTime.String())
	assert.Equal(t, "10:30", result.CreatedSlots[2].EndTime.String())
	assert.Equal(t, 3, result.Summary.TotalCreated)
	assert.Zero(t, result.Summary.TotalSkipped)

	// Все слоты одной генерации делят общую группу
	group := result.CreatedSlots[0].GeneratedGroup
	require.NotNil(t, group)
	for _, slot := range result.CreatedSlots {
		assert.Equal(t, group, slot.GeneratedGroup)
	}
}

func TestSmartCreateInvalidPattern(t *testing.T) {
	ctx := context.Background()
	_, gen := newGeneratorEnv()

	base := SmartSlotConfig{
		TeacherID:              1,
		DaysOfWeek:             []int{0},
		StartTime:              model.NewDayTime(9, 0),
		EndTime:                model.NewDayTime(12, 0),
		MeetingDurationMinutes: 30,
		WeekStartDate:          testWeek,
	}

	tooShort := base
	tooShort.MeetingDurationMinutes = 10
	_, err := gen.Create(ctx, tooShort)
	assert.ErrorIs(t, err, ErrInvalidPattern)

	tooLong := base
	tooLong.MeetingDurationMinutes = 130
	_, err = gen.Create(ctx, tooLong)
	assert.ErrorIs(t, err, ErrInvalidPattern)

	reversed := base
	reversed.StartTime = model.NewDayTime(12, 0)
	reversed.EndTime = model.NewDayTime(9, 0)
	_, err = gen.Create(ctx, reversed)
	assert.ErrorIs(t, err, ErrInvalidPattern)

	noDays := base
	noDays.DaysOfWeek = nil
	_, err = gen.Create(ctx, noDays)
	assert.ErrorIs(t, err, ErrInvalidPattern)

	badDay := base
	badDay.DaysOfWeek = []int{7}
	_, err = gen.Create(ctx, badDay)
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestSmartPreviewMatchesCreate(t *testing.T) {
	ctx := context.Background()
	repo, gen := newGeneratorEnv()

	// Существующий слот вызывает конфликт в понедельник 09:00-10:00
	repo.add(&model.AvailableSlot{
		TeacherID:     1,
		DayOfWeek:     0,
		StartTime:     model.NewDayTime(9, 0),
		EndTime:       model.NewDayTime(10, 0),
		WeekStartDate: testWeek,
	})

	cfg := SmartSlotConfig{
		TeacherID:              1,
		DaysOfWeek:             []int{2, 0}, // порядок нормализуется к 0, 2
		StartTime:              model.NewDayTime(9, 0),
		EndTime:                model.NewDayTime(12, 0),
		MeetingDurationMinutes: 60,
		WeekStartDate:          testWeek,
	}

	preview, err := gen.Preview(ctx, cfg)
	require.NoError(t, err)

	result, err := gen.Create(ctx, cfg)
	require.NoError(t, err)

	// Предпросмотр в точности совпадает с созданным набором
	require.Equal(t, preview.TotalSlots, len(result.CreatedSlots))
	for i, ps := range preview.PreviewSlots {
		created := result.CreatedSlots[i]
		assert.Equal(t, ps.DayOfWeek, created.DayOfWeek)
		assert.Equal(t, ps.StartTime, created.StartTime)
		assert.Equal(t, ps.EndTime, created.EndTime)
	}

	// Понедельник: 09:00-10:00 занят, остаются 10 и 11; среда: все три
	assert.Equal(t, 5, result.Summary.TotalCreated)
	assert.Equal(t, 1, result.Summary.TotalSkipped)
	assert.Len(t, result.Summary.Conflicts, 1)
	assert.Equal(t, []string{"Monday", "Wednesday"}, preview.Days)
	assert.Equal(t, 3, preview.SlotsPerDay)
	assert.InDelta(t, 5.0, preview.TotalHours, 0.001)
}

func TestGenerateAdvancedExclusionDate(t *testing.T) {
	ctx := context.Background()
	repo, gen := newGeneratorEnv()

	wednesday := testWeek.AddDays(2)

	result, err := gen.GenerateAdvanced(ctx, AdvancedBulkConfig{
		TeacherID: 1,
		Pattern: AdvancedPattern{
			DaysOfWeek:          []int{0, 1, 2, 3, 4},
			StartTime:           model.NewDayTime(9, 0),
			EndTime:             model.NewDayTime(11, 0),
			SlotDurationMinutes: 60,
		},
		DateRange: DateRange{
			StartDate: testWeek,
			EndDate:   testWeek.AddDays(4),
		},
		Exclusions: &Exclusions{Dates: []model.Date{wednesday}},
	})
	require.NoError(t, err)

	// 4 дня по 2 слота, среда полностью выпала
	assert.Equal(t, 8, result.Summary.TotalCreated)
	for _, slot := range result.CreatedSlots {
		assert.NotEqual(t, 2, slot.DayOfWeek)
	}
	assert.Len(t, repo.slots, 8)
}

func TestGenerateAdvancedBreakBetweenSlots(t *testing.T) {
	ctx := context.Background()
	_, gen := newGeneratorEnv()

	result, err := gen.GenerateAdvanced(ctx, AdvancedBulkConfig{
		TeacherID: 1,
		Pattern: AdvancedPattern{
			DaysOfWeek:           []int{0},
			StartTime:            model.NewDayTime(9, 0),
			EndTime:              model.NewDayTime(10, 30),
			SlotDurationMinutes:  30,
			BreakDurationMinutes: 15,
		},
		DateRange: DateRange{StartDate: testWeek, EndDate: testWeek},
	})
	require.NoError(t, err)

	require.Len(t, result.CreatedSlots, 2)
	assert.Equal(t, "09:00", result.CreatedSlots[0].StartTime.String())
	assert.Equal(t, "09:45", result.CreatedSlots[1].StartTime.String())
}

func TestGenerateAdvancedExcludedTimeRange(t *testing.T) {
	ctx := context.Background()
	_, gen := newGeneratorEnv()

	result, err := gen.GenerateAdvanced(ctx, AdvancedBulkConfig{
		TeacherID: 1,
		Pattern: AdvancedPattern{
			DaysOfWeek:          []int{0},
			StartTime:           model.NewDayTime(9, 0),
			EndTime:             model.NewDayTime(12, 0),
			SlotDurationMinutes: 60,
		},
		DateRange: DateRange{StartDate: testWeek, EndDate: testWeek},
		Exclusions: &Exclusions{
			TimeRanges: []TimeRange{{StartTime: model.NewDayTime(10, 0), EndTime: model.NewDayTime(11, 0)}},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.CreatedSlots, 2)
	assert.Equal(t, "09:00", result.CreatedSlots[0].StartTime.String())
	assert.Equal(t, "11:00", result.CreatedSlots[1].StartTime.String())
}

func TestGenerateAdvancedSkipsConflicts(t *testing.T) {
	ctx := context.Background()
	repo, gen := newGeneratorEnv()

	repo.add(&model.AvailableSlot{
		TeacherID:     1,
		DayOfWeek:     1,
		StartTime:     model.NewDayTime(9, 0),
		EndTime:       model.NewDayTime(10, 0),
		WeekStartDate: testWeek,
	})

	tuesday := testWeek.AddDays(1)

	result, err := gen.GenerateAdvanced(ctx, AdvancedBulkConfig{
		TeacherID: 1,
		Pattern: AdvancedPattern{
			DaysOfWeek:          []int{1},
			StartTime:           model.NewDayTime(9, 0),
			EndTime:             model.NewDayTime(11, 0),
			SlotDurationMinutes: 60,
		},
		DateRange: DateRange{StartDate: tuesday, EndDate: tuesday},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Summary.TotalCreated)
	assert.Equal(t, 1, result.Summary.TotalSkipped)
	require.Len(t, result.CreatedSlots, 1)
	assert.Equal(t, "10:00", result.CreatedSlots[0].StartTime.String())
}

func TestGenerateAdvancedBadDateRange(t *testing.T) {
	ctx := context.Background()
	_, gen := newGeneratorEnv()

	_, err := gen.GenerateAdvanced(ctx, AdvancedBulkConfig{
		TeacherID: 1,
		Pattern: AdvancedPattern{
			DaysOfWeek:          []int{0},
			StartTime:           model.NewDayTime(9, 0),
			EndTime:             model.NewDayTime(11, 0),
			SlotDurationMinutes: 60,
		},
		DateRange: DateRange{StartDate: testWeek, EndDate: testWeek.AddDays(-1)},
	})
	assert.ErrorIs(t, err, ErrInvalidPattern)
}
