package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parentmeet/parentmeet/internal/model"
)

type SlotRepository struct {
	pool *pgxpool.Pool
}

func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{pool: pool}
}

// Begin открывает транзакцию на пуле репозитория
func (r *SlotRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const slotColumns = `id, teacher_id, day_of_week, start_min, end_min, week_start_date, is_booked, generated_group, created_at, updated_at`

func scanSlot(row pgx.Row) (*model.AvailableSlot, error) {
	var slot model.AvailableSlot
	err := row.Scan(
		&slot.ID,
		&slot.TeacherID,
		&slot.DayOfWeek,
		&slot.StartTime,
		&slot.EndTime,
		&slot.WeekStartDate,
		&slot.IsBooked,
		&slot.GeneratedGroup,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func collectSlots(rows pgx.Rows) ([]*model.AvailableSlot, error) {
	defer rows.Close()

	var slots []*model.AvailableSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}

	return slots, nil
}

// Create создаёт один слот
func (r *SlotRepository) Create(ctx context.Context, slot *model.AvailableSlot) error {
	query := `
		INSERT INTO available_slots (teacher_id, day_of_week, start_min, end_min, week_start_date, generated_group)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, is_booked, created_at, updated_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		slot.TeacherID,
		slot.DayOfWeek,
		slot.StartTime,
		slot.EndTime,
		slot.WeekStartDate,
		slot.GeneratedGroup,
	).Scan(&slot.ID, &slot.IsBooked, &slot.CreatedAt, &slot.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

// CreateBatchTx создаёт пачку слотов внутри транзакции вызывающего
func (r *SlotRepository) CreateBatchTx(ctx context.Context, q Querier, slots []*model.AvailableSlot) error {
	query := `
		INSERT INTO available_slots (teacher_id, day_of_week, start_min, end_min, week_start_date, generated_group)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, is_booked, created_at, updated_at
	`

	for _, slot := range slots {
		err := q.QueryRow(
			ctx, query,
			slot.TeacherID,
			slot.DayOfWeek,
			slot.StartTime,
			slot.EndTime,
			slot.WeekStartDate,
			slot.GeneratedGroup,
		).Scan(&slot.ID, &slot.IsBooked, &slot.CreatedAt, &slot.UpdatedAt)

		if err != nil {
			return fmt.Errorf("create slot batch: %w", err)
		}
	}

	return nil
}

// GetByID получает слот по ID
func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*model.AvailableSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM available_slots WHERE id = $1`

	slot, err := scanSlot(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// GetByIDForUpdateTx получает слот по ID с блокировкой строки
func (r *SlotRepository) GetByIDForUpdateTx(ctx context.Context, q Querier, id int64) (*model.AvailableSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM available_slots WHERE id = $1 FOR UPDATE`

	slot, err := scanSlot(q.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot for update: %w", err)
	}

	return slot, nil
}

// SlotFilter — параметры выборки слотов
type SlotFilter struct {
	TeacherID     int64
	WeekStartDate *model.Date
	AvailableOnly bool
	Skip          int
	Limit         int
}

// List получает слоты по фильтру, отсортированные по дню и времени начала
func (r *SlotRepository) List(ctx context.Context, filter SlotFilter) ([]*model.AvailableSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM available_slots WHERE 1=1`
	args := []any{}
	n := 0

	next := func() string {
		n++
		return "$" + strconv.Itoa(n)
	}

	if filter.TeacherID != 0 {
		query += ` AND teacher_id = ` + next()
		args = append(args, filter.TeacherID)
	}
	if filter.WeekStartDate != nil {
		query += ` AND week_start_date = ` + next()
		args = append(args, *filter.WeekStartDate)
	}
	if filter.AvailableOnly {
		query += ` AND is_booked = false`
	}

	query += ` ORDER BY week_start_date, day_of_week, start_min`

	if filter.Limit > 0 {
		query += ` OFFSET ` + next()
		args = append(args, filter.Skip)
		query += ` LIMIT ` + next()
		args = append(args, filter.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}

	return collectSlots(rows)
}

// ListForWeekDay получает слоты учителя на конкретный день недели
func (r *SlotRepository) ListForWeekDay(ctx context.Context, teacherID int64, weekStart model.Date, dayOfWeek int) ([]*model.AvailableSlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM available_slots
		WHERE teacher_id = $1 AND week_start_date = $2 AND day_of_week = $3
		ORDER BY start_min
	`

	rows, err := r.pool.Query(ctx, query, teacherID, weekStart, dayOfWeek)
	if err != nil {
		return nil, fmt.Errorf("list slots for day: %w", err)
	}

	return collectSlots(rows)
}

// ListForWeekDayTx то же самое, но с блокировкой строк внутри транзакции.
// Блокировка нужна, чтобы параллельная генерация не создала пересекающиеся слоты.
func (r *SlotRepository) ListForWeekDayTx(ctx context.Context, q Querier, teacherID int64, weekStart model.Date, dayOfWeek int) ([]*model.AvailableSlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM available_slots
		WHERE teacher_id = $1 AND week_start_date = $2 AND day_of_week = $3
		ORDER BY start_min
		FOR UPDATE
	`

	rows, err := q.Query(ctx, query, teacherID, weekStart, dayOfWeek)
	if err != nil {
		return nil, fmt.Errorf("list slots for day: %w", err)
	}

	return collectSlots(rows)
}

// MarkBookedTx помечает слот занятым. Возвращает false, если слот уже занят.
func (r *SlotRepository) MarkBookedTx(ctx context.Context, q Querier, id int64) (bool, error) {
	query := `UPDATE available_slots SET is_booked = true, updated_at = now() WHERE id = $1 AND is_booked = false`

	result, err := q.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("mark slot booked: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// MarkAvailableTx освобождает слот после отмены записи
func (r *SlotRepository) MarkAvailableTx(ctx context.Context, q Querier, id int64) error {
	query := `UPDATE available_slots SET is_booked = false, updated_at = now() WHERE id = $1`

	result, err := q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark slot available: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("slot not found")
	}

	return nil
}

// Update обновляет время и день слота
func (r *SlotRepository) Update(ctx context.Context, slot *model.AvailableSlot) error {
	query := `
		UPDATE available_slots
		SET day_of_week = $1, start_min = $2, end_min = $3, week_start_date = $4, updated_at = now()
		WHERE id = $5
	`

	result, err := r.pool.Exec(
		ctx, query,
		slot.DayOfWeek,
		slot.StartTime,
		slot.EndTime,
		slot.WeekStartDate,
		slot.ID,
	)

	if err != nil {
		return fmt.Errorf("update slot: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("slot not found")
	}

	return nil
}

// Delete удаляет слот
func (r *SlotRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM available_slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("slot not found")
	}

	return nil
}
