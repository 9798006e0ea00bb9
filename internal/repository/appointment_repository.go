package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parentmeet/parentmeet/internal/model"
)

type AppointmentRepository struct {
	pool *pgxpool.Pool
}

func NewAppointmentRepository(pool *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

// Begin открывает транзакцию на пуле репозитория
func (r *AppointmentRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const appointmentColumns = `id, parent_id, teacher_id, slot_id, meeting_mode, status, notes, created_at, updated_at`

const appointmentAliasedColumns = `a.id, a.parent_id, a.teacher_id, a.slot_id, a.meeting_mode, a.status, a.notes, a.created_at, a.updated_at`

func scanAppointment(row pgx.Row) (*model.Appointment, error) {
	var appt model.Appointment
	err := row.Scan(
		&appt.ID,
		&appt.ParentID,
		&appt.TeacherID,
		&appt.SlotID,
		&appt.MeetingMode,
		&appt.Status,
		&appt.Notes,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func collectAppointments(rows pgx.Rows) ([]*model.Appointment, error) {
	defer rows.Close()

	var appts []*model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appts = append(appts, appt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}

	return appts, nil
}

// CreateTx создаёт запись внутри транзакции вызывающего
func (r *AppointmentRepository) CreateTx(ctx context.Context, q Querier, appt *model.Appointment) error {
	query := `
		INSERT INTO appointments (parent_id, teacher_id, slot_id, meeting_mode, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(
		ctx, query,
		appt.ParentID,
		appt.TeacherID,
		appt.SlotID,
		appt.MeetingMode,
		appt.Status,
		appt.Notes,
	).Scan(&appt.ID, &appt.CreatedAt, &appt.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}

	return nil
}

// GetByID получает запись по ID
func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	appt, err := scanAppointment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get appointment by id: %w", err)
	}

	return appt, nil
}

// GetByIDForUpdateTx получает запись по ID с блокировкой строки
func (r *AppointmentRepository) GetByIDForUpdateTx(ctx context.Context, q Querier, id int64) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 FOR UPDATE`

	appt, err := scanAppointment(q.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get appointment for update: %w", err)
	}

	return appt, nil
}

// GetActiveBySlotID получает неотменённую запись на слот, если она есть
func (r *AppointmentRepository) GetActiveBySlotID(ctx context.Context, slotID int64) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE slot_id = $1 AND status <> 'cancelled'`

	appt, err := scanAppointment(r.pool.QueryRow(ctx, query, slotID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get active appointment by slot: %w", err)
	}

	return appt, nil
}

// AppointmentFilter — параметры выборки записей. Диапазон дат
// фильтрует по календарной дате слота (week_start_date + day_of_week).
type AppointmentFilter struct {
	ParentID  int64
	TeacherID int64
	Status    model.AppointmentStatus
	StartDate *model.Date
	EndDate   *model.Date
	Skip      int
	Limit     int
}

// List получает записи по фильтру, новые первыми
func (r *AppointmentRepository) List(ctx context.Context, filter AppointmentFilter) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentAliasedColumns + ` FROM appointments a`
	if filter.StartDate != nil || filter.EndDate != nil {
		query += ` JOIN available_slots s ON s.id = a.slot_id`
	}
	query += ` WHERE 1=1`
	args := []any{}
	n := 0

	next := func() string {
		n++
		return "$" + strconv.Itoa(n)
	}

	if filter.ParentID != 0 {
		query += ` AND a.parent_id = ` + next()
		args = append(args, filter.ParentID)
	}
	if filter.TeacherID != 0 {
		query += ` AND a.teacher_id = ` + next()
		args = append(args, filter.TeacherID)
	}
	if filter.Status != "" {
		query += ` AND a.status = ` + next()
		args = append(args, filter.Status)
	}
	if filter.StartDate != nil {
		query += ` AND s.week_start_date + s.day_of_week >= ` + next()
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		query += ` AND s.week_start_date + s.day_of_week <= ` + next()
		args = append(args, *filter.EndDate)
	}

	query += ` ORDER BY a.created_at DESC`

	if filter.Limit > 0 {
		query += ` OFFSET ` + next()
		args = append(args, filter.Skip)
		query += ` LIMIT ` + next()
		args = append(args, filter.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	return collectAppointments(rows)
}

// ListConfirmedForDay получает подтверждённые записи на конкретный день недели
func (r *AppointmentRepository) ListConfirmedForDay(ctx context.Context, weekStart model.Date, dayOfWeek int) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentAliasedColumns + `
		FROM appointments a
		JOIN available_slots s ON s.id = a.slot_id
		WHERE a.status = 'confirmed' AND s.week_start_date = $1 AND s.day_of_week = $2
		ORDER BY s.start_min
	`

	rows, err := r.pool.Query(ctx, query, weekStart, dayOfWeek)
	if err != nil {
		return nil, fmt.Errorf("list confirmed appointments for day: %w", err)
	}

	return collectAppointments(rows)
}

// CountByStatus считает записи по статусам с учётом фильтра
func (r *AppointmentRepository) CountByStatus(ctx context.Context, filter AppointmentFilter) (map[model.AppointmentStatus]int, error) {
	query := `SELECT status, count(*) FROM appointments WHERE 1=1`
	args := []any{}
	n := 0

	next := func() string {
		n++
		return "$" + strconv.Itoa(n)
	}

	if filter.ParentID != 0 {
		query += ` AND parent_id = ` + next()
		args = append(args, filter.ParentID)
	}
	if filter.TeacherID != 0 {
		query += ` AND teacher_id = ` + next()
		args = append(args, filter.TeacherID)
	}

	query += ` GROUP BY status`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count appointments by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.AppointmentStatus]int)
	for rows.Next() {
		var status model.AppointmentStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}

	return counts, nil
}

// UpdateStatusTx меняет статус записи внутри транзакции вызывающего
func (r *AppointmentRepository) UpdateStatusTx(ctx context.Context, q Querier, id int64, status model.AppointmentStatus) error {
	query := `UPDATE appointments SET status = $1, updated_at = now() WHERE id = $2`

	result, err := q.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("appointment not found")
	}

	return nil
}
