package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parentmeet/parentmeet/internal/model"
)

type TeacherRepository struct {
	pool *pgxpool.Pool
}

func NewTeacherRepository(pool *pgxpool.Pool) *TeacherRepository {
	return &TeacherRepository{pool: pool}
}

const teacherSelect = `
	SELECT t.id, t.user_id, t.subject, t.office, t.created_at,
	       u.id, u.email, u.password_hash, u.first_name, u.last_name, u.role, u.phone, u.telegram_chat_id, u.is_active, u.created_at, u.updated_at
	FROM teachers t
	JOIN users u ON u.id = t.user_id
`

func scanTeacher(row pgx.Row) (*model.Teacher, error) {
	var teacher model.Teacher
	var user model.User
	err := row.Scan(
		&teacher.ID,
		&teacher.UserID,
		&teacher.Subject,
		&teacher.Office,
		&teacher.CreatedAt,
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.Phone,
		&user.TelegramChatID,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	teacher.User = &user
	return &teacher, nil
}

// Create создаёт профиль учителя
func (r *TeacherRepository) Create(ctx context.Context, teacher *model.Teacher) error {
	query := `
		INSERT INTO teachers (user_id, subject, office)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query, teacher.UserID, teacher.Subject, teacher.Office).
		Scan(&teacher.ID, &teacher.CreatedAt)

	if err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}

	return nil
}

// GetByID получает учителя по ID вместе с данными пользователя
func (r *TeacherRepository) GetByID(ctx context.Context, id int64) (*model.Teacher, error) {
	query := teacherSelect + ` WHERE t.id = $1`

	teacher, err := scanTeacher(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get teacher by id: %w", err)
	}

	return teacher, nil
}

// GetByUserID получает учителя по ID пользователя
func (r *TeacherRepository) GetByUserID(ctx context.Context, userID int64) (*model.Teacher, error) {
	query := teacherSelect + ` WHERE t.user_id = $1`

	teacher, err := scanTeacher(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get teacher by user id: %w", err)
	}

	return teacher, nil
}

// List получает учителей постранично, опционально по предмету
func (r *TeacherRepository) List(ctx context.Context, subject string, skip, limit int) ([]*model.Teacher, error) {
	query := teacherSelect
	args := []any{}

	if subject != "" {
		query += ` WHERE t.subject = $1 ORDER BY u.last_name, u.first_name OFFSET $2 LIMIT $3`
		args = append(args, subject, skip, limit)
	} else {
		query += ` ORDER BY u.last_name, u.first_name OFFSET $1 LIMIT $2`
		args = append(args, skip, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	defer rows.Close()

	var teachers []*model.Teacher
	for rows.Next() {
		teacher, err := scanTeacher(rows)
		if err != nil {
			return nil, fmt.Errorf("scan teacher: %w", err)
		}
		teachers = append(teachers, teacher)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate teachers: %w", err)
	}

	return teachers, nil
}

// Update обновляет профиль учителя
func (r *TeacherRepository) Update(ctx context.Context, teacher *model.Teacher) error {
	query := `UPDATE teachers SET subject = $1, office = $2 WHERE id = $3`

	result, err := r.pool.Exec(ctx, query, teacher.Subject, teacher.Office, teacher.ID)
	if err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("teacher not found")
	}

	return nil
}

// Delete удаляет профиль учителя
func (r *TeacherRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM teachers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("teacher not found")
	}

	return nil
}
