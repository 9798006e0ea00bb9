package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parentmeet/parentmeet/internal/model"
)

type ParentRepository struct {
	pool *pgxpool.Pool
}

func NewParentRepository(pool *pgxpool.Pool) *ParentRepository {
	return &ParentRepository{pool: pool}
}

const parentSelect = `
	SELECT p.id, p.user_id, p.student_name, p.student_class, p.created_at,
	       u.id, u.email, u.password_hash, u.first_name, u.last_name, u.role, u.phone, u.telegram_chat_id, u.is_active, u.created_at, u.updated_at
	FROM parents p
	JOIN users u ON u.id = p.user_id
`

func scanParent(row pgx.Row) (*model.Parent, error) {
	var parent model.Parent
	var user model.User
	err := row.Scan(
		&parent.ID,
		&parent.UserID,
		&parent.StudentName,
		&parent.StudentClass,
		&parent.CreatedAt,
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
	parent.User = &user
	return &parent, nil
}

// Create создаёт профиль родителя
func (r *ParentRepository) Create(ctx context.Context, parent *model.Parent) error {
	query := `
		INSERT INTO parents (user_id, student_name, student_class)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query, parent.UserID, parent.StudentName, parent.StudentClass).
		Scan(&parent.ID, &parent.CreatedAt)

	if err != nil {
		return fmt.Errorf("create parent: %w", err)
	}

	return nil
}

// GetByID получает родителя по ID вместе с данными пользователя
func (r *ParentRepository) GetByID(ctx context.Context, id int64) (*model.Parent, error) {
	query := parentSelect + ` WHERE p.id = $1`

	parent, err := scanParent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get parent by id: %w", err)
	}

	return parent, nil
}

// GetByUserID получает родителя по ID пользователя
func (r *ParentRepository) GetByUserID(ctx context.Context, userID int64) (*model.Parent, error) {
	query := parentSelect + ` WHERE p.user_id = $1`

	parent, err := scanParent(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get parent by user id: %w", err)
	}

	return parent, nil
}

// List получает родителей постранично
func (r *ParentRepository) List(ctx context.Context, skip, limit int) ([]*model.Parent, error) {
	query := parentSelect + ` ORDER BY u.last_name, u.first_name OFFSET $1 LIMIT $2`

	rows, err := r.pool.Query(ctx, query, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list parents: %w", err)
	}
	defer rows.Close()

	var parents []*model.Parent
	for rows.Next() {
		parent, err := scanParent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan parent: %w", err)
		}
		parents = append(parents, parent)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate parents: %w", err)
	}

	return parents, nil
}

// Update обновляет профиль родителя
func (r *ParentRepository) Update(ctx context.Context, parent *model.Parent) error {
	query := `UPDATE parents SET student_name = $1, student_class = $2 WHERE id = $3`

	result, err := r.pool.Exec(ctx, query, parent.StudentName, parent.StudentClass, parent.ID)
	if err != nil {
		return fmt.Errorf("update parent: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("parent not found")
	}

	return nil
}

// Delete удаляет профиль родителя
func (r *ParentRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM parents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete parent: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("parent not found")
	}

	return nil
}
