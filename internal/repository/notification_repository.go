package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parentmeet/parentmeet/internal/model"
)

type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

const notificationColumns = `id, recipient_email, recipient_name, notification_type, status, subject, content, appointment_id, sent_at, error_message, created_at, updated_at`

func scanNotification(row pgx.Row) (*model.Notification, error) {
	var n model.Notification
	err := row.Scan(
		&n.ID,
		&n.RecipientEmail,
		&n.RecipientName,
		&n.Type,
		&n.Status,
		&n.Subject,
		&n.Content,
		&n.AppointmentID,
		&n.SentAt,
		&n.ErrorMessage,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func collectNotifications(rows pgx.Rows) ([]*model.Notification, error) {
	defer rows.Close()

	var items []*model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}

	return items, nil
}

// Create создаёт запись в outbox вне транзакции
func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.CreateTx(ctx, r.pool, n)
}

// CreateTx создаёт запись в outbox внутри транзакции вызывающего
func (r *NotificationRepository) CreateTx(ctx context.Context, q Querier, n *model.Notification) error {
	query := `
		INSERT INTO notifications (recipient_email, recipient_name, notification_type, status, subject, content, appointment_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(
		ctx, query,
		n.RecipientEmail,
		n.RecipientName,
		n.Type,
		n.Status,
		n.Subject,
		n.Content,
		n.AppointmentID,
	).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	return nil
}

// GetByID получает уведомление по ID
func (r *NotificationRepository) GetByID(ctx context.Context, id int64) (*model.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	n, err := scanNotification(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get notification by id: %w", err)
	}

	return n, nil
}

// List получает уведомления постранично, новые первыми
func (r *NotificationRepository) List(ctx context.Context, skip, limit int) ([]*model.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications ORDER BY created_at DESC OFFSET $1 LIMIT $2`

	rows, err := r.pool.Query(ctx, query, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	return collectNotifications(rows)
}

// ListPending получает неотправленные уведомления для фонового диспетчера
func (r *NotificationRepository) ListPending(ctx context.Context, limit int) ([]*model.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE status = 'pending' ORDER BY created_at LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending notifications: %w", err)
	}

	return collectNotifications(rows)
}

// MarkSent помечает уведомление отправленным
func (r *NotificationRepository) MarkSent(ctx context.Context, id int64) error {
	query := `UPDATE notifications SET status = 'sent', sent_at = now(), error_message = NULL, updated_at = now() WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("notification not found")
	}

	return nil
}

// MarkFailed помечает уведомление неотправленным с текстом ошибки
func (r *NotificationRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	query := `UPDATE notifications SET status = 'failed', error_message = $1, updated_at = now() WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, reason, id)
	if err != nil {
		return fmt.Errorf("mark notification failed: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("notification not found")
	}

	return nil
}

// ResetPending возвращает уведомление в очередь на повторную отправку
func (r *NotificationRepository) ResetPending(ctx context.Context, id int64) error {
	query := `UPDATE notifications SET status = 'pending', error_message = NULL, updated_at = now() WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("reset notification: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("notification not found")
	}

	return nil
}

// HasReminderFor проверяет, создавалось ли уже напоминание для записи
func (r *NotificationRepository) HasReminderFor(ctx context.Context, appointmentID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM notifications WHERE appointment_id = $1 AND notification_type = 'appointment_reminder')`

	var exists bool
	err := r.pool.QueryRow(ctx, query, appointmentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check reminder exists: %w", err)
	}

	return exists, nil
}
