package notify

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/parentmeet/parentmeet/internal/model"
)

const (
	popTimeout    = 5 * time.Second
	sweepInterval = time.Minute
	sweepBatch    = 100
	maxSendRetry  = 2 // плюс первая попытка — всего три
)

// NotificationStore — доступ диспетчера к outbox-журналу
type NotificationStore interface {
	GetByID(ctx context.Context, id int64) (*model.Notification, error)
	ListPending(ctx context.Context, limit int) ([]*model.Notification, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string) error
}

// UserStore — поиск получателя для телеграм-канала
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// Dispatcher разбирает очередь уведомлений и рассылает их. Помимо очереди
// периодически обходит pending-строки: так доставляются записи, чей push
// в Redis не удался.
type Dispatcher struct {
	queue    *Queue
	store    NotificationStore
	users    UserStore
	email    *EmailSender
	telegram *TelegramSender // nil, если канал не настроен
	logger   *zap.Logger
}

func NewDispatcher(
	queue *Queue,
	store NotificationStore,
	users UserStore,
	email *EmailSender,
	telegram *TelegramSender,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		queue:    queue,
		store:    store,
		users:    users,
		email:    email,
		telegram: telegram,
		logger:   logger,
	}
}

// Run крутит цикл доставки до отмены контекста
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("Notification dispatcher started")

	sweep := time.NewTicker(sweepInterval)
	defer sweep.Stop()

	// Стартовый обход подбирает записи, оставшиеся с прошлого запуска
	d.sweepPending(ctx)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Notification dispatcher stopped")
			return ctx.Err()
		case <-sweep.C:
			d.sweepPending(ctx)
		default:
		}

		id, ok, err := d.queue.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			d.logger.Error("Failed to pop from queue", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if !ok {
			continue
		}

		n, err := d.store.GetByID(ctx, id)
		if err != nil {
			d.logger.Error("Failed to load notification", zap.Int64("notification_id", id), zap.Error(err))
			continue
		}
		if n == nil {
			d.logger.Warn("Notification from queue not found", zap.Int64("notification_id", id))
			continue
		}

		d.deliver(ctx, n)
	}
}

// sweepPending рассылает pending-записи напрямую из БД
func (d *Dispatcher) sweepPending(ctx context.Context) {
	pending, err := d.store.ListPending(ctx, sweepBatch)
	if err != nil {
		d.logger.Error("Failed to list pending notifications", zap.Error(err))
		return
	}

	for _, n := range pending {
		d.deliver(ctx, n)
	}
}

// deliver отправляет одно уведомление и фиксирует результат
func (d *Dispatcher) deliver(ctx context.Context, n *model.Notification) {
	// Очередь и обход могут выдать одну запись дважды
	if n.Status == model.NotificationStatusSent {
		return
	}

	backoff := retry.WithMaxRetries(maxSendRetry, retry.NewFibonacci(time.Second))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := d.email.Send(ctx, n); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})

	if err != nil {
		d.logger.Error("Failed to send notification",
			zap.Int64("notification_id", n.ID),
			zap.String("recipient", n.RecipientEmail),
			zap.Error(err),
		)
		if markErr := d.store.MarkFailed(ctx, n.ID, err.Error()); markErr != nil {
			d.logger.Error("Failed to mark notification failed", zap.Int64("notification_id", n.ID), zap.Error(markErr))
		}
		return
	}

	if err := d.store.MarkSent(ctx, n.ID); err != nil {
		d.logger.Error("Failed to mark notification sent", zap.Int64("notification_id", n.ID), zap.Error(err))
	}

	d.logger.Info("Notification sent",
		zap.Int64("notification_id", n.ID),
		zap.String("type", string(n.Type)),
		zap.String("recipient", n.RecipientEmail),
	)

	d.sendTelegramCopy(ctx, n)
}

// sendTelegramCopy дублирует текст в Telegram, если получатель привязал чат
func (d *Dispatcher) sendTelegramCopy(ctx context.Context, n *model.Notification) {
	if d.telegram == nil {
		return
	}

	user, err := d.users.GetByEmail(ctx, n.RecipientEmail)
	if err != nil {
		d.logger.Warn("Failed to look up telegram recipient", zap.String("email", n.RecipientEmail), zap.Error(err))
		return
	}
	if user == nil || user.TelegramChatID == nil {
		return
	}

	text := n.Subject + "\n\n" + n.Content
	if err := d.telegram.Send(ctx, *user.TelegramChatID, text); err != nil {
		d.logger.Warn("Failed to send telegram copy",
			zap.Int64("notification_id", n.ID),
			zap.Int64("chat_id", *user.TelegramChatID),
			zap.Error(err),
		)
	}
}
