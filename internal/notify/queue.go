package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const queueKey = "notifications:queue"

// Queue — очередь ID уведомлений в Redis. Сервер кладёт ID после коммита,
// диспетчер забирает их блокирующим чтением.
type Queue struct {
	client *redis.Client
}

func NewQueue(client *redis.Client) *Queue {
	return &Queue{client: client}
}

// Push кладёт ID уведомления в очередь
func (q *Queue) Push(ctx context.Context, notificationID int64) error {
	if err := q.client.LPush(ctx, queueKey, notificationID).Err(); err != nil {
		return fmt.Errorf("push notification id: %w", err)
	}
	return nil
}

// Pop блокирующе забирает ID из очереди. ok=false означает таймаут.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (int64, bool, error) {
	res, err := q.client.BRPop(ctx, timeout, queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("pop notification id: %w", err)
	}

	// BRPop возвращает пару [ключ, значение]
	id, err := strconv.ParseInt(res[1], 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse notification id %q: %w", res[1], err)
	}

	return id, true, nil
}
