package listeners

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"repair-system/pkg/outbox"
)

// NotificationListener публикует событие смены статуса в канал Redis,
// откуда его забирает внешняя система уведомлений (email, telegram и т.д.).
type NotificationListener struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

func NewNotificationListener(client *redis.Client, channel string, logger *zap.Logger) *NotificationListener {
	return &NotificationListener{client: client, channel: channel, logger: logger}
}

func (l *NotificationListener) Handle(ctx context.Context, msg outbox.Message) error {
	if err := l.client.Publish(ctx, l.channel, []byte(msg.Payload)).Err(); err != nil {
		return fmt.Errorf("не удалось опубликовать уведомление: %w", err)
	}

	l.logger.Debug("Уведомление опубликовано",
		zap.String("channel", l.channel),
		zap.String("event_id", msg.EventID.String()))
	return nil
}
