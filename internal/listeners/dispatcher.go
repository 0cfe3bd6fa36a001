package listeners

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"repair-system/internal/events"
	"repair-system/pkg/outbox"
)

// Dispatcher разводит сообщения outbox по слушателям. Слушатели вызываются
// последовательно; первая ошибка возвращается в Relay, и доставка повторится
// целиком - поэтому каждый слушатель обязан быть идемпотентным.
type Dispatcher struct {
	audit        *AuditListener
	notification *NotificationListener
	logger       *zap.Logger
}

func NewDispatcher(audit *AuditListener, notification *NotificationListener, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{audit: audit, notification: notification, logger: logger}
}

func (d *Dispatcher) Dispatch(ctx context.Context, msg outbox.Message) error {
	switch msg.Topic {
	case events.TopicRequestStatusChanged:
		if err := d.audit.Handle(ctx, msg); err != nil {
			return fmt.Errorf("журнал аудита: %w", err)
		}
		if err := d.notification.Handle(ctx, msg); err != nil {
			return fmt.Errorf("уведомления: %w", err)
		}
		return nil
	default:
		// Неизвестный топик не крутим в ретраях бесконечно: логируем и подтверждаем.
		d.logger.Warn("Событие с неизвестным топиком пропущено",
			zap.String("topic", msg.Topic),
			zap.String("event_id", msg.EventID.String()))
		return nil
	}
}
