package listeners

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aarondl/null/v8"
	"go.uber.org/zap"

	"repair-system/internal/entities"
	"repair-system/internal/events"
	"repair-system/internal/repositories"
	"repair-system/pkg/outbox"
)

// AuditListener - подписчик журнала аудита. Его единственная задача:
// одна запись request_log на одно доставленное событие. Повторная доставка
// того же события не создает второй записи (дедупликация по event_id в БД).
type AuditListener struct {
	historyRepo repositories.RequestHistoryRepositoryInterface
	logger      *zap.Logger
}

func NewAuditListener(historyRepo repositories.RequestHistoryRepositoryInterface, logger *zap.Logger) *AuditListener {
	return &AuditListener{historyRepo: historyRepo, logger: logger}
}

func (l *AuditListener) Handle(ctx context.Context, msg outbox.Message) error {
	var event events.RequestStatusChangedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		// Нечитаемое событие повторять бессмысленно - оно уйдет в dead-letter
		// после исчерпания попыток, там его увидит оператор.
		return fmt.Errorf("не удалось разобрать событие %s: %w", msg.EventID, err)
	}

	entry := &entities.RequestLog{
		RequestID: event.RequestID,
		ChangedBy: event.Actor,
		OldStatus: null.StringFromPtr(event.OldStatus),
		NewStatus: event.NewStatus,
		ChangedAt: event.OccurredAt,
		Notes:     null.StringFromPtr(event.Notes),
		EventID:   event.EventID,
	}

	if err := l.historyRepo.Append(ctx, entry); err != nil {
		return err
	}

	l.logger.Debug("Запись журнала добавлена",
		zap.Uint64("requestID", event.RequestID),
		zap.String("newStatus", event.NewStatus))
	return nil
}
