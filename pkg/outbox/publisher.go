package outbox

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type Publisher interface {
	Enqueue(ctx context.Context, tx pgx.Tx, msg Message) error
}

type publisher struct {
	m *metrics
}

func NewPublisher() Publisher {
	return &publisher{m: getMetrics()}
}

// Enqueue кладет событие в outbox в рамках транзакции вызывающего кода.
// Повторная вставка с тем же event_id молча игнорируется.
func (p *publisher) Enqueue(ctx context.Context, tx pgx.Tx, msg Message) error {
	if msg.EventID.String() == "00000000-0000-0000-0000-000000000000" {
		return fmt.Errorf("outbox: event_id обязателен")
	}
	if msg.Topic == "" {
		return fmt.Errorf("outbox: topic обязателен")
	}

	query := `
		INSERT INTO ` + tableName + ` (event_id, request_id, topic, payload, occurred_at, available_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (event_id) DO NOTHING`

	_, err := tx.Exec(ctx, query, msg.EventID, msg.RequestID, msg.Topic, msg.Payload, msg.OccurredAt)
	if err != nil {
		return fmt.Errorf("outbox: ошибка постановки события в очередь: %w", err)
	}

	p.m.enqueueTotal.WithLabelValues(msg.Topic).Inc()
	return nil
}
