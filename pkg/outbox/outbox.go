// Пакет outbox реализует транзакционный outbox: событие кладется в таблицу
// request_outbox в той же транзакции, что и бизнес-запись, а Relay доставляет
// его подписчикам уже после коммита. Откат транзакции - событие не существует.
// Доставка at-least-once, подписчики обязаны быть идемпотентными по event_id.
package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const tableName = "request_outbox"

// Message - единица хранения в request_outbox.
type Message struct {
	ID         uint64
	EventID    uuid.UUID
	RequestID  uint64
	Topic      string
	Payload    json.RawMessage
	OccurredAt time.Time
	Attempts   int
}

// Dispatcher - получатель сообщений. Ошибка означает "не доставлено":
// Relay повторит с экспоненциальной задержкой, после MaxAttempts переведет
// сообщение в dead-letter (dead_at), видимый оператору.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}
