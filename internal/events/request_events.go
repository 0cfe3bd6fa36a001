package events

import (
	"time"

	"github.com/google/uuid"
)

// Топик событий смены статуса заявки в outbox.
const TopicRequestStatusChanged = "request.status.changed"

// RequestStatusChangedEvent - событие перехода статуса. Кладется в outbox
// в той же транзакции, что и смена статуса, и доставляется подписчикам
// только после коммита. EventID - ключ идемпотентности при повторной доставке.
type RequestStatusChangedEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	RequestID  uint64    `json:"request_id"`
	OldStatus  *string   `json:"old_status"`
	NewStatus  string    `json:"new_status"`
	Actor      string    `json:"actor"`
	Notes      *string   `json:"notes,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e RequestStatusChangedEvent) Name() string {
	return TopicRequestStatusChanged
}
