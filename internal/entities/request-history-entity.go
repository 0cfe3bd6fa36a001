package entities

import (
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
)

// RequestLog - запись журнала смены статусов. Журнал только дописывается:
// записи не изменяются и не удаляются, для каждой заявки они образуют цепочку,
// где old_status очередной записи равен new_status предыдущей
// (у первой записи old_status пустой).
type RequestLog struct {
	ID        uint64      `json:"id" db:"id"`
	RequestID uint64      `json:"request_id" db:"request_id"`
	ChangedBy string      `json:"changed_by" db:"changed_by"`
	OldStatus null.String `json:"old_status" db:"old_status"`
	NewStatus string      `json:"new_status" db:"new_status"`
	ChangedAt time.Time   `json:"changed_at" db:"changed_at"`
	Notes     null.String `json:"notes" db:"notes"`
	EventID   uuid.UUID   `json:"event_id" db:"event_id"`
}
