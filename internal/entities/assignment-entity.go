package entities

import (
	"time"

	"github.com/aarondl/null/v8"
)

// AssignmentLog - предложение заявки сотруднику. На одну заявку может быть
// не более одной записи в состоянии PENDING (частичный уникальный индекс в БД).
type AssignmentLog struct {
	ID          uint64    `json:"id" db:"id"`
	RequestID   uint64    `json:"request_id" db:"request_id"`
	EmployeeID  uint64    `json:"employee_id" db:"employee_id"`
	State       string    `json:"state" db:"state"`
	AssignedAt  time.Time `json:"assigned_at" db:"assigned_at"`
	RespondedAt null.Time `json:"responded_at" db:"responded_at"`
}
