package entities

import (
	"time"

	"github.com/aarondl/null/v8"
)

// Request - заявка на ремонт. Статус меняется только через RequestService,
// запись никогда не удаляется физически (COMPLETED - мягкое закрытие).
type Request struct {
	ID          uint64      `json:"id" db:"id"`
	Status      string      `json:"status" db:"status"`
	CustomerRef uint64      `json:"customer_ref" db:"customer_ref"`
	EmployeeRef null.Uint64 `json:"employee_ref" db:"employee_ref"`
	ProductRef  null.Uint64 `json:"product_ref" db:"product_ref"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}
