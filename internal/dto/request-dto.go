package dto

type CreateRequestDTO struct {
	CustomerRef uint64  `json:"customer_ref" validate:"required,gt=0"`
	ProductRef  *uint64 `json:"product_ref,omitempty" validate:"omitempty,gt=0"`
	Actor       string  `json:"actor" validate:"required,min=1,max=255"`
	Notes       *string `json:"notes,omitempty" validate:"omitempty,min=3"`
}

type TransitionRequestDTO struct {
	TargetStatus string  `json:"target_status" validate:"required,request_status"`
	Actor        string  `json:"actor" validate:"required,min=1,max=255"`
	Notes        *string `json:"notes,omitempty" validate:"omitempty,min=3"`
}

type RequestResponseDTO struct {
	ID          uint64  `json:"id"`
	Status      string  `json:"status"`
	CustomerRef uint64  `json:"customer_ref"`
	EmployeeRef *uint64 `json:"employee_ref,omitempty"`
	ProductRef  *uint64 `json:"product_ref,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}
