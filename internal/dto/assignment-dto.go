package dto

type AssignRequestDTO struct {
	EmployeeID uint64 `json:"employee_id" validate:"required,gt=0"`
}

type RespondAssignmentDTO struct {
	Accepted *bool `json:"accepted" validate:"required"`
}

type AssignmentLogDTO struct {
	ID          uint64  `json:"id"`
	RequestID   uint64  `json:"request_id"`
	EmployeeID  uint64  `json:"employee_id"`
	State       string  `json:"state"`
	AssignedAt  string  `json:"assigned_at"`
	RespondedAt *string `json:"responded_at,omitempty"`
}
