package dto

type RequestLogDTO struct {
	ID        uint64  `json:"id"`
	RequestID uint64  `json:"request_id"`
	ChangedBy string  `json:"changed_by"`
	OldStatus *string `json:"old_status"`
	NewStatus string  `json:"new_status"`
	ChangedAt string  `json:"changed_at"`
	Notes     *string `json:"notes,omitempty"`
}
