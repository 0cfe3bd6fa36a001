package constants

// --- СТАТУСЫ ЗАЯВОК НА РЕМОНТ (Совпадает с кодами в БД) ---
const (
	StatusReceived           = "RECEIVED"
	StatusRepairing          = "REPAIRING"
	StatusWaitingForPayment  = "WAITING_FOR_PAYMENT"
	StatusWaitingForDelivery = "WAITING_FOR_DELIVERY"
	StatusCompleted          = "COMPLETED"
)

// NextStatus описывает единственный допустимый переход вперед для каждого статуса.
// Пропуски, откаты и повтор того же статуса запрещены.
var NextStatus = map[string]string{
	StatusReceived:           StatusRepairing,
	StatusRepairing:          StatusWaitingForPayment,
	StatusWaitingForPayment:  StatusWaitingForDelivery,
	StatusWaitingForDelivery: StatusCompleted,
}

func IsKnownStatus(code string) bool {
	if code == StatusCompleted {
		return true
	}
	_, ok := NextStatus[code]
	return ok
}

// CanTransition проверяет, что target является непосредственным преемником current.
func CanTransition(current, target string) bool {
	next, ok := NextStatus[current]
	return ok && next == target
}

// --- СОСТОЯНИЯ НАЗНАЧЕНИЙ ---
const (
	AssignmentPending  = "PENDING"
	AssignmentAccepted = "ACCEPTED"
	AssignmentExpired  = "EXPIRED"
)

// Терминальные состояния назначения. После них запись неизменяема.
var TerminalAssignmentStates = []string{
	AssignmentAccepted,
	AssignmentExpired,
}

func IsTerminalAssignmentState(code string) bool {
	for _, s := range TerminalAssignmentStates {
		if s == code {
			return true
		}
	}
	return false
}
