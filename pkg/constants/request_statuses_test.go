package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Единственный допустимый порядок:
// RECEIVED -> REPAIRING -> WAITING_FOR_PAYMENT -> WAITING_FOR_DELIVERY -> COMPLETED.
func TestCanTransition_ForwardChainOnly(t *testing.T) {
	chain := []string{StatusReceived, StatusRepairing, StatusWaitingForPayment, StatusWaitingForDelivery, StatusCompleted}

	for i, from := range chain {
		for j, to := range chain {
			got := CanTransition(from, to)
			if j == i+1 {
				assert.True(t, got, "переход %s -> %s должен быть разрешен", from, to)
			} else {
				// Пропуски, откаты и повтор того же статуса запрещены.
				assert.False(t, got, "переход %s -> %s должен быть запрещен", from, to)
			}
		}
	}
}

func TestCanTransition_CompletedIsTerminal(t *testing.T) {
	for _, to := range []string{StatusReceived, StatusRepairing, StatusWaitingForPayment, StatusWaitingForDelivery, StatusCompleted} {
		assert.False(t, CanTransition(StatusCompleted, to))
	}
}

func TestIsKnownStatus(t *testing.T) {
	assert.True(t, IsKnownStatus(StatusReceived))
	assert.True(t, IsKnownStatus(StatusCompleted))
	assert.False(t, IsKnownStatus("CANCELLED"))
	assert.False(t, IsKnownStatus(""))
}

func TestIsTerminalAssignmentState(t *testing.T) {
	assert.False(t, IsTerminalAssignmentState(AssignmentPending))
	assert.True(t, IsTerminalAssignmentState(AssignmentAccepted))
	assert.True(t, IsTerminalAssignmentState(AssignmentExpired))
}
