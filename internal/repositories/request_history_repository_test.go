package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repair-system/internal/entities"
	"repair-system/pkg/constants"
)

func TestRequestHistoryRepository_Integration_AppendIsIdempotent(t *testing.T) {
	require.NotNil(t, testPool, "testPool не инициализирован")
	cleanupTables(t, testPool)
	repo := NewRequestHistoryRepository(testPool)
	requestID := seedRequest(t, testPool, constants.StatusReceived)

	entry := &entities.RequestLog{
		RequestID: requestID,
		ChangedBy: "system",
		NewStatus: constants.StatusReceived,
		ChangedAt: time.Now(),
		EventID:   uuid.New(),
	}

	require.NoError(t, repo.Append(context.Background(), entry))
	// Повторная доставка того же события не должна плодить дубликаты.
	require.NoError(t, repo.Append(context.Background(), entry))

	history, err := repo.FindByRequestID(context.Background(), requestID)
	require.NoError(t, err)
	require.Len(t, history, 1, "Одно событие - одна запись в журнале")
	assert.Equal(t, entry.EventID, history[0].EventID)
	assert.False(t, history[0].OldStatus.Valid, "У первой записи old_status пустой")
}

func TestRequestHistoryRepository_Integration_FindByRequestID(t *testing.T) {
	cleanupTables(t, testPool)
	repo := NewRequestHistoryRepository(testPool)
	requestID := seedRequest(t, testPool, constants.StatusReceived)
	otherID := seedRequest(t, testPool, constants.StatusReceived)

	base := time.Now().Add(-time.Hour)
	chain := []struct {
		old string
		new string
	}{
		{"", constants.StatusReceived},
		{constants.StatusReceived, constants.StatusRepairing},
		{constants.StatusRepairing, constants.StatusWaitingForPayment},
	}
	for i, step := range chain {
		entry := &entities.RequestLog{
			RequestID: requestID,
			ChangedBy: "operator",
			NewStatus: step.new,
			ChangedAt: base.Add(time.Duration(i) * time.Minute),
			EventID:   uuid.New(),
		}
		if step.old != "" {
			entry.OldStatus = null.StringFrom(step.old)
		}
		require.NoError(t, repo.Append(context.Background(), entry))
	}

	// Запись по чужой заявке не должна попадать в выборку.
	require.NoError(t, repo.Append(context.Background(), &entities.RequestLog{
		RequestID: otherID,
		ChangedBy: "operator",
		NewStatus: constants.StatusReceived,
		ChangedAt: base,
		EventID:   uuid.New(),
	}))

	history, err := repo.FindByRequestID(context.Background(), requestID)
	require.NoError(t, err)
	require.Len(t, history, 3)

	// Журнал отсортирован по времени, и старый статус каждой записи
	// совпадает с новым статусом предыдущей.
	for i, h := range history {
		assert.Equal(t, chain[i].new, h.NewStatus)
		if i == 0 {
			assert.False(t, h.OldStatus.Valid)
		} else {
			require.True(t, h.OldStatus.Valid)
			assert.Equal(t, history[i-1].NewStatus, h.OldStatus.String)
		}
	}
}
