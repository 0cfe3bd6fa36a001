package repositories

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repair-system/pkg/constants"
	apperrors "repair-system/pkg/errors"
)

// backdateAssignment сдвигает assigned_at в прошлое, чтобы имитировать
// давно выданное назначение.
func backdateAssignment(t *testing.T, id uint64, assignedAt time.Time) {
	t.Helper()
	_, err := testPool.Exec(context.Background(),
		`UPDATE assignment_log SET assigned_at = $1 WHERE id = $2`, assignedAt, id)
	require.NoError(t, err)
}

func TestAssignmentRepository_Integration_OnePendingPerRequest(t *testing.T) {
	require.NotNil(t, testPool, "testPool не инициализирован")
	cleanupTables(t, testPool)
	repo := NewAssignmentRepository(testPool)
	requestID := seedRequest(t, testPool, constants.StatusReceived)

	first, err := repo.Create(context.Background(), requestID, 10)
	require.NoError(t, err)
	assert.Equal(t, constants.AssignmentPending, first.State)
	assert.False(t, first.RespondedAt.Valid)

	// Повторное назначение при живом PENDING должно отклоняться,
	// даже если сотрудник другой.
	_, err = repo.Create(context.Background(), requestID, 11)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyPending)

	// После закрытия первого назначения новое снова допустимо.
	err = WithTx(context.Background(), testPool, func(tx pgx.Tx) error {
		rows, txErr := repo.ResolveInTx(context.Background(), tx, first.ID, constants.AssignmentExpired, time.Now())
		require.EqualValues(t, 1, rows)
		return txErr
	})
	require.NoError(t, err)

	second, err := repo.Create(context.Background(), requestID, 11)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), second.EmployeeID)
}

func TestAssignmentRepository_Integration_CreateForMissingRequest(t *testing.T) {
	cleanupTables(t, testPool)
	repo := NewAssignmentRepository(testPool)

	_, err := repo.Create(context.Background(), 99999, 10)
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "Назначение на несуществующую заявку должно давать NotFound")
}

func TestAssignmentRepository_Integration_ResolveIsCompareAndSwap(t *testing.T) {
	cleanupTables(t, testPool)
	repo := NewAssignmentRepository(testPool)
	requestID := seedRequest(t, testPool, constants.StatusReceived)

	created, err := repo.Create(context.Background(), requestID, 10)
	require.NoError(t, err)

	respondedAt := time.Now()
	err = WithTx(context.Background(), testPool, func(tx pgx.Tx) error {
		rows, txErr := repo.ResolveInTx(context.Background(), tx, created.ID, constants.AssignmentAccepted, respondedAt)
		require.NoError(t, txErr)
		assert.EqualValues(t, 1, rows, "Первый ответ должен закрыть назначение")
		return nil
	})
	require.NoError(t, err)

	// Повторный ответ по уже закрытому назначению не меняет ни одной строки.
	err = WithTx(context.Background(), testPool, func(tx pgx.Tx) error {
		rows, txErr := repo.ResolveInTx(context.Background(), tx, created.ID, constants.AssignmentExpired, time.Now())
		require.NoError(t, txErr)
		assert.EqualValues(t, 0, rows, "Закрытое назначение нельзя закрыть повторно")
		return nil
	})
	require.NoError(t, err)

	resolved, err := repo.FindAssignment(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.AssignmentAccepted, resolved.State, "Состояние первого ответа должно сохраниться")
	require.True(t, resolved.RespondedAt.Valid)
	assert.WithinDuration(t, respondedAt, resolved.RespondedAt.Time, time.Second)
}

func TestAssignmentRepository_Integration_SweepVsRespondRace(t *testing.T) {
	cleanupTables(t, testPool)
	repo := NewAssignmentRepository(testPool)
	requestID := seedRequest(t, testPool, constants.StatusReceived)

	created, err := repo.Create(context.Background(), requestID, 10)
	require.NoError(t, err)
	backdateAssignment(t, created.ID, time.Now().Add(-72*time.Hour))

	// Сначала срабатывает sweeper, потом запоздавший ответ сотрудника:
	// терминальное состояние должно остаться ровно одно.
	expired, err := repo.ExpireStalePending(context.Background(), time.Now().Add(-48*time.Hour), time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, expired)

	err = WithTx(context.Background(), testPool, func(tx pgx.Tx) error {
		rows, txErr := repo.ResolveInTx(context.Background(), tx, created.ID, constants.AssignmentAccepted, time.Now())
		require.NoError(t, txErr)
		assert.EqualValues(t, 0, rows, "Запоздавший ответ не должен перезаписать EXPIRED")
		return nil
	})
	require.NoError(t, err)

	final, err := repo.FindAssignment(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.AssignmentExpired, final.State)
}

func TestAssignmentRepository_Integration_ConcurrentSweepAndRespond(t *testing.T) {
	cleanupTables(t, testPool)
	repo := NewAssignmentRepository(testPool)
	requestID := seedRequest(t, testPool, constants.StatusReceived)

	created, err := repo.Create(context.Background(), requestID, 10)
	require.NoError(t, err)
	backdateAssignment(t, created.ID, time.Now().Add(-72*time.Hour))

	// Sweeper и несколько запоздавших ответов бьются за одну PENDING-строку
	// одновременно. Условный UPDATE гарантирует одного победителя.
	const responders = 4
	start := make(chan struct{})
	affected := make([]int64, responders+1)
	errs := make([]error, responders+1)

	var wg sync.WaitGroup
	for i := 0; i < responders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = WithTx(context.Background(), testPool, func(tx pgx.Tx) error {
				rows, txErr := repo.ResolveInTx(context.Background(), tx, created.ID, constants.AssignmentAccepted, time.Now())
				affected[i] = rows
				return txErr
			})
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		affected[responders], errs[responders] = repo.ExpireStalePending(
			context.Background(), time.Now().Add(-48*time.Hour), time.Now())
	}()
	close(start)
	wg.Wait()

	var total int64
	for i, rows := range affected {
		require.NoError(t, errs[i])
		total += rows
	}
	assert.EqualValues(t, 1, total, "Назначение закрывается ровно один раз")

	final, err := repo.FindAssignment(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, constants.IsTerminalAssignmentState(final.State),
		"Состояние должно быть терминальным, получили %s", final.State)
	require.True(t, final.RespondedAt.Valid)
}

func TestAssignmentRepository_Integration_ExpireStalePending(t *testing.T) {
	cleanupTables(t, testPool)
	repo := NewAssignmentRepository(testPool)

	now := time.Now()
	cutoff := now.Add(-48 * time.Hour)

	staleA, err := repo.Create(context.Background(), seedRequest(t, testPool, constants.StatusReceived), 10)
	require.NoError(t, err)
	backdateAssignment(t, staleA.ID, cutoff.Add(-time.Minute))

	staleB, err := repo.Create(context.Background(), seedRequest(t, testPool, constants.StatusReceived), 11)
	require.NoError(t, err)
	backdateAssignment(t, staleB.ID, cutoff.Add(-time.Hour))

	fresh, err := repo.Create(context.Background(), seedRequest(t, testPool, constants.StatusReceived), 12)
	require.NoError(t, err)
	backdateAssignment(t, fresh.ID, cutoff.Add(time.Minute))

	// Ровно на границе TTL назначение еще живо: условие строгое (<).
	boundary, err := repo.Create(context.Background(), seedRequest(t, testPool, constants.StatusReceived), 13)
	require.NoError(t, err)
	backdateAssignment(t, boundary.ID, cutoff)

	expired, err := repo.ExpireStalePending(context.Background(), cutoff, now)
	require.NoError(t, err)
	assert.EqualValues(t, 2, expired, "Должны закрыться только назначения старше cutoff")

	// Повторный проход идемпотентен.
	expired, err = repo.ExpireStalePending(context.Background(), cutoff, now)
	require.NoError(t, err)
	assert.EqualValues(t, 0, expired, "Повторный проход не должен находить кандидатов")

	for _, tc := range []struct {
		name  string
		id    uint64
		state string
	}{
		{"stale A", staleA.ID, constants.AssignmentExpired},
		{"stale B", staleB.ID, constants.AssignmentExpired},
		{"fresh", fresh.ID, constants.AssignmentPending},
		{"boundary", boundary.ID, constants.AssignmentPending},
	} {
		a, err := repo.FindAssignment(context.Background(), tc.id)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.state, a.State, tc.name)
		if tc.state == constants.AssignmentExpired {
			require.True(t, a.RespondedAt.Valid, tc.name)
			assert.WithinDuration(t, now, a.RespondedAt.Time, time.Second, tc.name)
		}
	}
}

func TestAssignmentRepository_Integration_GetByRequestID(t *testing.T) {
	cleanupTables(t, testPool)
	repo := NewAssignmentRepository(testPool)
	requestID := seedRequest(t, testPool, constants.StatusReceived)

	first, err := repo.Create(context.Background(), requestID, 10)
	require.NoError(t, err)
	err = WithTx(context.Background(), testPool, func(tx pgx.Tx) error {
		_, txErr := repo.ResolveInTx(context.Background(), tx, first.ID, constants.AssignmentExpired, time.Now())
		return txErr
	})
	require.NoError(t, err)
	backdateAssignment(t, first.ID, time.Now().Add(-time.Hour))

	second, err := repo.Create(context.Background(), requestID, 11)
	require.NoError(t, err)

	assignments, err := repo.GetByRequestID(context.Background(), requestID)
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	assert.Equal(t, second.ID, assignments[0].ID, "Свежее назначение должно идти первым")
	assert.Equal(t, first.ID, assignments[1].ID)
}
