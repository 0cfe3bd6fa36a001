package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeExpirer записывает параметры вызова и отдает заранее заданный результат.
type fakeExpirer struct {
	calls  atomic.Int64
	cutoff time.Time
	now    time.Time
	count  int64
	err    error
}

func (f *fakeExpirer) ExpireStalePending(_ context.Context, cutoff time.Time, now time.Time) (int64, error) {
	f.calls.Add(1)
	f.cutoff = cutoff
	f.now = now
	return f.count, f.err
}

func TestAssignmentSweeper_SweepOnce(t *testing.T) {
	fake := &fakeExpirer{count: 3}
	sweeper := NewAssignmentSweeper(fake, time.Minute, 48*time.Hour, time.Minute, zap.NewNop())

	frozen := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	sweeper.now = func() time.Time { return frozen }

	count, err := sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
	assert.EqualValues(t, 1, fake.calls.Load())

	// Порог просрочки - ровно now минус TTL.
	assert.Equal(t, frozen.Add(-48*time.Hour), fake.cutoff)
	assert.Equal(t, frozen, fake.now)
}

func TestAssignmentSweeper_SweepOnceError(t *testing.T) {
	fake := &fakeExpirer{err: errors.New("БД недоступна")}
	sweeper := NewAssignmentSweeper(fake, time.Minute, 48*time.Hour, time.Minute, zap.NewNop())

	_, err := sweeper.SweepOnce(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "БД недоступна")
}

func TestAssignmentSweeper_RunStopsOnCancel(t *testing.T) {
	fake := &fakeExpirer{count: 1}
	sweeper := NewAssignmentSweeper(fake, 10*time.Millisecond, 48*time.Hour, time.Second, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()

	// Даем циклу сделать хотя бы пару проходов.
	require.Eventually(t, func() bool { return fake.calls.Load() >= 2 },
		time.Second, 5*time.Millisecond, "Свипер должен срабатывать по тикеру")

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Свипер не остановился после отмены контекста")
	}
}

func TestAssignmentSweeper_RunSurvivesErrors(t *testing.T) {
	fake := &fakeExpirer{err: errors.New("временный сбой")}
	sweeper := NewAssignmentSweeper(fake, 10*time.Millisecond, 48*time.Hour, time.Second, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()

	// Ошибка прохода не роняет цикл: следующий тик пробует заново.
	require.Eventually(t, func() bool { return fake.calls.Load() >= 3 },
		time.Second, 5*time.Millisecond, "Цикл должен пережить ошибки проходов")

	cancel()
	<-done
}
