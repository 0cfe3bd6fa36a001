package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	expiredOnce    sync.Once
	expiredCounter prometheus.Counter
)

func expiredMetric() prometheus.Counter {
	expiredOnce.Do(func() {
		expiredCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assignment_sweeper_expired_total",
			Help: "Назначения, закрытые свипером по таймауту.",
		})
		prometheus.MustRegister(expiredCounter)
	})
	return expiredCounter
}

// expirer - кусок репозитория назначений, нужный свиперу.
type expirer interface {
	ExpireStalePending(ctx context.Context, cutoff time.Time, now time.Time) (int64, error)
}

// AssignmentSweeper - фоновый процесс, который по фиксированному периоду
// закрывает просроченные PENDING назначения. Один глобальный экземпляр;
// проходы не накладываются друг на друга - следующий тик ждет окончания
// предыдущего, а сам bulk-update условный и идемпотентный, так что даже
// повторный запуск по тому же окну безопасен.
type AssignmentSweeper struct {
	repo        expirer
	interval    time.Duration
	ttl         time.Duration
	tickTimeout time.Duration
	logger      *zap.Logger
	expired     prometheus.Counter
	now         func() time.Time
}

func NewAssignmentSweeper(repo expirer, interval, ttl, tickTimeout time.Duration, logger *zap.Logger) *AssignmentSweeper {
	return &AssignmentSweeper{
		repo:        repo,
		interval:    interval,
		ttl:         ttl,
		tickTimeout: tickTimeout,
		logger:      logger,
		expired:     expiredMetric(),
		now:         time.Now,
	}
}

// Run крутит цикл до отмены контекста. Начатый bulk-update не прерывается
// посреди записи: отмена проверяется между тиками, а сам проход живет
// со своим таймаутом.
func (s *AssignmentSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Свипер назначений запущен",
		zap.Duration("interval", s.interval),
		zap.Duration("ttl", s.ttl))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Свипер назначений остановлен")
			return ctx.Err()
		case <-ticker.C:
		}

		if _, err := s.SweepOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			// Состояние прохода не переносится между тиками: следующий тик
			// заново выберет все просроченные строки по текущим меткам времени.
			s.logger.Warn("Проход свипера завершился ошибкой", zap.Error(err))
		}
	}
}

// SweepOnce - один проход: единый условный UPDATE всех PENDING назначений
// старше now-ttl. Возвращает число закрытых назначений.
func (s *AssignmentSweeper) SweepOnce(ctx context.Context) (int64, error) {
	tickCtx, cancel := context.WithTimeout(ctx, s.tickTimeout)
	defer cancel()

	now := s.now().UTC()
	count, err := s.repo.ExpireStalePending(tickCtx, now.Add(-s.ttl), now)
	if err != nil {
		return 0, err
	}

	if count > 0 {
		s.expired.Add(float64(count))
		s.logger.Info("Просроченные назначения закрыты", zap.Int64("count", count))
	}
	return count, nil
}
