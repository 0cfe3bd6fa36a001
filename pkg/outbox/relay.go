package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Relay опрашивает outbox по тикеру и доставляет закоммиченные события
// диспетчеру. FOR UPDATE SKIP LOCKED разводит только одновременные выборки:
// после коммита claim строка снова видна другим экземплярам, так что до ack
// возможна повторная доставка. Гарантия - at-least-once, дубликаты гасит
// идемпотентность подписчиков по event_id.
type Relay struct {
	pool       *pgxpool.Pool
	dispatcher Dispatcher
	opts       RelayOptions
	logger     *zap.Logger
	m          *metrics
}

func NewRelay(pool *pgxpool.Pool, dispatcher Dispatcher, logger *zap.Logger, opts RelayOptions) (*Relay, error) {
	if pool == nil {
		return nil, fmt.Errorf("outbox: pool обязателен")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("outbox: dispatcher обязателен")
	}

	opts.setDefaults()

	return &Relay{
		pool:       pool,
		dispatcher: dispatcher,
		opts:       opts,
		logger:     logger,
		m:          getMetrics(),
	}, nil
}

func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if err := r.processOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			r.logger.Warn("outbox: проход доставки завершился ошибкой", zap.Error(err))
		}
	}
}

func (r *Relay) processOnce(ctx context.Context) error {
	claimed, err := r.claim(ctx)
	if err != nil {
		return err
	}

	for _, msg := range claimed {
		dispatchCtx, cancel := context.WithTimeout(ctx, r.opts.DispatchTimeout)
		err := r.dispatcher.Dispatch(dispatchCtx, msg)
		cancel()

		if err == nil {
			r.m.dispatchTotal.WithLabelValues(msg.Topic, "success").Inc()
			if ackErr := r.ack(ctx, msg.ID); ackErr != nil {
				r.logger.Warn("outbox: не удалось подтвердить доставку",
					zap.Uint64("id", msg.ID), zap.Error(ackErr))
			}
			continue
		}

		r.m.dispatchTotal.WithLabelValues(msg.Topic, "failure").Inc()
		lastErr := err.Error()
		if len(lastErr) > r.opts.LastErrorMaxLen {
			lastErr = lastErr[:r.opts.LastErrorMaxLen]
		}

		if msg.Attempts >= r.opts.MaxAttempts {
			// Исчерпали попытки: событие остается в таблице с dead_at -
			// это и есть видимая оператору dead-letter запись.
			r.m.deadTotal.WithLabelValues(msg.Topic).Inc()
			r.logger.Error("outbox: событие переведено в dead-letter",
				zap.Uint64("id", msg.ID),
				zap.String("topic", msg.Topic),
				zap.String("event_id", msg.EventID.String()),
				zap.Int("attempts", msg.Attempts),
				zap.String("last_error", lastErr))
			if deadErr := r.dead(ctx, msg.ID, lastErr); deadErr != nil {
				r.logger.Warn("outbox: не удалось пометить dead-letter",
					zap.Uint64("id", msg.ID), zap.Error(deadErr))
			}
			continue
		}

		next := time.Now().Add(backoff(msg.Attempts, r.opts.MaxBackoff) + jitter(r.opts.Rand, r.opts.JitterMax))
		if nackErr := r.nack(ctx, msg.ID, lastErr, next); nackErr != nil {
			r.logger.Warn("outbox: не удалось запланировать повтор",
				zap.Uint64("id", msg.ID), zap.Error(nackErr))
		}
	}

	if err := r.observePending(ctx); err != nil {
		r.logger.Debug("outbox: не удалось снять глубину очереди", zap.Error(err))
	}
	return nil
}

// claim забирает пачку недоставленных сообщений и помечает их взятыми.
func (r *Relay) claim(ctx context.Context) (msgs []Message, err error) {
	var tx pgx.Tx
	tx, err = r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("outbox: не удалось начать транзакцию выборки: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	query := `
		SELECT id, event_id, request_id, topic, payload, occurred_at, attempts
		FROM ` + tableName + `
		WHERE published_at IS NULL
		  AND dead_at IS NULL
		  AND available_at <= NOW()
		ORDER BY available_at, id
		LIMIT $1
		FOR UPDATE SKIP LOCKED`

	rows, err := tx.Query(ctx, query, r.opts.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("outbox: ошибка выборки: %w", err)
	}

	var ids []uint64
	for rows.Next() {
		var m Message
		if err = rows.Scan(&m.ID, &m.EventID, &m.RequestID, &m.Topic, &m.Payload, &m.OccurredAt, &m.Attempts); err != nil {
			rows.Close()
			return nil, fmt.Errorf("outbox: ошибка сканирования: %w", err)
		}
		m.Attempts++
		msgs = append(msgs, m)
		ids = append(ids, m.ID)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("outbox: ошибка чтения выборки: %w", err)
	}

	if len(ids) > 0 {
		if _, err = tx.Exec(ctx, `UPDATE `+tableName+` SET locked_at = NOW(), attempts = attempts + 1 WHERE id = ANY($1)`, ids); err != nil {
			return nil, fmt.Errorf("outbox: ошибка пометки выборки: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("outbox: ошибка коммита выборки: %w", err)
	}
	return msgs, nil
}

func (r *Relay) ack(ctx context.Context, id uint64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE `+tableName+`
		SET published_at = NOW(), locked_at = NULL, last_error = NULL
		WHERE id = $1 AND published_at IS NULL`, id)
	return err
}

func (r *Relay) nack(ctx context.Context, id uint64, lastError string, nextAvailable time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE `+tableName+`
		SET locked_at = NULL, last_error = $2, available_at = $3
		WHERE id = $1 AND published_at IS NULL`, id, lastError, nextAvailable)
	return err
}

func (r *Relay) dead(ctx context.Context, id uint64, lastError string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE `+tableName+`
		SET locked_at = NULL, last_error = $2, dead_at = NOW()
		WHERE id = $1 AND published_at IS NULL`, id, lastError)
	return err
}

func (r *Relay) observePending(ctx context.Context) error {
	var pending int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+tableName+` WHERE published_at IS NULL AND dead_at IS NULL`).Scan(&pending); err != nil {
		return err
	}
	r.m.pending.Set(float64(pending))
	return nil
}
