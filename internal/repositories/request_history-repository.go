package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"repair-system/internal/entities"
)

type RequestHistoryRepositoryInterface interface {
	Append(ctx context.Context, entry *entities.RequestLog) error
	FindByRequestID(ctx context.Context, requestID uint64) ([]entities.RequestLog, error)
}

type RequestHistoryRepository struct {
	storage *pgxpool.Pool
}

func NewRequestHistoryRepository(storage *pgxpool.Pool) RequestHistoryRepositoryInterface {
	return &RequestHistoryRepository{storage: storage}
}

// Append дописывает запись журнала. Повторная доставка того же события
// (тот же event_id) не создает дубликата - ON CONFLICT DO NOTHING.
func (r *RequestHistoryRepository) Append(ctx context.Context, entry *entities.RequestLog) error {
	query := `
		INSERT INTO request_log (request_id, changed_by, old_status, new_status, changed_at, notes, event_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id) DO NOTHING`

	_, err := r.storage.Exec(ctx, query,
		entry.RequestID, entry.ChangedBy, entry.OldStatus,
		entry.NewStatus, entry.ChangedAt, entry.Notes, entry.EventID)
	if err != nil {
		return fmt.Errorf("ошибка записи в журнал заявки %d: %w", entry.RequestID, err)
	}
	return nil
}

func (r *RequestHistoryRepository) FindByRequestID(ctx context.Context, requestID uint64) ([]entities.RequestLog, error) {
	query := `
		SELECT id, request_id, changed_by, old_status, new_status, changed_at, notes, event_id
		FROM request_log
		WHERE request_id = $1
		ORDER BY changed_at ASC, id ASC`

	rows, err := r.storage.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []entities.RequestLog
	for rows.Next() {
		var h entities.RequestLog
		if err := rows.Scan(&h.ID, &h.RequestID, &h.ChangedBy, &h.OldStatus, &h.NewStatus, &h.ChangedAt, &h.Notes, &h.EventID); err != nil {
			return nil, fmt.Errorf("ошибка сканирования журнала: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}
