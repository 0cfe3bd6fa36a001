package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"repair-system/internal/entities"
	"repair-system/pkg/constants"
	apperrors "repair-system/pkg/errors"
)

type AssignmentRepositoryInterface interface {
	Create(ctx context.Context, requestID uint64, employeeID uint64) (*entities.AssignmentLog, error)
	FindAssignment(ctx context.Context, id uint64) (*entities.AssignmentLog, error)
	ResolveInTx(ctx context.Context, tx pgx.Tx, id uint64, state string, respondedAt time.Time) (int64, error)
	ExpireStalePending(ctx context.Context, cutoff time.Time, now time.Time) (int64, error)
	GetByRequestID(ctx context.Context, requestID uint64) ([]entities.AssignmentLog, error)
}

type AssignmentRepository struct {
	storage *pgxpool.Pool
}

func NewAssignmentRepository(storage *pgxpool.Pool) AssignmentRepositoryInterface {
	return &AssignmentRepository{storage: storage}
}

const assignmentColumns = `id, request_id, employee_id, state, assigned_at, responded_at`

// Create создает назначение в состоянии PENDING. Инвариант "не более одного
// PENDING на заявку" держит частичный уникальный индекс, нарушение
// транслируется в ErrAlreadyPending.
func (r *AssignmentRepository) Create(ctx context.Context, requestID uint64, employeeID uint64) (*entities.AssignmentLog, error) {
	query := `
		INSERT INTO assignment_log (request_id, employee_id, state, assigned_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING ` + assignmentColumns

	var a entities.AssignmentLog
	err := r.storage.QueryRow(ctx, query, requestID, employeeID, constants.AssignmentPending).
		Scan(&a.ID, &a.RequestID, &a.EmployeeID, &a.State, &a.AssignedAt, &a.RespondedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" {
				return nil, apperrors.ErrAlreadyPending
			}
			if pgErr.Code == "23503" {
				return nil, apperrors.ErrNotFound
			}
		}
		return nil, fmt.Errorf("ошибка создания назначения: %w", err)
	}
	return &a, nil
}

func (r *AssignmentRepository) FindAssignment(ctx context.Context, id uint64) (*entities.AssignmentLog, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignment_log WHERE id = $1`

	var a entities.AssignmentLog
	err := r.storage.QueryRow(ctx, query, id).
		Scan(&a.ID, &a.RequestID, &a.EmployeeID, &a.State, &a.AssignedAt, &a.RespondedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка при поиске назначения %d: %w", id, err)
	}
	return &a, nil
}

// ResolveInTx переводит назначение в терминальное состояние условным UPDATE:
// срабатывает только если строка все еще PENDING (compare-and-swap, без окна
// между чтением и записью). Возвращает число затронутых строк - ноль значит,
// что гонку выиграла другая запись.
func (r *AssignmentRepository) ResolveInTx(ctx context.Context, tx pgx.Tx, id uint64, state string, respondedAt time.Time) (int64, error) {
	query := `
		UPDATE assignment_log
		SET state = $1, responded_at = $2
		WHERE id = $3 AND state = $4`

	tag, err := tx.Exec(ctx, query, state, respondedAt, id, constants.AssignmentPending)
	if err != nil {
		return 0, fmt.Errorf("ошибка закрытия назначения %d: %w", id, err)
	}
	return tag.RowsAffected(), nil
}

// ExpireStalePending - один bulk-update за проход: все PENDING старше cutoff
// переводятся в EXPIRED. Условие по state делает операцию идемпотентной
// и безопасной при гонке с одновременным accept.
func (r *AssignmentRepository) ExpireStalePending(ctx context.Context, cutoff time.Time, now time.Time) (int64, error) {
	query, args, err := sq.Update("assignment_log").
		Set("state", constants.AssignmentExpired).
		Set("responded_at", now).
		Where(sq.Eq{"state": constants.AssignmentPending}).
		Where(sq.Lt{"assigned_at": cutoff}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("ошибка построения запроса закрытия просроченных назначений: %w", err)
	}

	tag, err := r.storage.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("ошибка закрытия просроченных назначений: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *AssignmentRepository) GetByRequestID(ctx context.Context, requestID uint64) ([]entities.AssignmentLog, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignment_log WHERE request_id = $1 ORDER BY assigned_at DESC, id DESC`

	rows, err := r.storage.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []entities.AssignmentLog
	for rows.Next() {
		var a entities.AssignmentLog
		if err := rows.Scan(&a.ID, &a.RequestID, &a.EmployeeID, &a.State, &a.AssignedAt, &a.RespondedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования назначения: %w", err)
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}
