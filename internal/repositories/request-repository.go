package repositories

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"repair-system/internal/entities"
	apperrors "repair-system/pkg/errors"
)

type RequestRepositoryInterface interface {
	CreateInTx(ctx context.Context, tx pgx.Tx, req *entities.Request) (uint64, error)
	FindForUpdateInTx(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Request, error)
	UpdateStatusInTx(ctx context.Context, tx pgx.Tx, id uint64, status string) error
	SetEmployeeInTx(ctx context.Context, tx pgx.Tx, id uint64, employeeID uint64) error
	FindRequest(ctx context.Context, id uint64) (*entities.Request, error)
	GetRequests(ctx context.Context, limit uint64, offset uint64) ([]entities.Request, uint64, error)
}

type RequestRepository struct {
	storage *pgxpool.Pool
}

func NewRequestRepository(storage *pgxpool.Pool) RequestRepositoryInterface {
	return &RequestRepository{storage: storage}
}

const requestColumns = `id, status, customer_ref, employee_ref, product_ref, created_at, updated_at`

func scanRequest(row pgx.Row) (*entities.Request, error) {
	var r entities.Request
	err := row.Scan(&r.ID, &r.Status, &r.CustomerRef, &r.EmployeeRef, &r.ProductRef, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования заявки: %w", err)
	}
	return &r, nil
}

func (r *RequestRepository) CreateInTx(ctx context.Context, tx pgx.Tx, req *entities.Request) (uint64, error) {
	query := `
		INSERT INTO requests (status, customer_ref, employee_ref, product_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW()) RETURNING id`

	var newID uint64
	err := tx.QueryRow(ctx, query, req.Status, req.CustomerRef, req.EmployeeRef, req.ProductRef).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания заявки: %w", err)
	}
	return newID, nil
}

// FindForUpdateInTx читает заявку с блокировкой строки (FOR UPDATE):
// конкурентные переходы по одной и той же заявке сериализуются на уровне БД.
func (r *RequestRepository) FindForUpdateInTx(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1 FOR UPDATE`
	return scanRequest(tx.QueryRow(ctx, query, id))
}

func (r *RequestRepository) UpdateStatusInTx(ctx context.Context, tx pgx.Tx, id uint64, status string) error {
	tag, err := tx.Exec(ctx, `UPDATE requests SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса заявки %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *RequestRepository) SetEmployeeInTx(ctx context.Context, tx pgx.Tx, id uint64, employeeID uint64) error {
	tag, err := tx.Exec(ctx, `UPDATE requests SET employee_ref = $1, updated_at = NOW() WHERE id = $2`, employeeID, id)
	if err != nil {
		return fmt.Errorf("ошибка назначения исполнителя на заявку %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *RequestRepository) FindRequest(ctx context.Context, id uint64) (*entities.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`
	return scanRequest(r.storage.QueryRow(ctx, query, id))
}

func (r *RequestRepository) GetRequests(ctx context.Context, limit uint64, offset uint64) ([]entities.Request, uint64, error) {
	var total uint64
	if err := r.storage.QueryRow(ctx, `SELECT COUNT(*) FROM requests`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчета заявок: %w", err)
	}

	query, args, err := sq.Select("id", "status", "customer_ref", "employee_ref", "product_ref", "created_at", "updated_at").
		From("requests").
		OrderBy("created_at DESC").
		Limit(limit).
		Offset(offset).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка построения запроса списка заявок: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var requests []entities.Request
	for rows.Next() {
		var req entities.Request
		if err := rows.Scan(&req.ID, &req.Status, &req.CustomerRef, &req.EmployeeRef, &req.ProductRef, &req.CreatedAt, &req.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования заявки: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, total, rows.Err()
}
