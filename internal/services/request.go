package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"repair-system/internal/dto"
	"repair-system/internal/entities"
	"repair-system/internal/events"
	"repair-system/internal/repositories"
	"repair-system/pkg/constants"
	apperrors "repair-system/pkg/errors"
	"repair-system/pkg/outbox"
)

type RequestServiceInterface interface {
	CreateRequest(ctx context.Context, payload dto.CreateRequestDTO) (uint64, error)
	TransitionRequest(ctx context.Context, requestID uint64, targetStatus string, actor string, notes *string) (*entities.Request, error)
	FindRequest(ctx context.Context, id uint64) (*entities.Request, error)
	GetRequests(ctx context.Context, limit uint64, offset uint64) ([]entities.Request, uint64, error)
}

// RequestService владеет каноническим статусом заявки. Любая смена статуса
// проходит через TransitionRequest: валидация по таблице переходов, запись
// и постановка события в outbox - всё в одной транзакции.
type RequestService struct {
	pool        *pgxpool.Pool
	requestRepo repositories.RequestRepositoryInterface
	cacheRepo   repositories.CacheRepositoryInterface
	publisher   outbox.Publisher
	cacheTTL    time.Duration
	logger      *zap.Logger
}

func NewRequestService(
	pool *pgxpool.Pool,
	requestRepo repositories.RequestRepositoryInterface,
	cacheRepo repositories.CacheRepositoryInterface,
	publisher outbox.Publisher,
	cacheTTL time.Duration,
	logger *zap.Logger,
) RequestServiceInterface {
	return &RequestService{
		pool:        pool,
		requestRepo: requestRepo,
		cacheRepo:   cacheRepo,
		publisher:   publisher,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

func requestCacheKey(id uint64) string {
	return fmt.Sprintf("request:%d", id)
}

// CreateRequest создает заявку в статусе RECEIVED и кладет в outbox событие
// создания (old_status пустой) - с него начинается цепочка журнала аудита.
func (s *RequestService) CreateRequest(ctx context.Context, payload dto.CreateRequestDTO) (uint64, error) {
	req := &entities.Request{
		Status:      constants.StatusReceived,
		CustomerRef: payload.CustomerRef,
		ProductRef:  null.Uint64FromPtr(payload.ProductRef),
	}

	var newID uint64
	err := repositories.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		id, err := s.requestRepo.CreateInTx(ctx, tx, req)
		if err != nil {
			return err
		}
		newID = id
		return s.enqueueTransition(ctx, tx, id, nil, constants.StatusReceived, payload.Actor, payload.Notes)
	})
	if err != nil {
		s.logger.Error("Ошибка создания заявки", zap.Error(err))
		return 0, err
	}

	s.logger.Info("Заявка создана", zap.Uint64("requestID", newID))
	return newID, nil
}

// TransitionRequest переводит заявку в следующий статус.
// Допустим только непосредственный преемник текущего статуса; повторный
// вызов с тем же статусом - ошибка, а не тихий no-op. Строка заявки
// блокируется на время транзакции, так что два конкурентных перехода
// по одной заявке сериализуются.
func (s *RequestService) TransitionRequest(ctx context.Context, requestID uint64, targetStatus string, actor string, notes *string) (*entities.Request, error) {
	if !constants.IsKnownStatus(targetStatus) {
		return nil, apperrors.NewInvalidInputError("неизвестный статус: %s", targetStatus)
	}

	var updated *entities.Request
	err := repositories.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		req, err := s.requestRepo.FindForUpdateInTx(ctx, tx, requestID)
		if err != nil {
			return err
		}

		if !constants.CanTransition(req.Status, targetStatus) {
			return fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidTransition, req.Status, targetStatus)
		}

		if err := s.requestRepo.UpdateStatusInTx(ctx, tx, requestID, targetStatus); err != nil {
			return err
		}

		oldStatus := req.Status
		if err := s.enqueueTransition(ctx, tx, requestID, &oldStatus, targetStatus, actor, notes); err != nil {
			return err
		}

		req.Status = targetStatus
		updated = req
		return nil
	})
	if err != nil {
		s.logger.Warn("Переход статуса отклонен",
			zap.Uint64("requestID", requestID),
			zap.String("target", targetStatus),
			zap.Error(err))
		return nil, err
	}

	// Кэш инвалидируем только после коммита.
	if cacheErr := s.cacheRepo.Del(ctx, requestCacheKey(requestID)); cacheErr != nil {
		s.logger.Warn("Не удалось инвалидировать кэш заявки", zap.Uint64("requestID", requestID), zap.Error(cacheErr))
	}

	s.logger.Info("Статус заявки изменен",
		zap.Uint64("requestID", requestID),
		zap.String("newStatus", targetStatus),
		zap.String("actor", actor))
	return updated, nil
}

// enqueueTransition кладет событие перехода в outbox в рамках текущей
// транзакции: при откате событие не увидит никто.
func (s *RequestService) enqueueTransition(ctx context.Context, tx pgx.Tx, requestID uint64, oldStatus *string, newStatus, actor string, notes *string) error {
	event := events.RequestStatusChangedEvent{
		EventID:    uuid.New(),
		RequestID:  requestID,
		OldStatus:  oldStatus,
		NewStatus:  newStatus,
		Actor:      actor,
		Notes:      notes,
		OccurredAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("не удалось сериализовать событие перехода: %w", err)
	}

	return s.publisher.Enqueue(ctx, tx, outbox.Message{
		EventID:    event.EventID,
		RequestID:  requestID,
		Topic:      event.Name(),
		Payload:    payload,
		OccurredAt: event.OccurredAt,
	})
}

func (s *RequestService) FindRequest(ctx context.Context, id uint64) (*entities.Request, error) {
	key := requestCacheKey(id)
	if cached, err := s.cacheRepo.Get(ctx, key); err == nil && cached != "" {
		var req entities.Request
		if err := json.Unmarshal([]byte(cached), &req); err == nil {
			return &req, nil
		}
	}

	req, err := s.requestRepo.FindRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(req); err == nil {
		if cacheErr := s.cacheRepo.Set(ctx, key, string(raw), s.cacheTTL); cacheErr != nil {
			s.logger.Debug("Не удалось закэшировать заявку", zap.Uint64("id", id), zap.Error(cacheErr))
		}
	}
	return req, nil
}

func (s *RequestService) GetRequests(ctx context.Context, limit uint64, offset uint64) ([]entities.Request, uint64, error) {
	return s.requestRepo.GetRequests(ctx, limit, offset)
}
