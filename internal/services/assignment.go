package services

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"repair-system/internal/entities"
	"repair-system/internal/repositories"
	"repair-system/pkg/constants"
	apperrors "repair-system/pkg/errors"
)

type AssignmentServiceInterface interface {
	AssignEmployee(ctx context.Context, requestID uint64, employeeID uint64) (*entities.AssignmentLog, error)
	RespondToAssignment(ctx context.Context, assignmentID uint64, accepted bool) (*entities.AssignmentLog, error)
	GetByRequestID(ctx context.Context, requestID uint64) ([]entities.AssignmentLog, error)
}

// AssignmentService управляет передачей заявки сотруднику: предложение
// висит в PENDING, пока сотрудник не ответит или пока его не закроет
// фоновый процесс по таймауту.
type AssignmentService struct {
	pool           *pgxpool.Pool
	assignmentRepo repositories.AssignmentRepositoryInterface
	requestRepo    repositories.RequestRepositoryInterface
	logger         *zap.Logger
}

func NewAssignmentService(
	pool *pgxpool.Pool,
	assignmentRepo repositories.AssignmentRepositoryInterface,
	requestRepo repositories.RequestRepositoryInterface,
	logger *zap.Logger,
) AssignmentServiceInterface {
	return &AssignmentService{
		pool:           pool,
		assignmentRepo: assignmentRepo,
		requestRepo:    requestRepo,
		logger:         logger,
	}
}

// AssignEmployee предлагает заявку сотруднику. На заявку может быть только
// одно открытое предложение - повторная попытка вернет ErrAlreadyPending.
func (s *AssignmentService) AssignEmployee(ctx context.Context, requestID uint64, employeeID uint64) (*entities.AssignmentLog, error) {
	if _, err := s.requestRepo.FindRequest(ctx, requestID); err != nil {
		return nil, err
	}

	assignment, err := s.assignmentRepo.Create(ctx, requestID, employeeID)
	if err != nil {
		s.logger.Warn("Не удалось создать назначение",
			zap.Uint64("requestID", requestID),
			zap.Uint64("employeeID", employeeID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Заявка предложена сотруднику",
		zap.Uint64("assignmentID", assignment.ID),
		zap.Uint64("requestID", requestID),
		zap.Uint64("employeeID", employeeID))
	return assignment, nil
}

// RespondToAssignment - ответ сотрудника на предложение. Принятие закрывает
// назначение как ACCEPTED и закрепляет сотрудника за заявкой; отказ
// моделируется как немедленное EXPIRED, освобождая заявку для переназначения.
// Если назначение уже закрыто (в том числе фоновым процессом мгновением
// раньше) - ErrAlreadyResolved.
func (s *AssignmentService) RespondToAssignment(ctx context.Context, assignmentID uint64, accepted bool) (*entities.AssignmentLog, error) {
	assignment, err := s.assignmentRepo.FindAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if constants.IsTerminalAssignmentState(assignment.State) {
		return nil, apperrors.ErrAlreadyResolved
	}

	newState := constants.AssignmentExpired
	if accepted {
		newState = constants.AssignmentAccepted
	}
	now := time.Now().UTC()

	err = repositories.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := s.assignmentRepo.ResolveInTx(ctx, tx, assignmentID, newState, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			// CAS не сработал: состояние уже не PENDING.
			return apperrors.ErrAlreadyResolved
		}
		if accepted {
			return s.requestRepo.SetEmployeeInTx(ctx, tx, assignment.RequestID, assignment.EmployeeID)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("Ответ на назначение отклонен",
			zap.Uint64("assignmentID", assignmentID),
			zap.Bool("accepted", accepted),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Назначение закрыто",
		zap.Uint64("assignmentID", assignmentID),
		zap.String("state", newState))

	return s.assignmentRepo.FindAssignment(ctx, assignmentID)
}

func (s *AssignmentService) GetByRequestID(ctx context.Context, requestID uint64) ([]entities.AssignmentLog, error) {
	return s.assignmentRepo.GetByRequestID(ctx, requestID)
}
