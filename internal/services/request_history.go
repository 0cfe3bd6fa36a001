package services

import (
	"context"

	"go.uber.org/zap"

	"repair-system/internal/dto"
	"repair-system/internal/repositories"
)

type RequestHistoryServiceInterface interface {
	GetTimelineByRequestID(ctx context.Context, requestID uint64) ([]dto.RequestLogDTO, error)
}

type RequestHistoryService struct {
	repo   repositories.RequestHistoryRepositoryInterface
	logger *zap.Logger
}

func NewRequestHistoryService(repo repositories.RequestHistoryRepositoryInterface, logger *zap.Logger) RequestHistoryServiceInterface {
	return &RequestHistoryService{repo: repo, logger: logger}
}

func (s *RequestHistoryService) GetTimelineByRequestID(ctx context.Context, requestID uint64) ([]dto.RequestLogDTO, error) {
	entries, err := s.repo.FindByRequestID(ctx, requestID)
	if err != nil {
		s.logger.Error("Ошибка получения журнала заявки", zap.Uint64("requestID", requestID), zap.Error(err))
		return nil, err
	}

	timeline := make([]dto.RequestLogDTO, 0, len(entries))
	for _, e := range entries {
		timeline = append(timeline, dto.RequestLogDTO{
			ID:        e.ID,
			RequestID: e.RequestID,
			ChangedBy: e.ChangedBy,
			OldStatus: e.OldStatus.Ptr(),
			NewStatus: e.NewStatus,
			ChangedAt: e.ChangedAt.Local().Format("2006-01-02 15:04:05"),
			Notes:     e.Notes.Ptr(),
		})
	}
	return timeline, nil
}
