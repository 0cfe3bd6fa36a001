package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"repair-system/internal/services"
	"repair-system/pkg/api"
	apperrors "repair-system/pkg/errors"
)

type RequestHistoryController struct {
	historyService services.RequestHistoryServiceInterface
	logger         *zap.Logger
}

func NewRequestHistoryController(historyService services.RequestHistoryServiceInterface, logger *zap.Logger) *RequestHistoryController {
	return &RequestHistoryController{historyService: historyService, logger: logger}
}

func (c *RequestHistoryController) GetTimeline(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	requestID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return api.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверный ID заявки", err))
	}

	timeline, err := c.historyService.GetTimelineByRequestID(reqCtx, requestID)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Журнал заявки успешно получен", timeline)
}
