package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"repair-system/internal/dto"
	"repair-system/internal/entities"
	"repair-system/internal/services"
	"repair-system/pkg/api"
	apperrors "repair-system/pkg/errors"
)

type RequestController struct {
	requestService services.RequestServiceInterface
	logger         *zap.Logger
}

func NewRequestController(requestService services.RequestServiceInterface, logger *zap.Logger) *RequestController {
	return &RequestController{requestService: requestService, logger: logger}
}

func toRequestDTO(req *entities.Request) dto.RequestResponseDTO {
	return dto.RequestResponseDTO{
		ID:          req.ID,
		Status:      req.Status,
		CustomerRef: req.CustomerRef,
		EmployeeRef: req.EmployeeRef.Ptr(),
		ProductRef:  req.ProductRef.Ptr(),
		CreatedAt:   req.CreatedAt.Local().Format("2006-01-02 15:04:05"),
		UpdatedAt:   req.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
	}
}

func (c *RequestController) CreateRequest(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	var payload dto.CreateRequestDTO
	if err := ctx.Bind(&payload); err != nil {
		return api.ErrorResponse(ctx, fmt.Errorf("ошибка данных в запросе: %w", apperrors.ErrBadRequest))
	}
	if err := ctx.Validate(&payload); err != nil {
		return api.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "ошибка валидации", err))
	}

	newID, err := c.requestService.CreateRequest(reqCtx, payload)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}

	return api.SuccessOne(ctx, http.StatusCreated, "Заявка успешно создана", map[string]uint64{"id": newID})
}

func (c *RequestController) GetRequests(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	limit, offset, page := parseListParams(ctx)
	requests, total, err := c.requestService.GetRequests(reqCtx, limit, offset)
	if err != nil {
		c.logger.Error("ошибка при получении списка заявок", zap.Error(err))
		return api.ErrorResponse(ctx, err)
	}

	list := make([]dto.RequestResponseDTO, 0, len(requests))
	for i := range requests {
		list = append(list, toRequestDTO(&requests[i]))
	}
	return api.SuccessList(ctx, "Заявки успешно получены", list, total, page, int(limit))
}

func (c *RequestController) FindRequest(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return api.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверный ID заявки", err))
	}

	req, err := c.requestService.FindRequest(reqCtx, id)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Заявка успешно найдена", toRequestDTO(req))
}

// TransitionRequest - ручка перевода заявки в следующий статус.
func (c *RequestController) TransitionRequest(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return api.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверный ID заявки", err))
	}

	var payload dto.TransitionRequestDTO
	if err := ctx.Bind(&payload); err != nil {
		return api.ErrorResponse(ctx, fmt.Errorf("ошибка данных в запросе: %w", apperrors.ErrBadRequest))
	}
	if err := ctx.Validate(&payload); err != nil {
		return api.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "ошибка валидации", err))
	}

	req, err := c.requestService.TransitionRequest(reqCtx, id, payload.TargetStatus, payload.Actor, payload.Notes)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Статус заявки успешно изменен", toRequestDTO(req))
}

func parseListParams(ctx echo.Context) (limit uint64, offset uint64, page int) {
	limit = 50
	if l, err := strconv.ParseUint(ctx.QueryParam("limit"), 10, 64); err == nil && l > 0 && l <= 500 {
		limit = l
	}
	page = 1
	if p, err := strconv.Atoi(ctx.QueryParam("page")); err == nil && p > 0 {
		page = p
	}
	offset = uint64(page-1) * limit
	return limit, offset, page
}
