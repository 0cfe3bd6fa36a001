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

type AssignmentController struct {
	assignmentService services.AssignmentServiceInterface
	logger            *zap.Logger
}

func NewAssignmentController(assignmentService services.AssignmentServiceInterface, logger *zap.Logger) *AssignmentController {
	return &AssignmentController{assignmentService: assignmentService, logger: logger}
}

func toAssignmentDTO(a *entities.AssignmentLog) dto.AssignmentLogDTO {
	res := dto.AssignmentLogDTO{
		ID:         a.ID,
		RequestID:  a.RequestID,
		EmployeeID: a.EmployeeID,
		State:      a.State,
		AssignedAt: a.AssignedAt.Local().Format("2006-01-02 15:04:05"),
	}
	if a.RespondedAt.Valid {
		responded := a.RespondedAt.Time.Local().Format("2006-01-02 15:04:05")
		res.RespondedAt = &responded
	}
	return res
}

func (c *AssignmentController) AssignEmployee(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	requestID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return api.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверный ID заявки", err))
	}

	var payload dto.AssignRequestDTO
	if err := ctx.Bind(&payload); err != nil {
		return api.ErrorResponse(ctx, fmt.Errorf("ошибка данных в запросе: %w", apperrors.ErrBadRequest))
	}
	if err := ctx.Validate(&payload); err != nil {
		return api.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "ошибка валидации", err))
	}

	assignment, err := c.assignmentService.AssignEmployee(reqCtx, requestID, payload.EmployeeID)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusCreated, "Заявка успешно предложена сотруднику", toAssignmentDTO(assignment))
}

func (c *AssignmentController) RespondToAssignment(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	assignmentID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return api.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверный ID назначения", err))
	}

	var payload dto.RespondAssignmentDTO
	if err := ctx.Bind(&payload); err != nil {
		return api.ErrorResponse(ctx, fmt.Errorf("ошибка данных в запросе: %w", apperrors.ErrBadRequest))
	}
	if err := ctx.Validate(&payload); err != nil {
		return api.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "ошибка валидации", err))
	}

	assignment, err := c.assignmentService.RespondToAssignment(reqCtx, assignmentID, *payload.Accepted)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Ответ на назначение принят", toAssignmentDTO(assignment))
}

func (c *AssignmentController) GetByRequestID(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	requestID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return api.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверный ID заявки", err))
	}

	assignments, err := c.assignmentService.GetByRequestID(reqCtx, requestID)
	if err != nil {
		c.logger.Error("ошибка при получении назначений заявки", zap.Error(err))
		return api.ErrorResponse(ctx, err)
	}

	list := make([]dto.AssignmentLogDTO, 0, len(assignments))
	for i := range assignments {
		list = append(list, toAssignmentDTO(&assignments[i]))
	}
	return api.SuccessOne(ctx, http.StatusOK, "Назначения успешно получены", list)
}
