package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"repair-system/internal/dto"
	"repair-system/internal/repositories"
	"repair-system/pkg/constants"
	apperrors "repair-system/pkg/errors"
)

func newTestAssignmentService() AssignmentServiceInterface {
	return NewAssignmentService(
		testPool,
		repositories.NewAssignmentRepository(testPool),
		repositories.NewRequestRepository(testPool),
		zap.NewNop(),
	)
}

func seedServiceRequest(t *testing.T) uint64 {
	t.Helper()
	svc := newTestRequestService(newMemoryCache())
	id, err := svc.CreateRequest(context.Background(), dto.CreateRequestDTO{CustomerRef: 1, Actor: "operator"})
	require.NoError(t, err)
	return id
}

func TestAssignmentService_Integration_AcceptLocksEmployee(t *testing.T) {
	require.NotNil(t, testPool, "testPool не инициализирован")
	cleanupTables(t, testPool)
	svc := newTestAssignmentService()
	requestID := seedServiceRequest(t)

	assignment, err := svc.AssignEmployee(context.Background(), requestID, 7)
	require.NoError(t, err)
	assert.Equal(t, constants.AssignmentPending, assignment.State)

	resolved, err := svc.RespondToAssignment(context.Background(), assignment.ID, true)
	require.NoError(t, err)
	assert.Equal(t, constants.AssignmentAccepted, resolved.State)
	require.True(t, resolved.RespondedAt.Valid)

	// Принятие закрепляет сотрудника за заявкой в той же транзакции.
	req, err := repositories.NewRequestRepository(testPool).FindRequest(context.Background(), requestID)
	require.NoError(t, err)
	require.True(t, req.EmployeeRef.Valid)
	assert.Equal(t, uint64(7), req.EmployeeRef.Uint64)
}

func TestAssignmentService_Integration_DeclineFreesRequest(t *testing.T) {
	cleanupTables(t, testPool)
	svc := newTestAssignmentService()
	requestID := seedServiceRequest(t)

	assignment, err := svc.AssignEmployee(context.Background(), requestID, 7)
	require.NoError(t, err)

	resolved, err := svc.RespondToAssignment(context.Background(), assignment.ID, false)
	require.NoError(t, err)
	assert.Equal(t, constants.AssignmentExpired, resolved.State, "Отказ моделируется как немедленное EXPIRED")

	// Сотрудник не закреплен, заявка свободна для нового предложения.
	req, err := repositories.NewRequestRepository(testPool).FindRequest(context.Background(), requestID)
	require.NoError(t, err)
	assert.False(t, req.EmployeeRef.Valid)

	next, err := svc.AssignEmployee(context.Background(), requestID, 8)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), next.EmployeeID)
}

func TestAssignmentService_Integration_AssignRejections(t *testing.T) {
	cleanupTables(t, testPool)
	svc := newTestAssignmentService()
	requestID := seedServiceRequest(t)

	_, err := svc.AssignEmployee(context.Background(), requestID, 7)
	require.NoError(t, err)

	t.Run("already pending", func(t *testing.T) {
		_, err := svc.AssignEmployee(context.Background(), requestID, 8)
		assert.ErrorIs(t, err, apperrors.ErrAlreadyPending)
	})

	t.Run("missing request", func(t *testing.T) {
		_, err := svc.AssignEmployee(context.Background(), 99999, 7)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestAssignmentService_Integration_RespondToResolved(t *testing.T) {
	cleanupTables(t, testPool)
	svc := newTestAssignmentService()
	requestID := seedServiceRequest(t)

	assignment, err := svc.AssignEmployee(context.Background(), requestID, 7)
	require.NoError(t, err)

	_, err = svc.RespondToAssignment(context.Background(), assignment.ID, true)
	require.NoError(t, err)

	// Повторный ответ по закрытому назначению отклоняется.
	_, err = svc.RespondToAssignment(context.Background(), assignment.ID, false)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyResolved)

	_, err = svc.RespondToAssignment(context.Background(), 99999, true)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
