package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"repair-system/internal/controllers"
	"repair-system/internal/repositories"
	"repair-system/internal/services"
	"repair-system/pkg/config"
	"repair-system/pkg/outbox"
)

// InitRouter собирает репозитории, сервисы и контроллеры и вешает роуты.
func InitRouter(e *echo.Echo, dbConn *pgxpool.Pool, redisClient *redis.Client, cfg *config.Config, logger *zap.Logger) {
	requestRepo := repositories.NewRequestRepository(dbConn)
	assignmentRepo := repositories.NewAssignmentRepository(dbConn)
	historyRepo := repositories.NewRequestHistoryRepository(dbConn)
	cacheRepo := repositories.NewRedisCacheRepository(redisClient)
	publisher := outbox.NewPublisher()

	requestService := services.NewRequestService(dbConn, requestRepo, cacheRepo, publisher, cfg.Redis.RequestCacheTTL, logger)
	assignmentService := services.NewAssignmentService(dbConn, assignmentRepo, requestRepo, logger)
	historyService := services.NewRequestHistoryService(historyRepo, logger)

	requestCtrl := controllers.NewRequestController(requestService, logger)
	assignmentCtrl := controllers.NewAssignmentController(assignmentService, logger)
	historyCtrl := controllers.NewRequestHistoryController(historyService, logger)

	apiGroup := e.Group("/api")

	apiGroup.POST("/requests", requestCtrl.CreateRequest)
	apiGroup.GET("/requests", requestCtrl.GetRequests)
	apiGroup.GET("/request/:id", requestCtrl.FindRequest)
	apiGroup.POST("/request/:id/transition", requestCtrl.TransitionRequest)

	apiGroup.POST("/request/:id/assign", assignmentCtrl.AssignEmployee)
	apiGroup.GET("/request/:id/assignments", assignmentCtrl.GetByRequestID)
	apiGroup.POST("/assignment/:id/respond", assignmentCtrl.RespondToAssignment)

	apiGroup.GET("/request/:id/history", historyCtrl.GetTimeline)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
