package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"repair-system/internal/listeners"
	"repair-system/internal/repositories"
	"repair-system/internal/routes"
	"repair-system/internal/scheduler"
	"repair-system/migrations"
	"repair-system/pkg/config"
	"repair-system/pkg/database/postgresql"
	applogger "repair-system/pkg/logger"
	appmiddleware "repair-system/pkg/middleware"
	"repair-system/pkg/outbox"
	"repair-system/pkg/validation"
)

func main() {
	logger := applogger.NewLogger()
	defer logger.Sync()

	cfg := config.New()

	// Миграции накатываются на старте.
	runMigrations(cfg.Postgres.DSN)

	dbConn := postgresql.ConnectDB(cfg.Postgres.DSN)
	defer dbConn.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logger.Fatal("не удалось подключиться к Redis", zap.Error(err), zap.String("address", cfg.Redis.Address))
	}

	e := echo.New()
	e.Use(appmiddleware.RequestLogger(logger))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("!!! ОБНАРУЖЕНА ПАНИКА (PANIC) !!!",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.String("stack", string(stack)),
			)
			return err
		},
	}))
	e.Validator = validation.New()

	routes.InitRouter(e, dbConn, redisClient, cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Relay доставляет закоммиченные события из outbox подписчикам:
	// журналу аудита и уведомлениям.
	historyRepo := repositories.NewRequestHistoryRepository(dbConn)
	auditListener := listeners.NewAuditListener(historyRepo, logger)
	notifyListener := listeners.NewNotificationListener(redisClient, cfg.Redis.NotifyChannel, logger)
	dispatcher := listeners.NewDispatcher(auditListener, notifyListener, logger)

	relay, err := outbox.NewRelay(dbConn, dispatcher, logger, outbox.RelayOptions{
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
		MaxBackoff:   cfg.Outbox.MaxBackoff,
	})
	if err != nil {
		logger.Fatal("не удалось создать relay", zap.Error(err))
	}
	go func() {
		if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("relay остановился с ошибкой", zap.Error(err))
		}
	}()

	// Свипер закрывает просроченные PENDING назначения.
	assignmentRepo := repositories.NewAssignmentRepository(dbConn)
	sweeper := scheduler.NewAssignmentSweeper(
		assignmentRepo,
		cfg.Sweeper.Interval,
		cfg.Sweeper.AssignmentTTL,
		cfg.Sweeper.TickTimeout,
		logger,
	)
	go func() {
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("свипер остановился с ошибкой", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("🚀 Сервер запущен", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Ошибка запуска сервера", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Остановка сервера...")
	if err := e.Shutdown(context.Background()); err != nil {
		logger.Error("Ошибка остановки сервера", zap.Error(err))
	}
}

func runMigrations(dsn string) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("Ошибка подключения для миграций: %v", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("Ошибка настройки goose: %v", err)
	}
	if err := goose.Up(db, "."); err != nil {
		log.Fatalf("Ошибка применения миграций: %v", err)
	}
}
