package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/campus-shuttle/shuttle-api/api/swagger"
	"github.com/campus-shuttle/shuttle-api/internal/handler"
	"github.com/campus-shuttle/shuttle-api/internal/repository"
	"github.com/campus-shuttle/shuttle-api/internal/service"
	"github.com/campus-shuttle/shuttle-api/pkg/cache"
	"github.com/campus-shuttle/shuttle-api/pkg/config"
	"github.com/campus-shuttle/shuttle-api/pkg/database"
	"github.com/campus-shuttle/shuttle-api/pkg/logger"
	"github.com/campus-shuttle/shuttle-api/pkg/storage"
)

// @title Campus Shuttle API
// @version 1.0.0
// @description Bus assignment advisor for the transport office
// @BasePath /api/v1
// @schemes http https

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Database)
	if err != nil {
		logr.Fatal("failed to open database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer db.Close()
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect to redis", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	buses := repository.NewBusRepository(db)
	schedules := repository.NewScheduleRepository(db)

	advisor := service.NewAdvisorService(service.AdvisorServiceConfig{
		Buses:        buses,
		Routes:       repository.NewRouteRepository(db),
		Schedules:    schedules,
		Reservations: repository.NewReservationRepository(db),
		Records:      service.NewRecordValidator(cfg.Advisor.DefaultBusCapacity, validate, logr),
		Generator: service.NewSuggestionGenerator(service.AdvisorPolicy{
			UnderutilizationThreshold: cfg.Advisor.UnderutilizationThreshold,
			DefaultBusCapacity:        cfg.Advisor.DefaultBusCapacity,
		}, logr),
		Metrics:     metrics,
		LoadTimeout: cfg.Advisor.LoadTimeout,
		Logger:      logr,
	})

	notifications := newNotifications(redisClient, cfg.Notifications, logr)
	notifications.Start(context.Background())
	defer notifications.Stop()

	announcements := service.NewAnnouncementService(repository.NewAnnouncementRepository(db), notifications, validate, logr)
	actions := service.NewActionService(service.ActionServiceConfig{
		Advisor:                   advisor,
		Buses:                     buses,
		Schedules:                 schedules,
		Announcements:             announcements,
		Logs:                      repository.NewActionLogRepository(db),
		Metrics:                   metrics,
		DeactivateClearsSchedules: cfg.Advisor.DeactivateClearsSchedules,
		Validator:                 validate,
		Logger:                    logr,
	})

	files, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare report storage", zap.String("dir", cfg.Reports.StorageDir), zap.Error(err))
	}
	exports := service.NewExportService(advisor, files,
		storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL),
		service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Reports.SignedURLTTL},
		logr, nil, nil)

	checks := map[string]handler.ReadinessCheck{"database": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	location := cfg.Advisor.Location()
	router := handler.NewRouter(handler.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Auth:           service.NewAuthService(cfg.JWT.Secret),
		Locks:          newActionLocks(redisClient, cfg.Advisor.ActionLockTTL, logr),
		Observer:       metrics,
		Advisor:        handler.NewAdvisorHandler(advisor, actions, location, validate),
		Reports:        handler.NewReportHandler(exports, location, validate),
		Announcements:  handler.NewAnnouncementHandler(announcements, validate),
		Metrics:        handler.NewMetricsHandler(metrics.Handler(), checks),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logr.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.String("db_driver", cfg.Database.Driver),
			zap.Bool("redis", redisClient != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newNotifications broadcasts over redis pub/sub; without redis broadcasts are no-ops.
func newNotifications(client *redis.Client, cfg config.NotificationConfig, logr *zap.Logger) *service.NotificationService {
	notifyCfg := service.NotificationConfig{
		Channel:    cfg.Channel,
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
	}
	if client == nil {
		return service.NewNotificationService(nil, notifyCfg, logr)
	}
	return service.NewNotificationService(repository.NewPublisherRepository(client), notifyCfg, logr)
}

// newActionLocks shares action locks across replicas when redis is available.
func newActionLocks(client *redis.Client, ttl time.Duration, logr *zap.Logger) *service.ActionLockService {
	if client == nil {
		return service.NewActionLockService(nil, ttl, logr)
	}
	return service.NewActionLockService(repository.NewLockRepository(client), ttl, logr)
}
