package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/campus-shuttle/shuttle-api/internal/middleware"
	"github.com/campus-shuttle/shuttle-api/pkg/logger"
	corsmiddleware "github.com/campus-shuttle/shuttle-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campus-shuttle/shuttle-api/pkg/middleware/requestid"
)

// RouterConfig carries everything the HTTP surface is built from.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Logger         *zap.Logger

	Auth          middleware.TokenValidator
	Locks         middleware.ActionLocker
	Observer      middleware.RequestObserver
	Advisor       *AdvisorHandler
	Reports       *ReportHandler
	Announcements *AnnouncementHandler
	Metrics       *MetricsHandler
}

// NewRouter builds the gin engine with the shared middleware chain.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(cfg.Logger))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(cfg.Observer))

	r.GET("/health", cfg.Metrics.Health)
	r.GET("/ready", cfg.Metrics.Ready)
	r.GET("/metrics", cfg.Metrics.Prometheus)
	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	// signed token, no bearer
	api.GET("/advisor/reports/download", cfg.Reports.Download)

	authed := api.Group("")
	authed.Use(middleware.JWT(cfg.Auth))
	authed.GET("/announcements", cfg.Announcements.List)
	authed.GET("/advisor/schedules/:id/occupancy", cfg.Advisor.Occupancy)

	admin := authed.Group("")
	admin.Use(middleware.AdminOnly())
	admin.GET("/advisor/suggestions", cfg.Advisor.Suggestions)
	admin.GET("/advisor/actions", cfg.Advisor.RecentActions)
	admin.POST("/advisor/reports", cfg.Reports.Generate)
	admin.PATCH("/announcements/:id", cfg.Announcements.SetActive)

	actions := admin.Group("/advisor/actions")
	actions.Use(middleware.ActionGuard(cfg.Locks))
	actions.POST("/assign", cfg.Advisor.Assign)
	actions.POST("/activate", cfg.Advisor.Activate)
	actions.POST("/extra-trip", cfg.Advisor.ExtraTrip)
	actions.POST("/deactivate", cfg.Advisor.Deactivate)
	actions.POST("/apply", cfg.Advisor.Apply)

	return r
}
