package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-analytics-api/api/swagger"
	"github.com/noah-isme/sma-analytics-api/internal/handler"
	"github.com/noah-isme/sma-analytics-api/internal/middleware"
	"github.com/noah-isme/sma-analytics-api/internal/models"
	"github.com/noah-isme/sma-analytics-api/internal/repository"
	"github.com/noah-isme/sma-analytics-api/internal/service"
	"github.com/noah-isme/sma-analytics-api/pkg/cache"
	"github.com/noah-isme/sma-analytics-api/pkg/config"
	"github.com/noah-isme/sma-analytics-api/pkg/database"
	"github.com/noah-isme/sma-analytics-api/pkg/export"
	"github.com/noah-isme/sma-analytics-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-analytics-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-analytics-api/pkg/middleware/requestid"
)

// @title SMA Analytics API
// @version 1.0.0
// @description Class and student analytics computed from attendance and marks records
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	var cacheRepo *repository.CacheRepository
	cacheEnabled := cfg.Analytics.CacheEnabled
	if cacheEnabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, report caching disabled", zap.Error(err))
			cacheEnabled = false
		} else {
			cacheRepo = repository.NewCacheRepository(client, logr)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}
	var cacheBackend service.CacheRepository
	if cacheRepo != nil {
		cacheBackend = cacheRepo
	}
	cacheSvc := service.NewCacheService(cacheBackend, metricsSvc, cfg.Analytics.CacheTTL, logr, cacheEnabled)

	analyticsRepo := repository.NewAnalyticsRepository(db)
	scopeRepo := repository.NewScopeRepository(db)

	analyticsSvc := service.NewAnalyticsService(analyticsRepo, cacheSvc, metricsSvc, logr, service.AnalyticsConfig{
		ReportTTL:      cfg.Analytics.CacheTTL,
		DashboardTTL:   cfg.Dashboard.CacheTTL,
		AlertThreshold: cfg.Dashboard.AlertAttendanceThreshold,
		AlertLimit:     cfg.Dashboard.AlertLimit,
	})
	scopeSvc := service.NewScopeService(scopeRepo, logr)
	tokenSvc := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer}, logr)
	exportSvc := service.NewExportService(analyticsSvc, logr, cfg.Exports.Enabled, export.NewCSVExporter(), export.NewPDFExporter())

	analyticsHandler := handler.NewAnalyticsHandler(analyticsSvc, scopeSvc, exportSvc)
	dashboardHandler := handler.NewDashboardHandler(analyticsSvc, scopeSvc)
	checks := map[string]handler.ReadinessCheck{"database": db.PingContext}
	if cacheSvc.Enabled() {
		checks["cache"] = cacheSvc.Ping
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenSvc))
	{
		dashboardRead := middleware.RequirePermission(models.PermissionDashboardRead)
		api.GET("/analytics/class", dashboardRead, analyticsHandler.ClassExam)
		api.GET("/analytics/class/export", dashboardRead, analyticsHandler.ClassExport)
		api.GET("/analytics/student", middleware.RequirePermission(models.PermissionProgressRead), analyticsHandler.Student)
		api.GET("/analytics/system", middleware.RequirePermission(models.PermissionAdminRead), analyticsHandler.System)
		api.GET("/dashboard/class-analytics", dashboardRead, dashboardHandler.ClassAnalytics)
		api.GET("/dashboard/alerts", dashboardRead, dashboardHandler.Alerts)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
