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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/edupay/edupay-api/api/swagger"
	"github.com/edupay/edupay-api/internal/handler"
	internalmiddleware "github.com/edupay/edupay-api/internal/middleware"
	"github.com/edupay/edupay-api/internal/models"
	"github.com/edupay/edupay-api/internal/repository"
	"github.com/edupay/edupay-api/internal/service"
	"github.com/edupay/edupay-api/pkg/cache"
	"github.com/edupay/edupay-api/pkg/config"
	"github.com/edupay/edupay-api/pkg/database"
	"github.com/edupay/edupay-api/pkg/jobs"
	"github.com/edupay/edupay-api/pkg/logger"
	corsmiddleware "github.com/edupay/edupay-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edupay/edupay-api/pkg/middleware/requestid"
	"github.com/edupay/edupay-api/pkg/storage"
)

// @title EduPay API
// @version 1.0.0
// @description School fee management backend
// @BasePath /api
// @schemes http

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cacheRepo != nil)

	studentRepo := repository.NewStudentRepository(db)
	feeRepo := repository.NewFeeRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	userRepo := repository.NewUserRepository(db)
	reportRepo := repository.NewReportRepository(db)

	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	feeSvc := service.NewFeeService(feeRepo, studentRepo, validate, logr)
	paymentSvc := service.NewPaymentService(paymentRepo, studentRepo, cacheSvc, metricsSvc, validate, logr, cfg.Payments.StatsWindowDays, cfg.Payments.StatsCacheTTL)
	dashboardSvc := service.NewDashboardService(feeRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "edupay-api",
	})

	var reportSvc *service.ReportService
	var queue *jobs.Queue
	if cfg.Reports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exportSvc := service.NewExportService(feeRepo, paymentRepo, studentRepo, store, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Reports.SignedURLTTL,
		}, logr, nil, nil)
		worker := service.NewReportWorker(reportRepo, exportSvc, cfg.Reports.WorkerRetries, logr)
		queue = jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		queue.Start(ctx)
		reportSvc = service.NewReportService(reportRepo, queue, exportSvc, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
			MaxRetries:      cfg.Reports.WorkerRetries,
		})
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)
	}

	studentHandler := handler.NewStudentHandler(studentSvc)
	feeHandler := handler.NewFeeHandler(feeSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	authHandler := handler.NewAuthHandler(authSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(authSvc))

	secured.POST("/auth/logout", authHandler.Logout)
	secured.POST("/auth/change-password", authHandler.ChangePassword)
	secured.GET("/auth/me", authHandler.Me)

	adminOnly := internalmiddleware.RequireRoles(models.RoleAdmin)
	audit := func(action, resource string) gin.HandlerFunc {
		return internalmiddleware.Audit(userRepo, action, resource)
	}

	secured.GET("/students", studentHandler.List)
	secured.GET("/students/:id", studentHandler.Get)
	secured.POST("/students", adminOnly, audit("CREATE", "students"), studentHandler.Create)
	secured.PUT("/students/:id", adminOnly, audit("UPDATE", "students"), studentHandler.Update)
	secured.DELETE("/students/:id", adminOnly, audit("DELETE", "students"), studentHandler.Delete)
	secured.GET("/fees/types", feeHandler.ListFeeTypes)
	secured.POST("/fees/types", adminOnly, audit("CREATE", "fee_types"), feeHandler.CreateFeeType)
	secured.DELETE("/fees/types/:id", adminOnly, audit("DELETE", "fee_types"), feeHandler.DeleteFeeType)

	secured.GET("/fees", feeHandler.List)
	secured.GET("/fees/:id", feeHandler.Get)
	secured.GET("/fees/student/:id", feeHandler.ListByStudent)
	secured.POST("/fees", adminOnly, audit("CREATE", "fees"), feeHandler.Create)
	secured.PATCH("/fees/:id/status", adminOnly, audit("UPDATE", "fees"), feeHandler.UpdateStatus)
	secured.DELETE("/fees/:id", adminOnly, audit("DELETE", "fees"), feeHandler.Delete)

	secured.POST("/payments", audit("CREATE", "payments"), paymentHandler.Record)
	secured.GET("/payments/stats", paymentHandler.Stats)
	secured.GET("/payments/fee/:id", paymentHandler.ListByFee)
	secured.GET("/payments/student/:id", paymentHandler.ListByStudent)

	secured.GET("/dashboard/summary", dashboardHandler.Summary)
	secured.GET("/ops/metrics", adminOnly, metricsHandler.Snapshot)

	if reportSvc != nil {
		reportHandler := handler.NewReportHandler(reportSvc)
		secured.POST("/reports", adminOnly, audit("CREATE", "reports"), reportHandler.Create)
		secured.GET("/reports/:id", reportHandler.Status)
		api.GET("/reports/download/:token", reportHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
	if queue != nil {
		queue.Stop()
	}
}
