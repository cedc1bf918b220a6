package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/ja-yanga/keep-ph-api/api/swagger"
	"github.com/ja-yanga/keep-ph-api/internal/handler"
	"github.com/ja-yanga/keep-ph-api/internal/middleware"
	"github.com/ja-yanga/keep-ph-api/internal/models"
	"github.com/ja-yanga/keep-ph-api/internal/repository"
	"github.com/ja-yanga/keep-ph-api/internal/service"
	"github.com/ja-yanga/keep-ph-api/pkg/cache"
	"github.com/ja-yanga/keep-ph-api/pkg/config"
	"github.com/ja-yanga/keep-ph-api/pkg/database"
	"github.com/ja-yanga/keep-ph-api/pkg/jobs"
	"github.com/ja-yanga/keep-ph-api/pkg/logger"
	corsmiddleware "github.com/ja-yanga/keep-ph-api/pkg/middleware/cors"
	reqidmiddleware "github.com/ja-yanga/keep-ph-api/pkg/middleware/requestid"
	"github.com/ja-yanga/keep-ph-api/pkg/storage"
)

// @title Keep PH API
// @version 1.0.0
// @description Virtual mailbox and mailroom operations service
// @BasePath /api/v1
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	store, err := storage.NewLocalStorage(cfg.Storage.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init file storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	packageRepo := repository.NewPackageRepository(db)
	lockerRepo := repository.NewLockerRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	kycRepo := repository.NewKYCRepository(db)
	rewardRepo := repository.NewRewardRepository(db)
	addressRepo := repository.NewAddressRepository(db)
	errorLogRepo := repository.NewErrorLogRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	validate := service.NewValidator()
	metricsService := service.NewMetricsService()
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.Enabled && redisClient != nil)
	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "keep-ph-api",
	})
	packageService := service.NewPackageService(packageRepo, addressRepo, registrationRepo, userRepo, cacheService, validate, logr, service.PackageLimits{
		MaxScanFiles: cfg.Mailroom.MaxScanFiles,
	})
	lockerService := service.NewLockerService(lockerRepo, registrationRepo, userRepo, validate, logr, service.LockerLimits{
		MaxPerRegistration: cfg.Mailroom.MaxLockersPerRegistration,
	})
	kycService := service.NewKYCService(kycRepo, userRepo, validate, logr)
	rewardService := service.NewRewardService(rewardRepo, userRepo, userRepo, validate, logr, service.RewardConfig{
		ReferralThreshold: cfg.Rewards.ReferralThreshold,
	})
	addressService := service.NewAddressService(addressRepo, packageRepo, validate, logr)
	registrationService := service.NewRegistrationService(registrationRepo, kycRepo, userRepo, validate, logr)
	dashboardService := service.NewDashboardService(dashboardRepo, cacheService, cfg.Dashboard.CacheTTL, logr)
	reportService := service.NewReportService(packageRepo, logr)
	userService := service.NewUserService(userRepo, validate, logr)
	errorLogService := service.NewErrorLogService(errorLogRepo, logr)
	fileService := service.NewFileService(packageRepo, store, signer, logr)

	// Background sweep marking lapsed registrations EXPIRED. The admin
	// sync endpoint enqueues the same job on demand.
	expiryQueue := jobs.NewQueue("registration-expiry", func(ctx context.Context, job jobs.Job) error {
		count, err := registrationService.ExpirySweep(ctx)
		if err != nil {
			return err
		}
		if count > 0 {
			logr.Sugar().Infow("registration expiry sweep", "expired", count)
		}
		return nil
	}, jobs.QueueConfig{
		Workers:    cfg.Sync.Workers,
		MaxRetries: cfg.Sync.Retries,
		RetryDelay: cfg.Sync.RetryDelay,
		Logger:     logr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	expiryQueue.Start(ctx)
	defer expiryQueue.Stop()

	if cfg.Sync.Interval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.Sync.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case now := <-ticker.C:
					_ = expiryQueue.Enqueue(jobs.Job{
						ID:       "registration-expiry-" + strconv.FormatInt(now.UnixNano(), 10),
						Type:     "registration-expiry",
						Enqueued: now.UTC(),
					})
				}
			}
		}()
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authService)
	packageHandler := handler.NewPackageHandler(packageService)
	lockerHandler := handler.NewLockerHandler(lockerService)
	kycHandler := handler.NewKYCHandler(kycService)
	rewardHandler := handler.NewRewardHandler(rewardService)
	addressHandler := handler.NewAddressHandler(addressService)
	registrationHandler := handler.NewRegistrationHandler(registrationService, expiryQueue)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	reportHandler := handler.NewReportHandler(reportService)
	userHandler := handler.NewUserHandler(userService)
	errorLogHandler := handler.NewErrorLogHandler(errorLogService)
	fileHandler := handler.NewFileHandler(fileService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))
	r.Use(middleware.ErrorLog(errorLogService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Public routes.
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.GET("/files/download/:token", fileHandler.Download)
	api.GET("/locations", registrationHandler.Locations)

	// Authenticated routes.
	auth := api.Group("")
	auth.Use(middleware.JWT(authService))
	{
		auth.POST("/auth/logout", authHandler.Logout)
		auth.POST("/auth/change-password", authHandler.ChangePassword)
		auth.GET("/users/me", userHandler.Profile)

		auth.GET("/packages", packageHandler.List)
		auth.GET("/packages/:id", packageHandler.Get)
		auth.PATCH("/packages/:id/action", packageHandler.Action)
		auth.GET("/packages/:id/history", packageHandler.History)

		auth.GET("/registrations", registrationHandler.List)
		auth.POST("/registrations", registrationHandler.Create)
		auth.GET("/registrations/:id", registrationHandler.Get)
		auth.GET("/registrations/:id/lockers", lockerHandler.Assignments)

		auth.POST("/kyc", kycHandler.Submit)
		auth.GET("/kyc/status", kycHandler.Status)

		auth.GET("/rewards/claims", rewardHandler.List)
		auth.POST("/rewards/claims", rewardHandler.Claim)

		auth.GET("/addresses", addressHandler.List)
		auth.POST("/addresses", addressHandler.Create)
		auth.PUT("/addresses/:id", addressHandler.Update)
		auth.DELETE("/addresses/:id", addressHandler.Delete)

		auth.POST("/files/:id/sign", fileHandler.Sign)
	}

	// Staff routes.
	admin := api.Group("/admin")
	admin.Use(middleware.JWT(authService))
	admin.Use(middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin))
	{
		admin.POST("/packages", packageHandler.Create)
		admin.POST("/packages/:id/files", packageHandler.AttachFile)

		admin.GET("/lockers", lockerHandler.List)
		admin.POST("/lockers/assignments", lockerHandler.Assign)
		admin.DELETE("/lockers/assignments/:id", lockerHandler.Unassign)

		admin.GET("/kyc", kycHandler.List)
		admin.PUT("/kyc/:id/review", kycHandler.Review)
		admin.GET("/kyc/:id/reviews", kycHandler.Reviews)

		admin.PUT("/rewards/:id", rewardHandler.Update)

		admin.GET("/dashboard", dashboardHandler.Snapshot)
		admin.GET("/reports/packages", reportHandler.Packages)
		admin.POST("/sync/registrations", registrationHandler.Sync)

		admin.GET("/users", userHandler.List)
		admin.POST("/users", userHandler.Create)
		admin.GET("/users/:id", userHandler.Get)
		admin.PUT("/users/:id", userHandler.Update)
		admin.DELETE("/users/:id", userHandler.Deactivate)

		admin.GET("/error-logs", errorLogHandler.List)
		admin.PUT("/error-logs/:id/resolve", errorLogHandler.Resolve)

		admin.GET("/system/metrics", metricsHandler.System)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
