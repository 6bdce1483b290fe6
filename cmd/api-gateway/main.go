package main

import (
	"context"
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

	_ "github.com/campuspass/leave-api/api/swagger"
	"github.com/campuspass/leave-api/internal/handler"
	"github.com/campuspass/leave-api/internal/middleware"
	"github.com/campuspass/leave-api/internal/models"
	"github.com/campuspass/leave-api/internal/repository"
	"github.com/campuspass/leave-api/internal/service"
	"github.com/campuspass/leave-api/pkg/cache"
	"github.com/campuspass/leave-api/pkg/config"
	"github.com/campuspass/leave-api/pkg/database"
	"github.com/campuspass/leave-api/pkg/export"
	"github.com/campuspass/leave-api/pkg/jobs"
	"github.com/campuspass/leave-api/pkg/logger"
	corsmiddleware "github.com/campuspass/leave-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campuspass/leave-api/pkg/middleware/requestid"
	"github.com/campuspass/leave-api/pkg/qr"
	"github.com/campuspass/leave-api/pkg/storage"
)

// @title Campus Leave API
// @version 1.0.0
// @description Multi-stage leave request approval workflow for students
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, stats caching disabled", "error", err)
		redisClient = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Stats.CacheTTL, logr, cfg.Stats.CacheEnabled && redisClient != nil)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "campuspass-leave-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	approverSvc := service.NewApproverService(userRepo, metricsSvc, logr)

	notificationSvc := service.NewNotificationService(notificationRepo, metricsSvc, logr, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	})
	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	passStore, err := storage.NewLocalStorage(cfg.Passes.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init pass storage", "error", err)
	}
	passSigner := storage.NewPassSigner(cfg.Passes.TokenSecret, cfg.Passes.TokenTTL)
	passSvc := service.NewPassService(leaveRepo, passStore, passSigner, qr.NewEncoder(cfg.Passes.QRSize), export.NewPassRenderer(""), logr)

	statsSvc := service.NewStatsService(leaveRepo, cacheSvc, logr)

	leaveSvc := service.NewLeaveService(leaveRepo, userRepo, approverSvc, notificationSvc, metricsSvc, logr,
		service.WithSinglePending(cfg.Workflow.SinglePending),
		service.WithPassIssuer(passSvc),
		service.WithStatsInvalidator(statsSvc),
	)

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	leaveHandler := handler.NewLeaveHandler(leaveSvc)
	passHandler := handler.NewPassHandler(passSvc, leaveSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	statsHandler := handler.NewStatsHandler(statsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
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
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/register", userHandler.Register)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	api.GET("/passes/verify", passHandler.Verify)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	{
		leaves := protected.Group("/leaves")
		{
			leaves.POST("", middleware.RequireRoles(models.RoleStudent), leaveHandler.Submit)
			leaves.GET("", middleware.RequireRoles(models.RoleAdmin), leaveHandler.List)
			leaves.GET("/mine", middleware.RequireRoles(models.RoleStudent), leaveHandler.ListMine)
			leaves.GET("/current", middleware.RequireRoles(models.RoleStudent), leaveHandler.Current)
			leaves.GET("/queue", middleware.RequireRoles(models.RoleMentor, models.RoleHOD, models.RolePrincipal, models.RoleWarden), leaveHandler.Queue)
			leaves.GET("/:id", leaveHandler.Get)
			leaves.POST("/:id/decision", middleware.RequireRoles(models.RoleMentor, models.RoleHOD, models.RolePrincipal, models.RoleWarden, models.RoleAdmin), leaveHandler.Decide)
			leaves.GET("/:id/pass", passHandler.Download)
		}

		notifications := protected.Group("/notifications")
		{
			notifications.GET("", notificationHandler.List)
			notifications.GET("/unread-count", notificationHandler.UnreadCount)
			notifications.POST("/:id/read", notificationHandler.MarkRead)
			notifications.POST("/read-all", notificationHandler.MarkAllRead)
		}

		stats := protected.Group("/stats")
		{
			stats.GET("/me", statsHandler.Mine)
			stats.GET("/students/:id", statsHandler.Student)
			stats.GET("/workflow", middleware.RequireRoles(models.RoleAdmin, models.RolePrincipal, models.RoleHOD), statsHandler.Workflow)
		}

		users := protected.Group("/users")
		{
			users.POST("", middleware.RequireRoles(models.RoleAdmin), userHandler.Create)
			users.GET("", middleware.RequireRoles(models.RoleAdmin), userHandler.List)
			users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), "SELF"), userHandler.Get)
			users.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Update)
			users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Deactivate)
		}

		protected.GET("/metrics/snapshot", middleware.RequireRoles(models.RoleAdmin), metricsHandler.Snapshot)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
