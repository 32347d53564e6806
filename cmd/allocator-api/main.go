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

	_ "github.com/gux-htm/EmersonSched-sub000/api/swagger"
	"github.com/gux-htm/EmersonSched-sub000/internal/handler"
	"github.com/gux-htm/EmersonSched-sub000/internal/middleware"
	"github.com/gux-htm/EmersonSched-sub000/internal/models"
	"github.com/gux-htm/EmersonSched-sub000/internal/repository"
	"github.com/gux-htm/EmersonSched-sub000/internal/service"
	"github.com/gux-htm/EmersonSched-sub000/pkg/cache"
	"github.com/gux-htm/EmersonSched-sub000/pkg/config"
	"github.com/gux-htm/EmersonSched-sub000/pkg/database"
	"github.com/gux-htm/EmersonSched-sub000/pkg/logger"
	corsmiddleware "github.com/gux-htm/EmersonSched-sub000/pkg/middleware/cors"
	reqidmiddleware "github.com/gux-htm/EmersonSched-sub000/pkg/middleware/requestid"
	"github.com/gux-htm/EmersonSched-sub000/pkg/storage"
)

// @title Course Allocation API
// @version 1.0.0
// @description Time-slot generation, course-request lifecycle and allocation engine
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
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close() //nolint:errcheck
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, true)
	}

	validate := validator.New()

	slotRepo := repository.NewTimeSlotRepository(db)
	timingRepo := repository.NewTimingConfigRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	instructorRepo := repository.NewInstructorRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	requestRepo := repository.NewCourseRequestRepository(db)
	blockRepo := repository.NewBlockRepository(db)
	examRepo := repository.NewExamRepository(db)

	slotSvc := service.NewSlotService(slotRepo, timingRepo, db, cacheSvc, validate, logr, cfg.Allocator)
	requestSvc := service.NewRequestService(requestRepo, courseRepo, slotRepo, db, validate, logr, cfg.Allocator)
	blockSvc := service.NewBlockService(blockRepo, roomRepo, courseRepo, requestRepo, slotRepo, db, cacheSvc, metricsSvc, logr, cfg.Allocator)
	examSvc := service.NewExamService(examRepo, blockRepo, courseRepo, courseRepo, instructorRepo, roomRepo, db, validate, metricsSvc, logr, cfg.Allocator)
	scheduleSvc := service.NewScheduleService(slotRepo, timingRepo, blockRepo, requestRepo, db, cacheSvc, validate, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportRepo := repository.NewExportJobRepository(db)
		exportSvc = service.NewExportService(exportRepo, blockRepo, examRepo, store, signer, validate, logr, cfg.Exports)
		exportSvc.Start(ctx)
		defer exportSvc.Stop()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	slotHandler := handler.NewSlotHandler(slotSvc)
	requestHandler := handler.NewRequestHandler(requestSvc)
	blockHandler := handler.NewBlockHandler(blockSvc)
	examHandler := handler.NewExamHandler(examSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.JWT.Secret))

	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor)

	api.POST("/slots/generate", adminOnly, slotHandler.Generate)
	api.POST("/slots/distribution", adminOnly, slotHandler.GenerateDistribution)
	api.GET("/slots", staff, slotHandler.List)

	api.POST("/course-requests/generate", adminOnly, requestHandler.Generate)
	api.GET("/course-requests", staff, requestHandler.List)
	api.POST("/course-requests/:id/accept", staff, requestHandler.Accept)
	api.POST("/course-requests/:id/undo", staff, requestHandler.Undo)

	api.POST("/blocks/generate", adminOnly, blockHandler.Generate)
	api.GET("/blocks", staff, blockHandler.List)
	api.PATCH("/blocks/:id", adminOnly, blockHandler.Move)

	api.POST("/exams/sessions", adminOnly, examHandler.GenerateSession)
	api.GET("/exams", staff, examHandler.List)

	api.POST("/schedule/reset", adminOnly, scheduleHandler.Reset)

	if exportSvc != nil {
		exportHandler := handler.NewExportHandler(exportSvc)
		api.POST("/exports", staff, exportHandler.Enqueue)
		api.GET("/exports/:id", staff, exportHandler.Status)
		api.GET("/blocks/export", staff, exportHandler.RenderBlocks)
		// Download authenticates with the signed token, not a JWT.
		r.GET(cfg.APIPrefix+"/exports/download", exportHandler.Download)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown incomplete", "error", err)
	}
}
