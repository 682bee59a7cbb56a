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

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/academic-lifecycle-api/api/swagger"
	"github.com/noah-isme/academic-lifecycle-api/internal/handler"
	"github.com/noah-isme/academic-lifecycle-api/internal/repository"
	"github.com/noah-isme/academic-lifecycle-api/internal/router"
	"github.com/noah-isme/academic-lifecycle-api/internal/service"
	"github.com/noah-isme/academic-lifecycle-api/pkg/cache"
	"github.com/noah-isme/academic-lifecycle-api/pkg/config"
	"github.com/noah-isme/academic-lifecycle-api/pkg/database"
	"github.com/noah-isme/academic-lifecycle-api/pkg/logger"
)

// @title Academic Lifecycle API
// @version 1.0.0
// @description Enrollment, drop, attendance, grading, performance and feedback workflows
// @BasePath /
// @schemes http https
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, statistics cache disabled", zap.Error(err))
			redisClient = nil
		}
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	courseRepo := repository.NewCourseRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	facultyRepo := repository.NewFacultyRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	dropRepo := repository.NewDropRequestRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	configRepo := repository.NewConfigurationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Feedback.StatsCacheTTL, logr, redisClient != nil)

	feedbackSettings := service.NewFeedbackSettings(configRepo, auditRepo, logr, cfg.Feedback.Enabled)
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 5*time.Second)
	if err := feedbackSettings.Load(loadCtx); err != nil {
		logr.Warn("failed to load feedback toggle, using fallback", zap.Error(err))
	}
	cancelLoad()

	catalogSvc := service.NewCatalogService(courseRepo, studentRepo, facultyRepo, auditRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(registrationRepo, enrollmentRepo, catalogSvc, auditRepo, metrics, validate, logr)
	dropSvc := service.NewDropService(dropRepo, enrollmentRepo, catalogSvc, auditRepo, metrics, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, enrollmentRepo, catalogSvc, auditRepo, metrics, validate, logr)
	performanceSvc := service.NewPerformanceService(enrollmentRepo, catalogSvc)
	feedbackSvc := service.NewFeedbackService(feedbackRepo, catalogSvc, enrollmentRepo, feedbackSettings, cacheSvc, cfg.Feedback.StatsCacheTTL, metrics, validate, logr)

	handlers := &router.Handlers{
		Catalog:     handler.NewCatalogHandler(catalogSvc),
		Enrollment:  handler.NewEnrollmentHandler(enrollmentSvc),
		Drop:        handler.NewDropHandler(dropSvc),
		Attendance:  handler.NewAttendanceHandler(attendanceSvc),
		Performance: handler.NewPerformanceHandler(performanceSvc),
		Feedback:    handler.NewFeedbackHandler(feedbackSvc, feedbackSettings),
		Metrics:     handler.NewMetricsHandler(metrics, db),
	}
	verifier := service.NewTokenVerifier(cfg.JWT.Secret, cfg.JWT.Issuer)
	engine := router.Setup(cfg, logr, verifier, metrics, handlers)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
