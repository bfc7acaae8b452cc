package main

import (
	"context"
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"

	_ "github.com/noah-isme/exam-seat-api/api/swagger"
	"github.com/noah-isme/exam-seat-api/internal/handler"
	"github.com/noah-isme/exam-seat-api/internal/repository"
	"github.com/noah-isme/exam-seat-api/internal/service"
	"github.com/noah-isme/exam-seat-api/internal/suggest"
	"github.com/noah-isme/exam-seat-api/pkg/cache"
	"github.com/noah-isme/exam-seat-api/pkg/config"
	"github.com/noah-isme/exam-seat-api/pkg/database"
	"github.com/noah-isme/exam-seat-api/pkg/logger"
)

// @title Exam Seat API
// @version 0.1.0
// @description Exam administration service: timetables, classrooms and conflict-free seating generation
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

	cacheRepo := repository.NewCacheRepository(nil, logr)
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, continuing without cache", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	defer cacheRepo.Close() //nolint:errcheck

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	seatingRepo := repository.NewSeatingRepository(db)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	classroomSvc := service.NewClassroomService(classroomRepo, validate, logr)

	var timetableSvc *service.TimetableService
	if cfg.Notify.Enabled {
		notifySvc := service.NewNotificationService(service.NewConsoleMailer(logr), cfg.Notify, logr)
		notifySvc.Start(context.Background())
		defer notifySvc.Stop()
		timetableSvc = service.NewTimetableService(timetableRepo, studentRepo, notifySvc, validate, logr)
	} else {
		timetableSvc = service.NewTimetableService(timetableRepo, studentRepo, nil, validate, logr)
	}

	seatingDeps := service.SeatingConfig{
		HeuristicTimeout: cfg.Seating.HeuristicTimeout,
		CacheTTL:         cfg.Redis.CacheTTL,
	}
	var seatingSvc *service.SeatingService
	if cfg.Seating.HeuristicEnabled {
		proposer := suggest.NewClient(cfg.Seating, logr)
		seatingSvc = service.NewSeatingService(
			timetableRepo, studentRepo, classroomRepo, seatingRepo,
			proposer, cacheRepo, metricsSvc, validate, logr, seatingDeps)
	} else {
		seatingSvc = service.NewSeatingService(
			timetableRepo, studentRepo, classroomRepo, seatingRepo,
			nil, cacheRepo, metricsSvc, validate, logr, seatingDeps)
	}
	exportSvc := service.NewExportService(seatingSvc, timetableSvc, logr)

	handlers := handler.Handlers{
		Auth:      handler.NewAuthHandler(authSvc),
		Student:   handler.NewStudentHandler(studentSvc),
		Classroom: handler.NewClassroomHandler(classroomSvc),
		Timetable: handler.NewTimetableHandler(timetableSvc),
		Seating:   handler.NewSeatingHandler(seatingSvc, exportSvc),
		Metrics:   handler.NewMetricsHandler(metricsSvc),
	}

	r := handler.NewRouter(cfg, logr, authSvc, metricsSvc, handlers)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
