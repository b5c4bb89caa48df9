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

	_ "github.com/noah-isme/class-scheduling-api/api/swagger"
	"github.com/noah-isme/class-scheduling-api/internal/handler"
	"github.com/noah-isme/class-scheduling-api/internal/repository"
	"github.com/noah-isme/class-scheduling-api/internal/service"
	"github.com/noah-isme/class-scheduling-api/migrations"
	"github.com/noah-isme/class-scheduling-api/pkg/cache"
	"github.com/noah-isme/class-scheduling-api/pkg/config"
	"github.com/noah-isme/class-scheduling-api/pkg/database"
	"github.com/noah-isme/class-scheduling-api/pkg/jobs"
	"github.com/noah-isme/class-scheduling-api/pkg/lock"
	"github.com/noah-isme/class-scheduling-api/pkg/logger"
)

// @title Class Scheduling API
// @version 1.0.0
// @description Conflict-checked booking of class schedules, teacher availability and rooms.
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := migrations.Up(ctx, db, logr); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	deps := map[string]handler.Pinger{"postgres": db}
	var locker lock.Locker
	if redisClient != nil {
		defer redisClient.Close()
		locker = lock.NewRedisLocker(redisClient, cfg.Scheduling.LockTTL, cfg.Scheduling.LockWait, logr)
		deps["redis"] = redisPinger{redisClient}
		logr.Info("using redis resource locks", zap.Duration("ttl", cfg.Scheduling.LockTTL))
	} else {
		locker = lock.NewKeyedMutex(cfg.Scheduling.LockWait)
		logr.Info("using in-process resource locks")
	}

	validate := validator.New()
	metrics := service.NewMetricsService()
	searchPool := jobs.NewPool("slot-search", jobs.PoolConfig{Workers: cfg.Scheduling.SearchWorkers, Logger: logr})

	classrooms := repository.NewClassroomRepository(db)
	availabilityRepo := repository.NewTeacherAvailabilityRepository(db)
	roomRepo := repository.NewRoomScheduleRepository(db, classrooms)
	scheduleRepo := repository.NewClassScheduleRepository(db)

	schedulingSvc := service.NewSchedulingService(availabilityRepo, roomRepo, scheduleRepo, locker, searchPool, metrics, validate, logr)
	availabilitySvc := service.NewTeacherAvailabilityService(availabilityRepo, locker, validate, logr)
	roomSvc := service.NewRoomBookingService(roomRepo, locker, validate, logr)
	exportSvc := service.NewTimetableExportService(schedulingSvc, logr)
	importSvc := service.NewScheduleImportService(schedulingSvc, cfg.Imports.MaxFileSizeBytes, logr)

	router := newRouter(cfg, logr, metrics, routeHandlers{
		scheduling:   handler.NewSchedulingHandler(schedulingSvc, exportSvc, importSvc),
		availability: handler.NewAvailabilityHandler(availabilitySvc),
		rooms:        handler.NewRoomHandler(roomSvc),
		ops:          handler.NewMetricsHandler(metrics, deps),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
