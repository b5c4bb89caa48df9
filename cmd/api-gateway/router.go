package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/class-scheduling-api/internal/handler"
	"github.com/noah-isme/class-scheduling-api/internal/middleware"
	"github.com/noah-isme/class-scheduling-api/internal/service"
	"github.com/noah-isme/class-scheduling-api/pkg/config"
	"github.com/noah-isme/class-scheduling-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/class-scheduling-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/class-scheduling-api/pkg/middleware/requestid"
)

type routeHandlers struct {
	scheduling   *handler.SchedulingHandler
	availability *handler.AvailabilityHandler
	rooms        *handler.RoomHandler
	ops          *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, h routeHandlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/health", "/ready", "/metrics", "/metrics/summary"))
	r.MaxMultipartMemory = cfg.Imports.MaxFileSizeBytes

	r.GET("/health", h.ops.Health)
	r.GET("/ready", h.ops.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", h.ops.Prometheus)
		r.GET("/metrics/summary", h.ops.Summary)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	schedules := api.Group("/schedules")
	schedules.POST("/class", h.scheduling.Create)
	schedules.POST("/import", h.scheduling.Import)
	schedules.GET("/available-slots", h.scheduling.AvailableSlots)
	schedules.GET("/open-days", h.scheduling.OpenDays)
	schedules.GET("/class/:classId", h.scheduling.ClassSchedule)
	schedules.GET("/class/:classId/export", h.scheduling.ExportClass)
	schedules.GET("/teacher/:teacherId", h.scheduling.TeacherSchedule)
	schedules.GET("/teacher/:teacherId/export", h.scheduling.ExportTeacher)
	schedules.GET("/room/:roomId", h.scheduling.RoomSchedule)
	schedules.GET("/room/:roomId/export", h.scheduling.ExportRoom)
	schedules.PUT("/:id", h.scheduling.Update)
	schedules.DELETE("/:id", h.scheduling.Delete)

	teachers := api.Group("/teachers")
	teachers.GET("/available", h.availability.AvailableTeachers)
	teachers.GET("/:teacherId/availability", h.availability.Get)
	teachers.PUT("/:teacherId/availability", h.availability.Update)
	teachers.DELETE("/:teacherId/availability", h.availability.Clear)

	rooms := api.Group("/rooms")
	rooms.GET("/available", h.rooms.Available)
	rooms.GET("/:roomId/bookings", h.rooms.Bookings)
	rooms.POST("/:roomId/bookings", h.rooms.Book)
	rooms.DELETE("/:roomId/bookings", h.rooms.Cancel)
	rooms.PUT("/:roomId/status", h.rooms.UpdateStatus)

	return r
}
