package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-seat-api/internal/middleware"
	"github.com/noah-isme/exam-seat-api/internal/models"
	"github.com/noah-isme/exam-seat-api/internal/service"
	"github.com/noah-isme/exam-seat-api/pkg/config"
	"github.com/noah-isme/exam-seat-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/exam-seat-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/exam-seat-api/pkg/middleware/requestid"
)

// Handlers bundles every HTTP handler the router mounts.
type Handlers struct {
	Auth      *AuthHandler
	Student   *StudentHandler
	Classroom *ClassroomHandler
	Timetable *TimetableHandler
	Seating   *SeatingHandler
	Metrics   *MetricsHandler
}

// NewRouter assembles the gin engine with middleware and all routes.
func NewRouter(cfg *config.Config, logr *zap.Logger, authSvc *service.AuthService, metricsSvc *service.MetricsService, h Handlers) *gin.Engine {
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
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", h.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", h.Auth.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.GET("/auth/me", h.Auth.Me)

	staff := middleware.RBAC(models.RoleAdmin, models.RoleStaff)
	admin := middleware.RBAC(models.RoleAdmin)

	authed.GET("/students", staff, h.Student.List)
	authed.GET("/students/:id", staff, h.Student.Get)
	authed.POST("/students", admin, h.Student.Create)

	authed.GET("/classrooms", staff, h.Classroom.List)
	authed.GET("/classrooms/:id", staff, h.Classroom.Get)
	authed.POST("/classrooms", admin, h.Classroom.Create)

	authed.GET("/timetables", staff, h.Timetable.List)
	authed.GET("/timetables/:id", staff, h.Timetable.Get)
	authed.POST("/timetables", admin, h.Timetable.Create)
	authed.DELETE("/timetables/:id", admin, h.Timetable.Delete)
	authed.POST("/timetables/:id/notify", admin, h.Timetable.Notify)

	authed.POST("/exam-entries/:examId/seating", staff, h.Seating.Generate)
	authed.GET("/exam-entries/:examId/seating", staff, h.Seating.List)
	authed.DELETE("/exam-entries/:examId/seating", admin, h.Seating.Clear)
	authed.PATCH("/exam-entries/:examId/seating/:arrangementId", staff, h.Seating.Reassign)
	authed.DELETE("/exam-entries/:examId/seating/:arrangementId", admin, h.Seating.Remove)
	authed.GET("/exam-entries/:examId/seating/export", staff, h.Seating.Export)
	authed.GET("/exam-entries/:examId/seats", staff, h.Seating.AvailableSeats)

	return r
}
