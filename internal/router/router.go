package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-lifecycle-api/internal/handler"
	"github.com/noah-isme/academic-lifecycle-api/internal/middleware"
	"github.com/noah-isme/academic-lifecycle-api/internal/models"
	"github.com/noah-isme/academic-lifecycle-api/internal/service"
	"github.com/noah-isme/academic-lifecycle-api/pkg/config"
	"github.com/noah-isme/academic-lifecycle-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/academic-lifecycle-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/academic-lifecycle-api/pkg/middleware/requestid"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Catalog     *handler.CatalogHandler
	Enrollment  *handler.EnrollmentHandler
	Drop        *handler.DropHandler
	Attendance  *handler.AttendanceHandler
	Performance *handler.PerformanceHandler
	Feedback    *handler.FeedbackHandler
	Metrics     *handler.MetricsHandler
}

// Setup builds the gin engine with global middleware and every route group.
func Setup(cfg *config.Config, log *zap.Logger, verifier middleware.TokenValidator, metrics *service.MetricsService, h *Handlers) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	staff := []models.UserRole{models.RoleAdmin, models.RoleFaculty}
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	staffOnly := middleware.RequireRoles(staff...)
	studentOnly := middleware.RequireRoles(models.RoleStudent)
	staffOrSelf := middleware.RolesOrSelf(staff...)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(verifier), middleware.ResponseMeta())

	courses := api.Group("/courses")
	{
		courses.GET("", h.Catalog.List)
		courses.GET("/:code", h.Catalog.Get)
		courses.PUT("/:code", adminOnly, h.Catalog.Upsert)
		courses.DELETE("/:code", adminOnly, h.Catalog.Delete)
		courses.POST("/:code/faculty", adminOnly, h.Catalog.AssignFaculty)

		courses.GET("/:code/registrations", staffOnly, h.Enrollment.ListPending)
		courses.POST("/:code/registrations/approve", adminOnly, h.Enrollment.Approve)
		courses.POST("/:code/registrations/reject", adminOnly, h.Enrollment.Reject)
		courses.POST("/:code/grades", staffOnly, h.Enrollment.PostGrades)

		courses.POST("/:code/attendance", staffOnly, h.Attendance.Record)
		courses.POST("/:code/attendance/bulk", staffOnly, h.Attendance.Bulk)
		courses.PUT("/:code/attendance/approve", adminOnly, h.Attendance.Approve)
		courses.PATCH("/:code/attendance", adminOnly, h.Attendance.Modify)
	}

	api.GET("/faculty/:id/courses", staffOrSelf, h.Catalog.FacultyCourses)

	registrations := api.Group("/registrations", studentOnly)
	{
		registrations.POST("", h.Enrollment.RequestRegistration)
		registrations.DELETE("/:courseCode", h.Enrollment.CancelRegistration)
	}

	students := api.Group("/students/:id", staffOrSelf)
	{
		students.GET("/enrollments", h.Enrollment.StudentEnrollments)
		students.GET("/attendance/:courseCode", h.Attendance.Student)
		students.GET("/performance", h.Performance.Get)
	}

	drops := api.Group("/drop-requests")
	{
		drops.POST("", studentOnly, h.Drop.Create)
		drops.DELETE("/:id", studentOnly, h.Drop.Cancel)
		drops.GET("", adminOnly, h.Drop.List)
		drops.GET("/:id", h.Drop.Get)
		drops.PUT("/:id/resolve", adminOnly, h.Drop.Resolve)
	}

	api.GET("/attendance/queue", adminOnly, h.Attendance.Queue)

	feedback := api.Group("/feedback")
	{
		feedback.POST("", studentOnly, h.Feedback.Submit)
		feedback.GET("/statistics", staffOnly, h.Feedback.Statistics)
		feedback.GET("/settings", adminOnly, h.Feedback.Settings)
		feedback.PUT("/settings", adminOnly, h.Feedback.UpdateSettings)
	}

	return r
}
