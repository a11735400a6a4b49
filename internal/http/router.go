package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/coursefront-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursefront-backend/internal/http/middleware"
	"github.com/yungbote/coursefront-backend/internal/observability"
	"github.com/yungbote/coursefront-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string
	Metrics     *observability.Metrics

	LessonHandler      *httpH.LessonHandler
	LessonAdminHandler *httpH.LessonAdminHandler
	HealthHandler      *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Lesson (read)
		if cfg.LessonHandler != nil {
			api.GET("/lessons/:id", cfg.LessonHandler.GetLesson)
			api.GET("/courses/:id/lessons", cfg.LessonHandler.ListCourseLessons)
		}
	}

	admin := api.Group("/admin")
	{
		if cfg.LessonAdminHandler != nil {
			admin.PATCH("/lessons/:id/position", cfg.LessonAdminHandler.UpdatePosition)
			admin.DELETE("/lessons/:id", cfg.LessonAdminHandler.DeleteLesson)
			admin.POST("/courses/:id/lessons", cfg.LessonAdminHandler.CreateLesson)
			admin.POST("/courses/:id/audio/migrate", cfg.LessonAdminHandler.MigrateCourseAudio)
		}
	}

	return r
}
