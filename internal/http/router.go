package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/neurobridge-coursestore/internal/http/handlers"
	httpMW "github.com/yungbote/neurobridge-coursestore/internal/http/middleware"
	"github.com/yungbote/neurobridge-coursestore/internal/observability"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/logger"
)

type RouterConfig struct {
	Log             *logger.Logger
	ServiceName     string
	CORSOrigins     []string
	Metrics         *observability.Metrics
	ActorMiddleware *httpMW.ActorMiddleware

	CourseHandler  *httpH.CourseHandler
	SectionHandler *httpH.SectionHandler
	HealthHandler  *httpH.HealthHandler
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
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	requireActor := func(c *gin.Context) { c.Next() }
	if cfg.ActorMiddleware != nil {
		api.Use(cfg.ActorMiddleware.AttachActor())
		requireActor = cfg.ActorMiddleware.RequireActor()
	}

	// Readable without an identity when the course is public.
	if cfg.CourseHandler != nil {
		api.GET("/courses/public", cfg.CourseHandler.ListPublicCourses)
		api.GET("/courses/:id", cfg.CourseHandler.GetCourse)
		api.GET("/courses/:id/tree", cfg.CourseHandler.GetTree)
	}
	if cfg.SectionHandler != nil {
		api.GET("/sections/:id", cfg.SectionHandler.GetSection)
	}

	protected := api.Group("/")
	protected.Use(requireActor)
	{
		if cfg.CourseHandler != nil {
			protected.POST("/courses", cfg.CourseHandler.CreateCourse)
			protected.GET("/courses", cfg.CourseHandler.ListUserCourses)
			protected.PATCH("/courses/:id/visibility", cfg.CourseHandler.SetVisibility)
			protected.DELETE("/courses/:id", cfg.CourseHandler.DeleteCourse)
			protected.GET("/courses/:id/progress", cfg.CourseHandler.GetProgress)
			protected.GET("/courses/:id/integrity", cfg.CourseHandler.CheckIntegrity)
			protected.POST("/courses/:id/fork", cfg.CourseHandler.ForkCourse)
			protected.GET("/courses/:id/forks", cfg.CourseHandler.ListForks)
			protected.POST("/courses/:id/sections", cfg.CourseHandler.CreateSection)
		}
		if cfg.SectionHandler != nil {
			protected.PATCH("/sections/:id", cfg.SectionHandler.RenameSection)
			protected.PUT("/sections/:id/content", cfg.SectionHandler.UpdateContent)
			protected.POST("/sections/:id/move", cfg.SectionHandler.MoveSection)
			protected.DELETE("/sections/:id", cfg.SectionHandler.DeleteSection)
			protected.PUT("/sections/:id/completion", cfg.SectionHandler.SetCompletion)
		}
	}

	return r
}
