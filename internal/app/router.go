package app

import (
	apphttp "github.com/yungbote/neurobridge-coursestore/internal/http"
	"github.com/yungbote/neurobridge-coursestore/internal/observability"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *apphttp.Server {
	serviceName := ""
	if cfg.OTel.Enabled {
		serviceName = cfg.ServiceName
	}
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:             log,
		ServiceName:     serviceName,
		CORSOrigins:     cfg.CORSOrigins,
		Metrics:         metrics,
		ActorMiddleware: middleware.Actor,
		CourseHandler:   handlers.Course,
		SectionHandler:  handlers.Section,
		HealthHandler:   handlers.Health,
	})
}
