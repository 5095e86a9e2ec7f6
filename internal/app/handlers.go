package app

import (
	"context"

	"github.com/yungbote/neurobridge-coursestore/internal/data/db"
	httpH "github.com/yungbote/neurobridge-coursestore/internal/http/handlers"
	httpMW "github.com/yungbote/neurobridge-coursestore/internal/http/middleware"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/logger"
)

type Middleware struct {
	Actor *httpMW.ActorMiddleware
}

type Handlers struct {
	Health  *httpH.HealthHandler
	Course  *httpH.CourseHandler
	Section *httpH.SectionHandler
}

func wireMiddleware(log *logger.Logger) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{Actor: httpMW.NewActorMiddleware(log)}
}

func wireHandlers(log *logger.Logger, database *db.Service, clients Clients, svcs Services) Handlers {
	log.Info("Wiring handlers...")
	pings := map[string]httpH.Pinger{
		"db": func(ctx context.Context) error {
			sqlDB, err := database.DB().DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if clients.Redis != nil {
		pings["redis"] = func(ctx context.Context) error { return clients.Redis.Ping(ctx).Err() }
	}
	return Handlers{
		Health:  httpH.NewHealthHandler(log, pings),
		Course:  httpH.NewCourseHandler(log, svcs.CourseTree),
		Section: httpH.NewSectionHandler(log, svcs.CourseTree),
	}
}
