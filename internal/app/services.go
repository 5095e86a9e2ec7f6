package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-coursestore/internal/data/aggregates"
	domainagg "github.com/yungbote/neurobridge-coursestore/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-coursestore/internal/learning/content"
	"github.com/yungbote/neurobridge-coursestore/internal/observability"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/logger"
	"github.com/yungbote/neurobridge-coursestore/internal/services"
)

type Services struct {
	CourseTreeAggregate domainagg.CourseTreeAggregate
	CourseTree          services.CourseTreeService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")
	converter := content.NewConverter(cfg.Tree.ReadingWPM)

	var locker aggregates.CourseLocker
	if clients.Redis != nil {
		locker = aggregates.NewRedisLocker(clients.Redis, cfg.Redis.LockTTL)
	} else {
		locker = aggregates.NewLocalLocker()
	}

	agg := aggregates.NewCourseTreeAggregate(aggregates.CourseTreeAggregateDeps{
		Base: aggregates.BaseDeps{
			DB:    db,
			Log:   log,
			Hooks: aggregates.NewObservabilityHooks(metrics),
		},
		Courses:         reposet.Course,
		Sections:        reposet.Section,
		Forks:           reposet.ForkRecord,
		Converter:       converter,
		Locker:          locker,
		DefaultMaxDepth: cfg.Tree.MaxDepth,
	})

	return Services{
		CourseTreeAggregate: agg,
		CourseTree: services.NewCourseTreeService(
			log,
			agg,
			reposet.Course,
			reposet.Section,
			reposet.ForkRecord,
			converter,
			metrics,
		),
	}
}
