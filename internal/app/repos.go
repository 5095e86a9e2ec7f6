package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-coursestore/internal/data/repos"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/logger"
)

type Repos struct {
	Course     repos.CourseRepo
	Section    repos.SectionRepo
	ForkRecord repos.ForkRecordRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Course:     repos.NewCourseRepo(db, log),
		Section:    repos.NewSectionRepo(db, log),
		ForkRecord: repos.NewForkRecordRepo(db, log),
	}
}
