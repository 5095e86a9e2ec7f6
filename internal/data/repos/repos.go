package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-coursestore/internal/data/repos/learning"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/logger"
)

type CourseRepo = learning.CourseRepo
type SectionRepo = learning.SectionRepo
type ForkRecordRepo = learning.ForkRecordRepo

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return learning.NewCourseRepo(db, baseLog)
}
func NewSectionRepo(db *gorm.DB, baseLog *logger.Logger) SectionRepo {
	return learning.NewSectionRepo(db, baseLog)
}
func NewForkRecordRepo(db *gorm.DB, baseLog *logger.Logger) ForkRecordRepo {
	return learning.NewForkRecordRepo(db, baseLog)
}
