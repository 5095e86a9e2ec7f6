package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CourseForkRecord is the append-only log of forks taken from a course.
type CourseForkRecord struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID       uuid.UUID `gorm:"type:uuid;not null;index" json:"course_id"`
	Course         *Course   `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"-"`
	ForkingUserID  uuid.UUID `gorm:"type:uuid;not null;index" json:"forking_user_id"`
	ForkedCourseID uuid.UUID `gorm:"type:uuid;not null;index" json:"forked_course_id"`
	ForkedAt       time.Time `gorm:"not null" json:"forked_at"`
	SectionCount   int       `gorm:"column:section_count;not null;default:0" json:"section_count"`
}

func (CourseForkRecord) TableName() string { return "course_fork_record" }

func (r *CourseForkRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
