package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const DefaultMaxDepth = 5

type Course struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	// UserName is the owner's display name at creation, kept for fork lineage.
	UserName string `gorm:"column:user_name" json:"user_name,omitempty"`

	Title       string `gorm:"column:title;not null" json:"title"`
	Description string `gorm:"column:description;type:text" json:"description"`
	IsPublic    bool   `gorm:"column:is_public;not null;default:false;index" json:"is_public"`

	// Fork lineage; all nil unless the course was forked.
	ForkedFromCourseID *uuid.UUID `gorm:"column:forked_from_course_id;type:uuid;index" json:"forked_from_course_id,omitempty"`
	ForkedFromUserID   *uuid.UUID `gorm:"column:forked_from_user_id;type:uuid" json:"forked_from_user_id,omitempty"`
	ForkedFromUserName *string    `gorm:"column:forked_from_user_name" json:"forked_from_user_name,omitempty"`
	ForkedAt           *time.Time `gorm:"column:forked_at" json:"forked_at,omitempty"`

	SectionCount    int `gorm:"column:section_count;not null;default:0" json:"section_count"`
	WordCount       int `gorm:"column:word_count;not null;default:0" json:"word_count"`
	ReadTimeMinutes int `gorm:"column:read_time_minutes;not null;default:0" json:"read_time_minutes"`

	GenerationModel  string `gorm:"column:generation_model" json:"generation_model,omitempty"`
	GenerationPrompt string `gorm:"column:generation_prompt;type:text" json:"generation_prompt,omitempty"`

	MaxDepth         int `gorm:"column:max_depth;not null;default:5" json:"max_depth"`
	ForkCount        int `gorm:"column:fork_count;not null;default:0" json:"fork_count"`
	StructureVersion int `gorm:"column:structure_version;not null;default:0" json:"structure_version"`

	Metadata  datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (Course) TableName() string { return "course" }

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	return nil
}

// IsFork reports whether the course carries fork lineage.
func (c *Course) IsFork() bool { return c != nil && c.ForkedFromCourseID != nil }
