package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-coursestore/internal/domain"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/logger"
)

type SectionRepo interface {
	Create(dbc dbctx.Context, rows []*types.Section) ([]*types.Section, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Section, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Section, error)
	ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Section, error)
	ListStructureByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Section, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	DeleteByCourseID(dbc dbctx.Context, courseID uuid.UUID) error
}

type sectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSectionRepo(db *gorm.DB, baseLog *logger.Logger) SectionRepo {
	return &sectionRepo{db: db, log: baseLog.With("repo", "SectionRepo")}
}

// structureColumns are enough to plan tree mutations without loading content.
var structureColumns = []string{
	"id", "course_id", "parent_id", "sibling_order", "depth", "title",
	"has_content", "word_count", "read_time_minutes", "is_completed", "completed_at",
	"created_at", "updated_at",
}

func (r *sectionRepo) Create(dbc dbctx.Context, rows []*types.Section) ([]*types.Section, error) {
	if len(rows) == 0 {
		return []*types.Section{}, nil
	}
	if err := dbc.Conn(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetByID returns gorm.ErrRecordNotFound when the section does not exist.
func (r *sectionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Section, error) {
	var out types.Section
	if err := dbc.Conn(r.db).
		Where("id = ?", id).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *sectionRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Section, error) {
	var out []*types.Section
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.Conn(r.db).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListByCourse returns every section of a course with content, ordered by
// depth then sibling position.
func (r *sectionRepo) ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Section, error) {
	return r.list(dbc, courseID, nil)
}

// ListStructureByCourse is ListByCourse without the content columns.
func (r *sectionRepo) ListStructureByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Section, error) {
	return r.list(dbc, courseID, structureColumns)
}

func (r *sectionRepo) list(dbc dbctx.Context, courseID uuid.UUID, columns []string) ([]*types.Section, error) {
	var out []*types.Section
	if courseID == uuid.Nil {
		return out, nil
	}
	q := dbc.Conn(r.db)
	if len(columns) > 0 {
		q = q.Select(columns)
	}
	if err := q.
		Where("course_id = ?", courseID).
		Order("depth ASC").
		Order("sibling_order ASC").
		Order("created_at ASC").
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sectionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	res := dbc.Conn(r.db).
		Model(&types.Section{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *sectionRepo) DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.Conn(r.db).
		Where("id IN ?", ids).
		Delete(&types.Section{}).Error
}

func (r *sectionRepo) DeleteByCourseID(dbc dbctx.Context, courseID uuid.UUID) error {
	if courseID == uuid.Nil {
		return nil
	}
	return dbc.Conn(r.db).
		Where("course_id = ?", courseID).
		Delete(&types.Section{}).Error
}
