package learning

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/neurobridge-coursestore/internal/domain"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/logger"
)

type CourseRepo interface {
	Create(dbc dbctx.Context, courses []*types.Course) ([]*types.Course, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Course, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Course, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Course, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, limit, offset int) ([]*types.Course, error)
	ListPublic(dbc dbctx.Context, limit, offset int) ([]*types.Course, error)
	ListIDs(dbc dbctx.Context) ([]uuid.UUID, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	IncrementForkCount(dbc dbctx.Context, id uuid.UUID) error
	RecountStats(dbc dbctx.Context, id uuid.UUID, readingWPM int) error
	DeleteByID(dbc dbctx.Context, id uuid.UUID) error
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return &courseRepo{db: db, log: baseLog.With("repo", "CourseRepo")}
}

func (r *courseRepo) Create(dbc dbctx.Context, courses []*types.Course) ([]*types.Course, error) {
	if len(courses) == 0 {
		return []*types.Course{}, nil
	}
	if err := dbc.Conn(r.db).Create(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

// GetByID returns gorm.ErrRecordNotFound when the course does not exist.
func (r *courseRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Course, error) {
	var out types.Course
	if err := dbc.Conn(r.db).
		Where("id = ?", id).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *courseRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Course, error) {
	var results []*types.Course
	if len(ids) == 0 {
		return results, nil
	}
	if err := dbc.Conn(r.db).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// LockByID takes a row lock on the course for the rest of dbc.Tx. SQLite
// has no row locks; its single writer already serializes the transaction.
func (r *courseRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Course, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	if !dbc.InTx() {
		return nil, fmt.Errorf("LockByID requires dbc.Tx")
	}
	q := dbc.Conn(nil)
	if q.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var out types.Course
	if err := q.
		Where("id = ?", id).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *courseRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit, offset int) ([]*types.Course, error) {
	var results []*types.Course
	if userID == uuid.Nil {
		return results, nil
	}
	if err := page(dbc.Conn(r.db), limit, offset).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *courseRepo) ListPublic(dbc dbctx.Context, limit, offset int) ([]*types.Course, error) {
	var results []*types.Course
	if err := page(dbc.Conn(r.db), limit, offset).
		Where("is_public = ?", true).
		Order("fork_count DESC").
		Order("created_at DESC").
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *courseRepo) ListIDs(dbc dbctx.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := dbc.Conn(r.db).
		Model(&types.Course{}).
		Order("created_at ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *courseRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.Conn(r.db).
		Model(&types.Course{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *courseRepo) IncrementForkCount(dbc dbctx.Context, id uuid.UUID) error {
	return dbc.Conn(r.db).
		Model(&types.Course{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"fork_count": gorm.Expr("fork_count + 1"),
			"updated_at": time.Now().UTC(),
		}).Error
}

// RecountStats recomputes the denormalized section statistics from the
// section rows. Read time is ceil(total words / readingWPM), not the sum of
// per-section read times.
func (r *courseRepo) RecountStats(dbc dbctx.Context, id uuid.UUID, readingWPM int) error {
	if readingWPM <= 0 {
		return fmt.Errorf("reading wpm must be positive, got %d", readingWPM)
	}
	return dbc.Conn(r.db).
		Model(&types.Course{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"section_count":     gorm.Expr("(SELECT COUNT(*) FROM course_section WHERE course_section.course_id = ?)", id),
			"word_count":        gorm.Expr("(SELECT COALESCE(SUM(word_count), 0) FROM course_section WHERE course_section.course_id = ?)", id),
			"read_time_minutes": gorm.Expr("(SELECT (COALESCE(SUM(word_count), 0) + ?) / ? FROM course_section WHERE course_section.course_id = ?)", readingWPM-1, readingWPM, id),
			"updated_at":        time.Now().UTC(),
		}).Error
}

func (r *courseRepo) DeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	return dbc.Conn(r.db).
		Where("id = ?", id).
		Delete(&types.Course{}).Error
}

func page(q *gorm.DB, limit, offset int) *gorm.DB {
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	return q
}
