package learning

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-coursestore/internal/domain"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/logger"
)

type ForkRecordRepo interface {
	Create(dbc dbctx.Context, rows []*types.CourseForkRecord) ([]*types.CourseForkRecord, error)
	ListByCourse(dbc dbctx.Context, courseID uuid.UUID, limit int) ([]*types.CourseForkRecord, error)
	CountByCourse(dbc dbctx.Context, courseID uuid.UUID) (int64, error)
	DeleteByCourseID(dbc dbctx.Context, courseID uuid.UUID) error
}

type forkRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewForkRecordRepo(db *gorm.DB, baseLog *logger.Logger) ForkRecordRepo {
	return &forkRecordRepo{db: db, log: baseLog.With("repo", "ForkRecordRepo")}
}

func (r *forkRecordRepo) Create(dbc dbctx.Context, rows []*types.CourseForkRecord) ([]*types.CourseForkRecord, error) {
	if len(rows) == 0 {
		return []*types.CourseForkRecord{}, nil
	}
	if err := dbc.Conn(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByCourse returns the newest fork records first.
func (r *forkRecordRepo) ListByCourse(dbc dbctx.Context, courseID uuid.UUID, limit int) ([]*types.CourseForkRecord, error) {
	var out []*types.CourseForkRecord
	if courseID == uuid.Nil {
		return out, nil
	}
	q := dbc.Conn(r.db).
		Where("course_id = ?", courseID).
		Order("forked_at DESC").
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *forkRecordRepo) CountByCourse(dbc dbctx.Context, courseID uuid.UUID) (int64, error) {
	var n int64
	if err := dbc.Conn(r.db).
		Model(&types.CourseForkRecord{}).
		Where("course_id = ?", courseID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *forkRecordRepo) DeleteByCourseID(dbc dbctx.Context, courseID uuid.UUID) error {
	if courseID == uuid.Nil {
		return nil
	}
	return dbc.Conn(r.db).
		Where("course_id = ?", courseID).
		Delete(&types.CourseForkRecord{}).Error
}
