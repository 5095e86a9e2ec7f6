package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-coursestore/internal/data/repos"
	types "github.com/yungbote/neurobridge-coursestore/internal/domain"
	domainagg "github.com/yungbote/neurobridge-coursestore/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-coursestore/internal/learning/content"
	"github.com/yungbote/neurobridge-coursestore/internal/learning/hierarchy"
	"github.com/yungbote/neurobridge-coursestore/internal/learning/progress"
	"github.com/yungbote/neurobridge-coursestore/internal/learning/validation"
	"github.com/yungbote/neurobridge-coursestore/internal/observability"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/logger"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200

	// sharedLoadTimeout bounds a tree load that outlives its first caller.
	sharedLoadTimeout = 30 * time.Second
)

// CourseTreeService is the application surface over the course tree. Writes
// delegate to CourseTreeAggregate; reads assemble trees, progress and
// integrity reports from the repos.
type CourseTreeService interface {
	CreateCourse(ctx context.Context, in domainagg.CreateCourseInput) (*types.Course, error)
	SetVisibility(ctx context.Context, in domainagg.SetVisibilityInput) (*types.Course, error)
	DeleteCourse(ctx context.Context, in domainagg.DeleteCourseInput) error
	CreateSection(ctx context.Context, in domainagg.CreateSectionInput) (domainagg.CreateSectionResult, error)
	RenameSection(ctx context.Context, in domainagg.RenameSectionInput) (*types.Section, error)
	UpdateContent(ctx context.Context, in domainagg.UpdateContentInput) (domainagg.UpdateContentResult, error)
	Reparent(ctx context.Context, in domainagg.ReparentInput) (*types.Section, error)
	DeleteSection(ctx context.Context, in domainagg.DeleteSectionInput) (domainagg.DeleteSectionResult, error)
	SetCompletion(ctx context.Context, in domainagg.SetCompletionInput) (*types.Section, error)
	ForkCourse(ctx context.Context, in domainagg.ForkCourseInput) (domainagg.ForkCourseResult, error)

	GetCourse(ctx context.Context, actor domainagg.Actor, courseID uuid.UUID) (*types.Course, error)
	GetSection(ctx context.Context, actor domainagg.Actor, sectionID uuid.UUID) (*types.Section, error)
	ListUserCourses(ctx context.Context, userID uuid.UUID, page Page) ([]*types.Course, error)
	ListPublicCourses(ctx context.Context, page Page) ([]*types.Course, error)
	ListForkRecords(ctx context.Context, actor domainagg.Actor, courseID uuid.UUID, limit int) ([]*types.CourseForkRecord, error)

	BuildTree(ctx context.Context, actor domainagg.Actor, courseID uuid.UUID, opts hierarchy.Options) (*TreeView, error)
	ComputeProgress(ctx context.Context, actor domainagg.Actor, courseID uuid.UUID) (progress.Snapshot, error)
	CheckInvariants(ctx context.Context, courseID uuid.UUID) (validation.InvariantReport, error)
	CheckAllInvariants(ctx context.Context) ([]validation.InvariantReport, error)
}

type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalized() Page {
	if p.Limit <= 0 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// TreeView is an assembled course tree.
type TreeView struct {
	Course *types.Course     `json:"course"`
	Roots  []*hierarchy.Node `json:"roots"`
}

type courseTreeService struct {
	log       *logger.Logger
	agg       domainagg.CourseTreeAggregate
	courses   repos.CourseRepo
	sections  repos.SectionRepo
	forks     repos.ForkRecordRepo
	converter *content.Converter
	metrics   *observability.Metrics
	tracer    trace.Tracer

	trees singleflight.Group
}

func NewCourseTreeService(
	baseLog *logger.Logger,
	agg domainagg.CourseTreeAggregate,
	courses repos.CourseRepo,
	sections repos.SectionRepo,
	forks repos.ForkRecordRepo,
	converter *content.Converter,
	metrics *observability.Metrics,
) CourseTreeService {
	if converter == nil {
		converter = content.NewConverter(content.DefaultReadingWPM)
	}
	return &courseTreeService{
		log:       baseLog.With("service", "CourseTreeService"),
		agg:       agg,
		courses:   courses,
		sections:  sections,
		forks:     forks,
		converter: converter,
		metrics:   metrics,
		tracer:    observability.Tracer(),
	}
}

func (s *courseTreeService) CreateCourse(ctx context.Context, in domainagg.CreateCourseInput) (*types.Course, error) {
	ctx, span := s.start(ctx, "CourseTree.CreateCourse")
	defer span.End()
	c, err := s.agg.CreateCourse(ctx, in)
	return c, record(span, err)
}

func (s *courseTreeService) SetVisibility(ctx context.Context, in domainagg.SetVisibilityInput) (*types.Course, error) {
	ctx, span := s.start(ctx, "CourseTree.SetVisibility", attribute.String("course_id", in.CourseID.String()))
	defer span.End()
	c, err := s.agg.SetVisibility(ctx, in)
	return c, record(span, err)
}

func (s *courseTreeService) DeleteCourse(ctx context.Context, in domainagg.DeleteCourseInput) error {
	ctx, span := s.start(ctx, "CourseTree.DeleteCourse", attribute.String("course_id", in.CourseID.String()))
	defer span.End()
	return record(span, s.agg.DeleteCourse(ctx, in))
}

func (s *courseTreeService) CreateSection(ctx context.Context, in domainagg.CreateSectionInput) (domainagg.CreateSectionResult, error) {
	ctx, span := s.start(ctx, "CourseTree.CreateSection", attribute.String("course_id", in.CourseID.String()))
	defer span.End()
	res, err := s.agg.CreateSection(ctx, in)
	return res, record(span, err)
}

func (s *courseTreeService) RenameSection(ctx context.Context, in domainagg.RenameSectionInput) (*types.Section, error) {
	ctx, span := s.start(ctx, "CourseTree.RenameSection", attribute.String("section_id", in.SectionID.String()))
	defer span.End()
	sec, err := s.agg.RenameSection(ctx, in)
	return sec, record(span, err)
}

func (s *courseTreeService) UpdateContent(ctx context.Context, in domainagg.UpdateContentInput) (domainagg.UpdateContentResult, error) {
	ctx, span := s.start(ctx, "CourseTree.UpdateContent",
		attribute.String("section_id", in.SectionID.String()),
		attribute.String("source_format", string(in.SourceFormat)),
		attribute.Int("content_bytes", len(in.Text)),
	)
	defer span.End()
	res, err := s.agg.UpdateContent(ctx, in)
	if err == nil && len(res.Report.Unavailable) > 0 {
		span.SetAttributes(attribute.Int("unavailable_formats", len(res.Report.Unavailable)))
	}
	return res, record(span, err)
}

func (s *courseTreeService) Reparent(ctx context.Context, in domainagg.ReparentInput) (*types.Section, error) {
	ctx, span := s.start(ctx, "CourseTree.Reparent", attribute.String("section_id", in.SectionID.String()))
	defer span.End()
	sec, err := s.agg.Reparent(ctx, in)
	return sec, record(span, err)
}

func (s *courseTreeService) DeleteSection(ctx context.Context, in domainagg.DeleteSectionInput) (domainagg.DeleteSectionResult, error) {
	ctx, span := s.start(ctx, "CourseTree.DeleteSection",
		attribute.String("section_id", in.SectionID.String()),
		attribute.Bool("cascade", in.Cascade),
	)
	defer span.End()
	res, err := s.agg.DeleteSection(ctx, in)
	return res, record(span, err)
}

func (s *courseTreeService) SetCompletion(ctx context.Context, in domainagg.SetCompletionInput) (*types.Section, error) {
	ctx, span := s.start(ctx, "CourseTree.SetCompletion", attribute.String("section_id", in.SectionID.String()))
	defer span.End()
	sec, err := s.agg.SetCompletion(ctx, in)
	return sec, record(span, err)
}

func (s *courseTreeService) ForkCourse(ctx context.Context, in domainagg.ForkCourseInput) (domainagg.ForkCourseResult, error) {
	ctx, span := s.start(ctx, "CourseTree.ForkCourse", attribute.String("course_id", in.CourseID.String()))
	defer span.End()
	res, err := s.agg.ForkCourse(ctx, in)
	if err == nil {
		span.SetAttributes(attribute.Int("sections", res.SectionCount))
	}
	return res, record(span, err)
}

// GetCourse returns a course its owner or, when public, anyone may read.
func (s *courseTreeService) GetCourse(ctx context.Context, actor domainagg.Actor, courseID uuid.UUID) (*types.Course, error) {
	return s.readableCourse(ctx, "CourseTree.GetCourse", actor, courseID)
}

func (s *courseTreeService) GetSection(ctx context.Context, actor domainagg.Actor, sectionID uuid.UUID) (*types.Section, error) {
	const op = "CourseTree.GetSection"
	ctx, span := s.start(ctx, op, attribute.String("section_id", sectionID.String()))
	defer span.End()
	sec, err := s.sections.GetByID(dbctx.Context{Ctx: ctx}, sectionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, record(span, domainagg.NewError(domainagg.CodeNotFound, op, "section not found", err))
	}
	if err != nil {
		return nil, record(span, fmt.Errorf("load section: %w", err))
	}
	if _, err := s.readableCourse(ctx, op, actor, sec.CourseID); err != nil {
		return nil, record(span, err)
	}
	return sec, nil
}

func (s *courseTreeService) ListUserCourses(ctx context.Context, userID uuid.UUID, page Page) ([]*types.Course, error) {
	const op = "CourseTree.ListUserCourses"
	if userID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	page = page.normalized()
	return s.courses.ListByUser(dbctx.Context{Ctx: ctx}, userID, page.Limit, page.Offset)
}

func (s *courseTreeService) ListPublicCourses(ctx context.Context, page Page) ([]*types.Course, error) {
	page = page.normalized()
	return s.courses.ListPublic(dbctx.Context{Ctx: ctx}, page.Limit, page.Offset)
}

// ListForkRecords is restricted to the source course owner.
func (s *courseTreeService) ListForkRecords(ctx context.Context, actor domainagg.Actor, courseID uuid.UUID, limit int) ([]*types.CourseForkRecord, error) {
	const op = "CourseTree.ListForkRecords"
	course, err := s.readableCourse(ctx, op, actor, courseID)
	if err != nil {
		return nil, err
	}
	if course.UserID != actor.UserID {
		return nil, domainagg.NewError(domainagg.CodeOwnershipViolation, op, "only the owner can list forks", nil)
	}
	limit = Page{Limit: limit}.normalized().Limit
	return s.forks.ListByCourse(dbctx.Context{Ctx: ctx}, courseID, limit)
}

// BuildTree assembles the course tree. Concurrent identical reads of one
// course share a single load and assembly; callers must treat the returned
// nodes as read-only.
func (s *courseTreeService) BuildTree(ctx context.Context, actor domainagg.Actor, courseID uuid.UUID, opts hierarchy.Options) (*TreeView, error) {
	const op = "CourseTree.BuildTree"
	ctx, span := s.start(ctx, op,
		attribute.String("course_id", courseID.String()),
		attribute.Bool("include_content", opts.IncludeContent),
	)
	defer span.End()

	course, err := s.readableCourse(ctx, op, actor, courseID)
	if err != nil {
		return nil, record(span, err)
	}

	// The shared load is detached from any single caller's cancellation;
	// each caller stops waiting on its own ctx.
	key := treeKey(courseID, course.StructureVersion, opts)
	ch := s.trees.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLoadTimeout)
		defer cancel()
		return s.assemble(loadCtx, courseID, opts)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, record(span, domainagg.Wrap(domainagg.CodeRetryable, op, ctx.Err()))
	}
	s.metrics.IncTreeBuild(outcome(res.Err), res.Shared)
	if res.Err != nil {
		s.log.Warn("build tree failed", "course_id", courseID, "error", res.Err)
		return nil, record(span, res.Err)
	}
	span.SetAttributes(attribute.Bool("shared", res.Shared))
	return &TreeView{Course: course, Roots: res.Val.([]*hierarchy.Node)}, nil
}

func (s *courseTreeService) assemble(ctx context.Context, courseID uuid.UUID, opts hierarchy.Options) ([]*hierarchy.Node, error) {
	dbc := dbctx.Context{Ctx: ctx}
	var (
		rows []*types.Section
		err  error
	)
	if opts.IncludeContent {
		rows, err = s.sections.ListByCourse(dbc, courseID)
	} else {
		rows, err = s.sections.ListStructureByCourse(dbc, courseID)
	}
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return hierarchy.BuildTree(courseID, rows, opts)
}

// ComputeProgress is owner-only: completion flags belong to the owner.
func (s *courseTreeService) ComputeProgress(ctx context.Context, actor domainagg.Actor, courseID uuid.UUID) (progress.Snapshot, error) {
	const op = "CourseTree.ComputeProgress"
	ctx, span := s.start(ctx, op, attribute.String("course_id", courseID.String()))
	defer span.End()

	course, err := s.readableCourse(ctx, op, actor, courseID)
	if err != nil {
		return progress.Snapshot{}, record(span, err)
	}
	if course.UserID != actor.UserID {
		return progress.Snapshot{}, record(span, domainagg.NewError(domainagg.CodeOwnershipViolation, op, "progress is visible to the owner only", nil))
	}
	roots, err := s.assemble(ctx, courseID, hierarchy.Options{})
	if err != nil {
		return progress.Snapshot{}, record(span, err)
	}
	snap := progress.Compute(roots)
	span.SetAttributes(
		attribute.Int("leaves", snap.TotalLeaves),
		attribute.Int("completed", snap.CompletedLeaves),
	)
	return snap, nil
}

// CheckInvariants validates one course snapshot. It reads outside any
// transaction, so a concurrent write can surface as a transient failure.
func (s *courseTreeService) CheckInvariants(ctx context.Context, courseID uuid.UUID) (validation.InvariantReport, error) {
	const op = "CourseTree.CheckInvariants"
	ctx, span := s.start(ctx, op, attribute.String("course_id", courseID.String()))
	defer span.End()

	dbc := dbctx.Context{Ctx: ctx}
	course, err := s.courses.GetByID(dbc, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return validation.InvariantReport{}, record(span, domainagg.NewError(domainagg.CodeNotFound, op, "course not found", err))
	}
	if err != nil {
		return validation.InvariantReport{}, record(span, fmt.Errorf("load course: %w", err))
	}
	rows, err := s.sections.ListByCourse(dbc, courseID)
	if err != nil {
		return validation.InvariantReport{}, record(span, fmt.Errorf("list sections: %w", err))
	}
	report := validation.ValidateCourseTree(course, rows, s.converter)
	span.SetAttributes(attribute.String("status", report.Status))
	if !report.OK() {
		s.log.Warn("course tree invariants failed", "course_id", courseID, "failed", report.Failed())
	}
	return report, nil
}

// CheckAllInvariants runs CheckInvariants over every course and stops on the
// first load error or cancellation.
func (s *courseTreeService) CheckAllInvariants(ctx context.Context) ([]validation.InvariantReport, error) {
	ids, err := s.courses.ListIDs(dbctx.Context{Ctx: ctx})
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	out := make([]validation.InvariantReport, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		r, err := s.CheckInvariants(ctx, id)
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *courseTreeService) readableCourse(ctx context.Context, op string, actor domainagg.Actor, courseID uuid.UUID) (*types.Course, error) {
	if courseID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing course_id", nil)
	}
	course, err := s.courses.GetByID(dbctx.Context{Ctx: ctx}, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "course not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if !course.IsPublic && course.UserID != actor.UserID {
		return nil, domainagg.NewError(domainagg.CodeOwnershipViolation, op, "course is private", nil)
	}
	return course, nil
}

func (s *courseTreeService) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// record marks the span failed. Structural rejections are expected caller
// outcomes and only annotate the span.
func record(span trace.Span, err error) error {
	if err == nil {
		return nil
	}
	code := domainagg.CodeOf(err)
	span.SetAttributes(attribute.String("outcome", outcome(err)))
	if code.Structural() {
		return err
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome(err))
	return err
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	if code := domainagg.CodeOf(err); code != "" {
		return string(code)
	}
	return string(domainagg.CodeInternal)
}

func treeKey(courseID uuid.UUID, version int, opts hierarchy.Options) string {
	depth := "all"
	if opts.MaxDepth != nil {
		depth = strconv.Itoa(*opts.MaxDepth)
	}
	return fmt.Sprintf("%s/%d/%s/%t", courseID, version, depth, opts.IncludeContent)
}
