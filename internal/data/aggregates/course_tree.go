package aggregates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-coursestore/internal/data/repos"
	types "github.com/yungbote/neurobridge-coursestore/internal/domain"
	domainagg "github.com/yungbote/neurobridge-coursestore/internal/domain/aggregates"
	dc "github.com/yungbote/neurobridge-coursestore/internal/domain/content"
	"github.com/yungbote/neurobridge-coursestore/internal/learning/content"
	"github.com/yungbote/neurobridge-coursestore/internal/learning/sectiontree"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/dbctx"
)

const (
	courseTable            = "course"
	structureVersionColumn = "structure_version"
	maxTitleRunes          = 300
	// maxDepthCeiling bounds the per-course max depth a caller may request.
	maxDepthCeiling = 32
)

type CourseTreeAggregateDeps struct {
	Base BaseDeps

	Courses  repos.CourseRepo
	Sections repos.SectionRepo
	Forks    repos.ForkRecordRepo

	Converter *content.Converter
	Locker    CourseLocker
	// DefaultMaxDepth applies to courses created without an explicit max depth.
	DefaultMaxDepth int
}

type courseTreeAggregate struct {
	deps CourseTreeAggregateDeps
}

func NewCourseTreeAggregate(deps CourseTreeAggregateDeps) domainagg.CourseTreeAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.Converter == nil {
		deps.Converter = content.NewConverter(content.DefaultReadingWPM)
	}
	if deps.Locker == nil {
		deps.Locker = NewLocalLocker()
	}
	if deps.DefaultMaxDepth <= 0 {
		deps.DefaultMaxDepth = types.DefaultMaxDepth
	}
	return &courseTreeAggregate{deps: deps}
}

func (a *courseTreeAggregate) Contract() domainagg.Contract {
	return domainagg.CourseTreeAggregateContract
}

func (a *courseTreeAggregate) CreateCourse(ctx context.Context, in domainagg.CreateCourseInput) (*types.Course, error) {
	const op = "Learning.CourseTree.CreateCourse"
	if in.Actor.UserID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	title, err := normalizeTitle(in.Title)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, err.Error(), err)
	}
	maxDepth := in.MaxDepth
	if maxDepth <= 0 {
		maxDepth = a.deps.DefaultMaxDepth
	}
	if maxDepth > maxDepthCeiling {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("max depth must not exceed %d", maxDepthCeiling), nil)
	}

	course := &types.Course{
		ID:               uuid.New(),
		UserID:           in.Actor.UserID,
		UserName:         strings.TrimSpace(in.Actor.UserName),
		Title:            title,
		Description:      strings.TrimSpace(in.Description),
		IsPublic:         in.IsPublic,
		GenerationModel:  strings.TrimSpace(in.GenerationModel),
		GenerationPrompt: in.GenerationPrompt,
		MaxDepth:         maxDepth,
	}
	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		_, err := a.deps.Courses.Create(dbc, []*types.Course{course})
		return err
	})
	if err != nil {
		return nil, err
	}
	return course, nil
}

func (a *courseTreeAggregate) SetVisibility(ctx context.Context, in domainagg.SetVisibilityInput) (*types.Course, error) {
	const op = "Learning.CourseTree.SetVisibility"
	var out *types.Course
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		course, err := a.lockOwnedCourse(dbc, op, in.Actor, in.CourseID)
		if err != nil {
			return err
		}
		if course.IsPublic != in.IsPublic {
			if err := a.deps.Courses.UpdateFields(dbc, course.ID, map[string]interface{}{"is_public": in.IsPublic}); err != nil {
				return err
			}
		}
		course.IsPublic = in.IsPublic
		out = course
		return nil
	})
	return out, err
}

func (a *courseTreeAggregate) DeleteCourse(ctx context.Context, in domainagg.DeleteCourseInput) error {
	const op = "Learning.CourseTree.DeleteCourse"
	return a.structural(ctx, op, in.Actor, in.CourseID, func(dbc dbctx.Context, course *types.Course, _ *sectiontree.Index) (bool, error) {
		if err := a.deps.Sections.DeleteByCourseID(dbc, course.ID); err != nil {
			return false, err
		}
		if err := a.deps.Forks.DeleteByCourseID(dbc, course.ID); err != nil {
			return false, err
		}
		return false, a.deps.Courses.DeleteByID(dbc, course.ID)
	})
}

func (a *courseTreeAggregate) CreateSection(ctx context.Context, in domainagg.CreateSectionInput) (domainagg.CreateSectionResult, error) {
	const op = "Learning.CourseTree.CreateSection"
	var out domainagg.CreateSectionResult
	title, err := normalizeTitle(in.Title)
	if err != nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, err.Error(), err)
	}
	source, err := sourceFormat(in.SourceFormat)
	if err != nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, err.Error(), err)
	}

	err = a.structural(ctx, op, in.Actor, in.CourseID, func(dbc dbctx.Context, course *types.Course, idx *sectiontree.Index) (bool, error) {
		if err := RequireVersionMatch(course.StructureVersion, in.ExpectedVersion); err != nil {
			return false, err
		}
		placement, err := sectiontree.CreatePlacement(idx, in.ParentID, course.MaxDepth)
		if err != nil {
			return false, err
		}
		section := &types.Section{
			ID:       uuid.New(),
			CourseID: course.ID,
			ParentID: placement.ParentID,
			Order:    placement.Order,
			Depth:    placement.Depth,
			Title:    title,
		}
		out.Report = domainagg.ConversionReport{SourceFormat: source, PrimaryFormat: dc.FormatStructuredText}
		if in.Content != "" {
			rpt, err := a.applyContent(op, section, dc.Empty(), in.Content, source)
			if err != nil {
				return false, err
			}
			out.Report = rpt
		}
		if _, err := a.deps.Sections.Create(dbc, []*types.Section{section}); err != nil {
			return false, err
		}
		if err := a.deps.Courses.RecountStats(dbc, course.ID, a.deps.Converter.ReadingWPM); err != nil {
			return false, err
		}
		out.Section = section
		return true, nil
	})
	if err != nil {
		return domainagg.CreateSectionResult{}, err
	}
	return out, nil
}

func (a *courseTreeAggregate) RenameSection(ctx context.Context, in domainagg.RenameSectionInput) (*types.Section, error) {
	const op = "Learning.CourseTree.RenameSection"
	title, err := normalizeTitle(in.Title)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, err.Error(), err)
	}
	var out *types.Section
	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		section, err := a.ownedSection(dbc, op, in.Actor, in.SectionID)
		if err != nil {
			return err
		}
		if err := a.updateSection(dbc, op, section.ID, map[string]interface{}{"title": title}); err != nil {
			return err
		}
		section.Title = title
		out = section
		return nil
	})
	return out, err
}

func (a *courseTreeAggregate) UpdateContent(ctx context.Context, in domainagg.UpdateContentInput) (domainagg.UpdateContentResult, error) {
	const op = "Learning.CourseTree.UpdateContent"
	var out domainagg.UpdateContentResult
	source, err := sourceFormat(in.SourceFormat)
	if err != nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, err.Error(), err)
	}
	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		section, err := a.ownedSection(dbc, op, in.Actor, in.SectionID)
		if err != nil {
			return err
		}
		prev, err := section.Representation()
		if err != nil {
			a.deps.Base.Log.Warn("stored content unreadable, replacing", "section_id", section.ID, "error", err)
			prev = dc.Empty()
		}
		rpt, err := a.applyContent(op, section, prev, in.Text, source)
		if err != nil {
			return err
		}
		if err := a.updateSection(dbc, op, section.ID, section.ContentColumns()); err != nil {
			return err
		}
		if err := a.deps.Courses.RecountStats(dbc, section.CourseID, a.deps.Converter.ReadingWPM); err != nil {
			return err
		}
		out = domainagg.UpdateContentResult{Section: section, Report: rpt}
		return nil
	})
	if err != nil {
		return domainagg.UpdateContentResult{}, err
	}
	return out, nil
}

func (a *courseTreeAggregate) Reparent(ctx context.Context, in domainagg.ReparentInput) (*types.Section, error) {
	const op = "Learning.CourseTree.Reparent"
	courseID, err := a.courseOfSection(ctx, op, in.SectionID)
	if err != nil {
		return nil, err
	}
	var out *types.Section
	err = a.structural(ctx, op, in.Actor, courseID, func(dbc dbctx.Context, course *types.Course, idx *sectiontree.Index) (bool, error) {
		if err := RequireVersionMatch(course.StructureVersion, in.ExpectedVersion); err != nil {
			return false, err
		}
		plan, err := sectiontree.PlanReparent(idx, in.SectionID, in.NewParentID, in.NewOrder, course.MaxDepth)
		if err != nil {
			return false, err
		}
		if err := a.applyPlan(dbc, plan); err != nil {
			return false, err
		}
		out, err = a.deps.Sections.GetByID(dbc, in.SectionID)
		if err != nil {
			return false, err
		}
		return !plan.Empty(), nil
	})
	return out, err
}

func (a *courseTreeAggregate) DeleteSection(ctx context.Context, in domainagg.DeleteSectionInput) (domainagg.DeleteSectionResult, error) {
	const op = "Learning.CourseTree.DeleteSection"
	var out domainagg.DeleteSectionResult
	courseID, err := a.courseOfSection(ctx, op, in.SectionID)
	if err != nil {
		return out, err
	}
	err = a.structural(ctx, op, in.Actor, courseID, func(dbc dbctx.Context, course *types.Course, idx *sectiontree.Index) (bool, error) {
		if err := RequireVersionMatch(course.StructureVersion, in.ExpectedVersion); err != nil {
			return false, err
		}
		plan, err := sectiontree.PlanDelete(idx, in.SectionID, in.Cascade)
		if err != nil {
			return false, err
		}
		if err := a.applyPlan(dbc, plan); err != nil {
			return false, err
		}
		if err := a.deps.Courses.RecountStats(dbc, course.ID, a.deps.Converter.ReadingWPM); err != nil {
			return false, err
		}
		out.CourseID = course.ID
		out.DeletedIDs = plan.Deleted
		out.ReparentedIDs = []uuid.UUID{}
		if !in.Cascade {
			for _, kid := range idx.Children(&in.SectionID) {
				out.ReparentedIDs = append(out.ReparentedIDs, kid.ID)
			}
		}
		out.StructureVersion = course.StructureVersion + 1
		return true, nil
	})
	if err != nil {
		return domainagg.DeleteSectionResult{}, err
	}
	return out, nil
}

func (a *courseTreeAggregate) SetCompletion(ctx context.Context, in domainagg.SetCompletionInput) (*types.Section, error) {
	const op = "Learning.CourseTree.SetCompletion"
	var out *types.Section
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		section, err := a.ownedSection(dbc, op, in.Actor, in.SectionID)
		if err != nil {
			return err
		}
		var completedAt *time.Time
		if in.Done {
			at := in.At.UTC()
			if in.At.IsZero() {
				at = time.Now().UTC()
			}
			completedAt = &at
		}
		if err := a.updateSection(dbc, op, section.ID, map[string]interface{}{
			"is_completed": in.Done,
			"completed_at": completedAt,
		}); err != nil {
			return err
		}
		section.IsCompleted = in.Done
		section.CompletedAt = completedAt
		out = section
		return nil
	})
	return out, err
}

// structural runs fn as a structural write on courseID: the per-course lock
// is held for the whole transaction, the course row is locked, and when fn
// reports a change the course structure version is advanced by CAS.
func (a *courseTreeAggregate) structural(ctx context.Context, op string, actor domainagg.Actor, courseID uuid.UUID, fn func(dbc dbctx.Context, course *types.Course, idx *sectiontree.Index) (bool, error)) error {
	if courseID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing course_id", nil)
	}
	unlock, err := a.deps.Locker.Lock(ctx, courseID)
	if err != nil {
		return MapError(op, err)
	}
	defer unlock()

	return executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		course, err := a.lockOwnedCourse(dbc, op, actor, courseID)
		if err != nil {
			return err
		}
		sections, err := a.deps.Sections.ListStructureByCourse(dbc, courseID)
		if err != nil {
			return err
		}
		changed, err := fn(dbc, course, sectiontree.NewIndex(courseID, sections))
		if err != nil || !changed {
			return err
		}
		_, err = a.deps.Base.CASGuard.BumpVersion(dbc, courseTable, courseID, structureVersionColumn, course.StructureVersion, map[string]any{
			"updated_at": time.Now().UTC(),
		})
		return err
	})
}

func (a *courseTreeAggregate) lockOwnedCourse(dbc dbctx.Context, op string, actor domainagg.Actor, courseID uuid.UUID) (*types.Course, error) {
	if actor.UserID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	course, err := a.deps.Courses.LockByID(dbc, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(op, "course", courseID)
	}
	if err != nil {
		return nil, err
	}
	if course.UserID != actor.UserID {
		return nil, domainagg.NewError(domainagg.CodeOwnershipViolation, op, "course belongs to another user", nil)
	}
	return course, nil
}

// ownedSection loads a section for a non-structural write and checks that
// the actor owns its course.
func (a *courseTreeAggregate) ownedSection(dbc dbctx.Context, op string, actor domainagg.Actor, sectionID uuid.UUID) (*types.Section, error) {
	if actor.UserID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	if sectionID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing section_id", nil)
	}
	section, err := a.deps.Sections.GetByID(dbc, sectionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(op, "section", sectionID)
	}
	if err != nil {
		return nil, err
	}
	course, err := a.deps.Courses.GetByID(dbc, section.CourseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(op, "course", section.CourseID)
	}
	if err != nil {
		return nil, err
	}
	if course.UserID != actor.UserID {
		return nil, domainagg.NewError(domainagg.CodeOwnershipViolation, op, "course belongs to another user", nil)
	}
	return section, nil
}

// courseOfSection resolves the course a section belongs to ahead of taking
// the course lock. The structural transaction re-reads the section.
func (a *courseTreeAggregate) courseOfSection(ctx context.Context, op string, sectionID uuid.UUID) (uuid.UUID, error) {
	if sectionID == uuid.Nil {
		return uuid.Nil, domainagg.NewError(domainagg.CodeValidation, op, "missing section_id", nil)
	}
	section, err := a.deps.Sections.GetByID(dbctx.Context{Ctx: ctx}, sectionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, notFound(op, "section", sectionID)
	}
	if err != nil {
		return uuid.Nil, MapError(op, err)
	}
	return section.CourseID, nil
}

func (a *courseTreeAggregate) applyPlan(dbc dbctx.Context, plan sectiontree.Plan) error {
	for _, p := range plan.Updates {
		if err := a.deps.Sections.UpdateFields(dbc, p.ID, p.Columns()); err != nil {
			return err
		}
	}
	return a.deps.Sections.DeleteByIDs(dbc, plan.Deleted)
}

// applyContent converts text and writes the result into section's content
// fields. Unavailable derived formats are reported, not returned as errors.
func (a *courseTreeAggregate) applyContent(op string, section *types.Section, prev dc.Representation, text string, source dc.Format) (domainagg.ConversionReport, error) {
	rep, rpt, err := a.deps.Converter.SetContent(prev, text, source)
	if err != nil {
		return domainagg.ConversionReport{}, domainagg.NewError(domainagg.CodeValidation, op, err.Error(), err)
	}
	if err := section.ApplyRepresentation(rep); err != nil {
		return domainagg.ConversionReport{}, err
	}
	section.WordCount = rpt.Stats.WordCount
	section.ReadTimeMinutes = rpt.Stats.ReadTimeMinutes
	section.ContentHash = rpt.ContentHash

	out := domainagg.ConversionReport{
		SourceFormat:    rpt.Source,
		PrimaryFormat:   rpt.Primary,
		PrimaryFellBack: rpt.PrimaryFellBack,
	}
	for _, f := range rpt.Unavailable {
		out.Unavailable = append(out.Unavailable, domainagg.UnavailableFormat{Format: f.Format, Reason: f.Reason})
		a.deps.Base.Hooks.IncConversionFallback(string(f.Format))
	}
	if rpt.Degraded() {
		out.Code = domainagg.CodeConversionUnavailable
		a.deps.Base.Log.Info("content stored with unavailable formats",
			"op", op,
			"section_id", section.ID,
			"primary", rpt.Primary,
			"unavailable", len(rpt.Unavailable),
		)
	}
	return out, nil
}

func sourceFormat(f dc.Format) (dc.Format, error) {
	if f == "" {
		return dc.FormatStructuredText, nil
	}
	return dc.ParseFormat(string(f))
}

func normalizeTitle(raw string) (string, error) {
	clean, _ := content.SanitizeInbound(raw)
	title := strings.Join(strings.Fields(clean), " ")
	if title == "" {
		return "", errors.New("title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleRunes {
		return "", fmt.Errorf("title exceeds %d characters", maxTitleRunes)
	}
	return title, nil
}

// updateSection writes cols to one section. These writes skip the course
// lock, so a row deleted after it was read surfaces as not_found.
func (a *courseTreeAggregate) updateSection(dbc dbctx.Context, op string, id uuid.UUID, cols map[string]interface{}) error {
	err := a.deps.Sections.UpdateFields(dbc, id, cols)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(op, "section", id)
	}
	return err
}
