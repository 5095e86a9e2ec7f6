package aggregates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-coursestore/internal/domain"
	domainagg "github.com/yungbote/neurobridge-coursestore/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-coursestore/internal/learning/hierarchy"
	"github.com/yungbote/neurobridge-coursestore/internal/learning/sectiontree"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/dbctx"
)

// ForkCourse copies a course and its whole section tree for the actor. The
// copy is private, keeps lineage to the source and starts with no progress.
// The source gains a fork record and a higher fork count. Everything happens
// in one transaction; a cancelled context between section copies rolls the
// fork back completely.
func (a *courseTreeAggregate) ForkCourse(ctx context.Context, in domainagg.ForkCourseInput) (domainagg.ForkCourseResult, error) {
	const op = "Learning.CourseTree.ForkCourse"
	var out domainagg.ForkCourseResult
	if in.Actor.UserID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	if in.CourseID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing course_id", nil)
	}

	unlock, err := a.deps.Locker.Lock(ctx, in.CourseID)
	if err != nil {
		return out, MapError(op, err)
	}
	defer unlock()

	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		source, err := a.deps.Courses.LockByID(dbc, in.CourseID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(op, "course", in.CourseID)
		}
		if err != nil {
			return err
		}
		if source.UserID == in.Actor.UserID {
			return domainagg.NewError(domainagg.CodeSelfForkRejected, op, "cannot fork your own course", nil)
		}
		if !source.IsPublic {
			return domainagg.NewError(domainagg.CodeOwnershipViolation, op, "course is private", nil)
		}

		sections, err := a.deps.Sections.ListByCourse(dbc, source.ID)
		if err != nil {
			return err
		}
		if vs := hierarchy.Check(source.ID, sections); len(vs) > 0 {
			return domainagg.NewError(domainagg.CodeIntegrityViolation, op, vs.Error(), vs)
		}

		now := time.Now().UTC()
		fork := forkedCourse(source, in.Actor, now)
		if _, err := a.deps.Courses.Create(dbc, []*types.Course{fork}); err != nil {
			return err
		}

		idMap := make(map[uuid.UUID]uuid.UUID, len(sections))
		for _, s := range sectiontree.NewIndex(source.ID, sections).Preorder() {
			if err := dbc.Ctx.Err(); err != nil {
				return err
			}
			cp, err := forkedSection(s, fork.ID, idMap)
			if err != nil {
				return err
			}
			if _, err := a.deps.Sections.Create(dbc, []*types.Section{cp}); err != nil {
				return err
			}
			idMap[s.ID] = cp.ID
		}

		record := &types.CourseForkRecord{
			ID:             uuid.New(),
			CourseID:       source.ID,
			ForkingUserID:  in.Actor.UserID,
			ForkedCourseID: fork.ID,
			ForkedAt:       now,
			SectionCount:   len(idMap),
		}
		if _, err := a.deps.Forks.Create(dbc, []*types.CourseForkRecord{record}); err != nil {
			return err
		}
		if err := a.deps.Courses.IncrementForkCount(dbc, source.ID); err != nil {
			return err
		}

		out = domainagg.ForkCourseResult{Course: fork, Record: record, SectionCount: len(idMap), IDMap: idMap}
		return nil
	})
	if err != nil {
		return domainagg.ForkCourseResult{}, err
	}
	a.deps.Base.Hooks.ObserveForkSize(out.SectionCount)
	a.deps.Base.Log.Info("course forked",
		"source_course_id", in.CourseID,
		"course_id", out.Course.ID,
		"user_id", in.Actor.UserID,
		"sections", out.SectionCount,
	)
	return out, nil
}

func forkedCourse(source *types.Course, actor domainagg.Actor, at time.Time) *types.Course {
	srcID := source.ID
	ownerID := source.UserID
	fork := &types.Course{
		ID:                 uuid.New(),
		UserID:             actor.UserID,
		UserName:           strings.TrimSpace(actor.UserName),
		Title:              source.Title,
		Description:        source.Description,
		IsPublic:           false,
		ForkedFromCourseID: &srcID,
		ForkedFromUserID:   &ownerID,
		ForkedAt:           &at,
		SectionCount:       source.SectionCount,
		WordCount:          source.WordCount,
		ReadTimeMinutes:    source.ReadTimeMinutes,
		GenerationModel:    source.GenerationModel,
		GenerationPrompt:   source.GenerationPrompt,
		MaxDepth:           source.MaxDepth,
		Metadata:           source.Metadata,
	}
	if name := strings.TrimSpace(source.UserName); name != "" {
		fork.ForkedFromUserName = &name
	}
	return fork
}

// forkedSection copies s into courseID. Content slots are copied verbatim;
// idMap must already hold the copy of s's parent.
func forkedSection(s *types.Section, courseID uuid.UUID, idMap map[uuid.UUID]uuid.UUID) (*types.Section, error) {
	cp := *s
	cp.ID = uuid.New()
	cp.CourseID = courseID
	cp.Course = nil
	cp.ParentID = nil
	if s.ParentID != nil {
		pid, ok := idMap[*s.ParentID]
		if !ok {
			return nil, InvariantError(fmt.Sprintf("parent %s of section %s not copied yet", *s.ParentID, s.ID))
		}
		cp.ParentID = &pid
	}
	cp.IsCompleted = false
	cp.CompletedAt = nil
	cp.CreatedAt = time.Time{}
	cp.UpdatedAt = time.Time{}
	return &cp, nil
}
