package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-coursestore/internal/domain/content"
	"github.com/yungbote/neurobridge-coursestore/internal/domain/learning"
)

var CourseTreeAggregateContract = Contract{
	Name:             "Learning.CourseTreeAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes:            "Owns section tree structure (parent, order, depth), section content slots, course statistics and fork bookkeeping.",
}

// CourseTreeAggregate owns the structural invariants of a course tree:
// acyclic single-parent sections, bounded depth, contiguous sibling order.
//
// Write method failures return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeConflict, CodeDepthExceeded, CodeCycleDetected,
// CodeSelfForkRejected, CodeOwnershipViolation, CodeRetryable, CodeInternal.
type CourseTreeAggregate interface {
	Aggregate

	CreateCourse(ctx context.Context, in CreateCourseInput) (*learning.Course, error)
	SetVisibility(ctx context.Context, in SetVisibilityInput) (*learning.Course, error)
	// DeleteCourse removes the course, its sections and its fork records.
	DeleteCourse(ctx context.Context, in DeleteCourseInput) error

	CreateSection(ctx context.Context, in CreateSectionInput) (CreateSectionResult, error)
	RenameSection(ctx context.Context, in RenameSectionInput) (*learning.Section, error)
	// UpdateContent is the only write that touches content slots. It does not
	// serialize against structural writes on the same course.
	UpdateContent(ctx context.Context, in UpdateContentInput) (UpdateContentResult, error)
	Reparent(ctx context.Context, in ReparentInput) (*learning.Section, error)
	DeleteSection(ctx context.Context, in DeleteSectionInput) (DeleteSectionResult, error)
	SetCompletion(ctx context.Context, in SetCompletionInput) (*learning.Section, error)

	// ForkCourse deep-copies a course and its sections for a new owner.
	ForkCourse(ctx context.Context, in ForkCourseInput) (ForkCourseResult, error)
}

// Actor is the caller identity as asserted by the upstream gateway.
type Actor struct {
	UserID   uuid.UUID
	UserName string
}

type CreateCourseInput struct {
	Actor            Actor
	Title            string
	Description      string
	IsPublic         bool
	MaxDepth         int
	GenerationModel  string
	GenerationPrompt string
}

type SetVisibilityInput struct {
	Actor    Actor
	CourseID uuid.UUID
	IsPublic bool
}

type DeleteCourseInput struct {
	Actor    Actor
	CourseID uuid.UUID
}

type CreateSectionInput struct {
	Actor    Actor
	CourseID uuid.UUID
	ParentID *uuid.UUID
	Title    string
	// Content is optional initial content in SourceFormat.
	Content      string
	SourceFormat content.Format
	// ExpectedVersion, when set, must equal the course StructureVersion.
	ExpectedVersion *int
}

type CreateSectionResult struct {
	Section *learning.Section
	Report  ConversionReport
}

type RenameSectionInput struct {
	Actor     Actor
	SectionID uuid.UUID
	Title     string
}

type UpdateContentInput struct {
	Actor        Actor
	SectionID    uuid.UUID
	Text         string
	SourceFormat content.Format
}

// ConversionReport lists derived formats that could not be produced. A
// non-empty report is the soft CodeConversionUnavailable outcome; it is never
// returned as an error.
type ConversionReport struct {
	SourceFormat    content.Format      `json:"source_format"`
	PrimaryFormat   content.Format      `json:"primary_format"`
	PrimaryFellBack bool                `json:"primary_fell_back"`
	Unavailable     []UnavailableFormat `json:"unavailable,omitempty"`
	Code            ErrorCode           `json:"code,omitempty"`
}

type UnavailableFormat struct {
	Format content.Format `json:"format"`
	Reason string         `json:"reason"`
}

type UpdateContentResult struct {
	Section *learning.Section
	Report  ConversionReport
}

type ReparentInput struct {
	Actor       Actor
	SectionID   uuid.UUID
	NewParentID *uuid.UUID
	// NewOrder is clamped to the new sibling range; nil appends.
	NewOrder        *int
	ExpectedVersion *int
}

type DeleteSectionInput struct {
	Actor           Actor
	SectionID       uuid.UUID
	Cascade         bool
	ExpectedVersion *int
}

type DeleteSectionResult struct {
	CourseID         uuid.UUID
	DeletedIDs       []uuid.UUID
	ReparentedIDs    []uuid.UUID
	StructureVersion int
}

type SetCompletionInput struct {
	Actor     Actor
	SectionID uuid.UUID
	Done      bool
	At        time.Time
}

type ForkCourseInput struct {
	Actor    Actor
	CourseID uuid.UUID
}

type ForkCourseResult struct {
	Course       *learning.Course
	Record       *learning.CourseForkRecord
	SectionCount int
	// IDMap maps source section IDs to their copies.
	IDMap map[uuid.UUID]uuid.UUID
}
