package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-coursestore/internal/data/aggregates"
	"github.com/yungbote/neurobridge-coursestore/internal/data/repos"
	repotest "github.com/yungbote/neurobridge-coursestore/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-coursestore/internal/domain"
	domainagg "github.com/yungbote/neurobridge-coursestore/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-coursestore/internal/learning/content"
	"github.com/yungbote/neurobridge-coursestore/internal/learning/hierarchy"
	"github.com/yungbote/neurobridge-coursestore/internal/learning/validation"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/dbctx"
)

type serviceFixture struct {
	svc      CourseTreeService
	sections repos.SectionRepo
	owner    domainagg.Actor
	ctx      context.Context

	// with builds a second service over the same store with another section repo.
	with func(sections repos.SectionRepo) CourseTreeService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	db := repotest.DB(t)
	log := repotest.Logger(t)
	courses := repos.NewCourseRepo(db, log)
	sections := repos.NewSectionRepo(db, log)
	forks := repos.NewForkRecordRepo(db, log)
	conv := content.NewConverter(200)
	agg := aggregates.NewCourseTreeAggregate(aggregates.CourseTreeAggregateDeps{
		Base:      aggregates.BaseDeps{DB: db, Log: log},
		Courses:   courses,
		Sections:  sections,
		Forks:     forks,
		Converter: conv,
	})
	return &serviceFixture{
		svc:      NewCourseTreeService(log, agg, courses, sections, forks, conv, nil),
		sections: sections,
		owner:    domainagg.Actor{UserID: uuid.New(), UserName: "ada"},
		ctx:      context.Background(),
		with: func(sr repos.SectionRepo) CourseTreeService {
			return NewCourseTreeService(log, agg, courses, sr, forks, conv, nil)
		},
	}
}

// seed builds: part1{a, b}, part2{c}; a is completed.
func (f *serviceFixture) seed(t *testing.T, public bool) (uuid.UUID, map[string]uuid.UUID) {
	t.Helper()
	c, err := f.svc.CreateCourse(f.ctx, domainagg.CreateCourseInput{Actor: f.owner, Title: "Go", IsPublic: public})
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	ids := map[string]uuid.UUID{}
	add := func(title string, parent string) {
		in := domainagg.CreateSectionInput{Actor: f.owner, CourseID: c.ID, Title: title, Content: "words about " + title}
		if parent != "" {
			pid := ids[parent]
			in.ParentID = &pid
		}
		res, err := f.svc.CreateSection(f.ctx, in)
		if err != nil {
			t.Fatalf("CreateSection %s: %v", title, err)
		}
		ids[title] = res.Section.ID
	}
	add("part1", "")
	add("part2", "")
	add("a", "part1")
	add("b", "part1")
	add("c", "part2")
	if _, err := f.svc.SetCompletion(f.ctx, domainagg.SetCompletionInput{Actor: f.owner, SectionID: ids["a"], Done: true}); err != nil {
		t.Fatalf("SetCompletion: %v", err)
	}
	return c.ID, ids
}

func TestBuildTree_ShapeAndOptions(t *testing.T) {
	f := newServiceFixture(t)
	courseID, ids := f.seed(t, false)

	view, err := f.svc.BuildTree(f.ctx, f.owner, courseID, hierarchy.Options{})
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	if len(view.Roots) != 2 || view.Roots[0].ID != ids["part1"] || len(view.Roots[0].Children) != 2 {
		t.Fatalf("roots: got=%d first=%v", len(view.Roots), view.Roots[0].Title)
	}
	if view.Roots[0].Children[1].ID != ids["b"] || view.Roots[0].Content != nil {
		t.Fatalf("children/content: got=%+v", view.Roots[0].Children[1])
	}
	if view.Course.SectionCount != 5 {
		t.Fatalf("course section_count: want=5 got=%d", view.Course.SectionCount)
	}

	zero := 0
	view, err = f.svc.BuildTree(f.ctx, f.owner, courseID, hierarchy.Options{MaxDepth: &zero, IncludeContent: true})
	if err != nil {
		t.Fatalf("BuildTree truncated: %v", err)
	}
	if !view.Roots[0].Truncated || len(view.Roots[0].Children) != 0 {
		t.Fatalf("max depth 0: want truncated root got=%+v", view.Roots[0])
	}
	if view.Roots[0].Content == nil || view.Roots[0].Content.StructuredText.Value != "words about part1" {
		t.Fatalf("include content: got=%+v", view.Roots[0].Content)
	}
}

func TestBuildTree_VisibilityRules(t *testing.T) {
	f := newServiceFixture(t)
	courseID, ids := f.seed(t, false)
	stranger := domainagg.Actor{UserID: uuid.New()}

	if _, err := f.svc.BuildTree(f.ctx, stranger, courseID, hierarchy.Options{}); !domainagg.IsCode(err, domainagg.CodeOwnershipViolation) {
		t.Fatalf("private tree: want ownership_violation got=%v", err)
	}
	if _, err := f.svc.GetSection(f.ctx, stranger, ids["a"]); !domainagg.IsCode(err, domainagg.CodeOwnershipViolation) {
		t.Fatalf("private section: want ownership_violation got=%v", err)
	}
	if _, err := f.svc.GetCourse(f.ctx, stranger, uuid.New()); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("missing course: want not_found got=%v", err)
	}

	if _, err := f.svc.SetVisibility(f.ctx, domainagg.SetVisibilityInput{Actor: f.owner, CourseID: courseID, IsPublic: true}); err != nil {
		t.Fatalf("SetVisibility: %v", err)
	}
	if _, err := f.svc.BuildTree(f.ctx, stranger, courseID, hierarchy.Options{}); err != nil {
		t.Fatalf("public tree: %v", err)
	}
	if _, err := f.svc.ComputeProgress(f.ctx, stranger, courseID); !domainagg.IsCode(err, domainagg.CodeOwnershipViolation) {
		t.Fatalf("stranger progress: want ownership_violation got=%v", err)
	}
	public, err := f.svc.ListPublicCourses(f.ctx, Page{})
	if err != nil || len(public) != 1 {
		t.Fatalf("public listing: err=%v n=%d", err, len(public))
	}
}

func TestBuildTree_ConcurrentReads(t *testing.T) {
	f := newServiceFixture(t)
	courseID, _ := f.seed(t, false)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			view, err := f.svc.BuildTree(f.ctx, f.owner, courseID, hierarchy.Options{})
			if err == nil && len(view.Roots) != 2 {
				t.Errorf("roots: want=2 got=%d", len(view.Roots))
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent BuildTree: %v", err)
		}
	}
}

// gatedSections holds structure loads until the gate opens, ignoring ctx.
type gatedSections struct {
	repos.SectionRepo
	entered chan struct{}
	gate    chan struct{}
}

func (g gatedSections) ListStructureByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Section, error) {
	g.entered <- struct{}{}
	<-g.gate
	return g.SectionRepo.ListStructureByCourse(dbc, courseID)
}

func TestBuildTree_CancelledReaderDoesNotFailOthers(t *testing.T) {
	f := newServiceFixture(t)
	courseID, _ := f.seed(t, false)
	gated := gatedSections{SectionRepo: f.sections, entered: make(chan struct{}, 4), gate: make(chan struct{})}
	svc := f.with(gated)

	ctxA, cancelA := context.WithCancel(f.ctx)
	errA := make(chan error, 1)
	go func() {
		_, err := svc.BuildTree(ctxA, f.owner, courseID, hierarchy.Options{})
		errA <- err
	}()
	<-gated.entered

	type result struct {
		view *TreeView
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		view, err := svc.BuildTree(f.ctx, f.owner, courseID, hierarchy.Options{})
		resB <- result{view, err}
	}()

	cancelA()
	if err := <-errA; !domainagg.IsCode(err, domainagg.CodeRetryable) {
		t.Fatalf("cancelled reader: want retryable got=%v", err)
	}
	// Give B time to join the load that A started.
	time.Sleep(50 * time.Millisecond)
	close(gated.gate)

	got := <-resB
	if got.err != nil {
		t.Fatalf("live reader failed: %v", got.err)
	}
	if len(got.view.Roots) != 2 {
		t.Fatalf("roots: want=2 got=%d", len(got.view.Roots))
	}
}

func TestComputeProgress_LeavesOnly(t *testing.T) {
	f := newServiceFixture(t)
	courseID, ids := f.seed(t, false)
	// An inner completion flag is ignored.
	if _, err := f.svc.SetCompletion(f.ctx, domainagg.SetCompletionInput{Actor: f.owner, SectionID: ids["part2"], Done: true}); err != nil {
		t.Fatalf("SetCompletion: %v", err)
	}

	snap, err := f.svc.ComputeProgress(f.ctx, f.owner, courseID)
	if err != nil {
		t.Fatalf("ComputeProgress: %v", err)
	}
	if snap.TotalLeaves != 3 || snap.CompletedLeaves != 1 {
		t.Fatalf("leaves: want=1/3 got=%d/%d", snap.CompletedLeaves, snap.TotalLeaves)
	}
	if snap.NextSectionID == nil || *snap.NextSectionID != ids["b"] {
		t.Fatalf("next section: want=%s got=%v", ids["b"], snap.NextSectionID)
	}
}

func TestCheckInvariants(t *testing.T) {
	f := newServiceFixture(t)
	courseID, ids := f.seed(t, false)

	report, err := f.svc.CheckInvariants(f.ctx, courseID)
	if err != nil || !report.OK() {
		t.Fatalf("clean course: err=%v failed=%v", err, report.Failed())
	}

	// Corrupt the sibling order behind the aggregate's back.
	if err := f.sections.UpdateFields(dbctx.Context{Ctx: f.ctx}, ids["b"], map[string]interface{}{"sibling_order": 7}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	reports, err := f.svc.CheckAllInvariants(f.ctx)
	if err != nil || len(reports) != 1 {
		t.Fatalf("CheckAllInvariants: err=%v n=%d", err, len(reports))
	}
	if reports[0].Status != validation.StatusFail {
		t.Fatalf("corrupted course: want fail got=%s", reports[0].Status)
	}
	if _, err := f.svc.BuildTree(f.ctx, f.owner, courseID, hierarchy.Options{}); !domainagg.IsCode(err, domainagg.CodeIntegrityViolation) {
		t.Fatalf("corrupted tree: want integrity_violation got=%v", err)
	}
	if _, err := f.svc.CheckInvariants(f.ctx, uuid.New()); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("missing course: want not_found got=%v", err)
	}
}

func TestListForkRecords_OwnerOnly(t *testing.T) {
	f := newServiceFixture(t)
	courseID, _ := f.seed(t, true)
	forker := domainagg.Actor{UserID: uuid.New(), UserName: "grace"}
	if _, err := f.svc.ForkCourse(f.ctx, domainagg.ForkCourseInput{Actor: forker, CourseID: courseID}); err != nil {
		t.Fatalf("ForkCourse: %v", err)
	}

	records, err := f.svc.ListForkRecords(f.ctx, f.owner, courseID, 0)
	if err != nil || len(records) != 1 || records[0].ForkingUserID != forker.UserID {
		t.Fatalf("records: err=%v got=%v", err, records)
	}
	if _, err := f.svc.ListForkRecords(f.ctx, forker, courseID, 10); !domainagg.IsCode(err, domainagg.CodeOwnershipViolation) {
		t.Fatalf("non-owner listing: want ownership_violation got=%v", err)
	}
	mine, err := f.svc.ListUserCourses(f.ctx, forker.UserID, Page{Limit: 500})
	if err != nil || len(mine) != 1 || mine[0].IsPublic {
		t.Fatalf("forker courses: err=%v got=%v", err, mine)
	}
}

func TestPageNormalized(t *testing.T) {
	cases := []struct{ in, want Page }{
		{Page{}, Page{Limit: defaultPageSize}},
		{Page{Limit: 10, Offset: -3}, Page{Limit: 10}},
		{Page{Limit: 1000, Offset: 5}, Page{Limit: maxPageSize, Offset: 5}},
	}
	for _, c := range cases {
		if got := c.in.normalized(); got != c.want {
			t.Fatalf("normalized(%+v): want=%+v got=%+v", c.in, c.want, got)
		}
	}
}
