package aggregates_test

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-coursestore/internal/data/repos"
	types "github.com/yungbote/neurobridge-coursestore/internal/domain"
	domainagg "github.com/yungbote/neurobridge-coursestore/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/dbctx"
)

// cancelAfterCreates cancels the write context once n sections were copied.
type cancelAfterCreates struct {
	repos.SectionRepo
	n      int
	seen   int
	cancel context.CancelFunc
}

func (c *cancelAfterCreates) Create(dbc dbctx.Context, rows []*types.Section) ([]*types.Section, error) {
	out, err := c.SectionRepo.Create(dbc, rows)
	c.seen++
	if c.seen == c.n {
		c.cancel()
	}
	return out, err
}

func seedForkSource(t *testing.T, f *treeFixture) (*types.Course, []*types.Section) {
	t.Helper()
	c := f.course(5, true)
	a := f.section(c.ID, nil, "a")
	a1 := f.section(c.ID, a, "a1")
	a2 := f.section(c.ID, a, "a2")
	b := f.section(c.ID, nil, "b")
	if _, err := f.agg.UpdateContent(f.ctx, domainagg.UpdateContentInput{Actor: f.owner, SectionID: a1.ID, Text: "## Loops\n\nfor range over a slice"}); err != nil {
		t.Fatalf("UpdateContent: %v", err)
	}
	if _, err := f.agg.SetCompletion(f.ctx, domainagg.SetCompletionInput{Actor: f.owner, SectionID: a1.ID, Done: true}); err != nil {
		t.Fatalf("SetCompletion: %v", err)
	}
	return c, []*types.Section{a, a1, a2, b}
}

func TestForkCourse_CopiesTreeAndLineage(t *testing.T) {
	f := newTreeFixture(t, nil)
	src, _ := seedForkSource(t, f)
	srcCourse, srcRows := f.reload(src.ID)
	forker := domainagg.Actor{UserID: uuid.New(), UserName: "grace"}

	res, err := f.agg.ForkCourse(f.ctx, domainagg.ForkCourseInput{Actor: forker, CourseID: src.ID})
	if err != nil {
		t.Fatalf("ForkCourse: %v", err)
	}
	if res.SectionCount != 4 || len(res.IDMap) != 4 {
		t.Fatalf("fork size: count=%d idmap=%d", res.SectionCount, len(res.IDMap))
	}

	fork, forkRows := f.reload(res.Course.ID)
	if fork.UserID != forker.UserID || fork.UserName != "grace" || fork.IsPublic {
		t.Fatalf("fork owner: user=%s name=%q public=%v", fork.UserID, fork.UserName, fork.IsPublic)
	}
	if fork.ForkedFromCourseID == nil || *fork.ForkedFromCourseID != src.ID {
		t.Fatalf("lineage course: got=%v", fork.ForkedFromCourseID)
	}
	if fork.ForkedFromUserID == nil || *fork.ForkedFromUserID != f.owner.UserID {
		t.Fatalf("lineage user: got=%v", fork.ForkedFromUserID)
	}
	if fork.ForkedFromUserName == nil || *fork.ForkedFromUserName != "ada" || fork.ForkedAt == nil {
		t.Fatalf("lineage name/time: name=%v at=%v", fork.ForkedFromUserName, fork.ForkedAt)
	}
	if fork.SectionCount != 4 || fork.WordCount != srcCourse.WordCount || fork.MaxDepth != srcCourse.MaxDepth {
		t.Fatalf("fork stats: sections=%d words=%d max_depth=%d", fork.SectionCount, fork.WordCount, fork.MaxDepth)
	}

	for srcID, cpID := range res.IDMap {
		s, cp := srcRows[srcID], forkRows[cpID]
		if cp == nil {
			t.Fatalf("copy of %s missing", s.Title)
		}
		if cp.Title != s.Title || cp.Order != s.Order || cp.Depth != s.Depth {
			t.Fatalf("%s: shape differs order=%d/%d depth=%d/%d", s.Title, s.Order, cp.Order, s.Depth, cp.Depth)
		}
		if (s.ParentID == nil) != (cp.ParentID == nil) || (s.ParentID != nil && res.IDMap[*s.ParentID] != *cp.ParentID) {
			t.Fatalf("%s: parent not remapped", s.Title)
		}
		if cp.StructuredText != s.StructuredText || cp.Markup != s.Markup || cp.ContentHash != s.ContentHash {
			t.Fatalf("%s: content not copied verbatim", s.Title)
		}
		if cp.IsCompleted || cp.CompletedAt != nil {
			t.Fatalf("%s: completion carried into fork", s.Title)
		}
	}

	after, _ := f.reload(src.ID)
	if after.ForkCount != 1 || after.StructureVersion != srcCourse.StructureVersion {
		t.Fatalf("source after fork: fork_count=%d version=%d->%d", after.ForkCount, srcCourse.StructureVersion, after.StructureVersion)
	}
	records, err := f.forks.ListByCourse(dbctx.Context{Ctx: f.ctx}, src.ID, 10)
	if err != nil || len(records) != 1 {
		t.Fatalf("fork records: err=%v n=%d", err, len(records))
	}
	if records[0].ForkingUserID != forker.UserID || records[0].ForkedCourseID != fork.ID || records[0].SectionCount != 4 {
		t.Fatalf("fork record: %+v", records[0])
	}
	if len(f.hooks.ForkSizes) != 1 || f.hooks.ForkSizes[0] != 4 {
		t.Fatalf("fork size hook: %v", f.hooks.ForkSizes)
	}
}

func TestForkCourse_Rejections(t *testing.T) {
	f := newTreeFixture(t, nil)
	src, _ := seedForkSource(t, f)

	_, err := f.agg.ForkCourse(f.ctx, domainagg.ForkCourseInput{Actor: f.owner, CourseID: src.ID})
	if !domainagg.IsCode(err, domainagg.CodeSelfForkRejected) {
		t.Fatalf("self fork: want self_fork_rejected got=%v", err)
	}

	if _, err := f.agg.SetVisibility(f.ctx, domainagg.SetVisibilityInput{Actor: f.owner, CourseID: src.ID, IsPublic: false}); err != nil {
		t.Fatalf("SetVisibility: %v", err)
	}
	_, err = f.agg.ForkCourse(f.ctx, domainagg.ForkCourseInput{Actor: domainagg.Actor{UserID: uuid.New()}, CourseID: src.ID})
	if !domainagg.IsCode(err, domainagg.CodeOwnershipViolation) {
		t.Fatalf("private fork: want ownership_violation got=%v", err)
	}

	_, err = f.agg.ForkCourse(f.ctx, domainagg.ForkCourseInput{Actor: domainagg.Actor{UserID: uuid.New()}, CourseID: uuid.New()})
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("missing course: want not_found got=%v", err)
	}

	ids, err := f.courses.ListIDs(dbctx.Context{Ctx: f.ctx})
	if err != nil || len(ids) != 1 {
		t.Fatalf("rejected forks created courses: err=%v n=%d", err, len(ids))
	}
}

func TestForkCourse_CancelledMidCopyLeavesNothing(t *testing.T) {
	f := newTreeFixture(t, nil)
	src, _ := seedForkSource(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	agg := f.build(nil, &cancelAfterCreates{SectionRepo: f.sections, n: 2, cancel: cancel})

	forker := domainagg.Actor{UserID: uuid.New(), UserName: "grace"}
	_, err := agg.ForkCourse(ctx, domainagg.ForkCourseInput{Actor: forker, CourseID: src.ID})
	if !domainagg.IsCode(err, domainagg.CodeRetryable) {
		t.Fatalf("cancelled fork: want retryable got=%v", err)
	}

	dbc := dbctx.Context{Ctx: context.Background()}
	owned, err := f.courses.ListByUser(dbc, forker.UserID, 10, 0)
	if err != nil || len(owned) != 0 {
		t.Fatalf("forked course survived: err=%v n=%d", err, len(owned))
	}
	n, err := f.forks.CountByCourse(dbc, src.ID)
	if err != nil || n != 0 {
		t.Fatalf("fork record survived: err=%v n=%d", err, n)
	}
	after, rows := f.reload(src.ID)
	if after.ForkCount != 0 || len(rows) != 4 {
		t.Fatalf("source touched: fork_count=%d sections=%d", after.ForkCount, len(rows))
	}
	var total int64
	if err := f.db.Model(&types.Section{}).Count(&total).Error; err != nil || total != 4 {
		t.Fatalf("orphan section copies: err=%v total=%d", err, total)
	}
}

func TestForkCourse_RootWithThreeChildrenKeepsShape(t *testing.T) {
	f := newTreeFixture(t, nil)
	src := f.course(3, true)
	root := f.section(src.ID, nil, "root")
	for _, title := range []string{"one", "two", "three"} {
		f.section(src.ID, root, title)
	}
	before, _ := f.reload(src.ID)

	res, err := f.agg.ForkCourse(f.ctx, domainagg.ForkCourseInput{Actor: domainagg.Actor{UserID: uuid.New(), UserName: "linus"}, CourseID: src.ID})
	if err != nil {
		t.Fatalf("ForkCourse: %v", err)
	}
	_, rows := f.reload(res.Course.ID)
	var roots, children []*types.Section
	for _, s := range rows {
		if s.ParentID == nil {
			roots = append(roots, s)
		} else {
			children = append(children, s)
		}
	}
	if len(roots) != 1 || len(children) != 3 {
		t.Fatalf("shape: want=1 root/3 children got=%d/%d", len(roots), len(children))
	}
	byOrder := map[int]string{}
	for _, c := range children {
		if *c.ParentID != roots[0].ID || c.Depth != 1 {
			t.Fatalf("%s: parent=%s depth=%d", c.Title, *c.ParentID, c.Depth)
		}
		byOrder[c.Order] = c.Title
	}
	if byOrder[0] != "one" || byOrder[1] != "two" || byOrder[2] != "three" {
		t.Fatalf("child order: got=%v", byOrder)
	}
	after, _ := f.reload(src.ID)
	if after.ForkCount != before.ForkCount+1 {
		t.Fatalf("fork count: want=%d got=%d", before.ForkCount+1, after.ForkCount)
	}
}
