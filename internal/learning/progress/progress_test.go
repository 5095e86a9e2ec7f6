package progress

import (
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-coursestore/internal/learning/hierarchy"
)

func leaf(title string, done bool) *hierarchy.Node {
	return &hierarchy.Node{ID: uuid.New(), Title: title, IsCompleted: done, Children: []*hierarchy.Node{}}
}

func inner(title string, done bool, kids ...*hierarchy.Node) *hierarchy.Node {
	return &hierarchy.Node{ID: uuid.New(), Title: title, IsCompleted: done, Children: kids}
}

func TestCompute_LeavesOnly(t *testing.T) {
	third := leaf("c", false)
	roots := []*hierarchy.Node{
		inner("part 1", true, leaf("a", true), leaf("b", true), third),
		inner("part 2", false, leaf("d", true), inner("deep", true, leaf("e", false))),
	}
	snap := Compute(roots)
	if snap.TotalLeaves != 5 || snap.CompletedLeaves != 3 {
		t.Fatalf("leaves: want=3/5 got=%d/%d", snap.CompletedLeaves, snap.TotalLeaves)
	}
	if snap.Fraction != 0.6 {
		t.Fatalf("fraction: want=0.6 got=%v", snap.Fraction)
	}
	if len(snap.Sections) != 2 || snap.Sections[0].TotalLeaves != 3 || snap.Sections[1].CompletedLeaves != 1 {
		t.Fatalf("per-root: got=%+v", snap.Sections)
	}
	if snap.NextSectionID == nil || *snap.NextSectionID != third.ID {
		t.Fatalf("next section: want=%s got=%v", third.ID, snap.NextSectionID)
	}
}

func TestCompute_NoLeaves(t *testing.T) {
	snap := Compute(nil)
	if snap.Fraction != 0 || snap.TotalLeaves != 0 || snap.NextSectionID != nil {
		t.Fatalf("empty course: got=%+v", snap)
	}
}

func TestCompute_AllDone(t *testing.T) {
	snap := Compute([]*hierarchy.Node{leaf("only", true)})
	if snap.Fraction != 1 || snap.NextSectionID != nil {
		t.Fatalf("all done: got=%+v", snap)
	}
}
