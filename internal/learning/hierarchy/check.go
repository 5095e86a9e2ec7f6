package hierarchy

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-coursestore/internal/domain/learning"
)

// ViolationKind names one class of structural corruption.
type ViolationKind string

const (
	ViolationCrossCourse    ViolationKind = "cross_course"
	ViolationOrphanParent   ViolationKind = "orphan_parent"
	ViolationDuplicateOrder ViolationKind = "duplicate_order"
	ViolationOrderGap       ViolationKind = "order_gap"
	ViolationDepthMismatch  ViolationKind = "depth_mismatch"
	ViolationUnreachable    ViolationKind = "unreachable"
)

type Violation struct {
	Kind      ViolationKind `json:"kind"`
	SectionID uuid.UUID     `json:"section_id"`
	Detail    string        `json:"detail"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: section %s: %s", v.Kind, v.SectionID, v.Detail)
}

// Violations is a list of structural problems; it implements error so it can
// ride along as the cause of an integrity error.
type Violations []Violation

func (vs Violations) Error() string {
	switch len(vs) {
	case 0:
		return "no violations"
	case 1:
		return vs[0].String()
	default:
		return fmt.Sprintf("%s (and %d more)", vs[0].String(), len(vs)-1)
	}
}

// Kinds returns the distinct violation kinds in first-seen order.
func (vs Violations) Kinds() []ViolationKind {
	seen := map[ViolationKind]bool{}
	out := make([]ViolationKind, 0, len(vs))
	for _, v := range vs {
		if !seen[v.Kind] {
			seen[v.Kind] = true
			out = append(out, v.Kind)
		}
	}
	return out
}

// Check inspects a course's sections for every structural invariant the
// tree relies on: same-course parents that exist, contiguous 0-based sibling
// order, depth equal to parent depth + 1, and reachability from a root.
func Check(courseID uuid.UUID, sections []*learning.Section) Violations {
	out := make(Violations, 0)
	byID := make(map[uuid.UUID]*learning.Section, len(sections))
	for _, s := range sections {
		if s == nil {
			continue
		}
		byID[s.ID] = s
	}

	groups := map[uuid.UUID][]*learning.Section{}
	for _, s := range sortedByID(byID) {
		if s.CourseID != courseID {
			out = append(out, Violation{Kind: ViolationCrossCourse, SectionID: s.ID, Detail: fmt.Sprintf("belongs to course %s", s.CourseID)})
			continue
		}
		if s.ParentID != nil {
			p, ok := byID[*s.ParentID]
			switch {
			case !ok:
				out = append(out, Violation{Kind: ViolationOrphanParent, SectionID: s.ID, Detail: fmt.Sprintf("parent %s does not exist in course", *s.ParentID)})
				continue
			case p.CourseID != courseID:
				out = append(out, Violation{Kind: ViolationCrossCourse, SectionID: s.ID, Detail: fmt.Sprintf("parent %s belongs to course %s", p.ID, p.CourseID)})
				continue
			case s.Depth != p.Depth+1:
				out = append(out, Violation{Kind: ViolationDepthMismatch, SectionID: s.ID, Detail: fmt.Sprintf("depth %d, parent depth %d", s.Depth, p.Depth)})
			}
		} else if s.Depth != 0 {
			out = append(out, Violation{Kind: ViolationDepthMismatch, SectionID: s.ID, Detail: fmt.Sprintf("root at depth %d", s.Depth)})
		}
		key := uuid.Nil
		if s.ParentID != nil {
			key = *s.ParentID
		}
		groups[key] = append(groups[key], s)
	}

	keys := make([]uuid.UUID, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, k := range keys {
		out = append(out, checkOrder(groups[k])...)
	}

	reached := map[uuid.UUID]bool{}
	queue := append([]*learning.Section(nil), groups[uuid.Nil]...)
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		if reached[s.ID] {
			continue
		}
		reached[s.ID] = true
		queue = append(queue, groups[s.ID]...)
	}
	for _, s := range sortedByID(byID) {
		if reached[s.ID] || s.CourseID != courseID {
			continue
		}
		if s.ParentID != nil {
			if _, ok := byID[*s.ParentID]; !ok {
				continue
			}
		}
		out = append(out, Violation{Kind: ViolationUnreachable, SectionID: s.ID, Detail: "not reachable from any root (cycle in parent chain)"})
	}
	return out
}

func checkOrder(group []*learning.Section) Violations {
	out := make(Violations, 0)
	sorted := append([]*learning.Section(nil), group...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })
	next := 0
	for i, s := range sorted {
		if i > 0 && sorted[i-1].Order == s.Order {
			out = append(out, Violation{Kind: ViolationDuplicateOrder, SectionID: s.ID, Detail: fmt.Sprintf("order %d shared with %s", s.Order, sorted[i-1].ID)})
			continue
		}
		if s.Order != next {
			out = append(out, Violation{Kind: ViolationOrderGap, SectionID: s.ID, Detail: fmt.Sprintf("order %d where %d expected", s.Order, next)})
			break
		}
		next++
	}
	return out
}

func sortedByID(byID map[uuid.UUID]*learning.Section) []*learning.Section {
	out := make([]*learning.Section, 0, len(byID))
	for _, s := range byID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}
