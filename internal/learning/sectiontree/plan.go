package sectiontree

import (
	"fmt"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/neurobridge-coursestore/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-coursestore/internal/domain/learning"
)

// Placement is the structural position of one section after a mutation.
type Placement struct {
	ID       uuid.UUID
	ParentID *uuid.UUID
	Order    int
	Depth    int
}

// Columns returns the column updates that persist the placement.
func (p Placement) Columns() map[string]any {
	return map[string]any{
		"parent_id":     p.ParentID,
		"sibling_order": p.Order,
		"depth":         p.Depth,
	}
}

// Plan is the set of row changes a structural mutation needs. Updates only
// lists sections whose parent, order or depth actually changes.
type Plan struct {
	Updates []Placement
	Deleted []uuid.UUID
}

func (p Plan) Empty() bool { return len(p.Updates) == 0 && len(p.Deleted) == 0 }

// CreatePlacement computes parent, order and depth for a new section.
func CreatePlacement(idx *Index, parentID *uuid.UUID, maxDepth int) (Placement, error) {
	const op = "sectiontree.create"
	depth := 0
	if parentID != nil {
		parent, ok := idx.Get(*parentID)
		if !ok {
			return Placement{}, domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("parent %s is not a section of course %s", *parentID, idx.CourseID), nil)
		}
		depth = parent.Depth + 1
	}
	if depth > maxDepth {
		return Placement{}, domainagg.NewError(domainagg.CodeDepthExceeded, op, fmt.Sprintf("depth %d exceeds max depth %d", depth, maxDepth), nil)
	}
	return Placement{ID: uuid.Nil, ParentID: copyID(parentID), Order: idx.NextOrder(parentID), Depth: depth}, nil
}

// PlanReparent moves sectionID under newParentID (nil = root) at newOrder
// (nil = append; clamped to the sibling range). It rejects cycles and any
// move that would push a descendant past maxDepth.
func PlanReparent(idx *Index, sectionID uuid.UUID, newParentID *uuid.UUID, newOrder *int, maxDepth int) (Plan, error) {
	const op = "sectiontree.reparent"
	node, ok := idx.Get(sectionID)
	if !ok {
		return Plan{}, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("section %s not found", sectionID), nil)
	}

	newDepth := 0
	if newParentID != nil {
		if *newParentID == sectionID {
			return Plan{}, domainagg.NewError(domainagg.CodeCycleDetected, op, "section cannot be its own parent", nil)
		}
		parent, ok := idx.Get(*newParentID)
		if !ok {
			return Plan{}, domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("parent %s is not a section of course %s", *newParentID, idx.CourseID), nil)
		}
		ancestors, complete := idx.Ancestors(parent.ID)
		for _, a := range ancestors {
			if a.ID == sectionID {
				return Plan{}, domainagg.NewError(domainagg.CodeCycleDetected, op, fmt.Sprintf("section %s is an ancestor of %s", sectionID, parent.ID), nil)
			}
		}
		if !complete {
			return Plan{}, domainagg.NewError(domainagg.CodeIntegrityViolation, op, fmt.Sprintf("ancestor chain of %s is broken", parent.ID), nil)
		}
		newDepth = parent.Depth + 1
	}
	if bottom := newDepth + idx.Height(sectionID); bottom > maxDepth {
		return Plan{}, domainagg.NewError(domainagg.CodeDepthExceeded, op, fmt.Sprintf("moved subtree would reach depth %d, max is %d", bottom, maxDepth), nil)
	}

	target := make(map[uuid.UUID]Placement)

	oldGroup := without(idx.Children(node.ParentID), sectionID)
	newGroup := oldGroup
	if !sameParent(node.ParentID, newParentID) {
		renumber(target, oldGroup, node.ParentID)
		newGroup = without(idx.Children(newParentID), sectionID)
	}
	pos := len(newGroup)
	if newOrder != nil {
		pos = clamp(*newOrder, 0, len(newGroup))
	}
	newGroup = insertAt(newGroup, pos, node)
	renumber(target, newGroup, newParentID)

	if delta := newDepth - node.Depth; delta != 0 {
		for _, s := range idx.Subtree(sectionID) {
			p := placementOf(target, s)
			p.Depth = s.Depth + delta
			target[s.ID] = p
		}
	}
	p := target[sectionID]
	p.Depth = newDepth
	target[sectionID] = p

	return Plan{Updates: changed(idx, target)}, nil
}

// PlanDelete removes sectionID. With cascade the whole subtree goes;
// otherwise its children take its place under its parent, keeping their
// relative order, and every descendant moves up one level.
func PlanDelete(idx *Index, sectionID uuid.UUID, cascade bool) (Plan, error) {
	const op = "sectiontree.delete"
	node, ok := idx.Get(sectionID)
	if !ok {
		return Plan{}, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("section %s not found", sectionID), nil)
	}
	target := make(map[uuid.UUID]Placement)
	siblings := idx.Children(node.ParentID)

	if cascade {
		sub := idx.Subtree(sectionID)
		deleted := make([]uuid.UUID, 0, len(sub))
		for _, s := range sub {
			deleted = append(deleted, s.ID)
		}
		renumber(target, without(siblings, sectionID), node.ParentID)
		return Plan{Updates: changed(idx, target), Deleted: deleted}, nil
	}

	kids := idx.Children(&node.ID)
	group := make([]*learning.Section, 0, len(siblings)+len(kids))
	for _, s := range siblings {
		if s.ID == sectionID {
			group = append(group, kids...)
			continue
		}
		group = append(group, s)
	}
	renumber(target, group, node.ParentID)
	for _, s := range idx.Subtree(sectionID) {
		if s.ID == sectionID {
			continue
		}
		p := placementOf(target, s)
		p.Depth = s.Depth - 1
		target[s.ID] = p
	}
	return Plan{Updates: changed(idx, target), Deleted: []uuid.UUID{sectionID}}, nil
}

// Normalize renumbers every sibling group contiguously from 0 and repairs
// depths from the parent chain. Used to heal snapshots that fail integrity
// checks for ordering only.
func Normalize(idx *Index) Plan {
	target := make(map[uuid.UUID]Placement)
	var walk func(parent *uuid.UUID, depth int)
	walk = func(parent *uuid.UUID, depth int) {
		group := idx.Children(parent)
		renumber(target, group, parent)
		for _, s := range group {
			p := target[s.ID]
			p.Depth = depth
			target[s.ID] = p
			id := s.ID
			walk(&id, depth+1)
		}
	}
	walk(nil, 0)
	return Plan{Updates: changed(idx, target)}
}

func renumber(target map[uuid.UUID]Placement, group []*learning.Section, parent *uuid.UUID) {
	for i, s := range group {
		p := placementOf(target, s)
		p.ParentID = copyID(parent)
		p.Order = i
		target[s.ID] = p
	}
}

func placementOf(target map[uuid.UUID]Placement, s *learning.Section) Placement {
	if p, ok := target[s.ID]; ok {
		return p
	}
	return Placement{ID: s.ID, ParentID: copyID(s.ParentID), Order: s.Order, Depth: s.Depth}
}

// changed keeps placements that differ from the snapshot, in pre-order of
// the snapshot so updates are applied deterministically.
func changed(idx *Index, target map[uuid.UUID]Placement) []Placement {
	out := make([]Placement, 0, len(target))
	emit := func(s *learning.Section) {
		p, ok := target[s.ID]
		if !ok {
			return
		}
		delete(target, s.ID)
		if sameParent(p.ParentID, s.ParentID) && p.Order == s.Order && p.Depth == s.Depth {
			return
		}
		out = append(out, p)
	}
	for _, s := range idx.Preorder() {
		emit(s)
	}
	// sections unreachable from the roots still get their placement
	for _, s := range idx.byID {
		emit(s)
	}
	return out
}

func without(group []*learning.Section, id uuid.UUID) []*learning.Section {
	out := make([]*learning.Section, 0, len(group))
	for _, s := range group {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return out
}

func insertAt(group []*learning.Section, pos int, s *learning.Section) []*learning.Section {
	out := make([]*learning.Section, 0, len(group)+1)
	out = append(out, group[:pos]...)
	out = append(out, s)
	return append(out, group[pos:]...)
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyID(p *uuid.UUID) *uuid.UUID {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
