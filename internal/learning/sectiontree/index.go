// Package sectiontree plans structural mutations of a course tree. It works
// on an in-memory snapshot of a course's sections and returns the row
// changes a mutation needs; it never touches storage.
package sectiontree

import (
	"sort"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-coursestore/internal/domain/learning"
)

// Index is a snapshot of one course's sections keyed by ID and by parent.
// Roots are grouped under uuid.Nil.
type Index struct {
	CourseID uuid.UUID
	byID     map[uuid.UUID]*learning.Section
	children map[uuid.UUID][]*learning.Section
}

// NewIndex builds an index over sections. Sibling groups are sorted by
// stored order, then creation time, then ID, so a corrupted order still
// yields a deterministic sequence.
func NewIndex(courseID uuid.UUID, sections []*learning.Section) *Index {
	idx := &Index{
		CourseID: courseID,
		byID:     make(map[uuid.UUID]*learning.Section, len(sections)),
		children: make(map[uuid.UUID][]*learning.Section),
	}
	for _, s := range sections {
		if s == nil {
			continue
		}
		idx.byID[s.ID] = s
	}
	for _, s := range idx.byID {
		key := parentKey(s.ParentID)
		idx.children[key] = append(idx.children[key], s)
	}
	for k := range idx.children {
		SortSiblings(idx.children[k])
	}
	return idx
}

// SortSiblings orders a sibling group in place.
func SortSiblings(group []*learning.Section) {
	sort.SliceStable(group, func(i, j int) bool {
		a, b := group[i], group[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

func parentKey(p *uuid.UUID) uuid.UUID {
	if p == nil {
		return uuid.Nil
	}
	return *p
}

func (idx *Index) Len() int { return len(idx.byID) }

func (idx *Index) Get(id uuid.UUID) (*learning.Section, bool) {
	s, ok := idx.byID[id]
	return s, ok
}

// Children returns the ordered children of parent (nil = roots). The slice
// is a copy.
func (idx *Index) Children(parent *uuid.UUID) []*learning.Section {
	src := idx.children[parentKey(parent)]
	out := make([]*learning.Section, len(src))
	copy(out, src)
	return out
}

// NextOrder is max sibling order + 1, or 0 for the first child.
func (idx *Index) NextOrder(parent *uuid.UUID) int {
	group := idx.children[parentKey(parent)]
	next := 0
	for _, s := range group {
		if s.Order+1 > next {
			next = s.Order + 1
		}
	}
	return next
}

// Subtree returns id and all its descendants in pre-order.
func (idx *Index) Subtree(id uuid.UUID) []*learning.Section {
	root, ok := idx.byID[id]
	if !ok {
		return nil
	}
	out := make([]*learning.Section, 0, 8)
	seen := map[uuid.UUID]bool{}
	var walk func(*learning.Section)
	walk = func(s *learning.Section) {
		if seen[s.ID] {
			return
		}
		seen[s.ID] = true
		out = append(out, s)
		for _, c := range idx.children[s.ID] {
			walk(c)
		}
	}
	walk(root)
	return out
}

// Height is the number of levels below id (0 for a leaf).
func (idx *Index) Height(id uuid.UUID) int {
	root, ok := idx.byID[id]
	if !ok {
		return 0
	}
	h := 0
	for _, s := range idx.Subtree(id) {
		if d := s.Depth - root.Depth; d > h {
			h = d
		}
	}
	return h
}

// Preorder lists every section reachable from the roots in reading order.
func (idx *Index) Preorder() []*learning.Section {
	out := make([]*learning.Section, 0, len(idx.byID))
	for _, r := range idx.children[uuid.Nil] {
		out = append(out, idx.Subtree(r.ID)...)
	}
	return out
}

// Ancestors walks parent links upward from id, nearest first. It stops after
// Len() steps so a corrupted cyclic chain cannot loop forever; ok is false
// in that case or when a parent is missing.
func (idx *Index) Ancestors(id uuid.UUID) (out []*learning.Section, ok bool) {
	s, found := idx.byID[id]
	if !found {
		return nil, false
	}
	for steps := 0; s.ParentID != nil; steps++ {
		if steps > len(idx.byID) {
			return out, false
		}
		p, found := idx.byID[*s.ParentID]
		if !found {
			return out, false
		}
		out = append(out, p)
		s = p
	}
	return out, true
}
