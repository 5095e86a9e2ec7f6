// Package hierarchy assembles a course's flat section rows into an ordered
// tree. It is read-only: it verifies the stored structure and refuses to
// assemble a tree that breaks it.
package hierarchy

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/neurobridge-coursestore/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-coursestore/internal/domain/content"
	"github.com/yungbote/neurobridge-coursestore/internal/domain/learning"
	"github.com/yungbote/neurobridge-coursestore/internal/learning/sectiontree"
)

type Options struct {
	// MaxDepth cuts the tree below this absolute depth; nil returns all levels.
	MaxDepth *int
	// IncludeContent attaches each section's content representation.
	IncludeContent bool
}

type Node struct {
	ID              uuid.UUID  `json:"id"`
	ParentID        *uuid.UUID `json:"parent_id,omitempty"`
	Title           string     `json:"title"`
	Order           int        `json:"order"`
	Depth           int        `json:"depth"`
	HasContent      bool       `json:"has_content"`
	WordCount       int        `json:"word_count"`
	ReadTimeMinutes int        `json:"read_time_minutes"`
	IsCompleted     bool       `json:"is_completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`

	Content *content.Representation `json:"content,omitempty"`

	// Truncated marks a node cut at MaxDepth that has children in storage.
	Truncated bool    `json:"truncated,omitempty"`
	Children  []*Node `json:"children"`
}

// IsLeaf is true for nodes with no children in storage.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 && !n.Truncated }

// Walk visits n and its descendants in pre-order; returning false from fn
// skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// BuildTree verifies the sections of one course and assembles them into
// roots ordered by Order at every level. Any structural violation yields a
// CodeIntegrityViolation error whose cause is the full Violations list.
func BuildTree(courseID uuid.UUID, sections []*learning.Section, opts Options) ([]*Node, error) {
	const op = "hierarchy.build_tree"
	if opts.MaxDepth != nil && *opts.MaxDepth < 0 {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "max depth must be >= 0", nil)
	}
	if vs := Check(courseID, sections); len(vs) > 0 {
		return nil, domainagg.NewError(domainagg.CodeIntegrityViolation, op, vs.Error(), vs)
	}

	idx := sectiontree.NewIndex(courseID, sections)
	var build func(s *learning.Section) (*Node, error)
	build = func(s *learning.Section) (*Node, error) {
		n := &Node{
			ID:              s.ID,
			ParentID:        s.ParentID,
			Title:           s.Title,
			Order:           s.Order,
			Depth:           s.Depth,
			HasContent:      s.HasContent,
			WordCount:       s.WordCount,
			ReadTimeMinutes: s.ReadTimeMinutes,
			IsCompleted:     s.IsCompleted,
			CompletedAt:     s.CompletedAt,
			Children:        []*Node{},
		}
		if opts.IncludeContent {
			rep, err := s.Representation()
			if err != nil {
				return nil, domainagg.NewError(domainagg.CodeIntegrityViolation, op, fmt.Sprintf("section %s content", s.ID), err)
			}
			n.Content = &rep
		}
		id := s.ID
		kids := idx.Children(&id)
		if opts.MaxDepth != nil && s.Depth >= *opts.MaxDepth {
			n.Truncated = len(kids) > 0
			return n, nil
		}
		for _, k := range kids {
			c, err := build(k)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, c)
		}
		return n, nil
	}

	roots := idx.Children(nil)
	out := make([]*Node, 0, len(roots))
	for _, r := range roots {
		n, err := build(r)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// Flatten lists nodes in reading (pre-order) order.
func Flatten(roots []*Node) []*Node {
	out := make([]*Node, 0)
	for _, r := range roots {
		r.Walk(func(n *Node) bool {
			out = append(out, n)
			return true
		})
	}
	return out
}
