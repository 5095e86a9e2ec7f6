// Package progress aggregates completion over the leaves of a course tree.
package progress

import (
	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-coursestore/internal/learning/hierarchy"
)

type Snapshot struct {
	CompletedLeaves int     `json:"completed_leaves"`
	TotalLeaves     int     `json:"total_leaves"`
	Fraction        float64 `json:"fraction"`

	// Sections breaks progress down per root section.
	Sections []SectionProgress `json:"sections"`
	// NextSectionID is the first incomplete leaf in reading order.
	NextSectionID *uuid.UUID `json:"next_section_id,omitempty"`
}

type SectionProgress struct {
	SectionID       uuid.UUID `json:"section_id"`
	Title           string    `json:"title"`
	CompletedLeaves int       `json:"completed_leaves"`
	TotalLeaves     int       `json:"total_leaves"`
	Fraction        float64   `json:"fraction"`
}

// Compute counts completed leaves over a fully assembled tree. Only leaves
// count; a completion flag on an inner section is ignored. Truncated nodes
// are counted as leaves, so callers should pass an untruncated tree.
func Compute(roots []*hierarchy.Node) Snapshot {
	snap := Snapshot{Sections: make([]SectionProgress, 0, len(roots))}
	for _, r := range roots {
		sp := SectionProgress{SectionID: r.ID, Title: r.Title}
		r.Walk(func(n *hierarchy.Node) bool {
			if len(n.Children) > 0 {
				return true
			}
			sp.TotalLeaves++
			if n.IsCompleted {
				sp.CompletedLeaves++
			} else if snap.NextSectionID == nil {
				id := n.ID
				snap.NextSectionID = &id
			}
			return true
		})
		sp.Fraction = fraction(sp.CompletedLeaves, sp.TotalLeaves)
		snap.CompletedLeaves += sp.CompletedLeaves
		snap.TotalLeaves += sp.TotalLeaves
		snap.Sections = append(snap.Sections, sp)
	}
	snap.Fraction = fraction(snap.CompletedLeaves, snap.TotalLeaves)
	return snap
}

func fraction(done, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total)
}
