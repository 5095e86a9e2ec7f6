package validation

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-coursestore/internal/domain/learning"
	"github.com/yungbote/neurobridge-coursestore/internal/learning/content"
	"github.com/yungbote/neurobridge-coursestore/internal/learning/hierarchy"
)

const (
	StatusPass = "pass"
	StatusFail = "fail"
	StatusSkip = "skipped"

	maxSample = 5
)

type InvariantCheck struct {
	Name    string         `json:"name"`
	Status  string         `json:"status"`
	Count   int            `json:"count"`
	Sample  []string       `json:"sample,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type InvariantReport struct {
	Status    string           `json:"status"`
	Reason    string           `json:"reason,omitempty"`
	CheckedAt time.Time        `json:"checked_at"`
	CourseID  string           `json:"course_id,omitempty"`
	Checks    []InvariantCheck `json:"checks"`
}

// OK is true when every check passed.
func (r InvariantReport) OK() bool { return r.Status == StatusPass }

// Failed lists the names of failing checks.
func (r InvariantReport) Failed() []string {
	out := make([]string, 0)
	for _, c := range r.Checks {
		if c.Status == StatusFail {
			out = append(out, c.Name)
		}
	}
	return out
}

// ValidateCourseTree runs every tree and content invariant over one course
// snapshot. conv may be nil, in which case the staleness check is skipped.
func ValidateCourseTree(course *learning.Course, sections []*learning.Section, conv *content.Converter) InvariantReport {
	report := InvariantReport{Status: StatusSkip, CheckedAt: time.Now().UTC()}
	if course == nil || course.ID == uuid.Nil {
		report.Reason = "missing_course"
		return report
	}
	report.CourseID = course.ID.String()

	vs := hierarchy.Check(course.ID, sections)
	checks := []InvariantCheck{
		structuralCheck("orphan_parents", vs, hierarchy.ViolationOrphanParent, hierarchy.ViolationCrossCourse),
		structuralCheck("order_contiguity", vs, hierarchy.ViolationDuplicateOrder, hierarchy.ViolationOrderGap),
		structuralCheck("depth_consistency", vs, hierarchy.ViolationDepthMismatch),
		structuralCheck("reachability", vs, hierarchy.ViolationUnreachable),
		checkMaxDepth(course, sections),
		checkRichDocuments(sections),
		checkStaleness(sections, conv),
		checkCourseStats(course, sections, conv),
	}

	report.Checks = checks
	report.Status = StatusPass
	for _, c := range checks {
		if c.Status == StatusFail {
			report.Status = StatusFail
			break
		}
	}
	return report
}

func structuralCheck(name string, vs hierarchy.Violations, kinds ...hierarchy.ViolationKind) InvariantCheck {
	check := InvariantCheck{Name: name, Status: StatusPass}
	want := map[hierarchy.ViolationKind]bool{}
	for _, k := range kinds {
		want[k] = true
	}
	for _, v := range vs {
		if !want[v.Kind] {
			continue
		}
		check.Count++
		if len(check.Sample) < maxSample {
			check.Sample = append(check.Sample, v.String())
		}
	}
	if check.Count > 0 {
		check.Status = StatusFail
	}
	return check
}

func checkMaxDepth(course *learning.Course, sections []*learning.Section) InvariantCheck {
	check := InvariantCheck{Name: "max_depth", Status: StatusPass, Details: map[string]any{"max_depth": course.MaxDepth}}
	for _, s := range sections {
		if s.Depth > course.MaxDepth {
			check.add(fmt.Sprintf("section %s at depth %d", s.ID, s.Depth))
		}
	}
	return check
}

func checkRichDocuments(sections []*learning.Section) InvariantCheck {
	check := InvariantCheck{Name: "rich_document_validity", Status: StatusPass}
	for _, s := range sections {
		rep, err := s.Representation()
		if err == nil {
			err = rep.Validate()
		}
		if err != nil {
			check.add(fmt.Sprintf("section %s: %v", s.ID, err))
		}
	}
	return check
}

func checkStaleness(sections []*learning.Section, conv *content.Converter) InvariantCheck {
	check := InvariantCheck{Name: "derived_slot_staleness", Status: StatusPass}
	if conv == nil {
		check.Status = StatusSkip
		return check
	}
	for _, s := range sections {
		rep, err := s.Representation()
		if err != nil {
			continue
		}
		if stale := conv.Stale(rep); len(stale) > 0 {
			check.add(fmt.Sprintf("section %s: stale %v", s.ID, stale))
		}
	}
	return check
}

// checkCourseStats compares the denormalized course totals with the section
// rows. Read time derives from the summed word count.
func checkCourseStats(course *learning.Course, sections []*learning.Section, conv *content.Converter) InvariantCheck {
	wpm := content.DefaultReadingWPM
	if conv != nil {
		wpm = conv.ReadingWPM
	}
	words := 0
	for _, s := range sections {
		words += s.WordCount
	}
	minutes := content.ReadTimeMinutes(words, wpm)
	check := InvariantCheck{Name: "course_stats", Status: StatusPass, Details: map[string]any{
		"section_count": len(sections),
		"word_count":    words,
		"reading_wpm":   wpm,
	}}
	if course.SectionCount != len(sections) {
		check.add(fmt.Sprintf("section_count %d, counted %d", course.SectionCount, len(sections)))
	}
	if course.WordCount != words {
		check.add(fmt.Sprintf("word_count %d, summed %d", course.WordCount, words))
	}
	if course.ReadTimeMinutes != minutes {
		check.add(fmt.Sprintf("read_time_minutes %d, expected %d", course.ReadTimeMinutes, minutes))
	}
	return check
}

func (c *InvariantCheck) add(sample string) {
	c.Status = StatusFail
	c.Count++
	if len(c.Sample) < maxSample {
		c.Sample = append(c.Sample, sample)
	}
}
