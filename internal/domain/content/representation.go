// Package content defines the value types for section content: the three
// co-equal representations a section carries and the rich editor document tree.
package content

import (
	"fmt"
	"strings"
)

// Format names one of the three representations of a section's content.
type Format string

const (
	FormatStructuredText Format = "structured_text"
	FormatMarkup         Format = "markup"
	FormatRichDocument   Format = "rich_document"
)

// Formats lists every format in canonical order.
var Formats = []Format{FormatStructuredText, FormatMarkup, FormatRichDocument}

func (f Format) Valid() bool {
	switch f {
	case FormatStructuredText, FormatMarkup, FormatRichDocument:
		return true
	default:
		return false
	}
}

// ParseFormat accepts the canonical names plus a few aliases used by the
// generation glue ("markdown", "html", "tiptap"/"editor").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "structured_text", "text", "markdown", "md":
		return FormatStructuredText, nil
	case "markup", "html":
		return FormatMarkup, nil
	case "rich_document", "rich", "editor", "tiptap", "document":
		return FormatRichDocument, nil
	default:
		return "", fmt.Errorf("unknown content format %q", s)
	}
}

// Status is the state of a single representation slot.
type Status string

const (
	// StatusAbsent means the slot was never produced (new or empty section).
	StatusAbsent Status = "absent"
	// StatusAvailable means the slot holds data consistent with the primary.
	StatusAvailable Status = "available"
	// StatusUnavailable means derivation failed; the slot holds no data.
	StatusUnavailable Status = "unavailable"
)

// TextSlot holds a string-valued representation.
type TextSlot struct {
	Value  string `json:"value"`
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// DocumentSlot holds the rich document representation.
type DocumentSlot struct {
	Document *Document `json:"document,omitempty"`
	Status   Status    `json:"status"`
	Reason   string    `json:"reason,omitempty"`
}

// Representation is the content of a section. Exactly one slot (Primary) is
// authoritative; the other two are derived caches that are either Available
// and consistent with it, or Unavailable and empty.
type Representation struct {
	StructuredText TextSlot     `json:"structured_text"`
	Markup         TextSlot     `json:"markup"`
	RichDocument   DocumentSlot `json:"rich_document"`
	Primary        Format       `json:"primary_format"`
}

// Empty returns a representation with every slot absent.
func Empty() Representation {
	return Representation{
		StructuredText: TextSlot{Status: StatusAbsent},
		Markup:         TextSlot{Status: StatusAbsent},
		RichDocument:   DocumentSlot{Status: StatusAbsent},
		Primary:        FormatStructuredText,
	}
}

// Available reports whether the given slot holds usable data.
func (r Representation) Available(f Format) bool {
	switch f {
	case FormatStructuredText:
		return r.StructuredText.Status == StatusAvailable
	case FormatMarkup:
		return r.Markup.Status == StatusAvailable
	case FormatRichDocument:
		return r.RichDocument.Status == StatusAvailable && r.RichDocument.Document != nil
	default:
		return false
	}
}

// Unavailable lists the derived formats that could not be produced.
func (r Representation) Unavailable() []Format {
	out := make([]Format, 0, 2)
	if r.StructuredText.Status == StatusUnavailable {
		out = append(out, FormatStructuredText)
	}
	if r.Markup.Status == StatusUnavailable {
		out = append(out, FormatMarkup)
	}
	if r.RichDocument.Status == StatusUnavailable {
		out = append(out, FormatRichDocument)
	}
	return out
}

// HasContent is true when the authoritative slot carries non-blank content.
func (r Representation) HasContent() bool {
	switch r.Primary {
	case FormatRichDocument:
		return r.RichDocument.Document != nil && len(r.RichDocument.Document.Blocks) > 0
	case FormatMarkup:
		return strings.TrimSpace(r.Markup.Value) != ""
	default:
		return strings.TrimSpace(r.StructuredText.Value) != ""
	}
}

// Clone returns a deep copy; the document tree is not shared.
func (r Representation) Clone() Representation {
	out := r
	if r.RichDocument.Document != nil {
		d := r.RichDocument.Document.Clone()
		out.RichDocument.Document = &d
	}
	return out
}

// Validate checks the slot invariants: the primary slot is available, an
// unavailable slot carries no data, and an available rich document is well formed.
func (r Representation) Validate() error {
	if !r.Primary.Valid() {
		return fmt.Errorf("invalid primary format %q", r.Primary)
	}
	if r.StructuredText.Status == StatusUnavailable && r.StructuredText.Value != "" {
		return fmt.Errorf("unavailable structured text slot carries data")
	}
	if r.Markup.Status == StatusUnavailable && r.Markup.Value != "" {
		return fmt.Errorf("unavailable markup slot carries data")
	}
	if r.RichDocument.Status != StatusAvailable && r.RichDocument.Document != nil {
		return fmt.Errorf("rich document slot is %s but carries a document", r.RichDocument.Status)
	}
	if r.RichDocument.Status == StatusAvailable {
		if r.RichDocument.Document == nil {
			return fmt.Errorf("available rich document slot has no document")
		}
		if err := r.RichDocument.Document.Validate(); err != nil {
			return fmt.Errorf("rich document: %w", err)
		}
	}
	if r.HasContent() && !r.Available(r.Primary) {
		return fmt.Errorf("primary format %s is not available", r.Primary)
	}
	return nil
}
