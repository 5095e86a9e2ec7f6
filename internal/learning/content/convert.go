package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	dc "github.com/yungbote/neurobridge-coursestore/internal/domain/content"
)

const DefaultReadingWPM = 200

// ErrInvalidDocument is returned when a JSON rich document is submitted that
// does not validate. Nothing known-good exists to store in that case.
var ErrInvalidDocument = errors.New("invalid rich document")

// Converter keeps the three content representations in step. It is pure and
// safe for concurrent use.
type Converter struct {
	ReadingWPM int
}

func NewConverter(readingWPM int) *Converter {
	if readingWPM <= 0 {
		readingWPM = DefaultReadingWPM
	}
	return &Converter{ReadingWPM: readingWPM}
}

// Fallback describes one derived format that could not be produced.
type Fallback struct {
	Format dc.Format `json:"format"`
	Reason string    `json:"reason"`
}

// Report summarizes a SetContent call.
type Report struct {
	Source          dc.Format  `json:"source_format"`
	Primary         dc.Format  `json:"primary_format"`
	Unavailable     []Fallback `json:"unavailable,omitempty"`
	PrimaryFellBack bool       `json:"primary_fell_back"`
	Stats           Stats      `json:"stats"`
	ContentHash     string     `json:"content_hash"`
}

// Degraded is true when any derived slot is unavailable.
func (r Report) Degraded() bool { return len(r.Unavailable) > 0 }

// SetContent stores text verbatim in the slot for source and derives the
// other two. A derivation failure marks its slot unavailable and keeps
// Primary on a slot that holds good data. prev supplies block IDs to carry
// over when the rich document is re-derived; it may be the zero value.
func (c *Converter) SetContent(prev dc.Representation, text string, source dc.Format) (dc.Representation, Report, error) {
	if !source.Valid() {
		return prev, Report{}, fmt.Errorf("set content: unknown source format %q", source)
	}
	var (
		rep dc.Representation
		rpt = Report{Source: source}
		err error
	)
	switch source {
	case dc.FormatStructuredText:
		rep, err = c.fromStructuredText(prev, text)
	case dc.FormatMarkup:
		rep, err = c.fromMarkup(prev, text)
	case dc.FormatRichDocument:
		rep, rpt.PrimaryFellBack, err = c.fromRichDocument(prev, text)
	}
	if err != nil {
		return prev, Report{}, err
	}
	if verr := rep.Validate(); verr != nil {
		return prev, Report{}, fmt.Errorf("set content: %w", verr)
	}
	rpt.Primary = rep.Primary
	for _, f := range rep.Unavailable() {
		rpt.Unavailable = append(rpt.Unavailable, Fallback{Format: f, Reason: reasonOf(rep, f)})
	}
	rpt.Stats = c.Stats(rep)
	rpt.ContentHash = ContentHash(rep)
	return rep, rpt, nil
}

func (c *Converter) fromStructuredText(prev dc.Representation, text string) (dc.Representation, error) {
	rep := dc.Representation{Primary: dc.FormatStructuredText}
	rep.StructuredText = dc.TextSlot{Value: text, Status: dc.StatusAvailable}
	if strings.TrimSpace(text) == "" {
		return emptyOf(dc.FormatStructuredText, text), nil
	}
	rep.Markup = c.deriveMarkup(text)
	rep.RichDocument = deriveDocument(prev, text)
	return rep, nil
}

func (c *Converter) fromMarkup(prev dc.Representation, markup string) (dc.Representation, error) {
	if strings.TrimSpace(markup) == "" {
		return emptyOf(dc.FormatMarkup, markup), nil
	}
	rep := dc.Representation{Primary: dc.FormatMarkup}
	rep.Markup = dc.TextSlot{Value: markup, Status: dc.StatusAvailable}
	st, err := MarkupToStructuredText(markup)
	if err != nil {
		rep.StructuredText = unavailableText(err)
		rep.RichDocument = dc.DocumentSlot{Status: dc.StatusUnavailable, Reason: "structured text unavailable: " + err.Error()}
		return rep, nil
	}
	rep.StructuredText = dc.TextSlot{Value: st, Status: dc.StatusAvailable}
	rep.RichDocument = deriveDocument(prev, st)
	return rep, nil
}

// fromRichDocument accepts either a JSON document or, when the payload is not
// JSON, structured text to be parsed into one. The second return value
// reports that the primary fell back to structured text.
func (c *Converter) fromRichDocument(prev dc.Representation, payload string) (dc.Representation, bool, error) {
	trimmed := strings.TrimSpace(payload)
	if looksLikeJSON(trimmed) {
		doc, err := DecodeDocument([]byte(trimmed))
		if err != nil {
			return dc.Representation{}, false, err
		}
		rep, err := c.FromDocument(doc)
		return rep, false, err
	}

	rep, err := c.fromStructuredText(prev, payload)
	if err != nil {
		return rep, false, err
	}
	if trimmed == "" {
		return rep, false, nil
	}
	if rep.RichDocument.Status == dc.StatusAvailable {
		rep.Primary = dc.FormatRichDocument
		return rep, false, nil
	}
	return rep, true, nil
}

// FromDocument builds a representation whose primary is an already validated
// rich document.
func (c *Converter) FromDocument(doc dc.Document) (dc.Representation, error) {
	if err := doc.Validate(); err != nil {
		return dc.Representation{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	doc, _ = EnsureBlockIDs(doc.Clone())
	rep := dc.Representation{Primary: dc.FormatRichDocument}
	rep.RichDocument = dc.DocumentSlot{Document: &doc, Status: dc.StatusAvailable}
	st := RenderStructuredText(doc)
	rep.StructuredText = dc.TextSlot{Value: st, Status: dc.StatusAvailable}
	rep.Markup = c.deriveMarkup(st)
	return rep, nil
}

// DecodeDocument strictly decodes a JSON rich document and validates it.
func DecodeDocument(b []byte) (dc.Document, error) {
	var doc dc.Document
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return dc.Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if dec.More() {
		return dc.Document{}, fmt.Errorf("%w: trailing data after document", ErrInvalidDocument)
	}
	if doc.SchemaVersion == 0 {
		doc.SchemaVersion = dc.DocumentSchemaVersion
	}
	if doc.Blocks == nil {
		doc.Blocks = []dc.Block{}
	}
	if err := doc.Validate(); err != nil {
		return dc.Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return doc, nil
}

func (c *Converter) deriveMarkup(structuredText string) dc.TextSlot {
	m, err := RenderMarkup(structuredText)
	if err != nil {
		return unavailableText(err)
	}
	return dc.TextSlot{Value: m, Status: dc.StatusAvailable}
}

func deriveDocument(prev dc.Representation, structuredText string) dc.DocumentSlot {
	doc, err := ParseStructuredText(structuredText)
	if err != nil {
		return dc.DocumentSlot{Status: dc.StatusUnavailable, Reason: err.Error()}
	}
	doc = carryBlockIDs(prev.RichDocument.Document, doc)
	doc, _ = EnsureBlockIDs(doc)
	return dc.DocumentSlot{Document: &doc, Status: dc.StatusAvailable}
}

func unavailableText(err error) dc.TextSlot {
	return dc.TextSlot{Status: dc.StatusUnavailable, Reason: err.Error()}
}

// emptyOf clears content: the source slot keeps the (blank) input, the
// others hold empty but consistent values.
func emptyOf(source dc.Format, raw string) dc.Representation {
	empty := dc.Document{SchemaVersion: dc.DocumentSchemaVersion, Blocks: []dc.Block{}}
	rep := dc.Representation{
		StructuredText: dc.TextSlot{Status: dc.StatusAvailable},
		Markup:         dc.TextSlot{Status: dc.StatusAvailable},
		RichDocument:   dc.DocumentSlot{Document: &empty, Status: dc.StatusAvailable},
		Primary:        source,
	}
	switch source {
	case dc.FormatStructuredText:
		rep.StructuredText.Value = raw
	case dc.FormatMarkup:
		rep.Markup.Value = raw
	}
	return rep
}

func looksLikeJSON(s string) bool {
	return strings.HasPrefix(s, "{") && json.Valid([]byte(s))
}

func reasonOf(rep dc.Representation, f dc.Format) string {
	switch f {
	case dc.FormatStructuredText:
		return rep.StructuredText.Reason
	case dc.FormatMarkup:
		return rep.Markup.Reason
	default:
		return rep.RichDocument.Reason
	}
}

// Stale re-derives the non-primary slots from the primary and reports the
// formats whose stored value disagrees. Unavailable slots are never stale.
func (c *Converter) Stale(rep dc.Representation) []dc.Format {
	if !rep.HasContent() {
		return nil
	}
	var fresh dc.Representation
	var err error
	switch rep.Primary {
	case dc.FormatRichDocument:
		if rep.RichDocument.Document == nil {
			return nil
		}
		fresh, err = c.FromDocument(*rep.RichDocument.Document)
	case dc.FormatMarkup:
		fresh, err = c.fromMarkup(rep, rep.Markup.Value)
	default:
		fresh, err = c.fromStructuredText(rep, rep.StructuredText.Value)
	}
	if err != nil {
		return nil
	}
	out := make([]dc.Format, 0)
	if rep.Primary != dc.FormatStructuredText && rep.StructuredText.Status == dc.StatusAvailable && rep.StructuredText.Value != fresh.StructuredText.Value {
		out = append(out, dc.FormatStructuredText)
	}
	if rep.Primary != dc.FormatMarkup && rep.Markup.Status == dc.StatusAvailable && rep.Markup.Value != fresh.Markup.Value {
		out = append(out, dc.FormatMarkup)
	}
	if rep.Primary != dc.FormatRichDocument && rep.RichDocument.Status == dc.StatusAvailable {
		if fresh.RichDocument.Status != dc.StatusAvailable || !sameBlocks(rep.RichDocument.Document, fresh.RichDocument.Document) {
			out = append(out, dc.FormatRichDocument)
		}
	}
	return out
}

func sameBlocks(a, b *dc.Document) bool {
	if a == nil || b == nil {
		return a == b
	}
	x, y := a.Clone(), b.Clone()
	for i := range x.Blocks {
		x.Blocks[i].ID = ""
	}
	for i := range y.Blocks {
		y.Blocks[i].ID = ""
	}
	xb, err1 := json.Marshal(x)
	yb, err2 := json.Marshal(y)
	return err1 == nil && err2 == nil && bytes.Equal(xb, yb)
}
