package content

import (
	"errors"
	"strings"
	"testing"

	dc "github.com/yungbote/neurobridge-coursestore/internal/domain/content"
)

const sampleText = "# Intro\n\nSome **bold** and *em* with `code` and [link](http://example.com/a).\n\n1. one\n2. two\n\n> quoted\n\n---\n\n```go\nx := 1\n```"

func TestMarkupRoundTrip_PreservesText(t *testing.T) {
	markup, err := RenderMarkup(sampleText)
	if err != nil {
		t.Fatalf("RenderMarkup: %v", err)
	}
	for _, want := range []string{"<h1>Intro</h1>", "<strong>bold</strong>", "<em>em</em>", "<code>code</code>", `<a href="http://example.com/a">link</a>`, `class="language-go"`} {
		if !strings.Contains(markup, want) {
			t.Fatalf("markup missing %q:\n%s", want, markup)
		}
	}
	back, err := MarkupToStructuredText(markup)
	if err != nil {
		t.Fatalf("MarkupToStructuredText: %v", err)
	}
	if got, want := strings.Join(strings.Fields(back), " "), strings.Join(strings.Fields(sampleText), " "); got != want {
		t.Fatalf("round trip:\nwant=%q\ngot=%q", want, got)
	}
}

func TestMarkupToStructuredText_RawHTMLIsEscaped(t *testing.T) {
	markup, err := RenderMarkup("a <script>alert(1)</script> b")
	if err != nil {
		t.Fatalf("RenderMarkup: %v", err)
	}
	if strings.Contains(markup, "<script>") {
		t.Fatalf("raw html passed through: %s", markup)
	}
}

func TestMarkupToStructuredText_TooDeep(t *testing.T) {
	markup := strings.Repeat("<div>", MaxMarkupNesting+5) + "x" + strings.Repeat("</div>", MaxMarkupNesting+5)
	if _, err := MarkupToStructuredText(markup); !errors.Is(err, ErrMarkupTooDeep) {
		t.Fatalf("want ErrMarkupTooDeep got=%v", err)
	}
}

func TestMarkupToStructuredText_Autolink(t *testing.T) {
	out, err := MarkupToStructuredText(`<p>see <a href="https://go.dev">https://go.dev</a></p>`)
	if err != nil {
		t.Fatalf("MarkupToStructuredText: %v", err)
	}
	if out != "see <https://go.dev>" {
		t.Fatalf("autolink: want=%q got=%q", "see <https://go.dev>", out)
	}
}

func TestSetContent_StructuredText(t *testing.T) {
	c := NewConverter(0)
	rep, rpt, err := c.SetContent(dc.Empty(), sampleText, dc.FormatStructuredText)
	if err != nil {
		t.Fatalf("SetContent: %v", err)
	}
	if rep.Primary != dc.FormatStructuredText || rep.StructuredText.Value != sampleText {
		t.Fatalf("primary slot not stored verbatim: %+v", rep.StructuredText)
	}
	for _, f := range dc.Formats {
		if !rep.Available(f) {
			t.Fatalf("%s: want available", f)
		}
	}
	if rpt.Degraded() {
		t.Fatalf("report: want no fallbacks got=%+v", rpt.Unavailable)
	}
	if rpt.Stats.WordCount == 0 || rpt.Stats.ReadTimeMinutes != 1 {
		t.Fatalf("stats: got=%+v", rpt.Stats)
	}
	for _, b := range rep.RichDocument.Document.Blocks {
		if b.ID == "" {
			t.Fatalf("block without id: %+v", b)
		}
	}
	if rpt.ContentHash == "" {
		t.Fatalf("content hash missing")
	}
}

func TestSetContent_MalformedFallsBackToStructuredText(t *testing.T) {
	c := NewConverter(200)
	malformed := []string{
		"Intro\n\n```python\nprint('never closed')",
		"<table><tr><td>x</td></tr></table>",
		"- a\n    - b\n  - c",
	}
	for _, src := range malformed {
		for _, source := range []dc.Format{dc.FormatStructuredText, dc.FormatRichDocument} {
			rep, rpt, err := c.SetContent(dc.Empty(), src, source)
			if err != nil {
				t.Fatalf("%q as %s: want soft failure got err=%v", src, source, err)
			}
			if rep.RichDocument.Status != dc.StatusUnavailable || rep.RichDocument.Document != nil {
				t.Fatalf("%q as %s: rich document want unavailable got=%+v", src, source, rep.RichDocument)
			}
			if rep.Primary == dc.FormatRichDocument {
				t.Fatalf("%q as %s: primary must not be rich_document", src, source)
			}
			if rep.StructuredText.Value != src || !rep.Available(dc.FormatStructuredText) {
				t.Fatalf("%q as %s: structured text not kept", src, source)
			}
			if !rpt.Degraded() || rpt.Unavailable[0].Format != dc.FormatRichDocument || rpt.Unavailable[0].Reason == "" {
				t.Fatalf("%q as %s: report=%+v", src, source, rpt)
			}
			if source == dc.FormatRichDocument && !rpt.PrimaryFellBack {
				t.Fatalf("%q: want PrimaryFellBack", src)
			}
		}
	}
}

func TestSetContent_RichDocumentFromText(t *testing.T) {
	c := NewConverter(200)
	rep, rpt, err := c.SetContent(dc.Empty(), "## Hi\n\nBody", dc.FormatRichDocument)
	if err != nil {
		t.Fatalf("SetContent: %v", err)
	}
	if rep.Primary != dc.FormatRichDocument || rpt.PrimaryFellBack {
		t.Fatalf("primary: want rich_document got=%s", rep.Primary)
	}
}

func TestSetContent_RichDocumentJSON(t *testing.T) {
	c := NewConverter(200)
	payload := `{"schema_version":1,"blocks":[{"type":"heading","level":2,"text":"Hi"},{"type":"paragraph","text":"Body"}]}`
	rep, _, err := c.SetContent(dc.Empty(), payload, dc.FormatRichDocument)
	if err != nil {
		t.Fatalf("SetContent: %v", err)
	}
	if rep.Primary != dc.FormatRichDocument {
		t.Fatalf("primary: want rich_document got=%s", rep.Primary)
	}
	if rep.StructuredText.Value != "## Hi\n\nBody" {
		t.Fatalf("structured text: got=%q", rep.StructuredText.Value)
	}
	if !strings.Contains(rep.Markup.Value, "<h2>Hi</h2>") {
		t.Fatalf("markup: got=%q", rep.Markup.Value)
	}
	if !strings.HasPrefix(rep.RichDocument.Document.Blocks[0].ID, "heading_") {
		t.Fatalf("block id: got=%q", rep.RichDocument.Document.Blocks[0].ID)
	}
}

func TestSetContent_InvalidRichDocumentRejected(t *testing.T) {
	c := NewConverter(200)
	prev, _, err := c.SetContent(dc.Empty(), "keep me", dc.FormatStructuredText)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	for _, payload := range []string{
		`{"schema_version":1,"blocks":[{"type":"heading","level":9,"text":"x"}]}`,
		`{"schema_version":1,"blocks":[{"type":"video","text":"x"}]}`,
		`{"schema_version":1,"blocks":[{"type":"divider","text":"x"}]}`,
		`{"schema_version":1,"blocks":[],"extra":true}`,
	} {
		got, _, err := c.SetContent(prev, payload, dc.FormatRichDocument)
		if !errors.Is(err, ErrInvalidDocument) {
			t.Fatalf("%s: want ErrInvalidDocument got=%v", payload, err)
		}
		if got.StructuredText.Value != "keep me" {
			t.Fatalf("%s: previous representation not returned", payload)
		}
	}
}

func TestSetContent_Markup(t *testing.T) {
	c := NewConverter(200)
	rep, _, err := c.SetContent(dc.Empty(), "<p>Hello <b>there</b></p>", dc.FormatMarkup)
	if err != nil {
		t.Fatalf("SetContent: %v", err)
	}
	if rep.Primary != dc.FormatMarkup {
		t.Fatalf("primary: want markup got=%s", rep.Primary)
	}
	if rep.StructuredText.Value != "Hello **there**" {
		t.Fatalf("structured text: got=%q", rep.StructuredText.Value)
	}
	if !rep.Available(dc.FormatRichDocument) {
		t.Fatalf("rich document: want available got=%+v", rep.RichDocument)
	}
}

func TestSetContent_KeepsBlockIDs(t *testing.T) {
	c := NewConverter(200)
	first, _, err := c.SetContent(dc.Empty(), "# A\n\nbody", dc.FormatStructuredText)
	if err != nil {
		t.Fatalf("SetContent: %v", err)
	}
	second, _, err := c.SetContent(first, "# A\n\nbody edited", dc.FormatStructuredText)
	if err != nil {
		t.Fatalf("SetContent: %v", err)
	}
	for i := range first.RichDocument.Document.Blocks {
		if a, b := first.RichDocument.Document.Blocks[i].ID, second.RichDocument.Document.Blocks[i].ID; a != b {
			t.Fatalf("block %d id: want=%s got=%s", i, a, b)
		}
	}
}

func TestSetContent_EmptyClears(t *testing.T) {
	c := NewConverter(200)
	rep, rpt, err := c.SetContent(dc.Empty(), "   ", dc.FormatStructuredText)
	if err != nil {
		t.Fatalf("SetContent: %v", err)
	}
	if rep.HasContent() || rpt.Stats.WordCount != 0 {
		t.Fatalf("empty content: got=%+v stats=%+v", rep, rpt.Stats)
	}
}

func TestStale_DetectsEditedDerivedSlot(t *testing.T) {
	c := NewConverter(200)
	rep, _, err := c.SetContent(dc.Empty(), "# A\n\nbody", dc.FormatStructuredText)
	if err != nil {
		t.Fatalf("SetContent: %v", err)
	}
	if stale := c.Stale(rep); len(stale) != 0 {
		t.Fatalf("fresh rep: want no stale slots got=%v", stale)
	}
	rep.Markup.Value = "<p>something else</p>"
	stale := c.Stale(rep)
	if len(stale) != 1 || stale[0] != dc.FormatMarkup {
		t.Fatalf("stale: want=[markup] got=%v", stale)
	}
}

func TestContentHash_IgnoresBlockIDs(t *testing.T) {
	c := NewConverter(200)
	payload := `{"schema_version":1,"blocks":[{"id":"a","type":"paragraph","text":"x"}]}`
	r1, _, err := c.SetContent(dc.Empty(), payload, dc.FormatRichDocument)
	if err != nil {
		t.Fatalf("SetContent: %v", err)
	}
	r2 := r1.Clone()
	r2.RichDocument.Document.Blocks[0].ID = "b"
	if ContentHash(r1) != ContentHash(r2) {
		t.Fatalf("hash changed with block id")
	}
}
