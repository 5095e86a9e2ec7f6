package content

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"gitlab.com/golang-commonmark/markdown"
	"golang.org/x/net/html"

	dc "github.com/yungbote/neurobridge-coursestore/internal/domain/content"
)

// MaxMarkupNesting bounds element nesting accepted by MarkupToStructuredText.
const MaxMarkupNesting = 64

var ErrMarkupTooDeep = errors.New("markup nesting too deep")

// Parse state is per call, so one instance is shared.
var mdRenderer = markdown.New(
	markdown.HTML(false),
	markdown.Linkify(false),
	markdown.Typographer(false),
	markdown.Tables(false),
	markdown.XHTMLOutput(true),
	markdown.LangPrefix("language-"),
)

// RenderMarkup renders structured text to markup with a CommonMark renderer.
// Raw HTML in the input is escaped, never passed through.
func RenderMarkup(structuredText string) (string, error) {
	if !utf8.ValidString(structuredText) {
		return "", fmt.Errorf("render markup: invalid utf-8")
	}
	src := NormalizeNewlines(structuredText)
	if strings.TrimSpace(src) == "" {
		return "", nil
	}
	return mdRenderer.RenderToString([]byte(src)), nil
}

// MarkupToStructuredText walks an HTML tree and rebuilds structured text.
// Inline emphasis, code spans, strikethrough and links are kept as marks;
// elements the document model has no block for are flattened to paragraphs.
func MarkupToStructuredText(markup string) (string, error) {
	if !utf8.ValidString(markup) {
		return "", fmt.Errorf("markup to structured text: invalid utf-8")
	}
	if strings.TrimSpace(markup) == "" {
		return "", nil
	}
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("markup to structured text: %w", err)
	}
	body := findElement(root, "body")
	if body == nil {
		body = root
	}
	w := &markupWalker{}
	blocks, err := w.blocks(body, 0)
	if err != nil {
		return "", fmt.Errorf("markup to structured text: %w", err)
	}
	out, _ := SanitizeInbound(RenderStructuredText(dc.Document{SchemaVersion: dc.DocumentSchemaVersion, Blocks: blocks}))
	return out, nil
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := findElement(c, tag); f != nil {
			return f
		}
	}
	return nil
}

type markupWalker struct{}

func (w *markupWalker) blocks(n *html.Node, depth int) ([]dc.Block, error) {
	if depth > MaxMarkupNesting {
		return nil, ErrMarkupTooDeep
	}
	out := make([]dc.Block, 0)
	var pending []*html.Node
	flushInline := func() error {
		if len(pending) == 0 {
			return nil
		}
		var sb strings.Builder
		for _, p := range pending {
			s, err := w.inline(p, depth+1)
			if err != nil {
				return err
			}
			sb.WriteString(s)
		}
		pending = nil
		if text := tidyInline(sb.String(), true); text != "" {
			out = append(out, dc.Block{Type: dc.BlockParagraph, Text: text})
		}
		return nil
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !isBlockNode(c) {
			pending = append(pending, c)
			continue
		}
		if err := flushInline(); err != nil {
			return nil, err
		}
		b, err := w.block(c, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	if err := flushInline(); err != nil {
		return nil, err
	}
	return out, nil
}

func (w *markupWalker) block(n *html.Node, depth int) ([]dc.Block, error) {
	if depth > MaxMarkupNesting {
		return nil, ErrMarkupTooDeep
	}
	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		text, err := w.inlineChildren(n, depth)
		if err != nil {
			return nil, err
		}
		text = tidyInline(text, false)
		if text == "" {
			return nil, nil
		}
		return []dc.Block{{Type: dc.BlockHeading, Level: int(n.Data[1] - '0'), Text: text}}, nil
	case "p":
		text, err := w.inlineChildren(n, depth)
		if err != nil {
			return nil, err
		}
		if text = tidyInline(text, true); text == "" {
			return nil, nil
		}
		return []dc.Block{{Type: dc.BlockParagraph, Text: text}}, nil
	case "ul", "ol":
		l, err := w.list(n, depth, 1)
		if err != nil || l == nil {
			return nil, err
		}
		return []dc.Block{{Type: dc.BlockList, List: l}}, nil
	case "pre":
		lang := ""
		src := n
		if code := findElement(n, "code"); code != nil {
			src = code
			lang = languageOf(code)
		}
		return []dc.Block{{Type: dc.BlockCode, Language: lang, Code: strings.TrimSuffix(rawText(src), "\n")}}, nil
	case "blockquote":
		inner, err := w.blocks(n, depth)
		if err != nil {
			return nil, err
		}
		text := RenderStructuredText(dc.Document{Blocks: inner})
		if strings.TrimSpace(text) == "" {
			return nil, nil
		}
		return []dc.Block{{Type: dc.BlockQuote, Text: text}}, nil
	case "hr":
		return []dc.Block{{Type: dc.BlockDivider}}, nil
	case "table":
		return w.table(n, depth)
	default:
		return w.blocks(n, depth)
	}
}

func (w *markupWalker) list(n *html.Node, depth, nesting int) (*dc.List, error) {
	if depth > MaxMarkupNesting {
		return nil, ErrMarkupTooDeep
	}
	l := &dc.List{Ordered: n.Data == "ol", Items: []dc.ListItem{}}
	if l.Ordered {
		if s := attr(n, "start"); s != "" {
			l.Start = listStart(s + ".")
		}
	}
	for li := n.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}
		item := dc.ListItem{}
		var parts []string
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
				child, err := w.list(c, depth+1, nesting+1)
				if err != nil {
					return nil, err
				}
				if child == nil {
					continue
				}
				if nesting >= dc.MaxListNesting {
					// flatten lists the document model cannot nest further
					for _, it := range child.Items {
						parts = append(parts, it.Text)
					}
					continue
				}
				if item.Children == nil {
					item.Children = child
				} else {
					item.Children.Items = append(item.Children.Items, child.Items...)
				}
				continue
			}
			s, err := w.inline(c, depth+1)
			if err != nil {
				return nil, err
			}
			parts = append(parts, s)
		}
		item.Text = tidyInline(strings.Join(parts, " "), false)
		if item.Text == "" && item.Children == nil {
			continue
		}
		l.Items = append(l.Items, item)
	}
	if len(l.Items) == 0 {
		return nil, nil
	}
	return l, nil
}

func (w *markupWalker) table(n *html.Node, depth int) ([]dc.Block, error) {
	rows := make([]string, 0)
	var walk func(*html.Node, int) error
	walk = func(t *html.Node, d int) error {
		if d > MaxMarkupNesting {
			return ErrMarkupTooDeep
		}
		for c := t.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if c.Data != "tr" {
				if err := walk(c, d+1); err != nil {
					return err
				}
				continue
			}
			cells := make([]string, 0)
			for cell := c.FirstChild; cell != nil; cell = cell.NextSibling {
				if cell.Type != html.ElementNode || (cell.Data != "td" && cell.Data != "th") {
					continue
				}
				s, err := w.inlineChildren(cell, d+1)
				if err != nil {
					return err
				}
				cells = append(cells, tidyInline(s, false))
			}
			if row := strings.Join(cells, " | "); strings.TrimSpace(strings.ReplaceAll(row, "|", "")) != "" {
				rows = append(rows, row)
			}
		}
		return nil
	}
	if err := walk(n, depth); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return []dc.Block{{Type: dc.BlockParagraph, Text: strings.Join(rows, "\n")}}, nil
}

func (w *markupWalker) inlineChildren(n *html.Node, depth int) (string, error) {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		s, err := w.inline(c, depth+1)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}

func (w *markupWalker) inline(n *html.Node, depth int) (string, error) {
	if depth > MaxMarkupNesting {
		return "", ErrMarkupTooDeep
	}
	switch n.Type {
	case html.TextNode:
		return escapeInline(n.Data), nil
	case html.ElementNode:
	default:
		return "", nil
	}

	switch n.Data {
	case "br":
		return "\n", nil
	case "code":
		return codeSpan(rawText(n)), nil
	case "img":
		return "![" + escapeInline(attr(n, "alt")) + "](" + attr(n, "src") + ")", nil
	case "script", "style":
		return "", nil
	}

	inner, err := w.inlineChildren(n, depth)
	if err != nil {
		return "", err
	}
	switch n.Data {
	case "strong", "b":
		return wrapMark(inner, "**"), nil
	case "em", "i":
		return wrapMark(inner, "*"), nil
	case "del", "s", "strike":
		return wrapMark(inner, "~~"), nil
	case "a":
		href := attr(n, "href")
		if href == "" {
			return inner, nil
		}
		if inner == escapeInline(href) {
			return "<" + href + ">", nil
		}
		return "[" + inner + "](" + href + ")", nil
	case "p", "div", "li", "pre", "blockquote", "h1", "h2", "h3", "h4", "h5", "h6":
		return inner + " ", nil
	default:
		return inner, nil
	}
}

func isBlockNode(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6", "p", "ul", "ol", "pre", "blockquote", "hr",
		"table", "div", "section", "article", "header", "footer", "main", "aside", "figure":
		return true
	default:
		return false
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func languageOf(code *html.Node) string {
	for _, cls := range strings.Fields(attr(code, "class")) {
		if strings.HasPrefix(cls, "language-") {
			return strings.TrimPrefix(cls, "language-")
		}
	}
	return ""
}

func rawText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
			return
		}
		for k := c.FirstChild; k != nil; k = k.NextSibling {
			walk(k)
		}
	}
	walk(n)
	return sb.String()
}

func wrapMark(inner, mark string) string {
	t := strings.TrimSpace(inner)
	if t == "" {
		return inner
	}
	lead := inner[:len(inner)-len(strings.TrimLeft(inner, " \t\n"))]
	trail := inner[len(strings.TrimRight(inner, " \t\n")):]
	return lead + mark + t + mark + trail
}

func codeSpan(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	fence := "`"
	for strings.Contains(s, fence) {
		fence += "`"
	}
	if strings.HasPrefix(s, "`") || strings.HasSuffix(s, "`") {
		return fence + " " + s + " " + fence
	}
	return fence + s + fence
}

// escapeInline backslash-escapes characters that would be read as inline
// marks. Intraword underscores are left alone.
func escapeInline(s string) string {
	var sb strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		switch r {
		case '\\', '*', '`', '[', ']', '<', '~':
			sb.WriteByte('\\')
		case '_':
			prevWord := i > 0 && isWordRune(runes[i-1])
			nextWord := i+1 < len(runes) && isWordRune(runes[i+1])
			if !prevWord || !nextWord {
				sb.WriteByte('\\')
			}
		case '\n':
			r = ' '
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// tidyInline trims and squeezes whitespace; multiline keeps hard breaks.
func tidyInline(s string, multiline bool) string {
	if !multiline {
		return collapseSpaces(strings.ReplaceAll(s, "\n", " "))
	}
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = collapseSpaces(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// visibleText returns the text content of markup, ignoring tags.
func visibleText(markup string) string {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return sb.String()
}
