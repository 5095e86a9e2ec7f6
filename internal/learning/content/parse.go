package content

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	dc "github.com/yungbote/neurobridge-coursestore/internal/domain/content"
)

// ErrMalformed marks structured text that cannot be turned into a valid
// rich document.
var ErrMalformed = errors.New("malformed structured text")

// MalformedError carries the first offending line.
type MalformedError struct {
	Line   int
	Reason string
}

func (e *MalformedError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	return e.Reason
}

func (e *MalformedError) Unwrap() error { return ErrMalformed }

func malformed(line int, format string, args ...any) error {
	return &MalformedError{Line: line, Reason: fmt.Sprintf(format, args...)}
}

var (
	headingRE  = regexp.MustCompile(`^ {0,3}(#{1,6})(?:[ \t]+(.*?))?[ \t]*$`)
	closingRE  = regexp.MustCompile(`[ \t]+#+$`)
	fenceRE    = regexp.MustCompile("^ {0,3}(`{3,}|~{3,})[ \t]*(.*)$")
	listRE     = regexp.MustCompile(`^([ \t]*)([-*+]|\d{1,9}[.)])(?:[ \t]+(.*))?$`)
	dividerRE  = regexp.MustCompile(`^ {0,3}(?:(?:\*[ \t]*){3,}|(?:-[ \t]*){3,}|(?:_[ \t]*){3,})$`)
	setext1RE  = regexp.MustCompile(`^ {0,3}=+[ \t]*$`)
	setext2RE  = regexp.MustCompile(`^ {0,3}-+[ \t]*$`)
	quoteRE    = regexp.MustCompile(`^ {0,3}>[ ]?(.*)$`)
	rawHTMLRE  = regexp.MustCompile(`^ {0,3}<(?:[A-Za-z][A-Za-z0-9-]*|/[A-Za-z]|!--|!\[CDATA\[|\?)`)
	indentedRE = regexp.MustCompile(`^(?: {4}|\t)(.*)$`)
)

type listFrame struct {
	indent int
	list   *dc.List
}

type parser struct {
	lines  []string
	blocks []dc.Block

	para      []string
	quote     []string
	listStack []listFrame
	listBlock *dc.List
}

// ParseStructuredText parses structured text strictly into a rich document.
// Anything the document model cannot represent faithfully is rejected with a
// *MalformedError instead of being approximated.
func ParseStructuredText(src string) (dc.Document, error) {
	doc := dc.Document{SchemaVersion: dc.DocumentSchemaVersion, Blocks: []dc.Block{}}
	if !utf8.ValidString(src) {
		return doc, malformed(0, "invalid utf-8")
	}
	if strings.ContainsRune(src, 0) {
		return doc, malformed(0, "NUL byte in text")
	}
	src = NormalizeNewlines(src)
	p := &parser{lines: strings.Split(src, "\n")}
	if err := p.run(); err != nil {
		return doc, err
	}
	doc.Blocks = p.blocks
	if err := doc.Validate(); err != nil {
		return dc.Document{SchemaVersion: dc.DocumentSchemaVersion, Blocks: []dc.Block{}}, malformed(0, "%v", err)
	}
	return doc, nil
}

func (p *parser) run() error {
	for i := 0; i < len(p.lines); i++ {
		line := p.lines[i]
		lineNo := i + 1

		if strings.TrimSpace(line) == "" {
			p.flushPara()
			p.flushQuote()
			p.closeList()
			continue
		}

		if m := fenceRE.FindStringSubmatch(line); m != nil {
			p.flushAll()
			next, err := p.readFence(i, m[1], m[2])
			if err != nil {
				return err
			}
			i = next
			continue
		}

		if len(p.para) > 0 && p.listBlock == nil {
			if setext1RE.MatchString(line) {
				p.paraToHeading(1)
				continue
			}
			if setext2RE.MatchString(line) {
				p.paraToHeading(2)
				continue
			}
		}

		if dividerRE.MatchString(line) {
			p.flushAll()
			p.blocks = append(p.blocks, dc.Block{Type: dc.BlockDivider})
			continue
		}

		if m := headingRE.FindStringSubmatch(line); m != nil {
			p.flushAll()
			text := closingRE.ReplaceAllString(strings.TrimSpace(m[2]), "")
			if text == "" || strings.Trim(text, "#") == "" {
				return malformed(lineNo, "empty heading")
			}
			p.blocks = append(p.blocks, dc.Block{Type: dc.BlockHeading, Level: len(m[1]), Text: text})
			continue
		}

		if rawHTMLRE.MatchString(line) {
			return malformed(lineNo, "raw markup block cannot be represented in a rich document")
		}

		if m := quoteRE.FindStringSubmatch(line); m != nil {
			p.flushPara()
			p.closeList()
			p.quote = append(p.quote, m[1])
			continue
		}
		if len(p.quote) > 0 {
			// lazy continuation of the quote paragraph
			p.quote = append(p.quote, strings.TrimSpace(line))
			continue
		}

		if m := listRE.FindStringSubmatch(line); m != nil && !(len(p.para) > 0 && p.listBlock == nil && !startsListAfterParagraph(m)) {
			p.flushPara()
			if err := p.addListItem(lineNo, m); err != nil {
				return err
			}
			continue
		}

		if p.listBlock != nil {
			// lazy continuation of the last list item
			top := p.listStack[len(p.listStack)-1].list
			last := &top.Items[len(top.Items)-1]
			last.Text = joinInline(last.Text, strings.TrimSpace(line))
			continue
		}

		if len(p.para) == 0 {
			if m := indentedRE.FindStringSubmatch(line); m != nil {
				p.flushAll()
				i = p.readIndentedCode(i)
				continue
			}
		}

		p.para = append(p.para, strings.TrimSpace(line))
	}
	p.flushAll()
	return nil
}

// startsListAfterParagraph mirrors CommonMark: a list may interrupt a
// paragraph only when it starts with "-", "*", "+" or "1." and has content.
func startsListAfterParagraph(m []string) bool {
	if strings.TrimSpace(m[3]) == "" {
		return false
	}
	marker := m[2]
	if marker == "-" || marker == "*" || marker == "+" {
		return true
	}
	n, err := strconv.Atoi(strings.TrimRight(marker, ".)"))
	return err == nil && n == 1
}

func (p *parser) readFence(start int, marker, info string) (int, error) {
	fenceChar := marker[0]
	lang := ""
	if f := strings.Fields(info); len(f) > 0 {
		lang = f[0]
	}
	if fenceChar == '`' && strings.Contains(info, "`") {
		return start, malformed(start+1, "backtick in code fence info string")
	}
	body := make([]string, 0)
	for j := start + 1; j < len(p.lines); j++ {
		trimmed := strings.TrimSpace(p.lines[j])
		if len(trimmed) >= len(marker) && strings.Trim(trimmed, string(fenceChar)) == "" && trimmed[0] == fenceChar {
			p.blocks = append(p.blocks, dc.Block{Type: dc.BlockCode, Language: lang, Code: strings.Join(body, "\n")})
			return j, nil
		}
		body = append(body, p.lines[j])
	}
	return start, malformed(start+1, "unterminated code fence")
}

func (p *parser) readIndentedCode(start int) int {
	body := make([]string, 0)
	last := start
	for j := start; j < len(p.lines); j++ {
		line := p.lines[j]
		if strings.TrimSpace(line) == "" {
			body = append(body, "")
			continue
		}
		m := indentedRE.FindStringSubmatch(line)
		if m == nil {
			break
		}
		body = append(body, m[1])
		last = j
	}
	body = body[:last-start+1]
	for len(body) > 0 && strings.TrimSpace(body[len(body)-1]) == "" {
		body = body[:len(body)-1]
	}
	p.blocks = append(p.blocks, dc.Block{Type: dc.BlockCode, Code: strings.Join(body, "\n")})
	return last
}

func (p *parser) addListItem(lineNo int, m []string) error {
	indent := indentWidth(m[1])
	ordered := m[2] != "-" && m[2] != "*" && m[2] != "+"
	text := strings.TrimSpace(m[3])
	item := dc.ListItem{Text: text}

	if p.listBlock == nil {
		p.startList(indent, ordered, m[2])
		top := p.listStack[0].list
		top.Items = append(top.Items, item)
		return nil
	}

	top := p.listStack[len(p.listStack)-1]
	switch {
	case indent > top.indent:
		if len(p.listStack) >= dc.MaxListNesting {
			return malformed(lineNo, "list nesting exceeds %d levels", dc.MaxListNesting)
		}
		parentItems := top.list.Items
		child := &dc.List{Ordered: ordered, Start: listStart(m[2]), Items: []dc.ListItem{item}}
		parentItems[len(parentItems)-1].Children = child
		p.listStack = append(p.listStack, listFrame{indent: indent, list: child})
		return nil
	case indent == top.indent:
	default:
		found := -1
		for k := len(p.listStack) - 1; k >= 0; k-- {
			if p.listStack[k].indent == indent {
				found = k
				break
			}
			if p.listStack[k].indent < indent {
				break
			}
		}
		if found < 0 {
			return malformed(lineNo, "list item indentation does not match any open list level")
		}
		p.listStack = p.listStack[:found+1]
	}

	cur := p.listStack[len(p.listStack)-1]
	if cur.list.Ordered != ordered {
		if len(p.listStack) > 1 {
			return malformed(lineNo, "mixed list markers within one nested list")
		}
		p.closeList()
		p.startList(indent, ordered, m[2])
		cur = p.listStack[0]
	}
	cur.list.Items = append(cur.list.Items, item)
	return nil
}

func (p *parser) startList(indent int, ordered bool, marker string) {
	l := &dc.List{Ordered: ordered, Start: listStart(marker), Items: []dc.ListItem{}}
	p.listBlock = l
	p.listStack = []listFrame{{indent: indent, list: l}}
}

func listStart(marker string) int {
	n, err := strconv.Atoi(strings.TrimRight(marker, ".)"))
	if err != nil || n <= 1 {
		return 0
	}
	return n
}

func (p *parser) closeList() {
	if p.listBlock == nil {
		return
	}
	p.blocks = append(p.blocks, dc.Block{Type: dc.BlockList, List: p.listBlock})
	p.listBlock = nil
	p.listStack = nil
}

func (p *parser) flushPara() {
	if len(p.para) == 0 {
		return
	}
	p.blocks = append(p.blocks, dc.Block{Type: dc.BlockParagraph, Text: strings.Join(p.para, "\n")})
	p.para = nil
}

func (p *parser) paraToHeading(level int) {
	text := strings.Join(p.para, " ")
	p.para = nil
	p.blocks = append(p.blocks, dc.Block{Type: dc.BlockHeading, Level: level, Text: text})
}

func (p *parser) flushQuote() {
	if len(p.quote) == 0 {
		return
	}
	for len(p.quote) > 0 && strings.TrimSpace(p.quote[len(p.quote)-1]) == "" {
		p.quote = p.quote[:len(p.quote)-1]
	}
	if len(p.quote) > 0 {
		p.blocks = append(p.blocks, dc.Block{Type: dc.BlockQuote, Text: strings.Join(p.quote, "\n")})
	}
	p.quote = nil
}

func (p *parser) flushAll() {
	p.flushPara()
	p.flushQuote()
	p.closeList()
}

func indentWidth(ws string) int {
	n := 0
	for _, r := range ws {
		if r == '\t' {
			n += 4 - n%4
			continue
		}
		n++
	}
	return n
}

func joinInline(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}
