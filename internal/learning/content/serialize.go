package content

import (
	"regexp"
	"strconv"
	"strings"

	dc "github.com/yungbote/neurobridge-coursestore/internal/domain/content"
)

var (
	// blockStartRE matches line prefixes that the parser would read as a
	// block marker; paragraph lines starting with one are escaped.
	blockStartRE  = regexp.MustCompile("^(?:#{1,6}(?:[ \\t]|$)|>|[-*+](?:[ \\t]|$)|`{3,}|~{3,}|<|=+[ \\t]*$)")
	orderedLineRE = regexp.MustCompile(`^(\d{1,9})([.)])([ \t]|$)`)
)

// RenderStructuredText serializes a document into canonical structured text.
// ParseStructuredText(RenderStructuredText(d)) yields the same block structure.
func RenderStructuredText(doc dc.Document) string {
	parts := make([]string, 0, len(doc.Blocks))
	for _, b := range doc.Blocks {
		if s := renderBlock(b); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

func renderBlock(b dc.Block) string {
	switch b.Type {
	case dc.BlockHeading:
		return strings.Repeat("#", b.Level) + " " + strings.TrimSpace(b.Text)
	case dc.BlockParagraph:
		lines := strings.Split(b.Text, "\n")
		for i, l := range lines {
			lines[i] = escapeLine(strings.TrimSpace(l))
		}
		return strings.Join(lines, "\n")
	case dc.BlockQuote:
		lines := strings.Split(b.Text, "\n")
		for i, l := range lines {
			if strings.TrimSpace(l) == "" {
				lines[i] = ">"
				continue
			}
			lines[i] = "> " + l
		}
		return strings.Join(lines, "\n")
	case dc.BlockList:
		var sb strings.Builder
		renderList(&sb, b.List, 0)
		return strings.TrimRight(sb.String(), "\n")
	case dc.BlockCode:
		fence := strings.Repeat("`", longestBacktickRun(b.Code)+1)
		if len(fence) < 3 {
			fence = "```"
		}
		return fence + b.Language + "\n" + b.Code + "\n" + fence
	case dc.BlockDivider:
		return "---"
	default:
		return ""
	}
}

// escapeLine backslash-escapes a paragraph line that would otherwise start a
// block when parsed.
func escapeLine(l string) string {
	if m := orderedLineRE.FindStringSubmatchIndex(l); m != nil {
		return l[:m[4]] + `\` + l[m[4]:]
	}
	if blockStartRE.MatchString(l) || dividerRE.MatchString(l) {
		return `\` + l
	}
	return l
}

func renderList(sb *strings.Builder, l *dc.List, indent int) {
	if l == nil {
		return
	}
	pad := strings.Repeat(" ", indent)
	start := l.Start
	if start == 0 {
		start = 1
	}
	for i, it := range l.Items {
		marker := "-"
		if l.Ordered {
			marker = strconv.Itoa(start+i) + "."
		}
		sb.WriteString(pad)
		sb.WriteString(marker)
		if it.Text != "" {
			sb.WriteString(" ")
			sb.WriteString(strings.TrimSpace(it.Text))
		}
		sb.WriteString("\n")
		if it.Children != nil {
			renderList(sb, it.Children, indent+len(marker)+1)
		}
	}
}

func longestBacktickRun(s string) int {
	best, cur := 2, 0
	for _, r := range s {
		if r == '`' {
			cur++
			if cur > best {
				best = cur
			}
			continue
		}
		cur = 0
	}
	return best
}
