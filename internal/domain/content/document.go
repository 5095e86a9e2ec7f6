package content

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const DocumentSchemaVersion = 1

// MaxListNesting bounds list item nesting inside a rich document.
const MaxListNesting = 8

// BlockType discriminates the Block union.
type BlockType string

const (
	BlockHeading   BlockType = "heading"
	BlockParagraph BlockType = "paragraph"
	BlockList      BlockType = "list"
	BlockCode      BlockType = "code"
	BlockQuote     BlockType = "quote"
	BlockDivider   BlockType = "divider"
)

// Document is the rich editor document tree.
type Document struct {
	SchemaVersion int     `json:"schema_version"`
	Blocks        []Block `json:"blocks"`
}

// Block is a tagged union keyed by Type. Only the fields belonging to the
// variant may be set:
//
//	heading:   Level (1-6), Text
//	paragraph: Text
//	quote:     Text
//	list:      List
//	code:      Language (optional), Code
//	divider:   nothing
//
// Text fields hold inline structured text (emphasis, code spans, links).
type Block struct {
	ID       string    `json:"id,omitempty"`
	Type     BlockType `json:"type"`
	Level    int       `json:"level,omitempty"`
	Text     string    `json:"text,omitempty"`
	Language string    `json:"language,omitempty"`
	Code     string    `json:"code,omitempty"`
	List     *List     `json:"list,omitempty"`
}

type List struct {
	Ordered bool `json:"ordered"`
	// Start is the first number of an ordered list; 0 means 1.
	Start int        `json:"start,omitempty"`
	Items []ListItem `json:"items"`
}

type ListItem struct {
	Text     string `json:"text"`
	Children *List  `json:"children,omitempty"`
}

// Validate rejects any document a reader could not render: unknown block
// types, fields that do not belong to the block's variant, empty headings,
// empty lists and non-UTF-8 text.
func (d Document) Validate() error {
	if d.SchemaVersion != DocumentSchemaVersion {
		return fmt.Errorf("unsupported schema_version %d", d.SchemaVersion)
	}
	seen := make(map[string]struct{}, len(d.Blocks))
	for i, b := range d.Blocks {
		if err := b.validate(); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
		if b.ID != "" {
			if _, dup := seen[b.ID]; dup {
				return fmt.Errorf("block %d: duplicate id %q", i, b.ID)
			}
			seen[b.ID] = struct{}{}
		}
	}
	return nil
}

func (b Block) validate() error {
	for _, s := range []string{b.Text, b.Language, b.Code} {
		if !utf8.ValidString(s) {
			return fmt.Errorf("invalid utf-8")
		}
	}
	switch b.Type {
	case BlockHeading:
		if b.Level < 1 || b.Level > 6 {
			return fmt.Errorf("heading level %d out of range", b.Level)
		}
		if strings.TrimSpace(b.Text) == "" {
			return fmt.Errorf("empty heading")
		}
		if strings.Contains(b.Text, "\n") {
			return fmt.Errorf("heading text spans lines")
		}
		return onlyFields(b, "level", "text")
	case BlockParagraph, BlockQuote:
		if strings.TrimSpace(b.Text) == "" {
			return fmt.Errorf("empty %s", b.Type)
		}
		return onlyFields(b, "text")
	case BlockList:
		if b.List == nil {
			return fmt.Errorf("list block without list")
		}
		if err := b.List.validate(1); err != nil {
			return err
		}
		return onlyFields(b, "list")
	case BlockCode:
		if strings.Contains(b.Language, " ") || strings.Contains(b.Language, "\n") {
			return fmt.Errorf("invalid code language %q", b.Language)
		}
		return onlyFields(b, "language", "code")
	case BlockDivider:
		return onlyFields(b)
	case "":
		return fmt.Errorf("missing block type")
	default:
		return fmt.Errorf("unknown block type %q", b.Type)
	}
}

func onlyFields(b Block, allowed ...string) error {
	has := func(name string) bool {
		for _, a := range allowed {
			if a == name {
				return true
			}
		}
		return false
	}
	switch {
	case b.Level != 0 && !has("level"):
		return fmt.Errorf("%s block must not set level", b.Type)
	case b.Text != "" && !has("text"):
		return fmt.Errorf("%s block must not set text", b.Type)
	case b.Language != "" && !has("language"):
		return fmt.Errorf("%s block must not set language", b.Type)
	case b.Code != "" && !has("code"):
		return fmt.Errorf("%s block must not set code", b.Type)
	case b.List != nil && !has("list"):
		return fmt.Errorf("%s block must not set list", b.Type)
	}
	return nil
}

func (l *List) validate(depth int) error {
	if depth > MaxListNesting {
		return fmt.Errorf("list nesting exceeds %d", MaxListNesting)
	}
	if len(l.Items) == 0 {
		return fmt.Errorf("empty list")
	}
	if l.Start < 0 || (!l.Ordered && l.Start != 0) {
		return fmt.Errorf("invalid list start %d", l.Start)
	}
	for i, it := range l.Items {
		if !utf8.ValidString(it.Text) {
			return fmt.Errorf("list item %d: invalid utf-8", i)
		}
		if strings.Contains(it.Text, "\n") {
			return fmt.Errorf("list item %d spans lines", i)
		}
		if strings.TrimSpace(it.Text) == "" && it.Children == nil {
			return fmt.Errorf("list item %d is empty", i)
		}
		if it.Children != nil {
			if err := it.Children.validate(depth + 1); err != nil {
				return fmt.Errorf("list item %d: %w", i, err)
			}
		}
	}
	return nil
}

// Clone deep-copies the document.
func (d Document) Clone() Document {
	out := Document{SchemaVersion: d.SchemaVersion}
	if d.Blocks != nil {
		out.Blocks = make([]Block, len(d.Blocks))
		for i, b := range d.Blocks {
			out.Blocks[i] = b
			if b.List != nil {
				out.Blocks[i].List = b.List.clone()
			}
		}
	}
	return out
}

func (l *List) clone() *List {
	if l == nil {
		return nil
	}
	out := &List{Ordered: l.Ordered, Start: l.Start, Items: make([]ListItem, len(l.Items))}
	for i, it := range l.Items {
		out.Items[i] = ListItem{Text: it.Text, Children: it.Children.clone()}
	}
	return out
}
