package content

import (
	"github.com/google/uuid"

	dc "github.com/yungbote/neurobridge-coursestore/internal/domain/content"
)

// EnsureBlockIDs assigns stable IDs to any blocks missing them (or carrying a
// duplicate). Returns the updated doc and whether any changes were made.
func EnsureBlockIDs(doc dc.Document) (dc.Document, bool) {
	changed := false
	seen := map[string]bool{}

	for i := range doc.Blocks {
		b := &doc.Blocks[i]
		if b.ID == "" || seen[b.ID] {
			t := string(b.Type)
			if t == "" {
				t = "block"
			}
			b.ID = t + "_" + uuid.New().String()
			changed = true
		}
		seen[b.ID] = true
	}

	return doc, changed
}

// carryBlockIDs copies IDs from prev onto blocks of next that sit at the same
// index with the same type, so re-parsing unchanged text keeps block identity.
func carryBlockIDs(prev *dc.Document, next dc.Document) dc.Document {
	if prev == nil {
		return next
	}
	for i := range next.Blocks {
		if i >= len(prev.Blocks) {
			break
		}
		if next.Blocks[i].ID == "" && prev.Blocks[i].Type == next.Blocks[i].Type {
			next.Blocks[i].ID = prev.Blocks[i].ID
		}
	}
	return next
}
