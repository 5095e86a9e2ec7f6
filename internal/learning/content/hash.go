package content

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	dc "github.com/yungbote/neurobridge-coursestore/internal/domain/content"
)

func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// CanonicalizeJSON marshals a JSON value with stable key ordering and no whitespace.
// Input may be raw bytes or any json-marshalable value.
func CanonicalizeJSON(v any) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		var obj any
		if err := json.Unmarshal(t, &obj); err != nil {
			return nil, err
		}
		return json.Marshal(obj)
	default:
		return json.Marshal(v)
	}
}

// ContentHash fingerprints the authoritative slot of a representation.
// Block IDs are excluded so that re-keying a document does not change it.
func ContentHash(rep dc.Representation) string {
	switch rep.Primary {
	case dc.FormatRichDocument:
		if rep.RichDocument.Document == nil {
			return HashBytes([]byte("rich_document|"))
		}
		d := rep.RichDocument.Document.Clone()
		for i := range d.Blocks {
			d.Blocks[i].ID = ""
		}
		b, err := CanonicalizeJSON(d)
		if err != nil {
			return ""
		}
		return HashBytes(append([]byte("rich_document|"), b...))
	case dc.FormatMarkup:
		return HashBytes([]byte("markup|" + rep.Markup.Value))
	default:
		return HashBytes([]byte("structured_text|" + rep.StructuredText.Value))
	}
}
