package content

import (
	"regexp"
	"strings"
)

type scrubRule struct {
	Label       string
	Re          *regexp.Regexp
	Replacement string
}

var wsRE = regexp.MustCompile(`[ \t]{2,}`)

// inboundScrubRules strip characters that survive copy/paste from editors and
// model output but never carry meaning in structured text.
var inboundScrubRules = []scrubRule{
	{Label: "bom", Re: regexp.MustCompile("\uFEFF"), Replacement: ""},
	{Label: "zero_width", Re: regexp.MustCompile("[\u200B\u200C\u200D\u2060]"), Replacement: ""},
	{Label: "nbsp", Re: regexp.MustCompile("\u00A0"), Replacement: " "},
	{Label: "control", Re: regexp.MustCompile("[\x01-\x08\x0B\x0C\x0E-\x1F\x7F]"), Replacement: ""},
	{Label: "trailing_ws", Re: regexp.MustCompile(`(?m)[ \t]+$`), Replacement: ""},
}

// NormalizeNewlines converts CRLF and lone CR line endings to LF.
func NormalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// SanitizeInbound normalizes newlines and applies the inbound scrub rules.
// It returns the labels of the rules that changed the text. Code fence
// bodies are scrubbed too; trailing whitespace is never significant there.
func SanitizeInbound(s string) (string, []string) {
	s = NormalizeNewlines(s)
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	hit := make([]string, 0)
	for _, r := range inboundScrubRules {
		if r.Re.MatchString(s) {
			s = r.Re.ReplaceAllString(s, r.Replacement)
			hit = append(hit, r.Label)
		}
	}
	return strings.Trim(s, "\n"), dedupeStringsLocal(hit)
}

// collapseSpaces squeezes runs of spaces/tabs inside inline text.
func collapseSpaces(s string) string {
	return strings.TrimSpace(wsRE.ReplaceAllString(s, " "))
}

func dedupeStringsLocal(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
