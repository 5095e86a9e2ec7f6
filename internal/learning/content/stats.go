package content

import (
	"strings"
	"unicode"

	dc "github.com/yungbote/neurobridge-coursestore/internal/domain/content"
)

type Stats struct {
	WordCount       int `json:"word_count"`
	ReadTimeMinutes int `json:"read_time_minutes"`
}

// WordCount counts whitespace-separated tokens holding at least one letter
// or digit, so list markers and stray punctuation are not words.
func WordCount(s string) int {
	n := 0
	for _, tok := range strings.Fields(s) {
		for _, r := range tok {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				n++
				break
			}
		}
	}
	return n
}

// ReadTimeMinutes is ceil(words / wpm); zero words read in zero minutes.
func ReadTimeMinutes(words, wpm int) int {
	if words <= 0 {
		return 0
	}
	if wpm <= 0 {
		wpm = DefaultReadingWPM
	}
	return (words + wpm - 1) / wpm
}

// Stats derives word count and read time from the structured text slot. When
// that slot is unavailable the visible text of the markup is counted.
func (c *Converter) Stats(rep dc.Representation) Stats {
	var words int
	switch {
	case rep.StructuredText.Status == dc.StatusAvailable:
		words = WordCount(rep.StructuredText.Value)
	case rep.Markup.Status == dc.StatusAvailable:
		words = WordCount(visibleText(rep.Markup.Value))
	}
	return Stats{WordCount: words, ReadTimeMinutes: ReadTimeMinutes(words, c.ReadingWPM)}
}
