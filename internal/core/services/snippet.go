package services

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// snippetContextRunes is the context kept on each side of the
	// first match.
	snippetContextRunes = 150

	// snippetFallbackRunes is the leading slice used when the term
	// does not occur literally in the text.
	snippetFallbackRunes = 300

	// timelineProbeRunes is the snippet prefix matched against
	// timeline entries.
	timelineProbeRunes = 50

	// timelineWindowSeconds widens a located timestamp into a
	// playback window.
	timelineWindowSeconds = 5.0

	ellipsis = "..."
)

// extractSnippet returns the text around the first case-insensitive
// occurrence of term, with ellipses marking clipped edges. When the
// term does not occur (a wildcard variant matched, or the hit came
// from the segmented engine) the leading slice of the text is used.
func extractSnippet(text, term string) string {
	if text == "" {
		return ""
	}
	runes := []rune(text)

	term = strings.TrimRight(term, "*")
	idx := -1
	matchRunes := 0
	if byteIdx, n := foldIndex(text, term); byteIdx >= 0 {
		idx = utf8.RuneCountInString(text[:byteIdx])
		matchRunes = utf8.RuneCountInString(text[byteIdx : byteIdx+n])
	}
	if idx < 0 {
		if len(runes) <= snippetFallbackRunes {
			return text
		}
		return string(runes[:snippetFallbackRunes]) + ellipsis
	}

	start := idx - snippetContextRunes
	if start < 0 {
		start = 0
	}
	end := idx + matchRunes + snippetContextRunes
	if end > len(runes) {
		end = len(runes)
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString(ellipsis)
	}
	b.WriteString(string(runes[start:end]))
	if end < len(runes) {
		b.WriteString(ellipsis)
	}
	return b.String()
}

// foldIndex locates the first case-insensitive occurrence of term in
// text, returning the match's byte offset and byte length, or (-1, 0).
// Matching walks the original string, so offsets stay valid when a
// case fold changes the UTF-8 length (ToLower('İ') gains a rune).
func foldIndex(text, term string) (int, int) {
	if term == "" {
		return -1, 0
	}
	termRunes := []rune(term)
	for i := range text {
		j := i
		k := 0
		for k < len(termRunes) {
			r, size := utf8.DecodeRuneInString(text[j:])
			if size == 0 || unicode.ToLower(r) != unicode.ToLower(termRunes[k]) {
				break
			}
			j += size
			k++
		}
		if k == len(termRunes) {
			return i, j - i
		}
	}
	return -1, 0
}

// timelineProbe reduces a snippet to the prefix used for timeline
// lookup, dropping the leading ellipsis a clipped snippet carries.
func timelineProbe(snippet string) string {
	probe := strings.TrimPrefix(snippet, ellipsis)
	probe = strings.TrimSpace(probe)
	runes := []rune(probe)
	if len(runes) > timelineProbeRunes {
		probe = string(runes[:timelineProbeRunes])
	}
	return probe
}
