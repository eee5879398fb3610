// Package segment provides the two text-analysis strategies used by
// the index backends: a whitespace/lowercase analyzer for Latin-script
// content and a dictionary segmenter for unsegmented scripts, plus the
// script classification the query planner routes on.
package segment

import (
	"strings"
	"unicode"

	"github.com/go-ego/gse"
)

// Script is the result of classifying a keyword's writing system.
type Script int

// Script families the planner distinguishes.
const (
	// ScriptLatin covers whitespace-delimited scripts.
	ScriptLatin Script = iota

	// ScriptCJK covers text containing CJK ideographs, which need
	// dictionary segmentation.
	ScriptCJK
)

// ClassifyScript returns ScriptCJK when s contains at least one CJK
// ideograph, ScriptLatin otherwise. Pure function; the planner selects
// the backend from its result.
func ClassifyScript(s string) Script {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return ScriptCJK
		}
	}
	return ScriptLatin
}

// Analyzer splits text into searchable tokens.
type Analyzer interface {
	// Tokens returns the lowercased tokens of text, in order.
	Tokens(text string) []string
}

// Latin tokenizes on non-alphanumeric boundaries. Suitable for
// whitespace-delimited scripts; stemming is left to the exact-token
// engine's own tokenizer.
type Latin struct{}

// Tokens implements Analyzer.
func (Latin) Tokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	return fields
}

// Dictionary segments text with a gse dictionary segmenter. When the
// dictionary cannot be loaded it degrades to overlapping character
// bigrams for ideograph runs, which keeps the segmented index usable
// at reduced precision.
type Dictionary struct {
	seg    gse.Segmenter
	loaded bool
}

// NewDictionary loads the default embedded dictionary.
func NewDictionary() *Dictionary {
	d := &Dictionary{}
	seg, err := gse.New()
	if err == nil {
		d.seg = seg
		d.loaded = true
	}
	return d
}

// Loaded reports whether the dictionary segmenter is active.
func (d *Dictionary) Loaded() bool {
	return d.loaded
}

// Tokens implements Analyzer. Mixed-script input yields both segmented
// ideograph terms and lowercased Latin tokens.
func (d *Dictionary) Tokens(text string) []string {
	if d.loaded {
		cut := d.seg.CutSearch(text, true)
		out := make([]string, 0, len(cut))
		for _, t := range cut {
			t = strings.TrimSpace(strings.ToLower(t))
			if t == "" || isPunct(t) {
				continue
			}
			out = append(out, t)
		}
		return out
	}
	return bigramTokens(text)
}

// isPunct reports whether s consists only of punctuation or symbols.
func isPunct(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return false
		}
	}
	return true
}

// bigramTokens emits overlapping rune bigrams for ideograph runs and
// plain lowercased tokens for everything else.
func bigramTokens(text string) []string {
	var out []string
	var latin strings.Builder
	var run []rune

	flushLatin := func() {
		if latin.Len() > 0 {
			out = append(out, latin.String())
			latin.Reset()
		}
	}
	flushRun := func() {
		if len(run) == 1 {
			out = append(out, string(run[0]))
		}
		for i := 0; i+1 < len(run); i++ {
			out = append(out, string(run[i:i+2]))
		}
		run = run[:0]
	}

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flushLatin()
			run = append(run, r)
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			flushRun()
			latin.WriteRune(unicode.ToLower(r))
		default:
			flushLatin()
			flushRun()
		}
	}
	flushLatin()
	flushRun()
	return out
}
