package domain

import "time"

// SortMode selects result ordering.
type SortMode string

// Sort modes. Every mode tie-breaks identically: score descending,
// then document id ascending.
const (
	SortRelevance SortMode = "relevance"
	SortDate      SortMode = "date"
	SortDuration  SortMode = "duration"
	SortTitle     SortMode = "title"
)

// Valid reports whether m is a known sort mode.
func (m SortMode) Valid() bool {
	switch m {
	case SortRelevance, SortDate, SortDuration, SortTitle:
		return true
	}
	return false
}

// SearchOptions configures a free-text search query.
type SearchOptions struct {
	// Tags restricts results to documents carrying all listed tags.
	// An empty list applies no filter.
	Tags []string

	// Field restricts matching to one field kind; FieldAny searches all.
	Field FieldKind

	// Limit is the maximum number of results (default 20).
	Limit int

	// Offset is the number of results to skip.
	Offset int

	// SortBy selects the ordering (default relevance).
	SortBy SortMode

	// MinRelevance drops results scoring below this threshold (0–1).
	MinRelevance float64

	// Aggregate collapses each document to its single best-matching
	// field. When false, every matching field yields its own row.
	Aggregate bool

	// MatchAll requires every keyword of a multi-keyword query to
	// match (AND); otherwise any keyword suffices (OR).
	MatchAll bool

	// Fuzzy enables typo-tolerant wildcard variants for Latin-script
	// keywords and approximate matching on the segmented index.
	Fuzzy bool
}

// SearchResult is a single ranked hit. Derived, never persisted.
type SearchResult struct {
	// DocumentID identifies the matched document.
	DocumentID int64

	// Title is the document title.
	Title string

	// Field is the source-field kind of the best match.
	Field FieldKind

	// Snippet is the matched text with bounded context.
	Snippet string

	// FullText is the complete field text, omitted above a size
	// threshold.
	FullText string

	// TimestampSeconds is the approximate media timestamp of the
	// match, when one could be correlated.
	TimestampSeconds *float64

	// TimeRange is a display window around TimestampSeconds.
	TimeRange *TimeWindow

	// Tags lists the document's tag names.
	Tags []string

	// Source is the document's origin category.
	Source SourceCategory

	// DurationSeconds is the document's media duration.
	DurationSeconds float64

	// FileRef is the document's file or location reference.
	FileRef string

	// RawRank is the backend-native rank of the best match; nil for
	// hits produced by the literal-scan fallback.
	RawRank *float64

	// Relevance is the normalized, combined score in [0, 1].
	Relevance float64

	// CreatedAt is the document's creation time.
	CreatedAt time.Time
}
