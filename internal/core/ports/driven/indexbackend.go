package driven

import (
	"context"

	"github.com/trovekeep/trove-cli/internal/core/domain"
)

// FieldHit is a single index match: one (document, field) pair with the
// backend-native rank and the stored field text.
type FieldHit struct {
	// DocumentID is the owning document.
	DocumentID int64

	// FieldID is the matched indexed-field row.
	FieldID int64

	// Kind is the field's source kind.
	Kind domain.FieldKind

	// RawRank is the backend-native relevance. The exact-token engine
	// reports a monotonically-decreasing BM25 rank (more negative =
	// better, typically within [-50, -0.1]); the segmented-token
	// engine reports a relevance float already in [0, 1].
	RawRank float64

	// Text is the stored field text that matched.
	Text string
}

// IndexQuery describes one single-term probe against a backend.
type IndexQuery struct {
	// Term is the query term. For the exact-token engine it may embed
	// '*' wildcards (trailing prefix or internal); the segmented-token
	// engine treats it as plain text to segment.
	Term string

	// Kind restricts matching to one field kind; FieldAny matches all.
	Kind domain.FieldKind

	// Limit caps the number of hits.
	Limit int

	// Fuzzy enables native approximate matching (edit distance <= 2)
	// on the segmented-token engine. The exact-token engine expresses
	// typo tolerance through wildcard variants instead and ignores it.
	Fuzzy bool
}

// IndexStats summarises one backend's persisted state.
type IndexStats struct {
	Fields int64
	Terms  int64
}

// IndexBackend is the contract shared by the two retrieval engines.
//
// Backends are single-writer/multi-reader: concurrent Index calls for
// different documents are serialised internally, and readers never
// block on writers beyond a bounded latency. The index is a derived
// cache; Reset followed by re-Index of every field reproduces it.
type IndexBackend interface {
	// Index adds one field row to the index. Indexing the same field
	// row again replaces the previous entry (idempotent).
	Index(ctx context.Context, field domain.IndexedField, title string) error

	// Remove drops every entry belonging to the document.
	Remove(ctx context.Context, documentID int64) error

	// Search runs a single-term probe and returns ranked hits.
	Search(ctx context.Context, q IndexQuery) ([]FieldHit, error)

	// Reset drops the entire index so it can be rebuilt.
	Reset(ctx context.Context) error

	// Stats reports index size counters.
	Stats(ctx context.Context) (IndexStats, error)

	// Close releases resources.
	Close() error
}

// LiteralScanner is the last-resort retrieval path: plain substring
// containment over the exact-token engine's stored text. Used when the
// segmented-token engine is unavailable.
type LiteralScanner interface {
	// Scan returns fields whose stored text contains literal,
	// case-insensitively. Hits carry no backend rank.
	Scan(ctx context.Context, literal string, kind domain.FieldKind, limit int) ([]FieldHit, error)
}
