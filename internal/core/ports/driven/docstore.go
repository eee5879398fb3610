package driven

import (
	"context"

	"github.com/trovekeep/trove-cli/internal/core/domain"
)

// DocumentStore persists documents and their indexed fields.
// Backed by SQLite; it is the sole source of truth from which both
// index backends can be rebuilt.
type DocumentStore interface {
	// UpsertDocument stores or updates a document under its
	// pipeline-assigned id.
	UpsertDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by id.
	GetDocument(ctx context.Context, id int64) (*domain.Document, error)

	// DeleteDocument removes a document. Fields, tag links, topics and
	// timeline entries cascade.
	DeleteDocument(ctx context.Context, id int64) error

	// AddField appends an immutable field row. Re-adding identical
	// (document, kind, content) returns the existing row id with
	// created=false.
	AddField(ctx context.Context, documentID int64, kind domain.FieldKind, content string) (field *domain.IndexedField, created bool, err error)

	// GetField retrieves one field row by id.
	GetField(ctx context.Context, id int64) (*domain.IndexedField, error)

	// ListFields returns a document's field rows, oldest first.
	ListFields(ctx context.Context, documentID int64) ([]domain.IndexedField, error)

	// WalkFields streams every field row in id order; used for full
	// index rebuilds. The walk stops on the first callback error.
	WalkFields(ctx context.Context, fn func(domain.IndexedField, string) error) error
}

// TagStore persists the document/tag relation.
type TagStore interface {
	// AddTags attaches tags to a document, creating tag rows as needed
	// (names are unique case-insensitively) and bumping usage counters.
	AddTags(ctx context.Context, documentID int64, names []string, provenance domain.TagProvenance, confidence float64) error

	// TagsFor returns a document's tag names, alphabetically.
	TagsFor(ctx context.Context, documentID int64) ([]string, error)

	// FilterByTags returns ids of documents matching the tag filter:
	// every tag in AND mode, at least one in OR mode. An empty name
	// list means no filter and returns nil with ok=false.
	FilterByTags(ctx context.Context, names []string, matchAll bool) (ids map[int64]bool, ok bool, err error)

	// SearchByTags returns documents matching the tag filter, AND mode
	// ordered by recency, OR mode by matched-tag count then recency.
	SearchByTags(ctx context.Context, names []string, matchAll bool, limit, offset int) ([]domain.TaggedDocument, error)

	// PopularTags returns tags linked to at least one document,
	// ordered by usage count then by linked-document count.
	PopularTags(ctx context.Context, limit int) ([]domain.TagUsage, error)

	// SuggestTags returns tag names with the given prefix, most used
	// first.
	SuggestTags(ctx context.Context, prefix string, limit int) ([]string, error)
}

// TopicStore persists per-document topics.
type TopicStore interface {
	// AddTopics appends topics to a document.
	AddTopics(ctx context.Context, documentID int64, topics []domain.Topic) error

	// ListTopics returns a document's topics in sequence order.
	ListTopics(ctx context.Context, documentID int64) ([]domain.Topic, error)

	// SearchTopics finds topics whose title or summary contains the
	// query substring, ordered by (document id, sequence).
	SearchTopics(ctx context.Context, query string, limit, offset int) ([]domain.TopicResult, error)
}

// TimelineStore persists per-second transcript/OCR timeline entries.
type TimelineStore interface {
	// AddEntries appends timeline entries for a document.
	AddEntries(ctx context.Context, documentID int64, entries []domain.TimelineEntry) error

	// FindTimestamp returns the earliest timestamp whose stored text
	// contains probe, or nil when nothing matches (not an error).
	FindTimestamp(ctx context.Context, documentID int64, kind domain.FieldKind, probe string) (*float64, error)
}
