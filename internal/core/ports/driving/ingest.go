package driving

import (
	"context"

	"github.com/trovekeep/trove-cli/internal/core/domain"
)

// IngestService is the boundary consumed from the external content
// pipeline. Writes are linearizable with respect to subsequent reads
// of the same document: a field is searchable as soon as
// AddIndexedField returns.
type IngestService interface {
	// UpsertDocument creates or updates a document entity.
	UpsertDocument(ctx context.Context, doc *domain.Document) error

	// AddIndexedField appends a field row and indexes it in both
	// backends. Identical content is idempotent.
	AddIndexedField(ctx context.Context, documentID int64, kind domain.FieldKind, content string) (*domain.IndexedField, error)

	// AddTags attaches tags to a document.
	AddTags(ctx context.Context, documentID int64, names []string, provenance domain.TagProvenance, confidence float64) error

	// AddTopics appends topics to a document.
	AddTopics(ctx context.Context, documentID int64, topics []domain.Topic) error

	// AddTimeline appends timeline entries for a document.
	AddTimeline(ctx context.Context, documentID int64, entries []domain.TimelineEntry) error

	// DeleteDocument removes a document, cascading to fields, tags,
	// topics, timeline entries and both indexes.
	DeleteDocument(ctx context.Context, documentID int64) error

	// Rebuild drops both indexes and reconstructs them from the
	// document store. Returns the number of fields re-indexed.
	Rebuild(ctx context.Context) (int64, error)

	// Stats reports sizes of both index backends.
	Stats(ctx context.Context) (domain.IndexReport, error)
}
