package services

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/trovekeep/trove-cli/internal/core/domain"
	"github.com/trovekeep/trove-cli/internal/core/ports/driven"
	"github.com/trovekeep/trove-cli/internal/core/ports/driving"
	"github.com/trovekeep/trove-cli/internal/logger"
)

var _ driving.IngestService = (*IngestService)(nil)

// rebuildRate bounds full-rebuild index writes so a rebuild does not
// starve concurrent queries of the shared SQLite handle.
const rebuildRate = 500 // fields per second

// IngestService is the write side: it owns the store-then-index order.
// The document store is written first so both indexes can always be
// reconstructed from it.
type IngestService struct {
	docs      driven.DocumentStore
	tags      driven.TagStore
	topics    driven.TopicStore
	timeline  driven.TimelineStore
	exact     driven.IndexBackend
	segmented driven.IndexBackend
}

// NewIngestService creates the ingest service.
func NewIngestService(
	docs driven.DocumentStore,
	tags driven.TagStore,
	topics driven.TopicStore,
	timeline driven.TimelineStore,
	exact driven.IndexBackend,
	segmented driven.IndexBackend,
) *IngestService {
	return &IngestService{
		docs:      docs,
		tags:      tags,
		topics:    topics,
		timeline:  timeline,
		exact:     exact,
		segmented: segmented,
	}
}

// UpsertDocument stores or updates a document entity.
func (s *IngestService) UpsertDocument(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID <= 0 {
		return fmt.Errorf("%w: document id must be positive", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(doc.Title) == "" {
		return fmt.Errorf("%w: document title is required", domain.ErrInvalidInput)
	}
	return s.docs.UpsertDocument(ctx, doc)
}

// AddIndexedField appends a field row and indexes it in both backends.
// Re-adding identical content is a no-op beyond returning the existing
// row, so pipeline retries never duplicate index entries.
func (s *IngestService) AddIndexedField(
	ctx context.Context, documentID int64, kind domain.FieldKind, content string,
) (*domain.IndexedField, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown field kind %q", domain.ErrInvalidInput, kind)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: field content is empty", domain.ErrInvalidInput)
	}
	doc, err := s.docs.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	field, created, err := s.docs.AddField(ctx, documentID, kind, content)
	if err != nil {
		return nil, err
	}
	if !created {
		logger.Debug("field %d already stored for document %d, skipping index", field.ID, documentID)
		return field, nil
	}
	if err := s.indexField(ctx, *field, doc.Title); err != nil {
		return nil, err
	}
	return field, nil
}

// indexField writes one field into both backends. The exact index is
// mandatory; a segmented failure is logged and recovered by the query
// fallback chain.
func (s *IngestService) indexField(ctx context.Context, field domain.IndexedField, title string) error {
	if err := s.exact.Index(ctx, field, title); err != nil {
		return fmt.Errorf("index field %d: %w", field.ID, err)
	}
	if s.segmented != nil {
		if err := s.segmented.Index(ctx, field, title); err != nil {
			logger.Warn("segmented index for field %d: %v", field.ID, err)
		}
	}
	return nil
}

// AddTags attaches tags to a document.
func (s *IngestService) AddTags(
	ctx context.Context, documentID int64, names []string, provenance domain.TagProvenance, confidence float64,
) error {
	if len(names) == 0 {
		return nil
	}
	if _, err := s.docs.GetDocument(ctx, documentID); err != nil {
		return err
	}
	return s.tags.AddTags(ctx, documentID, names, provenance, confidence)
}

// AddTopics appends topics to a document.
func (s *IngestService) AddTopics(ctx context.Context, documentID int64, topics []domain.Topic) error {
	if len(topics) == 0 {
		return nil
	}
	if _, err := s.docs.GetDocument(ctx, documentID); err != nil {
		return err
	}
	return s.topics.AddTopics(ctx, documentID, topics)
}

// AddTimeline appends timeline entries for a document.
func (s *IngestService) AddTimeline(ctx context.Context, documentID int64, entries []domain.TimelineEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if _, err := s.docs.GetDocument(ctx, documentID); err != nil {
		return err
	}
	for _, e := range entries {
		if !e.Kind.TimeBearing() {
			return fmt.Errorf("%w: timeline entries require a time-bearing kind, got %q", domain.ErrInvalidInput, e.Kind)
		}
	}
	return s.timeline.AddEntries(ctx, documentID, entries)
}

// DeleteDocument removes a document everywhere. Index removal runs
// first so a failure leaves no unsearchable orphan rows in the store.
func (s *IngestService) DeleteDocument(ctx context.Context, documentID int64) error {
	if _, err := s.docs.GetDocument(ctx, documentID); err != nil {
		return err
	}
	if err := s.exact.Remove(ctx, documentID); err != nil {
		return fmt.Errorf("remove document %d from exact index: %w", documentID, err)
	}
	if s.segmented != nil {
		if err := s.segmented.Remove(ctx, documentID); err != nil {
			logger.Warn("remove document %d from segmented index: %v", documentID, err)
		}
	}
	return s.docs.DeleteDocument(ctx, documentID)
}

// Rebuild drops both indexes and replays every stored field into them.
func (s *IngestService) Rebuild(ctx context.Context) (int64, error) {
	logger.Section("Index Rebuild")

	if err := s.exact.Reset(ctx); err != nil {
		return 0, fmt.Errorf("reset exact index: %w", err)
	}
	if s.segmented != nil {
		if err := s.segmented.Reset(ctx); err != nil {
			return 0, fmt.Errorf("reset segmented index: %w", err)
		}
	}

	limiter := rate.NewLimiter(rate.Limit(rebuildRate), rebuildRate)
	var count int64
	err := s.docs.WalkFields(ctx, func(field domain.IndexedField, title string) error {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		if err := s.indexField(ctx, field, title); err != nil {
			return err
		}
		count++
		if count%1000 == 0 {
			logger.Debug("rebuilt %d fields", count)
		}
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("rebuild stopped after %d fields: %w", count, err)
	}
	logger.Info("rebuild complete: %d fields", count)
	return count, nil
}

// Stats reports sizes of both index backends.
func (s *IngestService) Stats(ctx context.Context) (domain.IndexReport, error) {
	var report domain.IndexReport

	exact, err := s.exact.Stats(ctx)
	if err != nil {
		return report, fmt.Errorf("exact index stats: %w", err)
	}
	report.ExactFields = exact.Fields
	report.ExactTerms = exact.Terms

	if s.segmented != nil {
		seg, err := s.segmented.Stats(ctx)
		if err != nil {
			return report, fmt.Errorf("segmented index stats: %w", err)
		}
		report.SegmentedFields = seg.Fields
		report.SegmentedTerms = seg.Terms
	}
	return report, nil
}
