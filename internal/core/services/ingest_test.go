package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trovekeep/trove-cli/internal/core/domain"
)

func newIngestService(t *testing.T, st testStores, exact, segmented *mockBackend) *IngestService {
	t.Helper()
	if segmented == nil {
		return NewIngestService(st.docs, st.tags, st.topics, st.timeline, exact, nil)
	}
	return NewIngestService(st.docs, st.tags, st.topics, st.timeline, exact, segmented)
}

func TestUpsertDocumentValidation(t *testing.T) {
	st := newTestStores()
	svc := newIngestService(t, st, &mockBackend{}, nil)
	ctx := context.Background()

	err := svc.UpsertDocument(ctx, &domain.Document{ID: 0, Title: "ok"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = svc.UpsertDocument(ctx, &domain.Document{ID: 1, Title: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = svc.UpsertDocument(ctx, &domain.Document{ID: 1, Title: "Lecture"})
	require.NoError(t, err)

	doc, err := st.docs.GetDocument(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Lecture", doc.Title)
}

func TestAddIndexedFieldWritesBothBackends(t *testing.T) {
	st := newTestStores()
	seedDocuments(t, st, 1)
	exact := &mockBackend{}
	segmented := &mockBackend{}
	svc := newIngestService(t, st, exact, segmented)

	field, err := svc.AddIndexedField(context.Background(), 1, domain.FieldReport, "analysis text")

	require.NoError(t, err)
	require.NotNil(t, field)
	assert.Equal(t, domain.FieldReport, field.Kind)
	require.Len(t, exact.indexed, 1)
	require.Len(t, segmented.indexed, 1)
	assert.Equal(t, field.ID, exact.indexed[0].ID)
}

func TestAddIndexedFieldValidation(t *testing.T) {
	st := newTestStores()
	seedDocuments(t, st, 1)
	svc := newIngestService(t, st, &mockBackend{}, nil)
	ctx := context.Background()

	_, err := svc.AddIndexedField(ctx, 1, domain.FieldKind("bogus"), "text")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.AddIndexedField(ctx, 1, domain.FieldAny, "text")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.AddIndexedField(ctx, 1, domain.FieldReport, "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.AddIndexedField(ctx, 99, domain.FieldReport, "text")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAddIndexedFieldIdempotent(t *testing.T) {
	st := newTestStores()
	seedDocuments(t, st, 1)
	exact := &mockBackend{}
	svc := newIngestService(t, st, exact, nil)
	ctx := context.Background()

	first, err := svc.AddIndexedField(ctx, 1, domain.FieldTranscript, "same content")
	require.NoError(t, err)
	second, err := svc.AddIndexedField(ctx, 1, domain.FieldTranscript, "same content")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	// The duplicate is not re-indexed.
	assert.Len(t, exact.indexed, 1)

	// Same content under a different kind is a new row.
	third, err := svc.AddIndexedField(ctx, 1, domain.FieldOCR, "same content")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
	assert.Len(t, exact.indexed, 2)
}

func TestAddTimelineRequiresTimeBearingKind(t *testing.T) {
	st := newTestStores()
	seedDocuments(t, st, 1)
	svc := newIngestService(t, st, &mockBackend{}, nil)
	ctx := context.Background()

	err := svc.AddTimeline(ctx, 1, []domain.TimelineEntry{
		{TimestampSeconds: 3, Kind: domain.FieldReport, Text: "nope"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = svc.AddTimeline(ctx, 1, []domain.TimelineEntry{
		{TimestampSeconds: 3, Kind: domain.FieldTranscript, Text: "spoken line"},
		{TimestampSeconds: 7, Kind: domain.FieldOCR, Text: "caption"},
	})
	require.NoError(t, err)
}

func TestAddTagsUnknownDocument(t *testing.T) {
	st := newTestStores()
	svc := newIngestService(t, st, &mockBackend{}, nil)

	err := svc.AddTags(context.Background(), 42, []string{"ml"}, domain.ProvenanceAuto, 0.9)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Empty tag list is a no-op, not an error.
	err = svc.AddTags(context.Background(), 42, nil, domain.ProvenanceAuto, 0)
	assert.NoError(t, err)
}

func TestDeleteDocumentRemovesFromIndexesFirst(t *testing.T) {
	st := newTestStores()
	seedDocuments(t, st, 1)
	exact := &mockBackend{}
	segmented := &mockBackend{}
	svc := newIngestService(t, st, exact, segmented)
	ctx := context.Background()

	_, err := svc.AddIndexedField(ctx, 1, domain.FieldReport, "to be deleted")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteDocument(ctx, 1))

	assert.Equal(t, []int64{1}, exact.removed)
	assert.Equal(t, []int64{1}, segmented.removed)
	_, err = st.docs.GetDocument(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = svc.DeleteDocument(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRebuildReplaysEveryField(t *testing.T) {
	st := newTestStores()
	seedDocuments(t, st, 2)
	exact := &mockBackend{}
	segmented := &mockBackend{}
	svc := newIngestService(t, st, exact, segmented)
	ctx := context.Background()

	_, err := svc.AddIndexedField(ctx, 1, domain.FieldReport, "first report")
	require.NoError(t, err)
	_, err = svc.AddIndexedField(ctx, 1, domain.FieldTranscript, "first transcript")
	require.NoError(t, err)
	_, err = svc.AddIndexedField(ctx, 2, domain.FieldReport, "second report")
	require.NoError(t, err)

	count, err := svc.Rebuild(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, 1, exact.resets)
	assert.Equal(t, 1, segmented.resets)
	// 3 initial writes plus 3 replayed.
	assert.Len(t, exact.indexed, 6)
}

func TestStatsMergesBackends(t *testing.T) {
	st := newTestStores()
	seedDocuments(t, st, 1)
	exact := &mockBackend{}
	segmented := &mockBackend{}
	svc := newIngestService(t, st, exact, segmented)
	ctx := context.Background()

	_, err := svc.AddIndexedField(ctx, 1, domain.FieldReport, "counted")
	require.NoError(t, err)

	report, err := svc.Stats(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(1), report.ExactFields)
	assert.Equal(t, int64(1), report.SegmentedFields)
}
