package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trovekeep/trove-cli/internal/adapters/driven/storage/memory"
	"github.com/trovekeep/trove-cli/internal/core/domain"
	"github.com/trovekeep/trove-cli/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockBackend implements driven.IndexBackend with canned per-term hits.
type mockBackend struct {
	hits      map[string][]driven.FieldHit
	searchErr error
	queries   []driven.IndexQuery
	indexed   []domain.IndexedField
	removed   []int64
	resets    int
}

func (m *mockBackend) Index(_ context.Context, field domain.IndexedField, _ string) error {
	m.indexed = append(m.indexed, field)
	return nil
}

func (m *mockBackend) Remove(_ context.Context, documentID int64) error {
	m.removed = append(m.removed, documentID)
	return nil
}

func (m *mockBackend) Search(_ context.Context, q driven.IndexQuery) ([]driven.FieldHit, error) {
	m.queries = append(m.queries, q)
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	hits := m.hits[q.Term]
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits, nil
}

func (m *mockBackend) Reset(_ context.Context) error {
	m.resets++
	return nil
}

func (m *mockBackend) Stats(_ context.Context) (driven.IndexStats, error) {
	return driven.IndexStats{Fields: int64(len(m.indexed))}, nil
}

func (m *mockBackend) Close() error { return nil }

// mockScannerBackend adds the literal-scan fallback to mockBackend.
type mockScannerBackend struct {
	mockBackend
	scanHits []driven.FieldHit
	scanErr  error
	scans    int
}

func (m *mockScannerBackend) Scan(
	_ context.Context, _ string, _ domain.FieldKind, limit int,
) ([]driven.FieldHit, error) {
	m.scans++
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	hits := m.scanHits
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// --- Test fixtures ---

type testStores struct {
	docs     *memory.DocumentStore
	tags     *memory.TagStore
	topics   *memory.TopicStore
	timeline *memory.TimelineStore
}

func newTestStores() testStores {
	docs := memory.NewDocumentStore()
	tags := memory.NewTagStore(docs)
	return testStores{
		docs:     docs,
		tags:     tags,
		topics:   memory.NewTopicStore(docs, tags),
		timeline: memory.NewTimelineStore(docs),
	}
}

func newTestService(t *testing.T, st testStores, exact, segmented driven.IndexBackend) *SearchService {
	t.Helper()
	svc := NewSearchService(st.docs, st.tags, st.topics, st.timeline, exact, segmented)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

// seedDocuments registers n documents with ascending creation times.
func seedDocuments(t *testing.T, st testStores, n int) {
	t.Helper()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		err := st.docs.UpsertDocument(context.Background(), &domain.Document{
			ID:              int64(i),
			Title:           fmt.Sprintf("Document %d", i),
			Source:          domain.SourceVideo,
			DurationSeconds: float64(i * 60),
			CreatedAt:       base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}
}

func hit(docID, fieldID int64, kind domain.FieldKind, rank float64, text string) driven.FieldHit {
	return driven.FieldHit{DocumentID: docID, FieldID: fieldID, Kind: kind, RawRank: rank, Text: text}
}

// --- Tests ---

func TestSearchEmptyQuery(t *testing.T) {
	st := newTestStores()
	svc := newTestService(t, st, &mockBackend{}, nil)

	results, err := svc.Search(context.Background(), "   ", domain.SearchOptions{})

	require.NoError(t, err)
	assert.Empty(t, results)
	assert.False(t, svc.NeedsRebuild())
}

func TestSearchSingleKeyword(t *testing.T) {
	st := newTestStores()
	seedDocuments(t, st, 2)
	exact := &mockBackend{hits: map[string][]driven.FieldHit{
		"neural": {
			hit(2, 20, domain.FieldReport, -25, "a neural architecture overview"),
			hit(1, 10, domain.FieldReport, -2, "neural networks in practice"),
		},
	}}
	svc := newTestService(t, st, exact, nil)

	results, err := svc.Search(context.Background(), "neural", domain.SearchOptions{Aggregate: true})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int64(1), results[0].DocumentID)
	assert.InDelta(t, 0.96, results[0].Relevance, 1e-9)
	assert.Equal(t, int64(2), results[1].DocumentID)
	assert.InDelta(t, 0.5, results[1].Relevance, 1e-9)
	assert.Contains(t, results[0].Snippet, "neural")
	require.NotNil(t, results[0].RawRank)
	assert.InDelta(t, -2, *results[0].RawRank, 1e-9)
	assert.Equal(t, "Document 1", results[0].Title)
}

func TestSearchFuzzyVariantsDamped(t *testing.T) {
	st := newTestStores()
	seedDocuments(t, st, 1)
	// Nothing for the exact pass; the prefix variant matches.
	exact := &mockBackend{hits: map[string][]driven.FieldHit{
		"neural*": {hit(1, 10, domain.FieldReport, -10, "neuralnet deep dive")},
	}}
	svc := newTestService(t, st, exact, nil)

	results, err := svc.Search(context.Background(), "neural",
		domain.SearchOptions{Aggregate: true, Fuzzy: true})

	require.NoError(t, err)
	require.Len(t, results, 1)
	// norm(-10)=0.8, prefix weight 1.0, fuzzy damp 0.8.
	assert.InDelta(t, 0.64, results[0].Relevance, 1e-9)
}

func TestSearchFuzzyDisabled(t *testing.T) {
	st := newTestStores()
	seedDocuments(t, st, 1)
	exact := &mockBackend{hits: map[string][]driven.FieldHit{
		"neural*": {hit(1, 10, domain.FieldReport, -10, "neuralnet deep dive")},
	}}
	svc := newTestService(t, st, exact, nil)

	results, err := svc.Search(context.Background(), "neural", domain.SearchOptions{Aggregate: true})

	require.NoError(t, err)
	assert.Empty(t, results)
	// Only the exact pass ran.
	require.Len(t, exact.queries, 1)
	assert.Equal(t, "neural", exact.queries[0].Term)
}

func TestSearchExactPassWinsOverVariant(t *testing.T) {
	st := newTestStores()
	seedDocuments(t, st, 2)
	exact := &mockBackend{hits: map[string][]driven.FieldHit{
		"test":  {hit(1, 10, domain.FieldReport, -5, "test coverage report")},
		"test*": {hit(1, 11, domain.FieldReport, -1, "testing again"), hit(2, 20, domain.FieldReport, -5, "tested elsewhere")},
	}}
	svc := newTestService(t, st, exact, nil)

	results, err := svc.Search(context.Background(), "test",
		domain.SearchOptions{Aggregate: true, Fuzzy: true})

	require.NoError(t, err)
	require.Len(t, results, 2)
	// Document 1 keeps its exact-pass score; the variant hit for the
	// same document is skipped.
	assert.Equal(t, int64(1), results[0].DocumentID)
	assert.InDelta(t, 0.9, results[0].Relevance, 1e-9)
	assert.Equal(t, int64(2), results[1].DocumentID)
	assert.InDelta(t, 0.72, results[1].Relevance, 1e-9)
}

func TestSearchCorruptedIndexFlagsRebuild(t *testing.T) {
	st := newTestStores()
	exact := &mockBackend{searchErr: fmt.Errorf("%w: disk image is malformed", domain.ErrIndexCorrupted)}
	svc := newTestService(t, st, exact, nil)

	results, err := svc.Search(context.Background(), "anything", domain.SearchOptions{})

	require.NoError(t, err)
	assert.Empty(t, results)
	assert.True(t, svc.NeedsRebuild())
}

func TestSearchFallsBackToLiteralScan(t *testing.T) {
	st := newTestStores()
	seedDocuments(t, st, 1)
	exact := &mockScannerBackend{
		mockBackend: mockBackend{searchErr: errors.New("engine offline")},
		scanHits:    []driven.FieldHit{hit(1, 10, domain.FieldReport, 0, "literal mention of term")},
	}
	svc := newTestService(t, st, exact, nil)

	results, err := svc.Search(context.Background(), "term", domain.SearchOptions{Aggregate: true})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1.0, results[0].Relevance)
	assert.Nil(t, results[0].RawRank)
	assert.Equal(t, 1, exact.scans)
	assert.False(t, svc.NeedsRebuild())
}

func TestSearchRoutesCJKToSegmented(t *testing.T) {
	st := newTestStores()
	seedDocuments(t, st, 1)
	exact := &mockBackend{}
	segmented := &mockBackend{hits: map[string][]driven.FieldHit{
		"深度学习": {hit(1, 10, domain.FieldTranscript, 0.7, "讲解深度学习基础")},
	}}
	svc := newTestService(t, st, exact, segmented)

	results, err := svc.Search(context.Background(), "深度学习", domain.SearchOptions{Aggregate: true})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.7, results[0].Relevance, 1e-9)
	assert.Empty(t, exact.queries)
}

func TestSearchSegmentedFailureFallsBackToScan(t *testing.T) {
	st := newTestStores()
	seedDocuments(t, st, 1)
	exact := &mockScannerBackend{
		scanHits: []driven.FieldHit{hit(1, 10, domain.FieldTranscript, 0, "包含深度学习的片段")},
	}
	segmented := &mockBackend{searchErr: errors.New("store unavailable")}
	svc := newTestService(t, st, exact, segmented)

	results, err := svc.Search(context.Background(), "深度学习", domain.SearchOptions{Aggregate: true})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1.0, results[0].Relevance)
}

func TestSearchTagFilter(t *testing.T) {
	st := newTestStores()
	seedDocuments(t, st, 2)
	require.NoError(t, st.tags.AddTags(context.Background(), 1, []string{"ml"}, domain.ProvenanceAuto, 1))
	exact := &mockBackend{hits: map[string][]driven.FieldHit{
		"model": {
			hit(1, 10, domain.FieldReport, -5, "model one"),
			hit(2, 20, domain.FieldReport, -2, "model two"),
		},
	}}
	svc := newTestService(t, st, exact, nil)

	results, err := svc.Search(context.Background(), "model",
		domain.SearchOptions{Aggregate: true, Tags: []string{"ml"}})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].DocumentID)
	assert.Equal(t, []string{"ml"}, results[0].Tags)
}

func TestSearchMinRelevance(t *testing.T) {
	st := newTestStores()
	seedDocuments(t, st, 2)
	exact := &mockBackend{hits: map[string][]driven.FieldHit{
		"graph": {
			hit(1, 10, domain.FieldReport, -5, "strong"),  // 0.9
			hit(2, 20, domain.FieldReport, -40, "barely"), // 0.2
		},
	}}
	svc := newTestService(t, st, exact, nil)

	results, err := svc.Search(context.Background(), "graph",
		domain.SearchOptions{Aggregate: true, MinRelevance: 0.5})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].DocumentID)
}

func TestSearchAggregation(t *testing.T) {
	st := newTestStores()
	seedDocuments(t, st, 1)
	exact := &mockBackend{hits: map[string][]driven.FieldHit{
		"topic": {
			hit(1, 10, domain.FieldReport, -5, "report text"),
			hit(1, 11, domain.FieldTranscript, -2, "transcript text"),
		},
	}}
	svc := newTestService(t, st, exact, nil)

	aggregated, err := svc.Search(context.Background(), "topic", domain.SearchOptions{Aggregate: true})
	require.NoError(t, err)
	require.Len(t, aggregated, 1)
	assert.Equal(t, domain.FieldTranscript, aggregated[0].Field)
	assert.InDelta(t, 0.96, aggregated[0].Relevance, 1e-9)

	perField, err := svc.Search(context.Background(), "topic", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Len(t, perField, 2)
}

func TestSearchSortModes(t *testing.T) {
	st := newTestStores()
	seedDocuments(t, st, 3) // durations 60/120/180, created ascending
	exact := &mockBackend{hits: map[string][]driven.FieldHit{
		"clip": {
			hit(1, 10, domain.FieldReport, -10, "one"),
			hit(2, 20, domain.FieldReport, -10, "two"),
			hit(3, 30, domain.FieldReport, -20, "three"),
		},
	}}
	svc := newTestService(t, st, exact, nil)
	ctx := context.Background()

	byDate, err := svc.Search(ctx, "clip", domain.SearchOptions{Aggregate: true, SortBy: domain.SortDate})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2, 1}, resultIDs(byDate))

	byDuration, err := svc.Search(ctx, "clip", domain.SearchOptions{Aggregate: true, SortBy: domain.SortDuration})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2, 1}, resultIDs(byDuration))

	// Equal relevance ties break on document id ascending.
	byRelevance, err := svc.Search(ctx, "clip", domain.SearchOptions{Aggregate: true})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, resultIDs(byRelevance))

	byTitle, err := svc.Search(ctx, "clip", domain.SearchOptions{Aggregate: true, SortBy: domain.SortTitle})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, resultIDs(byTitle))
}

func TestSearchPagination(t *testing.T) {
	st := newTestStores()
	seedDocuments(t, st, 3)
	exact := &mockBackend{hits: map[string][]driven.FieldHit{
		"page": {
			hit(1, 10, domain.FieldReport, -5, "one"),
			hit(2, 20, domain.FieldReport, -10, "two"),
			hit(3, 30, domain.FieldReport, -15, "three"),
		},
	}}
	svc := newTestService(t, st, exact, nil)

	results, err := svc.Search(context.Background(), "page",
		domain.SearchOptions{Aggregate: true, Limit: 1, Offset: 1})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(2), results[0].DocumentID)

	beyond, err := svc.Search(context.Background(), "page",
		domain.SearchOptions{Aggregate: true, Limit: 10, Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestSearchMultiKeywordCoverage(t *testing.T) {
	st := newTestStores()
	seedDocuments(t, st, 2)
	exact := &mockBackend{hits: map[string][]driven.FieldHit{
		"alpha": {
			hit(1, 10, domain.FieldReport, -10, "alpha in document one"), // 0.8
			hit(2, 20, domain.FieldReport, -5, "alpha in document two"),  // 0.9
		},
		"beta": {
			hit(1, 11, domain.FieldReport, -20, "beta in document one"), // 0.6
		},
	}}
	svc := newTestService(t, st, exact, nil)

	results, err := svc.Search(context.Background(), "alpha beta", domain.SearchOptions{Aggregate: true})

	require.NoError(t, err)
	require.Len(t, results, 2)
	// Document 2: avg 0.9, coverage 1/2 -> 0.9*0.85=0.765.
	assert.Equal(t, int64(2), results[0].DocumentID)
	assert.InDelta(t, 0.765, results[0].Relevance, 1e-9)
	// Document 1: avg 0.7, full coverage -> 0.7.
	assert.Equal(t, int64(1), results[1].DocumentID)
	assert.InDelta(t, 0.7, results[1].Relevance, 1e-9)
}

func TestSearchMultiKeywordMatchAll(t *testing.T) {
	st := newTestStores()
	seedDocuments(t, st, 2)
	exact := &mockBackend{hits: map[string][]driven.FieldHit{
		"alpha": {
			hit(1, 10, domain.FieldReport, -10, "alpha one"),
			hit(2, 20, domain.FieldReport, -5, "alpha two"),
		},
		"beta": {
			hit(1, 11, domain.FieldReport, -20, "beta one"),
		},
	}}
	svc := newTestService(t, st, exact, nil)

	all, err := svc.Search(context.Background(), "alpha beta",
		domain.SearchOptions{Aggregate: true, MatchAll: true})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(1), all[0].DocumentID)

	// AND results are a subset of OR results.
	or, err := svc.Search(context.Background(), "alpha beta", domain.SearchOptions{Aggregate: true})
	require.NoError(t, err)
	assert.Subset(t, resultIDs(or), resultIDs(all))
}

func TestSearchFullTextThreshold(t *testing.T) {
	st := newTestStores()
	seedDocuments(t, st, 2)
	long := make([]byte, fullTextThreshold+100)
	for i := range long {
		long[i] = 'x'
	}
	exact := &mockBackend{hits: map[string][]driven.FieldHit{
		"body": {
			hit(1, 10, domain.FieldReport, -5, "body short enough to inline"),
			hit(2, 20, domain.FieldReport, -5, "body "+string(long)),
		},
	}}
	svc := newTestService(t, st, exact, nil)

	results, err := svc.Search(context.Background(), "body", domain.SearchOptions{Aggregate: true})

	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		switch r.DocumentID {
		case 1:
			assert.NotEmpty(t, r.FullText)
		case 2:
			assert.Empty(t, r.FullText)
			assert.NotEmpty(t, r.Snippet)
		}
	}
}

func TestSearchTimelineCorrelation(t *testing.T) {
	st := newTestStores()
	seedDocuments(t, st, 1)
	require.NoError(t, st.timeline.AddEntries(context.Background(), 1, []domain.TimelineEntry{
		{TimestampSeconds: 12, Kind: domain.FieldTranscript, Text: "xx hello world yy"},
	}))
	exact := &mockBackend{hits: map[string][]driven.FieldHit{
		"hello": {hit(1, 10, domain.FieldTranscript, -5, "hello world")},
	}}
	svc := newTestService(t, st, exact, nil)

	results, err := svc.Search(context.Background(), "hello", domain.SearchOptions{Aggregate: true})

	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].TimestampSeconds)
	assert.InDelta(t, 12, *results[0].TimestampSeconds, 1e-9)
	require.NotNil(t, results[0].TimeRange)
	assert.InDelta(t, 12, results[0].TimeRange.StartSeconds, 1e-9)
	assert.InDelta(t, 17, results[0].TimeRange.EndSeconds, 1e-9)
}

func TestSearchReportFieldHasNoTimestamp(t *testing.T) {
	st := newTestStores()
	seedDocuments(t, st, 1)
	exact := &mockBackend{hits: map[string][]driven.FieldHit{
		"hello": {hit(1, 10, domain.FieldReport, -5, "hello world")},
	}}
	svc := newTestService(t, st, exact, nil)

	results, err := svc.Search(context.Background(), "hello", domain.SearchOptions{Aggregate: true})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Nil(t, results[0].TimestampSeconds)
	assert.Nil(t, results[0].TimeRange)
}

func TestSearchByTagsEmptyList(t *testing.T) {
	st := newTestStores()
	svc := newTestService(t, st, &mockBackend{}, nil)

	docs, err := svc.SearchByTags(context.Background(), nil, true, 10, 0)

	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSearchTopicsEmptyQuery(t *testing.T) {
	st := newTestStores()
	svc := newTestService(t, st, &mockBackend{}, nil)

	topics, err := svc.SearchTopics(context.Background(), "  ", 10, 0)

	require.NoError(t, err)
	assert.Empty(t, topics)
}

func resultIDs(results []domain.SearchResult) []int64 {
	ids := make([]int64, len(results))
	for i, r := range results {
		ids[i] = r.DocumentID
	}
	return ids
}
