package segmented

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trovekeep/trove-cli/internal/core/domain"
	"github.com/trovekeep/trove-cli/internal/core/ports/driven"
	"github.com/trovekeep/trove-cli/internal/segment"
)

// newTestIndex opens an in-memory index with the deterministic Latin
// analyzer.
func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewIndex("", segment.Latin{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func field(id, docID int64, kind domain.FieldKind, content string) domain.IndexedField {
	return domain.IndexedField{ID: id, DocumentID: docID, Kind: kind, Content: content}
}

func TestIndexAndSearch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Index(ctx, field(1, 1, domain.FieldTranscript, "machine learning basics"), "Lecture"))
	require.NoError(t, idx.Index(ctx, field(2, 2, domain.FieldTranscript, "cooking pasta"), "Dinner"))

	hits, err := idx.Search(ctx, driven.IndexQuery{Term: "machine", Limit: 10})

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(1), hits[0].DocumentID)
	assert.Equal(t, "machine learning basics", hits[0].Text)
	// Single term, tf=1: score tf/(tf+1) = 0.5.
	assert.InDelta(t, 0.5, hits[0].RawRank, 1e-9)
}

func TestSearchMultiTokenAverages(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Index(ctx, field(1, 1, domain.FieldTranscript, "machine learning basics"), ""))
	require.NoError(t, idx.Index(ctx, field(2, 2, domain.FieldTranscript, "machine maintenance"), ""))

	hits, err := idx.Search(ctx, driven.IndexQuery{Term: "machine learning", Limit: 10})

	require.NoError(t, err)
	require.Len(t, hits, 2)
	// Both tokens present averages higher than one of two.
	assert.Equal(t, int64(1), hits[0].DocumentID)
	assert.InDelta(t, 0.5, hits[0].RawRank, 1e-9)
	assert.Equal(t, int64(2), hits[1].DocumentID)
	assert.InDelta(t, 0.25, hits[1].RawRank, 1e-9)
}

func TestSearchFuzzy(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Index(ctx, field(1, 1, domain.FieldTranscript, "machine learning"), ""))

	// One edit away resolves to "machine" at 80% weight.
	hits, err := idx.Search(ctx, driven.IndexQuery{Term: "machin", Fuzzy: true, Limit: 10})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 0.4, hits[0].RawRank, 1e-9)

	// Without fuzzy the typo finds nothing.
	hits, err = idx.Search(ctx, driven.IndexQuery{Term: "machin", Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, hits)

	// Beyond the edit-distance cap finds nothing either.
	hits, err = idx.Search(ctx, driven.IndexQuery{Term: "mchn", Fuzzy: true, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchKindFilter(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Index(ctx, field(1, 1, domain.FieldTranscript, "shared keyword"), ""))
	require.NoError(t, idx.Index(ctx, field(2, 1, domain.FieldOCR, "shared keyword"), ""))

	hits, err := idx.Search(ctx, driven.IndexQuery{Term: "shared", Kind: domain.FieldOCR, Limit: 10})

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(2), hits[0].FieldID)
}

func TestReindexReplacesPostings(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Index(ctx, field(1, 1, domain.FieldTranscript, "old content"), ""))
	require.NoError(t, idx.Index(ctx, field(1, 1, domain.FieldTranscript, "new material"), ""))

	hits, err := idx.Search(ctx, driven.IndexQuery{Term: "old", Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = idx.Search(ctx, driven.IndexQuery{Term: "material", Limit: 10})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "new material", hits[0].Text)

	st, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Fields)
}

func TestRemove(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Index(ctx, field(1, 1, domain.FieldTranscript, "shared keyword"), ""))
	require.NoError(t, idx.Index(ctx, field(2, 1, domain.FieldOCR, "shared keyword"), ""))
	require.NoError(t, idx.Index(ctx, field(3, 2, domain.FieldTranscript, "shared keyword"), ""))

	require.NoError(t, idx.Remove(ctx, 1))

	hits, err := idx.Search(ctx, driven.IndexQuery{Term: "shared", Limit: 10})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(2), hits[0].DocumentID)

	st, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Fields)
}

func TestResetAndStats(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Index(ctx, field(1, 1, domain.FieldTranscript, "some words here"), ""))

	st, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Fields)
	assert.Positive(t, st.Terms)

	require.NoError(t, idx.Reset(ctx))

	st, err = idx.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Fields)
	assert.Zero(t, st.Terms)
}

// rawAnalyzer splits on whitespace only, keeping punctuation inside
// tokens.
type rawAnalyzer struct{}

func (rawAnalyzer) Tokens(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

func TestColonTokensDoNotAlias(t *testing.T) {
	idx, err := NewIndex("", rawAnalyzer{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, field(1, 1, domain.FieldTranscript, "starts at 1:30"), ""))
	require.NoError(t, idx.Index(ctx, field(2, 2, domain.FieldTranscript, "chapter 1"), ""))

	// "1" must not sweep up postings stored under "1:30".
	hits, err := idx.Search(ctx, driven.IndexQuery{Term: "1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(2), hits[0].DocumentID)

	hits, err = idx.Search(ctx, driven.IndexQuery{Term: "1:30", Limit: 10})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(1), hits[0].DocumentID)
}

func TestBigramFallbackRoundTrip(t *testing.T) {
	idx, err := NewIndex("", &segment.Dictionary{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, field(1, 1, domain.FieldTranscript, "深度学习入门"), ""))

	hits, err := idx.Search(ctx, driven.IndexQuery{Term: "深度学习", Limit: 10})

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(1), hits[0].DocumentID)
	assert.Positive(t, hits[0].RawRank)
}
