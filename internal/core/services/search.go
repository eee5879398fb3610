package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/trovekeep/trove-cli/internal/core/domain"
	"github.com/trovekeep/trove-cli/internal/core/ports/driven"
	"github.com/trovekeep/trove-cli/internal/core/ports/driving"
	"github.com/trovekeep/trove-cli/internal/logger"
	"github.com/trovekeep/trove-cli/internal/segment"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// Defaults applied when the caller leaves options zero-valued.
const (
	defaultLimit = 20

	// fullTextThreshold is the largest field text attached whole to a
	// result; longer texts are represented by the snippet only.
	fullTextThreshold = 500

	// combineLimit is the internal per-keyword limit used by the
	// multi-keyword combiner so coverage is computed over effectively
	// unbounded sub-results.
	combineLimit = 1000

	// fuzzyDamp scales scores of variant-pass hits merged after the
	// exact pass.
	fuzzyDamp = 0.8

	// poolSize bounds the per-keyword fan-out workers.
	poolSize = 4
)

// scoredField is an intermediate hit: one (document, field) pair with
// its normalized score and the term to locate for snippet extraction.
type scoredField struct {
	hit     driven.FieldHit
	score   float64
	rawRank *float64 // nil for literal-scan hits
	term    string
	variant string // variant pattern that produced it, "" for the exact pass
}

// SearchService implements the hybrid search & ranking core. It owns
// no index state: backends and stores are injected, and the two index
// backends each keep their documented single-writer/multi-reader
// contract.
type SearchService struct {
	docs      driven.DocumentStore
	tags      driven.TagStore
	topics    driven.TopicStore
	timeline  driven.TimelineStore
	exact     driven.IndexBackend
	segmented driven.IndexBackend
	scanner   driven.LiteralScanner

	norm   Normalizer
	expand CodeExpander
	pool   *ants.Pool

	// corrupted is set when a structural index failure was observed;
	// the affected query returns empty and a rebuild is advised.
	corrupted atomic.Bool
}

// NewSearchService creates the search service. The exact backend
// should also implement driven.LiteralScanner to enable the
// literal-containment fallback path.
func NewSearchService(
	docs driven.DocumentStore,
	tags driven.TagStore,
	topics driven.TopicStore,
	timeline driven.TimelineStore,
	exact driven.IndexBackend,
	segmented driven.IndexBackend,
) *SearchService {
	s := &SearchService{
		docs:      docs,
		tags:      tags,
		topics:    topics,
		timeline:  timeline,
		exact:     exact,
		segmented: segmented,
		norm:      NewNormalizer(0),
		expand:    ExpandPlatformCode,
	}
	if sc, ok := exact.(driven.LiteralScanner); ok {
		s.scanner = sc
	}
	if pool, err := ants.NewPool(poolSize); err == nil {
		s.pool = pool
	}
	return s
}

// SetNormalizer overrides the score normalizer (configurable rank
// divisor).
func (s *SearchService) SetNormalizer(n Normalizer) {
	s.norm = n
}

// SetCodeExpander overrides the four-letter code expansion hook.
// Passing nil disables the expansion.
func (s *SearchService) SetCodeExpander(e CodeExpander) {
	s.expand = e
}

// Close releases the worker pool.
func (s *SearchService) Close() error {
	if s.pool != nil {
		s.pool.Release()
	}
	return nil
}

// NeedsRebuild reports whether a structural index failure was observed.
func (s *SearchService) NeedsRebuild() bool {
	return s.corrupted.Load()
}

// Search runs a free-text query through the full ranking pipeline.
func (s *SearchService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	qid := shortID()
	logger.Section("Search Execution")
	logger.Debug("[%s] query: %q", qid, query)

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("[%s] empty query, returning no results", qid)
		return []domain.SearchResult{}, nil
	}

	if opts.Limit <= 0 {
		opts.Limit = defaultLimit
	}
	if opts.SortBy == "" {
		opts.SortBy = domain.SortRelevance
	}
	logger.Debug("[%s] limit=%d offset=%d sort=%s fuzzy=%t aggregate=%t",
		qid, opts.Limit, opts.Offset, opts.SortBy, opts.Fuzzy, opts.Aggregate)

	keywords := strings.Fields(query)
	if len(keywords) > 1 {
		logger.Debug("[%s] %d keywords, delegating to combiner", qid, len(keywords))
		return s.combine(ctx, qid, keywords, opts)
	}

	hits := s.singleKeyword(ctx, qid, keywords[0], opts.Field, s.internalLimit(opts), opts.Fuzzy)
	logger.Debug("[%s] raw hits: %d", qid, len(hits))

	return s.finalize(ctx, qid, hits, opts)
}

// internalLimit requests extra hits to survive tag filtering, the
// relevance threshold and pagination.
func (s *SearchService) internalLimit(opts domain.SearchOptions) int {
	limit := (opts.Limit + opts.Offset) * 3
	if len(opts.Tags) > 0 {
		limit *= 2
	}
	if limit < 50 {
		limit = 50
	}
	return limit
}

// singleKeyword routes one keyword to a backend by script family and
// returns normalized hits. Backend failures are absorbed by the
// fallback chain; the slice is simply empty when every step failed.
func (s *SearchService) singleKeyword(
	ctx context.Context, qid, keyword string, kind domain.FieldKind, limit int, fuzzy bool,
) []scoredField {
	if segment.ClassifyScript(keyword) == segment.ScriptCJK {
		return s.segmentedSearch(ctx, qid, keyword, kind, limit, fuzzy)
	}
	return s.exactSearch(ctx, qid, keyword, kind, limit, fuzzy)
}

// segmentedSearch queries the segmented-token engine, falling back to
// a literal substring scan when the engine is unavailable.
func (s *SearchService) segmentedSearch(
	ctx context.Context, qid, keyword string, kind domain.FieldKind, limit int, fuzzy bool,
) []scoredField {
	if s.segmented != nil {
		hits, err := s.segmented.Search(ctx, driven.IndexQuery{
			Term:  keyword,
			Kind:  kind,
			Limit: limit,
			Fuzzy: fuzzy,
		})
		if err == nil {
			logger.Debug("[%s] segmented: %d hits for %q", qid, len(hits), keyword)
			out := make([]scoredField, 0, len(hits))
			for _, h := range hits {
				raw := h.RawRank
				out = append(out, scoredField{
					hit:     h,
					score:   s.norm.FromSegmentedScore(h.RawRank),
					rawRank: &raw,
					term:    keyword,
				})
			}
			return out
		}
		s.noteIndexError(qid, "segmented", err)
	}
	return s.literalScan(ctx, qid, keyword, kind, limit)
}

// literalScan is the last step of the fallback chain: substring
// containment over the exact engine's stored text. Hits carry no
// backend rank and score 1.0, ranked among themselves by recency at
// sort time.
func (s *SearchService) literalScan(
	ctx context.Context, qid, keyword string, kind domain.FieldKind, limit int,
) []scoredField {
	if s.scanner == nil {
		return nil
	}
	hits, err := s.scanner.Scan(ctx, keyword, kind, limit)
	if err != nil {
		s.noteIndexError(qid, "literal scan", err)
		return nil
	}
	logger.Debug("[%s] literal scan: %d hits for %q", qid, len(hits), keyword)
	out := make([]scoredField, 0, len(hits))
	for _, h := range hits {
		out = append(out, scoredField{hit: h, score: 1.0, term: keyword})
	}
	return out
}

// exactSearch runs the exact pass and, when fuzzy is enabled and the
// pass came up short, the prioritized wildcard variants. Documents
// already collected by a higher-priority pass are skipped.
func (s *SearchService) exactSearch(
	ctx context.Context, qid, keyword string, kind domain.FieldKind, limit int, fuzzy bool,
) []scoredField {
	if s.exact == nil {
		return s.literalScan(ctx, qid, keyword, kind, limit)
	}

	var out []scoredField
	seen := make(map[int64]bool)

	hits, err := s.exact.Search(ctx, driven.IndexQuery{Term: keyword, Kind: kind, Limit: limit})
	if err != nil {
		s.noteIndexError(qid, "exact", err)
		return s.literalScan(ctx, qid, keyword, kind, limit)
	}
	for _, h := range hits {
		raw := h.RawRank
		out = append(out, scoredField{
			hit:     h,
			score:   s.norm.FromExactRank(h.RawRank),
			rawRank: &raw,
			term:    keyword,
		})
		seen[h.DocumentID] = true
	}
	logger.Debug("[%s] exact pass: %d hits, %d documents for %q", qid, len(hits), len(seen), keyword)

	// Enough distinct documents already; skip the variant passes.
	if !fuzzy || len(seen) >= limit/2 {
		return out
	}

	for _, v := range generateVariants(keyword, s.expand) {
		if len(seen) >= limit {
			break
		}
		hits, err := s.exact.Search(ctx, driven.IndexQuery{Term: v.Pattern, Kind: kind, Limit: limit})
		if err != nil {
			s.noteIndexError(qid, "exact variant "+v.Pattern, err)
			continue
		}
		added := 0
		for _, h := range hits {
			if seen[h.DocumentID] {
				continue
			}
			seen[h.DocumentID] = true
			raw := h.RawRank
			out = append(out, scoredField{
				hit:     h,
				score:   round3(s.norm.FromExactRank(h.RawRank) * v.Weight * fuzzyDamp),
				rawRank: &raw,
				term:    keyword,
				variant: v.Pattern,
			})
			added++
		}
		if added > 0 {
			logger.Debug("[%s] variant %q: %d new documents", qid, v.Pattern, added)
		}
	}
	return out
}

// noteIndexError records an index failure. Structural corruption flags
// the index for rebuild; everything else is treated as a transient
// unavailability handled by the fallback chain.
func (s *SearchService) noteIndexError(qid, backend string, err error) {
	if errors.Is(err, domain.ErrIndexCorrupted) {
		logger.Warn("[%s] %s index corrupted, flagging for rebuild: %v", qid, backend, err)
		s.corrupted.Store(true)
		return
	}
	logger.Warn("[%s] %s backend failed: %v", qid, backend, err)
}

// finalize applies the tag filter, relevance threshold, aggregation,
// ordering and pagination, then hydrates the final page with document
// metadata, snippets and timeline positions.
func (s *SearchService) finalize(
	ctx context.Context, qid string, hits []scoredField, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	// Tag filter: AND semantics on the search path. An empty tag list
	// means "no filter", never an error.
	if allowed, ok, err := s.tags.FilterByTags(ctx, opts.Tags, true); err != nil {
		logger.Warn("[%s] tag filter failed: %v", qid, err)
		return []domain.SearchResult{}, nil
	} else if ok {
		filtered := hits[:0]
		for _, h := range hits {
			if allowed[h.hit.DocumentID] {
				filtered = append(filtered, h)
			}
		}
		hits = filtered
		logger.Debug("[%s] after tag filter: %d hits", qid, len(hits))
	}

	if opts.MinRelevance > 0 {
		filtered := hits[:0]
		for _, h := range hits {
			if h.score >= opts.MinRelevance {
				filtered = append(filtered, h)
			}
		}
		hits = filtered
	}

	if opts.Aggregate {
		hits = aggregateBest(hits)
	} else {
		hits = dedupeFields(hits)
	}

	results := make([]domain.SearchResult, 0, len(hits))
	for _, h := range hits {
		doc, err := s.docs.GetDocument(ctx, h.hit.DocumentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue // deleted since indexing
			}
			logger.Warn("[%s] hydrate document %d: %v", qid, h.hit.DocumentID, err)
			continue
		}
		names, err := s.tags.TagsFor(ctx, doc.ID)
		if err != nil {
			logger.Warn("[%s] tags for document %d: %v", qid, doc.ID, err)
		}
		res := domain.SearchResult{
			DocumentID:      doc.ID,
			Title:           doc.Title,
			Field:           h.hit.Kind,
			Tags:            names,
			Source:          doc.Source,
			DurationSeconds: doc.DurationSeconds,
			FileRef:         doc.FileRef,
			RawRank:         h.rawRank,
			Relevance:       h.score,
			CreatedAt:       doc.CreatedAt,
		}
		if len(h.hit.Text) < fullTextThreshold {
			res.FullText = h.hit.Text
		}
		res.Snippet = extractSnippet(h.hit.Text, h.term)
		results = append(results, res)
	}

	sortResults(results, opts.SortBy)
	results = paginate(results, opts.Offset, opts.Limit)

	// Timeline correlation only for the final page.
	for i := range results {
		if !results[i].Field.TimeBearing() {
			continue
		}
		ts, window := s.locateTimestamp(ctx, results[i].DocumentID, results[i].Field, results[i].Snippet)
		results[i].TimestampSeconds = ts
		results[i].TimeRange = window
	}

	logger.Info("[%s] final results: %d", qid, len(results))
	return results, nil
}

// aggregateBest keeps the single highest-scoring field per document.
// Ties prefer the lower field id so the choice is deterministic.
func aggregateBest(hits []scoredField) []scoredField {
	best := make(map[int64]scoredField, len(hits))
	for _, h := range hits {
		cur, ok := best[h.hit.DocumentID]
		if !ok || h.score > cur.score ||
			(h.score == cur.score && h.hit.FieldID < cur.hit.FieldID) {
			best[h.hit.DocumentID] = h
		}
	}
	out := make([]scoredField, 0, len(best))
	for _, h := range best {
		out = append(out, h)
	}
	return out
}

// dedupeFields keeps one hit per field row (the best-scoring one) so a
// field matched by several variants appears once.
func dedupeFields(hits []scoredField) []scoredField {
	best := make(map[int64]scoredField, len(hits))
	for _, h := range hits {
		if cur, ok := best[h.hit.FieldID]; !ok || h.score > cur.score {
			best[h.hit.FieldID] = h
		}
	}
	out := make([]scoredField, 0, len(best))
	for _, h := range best {
		out = append(out, h)
	}
	return out
}

// sortResults orders results by the requested mode. Every mode shares
// the same tie-break: relevance descending, then document id
// ascending, so merged parallel sub-results order deterministically.
func sortResults(results []domain.SearchResult, mode domain.SortMode) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		switch mode {
		case domain.SortDate:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		case domain.SortDuration:
			if a.DurationSeconds != b.DurationSeconds {
				return a.DurationSeconds > b.DurationSeconds
			}
		case domain.SortTitle:
			if a.Title != b.Title {
				return a.Title < b.Title
			}
		}
		if a.Relevance != b.Relevance {
			return a.Relevance > b.Relevance
		}
		return a.DocumentID < b.DocumentID
	})
}

// paginate applies offset and limit.
func paginate(results []domain.SearchResult, offset, limit int) []domain.SearchResult {
	if offset >= len(results) {
		return []domain.SearchResult{}
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}

// SearchByTags returns documents by tag filter alone.
func (s *SearchService) SearchByTags(
	ctx context.Context, tags []string, matchAll bool, limit, offset int,
) ([]domain.TaggedDocument, error) {
	if len(tags) == 0 {
		return []domain.TaggedDocument{}, nil
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	return s.tags.SearchByTags(ctx, tags, matchAll, limit, offset)
}

// SearchTopics finds topics by substring containment.
func (s *SearchService) SearchTopics(
	ctx context.Context, query string, limit, offset int,
) ([]domain.TopicResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.TopicResult{}, nil
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	return s.topics.SearchTopics(ctx, query, limit, offset)
}

// PopularTags lists the most used tags.
func (s *SearchService) PopularTags(ctx context.Context, limit int) ([]domain.TagUsage, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	return s.tags.PopularTags(ctx, limit)
}

// SuggestTags completes a tag name prefix.
func (s *SearchService) SuggestTags(ctx context.Context, prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.tags.SuggestTags(ctx, prefix, limit)
}

// locateTimestamp correlates a snippet with the document timeline.
func (s *SearchService) locateTimestamp(
	ctx context.Context, docID int64, kind domain.FieldKind, snippet string,
) (*float64, *domain.TimeWindow) {
	if s.timeline == nil {
		return nil, nil
	}
	probe := timelineProbe(snippet)
	if probe == "" {
		return nil, nil
	}
	ts, err := s.timeline.FindTimestamp(ctx, docID, kind, probe)
	if err != nil || ts == nil {
		return nil, nil // absence is not an error
	}
	return ts, &domain.TimeWindow{StartSeconds: *ts, EndSeconds: *ts + timelineWindowSeconds}
}

// runParallel executes tasks on the worker pool, inline when the pool
// is unavailable. It returns once every task completed.
func (s *SearchService) runParallel(tasks []func()) {
	var wg sync.WaitGroup
	wg.Add(len(tasks))
	for _, task := range tasks {
		task := task
		run := func() {
			defer wg.Done()
			task()
		}
		if s.pool == nil || s.pool.Submit(run) != nil {
			run()
		}
	}
	wg.Wait()
}

// shortID returns a compact per-query id for log correlation.
func shortID() string {
	return uuid.NewString()[:8]
}
