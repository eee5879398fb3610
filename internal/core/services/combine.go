package services

import (
	"context"

	"github.com/trovekeep/trove-cli/internal/core/domain"
	"github.com/trovekeep/trove-cli/internal/logger"
)

// combinerBaseWeight and combinerCoverageWeight shape the combined
// score: combined = avg * (base + coverage*coverageWeight). A document
// matching every keyword keeps its average untouched; partial matches
// are discounted toward 70% of it.
const (
	combinerBaseWeight     = 0.7
	combinerCoverageWeight = 0.3
)

// combine fans a multi-keyword query out per keyword, retains the best
// hit per document per keyword, and merges with coverage weighting.
func (s *SearchService) combine(
	ctx context.Context, qid string, keywords []string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	perKeyword := make([]map[int64]scoredField, len(keywords))

	tasks := make([]func(), len(keywords))
	for i, kw := range keywords {
		i, kw := i, kw
		tasks[i] = func() {
			hits := s.singleKeyword(ctx, qid, kw, opts.Field, combineLimit, opts.Fuzzy)
			perKeyword[i] = bestPerDocument(hits)
		}
	}
	s.runParallel(tasks)

	type mergedDoc struct {
		rep     scoredField // highest-scoring hit across keywords
		sum     float64
		matched int
	}
	merged := make(map[int64]*mergedDoc)
	for _, docs := range perKeyword {
		for docID, sf := range docs {
			m, ok := merged[docID]
			if !ok {
				m = &mergedDoc{rep: sf}
				merged[docID] = m
			} else if sf.score > m.rep.score ||
				(sf.score == m.rep.score && sf.hit.FieldID < m.rep.hit.FieldID) {
				m.rep = sf
			}
			m.sum += sf.score
			m.matched++
		}
	}

	n := len(keywords)
	combined := make([]scoredField, 0, len(merged))
	for _, m := range merged {
		if opts.MatchAll && m.matched < n {
			continue
		}
		avg := m.sum / float64(m.matched)
		coverage := float64(m.matched) / float64(n)
		score := round3(avg * (combinerBaseWeight + combinerCoverageWeight*coverage))
		sf := m.rep
		sf.score = score
		combined = append(combined, sf)
	}
	logger.Debug("[%s] combiner: %d documents after merge (match_all=%t)", qid, len(combined), opts.MatchAll)

	// Sub-results were already reduced to one hit per document, so the
	// downstream pipeline always aggregates.
	opts.Aggregate = true
	return s.finalize(ctx, qid, combined, opts)
}

// bestPerDocument keeps the highest-scoring hit per document. Ties
// prefer the lower field id for determinism.
func bestPerDocument(hits []scoredField) map[int64]scoredField {
	best := make(map[int64]scoredField, len(hits))
	for _, h := range hits {
		cur, ok := best[h.hit.DocumentID]
		if !ok || h.score > cur.score ||
			(h.score == cur.score && h.hit.FieldID < cur.hit.FieldID) {
			best[h.hit.DocumentID] = h
		}
	}
	return best
}
