package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/trovekeep/trove-cli/internal/core/domain"
	"github.com/trovekeep/trove-cli/internal/core/ports/driven"
)

// Ensure TagStore implements the interface.
var _ driven.TagStore = (*TagStore)(nil)

// TagStore is an in-memory implementation of driven.TagStore. Tag
// names are matched case-insensitively like the SQLite adapter's
// NOCASE collation.
type TagStore struct {
	mu    sync.RWMutex
	docs  *DocumentStore
	tags  map[string]*domain.Tag // lowercased name -> tag
	links map[int64]map[string]bool
	next  int64
}

// NewTagStore creates a tag store. When docs is non-nil, document
// deletion cascades to tag links.
func NewTagStore(docs *DocumentStore) *TagStore {
	s := &TagStore{
		docs:  docs,
		tags:  make(map[string]*domain.Tag),
		links: make(map[int64]map[string]bool),
		next:  1,
	}
	if docs != nil {
		docs.OnDelete(s.removeDocument)
	}
	return s
}

func (s *TagStore) removeDocument(documentID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.links[documentID] {
		if t := s.tags[key]; t != nil && t.UsageCount > 0 {
			t.UsageCount--
		}
	}
	delete(s.links, documentID)
}

// AddTags attaches tags to a document.
func (s *TagStore) AddTags(
	_ context.Context, documentID int64, names []string, _ domain.TagProvenance, _ float64,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.links[documentID] == nil {
		s.links[documentID] = make(map[string]bool)
	}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		t, ok := s.tags[key]
		if !ok {
			t = &domain.Tag{ID: s.next, Name: name}
			s.tags[key] = t
			s.next++
		}
		if !s.links[documentID][key] {
			s.links[documentID][key] = true
			t.UsageCount++
		}
	}
	return nil
}

// TagsFor returns a document's tag names, alphabetically.
func (s *TagStore) TagsFor(_ context.Context, documentID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var names []string
	for key := range s.links[documentID] {
		names = append(names, s.tags[key].Name)
	}
	sort.Strings(names)
	return names, nil
}

// FilterByTags resolves the tag filter to a document id set.
func (s *TagStore) FilterByTags(
	_ context.Context, names []string, matchAll bool,
) (map[int64]bool, bool, error) {
	keys := tagKeys(names)
	if len(keys) == 0 {
		return nil, false, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make(map[int64]bool)
	for docID, linked := range s.links {
		matched := 0
		for _, key := range keys {
			if linked[key] {
				matched++
			}
		}
		if (matchAll && matched == len(keys)) || (!matchAll && matched > 0) {
			ids[docID] = true
		}
	}
	return ids, true, nil
}

// SearchByTags returns documents matching the tag filter.
func (s *TagStore) SearchByTags(
	ctx context.Context, names []string, matchAll bool, limit, offset int,
) ([]domain.TaggedDocument, error) {
	keys := tagKeys(names)
	if len(keys) == 0 {
		return []domain.TaggedDocument{}, nil
	}

	s.mu.RLock()
	type match struct {
		docID   int64
		matched int
	}
	var matches []match
	for docID, linked := range s.links {
		n := 0
		for _, key := range keys {
			if linked[key] {
				n++
			}
		}
		if (matchAll && n == len(keys)) || (!matchAll && n > 0) {
			matches = append(matches, match{docID, n})
		}
	}
	s.mu.RUnlock()

	var docs []domain.TaggedDocument
	for _, m := range matches {
		doc, err := s.docs.GetDocument(ctx, m.docID)
		if err != nil {
			continue
		}
		tags, _ := s.TagsFor(ctx, m.docID)
		docs = append(docs, domain.TaggedDocument{
			Document:     *doc,
			Tags:         tags,
			MatchedCount: m.matched,
		})
	}

	sort.Slice(docs, func(i, j int) bool {
		if !matchAll && docs[i].MatchedCount != docs[j].MatchedCount {
			return docs[i].MatchedCount > docs[j].MatchedCount
		}
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})

	if offset >= len(docs) {
		return []domain.TaggedDocument{}, nil
	}
	end := offset + limit
	if end > len(docs) {
		end = len(docs)
	}
	return docs[offset:end], nil
}

// PopularTags returns tags linked to at least one document.
func (s *TagStore) PopularTags(_ context.Context, limit int) ([]domain.TagUsage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64)
	for _, linked := range s.links {
		for key := range linked {
			counts[key]++
		}
	}

	var usages []domain.TagUsage
	for key, n := range counts {
		usages = append(usages, domain.TagUsage{Tag: *s.tags[key], DocumentCount: n})
	}
	sort.Slice(usages, func(i, j int) bool {
		if usages[i].UsageCount != usages[j].UsageCount {
			return usages[i].UsageCount > usages[j].UsageCount
		}
		if usages[i].DocumentCount != usages[j].DocumentCount {
			return usages[i].DocumentCount > usages[j].DocumentCount
		}
		return strings.ToLower(usages[i].Name) < strings.ToLower(usages[j].Name)
	})
	if limit > 0 && len(usages) > limit {
		usages = usages[:limit]
	}
	return usages, nil
}

// SuggestTags returns tag names with the given prefix, most used first.
func (s *TagStore) SuggestTags(_ context.Context, prefix string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix = strings.ToLower(prefix)
	var tags []*domain.Tag
	for key, t := range s.tags {
		if strings.HasPrefix(key, prefix) {
			tags = append(tags, t)
		}
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].UsageCount != tags[j].UsageCount {
			return tags[i].UsageCount > tags[j].UsageCount
		}
		return strings.ToLower(tags[i].Name) < strings.ToLower(tags[j].Name)
	})

	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	return names, nil
}

func tagKeys(names []string) []string {
	var keys []string
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			keys = append(keys, strings.ToLower(n))
		}
	}
	return keys
}
