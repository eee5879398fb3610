package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/trovekeep/trove-cli/internal/core/domain"
	"github.com/trovekeep/trove-cli/internal/core/ports/driven"
)

// Ensure TopicStore implements the interface.
var _ driven.TopicStore = (*TopicStore)(nil)

// TopicStore is an in-memory implementation of driven.TopicStore.
type TopicStore struct {
	mu     sync.RWMutex
	docs   *DocumentStore
	tags   *TagStore
	topics map[int64][]domain.Topic
	next   int64
}

// NewTopicStore creates a topic store; docs and tags hydrate search
// results and may be nil if SearchTopics is unused.
func NewTopicStore(docs *DocumentStore, tags *TagStore) *TopicStore {
	s := &TopicStore{
		docs:   docs,
		tags:   tags,
		topics: make(map[int64][]domain.Topic),
		next:   1,
	}
	if docs != nil {
		docs.OnDelete(func(id int64) {
			s.mu.Lock()
			delete(s.topics, id)
			s.mu.Unlock()
		})
	}
	return s
}

// AddTopics appends topics to a document.
func (s *TopicStore) AddTopics(_ context.Context, documentID int64, topics []domain.Topic) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range topics {
		t.ID = s.next
		t.DocumentID = documentID
		s.next++
		s.topics[documentID] = append(s.topics[documentID], t)
	}
	sort.Slice(s.topics[documentID], func(i, j int) bool {
		return s.topics[documentID][i].Sequence < s.topics[documentID][j].Sequence
	})
	return nil
}

// ListTopics returns a document's topics in sequence order.
func (s *TopicStore) ListTopics(_ context.Context, documentID int64) ([]domain.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Topic{}, s.topics[documentID]...), nil
}

// SearchTopics finds topics by substring containment on title and
// summary, ordered by (document id, sequence).
func (s *TopicStore) SearchTopics(
	ctx context.Context, query string, limit, offset int,
) ([]domain.TopicResult, error) {
	s.mu.RLock()
	query = strings.ToLower(query)
	var matched []domain.Topic
	for _, topics := range s.topics {
		for _, t := range topics {
			if strings.Contains(strings.ToLower(t.Title), query) ||
				strings.Contains(strings.ToLower(t.Summary), query) {
				matched = append(matched, t)
			}
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].DocumentID != matched[j].DocumentID {
			return matched[i].DocumentID < matched[j].DocumentID
		}
		return matched[i].Sequence < matched[j].Sequence
	})

	if offset >= len(matched) {
		return []domain.TopicResult{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	matched = matched[offset:end]

	results := make([]domain.TopicResult, 0, len(matched))
	for _, t := range matched {
		r := domain.TopicResult{Topic: t}
		if s.docs != nil {
			if doc, err := s.docs.GetDocument(ctx, t.DocumentID); err == nil {
				r.DocumentTitle = doc.Title
				r.Source = doc.Source
				r.FileRef = doc.FileRef
			}
		}
		if s.tags != nil {
			r.DocumentTags, _ = s.tags.TagsFor(ctx, t.DocumentID)
		}
		results = append(results, r)
	}
	return results, nil
}
