package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/trovekeep/trove-cli/internal/core/domain"
	"github.com/trovekeep/trove-cli/internal/core/ports/driven"
)

// Ensure TimelineStore implements the interface.
var _ driven.TimelineStore = (*TimelineStore)(nil)

// TimelineStore is an in-memory implementation of driven.TimelineStore.
type TimelineStore struct {
	mu      sync.RWMutex
	entries map[int64][]domain.TimelineEntry
}

// NewTimelineStore creates a timeline store.
func NewTimelineStore(docs *DocumentStore) *TimelineStore {
	s := &TimelineStore{entries: make(map[int64][]domain.TimelineEntry)}
	if docs != nil {
		docs.OnDelete(func(id int64) {
			s.mu.Lock()
			delete(s.entries, id)
			s.mu.Unlock()
		})
	}
	return s
}

// AddEntries appends timeline entries for a document.
func (s *TimelineStore) AddEntries(
	_ context.Context, documentID int64, entries []domain.TimelineEntry,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		e.DocumentID = documentID
		s.entries[documentID] = append(s.entries[documentID], e)
	}
	sort.Slice(s.entries[documentID], func(i, j int) bool {
		return s.entries[documentID][i].TimestampSeconds < s.entries[documentID][j].TimestampSeconds
	})
	return nil
}

// FindTimestamp returns the earliest timestamp whose text contains
// probe, or nil when nothing matches.
func (s *TimelineStore) FindTimestamp(
	_ context.Context, documentID int64, kind domain.FieldKind, probe string,
) (*float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *float64
	for _, e := range s.entries[documentID] {
		if e.Kind != kind || !strings.Contains(e.Text, probe) {
			continue
		}
		if best == nil || e.TimestampSeconds < *best {
			ts := e.TimestampSeconds
			best = &ts
		}
	}
	return best, nil
}
