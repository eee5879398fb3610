// Package memory provides in-memory implementations of the metadata
// store ports, primarily for tests and wiring experiments. Semantics
// mirror the SQLite adapter, including field idempotency and tag
// usage counting.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/trovekeep/trove-cli/internal/core/domain"
	"github.com/trovekeep/trove-cli/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[int64]domain.Document
	fields    map[int64]domain.IndexedField
	titles    map[int64]string
	nextField int64

	// onDelete lets sibling stores cascade.
	onDelete []func(documentID int64)
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[int64]domain.Document),
		fields:    make(map[int64]domain.IndexedField),
		titles:    make(map[int64]string),
		nextField: 1,
	}
}

// OnDelete registers a cascade hook invoked when a document is removed.
func (s *DocumentStore) OnDelete(fn func(documentID int64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDelete = append(s.onDelete, fn)
}

// UpsertDocument stores or updates a document.
func (s *DocumentStore) UpsertDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	s.documents[doc.ID] = *doc
	s.titles[doc.ID] = doc.Title
	return nil
}

// GetDocument retrieves a document by id.
func (s *DocumentStore) GetDocument(_ context.Context, id int64) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// DeleteDocument removes a document and its fields, then fires the
// cascade hooks.
func (s *DocumentStore) DeleteDocument(_ context.Context, id int64) error {
	s.mu.Lock()
	if _, ok := s.documents[id]; !ok {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	delete(s.documents, id)
	delete(s.titles, id)
	for fid, f := range s.fields {
		if f.DocumentID == id {
			delete(s.fields, fid)
		}
	}
	hooks := append([]func(int64){}, s.onDelete...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(id)
	}
	return nil
}

// AddField appends a field row; identical content is idempotent.
func (s *DocumentStore) AddField(
	_ context.Context, documentID int64, kind domain.FieldKind, content string,
) (*domain.IndexedField, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.fields {
		if f.DocumentID == documentID && f.Kind == kind && f.Content == content {
			existing := f
			return &existing, false, nil
		}
	}

	field := domain.IndexedField{
		ID:         s.nextField,
		DocumentID: documentID,
		Kind:       kind,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
	s.fields[field.ID] = field
	s.nextField++
	return &field, true, nil
}

// GetField retrieves one field row by id.
func (s *DocumentStore) GetField(_ context.Context, id int64) (*domain.IndexedField, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.fields[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &f, nil
}

// ListFields returns a document's field rows, oldest first.
func (s *DocumentStore) ListFields(_ context.Context, documentID int64) ([]domain.IndexedField, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var fields []domain.IndexedField
	for _, f := range s.fields {
		if f.DocumentID == documentID {
			fields = append(fields, f)
		}
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].ID < fields[j].ID })
	return fields, nil
}

// WalkFields streams every field row in id order.
func (s *DocumentStore) WalkFields(
	_ context.Context, fn func(domain.IndexedField, string) error,
) error {
	s.mu.RLock()
	fields := make([]domain.IndexedField, 0, len(s.fields))
	for _, f := range s.fields {
		fields = append(fields, f)
	}
	titles := make(map[int64]string, len(s.titles))
	for id, t := range s.titles {
		titles[id] = t
	}
	s.mu.RUnlock()

	sort.Slice(fields, func(i, j int) bool { return fields[i].ID < fields[j].ID })
	for _, f := range fields {
		if err := fn(f, titles[f.DocumentID]); err != nil {
			return err
		}
	}
	return nil
}
