package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/trovekeep/trove-cli/internal/core/domain"
	"github.com/trovekeep/trove-cli/internal/core/ports/driven"
)

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// UpsertDocument stores or updates a document under its
// pipeline-assigned id.
func (s *documentStore) UpsertDocument(ctx context.Context, doc *domain.Document) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, source, duration_seconds, file_ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			source = excluded.source,
			duration_seconds = excluded.duration_seconds,
			file_ref = excluded.file_ref,
			created_at = excluded.created_at
	`, doc.ID, doc.Title, string(doc.Source), doc.DurationSeconds, doc.FileRef, doc.CreatedAt)

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by id.
func (s *documentStore) GetDocument(ctx context.Context, id int64) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, title, source, duration_seconds, file_ref, created_at
		FROM documents WHERE id = ?
	`, id)

	return scanDocument(row)
}

// DeleteDocument removes a document; fields, tag links, topics and
// timeline entries cascade through foreign keys. Tag usage counters
// are decremented for the links being removed.
func (s *documentStore) DeleteDocument(ctx context.Context, id int64) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		UPDATE tags SET usage_count = MAX(usage_count - 1, 0)
		WHERE id IN (SELECT tag_id FROM document_tags WHERE document_id = ?)
	`, id)
	if err != nil {
		return fmt.Errorf("releasing tag usage: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// AddField appends an immutable field row. Re-adding identical
// (document, kind, content) returns the existing row with
// created=false so pipeline retries stay idempotent.
func (s *documentStore) AddField(
	ctx context.Context, documentID int64, kind domain.FieldKind, content string,
) (*domain.IndexedField, bool, error) {
	hash := contentHash(content)

	existing, err := s.getFieldByHash(ctx, documentID, kind, hash)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	now := time.Now().UTC()
	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO indexed_fields (document_id, kind, content, content_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, documentID, string(kind), content, hash, now)
	if err != nil {
		// Concurrent identical insert; surface the winner.
		if existing, lookupErr := s.getFieldByHash(ctx, documentID, kind, hash); lookupErr == nil {
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("inserting field: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("reading field id: %w", err)
	}

	return &domain.IndexedField{
		ID:         id,
		DocumentID: documentID,
		Kind:       kind,
		Content:    content,
		CreatedAt:  now,
	}, true, nil
}

// GetField retrieves one field row by id.
func (s *documentStore) GetField(ctx context.Context, id int64) (*domain.IndexedField, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, document_id, kind, content, created_at
		FROM indexed_fields WHERE id = ?
	`, id)

	return scanField(row)
}

// ListFields returns a document's field rows, oldest first.
func (s *documentStore) ListFields(ctx context.Context, documentID int64) ([]domain.IndexedField, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, kind, content, created_at
		FROM indexed_fields WHERE document_id = ?
		ORDER BY id
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying fields: %w", err)
	}
	defer rows.Close()

	var fields []domain.IndexedField //nolint:prealloc // size unknown from query
	for rows.Next() {
		var f domain.IndexedField
		var kind string
		if err := rows.Scan(&f.ID, &f.DocumentID, &kind, &f.Content, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning field: %w", err)
		}
		f.Kind = domain.FieldKind(kind)
		fields = append(fields, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fields: %w", err)
	}

	return fields, nil
}

// WalkFields streams every field row in id order together with the
// owning document's title.
func (s *documentStore) WalkFields(
	ctx context.Context, fn func(domain.IndexedField, string) error,
) error {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT f.id, f.document_id, f.kind, f.content, f.created_at, d.title
		FROM indexed_fields f
		JOIN documents d ON d.id = f.document_id
		ORDER BY f.id
	`)
	if err != nil {
		return fmt.Errorf("querying fields: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f domain.IndexedField
		var kind, title string
		if err := rows.Scan(&f.ID, &f.DocumentID, &kind, &f.Content, &f.CreatedAt, &title); err != nil {
			return fmt.Errorf("scanning field: %w", err)
		}
		f.Kind = domain.FieldKind(kind)
		if err := fn(f, title); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating fields: %w", err)
	}
	return nil
}

func (s *documentStore) getFieldByHash(
	ctx context.Context, documentID int64, kind domain.FieldKind, hash string,
) (*domain.IndexedField, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, document_id, kind, content, created_at
		FROM indexed_fields
		WHERE document_id = ? AND kind = ? AND content_hash = ?
	`, documentID, string(kind), hash)

	return scanField(row)
}

// contentHash fingerprints field content for the idempotency check.
func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// scanDocument scans a single document row.
func scanDocument(row *sql.Row) (*domain.Document, error) {
	var doc domain.Document
	var source string
	if err := row.Scan(&doc.ID, &doc.Title, &source, &doc.DurationSeconds,
		&doc.FileRef, &doc.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	doc.Source = domain.SourceCategory(source)
	return &doc, nil
}

// scanField scans a single field row.
func scanField(row *sql.Row) (*domain.IndexedField, error) {
	var f domain.IndexedField
	var kind string
	if err := row.Scan(&f.ID, &f.DocumentID, &kind, &f.Content, &f.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning field: %w", err)
	}
	f.Kind = domain.FieldKind(kind)
	return &f, nil
}
