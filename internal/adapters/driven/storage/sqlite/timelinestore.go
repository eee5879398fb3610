package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trovekeep/trove-cli/internal/core/domain"
	"github.com/trovekeep/trove-cli/internal/core/ports/driven"
)

// timelineStore implements driven.TimelineStore.
type timelineStore struct {
	store *Store
}

var _ driven.TimelineStore = (*timelineStore)(nil)

// AddEntries appends timeline entries for a document.
func (s *timelineStore) AddEntries(
	ctx context.Context, documentID int64, entries []domain.TimelineEntry,
) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO timeline_entries (document_id, kind, timestamp_seconds, text)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, documentID, string(e.Kind),
			e.TimestampSeconds, e.Text); err != nil {
			return fmt.Errorf("saving timeline entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// FindTimestamp returns the earliest timestamp whose stored text
// contains probe. No match is nil, not an error.
func (s *timelineStore) FindTimestamp(
	ctx context.Context, documentID int64, kind domain.FieldKind, probe string,
) (*float64, error) {
	var ts float64
	err := s.store.db.QueryRowContext(ctx, `
		SELECT timestamp_seconds FROM timeline_entries
		WHERE document_id = ? AND kind = ? AND text LIKE ? ESCAPE '\'
		ORDER BY timestamp_seconds
		LIMIT 1
	`, documentID, string(kind), "%"+escapeLike(probe)+"%").Scan(&ts)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying timeline: %w", err)
	}
	return &ts, nil
}
