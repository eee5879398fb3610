package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/trovekeep/trove-cli/internal/core/domain"
	"github.com/trovekeep/trove-cli/internal/core/ports/driven"
)

// topicStore implements driven.TopicStore.
type topicStore struct {
	store *Store
}

var _ driven.TopicStore = (*topicStore)(nil)

// AddTopics appends topics to a document. Re-adding a sequence number
// replaces that topic's content.
func (s *topicStore) AddTopics(ctx context.Context, documentID int64, topics []domain.Topic) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO topics (document_id, sequence, title, summary, keywords, start_seconds, end_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id, sequence) DO UPDATE SET
			title = excluded.title,
			summary = excluded.summary,
			keywords = excluded.keywords,
			start_seconds = excluded.start_seconds,
			end_seconds = excluded.end_seconds
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, t := range topics {
		keywordsJSON, err := json.Marshal(t.Keywords)
		if err != nil {
			return fmt.Errorf("marshalling keywords: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, documentID, t.Sequence, t.Title, t.Summary,
			string(keywordsJSON), t.StartSeconds, t.EndSeconds); err != nil {
			return fmt.Errorf("saving topic: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ListTopics returns a document's topics in sequence order.
func (s *topicStore) ListTopics(ctx context.Context, documentID int64) ([]domain.Topic, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, sequence, title, summary, keywords, start_seconds, end_seconds
		FROM topics WHERE document_id = ?
		ORDER BY sequence
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying topics: %w", err)
	}
	defer rows.Close()

	var topics []domain.Topic //nolint:prealloc // size unknown from query
	for rows.Next() {
		var t domain.Topic
		var keywordsJSON string
		if err := rows.Scan(&t.ID, &t.DocumentID, &t.Sequence, &t.Title, &t.Summary,
			&keywordsJSON, &t.StartSeconds, &t.EndSeconds); err != nil {
			return nil, fmt.Errorf("scanning topic: %w", err)
		}
		if err := json.Unmarshal([]byte(keywordsJSON), &t.Keywords); err != nil {
			return nil, fmt.Errorf("unmarshalling keywords: %w", err)
		}
		topics = append(topics, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating topics: %w", err)
	}
	return topics, nil
}

// SearchTopics finds topics whose title or summary contains the query
// substring, case-insensitively, ordered by (document id, sequence).
func (s *topicStore) SearchTopics(
	ctx context.Context, query string, limit, offset int,
) ([]domain.TopicResult, error) {
	pattern := "%" + escapeLike(query) + "%"
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT t.id, t.document_id, t.sequence, t.title, t.summary, t.keywords,
			t.start_seconds, t.end_seconds,
			d.title, d.source, d.file_ref
		FROM topics t
		JOIN documents d ON d.id = t.document_id
		WHERE t.title LIKE ? ESCAPE '\' OR t.summary LIKE ? ESCAPE '\'
		ORDER BY t.document_id, t.sequence
		LIMIT ? OFFSET ?
	`, pattern, pattern, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying topics: %w", err)
	}
	defer rows.Close()

	var results []domain.TopicResult //nolint:prealloc // size unknown from query
	for rows.Next() {
		var r domain.TopicResult
		var keywordsJSON, source string
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.Sequence, &r.Topic.Title, &r.Summary,
			&keywordsJSON, &r.StartSeconds, &r.EndSeconds,
			&r.DocumentTitle, &source, &r.FileRef); err != nil {
			return nil, fmt.Errorf("scanning topic result: %w", err)
		}
		if err := json.Unmarshal([]byte(keywordsJSON), &r.Keywords); err != nil {
			return nil, fmt.Errorf("unmarshalling keywords: %w", err)
		}
		r.Source = domain.SourceCategory(source)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating topic results: %w", err)
	}

	for i := range results {
		tags, err := (&tagStore{store: s.store}).TagsFor(ctx, results[i].DocumentID)
		if err != nil {
			return nil, err
		}
		results[i].DocumentTags = tags
	}
	return results, nil
}
