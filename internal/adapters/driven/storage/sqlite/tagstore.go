package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/trovekeep/trove-cli/internal/core/domain"
	"github.com/trovekeep/trove-cli/internal/core/ports/driven"
)

// tagStore implements driven.TagStore.
type tagStore struct {
	store *Store
}

var _ driven.TagStore = (*tagStore)(nil)

// AddTags attaches tags to a document, creating tag rows as needed.
// Usage counters are only bumped for links that did not exist yet, so
// re-tagging is idempotent.
func (s *tagStore) AddTags(
	ctx context.Context, documentID int64, names []string, provenance domain.TagProvenance, confidence float64,
) error {
	if provenance == "" {
		provenance = domain.ProvenanceAuto
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO tags (name) VALUES (?) ON CONFLICT(name) DO NOTHING", name); err != nil {
			return fmt.Errorf("creating tag %q: %w", name, err)
		}

		var tagID int64
		if err := tx.QueryRowContext(ctx,
			"SELECT id FROM tags WHERE name = ?", name).Scan(&tagID); err != nil {
			return fmt.Errorf("resolving tag %q: %w", name, err)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO document_tags (document_id, tag_id, provenance, confidence)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(document_id, tag_id) DO NOTHING
		`, documentID, tagID, string(provenance), confidence)
		if err != nil {
			return fmt.Errorf("linking tag %q: %w", name, err)
		}

		if n, err := res.RowsAffected(); err == nil && n > 0 {
			if _, err := tx.ExecContext(ctx,
				"UPDATE tags SET usage_count = usage_count + 1 WHERE id = ?", tagID); err != nil {
				return fmt.Errorf("bumping tag usage: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// TagsFor returns a document's tag names, alphabetically.
func (s *tagStore) TagsFor(ctx context.Context, documentID int64) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT t.name FROM tags t
		JOIN document_tags dt ON dt.tag_id = t.id
		WHERE dt.document_id = ?
		ORDER BY t.name COLLATE NOCASE
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying document tags: %w", err)
	}
	defer rows.Close()

	return scanStrings(rows)
}

// FilterByTags resolves the tag filter to a document id set. An empty
// name list means no filter and returns ok=false.
func (s *tagStore) FilterByTags(
	ctx context.Context, names []string, matchAll bool,
) (map[int64]bool, bool, error) {
	names = cleanNames(names)
	if len(names) == 0 {
		return nil, false, nil
	}

	tagIDs, err := s.resolveTagIDs(ctx, names)
	if err != nil {
		return nil, false, err
	}
	// An unknown tag can never be matched by every document.
	if matchAll && len(tagIDs) < len(names) {
		return map[int64]bool{}, true, nil
	}
	if len(tagIDs) == 0 {
		return map[int64]bool{}, true, nil
	}

	query := fmt.Sprintf(`
		SELECT document_id FROM document_tags
		WHERE tag_id IN (%s)
		GROUP BY document_id
	`, placeholders(len(tagIDs)))
	if matchAll {
		query += fmt.Sprintf(" HAVING COUNT(DISTINCT tag_id) = %d", len(tagIDs))
	}

	rows, err := s.store.db.QueryContext(ctx, query, int64Args(tagIDs)...)
	if err != nil {
		return nil, false, fmt.Errorf("filtering by tags: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, false, fmt.Errorf("scanning document id: %w", err)
		}
		ids[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterating document ids: %w", err)
	}
	return ids, true, nil
}

// SearchByTags returns documents matching the tag filter. AND mode
// orders by recency; OR mode by matched-tag count, then recency.
func (s *tagStore) SearchByTags(
	ctx context.Context, names []string, matchAll bool, limit, offset int,
) ([]domain.TaggedDocument, error) {
	names = cleanNames(names)
	if len(names) == 0 {
		return []domain.TaggedDocument{}, nil
	}

	tagIDs, err := s.resolveTagIDs(ctx, names)
	if err != nil {
		return nil, err
	}
	if len(tagIDs) == 0 || (matchAll && len(tagIDs) < len(names)) {
		return []domain.TaggedDocument{}, nil
	}

	query := fmt.Sprintf(`
		SELECT d.id, d.title, d.source, d.duration_seconds, d.file_ref, d.created_at,
			COUNT(DISTINCT dt.tag_id) AS matched
		FROM documents d
		JOIN document_tags dt ON dt.document_id = d.id
		WHERE dt.tag_id IN (%s)
		GROUP BY d.id
	`, placeholders(len(tagIDs)))
	if matchAll {
		query += fmt.Sprintf(" HAVING matched = %d", len(tagIDs))
		query += " ORDER BY d.created_at DESC, d.id"
	} else {
		query += " ORDER BY matched DESC, d.created_at DESC, d.id"
	}
	query += " LIMIT ? OFFSET ?"

	args := append(int64Args(tagIDs), limit, offset)
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents by tags: %w", err)
	}
	defer rows.Close()

	var docs []domain.TaggedDocument //nolint:prealloc // size unknown from query
	for rows.Next() {
		var td domain.TaggedDocument
		var source string
		if err := rows.Scan(&td.ID, &td.Title, &source, &td.DurationSeconds,
			&td.FileRef, &td.CreatedAt, &td.MatchedCount); err != nil {
			return nil, fmt.Errorf("scanning tagged document: %w", err)
		}
		td.Source = domain.SourceCategory(source)
		docs = append(docs, td)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tagged documents: %w", err)
	}

	for i := range docs {
		tags, err := s.TagsFor(ctx, docs[i].ID)
		if err != nil {
			return nil, err
		}
		docs[i].Tags = tags
	}
	return docs, nil
}

// PopularTags returns tags linked to at least one document, ordered by
// usage count, then by linked-document count.
func (s *tagStore) PopularTags(ctx context.Context, limit int) ([]domain.TagUsage, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.category, t.usage_count, COUNT(dt.document_id) AS docs
		FROM tags t
		JOIN document_tags dt ON dt.tag_id = t.id
		GROUP BY t.id
		ORDER BY t.usage_count DESC, docs DESC, t.name COLLATE NOCASE
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying popular tags: %w", err)
	}
	defer rows.Close()

	var usages []domain.TagUsage //nolint:prealloc // size unknown from query
	for rows.Next() {
		var u domain.TagUsage
		if err := rows.Scan(&u.ID, &u.Name, &u.Category, &u.UsageCount, &u.DocumentCount); err != nil {
			return nil, fmt.Errorf("scanning tag usage: %w", err)
		}
		usages = append(usages, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tag usages: %w", err)
	}
	return usages, nil
}

// SuggestTags returns tag names with the given prefix, most used first.
func (s *tagStore) SuggestTags(ctx context.Context, prefix string, limit int) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT name FROM tags
		WHERE name LIKE ? ESCAPE '\'
		ORDER BY usage_count DESC, name COLLATE NOCASE
		LIMIT ?
	`, escapeLike(prefix)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("querying tag suggestions: %w", err)
	}
	defer rows.Close()

	return scanStrings(rows)
}

// resolveTagIDs maps tag names to ids; unknown names are dropped.
func (s *tagStore) resolveTagIDs(ctx context.Context, names []string) ([]int64, error) {
	query := fmt.Sprintf("SELECT id FROM tags WHERE name IN (%s)", placeholders(len(names)))
	args := make([]any, len(names))
	for i, n := range names {
		args[i] = n
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("resolving tags: %w", err)
	}
	defer rows.Close()

	var ids []int64 //nolint:prealloc // unknown names are dropped
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning tag id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tag ids: %w", err)
	}
	return ids, nil
}

func cleanNames(names []string) []string {
	out := names[:0:0]
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// scanStrings drains a single-column string result set.
func scanStrings(rows *sql.Rows) ([]string, error) {
	var out []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scanning value: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating values: %w", err)
	}
	return out, nil
}
