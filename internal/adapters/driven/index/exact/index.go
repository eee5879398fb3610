package exact

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/trovekeep/trove-cli/internal/core/domain"
	"github.com/trovekeep/trove-cli/internal/core/ports/driven"
)

// maxTermExpansions bounds how many vocabulary terms an internal
// wildcard may expand to.
const maxTermExpansions = 50

// Index is the FTS5-backed exact-token index.
type Index struct {
	db *sql.DB
}

var (
	_ driven.IndexBackend   = (*Index)(nil)
	_ driven.LiteralScanner = (*Index)(nil)
)

// NewIndex creates the index over an already migrated database handle.
func NewIndex(db *sql.DB) *Index {
	return &Index{db: db}
}

// Index writes one field into the FTS table under the field's row id.
// Re-indexing the same row id replaces the previous entry.
func (i *Index) Index(ctx context.Context, field domain.IndexedField, title string) error {
	if _, err := i.db.ExecContext(ctx,
		"DELETE FROM fields_fts WHERE rowid = ?", field.ID); err != nil {
		return classify(fmt.Errorf("clearing index row: %w", err))
	}
	_, err := i.db.ExecContext(ctx, `
		INSERT INTO fields_fts (rowid, title, content, kind, document_id)
		VALUES (?, ?, ?, ?, ?)
	`, field.ID, title, field.Content, string(field.Kind), field.DocumentID)
	if err != nil {
		return classify(fmt.Errorf("indexing field: %w", err))
	}
	return nil
}

// Remove drops every index row of a document.
func (i *Index) Remove(ctx context.Context, documentID int64) error {
	_, err := i.db.ExecContext(ctx, `
		DELETE FROM fields_fts
		WHERE rowid IN (SELECT id FROM indexed_fields WHERE document_id = ?)
	`, documentID)
	if err != nil {
		return classify(fmt.Errorf("removing document from index: %w", err))
	}
	return nil
}

// Search runs one term (possibly carrying wildcards) against the index
// and returns hits ordered by BM25 rank, best first.
func (i *Index) Search(ctx context.Context, q driven.IndexQuery) ([]driven.FieldHit, error) {
	match, err := i.matchExpr(ctx, q.Term)
	if err != nil {
		return nil, err
	}
	if match == "" {
		return []driven.FieldHit{}, nil
	}

	query := `
		SELECT rowid, document_id, kind, content, rank
		FROM fields_fts
		WHERE fields_fts MATCH ?`
	args := []any{match}
	if q.Kind != domain.FieldAny {
		query += " AND kind = ?"
		args = append(args, string(q.Kind))
	}
	query += " ORDER BY rank LIMIT ?"
	args = append(args, q.Limit)

	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(fmt.Errorf("querying index: %w", err))
	}
	defer rows.Close()

	var hits []driven.FieldHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		var h driven.FieldHit
		var kind string
		if err := rows.Scan(&h.FieldID, &h.DocumentID, &kind, &h.Text, &h.RawRank); err != nil {
			return nil, classify(fmt.Errorf("scanning hit: %w", err))
		}
		h.Kind = domain.FieldKind(kind)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("iterating hits: %w", err))
	}
	return hits, nil
}

// Scan is the literal-containment fallback over the stored field rows,
// bypassing tokenization entirely. Hits carry no rank; newest first.
func (i *Index) Scan(
	ctx context.Context, literal string, kind domain.FieldKind, limit int,
) ([]driven.FieldHit, error) {
	query := `
		SELECT id, document_id, kind, content
		FROM indexed_fields
		WHERE content LIKE ? ESCAPE '\'`
	args := []any{"%" + escapeLike(literal) + "%"}
	if kind != domain.FieldAny {
		query += " AND kind = ?"
		args = append(args, string(kind))
	}
	query += " ORDER BY created_at DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(fmt.Errorf("scanning fields: %w", err))
	}
	defer rows.Close()

	var hits []driven.FieldHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		var h driven.FieldHit
		var k string
		if err := rows.Scan(&h.FieldID, &h.DocumentID, &k, &h.Text); err != nil {
			return nil, classify(fmt.Errorf("scanning hit: %w", err))
		}
		h.Kind = domain.FieldKind(k)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("iterating hits: %w", err))
	}
	return hits, nil
}

// Reset empties the index.
func (i *Index) Reset(ctx context.Context) error {
	if _, err := i.db.ExecContext(ctx, "DELETE FROM fields_fts"); err != nil {
		return classify(fmt.Errorf("resetting index: %w", err))
	}
	return nil
}

// Stats reports indexed row and distinct term counts.
func (i *Index) Stats(ctx context.Context) (driven.IndexStats, error) {
	var st driven.IndexStats
	if err := i.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM fields_fts").Scan(&st.Fields); err != nil {
		return st, classify(fmt.Errorf("counting fields: %w", err))
	}
	if err := i.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM fields_fts_vocab").Scan(&st.Terms); err != nil {
		return st, classify(fmt.Errorf("counting terms: %w", err))
	}
	return st, nil
}

// Close is a no-op; the database handle is owned by the store.
func (i *Index) Close() error {
	return nil
}

// matchExpr builds the FTS5 MATCH expression for a term. Internal
// wildcards are expanded against the index vocabulary; an expansion
// with no concrete terms yields an empty expression (no results).
func (i *Index) matchExpr(ctx context.Context, term string) (string, error) {
	term = strings.ReplaceAll(term, `"`, "")
	if term == "" {
		return "", nil
	}

	prefix := strings.HasSuffix(term, "*")
	bare := strings.TrimSuffix(term, "*")

	if !strings.Contains(bare, "*") {
		if bare == "" {
			return "", nil
		}
		expr := `"` + bare + `"`
		if prefix {
			expr += "*"
		}
		return expr, nil
	}

	// Internal wildcard: resolve against the vocabulary. The trailing
	// asterisk folds into the GLOB pattern.
	pattern := bare
	if prefix {
		pattern += "*"
	}
	terms, err := i.expandTerms(ctx, pattern)
	if err != nil {
		return "", err
	}
	if len(terms) == 0 {
		return "", nil
	}
	quoted := make([]string, len(terms))
	for n, t := range terms {
		quoted[n] = `"` + t + `"`
	}
	return strings.Join(quoted, " OR "), nil
}

// expandTerms lists concrete index terms matching a GLOB pattern.
func (i *Index) expandTerms(ctx context.Context, pattern string) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, `
		SELECT term FROM fields_fts_vocab
		WHERE term GLOB ?
		ORDER BY cnt DESC
		LIMIT ?
	`, pattern, maxTermExpansions)
	if err != nil {
		return nil, classify(fmt.Errorf("expanding wildcard: %w", err))
	}
	defer rows.Close()

	var terms []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, classify(fmt.Errorf("scanning term: %w", err))
		}
		terms = append(terms, t)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("iterating terms: %w", err))
	}
	return terms, nil
}

// classify maps structural SQLite failures onto the corruption error
// so the service layer can flag a rebuild.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "malformed") || strings.Contains(msg, "corrupt") ||
		strings.Contains(msg, "no such table: fields_fts") {
		return fmt.Errorf("%w: %v", domain.ErrIndexCorrupted, err)
	}
	return err
}

// escapeLike escapes LIKE metacharacters; queries using it carry
// ESCAPE '\'.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
