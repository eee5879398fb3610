// Package exact implements the exact-token index backend on SQLite
// FTS5 with the porter unicode61 tokenizer. It shares the metadata
// store's database handle: index rows live in the fields_fts virtual
// table, keyed by indexed-field row id.
//
// Wildcard handling:
//
//   - a trailing asterisk maps to FTS5 prefix syntax
//   - an internal asterisk is resolved through the fts5vocab table,
//     expanding to an OR of concrete index terms
//
// Scores are BM25 ranks as FTS5 reports them: negative, better matches
// more negative. Normalization to [0,1] happens in the service layer.
package exact
