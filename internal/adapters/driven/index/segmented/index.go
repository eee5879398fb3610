package segmented

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	badger "github.com/dgraph-io/badger/v4"

	"github.com/trovekeep/trove-cli/internal/core/domain"
	"github.com/trovekeep/trove-cli/internal/core/ports/driven"
	"github.com/trovekeep/trove-cli/internal/segment"
)

// maxEditDistance is the furthest vocabulary term a fuzzy token may
// resolve to.
const maxEditDistance = 2

// Index is the BadgerDB-backed segmented-token index.
type Index struct {
	db       *badger.DB
	analyzer segment.Analyzer
}

var _ driven.IndexBackend = (*Index)(nil)

// NewIndex opens (or creates) the index at dir. An empty dir opens an
// in-memory index, used by tests.
func NewIndex(dir string, analyzer segment.Analyzer) (*Index, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening segmented index: %w", err)
	}
	if analyzer == nil {
		analyzer = segment.NewDictionary()
	}
	return &Index{db: db, analyzer: analyzer}, nil
}

// Close closes the underlying database.
func (i *Index) Close() error {
	return i.db.Close()
}

// Index tokenizes the field (title included) and writes its postings.
// Re-indexing a field id replaces the previous postings.
func (i *Index) Index(ctx context.Context, field domain.IndexedField, title string) error {
	tokens := i.analyzer.Tokens(title + " " + field.Content)
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}

	err := i.db.Update(func(txn *badger.Txn) error {
		if err := removeField(txn, field.DocumentID, field.ID); err != nil {
			return err
		}

		terms := make([]string, 0, len(counts))
		for term, n := range counts {
			if err := txn.Set(termKey(term, field.ID), encodeCount(n)); err != nil {
				return err
			}
			if err := bumpVocab(txn, term, 1); err != nil {
				return err
			}
			terms = append(terms, term)
		}
		sort.Strings(terms)

		meta := encodeMeta(field.DocumentID, field.Kind)
		if err := txn.Set(fieldKey(field.ID), meta); err != nil {
			return err
		}
		if err := txn.Set(textKey(field.ID), []byte(field.Content)); err != nil {
			return err
		}
		return txn.Set(reverseKey(field.DocumentID, field.ID), []byte(strings.Join(terms, "\x00")))
	})
	if err != nil {
		return fmt.Errorf("indexing field %d: %w", field.ID, err)
	}
	return nil
}

// Remove drops every posting of a document.
func (i *Index) Remove(ctx context.Context, documentID int64) error {
	err := i.db.Update(func(txn *badger.Txn) error {
		prefix := reversePrefix(documentID)
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		var fieldIDs []int64
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			fieldIDs = append(fieldIDs, decodeID(key[len(prefix):]))
		}
		it.Close()

		for _, fid := range fieldIDs {
			if err := removeField(txn, documentID, fid); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("removing document %d: %w", documentID, err)
	}
	return nil
}

// Search tokenizes the query with the same analyzer as indexing and
// scores fields by term frequency. Scores are already in [0,1].
func (i *Index) Search(ctx context.Context, q driven.IndexQuery) ([]driven.FieldHit, error) {
	tokens := i.analyzer.Tokens(q.Term)
	if len(tokens) == 0 {
		return []driven.FieldHit{}, nil
	}

	type accum struct {
		score float64
	}
	fields := make(map[int64]*accum)

	err := i.db.View(func(txn *badger.Txn) error {
		for _, token := range tokens {
			postings, err := readPostings(txn, token)
			if err != nil {
				return err
			}
			penalty := 1.0
			if len(postings) == 0 && q.Fuzzy {
				near, dist, err := nearestTerm(txn, token)
				if err != nil {
					return err
				}
				if near == "" {
					continue
				}
				postings, err = readPostings(txn, near)
				if err != nil {
					return err
				}
				// Distance one keeps 80% of the weight, distance two 60%.
				penalty = 1.0 - 0.2*float64(dist)
			}
			for fid, tf := range postings {
				a := fields[fid]
				if a == nil {
					a = &accum{}
					fields[fid] = a
				}
				a.score += penalty * float64(tf) / float64(tf+1)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", q.Term, err)
	}

	hits := make([]driven.FieldHit, 0, len(fields))
	err = i.db.View(func(txn *badger.Txn) error {
		for fid, a := range fields {
			docID, kind, err := readMeta(txn, fid)
			if err != nil {
				// Posting without meta; skip the orphan.
				continue
			}
			if q.Kind != domain.FieldAny && kind != q.Kind {
				continue
			}
			text, err := readText(txn, fid)
			if err != nil {
				continue
			}
			hits = append(hits, driven.FieldHit{
				DocumentID: docID,
				FieldID:    fid,
				Kind:       kind,
				RawRank:    a.score / float64(len(tokens)),
				Text:       text,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("hydrating hits for %q: %w", q.Term, err)
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].RawRank != hits[b].RawRank {
			return hits[a].RawRank > hits[b].RawRank
		}
		return hits[a].FieldID < hits[b].FieldID
	})
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits, nil
}

// Reset drops all index data.
func (i *Index) Reset(ctx context.Context) error {
	if err := i.db.DropAll(); err != nil {
		return fmt.Errorf("resetting segmented index: %w", err)
	}
	return nil
}

// Stats reports indexed field and vocabulary sizes.
func (i *Index) Stats(ctx context.Context) (driven.IndexStats, error) {
	var st driven.IndexStats
	err := i.db.View(func(txn *badger.Txn) error {
		st.Fields = countPrefix(txn, []byte("f:"))
		st.Terms = countPrefix(txn, []byte("v:"))
		return nil
	})
	if err != nil {
		return st, fmt.Errorf("reading index stats: %w", err)
	}
	return st, nil
}

// removeField deletes one field's postings, meta, text and reverse
// entry inside txn. Missing entries are ignored.
func removeField(txn *badger.Txn, documentID, fieldID int64) error {
	rk := reverseKey(documentID, fieldID)
	item, err := txn.Get(rk)
	if err == badger.ErrKeyNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	var terms []string
	if err := item.Value(func(v []byte) error {
		if len(v) > 0 {
			terms = strings.Split(string(v), "\x00")
		}
		return nil
	}); err != nil {
		return err
	}

	for _, term := range terms {
		if err := txn.Delete(termKey(term, fieldID)); err != nil {
			return err
		}
		if err := bumpVocab(txn, term, -1); err != nil {
			return err
		}
	}
	if err := txn.Delete(fieldKey(fieldID)); err != nil {
		return err
	}
	if err := txn.Delete(textKey(fieldID)); err != nil {
		return err
	}
	return txn.Delete(rk)
}

// readPostings collects fieldID -> term count for one term.
func readPostings(txn *badger.Txn, term string) (map[int64]int, error) {
	prefix := termPrefix(term)
	it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
	defer it.Close()

	postings := make(map[int64]int)
	for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		fid := decodeID(item.Key()[len(prefix):])
		if err := item.Value(func(v []byte) error {
			postings[fid] = decodeCount(v)
			return nil
		}); err != nil {
			return nil, err
		}
	}
	return postings, nil
}

// nearestTerm scans the vocabulary for the closest term within
// maxEditDistance. Ties prefer the smaller distance, then the
// lexicographically smaller term.
func nearestTerm(txn *badger.Txn, token string) (string, int, error) {
	prefix := []byte("v:")
	it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
	defer it.Close()

	best := ""
	bestDist := maxEditDistance + 1
	for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
		term := string(it.Item().Key()[len(prefix):])
		d := levenshtein.ComputeDistance(token, term)
		if d < bestDist || (d == bestDist && best != "" && term < best) {
			best = term
			bestDist = d
		}
	}
	if bestDist > maxEditDistance {
		return "", 0, nil
	}
	return best, bestDist, nil
}

// bumpVocab adjusts a vocabulary counter, deleting it at zero.
func bumpVocab(txn *badger.Txn, term string, delta int) error {
	key := vocabKey(term)
	count := 0
	item, err := txn.Get(key)
	if err == nil {
		if err := item.Value(func(v []byte) error {
			count = decodeCount(v)
			return nil
		}); err != nil {
			return err
		}
	} else if err != badger.ErrKeyNotFound {
		return err
	}

	count += delta
	if count <= 0 {
		return txn.Delete(key)
	}
	return txn.Set(key, encodeCount(count))
}

func readMeta(txn *badger.Txn, fieldID int64) (int64, domain.FieldKind, error) {
	item, err := txn.Get(fieldKey(fieldID))
	if err != nil {
		return 0, "", err
	}
	var docID int64
	var kind domain.FieldKind
	err = item.Value(func(v []byte) error {
		if len(v) < 8 {
			return fmt.Errorf("short field meta for %d", fieldID)
		}
		docID = decodeID(v[:8])
		kind = domain.FieldKind(v[8:])
		return nil
	})
	return docID, kind, err
}

func readText(txn *badger.Txn, fieldID int64) (string, error) {
	item, err := txn.Get(textKey(fieldID))
	if err != nil {
		return "", err
	}
	var text string
	err = item.Value(func(v []byte) error {
		text = string(v)
		return nil
	})
	return text, err
}

func countPrefix(txn *badger.Txn, prefix []byte) int64 {
	it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
	defer it.Close()
	var n int64
	for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
		n++
	}
	return n
}

// Key encoding. Field and document ids are big-endian so keys sort in
// id order.

func encodeID(id int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id))
	return b[:]
}

func decodeID(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b[:8]))
}

func encodeCount(n int) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(n))
	return b[:]
}

func decodeCount(b []byte) int {
	if len(b) < 4 {
		return 0
	}
	return int(binary.BigEndian.Uint32(b[:4]))
}

func termKey(term string, fieldID int64) []byte {
	return append(termPrefix(term), encodeID(fieldID)...)
}

// termPrefix separates the term with a NUL so a term containing ':'
// (mixed tokens like "1:30" survive segmentation) cannot alias a
// shorter term's prefix.
func termPrefix(term string) []byte {
	var b bytes.Buffer
	b.WriteString("t:")
	b.WriteString(term)
	b.WriteByte(0)
	return b.Bytes()
}

func fieldKey(fieldID int64) []byte {
	return append([]byte("f:"), encodeID(fieldID)...)
}

func textKey(fieldID int64) []byte {
	return append([]byte("x:"), encodeID(fieldID)...)
}

func reverseKey(documentID, fieldID int64) []byte {
	return append(reversePrefix(documentID), encodeID(fieldID)...)
}

func reversePrefix(documentID int64) []byte {
	b := append([]byte("d:"), encodeID(documentID)...)
	return append(b, ':')
}

func vocabKey(term string) []byte {
	return append([]byte("v:"), term...)
}

func encodeMeta(documentID int64, kind domain.FieldKind) []byte {
	return append(encodeID(documentID), []byte(kind)...)
}
