// Package segmented implements the segmented-token index backend on
// BadgerDB. Content is split by a dictionary segmenter (with a bigram
// fallback), postings are stored under binary term keys, and scores
// are term-frequency based, already in the [0,1] range.
//
// Key layout:
//
//	t:<term>\x00<fieldID>  posting, value = term count in the field
//	f:<fieldID>         field meta, value = document id + kind
//	x:<fieldID>         stored field text
//	d:<docID>:<fieldID> reverse index, value = NUL-joined term list
//	v:<term>            vocabulary, value = posting count
//
// Fuzzy queries fall back to the nearest vocabulary term within edit
// distance two when a query token has no exact postings.
package segmented
