package domain

// TagProvenance records how a tag was attached to a document.
type TagProvenance string

// Tag provenances.
const (
	ProvenanceAuto   TagProvenance = "auto"
	ProvenanceManual TagProvenance = "manual"
)

// Tag is a label shared across documents. Names are unique
// case-insensitively; UsageCount tracks how often the tag has been
// attached.
type Tag struct {
	ID         int64
	Name       string
	Category   string
	UsageCount int64
}

// TagUsage is a tag together with the number of documents linked to it.
// Returned by popular-tag queries.
type TagUsage struct {
	Tag
	DocumentCount int64
}

// TaggedDocument is a document joined with its tag names, plus the
// count of filter tags it matched (meaningful in OR mode).
type TaggedDocument struct {
	Document
	Tags         []string
	MatchedCount int
}
