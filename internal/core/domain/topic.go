package domain

// Topic is a chapter/section of one document. Topics are searched by
// substring containment over title and summary, independently of the
// full-text indexes.
type Topic struct {
	ID           int64
	DocumentID   int64
	Title        string
	StartSeconds float64
	EndSeconds   float64
	Summary      string
	Keywords     []string
	Sequence     int
}

// TopicResult is a topic joined with its document's display metadata.
type TopicResult struct {
	Topic
	DocumentTitle string
	Source        SourceCategory
	FileRef       string
	DocumentTags  []string
}
