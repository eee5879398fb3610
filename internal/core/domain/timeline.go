package domain

// TimelineEntry links a document to a timestamp with the transcript or
// OCR text visible at that moment. Entries back-fill approximate
// timestamps for matched snippets; they are never a primary search
// target.
type TimelineEntry struct {
	ID               int64
	DocumentID       int64
	TimestampSeconds float64
	Kind             FieldKind // FieldTranscript or FieldOCR
	Text             string
}

// TimeWindow is an approximate display range for a matched snippet.
type TimeWindow struct {
	StartSeconds float64
	EndSeconds   float64
}
