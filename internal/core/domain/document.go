package domain

import "time"

// SourceCategory identifies where a document's content came from.
type SourceCategory string

// Known source categories.
const (
	SourceWebArchive  SourceCategory = "web_archive"
	SourceVideo       SourceCategory = "video"
	SourceBilibili    SourceCategory = "bilibili"
	SourceDouyin      SourceCategory = "douyin"
	SourceXiaohongshu SourceCategory = "xiaohongshu"
	SourceTwitter     SourceCategory = "twitter"
	SourceYoutube     SourceCategory = "youtube"
)

// FieldKind is the closed set of source-field kinds a document may carry.
type FieldKind string

// Field kinds produced by the archive pipeline.
const (
	// FieldAny matches every kind when used as a filter.
	FieldAny FieldKind = ""

	// FieldReport is an AI-generated analysis report.
	FieldReport FieldKind = "report"

	// FieldTranscript is a speech-to-text transcription.
	FieldTranscript FieldKind = "transcript"

	// FieldOCR is on-screen text extracted from video frames.
	FieldOCR FieldKind = "ocr"

	// FieldTopic is a chapter/topic summary.
	FieldTopic FieldKind = "topic"
)

// Valid reports whether k names a concrete field kind.
func (k FieldKind) Valid() bool {
	switch k {
	case FieldReport, FieldTranscript, FieldOCR, FieldTopic:
		return true
	}
	return false
}

// TimeBearing reports whether fields of this kind can be correlated
// with the document timeline.
func (k FieldKind) TimeBearing() bool {
	return k == FieldTranscript || k == FieldOCR
}

// Document is a content entity owned by the external archive pipeline.
// The search core reads it and indexes its fields; it never mutates it
// except to cascade a delete.
type Document struct {
	// ID is the pipeline-assigned identifier.
	ID int64

	// Title is the human-readable title.
	Title string

	// Source is the content's origin category.
	Source SourceCategory

	// DurationSeconds is the media duration; zero for non-media content.
	DurationSeconds float64

	// FileRef is the file or location reference for the stored content.
	FileRef string

	// CreatedAt is when the pipeline produced the document.
	CreatedAt time.Time
}

// IndexedField is one searchable text row of a document. Fields are
// immutable once written: a re-processing run appends a new row rather
// than updating an existing one, so both indexes stay consistent.
type IndexedField struct {
	// ID is the store-assigned row identifier, used as the index key.
	ID int64

	// DocumentID links to the owning Document.
	DocumentID int64

	// Kind is the source-field kind.
	Kind FieldKind

	// Content is the full field text.
	Content string

	// CreatedAt is when the row was written.
	CreatedAt time.Time
}
