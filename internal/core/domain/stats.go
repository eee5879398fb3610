package domain

// IndexReport summarizes both index backends for diagnostics.
type IndexReport struct {
	ExactFields     int64
	ExactTerms      int64
	SegmentedFields int64
	SegmentedTerms  int64
}
