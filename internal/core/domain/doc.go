// Package domain defines the core business entities for Trove.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A content entity produced by the archive pipeline
//   - IndexedField: One immutable searchable text row of a document
//   - Tag / Topic / TimelineEntry: Secondary lookup structures
//   - SearchResult: The derived, ranked query output
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
