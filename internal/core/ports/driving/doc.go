// Package driving defines the interfaces external actors use to call
// INTO the core.
//
// These are the "driving" or "primary" ports in hexagonal architecture.
// The CLI adapter depends on these interfaces; core services implement
// them.
//
//   - SearchService: free-text, tag and topic queries
//   - IngestService: the boundary consumed from the archive pipeline
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or service package
package driving
