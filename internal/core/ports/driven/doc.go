// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - DocumentStore: Document and indexed-field persistence (source of truth)
//   - TagStore: Tag relation persistence and boolean tag filtering
//   - TopicStore: Topic persistence and substring topic search
//   - TimelineStore: Timestamp back-fill lookups for matched snippets
//   - IndexBackend: Inverted-index contract shared by both engines
//   - ConfigStore: Application configuration
//
// The two IndexBackend implementations (exact-token and segmented-token)
// are derived, disposable caches: either can be dropped and rebuilt in
// full from the DocumentStore.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
