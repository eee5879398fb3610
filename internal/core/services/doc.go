// Package services implements the driving port interfaces.
// Services contain the hybrid search & ranking core — query planning,
// fuzzy variant generation, score normalization, multi-keyword
// combination, aggregation and snippet extraction — and the ingest
// orchestration, delegating persistence to driven ports (adapters).
package services
