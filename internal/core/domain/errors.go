package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrBackendUnavailable indicates an index backend failed to
	// initialise or respond. Recovered locally by the fallback chain;
	// never surfaced to the caller as a query failure.
	ErrBackendUnavailable = errors.New("index backend unavailable")

	// ErrIndexCorrupted indicates a structural read failure in an
	// index. Fatal for the affected query only; the index is flagged
	// for rebuild.
	ErrIndexCorrupted = errors.New("index corrupted")

	// ErrIndexClosed indicates an operation on a closed index backend.
	ErrIndexClosed = errors.New("index closed")
)
