package session

import "errors"

// Sentinel errors surfaced by the orchestrator and store. Handlers map these
// to HTTP statuses with errors.Is; anything else is a fatal store or internal
// failure for the current request.
var (
	// ErrNotFound covers both a missing session and an owner mismatch, so a
	// caller cannot enumerate other users' session IDs.
	ErrNotFound = errors.New("session not found")

	// ErrInvalidConfig rejects malformed session configuration before any
	// state is created.
	ErrInvalidConfig = errors.New("invalid session configuration")

	// ErrGeneration means the content provider failed or returned output the
	// core could not use. The previously persisted state is untouched and the
	// request may be retried.
	ErrGeneration = errors.New("content generation failed")

	// ErrGenerationTimeout means the content provider exceeded its allotted
	// time. No partial state was persisted.
	ErrGenerationTimeout = errors.New("content generation timed out")

	// ErrConflict means another writer updated the session between our load
	// and store. The caller should re-submit.
	ErrConflict = errors.New("session was modified concurrently")
)
