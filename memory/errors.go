package memory

import "errors"

// Error taxonomy shared by all Store implementations and the Service.
// Callers classify failures with errors.Is; implementations wrap these
// sentinels with fmt.Errorf("...: %w", ...) to add detail.
var (
	// ErrNotInitialized is returned when an operation runs before
	// Initialize succeeded, or when Initialize itself is misconfigured.
	ErrNotInitialized = errors.New("memory store not initialized")

	// ErrNotFound is returned when a referenced brand, insight,
	// interaction, memory, or backup does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned on an ID collision, e.g. creating a
	// brand context for a brand_id that is already taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrBackendUnavailable indicates a transport or backend failure in
	// the underlying store. It is never silently swallowed into empty
	// results, except where search degradation is explicitly declared.
	ErrBackendUnavailable = errors.New("memory backend unavailable")

	// ErrValidation is returned for out-of-range scores and malformed
	// entities or update requests.
	ErrValidation = errors.New("validation failed")
)
