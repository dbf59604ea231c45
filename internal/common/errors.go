// Package common defines the shared error taxonomy and small utilities used
// across the server layers. Callers should use errors.Is to match the
// sentinel kinds.
package common

import "errors"

// The five error kinds every operation resolves its failures into. Services
// wrap collaborator failures with fmt.Errorf("...: %w", kind) so the original
// diagnostic is preserved while the kind stays matchable; already-classified
// errors pass through unchanged.
var (
	// ErrValidation marks malformed or missing caller input.
	ErrValidation = errors.New("validation error")

	// ErrAuthentication marks a missing, unknown, or expired session, or
	// failed credentials.
	ErrAuthentication = errors.New("authentication error")

	// ErrNotFound marks a referenced user or profile that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStorage marks a persistence collaborator failure.
	ErrStorage = errors.New("storage error")

	// ErrInternal marks an unexpected, uncategorized failure.
	ErrInternal = errors.New("internal error")
)
