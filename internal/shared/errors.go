package shared

import "errors"

// Sentinels shared across feature packages. Handlers map them to transport
// codes; services wrap them with context.
var (
	// ErrNotFound marks a missing or invisible resource.
	ErrNotFound = errors.New("shared: not found")
	// ErrInvalidCredentials covers unknown accounts, wrong passwords and
	// deactivated accounts alike, so login failures are indistinguishable.
	ErrInvalidCredentials = errors.New("shared: invalid credentials")
	// ErrCSRFTokenMissing is returned when a mutation carries no token.
	ErrCSRFTokenMissing = errors.New("shared: csrf token missing")
	// ErrCSRFTokenMismatch is returned when the supplied token fails the
	// constant-time compare.
	ErrCSRFTokenMismatch = errors.New("shared: csrf token mismatch")
)
