package errors

import "fmt"

var (
	// ErrInvalidUsername rejects a connection that presents neither a known
	// session nor a username. The connection never becomes active.
	ErrInvalidUsername = fmt.Errorf("invalid username")

	// ErrContentLength rejects a message whose content is empty or longer
	// than domain.MaxContentLength. Scoped to the offending frame only.
	ErrContentLength = fmt.Errorf("message content length out of bounds")

	// ErrStoreUnavailable wraps backing-store failures surfaced to callers.
	ErrStoreUnavailable = fmt.Errorf("store unavailable")

	ErrWorkerPanic = fmt.Errorf("worker panic")
)
