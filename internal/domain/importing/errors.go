package importing

import "errors"

var (
	ErrSessionNotFound       = errors.New("import session not found")
	ErrBatchAlreadyCommitted = errors.New("import batch already committed")
	ErrSessionStateChanged   = errors.New("import session state changed")
	ErrRecordNotFound        = errors.New("record not found")

	// ErrStoreUnavailable marks failures where the store could not be reached;
	// callers may retry the whole operation.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrStoreMisconfigured marks failures caused by missing schema objects.
	ErrStoreMisconfigured = errors.New("store misconfigured")
)
