// Package sentinel names the storage facts that cross from the ledger,
// checkpoint, outbox and allowlist stores into the services. Stores wrap
// them with context; services map them onto domain error codes.
package sentinel

import "errors"

var (
	// ErrNotFound: no record, checkpoint or row matches the key.
	ErrNotFound = errors.New("not found")
	// ErrConflict: the (token, seq) position or unique key is already taken.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable: the backend could not be reached or timed out.
	ErrUnavailable = errors.New("unavailable")
	// ErrCorrupt: persisted data breaks the log's ordering or hash chain.
	ErrCorrupt = errors.New("corrupt")
)
