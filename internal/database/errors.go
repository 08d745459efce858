package database

import "errors"

var (
	// ErrStoreUnavailable wraps connectivity and query failures of the backing store.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrIdentityNotFound is returned when an identity ID does not exist.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrDuplicateRecord is returned when an attendance record for the identity and date already exists.
	ErrDuplicateRecord = errors.New("attendance record already exists")
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
)
