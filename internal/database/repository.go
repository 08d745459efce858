package database

import (
	"context"
	"time"

	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// IdentityReader provides read-only access to enrolled identities
type IdentityReader interface {
	// GetIdentity returns the identity or ErrIdentityNotFound
	GetIdentity(ctx context.Context, id string) (*Identity, error)
	// ListIdentities returns all identities ordered by name
	ListIdentities(ctx context.Context) ([]Identity, error)
	// FindIdentitiesByName returns identities whose normalized name equals the normalized input.
	// Names are normalized with facematch.NormalizePersonName (lowercase, no diacritics, dashes to spaces).
	FindIdentitiesByName(ctx context.Context, name string) ([]Identity, error)
	// CountIdentities returns the number of enrolled identities
	CountIdentities(ctx context.Context) (int, error)
}

// IdentityWriter provides write access to identities
type IdentityWriter interface {
	IdentityReader

	// CreateIdentity stores a new identity. ID and timestamps are filled in when empty.
	CreateIdentity(ctx context.Context, identity *Identity) error
	// UpdateIdentity applies a profile update and returns the stored result
	UpdateIdentity(ctx context.Context, id string, update IdentityUpdate) (*Identity, error)
}

// FaceSampleReader provides read-only access to reference embeddings
type FaceSampleReader interface {
	// FetchAll returns every reference embedding joined with its identity name.
	// The order is stable (insertion order) so matching ties resolve deterministically.
	FetchAll(ctx context.Context) (facematch.ReferenceSet, error)
	// ListSamples returns the samples of one identity
	ListSamples(ctx context.Context, identityID string) ([]FaceSample, error)
	// CountSamples returns the total number of stored samples
	CountSamples(ctx context.Context) (int, error)
}

// FaceSampleWriter provides write access to reference embeddings
type FaceSampleWriter interface {
	FaceSampleReader

	// Append stores one more sample for the identity. Existing samples are never replaced.
	Append(ctx context.Context, identityID string, embedding facematch.Embedding, model string) (*FaceSample, error)
	// DeleteSamples removes all samples of the identity and returns how many were deleted
	DeleteSamples(ctx context.Context, identityID string) (int64, error)
}

// AttendanceRecorder persists daily attendance records
type AttendanceRecorder interface {
	// HasRecord reports whether the identity already has a record on date (YYYY-MM-DD)
	HasRecord(ctx context.Context, identityID, date string) (bool, error)
	// GetRecord returns the record for identity and date or ErrNotFound
	GetRecord(ctx context.Context, identityID, date string) (*AttendanceRecord, error)
	// Insert stores a new record. Returns ErrDuplicateRecord when one exists for the identity and date.
	Insert(ctx context.Context, record *AttendanceRecord) error
	// SetTimeOut records the check-out time of a record
	SetTimeOut(ctx context.Context, recordID string, timeOut time.Time) error
	// List returns records matching the filter, newest first
	List(ctx context.Context, filter AttendanceFilter) ([]AttendanceRecord, error)
	// CountByStatus returns record counts per status for date
	CountByStatus(ctx context.Context, date string) (map[AttendanceStatus]int, error)
}
