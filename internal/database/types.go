package database

import (
	"time"

	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// Identity is an enrolled person. Profile fields are metadata only and play no part in matching.
type Identity struct {
	ID         string
	Name       string
	Email      string
	EmployeeID string
	Department string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IdentityUpdate carries optional profile changes. Nil fields are left untouched.
type IdentityUpdate struct {
	Name       *string
	Email      *string
	EmployeeID *string
	Department *string
}

// Apply copies the set fields onto identity.
func (u IdentityUpdate) Apply(identity *Identity) {
	if u.Name != nil {
		identity.Name = *u.Name
	}
	if u.Email != nil {
		identity.Email = *u.Email
	}
	if u.EmployeeID != nil {
		identity.EmployeeID = *u.EmployeeID
	}
	if u.Department != nil {
		identity.Department = *u.Department
	}
}

// Empty reports whether the update changes nothing.
func (u IdentityUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.EmployeeID == nil && u.Department == nil
}

// FaceSample is one stored reference embedding of an identity
type FaceSample struct {
	ID         int64
	IdentityID string
	Embedding  facematch.Embedding
	Model      string
	Dim        int
	CreatedAt  time.Time
}

// AttendanceStatus classifies a check-in.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusLate    AttendanceStatus = "late"
	StatusAbsent  AttendanceStatus = "absent" // derived in reports, never written by check-in
)

// Valid reports whether s is a known status.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusLate, StatusAbsent:
		return true
	}
	return false
}

// AttendanceRecord is the single check-in of an identity on a calendar date.
type AttendanceRecord struct {
	ID           string
	IdentityID   string
	IdentityName string // joined from identities on read
	Date         string // YYYY-MM-DD in the attendance timezone
	TimeIn       time.Time
	TimeOut      *time.Time
	Status       AttendanceStatus
	Location     string
	Notes        string
	CreatedAt    time.Time
}

// AttendanceFilter narrows List results. Zero values mean "no constraint".
type AttendanceFilter struct {
	From       string // inclusive date
	To         string // inclusive date
	IdentityID string
	Status     AttendanceStatus
	Limit      int
}
