// Package attendance decides and records daily check-ins.
package attendance

import (
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// Policy holds the rules applied to a check-in.
type Policy struct {
	// LateCutoff is the wall-clock time since midnight from which check-ins are late.
	LateCutoff time.Duration
	// Location is the timezone used for calendar dates and the cutoff. Nil means time.Local.
	Location *time.Location
	// DefaultPlace is recorded when a check-in does not name a location.
	DefaultPlace string
}

// DefaultPolicy returns the 09:30 local cutoff with the default location.
func DefaultPolicy() Policy {
	return Policy{
		LateCutoff:   9*time.Hour + 30*time.Minute,
		Location:     time.Local,
		DefaultPlace: constants.DefaultLocation,
	}
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

// StatusAt classifies a check-in at t: strictly before the cutoff is present, at or after is late.
func (p Policy) StatusAt(t time.Time) database.AttendanceStatus {
	if sinceMidnight(t.In(p.location())) >= p.LateCutoff {
		return database.StatusLate
	}
	return database.StatusPresent
}

// DateOf returns the calendar date of t in the policy timezone.
func (p Policy) DateOf(t time.Time) string {
	return t.In(p.location()).Format(constants.DateLayout)
}

// Clock formats the wall-clock time of t in the policy timezone as HH:MM:SS.
func (p Policy) Clock(t time.Time) string {
	return t.In(p.location()).Format(constants.TimeLayout)
}

// Place returns place, or the default location when place is blank.
func (p Policy) Place(place string) string {
	if place == "" {
		return p.DefaultPlace
	}
	return place
}

// sinceMidnight returns the wall-clock offset of t from the start of its day.
func sinceMidnight(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second + time.Duration(t.Nanosecond())
}
