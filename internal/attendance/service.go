package attendance

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/logging"
)

var (
	// ErrNotCheckedIn is returned by CheckOut when there is no record for today.
	ErrNotCheckedIn = errors.New("not checked in today")
	// ErrAlreadyCheckedOut is returned by CheckOut when time out is already set.
	ErrAlreadyCheckedOut = errors.New("already checked out today")
	// ErrInvalidFilter is returned for report dates not in YYYY-MM-DD form or unknown statuses.
	ErrInvalidFilter = errors.New("invalid attendance filter")
)

// Summary is the attendance overview of one day.
type Summary struct {
	Date    string `json:"date"`
	Total   int    `json:"total"`
	Present int    `json:"present"`
	Late    int    `json:"late"`
	Absent  int    `json:"absent"`
}

// Service records check-ins and produces attendance reports.
type Service struct {
	recorder   database.AttendanceRecorder
	identities database.IdentityReader
	policy     Policy
	now        func() time.Time
}

// NewService creates an attendance service.
func NewService(recorder database.AttendanceRecorder, identities database.IdentityReader, policy Policy) *Service {
	return &Service{
		recorder:   recorder,
		identities: identities,
		policy:     policy,
		now:        time.Now,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Policy returns the active policy.
func (s *Service) Policy() Policy {
	return s.policy
}

// Record creates today's attendance record for the identity. When a record already exists
// it is returned unchanged and created is false; a repeated check-in is not an error.
func (s *Service) Record(ctx context.Context, identityID, place, notes string) (*database.AttendanceRecord, bool, error) {
	identity, err := s.identities.GetIdentity(ctx, identityID)
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to load identity", goerr.V("identity_id", identityID))
	}

	now := s.now()
	date := s.policy.DateOf(now)

	exists, err := s.recorder.HasRecord(ctx, identityID, date)
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to check attendance", goerr.V("identity_id", identityID), goerr.V("date", date))
	}
	if exists {
		return s.existing(ctx, identity, date)
	}

	record := &database.AttendanceRecord{
		IdentityID:   identityID,
		IdentityName: identity.Name,
		Date:         date,
		TimeIn:       now,
		Status:       s.policy.StatusAt(now),
		Location:     s.policy.Place(strings.TrimSpace(place)),
		Notes:        strings.TrimSpace(notes),
	}
	if err := s.recorder.Insert(ctx, record); err != nil {
		if errors.Is(err, database.ErrDuplicateRecord) {
			// Another check-in for the same identity won the race.
			return s.existing(ctx, identity, date)
		}
		return nil, false, goerr.Wrap(err, "failed to insert attendance", goerr.V("identity_id", identityID), goerr.V("date", date))
	}
	record.IdentityName = identity.Name

	logging.From(ctx).Info("Attendance recorded",
		"identity_id", identityID,
		"name", identity.Name,
		"date", date,
		"status", record.Status,
		"location", record.Location,
	)
	return record, true, nil
}

func (s *Service) existing(ctx context.Context, identity *database.Identity, date string) (*database.AttendanceRecord, bool, error) {
	record, err := s.recorder.GetRecord(ctx, identity.ID, date)
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to load existing attendance", goerr.V("identity_id", identity.ID), goerr.V("date", date))
	}
	if record.IdentityName == "" {
		record.IdentityName = identity.Name
	}
	logging.From(ctx).Debug("Attendance already recorded", "identity_id", identity.ID, "date", date)
	return record, false, nil
}

// CheckOut sets today's time out for the identity.
func (s *Service) CheckOut(ctx context.Context, identityID string) (*database.AttendanceRecord, error) {
	now := s.now()
	date := s.policy.DateOf(now)

	record, err := s.recorder.GetRecord(ctx, identityID, date)
	if errors.Is(err, database.ErrNotFound) {
		return nil, goerr.Wrap(ErrNotCheckedIn, "no attendance record", goerr.V("identity_id", identityID), goerr.V("date", date))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load attendance", goerr.V("identity_id", identityID))
	}
	if record.TimeOut != nil {
		return nil, goerr.Wrap(ErrAlreadyCheckedOut, "time out already set",
			goerr.V("identity_id", identityID), goerr.V("time_out", record.TimeOut.Format(time.RFC3339)))
	}

	if err := s.recorder.SetTimeOut(ctx, record.ID, now); err != nil {
		return nil, goerr.Wrap(err, "failed to set time out", goerr.V("record_id", record.ID))
	}
	record.TimeOut = &now

	logging.From(ctx).Info("Check-out recorded", "identity_id", identityID, "date", date)
	return record, nil
}

// Summary counts present, late and absent identities on date. An empty date means today.
func (s *Service) Summary(ctx context.Context, date string) (*Summary, error) {
	date, err := s.resolveDate(date)
	if err != nil {
		return nil, err
	}

	total, err := s.identities.CountIdentities(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to count identities")
	}
	counts, err := s.recorder.CountByStatus(ctx, date)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to count attendance", goerr.V("date", date))
	}

	summary := &Summary{
		Date:    date,
		Total:   total,
		Present: counts[database.StatusPresent],
		Late:    counts[database.StatusLate],
	}
	summary.Absent = max(0, total-summary.Present-summary.Late)
	return summary, nil
}

// Today lists today's records, newest first.
func (s *Service) Today(ctx context.Context) ([]database.AttendanceRecord, error) {
	today := s.policy.DateOf(s.now())
	return s.List(ctx, database.AttendanceFilter{From: today, To: today})
}

// Recent lists the most recent records. A non-positive limit uses the default of 20.
func (s *Service) Recent(ctx context.Context, limit int) ([]database.AttendanceRecord, error) {
	if limit <= 0 {
		limit = constants.DefaultRecentLimit
	}
	return s.List(ctx, database.AttendanceFilter{Limit: limit})
}

// List returns records matching filter, newest first.
func (s *Service) List(ctx context.Context, filter database.AttendanceFilter) ([]database.AttendanceRecord, error) {
	for _, d := range []string{filter.From, filter.To} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(constants.DateLayout, d); err != nil {
			return nil, goerr.Wrap(ErrInvalidFilter, "bad date in filter", goerr.V("date", d))
		}
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, goerr.Wrap(ErrInvalidFilter, "unknown status", goerr.V("status", filter.Status))
	}

	records, err := s.recorder.List(ctx, filter)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list attendance")
	}
	return records, nil
}

func (s *Service) resolveDate(date string) (string, error) {
	if date == "" {
		return s.policy.DateOf(s.now()), nil
	}
	if _, err := time.Parse(constants.DateLayout, date); err != nil {
		return "", goerr.Wrap(ErrInvalidFilter, "date must be YYYY-MM-DD", goerr.V("date", date))
	}
	return date, nil
}
