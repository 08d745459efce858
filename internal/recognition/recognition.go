// Package recognition wires the extractor, the reference store, the matcher and
// the attendance recorder into the identify and check-in flows.
package recognition

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/logging"
)

// ErrNoMatch is returned by check-in when the probe matches no identity.
var ErrNoMatch = errors.New("face not recognized")

// RejectedMatch returns the match decision carried by an ErrNoMatch error,
// so callers can report the closest distance without identifying again.
func RejectedMatch(err error) (facematch.Result, bool) {
	if !errors.Is(err, ErrNoMatch) {
		return facematch.Result{}, false
	}
	values := goerr.Values(err)
	distance, _ := values["distance"].(float64)
	reason, _ := values["reason"].(facematch.Reason)
	return facematch.Result{Distance: distance, Reason: reason}, true
}

// CheckInResult is the outcome of a successful check-in.
type CheckInResult struct {
	Match   facematch.Result
	Record  *database.AttendanceRecord
	Created bool // false when the identity had already checked in today
}

// Service runs recognition flows.
type Service struct {
	samples    database.FaceSampleReader
	attendance *attendance.Service
	extractor  extractor.Extractor
	threshold  float64
}

// NewService creates a recognition service. ext may be nil when callers only pass embeddings.
func NewService(samples database.FaceSampleReader, att *attendance.Service, ext extractor.Extractor, threshold float64) *Service {
	return &Service{
		samples:    samples,
		attendance: att,
		extractor:  ext,
		threshold:  threshold,
	}
}

// Threshold returns the configured match threshold.
func (s *Service) Threshold() float64 {
	return s.threshold
}

// Identify matches probe against a freshly loaded reference set.
// An unmatched probe is not an error; inspect Result.Matched.
func (s *Service) Identify(ctx context.Context, probe facematch.Embedding) (facematch.Result, error) {
	if err := facematch.Validate(probe, 0); err != nil {
		return facematch.Result{}, goerr.Wrap(err, "invalid probe", goerr.V("probe_dim", len(probe)))
	}

	refs, err := s.samples.FetchAll(ctx)
	if err != nil {
		return facematch.Result{}, goerr.Wrap(err, "failed to load reference set")
	}

	result, err := facematch.Match(probe, refs, s.threshold)
	if err != nil {
		if errors.Is(err, facematch.ErrDimensionMismatch) || errors.Is(err, facematch.ErrInvalidThreshold) {
			logging.From(ctx).Error("Matcher rejected its input",
				"error", err,
				"probe_dim", len(probe),
				"references", len(refs),
				"threshold", s.threshold,
			)
		}
		return facematch.Result{}, goerr.Wrap(err, "failed to match probe")
	}

	logging.From(ctx).Debug("Probe matched",
		"matched", result.Matched,
		"identity_id", result.IdentityID,
		"distance", result.Distance,
		"reason", result.Reason,
		"references", len(refs),
	)
	return result, nil
}

// IdentifyImage extracts the face from image and identifies it.
func (s *Service) IdentifyImage(ctx context.Context, image []byte) (facematch.Result, error) {
	probe, err := s.extract(ctx, image)
	if err != nil {
		return facematch.Result{}, err
	}
	return s.Identify(ctx, probe)
}

// CheckIn identifies probe and records today's attendance for the matched identity.
func (s *Service) CheckIn(ctx context.Context, probe facematch.Embedding, place, notes string) (*CheckInResult, error) {
	result, err := s.Identify(ctx, probe)
	if err != nil {
		return nil, err
	}
	if !result.Matched {
		return nil, goerr.Wrap(ErrNoMatch, "no identity within threshold",
			goerr.V("reason", result.Reason),
			goerr.V("distance", result.Distance),
			goerr.V("threshold", s.threshold),
		)
	}

	record, created, err := s.attendance.Record(ctx, result.IdentityID, place, notes)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to record attendance", goerr.V("identity_id", result.IdentityID))
	}
	return &CheckInResult{Match: result, Record: record, Created: created}, nil
}

// CheckInImage extracts the face from image and checks it in.
func (s *Service) CheckInImage(ctx context.Context, image []byte, place, notes string) (*CheckInResult, error) {
	probe, err := s.extract(ctx, image)
	if err != nil {
		return nil, err
	}
	return s.CheckIn(ctx, probe, place, notes)
}

func (s *Service) extract(ctx context.Context, image []byte) (facematch.Embedding, error) {
	if s.extractor == nil {
		return nil, goerr.Wrap(extractor.ErrUnavailable, "no extractor configured")
	}
	probe, err := s.extractor.Extract(ctx, image)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to extract embedding")
	}
	return probe, nil
}
