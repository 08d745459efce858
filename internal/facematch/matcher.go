package facematch

import (
	"math"

	"github.com/m-mizutani/goerr/v2"
)

// candidate is the best distance found so far for one identity.
type candidate struct {
	identityID string
	name       string
	distance   float64
}

// Match classifies probe as one identity of refs or as no match.
//
// Each identity is as far from the probe as its closest reference. The identity
// with the smallest such distance wins; on exact ties the identity seen first
// in refs wins. The winner is accepted only if its distance is strictly below
// threshold.
func Match(probe Embedding, refs ReferenceSet, threshold float64) (Result, error) {
	if threshold < 0 || math.IsNaN(threshold) {
		return Result{}, goerr.Wrap(ErrInvalidThreshold, "threshold must be a non-negative number",
			goerr.V("threshold", threshold))
	}

	if len(refs) == 0 {
		return Result{Reason: ReasonNoReferences}, nil
	}

	// Identities in order of first appearance, each with its minimum distance.
	order := make([]*candidate, 0, len(refs))
	byID := make(map[string]*candidate, len(refs))

	for i := range refs {
		ref := &refs[i]
		if len(ref.Embedding) != len(probe) {
			return Result{}, goerr.Wrap(ErrDimensionMismatch, "reference embedding does not match probe",
				goerr.V("identity_id", ref.IdentityID),
				goerr.V("probe_dim", len(probe)),
				goerr.V("reference_dim", len(ref.Embedding)))
		}

		d, err := EuclideanDistance(probe, ref.Embedding)
		if err != nil {
			return Result{}, err
		}

		c, ok := byID[ref.IdentityID]
		if !ok {
			c = &candidate{identityID: ref.IdentityID, name: ref.Name, distance: d}
			byID[ref.IdentityID] = c
			order = append(order, c)
			continue
		}
		if d < c.distance {
			c.distance = d
		}
	}

	best := order[0]
	for _, c := range order[1:] {
		if c.distance < best.distance {
			best = c
		}
	}

	if best.distance < threshold {
		return Result{
			Matched:    true,
			IdentityID: best.identityID,
			Name:       best.name,
			Distance:   best.distance,
			Reason:     ReasonMatched,
		}, nil
	}

	return Result{Distance: best.distance, Reason: ReasonAboveThreshold}, nil
}
