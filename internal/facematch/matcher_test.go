package facematch

import (
	"errors"
	"math"
	"testing"
)

func TestMatch_EmptyReferenceSet(t *testing.T) {
	probes := []Embedding{
		{0, 0},
		{1.5, -2, 3},
		{},
	}

	for _, probe := range probes {
		result, err := Match(probe, nil, DefaultThreshold)
		if err != nil {
			t.Fatalf("Match(%v, nil) error = %v", probe, err)
		}
		if result.Matched {
			t.Errorf("Match(%v, nil) matched, want no match", probe)
		}
		if result.Reason != ReasonNoReferences {
			t.Errorf("Reason = %q, want %q", result.Reason, ReasonNoReferences)
		}
	}
}

func TestMatch_SelfMatchIsZero(t *testing.T) {
	e := Embedding{0.12, -0.4, 0.33, 0.9}
	for _, threshold := range []float64{0.0001, 0.6, 10} {
		result, err := Match(e, ReferenceSet{{IdentityID: "id-1", Name: "Alice", Embedding: e}}, threshold)
		if err != nil {
			t.Fatalf("Match() error = %v", err)
		}
		if !result.Matched {
			t.Fatalf("threshold %v: expected self match", threshold)
		}
		if result.IdentityID != "id-1" {
			t.Errorf("IdentityID = %q, want id-1", result.IdentityID)
		}
		if result.Distance != 0 {
			t.Errorf("Distance = %v, want exactly 0", result.Distance)
		}
	}
}

func TestMatch_SingleReferenceThreshold(t *testing.T) {
	tests := []struct {
		name      string
		probe     Embedding
		ref       Embedding
		threshold float64
		matched   bool
		distance  float64
	}{
		{
			name:      "alice at distance zero",
			probe:     Embedding{0, 0},
			ref:       Embedding{0, 0},
			threshold: 0.6,
			matched:   true,
			distance:  0,
		},
		{
			name:      "too far",
			probe:     Embedding{0, 0},
			ref:       Embedding{1, 1},
			threshold: 0.6,
			matched:   false,
			distance:  math.Sqrt2,
		},
		{
			name:      "just below threshold",
			probe:     Embedding{0, 0},
			ref:       Embedding{0.3, 0.4},
			threshold: 0.5000001,
			matched:   true,
			distance:  0.5,
		},
		{
			name:      "distance equal to threshold is rejected",
			probe:     Embedding{0, 0},
			ref:       Embedding{0, 0.5},
			threshold: 0.5,
			matched:   false,
			distance:  0.5,
		},
		{
			name:      "zero threshold never matches",
			probe:     Embedding{1, 2, 3},
			ref:       Embedding{1, 2, 3},
			threshold: 0,
			matched:   false,
			distance:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Match(tt.probe, ReferenceSet{{IdentityID: "alice", Embedding: tt.ref}}, tt.threshold)
			if err != nil {
				t.Fatalf("Match() error = %v", err)
			}
			if result.Matched != tt.matched {
				t.Errorf("Matched = %v, want %v", result.Matched, tt.matched)
			}
			if math.Abs(result.Distance-tt.distance) > 1e-9 {
				t.Errorf("Distance = %v, want %v", result.Distance, tt.distance)
			}
			if tt.matched && result.IdentityID != "alice" {
				t.Errorf("IdentityID = %q, want alice", result.IdentityID)
			}
			if !tt.matched {
				if result.IdentityID != "" {
					t.Errorf("IdentityID = %q, want empty on no match", result.IdentityID)
				}
				if result.Reason != ReasonAboveThreshold {
					t.Errorf("Reason = %q, want %q", result.Reason, ReasonAboveThreshold)
				}
			}
		})
	}
}

func TestMatch_ConcreteScenarios(t *testing.T) {
	result, err := Match(Embedding{0, 0}, ReferenceSet{
		{IdentityID: "alice", Name: "Alice", Embedding: Embedding{0, 0}},
		{IdentityID: "bob", Name: "Bob", Embedding: Embedding{1, 1}},
	}, 0.6)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if !result.Matched || result.IdentityID != "alice" || result.Distance != 0 {
		t.Errorf("got %+v, want Matched(alice, 0)", result)
	}
	if result.Name != "Alice" {
		t.Errorf("Name = %q, want Alice", result.Name)
	}

	result, err = Match(Embedding{0, 0}, ReferenceSet{
		{IdentityID: "alice", Embedding: Embedding{1, 1}},
	}, 0.6)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if result.Matched {
		t.Errorf("got %+v, want no match", result)
	}
}

func TestMatch_MinimumDistancePerIdentity(t *testing.T) {
	probe := Embedding{0, 0}
	refs := ReferenceSet{
		{IdentityID: "A", Embedding: Embedding{0.5, 0}},  // a1: 0.5
		{IdentityID: "B", Embedding: Embedding{0.3, 0}},  // b1: 0.3
		{IdentityID: "A", Embedding: Embedding{0.1, 0}},  // a2: 0.1
		{IdentityID: "C", Embedding: Embedding{0.55, 0}}, // c1: 0.55
	}

	result, err := Match(probe, refs, 0.6)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if !result.Matched || result.IdentityID != "A" {
		t.Fatalf("got %+v, want match for A", result)
	}
	if math.Abs(result.Distance-0.1) > 1e-12 {
		t.Errorf("Distance = %v, want 0.1 (closest sample of A)", result.Distance)
	}
}

func TestMatch_TieBreakFirstIdentity(t *testing.T) {
	probe := Embedding{0, 0}
	refs := ReferenceSet{
		{IdentityID: "first", Embedding: Embedding{0.3, 0}},
		{IdentityID: "second", Embedding: Embedding{0, 0.3}},
		{IdentityID: "third", Embedding: Embedding{-0.3, 0}},
	}

	for range 50 {
		result, err := Match(probe, refs, 0.6)
		if err != nil {
			t.Fatalf("Match() error = %v", err)
		}
		if result.IdentityID != "first" {
			t.Fatalf("tie went to %q, want first", result.IdentityID)
		}
	}
}

func TestMatch_TieBreakUsesIdentityOrder(t *testing.T) {
	// B reaches 0.2 before A's second sample does, but A was seen first.
	probe := Embedding{0, 0}
	refs := ReferenceSet{
		{IdentityID: "A", Embedding: Embedding{0.5, 0}},
		{IdentityID: "B", Embedding: Embedding{0.2, 0}},
		{IdentityID: "A", Embedding: Embedding{0, 0.2}},
	}

	result, err := Match(probe, refs, 0.6)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if result.IdentityID != "A" {
		t.Errorf("IdentityID = %q, want A", result.IdentityID)
	}
}

func TestMatch_DimensionMismatch(t *testing.T) {
	refs := ReferenceSet{
		{IdentityID: "ok", Embedding: Embedding{0, 0}},
		{IdentityID: "bad", Embedding: Embedding{0, 0, 0}},
	}

	_, err := Match(Embedding{0, 0}, refs, 0.6)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("error = %v, want ErrDimensionMismatch", err)
	}
}

func TestMatch_InvalidThreshold(t *testing.T) {
	for _, threshold := range []float64{-0.1, math.NaN()} {
		_, err := Match(Embedding{0}, ReferenceSet{{IdentityID: "x", Embedding: Embedding{0}}}, threshold)
		if !errors.Is(err, ErrInvalidThreshold) {
			t.Errorf("threshold %v: error = %v, want ErrInvalidThreshold", threshold, err)
		}
	}

	// Threshold is validated even without references.
	if _, err := Match(Embedding{0}, nil, -1); !errors.Is(err, ErrInvalidThreshold) {
		t.Errorf("error = %v, want ErrInvalidThreshold", err)
	}
}

func TestReferenceSet_IdentityCount(t *testing.T) {
	refs := ReferenceSet{
		{IdentityID: "a"}, {IdentityID: "b"}, {IdentityID: "a"},
	}
	if got := refs.IdentityCount(); got != 2 {
		t.Errorf("IdentityCount() = %d, want 2", got)
	}
}
