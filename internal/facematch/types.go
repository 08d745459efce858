// Package facematch matches face embeddings against enrolled identities.
// It holds no state and performs no I/O: callers load the reference set and
// decide what to do with the result.
package facematch

import "errors"

// DefaultThreshold is the default maximum Euclidean distance for a match.
// Lower values = stricter matching
const DefaultThreshold = 0.6

var (
	// ErrDimensionMismatch is returned when two embeddings have different lengths.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrInvalidThreshold is returned for negative or NaN thresholds.
	ErrInvalidThreshold = errors.New("invalid match threshold")
	// ErrInvalidEmbedding is returned for empty embeddings or ones containing NaN or Inf.
	ErrInvalidEmbedding = errors.New("invalid embedding")
)

// Embedding is a fixed-length face descriptor produced by an extractor model.
// Embeddings are only comparable when produced by the same model version.
type Embedding []float64

// FromFloat32 converts a float32 vector (pgvector, embedding server) to an Embedding.
func FromFloat32(v []float32) Embedding {
	e := make(Embedding, len(v))
	for i, x := range v {
		e[i] = float64(x)
	}
	return e
}

// Float32 returns the embedding as a float32 slice for storage.
func (e Embedding) Float32() []float32 {
	v := make([]float32, len(e))
	for i, x := range e {
		v[i] = float32(x)
	}
	return v
}

// Reference is a single stored embedding owned by an identity.
type Reference struct {
	IdentityID string
	Name       string
	Embedding  Embedding
}

// ReferenceSet is every known (identity, embedding) pair. Order matters: it is
// the traversal order used to break distance ties.
type ReferenceSet []Reference

// IdentityCount returns the number of distinct identities in the set.
func (rs ReferenceSet) IdentityCount() int {
	seen := make(map[string]struct{}, len(rs))
	for i := range rs {
		seen[rs[i].IdentityID] = struct{}{}
	}
	return len(seen)
}

// Reason explains a match decision.
type Reason string

const (
	ReasonMatched        Reason = "matched"
	ReasonNoReferences   Reason = "no_references"   // reference set was empty
	ReasonAboveThreshold Reason = "above_threshold" // closest identity is too far away
)

// Result is the outcome of a single Match call. It is never persisted.
type Result struct {
	Matched    bool
	IdentityID string
	Name       string
	// Distance is the minimum distance found. For ReasonAboveThreshold it is the
	// distance of the closest (rejected) identity; for ReasonNoReferences it is 0.
	Distance float64
	Reason   Reason
}
