package facematch

import (
	"math"

	"github.com/m-mizutani/goerr/v2"
	"gonum.org/v1/gonum/floats"
)

// EuclideanDistance returns the L2 distance between two embeddings.
// Embeddings of different lengths are never truncated or padded.
func EuclideanDistance(a, b Embedding) (float64, error) {
	if len(a) != len(b) {
		return 0, goerr.Wrap(ErrDimensionMismatch, "cannot compare embeddings",
			goerr.V("left_dim", len(a)), goerr.V("right_dim", len(b)))
	}
	if len(a) == 0 {
		return 0, nil
	}
	return floats.Distance(a, b, 2), nil
}

// Validate checks that an embedding is non-empty, has the expected dimension
// (when dim > 0) and contains only finite values.
func Validate(e Embedding, dim int) error {
	if len(e) == 0 {
		return goerr.Wrap(ErrInvalidEmbedding, "embedding is empty")
	}
	if dim > 0 && len(e) != dim {
		return goerr.Wrap(ErrDimensionMismatch, "unexpected embedding dimension",
			goerr.V("expected", dim), goerr.V("actual", len(e)))
	}
	for i, x := range e {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return goerr.Wrap(ErrInvalidEmbedding, "embedding contains non-finite value", goerr.V("index", i))
		}
	}
	return nil
}
