// Package extractor turns face images into embeddings by calling an external embedding server.
package extractor

import (
	"context"
	"errors"

	"github.com/kozaktomas/face-attendance/internal/facematch"
)

var (
	// ErrFaceNotFound is returned when no usable face is detected in the image.
	ErrFaceNotFound = errors.New("no face detected")
	// ErrUnavailable is returned when the embedding server cannot be reached or fails.
	ErrUnavailable = errors.New("embedding server unavailable")
	// ErrNotReady is returned when Extract is called before Initialize succeeded.
	ErrNotReady = errors.New("extractor not initialized")
	// ErrInvalidImage is returned when the image cannot be decoded.
	ErrInvalidImage = errors.New("invalid image")
)

// Extractor produces a face embedding from an encoded image.
type Extractor interface {
	Extract(ctx context.Context, image []byte) (facematch.Embedding, error)
}
