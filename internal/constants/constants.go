// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Matching constants
const (
	// DefaultMatchThreshold is the default maximum Euclidean distance for a face match.
	// Lower values = stricter matching
	DefaultMatchThreshold = 0.6

	// CollisionSearchLimit is the number of neighbours inspected by the enrollment collision check
	CollisionSearchLimit = 10
)

// Attendance constants
const (
	// DefaultLocation is recorded when a check-in does not name one
	DefaultLocation = "Main Office"

	// DateLayout is the calendar date format used for attendance records
	DateLayout = "2006-01-02"

	// TimeLayout is the wall-clock format used for time in / time out
	TimeLayout = "15:04:05"
)

// Image processing constants
const (
	// MaxImageSize is the maximum dimension (width or height) sent to the embedding server
	MaxImageSize = 1280

	// MinFaceWidthRel is the minimum face width relative to image width (5%).
	// Smaller detections are background faces, not the person at the kiosk.
	MinFaceWidthRel = 0.05

	// WorkerPoolSize is the default number of parallel workers for bulk enrollment
	WorkerPoolSize = 4
)
