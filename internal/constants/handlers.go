// Package constants provides shared constants used across the codebase.
package constants

// Handler pagination constants
const (
	// DefaultRecentLimit is the default number of records returned by the recent attendance endpoint
	DefaultRecentLimit = 20

	// DefaultHandlerPageSize is the page size for listing endpoints
	DefaultHandlerPageSize = 100

	// MaxHandlerPageSize caps client supplied limits
	MaxHandlerPageSize = 1000
)

// File upload constants
const (
	// MaxRequestSize is the maximum request body size in bytes (20MB), enough for a base64 webcam frame
	MaxRequestSize = 20 << 20
)
