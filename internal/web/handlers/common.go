package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/enrollment"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// errorStatus maps a service error to an HTTP status and a client-facing message.
// Unknown errors map to 500 with a generic message.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, extractor.ErrInvalidImage):
		return http.StatusBadRequest, "invalid image"
	case errors.Is(err, extractor.ErrFaceNotFound):
		return http.StatusUnprocessableEntity, "no face detected"
	case errors.Is(err, extractor.ErrUnavailable), errors.Is(err, extractor.ErrNotReady):
		return http.StatusServiceUnavailable, "embedding server unavailable"
	case errors.Is(err, database.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "database unavailable"
	case errors.Is(err, recognition.ErrNoMatch):
		return http.StatusNotFound, "face not recognized"
	case errors.Is(err, facematch.ErrDimensionMismatch):
		return http.StatusBadRequest, "embedding dimension mismatch"
	case errors.Is(err, facematch.ErrInvalidEmbedding):
		return http.StatusBadRequest, "invalid embedding"
	case errors.Is(err, database.ErrIdentityNotFound):
		return http.StatusNotFound, "identity not found"
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, enrollment.ErrInvalidName):
		return http.StatusBadRequest, "name is required"
	case errors.Is(err, attendance.ErrInvalidFilter):
		return http.StatusBadRequest, "invalid filter"
	case errors.Is(err, attendance.ErrNotCheckedIn):
		return http.StatusConflict, "not checked in today"
	case errors.Is(err, attendance.ErrAlreadyCheckedOut):
		return http.StatusConflict, "already checked out today"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// respondServiceError logs err and sends the mapped error response.
func respondServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	status, message := errorStatus(err)
	logger := logging.From(ctx)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "status", status, "error", err)
	} else {
		logger.Info("Request rejected", "status", status, "error", err)
	}
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxRequestSize)
	return json.NewDecoder(r.Body).Decode(dst)
}

// faceInput is the common request shape of endpoints that take a face, either as a
// webcam capture (data URL or bare base64) or as a precomputed embedding.
type faceInput struct {
	Image     string    `json:"image,omitempty"`
	Embedding []float64 `json:"embedding,omitempty"`
}

var errNoFaceInput = errors.New("image or embedding is required")

// resolve returns either the decoded image or the embedding. Exactly one is non-nil.
func (in faceInput) resolve() ([]byte, facematch.Embedding, error) {
	if len(in.Embedding) > 0 {
		return nil, facematch.Embedding(in.Embedding), nil
	}
	if in.Image == "" {
		return nil, nil, errNoFaceInput
	}
	data, err := extractor.DecodeDataURL(in.Image)
	if err != nil {
		return nil, nil, err
	}
	return data, nil, nil
}

// queryInt parses an integer query parameter, returning def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + name)
	}
	return n, nil
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Readiness reports whether the embedding client finished initialization.
type Readiness interface {
	Ready() bool
}

// HealthHandler reports liveness plus the state of the database and the embedding server.
type HealthHandler struct {
	db        Pinger
	extractor Readiness
}

// NewHealthHandler creates a health handler. Either dependency may be nil.
func NewHealthHandler(db Pinger, ext Readiness) *HealthHandler {
	return &HealthHandler{db: db, extractor: ext}
}

// HealthResponse is the health endpoint body.
type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Extractor string `json:"extractor"`
}

// Check handles GET /health. A failing database yields 503; an unready extractor only degrades.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Database: "disabled", Extractor: "disabled"}
	status := http.StatusOK

	if h.db != nil {
		resp.Database = "ok"
		if err := h.db.Ping(r.Context()); err != nil {
			logging.From(r.Context()).Warn("Health check: database unreachable", "error", err)
			resp.Database = "unavailable"
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	if h.extractor != nil {
		resp.Extractor = "ready"
		if !h.extractor.Ready() {
			resp.Extractor = "not_ready"
			if resp.Status == "ok" {
				resp.Status = "degraded"
			}
		}
	}

	respondJSON(w, status, resp)
}
