package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/goerr/v2"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/enrollment"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

func TestRespondJSON(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondJSON(recorder, http.StatusCreated, map[string]int{"count": 2})

	assertStatusCode(t, recorder, http.StatusCreated)
	assertContentType(t, recorder, "application/json")
	if recorder.Body.String() != "{\"count\":2}\n" {
		t.Errorf("unexpected body %q", recorder.Body.String())
	}
}

func TestRespondJSON_NilData(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondJSON(recorder, http.StatusNoContent, nil)

	if recorder.Body.Len() != 0 {
		t.Errorf("expected empty body for nil data, got '%s'", recorder.Body.String())
	}
}

func TestRespondError(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondError(recorder, http.StatusBadRequest, "bad input")

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "bad input")
}

func TestSanitizeForLog(t *testing.T) {
	if got := sanitizeForLog("Alice\r\nINFO forged"); got != "AliceINFO forged" {
		t.Errorf("sanitizeForLog() = %q", got)
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid image", fmt.Errorf("%w: truncated", extractor.ErrInvalidImage), http.StatusBadRequest},
		{"no face", goerr.Wrap(extractor.ErrFaceNotFound, "extract"), http.StatusUnprocessableEntity},
		{"extractor down", extractor.ErrUnavailable, http.StatusServiceUnavailable},
		{"extractor not ready", extractor.ErrNotReady, http.StatusServiceUnavailable},
		{"store down", goerr.Wrap(database.ErrStoreUnavailable, "fetch"), http.StatusServiceUnavailable},
		{"no match", goerr.Wrap(recognition.ErrNoMatch, "check-in"), http.StatusNotFound},
		{"dimension mismatch", facematch.ErrDimensionMismatch, http.StatusBadRequest},
		{"invalid embedding", facematch.ErrInvalidEmbedding, http.StatusBadRequest},
		{"invalid threshold", facematch.ErrInvalidThreshold, http.StatusInternalServerError},
		{"unknown identity", database.ErrIdentityNotFound, http.StatusNotFound},
		{"missing record", database.ErrNotFound, http.StatusNotFound},
		{"blank name", enrollment.ErrInvalidName, http.StatusBadRequest},
		{"bad filter", attendance.ErrInvalidFilter, http.StatusBadRequest},
		{"not checked in", attendance.ErrNotCheckedIn, http.StatusConflict},
		{"checked out twice", attendance.ErrAlreadyCheckedOut, http.StatusConflict},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := errorStatus(tt.err)
			if got != tt.want {
				t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestRespondServiceError_HidesInternalDetails(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondServiceError(context.Background(), recorder, errors.New("pq: password authentication failed"))

	assertStatusCode(t, recorder, http.StatusInternalServerError)
	assertJSONError(t, recorder, "internal error")
}

func TestFaceInputResolve(t *testing.T) {
	t.Run("embedding wins", func(t *testing.T) {
		img, emb, err := faceInput{Image: "ignored", Embedding: []float64{1, 2}}.resolve()
		if err != nil || img != nil || len(emb) != 2 {
			t.Errorf("unexpected result img=%v emb=%v err=%v", img, emb, err)
		}
	})

	t.Run("data URL", func(t *testing.T) {
		img, emb, err := faceInput{Image: "data:image/jpeg;base64,AQID"}.resolve()
		if err != nil || emb != nil || len(img) != 3 {
			t.Errorf("unexpected result img=%v emb=%v err=%v", img, emb, err)
		}
	})

	t.Run("nothing", func(t *testing.T) {
		if _, _, err := (faceInput{}).resolve(); !errors.Is(err, errNoFaceInput) {
			t.Errorf("expected errNoFaceInput, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, _, err := (faceInput{Image: "data:text/plain;base64,AQID"}).resolve(); !errors.Is(err, extractor.ErrInvalidImage) {
			t.Errorf("expected ErrInvalidImage, got %v", err)
		}
	})
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(ctx context.Context) error { return s.err }

type stubReadiness bool

func (s stubReadiness) Ready() bool { return bool(s) }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		db         Pinger
		ext        Readiness
		wantStatus int
		want       HealthResponse
	}{
		{"no dependencies", nil, nil, http.StatusOK, HealthResponse{"ok", "disabled", "disabled"}},
		{"all healthy", stubPinger{}, stubReadiness(true), http.StatusOK, HealthResponse{"ok", "ok", "ready"}},
		{"extractor warming up", stubPinger{}, stubReadiness(false), http.StatusOK, HealthResponse{"degraded", "ok", "not_ready"}},
		{"database down", stubPinger{err: errors.New("refused")}, stubReadiness(true), http.StatusServiceUnavailable, HealthResponse{"unavailable", "unavailable", "ready"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			NewHealthHandler(tt.db, tt.ext).Check(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

			assertStatusCode(t, recorder, tt.wantStatus)
			var got HealthResponse
			parseJSONResponse(t, recorder, &got)
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
