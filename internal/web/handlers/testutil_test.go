package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/enrollment"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

// fixedNow is 08:15 UTC on a Monday, before the default cutoff in UTC.
var fixedNow = time.Date(2024, 3, 4, 8, 15, 0, 0, time.UTC)

// stubExtractor returns a fixed embedding or error for any image.
type stubExtractor struct {
	embedding facematch.Embedding
	err       error
}

func (s *stubExtractor) Extract(ctx context.Context, image []byte) (facematch.Embedding, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.embedding, nil
}

// testEnv wires real services on top of the in-memory stores.
type testEnv struct {
	identities *mock.MockIdentityStore
	samples    *mock.MockFaceSampleStore
	recorder   *mock.MockAttendanceRecorder
	extractor  *stubExtractor

	attendance  *attendance.Service
	recognition *recognition.Service
	enrollment  *enrollment.Service
}

// newTestEnv creates services with alice and bob enrolled with one 3-dimensional sample each.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		identities: mock.NewMockIdentityStore(),
		samples:    mock.NewMockFaceSampleStore(),
		recorder:   mock.NewMockAttendanceRecorder(),
		extractor:  &stubExtractor{},
	}

	for _, p := range []struct {
		id, name string
		emb      facematch.Embedding
	}{
		{"alice", "Alice", facematch.Embedding{0, 0, 0}},
		{"bob", "Bob", facematch.Embedding{1, 1, 1}},
	} {
		env.identities.AddIdentity(database.Identity{ID: p.id, Name: p.name})
		env.samples.AddReference(p.id, p.name, p.emb)
		env.recorder.SetName(p.id, p.name)
	}

	policy := attendance.DefaultPolicy()
	policy.Location = time.UTC
	env.attendance = attendance.NewService(env.recorder, env.identities, policy)
	env.attendance.SetClock(func() time.Time { return fixedNow })
	env.recognition = recognition.NewService(env.samples, env.attendance, env.extractor, 0.6)
	env.enrollment = enrollment.NewService(env.identities, env.samples, env.extractor, enrollment.Options{
		Dim:       3,
		Model:     "face-api",
		Threshold: 0.6,
	})
	return env
}

var _ extractor.Extractor = (*stubExtractor)(nil)

// jsonRequest creates a request with a JSON-encoded body
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
