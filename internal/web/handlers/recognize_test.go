package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

func TestRecognizeHandler_Embedding(t *testing.T) {
	tests := []struct {
		name        string
		embedding   []float64
		wantMatched bool
		wantID      string
		wantReason  string
	}{
		{"exact alice", []float64{0, 0, 0}, true, "alice", "matched"},
		{"near bob", []float64{0.9, 1, 1}, true, "bob", "matched"},
		{"stranger", []float64{5, 5, 5}, false, "", "above_threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			handler := NewRecognizeHandler(env.recognition)

			recorder := httptest.NewRecorder()
			handler.Recognize(recorder, jsonRequest(t, http.MethodPost, "/api/v1/recognize", map[string]any{
				"embedding": tt.embedding,
			}))

			assertStatusCode(t, recorder, http.StatusOK)
			var resp MatchResponse
			parseJSONResponse(t, recorder, &resp)
			if resp.Matched != tt.wantMatched || resp.IdentityID != tt.wantID || resp.Reason != tt.wantReason {
				t.Errorf("unexpected response %+v", resp)
			}
			if resp.Threshold != 0.6 {
				t.Errorf("expected threshold 0.6, got %v", resp.Threshold)
			}
		})
	}
}

func TestRecognizeHandler_Image(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.embedding = facematch.Embedding{1, 1, 1.1}
	handler := NewRecognizeHandler(env.recognition)

	recorder := httptest.NewRecorder()
	handler.Recognize(recorder, jsonRequest(t, http.MethodPost, "/api/v1/recognize", map[string]string{
		"image": "data:image/jpeg;base64,/9j/4AAQ",
	}))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp MatchResponse
	parseJSONResponse(t, recorder, &resp)
	if !resp.Matched || resp.Name != "Bob" {
		t.Errorf("expected Bob, got %+v", resp)
	}
}

func TestRecognizeHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		extractErr error
		fetchErr   error
		wantStatus int
		wantError  string
	}{
		{"malformed JSON", "{", nil, nil, http.StatusBadRequest, errInvalidRequestBody},
		{"empty body", "{}", nil, nil, http.StatusBadRequest, "image or embedding is required"},
		{"wrong dimension", `{"embedding":[1,2]}`, nil, nil, http.StatusBadRequest, "embedding dimension mismatch"},
		{"bad data URL", `{"image":"data:image/png;base64,@@@"}`, nil, nil, http.StatusBadRequest, "invalid image"},
		{"no face", `{"image":"AQID"}`, extractor.ErrFaceNotFound, nil, http.StatusUnprocessableEntity, "no face detected"},
		{"extractor down", `{"image":"AQID"}`, extractor.ErrUnavailable, nil, http.StatusServiceUnavailable, "embedding server unavailable"},
		{"store down", `{"embedding":[0,0,0]}`, nil, errors.New("connection refused"), http.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.extractor.err = tt.extractErr
			env.samples.FetchAllError = tt.fetchErr
			handler := NewRecognizeHandler(env.recognition)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/recognize", strings.NewReader(tt.body))
			recorder := httptest.NewRecorder()
			handler.Recognize(recorder, req)

			assertStatusCode(t, recorder, tt.wantStatus)
			assertJSONError(t, recorder, tt.wantError)
		})
	}
}
