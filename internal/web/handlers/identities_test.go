package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

func TestIdentitiesHandler_CreateAndGet(t *testing.T) {
	env := newTestEnv(t)
	handler := NewIdentitiesHandler(env.enrollment)

	recorder := httptest.NewRecorder()
	handler.Create(recorder, jsonRequest(t, http.MethodPost, "/api/v1/identities", CreateIdentityRequest{
		Name:       "  Jiří Novák ",
		EmployeeID: "E-042",
	}))

	assertStatusCode(t, recorder, http.StatusCreated)
	var created IdentityResponse
	parseJSONResponse(t, recorder, &created)
	if created.ID == "" || created.Name != "Jiří Novák" || created.EmployeeID != "E-042" {
		t.Fatalf("unexpected identity %+v", created)
	}

	recorder = httptest.NewRecorder()
	req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/api/v1/identities/"+created.ID, nil), map[string]string{"id": created.ID})
	handler.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var got IdentityResponse
	parseJSONResponse(t, recorder, &got)
	if got.Samples == nil || *got.Samples != 0 {
		t.Errorf("expected samples count 0, got %v", got.Samples)
	}
}

func TestIdentitiesHandler_Create_BlankName(t *testing.T) {
	env := newTestEnv(t)
	handler := NewIdentitiesHandler(env.enrollment)

	recorder := httptest.NewRecorder()
	handler.Create(recorder, jsonRequest(t, http.MethodPost, "/api/v1/identities", CreateIdentityRequest{Name: "   "}))

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "name is required")
}

func TestIdentitiesHandler_Get_NotFound(t *testing.T) {
	env := newTestEnv(t)
	handler := NewIdentitiesHandler(env.enrollment)

	recorder := httptest.NewRecorder()
	req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/api/v1/identities/ghost", nil), map[string]string{"id": "ghost"})
	handler.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder, "identity not found")
}

func TestIdentitiesHandler_List(t *testing.T) {
	env := newTestEnv(t)
	handler := NewIdentitiesHandler(env.enrollment)

	recorder := httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/identities", nil))
	assertStatusCode(t, recorder, http.StatusOK)
	var all []IdentityResponse
	parseJSONResponse(t, recorder, &all)
	if len(all) != 2 {
		t.Errorf("expected 2 identities, got %d", len(all))
	}

	recorder = httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/identities?name=ALICE", nil))
	assertStatusCode(t, recorder, http.StatusOK)
	var found []IdentityResponse
	parseJSONResponse(t, recorder, &found)
	if len(found) != 1 || found[0].ID != "alice" {
		t.Errorf("expected alice, got %+v", found)
	}
}

func TestIdentitiesHandler_Update(t *testing.T) {
	env := newTestEnv(t)
	handler := NewIdentitiesHandler(env.enrollment)

	dept := "Engineering"
	recorder := httptest.NewRecorder()
	req := jsonRequest(t, http.MethodPut, "/api/v1/identities/bob", UpdateIdentityRequest{Department: &dept})
	handler.Update(recorder, requestWithChiParams(req, map[string]string{"id": "bob"}))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp IdentityResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Name != "Bob" || resp.Department != "Engineering" {
		t.Errorf("unexpected identity %+v", resp)
	}

	blank := ""
	recorder = httptest.NewRecorder()
	req = jsonRequest(t, http.MethodPut, "/api/v1/identities/bob", UpdateIdentityRequest{Name: &blank})
	handler.Update(recorder, requestWithChiParams(req, map[string]string{"id": "bob"}))
	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestIdentitiesHandler_AddFace(t *testing.T) {
	env := newTestEnv(t)
	handler := NewIdentitiesHandler(env.enrollment)

	recorder := httptest.NewRecorder()
	req := jsonRequest(t, http.MethodPost, "/api/v1/identities/alice/faces", map[string]any{"embedding": []float64{0.1, 0.1, 0}})
	handler.AddFace(recorder, requestWithChiParams(req, map[string]string{"id": "alice"}))

	assertStatusCode(t, recorder, http.StatusCreated)
	var resp AddFaceResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Samples != 2 || resp.Dim != 3 || resp.Model != "face-api" || len(resp.Collisions) != 0 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestIdentitiesHandler_AddFace_Collision(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.embedding = facematch.Embedding{1, 1, 0.95}
	handler := NewIdentitiesHandler(env.enrollment)

	// Alice's new sample lands next to Bob: stored, but reported.
	recorder := httptest.NewRecorder()
	req := jsonRequest(t, http.MethodPost, "/api/v1/identities/alice/faces", map[string]string{"image": "AQID"})
	handler.AddFace(recorder, requestWithChiParams(req, map[string]string{"id": "alice"}))

	assertStatusCode(t, recorder, http.StatusCreated)
	var resp AddFaceResponse
	parseJSONResponse(t, recorder, &resp)
	if len(resp.Collisions) != 1 || resp.Collisions[0].IdentityID != "bob" {
		t.Errorf("expected a collision with bob, got %+v", resp.Collisions)
	}
}

func TestIdentitiesHandler_AddFace_Errors(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		body       any
		extractErr error
		wantStatus int
	}{
		{"unknown identity", "ghost", map[string]any{"embedding": []float64{0, 0, 1}}, nil, http.StatusNotFound},
		{"wrong dimension", "alice", map[string]any{"embedding": []float64{0, 1}}, nil, http.StatusBadRequest},
		{"no input", "alice", map[string]any{}, nil, http.StatusBadRequest},
		{"no face in image", "alice", map[string]string{"image": "AQID"}, extractor.ErrFaceNotFound, http.StatusUnprocessableEntity},
		{"extractor failure", "alice", map[string]string{"image": "AQID"}, errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.extractor.err = tt.extractErr
			handler := NewIdentitiesHandler(env.enrollment)

			recorder := httptest.NewRecorder()
			req := jsonRequest(t, http.MethodPost, "/api/v1/identities/"+tt.id+"/faces", tt.body)
			handler.AddFace(recorder, requestWithChiParams(req, map[string]string{"id": tt.id}))

			assertStatusCode(t, recorder, tt.wantStatus)
			if len(env.samples.AppendCalls) != 0 {
				t.Errorf("expected no stored sample, got %d", len(env.samples.AppendCalls))
			}
		})
	}
}

func TestIdentitiesHandler_DeleteFaces(t *testing.T) {
	env := newTestEnv(t)
	handler := NewIdentitiesHandler(env.enrollment)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/identities/bob/faces", nil)
	handler.DeleteFaces(recorder, requestWithChiParams(req, map[string]string{"id": "bob"}))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp map[string]int64
	parseJSONResponse(t, recorder, &resp)
	if resp["deleted"] != 1 {
		t.Errorf("expected 1 deleted sample, got %d", resp["deleted"])
	}

	refs, _ := env.samples.FetchAll(t.Context())
	for _, r := range refs {
		if r.IdentityID == "bob" {
			t.Error("bob still has samples")
		}
	}
}
