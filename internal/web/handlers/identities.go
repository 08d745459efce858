package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/enrollment"
	"github.com/kozaktomas/face-attendance/internal/logging"
)

// IdentitiesHandler handles identity management and face enrollment.
type IdentitiesHandler struct {
	enrollment *enrollment.Service
}

// NewIdentitiesHandler creates a new identities handler
func NewIdentitiesHandler(svc *enrollment.Service) *IdentitiesHandler {
	return &IdentitiesHandler{enrollment: svc}
}

// IdentityResponse is the JSON form of an identity.
type IdentityResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	EmployeeID string    `json:"employee_id,omitempty"`
	Department string    `json:"department,omitempty"`
	Samples    *int      `json:"samples,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func newIdentityResponse(i *database.Identity) IdentityResponse {
	return IdentityResponse{
		ID:         i.ID,
		Name:       i.Name,
		Email:      i.Email,
		EmployeeID: i.EmployeeID,
		Department: i.Department,
		CreatedAt:  i.CreatedAt,
		UpdatedAt:  i.UpdatedAt,
	}
}

// List handles GET /identities, optionally filtered by ?name=.
func (h *IdentitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		list []database.Identity
		err  error
	)
	if name := r.URL.Query().Get("name"); name != "" {
		logging.From(r.Context()).Debug("Finding identity by name", "name", sanitizeForLog(name))
		list, err = h.enrollment.FindIdentityByName(r.Context(), name)
	} else {
		list, err = h.enrollment.ListIdentities(r.Context())
	}
	if err != nil {
		respondServiceError(r.Context(), w, err)
		return
	}

	resp := make([]IdentityResponse, 0, len(list))
	for i := range list {
		resp = append(resp, newIdentityResponse(&list[i]))
	}
	respondJSON(w, http.StatusOK, resp)
}

// CreateIdentityRequest is the body of POST /identities.
type CreateIdentityRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	EmployeeID string `json:"employee_id,omitempty"`
	Department string `json:"department,omitempty"`
}

// Create handles POST /identities.
func (h *IdentitiesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateIdentityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	identity := &database.Identity{
		Name:       req.Name,
		Email:      req.Email,
		EmployeeID: req.EmployeeID,
		Department: req.Department,
	}
	if err := h.enrollment.CreateIdentity(r.Context(), identity); err != nil {
		respondServiceError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusCreated, newIdentityResponse(identity))
}

// Get handles GET /identities/{id}, including the number of enrolled samples.
func (h *IdentitiesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	identity, err := h.enrollment.GetIdentity(r.Context(), id)
	if err != nil {
		respondServiceError(r.Context(), w, err)
		return
	}
	samples, err := h.enrollment.Samples(r.Context(), id)
	if err != nil {
		respondServiceError(r.Context(), w, err)
		return
	}

	resp := newIdentityResponse(identity)
	count := len(samples)
	resp.Samples = &count
	respondJSON(w, http.StatusOK, resp)
}

// UpdateIdentityRequest is the body of PUT /identities/{id}. Omitted fields are unchanged.
type UpdateIdentityRequest struct {
	Name       *string `json:"name,omitempty"`
	Email      *string `json:"email,omitempty"`
	EmployeeID *string `json:"employee_id,omitempty"`
	Department *string `json:"department,omitempty"`
}

// Update handles PUT /identities/{id}.
func (h *IdentitiesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateIdentityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	identity, err := h.enrollment.UpdateProfile(r.Context(), chi.URLParam(r, "id"), database.IdentityUpdate{
		Name:       req.Name,
		Email:      req.Email,
		EmployeeID: req.EmployeeID,
		Department: req.Department,
	})
	if err != nil {
		respondServiceError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, newIdentityResponse(identity))
}

// CollisionResponse names another identity the new sample is close to.
type CollisionResponse struct {
	IdentityID string  `json:"identity_id"`
	Name       string  `json:"name"`
	Distance   float64 `json:"distance"`
}

// AddFaceResponse is the body returned after a sample is stored.
type AddFaceResponse struct {
	SampleID   int64               `json:"sample_id"`
	Samples    int                 `json:"samples"`
	Dim        int                 `json:"dim"`
	Model      string              `json:"model"`
	Collisions []CollisionResponse `json:"collisions"`
}

// AddFace handles POST /identities/{id}/faces. Collisions are warnings; the sample is stored anyway.
func (h *IdentitiesHandler) AddFace(w http.ResponseWriter, r *http.Request) {
	var req faceInput
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	image, embedding, err := req.resolve()
	if err != nil {
		if err == errNoFaceInput {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondServiceError(r.Context(), w, err)
		return
	}

	id := chi.URLParam(r, "id")
	var result *enrollment.RegisterResult
	if embedding != nil {
		result, err = h.enrollment.Register(r.Context(), id, embedding)
	} else {
		result, err = h.enrollment.RegisterImage(r.Context(), id, image)
	}
	if err != nil {
		respondServiceError(r.Context(), w, err)
		return
	}

	resp := AddFaceResponse{
		SampleID:   result.Sample.ID,
		Samples:    result.SampleCount,
		Dim:        result.Sample.Dim,
		Model:      result.Sample.Model,
		Collisions: make([]CollisionResponse, 0, len(result.Collisions)),
	}
	for _, c := range result.Collisions {
		resp.Collisions = append(resp.Collisions, CollisionResponse{
			IdentityID: c.IdentityID,
			Name:       c.Name,
			Distance:   c.Distance,
		})
	}
	respondJSON(w, http.StatusCreated, resp)
}

// DeleteFaces handles DELETE /identities/{id}/faces.
func (h *IdentitiesHandler) DeleteFaces(w http.ResponseWriter, r *http.Request) {
	n, err := h.enrollment.DeleteSamples(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
