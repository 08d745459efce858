package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

// RecognizeHandler identifies faces without recording attendance (kiosk login flow).
type RecognizeHandler struct {
	recognizer *recognition.Service
}

// NewRecognizeHandler creates a new recognize handler
func NewRecognizeHandler(recognizer *recognition.Service) *RecognizeHandler {
	return &RecognizeHandler{recognizer: recognizer}
}

// MatchResponse is the JSON form of a match decision.
type MatchResponse struct {
	Matched    bool    `json:"matched"`
	IdentityID string  `json:"identity_id,omitempty"`
	Name       string  `json:"name,omitempty"`
	Distance   float64 `json:"distance"`
	Reason     string  `json:"reason"`
	Threshold  float64 `json:"threshold"`
}

func newMatchResponse(result facematch.Result, threshold float64) MatchResponse {
	return MatchResponse{
		Matched:    result.Matched,
		IdentityID: result.IdentityID,
		Name:       result.Name,
		Distance:   result.Distance,
		Reason:     string(result.Reason),
		Threshold:  threshold,
	}
}

// Recognize handles POST /recognize. An unmatched face is a 200 with matched=false.
func (h *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
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

	var result facematch.Result
	if embedding != nil {
		result, err = h.recognizer.Identify(r.Context(), embedding)
	} else {
		result, err = h.recognizer.IdentifyImage(r.Context(), image)
	}
	if err != nil {
		respondServiceError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusOK, newMatchResponse(result, h.recognizer.Threshold()))
}
