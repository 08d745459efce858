package handlers

import (
	"net/http"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

// AttendanceHandler handles check-in, check-out and attendance reports.
type AttendanceHandler struct {
	recognizer *recognition.Service
	attendance *attendance.Service
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(recognizer *recognition.Service, att *attendance.Service) *AttendanceHandler {
	return &AttendanceHandler{recognizer: recognizer, attendance: att}
}

// RecordResponse is the JSON form of an attendance record.
type RecordResponse struct {
	ID         string `json:"id"`
	IdentityID string `json:"identity_id"`
	Name       string `json:"name"`
	Date       string `json:"date"`
	TimeIn     string `json:"time_in"`
	TimeOut    string `json:"time_out,omitempty"`
	Status     string `json:"status"`
	Location   string `json:"location"`
	Notes      string `json:"notes,omitempty"`
}

func newRecordResponse(r *database.AttendanceRecord, policy attendance.Policy) RecordResponse {
	resp := RecordResponse{
		ID:         r.ID,
		IdentityID: r.IdentityID,
		Name:       r.IdentityName,
		Date:       r.Date,
		TimeIn:     policy.Clock(r.TimeIn),
		Status:     string(r.Status),
		Location:   r.Location,
		Notes:      r.Notes,
	}
	if r.TimeOut != nil {
		resp.TimeOut = policy.Clock(*r.TimeOut)
	}
	return resp
}

func (h *AttendanceHandler) records(records []database.AttendanceRecord) []RecordResponse {
	policy := h.attendance.Policy()
	resp := make([]RecordResponse, 0, len(records))
	for i := range records {
		resp = append(resp, newRecordResponse(&records[i], policy))
	}
	return resp
}

// CheckInRequest is the body of POST /attendance/check-in.
type CheckInRequest struct {
	faceInput
	Location string `json:"location,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// CheckInResponse reports the match and the (possibly pre-existing) record.
type CheckInResponse struct {
	Match   MatchResponse  `json:"match"`
	Record  RecordResponse `json:"record"`
	Created bool           `json:"created"`
}

// CheckIn handles POST /attendance/check-in. It answers 201 for a new record and 200 when
// the identity had already checked in today.
func (h *AttendanceHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req CheckInRequest
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

	var result *recognition.CheckInResult
	if embedding != nil {
		result, err = h.recognizer.CheckIn(r.Context(), embedding, req.Location, req.Notes)
	} else {
		result, err = h.recognizer.CheckInImage(r.Context(), image, req.Location, req.Notes)
	}
	if err != nil {
		respondServiceError(r.Context(), w, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	respondJSON(w, status, CheckInResponse{
		Match:   newMatchResponse(result.Match, h.recognizer.Threshold()),
		Record:  newRecordResponse(result.Record, h.attendance.Policy()),
		Created: result.Created,
	})
}

// CheckOutRequest is the body of POST /attendance/check-out.
type CheckOutRequest struct {
	IdentityID string `json:"identity_id"`
}

// CheckOut handles POST /attendance/check-out.
func (h *AttendanceHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	var req CheckOutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if strings.TrimSpace(req.IdentityID) == "" {
		respondError(w, http.StatusBadRequest, "identity_id is required")
		return
	}

	record, err := h.attendance.CheckOut(r.Context(), req.IdentityID)
	if err != nil {
		respondServiceError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, newRecordResponse(record, h.attendance.Policy()))
}

// List handles GET /attendance with optional from, to, identity_id, status and limit filters.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := queryInt(r, "limit", constants.DefaultHandlerPageSize)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if limit == 0 {
		limit = constants.DefaultHandlerPageSize
	}
	limit = min(limit, constants.MaxHandlerPageSize)

	records, err := h.attendance.List(r.Context(), database.AttendanceFilter{
		From:       q.Get("from"),
		To:         q.Get("to"),
		IdentityID: q.Get("identity_id"),
		Status:     database.AttendanceStatus(q.Get("status")),
		Limit:      limit,
	})
	if err != nil {
		respondServiceError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.records(records))
}

// Recent handles GET /attendance/recent.
func (h *AttendanceHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", constants.DefaultRecentLimit)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit = min(limit, constants.MaxHandlerPageSize)

	records, err := h.attendance.Recent(r.Context(), limit)
	if err != nil {
		respondServiceError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.records(records))
}

// Today handles GET /attendance/today.
func (h *AttendanceHandler) Today(w http.ResponseWriter, r *http.Request) {
	records, err := h.attendance.Today(r.Context())
	if err != nil {
		respondServiceError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.records(records))
}

// Summary handles GET /attendance/summary?date=YYYY-MM-DD (today when omitted).
func (h *AttendanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.attendance.Summary(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		respondServiceError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
