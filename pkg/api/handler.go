package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/petermalak/khoras-attendance-thanwy/pkg/iftikad"
	"github.com/petermalak/khoras-attendance-thanwy/pkg/roster"
	"github.com/petermalak/khoras-attendance-thanwy/pkg/sheets"
)

type Handler struct {
	scores   ScoreService
	outreach OutreachService
	validate *validator.Validate
}

func NewHandler(scores ScoreService, outreach OutreachService) *Handler {
	return &Handler{
		scores:   scores,
		outreach: outreach,
		validate: newValidator(),
	}
}

func (h *Handler) getCodes(w http.ResponseWriter, r *http.Request) {
	entries, err := h.scores.Entries(r.Context())
	if errors.Is(err, roster.ErrNoData) {
		sendJSON(w, http.StatusNotFound, map[string]string{"message": "No data found"})
		return
	}
	if err != nil {
		sendError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, entries)
}

func (h *Handler) getScores(w http.ResponseWriter, r *http.Request) {
	entries, err := h.scores.Entries(r.Context())
	if errors.Is(err, roster.ErrNoData) {
		entries = []roster.Entry{}
	} else if err != nil {
		sendError(w, err)
		return
	}
	roster.SortByScore(entries)
	sendJSON(w, http.StatusOK, entries)
}

func (h *Handler) postSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !h.decode(w, r, &req) {
		return
	}
	updates, rejected := req.split()
	res := h.scores.ApplyBatch(r.Context(), updates)
	sendJSON(w, http.StatusOK, submitResponse{
		Success: true,
		Results: res.Results,
		Errors:  append(rejected, res.Errors...),
	})
}

func (h *Handler) getIftikadList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("allWeeks") != "" {
		weeks, err := h.outreach.Weeks(r.Context())
		if err != nil {
			sendError(w, err)
			return
		}
		sendJSON(w, http.StatusOK, map[string]interface{}{"weeks": weeks})
		return
	}
	absentees, err := h.outreach.AbsenteesForWeek(r.Context(), q.Get("week"))
	if err != nil {
		sendError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{"absentees": absentees})
}

func (h *Handler) getIftikadHistory(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if strings.TrimSpace(name) == "" {
		sendJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing name"})
		return
	}
	history, err := h.outreach.AbsenceHistory(r.Context(), name)
	if err != nil {
		sendError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{"history": history})
}

func (h *Handler) postIftikadCall(w http.ResponseWriter, r *http.Request) {
	var req callRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.outreach.MarkCalled(r.Context(), req.Name, req.Week); err != nil {
		sendError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) postAttendance(w http.ResponseWriter, r *http.Request) {
	var req attendanceRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.outreach.MarkAttendance(r.Context(), req.Name, req.Date); err != nil {
		sendError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func getHealth(w http.ResponseWriter, r *http.Request) {
	sendResponse(w, http.StatusOK, []byte(`{"status":"ok"}`))
}

// decode reads and validates a JSON body, answering 400 itself on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		sendJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		sendJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "invalid request",
			"fields": fieldErrors(err),
		})
		return false
	}
	return true
}

// errorStatus maps access-layer errors onto HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, sheets.ErrColumnNotFound),
		errors.Is(err, iftikad.ErrWeekNotFound),
		errors.Is(err, iftikad.ErrNameNotFound),
		errors.Is(err, roster.ErrCodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, sheets.ErrRemoteUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func sendError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("Request failed: %v", err)
	}
	sendJSON(w, status, map[string]string{"error": err.Error()})
}

func sendJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Errorf("Failed to encode response: %v", err)
		sendResponse(w, http.StatusInternalServerError, []byte(`{"error":"internal error"}`))
		return
	}
	sendResponse(w, status, body)
}

func sendResponse(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
