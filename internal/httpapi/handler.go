// Package httpapi implements the HTTP surface of the tracker service.
//
// All routes expect an x-user-id header forwarded by the Gateway.
//
// Routes:
//
//	GET    /applications                   → list user's applications (?status= filter)
//	POST   /applications                   → create an application
//	GET    /applications/{id}              → fetch one application
//	DELETE /applications/{id}              → delete an application
//	PATCH  /applications/{id}/dates        → update milestone dates, recalculating status
//	POST   /applications/{id}/events       → append a timeline event
//	GET    /applications/{id}/timeline     → events in chronological order
//	POST   /applications/{id}/follow-up    → set the follow-up reminder
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"apptrack/tracker-service/internal/application"
	"apptrack/tracker-service/internal/metrics"
	"apptrack/tracker-service/internal/timeline"
)

// Handler holds shared dependencies.
type Handler struct {
	svc *application.Service
}

// NewHandler returns a configured Handler.
func NewHandler(svc *application.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts all tracker-service routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/applications", h.handleApplications)
	mux.HandleFunc("/applications/", h.handleApplicationSubpath)
}

// ─── Route dispatch ───────────────────────────────────────────────────────────

// handleApplications handles GET/POST /applications
func (h *Handler) handleApplications(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listApplications(w, r)
	case http.MethodPost:
		h.createApplication(w, r)
	default:
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleApplicationSubpath handles /applications/{id} and /applications/{id}/{action}
func (h *Handler) handleApplicationSubpath(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch len(parts) {
	case 2: // /applications/{id}
		appID := parts[1]
		switch r.Method {
		case http.MethodGet:
			h.getApplication(w, r, appID)
		case http.MethodDelete:
			h.deleteApplication(w, r, appID)
		default:
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	case 3: // /applications/{id}/{action}
		appID, action := parts[1], parts[2]
		switch {
		case action == "dates" && r.Method == http.MethodPatch:
			h.updateDates(w, r, appID)
		case action == "events" && r.Method == http.MethodPost:
			h.appendEvent(w, r, appID)
		case action == "timeline" && r.Method == http.MethodGet:
			h.getTimeline(w, r, appID)
		case action == "follow-up" && r.Method == http.MethodPost:
			h.setFollowUp(w, r, appID)
		default:
			jsonError(w, fmt.Sprintf("unknown action %q", action), http.StatusNotFound)
		}
	default:
		jsonError(w, "invalid path", http.StatusNotFound)
	}
}

// ─── Individual handlers ──────────────────────────────────────────────────────

func (h *Handler) listApplications(w http.ResponseWriter, r *http.Request) {
	defer observe("list")()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	apps, err := h.svc.List(r.Context(), userID, r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, err)
		return
	}
	jsonOK(w, http.StatusOK, apps)
}

func (h *Handler) createApplication(w http.ResponseWriter, r *http.Request) {
	defer observe("create")()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var in application.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	in.UserID = userID

	app, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonOK(w, http.StatusCreated, app)
}

func (h *Handler) getApplication(w http.ResponseWriter, r *http.Request, appID string) {
	defer observe("get")()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	app, err := h.svc.Get(r.Context(), userID, appID)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonOK(w, http.StatusOK, app)
}

func (h *Handler) deleteApplication(w http.ResponseWriter, r *http.Request, appID string) {
	defer observe("delete")()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), userID, appID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) updateDates(w http.ResponseWriter, r *http.Request, appID string) {
	defer observe("update_dates")()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var updates map[string]string
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	app, err := h.svc.UpdateMilestoneDates(r.Context(), userID, appID, updates)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonOK(w, http.StatusOK, app)
}

func (h *Handler) appendEvent(w http.ResponseWriter, r *http.Request, appID string) {
	defer observe("append_event")()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var e timeline.Event
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	app, err := h.svc.AppendEvent(r.Context(), userID, appID, e)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonOK(w, http.StatusOK, app)
}

func (h *Handler) getTimeline(w http.ResponseWriter, r *http.Request, appID string) {
	defer observe("timeline")()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	events, err := h.svc.Timeline(r.Context(), userID, appID)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonOK(w, http.StatusOK, events)
}

func (h *Handler) setFollowUp(w http.ResponseWriter, r *http.Request, appID string) {
	defer observe("follow_up")()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var body struct {
		RemindAt time.Time `json:"remindAt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RemindAt.IsZero() {
		jsonError(w, "body must contain remindAt (RFC 3339)", http.StatusBadRequest)
		return
	}

	app, err := h.svc.SetFollowUp(r.Context(), userID, appID, body.RemindAt)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonOK(w, http.StatusOK, app)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("x-user-id")
	if userID == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return "", false
	}
	return userID, true
}

// writeError maps service errors onto HTTP statuses. A not-found and a
// not-owned record produce the same response.
func writeError(w http.ResponseWriter, err error) {
	var verr *application.ValidationError
	switch {
	case errors.As(err, &verr):
		jsonError(w, verr.Msg, http.StatusBadRequest)
	case errors.Is(err, application.ErrNotFound):
		jsonError(w, "application not found", http.StatusNotFound)
	default:
		slog.Error("request failed", "err", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func observe(route string) func() {
	start := time.Now()
	return func() {
		metrics.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func jsonOK(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
