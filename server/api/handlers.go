// Package api implements the REST handlers for the task tracker.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/GoCodeAlone/taskdash/notify"
	"github.com/GoCodeAlone/taskdash/query"
	"github.com/GoCodeAlone/taskdash/storage"
	"github.com/GoCodeAlone/taskdash/task"
	"github.com/GoCodeAlone/taskdash/timer"
	"github.com/GoCodeAlone/taskdash/tracker"
	"github.com/GoCodeAlone/taskdash/workflow"
)

// Handlers bundles all REST API handler dependencies.
type Handlers struct {
	Tracker  *tracker.Tracker
	Notifier notify.Notifier
	Logger   *slog.Logger
	Version  string
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/tasks", h.listTasks)
	mux.HandleFunc("POST /api/tasks", h.createTask)
	mux.HandleFunc("GET /api/tasks/{id}", h.getTask)
	mux.HandleFunc("PUT /api/tasks/{id}", h.updateTask)
	mux.HandleFunc("DELETE /api/tasks/{id}", h.deleteTask)

	mux.HandleFunc("POST /api/tasks/{id}/request-approval", h.requestApproval)
	mux.HandleFunc("POST /api/tasks/{id}/approve", h.approveTask)
	mux.HandleFunc("POST /api/tasks/{id}/reopen", h.reopenTask)

	mux.HandleFunc("GET /api/tasks/{id}/time", h.getElapsed)
	mux.HandleFunc("POST /api/tasks/{id}/timer/start", h.startTimer)
	mux.HandleFunc("POST /api/tasks/{id}/timer/stop", h.stopTimer)

	mux.HandleFunc("GET /api/analytics", h.analytics)
	mux.HandleFunc("GET /api/analytics/summary", h.summary)

	mux.HandleFunc("GET /api/events", h.listEvents)

	mux.HandleFunc("GET /api/status", h.status)
	mux.HandleFunc("GET /api/version", h.version)
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeErrorFor maps an engine error kind to an HTTP status.
func writeErrorFor(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, task.ErrNotFound):
		writeError(w, http.StatusNotFound, "task not found")
	case errors.Is(err, task.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, workflow.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, storage.ErrPersistence):
		writeError(w, http.StatusInternalServerError, "persistence failure")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// capabilities resolves the acting session's capability set. Every guarded
// operation receives it explicitly; handlers never read ambient state.
func capabilities(r *http.Request) workflow.CapabilitySet {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		return workflow.CapabilitySet{}
	}
	return sess.Capabilities()
}

// --- Task handlers ---

func (h *Handlers) listTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := query.Filter{}

	if s := q.Get("status"); s != "" {
		st := task.Status(s)
		filter.Status = &st
	}
	if p := q.Get("priority"); p != "" {
		pr := task.Priority(p)
		filter.Priority = &pr
	}
	if t := q.Get("type"); t != "" {
		tt := task.Type(t)
		filter.Type = &tt
	}
	filter.Search = q.Get("q")

	srt := query.DefaultSort()
	if k := q.Get("sort"); k != "" {
		srt.Key = query.SortKey(k)
	}
	if q.Get("dir") == string(query.Descending) {
		srt.Direction = query.Descending
	}

	tasks := h.Tracker.QueryTasks(filter, srt)
	if tasks == nil {
		tasks = []task.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *Handlers) createTask(w http.ResponseWriter, r *http.Request) {
	var draft task.Task
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	created, err := h.Tracker.CreateTask(draft)
	if err != nil {
		writeErrorFor(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handlers) getTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	t, err := h.Tracker.GetTask(id)
	if err != nil {
		writeErrorFor(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) updateTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.Tracker.GetTask(id)
	if err != nil {
		writeErrorFor(w, err)
		return
	}

	// Decode partial update over existing task
	if err := json.NewDecoder(r.Body).Decode(&existing); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	existing.ID = id // ensure ID is not overwritten

	updated, err := h.Tracker.UpdateTask(existing)
	if err != nil {
		writeErrorFor(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handlers) deleteTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.Tracker.DeleteTask(id, capabilities(r)); err != nil {
		writeErrorFor(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Workflow handlers ---

func (h *Handlers) requestApproval(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	t, err := h.Tracker.RequestApproval(id, capabilities(r))
	if err != nil {
		writeErrorFor(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) approveTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	t, err := h.Tracker.ApproveTask(id, capabilities(r))
	if err != nil {
		writeErrorFor(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) reopenTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	t, err := h.Tracker.ReopenTask(id, capabilities(r))
	if err != nil {
		writeErrorFor(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// --- Timer handlers ---

// elapsedResponse is the body returned by GET /api/tasks/{id}/time.
type elapsedResponse struct {
	TaskID         string `json:"task_id"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
	Formatted      string `json:"formatted"`
	Running        bool   `json:"running"`
}

func (h *Handlers) getElapsed(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	seconds, err := h.Tracker.GetElapsed(id)
	if err != nil {
		writeErrorFor(w, err)
		return
	}
	writeJSON(w, http.StatusOK, elapsedResponse{
		TaskID:         id,
		ElapsedSeconds: seconds,
		Formatted:      timer.FormatElapsed(seconds),
		Running:        h.Tracker.TimerRunning(id),
	})
}

func (h *Handlers) startTimer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.Tracker.StartTimer(id); err != nil {
		writeErrorFor(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) stopTimer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.Tracker.StopTimer(id); err != nil {
		writeErrorFor(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Analytics handlers ---

func (h *Handlers) analytics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Tracker.ComputeAnalytics())
}

func (h *Handlers) summary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Tracker.Summary())
}

// --- Event handlers ---

func (h *Handlers) listEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil {
			limit = n
		}
	}
	events := h.Notifier.History(limit)
	if events == nil {
		events = []notify.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// --- Status / version ---

func (h *Handlers) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.Version,
	})
}

// StatusHandler returns the status handler function for external registration.
func (h *Handlers) StatusHandler() http.HandlerFunc {
	return h.status
}

func (h *Handlers) version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": h.Version,
	})
}
