// Package api exposes the development attendance API over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"example.com/laborsync/internal/auth"
	"example.com/laborsync/internal/domain"
	"example.com/laborsync/internal/observability"
	"example.com/laborsync/internal/wire"
)

// Store is the attendance backend served by the Handler.
type Store interface {
	ActiveClock(ctx context.Context, username string) (domain.ActiveClock, error)
	ClockIn(ctx context.Context, username, taskID string, opts domain.ClockInOptions) (domain.ClockRecord, error)
	ClockOut(ctx context.Context, username, taskID string) (domain.ClockRecord, error)
	History(ctx context.Context, username string) []domain.ClockRecord
	Tasks(ctx context.Context, username string) []domain.Task
	Points(ctx context.Context, username string) domain.Points
	Revoke(token string)
	Revoked(token string) bool
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger overrides the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// Handler coordinates HTTP requests with the attendance store.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler builds a Handler.
func NewHandler(store Store, opts ...Option) *Handler {
	h := &Handler{store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc(wire.PathActiveClock, h.activeClock)
	mux.HandleFunc(wire.PathClockIn, h.clockIn)
	mux.HandleFunc(wire.PathClockOut, h.clockOut)
	mux.HandleFunc(wire.PathClockHistory, h.history)
	mux.HandleFunc(wire.PathTasks, h.tasks)
	mux.HandleFunc(wire.PathPoints, h.points)
	mux.HandleFunc(wire.PathLogout, h.logout)
	mux.HandleFunc(wire.PathHealth, healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) activeClock(w http.ResponseWriter, r *http.Request) {
	username, ok := h.authorize(w, r, http.MethodGet)
	if !ok {
		return
	}

	active, err := h.store.ActiveClock(r.Context(), username)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	resp := wire.ActiveClockResponse{IsActive: active.IsActive}
	if active.IsActive {
		clockIn := active.ClockIn
		resp.TaskID = active.TaskID
		resp.ClockIn = &clockIn
		resp.Shift = active.Shift
		resp.Note = active.Note
		resp.AssignedShift = active.AssignedShift
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) clockIn(w http.ResponseWriter, r *http.Request) {
	username, ok := h.authorize(w, r, http.MethodPost)
	if !ok {
		return
	}

	var req wire.ClockInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, wire.ProblemInvalidRequest, "unable to parse body")
		return
	}
	if err := validateClockIn(req); err != nil {
		writeError(w, http.StatusBadRequest, wire.ProblemValidation, err.Error())
		return
	}

	record, err := h.store.ClockIn(r.Context(), username, req.TaskID, domain.ClockInOptions{
		Shift:         req.Shift,
		Note:          req.Note,
		AssignedShift: req.AssignedShift,
	})
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	observability.RecordAPIClockEvent("clock_in")
	h.logger.Info("clocked in", zap.String("username", username), zap.String("task_id", record.TaskID))
	writeJSON(w, http.StatusCreated, wire.ClockInResponse{
		ClockIn:       record.ClockIn,
		TaskID:        record.TaskID,
		AssignedShift: record.AssignedShift,
	})
}

func (h *Handler) clockOut(w http.ResponseWriter, r *http.Request) {
	username, ok := h.authorize(w, r, http.MethodPost)
	if !ok {
		return
	}

	var req wire.ClockOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, wire.ProblemInvalidRequest, "unable to parse body")
		return
	}
	if strings.TrimSpace(req.TaskID) == "" {
		writeError(w, http.StatusBadRequest, wire.ProblemValidation, "task_id is required")
		return
	}

	record, err := h.store.ClockOut(r.Context(), username, req.TaskID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	observability.RecordAPIClockEvent("clock_out")
	h.logger.Info("clocked out", zap.String("username", username), zap.String("task_id", record.TaskID))
	writeJSON(w, http.StatusOK, wire.ClockOutResponse{ClockOut: *record.ClockOut})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	username, ok := h.authorize(w, r, http.MethodGet)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, wire.HistoryResponse{Items: h.store.History(r.Context(), username)})
}

func (h *Handler) tasks(w http.ResponseWriter, r *http.Request) {
	username, ok := h.authorize(w, r, http.MethodGet)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, wire.TasksResponse{Items: h.store.Tasks(r.Context(), username)})
}

func (h *Handler) points(w http.ResponseWriter, r *http.Request) {
	username, ok := h.authorize(w, r, http.MethodGet)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.store.Points(r.Context(), username))
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	username, ok := h.authorize(w, r, http.MethodPost)
	if !ok {
		return
	}
	if token, err := auth.BearerToken(r.Header.Get("Authorization")); err == nil {
		h.store.Revoke(token)
	}
	h.logger.Info("logged out", zap.String("username", username))
	w.WriteHeader(http.StatusNoContent)
}

// authorize checks the method and returns the caller's username, writing the error response itself.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, method string) (string, bool) {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, wire.ProblemMethodNotAllowed, "unsupported method")
		return "", false
	}
	username, ok := auth.WorkerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, wire.ProblemUnauthorized, "missing bearer token")
		return "", false
	}
	if token, err := auth.BearerToken(r.Header.Get("Authorization")); err == nil && h.store.Revoked(token) {
		writeError(w, http.StatusUnauthorized, wire.ProblemUnauthorized, "token has been logged out")
		return "", false
	}
	return username, true
}

func validateClockIn(req wire.ClockInRequest) error {
	if strings.TrimSpace(req.TaskID) == "" {
		return errors.New("task_id is required")
	}
	if _, err := domain.ParseShift(string(req.Shift)); err != nil {
		return err
	}
	if req.AssignedShift != "" && !req.AssignedShift.Valid() {
		return errors.New("assigned_shift is not a known shift")
	}
	return nil
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionActive):
		writeError(w, http.StatusConflict, wire.ProblemSessionActive, err.Error())
	case errors.Is(err, domain.ErrNoActiveSession):
		writeError(w, http.StatusConflict, wire.ProblemNoActiveSession, err.Error())
	case errors.Is(err, domain.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, wire.ProblemTaskNotFound, err.Error())
	default:
		h.logger.Error("store failure", zap.Error(err))
		writeError(w, http.StatusInternalServerError, wire.ProblemServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, wire.Problem{Type: code, Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
