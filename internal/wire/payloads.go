// Package wire defines the JSON bodies exchanged with the attendance API.
package wire

import (
	"time"

	"example.com/laborsync/internal/domain"
)

// Route paths served by the attendance API.
const (
	PathActiveClock  = "/v1/clock/active"
	PathClockIn      = "/v1/clock/in"
	PathClockOut     = "/v1/clock/out"
	PathClockHistory = "/v1/clock/history"
	PathTasks        = "/v1/tasks"
	PathPoints       = "/v1/points"
	PathLogout       = "/v1/logout"
	PathHealth       = "/healthz"
)

// Problem types carried in error responses.
const (
	ProblemInvalidRequest   = "invalid_request"
	ProblemValidation       = "validation_failed"
	ProblemUnauthorized     = "unauthorized"
	ProblemSessionActive    = "session_active"
	ProblemNoActiveSession  = "no_active_session"
	ProblemTaskNotFound     = "task_not_found"
	ProblemMethodNotAllowed = "method_not_allowed"
	ProblemServerError      = "server_error"
)

// Problem is the body of every non-2xx response.
type Problem struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

// ActiveClockResponse is returned by GET /v1/clock/active.
type ActiveClockResponse struct {
	IsActive      bool         `json:"is_active"`
	TaskID        string       `json:"task_id,omitempty"`
	ClockIn       *time.Time   `json:"clock_in,omitempty"`
	Shift         domain.Shift `json:"shift,omitempty"`
	Note          string       `json:"note,omitempty"`
	AssignedShift domain.Shift `json:"assigned_shift,omitempty"`
}

// ClockInRequest is the payload for POST /v1/clock/in.
type ClockInRequest struct {
	TaskID        string       `json:"task_id"`
	Shift         domain.Shift `json:"shift"`
	Note          string       `json:"note,omitempty"`
	AssignedShift domain.Shift `json:"assigned_shift,omitempty"`
}

// ClockInResponse echoes the server-assigned clock-in fields.
type ClockInResponse struct {
	ClockIn       time.Time    `json:"clock_in"`
	TaskID        string       `json:"task_id"`
	AssignedShift domain.Shift `json:"assigned_shift"`
}

// ClockOutRequest is the payload for POST /v1/clock/out.
type ClockOutRequest struct {
	TaskID string `json:"task_id"`
}

// ClockOutResponse carries the recorded clock-out time.
type ClockOutResponse struct {
	ClockOut time.Time `json:"clock_out"`
}

// HistoryResponse lists clock records oldest first.
type HistoryResponse struct {
	Items []domain.ClockRecord `json:"items"`
}

// TasksResponse lists the worker's tasks.
type TasksResponse struct {
	Items []domain.Task `json:"items"`
}
