// Package remote implements the attendance API over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"example.com/laborsync/internal/domain"
	"example.com/laborsync/internal/observability"
	"example.com/laborsync/internal/wire"
)

// DefaultTimeout bounds every remote call when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// Option configures a Client.
type Option func(*Client)

// WithLogger overrides the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithToken sets the initial bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// Client calls the attendance API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	http       *http.Client
	logger     *zap.Logger
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator

	mu    sync.RWMutex
	token string
}

var _ domain.AttendanceAPI = (*Client)(nil)

// NewClient constructs a Client for baseURL. A non-positive timeout selects DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: timeout},
		logger:     zap.NewNop(),
		tracer:     otel.Tracer("laborsync.remote"),
		propagator: otel.GetTextMapPropagator(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token used for subsequent calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// ActiveClock fetches the worker's open session, if any.
func (c *Client) ActiveClock(ctx context.Context) (domain.ActiveClock, error) {
	var resp wire.ActiveClockResponse
	if err := c.do(ctx, "active_clock", http.MethodGet, wire.PathActiveClock, nil, &resp); err != nil {
		return domain.ActiveClock{}, err
	}

	active := domain.ActiveClock{
		IsActive:      resp.IsActive,
		TaskID:        resp.TaskID,
		Shift:         resp.Shift,
		Note:          resp.Note,
		AssignedShift: resp.AssignedShift,
	}
	if resp.ClockIn != nil {
		active.ClockIn = *resp.ClockIn
	}
	if active.IsActive && active.ClockIn.IsZero() {
		return domain.ActiveClock{}, &domain.RequestError{Op: "active_clock", Err: errors.New("active session without clock_in")}
	}
	return active, nil
}

// ClockIn opens a session on taskID.
func (c *Client) ClockIn(ctx context.Context, taskID string, opts domain.ClockInOptions) (domain.ClockInResult, error) {
	req := wire.ClockInRequest{
		TaskID:        taskID,
		Shift:         opts.Shift,
		Note:          opts.Note,
		AssignedShift: opts.AssignedShift,
	}
	var resp wire.ClockInResponse
	if err := c.do(ctx, "clock_in", http.MethodPost, wire.PathClockIn, req, &resp); err != nil {
		return domain.ClockInResult{}, err
	}
	if resp.ClockIn.IsZero() {
		return domain.ClockInResult{}, &domain.RequestError{Op: "clock_in", Err: errors.New("clock in confirmed without clock_in")}
	}
	return domain.ClockInResult{
		ClockIn:       resp.ClockIn,
		TaskID:        resp.TaskID,
		AssignedShift: resp.AssignedShift,
	}, nil
}

// ClockOut closes the session on taskID.
func (c *Client) ClockOut(ctx context.Context, taskID string) error {
	var resp wire.ClockOutResponse
	return c.do(ctx, "clock_out", http.MethodPost, wire.PathClockOut, wire.ClockOutRequest{TaskID: taskID}, &resp)
}

// ClockHistory lists the worker's clock records.
func (c *Client) ClockHistory(ctx context.Context) ([]domain.ClockRecord, error) {
	var resp wire.HistoryResponse
	if err := c.do(ctx, "clock_history", http.MethodGet, wire.PathClockHistory, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// UserTasks lists the tasks the worker may clock in against.
func (c *Client) UserTasks(ctx context.Context) ([]domain.Task, error) {
	var resp wire.TasksResponse
	if err := c.do(ctx, "user_tasks", http.MethodGet, wire.PathTasks, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// UserPoints fetches the worker's points balance.
func (c *Client) UserPoints(ctx context.Context) (domain.Points, error) {
	var resp domain.Points
	if err := c.do(ctx, "user_points", http.MethodGet, wire.PathPoints, nil, &resp); err != nil {
		return domain.Points{}, err
	}
	return resp, nil
}

// Logout ends the remote session for the current token.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, "logout", http.MethodPost, wire.PathLogout, nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) (err error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "attendance."+op, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.logger.Debug("attendance call failed", zap.String("op", op), zap.Error(err))
		}
		span.End()
		observability.ObserveRemote(op, start, err)
	}()

	var reader io.Reader
	if body != nil {
		payload, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return &domain.RequestError{Op: op, Err: marshalErr}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &domain.RequestError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	c.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.RequestError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode >= 300 {
		return decodeProblem(op, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.RequestError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func decodeProblem(op string, resp *http.Response) error {
	var problem wire.Problem
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &problem); err != nil || problem.Type == "" {
		problem = wire.Problem{Detail: strings.TrimSpace(string(raw))}
	}

	detail := problem.Detail
	if detail == "" {
		detail = http.StatusText(resp.StatusCode)
	}

	var cause error
	switch problem.Type {
	case wire.ProblemSessionActive:
		cause = fmt.Errorf("%w: %s", domain.ErrSessionActive, detail)
	case wire.ProblemNoActiveSession:
		cause = fmt.Errorf("%w: %s", domain.ErrNoActiveSession, detail)
	case wire.ProblemTaskNotFound:
		cause = fmt.Errorf("%w: %s", domain.ErrTaskNotFound, detail)
	case wire.ProblemUnauthorized:
		cause = fmt.Errorf("%w: %s", domain.ErrNotAuthenticated, detail)
	default:
		cause = errors.New(detail)
	}
	return &domain.RequestError{Op: op, Status: resp.StatusCode, Code: problem.Type, Err: cause}
}
