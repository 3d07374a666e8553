// Package store keeps development attendance data in process memory.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"example.com/laborsync/internal/domain"
	"example.com/laborsync/internal/timer"
)

// Option configures an InMemoryStore.
type Option func(*InMemoryStore)

// WithClock overrides the time source used to stamp clock events.
func WithClock(clock timer.Clock) Option {
	return func(s *InMemoryStore) {
		s.clock = clock
	}
}

// WithTasks replaces the seeded task list.
func WithTasks(tasks ...domain.Task) Option {
	return func(s *InMemoryStore) {
		s.tasks = make(map[string]domain.Task, len(tasks))
		s.taskOrder = s.taskOrder[:0]
		for _, task := range tasks {
			s.tasks[task.ID] = task
			s.taskOrder = append(s.taskOrder, task.ID)
		}
	}
}

// WithPoints sets the balance reported for every worker.
func WithPoints(points domain.Points) Option {
	return func(s *InMemoryStore) {
		s.points = points
	}
}

// InMemoryStore enforces at most one open session per worker.
type InMemoryStore struct {
	mu        sync.RWMutex
	clock     timer.Clock
	tasks     map[string]domain.Task
	taskOrder []string
	points    domain.Points
	records   map[string][]domain.ClockRecord
	revoked   map[string]struct{}
}

// NewInMemoryStore constructs a store populated with seed tasks.
func NewInMemoryStore(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{
		clock:   timer.SystemClock{},
		records: make(map[string][]domain.ClockRecord),
		revoked: make(map[string]struct{}),
		points:  domain.Points{Total: 120, Available: 80, Redeemed: 40},
	}
	s.seed()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) seed() {
	seeds := []domain.Task{
		{ID: "task-picking", Title: "Order picking", AssignedShift: domain.ShiftMorning},
		{ID: "task-packing", Title: "Packing line", AssignedShift: domain.ShiftAfternoon},
		{ID: "task-inventory", Title: "Inventory count", AssignedShift: domain.ShiftNight},
	}
	s.tasks = make(map[string]domain.Task, len(seeds))
	for _, task := range seeds {
		s.tasks[task.ID] = task
		s.taskOrder = append(s.taskOrder, task.ID)
	}
}

// ActiveClock returns the worker's open session.
func (s *InMemoryStore) ActiveClock(_ context.Context, username string) (domain.ActiveClock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.openRecord(username)
	if !ok {
		return domain.ActiveClock{}, nil
	}
	return domain.ActiveClock{
		IsActive:      true,
		TaskID:        record.TaskID,
		ClockIn:       record.ClockIn,
		Shift:         record.AssignedShift,
		Note:          record.Note,
		AssignedShift: record.AssignedShift,
	}, nil
}

// ClockIn opens a session on taskID stamped with the store's clock.
func (s *InMemoryStore) ClockIn(_ context.Context, username, taskID string, opts domain.ClockInOptions) (domain.ClockRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return domain.ClockRecord{}, domain.ErrTaskNotFound
	}
	if _, open := s.openRecord(username); open {
		return domain.ClockRecord{}, domain.ErrSessionActive
	}

	assigned := opts.AssignedShift
	if assigned == "" {
		assigned = opts.Shift
	}
	if assigned == "" {
		assigned = task.AssignedShift
	}

	record := domain.ClockRecord{
		ID:            uuid.NewString(),
		Username:      username,
		TaskID:        task.ID,
		TaskTitle:     task.Title,
		ClockIn:       s.clock.Now().UTC(),
		Note:          strings.TrimSpace(opts.Note),
		AssignedShift: assigned,
	}
	s.records[username] = append(s.records[username], record)
	return record, nil
}

// ClockOut closes the worker's open session on taskID.
func (s *InMemoryStore) ClockOut(_ context.Context, username, taskID string) (domain.ClockRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.records[username]
	for i := len(records) - 1; i >= 0; i-- {
		if !records[i].Open() {
			continue
		}
		if taskID != "" && records[i].TaskID != taskID {
			return domain.ClockRecord{}, domain.ErrNoActiveSession
		}
		out := s.clock.Now().UTC()
		if out.Before(records[i].ClockIn) {
			out = records[i].ClockIn
		}
		records[i].ClockOut = &out
		return records[i], nil
	}
	return domain.ClockRecord{}, domain.ErrNoActiveSession
}

// History returns the worker's records ordered by clock-in.
func (s *InMemoryStore) History(_ context.Context, username string) []domain.ClockRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ClockRecord, len(s.records[username]))
	copy(out, s.records[username])
	sort.SliceStable(out, func(i, j int) bool { return out[i].ClockIn.Before(out[j].ClockIn) })
	return out
}

// Tasks returns the seeded tasks in insertion order.
func (s *InMemoryStore) Tasks(context.Context, string) []domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Task, 0, len(s.taskOrder))
	for _, id := range s.taskOrder {
		out = append(out, s.tasks[id])
	}
	return out
}

// Points returns the worker's balance.
func (s *InMemoryStore) Points(context.Context, string) domain.Points {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.points
}

// Revoke invalidates a bearer token.
func (s *InMemoryStore) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[token] = struct{}{}
}

// Revoked reports whether token was logged out.
func (s *InMemoryStore) Revoked(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.revoked[token]
	return ok
}

func (s *InMemoryStore) openRecord(username string) (domain.ClockRecord, bool) {
	records := s.records[username]
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Open() {
			return records[i], true
		}
	}
	return domain.ClockRecord{}, false
}
