package main

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"example.com/laborsync/internal/domain"
	"example.com/laborsync/internal/session"
)

type view int

const (
	viewToday view = iota
	viewHistory
	viewWeek
)

type (
	refreshMsg      time.Time
	notificationMsg domain.Notification
	actionMsg       struct {
		action string
		err    error
	}
)

// controller is the part of session.Controller the terminal model drives.
type controller interface {
	Snapshot() session.Snapshot
	Notifications() <-chan domain.Notification
	Touch()
	Authenticate(ctx context.Context, token string) error
	ClockIn(ctx context.Context, taskID string, shift domain.Shift, note string) error
	ClockOut(ctx context.Context) error
	StartBreak() error
	CancelBreak() error
	RefreshHistory(ctx context.Context) error
	RefreshTasks(ctx context.Context) error
	RefreshPoints(ctx context.Context) error
	Logout(ctx context.Context) error
}

type model struct {
	ctx    context.Context
	ctrl   controller
	token  string
	logger *zap.Logger
	every  time.Duration

	snap    session.Snapshot
	notes   []domain.Notification
	view    view
	cursor  int
	shift   int
	note    string
	editing bool
	width   int
}

func newModel(ctx context.Context, ctrl controller, token string, every time.Duration, logger *zap.Logger) model {
	return model{
		ctx:    ctx,
		ctrl:   ctrl,
		token:  token,
		logger: logger,
		every:  every,
		snap:   ctrl.Snapshot(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), waitNotification(m.ctrl.Notifications()))
}

func (m model) refresh() tea.Cmd {
	return tea.Tick(m.every, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func waitNotification(ch <-chan domain.Notification) tea.Cmd {
	return func() tea.Msg {
		return notificationMsg(<-ch)
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshMsg:
		m.snap = m.ctrl.Snapshot()
		m.notes = visible(m.notes, m.snap.Now)
		return m, m.refresh()
	case notificationMsg:
		m.notes = append(visible(m.notes, m.snap.Now), domain.Notification(msg))
		return m, waitNotification(m.ctrl.Notifications())
	case actionMsg:
		if msg.err != nil {
			m.logger.Debug("action finished with error", zap.String("action", msg.action), zap.Error(msg.err))
		}
		m.snap = m.ctrl.Snapshot()
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		m.ctrl.Touch()
		if m.editing {
			return m.editNote(msg), nil
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.snap.Tasks)-1 {
			m.cursor++
		}
	case "s":
		m.shift = (m.shift + 1) % len(domain.Shifts)
	case "n":
		m.editing = true
	case "t":
		m.view = viewToday
	case "h":
		m.view = viewHistory
	case "w":
		m.view = viewWeek
	case "i":
		taskID := ""
		if m.cursor < len(m.snap.Tasks) {
			taskID = m.snap.Tasks[m.cursor].ID
		}
		shift, note := domain.Shifts[m.shift], m.note
		m.note = ""
		return m, m.run("clock in", func(ctx context.Context) error {
			return m.ctrl.ClockIn(ctx, taskID, shift, note)
		})
	case "o":
		return m, m.run("clock out", m.ctrl.ClockOut)
	case "b":
		_ = m.ctrl.StartBreak()
	case "c":
		_ = m.ctrl.CancelBreak()
	case "r":
		return m, m.run("refresh", m.refreshAll)
	case "l":
		return m, m.run("logout", m.ctrl.Logout)
	case "a":
		if !m.snap.Authenticated {
			return m, m.run("sign in", func(ctx context.Context) error {
				if err := m.ctrl.Authenticate(ctx, m.token); err != nil {
					return err
				}
				return m.refreshAll(ctx)
			})
		}
	}
	m.snap = m.ctrl.Snapshot()
	return m, nil
}

func (m model) editNote(key tea.KeyMsg) model {
	switch key.Type {
	case tea.KeyEnter, tea.KeyEsc:
		m.editing = false
	case tea.KeyBackspace:
		if m.note != "" {
			runes := []rune(m.note)
			m.note = string(runes[:len(runes)-1])
		}
	case tea.KeySpace:
		m.note += " "
	case tea.KeyRunes:
		m.note += string(key.Runes)
	}
	return m
}

func (m model) run(action string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionMsg{action: action, err: fn(ctx)}
	}
}

func (m model) refreshAll(ctx context.Context) error {
	var failed []string
	if err := m.ctrl.RefreshTasks(ctx); err != nil {
		failed = append(failed, "tasks")
	}
	if err := m.ctrl.RefreshHistory(ctx); err != nil {
		failed = append(failed, "history")
	}
	if err := m.ctrl.RefreshPoints(ctx); err != nil {
		failed = append(failed, "points")
	}
	if len(failed) > 0 {
		m.logger.Warn("refresh incomplete", zap.String("failed", strings.Join(failed, ",")))
	}
	return nil
}

func visible(notes []domain.Notification, now time.Time) []domain.Notification {
	out := notes[:0:0]
	for _, n := range notes {
		if !n.Expired(now) {
			out = append(out, n)
		}
	}
	return out
}
