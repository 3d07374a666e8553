package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"example.com/laborsync/internal/domain"
	"example.com/laborsync/internal/presenter"
	"example.com/laborsync/internal/session"
	"example.com/laborsync/internal/worktime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 1)

	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	cursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7DC6F")).Bold(true)
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")).MarginTop(1)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4A90E2"))
	workingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")).Bold(true)

	severityStyles = map[domain.Severity]lipgloss.Style{
		domain.SeverityInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("#4A90E2")),
		domain.SeveritySuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")),
		domain.SeverityWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("#F7DC6F")),
		domain.SeverityError:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
	}
)

func (m model) View() string {
	snap := m.snap
	if !snap.Authenticated {
		return lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("LaborSync"),
			boxStyle.Render("Signed out. Press a to sign in again, q to quit."),
			m.renderNotifications(),
		)
	}

	var body string
	switch m.view {
	case viewHistory:
		body = renderHistory(snap.History)
	case viewWeek:
		from, to := worktime.WeekRange(snap.Now)
		body = renderWeek(presenter.DayRows(worktime.GroupByDay(snap.History, snap.Now, from, to)))
	default:
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderStatus(), m.renderTasks())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("LaborSync · "+snap.Username),
		body,
		m.renderNotifications(),
		footerStyle.Render("i clock in · o clock out · b break · c cancel break · s shift · n note · r refresh · t/h/w views · l logout · q quit"),
	)
}

func (m model) renderStatus() string {
	snap := m.snap
	summary := presenter.Summary(snap.Summary)

	lines := []string{
		stateStyle(snap.State).Render(presenter.StateLabel(snap.State)),
	}
	if snap.Session != nil {
		lines = append(lines,
			field("Task", snap.Session.TaskID),
			field("Since", presenter.FormatTimestamp(snap.Session.ClockIn)),
			field("Shift", presenter.ShiftLabel(snap.Session.AssignedShift)),
		)
	}
	lines = append(lines,
		"",
		field("Worked today", summary.Hours),
		field("First clock in", summary.FirstClockIn),
		field("Last clock out", summary.LastClockOut),
		"",
		field("Break", breakLabel(snap)),
		field("Idle sign-out in", presenter.FormatCountdown(int(snap.IdleRemaining.Seconds()))),
	)
	if snap.Points != nil {
		lines = append(lines, field("Points", fmt.Sprintf("%d available of %d", snap.Points.Available, snap.Points.Total)))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func (m model) renderTasks() string {
	lines := []string{headerStyle.Render("Tasks")}
	if len(m.snap.Tasks) == 0 {
		lines = append(lines, labelStyle.Render("No tasks loaded, press r"))
	}
	for i, task := range m.snap.Tasks {
		line := fmt.Sprintf("  %s (%s)", task.Title, presenter.ShiftLabel(task.AssignedShift))
		if i == m.cursor {
			line = cursorStyle.Render("> " + line[2:])
		}
		lines = append(lines, line)
	}

	note := m.note
	if note == "" {
		note = presenter.Placeholder
	}
	if m.editing {
		note += "_"
	}
	lines = append(lines,
		"",
		field("Shift", presenter.ShiftLabel(domain.Shifts[m.shift])),
		field("Note", note),
	)
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func renderHistory(records []domain.ClockRecord) string {
	rows := presenter.HistoryRows(records)
	lines := []string{headerStyle.Render(fmt.Sprintf("%-20s %-10s %-22s %-22s %-10s %-10s %s",
		"Task", "Shift", "Clock in", "Clock out", "Duration", "Status", "Note"))}
	if len(rows) == 0 {
		lines = append(lines, labelStyle.Render("No clock records yet"))
	}
	for _, row := range rows {
		lines = append(lines, fmt.Sprintf("%-20s %-10s %-22s %-22s %-10s %-10s %s",
			row.Task, row.Shift, row.ClockIn, row.ClockOut, row.Duration, row.Status, row.Note))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func renderWeek(rows []presenter.DayRow) string {
	lines := []string{headerStyle.Render(fmt.Sprintf("%-14s %-10s %-9s %-10s %s", "Day", "Hours", "Sessions", "First", "Last"))}
	for _, row := range rows {
		lines = append(lines, fmt.Sprintf("%-14s %-10s %-9s %-10s %s", row.Day, row.Hours, row.Sessions, row.First, row.Last))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func (m model) renderNotifications() string {
	var lines []string
	for _, n := range m.notes {
		style, ok := severityStyles[n.Severity]
		if !ok {
			style = labelStyle
		}
		lines = append(lines, style.Render(n.Message))
	}
	return strings.Join(lines, "\n")
}

func breakLabel(snap session.Snapshot) string {
	if snap.Break.Active {
		return presenter.FormatCountdown(snap.Break.Remaining) + " left"
	}
	return "not on break"
}

func stateStyle(state session.State) lipgloss.Style {
	switch state {
	case session.StateClockedIn:
		return workingStyle
	case session.StateClockedOut:
		return idleStyle
	}
	return pendingStyle
}

func field(label, value string) string {
	return labelStyle.Render(label+": ") + value
}
