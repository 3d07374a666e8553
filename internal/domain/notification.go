package domain

import "time"

// Severity tags a Notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// DefaultAutoDismiss is how long a notification stays visible.
const DefaultAutoDismiss = 5 * time.Second

// Notification is a transient, user-visible message.
type Notification struct {
	Severity    Severity
	Message     string
	AutoDismiss time.Duration
	CreatedAt   time.Time
}

// Expired reports whether the notification should no longer be displayed at now.
func (n Notification) Expired(now time.Time) bool {
	if n.AutoDismiss <= 0 {
		return false
	}
	return !now.Before(n.CreatedAt.Add(n.AutoDismiss))
}
