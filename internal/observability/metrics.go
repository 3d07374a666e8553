// Package observability holds the Prometheus collectors shared by the clock client and the development API.
package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"example.com/laborsync/internal/domain"
)

var (
	transitionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "laborsync",
		Subsystem: "session",
		Name:      "transitions_total",
		Help:      "Clock session state transitions, labeled by target state and outcome.",
	}, []string{"to", "outcome"})

	reconcileCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "laborsync",
		Subsystem: "session",
		Name:      "reconciliations_total",
		Help:      "Reconciliations against the remote active clock, labeled by result.",
	}, []string{"result"})

	rejectedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "laborsync",
		Subsystem: "session",
		Name:      "rejected_actions_total",
		Help:      "User actions rejected locally, labeled by reason.",
	}, []string{"reason"})

	breakExpiredCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "laborsync",
		Subsystem: "session",
		Name:      "break_expirations_total",
		Help:      "Breaks that ran out without being cancelled.",
	})

	idleLogoutCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "laborsync",
		Subsystem: "session",
		Name:      "idle_logouts_total",
		Help:      "Forced logouts after the inactivity window elapsed.",
	})

	hoursTodayGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "laborsync",
		Subsystem: "session",
		Name:      "hours_worked_today",
		Help:      "Hours worked today by the signed-in worker, including the open session.",
	})

	remoteDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "laborsync",
		Subsystem: "remote",
		Name:      "request_duration_seconds",
		Help:      "Latency of attendance API calls.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	}, []string{"op"})

	remoteCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "laborsync",
		Subsystem: "remote",
		Name:      "requests_total",
		Help:      "Attendance API calls, labeled by operation and result.",
	}, []string{"op", "result"})

	apiClockCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "laborsync",
		Subsystem: "api",
		Name:      "clock_events_total",
		Help:      "Clock-ins and clock-outs accepted by the development API.",
	}, []string{"op"})
)

func init() {
	prometheus.MustRegister(
		transitionCounter,
		reconcileCounter,
		rejectedCounter,
		breakExpiredCounter,
		idleLogoutCounter,
		hoursTodayGauge,
		remoteDuration,
		remoteCounter,
		apiClockCounter,
	)
}

// RecordTransition counts a session state change.
func RecordTransition(to, outcome string) {
	transitionCounter.WithLabelValues(to, outcome).Inc()
}

// RecordReconciliation counts a reconciliation result (match, corrected, failed, stale).
func RecordReconciliation(result string) {
	reconcileCounter.WithLabelValues(result).Inc()
}

// RecordRejected counts a locally rejected action.
func RecordRejected(err error) {
	reason := "other"
	switch {
	case errors.Is(err, domain.ErrBusy):
		reason = "busy"
	case errors.Is(err, domain.ErrValidation):
		reason = "validation"
	case errors.Is(err, domain.ErrInvalidTransition):
		reason = "invalid_transition"
	case errors.Is(err, domain.ErrNotAuthenticated):
		reason = "not_authenticated"
	}
	rejectedCounter.WithLabelValues(reason).Inc()
}

// RecordBreakExpired counts a break running out.
func RecordBreakExpired() {
	breakExpiredCounter.Inc()
}

// RecordIdleLogout counts a forced logout.
func RecordIdleLogout() {
	idleLogoutCounter.Inc()
}

// SetHoursToday publishes the current worked-today figure.
func SetHoursToday(hours float64) {
	hoursTodayGauge.Set(hours)
}

// ObserveRemote records latency and result of one remote call started at start.
func ObserveRemote(op string, start time.Time, err error) {
	remoteDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	remoteCounter.WithLabelValues(op, result).Inc()
}

// RecordAPIClockEvent counts a clock operation accepted by the development API.
func RecordAPIClockEvent(op string) {
	apiClockCounter.WithLabelValues(op).Inc()
}
