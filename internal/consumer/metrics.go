package consumer

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	processedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "laborsync",
		Subsystem: "consumer",
		Name:      "messages_processed_total",
		Help:      "Number of Kafka messages successfully handled.",
	}, []string{"topic", "event_type"})

	handlerErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "laborsync",
		Subsystem: "consumer",
		Name:      "handler_errors_total",
		Help:      "Number of handler errors grouped by topic and event type.",
	}, []string{"topic", "event_type"})

	decodeErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "laborsync",
		Subsystem: "consumer",
		Name:      "decode_errors_total",
		Help:      "Number of decode failures per topic.",
	}, []string{"topic"})

	lastMessageGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "laborsync",
		Subsystem: "consumer",
		Name:      "last_message_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successfully processed message per topic.",
	}, []string{"topic"})

	clockedInGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "laborsync",
		Subsystem: "ledger",
		Name:      "workers_clocked_in",
		Help:      "Workers whose latest confirmed state is clocked in.",
	})

	rollbackCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "laborsync",
		Subsystem: "ledger",
		Name:      "rollbacks_total",
		Help:      "Optimistic clock actions reverted by the remote store, labeled by reason.",
	}, []string{"reason"})

	signOutCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "laborsync",
		Subsystem: "ledger",
		Name:      "sign_outs_total",
		Help:      "Worker sign-outs, labeled by reason and whether a session was closed.",
	}, []string{"reason", "implicit_clock_out"})
)

func init() {
	prometheus.MustRegister(
		processedCounter,
		handlerErrorCounter,
		decodeErrorCounter,
		lastMessageGauge,
		clockedInGauge,
		rollbackCounter,
		signOutCounter,
	)
}

func recordProcessed(msg Message) {
	processedCounter.WithLabelValues(msg.Topic, msg.EventType).Inc()
	if !msg.Timestamp.IsZero() {
		lastMessageGauge.WithLabelValues(msg.Topic).Set(float64(msg.Timestamp.Unix()))
	}
}

func recordHandlerError(msg Message) {
	handlerErrorCounter.WithLabelValues(msg.Topic, msg.EventType).Inc()
}

func recordDecodeError(topic string) {
	decodeErrorCounter.WithLabelValues(topic).Inc()
}
