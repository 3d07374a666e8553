package outbox

import "github.com/prometheus/client_golang/prometheus"

var (
	queuedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "laborsync",
		Subsystem: "outbox",
		Name:      "events_queued_total",
		Help:      "Number of attendance events accepted into the local buffer.",
	})

	deliveredCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "laborsync",
		Subsystem: "outbox",
		Name:      "events_delivered_total",
		Help:      "Number of attendance events successfully published to Kafka.",
	})

	failedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "laborsync",
		Subsystem: "outbox",
		Name:      "events_failed_total",
		Help:      "Number of event deliveries that failed and were kept for retry.",
	})

	droppedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "laborsync",
		Subsystem: "outbox",
		Name:      "events_dropped_total",
		Help:      "Number of attendance events discarded because the buffer was full.",
	})

	pendingGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "laborsync",
		Subsystem: "outbox",
		Name:      "events_pending",
		Help:      "Number of attendance events awaiting delivery.",
	})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "laborsync",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time spent writing one batch to Kafka.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})
)

func init() {
	prometheus.MustRegister(queuedCounter, deliveredCounter, failedCounter, droppedCounter, pendingGauge, batchDuration)
}
