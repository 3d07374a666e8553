// Package outbox buffers attendance events locally and delivers them to Kafka.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"example.com/laborsync/internal/events"
)

// ErrQueueFull is returned by Publish when the buffer cannot accept more events.
var ErrQueueFull = errors.New("outbox queue full")

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger overrides the logger used to report delivery errors.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithFlushInterval sets how often buffered events are delivered.
func WithFlushInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.flushInterval = d
		}
	}
}

// WithBatchSize caps the number of events written per delivery.
func WithBatchSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithCapacity bounds the number of undelivered events kept for retry.
func WithCapacity(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.capacity = n
		}
	}
}

// Publisher implements events.Publisher on top of a Kafka writer. Publish never blocks on the
// network; a single Start loop owns delivery and retries failed batches on the next flush.
type Publisher struct {
	writer           messageWriter
	topic            string
	queue            chan kafka.Message
	pending          []kafka.Message
	flushInterval    time.Duration
	batchSize        int
	capacity         int
	logger           *zap.Logger
	shutdownComplete chan struct{}
}

// NewPublisher constructs a Publisher writing to topic.
func NewPublisher(writer messageWriter, topic string, opts ...Option) *Publisher {
	p := &Publisher{
		writer:           writer,
		topic:            topic,
		flushInterval:    time.Second,
		batchSize:        50,
		capacity:         1000,
		logger:           zap.NewNop(),
		shutdownComplete: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.queue = make(chan kafka.Message, p.capacity)
	return p
}

// Publish encodes evt and queues it for delivery.
func (p *Publisher) Publish(_ context.Context, evt events.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode %s: %w", evt.EventType(), err)
	}

	msg := kafka.Message{
		Key:   []byte(evt.PartitionKey()),
		Value: payload,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.EventType())},
			{Key: "content_type", Value: []byte("application/json")},
		},
	}

	select {
	case p.queue <- msg:
		queuedCounter.Inc()
		return nil
	default:
		droppedCounter.Inc()
		return ErrQueueFull
	}
}

// Start launches the delivery loop. It should be called in a goroutine.
// Events still buffered when ctx is cancelled get one final delivery attempt.
func (p *Publisher) Start(ctx context.Context) {
	ticker := time.NewTicker(p.flushInterval)
	defer func() {
		ticker.Stop()
		close(p.shutdownComplete)
	}()

	for {
		select {
		case <-ctx.Done():
			p.drain()
			return
		case <-ticker.C:
			if err := p.flush(ctx); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Warn("outbox delivery failed", zap.Error(err), zap.Int("pending", len(p.pending)))
			}
		}
	}
}

// Wait waits until the delivery loop stops.
func (p *Publisher) Wait() {
	<-p.shutdownComplete
}

func (p *Publisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.flush(ctx); err != nil {
		p.logger.Warn("outbox final flush failed", zap.Error(err), zap.Int("undelivered", len(p.pending)))
	}
}

func (p *Publisher) flush(ctx context.Context) error {
	p.collect()
	for len(p.pending) > 0 {
		n := min(len(p.pending), p.batchSize)
		batch := p.pending[:n]

		start := time.Now()
		err := p.writer.WriteMessages(ctx, p.topic, batch...)
		batchDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			failedCounter.Add(float64(n))
			return err
		}

		deliveredCounter.Add(float64(n))
		p.pending = p.pending[n:]
	}
	p.pending = nil
	return nil
}

// collect moves queued messages into the pending buffer, dropping the oldest beyond capacity.
func (p *Publisher) collect() {
	for {
		select {
		case msg := <-p.queue:
			p.pending = append(p.pending, msg)
		default:
			if over := len(p.pending) - p.capacity; over > 0 {
				droppedCounter.Add(float64(over))
				p.pending = p.pending[over:]
			}
			pendingGauge.Set(float64(len(p.pending)))
			return
		}
	}
}
