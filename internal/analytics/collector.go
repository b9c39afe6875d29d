// Package analytics buffers match and advice events and publishes them to
// Kafka off the request path. Events are dropped, never blocked on, when the
// buffer is full.
package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/medmind/pkg/kafka"
)

// Publisher writes one event; *kafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Tracker accepts events for asynchronous delivery.
type Tracker interface {
	Track(event any)
}

// NopTracker discards events. It stands in when Kafka is disabled.
type NopTracker struct{}

func (NopTracker) Track(any) {}

type Collector struct {
	producer  Publisher
	eventCh   chan any
	logger    *slog.Logger
	done      chan struct{}
	started   atomic.Bool
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

func NewCollector(producer Publisher, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		producer: producer,
		eventCh:  make(chan any, bufferSize),
		logger:   slog.Default().With("component", "analytics-collector"),
		done:     make(chan struct{}),
	}
}

func (c *Collector) Start(ctx context.Context) {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, event)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

func (c *Collector) Track(event any) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops accepting events and waits for the buffered ones to be sent.
func (c *Collector) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.eventCh)
		c.mu.Unlock()
		if c.started.Load() {
			<-c.done
		}
	})
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(context.Background(), event)
		default:
			return
		}
	}
}

func (c *Collector) publish(ctx context.Context, event any) {
	key := "analytics"
	switch e := event.(type) {
	case MatchEvent:
		key = string(e.Type)
	case AdviceEvent:
		key = string(e.Type)
	}
	if err := c.producer.Publish(ctx, kafka.Event{Key: key, Value: event}); err != nil {
		c.logger.Error("failed to publish analytics event", "error", err)
	}
}
