package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"mindpulse.local/wellbot/internal/metrics"
)

const (
	defaultRetryCount   = 3
	defaultRetryBackoff = 150 * time.Millisecond
)

// Dispatcher delivers each event to every subscriber on its own goroutine,
// retrying failed deliveries with a fixed backoff.
type Dispatcher struct {
	logger       zerolog.Logger
	metrics      *metrics.Metrics
	subscribers  []Subscriber
	retryCount   int
	retryBackoff time.Duration

	wg sync.WaitGroup
}

type DispatcherOption func(*Dispatcher)

func WithRetry(count int, backoff time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if count > 0 {
			d.retryCount = count
		}
		if backoff > 0 {
			d.retryBackoff = backoff
		}
	}
}

func WithMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func NewDispatcher(logger zerolog.Logger, subs []Subscriber, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		logger:       logger.With().Str("component", "notify").Logger(),
		subscribers:  subs,
		retryCount:   defaultRetryCount,
		retryBackoff: defaultRetryBackoff,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Publish detaches from ctx cancellation so that a finished HTTP request does
// not abort in-flight deliveries; ctx values are kept.
func (d *Dispatcher) Publish(ctx context.Context, event Event) {
	detached := context.WithoutCancel(ctx)
	for _, sub := range d.subscribers {
		s := sub
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.dispatchOne(detached, s, event)
		}()
	}
}

// Wait blocks until every delivery started so far has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) dispatchOne(ctx context.Context, sub Subscriber, event Event) {
	for attempt := 1; attempt <= d.retryCount; attempt++ {
		err := sub.Handle(ctx, event)
		if err == nil {
			d.metrics.NotifyDelivery(sub.Name(), true)
			return
		}

		d.logger.Warn().
			Str("subscriber", sub.Name()).
			Str("event_id", event.ID).
			Str("event_type", string(event.Type)).
			Int("attempt", attempt).
			Err(err).
			Msg("event delivery failed")
		if attempt == d.retryCount {
			d.metrics.NotifyDelivery(sub.Name(), false)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(d.retryBackoff):
		}
	}
}
