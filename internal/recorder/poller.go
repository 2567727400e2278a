package recorder

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// EventSink receives every event the tracker emits on the poll loop. Sinks
// must not block: the durable path is the queue, anything else is best
// effort fanout.
type EventSink interface {
	OnEvent(event Event)
}

// Poller drives sampling at a fixed cadence. Source failures are suppressed
// with bounded exponential backoff and malformed reads discard the tick; no
// single bad read ever terminates the loop.
type Poller struct {
	source  TelemetrySource
	tracker *SessionTracker
	queue   *EventQueue
	sinks   []EventSink
	logger  Logger

	interval    time.Duration
	readTimeout time.Duration
	backoffMin  time.Duration
	backoffMax  time.Duration

	backoff     time.Duration
	nextAttempt time.Time
	unavailable bool
}

func NewPoller(source TelemetrySource, tracker *SessionTracker, queue *EventQueue, logger Logger, interval, readTimeout, backoffMin, backoffMax time.Duration, sinks ...EventSink) *Poller {
	return &Poller{
		source:      source,
		tracker:     tracker,
		queue:       queue,
		sinks:       sinks,
		logger:      logger,
		interval:    interval,
		readTimeout: readTimeout,
		backoffMin:  backoffMin,
		backoffMax:  backoffMax,
	}
}

// Run polls until ctx is cancelled, then finalises the in-flight session and
// pushes its closing events before returning.
func (p *Poller) Run(ctx context.Context) error {
	tick := time.NewTicker(p.interval)
	defer tick.Stop()

	p.logger.Infof("Polling telemetry source every %s", p.interval)

	for {
		select {
		case <-ctx.Done():
			p.logger.Debugf("Stopping poll loop")

			for _, event := range p.tracker.Flush() {
				p.emit(event)
			}

			return nil
		case <-tick.C:
			p.Tick(ctx)
		}
	}
}

// Tick performs one sampling cycle.
func (p *Poller) Tick(ctx context.Context) {
	if !p.nextAttempt.IsZero() && time.Now().Before(p.nextAttempt) {
		return
	}

	metricTicks.Inc()

	readCtx, cancel := context.WithTimeout(ctx, p.readTimeout)
	snapshot, err := p.source.Read(readCtx)
	cancel()

	switch {
	case err == nil:
		p.resetBackoff()

		for _, event := range p.tracker.Update(snapshot) {
			p.emit(event)
		}
	case errors.Is(err, ErrMalformedSnapshot):
		metricMalformedReads.Inc()
		p.logger.WithError(err).Warnf("Discarding malformed snapshot")
	case errors.Is(err, ErrSourceUnavailable), errors.Is(err, context.DeadlineExceeded):
		metricSourceFailures.Inc()
		p.applyBackoff(err)
	default:
		// unexpected source errors are treated like an unavailable source
		// rather than being allowed to escape the loop.
		metricSourceFailures.Inc()
		p.applyBackoff(err)
	}
}

func (p *Poller) emit(event Event) {
	metricEventsEmitted.WithLabelValues(event.Kind.String()).Inc()

	p.queue.Push(event)

	for _, sink := range p.sinks {
		sink.OnEvent(event)
	}
}

func (p *Poller) applyBackoff(err error) {
	if !p.unavailable {
		p.logger.WithError(err).Infof("Telemetry source unavailable. Backing off")
		p.unavailable = true
	}

	if p.backoff == 0 {
		p.backoff = p.backoffMin
	} else {
		p.backoff *= 2

		if p.backoff > p.backoffMax {
			p.backoff = p.backoffMax
		}
	}

	p.nextAttempt = time.Now().Add(p.backoff)
}

func (p *Poller) resetBackoff() {
	if p.unavailable {
		p.logger.Infof("Telemetry source is available again")
	}

	p.backoff = 0
	p.nextAttempt = time.Time{}
	p.unavailable = false
}
