package recorder

import (
	"context"
	"time"
)

// PersistenceWorker drains the event queue and upserts session state into the
// store on its own goroutine, so slow or failing storage never delays
// sampling. Final events are retried with backoff; after the retry budget is
// exhausted they are surfaced on the failure channel but the in-memory state
// is not lost, since the next finalize event carries the full session again.
type PersistenceWorker struct {
	queue  *EventQueue
	store  SessionStore
	logger Logger

	maxAttempts int
	backoffMin  time.Duration
	backoffMax  time.Duration

	persistLiveUpdates bool

	failures chan Event
}

func NewPersistenceWorker(queue *EventQueue, store SessionStore, logger Logger, maxAttempts int, backoffMin, backoffMax time.Duration, persistLiveUpdates bool) *PersistenceWorker {
	return &PersistenceWorker{
		queue:              queue,
		store:              store,
		logger:             logger,
		maxAttempts:        maxAttempts,
		backoffMin:         backoffMin,
		backoffMax:         backoffMax,
		persistLiveUpdates: persistLiveUpdates,
		failures:           make(chan Event, 16),
	}
}

// Failures is the operator-visible channel of events whose retry budget was
// exhausted.
func (w *PersistenceWorker) Failures() <-chan Event {
	return w.failures
}

// Run consumes events until ctx is cancelled, then drains whatever the queue
// still holds so finalized history is not lost on shutdown.
func (w *PersistenceWorker) Run(ctx context.Context) error {
	for {
		event, ok := w.queue.Pop(ctx)

		if !ok {
			w.drain()

			return nil
		}

		handleCtx := ctx

		if ctx.Err() != nil {
			// shutting down: upserts for already-queued events must not be
			// aborted by the cancelled loop context.
			handleCtx = context.Background()
		}

		w.handle(handleCtx, event)
	}
}

func (w *PersistenceWorker) drain() {
	n := w.queue.Len()

	if n > 0 {
		w.logger.Infof("Draining %d queued events before shutdown", n)
	}

	for {
		event, ok := w.queue.TryPop()

		if !ok {
			return
		}

		w.handle(context.Background(), event)
	}
}

func (w *PersistenceWorker) handle(ctx context.Context, event Event) {
	if event.Kind == EventLiveUpdate && !w.persistLiveUpdates {
		return
	}

	if !event.Kind.IsFinal() {
		// best effort: superseded by later state, not worth a retry cycle.
		if err := w.store.UpsertSession(ctx, event.Session); err != nil {
			metricPersistenceFailures.Inc()
			w.logger.WithError(err).Debugf("Could not persist %s for session %s", event.Kind, event.SessionID)
		}

		return
	}

	backoff := w.backoffMin

	for attempt := 1; ; attempt++ {
		err := w.store.UpsertSession(ctx, event.Session)

		if err == nil {
			return
		}

		metricPersistenceFailures.Inc()

		if attempt >= w.maxAttempts {
			w.logger.WithError(err).Errorf("Giving up persisting %s for session %s after %d attempts", event.Kind, event.SessionID, attempt)

			select {
			case w.failures <- event:
			default:
				w.logger.Errorf("Persistence failure channel is full. Dropping failure report for session %s", event.SessionID)
			}

			return
		}

		metricPersistenceRetries.Inc()
		w.logger.WithError(err).Warnf("Could not persist %s for session %s (attempt %d/%d). Retrying in %s", event.Kind, event.SessionID, attempt, w.maxAttempts, backoff)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			// keep retrying during drain, but without sleeping forever.
		}

		backoff *= 2

		if backoff > w.backoffMax {
			backoff = w.backoffMax
		}
	}
}
