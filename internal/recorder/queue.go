package recorder

import (
	"context"
	"sync"
)

// EventQueue is the bounded buffer between the tracker and the persistence
// worker. At capacity the oldest LiveUpdate event is evicted first: live
// updates are superseded by later state and safe to lose. Finalize and
// session events are never dropped, so the queue may transiently exceed its
// capacity when it holds nothing droppable rather than stall the poll loop.
type EventQueue struct {
	mu     sync.Mutex
	events []Event

	capacity int
	signal   chan struct{}
	logger   Logger

	droppedFn func()
}

func NewEventQueue(capacity int, logger Logger) *EventQueue {
	return &EventQueue{
		capacity: capacity,
		signal:   make(chan struct{}, 1),
		logger:   logger,
	}
}

func (q *EventQueue) Push(event Event) {
	q.mu.Lock()

	if len(q.events) >= q.capacity {
		if !q.evictOldestLiveUpdate() {
			q.logger.Warnf("Event queue is full of undroppable events (%d queued). Exceeding capacity", len(q.events))
		}
	}

	q.events = append(q.events, event)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Pop blocks until an event is available or ctx is cancelled.
func (q *EventQueue) Pop(ctx context.Context) (Event, bool) {
	for {
		if event, ok := q.TryPop(); ok {
			return event, true
		}

		select {
		case <-ctx.Done():
			// one final check so cancellation still drains queued events
			// via repeated TryPop calls by the caller.
			return Event{}, false
		case <-q.signal:
		}
	}
}

// TryPop removes the head of the queue without blocking.
func (q *EventQueue) TryPop() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	event := q.events[0]
	q.events = q.events[1:]

	return event, true
}

func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.events)
}

// evictOldestLiveUpdate must be called with the mutex held.
func (q *EventQueue) evictOldestLiveUpdate() bool {
	for i, event := range q.events {
		if event.Kind == EventLiveUpdate {
			q.events = append(q.events[:i], q.events[i+1:]...)

			if q.droppedFn != nil {
				q.droppedFn()
			}

			return true
		}
	}

	return false
}
