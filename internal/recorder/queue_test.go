package recorder

import (
	"context"
	"testing"
	"time"
)

func queueEvent(kind EventKind, lapNumber int) Event {
	return Event{Kind: kind, LapNumber: lapNumber}
}

func TestQueuePreservesOrder(t *testing.T) {
	queue := NewEventQueue(8, testLogger())

	for i := 1; i <= 4; i++ {
		queue.Push(queueEvent(EventLapFinalized, i))
	}

	for i := 1; i <= 4; i++ {
		event, ok := queue.TryPop()

		if !ok || event.LapNumber != i {
			t.Fatalf("Expected lap %d at position %d, got %+v (ok: %v)", i, i, event, ok)
		}
	}

	if _, ok := queue.TryPop(); ok {
		t.Error("Expected the queue to be empty")
	}
}

func TestQueueEvictsOldestLiveUpdateFirst(t *testing.T) {
	queue := NewEventQueue(3, testLogger())

	queue.Push(queueEvent(EventLiveUpdate, 1))
	queue.Push(queueEvent(EventLiveUpdate, 2))
	queue.Push(queueEvent(EventLapFinalized, 3))

	// at capacity: the oldest live update makes room
	queue.Push(queueEvent(EventSessionEnded, 4))

	expected := []Event{
		queueEvent(EventLiveUpdate, 2),
		queueEvent(EventLapFinalized, 3),
		queueEvent(EventSessionEnded, 4),
	}

	for _, want := range expected {
		event, ok := queue.TryPop()

		if !ok || event.Kind != want.Kind || event.LapNumber != want.LapNumber {
			t.Fatalf("Expected %s lap %d, got %+v (ok: %v)", want.Kind, want.LapNumber, event, ok)
		}
	}
}

func TestQueueNeverDropsFinalizeEvents(t *testing.T) {
	queue := NewEventQueue(2, testLogger())

	queue.Push(queueEvent(EventLapFinalized, 1))
	queue.Push(queueEvent(EventLapFinalized, 2))
	queue.Push(queueEvent(EventSectorFinalized, 3))
	queue.Push(queueEvent(EventSessionEnded, 4))

	if queue.Len() != 4 {
		t.Fatalf("Expected all 4 undroppable events retained, got %d", queue.Len())
	}
}

func TestQueuePopBlocksUntilPush(t *testing.T) {
	queue := NewEventQueue(4, testLogger())

	go func() {
		time.Sleep(10 * time.Millisecond)
		queue.Push(queueEvent(EventLapFinalized, 1))
	}()

	event, ok := queue.Pop(context.Background())

	if !ok || event.LapNumber != 1 {
		t.Fatalf("Expected pushed event, got %+v (ok: %v)", event, ok)
	}
}

func TestQueuePopReturnsOnCancel(t *testing.T) {
	queue := NewEventQueue(4, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, ok := queue.Pop(ctx); ok {
		t.Error("Expected Pop to return false on a cancelled context")
	}
}
