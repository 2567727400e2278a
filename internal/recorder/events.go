package recorder

import "github.com/google/uuid"

type EventKind int

const (
	EventSessionStarted EventKind = iota
	EventSessionEnded
	EventLapFinalized
	EventSectorFinalized
	EventLiveUpdate
)

func (k EventKind) String() string {
	switch k {
	case EventSessionStarted:
		return "SessionStarted"
	case EventSessionEnded:
		return "SessionEnded"
	case EventLapFinalized:
		return "LapFinalized"
	case EventSectorFinalized:
		return "SectorFinalized"
	case EventLiveUpdate:
		return "LiveUpdate"
	default:
		return "Unknown Event"
	}
}

// IsFinal reports whether the event represents durable history. Final events
// are never dropped from the queue and are redelivered until acknowledged.
func (k EventKind) IsFinal() bool {
	switch k {
	case EventSessionEnded, EventLapFinalized, EventSectorFinalized:
		return true
	default:
		return false
	}
}

// Event is the closed variant emitted by the tracker, one kind per lifecycle
// transition. Session always holds a deep copy taken at emission time.
type Event struct {
	Kind         EventKind
	SessionID    uuid.UUID
	LapNumber    int
	SectorNumber int
	Session      *Session
}
