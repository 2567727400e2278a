package recorder

import (
	"time"
)

// SessionTracker consumes one snapshot at a time and incrementally rebuilds
// the session/lap/sector tree, detecting rollovers by comparing consecutive
// snapshots. All state is owned by the tracker and mutated on the poll loop
// only, so no locking is required on the tree.
type SessionTracker struct {
	logger Logger
	now    func() time.Time

	currentSession *Session
	lastSnapshot   Snapshot
}

func NewSessionTracker(logger Logger) *SessionTracker {
	return &SessionTracker{
		logger: logger,
		now:    time.Now,
	}
}

func (t *SessionTracker) CurrentSession() *Session {
	return t.currentSession
}

// Update applies one snapshot to the tracked state and returns the lifecycle
// events it produced. When a single snapshot finalises several entities the
// events are ordered sector, then lap, then session, so a consumer never sees
// a parent finalised before its child.
func (t *SessionTracker) Update(snapshot Snapshot) []Event {
	var events []Event

	switch {
	case t.currentSession == nil:
		events = t.startSession(snapshot)
	case snapshot.CompletedLaps < t.lastSnapshot.CompletedLaps:
		events = t.rolloverSession(snapshot)
	case snapshot.CompletedLaps > t.lastSnapshot.CompletedLaps:
		events = t.rolloverLap(snapshot)
	case snapshot.CurrentSectorIndex != t.lastSnapshot.CurrentSectorIndex:
		events = t.rolloverSector(snapshot)
	default:
		events = t.liveUpdate(snapshot)
	}

	t.lastSnapshot = snapshot

	return events
}

// Flush ends the in-flight session as if the feed had stopped cleanly. Unlike
// a mid-lap session restart, the active lap and sector keep their last known
// live values rather than being discarded.
func (t *SessionTracker) Flush() []Event {
	if t.currentSession == nil {
		return nil
	}

	t.logger.Infof("Finalising in-flight session state")

	return t.endCurrentSession(false)
}

func (t *SessionTracker) startSession(snapshot Snapshot) []Event {
	session := NewSession(snapshot, t.now())
	session.CompletedLaps = snapshot.CompletedLaps

	lap := newLap(snapshot.CompletedLaps + 1)

	if !snapshot.IsValid {
		lap.IsValid = false
	}

	session.Laps = append(session.Laps, lap)

	t.currentSession = session
	t.logger.Infof("Started session: %s", session)

	return []Event{eventFor(session, EventSessionStarted, lap.LapNumber, 0)}
}

func (t *SessionTracker) rolloverSession(snapshot Snapshot) []Event {
	t.logger.Infof("Lap counter decreased from %d to %d. Session was restarted", t.lastSnapshot.CompletedLaps, snapshot.CompletedLaps)

	events := t.endCurrentSession(true)

	return append(events, t.startSession(snapshot)...)
}

func (t *SessionTracker) rolloverLap(snapshot Snapshot) []Event {
	session := t.currentSession

	var events []Event

	lap := session.ActiveLap()

	if lap == nil {
		// the session has no lap in progress to complete. Anomalous, but
		// recoverable: open a fresh lap and carry on.
		t.logger.Warnf("Lap completed with no lap in progress. Opening lap %d", snapshot.CompletedLaps+1)

		session.Laps = append(session.Laps, newLap(snapshot.CompletedLaps+1))
		session.CompletedLaps = snapshot.CompletedLaps

		return []Event{eventFor(session, EventLiveUpdate, snapshot.CompletedLaps+1, 0)}
	}

	if sector := lap.ActiveSector(); sector != nil {
		sector.SectorTime = snapshot.PreviousSectorTime
		sector.IsActive = false

		events = append(events, eventFor(session, EventSectorFinalized, lap.LapNumber, sector.SectorNumber))
	}

	lap.LapTime = snapshot.PreviousLapTime

	if best := session.BestLap(); best != nil {
		lap.LapDelta = lap.LapTime - best.LapTime
	}

	lap.IsActive = false
	session.CompletedLaps = snapshot.CompletedLaps

	t.logger.Infof("Lap %d completed in %s (valid: %v)", lap.LapNumber, lap.LapTime, lap.IsValid)

	events = append(events, eventFor(session, EventLapFinalized, lap.LapNumber, 0))

	next := newLap(snapshot.CompletedLaps + 1)

	if !snapshot.IsValid {
		next.IsValid = false
	}

	session.Laps = append(session.Laps, next)

	return events
}

func (t *SessionTracker) rolloverSector(snapshot Snapshot) []Event {
	session := t.currentSession
	lap := session.ActiveLap()

	if lap == nil {
		t.logger.Warnf("Sector changed with no lap in progress. Ignoring")

		return []Event{eventFor(session, EventLiveUpdate, 0, snapshot.CurrentSectorIndex)}
	}

	var events []Event

	if sector := lap.ActiveSector(); sector != nil {
		if snapshot.CurrentSectorIndex < sector.SectorNumber {
			t.logger.Warnf("Sector index went backwards from %d to %d without a lap rollover. Treating as a sector restart", sector.SectorNumber, snapshot.CurrentSectorIndex)
		}

		sector.SectorTime = snapshot.PreviousSectorTime
		sector.IsActive = false

		events = append(events, eventFor(session, EventSectorFinalized, lap.LapNumber, sector.SectorNumber))
	}

	if snapshot.CurrentSectorIndex >= session.NumberOfSectors {
		t.logger.Warnf("Sector index %d is out of range for a track with %d sectors", snapshot.CurrentSectorIndex, session.NumberOfSectors)
	}

	if !snapshot.IsValid {
		lap.IsValid = false
	}

	lap.Sectors = append(lap.Sectors, newLapSector(snapshot.CurrentSectorIndex))

	return events
}

func (t *SessionTracker) liveUpdate(snapshot Snapshot) []Event {
	session := t.currentSession
	lap := session.ActiveLap()

	var lapNumber, sectorNumber int

	if lap != nil {
		lap.LapTime = snapshot.CurrentLapTime
		lapNumber = lap.LapNumber

		if !snapshot.IsValid {
			lap.IsValid = false
		}

		if sector := lap.ActiveSector(); sector != nil {
			sectorNumber = sector.SectorNumber

			if elapsed := snapshot.CurrentLapTime - lap.CompletedSectorTime(); elapsed > 0 {
				sector.SectorTime = elapsed
			}
		}
	}

	return []Event{eventFor(session, EventLiveUpdate, lapNumber, sectorNumber)}
}

// endCurrentSession finalises the open session. When discardActiveLap is set
// (a mid-lap session restart) the in-progress lap and its sectors are dropped:
// the feed loses their data with the restart and it cannot be recovered. On a
// clean stop the active lap and sector are finalised with their live values.
func (t *SessionTracker) endCurrentSession(discardActiveLap bool) []Event {
	session := t.currentSession

	var events []Event

	if lap := session.ActiveLap(); lap != nil {
		if discardActiveLap {
			t.logger.Warnf("Discarding partial lap %d and its sectors", lap.LapNumber)

			session.Laps = session.Laps[:len(session.Laps)-1]
		} else {
			if sector := lap.ActiveSector(); sector != nil {
				sector.IsActive = false

				events = append(events, eventFor(session, EventSectorFinalized, lap.LapNumber, sector.SectorNumber))
			}

			lap.IsActive = false

			events = append(events, eventFor(session, EventLapFinalized, lap.LapNumber, 0))
		}
	}

	session.IsActive = false

	t.logSessionSummary(session)

	events = append(events, eventFor(session, EventSessionEnded, 0, 0))

	t.currentSession = nil

	return events
}

func (t *SessionTracker) logSessionSummary(session *Session) {
	t.logger.Infof("Session ended: %s", session)

	for _, lap := range session.Laps {
		t.logger.Printf("Lap %d: %s (valid: %v, sectors: %d)", lap.LapNumber, lap.LapTime, lap.IsValid, len(lap.Sectors))
	}

	if best := session.BestLap(); best != nil {
		t.logger.Infof("Best lap: %d in %s", best.LapNumber, best.LapTime)
	}
}

func eventFor(session *Session, kind EventKind, lapNumber, sectorNumber int) Event {
	return Event{
		Kind:         kind,
		SessionID:    session.ID,
		LapNumber:    lapNumber,
		SectorNumber: sectorNumber,
		Session:      session.Copy(),
	}
}
