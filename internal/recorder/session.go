package recorder

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session is the durable history derived from the telemetry feed. Exactly one
// session is live at a time; ended sessions are immutable.
type Session struct {
	ID              uuid.UUID    `json:"id"`
	StartTime       time.Time    `json:"start_time"`
	SessionType     SessionType  `json:"session_type"`
	Track           string       `json:"track"`
	CarModel        string       `json:"car_model"`
	NumberOfSectors int          `json:"number_of_sectors"`
	CompletedLaps   int          `json:"completed_laps"`
	IsActive        bool         `json:"is_active"`
	Laps            []*Lap       `json:"laps"`
}

type Lap struct {
	LapNumber int           `json:"lap_number"`
	LapTime   time.Duration `json:"lap_time"`
	LapDelta  time.Duration `json:"lap_delta"`
	IsValid   bool          `json:"is_valid"`
	IsActive  bool          `json:"is_active"`
	Sectors   []*LapSector  `json:"sectors"`
}

type LapSector struct {
	SectorNumber int           `json:"sector_number"`
	SectorTime   time.Duration `json:"sector_time"`
	IsActive     bool          `json:"is_active"`
}

func NewSession(snapshot Snapshot, startTime time.Time) *Session {
	return &Session{
		ID:              uuid.New(),
		StartTime:       startTime,
		SessionType:     snapshot.SessionType,
		Track:           snapshot.Track,
		CarModel:        snapshot.CarModel,
		NumberOfSectors: snapshot.SectorCount,
		IsActive:        true,
	}
}

func (s *Session) String() string {
	return fmt.Sprintf("%s at %s (%s) - %d laps completed", s.SessionType, s.Track, s.CarModel, s.CompletedLaps)
}

// ActiveLap returns the lap currently being driven, or nil once the session
// has ended. At most one lap is active at a time.
func (s *Session) ActiveLap() *Lap {
	for i := len(s.Laps) - 1; i >= 0; i-- {
		if s.Laps[i].IsActive {
			return s.Laps[i]
		}
	}

	return nil
}

// BestLap returns the fastest completed valid lap. Laps marked invalid are
// recorded in full but are never eligible as the session best.
func (s *Session) BestLap() *Lap {
	var best *Lap

	for _, lap := range s.Laps {
		if lap.IsActive || !lap.IsValid || lap.LapTime <= 0 {
			continue
		}

		if best == nil || lap.LapTime < best.LapTime {
			best = lap
		}
	}

	return best
}

func (s *Session) LastLap() *Lap {
	if len(s.Laps) == 0 {
		return nil
	}

	return s.Laps[len(s.Laps)-1]
}

// Copy deep-copies the session tree. Emitted events carry copies so that the
// persistence worker never observes tracker mutations mid-flight.
func (s *Session) Copy() *Session {
	out := *s
	out.Laps = make([]*Lap, len(s.Laps))

	for i, lap := range s.Laps {
		lapCopy := *lap
		lapCopy.Sectors = make([]*LapSector, len(lap.Sectors))

		for j, sector := range lap.Sectors {
			sectorCopy := *sector
			lapCopy.Sectors[j] = &sectorCopy
		}

		out.Laps[i] = &lapCopy
	}

	return &out
}

func (l *Lap) ActiveSector() *LapSector {
	for i := len(l.Sectors) - 1; i >= 0; i-- {
		if l.Sectors[i].IsActive {
			return l.Sectors[i]
		}
	}

	return nil
}

// CompletedSectorTime is the sum of the finalized sector times within the lap.
func (l *Lap) CompletedSectorTime() time.Duration {
	var total time.Duration

	for _, sector := range l.Sectors {
		if !sector.IsActive {
			total += sector.SectorTime
		}
	}

	return total
}

func newLap(lapNumber int) *Lap {
	return &Lap{
		LapNumber: lapNumber,
		IsValid:   true,
		IsActive:  true,
		Sectors:   []*LapSector{newLapSector(0)},
	}
}

func newLapSector(sectorNumber int) *LapSector {
	return &LapSector{
		SectorNumber: sectorNumber,
		IsActive:     true,
	}
}
