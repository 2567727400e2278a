package recorder

import (
	"encoding/binary"
	"strings"
	"time"
)

type GameStatus int32

const (
	GameStatusOff    GameStatus = 0
	GameStatusReplay GameStatus = 1
	GameStatusLive   GameStatus = 2
	GameStatusPause  GameStatus = 3
)

func (g GameStatus) String() string {
	switch g {
	case GameStatusOff:
		return "Off"
	case GameStatusReplay:
		return "Replay"
	case GameStatusLive:
		return "Live"
	case GameStatusPause:
		return "Pause"
	default:
		return "Unknown Status"
	}
}

type SessionType int32

const (
	SessionTypeUnknown    SessionType = -1
	SessionTypePractice   SessionType = 0
	SessionTypeQualifying SessionType = 1
	SessionTypeRace       SessionType = 2
	SessionTypeHotlap     SessionType = 3
	SessionTypeTimeAttack SessionType = 4
	SessionTypeDrift      SessionType = 5
	SessionTypeDrag       SessionType = 6
)

func (s SessionType) String() string {
	switch s {
	case SessionTypePractice:
		return "Practice"
	case SessionTypeQualifying:
		return "Qualifying"
	case SessionTypeRace:
		return "Race"
	case SessionTypeHotlap:
		return "Hotlap"
	case SessionTypeTimeAttack:
		return "Time Attack"
	case SessionTypeDrift:
		return "Drift"
	case SessionTypeDrag:
		return "Drag"
	default:
		return "Unknown Session Type"
	}
}

// Snapshot is one immutable sample of the live telemetry page. Fields mirror
// the exported shared memory layout, with times decoded to time.Duration.
type Snapshot struct {
	Status             GameStatus
	SessionType        SessionType
	Track              string
	CarModel           string
	SectorCount        int
	NumberOfCars       int
	Clock              time.Duration
	CompletedLaps      int
	BestLapTime        time.Duration
	PreviousLapTime    time.Duration
	CurrentLapTime     time.Duration
	CurrentSectorIndex int
	PreviousSectorTime time.Duration
	IsValid            bool
	IsInPitLane        bool
	IsInPit            bool
}

const (
	snapshotStringSize = 32

	// 11 int32 fields, 3 int32 flags and two fixed-width strings.
	SnapshotSchemaSize = 14*4 + 2*snapshotStringSize
)

// DecodeSnapshot interprets a raw telemetry page field by field. The buffer
// length is validated against the schema size before any field is read;
// a mismatch surfaces ErrMalformedSnapshot rather than a misread page.
func DecodeSnapshot(buf []byte) (Snapshot, error) {
	if len(buf) != SnapshotSchemaSize {
		return Snapshot{}, ErrMalformedSnapshot
	}

	d := pageDecoder{buf: buf}

	snapshot := Snapshot{
		Status:             GameStatus(d.int32()),
		SessionType:        SessionType(d.int32()),
		Track:              d.str(),
		CarModel:           d.str(),
		SectorCount:        int(d.int32()),
		NumberOfCars:       int(d.int32()),
		Clock:              d.duration(),
		CompletedLaps:      int(d.int32()),
		BestLapTime:        d.duration(),
		PreviousLapTime:    d.duration(),
		CurrentLapTime:     d.duration(),
		CurrentSectorIndex: int(d.int32()),
		PreviousSectorTime: d.duration(),
		IsValid:            d.bool32(),
		IsInPitLane:        d.bool32(),
		IsInPit:            d.bool32(),
	}

	return snapshot, nil
}

// EncodeSnapshot writes a snapshot back into its page representation.
func EncodeSnapshot(snapshot Snapshot) []byte {
	e := pageEncoder{buf: make([]byte, 0, SnapshotSchemaSize)}

	e.int32(int32(snapshot.Status))
	e.int32(int32(snapshot.SessionType))
	e.str(snapshot.Track)
	e.str(snapshot.CarModel)
	e.int32(int32(snapshot.SectorCount))
	e.int32(int32(snapshot.NumberOfCars))
	e.duration(snapshot.Clock)
	e.int32(int32(snapshot.CompletedLaps))
	e.duration(snapshot.BestLapTime)
	e.duration(snapshot.PreviousLapTime)
	e.duration(snapshot.CurrentLapTime)
	e.int32(int32(snapshot.CurrentSectorIndex))
	e.duration(snapshot.PreviousSectorTime)
	e.bool32(snapshot.IsValid)
	e.bool32(snapshot.IsInPitLane)
	e.bool32(snapshot.IsInPit)

	return e.buf
}

type pageDecoder struct {
	buf []byte
	pos int
}

func (d *pageDecoder) int32() int32 {
	v := int32(binary.LittleEndian.Uint32(d.buf[d.pos:]))
	d.pos += 4

	return v
}

// durations are carried on the page as int32 milliseconds.
func (d *pageDecoder) duration() time.Duration {
	return time.Duration(d.int32()) * time.Millisecond
}

func (d *pageDecoder) bool32() bool {
	return d.int32() != 0
}

func (d *pageDecoder) str() string {
	v := d.buf[d.pos : d.pos+snapshotStringSize]
	d.pos += snapshotStringSize

	return strings.TrimRight(string(v), "\x00")
}

type pageEncoder struct {
	buf []byte
}

func (e *pageEncoder) int32(v int32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(v))
}

func (e *pageEncoder) duration(v time.Duration) {
	e.int32(int32(v.Milliseconds()))
}

func (e *pageEncoder) bool32(v bool) {
	if v {
		e.int32(1)
	} else {
		e.int32(0)
	}
}

func (e *pageEncoder) str(v string) {
	fixed := make([]byte, snapshotStringSize)
	copy(fixed, v)

	e.buf = append(e.buf, fixed...)
}
