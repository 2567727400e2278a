package recorder

import (
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestSnapshotRoundTrip(t *testing.T) {
	original := Snapshot{
		Status:             GameStatusLive,
		SessionType:        SessionTypeQualifying,
		Track:              "ks_nordschleife",
		CarModel:           "ferrari_488_gt3",
		SectorCount:        3,
		NumberOfCars:       24,
		Clock:              42 * time.Minute,
		CompletedLaps:      7,
		BestLapTime:        6*time.Minute + 52*time.Second,
		PreviousLapTime:    7 * time.Minute,
		CurrentLapTime:     3 * time.Minute,
		CurrentSectorIndex: 1,
		PreviousSectorTime: 2 * time.Minute,
		IsValid:            true,
		IsInPitLane:        false,
		IsInPit:            false,
	}

	buf := EncodeSnapshot(original)

	if len(buf) != SnapshotSchemaSize {
		t.Fatalf("Expected an encoded page of %d bytes, got %d", SnapshotSchemaSize, len(buf))
	}

	decoded, err := DecodeSnapshot(buf)

	if err != nil {
		t.Fatalf("Expected page to decode, got: %s", err)
	}

	if decoded != original {
		t.Errorf("Expected %+v, got %+v", original, decoded)
	}
}

func TestDecodeSnapshotRejectsWrongSize(t *testing.T) {
	sizes := []int{0, 1, SnapshotSchemaSize - 1, SnapshotSchemaSize + 1, SnapshotSchemaSize * 2}

	for _, size := range sizes {
		_, err := DecodeSnapshot(make([]byte, size))

		if !errors.Is(err, ErrMalformedSnapshot) {
			t.Errorf("Expected ErrMalformedSnapshot for a %d byte buffer, got: %v", size, err)
		}
	}
}

func TestDecodeSnapshotTruncatesStrings(t *testing.T) {
	snapshot := testSnapshot(0, 0)
	snapshot.Track = "a_track_name_well_beyond_the_thirty_two_byte_field_width"

	decoded, err := DecodeSnapshot(EncodeSnapshot(snapshot))

	if err != nil {
		t.Fatalf("Expected page to decode, got: %s", err)
	}

	if len(decoded.Track) != snapshotStringSize {
		t.Errorf("Expected track name truncated to %d bytes, got %q", snapshotStringSize, decoded.Track)
	}
}
