package recorder

import (
	"testing"
	"time"
)

func TestSessionBestLap(t *testing.T) {
	bestLapTests := []struct {
		name     string
		laps     []*Lap
		expected int // lap number, 0 for none
	}{
		{
			name:     "no laps",
			expected: 0,
		},
		{
			name: "fastest valid lap wins",
			laps: []*Lap{
				{LapNumber: 1, LapTime: 80 * time.Second, IsValid: true},
				{LapNumber: 2, LapTime: 75 * time.Second, IsValid: true},
				{LapNumber: 3, LapTime: 78 * time.Second, IsValid: true},
			},
			expected: 2,
		},
		{
			name: "invalid laps are never eligible",
			laps: []*Lap{
				{LapNumber: 1, LapTime: 70 * time.Second, IsValid: false},
				{LapNumber: 2, LapTime: 75 * time.Second, IsValid: true},
			},
			expected: 2,
		},
		{
			name: "active laps are skipped",
			laps: []*Lap{
				{LapNumber: 1, LapTime: 75 * time.Second, IsValid: true},
				{LapNumber: 2, LapTime: 10 * time.Second, IsValid: true, IsActive: true},
			},
			expected: 1,
		},
		{
			name: "laps without a time are skipped",
			laps: []*Lap{
				{LapNumber: 1, LapTime: 0, IsValid: true},
			},
			expected: 0,
		},
	}

	for _, test := range bestLapTests {
		t.Run(test.name, func(t *testing.T) {
			session := &Session{Laps: test.laps}

			best := session.BestLap()

			if test.expected == 0 {
				if best != nil {
					t.Errorf("Expected no best lap, got lap %d", best.LapNumber)
				}

				return
			}

			if best == nil || best.LapNumber != test.expected {
				t.Errorf("Expected lap %d as best, got %+v", test.expected, best)
			}
		})
	}
}

func TestSessionCopyIsDeep(t *testing.T) {
	session := NewSession(testSnapshot(0, 0), time.Now())
	session.Laps = append(session.Laps, newLap(1))

	clone := session.Copy()

	session.Laps[0].LapTime = time.Minute
	session.Laps[0].Sectors[0].SectorTime = 20 * time.Second

	if clone.Laps[0].LapTime == time.Minute {
		t.Error("Expected copied lap to be isolated from the original")
	}

	if clone.Laps[0].Sectors[0].SectorTime == 20*time.Second {
		t.Error("Expected copied sector to be isolated from the original")
	}
}

func TestLapCompletedSectorTime(t *testing.T) {
	lap := &Lap{
		Sectors: []*LapSector{
			{SectorNumber: 0, SectorTime: 20 * time.Second},
			{SectorNumber: 1, SectorTime: 30 * time.Second},
			{SectorNumber: 2, SectorTime: 5 * time.Second, IsActive: true},
		},
	}

	if total := lap.CompletedSectorTime(); total != 50*time.Second {
		t.Errorf("Expected 50s of completed sectors, got %s", total)
	}
}
