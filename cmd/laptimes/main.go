// laptimes prints the most recently started sessions from a recorder
// database as a table.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sirupsen/logrus"

	"justapengu.in/trackday/internal/recorder"
	"justapengu.in/trackday/internal/recorder/store"
)

var (
	storePath string
	limit     int
	showLaps  bool
)

func init() {
	flag.StringVar(&storePath, "db", "./trackday.db", "session store path")
	flag.IntVar(&limit, "n", 20, "number of sessions to show")
	flag.BoolVar(&showLaps, "laps", false, "show individual laps")
	flag.Parse()
}

func main() {
	logger := logrus.New()

	sessionStore, err := store.NewSQLite(storePath, logger)

	if err != nil {
		logger.WithError(err).Fatal("Could not open session store")
	}

	defer sessionStore.Close()

	sessions, err := sessionStore.ListRecentSessions(context.Background(), limit)

	if err != nil {
		logger.WithError(err).Fatal("Could not list sessions")
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Started", "Type", "Track", "Car", "Laps", "Best Lap"})

	for _, session := range sessions {
		best := "-"

		if bestLap := session.BestLap(); bestLap != nil {
			best = formatLapTime(bestLap.LapTime)
		}

		t.AppendRow(table.Row{
			session.StartTime.Local().Format("2006-01-02 15:04"),
			session.SessionType.String(),
			session.Track,
			session.CarModel,
			session.CompletedLaps,
			best,
		})
	}

	t.Render()

	if showLaps {
		for _, session := range sessions {
			renderLaps(session)
		}
	}
}

func renderLaps(session *recorder.Session) {
	fmt.Printf("\n%s\n", session)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Lap", "Time", "Delta", "Valid"})

	for _, lap := range session.Laps {
		t.AppendRow(table.Row{
			lap.LapNumber,
			formatLapTime(lap.LapTime),
			lap.LapDelta.String(),
			lap.IsValid,
		})
	}

	t.Render()
}

func formatLapTime(d time.Duration) string {
	if d <= 0 {
		return "-"
	}

	minutes := int(d.Minutes())
	seconds := d - time.Duration(minutes)*time.Minute

	return fmt.Sprintf("%d:%06.3f", minutes, seconds.Seconds())
}
