// Package store persists derived session history to SQLite.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"justapengu.in/trackday/internal/recorder"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	start_time INTEGER NOT NULL,
	session_type INTEGER NOT NULL,
	track TEXT NOT NULL,
	car_model TEXT NOT NULL,
	number_of_sectors INTEGER NOT NULL,
	completed_laps INTEGER NOT NULL,
	best_lap_time INTEGER NOT NULL,
	is_active INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS laps (
	session_id TEXT NOT NULL,
	lap_number INTEGER NOT NULL,
	lap_time INTEGER NOT NULL,
	lap_delta INTEGER NOT NULL,
	is_valid INTEGER NOT NULL,
	is_active INTEGER NOT NULL,
	PRIMARY KEY (session_id, lap_number)
);

CREATE TABLE IF NOT EXISTS sectors (
	session_id TEXT NOT NULL,
	lap_number INTEGER NOT NULL,
	sector_number INTEGER NOT NULL,
	sector_time INTEGER NOT NULL,
	is_active INTEGER NOT NULL,
	PRIMARY KEY (session_id, lap_number, sector_number)
);

CREATE INDEX IF NOT EXISTS idx_sessions_start_time ON sessions (start_time DESC);
`

// SQLite implements recorder.SessionStore. Upserts replace the whole session
// tree in one transaction, which makes them idempotent on repeated input.
type SQLite struct {
	db     *sql.DB
	logger recorder.Logger
}

func NewSQLite(path string, logger recorder.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)

	if err != nil {
		return nil, errors.Wrapf(err, "could not open session store at %s", path)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()

		return nil, errors.Wrap(err, "could not initialise session store schema")
	}

	return &SQLite{db: db, logger: logger}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) UpsertSession(ctx context.Context, session *recorder.Session) error {
	tx, err := s.db.BeginTx(ctx, nil)

	if err != nil {
		return errors.Wrap(err, "could not begin upsert transaction")
	}

	defer func() {
		_ = tx.Rollback()
	}()

	var bestLapTime time.Duration

	if best := session.BestLap(); best != nil {
		bestLapTime = best.LapTime
	}

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions
			(id, start_time, session_type, track, car_model, number_of_sectors, completed_laps, best_lap_time, is_active)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID.String(),
		session.StartTime.UnixMilli(),
		int(session.SessionType),
		session.Track,
		session.CarModel,
		session.NumberOfSectors,
		session.CompletedLaps,
		bestLapTime.Milliseconds(),
		boolToInt(session.IsActive),
	)

	if err != nil {
		return errors.Wrapf(err, "could not upsert session %s", session.ID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM laps WHERE session_id = ?`, session.ID.String()); err != nil {
		return errors.Wrapf(err, "could not clear laps for session %s", session.ID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sectors WHERE session_id = ?`, session.ID.String()); err != nil {
		return errors.Wrapf(err, "could not clear sectors for session %s", session.ID)
	}

	for _, lap := range session.Laps {
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO laps (session_id, lap_number, lap_time, lap_delta, is_valid, is_active) VALUES (?, ?, ?, ?, ?, ?)`,
			session.ID.String(),
			lap.LapNumber,
			lap.LapTime.Milliseconds(),
			lap.LapDelta.Milliseconds(),
			boolToInt(lap.IsValid),
			boolToInt(lap.IsActive),
		)

		if err != nil {
			return errors.Wrapf(err, "could not insert lap %d for session %s", lap.LapNumber, session.ID)
		}

		for _, sector := range lap.Sectors {
			_, err = tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO sectors (session_id, lap_number, sector_number, sector_time, is_active) VALUES (?, ?, ?, ?, ?)`,
				session.ID.String(),
				lap.LapNumber,
				sector.SectorNumber,
				sector.SectorTime.Milliseconds(),
				boolToInt(sector.IsActive),
			)

			if err != nil {
				return errors.Wrapf(err, "could not insert sector %d of lap %d for session %s", sector.SectorNumber, lap.LapNumber, session.ID)
			}
		}
	}

	return errors.Wrapf(tx.Commit(), "could not commit upsert for session %s", session.ID)
}

func (s *SQLite) ListRecentSessions(ctx context.Context, limit int) ([]*recorder.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, start_time, session_type, track, car_model, number_of_sectors, completed_laps, is_active
			FROM sessions ORDER BY start_time DESC LIMIT ?`, limit)

	if err != nil {
		return nil, errors.Wrap(err, "could not list recent sessions")
	}

	defer rows.Close()

	var sessions []*recorder.Session

	for rows.Next() {
		session, err := scanSession(rows)

		if err != nil {
			return nil, err
		}

		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "could not read session rows")
	}

	for _, session := range sessions {
		if err := s.loadLaps(ctx, session); err != nil {
			return nil, err
		}
	}

	return sessions, nil
}

func (s *SQLite) GetSession(ctx context.Context, id string) (*recorder.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, start_time, session_type, track, car_model, number_of_sectors, completed_laps, is_active
			FROM sessions WHERE id = ?`, id)

	if err != nil {
		return nil, errors.Wrapf(err, "could not load session %s", id)
	}

	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, errors.Wrapf(err, "could not load session %s", id)
		}

		return nil, errors.Errorf("store: no session with id %s", id)
	}

	session, err := scanSession(rows)

	if err != nil {
		return nil, err
	}

	if err := s.loadLaps(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

func (s *SQLite) loadLaps(ctx context.Context, session *recorder.Session) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT lap_number, lap_time, lap_delta, is_valid, is_active FROM laps WHERE session_id = ? ORDER BY lap_number`,
		session.ID.String())

	if err != nil {
		return errors.Wrapf(err, "could not load laps for session %s", session.ID)
	}

	defer rows.Close()

	laps := make(map[int]*recorder.Lap)

	for rows.Next() {
		var lap recorder.Lap
		var lapTime, lapDelta int64
		var isValid, isActive int

		if err := rows.Scan(&lap.LapNumber, &lapTime, &lapDelta, &isValid, &isActive); err != nil {
			return errors.Wrapf(err, "could not scan lap for session %s", session.ID)
		}

		lap.LapTime = time.Duration(lapTime) * time.Millisecond
		lap.LapDelta = time.Duration(lapDelta) * time.Millisecond
		lap.IsValid = isValid == 1
		lap.IsActive = isActive == 1

		laps[lap.LapNumber] = &lap
		session.Laps = append(session.Laps, &lap)
	}

	if err := rows.Err(); err != nil {
		return errors.Wrapf(err, "could not read lap rows for session %s", session.ID)
	}

	return s.loadSectors(ctx, session, laps)
}

func (s *SQLite) loadSectors(ctx context.Context, session *recorder.Session, laps map[int]*recorder.Lap) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT lap_number, sector_number, sector_time, is_active FROM sectors WHERE session_id = ? ORDER BY lap_number, sector_number`,
		session.ID.String())

	if err != nil {
		return errors.Wrapf(err, "could not load sectors for session %s", session.ID)
	}

	defer rows.Close()

	for rows.Next() {
		var lapNumber int
		var sector recorder.LapSector
		var sectorTime int64
		var isActive int

		if err := rows.Scan(&lapNumber, &sector.SectorNumber, &sectorTime, &isActive); err != nil {
			return errors.Wrapf(err, "could not scan sector for session %s", session.ID)
		}

		sector.SectorTime = time.Duration(sectorTime) * time.Millisecond
		sector.IsActive = isActive == 1

		lap, ok := laps[lapNumber]

		if !ok {
			s.logger.Warnf("Sector row references missing lap %d in session %s", lapNumber, session.ID)
			continue
		}

		lap.Sectors = append(lap.Sectors, &sector)
	}

	return errors.Wrapf(rows.Err(), "could not read sector rows for session %s", session.ID)
}

func scanSession(rows *sql.Rows) (*recorder.Session, error) {
	var session recorder.Session
	var id string
	var startTime int64
	var sessionType, isActive int

	err := rows.Scan(&id, &startTime, &sessionType, &session.Track, &session.CarModel, &session.NumberOfSectors, &session.CompletedLaps, &isActive)

	if err != nil {
		return nil, errors.Wrap(err, "could not scan session row")
	}

	session.ID, err = uuid.Parse(id)

	if err != nil {
		return nil, errors.Wrapf(err, "could not parse session id %s", id)
	}

	session.StartTime = time.UnixMilli(startTime).UTC()
	session.SessionType = recorder.SessionType(sessionType)
	session.IsActive = isActive == 1

	return &session, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
