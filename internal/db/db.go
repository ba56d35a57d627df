// Package db persists completed putts to sqlite as an append-only session
// log. The log is write-only from the pipeline's perspective: nothing is ever
// read back into tracker or putt state, so a restart always begins a fresh
// session.
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/fairway-data/putt.report/internal/putt"
)

// DB wraps the sqlite connection used for the putt log.
type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the sqlite database at path and applies any
// pending schema migrations.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{sqlDB}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// PuttRow is one persisted putt record.
type PuttRow struct {
	PuttID        string    `json:"putt_id"`
	SessionID     string    `json:"session_id"`
	PuttNumber    int       `json:"putt_number"`
	LaunchSpeed   float64   `json:"launch_speed"`
	PeakSpeed     float64   `json:"peak_speed"`
	TotalDistance float64   `json:"total_distance"`
	BreakDistance float64   `json:"break_distance"`
	TimeInMotion  float64   `json:"time_in_motion"`
	StartX        float64   `json:"start_x"`
	StartY        float64   `json:"start_y"`
	FinalX        float64   `json:"final_x"`
	FinalY        float64   `json:"final_y"`
	CompletedAt   time.Time `json:"completed_at"`
}

// RecordPutt appends a completed putt to the log.
func (db *DB) RecordPutt(sessionID string, p putt.Data) error {
	_, err := db.Exec(`
		INSERT INTO putts (
			putt_id, session_id, putt_number,
			launch_speed, peak_speed, total_distance, break_distance, time_in_motion,
			start_x, start_y, final_x, final_y, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), sessionID, p.PuttNumber,
		p.LaunchSpeed, p.PeakSpeed, p.TotalDistance, p.BreakDistance, p.TimeInMotion,
		p.StartX, p.StartY, p.FinalX, p.FinalY, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record putt: %w", err)
	}
	return nil
}

// SessionPutts returns all persisted putts for a session in putt order.
func (db *DB) SessionPutts(sessionID string) ([]PuttRow, error) {
	rows, err := db.Query(`
		SELECT putt_id, session_id, putt_number,
		       launch_speed, peak_speed, total_distance, break_distance, time_in_motion,
		       start_x, start_y, final_x, final_y, completed_at
		FROM putts
		WHERE session_id = ?
		ORDER BY putt_number`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query putts: %w", err)
	}
	defer rows.Close()

	var putts []PuttRow
	for rows.Next() {
		var p PuttRow
		if err := rows.Scan(
			&p.PuttID, &p.SessionID, &p.PuttNumber,
			&p.LaunchSpeed, &p.PeakSpeed, &p.TotalDistance, &p.BreakDistance, &p.TimeInMotion,
			&p.StartX, &p.StartY, &p.FinalX, &p.FinalY, &p.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan putt row: %w", err)
		}
		putts = append(putts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return putts, nil
}

// SessionIDs returns the distinct session IDs present in the log, most
// recent first.
func (db *DB) SessionIDs() ([]string, error) {
	rows, err := db.Query(`
		SELECT session_id FROM putts
		GROUP BY session_id
		ORDER BY MAX(completed_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
