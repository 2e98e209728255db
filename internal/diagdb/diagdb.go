// Package diagdb persists diagnosis results to SQLite so operators can
// review the history of a machine between sessions. The engine itself is
// stateless; this log is the only durable state in the service.
package diagdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/diagnose"
)

type DB struct {
	*sql.DB
}

// NewDB opens (creating if absent) the diagnosis log at path. Pass
// ":memory:" for an ephemeral store.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS diagnoses (
			diagnosis_id INTEGER PRIMARY KEY AUTOINCREMENT,
			signal_id TEXT,
			machine TEXT,
			mode TEXT NOT NULL,
			zone TEXT NOT NULL,
			rms_velocity DOUBLE NOT NULL,
			finding_count INTEGER NOT NULL,
			result_json TEXT NOT NULL,
			timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_diagnoses_machine ON diagnoses(machine, timestamp);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// Record is one row of the diagnosis log.
type Record struct {
	ID           int64              `json:"diagnosis_id"`
	SignalID     string             `json:"signal_id,omitempty"`
	Machine      string             `json:"machine,omitempty"`
	Mode         string             `json:"mode"`
	Zone         string             `json:"zone"`
	RMSVelocity  float64            `json:"rms_velocity_mm_s"`
	FindingCount int                `json:"finding_count"`
	Result       diagnose.Diagnosis `json:"result"`
	Timestamp    time.Time          `json:"timestamp"`
}

// RecordDiagnosis appends a diagnosis to the log and returns its row id.
// The full result is stored as JSON; the indexed columns exist for listing
// and trend queries without deserialising every row.
func (db *DB) RecordDiagnosis(signalID, machine string, diag diagnose.Diagnosis) (int64, error) {
	blob, err := json.Marshal(diag)
	if err != nil {
		return 0, fmt.Errorf("diagdb: marshal result: %w", err)
	}
	res, err := db.Exec(
		"INSERT INTO diagnoses (signal_id, machine, mode, zone, rms_velocity, finding_count, result_json) VALUES (?, ?, ?, ?, ?, ?, ?)",
		signalID, machine, string(diag.Context.Mode), string(diag.Severity.Zone),
		diag.Severity.RMSVelocity, len(diag.Findings), string(blob),
	)
	if err != nil {
		return 0, fmt.Errorf("diagdb: insert: %w", err)
	}
	return res.LastInsertId()
}

// History returns the most recent diagnoses for a machine, newest first.
// An empty machine name returns the log across all machines.
func (db *DB) History(machine string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	query := "SELECT diagnosis_id, signal_id, machine, mode, zone, rms_velocity, finding_count, result_json, timestamp FROM diagnoses"
	args := []interface{}{}
	if machine != "" {
		query += " WHERE machine = ?"
		args = append(args, machine)
	}
	query += " ORDER BY diagnosis_id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("diagdb: query: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var blob string
		if err := rows.Scan(&r.ID, &r.SignalID, &r.Machine, &r.Mode, &r.Zone,
			&r.RMSVelocity, &r.FindingCount, &blob, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("diagdb: scan: %w", err)
		}
		if err := json.Unmarshal([]byte(blob), &r.Result); err != nil {
			return nil, fmt.Errorf("diagdb: unmarshal row %d: %w", r.ID, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// ZoneTrend returns the recent severity zones for a machine, oldest first,
// for tracking degradation over time.
func (db *DB) ZoneTrend(machine string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(
		"SELECT zone FROM (SELECT diagnosis_id, zone FROM diagnoses WHERE machine = ? ORDER BY diagnosis_id DESC LIMIT ?) ORDER BY diagnosis_id ASC",
		machine, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("diagdb: query: %w", err)
	}
	defer rows.Close()

	var zones []string
	for rows.Next() {
		var z string
		if err := rows.Scan(&z); err != nil {
			return nil, err
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}
