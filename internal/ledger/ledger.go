// Package ledger provides an append-only history of backup runs.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event in the ledger
type EventType string

const (
	EventDiscoverySucceeded    EventType = "discovery_succeeded"
	EventDiscoveryFailed       EventType = "discovery_failed"
	EventRegistrationSucceeded EventType = "registration_succeeded"
	EventRegistrationPending   EventType = "registration_pending"
	EventBackupCreated         EventType = "backup_created"
)

// Entry represents a single event in the ledger
type Entry struct {
	ID        int64
	RunID     string
	EventType EventType
	Timestamp time.Time
	Payload   map[string]any
}

// Ledger provides append-only event logging
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new Ledger using the provided database connection
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// NewRunID returns a fresh identifier for one invocation of the tool.
func NewRunID() string {
	return uuid.NewString()
}

// Append adds a new event to the ledger
func (l *Ledger) Append(runID string, eventType EventType, payload map[string]any) error {
	var payloadJSON []byte
	var err error

	if payload != nil {
		payloadJSON, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
	}

	_, err = l.db.Exec(
		`INSERT INTO run_ledger (run_id, event_type, timestamp, payload) VALUES (?, ?, ?, ?)`,
		runID, string(eventType), l.now().UTC().UnixMilli(), string(payloadJSON),
	)
	return err
}

// GetByRun returns the entries of one run in insertion order
func (l *Ledger) GetByRun(runID string) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, run_id, event_type, timestamp, payload
		FROM run_ledger
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

func (l *Ledger) scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var payloadStr sql.NullString
		var timestamp int64

		if err := rows.Scan(&entry.ID, &entry.RunID, &entry.EventType, &timestamp, &payloadStr); err != nil {
			return nil, err
		}

		entry.Timestamp = time.UnixMilli(timestamp).UTC()

		if payloadStr.Valid && payloadStr.String != "" {
			entry.Payload = make(map[string]any)
			if err := json.Unmarshal([]byte(payloadStr.String), &entry.Payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// Recorder appends events for a single run. A nil Recorder discards everything.
type Recorder struct {
	ledger *Ledger
	runID  string
}

// NewRecorder binds a ledger to a run id.
func NewRecorder(l *Ledger, runID string) *Recorder {
	return &Recorder{ledger: l, runID: runID}
}

// RunID returns the run identifier
func (r *Recorder) RunID() string {
	if r == nil {
		return ""
	}
	return r.runID
}

// Record appends an event for the run.
func (r *Recorder) Record(eventType EventType, payload map[string]any) error {
	if r == nil || r.ledger == nil {
		return nil
	}
	return r.ledger.Append(r.runID, eventType, payload)
}
