// Package ledger provides an append-only history of protocol traffic for
// diagnostics: which commands arrived, whether they were applied, and which
// status frames went out.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lampd/internal/protocol"
)

// EventType represents the type of event in the ledger
type EventType string

const (
	EventCommandReceived EventType = "command_received"
	EventCommandUnknown  EventType = "command_unknown"
	EventStatusSent      EventType = "status_sent"
)

// Entry represents a single event in the ledger
type Entry struct {
	ID        int64
	EventType EventType
	Timestamp time.Time
	Opcode    byte
	Payload   map[string]any
	Applied   bool
}

// Ledger provides append-only frame logging
type Ledger struct {
	db *sql.DB
}

// New creates a new Ledger using the provided database connection
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// RecordCommand appends an inbound command event. It satisfies the
// dispatcher's Recorder interface.
func (l *Ledger) RecordCommand(cmd protocol.Command, applied bool) {
	eventType := EventCommandReceived
	payload := map[string]any{"kind": cmd.Kind.String()}

	switch cmd.Kind {
	case protocol.KindSetOverride:
		payload["enabled"] = cmd.Enabled
	case protocol.KindSetHue:
		payload["hue"] = cmd.Hue
	default:
		eventType = EventCommandUnknown
	}

	// Ledger writes sit on the command path; a failure is reported and
	// forgotten, it never blocks command processing.
	if err := l.append(eventType, cmd.Opcode, payload, applied); err != nil {
		log.Warn().Err(err).Msg("Failed to append command to ledger")
	}
}

// RecordStatus appends an outbound status frame event.
func (l *Ledger) RecordStatus(hue int) {
	err := l.append(EventStatusSent, protocol.OpcodeHueReport, map[string]any{"hue": hue}, true)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to append status to ledger")
	}
}

func (l *Ledger) append(eventType EventType, opcode byte, payload map[string]any, applied bool) error {
	var payloadJSON []byte
	var err error

	if payload != nil {
		payloadJSON, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
	}

	appliedInt := 0
	if applied {
		appliedInt = 1
	}

	_, err = l.db.Exec(
		`INSERT INTO frame_ledger (event_type, timestamp, opcode, payload, applied) VALUES (?, ?, ?, ?, ?)`,
		string(eventType), time.Now().UTC().Unix(), int(opcode), string(payloadJSON), appliedInt,
	)
	return err
}

// GetByType returns entries filtered by event type
func (l *Ledger) GetByType(eventType EventType, limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, opcode, payload, applied
		FROM frame_ledger
		WHERE event_type = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, string(eventType), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// DeleteOlderThan removes entries older than the specified duration (retention policy)
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).Unix()
	result, err := l.db.Exec(`
		DELETE FROM frame_ledger WHERE timestamp < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (l *Ledger) scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var payloadStr sql.NullString
		var timestamp int64
		var opcode, applied int

		err := rows.Scan(&entry.ID, &entry.EventType, &timestamp, &opcode, &payloadStr, &applied)
		if err != nil {
			return nil, err
		}

		entry.Timestamp = time.Unix(timestamp, 0).UTC()
		entry.Opcode = byte(opcode)
		entry.Applied = applied != 0

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
