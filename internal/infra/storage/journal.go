package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"market_sim/internal/event"

	_ "github.com/glebarez/go-sqlite"
)

// EventStore is the append-only session journal, kept in its own SQLite
// file so tick writes never contend with history queries.
type EventStore struct {
	db *sql.DB
}

// NewEventStore creates a new SQLite event store with WAL mode enabled.
func NewEventStore(dbPath string) (*EventStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;", // 2MB cache
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY,
			type INTEGER NOT NULL,
			ts INTEGER NOT NULL,
			session_id TEXT NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create events table: %w", err)
	}
	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id);"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create events index: %w", err)
	}

	return &EventStore{db: db}, nil
}

// SaveEvent stores an event in the database.
func (s *EventStore) SaveEvent(ctx context.Context, ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO events (id, type, ts, session_id, payload) VALUES (?, ?, ?, ?, ?)",
		ev.GetSeq(), ev.GetType(), ev.GetTs(), sessionOf(ev), payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	return nil
}

func sessionOf(ev event.Event) string {
	if e, ok := ev.(interface{ GetSessionID() string }); ok {
		return e.GetSessionID()
	}
	return ""
}

// GetLastSeq returns the highest event sequence number stored.
// Returns 0 if no events exist.
func (s *EventStore) GetLastSeq(ctx context.Context) (uint64, error) {
	var lastSeq sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT MAX(id) FROM events").Scan(&lastSeq)
	if err != nil {
		return 0, fmt.Errorf("failed to get last seq: %w", err)
	}
	if !lastSeq.Valid {
		return 0, nil // No events yet
	}
	return uint64(lastSeq.Int64), nil
}

// LoadEvents loads events from fromSeq (inclusive) in sequence order,
// decoded into their concrete types.
func (s *EventStore) LoadEvents(ctx context.Context, fromSeq uint64) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, type, payload FROM events WHERE id >= ? ORDER BY id ASC",
		fromSeq,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var id int64
		var evType int
		var payload []byte

		if err := rows.Scan(&id, &evType, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		ev, err := decode(event.Type(evType), payload)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal event %d: %w", id, err)
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return events, nil
}

// CountSession returns how many events of one type a session journaled.
func (s *EventStore) CountSession(ctx context.Context, sessionID string, t event.Type) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM events WHERE session_id = ? AND type = ?",
		sessionID, t,
	).Scan(&n)
	return n, err
}

var errUnknownType = errors.New("unknown event type")

func decode(t event.Type, payload []byte) (event.Event, error) {
	var ev event.Event
	switch t {
	case event.EvTick:
		ev = &event.TickEvent{}
	case event.EvNews:
		ev = &event.NewsEvent{}
	case event.EvPositionOpened:
		ev = &event.PositionOpenedEvent{}
	case event.EvPositionClosed:
		ev = &event.PositionClosedEvent{}
	case event.EvSessionStarted:
		ev = &event.SessionStartedEvent{}
	case event.EvSessionEnded:
		ev = &event.SessionEndedEvent{}
	case event.EvSystemHalt:
		ev = &event.SystemHaltEvent{}
	default:
		return nil, fmt.Errorf("%w: %d", errUnknownType, t)
	}
	if err := json.Unmarshal(payload, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// Close closes the database connection.
func (s *EventStore) Close() error {
	return s.db.Close()
}
