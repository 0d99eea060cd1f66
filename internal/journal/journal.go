// Package journal keeps a SQLite log of every encounter and resolution, for
// replaying and auditing playthroughs.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/jwebster45206/wilds-engine/pkg/engine"
)

// Entry kinds.
const (
	KindEncounter  = "encounter"
	KindResolution = "resolution"
)

// Entry is one journal row.
type Entry struct {
	ID         int64     `db:"id"`
	SessionID  string    `db:"session_id"`
	Tick       int64     `db:"tick"`
	Kind       string    `db:"kind"`
	EventID    string    `db:"event_id"`
	Source     string    `db:"source"`
	Choice     string    `db:"choice"`
	Text       string    `db:"text"`
	Detail     string    `db:"detail_json"`
	RecordedAt time.Time `db:"recorded_at"`
}

// EventCount is how often an event fired.
type EventCount struct {
	EventID string `db:"event_id"`
	Count   int    `db:"n"`
}

// Journal wraps a SQLite connection.
type Journal struct {
	conn *sqlx.DB
	now  func() time.Time
}

// Ensure Journal can record for the engine
var _ engine.Recorder = (*Journal)(nil)

// Open opens or creates a journal database at path. ":memory:" gives a
// private in-memory journal.
func Open(path string) (*Journal, error) {
	dsn := path
	if path != ":memory:" {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	conn.SetMaxOpenConns(1)

	j := &Journal{conn: conn, now: time.Now}
	if err := j.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.conn.Close()
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		kind TEXT NOT NULL,
		event_id TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		choice TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL DEFAULT '',
		detail_json TEXT NOT NULL DEFAULT '{}',
		recorded_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_session ON entries(session_id, id);
	CREATE INDEX IF NOT EXISTS idx_entries_event ON entries(event_id);
	`
	_, err := j.conn.Exec(schema)
	return err
}

// RecordEncounter logs an event being offered.
func (j *Journal) RecordEncounter(ctx context.Context, sessionID uuid.UUID, enc *engine.Encounter) error {
	detail, err := json.Marshal(enc)
	if err != nil {
		return fmt.Errorf("marshal encounter: %w", err)
	}
	return j.insert(ctx, Entry{
		SessionID: sessionID.String(),
		Tick:      enc.Tick,
		Kind:      KindEncounter,
		EventID:   enc.EventID,
		Source:    enc.Source,
		Text:      enc.Text,
		Detail:    string(detail),
	})
}

// RecordResolution logs the player's choice and its outcome. The chained
// follow-up, if any, is recorded separately as an encounter.
func (j *Journal) RecordResolution(ctx context.Context, sessionID uuid.UUID, tick int64, res *engine.Resolution) error {
	detail, err := json.Marshal(res.Outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	return j.insert(ctx, Entry{
		SessionID: sessionID.String(),
		Tick:      tick,
		Kind:      KindResolution,
		EventID:   res.EventID,
		Choice:    res.Choice,
		Text:      res.Text,
		Detail:    string(detail),
	})
}

func (j *Journal) insert(ctx context.Context, e Entry) error {
	e.RecordedAt = j.now().UTC()
	_, err := j.conn.NamedExecContext(ctx, `INSERT INTO entries
		(session_id, tick, kind, event_id, source, choice, text, detail_json, recorded_at)
		VALUES (:session_id, :tick, :kind, :event_id, :source, :choice, :text, :detail_json, :recorded_at)`, e)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// List returns a session's entries in recording order. A limit <= 0 returns
// everything.
func (j *Journal) List(ctx context.Context, sessionID uuid.UUID, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	var entries []Entry
	err := j.conn.SelectContext(ctx, &entries,
		`SELECT id, session_id, tick, kind, event_id, source, choice, text, detail_json, recorded_at
		 FROM entries WHERE session_id = ? ORDER BY id LIMIT ?`, sessionID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	return entries, nil
}

// Counts tallies how often each event was offered in a session, most
// frequent first.
func (j *Journal) Counts(ctx context.Context, sessionID uuid.UUID) ([]EventCount, error) {
	var counts []EventCount
	err := j.conn.SelectContext(ctx, &counts,
		`SELECT event_id, COUNT(*) AS n FROM entries
		 WHERE session_id = ? AND kind = ?
		 GROUP BY event_id ORDER BY n DESC, event_id`, sessionID.String(), KindEncounter)
	if err != nil {
		return nil, fmt.Errorf("count journal: %w", err)
	}
	return counts, nil
}
