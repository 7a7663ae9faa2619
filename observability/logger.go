// Package observability records htmledit business events in SQLite.
//
// Events go to a business_event_logs table, usually in the same database as
// the session store. Writing an event never fails the caller: errors are
// logged and dropped so a broken event store never blocks editing.
package observability

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/htmledit/idgen"
)

// Schema is the DDL of the event table.
const Schema = `
CREATE TABLE IF NOT EXISTS business_event_logs (
    event_id     TEXT PRIMARY KEY,
    event_type   TEXT NOT NULL,
    service_name TEXT NOT NULL,
    entity_type  TEXT,
    entity_id    TEXT,
    action       TEXT,
    details      TEXT,
    success      INTEGER NOT NULL,
    created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_business_events_type_time
    ON business_event_logs(event_type, created_at DESC);
`

// Init applies Schema to db.
func Init(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("observability: init schema: %w", err)
	}
	return nil
}

// BusinessEvent is a domain-level event to record.
type BusinessEvent struct {
	EventType   string `json:"event_type"`
	ServiceName string `json:"service_name"`
	EntityType  string `json:"entity_type,omitempty"`
	EntityID    string `json:"entity_id,omitempty"`
	Action      string `json:"action,omitempty"`
	Details     string `json:"details,omitempty"` // optional JSON
	Success     bool   `json:"success"`
	CreatedAt   int64  `json:"created_at"`
}

// EventLogger writes business events.
type EventLogger struct {
	db    *sql.DB
	newID idgen.Generator
	now   func() time.Time
}

// EventLoggerOption configures an EventLogger.
type EventLoggerOption func(*EventLogger)

// WithEventIDGenerator sets a custom ID generator for event IDs.
func WithEventIDGenerator(gen idgen.Generator) EventLoggerOption {
	return func(l *EventLogger) { l.newID = gen }
}

// NewEventLogger creates a logger backed by db. Call Init on db first.
func NewEventLogger(db *sql.DB, opts ...EventLoggerOption) *EventLogger {
	l := &EventLogger{
		db:    db,
		newID: idgen.Prefixed("evt_", idgen.Default),
		now:   time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// LogEvent records a business event.
func (l *EventLogger) LogEvent(ctx context.Context, event BusinessEvent) {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO business_event_logs (
			event_id, event_type, service_name, entity_type, entity_id,
			action, details, success, created_at
		) VALUES (?,?,?,?,?,?,?,?,?)`,
		l.newID(), event.EventType, event.ServiceName, event.EntityType, event.EntityID,
		event.Action, event.Details, event.Success, l.now().UnixMilli())
	if err != nil {
		slog.Error("observability event log failed", "error", err, "event_type", event.EventType)
	}
}

// Recent returns the latest events, newest first. An empty eventType
// matches every type.
func (l *EventLogger) Recent(ctx context.Context, eventType string, limit int) ([]BusinessEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT event_type, service_name, entity_type, entity_id, action, details, success, created_at
		FROM business_event_logs`
	args := []any{}
	if eventType != "" {
		q += ` WHERE event_type = ?`
		args = append(args, eventType)
	}
	q += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("observability: recent: %w", err)
	}
	defer rows.Close()

	var events []BusinessEvent
	for rows.Next() {
		var (
			e                                    BusinessEvent
			entityType, entityID, action, details sql.NullString
		)
		if err := rows.Scan(&e.EventType, &e.ServiceName, &entityType, &entityID,
			&action, &details, &e.Success, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("observability: scan: %w", err)
		}
		e.EntityType = entityType.String
		e.EntityID = entityID.String
		e.Action = action.String
		e.Details = details.String
		events = append(events, e)
	}
	return events, rows.Err()
}
