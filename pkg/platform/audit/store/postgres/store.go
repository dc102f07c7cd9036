package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	audit "steward/pkg/platform/audit"
)

// Schema creates the table Store writes to.
const Schema = `
CREATE TABLE IF NOT EXISTS access_audit_events (
	id          UUID PRIMARY KEY,
	category    TEXT        NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	subject_id  TEXT        NOT NULL DEFAULT '',
	action      TEXT        NOT NULL,
	screen      TEXT        NOT NULL DEFAULT '',
	decision    TEXT        NOT NULL DEFAULT '',
	reason      TEXT        NOT NULL DEFAULT '',
	target_id   TEXT        NOT NULL DEFAULT '',
	request_id  TEXT        NOT NULL DEFAULT '',
	client_ip   TEXT        NOT NULL DEFAULT '',
	device      TEXT        NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS access_audit_events_occurred_at_idx ON access_audit_events (occurred_at DESC);
`

// Store implements audit.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to dsn with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping audit database: %w", err)
	}
	return db, nil
}

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate audit schema: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO access_audit_events (
			id, category, occurred_at, subject_id, action,
			screen, decision, reason, target_id, request_id, client_ip, device
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}
	_, err := s.db.ExecContext(ctx, query,
		uuid.New(),
		string(category),
		event.Timestamp,
		event.SubjectID,
		event.Action,
		event.Screen,
		event.Decision,
		event.Reason,
		event.TargetID,
		event.RequestID,
		event.ClientIP,
		event.Device,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListRecent returns the N most recent events.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT category, occurred_at, subject_id, action, screen,
			   decision, reason, target_id, request_id, client_ip, device
		FROM access_audit_events
		ORDER BY occurred_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			e        audit.Event
			category string
		)
		if err := rows.Scan(
			&category, &e.Timestamp, &e.SubjectID, &e.Action, &e.Screen,
			&e.Decision, &e.Reason, &e.TargetID, &e.RequestID, &e.ClientIP, &e.Device,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
