// Package sqlite persists watchdog events to a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/loykin/svcwatchd/internal/event"
)

// Sink writes events to SQLite.
type Sink struct {
	db *sql.DB
}

// New opens dsn, which may be "sqlite:///path/to/file.db",
// "sqlite://:memory:", a bare path, or ":memory:".
func New(dsn string) (*Sink, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("empty SQLite DSN")
	}
	if strings.HasPrefix(strings.ToLower(dsn), "sqlite://") {
		dsn = strings.TrimPrefix(dsn, "sqlite://")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	sink := &Sink{db: db}
	if err := sink.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return sink, nil
}

func (s *Sink) ensureSchema(ctx context.Context) error {
	stmt := `CREATE TABLE IF NOT EXISTS watchdog_events(
		timestamp TIMESTAMP NOT NULL DEFAULT (CURRENT_TIMESTAMP),
		event_type TEXT NOT NULL,
		service_name TEXT NOT NULL,
		message TEXT NOT NULL,
		pid INTEGER,
		error_text TEXT
	);`
	_, err := s.db.ExecContext(ctx, stmt)
	return err
}

func (s *Sink) Send(ctx context.Context, ev event.Event) error {
	var pid *int
	var errText *string
	if ev.Observation != nil {
		if ev.Observation.PID != 0 {
			p := ev.Observation.PID
			pid = &p
		}
		if ev.Observation.ErrorText != "" {
			e := ev.Observation.ErrorText
			errText = &e
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watchdog_events(timestamp, event_type, service_name, message, pid, error_text)
		VALUES(?, ?, ?, ?, ?, ?);`,
		ev.Timestamp.UTC(), string(ev.Kind), ev.Service, ev.Message, pid, errText)
	return err
}

func (s *Sink) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
