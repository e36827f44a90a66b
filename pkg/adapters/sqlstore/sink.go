// Package sqlstore persists summary handoffs in a SQL table so clinicians and
// downstream models can pick them up. PostgreSQL (lib/pq) and SQLite
// (modernc.org/sqlite, pure Go) are supported.
package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/aretw0/triage/internal/logging"
	"github.com/aretw0/triage/pkg/domain"
)

// Driver names accepted by Open.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var (
	//go:embed schema_postgres.sql
	postgresSchema string
	//go:embed schema_sqlite.sql
	sqliteSchema string
)

// Sink implements ports.HandoffSink over database/sql.
type Sink struct {
	db      *sql.DB
	driver  string
	channel string
	logger  *slog.Logger
}

// Option configures a Sink.
type Option func(*Sink)

// WithNotifyChannel makes the PostgreSQL sink NOTIFY the channel with the
// session ID after each delivery, so dashboards can LISTEN for new summaries.
// Ignored for SQLite.
func WithNotifyChannel(channel string) Option {
	return func(s *Sink) {
		s.channel = channel
	}
}

// WithLogger sets the sink logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) {
		s.logger = logger
	}
}

// Open connects to dsn with the named driver, pings it and applies the schema.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Sink, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported handoff driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// One writer avoids SQLITE_BUSY and keeps ":memory:" databases shared.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	s := New(db, driver, opts...)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection. The schema is not applied; call Migrate.
func New(db *sql.DB, driver string, opts ...Option) *Sink {
	s := &Sink{db: db, driver: driver, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates the handoff table and index if they do not exist.
func (s *Sink) Migrate(ctx context.Context) error {
	schema := sqliteSchema
	if s.driver == DriverPostgres {
		schema = postgresSchema
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate handoffs: %w", err)
		}
	}
	return nil
}

// Deliver inserts the handoff.
func (s *Sink) Deliver(ctx context.Context, h *domain.Handoff) error {
	slots, err := json.Marshal(h.Slots)
	if err != nil {
		return fmt.Errorf("encode handoff slots: %w", err)
	}

	query := s.rebind(`INSERT INTO triage_handoffs (id, session_id, domain, slots, summary, model_input, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, query,
		uuid.NewString(), h.SessionID, string(h.Domain), string(slots), h.Summary, h.ModelInput, s.timeArg(h.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert handoff: %w", err)
	}

	if s.channel != "" && s.driver == DriverPostgres {
		if _, err := s.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", s.channel, h.SessionID); err != nil {
			s.logger.Warn("handoff notify failed", "channel", pq.QuoteIdentifier(s.channel), "session_id", h.SessionID, "err", err)
		}
	}
	s.logger.Debug("handoff stored", "session_id", h.SessionID, "domain", h.Domain)
	return nil
}

// ForSession returns the handoffs of one session, oldest first.
func (s *Sink) ForSession(ctx context.Context, sessionID string) ([]domain.Handoff, error) {
	return s.query(ctx, s.rebind(`SELECT session_id, domain, slots, summary, model_input, created_at
FROM triage_handoffs WHERE session_id = ? ORDER BY created_at`), sessionID)
}

// Recent returns up to limit handoffs, newest first.
func (s *Sink) Recent(ctx context.Context, limit int) ([]domain.Handoff, error) {
	return s.query(ctx, s.rebind(`SELECT session_id, domain, slots, summary, model_input, created_at
FROM triage_handoffs ORDER BY created_at DESC LIMIT ?`), limit)
}

// Ping checks the connection, for health endpoints.
func (s *Sink) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the database.
func (s *Sink) Close() error { return s.db.Close() }

func (s *Sink) query(ctx context.Context, query string, args ...any) ([]domain.Handoff, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query handoffs: %w", err)
	}
	defer rows.Close()

	var out []domain.Handoff
	for rows.Next() {
		var (
			h       domain.Handoff
			dom     string
			slots   []byte
			created any
		)
		if err := rows.Scan(&h.SessionID, &dom, &slots, &h.Summary, &h.ModelInput, &created); err != nil {
			return nil, fmt.Errorf("scan handoff: %w", err)
		}
		h.Domain = domain.Domain(dom)
		if err := json.Unmarshal(slots, &h.Slots); err != nil {
			return nil, fmt.Errorf("decode handoff slots: %w", err)
		}
		if h.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// rebind turns ? placeholders into $n for PostgreSQL.
func (s *Sink) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// timeArg stores SQLite timestamps as sortable RFC 3339 text in UTC.
func (s *Sink) timeArg(t time.Time) any {
	if s.driver == DriverPostgres {
		return t.UTC()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return time.Parse(time.RFC3339Nano, t)
	case []byte:
		return time.Parse(time.RFC3339Nano, string(t))
	}
	return time.Time{}, fmt.Errorf("unexpected created_at type %T", v)
}
