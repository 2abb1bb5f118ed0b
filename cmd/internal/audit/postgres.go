package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultSchema is the Postgres schema that holds the audit table.
const DefaultSchema = "ticketd"

// maxFailureRows bounds FailuresSince; throttles only need the recent window.
const maxFailureRows = 1000

// PostgresRecorder appends audit events to <schema>.audit_log.
type PostgresRecorder struct {
	pool   *pgxpool.Pool
	schema string
	table  string
}

// NewPostgresRecorder constructs a recorder on pool. An empty schema uses DefaultSchema.
func NewPostgresRecorder(pool *pgxpool.Pool, schema string) (*PostgresRecorder, error) {
	if pool == nil {
		return nil, errors.New("audit: nil db pool")
	}
	schema = strings.TrimSpace(schema)
	if schema == "" {
		schema = DefaultSchema
	}
	return &PostgresRecorder{
		pool:   pool,
		schema: pgx.Identifier{schema}.Sanitize(),
		table:  pgx.Identifier{schema, "audit_log"}.Sanitize(),
	}, nil
}

// EnsureSchema creates the schema and table when missing.
func (r *PostgresRecorder) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE SCHEMA IF NOT EXISTS ` + r.schema,
		`CREATE TABLE IF NOT EXISTS ` + r.table + ` (
			id         text PRIMARY KEY,
			action     text NOT NULL,
			user_id    numeric(20, 0) NULL,
			ip         inet NULL,
			user_agent text NULL,
			meta       jsonb NULL,
			created_at timestamptz NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS audit_log_action_ip_created_idx ON ` + r.table + ` (action, ip, created_at DESC)`,
	}
	for _, s := range stmts {
		if _, err := r.pool.Exec(ctx, s); err != nil {
			return fmt.Errorf("audit: ensure schema: %w", err)
		}
	}
	return nil
}

// Record implements Recorder.
func (r *PostgresRecorder) Record(ctx context.Context, ev Event) error {
	ev, err := normalize(ev)
	if err != nil {
		return err
	}

	var userID *string
	if ev.UserID != nil {
		s := strconv.FormatUint(*ev.UserID, 10)
		userID = &s
	}

	var ip *string
	if ev.IP != nil {
		s := ev.IP.String()
		ip = &s
	}

	var ua *string
	if ev.UserAgent != "" {
		ua = &ev.UserAgent
	}

	var meta *string
	if len(ev.Meta) > 0 {
		b, err := json.Marshal(ev.Meta)
		if err != nil {
			return fmt.Errorf("audit: encode meta: %w", err)
		}
		s := string(b)
		meta = &s
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO `+r.table+` (
			id, action, user_id, ip, user_agent, meta, created_at
		) VALUES ($1, $2, $3::numeric, $4::inet, $5, $6::jsonb, $7)
	`, ev.ID, ev.Action, userID, ip, ua, meta, ev.At)
	if err != nil {
		return fmt.Errorf("audit: insert %s: %w", ev.Action, err)
	}
	return nil
}

// FailuresSince returns the timestamps of action rows from ip recorded at or
// after since, newest first.
func (r *PostgresRecorder) FailuresSince(ctx context.Context, action string, ip net.IP, since time.Time) ([]time.Time, error) {
	if ip == nil {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT created_at
		FROM `+r.table+`
		WHERE action = $1
		  AND ip = $2::inet
		  AND created_at >= $3
		ORDER BY created_at DESC
		LIMIT $4
	`, action, ip.String(), since, maxFailureRows)
	if err != nil {
		return nil, fmt.Errorf("audit: query %s: %w", action, err)
	}
	times, err := pgx.CollectRows(rows, pgx.RowTo[time.Time])
	if err != nil {
		return nil, fmt.Errorf("audit: scan %s: %w", action, err)
	}
	return times, nil
}
