// Package audit records user actions (apply, export, import, sign-in) to
// Postgres and the audit log stream.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"EstateDesk/internal/logger"
)

type Action string

const (
	ActionApply  Action = "apply"
	ActionClear  Action = "clear"
	ActionExport Action = "export"
	ActionImport Action = "import"
	ActionLogin  Action = "login"
	ActionLogout Action = "logout"
)

// Entry is one audited action.
type Entry struct {
	ID     uuid.UUID      `json:"id"`
	At     time.Time      `json:"at"`
	UserID string         `json:"userId"`
	Domain string         `json:"domain,omitempty"`
	Action Action         `json:"action"`
	Detail map[string]any `json:"detail,omitempty"`
}

// Recorder stores audit entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

func fill(e *Entry) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
}

// NopRecorder drops everything.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Entry) error { return nil }

// LogRecorder writes entries to the audit log stream.
type LogRecorder struct{}

func (LogRecorder) Record(_ context.Context, e Entry) error {
	fill(&e)
	logger.Audit(string(e.Action),
		"id", e.ID.String(), "user", e.UserID, "domain", e.Domain, "detail", e.Detail)
	return nil
}

// Tee records to every recorder and joins their errors.
func Tee(rs ...Recorder) Recorder { return tee(rs) }

type tee []Recorder

func (t tee) Record(ctx context.Context, e Entry) error {
	fill(&e)
	var errs []error
	for _, r := range t {
		if err := r.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PGRecorder stores entries in a Postgres table.
type PGRecorder struct {
	pool  *pgxpool.Pool
	table string
}

const defaultTable = "dashboard_audit_log"

// NewPGRecorder wraps a pool. An empty table name uses the default.
func NewPGRecorder(pool *pgxpool.Pool, table string) *PGRecorder {
	if table == "" {
		table = defaultTable
	}
	return &PGRecorder{pool: pool, table: table}
}

func (r *PGRecorder) ident() string { return pgx.Identifier{r.table}.Sanitize() }

// EnsureSchema creates the table when missing.
func (r *PGRecorder) EnsureSchema(ctx context.Context) error {
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id uuid PRIMARY KEY,
	at timestamptz NOT NULL,
	user_id text NOT NULL,
	domain text NOT NULL DEFAULT '',
	action text NOT NULL,
	detail jsonb
)`, r.ident())
	if _, err := r.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("audit schema: %w", err)
	}
	return nil
}

func (r *PGRecorder) Record(ctx context.Context, e Entry) error {
	fill(&e)
	var detail []byte
	if len(e.Detail) > 0 {
		var err error
		if detail, err = json.Marshal(e.Detail); err != nil {
			return fmt.Errorf("audit detail: %w", err)
		}
	}
	q := fmt.Sprintf(`INSERT INTO %s (id, at, user_id, domain, action, detail) VALUES ($1, $2, $3, $4, $5, $6)`, r.ident())
	if _, err := r.pool.Exec(ctx, q, e.ID, e.At, e.UserID, e.Domain, string(e.Action), detail); err != nil {
		return fmt.Errorf("audit insert: %w", err)
	}
	return nil
}

// Prune deletes entries older than cutoff and returns how many went.
func (r *PGRecorder) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE at < $1`, r.ident()), cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit prune: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Recent returns the newest entries for a user.
func (r *PGRecorder) Recent(ctx context.Context, userID string, limit int) ([]Entry, error) {
	q := fmt.Sprintf(`SELECT id, at, user_id, domain, action, detail FROM %s WHERE user_id = $1 ORDER BY at DESC LIMIT $2`, r.ident())
	rows, err := r.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("audit query: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		var action string
		var detail []byte
		if err := rows.Scan(&e.ID, &e.At, &e.UserID, &e.Domain, &action, &detail); err != nil {
			return nil, fmt.Errorf("audit scan: %w", err)
		}
		e.Action = Action(action)
		if len(detail) > 0 {
			_ = json.Unmarshal(detail, &e.Detail)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
