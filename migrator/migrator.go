// Package migrator applies and reverts ordered schema migrations, journaling
// every applied migration in a table so reruns are idempotent.
package migrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	coral "github.com/coralorm/coral"
	"github.com/coralorm/coral/builder"
	"github.com/coralorm/coral/logger"
)

// DefaultJournalTable is the journal table name used when none is configured.
const DefaultJournalTable = "schema_migrations"

var (
	// ErrDuplicateMigration two migrations registered under one identifier
	ErrDuplicateMigration = errors.New("duplicate migration")
	// ErrMissingDown rollback requested for a migration without a Down step
	ErrMissingDown = errors.New("migration has no down step")
)

// Migration is one reversible schema change. ID ordering defines run order,
// so the usual timestamp-prefixed identifiers sort correctly.
type Migration struct {
	ID   string
	Up   func(ctx context.Context, conn *coral.Connection) error
	Down func(ctx context.Context, conn *coral.Connection) error
}

// Runner applies migrations against a connection.
type Runner struct {
	conn       *coral.Connection
	logger     logger.Interface
	table      string
	migrations []Migration
}

// Option configures a Runner.
type Option func(*Runner)

// WithJournalTable overrides the journal table name.
func WithJournalTable(table string) Option {
	return func(r *Runner) { r.table = table }
}

// WithLogger overrides the runner's logger.
func WithLogger(l logger.Interface) Option {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a runner over the given migrations, sorted by ID.
func NewRunner(conn *coral.Connection, migrations []Migration, opts ...Option) (*Runner, error) {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for i := 1; i < len(sorted); i++ {
		if sorted[i].ID == sorted[i-1].ID {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMigration, sorted[i].ID)
		}
	}

	r := &Runner{
		conn:       conn,
		logger:     logger.Default,
		table:      DefaultJournalTable,
		migrations: sorted,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Applied returns the journaled migration IDs in apply order.
func (r *Runner) Applied(ctx context.Context) ([]string, error) {
	if err := r.ensureJournal(ctx); err != nil {
		return nil, err
	}

	query, args, err := builder.Select("id").From(r.table).OrderBy("id", "ASC").Build()
	if err != nil {
		return nil, err
	}
	rows, err := r.conn.QueryRows(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		switch id := row["id"].(type) {
		case string:
			ids = append(ids, id)
		case []byte:
			ids = append(ids, string(id))
		}
	}
	return ids, nil
}

// Apply runs every pending migration in order, each inside its own
// transaction together with its journal entry. Returns how many ran.
func (r *Runner) Apply(ctx context.Context) (int, error) {
	applied, err := r.Applied(ctx)
	if err != nil {
		return 0, err
	}
	done := make(map[string]bool, len(applied))
	for _, id := range applied {
		done[id] = true
	}

	ran := 0
	for _, migration := range r.migrations {
		if done[migration.ID] {
			continue
		}

		m := migration
		err := r.conn.Transaction(ctx, func(tx *coral.Connection) error {
			if err := m.Up(ctx, tx); err != nil {
				return err
			}
			return r.journal(ctx, tx, m.ID)
		})
		if err != nil {
			return ran, fmt.Errorf("applying %s: %w", m.ID, err)
		}

		r.logger.Info(ctx, "applied migration %s", m.ID)
		ran++
	}
	return ran, nil
}

// Rollback reverts up to steps applied migrations in reverse order.
func (r *Runner) Rollback(ctx context.Context, steps int) (int, error) {
	applied, err := r.Applied(ctx)
	if err != nil {
		return 0, err
	}

	byID := make(map[string]Migration, len(r.migrations))
	for _, m := range r.migrations {
		byID[m.ID] = m
	}

	ran := 0
	for i := len(applied) - 1; i >= 0 && ran < steps; i-- {
		id := applied[i]
		m, ok := byID[id]
		if !ok || m.Down == nil {
			return ran, fmt.Errorf("%w: %s", ErrMissingDown, id)
		}

		err := r.conn.Transaction(ctx, func(tx *coral.Connection) error {
			if err := m.Down(ctx, tx); err != nil {
				return err
			}
			return r.unjournal(ctx, tx, m.ID)
		})
		if err != nil {
			return ran, fmt.Errorf("rolling back %s: %w", id, err)
		}

		r.logger.Info(ctx, "rolled back migration %s", id)
		ran++
	}
	return ran, nil
}

func (r *Runner) ensureJournal(ctx context.Context) error {
	_, err := r.conn.Execute(ctx, fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (id VARCHAR(255) PRIMARY KEY, applied_at TIMESTAMP NOT NULL)", r.table))
	return err
}

func (r *Runner) journal(ctx context.Context, conn *coral.Connection, id string) error {
	query, args, err := builder.Insert(r.table).Values(map[string]interface{}{
		"id":         id,
		"applied_at": time.Now().UTC().Format("2006-01-02 15:04:05"),
	}).Build()
	if err != nil {
		return err
	}
	_, err = conn.Execute(ctx, query, args...)
	return err
}

func (r *Runner) unjournal(ctx context.Context, conn *coral.Connection, id string) error {
	query, args, err := builder.Delete(r.table).Where("id = ?", id).Build()
	if err != nil {
		return err
	}
	_, err = conn.Execute(ctx, query, args...)
	return err
}
