package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/onnwee/chatkeeper/catalog"
)

// Store implements catalog.Datastore on Postgres. Commit rewrites the whole
// catalog in one transaction; the catalog serializes calls, so no two
// commits run concurrently.
type Store struct {
	DB *sql.DB
}

// NewStore wraps an open database handle.
func NewStore(db *sql.DB) *Store { return &Store{DB: db} }

// Load reads the full persisted snapshot.
func (s *Store) Load(ctx context.Context) (catalog.Snapshot, error) {
	var snap catalog.Snapshot

	rows, err := s.DB.QueryContext(ctx, `SELECT name, body, auth, cooldown_seconds, repeating, interval_seconds, initial_delay_seconds, sound, disabled FROM commands ORDER BY name`)
	if err != nil {
		return snap, fmt.Errorf("load commands: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c catalog.Command
		if err := rows.Scan(&c.Name, &c.Text, &c.Auth, &c.CooldownSeconds, &c.Repeating, &c.IntervalSeconds, &c.InitialDelaySeconds, &c.Sound, &c.Disabled); err != nil {
			return snap, fmt.Errorf("scan command: %w", err)
		}
		snap.Commands = append(snap.Commands, c)
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("load commands: %w", err)
	}

	crows, err := s.DB.QueryContext(ctx, `SELECT name, value FROM counters ORDER BY name`)
	if err != nil {
		return snap, fmt.Errorf("load counters: %w", err)
	}
	defer crows.Close()
	for crows.Next() {
		var c catalog.Counter
		if err := crows.Scan(&c.Name, &c.Value); err != nil {
			return snap, fmt.Errorf("scan counter: %w", err)
		}
		snap.Counters = append(snap.Counters, c)
	}
	if err := crows.Err(); err != nil {
		return snap, fmt.Errorf("load counters: %w", err)
	}

	// Filter order is evaluation order, so position is the sort key.
	frows, err := s.DB.QueryContext(ctx, `SELECT name, reason, disabled FROM filters ORDER BY position`)
	if err != nil {
		return snap, fmt.Errorf("load filters: %w", err)
	}
	defer frows.Close()
	for frows.Next() {
		var f catalog.Filter
		if err := frows.Scan(&f.Name, &f.Reason, &f.Disabled); err != nil {
			return snap, fmt.Errorf("scan filter: %w", err)
		}
		snap.Filters = append(snap.Filters, f)
	}
	if err := frows.Err(); err != nil {
		return snap, fmt.Errorf("load filters: %w", err)
	}

	snap.Config = make(map[string]string)
	krows, err := s.DB.QueryContext(ctx, `SELECT key, value FROM kv`)
	if err != nil {
		return snap, fmt.Errorf("load kv: %w", err)
	}
	defer krows.Close()
	for krows.Next() {
		var k string
		var v sql.NullString
		if err := krows.Scan(&k, &v); err != nil {
			return snap, fmt.Errorf("scan kv: %w", err)
		}
		snap.Config[k] = v.String
	}
	if err := krows.Err(); err != nil {
		return snap, fmt.Errorf("load kv: %w", err)
	}

	return snap, nil
}

// Commit rewrites all four tables from the snapshot atomically. Either the
// whole catalog lands or none of it does.
func (s *Store) Commit(ctx context.Context, snap catalog.Snapshot) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"commands", "counters", "filters", "kv"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, c := range snap.Commands {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO commands (name, body, auth, cooldown_seconds, repeating, interval_seconds, initial_delay_seconds, sound, disabled, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW())`,
			c.Name, c.Text, c.Auth, c.CooldownSeconds, c.Repeating, c.IntervalSeconds, c.InitialDelaySeconds, c.Sound, c.Disabled); err != nil {
			return fmt.Errorf("insert command %s: %w", c.Name, err)
		}
	}
	for _, c := range snap.Counters {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO counters (name, value, updated_at) VALUES ($1,$2,NOW())`, c.Name, c.Value); err != nil {
			return fmt.Errorf("insert counter %s: %w", c.Name, err)
		}
	}
	for i, f := range snap.Filters {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO filters (position, name, reason, disabled, updated_at) VALUES ($1,$2,$3,$4,NOW())`,
			i, f.Name, f.Reason, f.Disabled); err != nil {
			return fmt.Errorf("insert filter %s: %w", f.Name, err)
		}
	}
	for k, v := range snap.Config {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO kv (key, value, updated_at) VALUES ($1,$2,NOW())`, k, v); err != nil {
			return fmt.Errorf("insert kv %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog: %w", err)
	}
	return nil
}
