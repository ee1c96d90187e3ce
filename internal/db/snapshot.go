package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/Spok95/attendance-tracker/internal/store"
)

// PostgresBackend — по строке snapshot_entries на каждый ключ снимка.
type PostgresBackend struct {
	db *sql.DB
}

func NewPostgresBackend(database *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: database}
}

func (p *PostgresBackend) Load(ctx context.Context) (*store.Snapshot, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT key, value::text
		FROM snapshot_entries
		WHERE key = ANY($1)
	`, pq.Array(store.Keys))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	entries := make(map[string][]byte, len(store.Keys))
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		entries[k] = []byte(v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return store.DecodeSnapshot(entries)
}

// Save перезаписывает все ключи в одной транзакции.
func (p *PostgresBackend) Save(ctx context.Context, snap *store.Snapshot) error {
	entries, err := snap.Encode()
	if err != nil {
		return err
	}
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_entries (key, value, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, k := range store.Keys {
		if _, err := stmt.ExecContext(ctx, k, string(entries[k])); err != nil {
			return fmt.Errorf("save %s: %w", k, err)
		}
	}
	return tx.Commit()
}

func (p *PostgresBackend) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
