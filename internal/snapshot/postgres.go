package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgx used by PGStore.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

const createSnapshotTable = `
CREATE TABLE IF NOT EXISTS catalog_snapshots (
	cache_key TEXT PRIMARY KEY,
	taken_at  TIMESTAMPTZ NOT NULL,
	payload   JSONB NOT NULL
)`

const upsertSnapshot = `
INSERT INTO catalog_snapshots (cache_key, taken_at, payload)
VALUES ($1, $2, $3)
ON CONFLICT (cache_key) DO UPDATE
SET taken_at = EXCLUDED.taken_at, payload = EXCLUDED.payload`

const selectSnapshot = `SELECT payload FROM catalog_snapshots WHERE cache_key = $1`

const deleteSnapshot = `DELETE FROM catalog_snapshots WHERE cache_key = $1`

// PGStore keeps the snapshot as one JSONB row keyed by cache key.
// Each operation is a single statement, so a row is replaced atomically.
type PGStore struct {
	db  DBTX
	key string
}

// NewPGStore returns a store using db under key (DefaultKey when empty).
func NewPGStore(db DBTX, key string) *PGStore {
	if key == "" {
		key = DefaultKey
	}
	return &PGStore{db: db, key: key}
}

// EnsureSchema creates the snapshot table if it does not exist.
func (p *PGStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, createSnapshotTable); err != nil {
		return fmt.Errorf("create snapshot table: %w", err)
	}
	return nil
}

func (p *PGStore) Load(ctx context.Context) (*Snapshot, error) {
	var payload []byte
	err := p.db.QueryRow(ctx, selectSnapshot, p.key).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return Unmarshal(payload)
}

func (p *PGStore) Save(ctx context.Context, s *Snapshot) error {
	payload, err := Marshal(s)
	if err != nil {
		return err
	}
	if _, err := p.db.Exec(ctx, upsertSnapshot, p.key, s.Timestamp, payload); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (p *PGStore) Delete(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, deleteSnapshot, p.key); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
