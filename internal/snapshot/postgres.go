package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rentfolio/portal-server-go/internal/database"
	"github.com/rentfolio/portal-server-go/internal/model"
)

// PostgresStore keeps snapshots in a single session_snapshots table.
type PostgresStore struct {
	db        *database.DB
	keyPrefix string
	codec     codec
}

func NewPostgresStore(db *database.DB, keyPrefix, encryptionKey string) *PostgresStore {
	return &PostgresStore{
		db:        db,
		keyPrefix: keyPrefix,
		codec:     codec{encryptionKey: encryptionKey},
	}
}

// Migrate creates the snapshot table if it does not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS session_snapshots (
			storage_key TEXT PRIMARY KEY,
			payload     TEXT NOT NULL,
			expires_at  TIMESTAMPTZ,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("migrate session_snapshots: %w", err)
	}
	return nil
}

func (s *PostgresStore) key(visitorID string) string {
	return fmt.Sprintf("%s:%s", s.keyPrefix, visitorID)
}

func (s *PostgresStore) Load(ctx context.Context, visitorID string) (model.Snapshot, error) {
	var payload string
	err := s.db.GetContext(ctx, &payload, `
		SELECT payload FROM session_snapshots WHERE storage_key = $1
	`, s.key(visitorID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Snapshot{}, nil
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return s.codec.decode(payload)
}

func (s *PostgresStore) Save(ctx context.Context, visitorID string, snap model.Snapshot) error {
	payload, err := s.codec.encode(snap)
	if err != nil {
		return err
	}

	var expiresAt *time.Time
	if snap.ExpiresAt != nil {
		expiresAt = snap.ExpiresAt
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session_snapshots (storage_key, payload, expires_at, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (storage_key) DO UPDATE SET
			payload = EXCLUDED.payload,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
	`, s.key(visitorID), payload, expiresAt)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, visitorID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM session_snapshots WHERE storage_key = $1
	`, s.key(visitorID))
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM session_snapshots WHERE expires_at IS NOT NULL AND expires_at < NOW()
	`)
	if err != nil {
		return 0, fmt.Errorf("delete expired snapshots: %w", err)
	}
	return result.RowsAffected()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
