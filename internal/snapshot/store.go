// Package snapshot persists the durable copy of a visitor's session: one
// serialized {token, user, expiresAt} entry per visitor, read once when the
// visitor's session store is materialized and rewritten on every committed
// state change.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rentfolio/portal-server-go/internal/model"
	"github.com/rentfolio/portal-server-go/internal/util"
)

// Store is the durable backing for session snapshots. Load returns a zero
// snapshot and no error when the visitor has no persisted entry.
type Store interface {
	Load(ctx context.Context, visitorID string) (model.Snapshot, error)
	Save(ctx context.Context, visitorID string, snap model.Snapshot) error
	Delete(ctx context.Context, visitorID string) error
	DeleteExpired(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// codec serializes snapshots, optionally encrypting them at rest when an
// AES key is configured.
type codec struct {
	encryptionKey string
}

func (c codec) encode(snap model.Snapshot) (string, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if c.encryptionKey == "" {
		return string(data), nil
	}
	encrypted, err := util.Encrypt(c.encryptionKey, string(data))
	if err != nil {
		return "", fmt.Errorf("encrypt snapshot: %w", err)
	}
	return encrypted, nil
}

func (c codec) decode(payload string) (model.Snapshot, error) {
	if c.encryptionKey != "" {
		decrypted, err := util.Decrypt(c.encryptionKey, payload)
		if err != nil {
			return model.Snapshot{}, fmt.Errorf("decrypt snapshot: %w", err)
		}
		payload = decrypted
	}
	var snap model.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, nil
}
