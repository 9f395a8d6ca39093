package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rentfolio/portal-server-go/internal/model"
)

var safeVisitorID = regexp.MustCompile(`^[0-9a-f]{16,64}$`)

// FileStore keeps one JSON file per visitor under dir. Meant for local
// development and single-instance deployments.
type FileStore struct {
	dir   string
	codec codec
}

func NewFileStore(dir, encryptionKey string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &FileStore{
		dir:   dir,
		codec: codec{encryptionKey: encryptionKey},
	}, nil
}

func (s *FileStore) path(visitorID string) (string, error) {
	if !safeVisitorID.MatchString(visitorID) {
		return "", fmt.Errorf("invalid visitor id")
	}
	return filepath.Join(s.dir, visitorID+".json"), nil
}

func (s *FileStore) Load(ctx context.Context, visitorID string) (model.Snapshot, error) {
	path, err := s.path(visitorID)
	if err != nil {
		return model.Snapshot{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return model.Snapshot{}, nil
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	return s.codec.decode(string(data))
}

func (s *FileStore) Save(ctx context.Context, visitorID string, snap model.Snapshot) error {
	path, err := s.path(visitorID)
	if err != nil {
		return err
	}

	payload, err := s.codec.encode(snap)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(payload), 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, visitorID string) error {
	path, err := s.path(visitorID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

func (s *FileStore) DeleteExpired(ctx context.Context) (int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read snapshot dir: %w", err)
	}

	now := time.Now()
	var removed int64
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		visitorID := strings.TrimSuffix(entry.Name(), ".json")
		snap, err := s.Load(ctx, visitorID)
		if err != nil {
			// Unreadable snapshots are dropped rather than kept forever.
			if rmErr := s.Delete(ctx, visitorID); rmErr == nil {
				removed++
			}
			continue
		}
		if snap.IsExpired(now) {
			if err := s.Delete(ctx, visitorID); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func (s *FileStore) Ping(ctx context.Context) error {
	_, err := os.Stat(s.dir)
	return err
}
