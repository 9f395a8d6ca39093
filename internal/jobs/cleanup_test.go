package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rentfolio/portal-server-go/internal/model"
	"github.com/rentfolio/portal-server-go/internal/session"
)

type countingSnapshots struct {
	mu            sync.Mutex
	deleteExpired int
}

func (c *countingSnapshots) Load(context.Context, string) (model.Snapshot, error) {
	return model.Snapshot{}, nil
}

func (c *countingSnapshots) Save(context.Context, string, model.Snapshot) error { return nil }
func (c *countingSnapshots) Delete(context.Context, string) error               { return nil }

func (c *countingSnapshots) DeleteExpired(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteExpired++
	return 2, nil
}

func (c *countingSnapshots) Ping(context.Context) error { return nil }

func (c *countingSnapshots) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deleteExpired
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string, string, string) {}

func TestCleanupRunsImmediatelyOnStart(t *testing.T) {
	snaps := &countingSnapshots{}
	manager := session.NewManager(session.Deps{
		Snapshots: snaps,
		Notifier:  noopNotifier{},
		TTL:       time.Hour,
	}, "secret", false)

	job := NewCleanupJob(snaps, manager, time.Hour)
	job.Start()
	defer job.Stop()

	assert.Eventually(t, func() bool {
		return snaps.calls() >= 1
	}, time.Second, 10*time.Millisecond)
}

func TestCleanupEvictsIdleStores(t *testing.T) {
	snaps := &countingSnapshots{}

	now := time.Now()
	deps := session.Deps{
		Snapshots: snaps,
		Notifier:  noopNotifier{},
		TTL:       time.Hour,
		Now:       func() time.Time { return now },
	}
	manager := session.NewManager(deps, "secret", false)

	manager.StoreFor(context.Background(), "visitor-1")
	assert.Equal(t, 1, manager.Count())

	// Advance the clock past the idle window and let the job evict.
	now = now.Add(2 * time.Hour)

	job := NewCleanupJob(snaps, manager, time.Hour)
	job.Start()
	defer job.Stop()

	assert.Eventually(t, func() bool {
		return manager.Count() == 0
	}, time.Second, 10*time.Millisecond)
}
