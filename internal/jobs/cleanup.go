package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rentfolio/portal-server-go/internal/config"
	"github.com/rentfolio/portal-server-go/internal/session"
	"github.com/rentfolio/portal-server-go/internal/snapshot"
)

// CleanupJob periodically drops expired session snapshots from the durable
// backend and evicts idle visitor stores from memory.
type CleanupJob struct {
	snapshots snapshot.Store
	manager   *session.Manager
	interval  time.Duration
	done      chan struct{}
}

func NewCleanupJob(snapshots snapshot.Store, manager *session.Manager, interval time.Duration) *CleanupJob {
	return &CleanupJob{
		snapshots: snapshots,
		manager:   manager,
		interval:  interval,
		done:      make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := j.snapshots.DeleteExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to cleanup expired snapshots")
	} else if count > 0 {
		log.Info().Int64("count", count).Msg("cleaned up expired snapshots")
	}

	if evicted := j.manager.EvictIdle(config.VisitorIdleTimeout); evicted > 0 {
		log.Info().Int("count", evicted).Msg("evicted idle visitor stores")
	}
}
