package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/fleet-worker-go/internal/config"
	"github.com/openclaw/fleet-worker-go/internal/repository"
)

// CleanupJob does housekeeping on the shared store. Nothing here is needed for
// correctness: expired blocks and old history are already ignored by reads.
type CleanupJob struct {
	blockRepo    repository.BlockRepository
	dispatchRepo repository.DispatchRepository
	commandRepo  repository.AdminCommandRepository
	retention    time.Duration
	interval     time.Duration
	now          func() time.Time
	done         chan struct{}
}

func NewCleanupJob(
	blockRepo repository.BlockRepository,
	dispatchRepo repository.DispatchRepository,
	commandRepo repository.AdminCommandRepository,
	retention time.Duration,
	interval time.Duration,
) *CleanupJob {
	return &CleanupJob{
		blockRepo:    blockRepo,
		dispatchRepo: dispatchRepo,
		commandRepo:  commandRepo,
		retention:    retention,
		interval:     interval,
		now:          time.Now,
		done:         make(chan struct{}),
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

	now := j.now()

	// block_count is kept so the next failure still escalates.
	j.runCleanup(ctx, "expired resource blocks", func(ctx context.Context) (int64, error) {
		return j.blockRepo.ClearExpired(ctx, now)
	})
	// Quota windows read this history, so pruning must stay well behind the longest window.
	if j.retention > 0 {
		j.runCleanup(ctx, "dispatch history", func(ctx context.Context) (int64, error) {
			return j.dispatchRepo.DeleteOlderThan(ctx, now.Add(-j.retention))
		})
	}
	j.runCleanup(ctx, "completed admin commands", func(ctx context.Context) (int64, error) {
		return j.commandRepo.DeleteCompletedBefore(ctx, now.Add(-config.AdminCommandRetention))
	})
}

func (j *CleanupJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("cleaned up %s", name)
	}
}
