// Package recalc rebuilds a project's financial figures from its source
// tables. Settlement and expense writes enqueue the project here instead
// of recomputing inline; the recompute reads everything fresh and
// overwrites the materialized row, so running it twice is harmless and
// running it late still converges.
package recalc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/Victorkib/kisheka-construction-sub007/internal/config"
	"github.com/Victorkib/kisheka-construction-sub007/internal/logger"
	"github.com/Victorkib/kisheka-construction-sub007/internal/store"
)

type Runner struct {
	storage *store.Storage
	logger  *logger.Logger
	queue   chan uuid.UUID
	workers int
	timeout time.Duration
	wg      sync.WaitGroup
	group   singleflight.Group
}

func NewRunner(storage *store.Storage, log *logger.Logger, cfg config.RecalcConfig) *Runner {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Runner{
		storage: storage,
		logger:  log,
		queue:   make(chan uuid.UUID, queueSize),
		workers: workers,
		timeout: timeout,
	}
}

// Start launches the worker pool.
func (r *Runner) Start() {
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	r.logger.Info("recalc", "%d workers started, queue size %d", r.workers, cap(r.queue))
}

// Enqueue schedules a recalculation. It never blocks the caller: when
// the queue is full the request is dropped with a warning and the report
// is false. A dropped request only delays convergence until the next
// write to the same project.
func (r *Runner) Enqueue(projectID uuid.UUID) bool {
	select {
	case r.queue <- projectID:
		return true
	default:
		r.logger.Warn("recalc", "queue full, dropping recalculation for project %s", projectID)
		return false
	}
}

// Shutdown stops intake and waits for queued work to drain. Enqueue must
// not be called after Shutdown.
func (r *Runner) Shutdown() {
	close(r.queue)
	r.wg.Wait()
	r.logger.Info("recalc", "workers drained")
}

func (r *Runner) worker() {
	defer r.wg.Done()

	for projectID := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		if err := r.Recalculate(ctx, projectID); err != nil {
			r.logger.Error("recalc", "project %s: %v", projectID, err)
		}
		cancel()
	}
}

// Recalculate rebuilds the project's finances and phase aggregates right
// now. Concurrent calls for the same project share one execution; the
// figures they all receive come from the same recompute.
func (r *Runner) Recalculate(ctx context.Context, projectID uuid.UUID) error {
	_, err, _ := r.group.Do(projectID.String(), func() (interface{}, error) {
		return nil, r.recalculate(ctx, projectID)
	})
	return err
}

func (r *Runner) recalculate(ctx context.Context, projectID uuid.UUID) error {
	started := time.Now()

	fin, err := r.storage.Finances.RecomputeFromSources(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to recompute finances: %w", err)
	}
	if err := r.storage.Finances.Overwrite(ctx, fin); err != nil {
		return fmt.Errorf("failed to store recalculated finances: %w", err)
	}
	if err := r.storage.Phases.RecomputeAggregates(ctx, projectID); err != nil {
		return fmt.Errorf("failed to recompute phase aggregates: %w", err)
	}

	r.logger.Debug("recalc", "project %s recalculated in %s (invested %0.2f, used %0.2f, committed %0.2f)",
		projectID, time.Since(started), fin.TotalInvested, fin.TotalUsed, fin.CommittedCost)
	return nil
}
