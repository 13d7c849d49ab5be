package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/medtracker-api/internal/repository"
	"github.com/jwalitptl/medtracker-api/pkg/logger"
	"github.com/jwalitptl/medtracker-api/pkg/metrics"
)

// OutboxCleanupWorker removes processed outbox events once they are older
// than the retention window.
type OutboxCleanupWorker struct {
	repo            repository.OutboxRepository
	retention       time.Duration
	cleanupInterval time.Duration
	logger          *logger.Logger
	metrics         *metrics.Metrics
	now             func() time.Time
}

func NewOutboxCleanupWorker(
	repo repository.OutboxRepository,
	retention, cleanupInterval time.Duration,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *OutboxCleanupWorker {
	return &OutboxCleanupWorker{
		repo:            repo,
		retention:       retention,
		cleanupInterval: cleanupInterval,
		logger:          logger,
		metrics:         metrics,
		now:             time.Now,
	}
}

func (w *OutboxCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Cleanup(ctx); err != nil {
				w.logger.Error(err, "Error cleaning up outbox events")
			}
		}
	}
}

// Cleanup runs one retention pass and returns the number of events removed.
func (w *OutboxCleanupWorker) Cleanup(ctx context.Context) (int64, error) {
	cutoff := w.now().Add(-w.retention)

	rows, err := w.repo.DeleteProcessedBefore(ctx, cutoff)
	w.metrics.DatabaseOperations.WithLabelValues("delete_processed_events", metrics.Status(err)).Inc()
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup outbox events: %w", err)
	}

	w.metrics.OutboxEventsCleaned.Add(float64(rows))
	if rows > 0 {
		w.logger.Info("Cleaned up outbox events", "rows", rows, "cutoff", cutoff)
	}
	return rows, nil
}
