package outbox

import (
	"context"
	"fmt"
	"time"

	"ddd-users/config"
	"ddd-users/pkg/logger"

	"go.uber.org/zap"
)

type Worker struct {
	store        *Store
	publisher    Publisher
	pollInterval time.Duration
	batchSize    int
	maxRetries   int
	log          *zap.Logger
}

func NewWorker(store *Store, publisher Publisher, cfg config.OutboxConfig) (*Worker, error) {
	if store == nil {
		return nil, fmt.Errorf("outbox store is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher is required")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive")
	}
	if cfg.MaxRetries <= 0 {
		return nil, fmt.Errorf("max retries must be positive")
	}

	return &Worker{
		store:        store,
		publisher:    publisher,
		pollInterval: cfg.PollInterval,
		batchSize:    cfg.BatchSize,
		maxRetries:   cfg.MaxRetries,
		log:          logger.Named("outbox"),
	}, nil
}

// Run polls until ctx is cancelled. It returns nil on cancellation.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.log.Info("Outbox worker started",
		zap.Duration("poll_interval", w.pollInterval),
		zap.Int("batch_size", w.batchSize),
	)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Outbox worker stopped")
			return nil
		case <-ticker.C:
			if _, err := w.ProcessBatch(ctx); err != nil {
				w.log.Error("Outbox batch processing failed", zap.Error(err))
			}
		}
	}
}

// ProcessBatch relays one batch and returns how many rows were published.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	rows, err := w.store.GetPendingEvents(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, row := range rows {
		if err := w.store.MarkEventProcessing(ctx, row.ID); err != nil {
			w.log.Warn("Skip outbox event due to lock contention",
				zap.String("event_id", row.ID),
				zap.Error(err),
			)
			continue
		}

		if err := w.publisher.Publish(ctx, row.EventType, row.Payload); err != nil {
			w.log.Warn("Outbox publish failed",
				zap.String("event_id", row.ID),
				zap.Int("retry_count", row.RetryCount),
				zap.Error(err),
			)
			if failErr := w.store.MarkEventFailed(ctx, row.ID, w.maxRetries); failErr != nil {
				w.log.Error("Failed to mark outbox event as failed",
					zap.String("event_id", row.ID),
					zap.Error(failErr),
				)
			}
			continue
		}

		if err := w.store.MarkEventPublished(ctx, row.ID); err != nil {
			w.log.Error("Failed to mark outbox event as published",
				zap.String("event_id", row.ID),
				zap.Error(err),
			)
			continue
		}
		published++
	}
	return published, nil
}
