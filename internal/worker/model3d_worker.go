package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/propertyhub/api/internal/client"
	"github.com/propertyhub/api/internal/model"
	"github.com/propertyhub/api/internal/queue"
	"github.com/propertyhub/api/internal/store"
)

const (
	// MaxRetries is the number of follow-up attempts after the first one
	MaxRetries = 2
	// RetryDelay separates consecutive attempts of one lineage
	RetryDelay = 60 * time.Second
)

// StatusPublisher is told whenever a listing's model state changes
type StatusPublisher interface {
	PublishModelStatus(listing *model.Listing)
}

// Model3DWorker drives a listing from pending to completed or failed
type Model3DWorker struct {
	listings      store.ListingStore
	reconstructor client.Reconstructor
	queue         queue.Enqueuer
	publisher     StatusPublisher
	logger        *slog.Logger
	now           func() time.Time
}

// NewModel3DWorker creates a new model worker
func NewModel3DWorker(
	listings store.ListingStore,
	reconstructor client.Reconstructor,
	q queue.Enqueuer,
	publisher StatusPublisher,
	logger *slog.Logger,
) *Model3DWorker {
	return &Model3DWorker{
		listings:      listings,
		reconstructor: reconstructor,
		queue:         q,
		publisher:     publisher,
		logger:        logger.With(slog.String("component", "model3d_worker")),
		now:           time.Now,
	}
}

// ProcessTask is the asynq handler for queue.TaskTypeModel3D
func (w *Model3DWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	job, err := queue.ParseModelTask(t)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return w.Process(ctx, job)
}

// Process runs one reconstruction attempt. A nil return acknowledges the
// delivery: the attempt either completed the listing, scheduled the next
// attempt, or marked the listing failed.
func (w *Model3DWorker) Process(ctx context.Context, job model.ModelJob) error {
	log := w.logger.With(
		slog.String("listing_id", job.ListingID),
		slog.Int("retry_count", job.RetryCount),
	)
	log.Info("starting reconstruction", slog.Bool("is_video", job.IsVideo), slog.Int("assets", len(job.SourceAssets)))

	res, err := w.reconstructor.Reconstruct(ctx, &client.ReconstructRequest{
		ListingID:    job.ListingID,
		SourceAssets: job.SourceAssets,
		IsVideo:      job.IsVideo,
	})
	if err == nil {
		err = w.complete(ctx, job, res.ModelURL)
		if err == nil {
			log.Info("reconstruction completed", slog.String("model3d", res.ModelURL))
			return nil
		}
		if errors.Is(err, store.ErrNotFound) {
			// The listing existed when the job was enqueued and this
			// subsystem never deletes listings.
			log.Error("listing vanished before model could be saved", slog.Any("error", err))
			return fmt.Errorf("listing %s not found after reconstruction: %w", job.ListingID, asynq.SkipRetry)
		}
	}

	log.Warn("reconstruction attempt failed", slog.Any("error", err))
	return w.fail(ctx, job, log)
}

func (w *Model3DWorker) complete(ctx context.Context, job model.ModelJob, modelURL string) error {
	listing, err := w.listings.GetListing(ctx, job.ListingID)
	if err != nil {
		return err
	}

	listing.Model3D = &modelURL
	listing.Model3DStatus = model.Model3DCompleted
	listing.UpdatedAt = w.now()
	if err := w.listings.UpdateListing(ctx, listing); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}

	w.publisher.PublishModelStatus(listing)
	return nil
}

func (w *Model3DWorker) fail(ctx context.Context, job model.ModelJob, log *slog.Logger) error {
	listing, err := w.listings.GetListing(ctx, job.ListingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("listing no longer exists, abandoning job")
			return nil
		}
		return fmt.Errorf("failed to load listing %s: %w", job.ListingID, err)
	}

	if job.RetryCount < MaxRetries {
		next := job.Next()
		listing.Model3DRetryCount = next.RetryCount
		listing.UpdatedAt = w.now()
		if err := w.listings.UpdateListing(ctx, listing); err != nil {
			return fmt.Errorf("failed to record retry count: %w", err)
		}
		if err := w.queue.Enqueue(ctx, next, RetryDelay); err != nil {
			// No attempt is queued any more; failed lets the seller re-enter.
			w.markUnscheduled(ctx, listing, log)
			return fmt.Errorf("failed to schedule retry: %w", err)
		}
		w.publisher.PublishModelStatus(listing)
		log.Info("retry scheduled", slog.Int("next_retry_count", next.RetryCount), slog.Duration("delay", RetryDelay))
		return nil
	}

	listing.Model3DStatus = model.Model3DFailed
	listing.UpdatedAt = w.now()
	if err := w.listings.UpdateListing(ctx, listing); err != nil {
		return fmt.Errorf("failed to mark listing failed: %w", err)
	}
	w.publisher.PublishModelStatus(listing)
	log.Warn("reconstruction failed permanently")
	return nil
}

// markUnscheduled moves a listing whose next attempt never reached the queue
// to failed.
func (w *Model3DWorker) markUnscheduled(ctx context.Context, listing *model.Listing, log *slog.Logger) {
	listing.Model3DStatus = model.Model3DFailed
	listing.UpdatedAt = w.now()
	if err := w.listings.UpdateListing(ctx, listing); err != nil {
		log.Error("failed to mark unscheduled listing as failed", slog.Any("error", err))
		return
	}
	w.publisher.PublishModelStatus(listing)
	log.Error("retry not scheduled, listing marked failed")
}
