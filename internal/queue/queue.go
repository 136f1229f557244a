// Package queue carries 3D model jobs over asynq.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/propertyhub/api/internal/model"
)

const (
	TaskTypeModel3D = "model3d:process"

	// How long asynq keeps a finished task. While it is retained its TaskID
	// stays reserved, so a duplicate enqueue of the same attempt is refused.
	taskRetention = 24 * time.Hour
)

// Enqueuer schedules a job for delivery no earlier than now+delay
type Enqueuer interface {
	Enqueue(ctx context.Context, job model.ModelJob, delay time.Duration) error
}

// Client enqueues model jobs through asynq
type Client struct {
	asynq       *asynq.Client
	queueName   string
	taskTimeout time.Duration
	logger      *slog.Logger
}

var _ Enqueuer = (*Client)(nil)

// NewClient creates a queue client. taskTimeout bounds one delivery on the
// server side and must be at least the reconstruction timeout.
func NewClient(c *asynq.Client, queueName string, taskTimeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		asynq:       c,
		queueName:   queueName,
		taskTimeout: taskTimeout,
		logger:      logger,
	}
}

// Enqueue records job in Redis. Queue-level retries are disabled; retry
// accounting lives on the job payload. Enqueueing the same attempt twice is
// a no-op.
func (c *Client) Enqueue(ctx context.Context, job model.ModelJob, delay time.Duration) error {
	if delay < 0 {
		return fmt.Errorf("negative delay %s", delay)
	}

	task, err := NewModelTask(job)
	if err != nil {
		return err
	}

	opts := []asynq.Option{
		asynq.Queue(c.queueName),
		asynq.MaxRetry(0),
		asynq.TaskID(TaskID(job)),
		asynq.Timeout(c.taskTimeout),
		asynq.Retention(taskRetention),
	}
	if delay > 0 {
		opts = append(opts, asynq.ProcessIn(delay))
	}

	info, err := c.asynq.EnqueueContext(ctx, task, opts...)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			c.logger.Debug("model job already enqueued",
				slog.String("listing_id", job.ListingID),
				slog.Int("retry_count", job.RetryCount),
			)
			return nil
		}
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.Info("model job enqueued",
		slog.String("listing_id", job.ListingID),
		slog.String("task_id", info.ID),
		slog.Int("retry_count", job.RetryCount),
		slog.Time("process_at", info.NextProcessAt),
	)
	return nil
}

// TaskID names one attempt of one lineage
func TaskID(job model.ModelJob) string {
	return fmt.Sprintf("model3d:%s:%s:%d", job.ListingID, job.Lineage, job.RetryCount)
}

// NewModelTask encodes job as an asynq task
func NewModelTask(job model.ModelJob) (*asynq.Task, error) {
	if job.ListingID == "" {
		return nil, errors.New("model job without listing id")
	}
	if len(job.SourceAssets) == 0 {
		return nil, errors.New("model job without source assets")
	}
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TaskTypeModel3D, data), nil
}

// ParseModelTask decodes the job carried by t
func ParseModelTask(t *asynq.Task) (model.ModelJob, error) {
	var job model.ModelJob
	if t.Type() != TaskTypeModel3D {
		return job, fmt.Errorf("unexpected task type %q", t.Type())
	}
	if err := json.Unmarshal(t.Payload(), &job); err != nil {
		return job, fmt.Errorf("failed to unmarshal task payload: %w", err)
	}
	if job.ListingID == "" {
		return job, errors.New("task payload without listing id")
	}
	return job, nil
}
