package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/propertyhub/api/internal/client"
	"github.com/propertyhub/api/internal/model"
	"github.com/propertyhub/api/internal/queue"
	"github.com/propertyhub/api/internal/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTimeout = errors.New("context deadline exceeded (Client.Timeout exceeded while awaiting headers)")

// scriptedReconstructor answers each call with the next scripted error, or
// with a model URL once the script is exhausted.
type scriptedReconstructor struct {
	mu    sync.Mutex
	errs  []error
	calls []client.ReconstructRequest
}

func (r *scriptedReconstructor) Reconstruct(ctx context.Context, req *client.ReconstructRequest) (*client.ReconstructResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, *req)
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &client.ReconstructResult{ModelURL: "https://models.example.com/" + req.ListingID + ".glb"}, nil
}

type enqueued struct {
	job   model.ModelJob
	delay time.Duration
}

type recordingQueue struct {
	jobs []enqueued
	err  error
}

func (q *recordingQueue) Enqueue(ctx context.Context, job model.ModelJob, delay time.Duration) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, enqueued{job: job, delay: delay})
	return nil
}

func (q *recordingQueue) pop() (enqueued, bool) {
	if len(q.jobs) == 0 {
		return enqueued{}, false
	}
	e := q.jobs[0]
	q.jobs = q.jobs[1:]
	return e, true
}

type recordingPublisher struct {
	statuses []model.Model3DStatus
}

func (p *recordingPublisher) PublishModelStatus(l *model.Listing) {
	p.statuses = append(p.statuses, l.Model3DStatus)
}

type fixture struct {
	store     *memstore.Store
	recon     *scriptedReconstructor
	queue     *recordingQueue
	publisher *recordingPublisher
	worker    *Model3DWorker
}

func newFixture(t *testing.T, reconErrs ...error) *fixture {
	t.Helper()
	f := &fixture{
		store:     memstore.New(),
		recon:     &scriptedReconstructor{errs: reconErrs},
		queue:     &recordingQueue{},
		publisher: &recordingPublisher{},
	}
	f.worker = NewModel3DWorker(f.store, f.recon, f.queue, f.publisher, slog.New(slog.NewTextHandler(io.Discard, nil)))
	f.worker.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	require.NoError(t, f.store.CreateListing(context.Background(), &model.Listing{
		ID:            "l1",
		SellerID:      "s1",
		Model3DStatus: model.Model3DPending,
	}))
	return f
}

// drain processes the initial job and every job it schedules
func (f *fixture) drain(t *testing.T, job model.ModelJob) {
	t.Helper()
	require.NoError(t, f.worker.Process(context.Background(), job))
	for i := 0; i < 10; i++ {
		next, ok := f.queue.pop()
		if !ok {
			return
		}
		assert.Equal(t, RetryDelay, next.delay)
		require.NoError(t, f.worker.Process(context.Background(), next.job))
	}
	t.Fatal("job lineage did not terminate")
}

func initialJob() model.ModelJob {
	return model.ModelJob{
		ListingID:    "l1",
		SourceAssets: []string{"https://assets.example.com/1.jpg", "https://assets.example.com/2.jpg"},
		Lineage:      "lineage-1",
	}
}

func TestProcess_SucceedsFirstAttempt(t *testing.T) {
	f := newFixture(t)
	f.drain(t, initialJob())

	l, err := f.store.GetListing(context.Background(), "l1")
	require.NoError(t, err)
	assert.Equal(t, model.Model3DCompleted, l.Model3DStatus)
	require.NotNil(t, l.Model3D)
	assert.Equal(t, "https://models.example.com/l1.glb", *l.Model3D)
	assert.Equal(t, 0, l.Model3DRetryCount)
	assert.Len(t, f.recon.calls, 1)
	assert.Equal(t, []model.Model3DStatus{model.Model3DCompleted}, f.publisher.statuses)
}

func TestProcess_SucceedsOnThirdAttempt(t *testing.T) {
	f := newFixture(t, errTimeout, errTimeout)
	f.drain(t, initialJob())

	l, err := f.store.GetListing(context.Background(), "l1")
	require.NoError(t, err)
	assert.Equal(t, model.Model3DCompleted, l.Model3DStatus)
	require.NotNil(t, l.Model3D)
	assert.Equal(t, 2, l.Model3DRetryCount)
	assert.Len(t, f.recon.calls, 3)
	for _, c := range f.recon.calls {
		assert.Equal(t, initialJob().SourceAssets, c.SourceAssets)
	}
}

func TestProcess_FailsAfterThreeAttempts(t *testing.T) {
	boom := &client.APIError{Service: "reconstruction", StatusCode: 502}
	f := newFixture(t, boom, boom, boom)

	// Step through the lineage by hand to observe each intermediate state.
	job := initialJob()
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		require.NoError(t, f.worker.Process(context.Background(), job))

		l, err := f.store.GetListing(context.Background(), "l1")
		require.NoError(t, err)
		assert.LessOrEqual(t, l.Model3DRetryCount, MaxRetries)

		if attempt < MaxRetries {
			assert.Equal(t, model.Model3DPending, l.Model3DStatus)
			assert.Equal(t, attempt+1, l.Model3DRetryCount)
			next, ok := f.queue.pop()
			require.True(t, ok)
			assert.Equal(t, attempt+1, next.job.RetryCount)
			assert.Equal(t, job.Lineage, next.job.Lineage)
			job = next.job
		}
	}

	l, err := f.store.GetListing(context.Background(), "l1")
	require.NoError(t, err)
	assert.Equal(t, model.Model3DFailed, l.Model3DStatus)
	assert.Equal(t, 2, l.Model3DRetryCount)
	assert.Nil(t, l.Model3D)
	assert.Empty(t, f.queue.jobs, "no job after the last attempt")
	assert.Len(t, f.recon.calls, 3)
	assert.Equal(t, model.Model3DFailed, f.publisher.statuses[len(f.publisher.statuses)-1])
}

func TestProcess_ListingMissingAfterSuccess(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.DeleteListing(context.Background(), "l1"))

	err := f.worker.Process(context.Background(), initialJob())
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, f.queue.jobs)
}

func TestProcess_ListingMissingAfterFailureIsAbandoned(t *testing.T) {
	f := newFixture(t, errTimeout)
	require.NoError(t, f.store.DeleteListing(context.Background(), "l1"))

	require.NoError(t, f.worker.Process(context.Background(), initialJob()))
	assert.Empty(t, f.queue.jobs)
	assert.Empty(t, f.publisher.statuses)
}

func TestProcess_SaveFailureCountsAsFailedAttempt(t *testing.T) {
	f := newFixture(t)
	failUpdates := 1
	f.store.Hook = func(op string) error {
		if op == "UpdateListing" && failUpdates > 0 {
			failUpdates--
			return errors.New("connection reset by peer")
		}
		return nil
	}

	require.NoError(t, f.worker.Process(context.Background(), initialJob()))

	l, err := f.store.GetListing(context.Background(), "l1")
	require.NoError(t, err)
	assert.Equal(t, model.Model3DPending, l.Model3DStatus)
	assert.Equal(t, 1, l.Model3DRetryCount)
	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, 1, f.queue.jobs[0].job.RetryCount)
}

func TestProcess_EnqueueFailureMarksListingFailed(t *testing.T) {
	f := newFixture(t, errTimeout)
	f.queue.err = errors.New("redis: connection pool timeout")

	err := f.worker.Process(context.Background(), initialJob())
	assert.Error(t, err)

	l, err := f.store.GetListing(context.Background(), "l1")
	require.NoError(t, err)
	assert.Equal(t, model.Model3DFailed, l.Model3DStatus, "nothing is queued, so the seller must be able to retry")
	assert.Equal(t, 1, l.Model3DRetryCount)
	assert.Nil(t, l.Model3D)
	assert.Empty(t, f.queue.jobs)
	assert.Equal(t, []model.Model3DStatus{model.Model3DFailed}, f.publisher.statuses)
}

func TestProcessTask_DecodesPayload(t *testing.T) {
	f := newFixture(t)
	task, err := queue.NewModelTask(initialJob())
	require.NoError(t, err)

	require.NoError(t, f.worker.ProcessTask(context.Background(), task))
	l, err := f.store.GetListing(context.Background(), "l1")
	require.NoError(t, err)
	assert.Equal(t, model.Model3DCompleted, l.Model3DStatus)

	err = f.worker.ProcessTask(context.Background(), asynq.NewTask(queue.TaskTypeModel3D, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
