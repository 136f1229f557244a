package queue

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/propertyhub/api/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelTask_Codec(t *testing.T) {
	job := model.ModelJob{
		ListingID:    "l1",
		SourceAssets: []string{"https://a/1.jpg", "https://a/2.jpg"},
		IsVideo:      false,
		RetryCount:   1,
		Lineage:      "lin-1",
	}

	task, err := NewModelTask(job)
	require.NoError(t, err)
	assert.Equal(t, TaskTypeModel3D, task.Type())
	assert.JSONEq(t,
		`{"listingId":"l1","sourceAssets":["https://a/1.jpg","https://a/2.jpg"],"isVideo":false,"retryCount":1,"lineage":"lin-1"}`,
		string(task.Payload()))

	got, err := ParseModelTask(task)
	require.NoError(t, err)
	assert.Equal(t, job, got)
}

func TestModelTask_Invalid(t *testing.T) {
	_, err := NewModelTask(model.ModelJob{SourceAssets: []string{"x"}})
	assert.Error(t, err)

	_, err = NewModelTask(model.ModelJob{ListingID: "l1"})
	assert.Error(t, err)

	_, err = ParseModelTask(asynq.NewTask("other:type", []byte(`{}`)))
	assert.Error(t, err)

	_, err = ParseModelTask(asynq.NewTask(TaskTypeModel3D, []byte(`not json`)))
	assert.Error(t, err)

	_, err = ParseModelTask(asynq.NewTask(TaskTypeModel3D, []byte(`{"sourceAssets":["x"]}`)))
	assert.Error(t, err)
}

func TestTaskID_DistinctPerAttempt(t *testing.T) {
	job := model.ModelJob{ListingID: "l1", SourceAssets: []string{"x"}, Lineage: "a"}
	next := job.Next()

	assert.Equal(t, "model3d:l1:a:0", TaskID(job))
	assert.Equal(t, "model3d:l1:a:1", TaskID(next))

	other := job
	other.Lineage = "b"
	assert.NotEqual(t, TaskID(job), TaskID(other))
}

func TestAsynqLevel(t *testing.T) {
	assert.Equal(t, asynq.DebugLevel, asynqLevel(slog.LevelDebug))
	assert.Equal(t, asynq.InfoLevel, asynqLevel(slog.LevelInfo))
	assert.Equal(t, asynq.WarnLevel, asynqLevel(slog.LevelWarn))
	assert.Equal(t, asynq.ErrorLevel, asynqLevel(slog.LevelError))
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	l.Warn("scheduler ", "stalled")
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), `msg="scheduler stalled"`)
	assert.Contains(t, buf.String(), "component=asynq")
}
