package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/propertyhub/api/internal/client"
	"github.com/propertyhub/api/internal/model"
)

var fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []model.ModelJob
	err  error
}

func (q *fakeQueue) Enqueue(ctx context.Context, job model.ModelJob, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type fakePublisher struct {
	listings []model.Listing
}

func (p *fakePublisher) PublishModelStatus(l *model.Listing) {
	p.listings = append(p.listings, *l)
}

type fakeVerifier struct {
	mu     sync.Mutex
	result *client.Verification
	err    error
	calls  []string
}

func (v *fakeVerifier) VerifyTransaction(ctx context.Context, transactionID string) (*client.Verification, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, transactionID)
	if v.err != nil {
		return nil, v.err
	}
	return v.result, nil
}
