package biz

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContentGuard/internal/model"
	cmserrors "ContentGuard/pkg/errors"
)

func newTestDeletionUsecase(repo *fakeCMSRepo) (*DeletionUsecase, *fakeAuditRepo, *fakeQueueRepo) {
	logger := log.NewStdLogger(os.Stdout)
	co := NewCoordinator(NewResilienceContext(nil, logger), logger)
	co.sleep = func(context.Context, time.Duration) error { return nil }
	audit := &fakeAuditRepo{}
	queue := newFakeQueueRepo()
	mon := &fakeMonitoringRepo{}
	uc := NewDeletionUsecase(repo, audit, queue, mon, co, logger)
	return uc, audit, queue
}

func TestDeleteDocument_SuccessAudited(t *testing.T) {
	repo := &fakeCMSRepo{}
	uc, audit, queue := newTestDeletionUsecase(repo)

	err := uc.DeleteDocument(context.Background(), "doc-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-1"}, repo.deleted)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, model.AuditActionDeletionSuccess, audit.entries[0].Action)
	assert.Equal(t, "admin-1", audit.entries[0].AdminID)

	stats, _ := queue.GetQueueStats(context.Background())
	assert.Zero(t, stats.Total)
}

func TestDeleteDocument_AvailabilityFailureQueued(t *testing.T) {
	repo := &fakeCMSRepo{delErr: cmserrors.NewCMSNetworkError("deleteDocument", errors.New("connection refused"))}
	uc, audit, queue := newTestDeletionUsecase(repo)

	err := uc.DeleteDocument(context.Background(), "doc-1", "admin-1")
	require.Error(t, err, "the caller still sees the failure")

	stats, _ := queue.GetQueueStats(context.Background())
	assert.Equal(t, 1, stats.Total, "availability failures are queued for replay")

	var actions []string
	for _, e := range audit.entries {
		actions = append(actions, e.Action)
	}
	assert.Contains(t, actions, model.AuditActionDeletionFailed)
	assert.Contains(t, actions, model.AuditActionDeletionQueued)
}

func TestDeleteDocument_ValidationFailureNotQueued(t *testing.T) {
	repo := &fakeCMSRepo{delErr: cmserrors.NewCMSError("deleteDocument", 422, errors.New("referenced document"))}
	uc, audit, queue := newTestDeletionUsecase(repo)

	err := uc.DeleteDocument(context.Background(), "doc-1", "admin-1")
	require.Error(t, err)

	stats, _ := queue.GetQueueStats(context.Background())
	assert.Zero(t, stats.Total, "validation failures would fail identically on replay")
	require.Len(t, audit.entries, 1)
	assert.Equal(t, model.AuditActionDeletionFailed, audit.entries[0].Action)
}

func TestRetryDeletion_SuccessDequeues(t *testing.T) {
	repo := &fakeCMSRepo{}
	uc, audit, queue := newTestDeletionUsecase(repo)
	ctx := context.Background()
	_ = queue.Enqueue(ctx, model.QueuedDeletion{DocumentID: "doc-1"})

	err := uc.RetryDeletion(ctx, "doc-1")
	require.NoError(t, err)

	stats, _ := queue.GetQueueStats(ctx)
	assert.Zero(t, stats.Total)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "recovery", audit.entries[0].AdminID)
}

func TestRetryDeletion_NotFoundTreatedAsRecovered(t *testing.T) {
	repo := &fakeCMSRepo{delErr: cmserrors.NewCMSError("deleteDocument", 404, errors.New("gone"))}
	uc, _, queue := newTestDeletionUsecase(repo)
	ctx := context.Background()
	_ = queue.Enqueue(ctx, model.QueuedDeletion{DocumentID: "doc-1"})

	err := uc.RetryDeletion(ctx, "doc-1")
	require.NoError(t, err, "a document already gone counts as recovered")

	stats, _ := queue.GetQueueStats(ctx)
	assert.Zero(t, stats.Total)
}

func TestRetryDeletion_FailureMarksQueueEntry(t *testing.T) {
	repo := &fakeCMSRepo{delErr: cmserrors.NewCMSError("deleteDocument", 500, errors.New("upstream error"))}
	uc, _, queue := newTestDeletionUsecase(repo)
	ctx := context.Background()
	_ = queue.Enqueue(ctx, model.QueuedDeletion{DocumentID: "doc-1"})

	err := uc.RetryDeletion(ctx, "doc-1")
	require.Error(t, err)

	queued, _ := queue.GetAllQueuedDeletions(ctx)
	require.Len(t, queued, 1)
	assert.True(t, queued[0].Failed)
	assert.NotEmpty(t, queued[0].LastError)
}
