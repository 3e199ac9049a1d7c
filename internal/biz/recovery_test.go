package biz

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContentGuard/internal/model"
)

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []model.AuditLogEntry
	healthy error
}

func (f *fakeAuditRepo) LogDeletion(ctx context.Context, entry model.AuditLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditRepo) GetAuditLogs(ctx context.Context, q model.AuditLogQuery) ([]model.AuditLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AuditLogEntry
	for _, e := range f.entries {
		if q.Action != "" && e.Action != q.Action {
			continue
		}
		if !q.StartDate.IsZero() && e.CreatedAt.Before(q.StartDate) {
			continue
		}
		if !q.EndDate.IsZero() && e.CreatedAt.After(q.EndDate) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeAuditRepo) Healthy(ctx context.Context) error { return f.healthy }

type fakeQueueRepo struct {
	mu     sync.Mutex
	queued map[string]model.QueuedDeletion
}

func newFakeQueueRepo() *fakeQueueRepo {
	return &fakeQueueRepo{queued: make(map[string]model.QueuedDeletion)}
}

func (f *fakeQueueRepo) Enqueue(ctx context.Context, d model.QueuedDeletion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued[d.DocumentID] = d
	return nil
}

func (f *fakeQueueRepo) GetAllQueuedDeletions(ctx context.Context) ([]model.QueuedDeletion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.QueuedDeletion, 0, len(f.queued))
	for _, d := range f.queued {
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeQueueRepo) MarkFailed(ctx context.Context, id, lastError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.queued[id]
	if !ok {
		return nil
	}
	d.Failed = true
	d.LastError = lastError
	d.Attempts++
	f.queued[id] = d
	return nil
}

func (f *fakeQueueRepo) Remove(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.queued, id)
	return nil
}

func (f *fakeQueueRepo) GetQueueStats(ctx context.Context) (model.QueueStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := model.QueueStats{Total: len(f.queued)}
	for _, d := range f.queued {
		if d.Failed {
			stats.Failed++
		} else {
			stats.Pending++
		}
	}
	return stats, nil
}

func (f *fakeQueueRepo) ClearFailedDeletions(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for id, d := range f.queued {
		if d.Failed {
			delete(f.queued, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeQueueRepo) ClearAllDeletions(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.queued)
	f.queued = make(map[string]model.QueuedDeletion)
	return n, nil
}

type fakeMonitoringRepo struct {
	mu     sync.Mutex
	health model.DeletionHealth
	err    error
}

func (f *fakeMonitoringRepo) RecordDeletion(ctx context.Context, success bool, d time.Duration) {}

func (f *fakeMonitoringRepo) GetDeletionHealthStatus(ctx context.Context) (model.DeletionHealth, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.health, f.err
}

// fakeRetrier records retried identifiers and fails the configured set.
type fakeRetrier struct {
	mu      sync.Mutex
	retried []string
	failIDs map[string]bool
}

func (f *fakeRetrier) RetryDeletion(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retried = append(f.retried, id)
	if f.failIDs[id] {
		return errors.New("still failing")
	}
	return nil
}

type recoveryFixture struct {
	mgr     *RecoveryManager
	audit   *fakeAuditRepo
	queue   *fakeQueueRepo
	mon     *fakeMonitoringRepo
	retrier *fakeRetrier
	paused  *[]time.Duration
}

func newRecoveryFixture(cfg recoveryConfig) *recoveryFixture {
	logger := log.NewStdLogger(os.Stdout)
	audit := &fakeAuditRepo{}
	queue := newFakeQueueRepo()
	mon := &fakeMonitoringRepo{health: model.DeletionHealth{Overall: model.HealthHealthy}}
	retrier := &fakeRetrier{failIDs: make(map[string]bool)}
	rc := NewResilienceContext(nil, logger)

	mgr := newRecoveryManager(audit, queue, mon, retrier, rc, cfg, logger)
	var paused []time.Duration
	mgr.sleep = func(_ context.Context, d time.Duration) error {
		paused = append(paused, d)
		return nil
	}
	return &recoveryFixture{mgr: mgr, audit: audit, queue: queue, mon: mon, retrier: retrier, paused: &paused}
}

func testRecoveryConfig() recoveryConfig {
	return recoveryConfig{
		batchSize:         5,
		batchPause:        time.Second,
		graceDelay:        0,
		historyMaxAge:     7 * 24 * time.Hour,
		historyMaxEntries: 100,
	}
}

func TestRetryFailedDeletions_EndToEnd(t *testing.T) {
	fx := newRecoveryFixture(testRecoveryConfig())
	now := time.Now()
	for i := 0; i < 12; i++ {
		fx.audit.entries = append(fx.audit.entries, model.AuditLogEntry{
			Action:     model.AuditActionDeletionFailed,
			DocumentID: fmt.Sprintf("doc-%02d", i),
			CreatedAt:  now.Add(-time.Hour),
		})
	}
	// Duplicate entries for the same identifier must not inflate the total.
	fx.audit.entries = append(fx.audit.entries, model.AuditLogEntry{
		Action:     model.AuditActionDeletionFailed,
		DocumentID: "doc-00",
		CreatedAt:  now.Add(-30 * time.Minute),
	})
	fx.retrier.failIDs["doc-03"] = true

	opID, err := fx.mgr.RetryFailedDeletions(context.Background(), now.Add(-2*time.Hour), now, RecoveryOptions{}, "admin-1", "weekly cleanup")
	require.NoError(t, err)
	require.NotEmpty(t, opID)
	fx.mgr.Wait()

	op, ok := fx.mgr.GetStatus(opID)
	require.True(t, ok)
	assert.Equal(t, model.OpCompleted, op.Status)
	assert.Equal(t, 12, op.Progress.Total)
	assert.Equal(t, 12, op.Progress.Processed)
	assert.Equal(t, op.Progress.Successful+op.Progress.Failed, op.Progress.Processed)
	assert.Equal(t, 11, op.Progress.Successful)
	assert.Equal(t, 1, op.Progress.Failed)
	assert.Len(t, op.Results, 12)
	assert.Equal(t, "admin-1", op.Metadata.InitiatedBy)
	assert.False(t, op.EndTime.IsZero())

	// Three batches of (5, 5, 2) means two inter-batch pauses.
	assert.Equal(t, []time.Duration{time.Second, time.Second}, *fx.paused)
	assert.Len(t, fx.retrier.retried, 12)
}

func TestRetryQueuedDeletions(t *testing.T) {
	fx := newRecoveryFixture(testRecoveryConfig())
	for i := 0; i < 3; i++ {
		_ = fx.queue.Enqueue(context.Background(), model.QueuedDeletion{DocumentID: fmt.Sprintf("q-%d", i), QueuedAt: time.Now()})
	}

	opID, err := fx.mgr.RetryQueuedDeletions(context.Background(), RecoveryOptions{}, "admin-1", "drain")
	require.NoError(t, err)
	fx.mgr.Wait()

	op, ok := fx.mgr.GetStatus(opID)
	require.True(t, ok)
	assert.Equal(t, model.OpRetryQueued, op.Type)
	assert.Equal(t, 3, op.Progress.Total)
	assert.Equal(t, model.OpCompleted, op.Status)
}

func TestBulkRetryDeletions_DedupesAndValidates(t *testing.T) {
	fx := newRecoveryFixture(testRecoveryConfig())

	_, err := fx.mgr.BulkRetryDeletions(context.Background(), nil, RecoveryOptions{}, "admin-1", "")
	assert.Error(t, err, "empty identifier set is rejected")

	opID, err := fx.mgr.BulkRetryDeletions(context.Background(), []string{"a", "b", "a", "", "c"}, RecoveryOptions{}, "admin-1", "")
	require.NoError(t, err)
	fx.mgr.Wait()

	op, _ := fx.mgr.GetStatus(opID)
	assert.Equal(t, 3, op.Progress.Total)
}

func TestCancel_SkipsRemainingBatches(t *testing.T) {
	cfg := testRecoveryConfig()
	cfg.batchSize = 2
	fx := newRecoveryFixture(cfg)

	// Cancel during the first inter-batch pause.
	var once sync.Once
	opIDCh := make(chan string, 1)
	fx.mgr.sleep = func(_ context.Context, d time.Duration) error {
		once.Do(func() {
			id := <-opIDCh
			_ = fx.mgr.Cancel(id)
		})
		return nil
	}

	opID, err := fx.mgr.BulkRetryDeletions(context.Background(), []string{"a", "b", "c", "d", "e", "f"}, RecoveryOptions{}, "admin-1", "")
	require.NoError(t, err)
	opIDCh <- opID
	fx.mgr.Wait()

	op, ok := fx.mgr.GetStatus(opID)
	require.True(t, ok)
	assert.Equal(t, model.OpCancelled, op.Status)
	assert.Equal(t, 2, op.Progress.Processed, "only the first batch ran")
}

func TestCancel_UnknownOperation(t *testing.T) {
	fx := newRecoveryFixture(testRecoveryConfig())
	assert.Error(t, fx.mgr.Cancel("missing"))
}

func TestCleanupOfflineQueue(t *testing.T) {
	fx := newRecoveryFixture(testRecoveryConfig())
	ctx := context.Background()
	_ = fx.queue.Enqueue(ctx, model.QueuedDeletion{DocumentID: "ok-1"})
	_ = fx.queue.Enqueue(ctx, model.QueuedDeletion{DocumentID: "bad-1", Failed: true})
	_ = fx.queue.Enqueue(ctx, model.QueuedDeletion{DocumentID: "bad-2", Failed: true})

	removed, err := fx.mgr.CleanupOfflineQueue(ctx, RecoveryOptions{FailedOnly: true}, "admin-1", "purge failed")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	stats, _ := fx.queue.GetQueueStats(ctx)
	assert.Equal(t, 1, stats.Total)

	removed, err = fx.mgr.CleanupOfflineQueue(ctx, RecoveryOptions{}, "admin-1", "purge all")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	// Cleanup runs land directly in history.
	assert.Len(t, fx.mgr.ListHistory(), 2)
}

func TestHistoryEviction_CapsAtMaxEntries(t *testing.T) {
	fx := newRecoveryFixture(testRecoveryConfig())
	base := time.Now()

	fx.mgr.mu.Lock()
	for i := 0; i < 105; i++ {
		op := &model.RecoveryOperation{
			ID:        fmt.Sprintf("op-%03d", i),
			Type:      model.OpBulkRetry,
			Status:    model.OpCompleted,
			StartTime: base.Add(time.Duration(i) * time.Minute),
		}
		fx.mgr.recordHistoryLocked(op)
	}
	fx.mgr.mu.Unlock()

	history := fx.mgr.ListHistory()
	require.Len(t, history, 100)
	// Most recently started operations survive.
	assert.Equal(t, "op-104", history[0].ID)
	assert.Equal(t, "op-005", history[99].ID)
	_, ok := fx.mgr.GetStatus("op-004")
	assert.False(t, ok, "oldest entries are evicted")
}

func TestPruneHistory_RemovesExpiredEntries(t *testing.T) {
	fx := newRecoveryFixture(testRecoveryConfig())
	now := time.Now()
	fx.mgr.now = func() time.Time { return now }

	fx.mgr.mu.Lock()
	fx.mgr.history["old"] = &model.RecoveryOperation{ID: "old", Status: model.OpCompleted, StartTime: now.Add(-8 * 24 * time.Hour)}
	fx.mgr.history["recent"] = &model.RecoveryOperation{ID: "recent", Status: model.OpCompleted, StartTime: now.Add(-time.Hour)}
	fx.mgr.mu.Unlock()

	removed := fx.mgr.PruneHistory()
	assert.Equal(t, 1, removed)

	_, ok := fx.mgr.GetStatus("old")
	assert.False(t, ok)
	_, ok = fx.mgr.GetStatus("recent")
	assert.True(t, ok)
}

func TestGetStatus_ActiveThenHistory(t *testing.T) {
	fx := newRecoveryFixture(testRecoveryConfig())
	opID, err := fx.mgr.BulkRetryDeletions(context.Background(), []string{"a"}, RecoveryOptions{}, "admin-1", "")
	require.NoError(t, err)
	fx.mgr.Wait()

	// graceDelay is zero, so the operation has moved to history.
	assert.Empty(t, fx.mgr.ListActive())
	op, ok := fx.mgr.GetStatus(opID)
	require.True(t, ok)
	assert.Equal(t, model.OpCompleted, op.Status)
}

func TestOperationIDsAreUnique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := newOperationID(now)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
