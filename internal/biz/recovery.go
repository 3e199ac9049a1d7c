package biz

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"ContentGuard/internal/conf"
	"ContentGuard/internal/model"
)

// DeletionRetrier is the unit of work the recovery batch driver fans out.
type DeletionRetrier interface {
	RetryDeletion(ctx context.Context, documentID string) error
}

// RecoveryOptions tunes one recovery run. Zero values use the configured
// defaults.
type RecoveryOptions struct {
	BatchSize  int
	BatchPause time.Duration
	// Tags label the operation record for later filtering of history.
	Tags []string
	// FailedOnly restricts queue cleanup to entries marked failed.
	FailedOnly bool
}

type recoveryConfig struct {
	batchSize         int
	batchPause        time.Duration
	graceDelay        time.Duration
	historyMaxAge     time.Duration
	historyMaxEntries int
}

func recoveryConfigFromConf(c *conf.Recovery) recoveryConfig {
	cfg := recoveryConfig{
		batchSize:         5,
		batchPause:        time.Second,
		graceDelay:        30 * time.Second,
		historyMaxAge:     7 * 24 * time.Hour,
		historyMaxEntries: 100,
	}
	if c == nil {
		return cfg
	}
	if c.BatchSize > 0 {
		cfg.batchSize = int(c.BatchSize)
	}
	if c.BatchPause != nil {
		cfg.batchPause = c.BatchPause.AsDuration()
	}
	if c.GraceDelay != nil {
		cfg.graceDelay = c.GraceDelay.AsDuration()
	}
	if c.HistoryMaxAge != nil {
		cfg.historyMaxAge = c.HistoryMaxAge.AsDuration()
	}
	if c.HistoryMaxEntries > 0 {
		cfg.historyMaxEntries = int(c.HistoryMaxEntries)
	}
	return cfg
}

// RecoveryManager is the administrative batch driver. Recovery runs are
// spawned fire-and-forget and polled by id; completed runs linger in the
// active map for a grace period before moving to capped history.
type RecoveryManager struct {
	audit      AuditLogRepo
	queue      OfflineQueueRepo
	monitoring MonitoringRepo
	deletions  DeletionRetrier
	resilience *ResilienceContext
	cfg        recoveryConfig
	logger     *log.Helper

	mu      sync.Mutex
	active  map[string]*model.RecoveryOperation
	history map[string]*model.RecoveryOperation

	wg    sync.WaitGroup
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRecoveryManager creates the recovery manager.
func NewRecoveryManager(audit AuditLogRepo, queue OfflineQueueRepo, monitoring MonitoringRepo, deletions *DeletionUsecase, rc *ResilienceContext, c *conf.Recovery, logger log.Logger) *RecoveryManager {
	return newRecoveryManager(audit, queue, monitoring, deletions, rc, recoveryConfigFromConf(c), logger)
}

func newRecoveryManager(audit AuditLogRepo, queue OfflineQueueRepo, monitoring MonitoringRepo, deletions DeletionRetrier, rc *ResilienceContext, cfg recoveryConfig, logger log.Logger) *RecoveryManager {
	return &RecoveryManager{
		audit:      audit,
		queue:      queue,
		monitoring: monitoring,
		deletions:  deletions,
		resilience: rc,
		cfg:        cfg,
		logger:     log.NewHelper(logger),
		active:     make(map[string]*model.RecoveryOperation),
		history:    make(map[string]*model.RecoveryOperation),
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// Resilience returns the shared breaker registry for admin inspection.
func (m *RecoveryManager) Resilience() *ResilienceContext {
	return m.resilience
}

// DeletionHealth reports the monitoring view of recent deletion traffic.
func (m *RecoveryManager) DeletionHealth(ctx context.Context) (model.DeletionHealth, error) {
	return m.monitoring.GetDeletionHealthStatus(ctx)
}

// QueueStats reports the offline queue totals.
func (m *RecoveryManager) QueueStats(ctx context.Context) (model.QueueStats, error) {
	return m.queue.GetQueueStats(ctx)
}

// newOperationID generates a sortable unique operation id.
func newOperationID(now time.Time) string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d-00000000", now.UnixMilli())
	}
	return fmt.Sprintf("%d-%s", now.UnixMilli(), hex.EncodeToString(buf))
}

// RetryFailedDeletions replays deletions that failed within [start, end]
// per the audit trail. It returns the operation id immediately; progress is
// polled via GetStatus.
func (m *RecoveryManager) RetryFailedDeletions(ctx context.Context, start, end time.Time, opts RecoveryOptions, adminID, reason string) (string, error) {
	entries, err := m.audit.GetAuditLogs(ctx, model.AuditLogQuery{
		Action:    model.AuditActionDeletionFailed,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		return "", fmt.Errorf("query failed deletions: %w", err)
	}
	ids := dedupeIdentifiers(entries)
	return m.startRetryOperation(model.OpRetryFailed, ids, opts, adminID, reason, map[string]string{
		"start": start.Format(time.RFC3339),
		"end":   end.Format(time.RFC3339),
	}), nil
}

// RetryQueuedDeletions replays every entry currently on the offline queue.
func (m *RecoveryManager) RetryQueuedDeletions(ctx context.Context, opts RecoveryOptions, adminID, reason string) (string, error) {
	queued, err := m.queue.GetAllQueuedDeletions(ctx)
	if err != nil {
		return "", fmt.Errorf("read offline queue: %w", err)
	}
	ids := make([]string, 0, len(queued))
	seen := make(map[string]bool, len(queued))
	for _, q := range queued {
		if !seen[q.DocumentID] {
			seen[q.DocumentID] = true
			ids = append(ids, q.DocumentID)
		}
	}
	return m.startRetryOperation(model.OpRetryQueued, ids, opts, adminID, reason, nil), nil
}

// BulkRetryDeletions replays an explicit identifier set.
func (m *RecoveryManager) BulkRetryDeletions(ctx context.Context, documentIDs []string, opts RecoveryOptions, adminID, reason string) (string, error) {
	if len(documentIDs) == 0 {
		return "", fmt.Errorf("no document ids supplied")
	}
	ids := make([]string, 0, len(documentIDs))
	seen := make(map[string]bool, len(documentIDs))
	for _, id := range documentIDs {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return m.startRetryOperation(model.OpBulkRetry, ids, opts, adminID, reason, nil), nil
}

// CleanupOfflineQueue synchronously removes queued deletions and records the
// run in history. FailedOnly restricts removal to entries marked failed.
func (m *RecoveryManager) CleanupOfflineQueue(ctx context.Context, opts RecoveryOptions, adminID, reason string) (int, error) {
	now := m.now()
	op := &model.RecoveryOperation{
		ID:        newOperationID(now),
		Type:      model.OpQueueCleanup,
		Status:    model.OpRunning,
		StartTime: now,
		Metadata: model.OperationMetadata{
			InitiatedBy: adminID,
			Reason:      reason,
			Tags:        opts.Tags,
			Parameters:  map[string]string{"failed_only": fmt.Sprintf("%t", opts.FailedOnly)},
		},
	}

	var removed int
	var err error
	if opts.FailedOnly {
		removed, err = m.queue.ClearFailedDeletions(ctx)
	} else {
		removed, err = m.queue.ClearAllDeletions(ctx)
	}

	op.EndTime = m.now()
	op.Progress = model.OperationProgress{Total: removed, Processed: removed, Successful: removed}
	if err != nil {
		op.Status = model.OpFailed
		op.Error = err.Error()
	} else {
		op.Status = model.OpCompleted
	}

	m.mu.Lock()
	m.recordHistoryLocked(op)
	m.mu.Unlock()

	m.logger.Infow(
		"msg", "offline queue cleanup",
		"type", "queue",
		"operation_id", op.ID,
		"removed", removed,
		"failed_only", opts.FailedOnly,
		"admin_id", adminID,
	)
	return removed, err
}

// startRetryOperation registers the operation and spawns its worker. The
// caller gets the id back before any batch runs.
func (m *RecoveryManager) startRetryOperation(opType model.OperationType, ids []string, opts RecoveryOptions, adminID, reason string, params map[string]string) string {
	now := m.now()
	op := &model.RecoveryOperation{
		ID:        newOperationID(now),
		Type:      opType,
		Status:    model.OpPending,
		StartTime: now,
		Progress:  model.OperationProgress{Total: len(ids)},
		Metadata: model.OperationMetadata{
			InitiatedBy: adminID,
			Reason:      reason,
			Tags:        opts.Tags,
			Parameters:  params,
		},
	}

	m.mu.Lock()
	m.active[op.ID] = op
	m.mu.Unlock()

	m.logger.Infow(
		"msg", "recovery operation started",
		"type", "recovery",
		"operation_id", op.ID,
		"operation_type", string(opType),
		"total", len(ids),
		"admin_id", adminID,
	)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.processRetryOperation(context.Background(), op.ID, ids, opts)
	}()
	return op.ID
}

// processRetryOperation drives the batches. Items within a batch run
// concurrently; batches run strictly in order with a pause between them.
// Cancellation is cooperative and only observed at batch boundaries.
func (m *RecoveryManager) processRetryOperation(ctx context.Context, opID string, ids []string, opts RecoveryOptions) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = m.cfg.batchSize
	}
	pause := opts.BatchPause
	if pause <= 0 {
		pause = m.cfg.batchPause
	}

	m.setStatus(opID, model.OpRunning)

	for start := 0; start < len(ids); start += batchSize {
		if start > 0 {
			if err := m.sleep(ctx, pause); err != nil {
				m.finishOperation(opID, model.OpCancelled, err.Error())
				return
			}
		}
		if m.isCancelled(opID) {
			m.finishOperation(opID, model.OpCancelled, "")
			return
		}

		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		results := make([]model.RetryResult, len(batch))
		var wg sync.WaitGroup
		for i, id := range batch {
			wg.Add(1)
			go func(i int, id string) {
				defer wg.Done()
				t0 := time.Now()
				err := m.deletions.RetryDeletion(ctx, id)
				r := model.RetryResult{
					Identifier: id,
					Success:    err == nil,
					DurationMs: time.Since(t0).Milliseconds(),
				}
				if err != nil {
					r.Error = err.Error()
				}
				results[i] = r
			}(i, id)
		}
		wg.Wait()

		m.recordBatch(opID, results)
	}

	m.finishOperation(opID, model.OpCompleted, "")
}

func (m *RecoveryManager) setStatus(opID string, s model.OperationStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if op, ok := m.active[opID]; ok && !op.Status.Terminal() {
		op.Status = s
	}
}

func (m *RecoveryManager) isCancelled(opID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.active[opID]
	return ok && op.Status == model.OpCancelled
}

func (m *RecoveryManager) recordBatch(opID string, results []model.RetryResult) {
	m.mu.Lock()
	op, ok := m.active[opID]
	if !ok {
		m.mu.Unlock()
		return
	}
	for _, r := range results {
		op.Results = append(op.Results, r)
		op.Progress.Processed++
		if r.Success {
			op.Progress.Successful++
		} else {
			op.Progress.Failed++
		}
	}
	progress := op.Progress
	m.mu.Unlock()

	m.logger.Infow(
		"msg", "recovery batch processed",
		"type", "recovery",
		"operation_id", opID,
		"processed", progress.Processed,
		"total", progress.Total,
		"successful", progress.Successful,
		"failed", progress.Failed,
	)
}

// finishOperation marks the operation terminal, waits out the grace period
// so callers can still poll the final status, then moves it to history.
func (m *RecoveryManager) finishOperation(opID string, status model.OperationStatus, errMsg string) {
	m.mu.Lock()
	op, ok := m.active[opID]
	if !ok {
		m.mu.Unlock()
		return
	}
	if !op.Status.Terminal() {
		op.Status = status
	}
	op.EndTime = m.now()
	if errMsg != "" && op.Error == "" {
		op.Error = errMsg
	}
	final := op.Status
	m.mu.Unlock()

	m.logger.Infow(
		"msg", "recovery operation finished",
		"type", "recovery",
		"operation_id", opID,
		"status", string(final),
	)

	if m.cfg.graceDelay > 0 {
		_ = m.sleep(context.Background(), m.cfg.graceDelay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if op, ok := m.active[opID]; ok {
		delete(m.active, opID)
		m.recordHistoryLocked(op)
	}
}

// recordHistoryLocked stores a terminal operation and evicts beyond the cap.
// Callers hold m.mu.
func (m *RecoveryManager) recordHistoryLocked(op *model.RecoveryOperation) {
	m.history[op.ID] = op
	m.evictHistoryLocked()
}

// evictHistoryLocked enforces the size cap, dropping the oldest start times
// first. Callers hold m.mu.
func (m *RecoveryManager) evictHistoryLocked() int {
	if len(m.history) <= m.cfg.historyMaxEntries {
		return 0
	}
	ops := make([]*model.RecoveryOperation, 0, len(m.history))
	for _, h := range m.history {
		ops = append(ops, h)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].StartTime.Before(ops[j].StartTime) })
	victims := ops[:len(ops)-m.cfg.historyMaxEntries]
	for _, v := range victims {
		delete(m.history, v.ID)
	}
	return len(victims)
}

// PruneHistory removes history entries older than the retention window and
// re-applies the size cap. The scheduler calls this hourly.
func (m *RecoveryManager) PruneHistory() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.cfg.historyMaxAge)
	removed := 0
	for id, op := range m.history {
		if op.StartTime.Before(cutoff) {
			delete(m.history, id)
			removed++
		}
	}
	removed += m.evictHistoryLocked()
	if removed > 0 {
		m.logger.Infow(
			"msg", "recovery history pruned",
			"type", "recovery",
			"removed", removed,
			"remaining", len(m.history),
		)
	}
	return removed
}

// GetStatus returns a copy of the operation, checking active runs first and
// falling back to history.
func (m *RecoveryManager) GetStatus(opID string) (model.RecoveryOperation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if op, ok := m.active[opID]; ok {
		return copyOperation(op), true
	}
	if op, ok := m.history[opID]; ok {
		return copyOperation(op), true
	}
	return model.RecoveryOperation{}, false
}

// Cancel requests cooperative cancellation. The in-flight batch completes;
// subsequent batches are skipped.
func (m *RecoveryManager) Cancel(opID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.active[opID]
	if !ok {
		return fmt.Errorf("operation %s not active", opID)
	}
	if op.Status.Terminal() {
		return fmt.Errorf("operation %s already %s", opID, op.Status)
	}
	op.Status = model.OpCancelled
	return nil
}

// ListActive returns copies of all in-flight operations, newest first.
func (m *RecoveryManager) ListActive() []model.RecoveryOperation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedCopies(m.active)
}

// ListHistory returns copies of terminal operations, newest first.
func (m *RecoveryManager) ListHistory() []model.RecoveryOperation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedCopies(m.history)
}

// Wait blocks until all spawned workers have finished. Used in shutdown and
// tests.
func (m *RecoveryManager) Wait() {
	m.wg.Wait()
}

func dedupeIdentifiers(entries []model.AuditLogEntry) []string {
	seen := make(map[string]bool, len(entries))
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.DocumentID != "" && !seen[e.DocumentID] {
			seen[e.DocumentID] = true
			ids = append(ids, e.DocumentID)
		}
	}
	return ids
}

func copyOperation(op *model.RecoveryOperation) model.RecoveryOperation {
	c := *op
	c.Results = append([]model.RetryResult(nil), op.Results...)
	c.Metadata.Tags = append([]string(nil), op.Metadata.Tags...)
	if op.Metadata.Parameters != nil {
		c.Metadata.Parameters = make(map[string]string, len(op.Metadata.Parameters))
		for k, v := range op.Metadata.Parameters {
			c.Metadata.Parameters[k] = v
		}
	}
	return c
}

func sortedCopies(ops map[string]*model.RecoveryOperation) []model.RecoveryOperation {
	out := make([]model.RecoveryOperation, 0, len(ops))
	for _, op := range ops {
		out = append(out, copyOperation(op))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out
}
