package data

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"

	"ContentGuard/internal/model"
)

// offlineQueueKey is the Redis hash holding queued deletions, keyed by
// document id so re-queueing the same document overwrites its entry.
const offlineQueueKey = "contentguard:offline_deletions"

// OfflineQueueRepoImpl implements biz.OfflineQueueRepo on a Redis hash.
// Unlike breaker state, the queue survives restarts: a deletion postponed
// because the CMS was down must not vanish with the process.
type OfflineQueueRepoImpl struct {
	client *redis.Client
	logger *log.Helper
}

// NewOfflineQueueRepo creates the offline queue repository.
func NewOfflineQueueRepo(rdb *redis.Client, logger log.Logger) *OfflineQueueRepoImpl {
	return &OfflineQueueRepoImpl{
		client: rdb,
		logger: log.NewHelper(logger),
	}
}

func (r *OfflineQueueRepoImpl) ready() error {
	if r.client == nil {
		return fmt.Errorf("offline queue unavailable: redis not configured")
	}
	return nil
}

// Enqueue stores one queued deletion.
func (r *OfflineQueueRepoImpl) Enqueue(ctx context.Context, d model.QueuedDeletion) error {
	if err := r.ready(); err != nil {
		return err
	}
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode queued deletion: %w", err)
	}
	if err := r.client.HSet(ctx, offlineQueueKey, d.DocumentID, data).Err(); err != nil {
		return fmt.Errorf("enqueue deletion %s: %w", d.DocumentID, err)
	}
	r.logger.Debugw("msg", "deletion queued for offline replay",
		"type", "queue",
		"document_id", d.DocumentID)
	return nil
}

// GetAllQueuedDeletions returns every queued deletion.
func (r *OfflineQueueRepoImpl) GetAllQueuedDeletions(ctx context.Context) ([]model.QueuedDeletion, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	raw, err := r.client.HGetAll(ctx, offlineQueueKey).Result()
	if err != nil {
		return nil, fmt.Errorf("read offline queue: %w", err)
	}
	out := make([]model.QueuedDeletion, 0, len(raw))
	for id, data := range raw {
		var d model.QueuedDeletion
		if err := json.Unmarshal([]byte(data), &d); err != nil {
			r.logger.Warnw("msg", "dropping malformed queue entry",
				"type", "queue",
				"document_id", id,
				"error", err.Error())
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// MarkFailed flags a queued deletion after an unsuccessful replay.
func (r *OfflineQueueRepoImpl) MarkFailed(ctx context.Context, documentID, lastError string) error {
	if err := r.ready(); err != nil {
		return err
	}
	data, err := r.client.HGet(ctx, offlineQueueKey, documentID).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return fmt.Errorf("read queue entry %s: %w", documentID, err)
	}
	var d model.QueuedDeletion
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return fmt.Errorf("decode queue entry %s: %w", documentID, err)
	}
	d.Failed = true
	d.LastError = lastError
	d.Attempts++
	updated, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode queue entry %s: %w", documentID, err)
	}
	return r.client.HSet(ctx, offlineQueueKey, documentID, updated).Err()
}

// Remove deletes a queue entry, typically after a successful replay.
func (r *OfflineQueueRepoImpl) Remove(ctx context.Context, documentID string) error {
	if err := r.ready(); err != nil {
		return err
	}
	return r.client.HDel(ctx, offlineQueueKey, documentID).Err()
}

// GetQueueStats summarizes the queue.
func (r *OfflineQueueRepoImpl) GetQueueStats(ctx context.Context) (model.QueueStats, error) {
	all, err := r.GetAllQueuedDeletions(ctx)
	if err != nil {
		return model.QueueStats{}, err
	}
	stats := model.QueueStats{Total: len(all)}
	for _, d := range all {
		if d.Failed {
			stats.Failed++
		} else {
			stats.Pending++
		}
	}
	return stats, nil
}

// ClearFailedDeletions removes entries marked failed and returns the count.
func (r *OfflineQueueRepoImpl) ClearFailedDeletions(ctx context.Context) (int, error) {
	all, err := r.GetAllQueuedDeletions(ctx)
	if err != nil {
		return 0, err
	}
	var fields []string
	for _, d := range all {
		if d.Failed {
			fields = append(fields, d.DocumentID)
		}
	}
	if len(fields) == 0 {
		return 0, nil
	}
	if err := r.client.HDel(ctx, offlineQueueKey, fields...).Err(); err != nil {
		return 0, fmt.Errorf("clear failed deletions: %w", err)
	}
	return len(fields), nil
}

// ClearAllDeletions drops the whole queue and returns the removed count.
func (r *OfflineQueueRepoImpl) ClearAllDeletions(ctx context.Context) (int, error) {
	if err := r.ready(); err != nil {
		return 0, err
	}
	count, err := r.client.HLen(ctx, offlineQueueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("count offline queue: %w", err)
	}
	if err := r.client.Del(ctx, offlineQueueKey).Err(); err != nil {
		return 0, fmt.Errorf("clear offline queue: %w", err)
	}
	return int(count), nil
}
