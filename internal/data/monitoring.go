package data

import (
	"context"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"ContentGuard/internal/model"
)

const (
	// monitoringWindow bounds how much deletion history feeds the health view.
	monitoringWindow = 15 * time.Minute
	// monitoringMaxSamples caps memory under sustained traffic.
	monitoringMaxSamples = 1000
)

type deletionSample struct {
	at         time.Time
	success    bool
	durationMs int64
}

// MonitoringRepoImpl keeps a sliding in-memory window of deletion outcomes.
// It backs the deletion_service diagnostics component; losing the window on
// restart is acceptable because diagnostics only care about recent traffic.
type MonitoringRepoImpl struct {
	mu      sync.Mutex
	samples []deletionSample
	logger  *log.Helper

	now func() time.Time
}

// NewMonitoringRepo creates the in-memory deletion monitor.
func NewMonitoringRepo(logger log.Logger) *MonitoringRepoImpl {
	return &MonitoringRepoImpl{
		logger: log.NewHelper(logger),
		now:    time.Now,
	}
}

// RecordDeletion adds one outcome to the window.
func (r *MonitoringRepoImpl) RecordDeletion(ctx context.Context, success bool, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, deletionSample{
		at:         r.now(),
		success:    success,
		durationMs: duration.Milliseconds(),
	})
	r.pruneLocked()
}

// GetDeletionHealthStatus summarizes the current window.
func (r *MonitoringRepoImpl) GetDeletionHealthStatus(ctx context.Context) (model.DeletionHealth, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked()

	health := model.DeletionHealth{Overall: model.HealthHealthy}
	if len(r.samples) == 0 {
		return health, nil
	}

	var failures int
	var totalMs int64
	for _, s := range r.samples {
		if !s.success {
			failures++
		}
		totalMs += s.durationMs
	}
	health.ErrorRate = float64(failures) / float64(len(r.samples))
	health.AverageResponseTime = float64(totalMs) / float64(len(r.samples))

	switch {
	case health.ErrorRate > 0.5:
		health.Overall = model.HealthCritical
	case health.ErrorRate > 0.1 || health.AverageResponseTime > 5000:
		health.Overall = model.HealthDegraded
	}
	return health, nil
}

func (r *MonitoringRepoImpl) pruneLocked() {
	cutoff := r.now().Add(-monitoringWindow)
	start := 0
	for start < len(r.samples) && r.samples[start].at.Before(cutoff) {
		start++
	}
	if start > 0 {
		r.samples = append([]deletionSample(nil), r.samples[start:]...)
	}
	if len(r.samples) > monitoringMaxSamples {
		r.samples = append([]deletionSample(nil), r.samples[len(r.samples)-monitoringMaxSamples:]...)
	}
}
