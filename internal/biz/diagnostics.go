package biz

import (
	"context"
	"fmt"

	"ContentGuard/internal/model"
)

// Diagnostic thresholds for the offline queue and deletion monitoring.
const (
	queueDegradedDepth = 100
	queueCriticalDepth = 500
	errorRateThreshold = 0.10
	slowResponseMs     = 5000
)

// RunDiagnostics checks every collaborator with fixed thresholds and
// aggregates the findings into one health report. The run itself is
// recorded in operation history.
func (m *RecoveryManager) RunDiagnostics(ctx context.Context, adminID string) (model.DiagnosticResult, error) {
	started := m.now()
	result := model.DiagnosticResult{
		Timestamp:  started,
		Components: make(map[string]model.ComponentHealth),
	}

	// Offline queue depth.
	stats, err := m.queue.GetQueueStats(ctx)
	switch {
	case err != nil:
		result.Components["offline_queue"] = model.HealthCritical
		result.Issues = append(result.Issues, model.DiagnosticIssue{
			Severity:    model.SeverityCritical,
			Component:   "offline_queue",
			Description: fmt.Sprintf("queue stats unavailable: %v", err),
		})
	case stats.Total > queueCriticalDepth:
		result.Components["offline_queue"] = model.HealthCritical
		result.QueueDepth = stats.Total
		result.Issues = append(result.Issues, model.DiagnosticIssue{
			Severity:     model.SeverityCritical,
			Component:    "offline_queue",
			Description:  fmt.Sprintf("offline queue holds %d items", stats.Total),
			SuggestedFix: "drain the queue via retry_queued or queue_cleanup",
			AutoFixable:  true,
		})
	case stats.Total > queueDegradedDepth:
		result.Components["offline_queue"] = model.HealthDegraded
		result.QueueDepth = stats.Total
		result.Issues = append(result.Issues, model.DiagnosticIssue{
			Severity:     model.SeverityMedium,
			Component:    "offline_queue",
			Description:  fmt.Sprintf("offline queue holds %d items", stats.Total),
			SuggestedFix: "schedule a retry_queued run during low traffic",
			AutoFixable:  true,
		})
	default:
		result.Components["offline_queue"] = model.HealthHealthy
		result.QueueDepth = stats.Total
	}

	// Deletion monitoring.
	health, err := m.monitoring.GetDeletionHealthStatus(ctx)
	if err != nil {
		result.Components["deletion_service"] = model.HealthCritical
		result.Issues = append(result.Issues, model.DiagnosticIssue{
			Severity:    model.SeverityCritical,
			Component:   "deletion_service",
			Description: fmt.Sprintf("monitoring unavailable: %v", err),
		})
	} else {
		result.Components["deletion_service"] = health.Overall
		if health.ErrorRate > errorRateThreshold {
			result.Issues = append(result.Issues, model.DiagnosticIssue{
				Severity:     model.SeverityHigh,
				Component:    "deletion_service",
				Description:  fmt.Sprintf("deletion error rate %.1f%%", health.ErrorRate*100),
				SuggestedFix: "inspect recent deletion_failed audit entries",
			})
		}
		if health.AverageResponseTime > slowResponseMs {
			result.Issues = append(result.Issues, model.DiagnosticIssue{
				Severity:     model.SeverityMedium,
				Component:    "deletion_service",
				Description:  fmt.Sprintf("average deletion response time %.0fms", health.AverageResponseTime),
				SuggestedFix: "check CMS API status and outbound network path",
			})
		}
	}

	// Audit store reachability.
	if err := m.audit.Healthy(ctx); err != nil {
		result.Components["audit_logger"] = model.HealthCritical
		result.Issues = append(result.Issues, model.DiagnosticIssue{
			Severity:     model.SeverityHigh,
			Component:    "audit_logger",
			Description:  fmt.Sprintf("audit store unreachable: %v", err),
			SuggestedFix: "verify MySQL connectivity",
		})
	} else {
		result.Components["audit_logger"] = model.HealthHealthy
	}

	// Circuit breaker states.
	result.Breakers = m.resilience.Snapshots()
	openCount := 0
	for _, snap := range result.Breakers {
		if snap.State == model.CircuitOpen {
			openCount++
			result.Issues = append(result.Issues, model.DiagnosticIssue{
				Severity:     model.SeverityHigh,
				Component:    "circuit_breakers",
				Description:  fmt.Sprintf("breaker %s is open", snap.Name),
				SuggestedFix: "wait for recovery timeout or reset after fixing the dependency",
			})
		}
	}
	switch {
	case openCount > 2:
		result.Components["circuit_breakers"] = model.HealthCritical
	case openCount > 0:
		result.Components["circuit_breakers"] = model.HealthDegraded
	default:
		result.Components["circuit_breakers"] = model.HealthHealthy
	}

	if m.resilience.Boundary.IsFallbackMode() {
		result.Issues = append(result.Issues, model.DiagnosticIssue{
			Severity:     model.SeverityHigh,
			Component:    "error_boundary",
			Description:  "system is in fallback mode",
			SuggestedFix: "resolve the failing dependency, then reset the error count",
		})
		result.Components["error_boundary"] = model.HealthDegraded
	} else {
		result.Components["error_boundary"] = model.HealthHealthy
	}

	result.Overall = overallHealth(result.Components)
	result.Recommendations = buildRecommendations(result)

	m.recordDiagnosticRun(adminID, result)
	m.logger.Infow(
		"msg", "diagnostics completed",
		"type", "diagnostic",
		"overall", string(result.Overall),
		"issues", len(result.Issues),
		"admin_id", adminID,
	)
	return result, nil
}

// AutoFixIssues applies automated remedies to autoFixable issues. The only
// wired remedy is draining an oversized offline queue; everything else is
// reported as skipped with its suggested manual fix.
func (m *RecoveryManager) AutoFixIssues(ctx context.Context, diag model.DiagnosticResult, adminID string) (model.AutoFixReport, error) {
	report := model.AutoFixReport{}
	for _, issue := range diag.Issues {
		if !issue.AutoFixable {
			continue
		}
		report.Attempted++
		if issue.Component != "offline_queue" {
			report.Skipped = append(report.Skipped, fmt.Sprintf("%s: no auto-fix available", issue.Component))
			continue
		}
		opID, err := m.RetryQueuedDeletions(ctx, RecoveryOptions{}, adminID, "auto-fix: drain offline queue")
		if err != nil {
			report.Skipped = append(report.Skipped, fmt.Sprintf("offline_queue: %v", err))
			continue
		}
		report.Fixed++
		report.Actions = append(report.Actions, fmt.Sprintf("started retry_queued operation %s", opID))
	}
	m.logger.Infow(
		"msg", "auto-fix pass finished",
		"type", "recovery",
		"attempted", report.Attempted,
		"fixed", report.Fixed,
		"admin_id", adminID,
	)
	return report, nil
}

// recordDiagnosticRun stores a completed diagnostic operation in history.
func (m *RecoveryManager) recordDiagnosticRun(adminID string, result model.DiagnosticResult) {
	now := m.now()
	op := &model.RecoveryOperation{
		ID:        newOperationID(now),
		Type:      model.OpDiagnostic,
		Status:    model.OpCompleted,
		StartTime: result.Timestamp,
		EndTime:   now,
		Metadata: model.OperationMetadata{
			InitiatedBy: adminID,
			Parameters: map[string]string{
				"overall": string(result.Overall),
				"issues":  fmt.Sprintf("%d", len(result.Issues)),
			},
		},
	}
	m.mu.Lock()
	m.recordHistoryLocked(op)
	m.mu.Unlock()
}

func overallHealth(components map[string]model.ComponentHealth) model.ComponentHealth {
	overall := model.HealthHealthy
	for _, h := range components {
		switch h {
		case model.HealthCritical:
			return model.HealthCritical
		case model.HealthDegraded:
			overall = model.HealthDegraded
		}
	}
	return overall
}

func buildRecommendations(r model.DiagnosticResult) []string {
	var recs []string
	if r.QueueDepth > queueDegradedDepth {
		recs = append(recs, "drain the offline deletion queue")
	}
	for _, snap := range r.Breakers {
		if snap.State == model.CircuitOpen {
			recs = append(recs, "investigate the dependency behind breaker "+snap.Name)
		}
	}
	if len(r.Issues) == 0 {
		recs = append(recs, "no action required")
	}
	return recs
}
