// Package biz contains business logic layer implementations.
// This layer holds the resilience coordination core and domain rules.
package biz

import (
	"ContentGuard/internal/data"

	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewResilienceContext,
	NewCoordinator,
	NewContentUsecase,
	NewDeletionUsecase,
	NewRecoveryManager,
	// Bind data layer implementations to biz layer interfaces
	wire.Bind(new(CMSRepo), new(*data.CMSRepoImpl)),
	wire.Bind(new(AuditLogRepo), new(*data.AuditLogRepoImpl)),
	wire.Bind(new(OfflineQueueRepo), new(*data.OfflineQueueRepoImpl)),
	wire.Bind(new(MonitoringRepo), new(*data.MonitoringRepoImpl)),
)
