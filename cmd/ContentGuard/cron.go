package main

import (
	"context"
	"time"

	"ContentGuard/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
)

// StartMaintenanceCron starts the hourly recovery maintenance job. Each run
// prunes expired operation history and logs the offline queue depth so a
// silently growing queue shows up in the logs before diagnostics are run.
func StartMaintenanceCron(manager *biz.RecoveryManager, logger log.Logger) *cron.Cron {
	helper := log.NewHelper(logger)

	c := cron.New()

	_, err := c.AddFunc("@hourly", func() {
		removed := manager.PruneHistory()
		if removed > 0 {
			helper.Infow("msg", "pruned recovery operation history",
				"type", "recovery",
				"removed", removed)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		stats, err := manager.QueueStats(ctx)
		if err != nil {
			helper.Warnw("msg", "offline queue stats unavailable",
				"type", "queue",
				"error", err.Error())
			return
		}
		helper.Infow("msg", "offline queue depth",
			"type", "queue",
			"total", stats.Total,
			"pending", stats.Pending,
			"failed", stats.Failed)
	})

	if err != nil {
		helper.Errorw("msg", "failed to register maintenance cron job", "error", err.Error())
		return nil
	}

	c.Start()
	helper.Infow("msg", "maintenance cron job started, runs hourly", "type", "recovery")

	return c
}
