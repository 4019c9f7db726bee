package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nullgrid/nullgrid/internal/config"
	"github.com/nullgrid/nullgrid/internal/persist"
	"github.com/nullgrid/nullgrid/internal/service"
)

// startMaintenance schedules the background jobs: nightly artifact
// backups and the stale-registration sweep.
func startMaintenance(ctx context.Context, cfg *config.Config, engine *persist.Engine, accounts *service.AccountService, log *slog.Logger) *cron.Cron {
	sched := cron.New(cron.WithLocation(time.UTC))

	if _, err := sched.AddFunc(cfg.BackupSchedule, func() {
		path, err := engine.Backup(cfg.BackupDir)
		if err != nil {
			log.Error("scheduled backup failed", "err", err)
			return
		}
		log.Info("scheduled backup written", "path", path)
	}); err != nil {
		log.Error("invalid backup schedule, backups disabled", "schedule", cfg.BackupSchedule, "err", err)
	}

	if cfg.PendingMaxAge > 0 {
		if _, err := sched.AddFunc("@hourly", func() {
			jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			swept, err := accounts.ExpireStalePending(jobCtx, cfg.PendingMaxAge)
			if err != nil {
				log.Error("stale registration sweep failed", "err", err)
				return
			}
			if swept > 0 {
				log.Info("stale registrations swept", "count", swept)
			}
		}); err != nil {
			log.Error("scheduling sweep failed", "err", err)
		}
	}

	sched.Start()
	return sched
}
