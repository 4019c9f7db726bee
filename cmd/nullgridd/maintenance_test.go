package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullgrid/nullgrid/internal/config"
	"github.com/nullgrid/nullgrid/internal/models"
	"github.com/nullgrid/nullgrid/internal/persist"
)

func testEngine(t *testing.T) *persist.Engine {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	engine := persist.NewEngine(filepath.Join(t.TempDir(), "state.ngrid"), "key", log)
	require.NoError(t, engine.Save(models.NewStore()))
	return engine
}

func TestStartMaintenanceRegistersJobs(t *testing.T) {
	cfg := &config.Config{
		BackupSchedule: "0 3 * * *",
		BackupDir:      t.TempDir(),
		PendingMaxAge:  24 * time.Hour,
	}
	sched := startMaintenance(context.Background(), cfg, testEngine(t), nil, slog.New(slog.DiscardHandler))
	defer sched.Stop()

	assert.Len(t, sched.Entries(), 2)
}

func TestStartMaintenanceSkipsDisabledSweep(t *testing.T) {
	cfg := &config.Config{
		BackupSchedule: "0 3 * * *",
		BackupDir:      t.TempDir(),
	}
	sched := startMaintenance(context.Background(), cfg, testEngine(t), nil, slog.New(slog.DiscardHandler))
	defer sched.Stop()

	assert.Len(t, sched.Entries(), 1)
}

func TestStartMaintenanceToleratesBadSchedule(t *testing.T) {
	cfg := &config.Config{
		BackupSchedule: "not a schedule",
		BackupDir:      t.TempDir(),
	}
	sched := startMaintenance(context.Background(), cfg, testEngine(t), nil, slog.New(slog.DiscardHandler))
	defer sched.Stop()

	assert.Empty(t, sched.Entries())
}

func TestLoggerLevelParsing(t *testing.T) {
	log := newLogger("debug")
	assert.True(t, log.Enabled(context.Background(), slog.LevelDebug))

	log = newLogger("nonsense")
	assert.False(t, log.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, log.Enabled(context.Background(), slog.LevelInfo))
}
