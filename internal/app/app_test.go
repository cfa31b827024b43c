package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendRadar/internal/config"
	"TrendRadar/internal/domain"
	"TrendRadar/internal/logging"
	"TrendRadar/internal/usecase"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Load("")
	cfg.Archive.Dir = dir
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = filepath.Join(dir, "runs.db")
	cfg.Lock.RedisAddr = ""
	cfg.Notifications.Telegram = config.TelegramConfig{}
	return cfg
}

func TestDailyReportWithEmptyArchive(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	require.NoError(t, a.RunDailyReport(ctx, "2026-03-10", usecase.TriggerCLI))

	runs, err := a.runner.LatestRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, usecase.TaskReport, runs[0].Task)
	assert.Equal(t, domain.RunSuccess, runs[0].Status)
}

func TestReportInputValidation(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	require.Error(t, a.RunDailyReport(ctx, "10/03/2026", usecase.TriggerCLI))

	err = a.RunRangeReport(ctx, "26-03-01 00:00", "26-03-10 00:00", usecase.TriggerCLI)
	require.ErrorIs(t, err, domain.ErrInvalidTimeRange)
}

func TestRunnerRegistersBothTasks(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.Equal(t, []string{usecase.TaskMonitor, usecase.TaskReport}, a.runner.Tasks())
}
