package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"TrendRadar/internal/config"
	"TrendRadar/internal/domain"
	"TrendRadar/internal/infrastructure/httpapi"
	"TrendRadar/internal/infrastructure/llm"
	"TrendRadar/internal/infrastructure/lock"
	"TrendRadar/internal/infrastructure/parser"
	"TrendRadar/internal/infrastructure/scheduler"
	"TrendRadar/internal/infrastructure/storage"
	"TrendRadar/internal/infrastructure/telegram"
	"TrendRadar/internal/logging"
	"TrendRadar/internal/metrics"
	"TrendRadar/internal/ports"
	"TrendRadar/internal/scanner"
	"TrendRadar/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	loc      *time.Location
	metrics  *metrics.Metrics
	ledger   *storage.RunLedger
	redis    *lock.Redis
	monitor  *usecase.Monitor
	reporter *usecase.Reporter
	runner   *usecase.Runner
}

// New builds the application graph. The run ledger and an optional Redis lock
// are opened here and released by Close.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	loc := cfg.Scheduler.Location()
	m := metrics.New()

	archive := storage.NewFileArchive(cfg.Archive.Dir, loc)

	registry := scanner.NewRegistry(
		parser.NewAPIScanner(nil),
		parser.NewRSSScanner(nil),
		parser.NewHTMLScanner(nil),
	)
	crawler := parser.NewStrategySource(registry, cfg.Crawler, baseLogger)

	var notifier ports.Notifier
	if tg := telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID); tg.Configured() {
		notifier = tg
	} else {
		baseLogger.Info("telegram not configured, reports are archived only")
	}

	analyzer := usecase.NewBatchAnalyzer(usecase.AnalyzerDeps{
		Provider: llm.NewChatGPTClient(cfg.LLM),
		Archive:  archive,
		Metrics:  m,
		Logger:   baseLogger,
		Location: loc,
	})

	reporter := usecase.NewReporter(usecase.ReporterDeps{
		Analyzer:     analyzer,
		Archive:      archive,
		Notifier:     notifier,
		Logger:       baseLogger,
		Location:     loc,
		WindowDays:   cfg.Analysis.WindowDays,
		EnableStream: cfg.Analysis.EnableStream,
		SentinelMin:  cfg.Analysis.SentinelMinOccurrences,
	})

	monitor := usecase.NewMonitor(usecase.MonitorDeps{
		Crawler:         crawler,
		Archive:         archive,
		Reporter:        reporter,
		Metrics:         m,
		Logger:          baseLogger,
		HotlistSources:  cfg.HotlistSources,
		StreamSources:   cfg.StreamSources,
		EnableStream:    cfg.Analysis.EnableStream,
		HotlistInterval: time.Duration(cfg.Analysis.HotlistIntervalMinutes) * time.Minute,
		Location:        loc,
	})

	a := &Application{
		cfg:      cfg,
		logger:   baseLogger,
		loc:      loc,
		metrics:  m,
		monitor:  monitor,
		reporter: reporter,
	}

	ledger, err := storage.OpenRunLedger(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open run ledger: %w", err)
	}
	a.ledger = ledger

	var locker ports.Locker = lock.NewLocal()
	if cfg.Lock.RedisAddr != "" {
		r, err := lock.Dial(ctx, cfg.Lock.RedisAddr, cfg.Lock.TTL, baseLogger)
		if err != nil {
			_ = ledger.Close()
			return nil, fmt.Errorf("connect lock backend: %w", err)
		}
		a.redis = r
		locker = r
	}

	a.runner = usecase.NewRunner(usecase.RunnerDeps{
		Locker:  locker,
		Ledger:  ledger,
		Metrics: m,
		Logger:  baseLogger,
	})
	a.runner.Register(usecase.TaskMonitor, func(ctx context.Context) error {
		return a.monitor.Tick(ctx, time.Now().In(a.loc))
	})
	a.runner.Register(usecase.TaskReport, func(ctx context.Context) error {
		_, err := a.reporter.RunDailyReport(ctx, time.Now().In(a.loc))
		return err
	})

	return a, nil
}

// RunMonitor performs one monitor tick.
func (a *Application) RunMonitor(ctx context.Context, trigger string) error {
	return a.runner.Run(ctx, usecase.TaskMonitor, trigger)
}

// RunDailyReport generates the daily report of day, formatted YYYY-MM-DD. An
// empty day means today.
func (a *Application) RunDailyReport(ctx context.Context, day, trigger string) error {
	target := time.Now().In(a.loc)
	if day != "" {
		parsed, err := time.ParseInLocation(domain.DayLayout, day, a.loc)
		if err != nil {
			return fmt.Errorf("parse date %q: %w", day, err)
		}
		target = parsed
	}
	return a.runner.Do(ctx, usecase.TaskReport, trigger, func(ctx context.Context) error {
		_, err := a.reporter.RunDailyReport(ctx, target)
		return err
	})
}

// RunRangeReport reports on the window from..to, both "yy-MM-dd HH:mm". An
// empty to means now.
func (a *Application) RunRangeReport(ctx context.Context, from, to, trigger string) error {
	tr, err := domain.NewTimeRange(from, to, time.Now().In(a.loc), a.loc)
	if err != nil {
		return err
	}
	return a.runner.Do(ctx, usecase.TaskReport, trigger, func(ctx context.Context) error {
		_, err := a.reporter.RunRangeReport(ctx, tr)
		return err
	})
}

// Serve runs the cron jobs and the status server until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	monitorCron, err := scheduler.NewCronScheduler(a.cfg.Scheduler.MonitorCron, a.loc)
	if err != nil {
		return fmt.Errorf("monitor schedule: %w", err)
	}
	reportCron, err := scheduler.NewCronScheduler(a.cfg.Scheduler.DailyReportCron, a.loc)
	if err != nil {
		return fmt.Errorf("report schedule: %w", err)
	}

	jobs := usecase.NewScheduler(a.runner, a.logger,
		usecase.Job{Task: usecase.TaskMonitor, Driver: monitorCron},
		usecase.Job{Task: usecase.TaskReport, Driver: reportCron},
	)
	server := httpapi.New(httpapi.Deps{
		Runner:  a.runner,
		Metrics: a.metrics.Handler(),
		Logger:  a.logger,
	})

	if err := jobs.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started",
		"monitor", monitorCron.Spec(), "report", reportCron.Spec(), "timezone", a.loc.String())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(":" + strconv.Itoa(a.cfg.Server.Port))
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		err := errors.Join(jobs.Stop(shutdownCtx), server.Shutdown(shutdownCtx))
		a.runner.Wait()
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.logger.Info("daemon stopped")
	return nil
}

// Close releases the ledger and the lock backend.
func (a *Application) Close() error {
	var errs []error
	if a.ledger != nil {
		errs = append(errs, a.ledger.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	return errors.Join(errs...)
}
