package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"TrendRadar/internal/config"
	"TrendRadar/internal/domain"
	"TrendRadar/internal/identity"
	"TrendRadar/internal/logging"
	"TrendRadar/internal/metrics"
	"TrendRadar/internal/ports"
)

// DefaultHotlistInterval is how long the hotlist gate stays closed after an attempt.
const DefaultHotlistInterval = 120 * time.Minute

// MonitorDeps wires all driven adapters into the monitor tick.
type MonitorDeps struct {
	Crawler         ports.Crawler
	Archive         ports.Archive
	Reporter        ports.HotlistReporter
	Metrics         *metrics.Metrics
	Logger          *slog.Logger
	HotlistSources  []config.SourceConfig
	StreamSources   []config.SourceConfig
	EnableStream    bool
	HotlistInterval time.Duration
	Location        *time.Location
}

// Monitor runs the two time-gated tasks. The only state it carries between
// ticks is the persisted SchedulerState.
type Monitor struct {
	crawler        ports.Crawler
	archive        ports.Archive
	reporter       ports.HotlistReporter
	metrics        *metrics.Metrics
	logger         *slog.Logger
	hotlistSources []config.SourceConfig
	streamSources  []config.SourceConfig
	enableStream   bool
	interval       time.Duration
	loc            *time.Location
}

// NewMonitor constructs the monitor.
func NewMonitor(deps MonitorDeps) *Monitor {
	m := &Monitor{
		crawler:        deps.Crawler,
		archive:        deps.Archive,
		reporter:       deps.Reporter,
		metrics:        deps.Metrics,
		logger:         logging.OrDiscard(deps.Logger).With("component", "monitor"),
		hotlistSources: deps.HotlistSources,
		streamSources:  deps.StreamSources,
		enableStream:   deps.EnableStream,
		interval:       deps.HotlistInterval,
		loc:            deps.Location,
	}
	if m.interval <= 0 {
		m.interval = DefaultHotlistInterval
	}
	if m.loc == nil {
		m.loc = time.UTC
	}
	return m
}

// Tick evaluates the stream gate, then the hotlist gate, and persists the state.
// Task failures are logged and never returned; the state is stamped for every
// attempted task. Only scheduler-state I/O errors reach the caller.
func (m *Monitor) Tick(ctx context.Context, now time.Time) error {
	if m.archive == nil {
		return fmt.Errorf("monitor archive is not configured")
	}

	state, err := m.archive.LoadSchedulerState(ctx)
	if err != nil {
		return fmt.Errorf("load scheduler state: %w", err)
	}

	if m.enableStream && len(m.streamSources) > 0 {
		if err := m.runStream(ctx); err != nil {
			m.logger.Error("stream task failed", "error", err)
		}
		stamp := now
		state.LastStreamRunAt = &stamp
	}

	elapsed := minutesSince(state.LastHotlistRunAt, now)
	if elapsed >= int64(m.interval/time.Minute) {
		m.logger.Info("running hotlist analysis", "minutes_since_last", elapsed)
		if err := m.runHotlist(ctx, now); err != nil {
			m.logger.Error("hotlist task failed", "error", err)
		}
		stamp := now
		state.LastHotlistRunAt = &stamp
	} else {
		m.logger.Info("skipping hotlist analysis", "minutes_since_last", elapsed)
	}

	if err := m.archive.SaveSchedulerState(ctx, state); err != nil {
		return fmt.Errorf("save scheduler state: %w", err)
	}
	return nil
}

func (m *Monitor) runStream(ctx context.Context) error {
	if m.crawler == nil {
		return fmt.Errorf("crawler is not configured")
	}

	items := m.crawler.FetchStreams(ctx, m.streamSources)
	for _, item := range items {
		if err := m.archive.AppendStreamItem(ctx, item); err != nil {
			return fmt.Errorf("append stream item: %w", err)
		}
	}
	m.metrics.AddStream(len(items))
	m.logger.Info("stream items buffered", "count", len(items))
	return nil
}

func (m *Monitor) runHotlist(ctx context.Context, now time.Time) error {
	if m.crawler == nil {
		return fmt.Errorf("crawler is not configured")
	}

	raw := m.crawler.FetchHotlists(ctx, m.hotlistSources)
	if len(raw) == 0 {
		m.logger.Warn("no hotlist items fetched")
		return nil
	}
	m.metrics.AddIngested(len(raw))

	day := now.In(m.loc)
	var resolved []domain.IndexedItem
	err := m.archive.UpdateIndex(ctx, day, func(index domain.Index) (domain.Index, error) {
		var updated domain.Index
		updated, resolved = identity.Resolve(index, raw)
		return updated, nil
	})
	if err != nil {
		return fmt.Errorf("resolve items: %w", err)
	}
	m.logger.Info("hotlist items resolved", "raw", len(raw), "records", len(resolved))

	if m.reporter == nil {
		return nil
	}
	if err := m.reporter.RunHourlyAnalysis(ctx, day, resolved); err != nil {
		return fmt.Errorf("hourly analysis: %w", err)
	}
	return nil
}

// minutesSince treats a missing timestamp as infinitely long ago.
func minutesSince(last *time.Time, now time.Time) int64 {
	if last == nil {
		return math.MaxInt64
	}
	return int64(now.Sub(*last) / time.Minute)
}
