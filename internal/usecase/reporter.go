package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"TrendRadar/internal/domain"
	"TrendRadar/internal/logging"
	"TrendRadar/internal/ports"
	"TrendRadar/internal/trend"
)

// DefaultWindowDays is how many previous days a daily report correlates against.
const DefaultWindowDays = 3

// ReporterDeps wires the reporter.
type ReporterDeps struct {
	Analyzer     ports.BatchAnalyzer
	Archive      ports.Archive
	Notifier     ports.Notifier
	Logger       *slog.Logger
	Location     *time.Location
	WindowDays   int
	EnableStream bool
	SentinelMin  int
	TopClusters  int
	Now          func() time.Time
}

// Reporter turns analysis batches into persisted summaries and published reports.
type Reporter struct {
	analyzer     ports.BatchAnalyzer
	archive      ports.Archive
	notifier     ports.Notifier
	logger       *slog.Logger
	loc          *time.Location
	windowDays   int
	enableStream bool
	sentinelMin  int
	topClusters  int
	now          func() time.Time
}

var _ ports.HotlistReporter = (*Reporter)(nil)

// NewReporter constructs the reporter.
func NewReporter(deps ReporterDeps) *Reporter {
	r := &Reporter{
		analyzer:     deps.Analyzer,
		archive:      deps.Archive,
		notifier:     deps.Notifier,
		logger:       logging.OrDiscard(deps.Logger).With("component", "reporter"),
		loc:          deps.Location,
		windowDays:   deps.WindowDays,
		enableStream: deps.EnableStream,
		sentinelMin:  deps.SentinelMin,
		topClusters:  deps.TopClusters,
		now:          deps.Now,
	}
	if r.loc == nil {
		r.loc = time.UTC
	}
	if r.windowDays <= 0 {
		r.windowDays = DefaultWindowDays
	}
	if r.sentinelMin <= 0 {
		r.sentinelMin = trend.DefaultSentinelOccurrences
	}
	if r.topClusters <= 0 {
		r.topClusters = defaultTopClusters
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// RunHourlyAnalysis analyzes items resolved into the index partition of day and
// appends the batch to the day of its timestamp.
func (r *Reporter) RunHourlyAnalysis(ctx context.Context, day time.Time, items []domain.IndexedItem) error {
	if len(items) == 0 {
		return nil
	}
	if r.analyzer == nil || r.archive == nil {
		return fmt.Errorf("reporter is not configured")
	}

	summary, err := r.analyzer.AnalyzeBatch(ctx, day, items)
	if err != nil {
		return fmt.Errorf("analyze batch: %w", err)
	}
	if summary.Timestamp.IsZero() {
		summary.Timestamp = r.now()
	}

	if err := r.archive.AppendBatch(ctx, summary); err != nil {
		return fmt.Errorf("save batch: %w", err)
	}
	r.logger.Info("hourly analysis saved", "topics", len(summary.Topics))
	return nil
}

// RunDailyReport aggregates the batches of day, correlates them with the previous
// window of daily summaries and publishes the result. A day without batches
// yields a nil report.
func (r *Reporter) RunDailyReport(ctx context.Context, day time.Time) (*ports.Report, error) {
	if r.archive == nil {
		return nil, fmt.Errorf("reporter is not configured")
	}

	dayStart := domain.StartOfDay(day, r.loc)
	dayKey := dayStart.Format(domain.DayLayout)

	batches, err := r.archive.LoadBatches(ctx, dayStart)
	if err != nil {
		return nil, fmt.Errorf("load batches: %w", err)
	}
	if len(batches) == 0 {
		r.logger.Warn("no hourly results, skipping daily report", "date", dayKey)
		return nil, nil
	}

	index, err := r.archive.LoadIndex(ctx, dayStart)
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}

	today := trend.AggregateDaily(batches, dayKey, r.now(), index)

	history, err := r.archive.GetSummaryRange(ctx, dayStart.AddDate(0, 0, -r.windowDays), dayStart.AddDate(0, 0, -1))
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	streams, err := r.streamsBetween(ctx, dayStart, dayStart.AddDate(0, 0, 1).Add(-time.Nanosecond))
	if err != nil {
		return nil, err
	}

	clusters := trend.Correlate(today, history, streams)

	if err := r.archive.SaveDailySummary(ctx, dayStart, today); err != nil {
		return nil, fmt.Errorf("save daily summary: %w", err)
	}

	report := r.buildReport("TrendRadar Daily Report - "+dayKey, today, clusters, index, batches, streams)
	if err := r.publish(ctx, dayStart, "report-"+r.now().In(r.loc).Format("20060102-1504")+".md", report); err != nil {
		return nil, err
	}

	r.logger.Info("daily report generated", "date", dayKey, "trends", len(today.Trends), "clusters", len(clusters))
	return &report, nil
}

// RunRangeReport reports on an arbitrary window of at most MaxRangeDays. Batches
// are cut to the exact range; clusters correlate against daily summaries stored
// inside the range.
func (r *Reporter) RunRangeReport(ctx context.Context, tr domain.TimeRange) (*ports.Report, error) {
	if r.archive == nil {
		return nil, fmt.Errorf("reporter is not configured")
	}

	batches, err := r.archive.GetBatchesInRange(ctx, tr.Start, tr.End)
	if err != nil {
		return nil, fmt.Errorf("load batches: %w", err)
	}
	if len(batches) == 0 {
		r.logger.Warn("no batches in range, skipping report", "start", tr.Start, "end", tr.End)
		return nil, nil
	}

	index, err := r.archive.GetNewsIndexInRange(ctx, tr.Start, tr.End)
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}

	summaries, err := r.archive.GetSummaryRange(ctx, tr.Start, tr.End)
	if err != nil {
		return nil, fmt.Errorf("load summaries: %w", err)
	}

	endKey := domain.DayKey(tr.End, r.loc)
	current := trend.AggregateDaily(batches, endKey, r.now(), index)

	history := make([]domain.DailyTrendSummary, 0, len(summaries))
	for _, s := range summaries {
		if s.Date != endKey {
			history = append(history, s)
		}
	}

	streams, err := r.streamsBetween(ctx, tr.Start, tr.End)
	if err != nil {
		return nil, err
	}

	clusters := trend.Correlate(current, history, streams)

	title := fmt.Sprintf("TrendRadar %s Report %s to %s", tr.Mode,
		tr.Start.In(r.loc).Format("2006-01-02 15:04"), tr.End.In(r.loc).Format("2006-01-02 15:04"))
	report := r.buildReport(title, current, clusters, index, batches, streams)

	name := fmt.Sprintf("report-%s-%s.md", tr.Start.In(r.loc).Format("20060102-1504"), tr.End.In(r.loc).Format("20060102-1504"))
	if err := r.publish(ctx, tr.End, name, report); err != nil {
		return nil, err
	}

	r.logger.Info("range report generated", "mode", tr.Mode, "batches", len(batches), "clusters", len(clusters))
	return &report, nil
}

func (r *Reporter) streamsBetween(ctx context.Context, start, end time.Time) ([]domain.StreamItem, error) {
	if !r.enableStream {
		return nil, nil
	}
	items, err := r.archive.GetStreamItems(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("load stream items: %w", err)
	}
	out := make([]domain.StreamItem, 0, len(items))
	for _, item := range items {
		if !item.Timestamp.After(end) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *Reporter) buildReport(
	title string,
	summary domain.DailyTrendSummary,
	clusters []domain.TrendCluster,
	index domain.Index,
	batches []domain.TopicSummary,
	streams []domain.StreamItem,
) ports.Report {
	deduped := trend.Dedupe(trend.TopicScores(batches))
	for _, m := range deduped.MergeLog {
		r.logger.Debug("topic merged", "from", m.From, "to", m.To)
	}

	topics := make([]domain.Topic, 0, len(deduped.Merged))
	for _, t := range deduped.Merged {
		topics = append(topics, domain.Topic{Label: t.Label, HeatScore: t.HeatScore, MemberIDs: t.MemberIDs})
	}

	report := ports.Report{
		Title:    title,
		Summary:  summary,
		Clusters: clusters,
		Index:    index,
		Topics:   topics,
	}
	if len(streams) > 0 {
		report.StreamMatches = trend.CorrelateStreams(summary.Trends, streams)
		report.Sentinels = trend.DetectSentinels(streams, summary.Trends, r.sentinelMin)
	}
	return report
}

// publish archives the rendered digest and hands it to the notifier. Delivery
// failures are logged; the archived copy stays authoritative.
func (r *Reporter) publish(ctx context.Context, day time.Time, name string, report ports.Report) error {
	digest := RenderDigest(report, r.topClusters)
	if err := r.archive.PutText(ctx, day, name, digest); err != nil {
		return fmt.Errorf("archive report: %w", err)
	}

	if r.notifier == nil {
		return nil
	}
	if err := r.notifier.PublishDigest(ctx, digest); err != nil {
		r.logger.Error("publish digest failed", "error", err)
	}
	return nil
}
