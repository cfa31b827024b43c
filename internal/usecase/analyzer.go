package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"TrendRadar/internal/domain"
	"TrendRadar/internal/logging"
	"TrendRadar/internal/metrics"
	"TrendRadar/internal/ports"
	"TrendRadar/internal/retry"
)

// maxSplitDepth bounds bisection; halving reaches singletons long before it.
const maxSplitDepth = 32

const safetyLogKey = "safety.log"

const (
	narrativeNoItems = "no new items to analyze"
	narrativeFlagged = "item skipped by content policy"
)

// AnalyzerDeps wires the provider and the archive used to flag rejected items.
// A nil Retry means retry.DefaultOptions.
type AnalyzerDeps struct {
	Provider ports.AnalysisProvider
	Archive  ports.Archive
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Location *time.Location
	Retry    *retry.Options
	Now      func() time.Time
}

// BatchAnalyzer isolates content-policy failures by bisecting the batch until
// the offending items are singled out and flagged.
type BatchAnalyzer struct {
	provider ports.AnalysisProvider
	archive  ports.Archive
	metrics  *metrics.Metrics
	logger   *slog.Logger
	loc      *time.Location
	retry    retry.Options
	now      func() time.Time
}

var _ ports.BatchAnalyzer = (*BatchAnalyzer)(nil)

// NewBatchAnalyzer constructs the analyzer.
func NewBatchAnalyzer(deps AnalyzerDeps) *BatchAnalyzer {
	a := &BatchAnalyzer{
		provider: deps.Provider,
		archive:  deps.Archive,
		metrics:  deps.Metrics,
		logger:   logging.OrDiscard(deps.Logger).With("component", "analyzer"),
		loc:      deps.Location,
		now:      deps.Now,
	}
	if a.loc == nil {
		a.loc = time.UTC
	}
	if a.now == nil {
		a.now = time.Now
	}
	a.retry = retry.DefaultOptions()
	if deps.Retry != nil {
		a.retry = *deps.Retry
	}
	a.retry.Logger = a.logger
	return a
}

// AnalyzeBatch skips already flagged items and analyzes the rest. Transient
// provider failures are retried; once retries are spent the result is a
// degraded summary instead of an error. Rejected items are flagged in the
// index partition of day. Only archive failures while flagging are returned.
func (a *BatchAnalyzer) AnalyzeBatch(ctx context.Context, day time.Time, items []domain.IndexedItem) (domain.TopicSummary, error) {
	valid := make([]domain.IndexedItem, 0, len(items))
	for _, item := range items {
		if !item.Flagged {
			valid = append(valid, item)
		}
	}

	if len(valid) == 0 {
		return a.emptySummary(narrativeNoItems), nil
	}
	if skipped := len(items) - len(valid); skipped > 0 {
		a.logger.Info("skipping flagged items", "count", skipped)
	}
	if a.provider == nil {
		return domain.TopicSummary{}, fmt.Errorf("analysis provider is not configured")
	}

	if day.IsZero() {
		day = a.now()
	}

	a.logger.Info("analyzing batch", "items", len(valid))
	return a.analyze(ctx, day, valid, 0)
}

func (a *BatchAnalyzer) analyze(ctx context.Context, day time.Time, items []domain.IndexedItem, depth int) (domain.TopicSummary, error) {
	summary, err := retry.Value(ctx, a.retry, func(ctx context.Context) (domain.TopicSummary, error) {
		s, err := a.provider.AnalyzeBatch(ctx, items)
		if domain.IsContentPolicy(err) {
			return s, retry.Permanent(err)
		}
		return s, err
	})
	if err == nil {
		a.metrics.IncBatch("ok")
		if summary.Timestamp.IsZero() {
			summary.Timestamp = a.now()
		}
		return summary, nil
	}

	if !domain.IsContentPolicy(err) || depth >= maxSplitDepth {
		a.metrics.IncBatch("degraded")
		a.logger.Error("analysis failed", "items", len(items), "error", err)
		return a.emptySummary("analysis skipped: " + err.Error()), nil
	}

	if len(items) == 1 {
		return a.flag(ctx, day, items[0])
	}

	a.metrics.IncBatch("split")
	mid := len(items) / 2
	a.logger.Warn("content policy rejection, splitting batch", "size", len(items), "depth", depth)

	var left, right domain.TopicSummary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		left, err = a.analyze(gctx, day, items[:mid], depth+1)
		return err
	})
	g.Go(func() error {
		var err error
		right, err = a.analyze(gctx, day, items[mid:], depth+1)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.TopicSummary{}, err
	}

	return mergeSummaries(left, right, a.now()), nil
}

// flag records a singleton rejection in the safety log of day and marks the
// record in that day's index so later batches exclude it.
func (a *BatchAnalyzer) flag(ctx context.Context, day time.Time, item domain.IndexedItem) (domain.TopicSummary, error) {
	a.metrics.IncBatch("flagged")
	a.metrics.IncFlagged()
	a.logger.Warn("single item rejected by content policy", "id", item.ID, "title", item.Title)

	if a.archive != nil {
		day = day.In(a.loc)
		line := fmt.Sprintf("[Safety Risk] ID: %s | Title: %s | URL: %s", item.ID, item.Title, item.URL)
		if err := a.archive.AppendLog(ctx, day, safetyLogKey, line); err != nil {
			return domain.TopicSummary{}, fmt.Errorf("log safety risk: %w", err)
		}
		err := a.archive.UpdateIndex(ctx, day, func(index domain.Index) (domain.Index, error) {
			if rec, ok := index[item.ID]; ok {
				rec.Flagged = true
				index[item.ID] = rec
			}
			return index, nil
		})
		if err != nil {
			return domain.TopicSummary{}, fmt.Errorf("flag item %s: %w", item.ID, err)
		}
	}

	return a.emptySummary(narrativeFlagged), nil
}

func (a *BatchAnalyzer) emptySummary(narrative string) domain.TopicSummary {
	return domain.TopicSummary{Timestamp: a.now(), Narrative: narrative, Topics: []domain.Topic{}}
}

// mergeSummaries joins two halves left-then-right. Placeholder narratives of
// empty halves are dropped from the joined narrative.
func mergeSummaries(left, right domain.TopicSummary, at time.Time) domain.TopicSummary {
	var parts []string
	for _, n := range []string{left.Narrative, right.Narrative} {
		n = strings.TrimSpace(n)
		if n == "" || n == narrativeNoItems {
			continue
		}
		parts = append(parts, n)
	}

	topics := make([]domain.Topic, 0, len(left.Topics)+len(right.Topics))
	topics = append(topics, left.Topics...)
	topics = append(topics, right.Topics...)

	return domain.TopicSummary{
		Timestamp: at,
		Narrative: strings.Join(parts, " | "),
		Topics:    topics,
	}
}
