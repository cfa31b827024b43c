package ports

import (
	"context"
	"time"

	"TrendRadar/internal/config"
	"TrendRadar/internal/domain"
)

// Crawler pulls hotlist and stream entries from configured sources. One failing
// source is logged and skipped; it never aborts the batch.
type Crawler interface {
	FetchHotlists(ctx context.Context, sources []config.SourceConfig) []domain.RawItem
	FetchStreams(ctx context.Context, sources []config.SourceConfig) []domain.StreamItem
}

// AnalysisProvider turns a batch of indexed items into topics. A content-policy
// rejection must satisfy domain.IsContentPolicy.
type AnalysisProvider interface {
	AnalyzeBatch(ctx context.Context, items []domain.IndexedItem) (domain.TopicSummary, error)
}

// BatchAnalyzer is the fault-isolating wrapper around AnalysisProvider. day
// names the index partition the items were resolved into.
type BatchAnalyzer interface {
	AnalyzeBatch(ctx context.Context, day time.Time, items []domain.IndexedItem) (domain.TopicSummary, error)
}

// Archive is the date-partitioned store.
type Archive interface {
	LoadIndex(ctx context.Context, day time.Time) (domain.Index, error)
	SaveIndex(ctx context.Context, day time.Time, index domain.Index) error
	UpdateIndex(ctx context.Context, day time.Time, fn func(domain.Index) (domain.Index, error)) error
	GetNewsIndexInRange(ctx context.Context, start, end time.Time) (domain.Index, error)

	LoadBatches(ctx context.Context, day time.Time) ([]domain.TopicSummary, error)
	AppendBatch(ctx context.Context, summary domain.TopicSummary) error
	GetBatchesInRange(ctx context.Context, start, end time.Time) ([]domain.TopicSummary, error)

	GetDailySummary(ctx context.Context, day time.Time) (*domain.DailyTrendSummary, error)
	SaveDailySummary(ctx context.Context, day time.Time, summary domain.DailyTrendSummary) error
	GetSummaryRange(ctx context.Context, start, end time.Time) ([]domain.DailyTrendSummary, error)

	AppendStreamItem(ctx context.Context, item domain.StreamItem) error
	GetStreamItems(ctx context.Context, since time.Time) ([]domain.StreamItem, error)

	AppendLog(ctx context.Context, day time.Time, key, message string) error
	PutText(ctx context.Context, day time.Time, key, content string) error

	LoadSchedulerState(ctx context.Context) (domain.SchedulerState, error)
	SaveSchedulerState(ctx context.Context, state domain.SchedulerState) error
}

// HotlistReporter receives freshly resolved items once the hotlist gate fires,
// together with the index partition they were resolved into.
type HotlistReporter interface {
	RunHourlyAnalysis(ctx context.Context, day time.Time, items []domain.IndexedItem) error
}

// Report is everything the reporting boundary needs to render one artifact.
type Report struct {
	Title         string
	Summary       domain.DailyTrendSummary
	Clusters      []domain.TrendCluster
	Index         domain.Index
	Topics        []domain.Topic
	Sentinels     []string
	StreamMatches map[string][]domain.StreamItem
}

// Notifier delivers rendered digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Locker grants exclusive named locks. TryLock never blocks on a held lock; it
// reports ok=false instead.
type Locker interface {
	TryLock(ctx context.Context, key string) (unlock func(), ok bool, err error)
}

// RunLedger records task executions.
type RunLedger interface {
	StartRun(ctx context.Context, task, trigger string, startedAt time.Time) (domain.TaskRun, error)
	FinishRun(ctx context.Context, run domain.TaskRun) error
	LatestRuns(ctx context.Context) ([]domain.TaskRun, error)
}

// Scheduler controls when jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
