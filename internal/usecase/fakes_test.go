package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"TrendRadar/internal/config"
	"TrendRadar/internal/domain"
	"TrendRadar/internal/infrastructure/storage"
	"TrendRadar/internal/retry"
)

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func newTestArchive(t *testing.T) *storage.FileArchive {
	t.Helper()
	return storage.NewFileArchive(t.TempDir(), time.UTC).WithClock(func() time.Time { return testNow })
}

func fixedClock() func() time.Time {
	return func() time.Time { return testNow }
}

func fastRetry() *retry.Options {
	return &retry.Options{Retries: 1, MinDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

type fakeCrawler struct {
	mu           sync.Mutex
	hotlist      []domain.RawItem
	streams      []domain.StreamItem
	hotlistCalls int
	streamCalls  int
}

func (f *fakeCrawler) FetchHotlists(_ context.Context, _ []config.SourceConfig) []domain.RawItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hotlistCalls++
	return f.hotlist
}

func (f *fakeCrawler) FetchStreams(_ context.Context, _ []config.SourceConfig) []domain.StreamItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streamCalls++
	return f.streams
}

type fakeReporter struct {
	calls [][]domain.IndexedItem
	days  []time.Time
	err   error
}

func (f *fakeReporter) RunHourlyAnalysis(_ context.Context, day time.Time, items []domain.IndexedItem) error {
	f.calls = append(f.calls, items)
	f.days = append(f.days, day)
	return f.err
}

// policyProvider rejects every batch containing a title marked "forbidden" and
// answers others with one topic per item. The first resets calls fail with a
// connection error; fail, when set, fails every call.
type policyProvider struct {
	mu     sync.Mutex
	calls  int
	resets int
	fail   error
}

var errConnReset = errors.New("connection reset by peer")

func (p *policyProvider) AnalyzeBatch(_ context.Context, items []domain.IndexedItem) (domain.TopicSummary, error) {
	p.mu.Lock()
	p.calls++
	reset := p.calls <= p.resets
	p.mu.Unlock()

	if reset {
		return domain.TopicSummary{}, errConnReset
	}
	if p.fail != nil {
		return domain.TopicSummary{}, p.fail
	}
	for _, item := range items {
		if strings.Contains(item.Title, "forbidden") {
			return domain.TopicSummary{}, domain.ErrContentPolicy
		}
	}

	topics := make([]domain.Topic, 0, len(items))
	for _, item := range items {
		topics = append(topics, domain.Topic{
			Label:     item.Title,
			Entities:  []string{item.Title},
			HeatScore: 50,
			MemberIDs: []string{item.ID},
		})
	}
	return domain.TopicSummary{Timestamp: testNow, Narrative: "batch of " + items[0].ID, Topics: topics}, nil
}

func (p *policyProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeNotifier struct {
	digests []string
	err     error
}

func (f *fakeNotifier) PublishDigest(_ context.Context, digest string) error {
	f.digests = append(f.digests, digest)
	return f.err
}

type fakeLedger struct {
	mu       sync.Mutex
	started  []domain.TaskRun
	finished []domain.TaskRun
	startErr error
}

func (f *fakeLedger) StartRun(_ context.Context, task, trigger string, startedAt time.Time) (domain.TaskRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return domain.TaskRun{}, f.startErr
	}
	run := domain.TaskRun{ID: task + "-run", Task: task, Trigger: trigger, StartedAt: startedAt, Status: domain.RunRunning}
	f.started = append(f.started, run)
	return run, nil
}

func (f *fakeLedger) FinishRun(_ context.Context, run domain.TaskRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, run)
	return nil
}

func (f *fakeLedger) LatestRuns(_ context.Context) ([]domain.TaskRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.TaskRun(nil), f.finished...), nil
}

// stateFailArchive wraps a real archive but fails scheduler state writes.
type stateFailArchive struct {
	*storage.FileArchive
}

var errStateWrite = errors.New("disk full")

func (s stateFailArchive) SaveSchedulerState(context.Context, domain.SchedulerState) error {
	return errStateWrite
}

// streamFailArchive wraps a real archive but refuses stream buffer appends.
type streamFailArchive struct {
	*storage.FileArchive
}

func (s streamFailArchive) AppendStreamItem(context.Context, domain.StreamItem) error {
	return errStateWrite
}

func indexed(id, title string) domain.IndexedItem {
	return domain.IndexedItem{ID: id, Title: title, URL: "https://example.org/" + id, Sources: []string{"weibo"}}
}
