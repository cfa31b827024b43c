package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"TrendRadar/internal/domain"
	"TrendRadar/internal/ports"
)

// Archive file names inside one day partition.
const (
	IndexFile   = "index.json"
	BatchesFile = "keywords.json"
	SummaryFile = "summary.json"
	StreamFile  = "stream-buffer.jsonl"
	stateFile   = "status.json"
)

// FileArchive stores one directory per calendar day under dir. Days are taken in
// loc; a missing file reads as empty and every other I/O error propagates.
type FileArchive struct {
	dir string
	loc *time.Location
	now func() time.Time

	// mu serialises read-modify-write cycles on partition files.
	mu sync.Mutex
}

var _ ports.Archive = (*FileArchive)(nil)

// NewFileArchive roots an archive at dir.
func NewFileArchive(dir string, loc *time.Location) *FileArchive {
	if loc == nil {
		loc = time.UTC
	}
	return &FileArchive{dir: dir, loc: loc, now: time.Now}
}

// WithClock replaces the wall clock used to bound stream reads.
func (a *FileArchive) WithClock(now func() time.Time) *FileArchive {
	if now != nil {
		a.now = now
	}
	return a
}

// Dir exposes the archive root.
func (a *FileArchive) Dir() string {
	return a.dir
}

// LoadIndex returns the identity index of one day, empty when none exists yet.
func (a *FileArchive) LoadIndex(_ context.Context, day time.Time) (domain.Index, error) {
	index := domain.Index{}
	if _, err := a.readJSON(a.dayPath(day, IndexFile), &index); err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	if index == nil {
		index = domain.Index{}
	}
	return index, nil
}

// SaveIndex replaces the identity index of one day.
func (a *FileArchive) SaveIndex(_ context.Context, day time.Time, index domain.Index) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.writeJSON(a.dayPath(day, IndexFile), index); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	return nil
}

// UpdateIndex loads, transforms and stores one day's index while holding the archive lock.
func (a *FileArchive) UpdateIndex(ctx context.Context, day time.Time, fn func(domain.Index) (domain.Index, error)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	index, err := a.LoadIndex(ctx, day)
	if err != nil {
		return err
	}
	updated, err := fn(index)
	if err != nil {
		return err
	}
	if err := a.writeJSON(a.dayPath(day, IndexFile), updated); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	return nil
}

// GetNewsIndexInRange merges the indexes of every day in [start, end]. For an id
// seen on several days the first sighting is the seed; firstSeen takes the
// minimum, lastSeen the maximum, occurrences the sum and maxRank the minimum.
func (a *FileArchive) GetNewsIndexInRange(ctx context.Context, start, end time.Time) (domain.Index, error) {
	merged := domain.Index{}
	for _, day := range domain.EachDay(start, end, a.loc) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		index, err := a.LoadIndex(ctx, day)
		if err != nil {
			return nil, err
		}
		for id, item := range index {
			existing, ok := merged[id]
			if !ok {
				merged[id] = item.Clone()
				continue
			}
			if item.FirstSeen.Before(existing.FirstSeen) {
				existing.FirstSeen = item.FirstSeen
			}
			if item.LastSeen.After(existing.LastSeen) {
				existing.LastSeen = item.LastSeen
			}
			existing.Occurrences += item.Occurrences
			if item.MaxRank < existing.MaxRank {
				existing.MaxRank = item.MaxRank
			}
			merged[id] = existing
		}
	}
	return merged, nil
}

// LoadBatches returns every analysis batch stored on one day.
func (a *FileArchive) LoadBatches(_ context.Context, day time.Time) ([]domain.TopicSummary, error) {
	var batches []domain.TopicSummary
	if _, err := a.readJSON(a.dayPath(day, BatchesFile), &batches); err != nil {
		return nil, fmt.Errorf("load batches: %w", err)
	}
	return batches, nil
}

// AppendBatch adds summary to the batch list of the day of its own timestamp.
func (a *FileArchive) AppendBatch(ctx context.Context, summary domain.TopicSummary) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	batches, err := a.LoadBatches(ctx, summary.Timestamp)
	if err != nil {
		return err
	}
	batches = append(batches, summary)
	if err := a.writeJSON(a.dayPath(summary.Timestamp, BatchesFile), batches); err != nil {
		return fmt.Errorf("append batch: %w", err)
	}
	return nil
}

// GetBatchesInRange returns batches of every day intersecting [start, end] whose
// own timestamp also lies inside the range.
func (a *FileArchive) GetBatchesInRange(ctx context.Context, start, end time.Time) ([]domain.TopicSummary, error) {
	var out []domain.TopicSummary
	for _, day := range domain.EachDay(start, end, a.loc) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batches, err := a.LoadBatches(ctx, day)
		if err != nil {
			return nil, err
		}
		for _, b := range batches {
			if b.Timestamp.Before(start) || b.Timestamp.After(end) {
				continue
			}
			out = append(out, b)
		}
	}
	return out, nil
}

// GetDailySummary returns nil when the day has no summary.
func (a *FileArchive) GetDailySummary(_ context.Context, day time.Time) (*domain.DailyTrendSummary, error) {
	var summary domain.DailyTrendSummary
	found, err := a.readJSON(a.dayPath(day, SummaryFile), &summary)
	if err != nil {
		return nil, fmt.Errorf("load summary: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &summary, nil
}

// SaveDailySummary replaces the summary of one day.
func (a *FileArchive) SaveDailySummary(_ context.Context, day time.Time, summary domain.DailyTrendSummary) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.writeJSON(a.dayPath(day, SummaryFile), summary); err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

// GetSummaryRange returns the summaries of [start, end] in day order, skipping
// days without one.
func (a *FileArchive) GetSummaryRange(ctx context.Context, start, end time.Time) ([]domain.DailyTrendSummary, error) {
	var out []domain.DailyTrendSummary
	for _, day := range domain.EachDay(start, end, a.loc) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		summary, err := a.GetDailySummary(ctx, day)
		if err != nil {
			return nil, err
		}
		if summary != nil {
			out = append(out, *summary)
		}
	}
	return out, nil
}

// AppendStreamItem appends one JSON line to the stream buffer of the item's day.
func (a *FileArchive) AppendStreamItem(_ context.Context, item domain.StreamItem) error {
	line, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode stream item: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.appendLine(a.dayPath(item.Timestamp, StreamFile), string(line)); err != nil {
		return fmt.Errorf("append stream item: %w", err)
	}
	return nil
}

// GetStreamItems reads the stream buffers from the day of since through today and
// keeps items stamped at or after since. Lines that fail to parse are dropped.
func (a *FileArchive) GetStreamItems(ctx context.Context, since time.Time) ([]domain.StreamItem, error) {
	var out []domain.StreamItem
	for _, day := range domain.EachDay(since, a.now(), a.loc) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := os.ReadFile(a.dayPath(day, StreamFile))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read stream buffer: %w", err)
		}

		scanner := bufio.NewScanner(bytes.NewReader(raw))
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var item domain.StreamItem
			if err := json.Unmarshal(line, &item); err != nil {
				continue
			}
			if item.Timestamp.Before(since) {
				continue
			}
			out = append(out, item)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("scan stream buffer: %w", err)
		}
	}
	return out, nil
}

// AppendLog appends a timestamped line to a log file of one day.
func (a *FileArchive) AppendLog(_ context.Context, day time.Time, key, message string) error {
	line := fmt.Sprintf("[%s] %s", a.now().In(a.loc).Format(time.RFC3339), message)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.appendLine(a.dayPath(day, key), line); err != nil {
		return fmt.Errorf("append %s: %w", key, err)
	}
	return nil
}

// PutText writes a text artifact, such as a rendered report, into one day.
func (a *FileArchive) PutText(_ context.Context, day time.Time, key, content string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.writeFile(a.dayPath(day, key), []byte(content)); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// LoadSchedulerState returns the zero state when nothing was persisted yet.
func (a *FileArchive) LoadSchedulerState(_ context.Context) (domain.SchedulerState, error) {
	var state domain.SchedulerState
	if _, err := a.readJSON(filepath.Join(a.dir, stateFile), &state); err != nil {
		return domain.SchedulerState{}, fmt.Errorf("load scheduler state: %w", err)
	}
	return state, nil
}

// SaveSchedulerState persists the process-wide scheduler record.
func (a *FileArchive) SaveSchedulerState(_ context.Context, state domain.SchedulerState) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.writeJSON(filepath.Join(a.dir, stateFile), state); err != nil {
		return fmt.Errorf("save scheduler state: %w", err)
	}
	return nil
}

func (a *FileArchive) dayPath(day time.Time, key string) string {
	return filepath.Join(a.dir, domain.DayKey(day, a.loc), key)
}

// readJSON reports found=false without error when the file does not exist.
func (a *FileArchive) readJSON(path string, v any) (bool, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

func (a *FileArchive) writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return a.writeFile(path, raw)
}

// writeFile replaces path through a temp file so readers never see a partial write.
func (a *FileArchive) writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (a *FileArchive) appendLine(path, line string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
