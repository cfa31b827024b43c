package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"TrendRadar/internal/domain"
	"TrendRadar/internal/logging"
	"TrendRadar/internal/metrics"
	"TrendRadar/internal/ports"
)

// Task names registered by the application.
const (
	TaskMonitor = "monitor"
	TaskReport  = "report"
)

// Trigger labels recorded in the run ledger.
const (
	TriggerCron = "cron"
	TriggerHTTP = "http"
	TriggerCLI  = "cli"
)

// ErrUnknownTask is returned for task names nobody registered.
var ErrUnknownTask = errors.New("unknown task")

// TaskFunc is one runnable unit of work.
type TaskFunc func(ctx context.Context) error

// RunnerDeps wires the overlap guard, the ledger and metrics.
type RunnerDeps struct {
	Locker  ports.Locker
	Ledger  ports.RunLedger
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	Now     func() time.Time
}

// Runner executes named tasks so that at most one run of a task is active at a
// time, recording every run in the ledger.
type Runner struct {
	locker  ports.Locker
	ledger  ports.RunLedger
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time

	mu    sync.RWMutex
	tasks map[string]TaskFunc
	wg    sync.WaitGroup
}

// NewRunner constructs a runner. Locker is required.
func NewRunner(deps RunnerDeps) *Runner {
	r := &Runner{
		locker:  deps.Locker,
		ledger:  deps.Ledger,
		metrics: deps.Metrics,
		logger:  logging.OrDiscard(deps.Logger).With("component", "runner"),
		now:     deps.Now,
		tasks:   make(map[string]TaskFunc),
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Register binds fn to name, replacing any previous registration.
func (r *Runner) Register(name string, fn TaskFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[name] = fn
}

// Tasks lists registered task names in sorted order.
func (r *Runner) Tasks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes task synchronously. It returns domain.ErrTaskInProgress when
// another run holds the task lock.
func (r *Runner) Run(ctx context.Context, task, trigger string) error {
	fn, err := r.lookup(task)
	if err != nil {
		return err
	}
	return r.Do(ctx, task, trigger, fn)
}

// Do runs fn synchronously under the lock and ledger entry of task, which need
// not be registered. Parameterised runs, such as a report for a given day, use it.
func (r *Runner) Do(ctx context.Context, task, trigger string, fn TaskFunc) error {
	unlock, err := r.acquire(ctx, task)
	if err != nil {
		return err
	}
	defer unlock()
	return r.execute(ctx, task, trigger, fn)
}

// Start acquires the task lock and runs the task in the background. Lock
// errors are returned before anything starts; the run itself outlives ctx
// cancellation.
func (r *Runner) Start(ctx context.Context, task, trigger string) error {
	fn, err := r.lookup(task)
	if err != nil {
		return err
	}
	unlock, err := r.acquire(ctx, task)
	if err != nil {
		return err
	}

	runCtx := context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer unlock()
		if err := r.execute(runCtx, task, trigger, fn); err != nil {
			r.logger.Error("background task failed", "task", task, "error", err)
		}
	}()
	return nil
}

// Wait blocks until every background run has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// LatestRuns returns the ledger's most recent run per task.
func (r *Runner) LatestRuns(ctx context.Context) ([]domain.TaskRun, error) {
	if r.ledger == nil {
		return nil, nil
	}
	return r.ledger.LatestRuns(ctx)
}

func (r *Runner) lookup(task string) (TaskFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.tasks[task]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, task)
	}
	return fn, nil
}

func (r *Runner) acquire(ctx context.Context, task string) (func(), error) {
	if r.locker == nil {
		return func() {}, nil
	}

	unlock, acquired, err := r.locker.TryLock(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", task, err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskInProgress, task)
	}
	return unlock, nil
}

func (r *Runner) execute(ctx context.Context, task, trigger string, fn TaskFunc) error {
	started := r.now()
	run := domain.TaskRun{Task: task, Trigger: trigger, StartedAt: started, Status: domain.RunRunning}
	if r.ledger != nil {
		recorded, err := r.ledger.StartRun(ctx, task, trigger, started)
		if err != nil {
			r.logger.Error("record run start failed", "task", task, "error", err)
		} else {
			run = recorded
		}
	}

	r.logger.Info("task started", "task", task, "trigger", trigger)
	runErr := fn(ctx)

	finished := r.now()
	run.FinishedAt = &finished
	run.Status = domain.RunSuccess
	if runErr != nil {
		run.Status = domain.RunFailed
		run.Error = runErr.Error()
	}

	if r.ledger != nil && run.ID != "" {
		if err := r.ledger.FinishRun(ctx, run); err != nil {
			r.logger.Error("record run finish failed", "task", task, "error", err)
		}
	}
	r.metrics.ObserveRun(task, string(run.Status), finished.Sub(started))

	if runErr != nil {
		return fmt.Errorf("task %s: %w", task, runErr)
	}
	r.logger.Info("task finished", "task", task, "took", finished.Sub(started))
	return nil
}
