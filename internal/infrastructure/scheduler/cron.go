package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorhill/cronexpr"

	"TrendRadar/internal/ports"
)

// CronScheduler fires a job at every instant matched by a cron expression,
// evaluated in the configured location.
type CronScheduler struct {
	spec string
	expr *cronexpr.Expression
	loc  *time.Location

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler parses spec; five-field expressions are minute based.
func NewCronScheduler(spec string, loc *time.Location) (*CronScheduler, error) {
	expr, err := cronexpr.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &CronScheduler{spec: spec, expr: expr, loc: loc}, nil
}

// Spec returns the expression the scheduler was built from.
func (c *CronScheduler) Spec() string {
	return c.spec
}

// Next returns the first fire time strictly after t.
func (c *CronScheduler) Next(t time.Time) time.Time {
	return c.expr.Next(t.In(c.loc))
}

// Start launches the timer loop. Jobs run on the loop goroutine, so a slow job
// delays the following fire instead of overlapping it.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return nil
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	c.stop, c.done = stop, done

	go func() {
		defer close(done)
		for {
			next := c.Next(time.Now())
			if next.IsZero() {
				return
			}
			timer := time.NewTimer(time.Until(next))
			select {
			case t := <-timer.C:
				job(t)
			case <-ctx.Done():
				timer.Stop()
				return
			case <-stop:
				timer.Stop()
				return
			}
		}
	}()

	return nil
}

// Stop halts the loop and waits for a running job to return, or for ctx to end.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
