package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is one execution of a scheduled job's body.
type TickFunc func(ctx context.Context, now time.Time) error

// Options tune job execution.
type Options struct {
	Interval     time.Duration
	StartupDelay time.Duration
	TickTimeout  time.Duration
}

// Job wraps a tick function with an interval and an overlap guard. A timer
// fire that lands while a prior tick is still in flight is skipped entirely;
// the guard is released on every exit path, including panics, so a failed
// tick can never lock the job out permanently.
type Job struct {
	name    string
	opts    Options
	tick    TickFunc
	running atomic.Bool
	logger  zerolog.Logger
}

// NewJob constructs a named scheduled job.
func NewJob(name string, opts Options, tick TickFunc, logger zerolog.Logger) *Job {
	if opts.Interval <= 0 {
		panic("scheduler: job interval must be positive")
	}
	return &Job{
		name:   name,
		opts:   opts,
		tick:   tick,
		logger: logger.With().Str("component", "scheduler").Str("job", name).Logger(),
	}
}

// Name returns the job name.
func (j *Job) Name() string {
	return j.name
}

// RunOnce executes a single tick unless a prior tick is still in flight, in
// which case it performs no work and reports false. Tick errors and panics
// are logged and contained; they never propagate past the tick. The named
// result is set before the tick body runs so a recovered panic still
// reports the tick as ran, not skipped.
func (j *Job) RunOnce(ctx context.Context, now time.Time) (ran bool) {
	if !j.running.CompareAndSwap(false, true) {
		j.logger.Warn().Time("fire", now).Msg("previous tick still running, skipping")
		return false
	}
	defer j.running.Store(false)

	tickCtx := ctx
	if j.opts.TickTimeout > 0 {
		var cancel context.CancelFunc
		tickCtx, cancel = context.WithTimeout(ctx, j.opts.TickTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			j.logger.Error().Interface("panic", r).Time("fire", now).Msg("tick panicked")
		}
	}()

	ran = true
	j.logger.Debug().Time("fire", now).Msg("executing tick")
	if err := j.tick(tickCtx, now); err != nil {
		j.logger.Error().Err(err).Time("fire", now).Msg("tick execution failed")
	}
	return ran
}

// Run blocks, firing the job at each interval until ctx is cancelled. Each
// fire dispatches asynchronously so a slow tick causes skipped fires rather
// than a drifting schedule.
func (j *Job) Run(ctx context.Context) error {
	if j.opts.StartupDelay > 0 {
		timer := time.NewTimer(j.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	ticker := time.NewTicker(j.opts.Interval)
	defer ticker.Stop()

	var inflight sync.WaitGroup
	defer inflight.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fire := <-ticker.C:
			inflight.Add(1)
			go func(now time.Time) {
				defer inflight.Done()
				j.RunOnce(ctx, now.UTC())
			}(fire)
		}
	}
}

// Runner drives a set of jobs until the context is cancelled.
type Runner struct {
	jobs   []*Job
	logger zerolog.Logger
}

// NewRunner constructs a Runner over the given jobs.
func NewRunner(logger zerolog.Logger, jobs ...*Job) *Runner {
	return &Runner{jobs: jobs, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run starts every job and blocks until the context is cancelled and all
// jobs have wound down.
func (r *Runner) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, job := range r.jobs {
		wg.Add(1)
		go func(j *Job) {
			defer wg.Done()
			r.logger.Info().Str("job", j.Name()).Dur("interval", j.opts.Interval).Msg("job started")
			_ = j.Run(ctx)
		}(job)
	}
	wg.Wait()
	return ctx.Err()
}
