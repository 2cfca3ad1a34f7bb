package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func testOpts() Options {
	return Options{Interval: time.Minute, TickTimeout: time.Second}
}

func TestRunOnceSkipsWhileTickInFlight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	var ticks int
	var mu sync.Mutex

	job := NewJob("test", testOpts(), func(ctx context.Context, now time.Time) error {
		mu.Lock()
		ticks++
		mu.Unlock()
		close(entered)
		<-release
		return nil
	}, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		require.True(t, job.RunOnce(context.Background(), time.Now()))
	}()

	<-entered
	// Second fire while the first tick is in flight must perform no work.
	require.False(t, job.RunOnce(context.Background(), time.Now()))

	close(release)
	<-done

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, ticks)
}

func TestRunOnceReleasesGuardAfterError(t *testing.T) {
	job := NewJob("test", testOpts(), func(ctx context.Context, now time.Time) error {
		return errors.New("boom")
	}, zerolog.Nop())

	require.True(t, job.RunOnce(context.Background(), time.Now()))
	// The failed tick must not leave the guard held.
	require.True(t, job.RunOnce(context.Background(), time.Now()))
}

func TestRunOnceReleasesGuardAfterPanic(t *testing.T) {
	calls := 0
	job := NewJob("test", testOpts(), func(ctx context.Context, now time.Time) error {
		calls++
		if calls == 1 {
			panic("tick gone wrong")
		}
		return nil
	}, zerolog.Nop())

	// The recovered panic must still report as a tick that ran, and must
	// not leave the guard held.
	require.True(t, job.RunOnce(context.Background(), time.Now()))
	require.True(t, job.RunOnce(context.Background(), time.Now()))
	require.Equal(t, 2, calls)
}

func TestRunOnceAppliesTickTimeout(t *testing.T) {
	opts := Options{Interval: time.Minute, TickTimeout: 10 * time.Millisecond}
	var deadlineErr error
	job := NewJob("test", opts, func(ctx context.Context, now time.Time) error {
		select {
		case <-ctx.Done():
			deadlineErr = ctx.Err()
		case <-time.After(time.Second):
		}
		return deadlineErr
	}, zerolog.Nop())

	job.RunOnce(context.Background(), time.Now())
	require.ErrorIs(t, deadlineErr, context.DeadlineExceeded)
}

func TestNewJobRejectsNonPositiveInterval(t *testing.T) {
	require.Panics(t, func() {
		NewJob("test", Options{}, func(ctx context.Context, now time.Time) error { return nil }, zerolog.Nop())
	})
}
