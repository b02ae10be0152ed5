package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestInvalidSpec(t *testing.T) {
	_, err := New("import", "not a cron spec", time.UTC, func(context.Context) error { return nil })
	assert.Error(t, err)
}

func TestOverlappingRunsAreSkipped(t *testing.T) {
	var runs atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	s, err := New("import", "0 * * * *", time.UTC, func(context.Context) error {
		if runs.Add(1) == 1 {
			close(started)
		}
		<-release
		return nil
	})
	require.NoError(t, err)
	s.Start()

	s.Trigger()
	<-started

	// Returns immediately: the first run still holds the slot.
	s.RunNow()
	assert.EqualValues(t, 1, runs.Load())

	close(release)
	require.NoError(t, s.Stop(context.Background()))
	assert.EqualValues(t, 1, runs.Load())
}

func TestStopCancelsAndWaitsForRunningJob(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool

	s, err := New("import", "@hourly", time.UTC, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
		return ctx.Err()
	})
	require.NoError(t, err)
	s.Start()
	s.Trigger()
	<-started

	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, finished.Load(), "Stop returned before the job finished")
}

func TestStopHonoursDeadline(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	s, err := New("import", "@hourly", time.UTC, func(context.Context) error {
		close(started)
		<-release
		return errors.New("released")
	})
	require.NoError(t, err)
	s.Trigger()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Stop(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, s.Stop(context.Background()))
}
