package tasks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestQueueRunsSubmittedTasks(t *testing.T) {
	q := NewQueue(2, 8, quiet())
	q.Start()

	var n atomic.Int32
	for i := 0; i < 5; i++ {
		id, err := q.Submit("count", func(context.Context) error {
			n.Add(1)
			return nil
		})
		require.NoError(t, err)
		assert.NotEmpty(t, id)
	}
	require.NoError(t, q.Stop(context.Background()))
	assert.EqualValues(t, 5, n.Load())
}

func TestQueueSubmitDoesNotBlock(t *testing.T) {
	q := NewQueue(1, 1, quiet())
	q.Start()
	release := make(chan struct{})
	started := make(chan struct{})

	_, err := q.Submit("block", func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	require.NoError(t, err)
	<-started

	_, err = q.Submit("fill", func(context.Context) error { return nil })
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := q.Submit("overflow", func(context.Context) error { return nil })
		done <- err
	}()
	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrQueueFull)
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on a full queue")
	}

	close(release)
	require.NoError(t, q.Stop(context.Background()))
}

func TestQueueSurvivesFailingTasks(t *testing.T) {
	q := NewQueue(1, 4, quiet())
	q.Start()

	var ran atomic.Bool
	_, _ = q.Submit("fail", func(context.Context) error { return errors.New("boom") })
	_, _ = q.Submit("panic", func(context.Context) error { panic("oops") })
	_, _ = q.Submit("ok", func(context.Context) error { ran.Store(true); return nil })

	require.NoError(t, q.Stop(context.Background()))
	assert.True(t, ran.Load())
}

func TestQueueClosed(t *testing.T) {
	q := NewQueue(1, 1, quiet())
	q.Start()
	require.NoError(t, q.Stop(context.Background()))
	require.NoError(t, q.Stop(context.Background()))

	_, err := q.Submit("late", func(context.Context) error { return nil })
	require.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueueStopDeadlineCancelsRunning(t *testing.T) {
	q := NewQueue(1, 1, quiet())
	q.Start()
	started := make(chan struct{})
	_, err := q.Submit("slow", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, q.Stop(ctx), context.DeadlineExceeded)
}
