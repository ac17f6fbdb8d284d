package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/collab-backend/internal/logger"
	"github.com/ignatzorin/collab-backend/internal/usecase/subscription"
)

func init() {
	logger.Silence()
}

type fakeSweeper struct {
	runs  atomic.Int32
	fail  bool
	panic bool
}

func (f *fakeSweeper) Run(_ context.Context, now time.Time) (subscription.Report, error) {
	n := f.runs.Add(1)
	if f.panic && n == 1 {
		panic("boom")
	}
	if f.fail {
		return subscription.Report{}, errors.New("db down")
	}
	return subscription.Report{Scanned: 1}, nil
}

func TestSweepWorker_RunsImmediatelyAndOnTick(t *testing.T) {
	s := &fakeSweeper{}
	w := NewSweepWorker(s, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return s.runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestSweepWorker_SurvivesFailuresAndPanics(t *testing.T) {
	s := &fakeSweeper{fail: true, panic: true}
	w := NewSweepWorker(s, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	require.Eventually(t, func() bool { return s.runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestNewSweepWorker_DefaultInterval(t *testing.T) {
	w := NewSweepWorker(&fakeSweeper{}, 0)
	assert.Equal(t, time.Hour, w.interval)
}
