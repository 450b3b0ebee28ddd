package timer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeTime struct {
	ch chan uint64
}

func (f *fakeTime) Ticks() <-chan uint64 { return f.ch }

func newFake() *fakeTime { return &fakeTime{ch: make(chan uint64, 64)} }

func TestTimerFiresEveryInterval(t *testing.T) {
	ft := newFake()
	tm := New(ft, zaptest.NewLogger(t))

	var calls []uint64
	tm.Set(3*time.Millisecond, func() { calls = append(calls, tm.count) })
	tm.Start()
	for seq := uint64(1); seq <= 10; seq++ {
		tm.advance(seq)
	}
	assert.Len(t, calls, 3)
	assert.Equal(t, uint64(3), tm.Fired())
}

func TestTimerZeroIntervalIsOneMillisecond(t *testing.T) {
	tm := New(newFake(), nil)
	n := 0
	tm.Set(0, func() { n++ })
	tm.Start()
	for seq := uint64(1); seq <= 4; seq++ {
		tm.advance(seq)
	}
	assert.Equal(t, 4, n)
}

func TestTimerStopped(t *testing.T) {
	tm := New(newFake(), nil)
	n := 0
	tm.Set(time.Millisecond, func() { n++ })
	tm.advance(1)
	assert.Zero(t, n, "not started")

	tm.Start()
	tm.advance(2)
	tm.Stop()
	tm.advance(3)
	assert.Equal(t, 1, n)
	assert.False(t, tm.Running())
}

func TestTimerCountsDroppedTicks(t *testing.T) {
	tm := New(newFake(), nil)
	n := 0
	tm.Set(5*time.Millisecond, func() { n++ })
	tm.Start()
	tm.advance(1)
	tm.advance(11)
	assert.Equal(t, 2, n)
}

func TestTimerNotReentrant(t *testing.T) {
	tm := New(newFake(), nil)
	depth := 0
	tm.Set(time.Millisecond, func() {
		depth++
		tm.overflow()
		tm.overflow()
	})
	tm.Start()
	tm.advance(1)
	assert.Equal(t, 1, depth)
	assert.Equal(t, uint64(1), tm.Fired())
}

func TestTimerRun(t *testing.T) {
	ft := newFake()
	tm := New(ft, nil)
	fired := make(chan struct{}, 4)
	tm.Set(2*time.Millisecond, func() { fired <- struct{}{} })
	tm.Start()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tm.Run(ctx) }()

	for seq := uint64(1); seq <= 4; seq++ {
		ft.ch <- seq
	}
	<-fired
	<-fired
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
