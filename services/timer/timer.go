// Package timer is an auxiliary millisecond timer driven by the HAL tick
// stream, independent of the kernel tick.
package timer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"ember/hal"
)

type Timer struct {
	ht  hal.Time
	log *zap.Logger

	mu       sync.Mutex
	interval uint64
	fn       func()
	running  bool
	count    uint64
	last     uint64
	firing   bool
	fired    uint64
}

func New(ht hal.Time, logger *zap.Logger) *Timer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Timer{ht: ht, log: logger, interval: 1}
}

// Set stops the timer and installs fn to run every interval. Intervals
// below 1ms are rounded up to 1ms.
func (t *Timer) Set(interval time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ms := uint64(interval / time.Millisecond)
	if ms == 0 {
		ms = 1
	}
	t.interval = ms
	t.fn = fn
	t.running = false
}

// Start clears the count and arms the timer.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count = 0
	t.running = true
}

func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
}

func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Fired returns how many times the callback has run.
func (t *Timer) Fired() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fired
}

// Run consumes the tick stream until ctx is done.
func (t *Timer) Run(ctx context.Context) error {
	ch := t.ht.Ticks()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case seq := <-ch:
			t.advance(seq)
		}
	}
}

// advance accounts for every tick since the last sequence number, so ticks
// dropped by a full channel still count.
func (t *Timer) advance(seq uint64) {
	t.mu.Lock()
	n := uint64(1)
	if t.last != 0 && seq > t.last {
		n = seq - t.last
	}
	t.last = seq
	t.mu.Unlock()

	for i := uint64(0); i < n; i++ {
		t.overflow()
	}
}

func (t *Timer) overflow() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.count++
	if t.count < t.interval || t.firing {
		t.mu.Unlock()
		return
	}
	t.firing = true
	t.count = 0
	fn, interval := t.fn, t.interval
	t.mu.Unlock()

	if fn != nil {
		fn()
	}

	t.mu.Lock()
	t.firing = false
	t.fired++
	t.mu.Unlock()
	t.log.Debug("timer fired", zap.Uint64("interval_ms", interval))
}
