package hal

import (
	"sync"
	"time"
)

// hostTime turns wall time into a 1ms tick stream. Tick n is due n-1
// milliseconds after the first step, so slow stepping never drifts.
// Ticks that find the channel full are dropped; consumers see the gap in
// the sequence numbers.
type hostTime struct {
	ch  chan uint64
	now func() time.Time

	mu      sync.Mutex
	start   time.Time
	sent    uint64
	dropped uint64
}

func newHostTime(buffer int) *hostTime {
	return &hostTime{ch: make(chan uint64, buffer), now: time.Now}
}

func (t *hostTime) Ticks() <-chan uint64 { return t.ch }

func (t *hostTime) step() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if t.start.IsZero() {
		t.start = now
	}
	due := uint64(now.Sub(t.start)/time.Millisecond) + 1
	for t.sent < due {
		t.sent++
		select {
		case t.ch <- t.sent:
		default:
			t.dropped++
		}
	}
}

// Dropped returns how many ticks were lost to a full channel.
func (t *hostTime) Dropped() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}
