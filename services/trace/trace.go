// Package trace records a bounded execution trace and prints it to a
// diagnostic sink.
package trace

import (
	"fmt"
	"io"
	"sync"

	"ember/kernel"
)

// DefaultCapacity is the number of records kept before new ones are dropped.
const DefaultCapacity = 128

// Task names the demo tasks use; Label prints them by name.
const (
	System1 uint8 = iota + 1
	System2
	System3
	Periodic1
	Periodic2
	Periodic3
	RoundRobin1
	RoundRobin2
	RoundRobin3
)

var labels = [...]string{
	System1:     "SYSTEM1",
	System2:     "SYSTEM2",
	System3:     "SYSTEM3",
	Periodic1:   "PERIODIC1",
	Periodic2:   "PERIODIC2",
	Periodic3:   "PERIODIC3",
	RoundRobin1: "BRR1",
	RoundRobin2: "BRR2",
	RoundRobin3: "BRR3",
}

// Label returns the printable name of a task name.
func Label(task uint8) string {
	if int(task) < len(labels) && labels[task] != "" {
		return labels[task]
	}
	return fmt.Sprintf("TASK%d", task)
}

// Record is one trace entry. Time is in kernel ticks.
type Record struct {
	Task     uint8
	Function uint8
	Time     uint64
}

// Buffer is a fixed-slot record store. Once full, Add fails and the record
// is counted as dropped.
type Buffer struct {
	mu      sync.Mutex
	slots   []Record
	n       int
	dropped uint64
	kinds   map[kernel.EventKind]bool
}

// New returns a buffer with room for capacity records. When kinds is
// non-empty only those kernel events are recorded by Trace.
func New(capacity int, kinds ...kernel.EventKind) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	b := &Buffer{slots: make([]Record, capacity)}
	if len(kinds) > 0 {
		b.kinds = make(map[kernel.EventKind]bool, len(kinds))
		for _, k := range kinds {
			b.kinds[k] = true
		}
	}
	return b
}

// Add stores r, returning false if the buffer is full.
func (b *Buffer) Add(r Record) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.n >= len(b.slots) {
		b.dropped++
		return false
	}
	b.slots[b.n] = r
	b.n++
	return true
}

// Trace implements kernel.Tracer.
func (b *Buffer) Trace(e kernel.Event) {
	if b.kinds != nil && !b.kinds[e.Kind] {
		return
	}
	b.Add(Record{Task: e.Name, Function: uint8(e.Kind), Time: e.Tick})
}

// Records returns a copy of the stored records in insertion order.
func (b *Buffer) Records() []Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Record, b.n)
	copy(out, b.slots[:b.n])
	return out
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}

func (b *Buffer) Cap() int { return len(b.slots) }

func (b *Buffer) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Reset empties the buffer.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.n = 0
	b.dropped = 0
}

// Print writes one line per record: the task label right-aligned in ten
// columns, followed by the time when withTime is set.
func (b *Buffer) Print(w io.Writer, withTime bool) error {
	for _, r := range b.Records() {
		var err error
		if withTime {
			_, err = fmt.Fprintf(w, "%10s %d\n", Label(r.Task), r.Time)
		} else {
			_, err = fmt.Fprintf(w, "%10s\n", Label(r.Task))
		}
		if err != nil {
			return fmt.Errorf("trace: print: %w", err)
		}
	}
	return nil
}
