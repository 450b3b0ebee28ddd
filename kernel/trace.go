package kernel

import "fmt"

// EventKind classifies a scheduling event.
type EventKind uint8

const (
	EventCreate EventKind = iota + 1
	EventDispatch
	EventPreempt
	EventRelease
	EventOverrun
	EventWait
	EventWake
	EventTerminate
	EventAbort
)

func (e EventKind) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventDispatch:
		return "dispatch"
	case EventPreempt:
		return "preempt"
	case EventRelease:
		return "release"
	case EventOverrun:
		return "overrun"
	case EventWait:
		return "wait"
	case EventWake:
		return "wake"
	case EventTerminate:
		return "terminate"
	case EventAbort:
		return "abort"
	default:
		return fmt.Sprintf("event(%d)", uint8(e))
	}
}

// Event is one scheduling decision.
type Event struct {
	Tick  uint64
	Kind  EventKind
	Task  TaskID
	Name  uint8
	Level Level
}

// Tracer receives scheduling events. It is called with interrupts disabled
// and must not call back into the kernel.
type Tracer interface {
	Trace(Event)
}

// TracerFunc adapts a function to Tracer.
type TracerFunc func(Event)

func (f TracerFunc) Trace(e Event) { f(e) }

func (k *Kernel) trace(kind EventKind, d *descriptor) {
	if k.cfg.Tracer == nil {
		return
	}
	k.cfg.Tracer.Trace(Event{
		Tick:  k.ticks,
		Kind:  kind,
		Task:  d.id,
		Name:  d.name,
		Level: d.level,
	})
}
