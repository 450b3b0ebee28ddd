package kernel

import "fmt"

// TaskID indexes a descriptor in the task pool.
type TaskID int

// NoTask marks an empty queue link.
const NoTask TaskID = -1

// Level is the scheduling class of a task.
type Level uint8

const (
	System Level = iota + 1
	Periodic
	RoundRobin
	Idle
)

func (l Level) String() string {
	switch l {
	case System:
		return "system"
	case Periodic:
		return "periodic"
	case RoundRobin:
		return "round-robin"
	case Idle:
		return "idle"
	default:
		return fmt.Sprintf("level(%d)", uint8(l))
	}
}

// State is the scheduling state of a task.
type State uint8

const (
	Dead State = iota
	Ready
	Running
	Waiting
)

func (s State) String() string {
	switch s {
	case Dead:
		return "dead"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Waiting:
		return "waiting"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Entry is a task body. Returning from it terminates the task.
type Entry func(*Context)

// TaskSpec describes a task to create.
type TaskSpec struct {
	Entry Entry
	Arg   int
	Level Level
	Name  uint8

	// Period, WCET and Start are in ticks and only used by Periodic tasks.
	// Start is an absolute tick; a start that is not in the future releases
	// the task immediately.
	Period uint32
	WCET   uint32
	Start  uint32
}

// timing is the bookkeeping carried only by Periodic descriptors.
type timing struct {
	period   uint32
	wcet     uint32
	start    uint32
	wcetLeft int64
	timeLeft int64
	overruns uint64
	slot     int
}

type descriptor struct {
	id    TaskID
	frame *frame
	ctx   *Context

	state State
	level Level
	entry Entry
	arg   int
	name  uint8
	per   *timing

	waitOn *Service
	dst    *int16

	// ret latches the result of the last kernel request issued by this task.
	ret bool

	next TaskID
}
