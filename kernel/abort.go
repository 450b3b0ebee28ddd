package kernel

import (
	"fmt"

	"go.uber.org/zap"
)

// Code identifies a fatal kernel error. Codes below ErrRunUserAbort are raised
// while the system is still initialising.
type Code uint8

const (
	ErrInitTooManyPeriodic Code = iota
	ErrInitTooManyServices

	ErrRunUserAbort
	ErrRunTooManyServices
	ErrRunPeriodicOverrun
	ErrRunPeriodicConflict
	ErrRunInternal
	ErrRunTooManyPeriodic
	ErrRunPublishNoSubscribers
	ErrRunPeriodicSubscribe
	ErrRunTaskPanic
)

// Runtime reports whether c belongs to the run-time range.
func (c Code) Runtime() bool { return c >= ErrRunUserAbort }

// Flashes is the number of short LED flashes that encode c.
func (c Code) Flashes() int {
	if c.Runtime() {
		return int(c-ErrRunUserAbort) + 1
	}
	return int(c) + 1
}

func (c Code) String() string {
	switch c {
	case ErrInitTooManyPeriodic:
		return "too many periodic tasks"
	case ErrInitTooManyServices:
		return "too many services"
	case ErrRunUserAbort:
		return "user abort"
	case ErrRunTooManyServices:
		return "too many services"
	case ErrRunPeriodicOverrun:
		return "periodic task exceeded its wcet"
	case ErrRunPeriodicConflict:
		return "periodic release while previous instance pending"
	case ErrRunInternal:
		return "internal error"
	case ErrRunTooManyPeriodic:
		return "too many periodic tasks"
	case ErrRunPublishNoSubscribers:
		return "publish with no subscribers"
	case ErrRunPeriodicSubscribe:
		return "periodic task subscribed"
	case ErrRunTaskPanic:
		return "task panic"
	default:
		return fmt.Sprintf("code(%d)", uint8(c))
	}
}

// FatalError is returned by Run when the kernel aborts.
type FatalError struct {
	Code  Code
	Tick  uint64
	Task  TaskID
	Panic *PanicInfo
}

func (e *FatalError) Error() string {
	phase := "init"
	if e.Code.Runtime() {
		phase = "run"
	}
	if e.Panic != nil {
		return fmt.Sprintf("kernel abort (%s %d): %s: task %d: %v", phase, e.Code.Flashes(), e.Code, e.Task, e.Panic.Value)
	}
	return fmt.Sprintf("kernel abort (%s %d): %s at tick %d", phase, e.Code.Flashes(), e.Code, e.Tick)
}

// phase picks the init or run-time variant of an error.
func (k *Kernel) phase(init, run Code) Code {
	if k.booting {
		return init
	}
	return run
}

// fail records the first fatal error. Interrupts stay off from here on.
func (k *Kernel) fail(code Code, p *PanicInfo) {
	if k.fatal != nil {
		return
	}
	k.cpu.sreg = 0
	task := NoTask
	if k.cur != nil {
		task = k.cur.id
	}
	k.fatal = &FatalError{Code: code, Tick: k.ticks, Task: task, Panic: p}
	k.log.Error("kernel abort",
		zap.Stringer("code", code),
		zap.Bool("runtime", code.Runtime()),
		zap.Uint64("tick", k.ticks),
		zap.Int("task", int(task)),
	)
	if k.cur != nil {
		k.trace(EventAbort, k.cur)
	}
}
