package kernel

import (
	"runtime"
	"time"
)

// Context is a task's handle on the kernel. Every call is a short critical
// section: interrupts are disabled on entry and the caller's state is restored
// on return.
type Context struct {
	k *Kernel
	d *descriptor
}

// TaskID returns the current task ID.
func (c *Context) TaskID() TaskID { return c.d.id }

// Level returns the scheduling level of the current task.
func (c *Context) Level() Level { return c.d.level }

// Name returns the name byte the task was created with.
func (c *Context) Name() uint8 { return c.d.name }

// Arg returns the argument the task was created with.
func (c *Context) Arg() int {
	prev := c.k.cpu.disable()
	arg := c.d.arg
	c.k.restore(prev)
	return arg
}

// Now returns the time since the kernel started, to the millisecond.
func (c *Context) Now() time.Duration {
	prev := c.k.cpu.disable()
	now := c.k.now()
	c.k.restore(prev)
	return now
}

// Ticks returns the number of timer ticks handled so far.
func (c *Context) Ticks() uint64 {
	prev := c.k.cpu.disable()
	n := c.k.ticks
	c.k.restore(prev)
	return n
}

// Delay keeps the CPU busy for d. Timer interrupts, and so preemption, can
// happen inside it.
func (c *Context) Delay(d time.Duration) {
	c.k.consume(d)
}

// DisableInterrupts masks the timer and returns the previous status.
func (c *Context) DisableInterrupts() Status {
	return c.k.cpu.disable()
}

// RestoreInterrupts reinstates a status returned by DisableInterrupts.
func (c *Context) RestoreInterrupts(s Status) {
	c.k.restore(s)
}

// Yield gives up the CPU. System and round-robin tasks go to the back of
// their queue; a periodic task waits for its next release.
func (c *Context) Yield() {
	k := c.k
	prev := k.cpu.disable()
	k.req.kind = reqNext
	k.enterKernel(c.d.frame)
	k.restore(prev)
}

// Terminate ends the calling task. Deferred calls run first.
func (c *Context) Terminate() {
	c.k.cpu.disable()
	runtime.Goexit()
}

// Abort stops the kernel with ErrRunUserAbort. It does not return.
func (c *Context) Abort() {
	c.abort(ErrRunUserAbort)
}

func (c *Context) abort(code Code) {
	k := c.k
	k.cpu.disable()
	k.fail(code, nil)
	k.enterKernel(c.d.frame)
}

// CreateTask creates a task. It returns false when the pool is full or the
// TaskSpec is invalid.
func (c *Context) CreateTask(s TaskSpec) bool {
	k := c.k
	prev := k.cpu.disable()
	k.req.kind = reqCreate
	k.req.spec = s
	k.enterKernel(c.d.frame)
	ok := c.d.ret
	k.restore(prev)
	return ok
}

// CreateSystemTask creates a system task.
func (c *Context) CreateSystemTask(entry Entry, arg int) bool {
	return c.CreateTask(TaskSpec{Entry: entry, Arg: arg, Level: System})
}

// CreateRoundRobinTask creates a round-robin task.
func (c *Context) CreateRoundRobinTask(entry Entry, arg int) bool {
	return c.CreateTask(TaskSpec{Entry: entry, Arg: arg, Level: RoundRobin})
}

// CreatePeriodicTask creates a periodic task released every period ticks from
// tick start, with a budget of wcet ticks per release.
func (c *Context) CreatePeriodicTask(entry Entry, arg int, period, wcet, start uint32) bool {
	return c.CreateTask(TaskSpec{
		Entry:  entry,
		Arg:    arg,
		Level:  Periodic,
		Period: period,
		WCET:   wcet,
		Start:  start,
	})
}
