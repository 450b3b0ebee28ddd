package kernel

import "runtime"

// frame is the saved execution context of a task. Each task runs on its own
// goroutine; the frame is how the kernel parks and resumes it. Nothing outside
// this file reads or writes a frame.
type frame struct {
	wake chan struct{}
	done chan struct{}
	sreg Status

	started bool
	killed  bool
}

// bootstrap gives d a fresh context: interrupts enabled, entry first and the
// terminate path after it.
func (k *Kernel) bootstrap(d *descriptor) {
	d.frame = &frame{
		wake: make(chan struct{}),
		done: make(chan struct{}),
		sreg: statusI,
	}
	d.ctx = &Context{k: k, d: d}
}

// exitKernel resumes d and blocks until it enters the kernel again.
func (k *Kernel) exitKernel(d *descriptor) {
	f := d.frame
	k.cpu.sreg = f.sreg
	if !f.started {
		f.started = true
		go k.trampoline(d, f)
	} else {
		f.wake <- struct{}{}
	}
	<-k.enter
}

// enterKernel suspends the calling task. The caller has already disabled
// interrupts and recorded its request.
func (k *Kernel) enterKernel(f *frame) {
	f.sreg = k.cpu.sreg
	k.handoff(f)
}

// interrupt is the timer ISR. It runs on the interrupted task's goroutine and
// saves a context that resumes with interrupts enabled.
func (k *Kernel) interrupt() {
	f := k.cur.frame
	k.cpu.pending = false
	k.cpu.sreg &^= statusI
	f.sreg = k.cpu.sreg | statusI
	k.req.kind = reqTimerExpired
	k.handoff(f)
}

func (k *Kernel) handoff(f *frame) {
	if k.halted {
		runtime.Goexit()
	}
	k.enter <- struct{}{}
	<-f.wake
	if f.killed {
		runtime.Goexit()
	}
}

// trampoline is the bottom of every task goroutine. When the entry returns or
// the task calls Terminate it files a terminate request; a panic becomes a
// fatal error instead.
func (k *Kernel) trampoline(d *descriptor, f *frame) {
	defer close(f.done)
	defer func() {
		if f.killed {
			return
		}
		if r := recover(); r != nil {
			k.cpu.sreg &^= statusI
			k.fail(ErrRunTaskPanic, &PanicInfo{TaskID: d.id, Value: r, Stack: captureStack()})
		} else {
			k.cpu.sreg &^= statusI
			k.req.kind = reqTerminate
		}
		k.enter <- struct{}{}
	}()
	d.entry(d.ctx)
}

// reap waits for a terminated task's goroutine to finish.
func (k *Kernel) reap(d *descriptor) {
	if f := d.frame; f != nil && f.started {
		<-f.done
	}
	d.frame = nil
}

// halt kills every parked task goroutine, one at a time.
func (k *Kernel) halt() {
	k.halted = true
	k.cpu.sreg = 0
	for i := range k.pool.desc {
		d := &k.pool.desc[i]
		f := d.frame
		if f == nil || !f.started {
			continue
		}
		f.killed = true
		close(f.wake)
		<-f.done
		d.frame = nil
	}
}
