package kernel

import "time"

// Status is a saved status register. Only the global interrupt-enable bit is
// modelled.
type Status uint8

const statusI Status = 1 << 7

// Enabled reports whether interrupts are enabled in s.
func (s Status) Enabled() bool { return s&statusI != 0 }

// cpu is the simulated core: a status register and a clear-on-compare tick
// counter. Virtual time only moves when task code consumes it.
type cpu struct {
	sreg    Status
	tick    time.Duration
	counter time.Duration
	pending bool
	pace    bool
}

func (c *cpu) enabled() bool { return c.sreg.Enabled() }

func (c *cpu) disable() Status {
	prev := c.sreg
	c.sreg &^= statusI
	return prev
}

// untilCompare is the time left before the counter matches the tick period.
func (c *cpu) untilCompare() time.Duration { return c.tick - c.counter }

// run advances the counter by d, which must not exceed untilCompare. A
// compare match clears the counter and latches the timer interrupt.
func (c *cpu) run(d time.Duration) {
	if c.pace {
		time.Sleep(d)
	}
	c.counter += d
	if c.counter >= c.tick {
		c.counter = 0
		c.pending = true
	}
}

// consume burns d of CPU time on behalf of the running task, taking the timer
// interrupt at every compare match while interrupts are enabled.
func (k *Kernel) consume(d time.Duration) {
	for d > 0 {
		step := k.cpu.untilCompare()
		if step > d {
			step = d
		}
		k.cpu.run(step)
		d -= step
		k.poll()
	}
}

// poll takes a latched timer interrupt if interrupts are enabled.
func (k *Kernel) poll() {
	if k.cpu.pending && k.cpu.enabled() {
		k.interrupt()
	}
}

// restore reinstates a saved status register. A compare match that happened
// inside the critical section fires here.
func (k *Kernel) restore(prev Status) {
	k.cpu.sreg = prev
	k.poll()
}

func (k *Kernel) now() time.Duration {
	t := time.Duration(k.ticks)*k.cpu.tick + k.cpu.counter
	if k.cpu.pending {
		t += k.cpu.tick
	}
	return t.Truncate(time.Millisecond)
}
