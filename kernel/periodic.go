package kernel

import "go.uber.org/zap"

// register claims a periodic table slot for d.
func (k *Kernel) register(d *descriptor, s TaskSpec) bool {
	for i, id := range k.periodic {
		if id != NoTask {
			continue
		}
		k.periodic[i] = d.id
		d.per = &timing{
			period: s.Period,
			wcet:   s.WCET,
			start:  s.Start,
			slot:   i,
		}
		return true
	}
	return false
}

func (k *Kernel) unregister(d *descriptor) {
	if d.per == nil {
		return
	}
	k.periodic[d.per.slot] = NoTask
	d.per = nil
}

// arm sets the first release of a new periodic task. A start that is not in
// the future releases it now; arm reports whether it did.
func (k *Kernel) arm(d *descriptor) bool {
	t := d.per
	start := uint64(t.start)
	if start > k.ticks {
		t.timeLeft = int64(start - k.ticks)
		d.state = Waiting
		return false
	}
	t.timeLeft = int64(t.period)
	k.releaseNow(d)
	return true
}

func (k *Kernel) releaseNow(d *descriptor) {
	d.per.wcetLeft = int64(d.per.wcet)
	d.state = Ready
	k.pool.push(&k.periodicReady, d)
	k.log.Debug("task released",
		zap.Int("task", int(d.id)),
		zap.Uint8("name", d.name),
		zap.Uint32("wcet", d.per.wcet),
		zap.Uint64("tick", k.ticks),
	)
	k.trace(EventRelease, d)
}

// tickExpired is the kernel half of the timer interrupt.
func (k *Kernel) tickExpired() {
	k.ticks++
	cur := k.cur

	if cur.state == Running && cur.level == Periodic {
		cur.per.wcetLeft--
		if cur.per.wcetLeft <= 0 {
			k.log.Error("periodic task exceeded its wcet",
				zap.Int("task", int(cur.id)),
				zap.Uint8("name", cur.name),
				zap.Uint32("wcet", cur.per.wcet),
				zap.Uint64("tick", k.ticks),
			)
			k.fail(ErrRunPeriodicOverrun, nil)
			return
		}
	}

	k.release()
	if k.fatal != nil {
		return
	}

	if cur.state == Running && cur.level == RoundRobin {
		k.preempt(cur)
	}
}

// release counts down every registered periodic task and releases those whose
// period has elapsed.
func (k *Kernel) release() {
	for _, id := range k.periodic {
		if id == NoTask {
			continue
		}
		d := k.pool.at(id)
		t := d.per
		t.timeLeft--
		if t.timeLeft > 0 {
			continue
		}
		t.timeLeft = int64(t.period)

		if d.state != Waiting {
			t.overruns++
			k.overruns++
			k.log.Warn("periodic release overrun",
				zap.Int("task", int(d.id)),
				zap.Uint8("name", d.name),
				zap.Stringer("state", d.state),
				zap.Uint64("overruns", t.overruns),
				zap.Uint64("tick", k.ticks),
			)
			k.trace(EventOverrun, d)
			if k.cfg.AbortOnOverrun {
				k.fail(ErrRunPeriodicConflict, nil)
				return
			}
			continue
		}
		k.releaseNow(d)
	}
}
