package kernel

// Service is a value slot that tasks block on until someone publishes.
type Service struct {
	id      int
	value   int16
	waiting int
	q       queue
}

// ID returns the service index.
func (s *Service) ID() int { return s.id }

// Value returns the last published value.
func (s *Service) Value() int16 { return s.value }

// Waiting returns the number of blocked subscribers.
func (s *Service) Waiting() int { return s.waiting }

func (k *Kernel) allocService() *Service {
	if k.nservices >= len(k.services) {
		return nil
	}
	s := &k.services[k.nservices]
	k.nservices++
	return s
}

// NewService creates a service before Run. Exhausting the pool is an
// initialisation error: NewService returns nil and Run will fail.
func (k *Kernel) NewService() *Service {
	s := k.allocService()
	if s == nil {
		k.fail(ErrInitTooManyServices, nil)
	}
	return s
}

// NewService creates a service from a running task. Exhausting the pool
// aborts the kernel.
func (c *Context) NewService() *Service {
	k := c.k
	prev := k.cpu.disable()
	s := k.allocService()
	if s == nil {
		c.abort(k.phase(ErrInitTooManyServices, ErrRunTooManyServices))
	}
	k.restore(prev)
	return s
}

// Subscribe blocks until the next Publish on s, then stores the published
// value in *dst. Periodic tasks may not subscribe.
func (c *Context) Subscribe(s *Service, dst *int16) {
	k := c.k
	d := c.d
	prev := k.cpu.disable()
	if d.level == Periodic {
		c.abort(ErrRunPeriodicSubscribe)
	}
	if s == nil {
		c.abort(ErrRunInternal)
	}

	d.state = Waiting
	d.waitOn = s
	d.dst = dst
	k.pool.push(&s.q, d)
	s.waiting++
	k.trace(EventWait, d)

	k.req.kind = reqWait
	k.enterKernel(d.frame)

	if d.dst != nil {
		*d.dst = s.value
	}
	d.waitOn = nil
	d.dst = nil
	k.restore(prev)
}

// Publish stores v in s and wakes every subscriber. Woken system tasks run
// before a non-system publisher continues. Publishing to a service nobody
// waits on aborts the kernel.
func (c *Context) Publish(s *Service, v int16) {
	k := c.k
	prev := k.cpu.disable()
	if s == nil || s.waiting == 0 {
		c.abort(ErrRunPublishNoSubscribers)
	}

	s.value = v
	woke := false
	for d := k.pool.pop(&s.q); d != nil; d = k.pool.pop(&s.q) {
		s.waiting--
		if d.state != Waiting {
			continue
		}
		switch d.level {
		case System:
			k.pool.push(&k.system, d)
			woke = true
		case RoundRobin:
			k.pool.push(&k.rr, d)
		default:
			continue
		}
		d.state = Ready
		k.trace(EventWake, d)
	}

	if woke && c.d.level != System {
		k.req.kind = reqInterrupt
		k.enterKernel(c.d.frame)
	}
	k.restore(prev)
}
