package kernel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Config sizes the kernel. Zero fields take their DefaultConfig values.
type Config struct {
	// MaxTasks bounds the tasks alive at once, the boot task included. The
	// idle task has its own slot.
	MaxTasks    int
	MaxServices int
	// MaxPeriodic bounds the periodic table.
	MaxPeriodic int
	// Tick is the timer compare period.
	Tick time.Duration
	// AbortOnOverrun makes a release that finds the previous instance still
	// pending fatal. Otherwise it is counted and logged.
	AbortOnOverrun bool
	// RealTime paces virtual time against the wall clock.
	RealTime bool

	Logger *zap.Logger
	Tracer Tracer
}

// DefaultConfig returns the stock board configuration.
func DefaultConfig() Config {
	return Config{
		MaxTasks:    8,
		MaxServices: 8,
		MaxPeriodic: 7,
		Tick:        5 * time.Millisecond,
	}
}

func (c *Config) fill() {
	def := DefaultConfig()
	if c.MaxTasks == 0 {
		c.MaxTasks = def.MaxTasks
	}
	if c.MaxServices == 0 {
		c.MaxServices = def.MaxServices
	}
	if c.MaxPeriodic == 0 {
		c.MaxPeriodic = c.MaxTasks - 1
	}
	if c.Tick == 0 {
		c.Tick = def.Tick
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

func (c Config) validate() error {
	if c.MaxTasks < 1 {
		return fmt.Errorf("kernel: max tasks %d < 1", c.MaxTasks)
	}
	if c.MaxServices < 0 {
		return fmt.Errorf("kernel: max services %d < 0", c.MaxServices)
	}
	if c.MaxPeriodic < 0 || c.MaxPeriodic > c.MaxTasks {
		return fmt.Errorf("kernel: max periodic %d out of range [0,%d]", c.MaxPeriodic, c.MaxTasks)
	}
	if c.Tick < time.Millisecond {
		return fmt.Errorf("kernel: tick %s below 1ms", c.Tick)
	}
	return nil
}

// ErrAlreadyRun is returned when Run is called twice on one kernel.
var ErrAlreadyRun = errors.New("kernel: already run")

// Kernel is the whole scheduler state. It is driven by the goroutine that
// calls Run and by whichever task currently holds the CPU, never both.
type Kernel struct {
	cfg Config
	log *zap.Logger
	cpu cpu

	pool          *pool
	system        queue
	periodicReady queue
	rr            queue
	periodic      []TaskID

	services  []Service
	nservices int

	cur   *descriptor
	req   request
	ticks uint64
	enter chan struct{}

	boot    TaskID
	booting bool
	ran     bool
	halted  bool
	fatal   *FatalError

	dispatches uint64
	overruns   uint64
}

// New creates a kernel. The idle task is created here; the boot task is
// created by Run.
func New(cfg Config) (*Kernel, error) {
	cfg.fill()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	k := &Kernel{
		cfg:           cfg,
		log:           cfg.Logger.Named("kernel"),
		cpu:           cpu{tick: cfg.Tick, pace: cfg.RealTime},
		pool:          newPool(cfg.MaxTasks),
		system:        newQueue(),
		periodicReady: newQueue(),
		rr:            newQueue(),
		periodic:      make([]TaskID, cfg.MaxPeriodic),
		services:      make([]Service, cfg.MaxServices),
		enter:         make(chan struct{}),
		boot:          NoTask,
		booting:       true,
	}
	for i := range k.periodic {
		k.periodic[i] = NoTask
	}
	for i := range k.services {
		k.services[i] = Service{id: i, q: newQueue()}
	}

	idle := k.pool.idle()
	k.setup(idle, TaskSpec{Entry: k.idle, Level: Idle})
	idle.state = Ready
	return k, nil
}

func (k *Kernel) idle(c *Context) {
	for {
		k.consume(k.cpu.tick)
	}
}

// setup fills d from s and bootstraps its context.
func (k *Kernel) setup(d *descriptor, s TaskSpec) {
	d.entry = s.Entry
	d.arg = s.Arg
	d.level = s.Level
	d.name = s.Name
	d.per = nil
	d.ret = false
	k.bootstrap(d)
}

// Run creates main as a system task and schedules until ctx is done or the
// kernel aborts. An abort is reported as a *FatalError.
func (k *Kernel) Run(ctx context.Context, main Entry) error {
	return k.run(ctx, main, 0)
}

// RunTicks is Run bounded to n timer ticks. It returns nil once the tick
// counter reaches n.
func (k *Kernel) RunTicks(ctx context.Context, main Entry, n uint64) error {
	if n == 0 {
		return errors.New("kernel: RunTicks needs n > 0")
	}
	return k.run(ctx, main, n)
}

func (k *Kernel) run(ctx context.Context, main Entry, limit uint64) error {
	if k.ran {
		return ErrAlreadyRun
	}
	k.ran = true
	if main == nil {
		return errors.New("kernel: nil main task")
	}
	if k.fatal != nil {
		return k.fatal
	}

	boot := k.pool.allocate()
	k.setup(boot, TaskSpec{Entry: main, Level: System})
	boot.state = Running
	k.cur = boot
	k.boot = boot.id
	k.trace(EventCreate, boot)

	k.log.Info("kernel start",
		zap.Int("max_tasks", k.cfg.MaxTasks),
		zap.Int("max_services", k.cfg.MaxServices),
		zap.Duration("tick", k.cfg.Tick),
		zap.Uint64("limit", limit),
	)
	defer k.halt()

	for {
		k.dispatch()
		k.exitKernel(k.cur)
		if k.fatal != nil {
			return k.fatal
		}
		k.handle()
		if k.fatal != nil {
			return k.fatal
		}
		if limit > 0 && k.ticks >= limit {
			k.log.Info("kernel stop", zap.Uint64("tick", k.ticks))
			return nil
		}
		if err := ctx.Err(); err != nil {
			k.log.Info("kernel stop", zap.Uint64("tick", k.ticks), zap.Error(err))
			return err
		}
	}
}

// dispatch selects the task to run next.
func (k *Kernel) dispatch() {
	cur := k.cur
	idle := k.pool.idle()
	if cur != idle && cur.state == Running {
		return
	}

	next := k.pool.pop(&k.system)
	if next == nil {
		next = k.pool.pop(&k.periodicReady)
	}
	if next == nil {
		next = k.pool.pop(&k.rr)
	}
	if next == nil {
		next = idle
	}
	if cur == idle && next != idle {
		idle.state = Ready
	}

	next.state = Running
	if next != cur {
		k.dispatches++
		k.trace(EventDispatch, next)
	}
	if k.booting && next.id != k.boot {
		k.booting = false
	}
	k.cur = next
}

// handle services the request left by the last kernel entry.
func (k *Kernel) handle() {
	cur := k.cur
	switch k.req.kind {
	case reqTimerExpired:
		k.tickExpired()
	case reqCreate:
		cur.ret = k.create(k.req.spec)
	case reqTerminate:
		if cur.level != Idle {
			k.terminate(cur)
		}
	case reqNext:
		k.next(cur)
	case reqGetArg:
		// Read in task context; nothing to do here.
	case reqInterrupt:
		if !k.system.empty() && cur.level != System {
			k.preempt(cur)
		}
	case reqWait:
		// The caller is already queued on its service.
	default:
		k.log.Error("unknown kernel request", zap.Stringer("request", k.req.kind))
		k.fail(ErrRunInternal, nil)
	}
	k.req = request{}
}

func (k *Kernel) create(s TaskSpec) bool {
	if s.Entry == nil {
		return false
	}
	switch s.Level {
	case System, RoundRobin:
	case Periodic:
		if s.Period == 0 || s.WCET == 0 {
			return false
		}
	default:
		return false
	}

	d := k.pool.allocate()
	if d == nil {
		k.log.Debug("task pool exhausted", zap.Stringer("level", s.Level), zap.Uint8("name", s.Name))
		return false
	}
	k.setup(d, s)

	eligible := false
	switch s.Level {
	case System:
		d.state = Ready
		k.pool.push(&k.system, d)
	case RoundRobin:
		d.state = Ready
		k.pool.push(&k.rr, d)
	case Periodic:
		if !k.register(d, s) {
			k.pool.free(d)
			k.fail(k.phase(ErrInitTooManyPeriodic, ErrRunTooManyPeriodic), nil)
			return false
		}
		eligible = k.arm(d)
	}

	k.log.Debug("task created",
		zap.Int("task", int(d.id)),
		zap.Stringer("level", d.level),
		zap.Uint8("name", d.name),
		zap.Int("arg", d.arg),
		zap.Uint64("tick", k.ticks),
	)
	k.trace(EventCreate, d)

	cur := k.cur
	if cur.state == Running &&
		((s.Level == System && cur.level != System) ||
			(s.Level == Periodic && eligible && cur.level == RoundRobin)) {
		k.preempt(cur)
	}
	return true
}

// preempt returns the running task to the tail of its level's queue.
func (k *Kernel) preempt(d *descriptor) {
	if d.state != Running {
		return
	}
	switch d.level {
	case System:
		k.pool.push(&k.system, d)
	case Periodic:
		k.pool.push(&k.periodicReady, d)
	case RoundRobin:
		k.pool.push(&k.rr, d)
	default:
		return
	}
	d.state = Ready
	k.trace(EventPreempt, d)
}

func (k *Kernel) next(d *descriptor) {
	switch d.level {
	case System:
		d.state = Ready
		k.pool.push(&k.system, d)
	case Periodic:
		d.state = Waiting
	case RoundRobin:
		d.state = Ready
		k.pool.push(&k.rr, d)
	}
}

func (k *Kernel) terminate(d *descriptor) {
	if d.per != nil {
		k.unregister(d)
	}
	k.reap(d)
	k.log.Debug("task terminated", zap.Int("task", int(d.id)), zap.Uint8("name", d.name), zap.Uint64("tick", k.ticks))
	k.trace(EventTerminate, d)
	k.pool.free(d)
}

// Ticks returns the tick counter. Only call it while the kernel is not
// running.
func (k *Kernel) Ticks() uint64 { return k.ticks }

// Now returns the kernel clock. Only call it while the kernel is not
// running.
func (k *Kernel) Now() time.Duration { return k.now() }

// Stats is a snapshot of kernel counters.
type Stats struct {
	Ticks      uint64
	Tasks      int
	Services   int
	Dispatches uint64
	Overruns   uint64
}

// Stats returns kernel counters. Only call it while the kernel is not running.
func (k *Kernel) Stats() Stats {
	return Stats{
		Ticks:      k.ticks,
		Tasks:      k.pool.live(),
		Services:   k.nservices,
		Dispatches: k.dispatches,
		Overruns:   k.overruns,
	}
}
