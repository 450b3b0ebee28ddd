package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ember/hal"
	"ember/internal/config"
	"ember/kernel"
	"ember/services/timer"
	"ember/services/trace"
)

// Options control one run of the board.
type Options struct {
	Logger *zap.Logger
	// Ticks bounds the run. Zero runs until ctx is cancelled.
	Ticks uint64
	// Signal keeps blinking the abort code on the LED after an abort until
	// ctx is cancelled.
	Signal bool
}

type system struct {
	h     hal.HAL
	cfg   *config.Config
	log   *zap.Logger
	k     *kernel.Kernel
	trace *trace.Buffer
	beat  *timer.Timer
}

// Run boots the kernel with the demo workload and blocks until the run ends.
// A kernel abort is returned as a *kernel.FatalError after the abort screen
// has been drawn.
func Run(ctx context.Context, h hal.HAL, cfg *config.Config, opts Options) error {
	return run(ctx, h, cfg, opts, nil)
}

// run is Run with the boot task replaceable. A nil main boots the demo.
func run(ctx context.Context, h hal.HAL, cfg *config.Config, opts Options, main kernel.Entry) error {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s, err := newSystem(h, cfg, opts.Logger)
	if err != nil {
		return err
	}

	runErr := s.run(ctx, opts.Ticks, main)

	if s.trace != nil && cfg.Trace.Print {
		if err := s.trace.Print(h.Serial(), true); err != nil {
			s.log.Warn("trace print failed", zap.Error(err))
		}
	}

	var fe *kernel.FatalError
	if !errors.As(runErr, &fe) {
		if errors.Is(runErr, context.Canceled) {
			return nil
		}
		return runErr
	}

	s.log.Error("board halted", zap.Error(fe), zap.Int("flashes", fe.Code.Flashes()))
	drawAbortScreen(h, fe)
	if opts.Signal {
		// Signal only returns once ctx is done; the abort is the result.
		_ = kernel.Signal(ctx, h.LED(), fe.Code)
	}
	return fe
}

func newSystem(h hal.HAL, cfg *config.Config, log *zap.Logger) (*system, error) {
	s := &system{h: h, cfg: cfg, log: log}

	var tracer kernel.Tracer
	if cfg.Trace.Enabled {
		s.trace = trace.New(cfg.Trace.Capacity, kernel.EventDispatch)
		tracer = s.trace
	}

	k, err := kernel.New(cfg.ToKernel(log.Named("kernel"), tracer))
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	s.k = k

	if hb := cfg.GetHeartbeat(); hb > 0 && h.Time() != nil {
		pin := hal.FindPin(h.GPIO(), cfg.Timer.Pin)
		if pin == nil {
			return nil, fmt.Errorf("app: heartbeat pin %q not found", cfg.Timer.Pin)
		}
		if err := pin.Configure(hal.GPIOModeOutput, hal.GPIOPullNone); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		s.beat = timer.New(h.Time(), log.Named("timer"))
		s.beat.Set(hb, s.heartbeat(pin))
	}
	return s, nil
}

func (s *system) heartbeat(pin hal.GPIOPin) func() {
	return func() {
		if _, err := hal.Toggle(pin); err != nil {
			s.log.Warn("heartbeat toggle failed", zap.String("pin", pin.Name()), zap.Error(err))
		}
	}
}

// run drives the kernel and the heartbeat together. The heartbeat stops
// when the kernel returns.
func (s *system) run(ctx context.Context, ticks uint64, main kernel.Entry) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if s.beat != nil {
		s.beat.Start()
		g.Go(func() error {
			s.beat.Run(gctx)
			return nil
		})
	}

	var kerr error
	g.Go(func() error {
		defer cancel()
		if main == nil {
			main = newDemo(gctx, s).main
		}
		if ticks > 0 {
			kerr = s.k.RunTicks(gctx, main, ticks)
		} else {
			kerr = s.k.Run(gctx, main)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return kerr
}
