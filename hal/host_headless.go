package hal

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	Host HostConfig
	// Resolution is how often the millisecond clock is advanced.
	Resolution time.Duration
}

// RunHeadless builds a host HAL, drives its clock and runs app until app
// returns or ctx is cancelled.
func RunHeadless(ctx context.Context, cfg HeadlessConfig, app func(context.Context, HAL) error) error {
	if cfg.Resolution <= 0 {
		cfg.Resolution = time.Millisecond
	}

	h, err := newHost(cfg.Host)
	if err != nil {
		return fmt.Errorf("hal: %w", err)
	}
	defer h.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		t := time.NewTicker(cfg.Resolution)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				h.t.step()
			}
		}
	})
	g.Go(func() error {
		defer cancel()
		return app(gctx, h)
	})
	return g.Wait()
}
