//go:build cgo

package hal

import (
	"context"
	"errors"
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"

	"ember/internal/buildinfo"
)

// RunWindow is RunHeadless with a desktop window that shows the presented
// framebuffer above an LED and GPIO status strip. Closing the window cancels
// app; the window closes once app returns.
func RunWindow(ctx context.Context, cfg WindowConfig, app func(context.Context, HAL) error) error {
	if cfg.Scale <= 0 {
		cfg.Scale = 2
	}
	h, err := newHost(cfg.Host)
	if err != nil {
		return fmt.Errorf("hal: %w", err)
	}
	defer h.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- app(ctx, h) }()

	g := &hostGame{h: h, ctx: ctx, done: done}
	ebiten.SetWindowTitle("Ember (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(h.fb.width*cfg.Scale, screenHeight(h.fb.height)*cfg.Scale)
	ebiten.SetTPS(60)
	runErr := ebiten.RunGame(g)

	cancel()
	if !g.exited {
		g.appErr = <-done
	}
	if runErr != nil && !errors.Is(runErr, ebiten.Termination) {
		return fmt.Errorf("hal: window: %w", runErr)
	}
	return g.appErr
}

type hostGame struct {
	h    *hostHAL
	ctx  context.Context
	done <-chan error

	exited bool
	appErr error

	pix []byte
	img *ebiten.Image
}

func (g *hostGame) Update() error {
	g.h.t.step()
	select {
	case err := <-g.done:
		g.exited, g.appErr = true, err
		return ebiten.Termination
	default:
	}
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}
	return nil
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.h.fb
	w, sh := fb.width, screenHeight(fb.height)
	if g.img == nil {
		g.pix = make([]byte, w*sh*4)
		g.img = ebiten.NewImage(w, sh)
	}

	front, _ := fb.Presented()
	led, pins := g.h.levels()
	renderScreen(g.pix, front, w, fb.height, led, pins)

	g.img.WritePixels(g.pix)
	screen.DrawImage(g.img, nil)
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.h.fb.width, screenHeight(g.h.fb.height)
}
