package kernel

import (
	"context"
	"time"
)

// LED is the output the abort pattern is blinked on.
type LED interface {
	High()
	Low()
}

// Step is one segment of the abort blink pattern.
type Step struct {
	On       bool
	Duration time.Duration
}

// Pattern returns one repetition of the blink pattern for c: a long on, one
// second off, Flashes() short flashes and a half second gap. Init codes use a
// 2s lead and 500ms flashes, run-time codes a 3s lead and 250ms flashes.
func Pattern(c Code) []Step {
	lead, flash := 2*time.Second, 500*time.Millisecond
	if c.Runtime() {
		lead, flash = 3*time.Second, 250*time.Millisecond
	}
	steps := []Step{{On: true, Duration: lead}, {On: false, Duration: time.Second}}
	for i := 0; i < c.Flashes(); i++ {
		steps = append(steps, Step{On: true, Duration: flash}, Step{On: false, Duration: flash})
	}
	return append(steps, Step{On: false, Duration: 500 * time.Millisecond})
}

// Signal blinks the pattern for c on led until ctx is done. The LED is left
// low on return.
func Signal(ctx context.Context, led LED, c Code) error {
	steps := Pattern(c)
	t := time.NewTimer(time.Hour)
	t.Stop()
	defer t.Stop()
	defer led.Low()

	for {
		for _, s := range steps {
			if s.On {
				led.High()
			} else {
				led.Low()
			}
			t.Reset(s.Duration)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
			}
		}
	}
}
