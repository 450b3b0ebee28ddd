package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"ember/hal"
	"ember/internal/config"
	"ember/kernel"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Kernel.RealTime = false
	cfg.Trace.Print = true
	return cfg
}

// runHeadless runs fn against a host HAL whose console is captured.
func runHeadless(t *testing.T, fn func(ctx context.Context, h hal.HAL) error) (string, error) {
	t.Helper()
	var console bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := hal.RunHeadless(ctx, hal.HeadlessConfig{Host: hal.HostConfig{Console: &console}}, fn)
	return console.String(), err
}

func TestRunDemo(t *testing.T) {
	var pulse, blink hal.GPIOPin
	out, err := runHeadless(t, func(ctx context.Context, h hal.HAL) error {
		pulse = hal.FindPin(h.GPIO(), pulsePin)
		blink = hal.FindPin(h.GPIO(), blinkPin)
		return Run(ctx, h, testConfig(), Options{Logger: zaptest.NewLogger(t), Ticks: 200})
	})
	require.NoError(t, err)

	// 200 ticks of 5ms: ten pulse periods and sixteen blink cycles.
	require.NotNil(t, pulse)
	require.NotNil(t, blink)
	assert.GreaterOrEqual(t, pulse.Edges(), uint64(5))
	assert.GreaterOrEqual(t, blink.Edges(), uint64(5))

	for _, label := range []string{"SYSTEM1", "PERIODIC1", "BRR1", "BRR2"} {
		assert.Contains(t, out, label)
	}
	assert.NotContains(t, out, "Ember Abort")
}

func TestRunRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Kernel.Tick = "soon"
	_, err := runHeadless(t, func(ctx context.Context, h hal.HAL) error {
		return Run(ctx, h, cfg, Options{Ticks: 1})
	})
	require.Error(t, err)
}

func TestRunMissingHeartbeatPin(t *testing.T) {
	cfg := testConfig()
	cfg.Timer.Pin = "GPIO99"
	_, err := runHeadless(t, func(ctx context.Context, h hal.HAL) error {
		return Run(ctx, h, cfg, Options{Ticks: 1})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GPIO99")
}

func TestHeartbeatLogsPinErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s := &system{log: zap.New(core)}

	// Pins start as inputs, so the toggle write fails.
	pin := hal.FindPin(hal.New().GPIO(), "GPIO4")
	require.NotNil(t, pin)
	s.heartbeat(pin)()

	entries := logs.FilterMessage("heartbeat toggle failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "GPIO4", entries[0].ContextMap()["pin"])

	require.NoError(t, pin.Configure(hal.GPIOModeOutput, hal.GPIOPullNone))
	s.heartbeat(pin)()
	assert.Equal(t, 1, logs.Len())
	level, err := pin.Read()
	require.NoError(t, err)
	assert.True(t, level)
}

func TestRunAbortDrawsScreen(t *testing.T) {
	var fb hal.Framebuffer
	out, err := runHeadless(t, func(ctx context.Context, h hal.HAL) error {
		fb = h.Display().Framebuffer()
		return run(ctx, h, testConfig(), Options{Logger: zaptest.NewLogger(t)}, func(c *kernel.Context) {
			c.Delay(12 * time.Millisecond)
			c.Abort()
		})
	})

	var fe *kernel.FatalError
	require.True(t, errors.As(err, &fe), "err = %v", err)
	assert.Equal(t, kernel.ErrRunUserAbort, fe.Code)
	assert.Contains(t, out, "Ember Abort")
	assert.Contains(t, out, "code: run 1 (user abort)")

	r, g, b := hal.PixelAt(fb, 0, 0)
	assert.Equal(t, [3]uint8{0, 0, 0}, [3]uint8{r, g, b}, "top-left of the E is ink")
	r, g, b = hal.PixelAt(fb, 5, 0)
	assert.Equal(t, [3]uint8{255, 255, 255}, [3]uint8{r, g, b}, "glyph gap is paper")
}

func TestRunCancelledIsClean(t *testing.T) {
	_, err := runHeadless(t, func(ctx context.Context, h hal.HAL) error {
		ctx, cancel := context.WithCancel(ctx)
		return run(ctx, h, testConfig(), Options{}, func(c *kernel.Context) {
			c.CreateRoundRobinTask(func(c *kernel.Context) {
				c.Delay(20 * time.Millisecond)
				cancel()
				for {
					c.Delay(5 * time.Millisecond)
				}
			}, 0)
		})
	})
	require.NoError(t, err)
}

func TestAbortLines(t *testing.T) {
	lines := abortLines(&kernel.FatalError{Code: kernel.ErrInitTooManyServices, Tick: 0, Task: 0})
	assert.Equal(t, "code: init 2 (too many services)", lines[1])
	assert.Equal(t, "task: 0", lines[len(lines)-1])

	lines = abortLines(&kernel.FatalError{
		Code:  kernel.ErrRunTaskPanic,
		Tick:  4,
		Task:  2,
		Panic: &kernel.PanicInfo{TaskID: 2, Value: "boom", Stack: []byte("a\n\nb\n")},
	})
	assert.Equal(t, []string{"tick: 4", "task: 2", "panic: boom", "stack:", "a", "b"}, lines[2:])
	assert.True(t, strings.HasPrefix(lines[0], "Ember Abort "))
}

func TestTakeRunes(t *testing.T) {
	tests := []struct {
		s          string
		n          int16
		head, tail string
	}{
		{"", 4, "", ""},
		{"abc", 4, "abc", ""},
		{"abcdef", 4, "abcd", "ef"},
		{"héllo", 2, "hé", "llo"},
		{"abc", 0, "", "abc"},
	}
	for _, tt := range tests {
		head, tail := takeRunes(tt.s, tt.n)
		assert.Equal(t, tt.head, head, "takeRunes(%q, %d)", tt.s, tt.n)
		assert.Equal(t, tt.tail, tail, "takeRunes(%q, %d)", tt.s, tt.n)
	}
}
