package hal

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostTimeStep(t *testing.T) {
	now := time.Unix(0, 0)
	ht := newHostTime(16)
	ht.now = func() time.Time { return now }

	ht.step()
	now = now.Add(2500 * time.Microsecond)
	ht.step()
	now = now.Add(600 * time.Microsecond)
	ht.step()

	var got []uint64
	for len(ht.ch) > 0 {
		got = append(got, <-ht.ch)
	}
	assert.Equal(t, []uint64{1, 2, 3, 4}, got)
	assert.Zero(t, ht.Dropped())
}

func TestHostTimeDropsWhenFull(t *testing.T) {
	now := time.Unix(0, 0)
	ht := newHostTime(2)
	ht.now = func() time.Time { return now }

	ht.step()
	now = now.Add(5 * time.Millisecond)
	ht.step()

	assert.Equal(t, uint64(1), <-ht.ch)
	assert.Equal(t, uint64(2), <-ht.ch)
	assert.Equal(t, uint64(4), ht.Dropped())

	now = now.Add(time.Millisecond)
	ht.step()
	assert.Equal(t, uint64(7), <-ht.ch, "sequence numbers keep counting across drops")
}

func TestPixelRoundTrip(t *testing.T) {
	fb := newHostFramebuffer(4, 2)
	fb.ClearRGB(0, 0, 0)

	SetPixel(fb, 3, 1, 255, 255, 255)
	SetPixel(fb, 9, 9, 255, 0, 0)

	r, g, b := PixelAt(fb, 3, 1)
	assert.Equal(t, [3]uint8{255, 255, 255}, [3]uint8{r, g, b})
	r, g, b = PixelAt(fb, 0, 0)
	assert.Equal(t, [3]uint8{0, 0, 0}, [3]uint8{r, g, b})

	front, frames := fb.Presented()
	assert.Zero(t, frames)
	assert.Equal(t, []byte{0, 0}, front[len(front)-2:])

	require.NoError(t, fb.Present())
	front, frames = fb.Presented()
	assert.Equal(t, 1, frames)
	assert.Equal(t, []byte{0xFF, 0xFF}, front[len(front)-2:])
}

func TestTCPClient(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	c := NewTCPClient(ln.Addr().String())
	assert.False(t, c.Connected())
	_, err = c.Write([]byte{1})
	require.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, c.Connect(context.Background()))
	assert.True(t, c.Connected())

	peer := <-accepted
	defer peer.Close()

	_, err = c.Write([]byte("ping"))
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = io.ReadFull(peer, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf))

	_, err = peer.Write([]byte("pong"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return c.Available() == 4 }, time.Second, time.Millisecond)

	got := make([]byte, 8)
	n, err := c.Read(got)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(got[:n]))
	assert.Equal(t, 0, c.Available())

	peer.Close()
	require.Eventually(t, func() bool { return !c.Connected() }, time.Second, time.Millisecond)

	require.NoError(t, c.Stop())
	assert.False(t, c.Connected())
}

func TestRunHeadlessStopsWithApp(t *testing.T) {
	var out bytes.Buffer
	var ticks int
	err := RunHeadless(context.Background(), HeadlessConfig{Host: HostConfig{Console: &out}}, func(ctx context.Context, h HAL) error {
		h.LED().High()
		for ticks < 3 {
			select {
			case <-h.Time().Ticks():
				ticks++
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, ticks)
	assert.Contains(t, out.String(), "led: HIGH")
}

func TestRunHeadlessCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := RunHeadless(ctx, HeadlessConfig{Host: HostConfig{Console: io.Discard}}, func(ctx context.Context, h HAL) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRenderScreen(t *testing.T) {
	const w, h = 24, 2
	fb := newHostFramebuffer(w, h)
	fb.ClearRGB(0, 0, 0)
	SetPixel(fb, 1, 0, 255, 255, 255)
	require.NoError(t, fb.Present())
	front, _ := fb.Presented()

	dst := make([]byte, w*screenHeight(h)*4)
	renderScreen(dst, front, w, h, true, []bool{false, true})

	at := func(x, y int) [4]uint8 {
		j := (y*w + x) * 4
		return [4]uint8{dst[j], dst[j+1], dst[j+2], dst[j+3]}
	}
	assert.Equal(t, [4]uint8{0, 0, 0, 0xFF}, at(0, 0))
	assert.Equal(t, [4]uint8{0xFF, 0xFF, 0xFF, 0xFF}, at(1, 0))

	row := h + 2
	assert.Equal(t, [4]uint8{0x20, 0x20, 0x20, 0xFF}, at(0, row), "strip background")
	assert.Equal(t, [4]uint8{0xFF, 0x30, 0x30, 0xFF}, at(2, row), "LED on")
	assert.Equal(t, [4]uint8{0x10, 0x50, 0x10, 0xFF}, at(12, row), "first pin low")
	assert.Equal(t, [4]uint8{0x30, 0xFF, 0x30, 0xFF}, at(22, row), "second pin high")
}

func TestHostLevels(t *testing.T) {
	h, err := newHost(HostConfig{Console: io.Discard, GPIOPins: 3})
	require.NoError(t, err)

	p := FindPin(h.GPIO(), "GPIO2")
	require.NoError(t, p.Configure(GPIOModeOutput, GPIOPullNone))
	require.NoError(t, p.Write(true))
	h.LED().High()

	led, pins := h.levels()
	assert.True(t, led)
	assert.Equal(t, []bool{false, true, false}, pins)
}
