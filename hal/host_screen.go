package hal

import "encoding/binary"

// WindowConfig controls the desktop window runner.
type WindowConfig struct {
	Host HostConfig
	// Scale is the window size multiplier. Zero means 2.
	Scale int
}

// The status strip under the framebuffer shows the LED followed by one
// square per GPIO pin.
const (
	stripHeight = 10
	squareSize  = 8
	squarePitch = 10
)

var (
	stripColor  = [3]uint8{0x20, 0x20, 0x20}
	ledOnColor  = [3]uint8{0xFF, 0x30, 0x30}
	ledOffColor = [3]uint8{0x50, 0x10, 0x10}
	pinOnColor  = [3]uint8{0x30, 0xFF, 0x30}
	pinOffColor = [3]uint8{0x10, 0x50, 0x10}
)

func screenHeight(fbHeight int) int { return fbHeight + stripHeight }

// renderScreen composes the presented RGB565 frame and the status strip into
// dst as RGBA, w pixels wide and screenHeight(h) tall.
func renderScreen(dst, front []byte, w, h int, led bool, pins []bool) {
	for i := 0; i < w*h && i*2+1 < len(front) && i*4+3 < len(dst); i++ {
		r, g, b := rgb888From565(binary.LittleEndian.Uint16(front[i*2:]))
		dst[i*4+0] = r
		dst[i*4+1] = g
		dst[i*4+2] = b
		dst[i*4+3] = 0xFF
	}

	fill := func(x0, y0, x1, y1 int, c [3]uint8) {
		for y := max(y0, 0); y < min(y1, screenHeight(h)); y++ {
			for x := max(x0, 0); x < min(x1, w); x++ {
				j := (y*w + x) * 4
				if j+3 >= len(dst) {
					return
				}
				dst[j+0], dst[j+1], dst[j+2], dst[j+3] = c[0], c[1], c[2], 0xFF
			}
		}
	}
	fill(0, h, w, screenHeight(h), stripColor)

	square := func(i int, c [3]uint8) {
		x := 1 + i*squarePitch
		fill(x, h+1, x+squareSize, h+1+squareSize, c)
	}
	if led {
		square(0, ledOnColor)
	} else {
		square(0, ledOffColor)
	}
	for i, on := range pins {
		if on {
			square(i+1, pinOnColor)
		} else {
			square(i+1, pinOffColor)
		}
	}
}

// levels samples the LED and every GPIO pin except the LED pin.
func (h *hostHAL) levels() (led bool, pins []bool) {
	for i := 0; i < h.gpio.PinCount(); i++ {
		p := h.gpio.Pin(i)
		if p == nil || p.Name() == ledPinName {
			continue
		}
		level, _ := p.Read()
		pins = append(pins, level)
	}
	return h.led.On(), pins
}
