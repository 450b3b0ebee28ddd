package app

import (
	"fmt"
	"image/color"
	"strings"
	"unicode/utf8"

	"tinygo.org/x/tinyfont"

	"ember/hal"
	"ember/internal/buildinfo"
	"ember/internal/fonts/font6x8"
	"ember/kernel"
)

// abortLines renders a fatal error as screen lines.
func abortLines(fe *kernel.FatalError) []string {
	phase := "init"
	if fe.Code.Runtime() {
		phase = "run"
	}
	lines := []string{
		"Ember Abort " + buildinfo.Short(),
		fmt.Sprintf("code: %s %d (%s)", phase, fe.Code.Flashes(), fe.Code),
		fmt.Sprintf("tick: %d", fe.Tick),
	}
	if fe.Panic != nil {
		return append(lines, fe.Panic.Lines()...)
	}
	return append(lines, fmt.Sprintf("task: %d", fe.Task))
}

// drawAbortScreen writes the abort report to the console and, when there is
// a framebuffer, draws it black on white.
func drawAbortScreen(h hal.HAL, fe *kernel.FatalError) {
	lines := abortLines(fe)
	if l := h.Logger(); l != nil {
		for _, line := range lines {
			l.WriteLineString(line)
		}
	}

	disp := h.Display()
	if disp == nil {
		return
	}
	fb := disp.Framebuffer()
	if fb == nil {
		return
	}
	fb.ClearRGB(255, 255, 255)

	d := abortDisplay{fb: fb}
	fg := color.RGBA{A: 255}
	cols := int16(fb.Width() / font6x8.Width)
	if cols <= 0 {
		cols = 1
	}

	y := int16(0)
	for _, line := range lines {
		for len(line) > 0 {
			if int(y)+font6x8.Height > fb.Height() {
				fb.Present()
				return
			}
			chunk, rest := takeRunes(line, cols)
			drawTextLine(d, font6x8.Font, 0, y, chunk, fg)
			y += font6x8.Height
			line = strings.TrimLeft(rest, " ")
		}
	}
	fb.Present()
}

func drawTextLine(d abortDisplay, font tinyfont.Fonter, x0, y0 int16, s string, fg color.RGBA) {
	x := x0
	for _, r := range s {
		tinyfont.DrawChar(d, font, x, y0+font6x8.Baseline, r, fg)
		x += font6x8.Width
	}
}

// abortDisplay adapts a framebuffer to drivers.Displayer.
type abortDisplay struct {
	fb hal.Framebuffer
}

func (d abortDisplay) Size() (x, y int16) {
	return int16(d.fb.Width()), int16(d.fb.Height())
}

func (d abortDisplay) SetPixel(x, y int16, c color.RGBA) {
	hal.SetPixel(d.fb, int(x), int(y), c.R, c.G, c.B)
}

func (d abortDisplay) Display() error { return d.fb.Present() }

func takeRunes(s string, n int16) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	if int64(len(s)) <= int64(n) {
		return s, ""
	}
	var i int
	var count int16
	for i < len(s) && count < n {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
		count++
	}
	if i >= len(s) {
		return s, ""
	}
	return s[:i], s[i:]
}
