// Package font6x8 is a 6x8 monospace bitmap font for the abort screen.
// It covers printable ASCII; lowercase letters are drawn as capitals.
package font6x8

import (
	"image/color"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
)

const (
	Width  = 6
	Height = 8
	// Baseline is the offset from the top of a cell to the glyph origin.
	Baseline = 7
)

// Font implements tinyfont.Fonter. It reuses one glyph and is not safe for
// concurrent use.
var Font tinyfont.Fonter = &font{}

type font struct {
	g glyph
}

type glyph struct {
	r rune
}

func (g *glyph) Draw(display drivers.Displayer, x, y int16, c color.RGBA) {
	base := glyphIndex(g.r) * Height
	for row := 0; row < Height; row++ {
		b := glyphData[base+row]
		// bit5 is the leftmost pixel
		for col := 0; col < Width; col++ {
			if b&(0x20>>col) == 0 {
				continue
			}
			display.SetPixel(x+int16(col), y-int16(Baseline-row), c)
		}
	}
}

func (g *glyph) Info() tinyfont.GlyphInfo {
	return tinyfont.GlyphInfo{
		Rune:     g.r,
		Width:    Width,
		Height:   Height,
		XAdvance: Width,
		YOffset:  -Baseline,
	}
}

func (f *font) GetYAdvance() uint8 { return Height }

func (f *font) GetGlyph(r rune) tinyfont.Glypher {
	f.g.r = r
	return &f.g
}

func glyphIndex(r rune) int {
	if r >= 'a' && r <= 'z' {
		r -= 'a' - 'A'
	}
	switch {
	case r >= 0x20 && r < 0x60:
		return int(r - 0x20)
	case r == '{':
		return int('(' - 0x20)
	case r == '}':
		return int(')' - 0x20)
	case r == '|':
		return int('!' - 0x20)
	case r == '\t':
		return 0
	default:
		return int('?' - 0x20)
	}
}

// Glyph rows for 0x20..0x5f, eight bytes each.
var glyphData = [...]byte{
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // space
	0x08, 0x08, 0x08, 0x08, 0x08, 0x00, 0x08, 0x00, // !
	0x14, 0x14, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // "
	0x14, 0x14, 0x3e, 0x14, 0x3e, 0x14, 0x14, 0x00, // #
	0x08, 0x1e, 0x28, 0x1c, 0x0a, 0x3c, 0x08, 0x00, // $
	0x30, 0x32, 0x04, 0x08, 0x10, 0x26, 0x06, 0x00, // %
	0x18, 0x24, 0x28, 0x10, 0x2a, 0x24, 0x1a, 0x00, // &
	0x08, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // '
	0x04, 0x08, 0x10, 0x10, 0x10, 0x08, 0x04, 0x00, // (
	0x10, 0x08, 0x04, 0x04, 0x04, 0x08, 0x10, 0x00, // )
	0x00, 0x08, 0x2a, 0x1c, 0x2a, 0x08, 0x00, 0x00, // *
	0x00, 0x08, 0x08, 0x3e, 0x08, 0x08, 0x00, 0x00, // +
	0x00, 0x00, 0x00, 0x00, 0x18, 0x08, 0x10, 0x00, // ,
	0x00, 0x00, 0x00, 0x3e, 0x00, 0x00, 0x00, 0x00, // -
	0x00, 0x00, 0x00, 0x00, 0x00, 0x18, 0x18, 0x00, // .
	0x00, 0x02, 0x04, 0x08, 0x10, 0x20, 0x00, 0x00, // /
	0x1c, 0x22, 0x26, 0x2a, 0x32, 0x22, 0x1c, 0x00, // 0
	0x08, 0x18, 0x08, 0x08, 0x08, 0x08, 0x1c, 0x00, // 1
	0x1c, 0x22, 0x02, 0x04, 0x08, 0x10, 0x3e, 0x00, // 2
	0x3e, 0x04, 0x08, 0x04, 0x02, 0x22, 0x1c, 0x00, // 3
	0x04, 0x0c, 0x14, 0x24, 0x3e, 0x04, 0x04, 0x00, // 4
	0x3e, 0x20, 0x3c, 0x02, 0x02, 0x22, 0x1c, 0x00, // 5
	0x0c, 0x10, 0x20, 0x3c, 0x22, 0x22, 0x1c, 0x00, // 6
	0x3e, 0x02, 0x04, 0x08, 0x10, 0x10, 0x10, 0x00, // 7
	0x1c, 0x22, 0x22, 0x1c, 0x22, 0x22, 0x1c, 0x00, // 8
	0x1c, 0x22, 0x22, 0x1e, 0x02, 0x04, 0x18, 0x00, // 9
	0x00, 0x18, 0x18, 0x00, 0x18, 0x18, 0x00, 0x00, // :
	0x00, 0x18, 0x18, 0x00, 0x18, 0x08, 0x10, 0x00, // ;
	0x04, 0x08, 0x10, 0x20, 0x10, 0x08, 0x04, 0x00, // <
	0x00, 0x00, 0x3e, 0x00, 0x3e, 0x00, 0x00, 0x00, // =
	0x10, 0x08, 0x04, 0x02, 0x04, 0x08, 0x10, 0x00, // >
	0x1c, 0x22, 0x02, 0x04, 0x08, 0x00, 0x08, 0x00, // ?
	0x1c, 0x22, 0x02, 0x1a, 0x2a, 0x2a, 0x1c, 0x00, // @
	0x1c, 0x22, 0x22, 0x3e, 0x22, 0x22, 0x22, 0x00, // A
	0x3c, 0x22, 0x22, 0x3c, 0x22, 0x22, 0x3c, 0x00, // B
	0x1c, 0x22, 0x20, 0x20, 0x20, 0x22, 0x1c, 0x00, // C
	0x38, 0x24, 0x22, 0x22, 0x22, 0x24, 0x38, 0x00, // D
	0x3e, 0x20, 0x20, 0x3c, 0x20, 0x20, 0x3e, 0x00, // E
	0x3e, 0x20, 0x20, 0x3c, 0x20, 0x20, 0x20, 0x00, // F
	0x1c, 0x22, 0x20, 0x2e, 0x22, 0x22, 0x1e, 0x00, // G
	0x22, 0x22, 0x22, 0x3e, 0x22, 0x22, 0x22, 0x00, // H
	0x1c, 0x08, 0x08, 0x08, 0x08, 0x08, 0x1c, 0x00, // I
	0x0e, 0x04, 0x04, 0x04, 0x04, 0x24, 0x18, 0x00, // J
	0x22, 0x24, 0x28, 0x30, 0x28, 0x24, 0x22, 0x00, // K
	0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x3e, 0x00, // L
	0x22, 0x36, 0x2a, 0x2a, 0x22, 0x22, 0x22, 0x00, // M
	0x22, 0x22, 0x32, 0x2a, 0x26, 0x22, 0x22, 0x00, // N
	0x1c, 0x22, 0x22, 0x22, 0x22, 0x22, 0x1c, 0x00, // O
	0x3c, 0x22, 0x22, 0x3c, 0x20, 0x20, 0x20, 0x00, // P
	0x1c, 0x22, 0x22, 0x22, 0x2a, 0x24, 0x1a, 0x00, // Q
	0x3c, 0x22, 0x22, 0x3c, 0x28, 0x24, 0x22, 0x00, // R
	0x1e, 0x20, 0x20, 0x1c, 0x02, 0x02, 0x3c, 0x00, // S
	0x3e, 0x08, 0x08, 0x08, 0x08, 0x08, 0x08, 0x00, // T
	0x22, 0x22, 0x22, 0x22, 0x22, 0x22, 0x1c, 0x00, // U
	0x22, 0x22, 0x22, 0x22, 0x22, 0x14, 0x08, 0x00, // V
	0x22, 0x22, 0x22, 0x2a, 0x2a, 0x2a, 0x14, 0x00, // W
	0x22, 0x22, 0x14, 0x08, 0x14, 0x22, 0x22, 0x00, // X
	0x22, 0x22, 0x22, 0x14, 0x08, 0x08, 0x08, 0x00, // Y
	0x3e, 0x02, 0x04, 0x08, 0x10, 0x20, 0x3e, 0x00, // Z
	0x1c, 0x10, 0x10, 0x10, 0x10, 0x10, 0x1c, 0x00, // [
	0x00, 0x20, 0x10, 0x08, 0x04, 0x02, 0x00, 0x00, // \
	0x1c, 0x04, 0x04, 0x04, 0x04, 0x04, 0x1c, 0x00, // ]
	0x08, 0x14, 0x22, 0x00, 0x00, 0x00, 0x00, 0x00, // ^
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x3e, 0x00, // _
}
