package hal

import "encoding/binary"

func rgb565(r, g, b uint8) uint16 {
	rr := uint16(r>>3) & 0x1F
	gg := uint16(g>>2) & 0x3F
	bb := uint16(b>>3) & 0x1F
	return (rr << 11) | (gg << 5) | bb
}

func rgb888From565(p uint16) (r, g, b uint8) {
	rr := (p >> 11) & 0x1F
	gg := (p >> 5) & 0x3F
	bb := p & 0x1F

	r = uint8((rr * 255) / 31)
	g = uint8((gg * 255) / 63)
	b = uint8((bb * 255) / 31)
	return r, g, b
}

// SetPixel writes one RGB565 pixel. Out-of-range coordinates are ignored.
func SetPixel(fb Framebuffer, x, y int, r, g, b uint8) {
	off, ok := pixelOffset(fb, x, y)
	if !ok {
		return
	}
	binary.LittleEndian.PutUint16(fb.Buffer()[off:], rgb565(r, g, b))
}

// PixelAt reads one pixel back as 8-bit channels.
func PixelAt(fb Framebuffer, x, y int) (r, g, b uint8) {
	off, ok := pixelOffset(fb, x, y)
	if !ok {
		return 0, 0, 0
	}
	return rgb888From565(binary.LittleEndian.Uint16(fb.Buffer()[off:]))
}

func pixelOffset(fb Framebuffer, x, y int) (int, bool) {
	if fb == nil || fb.Format() != PixelFormatRGB565 {
		return 0, false
	}
	if x < 0 || y < 0 || x >= fb.Width() || y >= fb.Height() {
		return 0, false
	}
	off := y*fb.StrideBytes() + x*2
	if off+1 >= len(fb.Buffer()) {
		return 0, false
	}
	return off, true
}
