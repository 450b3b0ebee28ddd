package hal

import (
	"encoding/binary"
	"sync"
)

// hostFramebuffer draws into a back buffer; Present copies it to the front
// buffer that Presented returns.
type hostFramebuffer struct {
	width, height int
	back          []byte

	mu     sync.Mutex
	front  []byte
	frames int
}

func newHostFramebuffer(width, height int) *hostFramebuffer {
	return &hostFramebuffer{
		width:  width,
		height: height,
		back:   make([]byte, width*height*2),
		front:  make([]byte, width*height*2),
	}
}

func (f *hostFramebuffer) Width() int          { return f.width }
func (f *hostFramebuffer) Height() int         { return f.height }
func (f *hostFramebuffer) Format() PixelFormat { return PixelFormatRGB565 }
func (f *hostFramebuffer) StrideBytes() int    { return f.width * 2 }
func (f *hostFramebuffer) Buffer() []byte      { return f.back }

func (f *hostFramebuffer) ClearRGB(r, g, b uint8) {
	p := rgb565(r, g, b)
	for i := 0; i+1 < len(f.back); i += 2 {
		binary.LittleEndian.PutUint16(f.back[i:], p)
	}
}

func (f *hostFramebuffer) Present() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy(f.front, f.back)
	f.frames++
	return nil
}

// Presented returns a copy of the last presented frame and the frame count.
func (f *hostFramebuffer) Presented() ([]byte, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.front...), f.frames
}
