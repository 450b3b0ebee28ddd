package font6x8

import (
	"image/color"
	"testing"

	"tinygo.org/x/tinyfont"
)

type canvas struct {
	px map[[2]int16]bool
}

func (c *canvas) Size() (x, y int16)                 { return 64, 16 }
func (c *canvas) SetPixel(x, y int16, _ color.RGBA) { c.px[[2]int16{x, y}] = true }
func (c *canvas) Display() error                     { return nil }

func draw(r rune) map[[2]int16]bool {
	c := &canvas{px: map[[2]int16]bool{}}
	tinyfont.DrawChar(c, Font, 0, Baseline, r, color.RGBA{A: 255})
	return c.px
}

func TestGlyphShape(t *testing.T) {
	px := draw('T')
	for x := int16(0); x < 5; x++ {
		if !px[[2]int16{x, 0}] {
			t.Fatalf("T: top bar missing at x=%d", x)
		}
	}
	for y := int16(1); y < 7; y++ {
		if !px[[2]int16{2, y}] {
			t.Fatalf("T: stem missing at y=%d", y)
		}
	}
	if len(px) != 11 {
		t.Fatalf("T: %d pixels set, want 11", len(px))
	}
}

func TestLowercaseFolds(t *testing.T) {
	upper, lower := draw('Q'), draw('q')
	if len(upper) == 0 || len(upper) != len(lower) {
		t.Fatalf("q drew %d pixels, Q drew %d", len(lower), len(upper))
	}
	for p := range upper {
		if !lower[p] {
			t.Fatalf("q differs from Q at %v", p)
		}
	}
}

func TestUnknownRuneIsQuestionMark(t *testing.T) {
	a, b := draw('€'), draw('?')
	if len(a) != len(b) {
		t.Fatalf("€ drew %d pixels, ? drew %d", len(a), len(b))
	}
	if len(draw(' ')) != 0 {
		t.Fatal("space drew pixels")
	}
}

func TestLineWidth(t *testing.T) {
	_, outbox := tinyfont.LineWidth(Font, "ABC")
	if outbox != 3*Width {
		t.Fatalf("LineWidth = %d, want %d", outbox, 3*Width)
	}
}
