package flowfield

import (
	"image/color"
	"testing"

	"github.com/skylerlchan/personal-website/internal/theme"
)

func TestRasterHardClear(t *testing.T) {
	t.Parallel()
	r := NewRaster(8, 8)
	r.Apply(&Frame{HardClear: true, Background: theme.RGB{R: 10, G: 20, B: 30}})

	want := color.RGBA{R: 10, G: 20, B: 30, A: 255}
	if got := r.At(0, 0); got != want {
		t.Fatalf("corner = %v, want %v", got, want)
	}
	if got := r.At(7, 7); got != want {
		t.Fatalf("corner = %v, want %v", got, want)
	}
}

func TestRasterFadeDecaysTrails(t *testing.T) {
	t.Parallel()
	r := NewRaster(4, 4)
	bg := theme.RGB{R: 0, G: 0, B: 0}
	accent := theme.RGB{R: 200, G: 200, B: 200}

	r.Apply(&Frame{HardClear: true, Background: bg})
	r.Apply(&Frame{
		Background: bg,
		FadeAlpha:  0.04,
		Accent:     accent,
		LineAlpha:  1,
		Segments:   []Segment{{X0: 1, Y0: 1, X1: 1, Y1: 1}},
	})

	lit := r.At(1, 1)
	if lit.R != 200 {
		t.Fatalf("stroked pixel = %v, want full accent", lit)
	}

	// Fade-only frames pull the stroke back toward the background a
	// little at a time, never all at once.
	r.Apply(&Frame{Background: bg, FadeAlpha: 0.04})
	faded := r.At(1, 1)
	if faded.R >= lit.R {
		t.Fatalf("fade did not decay the stroke: %v -> %v", lit, faded)
	}
	if faded.R == 0 {
		t.Fatal("single fade frame must not erase the stroke")
	}
}

func TestRasterLineCoversEndpoints(t *testing.T) {
	t.Parallel()
	r := NewRaster(16, 16)
	bg := theme.RGB{}
	accent := theme.RGB{R: 255}

	r.Apply(&Frame{HardClear: true, Background: bg})
	r.Apply(&Frame{
		Background: bg,
		Accent:     accent,
		LineAlpha:  1,
		Segments:   []Segment{{X0: 2, Y0: 2, X1: 12, Y1: 9}},
	})

	for _, p := range [][2]int{{2, 2}, {12, 9}} {
		if got := r.At(p[0], p[1]); got.R != 255 {
			t.Errorf("endpoint (%d,%d) = %v, want stroked", p[0], p[1], got)
		}
	}
	if got := r.At(15, 15); got.R != 0 {
		t.Errorf("pixel off the line was stroked: %v", got)
	}
}

func TestRasterDotsAndBounds(t *testing.T) {
	t.Parallel()
	r := NewRaster(4, 4)
	bg := theme.RGB{}
	accent := theme.RGB{R: 100, G: 100, B: 100}

	r.Apply(&Frame{HardClear: true, Background: bg})
	r.Apply(&Frame{
		HardClear:  true,
		Background: bg,
		Accent:     accent,
		Dots:       []Dot{{X: 2, Y: 2}, {X: -5, Y: 1}, {X: 100, Y: 100}},
		DotAlpha:   1,
	})

	if got := r.At(2, 2); got.R != 100 {
		t.Fatalf("dot pixel = %v, want accent", got)
	}
	// Out-of-bounds dots are simply dropped; reaching here without a
	// panic is the assertion.
}
