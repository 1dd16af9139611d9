package flowfield

import (
	"image"
	"image/color"
	"math"

	"github.com/skylerlchan/personal-website/internal/theme"
)

// Raster is a 2D RGBA surface frames are composited onto. It reproduces the
// animation's canvas semantics: translucent full-surface fades for trail
// decay, batched segment strokes, and dot fills.
type Raster struct {
	img *image.RGBA
	w   int
	h   int
}

// NewRaster allocates a w-by-h surface.
func NewRaster(w, h int) *Raster {
	return &Raster{
		img: image.NewRGBA(image.Rect(0, 0, w, h)),
		w:   w,
		h:   h,
	}
}

// Image exposes the backing image.
func (r *Raster) Image() *image.RGBA {
	return r.img
}

// Apply composites one frame.
func (r *Raster) Apply(f *Frame) {
	if f == nil {
		return
	}
	if f.HardClear {
		r.fill(f.Background)
	} else if f.FadeAlpha > 0 {
		r.fade(f.Background, f.FadeAlpha)
	}
	for _, seg := range f.Segments {
		r.line(float64(seg.X0), float64(seg.Y0), float64(seg.X1), float64(seg.Y1), f.Accent, f.LineAlpha)
	}
	for _, d := range f.Dots {
		r.plot(int(d.X), int(d.Y), f.Accent, f.DotAlpha)
	}
}

// At returns the pixel color at (x, y).
func (r *Raster) At(x, y int) color.RGBA {
	return r.img.RGBAAt(x, y)
}

func (r *Raster) fill(c theme.RGB) {
	for y := 0; y < r.h; y++ {
		for x := 0; x < r.w; x++ {
			r.img.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 255})
		}
	}
}

// fade paints a translucent background-colored rectangle over the whole
// surface, decaying whatever was drawn before.
func (r *Raster) fade(c theme.RGB, alpha float64) {
	for y := 0; y < r.h; y++ {
		for x := 0; x < r.w; x++ {
			r.plot(x, y, c, alpha)
		}
	}
}

// line strokes a segment with a fixed-step DDA; width below one pixel
// collapses to single-pixel plotting.
func (r *Raster) line(x0, y0, x1, y1 float64, c theme.RGB, alpha float64) {
	dx := x1 - x0
	dy := y1 - y0
	steps := int(math.Ceil(math.Max(math.Abs(dx), math.Abs(dy))))
	if steps == 0 {
		r.plot(int(math.Round(x0)), int(math.Round(y0)), c, alpha)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		r.plot(int(math.Round(x0+dx*t)), int(math.Round(y0+dy*t)), c, alpha)
	}
}

// plot blends a color over an opaque destination pixel (src-over).
func (r *Raster) plot(x, y int, c theme.RGB, alpha float64) {
	if x < 0 || y < 0 || x >= r.w || y >= r.h {
		return
	}
	dst := r.img.RGBAAt(x, y)
	blend := func(s, d uint8) uint8 {
		return uint8(math.Round(float64(s)*alpha + float64(d)*(1-alpha)))
	}
	r.img.SetRGBA(x, y, color.RGBA{
		R: blend(c.R, dst.R),
		G: blend(c.G, dst.G),
		B: blend(c.B, dst.B),
		A: 255,
	})
}
