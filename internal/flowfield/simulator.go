package flowfield

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/skylerlchan/personal-website/internal/theme"
)

// Tuning. Lower frequency means larger, calmer structures.
const (
	defaultFrequency = 0.0015
	defaultSpeed     = 1.0
	defaultFadeRate  = 0.04
	defaultLineAlpha = 0.14
	defaultLineWidth = 0.8

	// Noise z drifts with wall time only; no user-input coupling.
	zDriftPerMilli = 0.00002

	// Squared trail length above which a segment is presumed to cross a
	// wrap and is not drawn.
	maxSegmentLenSq = 400

	// Large-jump guard after the loop was starved (backgrounded tab).
	maxTimeStep = 3

	dotRadius = 0.8
	dotAlpha  = 0.12
)

// Params fixes a simulator's per-session constants.
type Params struct {
	Frequency     float64
	Speed         float64
	FadeRate      float64
	LineAlpha     float64
	LineWidth     float64
	FrameInterval time.Duration
	ParticleCount int
}

// DesktopParams targets ~30 FPS with the full particle count.
func DesktopParams() Params {
	return Params{
		Frequency:     defaultFrequency,
		Speed:         defaultSpeed,
		FadeRate:      defaultFadeRate,
		LineAlpha:     defaultLineAlpha,
		LineWidth:     defaultLineWidth,
		FrameInterval: time.Second / 30,
		ParticleCount: 1800,
	}
}

// MobileParams lowers the frame cap and particle count for narrow viewports.
func MobileParams() Params {
	p := DesktopParams()
	p.FrameInterval = time.Second / 20
	p.ParticleCount = 800
	return p
}

// Segment is one drawn trail step, previous position to current.
type Segment struct {
	X0, Y0, X1, Y1 float32
}

// Dot is a static particle marker used in reduced-motion mode.
type Dot struct {
	X, Y float32
}

// Frame is everything a renderer needs for one simulation step.
type Frame struct {
	// HardClear wipes the raster to the background color before drawing
	// (theme switch, reduced motion). Otherwise the raster fades by
	// FadeAlpha toward the background, decaying old trails exponentially.
	HardClear  bool      `json:"hardClear,omitempty"`
	FadeAlpha  float64   `json:"fadeAlpha,omitempty"`
	Accent     theme.RGB `json:"accent"`
	Background theme.RGB `json:"background"`
	LineAlpha  float64   `json:"lineAlpha,omitempty"`
	LineWidth  float64   `json:"lineWidth,omitempty"`
	Segments   []Segment `json:"segments,omitempty"`
	Dots       []Dot     `json:"dots,omitempty"`
	DotAlpha   float64   `json:"dotAlpha,omitempty"`
	DotRadius  float64   `json:"dotRadius,omitempty"`
}

// Simulator advects a fixed particle set through the noise field's curl.
// Particle state lives in parallel arrays (structure-of-arrays); particles
// are teleported on wrap, never created or destroyed.
type Simulator struct {
	mu sync.Mutex

	params        Params
	field         *NoiseField
	palette       theme.Palette
	reducedMotion bool

	w, h float64

	px, py []float32 // positions
	ox, oy []float32 // previous positions

	start       time.Time
	lastFrame   time.Time
	clearNeeded bool
	rng         *rand.Rand
}

// Option customizes a Simulator.
type SimOption func(*Simulator)

// WithSeed fixes both the noise field and the scatter RNG (tests).
func WithSeed(seed int64) SimOption {
	return func(s *Simulator) {
		s.field = NewNoiseField(seed)
		s.rng = rand.New(rand.NewSource(seed))
	}
}

// WithReducedMotion freezes time and switches trails to static dots.
func WithReducedMotion(v bool) SimOption {
	return func(s *Simulator) { s.reducedMotion = v }
}

// NewSimulator creates a simulator over a w-by-h surface and scatters the
// particle set uniformly at random.
func NewSimulator(params Params, palette theme.Palette, w, h float64, opts ...SimOption) *Simulator {
	n := params.ParticleCount
	s := &Simulator{
		params:  params,
		palette: palette,
		w:       w,
		h:       h,
		px:      make([]float32, n),
		py:      make([]float32, n),
		ox:      make([]float32, n),
		oy:      make([]float32, n),
		start:   time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.field == nil {
		seed := time.Now().UnixNano()
		s.field = NewNoiseField(seed)
		s.rng = rand.New(rand.NewSource(seed))
	}
	s.scatterLocked()
	return s
}

// Resize adopts new surface dimensions and re-scatters every particle; old
// positions are not preserved.
func (s *Simulator) Resize(w, h float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w = w
	s.h = h
	s.scatterLocked()
	s.clearNeeded = true
}

// SetPalette swaps the theme colors and forces a hard clear on the next
// frame so stale trails don't flash in the old theme's colors.
func (s *Simulator) SetPalette(p theme.Palette) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.palette = p
	s.clearNeeded = true
}

// Step advances the simulation by one frame. It returns nil when less than
// the target frame interval has elapsed; no state is mutated in that case.
func (s *Simulator) Step(now time.Time) *Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	dt := 1.0
	if !s.lastFrame.IsZero() {
		elapsed := now.Sub(s.lastFrame)
		if elapsed < s.params.FrameInterval {
			return nil
		}
		dt = math.Min(float64(elapsed)/float64(s.params.FrameInterval), maxTimeStep)
	}
	s.lastFrame = now

	frame := &Frame{
		Accent:     s.palette.Accent,
		Background: s.palette.Background,
	}
	if s.clearNeeded {
		frame.HardClear = true
		s.clearNeeded = false
	}

	if s.reducedMotion {
		// Time frozen: positions stay put, drawn as static dots on a
		// hard-cleared surface.
		frame.HardClear = true
		frame.Dots = make([]Dot, len(s.px))
		for i := range s.px {
			frame.Dots[i] = Dot{X: s.px[i], Y: s.py[i]}
		}
		frame.DotAlpha = dotAlpha
		frame.DotRadius = dotRadius
		return frame
	}

	frame.FadeAlpha = math.Min(s.params.FadeRate*dt, 1)
	frame.LineAlpha = s.params.LineAlpha
	frame.LineWidth = s.params.LineWidth

	nz := float64(now.Sub(s.start).Milliseconds()) * zDriftPerMilli
	speed := s.params.Speed * dt
	w32 := float32(s.w)
	h32 := float32(s.h)

	for i := range s.px {
		s.ox[i] = s.px[i]
		s.oy[i] = s.py[i]

		nx := float64(s.px[i]) * s.params.Frequency
		ny := float64(s.py[i]) * s.params.Frequency
		vx, vy := s.field.Curl(nx, ny, nz)

		s.px[i] += float32(vx * speed)
		s.py[i] += float32(vy * speed)

		// Toroidal wrap. prev resets with the wrap so no trail is drawn
		// across the screen.
		if s.px[i] < 0 {
			s.px[i] += w32
			s.ox[i] = s.px[i]
		} else if s.px[i] > w32 {
			s.px[i] -= w32
			s.ox[i] = s.px[i]
		}
		if s.py[i] < 0 {
			s.py[i] += h32
			s.oy[i] = s.py[i]
		} else if s.py[i] > h32 {
			s.py[i] -= h32
			s.oy[i] = s.py[i]
		}
	}

	frame.Segments = make([]Segment, 0, len(s.px))
	for i := range s.px {
		dx := s.px[i] - s.ox[i]
		dy := s.py[i] - s.oy[i]
		if dx*dx+dy*dy > maxSegmentLenSq {
			continue // wrapped or first frame after resize
		}
		frame.Segments = append(frame.Segments, Segment{
			X0: s.ox[i], Y0: s.oy[i], X1: s.px[i], Y1: s.py[i],
		})
	}
	return frame
}

// Particles returns a snapshot of current positions (tests, diagnostics).
func (s *Simulator) Particles() ([]float32, []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	px := make([]float32, len(s.px))
	py := make([]float32, len(s.py))
	copy(px, s.px)
	copy(py, s.py)
	return px, py
}

func (s *Simulator) scatterLocked() {
	for i := range s.px {
		s.px[i] = float32(s.rng.Float64() * s.w)
		s.py[i] = float32(s.rng.Float64() * s.h)
		s.ox[i] = s.px[i]
		s.oy[i] = s.py[i]
	}
}
