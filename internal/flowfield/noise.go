// Package flowfield runs the ambient background animation: thousands of
// particles advected by a curl-noise vector field, rendered as fading trails.
//
// The velocity field is the curl of a scalar noise function, so it is
// divergence-free: streams stay coherent, nothing clumps or empties out.
package flowfield

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// curlEpsilon is the central-difference step for the curl estimate.
const curlEpsilon = 0.001

// NoiseField is a deterministic 3D scalar noise function with a curl
// operator derived from it.
type NoiseField struct {
	noise opensimplex.Noise
}

// NewNoiseField creates a field seeded deterministically.
func NewNoiseField(seed int64) *NoiseField {
	return &NoiseField{noise: opensimplex.NewNormalized(seed)}
}

// Sample evaluates the scalar noise at a point.
func (f *NoiseField) Sample(x, y, z float64) float64 {
	return f.noise.Eval3(x, y, z)
}

// Curl returns (dN/dy, -dN/dx) estimated by central differences: a
// divergence-free velocity in the xy-plane.
func (f *NoiseField) Curl(x, y, z float64) (vx, vy float64) {
	e := curlEpsilon
	ddy := (f.Sample(x, y+e, z) - f.Sample(x, y-e, z)) / (2 * e)
	ddx := (f.Sample(x+e, y, z) - f.Sample(x-e, y, z)) / (2 * e)
	return ddy, -ddx
}
