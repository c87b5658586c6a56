// Package merf implements the asset layout pipeline for baked MERF scenes.
//
// A MERF export is a small JSON record plus a set of 8-bit images. This
// package turns decoded images into the buffers a ray marcher samples:
// triplanes, the sparse macroblock atlas and its indirection volume, five
// occupancy levels and the packed view-dependence network.
package merf

import (
	"errors"
	"math"
)

// Pipeline errors. Every failure returned by this package wraps one of them.
var (
	ErrPrecondition = errors.New("precondition violation")
	ErrDecode       = errors.New("decode failure")
)

// Quantization ranges of the 8-bit payloads.
const (
	DensityMin = -14.0
	DensityMax = 14.0
	FeatureMin = -7.0
	FeatureMax = 7.0
)

// Compositing thresholds, matched to 8-bit granularity.
const (
	AlphaEpsilon         = 0.5 / 255.0
	TransmittanceEpsilon = 1.0 / 255.0
)

// Denormalize maps a normalized value in [0,1] onto [lo,hi].
func Denormalize(x, lo, hi float64) float64 {
	return lo + x*(hi-lo)
}

// DensityActivation is the exponential activation applied to summed density.
func DensityActivation(x float64) float64 {
	return math.Exp(x - 1.0)
}

// DensityToAlpha converts an activated density over a world-space step into opacity.
func DensityToAlpha(density, stepSize float64) float64 {
	return 1.0 - math.Exp(-density*stepSize)
}

// Sigmoid is the logistic function.
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
