package merf

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Samplers follow GL texture addressing with clamp-to-edge: texel centers
// sit at integer coordinates, so a continuous coordinate c in texel units
// corresponds to normalized (c+0.5)/size.

// Texel returns voxel (x,y,z) normalized to [0,1] into out, clamping the
// coordinate to the volume.
func (v *Volume) Texel(x, y, z int, out []float64) {
	x = clampInt(x, 0, v.Width-1)
	y = clampInt(y, 0, v.Height-1)
	z = clampInt(z, 0, v.Depth-1)
	off := v.Offset(x, y, z)
	for c := 0; c < v.Channels && c < len(out); c++ {
		out[c] = float64(v.Data[off+c]) / 255.0
	}
}

// Nearest samples the voxel containing pos, with pos in voxel units
// (voxel i spans [i, i+1)).
func (v *Volume) Nearest(pos mgl64.Vec3, out []float64) {
	v.Texel(int(math.Floor(pos[0])), int(math.Floor(pos[1])), int(math.Floor(pos[2])), out)
}

// Trilinear interpolates at pos given in texel-center units.
func (v *Volume) Trilinear(pos mgl64.Vec3, out []float64) {
	var lo [3]int
	var f [3]float64
	for a := 0; a < 3; a++ {
		fl := math.Floor(pos[a])
		lo[a] = int(fl)
		f[a] = pos[a] - fl
	}
	for c := range out {
		out[c] = 0
	}
	var tmp [4]float64
	for corner := 0; corner < 8; corner++ {
		w := 1.0
		var idx [3]int
		for a := 0; a < 3; a++ {
			if corner&(1<<a) != 0 {
				idx[a] = lo[a] + 1
				w *= f[a]
			} else {
				idx[a] = lo[a]
				w *= 1 - f[a]
			}
		}
		if w == 0 {
			continue
		}
		v.Texel(idx[0], idx[1], idx[2], tmp[:v.Channels])
		for c := 0; c < v.Channels && c < len(out); c++ {
			out[c] += w * tmp[c]
		}
	}
}

// Bilinear interpolates layer z of a layered volume at (x,y) given in
// texel-center units.
func (v *Volume) Bilinear(z int, x, y float64, out []float64) {
	fx, fy := math.Floor(x), math.Floor(y)
	x0, y0 := int(fx), int(fy)
	tx, ty := x-fx, y-fy
	for c := range out {
		out[c] = 0
	}
	var tmp [4]float64
	weights := [4]float64{(1 - tx) * (1 - ty), tx * (1 - ty), (1 - tx) * ty, tx * ty}
	for k, w := range weights {
		if w == 0 {
			continue
		}
		v.Texel(x0+(k&1), y0+(k>>1), z, tmp[:v.Channels])
		for c := 0; c < v.Channels && c < len(out); c++ {
			out[c] += w * tmp[c]
		}
	}
}
