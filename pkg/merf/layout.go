package merf

import "fmt"

// FlipRows mirrors every z layer of v vertically in place (row y swaps
// with row height-1-y). Applying it twice restores the input.
func FlipRows(v *Volume) {
	rowBytes := v.Width * v.Channels
	tmp := make([]byte, rowBytes)
	for z := 0; z < v.Depth; z++ {
		layer := v.Layer(z)
		for y := 0; y < v.Height/2; y++ {
			top := layer[y*rowBytes : (y+1)*rowBytes]
			bottom := layer[(v.Height-1-y)*rowBytes : (v.Height-y)*rowBytes]
			copy(tmp, top)
			copy(top, bottom)
			copy(bottom, tmp)
		}
	}
}

// ReverseDepthBlocks reverses the order of layers inside every run of
// stride consecutive layers. The depth must be a multiple of stride.
// Applying it twice restores the input.
func ReverseDepthBlocks(v *Volume, stride int) error {
	if stride <= 0 || v.Depth%stride != 0 {
		return fmt.Errorf("%w: depth %d is not a multiple of block depth %d", ErrPrecondition, v.Depth, stride)
	}
	tmp := make([]byte, v.LayerBytes())
	for base := 0; base < v.Depth; base += stride {
		for s := 0; s < stride/2; s++ {
			a := v.Layer(base + s)
			b := v.Layer(base + stride - 1 - s)
			copy(tmp, a)
			copy(a, b)
			copy(b, tmp)
		}
	}
	return nil
}
