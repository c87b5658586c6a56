package merf

import "fmt"

// RawImage is a decoded 8-bit image with 4 interleaved channels, row-major,
// origin top-left. Channel 0 carries the scalar (density or feature w),
// channels 1..3 the color or feature triple.
type RawImage struct {
	Width  int
	Height int
	Pix    []byte
}

// NewRawImage allocates a zeroed image.
func NewRawImage(width, height int) *RawImage {
	return &RawImage{Width: width, Height: height, Pix: make([]byte, width*height*4)}
}

// checkSize verifies the image has the expected dimensions and a payload
// that matches them.
func (img *RawImage) checkSize(name string, width, height int) error {
	if img == nil {
		return fmt.Errorf("%w: %s: missing image", ErrPrecondition, name)
	}
	if img.Width != width || img.Height != height {
		return fmt.Errorf("%w: %s: got %dx%d, expected %dx%d",
			ErrPrecondition, name, img.Width, img.Height, width, height)
	}
	if len(img.Pix) != width*height*4 {
		return fmt.Errorf("%w: %s: payload is %d bytes, expected %d",
			ErrPrecondition, name, len(img.Pix), width*height*4)
	}
	return nil
}

// Element selects the output element format of channel extraction.
type Element int

// Element formats.
const (
	ElementScalar   Element = iota // channel 0
	ElementRGB                     // channels 1,2,3
	ElementFeatures                // channels 1,2,3,0
)

// Channels returns the number of bytes per element.
func (e Element) Channels() int {
	switch e {
	case ElementScalar:
		return 1
	case ElementRGB:
		return 3
	default:
		return 4
	}
}

// String returns the element name.
func (e Element) String() string {
	switch e {
	case ElementScalar:
		return "scalar"
	case ElementRGB:
		return "rgb"
	case ElementFeatures:
		return "features"
	default:
		return fmt.Sprintf("Element(%d)", int(e))
	}
}

// Extract converts 4-channel pixels in src into elements in dst. It
// converts as many pixels as both buffers hold and returns that count.
func Extract(dst, src []byte, e Element) int {
	switch e {
	case ElementScalar:
		return ExtractScalar(dst, src)
	case ElementRGB:
		return ExtractRGB(dst, src)
	default:
		return ExtractFeatures(dst, src)
	}
}

// ExtractScalar copies channel 0 of every pixel.
func ExtractScalar(dst, src []byte) int {
	n := min(len(dst), len(src)/4)
	for i := 0; i < n; i++ {
		dst[i] = src[i*4]
	}
	return n
}

// ExtractRGB copies channels 1..3 of every pixel.
func ExtractRGB(dst, src []byte) int {
	n := min(len(dst)/3, len(src)/4)
	for i := 0; i < n; i++ {
		s := src[i*4 : i*4+4 : i*4+4]
		d := dst[i*3 : i*3+3 : i*3+3]
		d[0], d[1], d[2] = s[1], s[2], s[3]
	}
	return n
}

// ExtractFeatures rotates every pixel so the scalar channel lands last:
// (c0,c1,c2,c3) becomes (c1,c2,c3,c0).
func ExtractFeatures(dst, src []byte) int {
	n := min(len(dst)/4, len(src)/4)
	for i := 0; i < n; i++ {
		s := src[i*4 : i*4+4 : i*4+4]
		d := dst[i*4 : i*4+4 : i*4+4]
		d[0], d[1], d[2], d[3] = s[1], s[2], s[3], s[0]
	}
	return n
}

// Volume is a dense 3D buffer of 8-bit elements, x fastest, then y, then z.
// A set of equally sized 2D layers is a Volume whose depth is the layer count.
type Volume struct {
	Width    int
	Height   int
	Depth    int
	Channels int
	Data     []byte
}

// NewVolume allocates a zeroed volume.
func NewVolume(width, height, depth, channels int) *Volume {
	return &Volume{
		Width:    width,
		Height:   height,
		Depth:    depth,
		Channels: channels,
		Data:     make([]byte, width*height*depth*channels),
	}
}

// Size returns the dimensions as (width, height, depth).
func (v *Volume) Size() [3]int {
	return [3]int{v.Width, v.Height, v.Depth}
}

// LayerBytes returns the byte length of one z layer.
func (v *Volume) LayerBytes() int {
	return v.Width * v.Height * v.Channels
}

// Layer returns the bytes of layer z, sharing storage with the volume.
func (v *Volume) Layer(z int) []byte {
	n := v.LayerBytes()
	return v.Data[z*n : (z+1)*n]
}

// Offset returns the index of the first channel of voxel (x,y,z).
func (v *Volume) Offset(x, y, z int) int {
	return ((z*v.Height+y)*v.Width + x) * v.Channels
}

// At returns channel c of voxel (x,y,z).
func (v *Volume) At(x, y, z, c int) byte {
	return v.Data[v.Offset(x, y, z)+c]
}

// Set stores channel c of voxel (x,y,z).
func (v *Volume) Set(x, y, z, c int, value byte) {
	v.Data[v.Offset(x, y, z)+c] = value
}

// Clone returns a deep copy.
func (v *Volume) Clone() *Volume {
	c := *v
	c.Data = append([]byte(nil), v.Data...)
	return &c
}
