// Package imagecodec decodes exported images into merf.RawImage buffers
// and encodes them back to PNG.
package imagecodec

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"path"
	"strings"

	_ "golang.org/x/image/bmp"  // BMP decoder registration
	_ "golang.org/x/image/webp" // WebP decoder registration

	"github.com/Faultbox/merfbake/pkg/merf"
)

// Extensions lists the source image extensions tried in order.
var Extensions = []string{".png", ".webp", ".bmp", ".tga"}

// Decode decodes an image file. The format is detected from the content,
// except for TGA which is selected by the name's extension. Straight
// (non-premultiplied) RGBA lands in RawImage channels (A, R, G, B).
func Decode(name string, data []byte) (*merf.RawImage, error) {
	var img image.Image
	var err error
	if strings.EqualFold(path.Ext(name), ".tga") {
		img, err = DecodeTGA(data)
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", merf.ErrDecode, name, err)
	}
	return FromImage(img), nil
}

// FromImage converts any image to a RawImage.
func FromImage(img image.Image) *merf.RawImage {
	b := img.Bounds()
	nrgba, ok := img.(*image.NRGBA)
	if !ok || b.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	}
	raw := merf.NewRawImage(b.Dx(), b.Dy())
	for y := 0; y < raw.Height; y++ {
		src := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+raw.Width*4]
		dst := raw.Pix[y*raw.Width*4 : (y+1)*raw.Width*4]
		for x := 0; x < raw.Width; x++ {
			s := src[x*4 : x*4+4 : x*4+4]
			d := dst[x*4 : x*4+4 : x*4+4]
			d[0], d[1], d[2], d[3] = s[3], s[0], s[1], s[2]
		}
	}
	return raw
}

// ToImage converts a RawImage back to straight RGBA.
func ToImage(raw *merf.RawImage) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, raw.Width, raw.Height))
	for i := 0; i < raw.Width*raw.Height; i++ {
		s := raw.Pix[i*4 : i*4+4 : i*4+4]
		d := img.Pix[i*4 : i*4+4 : i*4+4]
		d[0], d[1], d[2], d[3] = s[1], s[2], s[3], s[0]
	}
	return img
}

// EncodePNG writes raw as a PNG.
func EncodePNG(w io.Writer, raw *merf.RawImage) error {
	return png.Encode(w, ToImage(raw))
}

// EncodeRGB writes an 8-bit RGB frame as an opaque PNG. pix holds 3
// bytes per pixel, rows top-down.
func EncodeRGB(w io.Writer, width, height int, pix []byte) error {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		img.SetNRGBA(i%width, i/width, color.NRGBA{R: pix[i*3], G: pix[i*3+1], B: pix[i*3+2], A: 255})
	}
	return png.Encode(w, img)
}
