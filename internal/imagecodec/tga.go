package imagecodec

import (
	"errors"
	"fmt"
	"image"
)

// TGA image types.
const (
	TGATypeUncompressed = 2  // Uncompressed true-color
	TGATypeRLE          = 10 // RLE compressed true-color
)

var errTGATruncated = errors.New("TGA data truncated")

// DecodeTGA decodes an uncompressed or RLE compressed 24/32-bit TGA.
func DecodeTGA(data []byte) (*image.NRGBA, error) {
	if len(data) < 18 {
		return nil, fmt.Errorf("TGA data too short")
	}

	idLength := int(data[0])
	colorMapType := data[1]
	imageType := data[2]
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	topToBottom := data[17]&0x20 != 0

	if colorMapType != 0 {
		return nil, fmt.Errorf("color-mapped TGA not supported")
	}
	if imageType != TGATypeUncompressed && imageType != TGATypeRLE {
		return nil, fmt.Errorf("unsupported TGA type %d", imageType)
	}
	if bpp != 24 && bpp != 32 {
		return nil, fmt.Errorf("unsupported TGA bit depth %d", bpp)
	}
	offset := 18 + idLength
	if offset > len(data) {
		return nil, errTGATruncated
	}

	d := tgaDecoder{
		img:  image.NewNRGBA(image.Rect(0, 0, width, height)),
		src:  data[offset:],
		bpp:  bpp / 8,
		flip: !topToBottom,
	}
	var err error
	if imageType == TGATypeUncompressed {
		err = d.raw(width * height)
	} else {
		err = d.rle()
	}
	if err != nil {
		return nil, err
	}
	return d.img, nil
}

type tgaDecoder struct {
	img  *image.NRGBA
	src  []byte
	pos  int
	bpp  int
	n    int // pixels written
	flip bool
}

// pixel reads one BGR(A) pixel.
func (d *tgaDecoder) pixel() ([4]byte, error) {
	if d.pos+d.bpp > len(d.src) {
		return [4]byte{}, errTGATruncated
	}
	s := d.src[d.pos:]
	px := [4]byte{s[2], s[1], s[0], 255}
	if d.bpp == 4 {
		px[3] = s[3]
	}
	d.pos += d.bpp
	return px, nil
}

func (d *tgaDecoder) put(px [4]byte) {
	w := d.img.Rect.Dx()
	x, y := d.n%w, d.n/w
	if d.flip {
		y = d.img.Rect.Dy() - 1 - y
	}
	copy(d.img.Pix[d.img.PixOffset(x, y):], px[:])
	d.n++
}

func (d *tgaDecoder) raw(count int) error {
	for i := 0; i < count; i++ {
		px, err := d.pixel()
		if err != nil {
			return err
		}
		d.put(px)
	}
	return nil
}

func (d *tgaDecoder) rle() error {
	total := len(d.img.Pix) / 4
	for d.n < total {
		if d.pos >= len(d.src) {
			return errTGATruncated
		}
		packet := d.src[d.pos]
		d.pos++
		count := min(int(packet&0x7F)+1, total-d.n)
		if packet&0x80 == 0 {
			if err := d.raw(count); err != nil {
				return err
			}
			continue
		}
		px, err := d.pixel()
		if err != nil {
			return err
		}
		for i := 0; i < count; i++ {
			d.put(px)
		}
	}
	return nil
}
