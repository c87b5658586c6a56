package imagecodec

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"golang.org/x/image/bmp"

	"github.com/Faultbox/merfbake/pkg/merf"
)

func TestPNGRoundTrip(t *testing.T) {
	raw := merf.NewRawImage(3, 2)
	for i := range raw.Pix {
		raw.Pix[i] = byte(i * 7)
	}
	var buf bytes.Buffer
	if err := EncodePNG(&buf, raw); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	got, err := Decode("x.png", buf.Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Width != 3 || got.Height != 2 || !bytes.Equal(got.Pix, raw.Pix) {
		t.Errorf("round trip mismatch:\n got %v\nwant %v", got.Pix, raw.Pix)
	}
}

func TestChannelOrder(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 40})
	raw := FromImage(img)
	want := []byte{40, 10, 20, 30}
	if !bytes.Equal(raw.Pix, want) {
		t.Errorf("Pix = %v, want %v", raw.Pix, want)
	}
}

func TestDecodeBMP(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	img.Set(1, 0, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	raw, err := Decode("mask.bmp", buf.Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if raw.Pix[4+1] != 200 || raw.Pix[4] != 255 {
		t.Errorf("pixel (1,0) = %v", raw.Pix[4:8])
	}
}

func tgaHeader(imageType byte, w, h int, bpp byte, topDown bool) []byte {
	hdr := make([]byte, 18)
	hdr[2] = imageType
	hdr[12], hdr[13] = byte(w), byte(w>>8)
	hdr[14], hdr[15] = byte(h), byte(h>>8)
	hdr[16] = bpp
	if topDown {
		hdr[17] = 0x20
	}
	return hdr
}

func TestDecodeTGA(t *testing.T) {
	// Bottom-up 2x2, 32 bit BGRA: first stored row is the bottom row.
	uncompressed := append(tgaHeader(TGATypeUncompressed, 2, 2, 32, false),
		1, 2, 3, 4, 5, 6, 7, 8, // bottom row
		9, 10, 11, 12, 13, 14, 15, 16, // top row
	)
	// Same image as one RLE packet for the bottom row and a raw packet on top.
	rle := append(tgaHeader(TGATypeRLE, 2, 2, 32, false),
		0x81, 1, 2, 3, 4,
		0x01, 9, 10, 11, 12, 13, 14, 15, 16,
	)

	tests := []struct {
		name string
		data []byte
		want [4]color.NRGBA // (0,0) (1,0) (0,1) (1,1)
	}{
		{"uncompressed", uncompressed, [4]color.NRGBA{
			{11, 10, 9, 12}, {15, 14, 13, 16}, {3, 2, 1, 4}, {7, 6, 5, 8},
		}},
		{"rle", rle, [4]color.NRGBA{
			{11, 10, 9, 12}, {15, 14, 13, 16}, {3, 2, 1, 4}, {3, 2, 1, 4},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := DecodeTGA(tt.data)
			if err != nil {
				t.Fatalf("DecodeTGA: %v", err)
			}
			for i, want := range tt.want {
				if got := img.NRGBAAt(i%2, i/2); got != want {
					t.Errorf("pixel %d = %v, want %v", i, got, want)
				}
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"garbage.png", []byte("not an image")},
		{"short.tga", []byte{1, 2, 3}},
		{"mapped.tga", func() []byte { h := tgaHeader(TGATypeUncompressed, 1, 1, 24, true); h[1] = 1; return h }()},
		{"truncated.tga", tgaHeader(TGATypeUncompressed, 4, 4, 24, true)},
	}
	for _, tt := range tests {
		if _, err := Decode(tt.name, tt.data); !errors.Is(err, merf.ErrDecode) {
			t.Errorf("Decode(%s): err = %v, want ErrDecode", tt.name, err)
		}
	}
}
