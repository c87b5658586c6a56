// Package render produces images by evaluating the ray march kernel for
// every pixel of a camera view.
package render

import (
	"context"
	"io"
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/merfbake/internal/engine/camera"
	"github.com/Faultbox/merfbake/internal/engine/raymarch"
	"github.com/Faultbox/merfbake/internal/imagecodec"
)

// Options configures a frame.
type Options struct {
	Width, Height int
	Workers       int // 0 uses GOMAXPROCS
}

// Image is an 8-bit RGB frame, rows top-down.
type Image struct {
	Width, Height int
	Pix           []byte
	Stats         Stats
}

// Stats summarizes the rays of a frame.
type Stats struct {
	Rays         int
	Hits         int
	Steps        int64
	Terminations [3]int // indexed by raymarch.Termination
	Elapsed      time.Duration
}

// MeanSteps returns the average number of marching steps per ray.
func (s Stats) MeanSteps() float64 {
	if s.Rays == 0 {
		return 0
	}
	return float64(s.Steps) / float64(s.Rays)
}

// Frame renders one image. Rows are distributed across workers; each ray
// owns its marching state and the kernel is shared read-only. Cancelling
// ctx stops the frame between rows.
func Frame(ctx context.Context, k *raymarch.Kernel, cam *camera.OrbitCamera, opts Options) (*Image, error) {
	start := time.Now()
	w, h := opts.Width, opts.Height
	img := &Image{Width: w, Height: h, Pix: make([]byte, w*h*3)}
	rays := cam.Rays(w, h)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var hits, steps atomic.Int64
	var terms [3]atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for y := 0; y < h; y++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			row := img.Pix[y*w*3 : (y+1)*w*3]
			var rowHits, rowSteps int64
			for x := 0; x < w; x++ {
				res := k.Evaluate(rays.Origin, rays.Direction(x, y))
				row[x*3] = toByte(res.Color[0])
				row[x*3+1] = toByte(res.Color[1])
				row[x*3+2] = toByte(res.Color[2])
				if res.Hit {
					rowHits++
				}
				rowSteps += int64(res.Steps)
				terms[res.Termination].Add(1)
			}
			hits.Add(rowHits)
			steps.Add(rowSteps)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	img.Stats = Stats{
		Rays:    w * h,
		Hits:    int(hits.Load()),
		Steps:   steps.Load(),
		Elapsed: time.Since(start),
	}
	for i := range terms {
		img.Stats.Terminations[i] = int(terms[i].Load())
	}
	return img, nil
}

// At returns the color of pixel (x, y) in [0,1].
func (img *Image) At(x, y int) [3]float64 {
	i := (y*img.Width + x) * 3
	return [3]float64{
		float64(img.Pix[i]) / 255,
		float64(img.Pix[i+1]) / 255,
		float64(img.Pix[i+2]) / 255,
	}
}

// WritePNG encodes the frame as PNG.
func (img *Image) WritePNG(w io.Writer) error {
	return imagecodec.EncodeRGB(w, img.Width, img.Height, img.Pix)
}

func toByte(c float64) byte {
	return byte(math.Round(255 * math.Max(0, math.Min(1, c))))
}
