// Package synth produces valid MERF source buffers from analytic fields.
// The output is exactly what an exporter writes, so it feeds the importer
// and the renderers end to end.
package synth

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/merfbake/pkg/merf"
)

// Sample is the raw (pre-activation) radiance at a point.
type Sample struct {
	Density  float64    // before exp(x-1)
	RGB      mgl64.Vec3 // before the sigmoid
	Features mgl64.Vec4 // before the sigmoid
}

// Empty is a sample that contributes nothing.
var Empty = Sample{Density: merf.DensityMin, RGB: mgl64.Vec3{merf.FeatureMin, merf.FeatureMin, merf.FeatureMin}}

// Field evaluates the sparse grid at a world-space point.
type Field func(x mgl64.Vec3) Sample

// PlaneField evaluates plane p (0: yz, 1: xz, 2: xy) at world coordinates (u, v).
type PlaneField func(p int, u, v float64) Sample

// Config describes the synthetic scene.
type Config struct {
	GridSize  int     // voxels per axis
	BlockSize int     // macroblock size
	Min       float64 // world-space min corner on every axis
	Extent    float64 // world-space edge length of the grid

	// Planes adds triplanes of GridSize texels per side when set.
	Planes PlaneField
	// EmptyDensity is the raw density at or below which a voxel counts as
	// empty when deriving occupancy.
	EmptyDensity float64
	// Network overrides the view-dependence network. The default outputs
	// a negligible contribution.
	Network *NetworkParams
}

// NetworkParams are raw layer weights stored [in][out].
type NetworkParams struct {
	Weights [merf.LayerCount][][]float64
	Bias    [merf.LayerCount][]float64
}

// DefaultConfig is a 64^3 grid spanning all of contracted space, [-2,2]^3.
func DefaultConfig() Config {
	return Config{GridSize: 64, BlockSize: 8, Min: -2, Extent: 4, EmptyDensity: -10}
}

// Source is a complete set of exporter outputs.
type Source struct {
	Params *merf.SceneParameters
	Images map[string]*merf.RawImage // keyed by image name without extension
	Fine   *merf.Volume              // occupied base voxels, for validation
}

// QuietNetwork returns weights whose output is sigmoid(-20) for any input.
func QuietNetwork(hidden int) *NetworkParams {
	n := &NetworkParams{}
	ins := [merf.LayerCount]int{merf.NetworkInputs, hidden, hidden}
	outs := [merf.LayerCount]int{hidden, hidden, 3}
	for i := range n.Weights {
		n.Weights[i] = make([][]float64, ins[i])
		for j := range n.Weights[i] {
			n.Weights[i][j] = make([]float64, outs[i])
		}
		n.Bias[i] = make([]float64, outs[i])
	}
	n.Bias[2] = []float64{-20, -20, -20}
	return n
}

// Generate samples f (and cfg.Planes) into exporter buffers.
func Generate(cfg Config, f Field) (*Source, error) {
	if cfg.GridSize <= 0 || cfg.BlockSize <= 0 || cfg.Extent <= 0 {
		return nil, fmt.Errorf("%w: grid %d, block %d, extent %g",
			merf.ErrPrecondition, cfg.GridSize, cfg.BlockSize, cfg.Extent)
	}
	if f == nil {
		f = func(mgl64.Vec3) Sample { return Empty }
	}
	net := cfg.Network
	if net == nil {
		net = QuietNetwork(16)
	}

	n := cfg.GridSize
	vs := cfg.Extent / float64(n)
	p := &merf.SceneParameters{
		VoxelSize:  vs,
		BlockSize:  cfg.BlockSize,
		GridWidth:  n,
		GridHeight: n,
		GridDepth:  n,
		MinX:       cfg.Min,
		MinY:       cfg.Min,
		MinZ:       cfg.Min,
		Weights0:   net.Weights[0],
		Weights1:   net.Weights[1],
		Weights2:   net.Weights[2],
		Bias0:      net.Bias[0],
		Bias1:      net.Bias[1],
		Bias2:      net.Bias[2],
		WorldspaceTOpengl: [][]float64{
			{1, 0, 0, 0},
			{0, 1, 0, 0},
			{0, 0, 1, 0},
			{0, 0, 0, 1},
		},
		Format: "png",
	}
	if cfg.Planes != nil {
		p.VoxelSizeTriplane = vs
		p.PlaneWidth0, p.PlaneHeight0 = n, n
		p.PlaneWidth1, p.PlaneHeight1 = n, n
		p.PlaneWidth2, p.PlaneHeight2 = n, n
	}

	g := &generator{cfg: cfg, f: f, p: p, vs: vs, images: map[string]*merf.RawImage{}}
	g.sampleGrid()
	g.buildOccupancy()
	if err := g.buildAtlas(); err != nil {
		return nil, err
	}
	if cfg.Planes != nil {
		g.buildPlanes()
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Source{Params: p, Images: g.images, Fine: g.fine}, nil
}

type generator struct {
	cfg    Config
	f      Field
	p      *merf.SceneParameters
	vs     float64
	images map[string]*merf.RawImage

	samples []Sample // GridSize^3, at voxel centers
	fine    *merf.Volume
}

func (g *generator) center(i, j, k int) mgl64.Vec3 {
	return mgl64.Vec3{
		g.cfg.Min + (float64(i)+0.5)*g.vs,
		g.cfg.Min + (float64(j)+0.5)*g.vs,
		g.cfg.Min + (float64(k)+0.5)*g.vs,
	}
}

func (g *generator) sampleGrid() {
	n := g.cfg.GridSize
	g.samples = make([]Sample, n*n*n)
	g.fine = merf.NewVolume(n, n, n, 1)
	for k := 0; k < n; k++ {
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				x := g.center(i, j, k)
				s := g.f(x)
				g.samples[(k*n+j)*n+i] = s
				density := s.Density
				if g.cfg.Planes != nil {
					density += g.cfg.Planes(0, x[1], x[2]).Density +
						g.cfg.Planes(1, x[0], x[2]).Density +
						g.cfg.Planes(2, x[0], x[1]).Density
				}
				if density > g.cfg.EmptyDensity {
					g.fine.Set(i, j, k, 0, merf.OccupancyOccupied)
				}
			}
		}
	}
}

func (g *generator) sample(i, j, k int) Sample {
	n := g.cfg.GridSize
	if i < 0 || j < 0 || k < 0 || i >= n || j >= n || k >= n {
		return Empty
	}
	return g.samples[(k*n+j)*n+i]
}

// buildOccupancy writes the five masks, res wide and res*res tall, depth
// slices stacked top to bottom, mask in the red channel.
func (g *generator) buildOccupancy() {
	levels := merf.OccupancyFromDensity(g.fine, g.vs, 1)
	for _, lvl := range levels {
		res := lvl.Width
		img := merf.NewRawImage(res, res*res)
		for j, v := range lvl.Data {
			img.Pix[j*4+1] = v
			img.Pix[j*4] = 255
		}
		g.images[merf.OccupancyImage(lvl.BlockSize)] = img
	}
}

func quantize(x, lo, hi float64) byte {
	v := math.Round((x - lo) / (hi - lo) * 255)
	return byte(math.Max(0, math.Min(255, v)))
}

// buildAtlas packs every macroblock holding an occupied voxel (including
// its one-voxel apron) into the atlas and writes the index and slice images.
func (g *generator) buildAtlas() error {
	p := g.p
	b := p.BlockSize
	nb := p.BlockGridSize()

	type block struct{ bx, by, bz int }
	var occupied []block
	for bz := 0; bz < nb[2]; bz++ {
		for by := 0; by < nb[1]; by++ {
			for bx := 0; bx < nb[0]; bx++ {
				if g.blockOccupied(bx, by, bz) {
					occupied = append(occupied, block{bx, by, bz})
				}
			}
		}
	}

	count := max(len(occupied), 1)
	ax := int(math.Ceil(math.Cbrt(float64(count))))
	ay := ax
	az := (count + ax*ay - 1) / (ax * ay)
	side := b + 1
	p.AtlasBlocksX, p.AtlasBlocksY, p.AtlasBlocksZ = ax, ay, az
	p.AtlasWidth, p.AtlasHeight, p.AtlasDepth = ax*side, ay*side, az*side
	p.SliceDepth = side
	p.NumSlices = az
	if len(occupied) > 255*255 {
		return fmt.Errorf("%w: %d occupied macroblocks exceed the index range", merf.ErrPrecondition, len(occupied))
	}

	// Index image: depth slice bz occupies rows [bz*H, (bz+1)*H), each
	// slice stored top-down.
	indexImg := merf.NewRawImage(nb[0], nb[1]*nb[2])
	for i := range indexImg.Pix {
		indexImg.Pix[i] = 255
	}
	rgba := make([]*merf.RawImage, az)
	feat := make([]*merf.RawImage, az)
	for i := range rgba {
		rgba[i] = merf.NewRawImage(p.AtlasWidth, p.AtlasHeight*p.SliceDepth)
		feat[i] = merf.NewRawImage(p.AtlasWidth, p.AtlasHeight*p.SliceDepth)
		fillEmpty(rgba[i], feat[i])
	}

	for n, blk := range occupied {
		a := [3]int{n % ax, (n / ax) % ay, n / (ax * ay)}
		row := blk.bz*nb[1] + (nb[1] - 1 - blk.by)
		px := indexImg.Pix[(row*nb[0]+blk.bx)*4:]
		px[0], px[1], px[2], px[3] = 255, byte(a[0]), byte(a[1]), byte(a[2])

		for lz := 0; lz < side; lz++ {
			for ly := 0; ly < side; ly++ {
				for lx := 0; lx < side; lx++ {
					s := g.sample(blk.bx*b+lx, blk.by*b+ly, blk.bz*b+lz)
					x, y, z := a[0]*side+lx, a[1]*side+ly, a[2]*side+lz
					slice := z / p.SliceDepth
					layer := p.SliceDepth - 1 - z%p.SliceDepth
					r := layer*p.AtlasHeight + (p.AtlasHeight - 1 - y)
					off := (r*p.AtlasWidth + x) * 4
					writeSample(rgba[slice].Pix[off:off+4], feat[slice].Pix[off:off+4], s)
				}
			}
		}
	}

	g.images[merf.AtlasIndexImage] = indexImg
	for i := range rgba {
		g.images[merf.RGBAImage(i)] = rgba[i]
		g.images[merf.FeatureImage(i)] = feat[i]
	}
	return nil
}

func (g *generator) blockOccupied(bx, by, bz int) bool {
	b := g.p.BlockSize
	n := g.cfg.GridSize
	for z := max(bz*b-1, 0); z <= min(bz*b+b, n-1); z++ {
		for y := max(by*b-1, 0); y <= min(by*b+b, n-1); y++ {
			for x := max(bx*b-1, 0); x <= min(bx*b+b, n-1); x++ {
				if g.fine.At(x, y, z, 0) != 0 {
					return true
				}
			}
		}
	}
	return false
}

func fillEmpty(rgba, feat *merf.RawImage) {
	for off := 0; off < len(rgba.Pix); off += 4 {
		writeSample(rgba.Pix[off:off+4], feat.Pix[off:off+4], Empty)
	}
}

// writeSample stores density and color as (d, r, g, b) and features as
// (f3, f0, f1, f2) so channel extraction recovers (f0, f1, f2, f3).
func writeSample(rgba, feat []byte, s Sample) {
	rgba[0] = quantize(s.Density, merf.DensityMin, merf.DensityMax)
	for c := 0; c < 3; c++ {
		rgba[c+1] = quantize(s.RGB[c], merf.FeatureMin, merf.FeatureMax)
	}
	feat[0] = quantize(s.Features[3], merf.FeatureMin, merf.FeatureMax)
	for c := 0; c < 3; c++ {
		feat[c+1] = quantize(s.Features[c], merf.FeatureMin, merf.FeatureMax)
	}
}

// buildPlanes writes the three plane image pairs. Texel (i, j) of plane p
// sits at the centers of base voxels i and j along the plane's axes; rows
// are stored top-down.
func (g *generator) buildPlanes() {
	n := g.cfg.GridSize
	for pl := 0; pl < 3; pl++ {
		rgbd := merf.NewRawImage(n, n)
		feat := merf.NewRawImage(n, n)
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				u := g.cfg.Min + (float64(i)+0.5)*g.vs
				v := g.cfg.Min + (float64(j)+0.5)*g.vs
				off := ((n-1-j)*n + i) * 4
				writeSample(rgbd.Pix[off:off+4], feat.Pix[off:off+4], g.cfg.Planes(pl, u, v))
			}
		}
		g.images[merf.PlaneRGBDensityImage(pl)] = rgbd
		g.images[merf.PlaneFeaturesImage(pl)] = feat
	}
}
