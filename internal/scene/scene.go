// Package scene holds a fully imported MERF scene: every derived buffer
// together with the parameters the kernel needs, keyed by binding slot.
package scene

import (
	"fmt"

	"github.com/Faultbox/merfbake/internal/shadergen"
	"github.com/Faultbox/merfbake/pkg/merf"
)

// Scene is an immutable set of render-ready buffers.
type Scene struct {
	Name   string
	Params *merf.SceneParameters

	Triplanes *merf.TriplaneSet  // nil without triplanes
	Atlas     *merf.SparseAtlas  // nil without a sparse grid
	Occupancy *merf.OccupancyLevels
	Network   *merf.NetworkWeights
}

// Validate checks that the buffers present match the representations the
// parameters declare.
func (s *Scene) Validate() error {
	if s.Params == nil {
		return fmt.Errorf("%w: scene %q has no parameters", merf.ErrPrecondition, s.Name)
	}
	if s.Occupancy == nil {
		return fmt.Errorf("%w: scene %q has no occupancy grids", merf.ErrPrecondition, s.Name)
	}
	if s.Network == nil {
		return fmt.Errorf("%w: scene %q has no network weights", merf.ErrPrecondition, s.Name)
	}
	if s.Params.UsesTriplane() != (s.Triplanes != nil) {
		return fmt.Errorf("%w: scene %q triplanes present=%v, declared=%v",
			merf.ErrPrecondition, s.Name, s.Triplanes != nil, s.Params.UsesTriplane())
	}
	if s.Params.UsesSparseGrid() {
		if s.Atlas == nil || s.Atlas.Index == nil {
			return fmt.Errorf("%w: scene %q declares a sparse grid without atlas and index",
				merf.ErrPrecondition, s.Name)
		}
	} else if s.Atlas != nil {
		return fmt.Errorf("%w: scene %q carries an atlas it does not declare", merf.ErrPrecondition, s.Name)
	}
	if msg := s.sizeMismatch(); msg != "" {
		return fmt.Errorf("%w: scene %q: %s", merf.ErrPrecondition, s.Name, msg)
	}
	return nil
}

// sizeMismatch describes the first volume whose dimensions disagree with
// the ones the parameters imply, or returns "" when all agree.
func (s *Scene) sizeMismatch() string {
	type expect struct {
		slot    string
		v       *merf.Volume
		w, h, d int
		c       int
	}
	p := s.Params
	var want []expect
	if t := s.Triplanes; t != nil {
		w, h := p.PlaneWidth0, p.PlaneHeight0
		want = append(want,
			expect{shadergen.SlotPlaneRgb, t.RGB, w, h, 3, 3},
			expect{shadergen.SlotPlaneDensity, t.Density, w, h, 3, 1},
			expect{shadergen.SlotPlaneFeatures, t.Features, w, h, 3, 4},
		)
	}
	if a := s.Atlas; a != nil {
		b := p.BlockGridSize()
		want = append(want,
			expect{shadergen.SlotSparseGridRgb, a.RGB, p.AtlasWidth, p.AtlasHeight, p.AtlasDepth, 3},
			expect{shadergen.SlotSparseGridDensity, a.Density, p.AtlasWidth, p.AtlasHeight, p.AtlasDepth, 1},
			expect{shadergen.SlotSparseGridFeatures, a.Features, p.AtlasWidth, p.AtlasHeight, p.AtlasDepth, 4},
			expect{shadergen.SlotSparseGridIndex, a.Index, b[0], b[1], b[2], 3},
		)
	}
	if s.Occupancy != nil {
		base, _ := p.OccupancyBase()
		for i, bs := range merf.OccupancyBlockSizes {
			res := merf.OccupancyResolution(base, bs)
			want = append(want, expect{shadergen.SlotOccupancyGrid(i), s.Occupancy[i].Volume, res, res, res, 1})
		}
	}

	for _, e := range want {
		if e.v == nil {
			return e.slot + " is missing"
		}
		if e.v.Width != e.w || e.v.Height != e.h || e.v.Depth != e.d || e.v.Channels != e.c {
			return fmt.Sprintf("%s is %dx%dx%d with %d channels, expected %dx%dx%d with %d",
				e.slot, e.v.Width, e.v.Height, e.v.Depth, e.v.Channels, e.w, e.h, e.d, e.c)
		}
	}
	return ""
}

// Volumes returns every texture volume keyed by its slot name.
func (s *Scene) Volumes() map[string]*merf.Volume {
	vols := make(map[string]*merf.Volume)
	if s.Triplanes != nil {
		vols[shadergen.SlotPlaneRgb] = s.Triplanes.RGB
		vols[shadergen.SlotPlaneDensity] = s.Triplanes.Density
		vols[shadergen.SlotPlaneFeatures] = s.Triplanes.Features
	}
	if s.Atlas != nil {
		vols[shadergen.SlotSparseGridRgb] = s.Atlas.RGB
		vols[shadergen.SlotSparseGridDensity] = s.Atlas.Density
		vols[shadergen.SlotSparseGridFeatures] = s.Atlas.Features
		vols[shadergen.SlotSparseGridIndex] = s.Atlas.Index
	}
	if s.Occupancy != nil {
		for i := range s.Occupancy {
			vols[shadergen.SlotOccupancyGrid(i)] = s.Occupancy[i].Volume
		}
	}
	return vols
}

// WeightBuffers returns the packed weights of each network layer keyed by
// slot name. Each buffer is a PaddedOut x PaddedIn/4 grid of 4-float texels.
func (s *Scene) WeightBuffers() map[string]*merf.Layer {
	bufs := make(map[string]*merf.Layer)
	if s.Network == nil {
		return bufs
	}
	for i := range s.Network.Layers {
		bufs[shadergen.SlotWeights(i)] = &s.Network.Layers[i]
	}
	return bufs
}

// Uniforms returns the scalar and vector kernel parameters the scene
// fixes, keyed by slot name. Matrices are column-major.
func (s *Scene) Uniforms() map[string][]float64 {
	p := s.Params
	minPos := p.MinPosition()
	u := map[string][]float64{
		shadergen.SlotMinPosition: {minPos[0], minPos[1], minPos[2]},
	}
	wt := p.WorldTransform()
	u[shadergen.SlotWorldTransform] = wt[:]

	if p.UsesSparseGrid() {
		u[shadergen.SlotVoxelSize] = []float64{p.VoxelSize}
		u[shadergen.SlotGridSize] = []float64{float64(p.GridWidth), float64(p.GridHeight), float64(p.GridDepth)}
		u[shadergen.SlotBlockSize] = []float64{float64(p.BlockSize)}
		u[shadergen.SlotAtlasSize] = []float64{float64(p.AtlasWidth), float64(p.AtlasHeight), float64(p.AtlasDepth)}
	} else {
		u[shadergen.SlotVoxelSize] = []float64{p.VoxelSizeTriplane}
		u[shadergen.SlotGridSize] = []float64{float64(p.PlaneWidth0), float64(p.PlaneHeight0), float64(p.PlaneWidth0)}
	}
	if p.UsesTriplane() {
		u[shadergen.SlotPlaneSize] = []float64{float64(p.PlaneWidth0), float64(p.PlaneHeight0)}
		u[shadergen.SlotVoxelSizeTriplane] = []float64{p.VoxelSizeTriplane}
	}
	if s.Occupancy != nil {
		for i := range s.Occupancy {
			g := &s.Occupancy[i]
			u[shadergen.SlotVoxelSizeOccupancy(i)] = []float64{g.VoxelSize}
			u[shadergen.SlotGridSizeOccupancy(i)] = []float64{float64(g.Width), float64(g.Height), float64(g.Depth)}
		}
	}
	if s.Network != nil {
		for i := range s.Network.Layers {
			u[shadergen.SlotBias(i)] = append([]float64(nil), s.Network.Layers[i].Bias...)
		}
	}
	return u
}

// Stats summarizes the memory held by a scene.
type Stats struct {
	VolumeBytes  int
	WeightBytes  int
	Volumes      int
	OccupiedFine int // occupied cells of the finest occupancy level
}

// Stats computes the scene's memory footprint.
func (s *Scene) Stats() Stats {
	var st Stats
	for _, v := range s.Volumes() {
		st.VolumeBytes += len(v.Data)
		st.Volumes++
	}
	for _, l := range s.WeightBuffers() {
		st.WeightBytes += 4 * len(l.Packed)
	}
	if s.Occupancy != nil {
		for _, b := range s.Occupancy[0].Data {
			if b != merf.OccupancyEmpty {
				st.OccupiedFine++
			}
		}
	}
	return st
}
