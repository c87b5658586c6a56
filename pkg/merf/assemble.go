package merf

import "fmt"

// TriplaneSet holds the three axis planes as layered volumes of depth 3.
// Layer 0 is indexed by (y,z), layer 1 by (x,z), layer 2 by (x,y).
type TriplaneSet struct {
	RGB      *Volume // 3 channels
	Density  *Volume // 1 channel
	Features *Volume // 4 channels
}

// SparseAtlas holds the macroblock atlas and its indirection volume.
type SparseAtlas struct {
	RGB      *Volume // 3 channels
	Density  *Volume // 1 channel
	Features *Volume // 4 channels
	Index    *Volume // 3 channels, one voxel per macroblock
}

// AtlasIndexEmpty is the first-component value marking an unoccupied macroblock.
const AtlasIndexEmpty = 255

// AssembleTriplanes builds the triplane volumes from three
// (rgb+density, features) image pairs. Every image must be
// plane_width_0 x plane_height_0.
func AssembleTriplanes(p *SceneParameters, rgbDensity, features []*RawImage) (*TriplaneSet, error) {
	if !p.UsesTriplane() {
		return nil, fmt.Errorf("%w: scene has no triplanes", ErrPrecondition)
	}
	if len(rgbDensity) != 3 || len(features) != 3 {
		return nil, fmt.Errorf("%w: expected 3 triplane image pairs, got %d/%d",
			ErrPrecondition, len(rgbDensity), len(features))
	}
	w, h := p.PlaneWidth0, p.PlaneHeight0
	for i := 0; i < 3; i++ {
		if err := rgbDensity[i].checkSize(PlaneRGBDensityImage(i), w, h); err != nil {
			return nil, err
		}
		if err := features[i].checkSize(PlaneFeaturesImage(i), w, h); err != nil {
			return nil, err
		}
	}

	set := &TriplaneSet{
		RGB:      NewVolume(w, h, 3, 3),
		Density:  NewVolume(w, h, 3, 1),
		Features: NewVolume(w, h, 3, 4),
	}
	for i := 0; i < 3; i++ {
		ExtractRGB(set.RGB.Layer(i), rgbDensity[i].Pix)
		ExtractScalar(set.Density.Layer(i), rgbDensity[i].Pix)
		ExtractFeatures(set.Features.Layer(i), features[i].Pix)
	}
	FlipRows(set.RGB)
	FlipRows(set.Density)
	FlipRows(set.Features)
	return set, nil
}

// AssembleAtlas builds the atlas volumes from num_slices slice image
// pairs. Slice image i is atlas_width wide and atlas_height*slice_depth
// tall and carries the z chunk starting at layer i*slice_depth, one layer
// per atlas_height rows.
func AssembleAtlas(p *SceneParameters, rgba, feature []*RawImage) (*SparseAtlas, error) {
	if !p.UsesSparseGrid() {
		return nil, fmt.Errorf("%w: scene has no sparse grid", ErrPrecondition)
	}
	if len(rgba) != p.NumSlices || len(feature) != p.NumSlices {
		return nil, fmt.Errorf("%w: expected %d atlas slices, got %d rgba and %d feature",
			ErrPrecondition, p.NumSlices, len(rgba), len(feature))
	}
	w, h := p.AtlasWidth, p.AtlasHeight*p.SliceDepth
	for i := 0; i < p.NumSlices; i++ {
		if err := rgba[i].checkSize(RGBAImage(i), w, h); err != nil {
			return nil, err
		}
		if err := feature[i].checkSize(FeatureImage(i), w, h); err != nil {
			return nil, err
		}
	}

	atlas := &SparseAtlas{
		RGB:      NewVolume(p.AtlasWidth, p.AtlasHeight, p.AtlasDepth, 3),
		Density:  NewVolume(p.AtlasWidth, p.AtlasHeight, p.AtlasDepth, 1),
		Features: NewVolume(p.AtlasWidth, p.AtlasHeight, p.AtlasDepth, 4),
	}
	chunk := p.SliceChunkVoxels()
	for i := 0; i < p.NumSlices; i++ {
		off := i * chunk
		ExtractRGB(atlas.RGB.Data[off*3:(off+chunk)*3], rgba[i].Pix)
		ExtractScalar(atlas.Density.Data[off:off+chunk], rgba[i].Pix)
		ExtractFeatures(atlas.Features.Data[off*4:(off+chunk)*4], feature[i].Pix)
	}
	for _, v := range []*Volume{atlas.RGB, atlas.Density, atlas.Features} {
		FlipRows(v)
		if err := ReverseDepthBlocks(v, p.SliceDepth); err != nil {
			return nil, err
		}
	}
	return atlas, nil
}

// AssembleAtlasIndex builds the macroblock indirection volume. The image
// is ceil(grid_width/block) wide and stacks ceil(grid_depth/block) depth
// slices of ceil(grid_height/block) rows each; RGB carries the atlas block
// coordinate.
func AssembleAtlasIndex(p *SceneParameters, img *RawImage) (*Volume, error) {
	if !p.UsesSparseGrid() {
		return nil, fmt.Errorf("%w: scene has no sparse grid", ErrPrecondition)
	}
	b := p.BlockGridSize()
	if err := img.checkSize(AtlasIndexImage, b[0], b[1]*b[2]); err != nil {
		return nil, err
	}
	index := NewVolume(b[0], b[1], b[2], 3)
	ExtractRGB(index.Data, img.Pix)
	FlipRows(index)
	return index, nil
}
