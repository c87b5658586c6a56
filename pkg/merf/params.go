package merf

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
)

// SceneParameters is the decoded scene_params.json record of a MERF export.
// It is treated as read-only once Validate succeeds.
type SceneParameters struct {
	VoxelSize  float64 `json:"voxel_size"`
	BlockSize  int     `json:"block_size"`
	GridWidth  int     `json:"grid_width"`
	GridHeight int     `json:"grid_height"`
	GridDepth  int     `json:"grid_depth"`

	AtlasWidth  int `json:"atlas_width"`
	AtlasHeight int `json:"atlas_height"`
	AtlasDepth  int `json:"atlas_depth"`
	NumSlices   int `json:"num_slices"`
	SliceDepth  int `json:"slice_depth"`

	AtlasBlocksX int `json:"atlas_blocks_x"`
	AtlasBlocksY int `json:"atlas_blocks_y"`
	AtlasBlocksZ int `json:"atlas_blocks_z"`

	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MinZ float64 `json:"min_z"`

	WorldspaceTOpengl [][]float64 `json:"worldspace_T_opengl"`

	Weights0 [][]float64 `json:"0_weights"`
	Weights1 [][]float64 `json:"1_weights"`
	Weights2 [][]float64 `json:"2_weights"`
	Bias0    []float64   `json:"0_bias"`
	Bias1    []float64   `json:"1_bias"`
	Bias2    []float64   `json:"2_bias"`

	VoxelSizeTriplane float64 `json:"voxel_size_triplane"`
	PlaneWidth0       int     `json:"plane_width_0"`
	PlaneHeight0      int     `json:"plane_height_0"`
	PlaneWidth1       int     `json:"plane_width_1"`
	PlaneHeight1      int     `json:"plane_height_1"`
	PlaneWidth2       int     `json:"plane_width_2"`
	PlaneHeight2      int     `json:"plane_height_2"`

	Format string `json:"format,omitempty"`
}

// ParseSceneParameters decodes and validates a scene_params.json payload.
func ParseSceneParameters(data []byte) (*SceneParameters, error) {
	var p SceneParameters
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: scene parameters: %v", ErrDecode, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// ParseSceneParametersFile reads and parses a scene_params.json file.
func ParseSceneParametersFile(path string) (*SceneParameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene parameters: %w", err)
	}
	return ParseSceneParameters(data)
}

// Validate checks the structural consistency of the record.
func (p *SceneParameters) Validate() error {
	if !p.UsesSparseGrid() && !p.UsesTriplane() {
		return fmt.Errorf("%w: scene uses neither a sparse grid nor triplanes", ErrPrecondition)
	}
	if p.UsesSparseGrid() {
		if p.BlockSize <= 0 {
			return fmt.Errorf("%w: block_size must be positive, got %d", ErrPrecondition, p.BlockSize)
		}
		if p.GridWidth <= 0 || p.GridHeight <= 0 || p.GridDepth <= 0 {
			return fmt.Errorf("%w: grid size %dx%dx%d", ErrPrecondition, p.GridWidth, p.GridHeight, p.GridDepth)
		}
		if p.AtlasWidth <= 0 || p.AtlasHeight <= 0 || p.AtlasDepth <= 0 {
			return fmt.Errorf("%w: atlas size %dx%dx%d", ErrPrecondition, p.AtlasWidth, p.AtlasHeight, p.AtlasDepth)
		}
		if p.NumSlices <= 0 || p.SliceDepth <= 0 {
			return fmt.Errorf("%w: num_slices=%d slice_depth=%d", ErrPrecondition, p.NumSlices, p.SliceDepth)
		}
		if p.NumSlices*p.SliceDepth != p.AtlasDepth {
			return fmt.Errorf("%w: %d slices of depth %d do not cover atlas depth %d",
				ErrPrecondition, p.NumSlices, p.SliceDepth, p.AtlasDepth)
		}
	}
	if p.UsesTriplane() {
		if p.PlaneWidth1 != 0 && (p.PlaneWidth1 != p.PlaneWidth0 || p.PlaneHeight1 != p.PlaneHeight0) {
			return fmt.Errorf("%w: plane 1 is %dx%d, plane 0 is %dx%d", ErrPrecondition,
				p.PlaneWidth1, p.PlaneHeight1, p.PlaneWidth0, p.PlaneHeight0)
		}
		if p.PlaneWidth2 != 0 && (p.PlaneWidth2 != p.PlaneWidth0 || p.PlaneHeight2 != p.PlaneHeight0) {
			return fmt.Errorf("%w: plane 2 is %dx%d, plane 0 is %dx%d", ErrPrecondition,
				p.PlaneWidth2, p.PlaneHeight2, p.PlaneWidth0, p.PlaneHeight0)
		}
	}
	if len(p.WorldspaceTOpengl) != 0 {
		if len(p.WorldspaceTOpengl) < 3 {
			return fmt.Errorf("%w: worldspace_T_opengl has %d rows", ErrPrecondition, len(p.WorldspaceTOpengl))
		}
		for i := 0; i < 3; i++ {
			if len(p.WorldspaceTOpengl[i]) < 3 {
				return fmt.Errorf("%w: worldspace_T_opengl row %d has %d columns",
					ErrPrecondition, i, len(p.WorldspaceTOpengl[i]))
			}
		}
	}
	return nil
}

// UsesSparseGrid reports whether the scene carries a sparse voxel atlas.
func (p *SceneParameters) UsesSparseGrid() bool {
	return p.VoxelSize > 0
}

// UsesTriplane reports whether the scene carries triplanes.
func (p *SceneParameters) UsesTriplane() bool {
	return p.VoxelSizeTriplane > 0 && p.PlaneWidth0 > 0 && p.PlaneHeight0 > 0
}

// BlockGridSize returns the number of macroblocks per axis.
func (p *SceneParameters) BlockGridSize() [3]int {
	return [3]int{
		ceilDiv(p.GridWidth, p.BlockSize),
		ceilDiv(p.GridHeight, p.BlockSize),
		ceilDiv(p.GridDepth, p.BlockSize),
	}
}

// OccupancyBase returns the resolution and voxel size the occupancy
// levels are derived from: the triplane resolution when triplanes are in
// use, the sparse grid otherwise.
func (p *SceneParameters) OccupancyBase() (width int, voxelSize float64) {
	if p.UsesTriplane() {
		return p.PlaneWidth0, p.VoxelSizeTriplane
	}
	return p.GridWidth, p.VoxelSize
}

// SliceChunkVoxels is the number of voxels carried by one atlas slice image.
func (p *SceneParameters) SliceChunkVoxels() int {
	return p.AtlasWidth * p.AtlasHeight * p.SliceDepth
}

// MinPosition returns the world-space minimum corner of the grid.
func (p *SceneParameters) MinPosition() mgl64.Vec3 {
	return mgl64.Vec3{p.MinX, p.MinY, p.MinZ}
}

// WorldTransform returns the 3x3 rotation from the camera convention into
// scene space. A missing matrix yields the identity.
func (p *SceneParameters) WorldTransform() mgl64.Mat3 {
	if len(p.WorldspaceTOpengl) < 3 {
		return mgl64.Ident3()
	}
	var m mgl64.Mat3
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			m.Set(row, col, p.WorldspaceTOpengl[row][col])
		}
	}
	return m
}
