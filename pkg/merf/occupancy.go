package merf

import (
	"errors"
	"fmt"
)

// ErrNotConservative is returned by CheckConservative.
var ErrNotConservative = errors.New("occupancy hierarchy is not conservative")

// OccupancyLevelCount is the number of occupancy levels.
const OccupancyLevelCount = 5

// OccupancyBlockSizes lists the block size of each level, finest first.
var OccupancyBlockSizes = [OccupancyLevelCount]int{8, 16, 32, 64, 128}

// Occupancy voxel values.
const (
	OccupancyEmpty    = 0
	OccupancyOccupied = 255
)

// OccupancyGrid is one level of the hierarchy: a 1-channel volume whose
// voxels each cover BlockSize base voxels per axis.
type OccupancyGrid struct {
	BlockSize int
	VoxelSize float64
	*Volume
}

// Occupied reports whether block (x,y,z) is marked occupied.
func (g *OccupancyGrid) Occupied(x, y, z int) bool {
	return g.At(x, y, z, 0) != OccupancyEmpty
}

// OccupancyLevels holds the five levels, finest (block size 8) first.
type OccupancyLevels [OccupancyLevelCount]OccupancyGrid

// OccupancyResolution returns the per-axis resolution of a level built
// over base voxels.
func OccupancyResolution(base, blockSize int) int {
	return ceilDiv(base, blockSize)
}

// BuildOccupancy converts five mask images into occupancy levels. Mask i
// belongs to OccupancyBlockSizes[i], is res wide and res*res tall (depth
// slices stacked vertically) and is read from channel 1. Any nonzero
// value marks the block occupied. Masks are used as stored: no flip and no
// resampling.
func BuildOccupancy(p *SceneParameters, masks []*RawImage) (*OccupancyLevels, error) {
	if len(masks) != OccupancyLevelCount {
		return nil, fmt.Errorf("%w: expected %d occupancy masks, got %d",
			ErrPrecondition, OccupancyLevelCount, len(masks))
	}
	base, voxelSize := p.OccupancyBase()
	if base <= 0 || voxelSize <= 0 {
		return nil, fmt.Errorf("%w: occupancy base %d with voxel size %g", ErrPrecondition, base, voxelSize)
	}

	var levels OccupancyLevels
	for i, bs := range OccupancyBlockSizes {
		res := OccupancyResolution(base, bs)
		if err := masks[i].checkSize(OccupancyImage(bs), res, res*res); err != nil {
			return nil, err
		}
		vol := NewVolume(res, res, res, 1)
		src := masks[i].Pix
		for j := range vol.Data {
			if src[j*4+1] != 0 {
				vol.Data[j] = OccupancyOccupied
			}
		}
		levels[i] = OccupancyGrid{BlockSize: bs, VoxelSize: voxelSize * float64(bs), Volume: vol}
	}
	return &levels, nil
}

// OccupancyFromDensity derives the five levels from a fine 1-channel grid
// in which any nonzero voxel is occupied. Every occupied voxel marks all
// blocks within dilate voxels of it, so filtered lookups near a block
// border never fall into a block reported empty.
func OccupancyFromDensity(fine *Volume, baseVoxelSize float64, dilate int) *OccupancyLevels {
	var levels OccupancyLevels
	for i, bs := range OccupancyBlockSizes {
		levels[i] = OccupancyGrid{
			BlockSize: bs,
			VoxelSize: baseVoxelSize * float64(bs),
			Volume: NewVolume(
				OccupancyResolution(fine.Width, bs),
				OccupancyResolution(fine.Height, bs),
				OccupancyResolution(fine.Depth, bs),
				1,
			),
		}
	}

	for z := 0; z < fine.Depth; z++ {
		for y := 0; y < fine.Height; y++ {
			for x := 0; x < fine.Width; x++ {
				if fine.At(x, y, z, 0) == 0 {
					continue
				}
				for i := range levels {
					markBlocks(&levels[i], x, y, z, dilate)
				}
			}
		}
	}
	return &levels
}

func markBlocks(g *OccupancyGrid, x, y, z, dilate int) {
	lo := [3]int{x - dilate, y - dilate, z - dilate}
	hi := [3]int{x + dilate, y + dilate, z + dilate}
	size := g.Size()
	for a := 0; a < 3; a++ {
		lo[a] = clampInt(floorDiv(lo[a], g.BlockSize), 0, size[a]-1)
		hi[a] = clampInt(hi[a]/g.BlockSize, 0, size[a]-1)
	}
	for bz := lo[2]; bz <= hi[2]; bz++ {
		for by := lo[1]; by <= hi[1]; by++ {
			for bx := lo[0]; bx <= hi[0]; bx++ {
				g.Set(bx, by, bz, 0, OccupancyOccupied)
			}
		}
	}
}

// CheckConservative verifies that no occupied voxel is covered by an
// empty block. When fine is non-nil every occupied fine voxel is checked
// against every level; adjacent levels are always checked against each
// other.
func CheckConservative(fine *Volume, levels *OccupancyLevels) error {
	if fine != nil {
		for z := 0; z < fine.Depth; z++ {
			for y := 0; y < fine.Height; y++ {
				for x := 0; x < fine.Width; x++ {
					if fine.At(x, y, z, 0) == 0 {
						continue
					}
					for i := range levels {
						g := &levels[i]
						bx, by, bz := x/g.BlockSize, y/g.BlockSize, z/g.BlockSize
						if !g.inside(bx, by, bz) || !g.Occupied(bx, by, bz) {
							return fmt.Errorf("%w: voxel (%d,%d,%d) is occupied but block (%d,%d,%d) of level %d is empty",
								ErrNotConservative, x, y, z, bx, by, bz, g.BlockSize)
						}
					}
				}
			}
		}
	}

	for i := 0; i+1 < len(levels); i++ {
		finer, coarser := &levels[i], &levels[i+1]
		ratio := coarser.BlockSize / finer.BlockSize
		for z := 0; z < finer.Depth; z++ {
			for y := 0; y < finer.Height; y++ {
				for x := 0; x < finer.Width; x++ {
					if !finer.Occupied(x, y, z) {
						continue
					}
					cx, cy, cz := x/ratio, y/ratio, z/ratio
					if !coarser.inside(cx, cy, cz) || !coarser.Occupied(cx, cy, cz) {
						return fmt.Errorf("%w: block (%d,%d,%d) of level %d is occupied but block (%d,%d,%d) of level %d is empty",
							ErrNotConservative, x, y, z, finer.BlockSize, cx, cy, cz, coarser.BlockSize)
					}
				}
			}
		}
	}
	return nil
}

func (g *OccupancyGrid) inside(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < g.Width && y < g.Height && z < g.Depth
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
