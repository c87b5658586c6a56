// Package raymarch evaluates a baked MERF scene along camera rays. It is
// the CPU counterpart of the generated GLSL kernel and samples the same
// buffers with the same addressing rules.
package raymarch

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/merfbake/internal/scene"
	"github.com/Faultbox/merfbake/pkg/merf"
)

// DisplayMode selects what a ray reports.
type DisplayMode int

// Display modes. Values match the DISPLAY_* constants of the GLSL kernel.
const (
	DisplayNormal DisplayMode = iota
	DisplayDiffuse
	DisplayFeatures
	DisplayViewDependent
	DisplayCoarseGrid
)

var displayNames = [...]string{"normal", "diffuse", "features", "view_dependent", "coarse_grid"}

func (m DisplayMode) String() string {
	if m >= 0 && int(m) < len(displayNames) {
		return displayNames[m]
	}
	return fmt.Sprintf("DisplayMode(%d)", int(m))
}

// ParseDisplayMode parses a display mode name as printed by String.
func ParseDisplayMode(s string) (DisplayMode, error) {
	s = strings.ToLower(strings.ReplaceAll(s, "-", "_"))
	for i, name := range displayNames {
		if s == name {
			return DisplayMode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown display mode %q", s)
}

// Termination records why a ray stopped marching.
type Termination int

// Termination reasons.
const (
	TerminatedBounds Termination = iota
	TerminatedVisibility
	TerminatedStepBudget
)

func (t Termination) String() string {
	switch t {
	case TerminatedBounds:
		return "bounds"
	case TerminatedVisibility:
		return "visibility"
	case TerminatedStepBudget:
		return "step_budget"
	default:
		return fmt.Sprintf("Termination(%d)", int(t))
	}
}

// Options configures a Kernel.
type Options struct {
	StepMultiplier int // defaults to 1
	MaxSteps       int // 0 derives StepMultiplier * ceil(|grid size|)
	Near           float64

	// With both flags unset every representation of the scene is used.
	UseTriplane   bool
	UseSparseGrid bool

	LargerStepsWhenOccluded bool
	DisplayMode             DisplayMode

	// Trace, when set, is called once per marching step.
	Trace func(StepInfo)
}

// StepInfo describes one marching step.
type StepInfo struct {
	Step          int
	Quadrant      int
	T             float64    // contracted-space parameter at the sample
	Position      mgl64.Vec3 // contracted
	StepSize      float64    // world-space length of the step
	Alpha         float64
	Transmittance float64 // after compositing this step
	Skipped       bool    // the sample fell into empty space
}

// Result is the outcome of one ray.
type Result struct {
	Color         mgl64.Vec3
	Diffuse       mgl64.Vec3 // composited diffuse color over white
	Features      mgl64.Vec4
	Transmittance float64
	Steps         int
	Termination   Termination
	Hit           bool
}

// RenderState is the per-ray marching state.
type RenderState struct {
	Quadrants Quadrants
	Quadrant  int // index of the next quadrant to enter
	setup     quadrantSetup
	T         float64

	BlockExit     [merf.OccupancyLevelCount]float64
	Color         mgl64.Vec3
	Features      mgl64.Vec4
	Transmittance float64
	Step          int
}

// Kernel evaluates rays against an immutable scene and is safe for
// concurrent use.
type Kernel struct {
	scene *scene.Scene
	p     *merf.SceneParameters
	opts  Options

	minPos         mgl64.Vec3
	worldTransform mgl64.Mat3
	baseStep       float64
	maxSteps       int
}

// New prepares a kernel for s. Representations requested by opts but
// missing from the scene are disabled.
func New(s *scene.Scene, opts Options) *Kernel {
	p := s.Params
	if opts.StepMultiplier <= 0 {
		opts.StepMultiplier = 1
	}
	if !opts.UseTriplane && !opts.UseSparseGrid {
		opts.UseTriplane, opts.UseSparseGrid = true, true
	}
	opts.UseTriplane = opts.UseTriplane && s.Triplanes != nil
	opts.UseSparseGrid = opts.UseSparseGrid && s.Atlas != nil

	k := &Kernel{
		scene:          s,
		p:              p,
		opts:           opts,
		minPos:         p.MinPosition(),
		worldTransform: p.WorldTransform(),
	}

	var gridLen, voxel float64
	if opts.UseTriplane {
		gridLen = math.Hypot(float64(p.PlaneWidth0), float64(p.PlaneHeight0))
		voxel = p.VoxelSizeTriplane
	} else {
		gridLen = mgl64.Vec3{float64(p.GridWidth), float64(p.GridHeight), float64(p.GridDepth)}.Len()
		voxel = p.VoxelSize
	}
	k.baseStep = voxel / float64(opts.StepMultiplier)
	k.maxSteps = opts.MaxSteps
	if k.maxSteps <= 0 {
		k.maxSteps = opts.StepMultiplier * int(math.Ceil(gridLen))
	}
	return k
}

// MaxSteps returns the step budget of every ray.
func (k *Kernel) MaxSteps() int { return k.maxSteps }

// Options returns the effective options.
func (k *Kernel) Options() Options { return k.opts }

// Evaluate marches the ray origin + t*dir through the scene.
func (k *Kernel) Evaluate(origin, dir mgl64.Vec3) Result {
	dir = dir.Normalize()
	st := RenderState{Transmittance: 1}
	res := Result{Termination: TerminatedBounds}

	near := k.opts.Near
	st.Quadrants = FindTraversedQuadrants(origin, dir, near)
	if st.Quadrants.Count > 0 {
		setup, ok := setupQuadrant(origin, dir, near, lerp(near, st.Quadrants.Exits[0], 0.5))
		if ok {
			st.setup = setup
			st.Quadrant = 1
			res.Termination = k.march(&st, origin, dir)
		}
	}
	return k.finish(&st, res, dir)
}

func (k *Kernel) march(st *RenderState, origin, dir mgl64.Vec3) Termination {
	st.resetBlocks()
	var rgb, alphaBuf [4]float64
	for {
		if st.Step >= k.maxSteps {
			return TerminatedStepBudget
		}
		if st.Transmittance <= merf.TransmittanceEpsilon {
			return TerminatedVisibility
		}
		st.Step++

		stepSize := k.baseStep
		if k.opts.LargerStepsWhenOccluded {
			stepSize *= lerp(8, 1, math.Min(1, st.Transmittance/0.66))
		}

		if st.T > st.setup.tExit {
			q := &st.Quadrants
			zExit := st.setup.origin.Add(st.setup.direction.Mul(st.setup.tExit))
			if max3(absVec(zExit)) >= outerWall || st.Quadrant >= q.Count {
				return TerminatedBounds
			}
			tP := lerp(q.Exits[st.Quadrant-1], q.Exits[st.Quadrant], 0.1)
			tQ := lerp(q.Exits[st.Quadrant-1], q.Exits[st.Quadrant], 0.9)
			setup, ok := setupQuadrant(origin, dir, tP, tQ)
			if !ok {
				return TerminatedBounds
			}
			st.setup = setup
			st.T = setup.tEnter
			st.Quadrant++
			st.resetBlocks()
		}

		z := st.setup.origin.Add(st.setup.direction.Mul(st.T))
		invD := inverse(st.setup.direction)
		info := StepInfo{Step: st.Step, Quadrant: st.Quadrant - 1, T: st.T, Position: z}

		if k.skipEmpty(st, z, invD, stepSize) {
			info.Skipped = true
			info.Transmittance = st.Transmittance
			k.trace(info)
			continue
		}

		var atlasPos mgl64.Vec3
		density := 0.0
		if k.opts.UseSparseGrid {
			pos, idx, empty, tBlockExit := k.sparseLookup(st, z, invD)
			if empty {
				st.T = math.Max(st.T, tBlockExit) + 0.5*stepSize
				info.Skipped = true
				info.Transmittance = st.Transmittance
				k.trace(info)
				continue
			}
			if k.opts.DisplayMode == DisplayCoarseGrid {
				b := float64(k.p.BlockSize) + 1
				st.Color = mgl64.Vec3{
					idx[0] * b / float64(k.p.AtlasWidth),
					idx[1] * b / float64(k.p.AtlasHeight),
					idx[2] * b / float64(k.p.AtlasDepth),
				}
				st.Features = st.Color.Vec4(1)
				st.Transmittance = 0
				info.Transmittance = 0
				k.trace(info)
				continue
			}
			atlasPos = pos
			k.scene.Atlas.Density.Trilinear(atlasPos, alphaBuf[:1])
			density += merf.Denormalize(alphaBuf[0], merf.DensityMin, merf.DensityMax)
		}
		var planeUV [3][2]float64
		if k.opts.UseTriplane {
			tri := z.Sub(k.minPos).Mul(1 / k.p.VoxelSizeTriplane)
			planeUV = [3][2]float64{
				{tri[1] - 0.5, tri[2] - 0.5},
				{tri[0] - 0.5, tri[2] - 0.5},
				{tri[0] - 0.5, tri[1] - 0.5},
			}
			for pl := 0; pl < 3; pl++ {
				k.scene.Triplanes.Density.Bilinear(pl, planeUV[pl][0], planeUV[pl][1], alphaBuf[:1])
				density += merf.Denormalize(alphaBuf[0], merf.DensityMin, merf.DensityMax)
			}
		}

		tNext := math.Min(st.T+stepSize, st.setup.tExit)
		zNext := st.setup.origin.Add(st.setup.direction.Mul(tNext))
		stepWorld := InverseContract(zNext).Sub(InverseContract(z)).Len()
		info.StepSize = stepWorld

		alpha := merf.DensityToAlpha(merf.DensityActivation(density), stepWorld)
		info.Alpha = alpha
		if alpha > merf.AlphaEpsilon {
			var color mgl64.Vec3
			var feat mgl64.Vec4
			wantFeatures := k.opts.DisplayMode != DisplayDiffuse
			if k.opts.UseSparseGrid {
				k.scene.Atlas.RGB.Trilinear(atlasPos, rgb[:3])
				addDenormalized(color[:], rgb[:3])
				if wantFeatures {
					k.scene.Atlas.Features.Trilinear(atlasPos, rgb[:4])
					addDenormalized(feat[:], rgb[:4])
				}
			}
			if k.opts.UseTriplane {
				for pl := 0; pl < 3; pl++ {
					k.scene.Triplanes.RGB.Bilinear(pl, planeUV[pl][0], planeUV[pl][1], rgb[:3])
					addDenormalized(color[:], rgb[:3])
					if wantFeatures {
						k.scene.Triplanes.Features.Bilinear(pl, planeUV[pl][0], planeUV[pl][1], rgb[:4])
						addDenormalized(feat[:], rgb[:4])
					}
				}
			}
			w := st.Transmittance * alpha
			for c := 0; c < 3; c++ {
				st.Color[c] += w * merf.Sigmoid(color[c])
			}
			if wantFeatures {
				for c := 0; c < 4; c++ {
					st.Features[c] += w * merf.Sigmoid(feat[c])
				}
			}
			st.Transmittance *= 1 - alpha
		}
		st.T += stepSize
		info.Transmittance = st.Transmittance
		k.trace(info)
	}
}

// skipEmpty queries the occupancy levels coarsest first and advances T
// past the first empty block found.
func (k *Kernel) skipEmpty(st *RenderState, z, invD mgl64.Vec3, stepSize float64) bool {
	levels := k.scene.Occupancy
	var occ [1]float64
	for level := merf.OccupancyLevelCount - 1; level >= 0; level-- {
		if !(st.T > st.BlockExit[level]) {
			continue
		}
		g := &levels[level]
		blockMin := floorVec(z.Sub(k.minPos).Mul(1 / g.VoxelSize))
		g.Nearest(blockMin, occ[:])
		lo := blockMin.Mul(g.VoxelSize).Add(k.minPos)
		hi := blockMin.Add(mgl64.Vec3{1, 1, 1}).Mul(g.VoxelSize).Add(k.minPos)
		_, tExit := rayAABB(lo, hi, st.setup.origin, invD)
		st.BlockExit[level] = tExit
		if occ[0] == 0 {
			st.T = math.Max(st.T, tExit) + 0.5*stepSize
			return true
		}
	}
	return false
}

// sparseLookup resolves z through the macroblock index. It returns the
// atlas coordinate in texel-center units and the block's atlas index, or
// reports an empty macroblock together with its contracted-space exit.
func (k *Kernel) sparseLookup(st *RenderState, z, invD mgl64.Vec3) (pos, idx mgl64.Vec3, empty bool, tExit float64) {
	p := k.p
	b := float64(p.BlockSize)
	sparse := z.Sub(k.minPos).Mul(1 / p.VoxelSize).Sub(mgl64.Vec3{0.5, 0.5, 0.5})
	block := floorVec(sparse.Mul(1 / b))
	blockMin := block.Mul(b)

	var texel [3]float64
	k.scene.Atlas.Index.Nearest(block, texel[:])
	idx = mgl64.Vec3{255 * texel[0], 255 * texel[1], 255 * texel[2]}
	if idx[0] > 254 {
		lo := blockMin.Add(mgl64.Vec3{0.5, 0.5, 0.5}).Mul(p.VoxelSize).Add(k.minPos)
		hi := lo.Add(mgl64.Vec3{b, b, b}.Mul(p.VoxelSize))
		_, tExit = rayAABB(lo, hi, st.setup.origin, invD)
		return pos, idx, true, tExit
	}
	for a := 0; a < 3; a++ {
		pos[a] = clamp(sparse[a]-blockMin[a], 0, b) + idx[a]*(b+1)
	}
	return pos, idx, false, 0
}

func (k *Kernel) finish(st *RenderState, res Result, dir mgl64.Vec3) Result {
	T := st.Transmittance
	white := mgl64.Vec3{T, T, T}
	res.Diffuse = st.Color.Add(white)
	res.Features = st.Features
	res.Transmittance = T
	res.Steps = st.Step
	res.Hit = T < 1

	color := st.Color
	switch k.opts.DisplayMode {
	case DisplayViewDependent:
		color = mgl64.Vec3{}
	case DisplayFeatures:
		color = st.Features.Vec3()
	}
	color = color.Add(white)
	if res.Hit && (k.opts.DisplayMode == DisplayNormal || k.opts.DisplayMode == DisplayViewDependent) {
		viewDir := k.worldTransform.Mul3x1(dir).Normalize()
		color = color.Add(k.scene.Network.Evaluate(color, st.Features, viewDir))
	}
	res.Color = color
	return res
}

func (k *Kernel) trace(info StepInfo) {
	if k.opts.Trace != nil {
		k.opts.Trace(info)
	}
}

func (st *RenderState) resetBlocks() {
	for i := range st.BlockExit {
		st.BlockExit[i] = math.Inf(-1)
	}
}

func addDenormalized(dst, src []float64) {
	for c := range src {
		dst[c] += merf.Denormalize(src[c], merf.FeatureMin, merf.FeatureMax)
	}
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
