package shadergen

import "fmt"

// SlotKind is the GLSL type of a kernel input slot.
type SlotKind int

// Slot kinds.
const (
	KindSampler3D SlotKind = iota
	KindSampler2DArray
	KindSampler2D
	KindFloat
	KindInt
	KindVec2
	KindVec3
	KindVec4Array
	KindMat3
	KindMat4
)

// GLSL returns the GLSL type name.
func (k SlotKind) GLSL() string {
	switch k {
	case KindSampler3D:
		return "sampler3D"
	case KindSampler2DArray:
		return "sampler2DArray"
	case KindSampler2D:
		return "sampler2D"
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindVec2:
		return "vec2"
	case KindVec3:
		return "vec3"
	case KindVec4Array:
		return "vec4"
	case KindMat3:
		return "mat3"
	case KindMat4:
		return "mat4"
	default:
		return fmt.Sprintf("SlotKind(%d)", int(k))
	}
}

// IsSampler reports whether the slot binds a texture unit.
func (k SlotKind) IsSampler() bool {
	return k == KindSampler3D || k == KindSampler2DArray || k == KindSampler2D
}

// Feature flags guarding optional slots.
const (
	FeatureTriplane   = "USE_TRIPLANE"
	FeatureSparseGrid = "USE_SPARSE_GRID"
	FeatureLargeSteps = "LARGER_STEPS_WHEN_OCCLUDED"
)

// Slot is a named kernel input. Feature names the define that must be set
// for the slot to exist; empty means always present. ArrayLen names the
// constant holding the length of array slots.
type Slot struct {
	Name     string
	Kind     SlotKind
	Feature  string
	ArrayLen string
	Stage    Stage
}

// Stage is the shader stage declaring a slot.
type Stage int

// Shader stages.
const (
	StageFragment Stage = iota
	StageVertex
)

// Slot names shared by the kernel generator and the GPU binder.
const (
	SlotInvViewProj    = "uInvViewProj"
	SlotCameraPosition = "uCameraPosition"
	SlotNear           = "uNear"
	SlotWorldTransform = "uWorldTransform"
	SlotDisplayMode    = "uDisplayMode"
	SlotMinPosition    = "uMinPosition"
	SlotStepMult       = "uStepMult"

	SlotPlaneRgb          = "uPlaneRgb"
	SlotPlaneDensity      = "uPlaneDensity"
	SlotPlaneFeatures     = "uPlaneFeatures"
	SlotPlaneSize         = "uPlaneSize"
	SlotVoxelSizeTriplane = "uVoxelSizeTriplane"

	SlotSparseGridDensity  = "uSparseGridDensity"
	SlotSparseGridRgb      = "uSparseGridRgb"
	SlotSparseGridFeatures = "uSparseGridFeatures"
	SlotSparseGridIndex    = "uSparseGridIndex"
	SlotBlockSize          = "uBlockSize"
	SlotVoxelSize          = "uVoxelSize"
	SlotGridSize           = "uGridSize"
	SlotAtlasSize          = "uAtlasSize"
)

// SlotOccupancyGrid names the occupancy volume of level i (block size 8<<i).
func SlotOccupancyGrid(i int) string { return fmt.Sprintf("uOccupancyGrid%d", i) }

// SlotVoxelSizeOccupancy names the voxel size of occupancy level i.
func SlotVoxelSizeOccupancy(i int) string { return fmt.Sprintf("uVoxelSizeOccupancy%d", i) }

// SlotGridSizeOccupancy names the resolution of occupancy level i.
func SlotGridSizeOccupancy(i int) string { return fmt.Sprintf("uGridSizeOccupancy%d", i) }

// SlotWeights names the packed weight texture of network layer i.
func SlotWeights(i int) string { return fmt.Sprintf("uWeights%d", i) }

// SlotBias names the bias vector array of network layer i.
func SlotBias(i int) string { return fmt.Sprintf("uBias%d", i) }

// Slots is the complete binding table, in texture unit order for samplers.
var Slots = buildSlots()

func buildSlots() []Slot {
	slots := []Slot{
		{Name: SlotInvViewProj, Kind: KindMat4, Stage: StageVertex},
		{Name: SlotCameraPosition, Kind: KindVec3},
		{Name: SlotNear, Kind: KindFloat},
		{Name: SlotWorldTransform, Kind: KindMat3},
		{Name: SlotDisplayMode, Kind: KindInt},
		{Name: SlotMinPosition, Kind: KindVec3},
		{Name: SlotStepMult, Kind: KindInt},
		{Name: SlotGridSize, Kind: KindVec3},
		{Name: SlotVoxelSize, Kind: KindFloat},
	}
	for i := 0; i < 5; i++ {
		slots = append(slots,
			Slot{Name: SlotOccupancyGrid(i), Kind: KindSampler3D},
			Slot{Name: SlotVoxelSizeOccupancy(i), Kind: KindFloat},
			Slot{Name: SlotGridSizeOccupancy(i), Kind: KindVec3},
		)
	}
	slots = append(slots,
		Slot{Name: SlotSparseGridDensity, Kind: KindSampler3D, Feature: FeatureSparseGrid},
		Slot{Name: SlotSparseGridRgb, Kind: KindSampler3D, Feature: FeatureSparseGrid},
		Slot{Name: SlotSparseGridFeatures, Kind: KindSampler3D, Feature: FeatureSparseGrid},
		Slot{Name: SlotSparseGridIndex, Kind: KindSampler3D, Feature: FeatureSparseGrid},
		Slot{Name: SlotBlockSize, Kind: KindFloat, Feature: FeatureSparseGrid},
		Slot{Name: SlotAtlasSize, Kind: KindVec3, Feature: FeatureSparseGrid},

		Slot{Name: SlotPlaneRgb, Kind: KindSampler2DArray, Feature: FeatureTriplane},
		Slot{Name: SlotPlaneDensity, Kind: KindSampler2DArray, Feature: FeatureTriplane},
		Slot{Name: SlotPlaneFeatures, Kind: KindSampler2DArray, Feature: FeatureTriplane},
		Slot{Name: SlotPlaneSize, Kind: KindVec2, Feature: FeatureTriplane},
		Slot{Name: SlotVoxelSizeTriplane, Kind: KindFloat, Feature: FeatureTriplane},
	)
	for i := 0; i < 3; i++ {
		slots = append(slots,
			Slot{Name: SlotWeights(i), Kind: KindSampler2D},
			Slot{Name: SlotBias(i), Kind: KindVec4Array, ArrayLen: biasLenConst(i)},
		)
	}
	return slots
}

// LookupSlot returns the slot with the given name.
func LookupSlot(name string) (Slot, bool) {
	for _, s := range Slots {
		if s.Name == name {
			return s, true
		}
	}
	return Slot{}, false
}

// TextureUnit returns the texture unit assigned to a sampler slot, or -1.
func TextureUnit(name string) int {
	unit := 0
	for _, s := range Slots {
		if !s.Kind.IsSampler() {
			continue
		}
		if s.Name == name {
			return unit
		}
		unit++
	}
	return -1
}

func biasLenConst(layer int) string {
	return fmt.Sprintf("BIAS_VEC4S_%d", layer)
}
