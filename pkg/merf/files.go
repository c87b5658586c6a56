package merf

import "fmt"

// Source file names of a MERF export. Image names carry no extension.
const (
	ParamsFile      = "scene_params.json"
	AtlasIndexImage = "atlas_indices"
)

// OccupancyImage names the mask of the level with the given block size.
func OccupancyImage(blockSize int) string { return fmt.Sprintf("occupancy_grid_%d", blockSize) }

// RGBAImage names atlas slice i of density and color.
func RGBAImage(i int) string { return fmt.Sprintf("rgba_%03d", i) }

// FeatureImage names atlas slice i of features.
func FeatureImage(i int) string { return fmt.Sprintf("feature_%03d", i) }

// PlaneRGBDensityImage names the color and density image of plane i.
func PlaneRGBDensityImage(i int) string { return fmt.Sprintf("plane_rgb_and_density_%d", i) }

// PlaneFeaturesImage names the feature image of plane i.
func PlaneFeaturesImage(i int) string { return fmt.Sprintf("plane_features_%d", i) }

// SourceImages lists every image a scene with these parameters needs.
func (p *SceneParameters) SourceImages() []string {
	var names []string
	for _, bs := range OccupancyBlockSizes {
		names = append(names, OccupancyImage(bs))
	}
	if p.UsesTriplane() {
		for i := 0; i < 3; i++ {
			names = append(names, PlaneRGBDensityImage(i), PlaneFeaturesImage(i))
		}
	}
	if p.UsesSparseGrid() {
		names = append(names, AtlasIndexImage)
		for i := 0; i < p.NumSlices; i++ {
			names = append(names, RGBAImage(i), FeatureImage(i))
		}
	}
	return names
}
