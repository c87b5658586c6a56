// Package importer turns the files of a MERF export into a Scene. Every
// derived buffer is built concurrently and the import is all-or-nothing.
package importer

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/merfbake/internal/assets"
	"github.com/Faultbox/merfbake/internal/imagecodec"
	"github.com/Faultbox/merfbake/internal/logger"
	"github.com/Faultbox/merfbake/internal/scene"
	"github.com/Faultbox/merfbake/pkg/merf"
)

// Options tunes the import.
type Options struct {
	// ValidateOccupancy checks that coarser occupancy levels cover finer
	// ones and fails the import otherwise.
	ValidateOccupancy bool
}

// Importer loads scenes through an asset manager.
type Importer struct {
	assets *assets.Manager
	opts   Options
}

// New creates an importer.
func New(m *assets.Manager, opts Options) *Importer {
	return &Importer{assets: m, opts: opts}
}

// ImageFile returns the file name of a source image for the scene's format.
func ImageFile(p *merf.SceneParameters, image string) string {
	format := p.Format
	if format == "" {
		format = "png"
	}
	return image + "." + format
}

// Import fetches, decodes and assembles the named scene.
func (im *Importer) Import(ctx context.Context, name string) (*scene.Scene, error) {
	done := logger.Stage(name, "fetch")
	data, err := im.assets.Load(ctx, merf.ParamsFile)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", merf.ParamsFile, err)
	}
	p, err := merf.ParseSceneParameters(data)
	if err != nil {
		return nil, err
	}

	imageNames := p.SourceImages()
	files := make([]string, len(imageNames))
	for i, n := range imageNames {
		files[i] = ImageFile(p, n)
	}
	raw, err := im.assets.LoadAll(ctx, files)
	if err != nil {
		return nil, err
	}
	done(zap.Int("files", len(files)))

	images := make([]*merf.RawImage, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := imagecodec.Decode(file, raw[file])
			if err != nil {
				return err
			}
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	byName := make(map[string]*merf.RawImage, len(images))
	for i, n := range imageNames {
		byName[n] = images[i]
	}
	return Build(ctx, name, p, byName, im.opts)
}

// Build assembles a scene from decoded images keyed by image name. The
// first failing stage cancels the rest and no scene is returned.
func Build(ctx context.Context, name string, p *merf.SceneParameters, images map[string]*merf.RawImage, opts Options) (*scene.Scene, error) {
	s := &scene.Scene{Name: name, Params: p}
	g, ctx := errgroup.WithContext(ctx)
	stage := func(stageName string, fn func() error) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			done := logger.Stage(name, stageName)
			if err := fn(); err != nil {
				return fmt.Errorf("%s: %w", stageName, err)
			}
			done()
			return nil
		})
	}

	var atlas *merf.SparseAtlas
	var index *merf.Volume
	if p.UsesTriplane() {
		stage("triplanes", func() (err error) {
			var rgbd, feat []*merf.RawImage
			for i := 0; i < 3; i++ {
				rgbd = append(rgbd, images[merf.PlaneRGBDensityImage(i)])
				feat = append(feat, images[merf.PlaneFeaturesImage(i)])
			}
			s.Triplanes, err = merf.AssembleTriplanes(p, rgbd, feat)
			return err
		})
	}
	if p.UsesSparseGrid() {
		stage("atlas", func() (err error) {
			rgba := make([]*merf.RawImage, p.NumSlices)
			feat := make([]*merf.RawImage, p.NumSlices)
			for i := range rgba {
				rgba[i] = images[merf.RGBAImage(i)]
				feat[i] = images[merf.FeatureImage(i)]
			}
			atlas, err = merf.AssembleAtlas(p, rgba, feat)
			return err
		})
		stage("atlas index", func() (err error) {
			index, err = merf.AssembleAtlasIndex(p, images[merf.AtlasIndexImage])
			return err
		})
	}
	stage("occupancy", func() (err error) {
		masks := make([]*merf.RawImage, merf.OccupancyLevelCount)
		for i, bs := range merf.OccupancyBlockSizes {
			masks[i] = images[merf.OccupancyImage(bs)]
		}
		s.Occupancy, err = merf.BuildOccupancy(p, masks)
		if err != nil || !opts.ValidateOccupancy {
			return err
		}
		if err := merf.CheckConservative(nil, s.Occupancy); err != nil {
			logger.Error("occupancy contract violated", zap.String("scene", name), zap.Error(err))
			return err
		}
		return nil
	})
	stage("network", func() (err error) {
		s.Network, err = merf.PackNetwork(p)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("importing %s: %w", name, err)
	}
	if atlas != nil {
		atlas.Index = index
		s.Atlas = atlas
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	st := s.Stats()
	logger.Info("scene ready",
		zap.String("scene", name),
		zap.Int("volumes", st.Volumes),
		zap.Int("volume_bytes", st.VolumeBytes),
		zap.Int("weight_bytes", st.WeightBytes))
	return s, nil
}
