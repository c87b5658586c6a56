package synth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/merfbake/internal/imagecodec"
	"github.com/Faultbox/merfbake/pkg/merf"
)

// WriteDir writes scene_params.json and every image as PNG into dir.
func (s *Source) WriteDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	params, err := json.MarshalIndent(s.Params, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding scene parameters: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, merf.ParamsFile), params, 0644); err != nil {
		return err
	}

	var g errgroup.Group
	g.SetLimit(8)
	for name, img := range s.Images {
		g.Go(func() error {
			f, err := os.Create(filepath.Join(dir, name+".png"))
			if err != nil {
				return err
			}
			if err := imagecodec.EncodePNG(f, img); err != nil {
				f.Close()
				return fmt.Errorf("encoding %s: %w", name, err)
			}
			return f.Close()
		})
	}
	return g.Wait()
}
