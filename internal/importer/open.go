package importer

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/merfbake/internal/assets"
	"github.com/Faultbox/merfbake/internal/config"
	"github.com/Faultbox/merfbake/internal/logger"
	"github.com/Faultbox/merfbake/internal/scene"
	"github.com/Faultbox/merfbake/internal/shadergen"
)

// Open loads target as a baked bundle when it is a directory holding a
// bundle manifest, and imports it as an exported scene otherwise. With a
// base URL the scene is fetched from <base>/<target>.json, else target is
// a local export directory. The kernel is nil for imported scenes.
func Open(ctx context.Context, cfg config.ImportConfig, target string) (*scene.Scene, *shadergen.Kernel, error) {
	if _, err := os.Stat(filepath.Join(target, scene.ManifestFile)); err == nil {
		logger.Info("reading bundle", zap.String("dir", target))
		return scene.ReadBundle(target)
	}

	name := filepath.Base(filepath.Clean(target))
	if cfg.BaseURL != "" {
		name = target
	}
	cacheDir := ""
	if cfg.CacheDir != "" {
		// Every export uses the same file names.
		cacheDir = filepath.Join(cfg.CacheDir, name)
	}
	m := assets.NewManager(cacheDir)
	defer m.Close()
	if cfg.BaseURL != "" {
		src, err := assets.NewHTTPSource(ctx, &http.Client{Timeout: 5 * time.Minute}, cfg.BaseURL, target)
		if err != nil {
			return nil, nil, fmt.Errorf("opening %s: %w", target, err)
		}
		m.AddSource(src)
	} else {
		m.AddSource(assets.DirSource{Root: target})
	}

	s, err := New(m, Options{ValidateOccupancy: cfg.ValidateOccupancy}).Import(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	return s, nil, nil
}
