package importer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/Faultbox/merfbake/internal/config"
	"github.com/Faultbox/merfbake/internal/scene"
	"github.com/Faultbox/merfbake/internal/shadergen"
)

func TestOpenExportDir(t *testing.T) {
	dir, _ := writeScene(t)
	s, k, err := Open(context.Background(), config.ImportConfig{}, dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if k != nil {
		t.Error("imported scene should come without a kernel")
	}
	if s.Name != filepath.Base(dir) {
		t.Errorf("name = %q, want %q", s.Name, filepath.Base(dir))
	}
}

func TestOpenBundle(t *testing.T) {
	dir, _ := writeScene(t)
	s, _, err := Open(context.Background(), config.ImportConfig{}, dir)
	if err != nil {
		t.Fatal(err)
	}
	k, err := shadergen.Generate(s.Params, s.Network, shadergen.DefaultOptions(s.Params))
	if err != nil {
		t.Fatal(err)
	}
	out := t.TempDir()
	if _, err := scene.WriteBundle(out, s, k); err != nil {
		t.Fatal(err)
	}

	got, gotKernel, err := Open(context.Background(), config.ImportConfig{}, out)
	if err != nil {
		t.Fatalf("Open bundle: %v", err)
	}
	if gotKernel == nil || gotKernel.Fragment != k.Fragment {
		t.Error("bundle kernel not returned")
	}
	if got.Name != s.Name {
		t.Errorf("name = %q, want %q", got.Name, s.Name)
	}
}

func TestOpenRemoteWithCache(t *testing.T) {
	dir, _ := writeScene(t)
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.URL.Path == "/lego.json" {
			entries, _ := os.ReadDir(dir)
			var pairs []string
			for _, e := range entries {
				pairs = append(pairs, `"`+e.Name()+`": "files/`+e.Name()+`"`)
			}
			w.Write([]byte("{" + strings.Join(pairs, ",") + "}"))
			return
		}
		http.ServeFile(w, r, filepath.Join(dir, strings.TrimPrefix(r.URL.Path, "/files/")))
	}))
	defer srv.Close()

	cfg := config.ImportConfig{BaseURL: srv.URL + "/", CacheDir: t.TempDir()}
	s, _, err := Open(context.Background(), cfg, "lego")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Name != "lego" {
		t.Errorf("name = %q", s.Name)
	}
	first := requests.Load()

	if _, _, err := Open(context.Background(), cfg, "lego"); err != nil {
		t.Fatalf("second Open: %v", err)
	}
	// Only the manifest is fetched again; every file comes from the cache.
	if n := requests.Load(); n != first+1 {
		t.Errorf("%d requests after cached open, want %d", n, first+1)
	}
	if _, err := os.Stat(filepath.Join(cfg.CacheDir, "lego", "scene_params.json")); err != nil {
		t.Errorf("cache layout: %v", err)
	}
}
