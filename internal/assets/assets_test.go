package assets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
)

type countingServer struct {
	*httptest.Server
	mu   sync.Mutex
	hits map[string]int
}

func newCountingServer(t *testing.T, files map[string]string) *countingServer {
	t.Helper()
	cs := &countingServer{hits: map[string]int{}}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.mu.Lock()
		cs.hits[r.URL.Path]++
		cs.mu.Unlock()
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(cs.Close)
	return cs
}

func (cs *countingServer) count(path string) int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.hits[path]
}

func TestHTTPSourceAtMostOnce(t *testing.T) {
	srv := newCountingServer(t, map[string]string{
		"/scenes/garden.json": `{"a.png": "data/a.png", "b.png": "/abs/b.png"}`,
		"/scenes/data/a.png":  "AAAA",
		"/abs/b.png":          "BB",
	})
	ctx := context.Background()
	src, err := NewHTTPSource(ctx, srv.Client(), srv.URL+"/scenes", "garden")
	if err != nil {
		t.Fatalf("NewHTTPSource: %v", err)
	}
	if src.Files() != 2 {
		t.Fatalf("manifest lists %d files, want 2", src.Files())
	}

	dir := t.TempDir()
	m := NewManager(dir)
	m.AddSource(src)

	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			files, err := m.LoadAll(ctx, []string{"a.png", "b.png", "a.png"})
			if err != nil || string(files["a.png"]) != "AAAA" || string(files["b.png"]) != "BB" {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()
	if failures.Load() != 0 {
		t.Fatalf("%d concurrent loads failed", failures.Load())
	}
	if n := srv.count("/scenes/data/a.png"); n != 1 {
		t.Errorf("a.png fetched %d times, want 1", n)
	}
	if n := srv.count("/abs/b.png"); n != 1 {
		t.Errorf("b.png fetched %d times, want 1", n)
	}

	// A fresh manager over the same disk cache never contacts the host.
	m2 := NewManager(dir)
	m2.AddSource(src)
	data, err := m2.Load(ctx, "a.png")
	if err != nil || string(data) != "AAAA" {
		t.Fatalf("cached load = %q, %v", data, err)
	}
	if n := srv.count("/scenes/data/a.png"); n != 1 {
		t.Errorf("a.png fetched %d times after restart, want 1", n)
	}
}

func TestHTTPSourceErrors(t *testing.T) {
	srv := newCountingServer(t, map[string]string{
		"/s.json": `{"gone.png": "gone.png"}`,
		"/bad.json": `not json`,
	})
	ctx := context.Background()

	if _, err := NewHTTPSource(ctx, srv.Client(), srv.URL, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing manifest: err = %v, want ErrNotFound", err)
	}
	if _, err := NewHTTPSource(ctx, srv.Client(), srv.URL, "bad"); !errors.Is(err, ErrIO) {
		t.Errorf("bad manifest: err = %v, want ErrIO", err)
	}

	src, err := NewHTTPSource(ctx, srv.Client(), srv.URL, "s")
	if err != nil {
		t.Fatalf("NewHTTPSource: %v", err)
	}
	m := NewManager("")
	m.AddSource(src)
	if _, err := m.Load(ctx, "gone.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("404 file: err = %v, want ErrNotFound", err)
	}
	if _, err := m.Load(ctx, "unlisted.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unlisted file: err = %v, want ErrNotFound", err)
	}
}

func TestDirSourcePriority(t *testing.T) {
	low, high := t.TempDir(), t.TempDir()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(os.WriteFile(filepath.Join(low, "x"), []byte("low"), 0644))
	must(os.WriteFile(filepath.Join(low, "y"), []byte("only-low"), 0644))
	must(os.WriteFile(filepath.Join(high, "x"), []byte("high"), 0644))

	m := NewManager("")
	m.AddSource(DirSource{Root: low})
	m.AddSource(DirSource{Root: high})

	tests := []struct {
		name string
		want string
	}{
		{"x", "high"},
		{"y", "only-low"},
	}
	for _, tt := range tests {
		got, err := m.Load(context.Background(), tt.name)
		if err != nil {
			t.Fatalf("Load(%s): %v", tt.name, err)
		}
		if string(got) != tt.want {
			t.Errorf("Load(%s) = %q, want %q", tt.name, got, tt.want)
		}
	}

	// Second load is served from memory.
	if _, err := m.Load(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	if m.Fetches() != 2 {
		t.Errorf("fetches = %d, want 2", m.Fetches())
	}
	hits, _ := m.cache.Stats()
	if hits == 0 {
		t.Error("expected a cache hit")
	}

	if _, err := m.Load(context.Background(), "z"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing file: err = %v, want ErrNotFound", err)
	}
}

func TestLoadAllCancelsOnError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ok"), []byte("1"), 0644); err != nil {
		t.Fatal(err)
	}
	m := NewManager("")
	m.AddSource(DirSource{Root: dir})
	files, err := m.LoadAll(context.Background(), []string{"ok", "missing"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if files != nil {
		t.Error("partial result returned")
	}
}
