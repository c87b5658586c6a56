package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
)

// DirSource reads files from a local directory.
type DirSource struct {
	Root string
}

// Open reads root/name.
func (d DirSource) Open(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(d.Root, filepath.FromSlash(name)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, name, d.Root)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return data, nil
}

func (d DirSource) String() string { return "dir:" + d.Root }

// HTTPSource serves files listed in a scene manifest: a JSON object at
// <base>/<scene>.json mapping file names to absolute or base-relative URLs.
type HTTPSource struct {
	base   *url.URL
	files  map[string]string
	client *http.Client
}

// NewHTTPSource fetches the manifest of scene from baseURL.
func NewHTTPSource(ctx context.Context, client *http.Client, baseURL, scene string) (*HTTPSource, error) {
	if client == nil {
		client = http.DefaultClient
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: base url: %v", ErrIO, err)
	}
	if base.Path == "" || base.Path[len(base.Path)-1] != '/' {
		base.Path += "/"
	}
	s := &HTTPSource{base: base, client: client}

	data, err := s.get(ctx, base.ResolveReference(&url.URL{Path: scene + ".json"}).String())
	if err != nil {
		return nil, fmt.Errorf("scene manifest: %w", err)
	}
	if err := json.Unmarshal(data, &s.files); err != nil {
		return nil, fmt.Errorf("%w: scene manifest: %v", ErrIO, err)
	}
	return s, nil
}

// Open downloads a file listed in the manifest.
func (s *HTTPSource) Open(ctx context.Context, name string) ([]byte, error) {
	ref, ok := s.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s not in manifest", ErrNotFound, name)
	}
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrIO, name, err)
	}
	return s.get(ctx, s.base.ResolveReference(u).String())
}

// Files returns the number of files the manifest lists.
func (s *HTTPSource) Files() int { return len(s.files) }

func (s *HTTPSource) String() string { return "http:" + s.base.String() }

func (s *HTTPSource) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, rawURL)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: %s: %s", ErrIO, rawURL, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrIO, rawURL, err)
	}
	return data, nil
}
