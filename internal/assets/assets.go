// Package assets fetches scene source files from a directory or an HTTP
// host and keeps them in a memory and disk cache.
package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Faultbox/merfbake/internal/logger"
)

// Errors returned by sources and the manager. Failed fetches are not retried.
var (
	ErrIO       = errors.New("asset i/o failure")
	ErrNotFound = errors.New("asset not found")
)

// Source provides the files of one scene by name.
type Source interface {
	Open(ctx context.Context, name string) ([]byte, error)
	String() string
}

// Manager loads files from its sources, fetching each at most once.
type Manager struct {
	sources []Source
	cache   *Cache
	diskDir string
	group   singleflight.Group
	mu      sync.RWMutex

	fetches int
}

// NewManager creates a manager. A non-empty diskDir persists fetched files
// there and serves later loads from it.
func NewManager(diskDir string) *Manager {
	return &Manager{
		cache:   NewCache(),
		diskDir: diskDir,
	}
}

// AddSource adds a source. Sources are searched in reverse order (last
// added = highest priority).
func (m *Manager) AddSource(src Source) {
	m.mu.Lock()
	m.sources = append(m.sources, src)
	m.mu.Unlock()
}

// Load returns the named file. Concurrent loads of the same name share a
// single fetch.
func (m *Manager) Load(ctx context.Context, name string) ([]byte, error) {
	if data, ok := m.cache.Get(name); ok {
		return data, nil
	}
	v, err, _ := m.group.Do(name, func() (any, error) {
		if data, ok := m.cache.Get(name); ok {
			return data, nil
		}
		data, err := m.fetch(ctx, name)
		if err != nil {
			return nil, err
		}
		m.cache.Set(name, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// LoadAll loads every name in parallel. The first failure cancels the
// remaining fetches.
func (m *Manager) LoadAll(ctx context.Context, names []string) (map[string][]byte, error) {
	out := make([][]byte, len(names))
	g, ctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			data, err := m.Load(ctx, name)
			if err != nil {
				return err
			}
			out[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	files := make(map[string][]byte, len(names))
	for i, name := range names {
		files[name] = out[i]
	}
	return files, nil
}

// Fetches returns how many files were fetched from disk cache or sources.
func (m *Manager) Fetches() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fetches
}

func (m *Manager) fetch(ctx context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	m.fetches++
	sources := append([]Source(nil), m.sources...)
	m.mu.Unlock()

	if m.diskDir != "" {
		if data, err := os.ReadFile(filepath.Join(m.diskDir, name)); err == nil {
			logger.Debug("cache hit", zap.String("file", name))
			return data, nil
		}
	}

	for i := len(sources) - 1; i >= 0; i-- {
		data, err := sources[i].Open(ctx, name)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		logger.Debug("fetched", zap.String("file", name), zap.Stringer("source", sources[i]), zap.Int("bytes", len(data)))
		m.persist(name, data)
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

func (m *Manager) persist(name string, data []byte) {
	if m.diskDir == "" {
		return
	}
	path := filepath.Join(m.diskDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		logger.Warn("cache dir", zap.Error(err))
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		logger.Warn("cache write", zap.String("file", name), zap.Error(err))
	}
}

// Close drops the memory cache.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources = nil
	m.cache.Clear()
}

// Cache is a simple in-memory cache for loaded assets.
type Cache struct {
	data map[string][]byte
	mu   sync.RWMutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
