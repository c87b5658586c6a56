package scene

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/merfbake/internal/shadergen"
	"github.com/Faultbox/merfbake/pkg/merf"
)

// Bundle file names.
const (
	ManifestFile = "bundle.yaml"
	ParamsFile   = merf.ParamsFile
	VertexFile   = "kernel.vert.glsl"
	FragmentFile = "kernel.frag.glsl"
)

// Manifest describes a baked bundle on disk.
type Manifest struct {
	Name     string               `yaml:"name"`
	Params   string               `yaml:"params"`
	Kernel   KernelFiles          `yaml:"kernel"`
	Buffers  []Buffer             `yaml:"buffers"`
	Uniforms map[string][]float64 `yaml:"uniforms"`
}

// KernelFiles names the generated shader sources.
type KernelFiles struct {
	Vertex   string `yaml:"vertex"`
	Fragment string `yaml:"fragment"`
}

// Buffer is one binary payload bound to a slot.
type Buffer struct {
	Slot   string `yaml:"slot"`
	File   string `yaml:"file"`
	Format string `yaml:"format"`
	Size   []int  `yaml:"size,flow"`
}

// VolumeFormat names the texel layout of a volume with the given channel count.
func VolumeFormat(channels int) string {
	switch channels {
	case 1:
		return "r8"
	case 2:
		return "rg8"
	case 3:
		return "rgb8"
	default:
		return "rgba8"
	}
}

// WeightFormat is the texel layout of packed network weights.
const WeightFormat = "rgba32f"

// WriteBundle writes the scene buffers, its parameters, the kernel and the
// manifest into dir. Buffers are written concurrently.
func WriteBundle(dir string, s *Scene, k *shadergen.Kernel) (*Manifest, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating bundle dir: %w", err)
	}

	m := &Manifest{
		Name:     s.Name,
		Params:   ParamsFile,
		Uniforms: s.Uniforms(),
	}
	payloads := map[string][]byte{}

	vols := s.Volumes()
	for _, slot := range sortedKeys(vols) {
		v := vols[slot]
		b := Buffer{Slot: slot, File: slot + ".bin", Format: VolumeFormat(v.Channels),
			Size: []int{v.Width, v.Height, v.Depth}}
		m.Buffers = append(m.Buffers, b)
		payloads[b.File] = v.Data
	}
	weights := s.WeightBuffers()
	for _, slot := range sortedKeys(weights) {
		l := weights[slot]
		var buf bytes.Buffer
		if err := binary.Write(&buf, binary.LittleEndian, l.Packed); err != nil {
			return nil, fmt.Errorf("encoding %s: %w", slot, err)
		}
		b := Buffer{Slot: slot, File: slot + ".bin", Format: WeightFormat,
			Size: []int{l.PaddedOut(), l.PaddedIn() / 4}}
		m.Buffers = append(m.Buffers, b)
		payloads[b.File] = buf.Bytes()
	}

	params, err := json.MarshalIndent(s.Params, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding scene parameters: %w", err)
	}
	payloads[ParamsFile] = params
	if k != nil {
		m.Kernel = KernelFiles{Vertex: VertexFile, Fragment: FragmentFile}
		payloads[VertexFile] = []byte(k.Vertex)
		payloads[FragmentFile] = []byte(k.Fragment)
	}

	var g errgroup.Group
	for name, data := range payloads {
		g.Go(func() error {
			if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
				return fmt.Errorf("writing %s: %w", name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	manifest, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), manifest, 0644); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}
	return m, nil
}

// ReadBundle loads a bundle written by WriteBundle. The network is
// repacked from the parameters; the kernel is nil when the bundle has none.
func ReadBundle(dir string) (*Scene, *shadergen.Kernel, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, nil, fmt.Errorf("%w: manifest: %v", merf.ErrDecode, err)
	}

	p, err := merf.ParseSceneParametersFile(filepath.Join(dir, m.Params))
	if err != nil {
		return nil, nil, err
	}
	net, err := merf.PackNetwork(p)
	if err != nil {
		return nil, nil, err
	}
	s := &Scene{Name: m.Name, Params: p, Network: net, Occupancy: new(merf.OccupancyLevels)}

	vols := map[string]*merf.Volume{}
	for _, b := range m.Buffers {
		if b.Format == WeightFormat {
			continue
		}
		v, err := readVolume(dir, b)
		if err != nil {
			return nil, nil, err
		}
		vols[b.Slot] = v
	}

	if p.UsesTriplane() {
		s.Triplanes = &merf.TriplaneSet{
			RGB:      vols[shadergen.SlotPlaneRgb],
			Density:  vols[shadergen.SlotPlaneDensity],
			Features: vols[shadergen.SlotPlaneFeatures],
		}
	}
	if p.UsesSparseGrid() {
		s.Atlas = &merf.SparseAtlas{
			RGB:      vols[shadergen.SlotSparseGridRgb],
			Density:  vols[shadergen.SlotSparseGridDensity],
			Features: vols[shadergen.SlotSparseGridFeatures],
			Index:    vols[shadergen.SlotSparseGridIndex],
		}
	}
	_, baseVoxel := p.OccupancyBase()
	for i, bs := range merf.OccupancyBlockSizes {
		v := vols[shadergen.SlotOccupancyGrid(i)]
		if v == nil {
			return nil, nil, fmt.Errorf("%w: bundle lacks %s", merf.ErrDecode, shadergen.SlotOccupancyGrid(i))
		}
		s.Occupancy[i] = merf.OccupancyGrid{BlockSize: bs, VoxelSize: baseVoxel * float64(bs), Volume: v}
	}
	if err := checkPresent(s); err != nil {
		return nil, nil, err
	}
	if msg := s.sizeMismatch(); msg != "" {
		return nil, nil, fmt.Errorf("%w: bundle %s: %s", merf.ErrDecode, dir, msg)
	}
	if err := s.Validate(); err != nil {
		return nil, nil, err
	}

	var k *shadergen.Kernel
	if m.Kernel.Fragment != "" {
		vert, err := os.ReadFile(filepath.Join(dir, m.Kernel.Vertex))
		if err != nil {
			return nil, nil, fmt.Errorf("reading vertex kernel: %w", err)
		}
		frag, err := os.ReadFile(filepath.Join(dir, m.Kernel.Fragment))
		if err != nil {
			return nil, nil, fmt.Errorf("reading fragment kernel: %w", err)
		}
		k = &shadergen.Kernel{Vertex: string(vert), Fragment: string(frag)}
	}
	return s, k, nil
}

func readVolume(dir string, b Buffer) (*merf.Volume, error) {
	if len(b.Size) != 3 {
		return nil, fmt.Errorf("%w: %s has size %v", merf.ErrDecode, b.Slot, b.Size)
	}
	channels := 0
	for c := 1; c <= 4; c++ {
		if VolumeFormat(c) == b.Format {
			channels = c
		}
	}
	if channels == 0 {
		return nil, fmt.Errorf("%w: %s has unknown format %q", merf.ErrDecode, b.Slot, b.Format)
	}
	data, err := os.ReadFile(filepath.Join(dir, b.File))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", b.File, err)
	}
	v := &merf.Volume{Width: b.Size[0], Height: b.Size[1], Depth: b.Size[2], Channels: channels, Data: data}
	if want := v.Width * v.Height * v.Depth * channels; len(data) != want {
		return nil, fmt.Errorf("%w: %s holds %d bytes, expected %d", merf.ErrDecode, b.File, len(data), want)
	}
	return v, nil
}

func checkPresent(s *Scene) error {
	var missing []string
	if t := s.Triplanes; t != nil && (t.RGB == nil || t.Density == nil || t.Features == nil) {
		missing = append(missing, "triplanes")
	}
	if a := s.Atlas; a != nil && (a.RGB == nil || a.Density == nil || a.Features == nil || a.Index == nil) {
		missing = append(missing, "atlas")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: bundle lacks %v", merf.ErrDecode, missing)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
