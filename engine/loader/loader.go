// Package loader turns files into the CPU-side inputs of the renderer: triangle meshes from glTF, GLB or OBJ
// files, and RGBA bitmaps from common image formats.
package loader

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-sss/engine/model"
	log "github.com/sirupsen/logrus"
)

// ErrUnsupportedFormat is returned when no backend handles a file extension or backend type.
var ErrUnsupportedFormat = errors.New("loader: unsupported format")

// LoaderBackendType identifies the mesh file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF JSON backend.
	BackendTypeGLTF LoaderBackendType = iota
	// BackendTypeGLB selects the binary glTF backend.
	BackendTypeGLB
	// BackendTypeOBJ selects the Wavefront OBJ backend.
	BackendTypeOBJ
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	meshCache map[string][]model.Mesh

	backends map[LoaderBackendType]loaderBackend
	logger   *log.Entry
}

// Loader defines the public-facing interface for loading and caching meshes. It abstracts the file format
// behind a backend chosen by extension and caches results by path or name. Cached meshes are shared; callers
// must not modify their slices.
type Loader interface {
	// Load reads a mesh file and caches the result. If the path is already cached, the cached meshes are
	// returned. The backend is selected by extension: .gltf, .glb or .obj.
	//
	// Parameters:
	//   - path: the file path to the mesh file
	//
	// Returns:
	//   - []model.Mesh: the loaded meshes, one per primitive or OBJ object
	//   - error: ErrUnsupportedFormat or a parse error
	Load(path string) ([]model.Mesh, error)

	// LoadReader reads meshes from a stream and caches them under name.
	//
	// Parameters:
	//   - name: the cache key for the loaded meshes
	//   - r: the reader providing the file contents
	//   - backendType: the format of the stream
	//
	// Returns:
	//   - []model.Mesh: the loaded meshes
	//   - error: ErrUnsupportedFormat or a parse error
	LoadReader(name string, r io.Reader, backendType LoaderBackendType) ([]model.Mesh, error)

	// Get retrieves cached meshes by path or name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - []model.Mesh: the cached meshes or nil
	Get(name string) []model.Mesh

	// Meshes returns a copy of the full mesh cache.
	Meshes() map[string][]model.Mesh
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with the glTF, GLB and OBJ backends registered and options applied.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new Loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		meshCache: make(map[string][]model.Mesh),
		backends: map[LoaderBackendType]loaderBackend{
			BackendTypeGLTF: newGLTFLoaderBackend(false),
			BackendTypeGLB:  newGLTFLoaderBackend(true),
			BackendTypeOBJ:  newOBJLoaderBackend(),
		},
		logger: log.WithField("component", "loader"),
	}
	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(path string) ([]model.Mesh, error) {
	if cached := l.Get(path); cached != nil {
		return cached, nil
	}

	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}
	meshes, err := backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	l.store(path, meshes)
	return meshes, nil
}

func (l *loader) LoadReader(name string, r io.Reader, backendType LoaderBackendType) ([]model.Mesh, error) {
	if cached := l.Get(name); cached != nil {
		return cached, nil
	}

	backend, ok := l.backends[backendType]
	if !ok {
		return nil, fmt.Errorf("backend type %d: %w", backendType, ErrUnsupportedFormat)
	}
	meshes, err := backend.LoadReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}

	l.store(name, meshes)
	return meshes, nil
}

func (l *loader) Get(name string) []model.Mesh {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.meshCache[name]
}

func (l *loader) Meshes() map[string][]model.Mesh {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return maps.Clone(l.meshCache)
}

func (l *loader) store(key string, meshes []model.Mesh) {
	l.mu.Lock()
	l.meshCache[key] = meshes
	l.mu.Unlock()

	vertices := 0
	for _, m := range meshes {
		vertices += m.VertexCount()
	}
	l.logger.WithFields(log.Fields{"source": key, "meshes": len(meshes), "vertices": vertices}).Info("meshes loaded")
}

// resolveBackend selects a loader backend based on the file extension.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gltf":
		return l.backends[BackendTypeGLTF], nil
	case ".glb":
		return l.backends[BackendTypeGLB], nil
	case ".obj":
		return l.backends[BackendTypeOBJ], nil
	default:
		return nil, fmt.Errorf("%q: %w", ext, ErrUnsupportedFormat)
	}
}
