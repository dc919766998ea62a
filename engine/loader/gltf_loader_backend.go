package loader

import (
	"fmt"
	"io"

	"github.com/Carmen-Shannon/oxy-sss/engine/model"
)

// gltfLoaderBackend is a loaderBackend for glTF JSON and GLB files. The glb flag only affects LoadReader; file
// loads detect the container themselves.
type gltfLoaderBackend struct {
	glb bool
}

var _ loaderBackend = &gltfLoaderBackend{}

// newGLTFLoaderBackend creates a glTF loader backend.
//
// Parameters:
//   - glb: whether streams passed to LoadReader are GLB containers
//
// Returns:
//   - *gltfLoaderBackend: the loader backend
func newGLTFLoaderBackend(glb bool) *gltfLoaderBackend {
	return &gltfLoaderBackend{glb: glb}
}

func (b *gltfLoaderBackend) Load(path string) ([]model.Mesh, error) {
	parser, err := parseGLTFFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return newGLTFMeshExtractor(parser).ExtractAll()
}

func (b *gltfLoaderBackend) LoadReader(r io.Reader) ([]model.Mesh, error) {
	parser, err := parseGLTFReader(r, b.glb)
	if err != nil {
		return nil, fmt.Errorf("failed to parse from reader: %w", err)
	}
	return newGLTFMeshExtractor(parser).ExtractAll()
}
