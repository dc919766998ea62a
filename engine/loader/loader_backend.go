package loader

import (
	"io"

	"github.com/Carmen-Shannon/oxy-sss/engine/model"
)

// loaderBackend defines the generic interface for reading meshes from files or streams.
// Concrete implementations (gltfLoaderBackend, objLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Load reads every triangle mesh from the given file path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - []model.Mesh: the meshes in file order
	//   - error: error if loading fails
	Load(path string) ([]model.Mesh, error)

	// LoadReader reads every triangle mesh from a stream.
	//
	// Parameters:
	//   - r: the reader providing the file contents
	//
	// Returns:
	//   - []model.Mesh: the meshes in stream order
	//   - error: error if loading fails
	LoadReader(r io.Reader) ([]model.Mesh, error)
}
