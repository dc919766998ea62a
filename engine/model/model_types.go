package model

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrMeshShape is returned when a mesh's attribute arrays disagree with each other or with its vertex layout.
var ErrMeshShape = errors.New("model: malformed mesh")

// --- Vertex Layouts ---

// VertexLayout selects which attributes are interleaved into a model's vertex buffer.
type VertexLayout int

const (
	// VertexLayoutP holds positions only (3 floats).
	VertexLayoutP VertexLayout = iota

	// VertexLayoutPN holds positions then normals (6 floats).
	VertexLayoutPN

	// VertexLayoutPNU holds positions, normals, then texture coordinates (8 floats).
	VertexLayoutPNU
)

// String returns the layout name.
func (l VertexLayout) String() string {
	switch l {
	case VertexLayoutP:
		return "P"
	case VertexLayoutPN:
		return "PN"
	case VertexLayoutPNU:
		return "PNU"
	default:
		return fmt.Sprintf("VertexLayout(%d)", int(l))
	}
}

// Formats returns the per-attribute vertex formats in shader location order.
//
// Returns:
//   - []wgpu.VertexFormat: one format per attribute
func (l VertexLayout) Formats() []wgpu.VertexFormat {
	switch l {
	case VertexLayoutP:
		return []wgpu.VertexFormat{wgpu.VertexFormatFloat32x3}
	case VertexLayoutPN:
		return []wgpu.VertexFormat{wgpu.VertexFormatFloat32x3, wgpu.VertexFormatFloat32x3}
	default:
		return []wgpu.VertexFormat{wgpu.VertexFormatFloat32x3, wgpu.VertexFormatFloat32x3, wgpu.VertexFormatFloat32x2}
	}
}

// FloatsPerVertex returns the interleaved vertex width in floats.
func (l VertexLayout) FloatsPerVertex() int {
	switch l {
	case VertexLayoutP:
		return 3
	case VertexLayoutPN:
		return 6
	default:
		return 8
	}
}

// --- Mesh Input ---

// Mesh is the CPU-side input for one drawable: flat attribute arrays plus an initial transform.
type Mesh struct {
	// Name labels the mesh. NewModel uses it when no WithName option is given.
	Name string

	// Positions holds 3 floats per vertex.
	Positions []float32

	// Normals holds 3 floats per vertex. Required by the PN and PNU layouts.
	Normals []float32

	// UVs holds 2 floats per vertex. Required by the PNU layout.
	UVs []float32

	// Indices are triangle-list indices into the vertex arrays.
	Indices []uint32

	// Transform is the model-to-world matrix, column-major.
	Transform [16]float32
}

// VertexCount returns the number of vertices described by Positions.
func (m Mesh) VertexCount() int {
	return len(m.Positions) / 3
}

// Identity returns the 4x4 identity matrix, column-major.
func Identity() [16]float32 {
	return [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
}

// Interleave assembles the vertex-buffer contents of a mesh for the given layout. Vertex i occupies
// layout.FloatsPerVertex() consecutive floats: position, then normal (PN, PNU), then UV (PNU).
//
// Parameters:
//   - layout: the vertex layout to assemble
//   - positions: 3 floats per vertex
//   - normals: 3 floats per vertex, ignored for the P layout
//   - uvs: 2 floats per vertex, ignored unless the layout is PNU
//
// Returns:
//   - []float32: the interleaved vertex data
//   - error: ErrMeshShape if an attribute array is missing or its length disagrees with the vertex count
func Interleave(layout VertexLayout, positions, normals, uvs []float32) ([]float32, error) {
	if len(positions) == 0 || len(positions)%3 != 0 {
		return nil, fmt.Errorf("%d position floats: %w", len(positions), ErrMeshShape)
	}
	n := len(positions) / 3
	if layout != VertexLayoutP && len(normals) != n*3 {
		return nil, fmt.Errorf("%d normal floats for %d vertices: %w", len(normals), n, ErrMeshShape)
	}
	if layout == VertexLayoutPNU && len(uvs) != n*2 {
		return nil, fmt.Errorf("%d uv floats for %d vertices: %w", len(uvs), n, ErrMeshShape)
	}

	stride := layout.FloatsPerVertex()
	out := make([]float32, n*stride)
	for i := range n {
		v := out[i*stride:]
		copy(v[0:3], positions[i*3:i*3+3])
		if layout == VertexLayoutP {
			continue
		}
		copy(v[3:6], normals[i*3:i*3+3])
		if layout == VertexLayoutPNU {
			copy(v[6:8], uvs[i*2:i*2+2])
		}
	}
	return out, nil
}
