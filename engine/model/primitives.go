package model

import "math"

// Quad returns a unit quad in the XY plane facing +Z: 4 vertices, 6 indices, identity transform.
func Quad() Mesh {
	return Mesh{
		Positions: []float32{
			-1, -1, 0,
			1, -1, 0,
			1, 1, 0,
			-1, 1, 0,
		},
		Normals: []float32{
			0, 0, 1,
			0, 0, 1,
			0, 0, 1,
			0, 0, 1,
		},
		UVs: []float32{
			0, 0,
			1, 0,
			1, 1,
			0, 1,
		},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
		Transform: Identity(),
	}
}

// Sphere returns a UV sphere of the given radius centered on the origin. The seam column is duplicated so UVs
// wrap cleanly; rings and segments are clamped to at least 2 and 3.
//
// Parameters:
//   - radius: sphere radius
//   - rings: latitude subdivisions
//   - segments: longitude subdivisions
//
// Returns:
//   - Mesh: positions, normals, UVs and counter-clockwise triangle indices
func Sphere(radius float32, rings, segments int) Mesh {
	rings = max(rings, 2)
	segments = max(segments, 3)

	mesh := Mesh{Transform: Identity()}
	for r := 0; r <= rings; r++ {
		v := float64(r) / float64(rings)
		theta := v * math.Pi
		for s := 0; s <= segments; s++ {
			u := float64(s) / float64(segments)
			phi := u * 2 * math.Pi
			nx := float32(math.Sin(theta) * math.Sin(phi))
			ny := float32(math.Cos(theta))
			nz := float32(math.Sin(theta) * math.Cos(phi))
			mesh.Positions = append(mesh.Positions, nx*radius, ny*radius, nz*radius)
			mesh.Normals = append(mesh.Normals, nx, ny, nz)
			mesh.UVs = append(mesh.UVs, float32(u), float32(1-v))
		}
	}

	cols := uint32(segments + 1)
	for r := range uint32(rings) {
		for s := range uint32(segments) {
			a := r*cols + s
			b := a + cols
			mesh.Indices = append(mesh.Indices, a, b, a+1, a+1, b, b+1)
		}
	}
	return mesh
}
