package loader

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-sss/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfMeshExtractor converts the primitives of a parsed glTF document into model.Mesh values. Every triangle
// primitive reachable from the default scene becomes one mesh whose Transform is the world matrix of the node
// that references it.
type gltfMeshExtractor struct {
	parser *gltfParser
}

func newGLTFMeshExtractor(parser *gltfParser) *gltfMeshExtractor {
	return &gltfMeshExtractor{parser: parser}
}

// ExtractAll returns one mesh per primitive. Documents without nodes yield every mesh with an identity transform.
func (e *gltfMeshExtractor) ExtractAll() ([]model.Mesh, error) {
	doc := e.parser.document
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}

	if len(doc.Nodes) == 0 {
		var out []model.Mesh
		for i := range doc.Meshes {
			meshes, err := e.extractMesh(i, mgl32.Ident4())
			if err != nil {
				return nil, err
			}
			out = append(out, meshes...)
		}
		return out, nil
	}

	var out []model.Mesh
	var walk func(node int, parent mgl32.Mat4, depth int) error
	walk = func(node int, parent mgl32.Mat4, depth int) error {
		if node < 0 || node >= len(doc.Nodes) {
			return fmt.Errorf("node index %d out of range", node)
		}
		if depth > len(doc.Nodes) {
			return fmt.Errorf("node %d: hierarchy contains a cycle", node)
		}
		n := &doc.Nodes[node]
		world := parent.Mul4(nodeLocalMatrix(n))
		if n.Mesh != nil {
			meshes, err := e.extractMesh(*n.Mesh, world)
			if err != nil {
				return err
			}
			out = append(out, meshes...)
		}
		for _, child := range n.Children {
			if err := walk(child, world, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range e.rootNodes() {
		if err := walk(root, mgl32.Ident4(), 0); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// rootNodes returns the default scene's nodes, or every node no other node lists as a child.
func (e *gltfMeshExtractor) rootNodes() []int {
	doc := e.parser.document
	if len(doc.Scenes) > 0 {
		scene := 0
		if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
			scene = *doc.Scene
		}
		return doc.Scenes[scene].Nodes
	}

	isChild := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(isChild) {
				isChild[c] = true
			}
		}
	}
	var roots []int
	for i, child := range isChild {
		if !child {
			roots = append(roots, i)
		}
	}
	return roots
}

// nodeLocalMatrix returns Matrix when present, otherwise T * R * S.
func nodeLocalMatrix(n *gltfNode) mgl32.Mat4 {
	if n.Matrix != nil {
		return mgl32.Mat4(*n.Matrix)
	}
	m := mgl32.Ident4()
	if n.Translation != nil {
		t := n.Translation
		m = m.Mul4(mgl32.Translate3D(t[0], t[1], t[2]))
	}
	if n.Rotation != nil {
		r := n.Rotation
		m = m.Mul4(mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}.Normalize().Mat4())
	}
	if n.Scale != nil {
		s := n.Scale
		m = m.Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
	}
	return m
}

func (e *gltfMeshExtractor) extractMesh(meshIndex int, world mgl32.Mat4) ([]model.Mesh, error) {
	doc := e.parser.document
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return nil, fmt.Errorf("mesh index %d out of range", meshIndex)
	}
	mesh := &doc.Meshes[meshIndex]

	out := make([]model.Mesh, 0, len(mesh.Primitives))
	for primIdx := range mesh.Primitives {
		m, err := e.extractPrimitive(&mesh.Primitives[primIdx])
		if err != nil {
			return nil, fmt.Errorf("mesh %d primitive %d: %w", meshIndex, primIdx, err)
		}
		m.Name = mesh.Name
		if m.Name == "" {
			m.Name = fmt.Sprintf("mesh_%d", meshIndex)
		}
		if primIdx > 0 {
			m.Name = fmt.Sprintf("%s_prim%d", m.Name, primIdx)
		}
		m.Transform = world
		out = append(out, m)
	}
	return out, nil
}

// extractPrimitive reads one triangle primitive. Missing normals are generated from the geometry, missing UVs
// are zero and missing indices are sequential.
func (e *gltfMeshExtractor) extractPrimitive(prim *gltfPrimitive) (model.Mesh, error) {
	if prim.Mode != nil && *prim.Mode != gltfPrimitiveModeTriangles {
		return model.Mesh{}, fmt.Errorf("unsupported primitive mode: %d (only triangles supported)", *prim.Mode)
	}

	posAccessor, ok := prim.Attributes["POSITION"]
	if !ok {
		return model.Mesh{}, fmt.Errorf("primitive has no POSITION attribute")
	}
	positions, err := e.parser.readFloats(posAccessor, gltfAccessorTypeVec3)
	if err != nil {
		return model.Mesh{}, fmt.Errorf("failed to read positions: %w", err)
	}
	vertexCount := len(positions) / 3

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = e.parser.readIndices(*prim.Indices); err != nil {
			return model.Mesh{}, fmt.Errorf("failed to read indices: %w", err)
		}
	} else {
		indices = sequentialIndices(vertexCount)
	}

	var normals []float32
	if acc, ok := prim.Attributes["NORMAL"]; ok {
		if normals, err = e.parser.readFloats(acc, gltfAccessorTypeVec3); err != nil {
			return model.Mesh{}, fmt.Errorf("failed to read normals: %w", err)
		}
		if len(normals) != len(positions) {
			return model.Mesh{}, fmt.Errorf("%d normals for %d vertices", len(normals)/3, vertexCount)
		}
	} else {
		normals = generateNormals(positions, indices)
	}

	uvs := make([]float32, vertexCount*2)
	if acc, ok := prim.Attributes["TEXCOORD_0"]; ok {
		read, err := e.parser.readFloats(acc, gltfAccessorTypeVec2)
		if err != nil {
			return model.Mesh{}, fmt.Errorf("failed to read texcoords: %w", err)
		}
		copy(uvs, read)
	}

	return model.Mesh{
		Positions: positions,
		Normals:   normals,
		UVs:       uvs,
		Indices:   indices,
	}, nil
}

func sequentialIndices(n int) []uint32 {
	indices := make([]uint32, n)
	for i := range indices {
		indices[i] = uint32(i)
	}
	return indices
}

// generateNormals computes smooth vertex normals from triangle geometry. Each face normal is the cross product of
// two edges, so its length weights it by triangle area when accumulated onto the three vertices. Vertices with no
// usable faces get +Y.
func generateNormals(positions []float32, indices []uint32) []float32 {
	n := len(positions) / 3
	accum := make([]float32, n*3)
	at := func(i uint32) [3]float32 {
		return [3]float32{positions[i*3], positions[i*3+1], positions[i*3+2]}
	}

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		if int(i0) >= n || int(i1) >= n || int(i2) >= n {
			continue
		}
		p0, p1, p2 := at(i0), at(i1), at(i2)
		edge1 := [3]float32{p1[0] - p0[0], p1[1] - p0[1], p1[2] - p0[2]}
		edge2 := [3]float32{p2[0] - p0[0], p2[1] - p0[1], p2[2] - p0[2]}
		face := [3]float32{
			edge1[1]*edge2[2] - edge1[2]*edge2[1],
			edge1[2]*edge2[0] - edge1[0]*edge2[2],
			edge1[0]*edge2[1] - edge1[1]*edge2[0],
		}
		for _, idx := range []uint32{i0, i1, i2} {
			accum[idx*3] += face[0]
			accum[idx*3+1] += face[1]
			accum[idx*3+2] += face[2]
		}
	}

	for i := 0; i < n; i++ {
		x, y, z := accum[i*3], accum[i*3+1], accum[i*3+2]
		length := float32(math.Sqrt(float64(x*x + y*y + z*z)))
		if length < 1e-6 {
			accum[i*3], accum[i*3+1], accum[i*3+2] = 0, 1, 0
			continue
		}
		accum[i*3], accum[i*3+1], accum[i*3+2] = x/length, y/length, z/length
	}
	return accum
}
