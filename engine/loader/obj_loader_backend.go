package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-sss/engine/model"
)

// objLoaderBackend reads Wavefront OBJ geometry. Each "o" or "g" statement starts a new mesh. Faces are
// triangulated as fans and expanded into unshared vertices with sequential indices, so a vertex that appears in
// several faces is emitted once per face corner.
type objLoaderBackend struct{}

var _ loaderBackend = &objLoaderBackend{}

func newOBJLoaderBackend() *objLoaderBackend {
	return &objLoaderBackend{}
}

func (b *objLoaderBackend) Load(path string) ([]model.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseOBJ(f, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
}

func (b *objLoaderBackend) LoadReader(r io.Reader) ([]model.Mesh, error) {
	return parseOBJ(r, "obj")
}

// objBuilder accumulates the expanded attribute arrays of the mesh being read.
type objBuilder struct {
	name       string
	positions  []float32
	normals    []float32
	uvs        []float32
	hasNormals bool
	hasUVs     bool
}

func (o *objBuilder) empty() bool { return len(o.positions) == 0 }

func (o *objBuilder) mesh() model.Mesh {
	vertexCount := len(o.positions) / 3
	indices := sequentialIndices(vertexCount)
	normals := o.normals
	if !o.hasNormals {
		normals = generateNormals(o.positions, indices)
	}
	uvs := o.uvs
	if !o.hasUVs {
		uvs = make([]float32, vertexCount*2)
	}
	return model.Mesh{
		Name:      o.name,
		Positions: o.positions,
		Normals:   normals,
		UVs:       uvs,
		Indices:   indices,
		Transform: model.Identity(),
	}
}

func parseOBJ(r io.Reader, defaultName string) ([]model.Mesh, error) {
	var (
		positions [][3]float32
		normals   [][3]float32
		uvs       [][2]float32
		meshes    []model.Mesh
	)
	current := &objBuilder{name: defaultName}
	flush := func(nextName string) {
		if !current.empty() {
			meshes = append(meshes, current.mesh())
		}
		current = &objBuilder{name: nextName}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "v":
			v, err := parseOBJFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			positions = append(positions, [3]float32{v[0], v[1], v[2]})
		case "vn":
			v, err := parseOBJFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			normals = append(normals, [3]float32{v[0], v[1], v[2]})
		case "vt":
			v, err := parseOBJFloats(fields[1:], 2)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			uvs = append(uvs, [2]float32{v[0], v[1]})
		case "o", "g":
			name := defaultName
			if len(fields) > 1 {
				name = strings.Join(fields[1:], " ")
			}
			flush(name)
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: face needs at least 3 vertices", lineNo)
			}
			corners := fields[1:]
			for i := 1; i+1 < len(corners); i++ {
				for _, c := range []string{corners[0], corners[i], corners[i+1]} {
					if err := current.addCorner(c, positions, normals, uvs); err != nil {
						return nil, fmt.Errorf("line %d: %w", lineNo, err)
					}
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush("")

	if len(meshes) == 0 {
		return nil, fmt.Errorf("obj contains no faces")
	}
	return meshes, nil
}

// addCorner appends one face corner written as v, v/vt, v//vn or v/vt/vn. Negative references count back from
// the most recent element.
func (o *objBuilder) addCorner(corner string, positions, normals [][3]float32, uvs [][2]float32) error {
	parts := strings.Split(corner, "/")

	pi, err := resolveOBJIndex(parts[0], len(positions))
	if err != nil {
		return fmt.Errorf("position %q: %w", corner, err)
	}
	p := positions[pi]
	o.positions = append(o.positions, p[0], p[1], p[2])

	var uv [2]float32
	if len(parts) > 1 && parts[1] != "" {
		ti, err := resolveOBJIndex(parts[1], len(uvs))
		if err != nil {
			return fmt.Errorf("texcoord %q: %w", corner, err)
		}
		uv = uvs[ti]
		o.hasUVs = true
	}
	o.uvs = append(o.uvs, uv[0], uv[1])

	var n [3]float32
	if len(parts) > 2 && parts[2] != "" {
		ni, err := resolveOBJIndex(parts[2], len(normals))
		if err != nil {
			return fmt.Errorf("normal %q: %w", corner, err)
		}
		n = normals[ni]
		o.hasNormals = true
	}
	o.normals = append(o.normals, n[0], n[1], n[2])
	return nil
}

func resolveOBJIndex(field string, count int) (int, error) {
	i, err := strconv.Atoi(field)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		i = count + i
	} else {
		i--
	}
	if i < 0 || i >= count {
		return 0, fmt.Errorf("index out of range (%d elements)", count)
	}
	return i, nil
}

func parseOBJFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("need %d components, have %d", n, len(fields))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(v)
	}
	return out, nil
}
