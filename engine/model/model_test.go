package model

import (
	"errors"
	"slices"
	"testing"

	"github.com/Carmen-Shannon/oxy-sss/common"
	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/gpu/headless"
	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/resource"
	"github.com/cogentcore/webgpu/wgpu"
)

// =============================================================================
// Interleave Tests
// =============================================================================

func TestInterleave(t *testing.T) {
	positions := []float32{1, 2, 3, 4, 5, 6}
	normals := []float32{10, 20, 30, 40, 50, 60}
	uvs := []float32{100, 200, 300, 400}

	tests := []struct {
		layout VertexLayout
		want   []float32
	}{
		{VertexLayoutP, []float32{1, 2, 3, 4, 5, 6}},
		{VertexLayoutPN, []float32{1, 2, 3, 10, 20, 30, 4, 5, 6, 40, 50, 60}},
		{VertexLayoutPNU, []float32{1, 2, 3, 10, 20, 30, 100, 200, 4, 5, 6, 40, 50, 60, 300, 400}},
	}
	for _, tt := range tests {
		t.Run(tt.layout.String(), func(t *testing.T) {
			got, err := Interleave(tt.layout, positions, normals, uvs)
			if err != nil {
				t.Fatalf("Interleave failed: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("Interleave() = %v, want %v", got, tt.want)
			}
			if len(got) != 2*tt.layout.FloatsPerVertex() {
				t.Errorf("len = %d, want %d", len(got), 2*tt.layout.FloatsPerVertex())
			}
		})
	}
}

func TestInterleave_Errors(t *testing.T) {
	tests := []struct {
		name      string
		layout    VertexLayout
		positions []float32
		normals   []float32
		uvs       []float32
	}{
		{"no positions", VertexLayoutP, nil, nil, nil},
		{"ragged positions", VertexLayoutP, []float32{1, 2}, nil, nil},
		{"missing normals", VertexLayoutPN, []float32{1, 2, 3}, nil, nil},
		{"short uvs", VertexLayoutPNU, []float32{1, 2, 3}, []float32{0, 0, 1}, []float32{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Interleave(tt.layout, tt.positions, tt.normals, tt.uvs); !errors.Is(err, ErrMeshShape) {
				t.Errorf("Interleave error = %v, want ErrMeshShape", err)
			}
		})
	}
}

func TestVertexLayout_FormatsMatchWidth(t *testing.T) {
	for _, layout := range []VertexLayout{VertexLayoutP, VertexLayoutPN, VertexLayoutPNU} {
		var total uint64
		for _, f := range layout.Formats() {
			size, ok := gpu.VertexFormatSize(f)
			if !ok {
				t.Fatalf("%v: unknown format %v", layout, f)
			}
			total += size
		}
		if want := uint64(layout.FloatsPerVertex() * 4); total != want {
			t.Errorf("%v formats span %d bytes, want %d", layout, total, want)
		}
	}
}

// =============================================================================
// Primitive Tests
// =============================================================================

func TestQuad(t *testing.T) {
	q := Quad()
	if q.VertexCount() != 4 || len(q.Indices) != 6 {
		t.Errorf("Quad has %d vertices / %d indices, want 4 / 6", q.VertexCount(), len(q.Indices))
	}
	if _, err := Interleave(VertexLayoutPNU, q.Positions, q.Normals, q.UVs); err != nil {
		t.Errorf("Quad does not interleave as PNU: %v", err)
	}
}

func TestSphere(t *testing.T) {
	s := Sphere(2, 4, 6)
	if want := 5 * 7; s.VertexCount() != want {
		t.Errorf("VertexCount() = %d, want %d", s.VertexCount(), want)
	}
	if want := 4 * 6 * 6; len(s.Indices) != want {
		t.Errorf("len(Indices) = %d, want %d", len(s.Indices), want)
	}
	for _, idx := range s.Indices {
		if int(idx) >= s.VertexCount() {
			t.Fatalf("index %d out of range", idx)
		}
	}
	if _, err := Interleave(VertexLayoutPNU, s.Positions, s.Normals, s.UVs); err != nil {
		t.Errorf("Sphere does not interleave as PNU: %v", err)
	}
}

// =============================================================================
// Model Tests
// =============================================================================

func modelFixture(t *testing.T, b gpu.Backend) (gpu.BindGroupLayout, Textures) {
	t.Helper()
	layout, err := resource.CreateBindGroupLayout(b, "model",
		[]uint32{0, 1, 2, 3, 4},
		[]wgpu.ShaderStage{wgpu.ShaderStageVertex | wgpu.ShaderStageFragment},
		[]gpu.ResourceKind{gpu.ResourceKindBuffer, gpu.ResourceKindSampler, gpu.ResourceKindTexture, gpu.ResourceKindTexture, gpu.ResourceKindTexture},
		[]resource.Constraint{resource.UniformBuffer(), resource.FilteringSampler(), resource.FloatTexture(), resource.FloatTexture(), resource.FloatTexture()},
	)
	if err != nil {
		t.Fatalf("CreateBindGroupLayout failed: %v", err)
	}
	sampler, err := resource.CreateSampler(b, "sampler", common.SamplerStagingData{})
	if err != nil {
		t.Fatalf("CreateSampler failed: %v", err)
	}
	tex, err := resource.CreateTextureFromImage(b, "white", common.Bitmap{Width: 1, Height: 1, Pixels: []byte{255, 255, 255, 255}}, false)
	if err != nil {
		t.Fatalf("CreateTextureFromImage failed: %v", err)
	}
	view, err := tex.CreateView()
	if err != nil {
		t.Fatalf("CreateView failed: %v", err)
	}
	return layout, Textures{Sampler: sampler, Albedo: view, Specular: view, Scattering: view}
}

func TestNewModel(t *testing.T) {
	b := headless.NewBackend()
	layout, textures := modelFixture(t, b)

	m, err := NewModel(b, Quad(), layout, textures, WithName("quad"))
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}
	if m.VertexCount() != 4 || m.IndexCount() != 6 {
		t.Errorf("counts = %d / %d, want 4 / 6", m.VertexCount(), m.IndexCount())
	}
	if got, want := m.VertexBuffer().Size(), uint64(4*8*4); got != want {
		t.Errorf("vertex buffer size = %d, want %d", got, want)
	}
	if got, want := m.IndexBuffer().Size(), uint64(6*4); got != want {
		t.Errorf("index buffer size = %d, want %d", got, want)
	}
	if m.BindGroup().Layout() != layout {
		t.Error("bind group not built against the given layout")
	}
}

func TestNewModel_VertexLayoutP(t *testing.T) {
	b := headless.NewBackend()
	layout, textures := modelFixture(t, b)

	mesh := Quad()
	mesh.Normals, mesh.UVs = nil, nil
	m, err := NewModel(b, mesh, layout, textures, WithVertexLayout(VertexLayoutP))
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}
	if got, want := m.VertexBuffer().Size(), uint64(4*3*4); got != want {
		t.Errorf("vertex buffer size = %d, want %d", got, want)
	}
}

func TestNewModel_Errors(t *testing.T) {
	b := headless.NewBackend()
	layout, textures := modelFixture(t, b)

	badIndex := Quad()
	badIndex.Indices = []uint32{0, 1, 9}
	noIndices := Quad()
	noIndices.Indices = nil

	for name, mesh := range map[string]Mesh{"index out of range": badIndex, "no indices": noIndices} {
		t.Run(name, func(t *testing.T) {
			if _, err := NewModel(b, mesh, layout, textures); !errors.Is(err, ErrMeshShape) {
				t.Errorf("NewModel error = %v, want ErrMeshShape", err)
			}
		})
	}

	if _, err := NewModel(b, Quad(), layout, Textures{Sampler: textures.Sampler}); err == nil {
		t.Error("NewModel with missing textures should fail")
	}
}

func TestUpdateTransform(t *testing.T) {
	b := headless.NewBackend()
	layout, textures := modelFixture(t, b)
	m, err := NewModel(b, Quad(), layout, textures)
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}

	next := Identity()
	next[12], next[13], next[14] = 1, 2, 3
	if err := m.UpdateTransform(b, next); err != nil {
		t.Fatalf("UpdateTransform failed: %v", err)
	}
	if m.Transform() != next {
		t.Errorf("Transform() = %v, want %v", m.Transform(), next)
	}

	got, err := b.ReadBuffer(m.UniformBuffer())
	if err != nil {
		t.Fatalf("ReadBuffer failed: %v", err)
	}
	floats := common.BytesToFloat32s(got)
	if !slices.Equal(floats, next[:]) {
		t.Errorf("uniform contents = %v, want %v", floats, next)
	}
}
