// Package model turns CPU mesh data into drawables: interleaved vertex buffer, index buffer, per-object transform
// uniform and the bind group that exposes the transform and the shared skin textures to the shaders.
package model

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-sss/common"
	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/resource"
)

// Textures are the shared, externally owned resources bound into every model's bind group after the uniform.
type Textures struct {
	Sampler    gpu.Sampler
	Albedo     gpu.TextureView
	Specular   gpu.TextureView
	Scattering gpu.TextureView
}

// model is the implementation of the Model interface.
type model struct {
	name      string
	layout    VertexLayout
	transform [16]float32

	vertexBuffer  gpu.Buffer
	indexBuffer   gpu.Buffer
	uniformBuffer gpu.Buffer
	bindGroup     gpu.BindGroup

	vertexCount int
	indexCount  int
}

// Model defines the interface for a GPU-ready drawable.
// A Model owns its vertex, index and uniform buffers and its bind group. The textures and sampler in the bind
// group are shared and belong to whoever created them.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Layout reports which attributes the vertex buffer interleaves.
	//
	// Returns:
	//   - VertexLayout: the vertex layout
	Layout() VertexLayout

	// VertexBuffer returns the interleaved vertex buffer.
	VertexBuffer() gpu.Buffer

	// IndexBuffer returns the uint32 index buffer.
	IndexBuffer() gpu.Buffer

	// UniformBuffer returns the transform uniform buffer.
	UniformBuffer() gpu.Buffer

	// BindGroup returns the per-model bind group: transform, sampler, albedo, specular, scattering.
	BindGroup() gpu.BindGroup

	// VertexCount returns the number of vertices.
	VertexCount() int

	// IndexCount returns the number of indices drawn.
	IndexCount() int

	// Transform returns the last uploaded model matrix.
	//
	// Returns:
	//   - [16]float32: column-major model matrix
	Transform() [16]float32

	// UpdateTransform uploads a new model matrix into the uniform buffer.
	//
	// Parameters:
	//   - b: the backend owning the buffer
	//   - m: column-major model matrix
	//
	// Returns:
	//   - error: an error if the write is rejected
	UpdateTransform(b gpu.Backend, m [16]float32) error

	// Release frees the buffers and bind group owned by the model.
	Release()
}

var _ Model = &model{}

// NewModel uploads mesh into GPU buffers and binds them against layout.
//
// Parameters:
//   - b: the backend to allocate on
//   - mesh: the CPU mesh data
//   - layout: the per-model bind group layout (uniform, sampler, three textures)
//   - textures: the shared textures and sampler bound after the uniform
//   - options: functional options
//
// Returns:
//   - Model: the created model
//   - error: ErrMeshShape, resource.ErrNoDevice, or a resource creation error
func NewModel(b gpu.Backend, mesh Mesh, layout gpu.BindGroupLayout, textures Textures, options ...ModelBuilderOption) (Model, error) {
	m := &model{
		name:   common.Coalesce(mesh.Name, "model"),
		layout: VertexLayoutPNU,
	}
	for _, opt := range options {
		opt(m)
	}

	if len(mesh.Indices) == 0 {
		return nil, fmt.Errorf("%s: no indices: %w", m.name, ErrMeshShape)
	}
	vertices, err := Interleave(m.layout, mesh.Positions, mesh.Normals, mesh.UVs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.name, err)
	}
	vertexCount := mesh.VertexCount()
	for _, idx := range mesh.Indices {
		if int(idx) >= vertexCount {
			return nil, fmt.Errorf("%s: index %d out of %d vertices: %w", m.name, idx, vertexCount, ErrMeshShape)
		}
	}
	m.vertexCount = vertexCount
	m.indexCount = len(mesh.Indices)
	m.transform = mesh.Transform

	if m.vertexBuffer, err = resource.CreateBuffer(b, m.name+" vertices", common.Float32sToBytes(vertices), resource.BufferKindVertex); err != nil {
		return nil, err
	}
	if m.indexBuffer, err = resource.CreateBuffer(b, m.name+" indices", common.SliceToBytes(mesh.Indices), resource.BufferKindIndex); err != nil {
		m.Release()
		return nil, err
	}
	uniform := GPUModelUniform{Model: mesh.Transform}
	if m.uniformBuffer, err = resource.CreateBuffer(b, m.name+" uniform", uniform.Marshal(), resource.BufferKindUniform); err != nil {
		m.Release()
		return nil, err
	}

	m.bindGroup, err = resource.CreateBindGroup(b, m.name, []resource.Resource{
		resource.Buffer(m.uniformBuffer),
		resource.Sampler(textures.Sampler),
		resource.Texture(textures.Albedo),
		resource.Texture(textures.Specular),
		resource.Texture(textures.Scattering),
	}, layout)
	if err != nil {
		m.Release()
		return nil, err
	}
	return m, nil
}

func (m *model) Name() string { return m.name }

func (m *model) Layout() VertexLayout { return m.layout }

func (m *model) VertexBuffer() gpu.Buffer { return m.vertexBuffer }

func (m *model) IndexBuffer() gpu.Buffer { return m.indexBuffer }

func (m *model) UniformBuffer() gpu.Buffer { return m.uniformBuffer }

func (m *model) BindGroup() gpu.BindGroup { return m.bindGroup }

func (m *model) VertexCount() int { return m.vertexCount }

func (m *model) IndexCount() int { return m.indexCount }

func (m *model) Transform() [16]float32 { return m.transform }

func (m *model) UpdateTransform(b gpu.Backend, transform [16]float32) error {
	uniform := GPUModelUniform{Model: transform}
	if err := resource.UpdateBuffer(b, m.uniformBuffer, uniform.Marshal()); err != nil {
		return fmt.Errorf("update %s transform: %w", m.name, err)
	}
	m.transform = transform
	return nil
}

func (m *model) Release() {
	if m.bindGroup != nil {
		m.bindGroup.Release()
		m.bindGroup = nil
	}
	for _, buf := range []*gpu.Buffer{&m.vertexBuffer, &m.indexBuffer, &m.uniformBuffer} {
		if *buf != nil {
			(*buf).Release()
			*buf = nil
		}
	}
}
