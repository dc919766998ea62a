package gpu

import (
	"errors"

	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrReadbackUnsupported is returned by ReadBuffer when the buffer cannot be copied back to the host.
	ErrReadbackUnsupported = errors.New("gpu: buffer readback unsupported")

	// ErrForeignHandle is returned when a handle created by one backend is passed to another.
	ErrForeignHandle = errors.New("gpu: handle was not created by this backend")

	// ErrSurfaceNotConfigured is returned when the surface is used before ConfigureSurface.
	ErrSurfaceNotConfigured = errors.New("gpu: surface not configured")

	errPassStillOpen = errors.New("gpu: previous render pass has not ended")
)

// BufferDescriptor describes a buffer allocation.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage wgpu.BufferUsage
}

// TextureDescriptor describes a 2-D texture allocation with a single layer and mip level.
type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Format wgpu.TextureFormat
	Usage  wgpu.TextureUsage
}

// SamplerDescriptor describes a sampler. Zero values are filled with the backend defaults
// (repeat addressing, linear filtering).
type SamplerDescriptor struct {
	Label                                    string
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	MagFilter, MinFilter                     wgpu.FilterMode
	MipmapFilter                             wgpu.MipmapFilterMode
	LodMinClamp, LodMaxClamp                 float32
	Compare                                  wgpu.CompareFunction
	MaxAnisotropy                            uint16
}

// LayoutEntry describes one slot of a bind group layout. Only the constraint field matching Kind is read.
type LayoutEntry struct {
	Binding    uint32
	Visibility wgpu.ShaderStage
	Kind       ResourceKind

	// Buffer is the binding type when Kind is ResourceKindBuffer.
	Buffer wgpu.BufferBindingType
	// Sampler is the binding type when Kind is ResourceKindSampler.
	Sampler wgpu.SamplerBindingType
	// Texture is the sample type when Kind is ResourceKindTexture.
	Texture wgpu.TextureSampleType
}

// BindGroupEntry binds one live resource to a slot. Only the field matching Kind is read.
type BindGroupEntry struct {
	Binding     uint32
	Kind        ResourceKind
	Buffer      Buffer
	Sampler     Sampler
	TextureView TextureView
}

// VertexAttribute is one attribute of an interleaved vertex buffer.
type VertexAttribute struct {
	Format         wgpu.VertexFormat
	Offset         uint64
	ShaderLocation uint32
}

// VertexBufferLayout describes one interleaved per-vertex buffer.
type VertexBufferLayout struct {
	ArrayStride uint64
	Attributes  []VertexAttribute
}

// DepthStencilState is the depth configuration of a pipeline.
type DepthStencilState struct {
	Format              wgpu.TextureFormat
	DepthWriteEnabled   bool
	DepthCompare        wgpu.CompareFunction
	DepthBias           int32
	DepthBiasSlopeScale float32
}

// RenderPipelineDescriptor describes a render pipeline. A nil Fragment module makes the pipeline depth-only.
type RenderPipelineDescriptor struct {
	Label            string
	BindGroupLayouts []BindGroupLayout

	Vertex           ShaderModule
	VertexEntryPoint string
	VertexBuffers    []VertexBufferLayout

	Fragment           ShaderModule
	FragmentEntryPoint string
	ColorTargets       []wgpu.TextureFormat

	DepthStencil *DepthStencilState

	Topology  wgpu.PrimitiveTopology
	FrontFace wgpu.FrontFace
	CullMode  wgpu.CullMode
}

// ColorAttachment is a color target of a render pass. It is cleared to ClearValue on load and stored on end.
type ColorAttachment struct {
	View       TextureView
	ClearValue wgpu.Color
}

// DepthAttachment is the depth target of a render pass. It is cleared to ClearValue on load and stored on end.
type DepthAttachment struct {
	View       TextureView
	ClearValue float32
}

// RenderPassDescriptor describes the attachments of a render pass.
type RenderPassDescriptor struct {
	Label            string
	ColorAttachments []ColorAttachment
	DepthAttachment  *DepthAttachment
}
