// Package gpu defines the device contract the renderer is written against. Every GPU object the core touches is an
// opaque handle created by a Backend, which keeps the frame orchestrator independent of the concrete WebGPU binding
// and lets the same orchestration code run on real hardware or on the headless recording backend.
package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderEntryVertex and ShaderEntryFragment are the fixed entry point names every shader program exposes.
const (
	ShaderEntryVertex   = "vertexMain"
	ShaderEntryFragment = "fragmentMain"
)

// ResourceKind identifies which kind of resource a bind group slot holds.
type ResourceKind int

const (
	// ResourceKindBuffer is a uniform (or storage) buffer binding.
	ResourceKindBuffer ResourceKind = iota

	// ResourceKindSampler is a filtering, non-filtering or comparison sampler binding.
	ResourceKindSampler

	// ResourceKindTexture is a sampled texture view binding.
	ResourceKindTexture
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceKindBuffer:
		return "buffer"
	case ResourceKindSampler:
		return "sampler"
	case ResourceKindTexture:
		return "texture"
	default:
		return "unknown"
	}
}

// Buffer is a device-resident memory region.
type Buffer interface {
	// Label returns the debug label the buffer was created with.
	Label() string

	// Size returns the allocated size of the buffer in bytes.
	Size() uint64

	// Usage returns the usage flags the buffer was created with.
	Usage() wgpu.BufferUsage

	// Release frees the device memory held by the buffer.
	Release()
}

// Texture is a device-resident 2-D image.
type Texture interface {
	// Label returns the debug label the texture was created with.
	Label() string

	// Width returns the texture width in texels.
	Width() uint32

	// Height returns the texture height in texels.
	Height() uint32

	// DepthOrArrayLayers returns the layer count, which is always 1 for this renderer.
	DepthOrArrayLayers() uint32

	// Format returns the pixel format of the texture.
	Format() wgpu.TextureFormat

	// Usage returns the usage flags the texture was created with.
	Usage() wgpu.TextureUsage

	// CreateView creates a default full-resource view of the texture.
	//
	// Returns:
	//   - TextureView: the created view
	//   - error: an error if the view could not be created
	CreateView() (TextureView, error)

	// Release frees the device memory held by the texture.
	Release()
}

// TextureView is a view onto a Texture usable as a render attachment or a shader resource.
type TextureView interface {
	// Texture returns the texture this view was created from.
	Texture() Texture

	// Release frees the view.
	Release()
}

// Sampler is a texture sampling configuration.
type Sampler interface {
	// Label returns the debug label the sampler was created with.
	Label() string

	// IsComparison reports whether the sampler performs depth comparison.
	IsComparison() bool

	// Release frees the sampler.
	Release()
}

// BindGroupLayout is the shape contract of a bind group.
type BindGroupLayout interface {
	// Label returns the debug label the layout was created with.
	Label() string

	// Entries returns the layout entries in slot order.
	Entries() []LayoutEntry

	// SlotCount returns the number of slots in the layout.
	SlotCount() int

	// Release frees the layout.
	Release()
}

// BindGroup is a concrete binding of a layout's slots to live resources. It is immutable once created.
type BindGroup interface {
	// Label returns the debug label the bind group was created with.
	Label() string

	// Layout returns the layout the bind group was created against.
	Layout() BindGroupLayout

	// Release frees the bind group.
	Release()
}

// ShaderModule is a compiled shader program.
type ShaderModule interface {
	Label() string
	Release()
}

// RenderPipeline is an immutable compiled render pipeline.
type RenderPipeline interface {
	Label() string
	Release()
}

// CommandBuffer is a finished, submittable list of recorded commands.
type CommandBuffer interface {
	Release()
}

// CommandEncoder records render passes into a single command buffer.
type CommandEncoder interface {
	// BeginRenderPass starts a render pass with the given attachments. Passes are recorded sequentially and a pass
	// must be ended before the next one begins.
	//
	// Parameters:
	//   - desc: the attachments and label for the pass
	//
	// Returns:
	//   - RenderPass: the pass encoder
	//   - error: an error if the pass could not be started
	BeginRenderPass(desc RenderPassDescriptor) (RenderPass, error)

	// Finish ends recording and returns the command buffer. Any validation error raised while recording
	// is reported here.
	//
	// Returns:
	//   - CommandBuffer: the finished command buffer
	//   - error: the first recording or validation error, if any
	Finish() (CommandBuffer, error)

	// Release frees the encoder.
	Release()
}

// RenderPass records draw commands against a fixed set of attachments.
type RenderPass interface {
	SetPipeline(p RenderPipeline)
	SetBindGroup(index uint32, group BindGroup)
	SetVertexBuffer(slot uint32, buf Buffer)
	SetIndexBuffer(buf Buffer, format wgpu.IndexFormat)
	SetViewport(x, y, width, height, minDepth, maxDepth float32)
	DrawIndexed(indexCount, instanceCount uint32)

	// End closes the pass. The attachments are fully written once End returns, so later passes may sample them.
	End() error
}

// Backend is the device, queue and presentation surface the renderer records against.
//
// A Backend is not safe for concurrent use; exactly one goroutine owns it.
type Backend interface {
	// CreateBuffer allocates a buffer. Contents are undefined until written.
	CreateBuffer(desc BufferDescriptor) (Buffer, error)

	// WriteBuffer schedules a write of data into buf at offset.
	WriteBuffer(buf Buffer, offset uint64, data []byte) error

	// ReadBuffer copies the current contents of buf back to the host. Backends that cannot read back the buffer
	// return ErrReadbackUnsupported.
	ReadBuffer(buf Buffer) ([]byte, error)

	// CreateTexture allocates an uninitialised 2-D texture.
	CreateTexture(desc TextureDescriptor) (Texture, error)

	// WriteTexture uploads tightly packed rows of pixel data into the whole of tex.
	WriteTexture(tex Texture, pixels []byte, bytesPerRow uint32) error

	// CreateSampler creates a sampler.
	CreateSampler(desc SamplerDescriptor) (Sampler, error)

	// CreateBindGroupLayout creates a bind group layout from entries in slot order.
	CreateBindGroupLayout(label string, entries []LayoutEntry) (BindGroupLayout, error)

	// CreateBindGroup binds live resources to the slots of layout.
	CreateBindGroup(label string, layout BindGroupLayout, entries []BindGroupEntry) (BindGroup, error)

	// CreateShaderModule compiles WGSL source.
	CreateShaderModule(label, source string) (ShaderModule, error)

	// CreateRenderPipeline compiles a render pipeline.
	CreateRenderPipeline(desc RenderPipelineDescriptor) (RenderPipeline, error)

	// ConfigureSurface sizes the presentable surface. The backend may fall back to a different format if the
	// requested one is not supported; SurfaceFormat reports the format in use.
	ConfigureSurface(width, height uint32, format wgpu.TextureFormat) error

	// SurfaceFormat returns the configured surface format.
	SurfaceFormat() wgpu.TextureFormat

	// AcquireSurfaceView acquires the current presentable texture and returns a view of it.
	AcquireSurfaceView() (TextureView, error)

	// Present presents the acquired surface texture.
	Present()

	// CreateCommandEncoder creates an encoder for one frame's worth of passes.
	CreateCommandEncoder(label string) (CommandEncoder, error)

	// Submit submits a finished command buffer to the queue.
	Submit(cb CommandBuffer) error

	// Release frees the device and surface.
	Release()
}
