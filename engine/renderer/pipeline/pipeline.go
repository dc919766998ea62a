// Package pipeline builds immutable render pipelines from shaders, bind group layouts, vertex formats and
// attachment formats, checking the shaders' reflected requirements against the supplied layouts first.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrNoVertexShader is returned when a pipeline is built without a vertex stage.
	ErrNoVertexShader = errors.New("pipeline: vertex shader required")

	// ErrStageMismatch is returned when a shader is supplied for the wrong stage.
	ErrStageMismatch = errors.New("pipeline: shader supplied for the wrong stage")

	// ErrColorTargetsWithoutFragment is returned when color targets are declared on a depth-only pipeline.
	ErrColorTargetsWithoutFragment = errors.New("pipeline: color targets require a fragment shader")

	// ErrNoAttachments is returned when a depth-only pipeline has no depth format or a fragment stage has no
	// color targets.
	ErrNoAttachments = errors.New("pipeline: stage has nothing to write")

	// ErrUnknownVertexFormat is returned when a vertex format has no known byte size.
	ErrUnknownVertexFormat = errors.New("pipeline: unknown vertex format")

	// ErrVertexInputMismatch is returned when the vertex shader consumes a location the vertex layout does not
	// provide in the same format.
	ErrVertexInputMismatch = errors.New("pipeline: vertex shader input not provided by vertex layout")

	// ErrShaderLayoutMismatch is returned when a shader declares a binding the bind group layouts do not provide
	// with the same kind, type and stage visibility.
	ErrShaderLayoutMismatch = errors.New("pipeline: shader binding not provided by bind group layouts")
)

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	label string

	layouts        []gpu.BindGroupLayout
	vertexShader   shader.Shader
	fragmentShader shader.Shader
	vertexFormats  []wgpu.VertexFormat
	vertexBuffers  []gpu.VertexBufferLayout
	colorTargets   []wgpu.TextureFormat
	depthStencil   *gpu.DepthStencilState

	topology  wgpu.PrimitiveTopology
	cullMode  wgpu.CullMode
	frontFace wgpu.FrontFace

	vertexModule   gpu.ShaderModule
	fragmentModule gpu.ShaderModule
	native         gpu.RenderPipeline
}

// Pipeline defines the interface for an immutable render pipeline and the configuration it was created from.
type Pipeline interface {
	// Label returns the debug label of the pipeline.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Native returns the backend pipeline handle to bind with RenderPass.SetPipeline.
	//
	// Returns:
	//   - gpu.RenderPipeline: the backend handle
	Native() gpu.RenderPipeline

	// BindGroupLayouts returns the layouts in group index order.
	//
	// Returns:
	//   - []gpu.BindGroupLayout: layout i describes @group(i)
	BindGroupLayouts() []gpu.BindGroupLayout

	// VertexBuffers returns the vertex buffer layouts, empty when the pipeline takes no vertex buffers.
	//
	// Returns:
	//   - []gpu.VertexBufferLayout: one layout per vertex buffer slot
	VertexBuffers() []gpu.VertexBufferLayout

	// ColorTargets returns the color attachment formats in location order.
	//
	// Returns:
	//   - []wgpu.TextureFormat: the color formats
	ColorTargets() []wgpu.TextureFormat

	// DepthStencil returns the depth configuration, nil when the pipeline has no depth attachment.
	//
	// Returns:
	//   - *gpu.DepthStencilState: the depth state or nil
	DepthStencil() *gpu.DepthStencilState

	// DepthOnly reports whether the pipeline has no fragment stage.
	//
	// Returns:
	//   - bool: true for depth-only pipelines
	DepthOnly() bool

	// Topology returns the primitive topology.
	Topology() wgpu.PrimitiveTopology

	// CullMode returns the face culling mode.
	CullMode() wgpu.CullMode

	// Release frees the backend pipeline and its shader modules.
	Release()
}

var _ Pipeline = &pipeline{}

// NewRenderPipeline creates a render pipeline on b. The entry points are fixed to vertexMain and fragmentMain.
// Without a fragment shader the pipeline is depth-only and must carry a depth format. Before anything is created
// on the backend, every binding either shader declares must exist in the layouts with the same kind, type and a
// visibility that includes the declaring stage, and every vertex input must be provided by the vertex formats.
//
// Parameters:
//   - b: the backend to create on
//   - label: debug label
//   - options: functional options
//
// Returns:
//   - Pipeline: the created pipeline
//   - error: a configuration error from this package or a backend error
func NewRenderPipeline(b gpu.Backend, label string, options ...PipelineBuilderOption) (Pipeline, error) {
	if b == nil {
		return nil, resource.ErrNoDevice
	}
	p := &pipeline{
		label:     label,
		topology:  wgpu.PrimitiveTopologyTriangleList,
		cullMode:  wgpu.CullModeBack,
		frontFace: wgpu.FrontFaceCCW,
	}
	for _, opt := range options {
		opt(p)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", label, err)
	}

	var err error
	p.vertexModule, err = b.CreateShaderModule(p.vertexShader.Key(), p.vertexShader.Source())
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: vertex module: %w", label, err)
	}
	if p.fragmentShader != nil {
		p.fragmentModule, err = b.CreateShaderModule(p.fragmentShader.Key(), p.fragmentShader.Source())
		if err != nil {
			p.Release()
			return nil, fmt.Errorf("pipeline %s: fragment module: %w", label, err)
		}
	}

	desc := gpu.RenderPipelineDescriptor{
		Label:            label,
		BindGroupLayouts: p.layouts,
		Vertex:           p.vertexModule,
		VertexEntryPoint: gpu.ShaderEntryVertex,
		VertexBuffers:    p.vertexBuffers,
		ColorTargets:     p.colorTargets,
		DepthStencil:     p.depthStencil,
		Topology:         p.topology,
		FrontFace:        p.frontFace,
		CullMode:         p.cullMode,
	}
	if p.fragmentModule != nil {
		desc.Fragment = p.fragmentModule
		desc.FragmentEntryPoint = gpu.ShaderEntryFragment
	}
	p.native, err = b.CreateRenderPipeline(desc)
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("pipeline %s: %w", label, err)
	}
	return p, nil
}

// validate checks the option combination and the shaders' reflected requirements, and derives the vertex buffer
// layout.
func (p *pipeline) validate() error {
	if p.vertexShader == nil {
		return ErrNoVertexShader
	}
	if p.vertexShader.ShaderType() != shader.ShaderTypeVertex {
		return fmt.Errorf("%s as vertex: %w", p.vertexShader.Key(), ErrStageMismatch)
	}
	if p.fragmentShader == nil {
		if len(p.colorTargets) > 0 {
			return ErrColorTargetsWithoutFragment
		}
		if p.depthStencil == nil {
			return fmt.Errorf("depth-only pipeline: %w", ErrNoAttachments)
		}
	} else {
		if p.fragmentShader.ShaderType() != shader.ShaderTypeFragment {
			return fmt.Errorf("%s as fragment: %w", p.fragmentShader.Key(), ErrStageMismatch)
		}
		if len(p.colorTargets) == 0 {
			return fmt.Errorf("fragment stage without color targets: %w", ErrNoAttachments)
		}
	}

	if len(p.vertexFormats) > 0 {
		layout, err := VertexBufferLayout(p.vertexFormats)
		if err != nil {
			return err
		}
		p.vertexBuffers = []gpu.VertexBufferLayout{layout}
	}
	if err := p.checkVertexInputs(); err != nil {
		return err
	}

	for _, s := range []shader.Shader{p.vertexShader, p.fragmentShader} {
		if s == nil {
			continue
		}
		if err := p.checkBindings(s); err != nil {
			return err
		}
	}
	return nil
}

func (p *pipeline) checkVertexInputs() error {
	provided := make(map[uint32]wgpu.VertexFormat)
	for _, vb := range p.vertexBuffers {
		for _, a := range vb.Attributes {
			provided[a.ShaderLocation] = a.Format
		}
	}
	for loc, want := range p.vertexShader.VertexInputs() {
		got, ok := provided[loc]
		if !ok {
			return fmt.Errorf("%s location %d: %w", p.vertexShader.Key(), loc, ErrVertexInputMismatch)
		}
		if got != want {
			return fmt.Errorf("%s location %d is %v, layout provides %v: %w", p.vertexShader.Key(), loc, want, got, ErrVertexInputMismatch)
		}
	}
	return nil
}

func (p *pipeline) checkBindings(s shader.Shader) error {
	for _, decl := range s.Bindings() {
		if int(decl.Group) >= len(p.layouts) {
			return fmt.Errorf("%s declares %s at group %d, pipeline has %d layouts: %w", s.Key(), decl.Name, decl.Group, len(p.layouts), ErrShaderLayoutMismatch)
		}
		layout := p.layouts[decl.Group]
		slot, ok := findSlot(layout, decl.Entry.Binding)
		if !ok {
			return fmt.Errorf("%s declares %s at (%d, %d), layout %s has no such slot: %w", s.Key(), decl.Name, decl.Group, decl.Entry.Binding, layout.Label(), ErrShaderLayoutMismatch)
		}
		want := decl.Entry
		if slot.Kind != want.Kind || slot.Buffer != want.Buffer || slot.Sampler != want.Sampler || slot.Texture != want.Texture {
			return fmt.Errorf("%s declares %s at (%d, %d) as %v, layout %s disagrees: %w", s.Key(), decl.Name, decl.Group, want.Binding, want.Kind, layout.Label(), ErrShaderLayoutMismatch)
		}
		if slot.Visibility&want.Visibility == 0 {
			return fmt.Errorf("%s declares %s at (%d, %d), layout %s hides it from the %s stage: %w", s.Key(), decl.Name, decl.Group, want.Binding, layout.Label(), s.ShaderType(), ErrShaderLayoutMismatch)
		}
	}
	return nil
}

func findSlot(layout gpu.BindGroupLayout, binding uint32) (gpu.LayoutEntry, bool) {
	for _, e := range layout.Entries() {
		if e.Binding == binding {
			return e, true
		}
	}
	return gpu.LayoutEntry{}, false
}

// VertexBufferLayout derives a tightly packed vertex buffer layout from an ordered list of attribute formats.
// Attribute i sits at shader location i with an offset equal to the summed sizes of the formats before it; the
// array stride is the sum of all sizes.
//
// Parameters:
//   - formats: the attribute formats in location order
//
// Returns:
//   - gpu.VertexBufferLayout: the derived layout
//   - error: ErrUnknownVertexFormat if a format has no known size
func VertexBufferLayout(formats []wgpu.VertexFormat) (gpu.VertexBufferLayout, error) {
	layout := gpu.VertexBufferLayout{Attributes: make([]gpu.VertexAttribute, len(formats))}
	var offset uint64
	for i, f := range formats {
		size, ok := gpu.VertexFormatSize(f)
		if !ok {
			return gpu.VertexBufferLayout{}, fmt.Errorf("attribute %d format %v: %w", i, f, ErrUnknownVertexFormat)
		}
		layout.Attributes[i] = gpu.VertexAttribute{
			Format:         f,
			Offset:         offset,
			ShaderLocation: uint32(i),
		}
		offset += size
	}
	layout.ArrayStride = offset
	return layout, nil
}

func (p *pipeline) Label() string { return p.label }

func (p *pipeline) Native() gpu.RenderPipeline { return p.native }

func (p *pipeline) BindGroupLayouts() []gpu.BindGroupLayout { return p.layouts }

func (p *pipeline) VertexBuffers() []gpu.VertexBufferLayout { return p.vertexBuffers }

func (p *pipeline) ColorTargets() []wgpu.TextureFormat { return p.colorTargets }

func (p *pipeline) DepthStencil() *gpu.DepthStencilState { return p.depthStencil }

func (p *pipeline) DepthOnly() bool { return p.fragmentShader == nil }

func (p *pipeline) Topology() wgpu.PrimitiveTopology { return p.topology }

func (p *pipeline) CullMode() wgpu.CullMode { return p.cullMode }

func (p *pipeline) Release() {
	if p.native != nil {
		p.native.Release()
		p.native = nil
	}
	if p.fragmentModule != nil {
		p.fragmentModule.Release()
		p.fragmentModule = nil
	}
	if p.vertexModule != nil {
		p.vertexModule.Release()
		p.vertexModule = nil
	}
}
