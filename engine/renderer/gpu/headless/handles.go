package headless

import (
	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

type buffer struct {
	owner    *Backend
	label    string
	size     uint64
	usage    wgpu.BufferUsage
	data     []byte
	released bool
}

var _ gpu.Buffer = &buffer{}

func (b *buffer) Label() string           { return b.label }
func (b *buffer) Size() uint64            { return b.size }
func (b *buffer) Usage() wgpu.BufferUsage { return b.usage }
func (b *buffer) Release()                { b.released = true }

type texture struct {
	owner *Backend
	desc  gpu.TextureDescriptor
	// uploaded is set once the host has written the texture's contents through WriteTexture.
	uploaded bool
	released bool
}

var _ gpu.Texture = &texture{}

func (t *texture) Label() string              { return t.desc.Label }
func (t *texture) Width() uint32              { return t.desc.Width }
func (t *texture) Height() uint32             { return t.desc.Height }
func (t *texture) DepthOrArrayLayers() uint32 { return 1 }
func (t *texture) Format() wgpu.TextureFormat { return t.desc.Format }
func (t *texture) Usage() wgpu.TextureUsage   { return t.desc.Usage }
func (t *texture) Release()                   { t.released = true }

func (t *texture) CreateView() (gpu.TextureView, error) {
	if t.released {
		return nil, validationf("create view of released texture %q", t.desc.Label)
	}
	return &textureView{texture: t}, nil
}

type textureView struct {
	texture  *texture
	released bool
}

var _ gpu.TextureView = &textureView{}

func (v *textureView) Texture() gpu.Texture { return v.texture }
func (v *textureView) Release()             { v.released = true }

type sampler struct {
	owner      *Backend
	label      string
	comparison bool
}

var _ gpu.Sampler = &sampler{}

func (s *sampler) Label() string      { return s.label }
func (s *sampler) IsComparison() bool { return s.comparison }
func (s *sampler) Release()           {}

type bindGroupLayout struct {
	owner   *Backend
	label   string
	entries []gpu.LayoutEntry
}

var _ gpu.BindGroupLayout = &bindGroupLayout{}

func (l *bindGroupLayout) Label() string              { return l.label }
func (l *bindGroupLayout) Entries() []gpu.LayoutEntry { return l.entries }
func (l *bindGroupLayout) SlotCount() int             { return len(l.entries) }
func (l *bindGroupLayout) Release()                   {}

type bindGroup struct {
	owner   *Backend
	label   string
	layout  *bindGroupLayout
	entries []gpu.BindGroupEntry
}

var _ gpu.BindGroup = &bindGroup{}

func (g *bindGroup) Label() string               { return g.label }
func (g *bindGroup) Layout() gpu.BindGroupLayout { return g.layout }
func (g *bindGroup) Release()                    {}

// sampledTextures returns the textures the group exposes to shaders.
func (g *bindGroup) sampledTextures() []*texture {
	var out []*texture
	for _, e := range g.entries {
		if e.Kind == gpu.ResourceKindTexture {
			out = append(out, e.TextureView.(*textureView).texture)
		}
	}
	return out
}

type shaderModule struct {
	owner  *Backend
	label  string
	source string
}

var _ gpu.ShaderModule = &shaderModule{}

func (m *shaderModule) Label() string { return m.label }
func (m *shaderModule) Release()      {}

type renderPipeline struct {
	owner   *Backend
	desc    gpu.RenderPipelineDescriptor
	layouts []*bindGroupLayout
}

var _ gpu.RenderPipeline = &renderPipeline{}

func (p *renderPipeline) Label() string { return p.desc.Label }
func (p *renderPipeline) Release()      {}

type commandBuffer struct {
	owner     *Backend
	passes    []PassRecord
	submitted bool
}

var _ gpu.CommandBuffer = &commandBuffer{}

func (c *commandBuffer) Release() {}
