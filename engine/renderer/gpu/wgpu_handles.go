package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// The wgpu* types wrap the native binding objects so they satisfy the backend-neutral handle interfaces.

type wgpuBuffer struct {
	label  string
	size   uint64
	usage  wgpu.BufferUsage
	native *wgpu.Buffer
}

var _ Buffer = &wgpuBuffer{}

func (b *wgpuBuffer) Label() string           { return b.label }
func (b *wgpuBuffer) Size() uint64            { return b.size }
func (b *wgpuBuffer) Usage() wgpu.BufferUsage { return b.usage }

func (b *wgpuBuffer) Release() {
	if b.native != nil {
		b.native.Release()
		b.native = nil
	}
}

type wgpuTexture struct {
	desc   TextureDescriptor
	native *wgpu.Texture
	// owned is false for surface textures, which are released by Present.
	owned bool
}

var _ Texture = &wgpuTexture{}

func (t *wgpuTexture) Label() string              { return t.desc.Label }
func (t *wgpuTexture) Width() uint32              { return t.desc.Width }
func (t *wgpuTexture) Height() uint32             { return t.desc.Height }
func (t *wgpuTexture) DepthOrArrayLayers() uint32 { return 1 }
func (t *wgpuTexture) Format() wgpu.TextureFormat { return t.desc.Format }
func (t *wgpuTexture) Usage() wgpu.TextureUsage   { return t.desc.Usage }

func (t *wgpuTexture) CreateView() (TextureView, error) {
	view, err := t.native.CreateView(nil)
	if err != nil {
		return nil, err
	}
	return &wgpuTextureView{texture: t, native: view}, nil
}

func (t *wgpuTexture) Release() {
	if t.native != nil && t.owned {
		t.native.Release()
	}
	t.native = nil
}

type wgpuTextureView struct {
	texture *wgpuTexture
	native  *wgpu.TextureView
}

var _ TextureView = &wgpuTextureView{}

func (v *wgpuTextureView) Texture() Texture { return v.texture }

func (v *wgpuTextureView) Release() {
	if v.native != nil {
		v.native.Release()
		v.native = nil
	}
}

type wgpuSampler struct {
	label      string
	comparison bool
	native     *wgpu.Sampler
}

var _ Sampler = &wgpuSampler{}

func (s *wgpuSampler) Label() string      { return s.label }
func (s *wgpuSampler) IsComparison() bool { return s.comparison }

func (s *wgpuSampler) Release() {
	if s.native != nil {
		s.native.Release()
		s.native = nil
	}
}

type wgpuBindGroupLayout struct {
	label   string
	entries []LayoutEntry
	native  *wgpu.BindGroupLayout
}

var _ BindGroupLayout = &wgpuBindGroupLayout{}

func (l *wgpuBindGroupLayout) Label() string          { return l.label }
func (l *wgpuBindGroupLayout) Entries() []LayoutEntry { return l.entries }
func (l *wgpuBindGroupLayout) SlotCount() int         { return len(l.entries) }

func (l *wgpuBindGroupLayout) Release() {
	if l.native != nil {
		l.native.Release()
		l.native = nil
	}
}

type wgpuBindGroup struct {
	label  string
	layout *wgpuBindGroupLayout
	native *wgpu.BindGroup
}

var _ BindGroup = &wgpuBindGroup{}

func (g *wgpuBindGroup) Label() string            { return g.label }
func (g *wgpuBindGroup) Layout() BindGroupLayout { return g.layout }

func (g *wgpuBindGroup) Release() {
	if g.native != nil {
		g.native.Release()
		g.native = nil
	}
}

type wgpuShaderModule struct {
	label  string
	native *wgpu.ShaderModule
}

var _ ShaderModule = &wgpuShaderModule{}

func (m *wgpuShaderModule) Label() string { return m.label }

func (m *wgpuShaderModule) Release() {
	if m.native != nil {
		m.native.Release()
		m.native = nil
	}
}

type wgpuRenderPipeline struct {
	label  string
	layout *wgpu.PipelineLayout
	native *wgpu.RenderPipeline
}

var _ RenderPipeline = &wgpuRenderPipeline{}

func (p *wgpuRenderPipeline) Label() string { return p.label }

func (p *wgpuRenderPipeline) Release() {
	if p.native != nil {
		p.native.Release()
		p.native = nil
	}
	if p.layout != nil {
		p.layout.Release()
		p.layout = nil
	}
}

type wgpuCommandBuffer struct {
	native *wgpu.CommandBuffer
}

var _ CommandBuffer = &wgpuCommandBuffer{}

func (c *wgpuCommandBuffer) Release() {
	if c.native != nil {
		c.native.Release()
		c.native = nil
	}
}

type wgpuCommandEncoder struct {
	native *wgpu.CommandEncoder
	open   *wgpuRenderPass
	err    error
}

var _ CommandEncoder = &wgpuCommandEncoder{}

func (e *wgpuCommandEncoder) BeginRenderPass(desc RenderPassDescriptor) (RenderPass, error) {
	if e.open != nil {
		return nil, errPassStillOpen
	}

	colors := make([]wgpu.RenderPassColorAttachment, len(desc.ColorAttachments))
	for i, c := range desc.ColorAttachments {
		view, ok := c.View.(*wgpuTextureView)
		if !ok {
			return nil, ErrForeignHandle
		}
		colors[i] = wgpu.RenderPassColorAttachment{
			View:       view.native,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: c.ClearValue,
		}
	}

	rp := &wgpu.RenderPassDescriptor{
		Label:            desc.Label,
		ColorAttachments: colors,
	}
	if desc.DepthAttachment != nil {
		view, ok := desc.DepthAttachment.View.(*wgpuTextureView)
		if !ok {
			return nil, ErrForeignHandle
		}
		rp.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            view.native,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: desc.DepthAttachment.ClearValue,
		}
	}

	e.open = &wgpuRenderPass{encoder: e, native: e.native.BeginRenderPass(rp)}
	return e.open, nil
}

func (e *wgpuCommandEncoder) Finish() (CommandBuffer, error) {
	if e.open != nil {
		return nil, errPassStillOpen
	}
	if e.err != nil {
		return nil, e.err
	}
	cb, err := e.native.Finish(nil)
	if err != nil {
		return nil, err
	}
	return &wgpuCommandBuffer{native: cb}, nil
}

func (e *wgpuCommandEncoder) Release() {
	if e.native != nil {
		e.native.Release()
		e.native = nil
	}
}

// fail records the first error raised while recording; it is reported from Finish.
func (e *wgpuCommandEncoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

type wgpuRenderPass struct {
	encoder *wgpuCommandEncoder
	native  *wgpu.RenderPassEncoder
}

var _ RenderPass = &wgpuRenderPass{}

func (p *wgpuRenderPass) SetPipeline(rp RenderPipeline) {
	native, ok := rp.(*wgpuRenderPipeline)
	if !ok {
		p.encoder.fail(ErrForeignHandle)
		return
	}
	p.native.SetPipeline(native.native)
}

func (p *wgpuRenderPass) SetBindGroup(index uint32, group BindGroup) {
	native, ok := group.(*wgpuBindGroup)
	if !ok {
		p.encoder.fail(ErrForeignHandle)
		return
	}
	p.native.SetBindGroup(index, native.native, nil)
}

func (p *wgpuRenderPass) SetVertexBuffer(slot uint32, buf Buffer) {
	native, ok := buf.(*wgpuBuffer)
	if !ok {
		p.encoder.fail(ErrForeignHandle)
		return
	}
	p.native.SetVertexBuffer(slot, native.native, 0, wgpu.WholeSize)
}

func (p *wgpuRenderPass) SetIndexBuffer(buf Buffer, format wgpu.IndexFormat) {
	native, ok := buf.(*wgpuBuffer)
	if !ok {
		p.encoder.fail(ErrForeignHandle)
		return
	}
	p.native.SetIndexBuffer(native.native, format, 0, wgpu.WholeSize)
}

func (p *wgpuRenderPass) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	p.native.SetViewport(x, y, width, height, minDepth, maxDepth)
}

func (p *wgpuRenderPass) DrawIndexed(indexCount, instanceCount uint32) {
	p.native.DrawIndexed(indexCount, instanceCount, 0, 0, 0)
}

func (p *wgpuRenderPass) End() error {
	p.native.End()
	p.native.Release()
	p.encoder.open = nil
	return nil
}
