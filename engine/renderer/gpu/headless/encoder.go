package headless

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// commandEncoder records passes sequentially. The first error raised while recording invalidates the encoder and is
// returned from Finish, matching WebGPU's deferred error reporting.
type commandEncoder struct {
	owner    *Backend
	label    string
	passes   []PassRecord
	open     *renderPass
	finished bool
	err      error

	// written holds the attachments of every pass ended so far in this encoder.
	written map[*texture]bool
}

var _ gpu.CommandEncoder = &commandEncoder{}

func (e *commandEncoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *commandEncoder) BeginRenderPass(desc gpu.RenderPassDescriptor) (gpu.RenderPass, error) {
	if e.finished {
		return nil, validationf("encoder %q used after finish", e.label)
	}
	if e.open != nil {
		err := validationf("pass %q begun while pass %q is open", desc.Label, e.open.record.Label)
		e.fail(err)
		return nil, err
	}

	p, err := e.newPass(desc)
	if err != nil {
		e.fail(err)
		return nil, err
	}
	e.open = p
	return p, nil
}

func (e *commandEncoder) newPass(desc gpu.RenderPassDescriptor) (*renderPass, error) {
	if len(desc.ColorAttachments) == 0 && desc.DepthAttachment == nil {
		return nil, validationf("pass %q has no attachments", desc.Label)
	}

	p := &renderPass{
		encoder:     e,
		record:      PassRecord{Label: desc.Label},
		attachments: make(map[*texture]bool),
		groups:      make(map[uint32]*bindGroup),
		vertex:      make(map[uint32]*buffer),
	}

	var width, height uint32
	attach := func(v gpu.TextureView, role string) (*texture, error) {
		hv, ok := v.(*textureView)
		if !ok || hv.texture.owner != e.owner {
			return nil, gpu.ErrForeignHandle
		}
		t := hv.texture
		if hv.released || t.released {
			return nil, validationf("pass %q %s attachment %q is released", desc.Label, role, t.desc.Label)
		}
		if t.desc.Usage&wgpu.TextureUsageRenderAttachment == 0 {
			return nil, validationf("pass %q %s attachment %q lacks render-attachment usage", desc.Label, role, t.desc.Label)
		}
		if p.attachments[t] {
			return nil, validationf("pass %q attaches %q twice", desc.Label, t.desc.Label)
		}
		if width == 0 {
			width, height = t.desc.Width, t.desc.Height
		} else if t.desc.Width != width || t.desc.Height != height {
			return nil, validationf("pass %q attachment %q is %dx%d, expected %dx%d", desc.Label, t.desc.Label, t.desc.Width, t.desc.Height, width, height)
		}
		p.attachments[t] = true
		return t, nil
	}

	for _, c := range desc.ColorAttachments {
		t, err := attach(c.View, "color")
		if err != nil {
			return nil, err
		}
		if gpu.IsDepthFormat(t.desc.Format) {
			return nil, validationf("pass %q color attachment %q has depth format %v", desc.Label, t.desc.Label, t.desc.Format)
		}
		p.colorFormats = append(p.colorFormats, t.desc.Format)
		p.record.ColorTargets = append(p.record.ColorTargets, t)
	}
	if desc.DepthAttachment != nil {
		t, err := attach(desc.DepthAttachment.View, "depth")
		if err != nil {
			return nil, err
		}
		if !gpu.IsDepthFormat(t.desc.Format) {
			return nil, validationf("pass %q depth attachment %q has color format %v", desc.Label, t.desc.Label, t.desc.Format)
		}
		p.depthFormat = t.desc.Format
		p.record.DepthTarget = t
	}
	p.width, p.height = width, height
	return p, nil
}

func (e *commandEncoder) Finish() (gpu.CommandBuffer, error) {
	if e.finished {
		return nil, validationf("encoder %q finished twice", e.label)
	}
	e.finished = true
	if e.open != nil {
		e.fail(validationf("encoder %q finished while pass %q is open", e.label, e.open.record.Label))
	}
	if e.err != nil {
		return nil, e.err
	}
	return &commandBuffer{owner: e.owner, passes: e.passes}, nil
}

func (e *commandEncoder) Release() {}

type renderPass struct {
	encoder *commandEncoder
	record  PassRecord
	ended   bool

	width, height uint32
	colorFormats  []wgpu.TextureFormat
	depthFormat   wgpu.TextureFormat
	attachments   map[*texture]bool

	pipeline    *renderPipeline
	groups      map[uint32]*bindGroup
	vertex      map[uint32]*buffer
	index       *buffer
	indexFormat wgpu.IndexFormat
}

var _ gpu.RenderPass = &renderPass{}

func (p *renderPass) SetPipeline(rp gpu.RenderPipeline) {
	hp, ok := rp.(*renderPipeline)
	if !ok || hp.owner != p.encoder.owner {
		p.encoder.fail(gpu.ErrForeignHandle)
		return
	}
	if !slices.Equal(hp.desc.ColorTargets, p.colorFormats) {
		p.encoder.fail(validationf("pipeline %q targets %v, pass %q has %v", hp.desc.Label, hp.desc.ColorTargets, p.record.Label, p.colorFormats))
		return
	}

	pipelineDepth := wgpu.TextureFormatUndefined
	if hp.desc.DepthStencil != nil {
		pipelineDepth = hp.desc.DepthStencil.Format
	}
	if pipelineDepth != p.depthFormat {
		p.encoder.fail(validationf("pipeline %q depth format %v does not match pass %q depth format %v", hp.desc.Label, pipelineDepth, p.record.Label, p.depthFormat))
		return
	}
	p.pipeline = hp
}

func (p *renderPass) SetBindGroup(index uint32, group gpu.BindGroup) {
	hg, ok := group.(*bindGroup)
	if !ok || hg.owner != p.encoder.owner {
		p.encoder.fail(gpu.ErrForeignHandle)
		return
	}
	p.groups[index] = hg
}

func (p *renderPass) SetVertexBuffer(slot uint32, buf gpu.Buffer) {
	hb, err := p.encoder.owner.buffer(buf)
	if err != nil {
		p.encoder.fail(err)
		return
	}
	if hb.usage&wgpu.BufferUsageVertex == 0 {
		p.encoder.fail(validationf("buffer %q bound as vertex buffer without vertex usage", hb.label))
		return
	}
	p.vertex[slot] = hb
}

func (p *renderPass) SetIndexBuffer(buf gpu.Buffer, format wgpu.IndexFormat) {
	hb, err := p.encoder.owner.buffer(buf)
	if err != nil {
		p.encoder.fail(err)
		return
	}
	if hb.usage&wgpu.BufferUsageIndex == 0 {
		p.encoder.fail(validationf("buffer %q bound as index buffer without index usage", hb.label))
		return
	}
	p.index = hb
	p.indexFormat = format
}

func (p *renderPass) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	if x < 0 || y < 0 || width <= 0 || height <= 0 ||
		x+width > float32(p.width) || y+height > float32(p.height) {
		p.encoder.fail(validationf("viewport %vx%v at (%v,%v) exceeds pass %q attachments %dx%d", width, height, x, y, p.record.Label, p.width, p.height))
		return
	}
	if minDepth < 0 || maxDepth > 1 || minDepth > maxDepth {
		p.encoder.fail(validationf("viewport depth range [%v,%v] is invalid", minDepth, maxDepth))
	}
}

func (p *renderPass) DrawIndexed(indexCount, instanceCount uint32) {
	if err := p.validateDraw(indexCount); err != nil {
		p.encoder.fail(err)
		return
	}

	groups := make([]string, len(p.pipeline.layouts))
	for i := range p.pipeline.layouts {
		groups[i] = p.groups[uint32(i)].label
	}
	p.record.Draws = append(p.record.Draws, DrawRecord{
		Pipeline:      p.pipeline.desc.Label,
		BindGroups:    groups,
		IndexCount:    indexCount,
		InstanceCount: instanceCount,
	})
}

func (p *renderPass) validateDraw(indexCount uint32) error {
	if p.ended {
		return validationf("draw recorded on ended pass %q", p.record.Label)
	}
	if p.pipeline == nil {
		return validationf("draw in pass %q without a pipeline", p.record.Label)
	}
	label := p.pipeline.desc.Label

	for i, want := range p.pipeline.layouts {
		got, ok := p.groups[uint32(i)]
		if !ok {
			return validationf("pipeline %q expects bind group %d, none bound in pass %q", label, i, p.record.Label)
		}
		if got.layout != want && !slices.Equal(got.layout.entries, want.entries) {
			return validationf("bind group %q at index %d does not match layout %q of pipeline %q", got.label, i, want.label, label)
		}
		for _, t := range got.sampledTextures() {
			if p.attachments[t] {
				return validationf("texture %q is sampled and attached in pass %q", t.desc.Label, p.record.Label)
			}
			if !t.uploaded && !p.encoder.written[t] {
				return validationf("texture %q is sampled in pass %q before any pass in this encoder wrote it", t.desc.Label, p.record.Label)
			}
		}
	}

	for slot, vb := range p.pipeline.desc.VertexBuffers {
		buf, ok := p.vertex[uint32(slot)]
		if !ok {
			return validationf("pipeline %q expects a vertex buffer at slot %d", label, slot)
		}
		if buf.size < vb.ArrayStride {
			return validationf("vertex buffer %q is smaller than one vertex of stride %d", buf.label, vb.ArrayStride)
		}
	}

	if p.index == nil {
		return validationf("indexed draw in pass %q without an index buffer", p.record.Label)
	}
	indexSize := uint64(4)
	if p.indexFormat == wgpu.IndexFormatUint16 {
		indexSize = 2
	}
	if uint64(indexCount)*indexSize > p.index.size {
		return validationf("draw of %d indices overruns index buffer %q of %d bytes", indexCount, p.index.label, p.index.size)
	}
	return nil
}

func (p *renderPass) End() error {
	if p.ended {
		return validationf("pass %q ended twice", p.record.Label)
	}
	p.ended = true

	e := p.encoder
	for t := range p.attachments {
		e.written[t] = true
	}
	e.passes = append(e.passes, p.record)
	e.open = nil
	return nil
}
