// Package headless provides a GPU-free gpu.Backend. It keeps buffer contents in host memory, records every render
// pass and draw, and performs the validation a WebGPU implementation performs for the resources and passes this
// renderer uses. Validation failures wrap ErrValidation.
package headless

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
	log "github.com/sirupsen/logrus"
)

// ErrValidation is wrapped by every error the headless backend raises for invalid API usage.
var ErrValidation = errors.New("headless: validation error")

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// DrawRecord is one recorded indexed draw.
type DrawRecord struct {
	Pipeline      string
	BindGroups    []string
	IndexCount    uint32
	InstanceCount uint32
}

// PassRecord is one recorded render pass.
type PassRecord struct {
	Label        string
	ColorTargets []gpu.Texture
	DepthTarget  gpu.Texture
	Draws        []DrawRecord
}

// Backend is the headless gpu.Backend.
type Backend struct {
	logger           *log.Entry
	supportedFormats []wgpu.TextureFormat

	surfaceFormat wgpu.TextureFormat
	surfaceWidth  uint32
	surfaceHeight uint32
	surface       *texture
	acquired      bool

	submitted  []*commandBuffer
	presents   int
	lastWriter map[*texture]string
}

var _ gpu.Backend = &Backend{}

// BackendOption configures the headless backend.
type BackendOption func(*Backend)

// WithLogger sets the log entry the backend reports recorded passes to.
func WithLogger(entry *log.Entry) BackendOption {
	return func(b *Backend) {
		b.logger = entry
	}
}

// WithSupportedSurfaceFormats sets the formats the simulated surface accepts, in preference order.
// Defaults to RGBA8Unorm and BGRA8Unorm.
func WithSupportedSurfaceFormats(formats ...wgpu.TextureFormat) BackendOption {
	return func(b *Backend) {
		b.supportedFormats = formats
	}
}

// NewBackend creates a headless backend.
//
// Parameters:
//   - opts: functional options
//
// Returns:
//   - *Backend: the headless backend
func NewBackend(opts ...BackendOption) *Backend {
	b := &Backend{
		logger:           log.WithField("component", "headless"),
		supportedFormats: []wgpu.TextureFormat{wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatBGRA8Unorm},
		lastWriter:       make(map[*texture]string),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Submits returns the number of command buffers submitted so far.
func (b *Backend) Submits() int {
	return len(b.submitted)
}

// Presents returns the number of surface textures presented so far.
func (b *Backend) Presents() int {
	return b.presents
}

// Passes returns the passes of the most recently submitted command buffer, in recording order.
func (b *Backend) Passes() []PassRecord {
	if len(b.submitted) == 0 {
		return nil
	}
	return b.submitted[len(b.submitted)-1].passes
}

// SurfaceTexture returns the most recently acquired surface texture, or nil if none was acquired.
func (b *Backend) SurfaceTexture() gpu.Texture {
	if b.surface == nil {
		return nil
	}
	return b.surface
}

// LastWriter returns the label of the last submitted pass that wrote tex as an attachment, or "" if no submitted
// pass has written it.
func (b *Backend) LastWriter(tex gpu.Texture) string {
	t, ok := tex.(*texture)
	if !ok {
		return ""
	}
	return b.lastWriter[t]
}

func (b *Backend) CreateBuffer(desc gpu.BufferDescriptor) (gpu.Buffer, error) {
	if desc.Size == 0 {
		return nil, validationf("buffer %q has zero size", desc.Label)
	}
	if desc.Usage == wgpu.BufferUsageNone {
		return nil, validationf("buffer %q has no usage", desc.Label)
	}
	return &buffer{
		owner: b,
		label: desc.Label,
		size:  desc.Size,
		usage: desc.Usage,
		data:  make([]byte, desc.Size),
	}, nil
}

func (b *Backend) WriteBuffer(buf gpu.Buffer, offset uint64, data []byte) error {
	hb, err := b.buffer(buf)
	if err != nil {
		return err
	}
	if hb.usage&wgpu.BufferUsageCopyDst == 0 {
		return validationf("write to buffer %q without copy-dst usage", hb.label)
	}
	if offset%4 != 0 || len(data)%4 != 0 {
		return validationf("write to buffer %q is not 4-byte aligned (offset %d, size %d)", hb.label, offset, len(data))
	}
	if offset+uint64(len(data)) > hb.size {
		return validationf("write of %d bytes at offset %d overruns buffer %q of %d bytes", len(data), offset, hb.label, hb.size)
	}
	copy(hb.data[offset:], data)
	return nil
}

// ReadBuffer returns a copy of the buffer's current contents. Readback is always supported headless.
func (b *Backend) ReadBuffer(buf gpu.Buffer) ([]byte, error) {
	hb, err := b.buffer(buf)
	if err != nil {
		return nil, err
	}
	return slices.Clone(hb.data), nil
}

func (b *Backend) CreateTexture(desc gpu.TextureDescriptor) (gpu.Texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, validationf("texture %q has zero extent %dx%d", desc.Label, desc.Width, desc.Height)
	}
	if desc.Format == wgpu.TextureFormatUndefined {
		return nil, validationf("texture %q has undefined format", desc.Label)
	}
	if desc.Usage == wgpu.TextureUsageNone {
		return nil, validationf("texture %q has no usage", desc.Label)
	}
	return &texture{owner: b, desc: desc}, nil
}

func (b *Backend) WriteTexture(tex gpu.Texture, pixels []byte, bytesPerRow uint32) error {
	ht, err := b.texture(tex)
	if err != nil {
		return err
	}
	if ht.desc.Usage&wgpu.TextureUsageCopyDst == 0 {
		return validationf("write to texture %q without copy-dst usage", ht.desc.Label)
	}
	texel := gpu.BytesPerTexel(ht.desc.Format)
	if texel == 0 {
		return validationf("texture %q format %v cannot be written from the host", ht.desc.Label, ht.desc.Format)
	}
	rowBytes := ht.desc.Width * texel
	if bytesPerRow < rowBytes {
		return validationf("bytes per row %d is less than a row of texture %q (%d)", bytesPerRow, ht.desc.Label, rowBytes)
	}
	need := uint64(bytesPerRow)*uint64(ht.desc.Height-1) + uint64(rowBytes)
	if uint64(len(pixels)) < need {
		return validationf("texture %q upload needs %d bytes, got %d", ht.desc.Label, need, len(pixels))
	}
	ht.uploaded = true
	return nil
}

func (b *Backend) CreateSampler(desc gpu.SamplerDescriptor) (gpu.Sampler, error) {
	return &sampler{
		owner:      b,
		label:      desc.Label,
		comparison: desc.Compare != wgpu.CompareFunctionUndefined,
	}, nil
}

func (b *Backend) CreateBindGroupLayout(label string, entries []gpu.LayoutEntry) (gpu.BindGroupLayout, error) {
	seen := make(map[uint32]bool, len(entries))
	for _, e := range entries {
		if seen[e.Binding] {
			return nil, validationf("layout %q declares binding %d twice", label, e.Binding)
		}
		seen[e.Binding] = true

		if e.Visibility == wgpu.ShaderStageNone {
			return nil, validationf("layout %q binding %d is visible to no stage", label, e.Binding)
		}
		switch e.Kind {
		case gpu.ResourceKindBuffer:
			if e.Buffer == wgpu.BufferBindingTypeUndefined {
				return nil, validationf("layout %q binding %d has no buffer binding type", label, e.Binding)
			}
		case gpu.ResourceKindSampler:
			if e.Sampler == wgpu.SamplerBindingTypeUndefined {
				return nil, validationf("layout %q binding %d has no sampler binding type", label, e.Binding)
			}
		case gpu.ResourceKindTexture:
			if e.Texture == wgpu.TextureSampleTypeUndefined {
				return nil, validationf("layout %q binding %d has no texture sample type", label, e.Binding)
			}
		default:
			return nil, validationf("layout %q binding %d has unknown kind %v", label, e.Binding, e.Kind)
		}
	}
	return &bindGroupLayout{owner: b, label: label, entries: slices.Clone(entries)}, nil
}

func (b *Backend) CreateBindGroup(label string, layout gpu.BindGroupLayout, entries []gpu.BindGroupEntry) (gpu.BindGroup, error) {
	hl, ok := layout.(*bindGroupLayout)
	if !ok || hl.owner != b {
		return nil, gpu.ErrForeignHandle
	}
	if len(entries) != len(hl.entries) {
		return nil, validationf("bind group %q has %d entries, layout %q has %d slots", label, len(entries), hl.label, len(hl.entries))
	}

	slots := make(map[uint32]gpu.LayoutEntry, len(hl.entries))
	for _, e := range hl.entries {
		slots[e.Binding] = e
	}
	bound := make(map[uint32]bool, len(entries))

	for _, e := range entries {
		slot, ok := slots[e.Binding]
		if !ok {
			return nil, validationf("bind group %q binds %d which layout %q does not declare", label, e.Binding, hl.label)
		}
		if bound[e.Binding] {
			return nil, validationf("bind group %q binds %d twice", label, e.Binding)
		}
		bound[e.Binding] = true

		if e.Kind != slot.Kind {
			return nil, validationf("bind group %q binding %d is a %v, layout expects a %v", label, e.Binding, e.Kind, slot.Kind)
		}
		if err := b.validateBinding(label, slot, e); err != nil {
			return nil, err
		}
	}

	return &bindGroup{owner: b, label: label, layout: hl, entries: slices.Clone(entries)}, nil
}

func (b *Backend) validateBinding(label string, slot gpu.LayoutEntry, e gpu.BindGroupEntry) error {
	switch e.Kind {
	case gpu.ResourceKindBuffer:
		hb, err := b.buffer(e.Buffer)
		if err != nil {
			return err
		}
		want := wgpu.BufferUsageUniform
		if slot.Buffer != wgpu.BufferBindingTypeUniform {
			want = wgpu.BufferUsageStorage
		}
		if hb.usage&want == 0 {
			return validationf("bind group %q binding %d: buffer %q lacks usage for %v binding", label, e.Binding, hb.label, slot.Buffer)
		}
	case gpu.ResourceKindSampler:
		hs, ok := e.Sampler.(*sampler)
		if !ok || hs.owner != b {
			return gpu.ErrForeignHandle
		}
		if hs.comparison != (slot.Sampler == wgpu.SamplerBindingTypeComparison) {
			return validationf("bind group %q binding %d: sampler %q comparison mode does not match layout", label, e.Binding, hs.label)
		}
	case gpu.ResourceKindTexture:
		hv, ok := e.TextureView.(*textureView)
		if !ok || hv.texture.owner != b {
			return gpu.ErrForeignHandle
		}
		t := hv.texture
		if t.desc.Usage&wgpu.TextureUsageTextureBinding == 0 {
			return validationf("bind group %q binding %d: texture %q lacks texture-binding usage", label, e.Binding, t.desc.Label)
		}
		isDepth := gpu.IsDepthFormat(t.desc.Format)
		if (slot.Texture == wgpu.TextureSampleTypeDepth) != isDepth {
			return validationf("bind group %q binding %d: texture %q format %v does not match sample type %v", label, e.Binding, t.desc.Label, t.desc.Format, slot.Texture)
		}
	}
	return nil
}

func (b *Backend) CreateShaderModule(label, source string) (gpu.ShaderModule, error) {
	if strings.TrimSpace(source) == "" {
		return nil, validationf("shader module %q has no source", label)
	}
	return &shaderModule{owner: b, label: label, source: source}, nil
}

func (b *Backend) CreateRenderPipeline(desc gpu.RenderPipelineDescriptor) (gpu.RenderPipeline, error) {
	layouts := make([]*bindGroupLayout, len(desc.BindGroupLayouts))
	for i, l := range desc.BindGroupLayouts {
		hl, ok := l.(*bindGroupLayout)
		if !ok || hl.owner != b {
			return nil, gpu.ErrForeignHandle
		}
		layouts[i] = hl
	}

	vs, ok := desc.Vertex.(*shaderModule)
	if !ok || vs.owner != b {
		return nil, validationf("pipeline %q has no vertex module", desc.Label)
	}
	if !declaresEntryPoint(vs.source, desc.VertexEntryPoint) {
		return nil, validationf("pipeline %q: vertex module %q has no entry point %q", desc.Label, vs.label, desc.VertexEntryPoint)
	}

	if desc.Fragment != nil {
		fs, ok := desc.Fragment.(*shaderModule)
		if !ok || fs.owner != b {
			return nil, gpu.ErrForeignHandle
		}
		if !declaresEntryPoint(fs.source, desc.FragmentEntryPoint) {
			return nil, validationf("pipeline %q: fragment module %q has no entry point %q", desc.Label, fs.label, desc.FragmentEntryPoint)
		}
		if len(desc.ColorTargets) == 0 {
			return nil, validationf("pipeline %q has a fragment stage but no color targets", desc.Label)
		}
	} else {
		if len(desc.ColorTargets) > 0 {
			return nil, validationf("pipeline %q declares color targets without a fragment stage", desc.Label)
		}
		if desc.DepthStencil == nil {
			return nil, validationf("pipeline %q has neither a fragment stage nor a depth target", desc.Label)
		}
	}

	for _, f := range desc.ColorTargets {
		if gpu.IsDepthFormat(f) || f == wgpu.TextureFormatUndefined {
			return nil, validationf("pipeline %q has invalid color target format %v", desc.Label, f)
		}
	}
	if desc.DepthStencil != nil && !gpu.IsDepthFormat(desc.DepthStencil.Format) {
		return nil, validationf("pipeline %q has non-depth depth format %v", desc.Label, desc.DepthStencil.Format)
	}

	locations := make(map[uint32]bool)
	for _, vb := range desc.VertexBuffers {
		for _, a := range vb.Attributes {
			size, ok := gpu.VertexFormatSize(a.Format)
			if !ok {
				return nil, validationf("pipeline %q has unknown vertex format %v", desc.Label, a.Format)
			}
			if a.Offset+size > vb.ArrayStride {
				return nil, validationf("pipeline %q attribute at location %d overruns stride %d", desc.Label, a.ShaderLocation, vb.ArrayStride)
			}
			if locations[a.ShaderLocation] {
				return nil, validationf("pipeline %q reuses shader location %d", desc.Label, a.ShaderLocation)
			}
			locations[a.ShaderLocation] = true
		}
	}

	return &renderPipeline{owner: b, desc: desc, layouts: layouts}, nil
}

func declaresEntryPoint(source, entry string) bool {
	return entry != "" && strings.Contains(source, "fn "+entry+"(")
}

func (b *Backend) ConfigureSurface(width, height uint32, format wgpu.TextureFormat) error {
	if width == 0 || height == 0 {
		return validationf("surface configured with zero extent %dx%d", width, height)
	}
	if len(b.supportedFormats) == 0 {
		return validationf("surface reports no supported formats")
	}

	b.surfaceFormat = b.supportedFormats[0]
	if slices.Contains(b.supportedFormats, format) {
		b.surfaceFormat = format
	} else {
		b.logger.WithFields(log.Fields{
			"requested": format,
			"using":     b.surfaceFormat,
		}).Warn("requested surface format unsupported, falling back")
	}
	b.surfaceWidth = width
	b.surfaceHeight = height
	return nil
}

func (b *Backend) SurfaceFormat() wgpu.TextureFormat {
	return b.surfaceFormat
}

func (b *Backend) AcquireSurfaceView() (gpu.TextureView, error) {
	if b.surfaceWidth == 0 {
		return nil, gpu.ErrSurfaceNotConfigured
	}
	if b.acquired {
		return nil, validationf("surface texture acquired twice without present")
	}
	b.surface = &texture{
		owner: b,
		desc: gpu.TextureDescriptor{
			Label:  "Surface",
			Width:  b.surfaceWidth,
			Height: b.surfaceHeight,
			Format: b.surfaceFormat,
			Usage:  wgpu.TextureUsageRenderAttachment,
		},
	}
	b.acquired = true
	return b.surface.CreateView()
}

func (b *Backend) Present() {
	if !b.acquired {
		return
	}
	b.acquired = false
	b.presents++
}

func (b *Backend) CreateCommandEncoder(label string) (gpu.CommandEncoder, error) {
	return &commandEncoder{
		owner:   b,
		label:   label,
		written: make(map[*texture]bool),
	}, nil
}

func (b *Backend) Submit(cb gpu.CommandBuffer) error {
	hc, ok := cb.(*commandBuffer)
	if !ok || hc.owner != b {
		return gpu.ErrForeignHandle
	}
	if hc.submitted {
		return validationf("command buffer submitted twice")
	}
	hc.submitted = true

	for _, p := range hc.passes {
		for _, t := range p.ColorTargets {
			b.lastWriter[t.(*texture)] = p.Label
		}
		if p.DepthTarget != nil {
			b.lastWriter[p.DepthTarget.(*texture)] = p.Label
		}
		b.logger.WithFields(log.Fields{
			"pass":  p.Label,
			"draws": len(p.Draws),
		}).Debug("executed pass")
	}
	b.submitted = append(b.submitted, hc)
	return nil
}

func (b *Backend) Release() {}

func (b *Backend) buffer(buf gpu.Buffer) (*buffer, error) {
	hb, ok := buf.(*buffer)
	if !ok || hb.owner != b {
		return nil, gpu.ErrForeignHandle
	}
	if hb.released {
		return nil, validationf("use of released buffer %q", hb.label)
	}
	return hb, nil
}

func (b *Backend) texture(tex gpu.Texture) (*texture, error) {
	ht, ok := tex.(*texture)
	if !ok || ht.owner != b {
		return nil, gpu.ErrForeignHandle
	}
	if ht.released {
		return nil, validationf("use of released texture %q", ht.desc.Label)
	}
	return ht, nil
}
