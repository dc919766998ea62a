package gpu

import (
	"fmt"
	"runtime"

	"github.com/Carmen-Shannon/oxy-sss/common"
	"github.com/cogentcore/webgpu/wgpu"
	log "github.com/sirupsen/logrus"
)

type wgpuBackend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	presentMode          wgpu.PresentMode
	forceFallbackAdapter bool
	logger               *log.Entry

	surfaceFormat wgpu.TextureFormat
	surfaceWidth  uint32
	surfaceHeight uint32
	frameSurface  *wgpu.Texture
}

var _ Backend = &wgpuBackend{}

// WGPUBackendOption configures the WebGPU backend.
type WGPUBackendOption func(*wgpuBackend)

// WithPresentMode sets the surface present mode. Defaults to wgpu.PresentModeFifo, which paces frames to the
// display refresh.
func WithPresentMode(mode wgpu.PresentMode) WGPUBackendOption {
	return func(b *wgpuBackend) {
		b.presentMode = mode
	}
}

// WithForceFallbackAdapter requests the software fallback adapter.
func WithForceFallbackAdapter(force bool) WGPUBackendOption {
	return func(b *wgpuBackend) {
		b.forceFallbackAdapter = force
	}
}

// WithLogger sets the log entry the backend reports to.
func WithLogger(entry *log.Entry) WGPUBackendOption {
	return func(b *wgpuBackend) {
		b.logger = entry
	}
}

// NewWGPUBackend creates a WebGPU instance for the given surface, then requests a high performance adapter, a device
// and its queue. The calling goroutine is locked to its OS thread, which must be the thread that owns the window.
//
// Parameters:
//   - surfaceDescriptor: the platform surface descriptor of the window to present to
//   - opts: functional options
//
// Returns:
//   - Backend: the WebGPU backend
//   - error: an error if no adapter or device could be obtained
func NewWGPUBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, opts ...WGPUBackendOption) (Backend, error) {
	runtime.LockOSThread()

	b := &wgpuBackend{
		presentMode: wgpu.PresentModeFifo,
		logger:      log.WithField("component", "gpu"),
	}
	for _, opt := range opts {
		opt(b)
	}

	b.instance = wgpu.CreateInstance(nil)
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: b.forceFallbackAdapter,
		PowerPreference:      wgpu.PowerPreferenceHighPerformance,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	b.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Skin Device",
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}
	b.device = device
	b.queue = device.GetQueue()

	b.logger.Debug("webgpu device ready")
	return b, nil
}

func (b *wgpuBackend) CreateBuffer(desc BufferDescriptor) (Buffer, error) {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: desc.Usage,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBuffer{label: desc.Label, size: desc.Size, usage: desc.Usage, native: buf}, nil
}

func (b *wgpuBackend) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	native, ok := buf.(*wgpuBuffer)
	if !ok {
		return ErrForeignHandle
	}
	b.queue.WriteBuffer(native.native, offset, data)
	return nil
}

func (b *wgpuBackend) ReadBuffer(buf Buffer) ([]byte, error) {
	native, ok := buf.(*wgpuBuffer)
	if !ok {
		return nil, ErrForeignHandle
	}
	if native.usage&wgpu.BufferUsageCopySrc == 0 {
		return nil, ErrReadbackUnsupported
	}

	staging, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: native.label + " Readback",
		Size:  native.size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	defer staging.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	defer encoder.Release()
	encoder.CopyBufferToBuffer(native.native, 0, staging, 0, native.size)

	cb, err := encoder.Finish(nil)
	if err != nil {
		return nil, err
	}
	defer cb.Release()
	b.queue.Submit(cb)

	var status wgpu.BufferMapAsyncStatus
	done := false
	staging.MapAsync(wgpu.MapModeRead, 0, native.size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
		done = true
	})
	for !done {
		b.device.Poll(true, nil)
	}
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("map %q for readback: status %d", native.label, status)
	}

	out := make([]byte, native.size)
	copy(out, staging.GetMappedRange(0, uint(native.size)))
	staging.Unmap()
	return out, nil
}

func (b *wgpuBackend) CreateTexture(desc TextureDescriptor) (Texture, error) {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuTexture{desc: desc, native: tex, owned: true}, nil
}

func (b *wgpuBackend) WriteTexture(tex Texture, pixels []byte, bytesPerRow uint32) error {
	native, ok := tex.(*wgpuTexture)
	if !ok {
		return ErrForeignHandle
	}
	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  native.native,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  bytesPerRow,
			RowsPerImage: native.desc.Height,
		},
		&wgpu.Extent3D{
			Width:              native.desc.Width,
			Height:             native.desc.Height,
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

func (b *wgpuBackend) CreateSampler(desc SamplerDescriptor) (Sampler, error) {
	s, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         desc.Label,
		AddressModeU:  common.Coalesce(desc.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(desc.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(desc.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(desc.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(desc.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(desc.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   desc.LodMinClamp,
		LodMaxClamp:   common.Coalesce(desc.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(desc.MaxAnisotropy, 1),
		Compare:       desc.Compare,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuSampler{
		label:      desc.Label,
		comparison: desc.Compare != wgpu.CompareFunctionUndefined,
		native:     s,
	}, nil
}

func (b *wgpuBackend) CreateBindGroupLayout(label string, entries []LayoutEntry) (BindGroupLayout, error) {
	native := make([]wgpu.BindGroupLayoutEntry, len(entries))
	for i, e := range entries {
		n := wgpu.BindGroupLayoutEntry{
			Binding:    e.Binding,
			Visibility: e.Visibility,
		}
		switch e.Kind {
		case ResourceKindBuffer:
			n.Buffer = wgpu.BufferBindingLayout{Type: e.Buffer}
		case ResourceKindSampler:
			n.Sampler = wgpu.SamplerBindingLayout{Type: e.Sampler}
		case ResourceKindTexture:
			n.Texture = wgpu.TextureBindingLayout{
				SampleType:    e.Texture,
				ViewDimension: wgpu.TextureViewDimension2D,
			}
		}
		native[i] = n
	}

	layout, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: native,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBindGroupLayout{label: label, entries: entries, native: layout}, nil
}

func (b *wgpuBackend) CreateBindGroup(label string, layout BindGroupLayout, entries []BindGroupEntry) (BindGroup, error) {
	nativeLayout, ok := layout.(*wgpuBindGroupLayout)
	if !ok {
		return nil, ErrForeignHandle
	}

	native := make([]wgpu.BindGroupEntry, len(entries))
	for i, e := range entries {
		n := wgpu.BindGroupEntry{Binding: e.Binding}
		switch e.Kind {
		case ResourceKindBuffer:
			buf, ok := e.Buffer.(*wgpuBuffer)
			if !ok {
				return nil, ErrForeignHandle
			}
			n.Buffer = buf.native
			n.Offset = 0
			n.Size = wgpu.WholeSize
		case ResourceKindSampler:
			s, ok := e.Sampler.(*wgpuSampler)
			if !ok {
				return nil, ErrForeignHandle
			}
			n.Sampler = s.native
		case ResourceKindTexture:
			v, ok := e.TextureView.(*wgpuTextureView)
			if !ok {
				return nil, ErrForeignHandle
			}
			n.TextureView = v.native
		}
		native[i] = n
	}

	group, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  nativeLayout.native,
		Entries: native,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBindGroup{label: label, layout: nativeLayout, native: group}, nil
}

func (b *wgpuBackend) CreateShaderModule(label, source string) (ShaderModule, error) {
	m, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source,
		},
	})
	if err != nil {
		return nil, err
	}
	return &wgpuShaderModule{label: label, native: m}, nil
}

func (b *wgpuBackend) CreateRenderPipeline(desc RenderPipelineDescriptor) (RenderPipeline, error) {
	layouts := make([]*wgpu.BindGroupLayout, len(desc.BindGroupLayouts))
	for i, l := range desc.BindGroupLayouts {
		native, ok := l.(*wgpuBindGroupLayout)
		if !ok {
			return nil, ErrForeignHandle
		}
		layouts[i] = native.native
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label + " Layout",
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, err
	}

	vs, ok := desc.Vertex.(*wgpuShaderModule)
	if !ok {
		pipelineLayout.Release()
		return nil, ErrForeignHandle
	}

	buffers := make([]wgpu.VertexBufferLayout, len(desc.VertexBuffers))
	for i, vb := range desc.VertexBuffers {
		attrs := make([]wgpu.VertexAttribute, len(vb.Attributes))
		for j, a := range vb.Attributes {
			attrs[j] = wgpu.VertexAttribute{
				Format:         a.Format,
				Offset:         a.Offset,
				ShaderLocation: a.ShaderLocation,
			}
		}
		buffers[i] = wgpu.VertexBufferLayout{
			ArrayStride: vb.ArrayStride,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes:  attrs,
		}
	}

	var fragment *wgpu.FragmentState
	if desc.Fragment != nil {
		fs, ok := desc.Fragment.(*wgpuShaderModule)
		if !ok {
			pipelineLayout.Release()
			return nil, ErrForeignHandle
		}
		targets := make([]wgpu.ColorTargetState, len(desc.ColorTargets))
		for i, f := range desc.ColorTargets {
			targets[i] = wgpu.ColorTargetState{
				Format:    f,
				WriteMask: wgpu.ColorWriteMaskAll,
			}
		}
		fragment = &wgpu.FragmentState{
			Module:     fs.native,
			EntryPoint: desc.FragmentEntryPoint,
			Targets:    targets,
		}
	}

	var depthStencil *wgpu.DepthStencilState
	if ds := desc.DepthStencil; ds != nil {
		depthStencil = &wgpu.DepthStencilState{
			Format:              ds.Format,
			DepthWriteEnabled:   ds.DepthWriteEnabled,
			DepthCompare:        ds.DepthCompare,
			DepthBias:           ds.DepthBias,
			DepthBiasSlopeScale: ds.DepthBiasSlopeScale,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs.native,
			EntryPoint: desc.VertexEntryPoint,
			Buffers:    buffers,
		},
		Fragment: fragment,
		Primitive: wgpu.PrimitiveState{
			Topology:  desc.Topology,
			FrontFace: desc.FrontFace,
			CullMode:  desc.CullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: depthStencil,
	})
	if err != nil {
		pipelineLayout.Release()
		return nil, err
	}
	return &wgpuRenderPipeline{label: desc.Label, layout: pipelineLayout, native: created}, nil
}

func (b *wgpuBackend) ConfigureSurface(width, height uint32, format wgpu.TextureFormat) error {
	capabilities := b.surface.GetCapabilities(b.adapter)
	if len(capabilities.Formats) == 0 {
		return fmt.Errorf("surface reports no supported formats")
	}

	// Pipelines that draw to the surface are built for SurfaceFormat, so any supported format works.
	b.surfaceFormat = capabilities.Formats[0]
	for _, f := range capabilities.Formats {
		if f == format {
			b.surfaceFormat = f
			break
		}
	}
	if b.surfaceFormat != format {
		b.logger.WithFields(log.Fields{
			"requested": format,
			"using":     b.surfaceFormat,
		}).Warn("requested surface format unsupported, falling back")
	}

	alphaMode := wgpu.CompositeAlphaModeAuto
	if len(capabilities.AlphaModes) > 0 {
		alphaMode = capabilities.AlphaModes[0]
	}

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       width,
		Height:      height,
		PresentMode: b.presentMode,
		AlphaMode:   alphaMode,
	})
	b.surfaceWidth = width
	b.surfaceHeight = height
	return nil
}

func (b *wgpuBackend) SurfaceFormat() wgpu.TextureFormat {
	return b.surfaceFormat
}

func (b *wgpuBackend) AcquireSurfaceView() (TextureView, error) {
	if b.surfaceWidth == 0 || b.surfaceHeight == 0 {
		return nil, ErrSurfaceNotConfigured
	}
	if b.frameSurface != nil {
		return nil, fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return nil, err
	}
	b.frameSurface = surfaceTexture

	tex := &wgpuTexture{
		desc: TextureDescriptor{
			Label:  "Surface",
			Width:  b.surfaceWidth,
			Height: b.surfaceHeight,
			Format: b.surfaceFormat,
			Usage:  wgpu.TextureUsageRenderAttachment,
		},
		native: surfaceTexture,
	}
	return tex.CreateView()
}

func (b *wgpuBackend) Present() {
	if b.frameSurface == nil {
		return
	}
	b.surface.Present()
	b.frameSurface.Release()
	b.frameSurface = nil
}

func (b *wgpuBackend) CreateCommandEncoder(label string) (CommandEncoder, error) {
	encoder, err := b.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, err
	}
	return &wgpuCommandEncoder{native: encoder}, nil
}

func (b *wgpuBackend) Submit(cb CommandBuffer) error {
	native, ok := cb.(*wgpuCommandBuffer)
	if !ok {
		return ErrForeignHandle
	}
	b.queue.Submit(native.native)
	return nil
}

func (b *wgpuBackend) Release() {
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
