package headless

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

const testShader = `
@vertex fn vertexMain(@location(0) p: vec3<f32>) -> @builtin(position) vec4<f32> { return vec4<f32>(p, 1.0); }
@fragment fn fragmentMain() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }
`

// =============================================================================
// Helpers
// =============================================================================

func mustBuffer(t *testing.T, b *Backend, label string, size uint64, usage wgpu.BufferUsage) gpu.Buffer {
	t.Helper()
	buf, err := b.CreateBuffer(gpu.BufferDescriptor{Label: label, Size: size, Usage: usage})
	if err != nil {
		t.Fatalf("CreateBuffer(%q) failed: %v", label, err)
	}
	return buf
}

func mustTexture(t *testing.T, b *Backend, label string, w, h uint32, format wgpu.TextureFormat) gpu.Texture {
	t.Helper()
	tex, err := b.CreateTexture(gpu.TextureDescriptor{
		Label:  label,
		Width:  w,
		Height: h,
		Format: format,
		Usage:  wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		t.Fatalf("CreateTexture(%q) failed: %v", label, err)
	}
	return tex
}

func mustView(t *testing.T, tex gpu.Texture) gpu.TextureView {
	t.Helper()
	v, err := tex.CreateView()
	if err != nil {
		t.Fatalf("CreateView(%q) failed: %v", tex.Label(), err)
	}
	return v
}

// simpleScene builds a one-layout pipeline drawing to a single RGBA8 target plus its geometry buffers.
type simpleScene struct {
	layout   gpu.BindGroupLayout
	group    gpu.BindGroup
	pipeline gpu.RenderPipeline
	vertex   gpu.Buffer
	index    gpu.Buffer
	target   gpu.Texture
}

func newSimpleScene(t *testing.T, b *Backend) simpleScene {
	t.Helper()
	var s simpleScene
	var err error

	s.layout, err = b.CreateBindGroupLayout("uniforms", []gpu.LayoutEntry{
		{Binding: 0, Visibility: wgpu.ShaderStageVertex, Kind: gpu.ResourceKindBuffer, Buffer: wgpu.BufferBindingTypeUniform},
	})
	if err != nil {
		t.Fatalf("CreateBindGroupLayout failed: %v", err)
	}
	uniform := mustBuffer(t, b, "uniform", 64, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	s.group, err = b.CreateBindGroup("uniforms", s.layout, []gpu.BindGroupEntry{
		{Binding: 0, Kind: gpu.ResourceKindBuffer, Buffer: uniform},
	})
	if err != nil {
		t.Fatalf("CreateBindGroup failed: %v", err)
	}

	module, err := b.CreateShaderModule("test", testShader)
	if err != nil {
		t.Fatalf("CreateShaderModule failed: %v", err)
	}
	s.pipeline, err = b.CreateRenderPipeline(gpu.RenderPipelineDescriptor{
		Label:              "simple",
		BindGroupLayouts:   []gpu.BindGroupLayout{s.layout},
		Vertex:             module,
		VertexEntryPoint:   gpu.ShaderEntryVertex,
		VertexBuffers:      []gpu.VertexBufferLayout{{ArrayStride: 12, Attributes: []gpu.VertexAttribute{{Format: wgpu.VertexFormatFloat32x3}}}},
		Fragment:           module,
		FragmentEntryPoint: gpu.ShaderEntryFragment,
		ColorTargets:       []wgpu.TextureFormat{wgpu.TextureFormatRGBA8Unorm},
	})
	if err != nil {
		t.Fatalf("CreateRenderPipeline failed: %v", err)
	}

	s.vertex = mustBuffer(t, b, "vertices", 48, wgpu.BufferUsageVertex|wgpu.BufferUsageCopyDst)
	s.index = mustBuffer(t, b, "indices", 24, wgpu.BufferUsageIndex|wgpu.BufferUsageCopyDst)
	s.target = mustTexture(t, b, "target", 8, 8, wgpu.TextureFormatRGBA8Unorm)
	return s
}

func (s simpleScene) record(t *testing.T, e gpu.CommandEncoder, indexCount uint32) {
	t.Helper()
	pass, err := e.BeginRenderPass(gpu.RenderPassDescriptor{
		Label:            "simple",
		ColorAttachments: []gpu.ColorAttachment{{View: mustView(t, s.target)}},
	})
	if err != nil {
		t.Fatalf("BeginRenderPass failed: %v", err)
	}
	pass.SetPipeline(s.pipeline)
	pass.SetBindGroup(0, s.group)
	pass.SetVertexBuffer(0, s.vertex)
	pass.SetIndexBuffer(s.index, wgpu.IndexFormatUint32)
	pass.DrawIndexed(indexCount, 1)
	if err := pass.End(); err != nil {
		t.Fatalf("End failed: %v", err)
	}
}

// =============================================================================
// Buffer Tests
// =============================================================================

func TestWriteBuffer_RoundTrip(t *testing.T) {
	b := NewBackend()
	buf := mustBuffer(t, b, "data", 16, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)

	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if err := b.WriteBuffer(buf, 4, want); err != nil {
		t.Fatalf("WriteBuffer failed: %v", err)
	}

	got, err := b.ReadBuffer(buf)
	if err != nil {
		t.Fatalf("ReadBuffer failed: %v", err)
	}
	if !bytes.Equal(got[4:12], want) {
		t.Errorf("ReadBuffer()[4:12] = %v, want %v", got[4:12], want)
	}
	if !bytes.Equal(got[:4], []byte{0, 0, 0, 0}) {
		t.Errorf("ReadBuffer()[:4] = %v, want zeroes", got[:4])
	}
}

func TestWriteBuffer_Rejections(t *testing.T) {
	b := NewBackend()
	buf := mustBuffer(t, b, "data", 16, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	noCopy := mustBuffer(t, b, "no-copy", 16, wgpu.BufferUsageUniform)

	tests := []struct {
		name   string
		buf    gpu.Buffer
		offset uint64
		data   []byte
	}{
		{"overrun", buf, 0, make([]byte, 20)},
		{"overrun with offset", buf, 8, make([]byte, 12)},
		{"unaligned size", buf, 0, make([]byte, 3)},
		{"unaligned offset", buf, 2, make([]byte, 4)},
		{"missing copy-dst", noCopy, 0, make([]byte, 4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := b.WriteBuffer(tt.buf, tt.offset, tt.data)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("WriteBuffer() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestCreateBuffer_ZeroSize(t *testing.T) {
	b := NewBackend()
	if _, err := b.CreateBuffer(gpu.BufferDescriptor{Label: "empty", Usage: wgpu.BufferUsageVertex}); !errors.Is(err, ErrValidation) {
		t.Errorf("CreateBuffer(size 0) error = %v, want ErrValidation", err)
	}
}

// =============================================================================
// Bind Group Tests
// =============================================================================

func TestCreateBindGroup_Validation(t *testing.T) {
	b := NewBackend()
	layout, err := b.CreateBindGroupLayout("mixed", []gpu.LayoutEntry{
		{Binding: 0, Visibility: wgpu.ShaderStageFragment, Kind: gpu.ResourceKindSampler, Sampler: wgpu.SamplerBindingTypeComparison},
		{Binding: 1, Visibility: wgpu.ShaderStageFragment, Kind: gpu.ResourceKindTexture, Texture: wgpu.TextureSampleTypeDepth},
	})
	if err != nil {
		t.Fatalf("CreateBindGroupLayout failed: %v", err)
	}

	filtering, _ := b.CreateSampler(gpu.SamplerDescriptor{Label: "filtering"})
	comparison, _ := b.CreateSampler(gpu.SamplerDescriptor{Label: "comparison", Compare: wgpu.CompareFunctionLess})
	depthView := mustView(t, mustTexture(t, b, "depth", 4, 4, wgpu.TextureFormatDepth32Float))
	colorView := mustView(t, mustTexture(t, b, "color", 4, 4, wgpu.TextureFormatRGBA8Unorm))

	tests := []struct {
		name    string
		entries []gpu.BindGroupEntry
		wantErr bool
	}{
		{
			name: "valid",
			entries: []gpu.BindGroupEntry{
				{Binding: 0, Kind: gpu.ResourceKindSampler, Sampler: comparison},
				{Binding: 1, Kind: gpu.ResourceKindTexture, TextureView: depthView},
			},
		},
		{
			name: "too few entries",
			entries: []gpu.BindGroupEntry{
				{Binding: 0, Kind: gpu.ResourceKindSampler, Sampler: comparison},
			},
			wantErr: true,
		},
		{
			name: "kind mismatch",
			entries: []gpu.BindGroupEntry{
				{Binding: 0, Kind: gpu.ResourceKindTexture, TextureView: depthView},
				{Binding: 1, Kind: gpu.ResourceKindTexture, TextureView: depthView},
			},
			wantErr: true,
		},
		{
			name: "filtering sampler in comparison slot",
			entries: []gpu.BindGroupEntry{
				{Binding: 0, Kind: gpu.ResourceKindSampler, Sampler: filtering},
				{Binding: 1, Kind: gpu.ResourceKindTexture, TextureView: depthView},
			},
			wantErr: true,
		},
		{
			name: "color texture in depth slot",
			entries: []gpu.BindGroupEntry{
				{Binding: 0, Kind: gpu.ResourceKindSampler, Sampler: comparison},
				{Binding: 1, Kind: gpu.ResourceKindTexture, TextureView: colorView},
			},
			wantErr: true,
		},
		{
			name: "undeclared binding",
			entries: []gpu.BindGroupEntry{
				{Binding: 0, Kind: gpu.ResourceKindSampler, Sampler: comparison},
				{Binding: 5, Kind: gpu.ResourceKindTexture, TextureView: depthView},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.CreateBindGroup(tt.name, layout, tt.entries)
			if (err != nil) != tt.wantErr {
				t.Errorf("CreateBindGroup() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// =============================================================================
// Pipeline Tests
// =============================================================================

func TestCreateRenderPipeline_Validation(t *testing.T) {
	b := NewBackend()
	module, err := b.CreateShaderModule("test", testShader)
	if err != nil {
		t.Fatalf("CreateShaderModule failed: %v", err)
	}
	vertexOnly, err := b.CreateShaderModule("vertex-only", "@vertex fn vertexMain() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }")
	if err != nil {
		t.Fatalf("CreateShaderModule failed: %v", err)
	}

	tests := []struct {
		name    string
		desc    gpu.RenderPipelineDescriptor
		wantErr bool
	}{
		{
			name: "depth only",
			desc: gpu.RenderPipelineDescriptor{
				Vertex:           module,
				VertexEntryPoint: gpu.ShaderEntryVertex,
				DepthStencil:     &gpu.DepthStencilState{Format: wgpu.TextureFormatDepth32Float},
			},
		},
		{
			name: "depth only without depth",
			desc: gpu.RenderPipelineDescriptor{
				Vertex:           module,
				VertexEntryPoint: gpu.ShaderEntryVertex,
			},
			wantErr: true,
		},
		{
			name: "color targets without fragment",
			desc: gpu.RenderPipelineDescriptor{
				Vertex:           module,
				VertexEntryPoint: gpu.ShaderEntryVertex,
				ColorTargets:     []wgpu.TextureFormat{wgpu.TextureFormatRGBA8Unorm},
				DepthStencil:     &gpu.DepthStencilState{Format: wgpu.TextureFormatDepth32Float},
			},
			wantErr: true,
		},
		{
			name: "missing fragment entry point",
			desc: gpu.RenderPipelineDescriptor{
				Vertex:             module,
				VertexEntryPoint:   gpu.ShaderEntryVertex,
				Fragment:           vertexOnly,
				FragmentEntryPoint: gpu.ShaderEntryFragment,
				ColorTargets:       []wgpu.TextureFormat{wgpu.TextureFormatRGBA8Unorm},
			},
			wantErr: true,
		},
		{
			name: "attribute overruns stride",
			desc: gpu.RenderPipelineDescriptor{
				Vertex:           module,
				VertexEntryPoint: gpu.ShaderEntryVertex,
				VertexBuffers: []gpu.VertexBufferLayout{{
					ArrayStride: 8,
					Attributes:  []gpu.VertexAttribute{{Format: wgpu.VertexFormatFloat32x3}},
				}},
				DepthStencil: &gpu.DepthStencilState{Format: wgpu.TextureFormatDepth32Float},
			},
			wantErr: true,
		},
		{
			name: "color format as depth",
			desc: gpu.RenderPipelineDescriptor{
				Vertex:           module,
				VertexEntryPoint: gpu.ShaderEntryVertex,
				DepthStencil:     &gpu.DepthStencilState{Format: wgpu.TextureFormatRGBA8Unorm},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.desc.Label = tt.name
			_, err := b.CreateRenderPipeline(tt.desc)
			if (err != nil) != tt.wantErr {
				t.Errorf("CreateRenderPipeline() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// =============================================================================
// Encoder Tests
// =============================================================================

func TestEncoder_RecordsPassesAndSubmits(t *testing.T) {
	b := NewBackend()
	s := newSimpleScene(t, b)

	e, _ := b.CreateCommandEncoder("frame")
	s.record(t, e, 6)
	cb, err := e.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if err := b.Submit(cb); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if b.Submits() != 1 {
		t.Errorf("Submits() = %d, want 1", b.Submits())
	}
	passes := b.Passes()
	if len(passes) != 1 || len(passes[0].Draws) != 1 {
		t.Fatalf("Passes() = %+v, want one pass with one draw", passes)
	}
	if d := passes[0].Draws[0]; d.Pipeline != "simple" || d.IndexCount != 6 {
		t.Errorf("draw = %+v, want pipeline simple with 6 indices", d)
	}
	if got := b.LastWriter(s.target); got != "simple" {
		t.Errorf("LastWriter(target) = %q, want %q", got, "simple")
	}

	if err := b.Submit(cb); !errors.Is(err, ErrValidation) {
		t.Errorf("second Submit() error = %v, want ErrValidation", err)
	}
}

func TestEncoder_IndexOverrunFailsAtFinish(t *testing.T) {
	b := NewBackend()
	s := newSimpleScene(t, b)

	e, _ := b.CreateCommandEncoder("frame")
	s.record(t, e, 7)
	if _, err := e.Finish(); !errors.Is(err, ErrValidation) {
		t.Errorf("Finish() error = %v, want ErrValidation", err)
	}
}

func TestEncoder_MissingBindGroup(t *testing.T) {
	b := NewBackend()
	s := newSimpleScene(t, b)

	e, _ := b.CreateCommandEncoder("frame")
	pass, err := e.BeginRenderPass(gpu.RenderPassDescriptor{
		Label:            "unbound",
		ColorAttachments: []gpu.ColorAttachment{{View: mustView(t, s.target)}},
	})
	if err != nil {
		t.Fatalf("BeginRenderPass failed: %v", err)
	}
	pass.SetPipeline(s.pipeline)
	pass.SetVertexBuffer(0, s.vertex)
	pass.SetIndexBuffer(s.index, wgpu.IndexFormatUint32)
	pass.DrawIndexed(6, 1)
	pass.End()

	if _, err := e.Finish(); !errors.Is(err, ErrValidation) {
		t.Errorf("Finish() error = %v, want ErrValidation", err)
	}
}

func TestEncoder_TargetMismatch(t *testing.T) {
	b := NewBackend()
	s := newSimpleScene(t, b)
	depth := mustTexture(t, b, "depth", 8, 8, wgpu.TextureFormatDepth24Plus)

	e, _ := b.CreateCommandEncoder("frame")
	pass, err := e.BeginRenderPass(gpu.RenderPassDescriptor{
		Label:            "with depth",
		ColorAttachments: []gpu.ColorAttachment{{View: mustView(t, s.target)}},
		DepthAttachment:  &gpu.DepthAttachment{View: mustView(t, depth), ClearValue: 1},
	})
	if err != nil {
		t.Fatalf("BeginRenderPass failed: %v", err)
	}
	pass.SetPipeline(s.pipeline)
	pass.End()

	if _, err := e.Finish(); !errors.Is(err, ErrValidation) {
		t.Errorf("Finish() error = %v, want ErrValidation for depth format mismatch", err)
	}
}

func TestEncoder_AttachmentSizeMismatch(t *testing.T) {
	b := NewBackend()
	small := mustTexture(t, b, "small", 4, 4, wgpu.TextureFormatRGBA8Unorm)
	large := mustTexture(t, b, "large", 8, 8, wgpu.TextureFormatRGBA8Unorm)

	e, _ := b.CreateCommandEncoder("frame")
	_, err := e.BeginRenderPass(gpu.RenderPassDescriptor{
		Label: "mismatched",
		ColorAttachments: []gpu.ColorAttachment{
			{View: mustView(t, small)},
			{View: mustView(t, large)},
		},
	})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("BeginRenderPass() error = %v, want ErrValidation", err)
	}
	if _, err := e.Finish(); err == nil {
		t.Error("Finish() should report the failed pass")
	}
}

func TestEncoder_SampleBeforeWrite(t *testing.T) {
	b := NewBackend()
	s := newSimpleScene(t, b)

	layout, err := b.CreateBindGroupLayout("input", []gpu.LayoutEntry{
		{Binding: 0, Visibility: wgpu.ShaderStageVertex, Kind: gpu.ResourceKindBuffer, Buffer: wgpu.BufferBindingTypeUniform},
		{Binding: 1, Visibility: wgpu.ShaderStageFragment, Kind: gpu.ResourceKindTexture, Texture: wgpu.TextureSampleTypeFloat},
	})
	if err != nil {
		t.Fatalf("CreateBindGroupLayout failed: %v", err)
	}
	uniform := mustBuffer(t, b, "uniform", 64, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	group, err := b.CreateBindGroup("input", layout, []gpu.BindGroupEntry{
		{Binding: 0, Kind: gpu.ResourceKindBuffer, Buffer: uniform},
		{Binding: 1, Kind: gpu.ResourceKindTexture, TextureView: mustView(t, s.target)},
	})
	if err != nil {
		t.Fatalf("CreateBindGroup failed: %v", err)
	}
	module, _ := b.CreateShaderModule("test", testShader)
	consumer, err := b.CreateRenderPipeline(gpu.RenderPipelineDescriptor{
		Label:              "consumer",
		BindGroupLayouts:   []gpu.BindGroupLayout{layout},
		Vertex:             module,
		VertexEntryPoint:   gpu.ShaderEntryVertex,
		VertexBuffers:      []gpu.VertexBufferLayout{{ArrayStride: 12, Attributes: []gpu.VertexAttribute{{Format: wgpu.VertexFormatFloat32x3}}}},
		Fragment:           module,
		FragmentEntryPoint: gpu.ShaderEntryFragment,
		ColorTargets:       []wgpu.TextureFormat{wgpu.TextureFormatRGBA8Unorm},
	})
	if err != nil {
		t.Fatalf("CreateRenderPipeline failed: %v", err)
	}
	output := mustTexture(t, b, "output", 8, 8, wgpu.TextureFormatRGBA8Unorm)

	consume := func(e gpu.CommandEncoder) {
		pass, err := e.BeginRenderPass(gpu.RenderPassDescriptor{
			Label:            "consumer",
			ColorAttachments: []gpu.ColorAttachment{{View: mustView(t, output)}},
		})
		if err != nil {
			t.Fatalf("BeginRenderPass failed: %v", err)
		}
		pass.SetPipeline(consumer)
		pass.SetBindGroup(0, group)
		pass.SetVertexBuffer(0, s.vertex)
		pass.SetIndexBuffer(s.index, wgpu.IndexFormatUint32)
		pass.DrawIndexed(6, 1)
		pass.End()
	}

	t.Run("consumer before producer", func(t *testing.T) {
		e, _ := b.CreateCommandEncoder("frame")
		consume(e)
		s.record(t, e, 6)
		if _, err := e.Finish(); !errors.Is(err, ErrValidation) {
			t.Errorf("Finish() error = %v, want ErrValidation", err)
		}
	})

	t.Run("producer before consumer", func(t *testing.T) {
		e, _ := b.CreateCommandEncoder("frame")
		s.record(t, e, 6)
		consume(e)
		if _, err := e.Finish(); err != nil {
			t.Errorf("Finish() error = %v, want nil", err)
		}
	})
}

// =============================================================================
// Surface Tests
// =============================================================================

func TestSurface_FormatFallbackAndPresent(t *testing.T) {
	b := NewBackend(WithSupportedSurfaceFormats(wgpu.TextureFormatBGRA8Unorm))

	if _, err := b.AcquireSurfaceView(); !errors.Is(err, gpu.ErrSurfaceNotConfigured) {
		t.Errorf("AcquireSurfaceView() before configure error = %v, want ErrSurfaceNotConfigured", err)
	}
	if err := b.ConfigureSurface(32, 16, wgpu.TextureFormatRGBA8Unorm); err != nil {
		t.Fatalf("ConfigureSurface failed: %v", err)
	}
	if got := b.SurfaceFormat(); got != wgpu.TextureFormatBGRA8Unorm {
		t.Errorf("SurfaceFormat() = %v, want fallback BGRA8Unorm", got)
	}

	view, err := b.AcquireSurfaceView()
	if err != nil {
		t.Fatalf("AcquireSurfaceView failed: %v", err)
	}
	if tex := view.Texture(); tex.Width() != 32 || tex.Height() != 16 {
		t.Errorf("surface texture = %dx%d, want 32x16", tex.Width(), tex.Height())
	}
	if _, err := b.AcquireSurfaceView(); !errors.Is(err, ErrValidation) {
		t.Errorf("second AcquireSurfaceView() error = %v, want ErrValidation", err)
	}

	b.Present()
	b.Present()
	if b.Presents() != 1 {
		t.Errorf("Presents() = %d, want 1", b.Presents())
	}
}

func TestWriteTexture(t *testing.T) {
	b := NewBackend()
	tex, err := b.CreateTexture(gpu.TextureDescriptor{
		Label:  "image",
		Width:  2,
		Height: 2,
		Format: wgpu.TextureFormatRGBA8Unorm,
		Usage:  wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		t.Fatalf("CreateTexture failed: %v", err)
	}

	if err := b.WriteTexture(tex, make([]byte, 15), 8); !errors.Is(err, ErrValidation) {
		t.Errorf("WriteTexture(short) error = %v, want ErrValidation", err)
	}
	if err := b.WriteTexture(tex, make([]byte, 16), 4); !errors.Is(err, ErrValidation) {
		t.Errorf("WriteTexture(narrow rows) error = %v, want ErrValidation", err)
	}
	if err := b.WriteTexture(tex, make([]byte, 16), 8); err != nil {
		t.Errorf("WriteTexture() error = %v, want nil", err)
	}
}
