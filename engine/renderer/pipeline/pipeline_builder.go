package pipeline

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithBindGroupLayouts sets the bind group layouts; layout i describes @group(i).
//
// Parameters:
//   - layouts: the layouts in group order
//
// Returns:
//   - PipelineBuilderOption: a function that sets the layouts for this pipeline
func WithBindGroupLayouts(layouts ...gpu.BindGroupLayout) PipelineBuilderOption {
	return func(p *pipeline) {
		p.layouts = slices.Clone(layouts)
	}
}

// WithVertexShader sets the vertex shader for this pipeline.
//
// Parameters:
//   - s: the vertex shader to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex shader for this pipeline
func WithVertexShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexShader = s
	}
}

// WithVertexFormats sets the attribute formats of the single interleaved vertex buffer. No formats means the
// pipeline takes no vertex buffers.
//
// Parameters:
//   - formats: attribute formats in shader location order
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex formats for this pipeline
func WithVertexFormats(formats ...wgpu.VertexFormat) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexFormats = slices.Clone(formats)
	}
}

// WithFragmentShader sets the fragment shader for this pipeline. Omit it for a depth-only pipeline.
//
// Parameters:
//   - s: the fragment shader to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the fragment shader for this pipeline
func WithFragmentShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.fragmentShader = s
	}
}

// WithColorTargets sets the color attachment formats, one per fragment output location.
//
// Parameters:
//   - formats: color formats in location order
//
// Returns:
//   - PipelineBuilderOption: a function that sets the color targets for this pipeline
func WithColorTargets(formats ...wgpu.TextureFormat) PipelineBuilderOption {
	return func(p *pipeline) {
		p.colorTargets = slices.Clone(formats)
	}
}

// WithDepthTest enables depth testing with compare "less" and depth writes. An undefined format selects
// Depth24Plus.
//
// Parameters:
//   - format: the depth attachment format
//
// Returns:
//   - PipelineBuilderOption: a function that enables depth testing for this pipeline
func WithDepthTest(format wgpu.TextureFormat) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthStencil = &gpu.DepthStencilState{
			Format:            defaultDepthFormat(format),
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
		}
	}
}

// WithDepthAttachment declares a depth attachment without testing: compare "always" and no depth writes. An
// undefined format selects Depth24Plus.
//
// Parameters:
//   - format: the depth attachment format
//
// Returns:
//   - PipelineBuilderOption: a function that declares the depth attachment for this pipeline
func WithDepthAttachment(format wgpu.TextureFormat) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthStencil = &gpu.DepthStencilState{
			Format:       defaultDepthFormat(format),
			DepthCompare: wgpu.CompareFunctionAlways,
		}
	}
}

// WithDepthBias sets the constant and slope-scaled depth bias. It has no effect without a depth option applied
// before it.
//
// Parameters:
//   - bias: constant depth bias
//   - slopeScale: slope-scaled depth bias
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth bias for this pipeline
func WithDepthBias(bias int32, slopeScale float32) PipelineBuilderOption {
	return func(p *pipeline) {
		if p.depthStencil == nil {
			return
		}
		p.depthStencil.DepthBias = bias
		p.depthStencil.DepthBiasSlopeScale = slopeScale
	}
}

// WithTopology sets the primitive topology. Defaults to triangle list.
//
// Parameters:
//   - topology: the primitive topology
//
// Returns:
//   - PipelineBuilderOption: a function that sets the topology for this pipeline
func WithTopology(topology wgpu.PrimitiveTopology) PipelineBuilderOption {
	return func(p *pipeline) {
		p.topology = topology
	}
}

// WithCullMode sets the face culling mode. Defaults to back-face culling.
//
// Parameters:
//   - mode: the cull mode
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode for this pipeline
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}

// WithFrontFace sets the winding order of front faces. Defaults to counter-clockwise.
//
// Parameters:
//   - face: the front face winding
//
// Returns:
//   - PipelineBuilderOption: a function that sets the front face for this pipeline
func WithFrontFace(face wgpu.FrontFace) PipelineBuilderOption {
	return func(p *pipeline) {
		p.frontFace = face
	}
}

func defaultDepthFormat(format wgpu.TextureFormat) wgpu.TextureFormat {
	if format == wgpu.TextureFormatUndefined {
		return wgpu.TextureFormatDepth24Plus
	}
	return format
}
