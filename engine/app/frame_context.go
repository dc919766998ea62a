package app

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-sss/common"
	"github.com/Carmen-Shannon/oxy-sss/engine/model"
	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/resource"
	"github.com/cogentcore/webgpu/wgpu"
	log "github.com/sirupsen/logrus"
)

// quadFormats are the vertex formats of the full-screen quad: clip-space position then UV.
var quadFormats = []wgpu.VertexFormat{wgpu.VertexFormatFloat32x2, wgpu.VertexFormatFloat32x2}

// quadVertices cover clip space with UV (0,0) at the top-left corner of the target.
var quadVertices = []float32{
	-1, -1, 0, 1,
	1, -1, 1, 1,
	1, 1, 1, 0,
	-1, 1, 0, 0,
}

var quadIndices = []uint32{0, 1, 2, 0, 2, 3}

// layouts are the bind group layouts shared across the pass chain.
type layouts struct {
	global    gpu.BindGroupLayout // camera, light
	model     gpu.BindGroupLayout // transform, sampler, albedo, specular, scattering
	shadowMap gpu.BindGroupLayout // comparison sampler, depth
	blurInput gpu.BindGroupLayout // sampler, three sources
	blurred   gpu.BindGroupLayout // sampler, six blurred radii
}

type pipelines struct {
	shadow     pipeline.Pipeline
	irradiance pipeline.Pipeline
	blur       [4]pipeline.Pipeline
	composite  pipeline.Pipeline
}

type bindGroups struct {
	global    gpu.BindGroup
	shadowMap gpu.BindGroup
	blurInput [4]gpu.BindGroup
	blurred   gpu.BindGroup
}

// skinTextures are the three surface maps shared by every model.
type skinTextures struct {
	albedo     target
	specular   target
	scattering target
}

// frameContext holds every device-facing object of the renderer. Each setup step fills in its part; the pass
// encoders only read it.
type frameContext struct {
	backend gpu.Backend
	logger  *log.Entry

	width, height uint32
	shadowSize    uint32

	textures skinTextures

	cameraBuffer   gpu.Buffer
	lightBuffer    gpu.Buffer
	castShadows    bool
	surfaceSampler gpu.Sampler
	blurSampler    gpu.Sampler
	shadowSampler  gpu.Sampler
	quadVertices   gpu.Buffer
	quadIndices    gpu.Buffer
	targets        passTargets

	layouts   layouts
	pipelines pipelines
	groups    bindGroups

	models []model.Model
}

// createLayouts builds the five bind group layouts.
func (fc *frameContext) createLayouts() error {
	b := fc.backend
	vf := []wgpu.ShaderStage{wgpu.ShaderStageVertex | wgpu.ShaderStageFragment}
	frag := []wgpu.ShaderStage{wgpu.ShaderStageFragment}
	buf, smp, tex := gpu.ResourceKindBuffer, gpu.ResourceKindSampler, gpu.ResourceKindTexture

	var err error
	if fc.layouts.global, err = resource.CreateBindGroupLayout(b, "global", []uint32{0, 1}, vf,
		[]gpu.ResourceKind{buf, buf},
		[]resource.Constraint{resource.UniformBuffer(), resource.UniformBuffer()},
	); err != nil {
		return err
	}
	if fc.layouts.model, err = resource.CreateBindGroupLayout(b, "model", []uint32{0, 1, 2, 3, 4}, vf,
		[]gpu.ResourceKind{buf, smp, tex, tex, tex},
		[]resource.Constraint{
			resource.UniformBuffer(), resource.FilteringSampler(),
			resource.FloatTexture(), resource.FloatTexture(), resource.FloatTexture(),
		},
	); err != nil {
		return err
	}
	if fc.layouts.shadowMap, err = resource.CreateBindGroupLayout(b, "shadow map", []uint32{0, 1}, frag,
		[]gpu.ResourceKind{smp, tex},
		[]resource.Constraint{resource.ComparisonSampler(), resource.DepthTexture()},
	); err != nil {
		return err
	}
	if fc.layouts.blurInput, err = resource.CreateBindGroupLayout(b, "blur input", []uint32{0, 1, 2, 3}, frag,
		[]gpu.ResourceKind{smp, tex, tex, tex},
		[]resource.Constraint{resource.FilteringSampler(), resource.FloatTexture(), resource.FloatTexture(), resource.FloatTexture()},
	); err != nil {
		return err
	}

	blurredSlots := []uint32{0}
	blurredKinds := []gpu.ResourceKind{smp}
	blurredConstraints := []resource.Constraint{resource.FilteringSampler()}
	for i := range blurRadii {
		blurredSlots = append(blurredSlots, uint32(i+1))
		blurredKinds = append(blurredKinds, tex)
		blurredConstraints = append(blurredConstraints, resource.FloatTexture())
	}
	fc.layouts.blurred, err = resource.CreateBindGroupLayout(b, "blurred", blurredSlots, frag, blurredKinds, blurredConstraints)
	return err
}

// createPipelines builds the seven pipelines of the chain against the layouts.
func (fc *frameContext) createPipelines(s Shaders) error {
	b := fc.backend
	l := fc.layouts
	meshFormats := model.VertexLayoutPNU.Formats()

	var err error
	fc.pipelines.shadow, err = pipeline.NewRenderPipeline(b, "shadow",
		pipeline.WithBindGroupLayouts(l.global, l.model),
		pipeline.WithVertexShader(s.ShadowVertex),
		pipeline.WithVertexFormats(meshFormats...),
		pipeline.WithDepthTest(shadowDepthFormat),
		pipeline.WithDepthBias(2, 2.0),
	)
	if err != nil {
		return err
	}

	fc.pipelines.irradiance, err = pipeline.NewRenderPipeline(b, "irradiance",
		pipeline.WithBindGroupLayouts(l.global, l.model, l.shadowMap),
		pipeline.WithVertexShader(s.SurfaceVertex),
		pipeline.WithVertexFormats(meshFormats...),
		pipeline.WithFragmentShader(s.IrradianceFragment),
		pipeline.WithColorTargets(colorFormat),
		pipeline.WithDepthTest(sceneDepthFormat),
	)
	if err != nil {
		return err
	}

	for i, stage := range blurStages {
		fc.pipelines.blur[i], err = pipeline.NewRenderPipeline(b, stage.label,
			pipeline.WithBindGroupLayouts(l.blurInput),
			pipeline.WithVertexShader(s.QuadVertex),
			pipeline.WithVertexFormats(quadFormats...),
			pipeline.WithFragmentShader(s.Blur[i]),
			pipeline.WithColorTargets(colorFormat, colorFormat, colorFormat),
			pipeline.WithCullMode(wgpu.CullModeNone),
		)
		if err != nil {
			return err
		}
	}

	fc.pipelines.composite, err = pipeline.NewRenderPipeline(b, "composite",
		pipeline.WithBindGroupLayouts(l.global, l.model, l.shadowMap, l.blurred),
		pipeline.WithVertexShader(s.SurfaceVertex),
		pipeline.WithVertexFormats(meshFormats...),
		pipeline.WithFragmentShader(s.CompositeFragment),
		pipeline.WithColorTargets(b.SurfaceFormat()),
		pipeline.WithDepthTest(sceneDepthFormat),
	)
	return err
}

// createBindGroups binds the global uniforms, the shadow map and the blur chain's inputs and outputs.
func (fc *frameContext) createBindGroups() error {
	b := fc.backend
	t := &fc.targets

	var err error
	if fc.groups.global, err = resource.CreateBindGroup(b, "global", []resource.Resource{
		resource.Buffer(fc.cameraBuffer),
		resource.Buffer(fc.lightBuffer),
	}, fc.layouts.global); err != nil {
		return err
	}
	if fc.groups.shadowMap, err = resource.CreateBindGroup(b, "shadow map", []resource.Resource{
		resource.Sampler(fc.shadowSampler),
		resource.Texture(t.shadowDepth.view),
	}, fc.layouts.shadowMap); err != nil {
		return err
	}

	for i, stage := range blurStages {
		sources := stage.sources(t)
		fc.groups.blurInput[i], err = resource.CreateBindGroup(b, stage.label+" input", []resource.Resource{
			resource.Sampler(fc.blurSampler),
			resource.Texture(sources[0].view),
			resource.Texture(sources[1].view),
			resource.Texture(sources[2].view),
		}, fc.layouts.blurInput)
		if err != nil {
			return err
		}
	}

	blurred := []resource.Resource{resource.Sampler(fc.blurSampler)}
	for _, tgt := range t.blurred {
		blurred = append(blurred, resource.Texture(tgt.view))
	}
	fc.groups.blurred, err = resource.CreateBindGroup(b, "blurred", blurred, fc.layouts.blurred)
	return err
}

// createGlobals allocates the camera and light uniforms, the samplers and the full-screen quad.
func (fc *frameContext) createGlobals(cameraUniform, lightUniform []byte) error {
	b := fc.backend

	var err error
	if fc.cameraBuffer, err = resource.CreateBuffer(b, "camera", cameraUniform, resource.BufferKindUniform); err != nil {
		return err
	}
	if fc.lightBuffer, err = resource.CreateBuffer(b, "light", lightUniform, resource.BufferKindUniform); err != nil {
		return err
	}
	if fc.surfaceSampler, err = resource.CreateSampler(b, "surface", common.SamplerStagingData{}); err != nil {
		return err
	}
	if fc.blurSampler, err = resource.CreateSampler(b, "blur", common.SamplerStagingData{
		AddressModeU: wgpu.AddressModeClampToEdge,
		AddressModeV: wgpu.AddressModeClampToEdge,
		AddressModeW: wgpu.AddressModeClampToEdge,
		MipmapFilter: wgpu.MipmapFilterModeNearest,
	}); err != nil {
		return err
	}
	if fc.shadowSampler, err = resource.CreateComparisonSampler(b, "shadow"); err != nil {
		return err
	}
	if fc.quadVertices, err = resource.CreateBuffer(b, "quad vertices", common.Float32sToBytes(quadVertices), resource.BufferKindVertex); err != nil {
		return err
	}
	if fc.quadIndices, err = resource.CreateBuffer(b, "quad indices", common.SliceToBytes(quadIndices), resource.BufferKindIndex); err != nil {
		return err
	}
	if fc.targets, err = newPassTargets(b, fc.width, fc.height, fc.shadowSize); err != nil {
		return fmt.Errorf("pass targets: %w", err)
	}
	return nil
}

type releaser interface{ Release() }

// releaseAll releases every non-nil handle.
func releaseAll(rs ...releaser) {
	for _, r := range rs {
		if r != nil {
			r.Release()
		}
	}
}

func (fc *frameContext) releaseTextures() {
	fc.textures.albedo.release()
	fc.textures.specular.release()
	fc.textures.scattering.release()
	fc.textures = skinTextures{}
}

func (fc *frameContext) releaseGlobals() {
	releaseAll(fc.cameraBuffer, fc.lightBuffer, fc.surfaceSampler, fc.blurSampler, fc.shadowSampler, fc.quadVertices, fc.quadIndices)
	fc.cameraBuffer, fc.lightBuffer = nil, nil
	fc.surfaceSampler, fc.blurSampler, fc.shadowSampler = nil, nil, nil
	fc.quadVertices, fc.quadIndices = nil, nil
	fc.targets.release()
}

func (fc *frameContext) releasePipelines() {
	g := fc.groups
	releaseAll(g.global, g.shadowMap, g.blurred, g.blurInput[0], g.blurInput[1], g.blurInput[2], g.blurInput[3])
	fc.groups = bindGroups{}

	p := fc.pipelines
	releaseAll(p.shadow, p.irradiance, p.composite, p.blur[0], p.blur[1], p.blur[2], p.blur[3])
	fc.pipelines = pipelines{}

	l := fc.layouts
	releaseAll(l.global, l.model, l.shadowMap, l.blurInput, l.blurred)
	fc.layouts = layouts{}
}

func (fc *frameContext) releaseModels() {
	for _, m := range fc.models {
		m.Release()
	}
	fc.models = nil
}

func (fc *frameContext) release() {
	fc.releaseModels()
	fc.releasePipelines()
	fc.releaseGlobals()
	fc.releaseTextures()
}
