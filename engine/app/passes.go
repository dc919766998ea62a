package app

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
	log "github.com/sirupsen/logrus"
)

type blurDirection int

const (
	blurHorizontal blurDirection = iota
	blurVertical
)

func (d blurDirection) String() string {
	if d == blurHorizontal {
		return "horizontal"
	}
	return "vertical"
}

// blurStage is one separable blur pipeline. Horizontal stages read the irradiance texture and write the
// intermediate targets of their radii; vertical stages read those intermediates and write the blurred targets.
type blurStage struct {
	label     string
	pipeline  int
	direction blurDirection
	radii     [3]int
}

// blurStages lists the blur pipelines in execution order. Both horizontal passes run before either vertical pass.
var blurStages = [4]blurStage{
	{label: "blur 1", pipeline: 1, direction: blurHorizontal, radii: [3]int{0, 1, 2}},
	{label: "blur 3", pipeline: 3, direction: blurHorizontal, radii: [3]int{3, 4, 5}},
	{label: "blur 2", pipeline: 2, direction: blurVertical, radii: [3]int{0, 1, 2}},
	{label: "blur 4", pipeline: 4, direction: blurVertical, radii: [3]int{3, 4, 5}},
}

// sources returns the three textures the stage samples.
func (s blurStage) sources(t *passTargets) [3]target {
	var out [3]target
	for i, r := range s.radii {
		if s.direction == blurHorizontal {
			out[i] = t.irradiance
		} else {
			out[i] = t.intermediate[r]
		}
	}
	return out
}

// outputs returns the three targets the stage renders into.
func (s blurStage) outputs(t *passTargets) [3]target {
	var out [3]target
	for i, r := range s.radii {
		if s.direction == blurHorizontal {
			out[i] = t.intermediate[r]
		} else {
			out[i] = t.blurred[r]
		}
	}
	return out
}

var transparent = wgpu.Color{}

// encodeFrame records the whole chain into one encoder and submits it once. The surface is acquired only for the
// composite pass and is presented on every path after a successful acquire.
func (fc *frameContext) encodeFrame(clear wgpu.Color) error {
	enc, err := fc.backend.CreateCommandEncoder("frame")
	if err != nil {
		return fmt.Errorf("create frame encoder: %w", err)
	}
	defer enc.Release()

	if err := fc.encodeShadow(enc); err != nil {
		return err
	}
	if err := fc.encodeIrradiance(enc); err != nil {
		return err
	}
	for i, stage := range blurStages {
		if err := fc.encodeBlur(enc, i, stage); err != nil {
			return err
		}
	}

	surface, err := fc.backend.AcquireSurfaceView()
	if err != nil {
		return fmt.Errorf("acquire surface: %w", err)
	}
	defer fc.backend.Present()
	defer surface.Release()

	if err := fc.encodeComposite(enc, surface, clear); err != nil {
		return err
	}

	cmd, err := enc.Finish()
	if err != nil {
		return fmt.Errorf("finish frame: %w", err)
	}
	defer cmd.Release()
	if err := fc.backend.Submit(cmd); err != nil {
		return fmt.Errorf("submit frame: %w", err)
	}
	return nil
}

// beginPass starts a pass and sets the viewport to the full attachment extent.
func (fc *frameContext) beginPass(enc gpu.CommandEncoder, desc gpu.RenderPassDescriptor, width, height uint32) (gpu.RenderPass, error) {
	pass, err := enc.BeginRenderPass(desc)
	if err != nil {
		return nil, fmt.Errorf("begin %s pass: %w", desc.Label, err)
	}
	pass.SetViewport(0, 0, float32(width), float32(height), 0, 1)
	return pass, nil
}

func (fc *frameContext) endPass(pass gpu.RenderPass, label string, draws int) error {
	if err := pass.End(); err != nil {
		return fmt.Errorf("end %s pass: %w", label, err)
	}
	fc.logger.WithFields(log.Fields{
		"pass":  label,
		"draws": draws,
	}).Debug("encoded pass")
	return nil
}

// drawModels issues one indexed draw per model with the model bound at group 1.
func (fc *frameContext) drawModels(pass gpu.RenderPass) int {
	for _, m := range fc.models {
		pass.SetBindGroup(1, m.BindGroup())
		pass.SetVertexBuffer(0, m.VertexBuffer())
		pass.SetIndexBuffer(m.IndexBuffer(), wgpu.IndexFormatUint32)
		pass.DrawIndexed(uint32(m.IndexCount()), 1)
	}
	return len(fc.models)
}

// encodeShadow renders depth from the light. The map is always cleared so later passes may sample it; draws are
// skipped when the light casts no shadows.
func (fc *frameContext) encodeShadow(enc gpu.CommandEncoder) error {
	const label = "shadow"
	pass, err := fc.beginPass(enc, gpu.RenderPassDescriptor{
		Label:           label,
		DepthAttachment: &gpu.DepthAttachment{View: fc.targets.shadowDepth.view, ClearValue: 1},
	}, fc.shadowSize, fc.shadowSize)
	if err != nil {
		return err
	}

	draws := 0
	if fc.castShadows {
		pass.SetPipeline(fc.pipelines.shadow.Native())
		pass.SetBindGroup(0, fc.groups.global)
		draws = fc.drawModels(pass)
	}
	return fc.endPass(pass, label, draws)
}

// encodeIrradiance renders lit, shadowed irradiance from the camera into the irradiance target.
func (fc *frameContext) encodeIrradiance(enc gpu.CommandEncoder) error {
	const label = "irradiance"
	pass, err := fc.beginPass(enc, gpu.RenderPassDescriptor{
		Label:            label,
		ColorAttachments: []gpu.ColorAttachment{{View: fc.targets.irradiance.view, ClearValue: transparent}},
		DepthAttachment:  &gpu.DepthAttachment{View: fc.targets.irradianceDepth.view, ClearValue: 1},
	}, fc.width, fc.height)
	if err != nil {
		return err
	}

	pass.SetPipeline(fc.pipelines.irradiance.Native())
	pass.SetBindGroup(0, fc.groups.global)
	pass.SetBindGroup(2, fc.groups.shadowMap)
	draws := fc.drawModels(pass)
	return fc.endPass(pass, label, draws)
}

// encodeBlur runs one blur stage as a full-screen quad writing three targets at once.
func (fc *frameContext) encodeBlur(enc gpu.CommandEncoder, i int, stage blurStage) error {
	outputs := stage.outputs(&fc.targets)
	attachments := make([]gpu.ColorAttachment, len(outputs))
	for j, o := range outputs {
		attachments[j] = gpu.ColorAttachment{View: o.view, ClearValue: transparent}
	}

	pass, err := fc.beginPass(enc, gpu.RenderPassDescriptor{
		Label:            stage.label,
		ColorAttachments: attachments,
	}, fc.width, fc.height)
	if err != nil {
		return err
	}

	pass.SetPipeline(fc.pipelines.blur[i].Native())
	pass.SetBindGroup(0, fc.groups.blurInput[i])
	pass.SetVertexBuffer(0, fc.quadVertices)
	pass.SetIndexBuffer(fc.quadIndices, wgpu.IndexFormatUint32)
	pass.DrawIndexed(uint32(len(quadIndices)), 1)
	return fc.endPass(pass, stage.label, 1)
}

// encodeComposite combines the blurred radii, the surface maps and specular into the surface.
func (fc *frameContext) encodeComposite(enc gpu.CommandEncoder, surface gpu.TextureView, clear wgpu.Color) error {
	const label = "composite"
	pass, err := fc.beginPass(enc, gpu.RenderPassDescriptor{
		Label:            label,
		ColorAttachments: []gpu.ColorAttachment{{View: surface, ClearValue: clear}},
		DepthAttachment:  &gpu.DepthAttachment{View: fc.targets.screenDepth.view, ClearValue: 1},
	}, fc.width, fc.height)
	if err != nil {
		return err
	}

	pass.SetPipeline(fc.pipelines.composite.Native())
	pass.SetBindGroup(0, fc.groups.global)
	pass.SetBindGroup(2, fc.groups.shadowMap)
	pass.SetBindGroup(3, fc.groups.blurred)
	draws := fc.drawModels(pass)
	return fc.endPass(pass, label, draws)
}
