package resource

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// Constraint is the kind-specific shape of one bind group layout slot.
type Constraint struct {
	kind    gpu.ResourceKind
	buffer  wgpu.BufferBindingType
	sampler wgpu.SamplerBindingType
	texture wgpu.TextureSampleType
}

// Kind returns the resource kind the constraint applies to.
func (c Constraint) Kind() gpu.ResourceKind { return c.kind }

// UniformBuffer constrains a slot to a uniform buffer.
func UniformBuffer() Constraint {
	return Constraint{kind: gpu.ResourceKindBuffer, buffer: wgpu.BufferBindingTypeUniform}
}

// FilteringSampler constrains a slot to a filtering sampler.
func FilteringSampler() Constraint {
	return Constraint{kind: gpu.ResourceKindSampler, sampler: wgpu.SamplerBindingTypeFiltering}
}

// ComparisonSampler constrains a slot to a depth comparison sampler.
func ComparisonSampler() Constraint {
	return Constraint{kind: gpu.ResourceKindSampler, sampler: wgpu.SamplerBindingTypeComparison}
}

// FloatTexture constrains a slot to a filterable float 2-D texture.
func FloatTexture() Constraint {
	return Constraint{kind: gpu.ResourceKindTexture, texture: wgpu.TextureSampleTypeFloat}
}

// DepthTexture constrains a slot to a depth 2-D texture.
func DepthTexture() Constraint {
	return Constraint{kind: gpu.ResourceKindTexture, texture: wgpu.TextureSampleTypeDepth}
}

// Resource is one live resource bound into a bind group slot. Build it with Buffer, Sampler or Texture.
type Resource struct {
	kind    gpu.ResourceKind
	buffer  gpu.Buffer
	sampler gpu.Sampler
	view    gpu.TextureView
}

// Kind returns the kind of the wrapped resource.
func (r Resource) Kind() gpu.ResourceKind { return r.kind }

// Buffer wraps a buffer for binding.
func Buffer(buf gpu.Buffer) Resource {
	return Resource{kind: gpu.ResourceKindBuffer, buffer: buf}
}

// Sampler wraps a sampler for binding.
func Sampler(s gpu.Sampler) Resource {
	return Resource{kind: gpu.ResourceKindSampler, sampler: s}
}

// Texture wraps a texture view for binding.
func Texture(view gpu.TextureView) Resource {
	return Resource{kind: gpu.ResourceKindTexture, view: view}
}

// CreateBindGroupLayout builds a layout from parallel arrays indexed by position. Slot i is bound at slots[i] with
// kinds[i] and constraints[i]; its visibility is visibilities[i % len(visibilities)], so a shorter visibility list
// repeats across the slots.
//
// Parameters:
//   - b: the backend to create on
//   - label: debug label
//   - slots: binding indices
//   - visibilities: stage masks, cycled across slots
//   - kinds: resource kind per slot
//   - constraints: kind-specific constraint per slot
//
// Returns:
//   - gpu.BindGroupLayout: the created layout
//   - error: an error if the arrays disagree in length or kind, or the backend rejects the layout
func CreateBindGroupLayout(
	b gpu.Backend,
	label string,
	slots []uint32,
	visibilities []wgpu.ShaderStage,
	kinds []gpu.ResourceKind,
	constraints []Constraint,
) (gpu.BindGroupLayout, error) {
	if b == nil {
		return nil, ErrNoDevice
	}
	if len(kinds) != len(slots) || len(constraints) != len(slots) {
		return nil, fmt.Errorf("layout %s: %d slots, %d kinds, %d constraints", label, len(slots), len(kinds), len(constraints))
	}
	if len(visibilities) == 0 {
		return nil, fmt.Errorf("layout %s: no visibilities", label)
	}

	entries := make([]gpu.LayoutEntry, len(slots))
	for i, slot := range slots {
		c := constraints[i]
		if c.kind != kinds[i] {
			return nil, fmt.Errorf("layout %s slot %d: %v constraint for %v slot: %w", label, slot, c.kind, kinds[i], ErrBindingKindMismatch)
		}
		entries[i] = gpu.LayoutEntry{
			Binding:    slot,
			Visibility: visibilities[i%len(visibilities)],
			Kind:       kinds[i],
			Buffer:     c.buffer,
			Sampler:    c.sampler,
			Texture:    c.texture,
		}
	}

	layout, err := b.CreateBindGroupLayout(label, entries)
	if err != nil {
		return nil, fmt.Errorf("create layout %s: %w", label, err)
	}
	return layout, nil
}

// CreateBindGroup binds resources[i] to the i-th slot of layout.
//
// Parameters:
//   - b: the backend to create on
//   - label: debug label
//   - resources: one resource per layout slot, in slot order
//   - layout: the layout to bind against
//
// Returns:
//   - gpu.BindGroup: the created bind group
//   - error: ErrBindingCountMismatch, ErrBindingKindMismatch, or a backend error
func CreateBindGroup(b gpu.Backend, label string, resources []Resource, layout gpu.BindGroupLayout) (gpu.BindGroup, error) {
	if b == nil {
		return nil, ErrNoDevice
	}
	slots := layout.Entries()
	if len(resources) != len(slots) {
		return nil, fmt.Errorf("bind group %s: %d resources for %d slots of %s: %w", label, len(resources), len(slots), layout.Label(), ErrBindingCountMismatch)
	}

	entries := make([]gpu.BindGroupEntry, len(resources))
	for i, r := range resources {
		slot := slots[i]
		if r.kind != slot.Kind {
			return nil, fmt.Errorf("bind group %s slot %d: %v bound to %v slot: %w", label, slot.Binding, r.kind, slot.Kind, ErrBindingKindMismatch)
		}
		entries[i] = gpu.BindGroupEntry{
			Binding:     slot.Binding,
			Kind:        r.kind,
			Buffer:      r.buffer,
			Sampler:     r.sampler,
			TextureView: r.view,
		}
	}

	group, err := b.CreateBindGroup(label, layout, entries)
	if err != nil {
		return nil, fmt.Errorf("create bind group %s: %w", label, err)
	}
	return group, nil
}
