package app

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/resource"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	// DefaultShadowMapSize is the edge length of the square shadow map in texels.
	DefaultShadowMapSize uint32 = 2048

	blurRadii = 6

	colorFormat       = wgpu.TextureFormatRGBA8Unorm
	sceneDepthFormat  = wgpu.TextureFormatDepth24Plus
	shadowDepthFormat = wgpu.TextureFormatDepth32Float
)

// TargetInfo describes one offscreen pass target as it was allocated.
type TargetInfo struct {
	Label  string
	Width  uint32
	Height uint32
	Format wgpu.TextureFormat
}

// target is an offscreen texture together with the view every pass reads or writes it through.
type target struct {
	texture gpu.Texture
	view    gpu.TextureView
}

func (t target) info() TargetInfo {
	return TargetInfo{
		Label:  t.texture.Label(),
		Width:  t.texture.Width(),
		Height: t.texture.Height(),
		Format: t.texture.Format(),
	}
}

func (t target) release() {
	if t.view != nil {
		t.view.Release()
	}
	if t.texture != nil {
		t.texture.Release()
	}
}

// passTargets are the fixed-size attachments of the pass chain. They are allocated once and never resized.
type passTargets struct {
	shadowDepth     target
	irradiance      target
	irradianceDepth target
	intermediate    [blurRadii]target
	blurred         [blurRadii]target
	screenDepth     target
}

// all returns every target in allocation order.
func (p *passTargets) all() []target {
	out := []target{p.shadowDepth, p.irradiance, p.irradianceDepth}
	out = append(out, p.intermediate[:]...)
	out = append(out, p.blurred[:]...)
	return append(out, p.screenDepth)
}

func (p *passTargets) release() {
	for _, t := range p.all() {
		t.release()
	}
	*p = passTargets{}
}

// newPassTargets allocates every offscreen target. Screen-space targets match the canvas; the shadow map is a
// square of shadowSize texels. Targets a later pass samples carry texture-binding usage as well.
func newPassTargets(b gpu.Backend, width, height, shadowSize uint32) (passTargets, error) {
	sampled := wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding
	attachOnly := wgpu.TextureUsageRenderAttachment

	var p passTargets
	create := func(label string, w, h uint32, format wgpu.TextureFormat, usage wgpu.TextureUsage) (target, error) {
		tex, err := resource.CreateTexture(b, label, w, h, format, usage)
		if err != nil {
			return target{}, err
		}
		view, err := tex.CreateView()
		if err != nil {
			tex.Release()
			return target{}, fmt.Errorf("view of %s: %w", label, err)
		}
		return target{texture: tex, view: view}, nil
	}

	var err error
	if p.shadowDepth, err = create("shadow depth", shadowSize, shadowSize, shadowDepthFormat, sampled); err != nil {
		return passTargets{}, err
	}
	if p.irradiance, err = create("irradiance", width, height, colorFormat, sampled); err != nil {
		p.release()
		return passTargets{}, err
	}
	if p.irradianceDepth, err = create("irradiance depth", width, height, sceneDepthFormat, attachOnly); err != nil {
		p.release()
		return passTargets{}, err
	}
	for i := range blurRadii {
		if p.intermediate[i], err = create(fmt.Sprintf("blur intermediate %d", i), width, height, colorFormat, sampled); err != nil {
			p.release()
			return passTargets{}, err
		}
		if p.blurred[i], err = create(fmt.Sprintf("blurred %d", i), width, height, colorFormat, sampled); err != nil {
			p.release()
			return passTargets{}, err
		}
	}
	if p.screenDepth, err = create("screen depth", width, height, sceneDepthFormat, attachOnly); err != nil {
		p.release()
		return passTargets{}, err
	}
	return p, nil
}
