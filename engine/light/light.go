// Package light provides the directional light that drives both the shadow pass and the shading passes.
package light

import (
	"github.com/Carmen-Shannon/oxy-sss/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Shadow frustum of the directional light in light view space.
const (
	shadowExtent float32 = 10
	shadowNear   float32 = 0.1
	shadowFar    float32 = 100
)

// directionalLightImpl is the implementation of the DirectionalLight interface.
type directionalLightImpl struct {
	position     mgl32.Vec3
	target       mgl32.Vec3
	color        mgl32.Vec3
	intensity    float32
	castsShadows bool
}

// DirectionalLight is a light positioned at a point and aimed at a target. Its position only matters for the
// shadow map: shading uses the normalized direction from position to target.
type DirectionalLight interface {
	// Position returns the world-space position of the light.
	//
	// Returns:
	//   - [3]float32: position as (x, y, z)
	Position() [3]float32

	// Target returns the world-space point the light is aimed at.
	//
	// Returns:
	//   - [3]float32: target as (x, y, z)
	Target() [3]float32

	// Direction returns the normalized direction from position to target.
	//
	// Returns:
	//   - [3]float32: direction as (x, y, z)
	Direction() [3]float32

	// Color returns the light color.
	//
	// Returns:
	//   - [3]float32: RGB color
	Color() [3]float32

	// Intensity returns the scalar color multiplier.
	//
	// Returns:
	//   - float32: the intensity
	Intensity() float32

	// CastsShadows reports whether the light renders into the shadow map.
	//
	// Returns:
	//   - bool: true when the light casts shadows
	CastsShadows() bool

	// UpdatePositionAndTarget moves and re-aims the light.
	//
	// Parameters:
	//   - position: new world-space position
	//   - target: new world-space target
	UpdatePositionAndTarget(position, target [3]float32)

	// UpdateColorAndIntensity sets the color, normalized to unit length, and the intensity.
	// A zero color is stored as zero.
	//
	// Parameters:
	//   - color: RGB color, any magnitude
	//   - intensity: scalar multiplier
	UpdateColorAndIntensity(color [3]float32, intensity float32)

	// LightSpaceMatrix returns the orthographic light view-projection used for the shadow map.
	// The volume spans [-10, 10] on x and y and [0.1, 100] in depth, looking from position to target with +Y up,
	// with depth mapped to WebGPU's [0, 1] clip range.
	//
	// Returns:
	//   - [16]float32: column-major matrix
	LightSpaceMatrix() [16]float32

	// Uniform packs the light into its GPU uniform layout.
	//
	// Returns:
	//   - GPULightUniform: direction, premultiplied color and light-space matrix with zero padding
	Uniform() GPULightUniform
}

var _ DirectionalLight = &directionalLightImpl{}

// NewDirectionalLight creates a new DirectionalLight. Without options it sits at (0, 10, 10), aims at the origin,
// is white with intensity 1 and casts shadows.
//
// Parameters:
//   - options: functional options to configure the light
//
// Returns:
//   - DirectionalLight: the new light
func NewDirectionalLight(options ...DirectionalLightBuilderOption) DirectionalLight {
	l := &directionalLightImpl{
		position:     mgl32.Vec3{0, 10, 10},
		color:        mgl32.Vec3{1, 1, 1},
		intensity:    1,
		castsShadows: true,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *directionalLightImpl) Position() [3]float32 { return l.position }

func (l *directionalLightImpl) Target() [3]float32 { return l.target }

func (l *directionalLightImpl) Direction() [3]float32 {
	d := l.target.Sub(l.position)
	if d.Len() == 0 {
		return [3]float32{0, -1, 0}
	}
	return d.Normalize()
}

func (l *directionalLightImpl) Color() [3]float32 { return l.color }

func (l *directionalLightImpl) Intensity() float32 { return l.intensity }

func (l *directionalLightImpl) CastsShadows() bool { return l.castsShadows }

func (l *directionalLightImpl) UpdatePositionAndTarget(position, target [3]float32) {
	l.position = position
	l.target = target
}

func (l *directionalLightImpl) UpdateColorAndIntensity(color [3]float32, intensity float32) {
	c := mgl32.Vec3(color)
	if c.Len() != 0 {
		c = c.Normalize()
	}
	l.color = c
	l.intensity = intensity
}

func (l *directionalLightImpl) LightSpaceMatrix() [16]float32 {
	view := common.LookAt(l.position, l.target, mgl32.Vec3{0, 1, 0})
	proj := mgl32.Ortho(-shadowExtent, shadowExtent, -shadowExtent, shadowExtent, shadowNear, shadowFar)
	return common.WebGPUClipCorrection.Mul4(proj).Mul4(view)
}

func (l *directionalLightImpl) Uniform() GPULightUniform {
	return GPULightUniform{
		Direction:  l.Direction(),
		Color:      l.color.Mul(l.intensity),
		LightSpace: l.LightSpaceMatrix(),
	}
}
