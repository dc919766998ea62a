package light

import (
	"github.com/go-gl/mathgl/mgl32"
)

// DirectionalLightBuilderOption configures a light during NewDirectionalLight.
type DirectionalLightBuilderOption func(*directionalLightImpl)

// WithPosition sets the world-space position of the light.
//
// Parameters:
//   - x, y, z: position components
//
// Returns:
//   - DirectionalLightBuilderOption: a function that sets the position
func WithPosition(x, y, z float32) DirectionalLightBuilderOption {
	return func(l *directionalLightImpl) {
		l.position = mgl32.Vec3{x, y, z}
	}
}

// WithTarget sets the point the light is aimed at.
//
// Parameters:
//   - x, y, z: target components
//
// Returns:
//   - DirectionalLightBuilderOption: a function that sets the target
func WithTarget(x, y, z float32) DirectionalLightBuilderOption {
	return func(l *directionalLightImpl) {
		l.target = mgl32.Vec3{x, y, z}
	}
}

// WithColor sets the light color as given. Use UpdateColorAndIntensity for a normalized color.
//
// Parameters:
//   - r, g, b: color components
//
// Returns:
//   - DirectionalLightBuilderOption: a function that sets the color
func WithColor(r, g, b float32) DirectionalLightBuilderOption {
	return func(l *directionalLightImpl) {
		l.color = mgl32.Vec3{r, g, b}
	}
}

// WithIntensity sets the scalar color multiplier.
//
// Parameters:
//   - intensity: the intensity
//
// Returns:
//   - DirectionalLightBuilderOption: a function that sets the intensity
func WithIntensity(intensity float32) DirectionalLightBuilderOption {
	return func(l *directionalLightImpl) {
		l.intensity = intensity
	}
}

// WithShadows sets whether the light casts shadows.
func WithShadows(enabled bool) DirectionalLightBuilderOption {
	return func(l *directionalLightImpl) {
		l.castsShadows = enabled
	}
}
