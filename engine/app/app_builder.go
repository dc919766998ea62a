package app

import log "github.com/sirupsen/logrus"

// DefaultTextureNames are the albedo, specular and scattering image names, in that order.
var DefaultTextureNames = [3]string{"albedo.png", "specular.png", "scattering.png"}

// AppBuilderOption is a functional option for configuring an App.
type AppBuilderOption func(*app)

// WithLogger sets the log entry the App and its passes write to.
//
// Parameters:
//   - entry: the logrus entry to use
//
// Returns:
//   - AppBuilderOption: a function that applies the logger
func WithLogger(entry *log.Entry) AppBuilderOption {
	return func(a *app) {
		if entry != nil {
			a.logger = entry
		}
	}
}

// WithShadowMapSize sets the edge length of the square shadow map. Zero keeps DefaultShadowMapSize.
//
// Parameters:
//   - size: texels per edge
//
// Returns:
//   - AppBuilderOption: a function that applies the size
func WithShadowMapSize(size uint32) AppBuilderOption {
	return func(a *app) {
		if size > 0 {
			a.shadowSize = size
		}
	}
}

// WithTextureNames sets the names LoadTextures requests from its image source. Empty names keep their defaults.
func WithTextureNames(albedo, specular, scattering string) AppBuilderOption {
	return func(a *app) {
		for i, name := range [3]string{albedo, specular, scattering} {
			if name != "" {
				a.textureNames[i] = name
			}
		}
	}
}
