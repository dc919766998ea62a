package loader

import (
	"github.com/Carmen-Shannon/oxy-sss/engine/model"
	log "github.com/sirupsen/logrus"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithMeshes is an option builder that pre-populates the mesh cache.
//
// Parameters:
//   - key: the cache key for the meshes
//   - meshes: the meshes to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the cache entry to a loader
func WithMeshes(key string, meshes []model.Mesh) LoaderBuilderOption {
	return func(l *loader) {
		l.meshCache[key] = meshes
	}
}

// WithLogger is an option builder that sets the log entry the Loader reports to.
//
// Parameters:
//   - entry: the logrus entry
//
// Returns:
//   - LoaderBuilderOption: a function that applies the logger to a loader
func WithLogger(entry *log.Entry) LoaderBuilderOption {
	return func(l *loader) {
		if entry != nil {
			l.logger = entry
		}
	}
}
