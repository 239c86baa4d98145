package scene

import (
	"github.com/rs/zerolog"

	"github.com/Carmen-Shannon/oxy-lighting/engine/light"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is active for rendering.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithLights adds initial lights to the scene.
//
// Parameters:
//   - lights: the lights to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLights(lights ...light.Light) SceneBuilderOption {
	return func(s *scene) {
		for _, l := range lights {
			s.addLight(l)
		}
	}
}

// WithMeshes adds initial meshes to the scene. Ids are assigned from 1 in argument order.
//
// Parameters:
//   - meshes: the meshes to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithMeshes(meshes ...*renderer.RenderMesh) SceneBuilderOption {
	return func(s *scene) {
		for _, m := range meshes {
			s.addMesh(m)
		}
	}
}

// WithViews adds initial views to the scene.
//
// Parameters:
//   - views: the views to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithViews(views ...*renderer.RenderView) SceneBuilderOption {
	return func(s *scene) {
		for _, v := range views {
			s.addView(v)
		}
	}
}

// WithLogger sets the scene's logger.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLogger(logger zerolog.Logger) SceneBuilderOption {
	return func(s *scene) {
		s.logger = logger
	}
}
