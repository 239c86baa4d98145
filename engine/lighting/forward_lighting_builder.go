package lighting

import (
	"github.com/rs/zerolog"

	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer"
)

// ForwardLightingBuilderOption is a functional option used to configure a ForwardLighting during construction.
type ForwardLightingBuilderOption func(*forwardLightingImpl)

// WithLogger sets the logger of the feature. It is handed to the default renderers.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - ForwardLightingBuilderOption: a function that sets the logger
func WithLogger(logger zerolog.Logger) ForwardLightingBuilderOption {
	return func(f *forwardLightingImpl) {
		f.logger = logger
	}
}

// WithRendererRegistry replaces the default light renderers. The registry's renderers should
// share the shadow map renderer given with WithShadows.
//
// Parameters:
//   - registry: the renderers
//
// Returns:
//   - ForwardLightingBuilderOption: a function that sets the registry
func WithRendererRegistry(registry *RendererRegistry) ForwardLightingBuilderOption {
	return func(f *forwardLightingImpl) {
		f.registry = registry
	}
}

// WithShadows sets the shadow map renderer. A nil renderer disables shadows: every light is
// rendered without shadow, whatever its own shadow settings.
//
// Parameters:
//   - shadows: the shadow map renderer, or nil
//
// Returns:
//   - ForwardLightingBuilderOption: a function that sets the shadow map renderer
func WithShadows(shadows ShadowMapRenderer) ForwardLightingBuilderOption {
	return func(f *forwardLightingImpl) {
		f.shadows = shadows
		f.shadowsConfigured = true
	}
}

// WithShadowMapOptions configures the default shadow map renderer. Ignored with WithShadows.
// Each feature builds its own renderer from these options, so features never share atlases.
//
// Parameters:
//   - options: shadow map renderer options
//
// Returns:
//   - ForwardLightingBuilderOption: a function that appends the options
func WithShadowMapOptions(options ...ShadowMapRendererBuilderOption) ForwardLightingBuilderOption {
	return func(f *forwardLightingImpl) {
		f.shadowOptions = append(f.shadowOptions, options...)
	}
}

// WithResourceAllocator sets the allocator backing the PerLighting resource groups.
//
// Parameters:
//   - allocator: the allocator
//
// Returns:
//   - ForwardLightingBuilderOption: a function that sets the allocator
func WithResourceAllocator(allocator renderer.ResourceAllocator) ForwardLightingBuilderOption {
	return func(f *forwardLightingImpl) {
		f.allocator = allocator
	}
}

// WithLayoutCacheSize bounds the number of effect bytecodes whose layout is cached.
//
// Parameters:
//   - size: the cache size
//
// Returns:
//   - ForwardLightingBuilderOption: a function that sets the cache size
func WithLayoutCacheSize(size int) ForwardLightingBuilderOption {
	return func(f *forwardLightingImpl) {
		if size > 0 {
			f.layoutCacheSize = size
		}
	}
}
