package lighting

import "github.com/rs/zerolog"

// LightGroupRendererBuilderOption is a functional option used to configure a LightGroupRendererDynamic during construction.
type LightGroupRendererBuilderOption func(*LightGroupRendererDynamic)

// WithLightMaxCount sets the maximum number of lights one group handles per view.
//
// Parameters:
//   - n: the maximum light count
//
// Returns:
//   - LightGroupRendererBuilderOption: a function that sets the maximum light count
func WithLightMaxCount(n int) LightGroupRendererBuilderOption {
	return func(r *LightGroupRendererDynamic) {
		r.lightMaxCount = n
	}
}

// WithAllocateLightMaxCount makes unshadowed groups always handle LightMaxCount lights, so the
// fragment never changes with the number of visible lights.
//
// Parameters:
//   - allocate: whether to allocate the maximum count
//
// Returns:
//   - LightGroupRendererBuilderOption: a function that sets the allocation policy
func WithAllocateLightMaxCount(allocate bool) LightGroupRendererBuilderOption {
	return func(r *LightGroupRendererDynamic) {
		r.allocateLightMaxCount = allocate
	}
}

// WithShadowMapRenderer enables shadowed groups. Without a shadow map renderer every light is
// rendered without shadow.
//
// Parameters:
//   - shadows: the shadow map renderer assigning the shadow maps
//
// Returns:
//   - LightGroupRendererBuilderOption: a function that sets the shadow map renderer
func WithShadowMapRenderer(shadows ShadowMapRenderer) LightGroupRendererBuilderOption {
	return func(r *LightGroupRendererDynamic) {
		r.shadows = shadows
	}
}

// WithNonShadowRenderer hands every unshadowed light to another renderer.
//
// Parameters:
//   - next: the renderer taking the unshadowed lights
//
// Returns:
//   - LightGroupRendererBuilderOption: a function that sets the downstream renderer
func WithNonShadowRenderer(next LightGroupRenderer) LightGroupRendererBuilderOption {
	return func(r *LightGroupRendererDynamic) {
		r.nonShadow = next
	}
}

// WithRendererLogger sets the logger of the renderer.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - LightGroupRendererBuilderOption: a function that sets the logger
func WithRendererLogger(logger zerolog.Logger) LightGroupRendererBuilderOption {
	return func(r *LightGroupRendererDynamic) {
		r.logger = logger
	}
}
