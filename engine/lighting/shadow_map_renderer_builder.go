package lighting

import "github.com/rs/zerolog"

// ShadowMapRendererBuilderOption is a functional option used to configure a ShadowMapRenderer during construction.
type ShadowMapRendererBuilderOption func(*shadowMapRendererImpl)

// WithShadowAtlasSize sets the width and height in texels of every view's shadow atlas.
//
// Parameters:
//   - size: the atlas size
//
// Returns:
//   - ShadowMapRendererBuilderOption: a function that sets the atlas size
func WithShadowAtlasSize(size int) ShadowMapRendererBuilderOption {
	return func(s *shadowMapRendererImpl) {
		s.atlasSize = size
	}
}

// WithShadowTextureFactory sets the function creating the backend texture of an atlas.
// It is called once per atlas.
//
// Parameters:
//   - factory: creates the texture of atlas index with the given size
//
// Returns:
//   - ShadowMapRendererBuilderOption: a function that sets the texture factory
func WithShadowTextureFactory(factory func(index, size int) any) ShadowMapRendererBuilderOption {
	return func(s *shadowMapRendererImpl) {
		s.textureFactory = factory
	}
}

// WithShadowSampler sets the comparison sampler bound next to the shadow maps.
//
// Parameters:
//   - sampler: the backend sampler
//
// Returns:
//   - ShadowMapRendererBuilderOption: a function that sets the sampler
func WithShadowSampler(sampler any) ShadowMapRendererBuilderOption {
	return func(s *shadowMapRendererImpl) {
		s.sampler = sampler
	}
}

// WithShadowLogger sets the logger of the shadow map renderer.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - ShadowMapRendererBuilderOption: a function that sets the logger
func WithShadowLogger(logger zerolog.Logger) ShadowMapRendererBuilderOption {
	return func(s *shadowMapRendererImpl) {
		s.logger = logger
	}
}
