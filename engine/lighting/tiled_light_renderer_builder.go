package lighting

import "github.com/rs/zerolog"

// TiledLightRendererBuilderOption is a functional option used to configure a TiledLightRenderer during construction.
type TiledLightRendererBuilderOption func(*TiledLightRenderer)

// WithTiledLightMaxCount sets the maximum number of lights binned per view.
//
// Parameters:
//   - n: the maximum light count
//
// Returns:
//   - TiledLightRendererBuilderOption: a function that sets the maximum light count
func WithTiledLightMaxCount(n int) TiledLightRendererBuilderOption {
	return func(r *TiledLightRenderer) {
		r.lightMaxCount = n
	}
}

// WithTiledLogger sets the logger of the tiled renderer.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - TiledLightRendererBuilderOption: a function that sets the logger
func WithTiledLogger(logger zerolog.Logger) TiledLightRendererBuilderOption {
	return func(r *TiledLightRenderer) {
		r.logger = logger
	}
}
