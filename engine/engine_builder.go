package engine

import (
	"github.com/rs/zerolog"

	"github.com/Carmen-Shannon/oxy-lighting/engine/dynamic_effect"
	"github.com/Carmen-Shannon/oxy-lighting/engine/lighting"
	"github.com/Carmen-Shannon/oxy-lighting/engine/profiler"
	"github.com/Carmen-Shannon/oxy-lighting/engine/scene"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfiler replaces the default profiler.
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// The tick callback will be called at this rate for scene updates.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.engineTickRate = tickInterval(fps)
	}
}

// WithScene registers a scene at the given z-index key during engine construction.
// Scenes are rendered in ascending key order.
//
// Parameters:
//   - key: the z-index determining render order (lower renders first)
//   - s: the Scene to register
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(key int, s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scenes[key] = s
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = tickInterval(fps)
	}
}

// WithLogger sets the logger of the engine and of the features and compilers it creates.
func WithLogger(logger zerolog.Logger) EngineBuilderOption {
	return func(e *engine) {
		e.logger = logger
	}
}

// WithLightingOptions sets the options every per-scene ForwardLighting is created with.
//
// Parameters:
//   - options: forward lighting options, applied after the engine's logger
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLightingOptions(options ...lighting.ForwardLightingBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.lightingOptions = append(e.lightingOptions, options...)
	}
}

// WithDynamicCompilerOptions sets the options every per-effect dynamic compiler is created with.
func WithDynamicCompilerOptions(options ...dynamic_effect.DynamicEffectCompilerBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.compilerOptions = append(e.compilerOptions, options...)
	}
}
