package effect

import "github.com/rs/zerolog"

// EffectSystemBuilderOption configures an EffectSystem created by NewEffectSystem.
type EffectSystemBuilderOption func(*effectSystemImpl)

// WithLogger sets the logger used for compiler messages and invalidations.
func WithLogger(logger zerolog.Logger) EffectSystemBuilderOption {
	return func(s *effectSystemImpl) {
		s.logger = logger
	}
}

// WithEarlyCacheSize bounds the number of effect names kept in the early compiler cache.
func WithEarlyCacheSize(size int) EffectSystemBuilderOption {
	return func(s *effectSystemImpl) {
		if size > 0 {
			s.earlyCacheSize = size
		}
	}
}

// WithSourceWatching enables watching the files of file-backed shader classes.
func WithSourceWatching(enabled bool) EffectSystemBuilderOption {
	return func(s *effectSystemImpl) {
		s.watchSources = enabled
	}
}
