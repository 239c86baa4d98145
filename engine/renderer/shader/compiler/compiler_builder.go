package compiler

import "github.com/rs/zerolog"

// EffectCompilerBuilderOption configures an EffectCompiler created by NewEffectCompiler.
type EffectCompilerBuilderOption func(*effectCompilerImpl)

// WithLogger sets the compiler logger.
func WithLogger(logger zerolog.Logger) EffectCompilerBuilderOption {
	return func(c *effectCompilerImpl) {
		c.logger = logger
	}
}

// WithWorkers enables asynchronous bytecode generation on a pool of n workers.
// Requests with a negative task priority are still generated inline.
func WithWorkers(n int) EffectCompilerBuilderOption {
	return func(c *effectCompilerImpl) {
		c.workers = n
	}
}
