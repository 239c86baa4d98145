package dynamic_effect

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/Carmen-Shannon/oxy-lighting/engine/parameter"
)

// DynamicEffectCompilerBuilderOption configures a DynamicEffectCompiler.
type DynamicEffectCompilerBuilderOption func(*dynamicEffectCompilerImpl)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) DynamicEffectCompilerBuilderOption {
	return func(c *dynamicEffectCompilerImpl) {
		c.logger = logger
	}
}

// WithAsyncCompilation binds a fallback effect while compilation runs in the background.
func WithAsyncCompilation(enabled bool) DynamicEffectCompilerBuilderOption {
	return func(c *dynamicEffectCompilerImpl) {
		c.async = enabled
	}
}

// WithTaskPriority sets the priority of compile requests. Negative priorities compile inline.
func WithTaskPriority(priority int) DynamicEffectCompilerBuilderOption {
	return func(c *dynamicEffectCompilerImpl) {
		c.taskPriority = priority
	}
}

// WithDeviceParameters sets the device parameters merged into every compile request.
func WithDeviceParameters(device parameter.ParameterCollection) DynamicEffectCompilerBuilderOption {
	return func(c *dynamicEffectCompilerImpl) {
		c.device = device
	}
}

// WithFallback replaces DefaultFallback.
func WithFallback(fn FallbackFunc) DynamicEffectCompilerBuilderOption {
	return func(c *dynamicEffectCompilerImpl) {
		if fn != nil {
			c.fallback = fn
		}
	}
}

// WithErrorRetryInterval sets how long an instance in error waits before compiling again.
func WithErrorRetryInterval(d time.Duration) DynamicEffectCompilerBuilderOption {
	return func(c *dynamicEffectCompilerImpl) {
		c.retryInterval = d
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) DynamicEffectCompilerBuilderOption {
	return func(c *dynamicEffectCompilerImpl) {
		if now != nil {
			c.now = now
		}
	}
}
