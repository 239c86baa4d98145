package bind_group_provider

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/rs/zerolog"
)

// GPUAllocatorBuilderOption is a functional option used to configure a GPUAllocator during construction.
type GPUAllocatorBuilderOption func(*gpuAllocatorImpl)

// WithLogger sets the logger of the allocator.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - GPUAllocatorBuilderOption: a function that sets the logger
func WithLogger(logger zerolog.Logger) GPUAllocatorBuilderOption {
	return func(a *gpuAllocatorImpl) {
		a.logger = logger
	}
}

// WithVisibility sets the shader stages resource groups are visible to. Defaults to vertex and fragment.
//
// Parameters:
//   - visibility: the shader stages
//
// Returns:
//   - GPUAllocatorBuilderOption: a function that sets the visibility
func WithVisibility(visibility wgpu.ShaderStage) GPUAllocatorBuilderOption {
	return func(a *gpuAllocatorImpl) {
		a.visibility = visibility
	}
}
