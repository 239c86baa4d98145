package bind_group_provider

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/rs/zerolog"
)

// Device is a headless WebGPU device with the shadow resources the lighting feature binds.
type Device struct {
	mu     *sync.Mutex
	logger zerolog.Logger

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	allocators     []GPUAllocator
	shadowTextures []*wgpu.Texture
	shadowViews    []*wgpu.TextureView
	sampler        *wgpu.Sampler
}

// OpenDevice requests an adapter without a surface and creates a device on it.
//
// Parameters:
//   - forceFallbackAdapter: request the software adapter
//   - logger: the logger of the device and of the allocators it creates
//
// Returns:
//   - *Device: the device
//   - error: an error if no adapter or device is available
func OpenDevice(forceFallbackAdapter bool, logger zerolog.Logger) (*Device, error) {
	d := &Device{
		mu:       &sync.Mutex{},
		logger:   logger.With().Str("component", "gpu_device").Logger(),
		instance: wgpu.CreateInstance(nil),
	}
	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{ForceFallbackAdapter: forceFallbackAdapter})
	if err != nil {
		d.instance.Release()
		return nil, fmt.Errorf("bind_group_provider: failed to request adapter: %w", err)
	}
	d.adapter = a

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{Label: "Lighting Device"})
	if err != nil {
		a.Release()
		d.instance.Release()
		return nil, fmt.Errorf("bind_group_provider: failed to request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()
	return d, nil
}

// Allocator creates a resource allocator on the device. It is released with the device.
func (d *Device) Allocator(options ...GPUAllocatorBuilderOption) GPUAllocator {
	d.mu.Lock()
	defer d.mu.Unlock()
	opts := append([]GPUAllocatorBuilderOption{WithLogger(d.logger)}, options...)
	a := NewGPUAllocator(d.device, d.queue, opts...)
	d.allocators = append(d.allocators, a)
	return a
}

// ShadowAtlasTexture creates a square Depth32Float atlas and returns its view, or nil if the
// device refused it. It matches the shadow map renderer's texture factory signature.
func (d *Device) ShadowAtlasTexture(index, size int) any {
	d.mu.Lock()
	defer d.mu.Unlock()

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: fmt.Sprintf("Shadow Atlas %d", index),
		Size: wgpu.Extent3D{
			Width:              uint32(size),
			Height:             uint32(size),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth32Float,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		d.logger.Error().Err(err).Int("atlas", index).Int("size", size).Msg("failed to create shadow atlas")
		return nil
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		d.logger.Error().Err(err).Int("atlas", index).Msg("failed to create shadow atlas view")
		return nil
	}
	d.shadowTextures = append(d.shadowTextures, tex)
	d.shadowViews = append(d.shadowViews, view)
	return view
}

// ComparisonSampler returns the shadow comparison sampler, creating it on first use.
func (d *Device) ComparisonSampler() (*wgpu.Sampler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sampler != nil {
		return d.sampler, nil
	}
	samp, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Shadow Comparison Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		Compare:       wgpu.CompareFunctionLess,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("bind_group_provider: failed to create comparison sampler: %w", err)
	}
	d.sampler = samp
	return samp, nil
}

// Release releases the allocators, the shadow resources, the device and the instance.
// Providers of the allocators must be released by their owners first.
func (d *Device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, a := range d.allocators {
		a.Release()
	}
	d.allocators = nil
	for _, v := range d.shadowViews {
		v.Release()
	}
	for _, t := range d.shadowTextures {
		t.Release()
	}
	d.shadowViews, d.shadowTextures = nil, nil
	if d.sampler != nil {
		d.sampler.Release()
		d.sampler = nil
	}
	d.queue.Release()
	d.device.Release()
	d.adapter.Release()
	d.instance.Release()
}
