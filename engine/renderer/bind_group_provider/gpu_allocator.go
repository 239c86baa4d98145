package bind_group_provider

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/rs/zerolog"

	"github.com/Carmen-Shannon/oxy-lighting/common"
	"github.com/Carmen-Shannon/oxy-lighting/engine/effect"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer"
)

// GPUAllocator is a renderer.ResourceAllocator backed by WebGPU. Every resource group gets a
// BindGroupProvider holding a uniform buffer for its constant buffer, storage buffers for
// []byte descriptor values and a bind group rebuilt on every commit. Bind group layouts are
// created once per resource group layout hash.
//
// Descriptor values must be *wgpu.TextureView for textures, *wgpu.Sampler for samplers and
// []byte for storage buffers.
type GPUAllocator interface {
	renderer.ResourceAllocator

	// Provider returns the provider behind a prepared resource group.
	//
	// Parameters:
	//   - group: the resource group
	//
	// Returns:
	//   - BindGroupProvider: the provider, nil if the group was never prepared by this allocator
	Provider(group *renderer.ResourceGroup) BindGroupProvider

	// Release releases every cached bind group layout.
	// Providers must be released by their owners first.
	Release()
}

type gpuAllocatorImpl struct {
	device     *wgpu.Device
	queue      *wgpu.Queue
	visibility wgpu.ShaderStage
	logger     zerolog.Logger

	mu      sync.Mutex
	layouts map[common.ObjectID]*wgpu.BindGroupLayout
}

var _ GPUAllocator = &gpuAllocatorImpl{}

// NewGPUAllocator creates an allocator on a device and its queue.
//
// Parameters:
//   - device: the WebGPU device
//   - queue: the device queue
//   - options: builder options
//
// Returns:
//   - GPUAllocator: the allocator
func NewGPUAllocator(device *wgpu.Device, queue *wgpu.Queue, options ...GPUAllocatorBuilderOption) GPUAllocator {
	if device == nil || queue == nil {
		panic("bind_group_provider: device and queue must not be nil")
	}
	a := &gpuAllocatorImpl{
		device:     device,
		queue:      queue,
		visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
		logger:     zerolog.Nop(),
		layouts:    make(map[common.ObjectID]*wgpu.BindGroupLayout),
	}
	for _, opt := range options {
		opt(a)
	}
	a.logger = a.logger.With().Str("component", "gpu_allocator").Logger()
	return a
}

// LayoutDescriptor converts a resource group layout into a bind group layout descriptor.
//
// Parameters:
//   - layout: the resource group layout
//   - visibility: the shader stages the group is visible to
//
// Returns:
//   - wgpu.BindGroupLayoutDescriptor: the descriptor
func LayoutDescriptor(layout *renderer.ResourceGroupLayout, visibility wgpu.ShaderStage) wgpu.BindGroupLayoutDescriptor {
	entries := make([]wgpu.BindGroupLayoutEntry, len(layout.Entries))
	for i, e := range layout.Entries {
		entry := wgpu.BindGroupLayoutEntry{
			Binding:    uint32(e.Binding),
			Visibility: visibility,
		}
		switch e.Type {
		case effect.ResourceTypeConstantBuffer:
			entry.Buffer.Type = wgpu.BufferBindingTypeUniform
			entry.Buffer.MinBindingSize = uint64(layout.ConstantBufferSize())
		case effect.ResourceTypeStorageBuffer:
			entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		case effect.ResourceTypeTexture:
			entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
			entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
		case effect.ResourceTypeDepthTexture:
			entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
			entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
		case effect.ResourceTypeSampler:
			entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
		case effect.ResourceTypeComparisonSampler:
			entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
		}
		entries[i] = entry
	}
	return wgpu.BindGroupLayoutDescriptor{
		Label:   layout.Name + " Layout",
		Entries: entries,
	}
}

func (a *gpuAllocatorImpl) bindGroupLayout(layout *renderer.ResourceGroupLayout) (*wgpu.BindGroupLayout, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if bgl, ok := a.layouts[layout.Hash]; ok {
		return bgl, nil
	}
	desc := LayoutDescriptor(layout, a.visibility)
	bgl, err := a.device.CreateBindGroupLayout(&desc)
	if err != nil {
		return nil, fmt.Errorf("bind_group_provider: failed to create layout %q: %w", layout.Name, err)
	}
	a.layouts[layout.Hash] = bgl
	a.logger.Debug().Str("group", layout.Name).Str("hash", layout.Hash.String()).Msg("bind group layout created")
	return bgl, nil
}

func (a *gpuAllocatorImpl) Provider(group *renderer.ResourceGroup) BindGroupProvider {
	p, _ := group.Handle.(BindGroupProvider)
	return p
}

func (a *gpuAllocatorImpl) PrepareResourceGroup(layout *renderer.ResourceGroupLayout, _ renderer.ResourceUsage, group *renderer.ResourceGroup) error {
	renderer.PrepareCPUStorage(layout, group)

	p := a.Provider(group)
	if p == nil {
		p = NewBindGroupProvider(layout.Name)
		group.Handle = p
	}
	if p.LayoutHash() == layout.Hash && p.BindGroupLayout() != nil {
		return nil
	}

	p.Release()
	bgl, err := a.bindGroupLayout(layout)
	if err != nil {
		return err
	}
	p.SetBindGroupLayout(bgl)
	p.SetLayoutHash(layout.Hash)

	size := uint64(layout.ConstantBufferSize())
	for _, e := range layout.Entries {
		if e.Type != effect.ResourceTypeConstantBuffer || size == 0 {
			continue
		}
		buf, err := a.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: p.Label() + " Uniform Buffer",
			Size:  size,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("bind_group_provider: failed to create uniform buffer for %q: %w", layout.Name, err)
		}
		p.SetBuffer(e.Binding, buf, size)
	}
	return nil
}

func (a *gpuAllocatorImpl) CommitResourceGroup(group *renderer.ResourceGroup) error {
	p := a.Provider(group)
	if p == nil || group.Layout == nil {
		return fmt.Errorf("bind_group_provider: resource group was not prepared")
	}

	var writes []BufferWrite
	entries := make([]wgpu.BindGroupEntry, len(group.Layout.Entries))
	for i, e := range group.Layout.Entries {
		entry := wgpu.BindGroupEntry{Binding: uint32(e.Binding)}
		switch e.Type {
		case effect.ResourceTypeConstantBuffer:
			writes = append(writes, BufferWrite{Provider: p, Binding: e.Binding, Data: group.ConstantBuffer.Data})
			entry.Buffer = p.Buffer(e.Binding)
			entry.Size = wgpu.WholeSize
		case effect.ResourceTypeStorageBuffer:
			data, ok := group.DescriptorSet.Value(i).([]byte)
			if !ok {
				return fmt.Errorf("bind_group_provider: storage binding %q needs []byte, got %T", e.KeyName, group.DescriptorSet.Value(i))
			}
			buf, err := a.storageBuffer(p, e.Binding, len(data))
			if err != nil {
				return err
			}
			writes = append(writes, BufferWrite{Provider: p, Binding: e.Binding, Data: data})
			entry.Buffer = buf
			entry.Size = wgpu.WholeSize
		case effect.ResourceTypeTexture, effect.ResourceTypeDepthTexture:
			tv, ok := group.DescriptorSet.Value(i).(*wgpu.TextureView)
			if !ok || tv == nil {
				return fmt.Errorf("bind_group_provider: texture binding %q has no texture view", e.KeyName)
			}
			p.SetTextureView(e.Binding, tv)
			entry.TextureView = tv
		case effect.ResourceTypeSampler, effect.ResourceTypeComparisonSampler:
			s, ok := group.DescriptorSet.Value(i).(*wgpu.Sampler)
			if !ok || s == nil {
				return fmt.Errorf("bind_group_provider: sampler binding %q has no sampler", e.KeyName)
			}
			p.SetSampler(e.Binding, s)
			entry.Sampler = s
		}
		entries[i] = entry
	}

	a.writeBuffers(writes)
	bg, err := a.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   p.Label() + " Bind Group",
		Layout:  p.BindGroupLayout(),
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("bind_group_provider: failed to create bind group %q: %w", group.Layout.Name, err)
	}
	p.SetBindGroup(bg)
	group.Version++
	return nil
}

func (a *gpuAllocatorImpl) storageBuffer(p BindGroupProvider, binding, n int) (*wgpu.Buffer, error) {
	size := storageBufferSize(n)
	if buf := p.Buffer(binding); buf != nil && p.BufferSize(binding) >= size {
		return buf, nil
	}
	buf, err := a.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: fmt.Sprintf("%s Storage Buffer %d", p.Label(), binding),
		Size:  size,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("bind_group_provider: failed to create storage buffer: %w", err)
	}
	p.SetBuffer(binding, buf, size)
	return buf, nil
}

func (a *gpuAllocatorImpl) writeBuffers(writes []BufferWrite) {
	for _, w := range writes {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil || len(w.Data) == 0 {
			continue
		}
		a.queue.WriteBuffer(buf, w.Offset, w.Data)
	}
}

func (a *gpuAllocatorImpl) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for hash, bgl := range a.layouts {
		bgl.Release()
		delete(a.layouts, hash)
	}
}
