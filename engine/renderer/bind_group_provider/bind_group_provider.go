package bind_group_provider

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-lighting/common"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added to every GPU object created for the provider.
	label string

	// layoutHash is the hash of the resource group layout the GPU objects were created for.
	layoutHash common.ObjectID

	// bindGroup is the GPU bind group, rebuilt on every commit.
	bindGroup *wgpu.BindGroup
	// bindGroupLayout is shared between providers of the same layout and owned by the allocator.
	bindGroupLayout *wgpu.BindGroupLayout
	// buffers holds the uniform and storage buffers keyed by binding index.
	buffers map[int]*wgpu.Buffer
	// bufferSizes holds the allocated size of each buffer keyed by binding index.
	bufferSizes map[int]uint64
	// textureViews holds the texture views bound at the last commit keyed by binding index.
	textureViews map[int]*wgpu.TextureView
	// samplers holds the samplers bound at the last commit keyed by binding index.
	samplers map[int]*wgpu.Sampler
}

// BindGroupProvider holds the GPU objects behind one resource group: the bind group, the
// shared bind group layout, the buffers it owns and the texture views and samplers bound to it.
// The wgpu allocator stores a provider in renderer.ResourceGroup.Handle.
//
// Usage pattern:
//  1. The allocator creates a provider when a resource group is first prepared
//  2. PrepareResourceGroup creates the uniform buffer for the group's constant buffer
//  3. CommitResourceGroup uploads buffers and rebuilds the bind group
//  4. Draw submission reads BindGroup()
type BindGroupProvider interface {
	// Release releases the buffers and the bind group held by this provider.
	// Texture views and samplers are owned by their producers and only forgotten.
	// The bind group layout is owned by the allocator and only forgotten.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// LayoutHash returns the hash of the resource group layout the provider was built for.
	//
	// Returns:
	//   - common.ObjectID: the layout hash, empty before the first prepare
	LayoutHash() common.ObjectID

	// SetLayoutHash records the layout the provider is built for.
	//
	// Parameters:
	//   - hash: the layout hash
	SetLayoutHash(hash common.ObjectID)

	// BindGroup returns the created bind group for shader binding.
	// Returns nil if the provider was never committed.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the bind group layout of this provider.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the bind group layout or nil
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the buffer of a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// BufferSize returns the allocated size of the buffer of a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - uint64: the size in bytes, 0 when there is no buffer
	BufferSize(binding int) uint64

	// Buffers returns all buffers associated with this provider, keyed by binding index.
	//
	// Returns:
	//   - map[int]*wgpu.Buffer: the buffers keyed by binding index
	Buffers() map[int]*wgpu.Buffer

	// TextureView returns the texture view bound at a binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.TextureView: the texture view or nil
	TextureView(binding int) *wgpu.TextureView

	// Sampler returns the sampler bound at a binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler or nil
	Sampler(binding int) *wgpu.Sampler

	// SetBindGroup replaces the bind group, releasing the previous one.
	//
	// Parameters:
	//   - bg: the created bind group
	SetBindGroup(bg *wgpu.BindGroup)

	// SetBindGroupLayout sets the shared bind group layout.
	//
	// Parameters:
	//   - bgl: the bind group layout
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)

	// SetBuffer replaces the buffer of a binding, releasing the previous one.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the created buffer
	//   - size: the allocated size of buf in bytes
	SetBuffer(binding int, buf *wgpu.Buffer, size uint64)

	// SetTextureView stores the texture view bound at a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - tv: the texture view to store
	SetTextureView(binding int, tv *wgpu.TextureView)

	// SetSampler stores the sampler bound at a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - s: the sampler to store
	SetSampler(binding int, s *wgpu.Sampler)
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty provider. The allocator fills it on prepare.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - BindGroupProvider: the provider
func NewBindGroupProvider(label string) BindGroupProvider {
	p := &bindGroupProvider{
		label:        label,
		buffers:      make(map[int]*wgpu.Buffer),
		bufferSizes:  make(map[int]uint64),
		textureViews: make(map[int]*wgpu.TextureView),
		samplers:     make(map[int]*wgpu.Sampler),
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) LayoutHash() common.ObjectID {
	return p.layoutHash
}

func (p *bindGroupProvider) SetLayoutHash(hash common.ObjectID) {
	p.layoutHash = hash
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) BufferSize(binding int) uint64 {
	return p.bufferSizes[binding]
}

func (p *bindGroupProvider) Buffers() map[int]*wgpu.Buffer {
	return p.buffers
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	return p.textureViews[binding]
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	return p.samplers[binding]
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	if p.bindGroup != nil && p.bindGroup != bg {
		p.bindGroup.Release()
	}
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) {
	p.bindGroupLayout = bgl
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer, size uint64) {
	if old := p.buffers[binding]; old != nil && old != buf {
		old.Release()
	}
	p.buffers[binding] = buf
	p.bufferSizes[binding] = size
}

func (p *bindGroupProvider) SetTextureView(binding int, tv *wgpu.TextureView) {
	p.textureViews[binding] = tv
}

func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler) {
	p.samplers[binding] = s
}

func (p *bindGroupProvider) Release() {
	for i, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, i)
		delete(p.bufferSizes, i)
	}
	clear(p.textureViews)
	clear(p.samplers)

	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	p.bindGroupLayout = nil
	p.layoutHash = common.ObjectID{}
}
