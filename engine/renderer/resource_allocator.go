package renderer

// ResourceUsage hints how often a resource group is rewritten.
type ResourceUsage uint8

const (
	// ResourceUsageDynamic groups are rewritten every frame.
	ResourceUsageDynamic ResourceUsage = iota
	// ResourceUsageStatic groups are written once and rarely changed.
	ResourceUsageStatic
)

// ResourceAllocator provides the storage behind resource groups.
//
// Usage per frame:
//  1. PrepareResourceGroup maps the group for a layout; the constant buffer is zeroed and the
//     descriptor set emptied
//  2. the caller writes constant buffer members and descriptor values
//  3. CommitResourceGroup uploads the group to its backend
type ResourceAllocator interface {
	// PrepareResourceGroup maps group for writing with layout. Storage is reused when the
	// group already has a layout with the same hash.
	//
	// Parameters:
	//   - layout: the layout of the group
	//   - usage: the usage hint
	//   - group: the group to prepare
	//
	// Returns:
	//   - error: an error if backend storage could not be created
	PrepareResourceGroup(layout *ResourceGroupLayout, usage ResourceUsage, group *ResourceGroup) error

	// CommitResourceGroup uploads the written group and increments its version.
	//
	// Parameters:
	//   - group: the prepared group
	//
	// Returns:
	//   - error: an error if the upload failed
	CommitResourceGroup(group *ResourceGroup) error
}

type memoryAllocatorImpl struct{}

var _ ResourceAllocator = &memoryAllocatorImpl{}

// NewMemoryAllocator creates an allocator that keeps resource groups in CPU memory only.
// It backs headless frames and tests.
func NewMemoryAllocator() ResourceAllocator {
	return &memoryAllocatorImpl{}
}

func (a *memoryAllocatorImpl) PrepareResourceGroup(layout *ResourceGroupLayout, _ ResourceUsage, group *ResourceGroup) error {
	PrepareCPUStorage(layout, group)
	return nil
}

func (a *memoryAllocatorImpl) CommitResourceGroup(group *ResourceGroup) error {
	group.Version++
	return nil
}

// PrepareCPUStorage sizes the constant buffer and descriptor set of group for layout and clears them.
// Allocators call it before creating backend storage.
//
// Parameters:
//   - layout: the layout
//   - group: the group
func PrepareCPUStorage(layout *ResourceGroupLayout, group *ResourceGroup) {
	if layout == nil {
		panic("renderer: layout must not be nil")
	}
	size := layout.ConstantBufferSize()
	if cap(group.ConstantBuffer.Data) < size {
		group.ConstantBuffer.Data = make([]byte, size)
	}
	group.ConstantBuffer.Data = group.ConstantBuffer.Data[:size]
	clear(group.ConstantBuffer.Data)
	group.DescriptorSet.reset(len(layout.Entries))
	group.Layout = layout
}
