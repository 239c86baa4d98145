package bind_group_provider

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// storageBufferSize returns the buffer size allocated for n bytes of storage data:
// the next power of two, at least 16 bytes.
func storageBufferSize(n int) uint64 {
	size := uint64(16)
	for size < uint64(n) {
		size *= 2
	}
	return size
}
