package common

import (
	"encoding/binary"
	"encoding/hex"
	"hash"
	"hash/fnv"
	"math"
)

// ObjectID is a 128-bit content hash used as a cache key for bytecode, layouts and permutations.
type ObjectID [16]byte

// IsEmpty reports whether the id is the zero id.
func (id ObjectID) IsEmpty() bool { return id == ObjectID{} }

// String returns the hex form of the id.
func (id ObjectID) String() string { return hex.EncodeToString(id[:]) }

// ObjectIDBuilder accumulates values into an ObjectID. Values are written in call order,
// so two builders fed the same sequence always produce the same id.
type ObjectIDBuilder struct {
	h   hash.Hash
	buf [8]byte
}

// NewObjectIDBuilder creates an empty builder.
func NewObjectIDBuilder() *ObjectIDBuilder {
	return &ObjectIDBuilder{h: fnv.New128a()}
}

// Write appends raw bytes.
func (b *ObjectIDBuilder) Write(p []byte) (int, error) {
	return b.h.Write(p)
}

// WriteUint32 appends v in little endian order.
func (b *ObjectIDBuilder) WriteUint32(v uint32) {
	binary.LittleEndian.PutUint32(b.buf[:4], v)
	b.h.Write(b.buf[:4])
}

// WriteUint64 appends v in little endian order.
func (b *ObjectIDBuilder) WriteUint64(v uint64) {
	binary.LittleEndian.PutUint64(b.buf[:], v)
	b.h.Write(b.buf[:])
}

// WriteFloat32 appends the IEEE bits of v.
func (b *ObjectIDBuilder) WriteFloat32(v float32) {
	b.WriteUint32(math.Float32bits(v))
}

// WriteBool appends a single byte for v.
func (b *ObjectIDBuilder) WriteBool(v bool) {
	if v {
		b.h.Write([]byte{1})
		return
	}
	b.h.Write([]byte{0})
}

// WriteString appends the length-prefixed bytes of s.
func (b *ObjectIDBuilder) WriteString(s string) {
	b.WriteUint32(uint32(len(s)))
	b.h.Write([]byte(s))
}

// WriteID appends another id.
func (b *ObjectIDBuilder) WriteID(id ObjectID) {
	b.h.Write(id[:])
}

// Sum returns the id of everything written so far.
func (b *ObjectIDBuilder) Sum() ObjectID {
	var id ObjectID
	copy(id[:], b.h.Sum(nil))
	return id
}

// Reset clears the builder for reuse.
func (b *ObjectIDBuilder) Reset() {
	b.h.Reset()
}

// HashString returns the ObjectID of a single string.
func HashString(s string) ObjectID {
	b := NewObjectIDBuilder()
	b.WriteString(s)
	return b.Sum()
}
