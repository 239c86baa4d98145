package effect

import (
	"github.com/Carmen-Shannon/oxy-lighting/common"
)

// ParameterType is the scalar type of a constant buffer member.
type ParameterType uint8

const (
	ParameterTypeFloat ParameterType = iota
	ParameterTypeInt
	ParameterTypeUint
)

// ParameterClass is the shape of a constant buffer member.
type ParameterClass uint8

const (
	ParameterClassScalar ParameterClass = iota
	ParameterClassVector
	ParameterClassMatrixColumns
)

// ConstantBufferMember describes one member of a constant buffer.
// Offsets and strides follow std140-like rules: vectors of three or four components and
// every array element start on a 16 byte boundary, matrices are four 16 byte columns.
type ConstantBufferMember struct {
	KeyName     string
	Class       ParameterClass
	Type        ParameterType
	RowCount    int
	ColumnCount int
	Offset      int
	Size        int
	Elements    int
	Stride      int
}

// ConstantBufferDescription is the reflected layout of a constant buffer.
type ConstantBufferDescription struct {
	Name    string
	Size    int
	Members []ConstantBufferMember
}

// ResourceType is the kind of a descriptor set entry.
type ResourceType uint8

const (
	ResourceTypeConstantBuffer ResourceType = iota
	ResourceTypeTexture
	ResourceTypeDepthTexture
	ResourceTypeSampler
	ResourceTypeComparisonSampler
	ResourceTypeStorageBuffer
)

// ResourceBinding is one entry of a descriptor set layout.
type ResourceBinding struct {
	KeyName string
	Type    ResourceType
	Binding int
}

// DescriptorSetLayout is the reflected layout of one logical resource group.
type DescriptorSetLayout struct {
	Name    string
	Group   int
	Entries []ResourceBinding
}

// Reflection is the resource interface of compiled bytecode.
type Reflection struct {
	ConstantBuffers []ConstantBufferDescription
	Layouts         []DescriptorSetLayout
}

// ConstantBuffer returns the constant buffer with the given name.
func (r *Reflection) ConstantBuffer(name string) (*ConstantBufferDescription, bool) {
	for i := range r.ConstantBuffers {
		if r.ConstantBuffers[i].Name == name {
			return &r.ConstantBuffers[i], true
		}
	}
	return nil, false
}

// Layout returns the descriptor set layout of the given resource group.
func (r *Reflection) Layout(name string) (*DescriptorSetLayout, bool) {
	for i := range r.Layouts {
		if r.Layouts[i].Name == name {
			return &r.Layouts[i], true
		}
	}
	return nil, false
}

// Bytecode is an immutable compiled effect. Two bytecodes with the same ID are the same program.
type Bytecode struct {
	ID         common.ObjectID
	Name       string
	Source     string
	Reflection Reflection

	// HashSources maps every shader class the bytecode was built from to the hash of its source.
	HashSources map[string]common.ObjectID
}

// DependsOn reports whether any of the named sources contributed to the bytecode.
func (b *Bytecode) DependsOn(sources []string) bool {
	for _, s := range sources {
		if _, ok := b.HashSources[s]; ok {
			return true
		}
	}
	return false
}
