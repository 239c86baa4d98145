package renderer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-lighting/common"
	"github.com/Carmen-Shannon/oxy-lighting/engine/effect"
)

// ErrLayoutNotFound is returned when an effect's reflection has no descriptor set layout for a
// resource group, typically because the effect compiled without the permutation that declares it.
var ErrLayoutNotFound = errors.New("renderer: resource group layout not found")

// ResourceGroupLayout is the shape of one logical resource group of an effect: an optional
// constant buffer at binding 0 and the descriptor entries. Layouts with equal hashes are
// interchangeable, so render features build one per hash and reuse it across effects.
type ResourceGroupLayout struct {
	Name           string
	Group          int
	Hash           common.ObjectID
	ConstantBuffer *effect.ConstantBufferDescription
	Entries        []effect.ResourceBinding

	members map[string]int
	entries map[string]int
}

// NewResourceGroupLayout builds the layout of a resource group from bytecode reflection.
//
// Parameters:
//   - bytecode: the compiled effect
//   - name: the logical group name (e.g. "PerLighting")
//
// Returns:
//   - *ResourceGroupLayout: the layout
//   - error: ErrLayoutNotFound if the reflection has no layout for the group
func NewResourceGroupLayout(bytecode *effect.Bytecode, name string) (*ResourceGroupLayout, error) {
	if bytecode == nil {
		return nil, fmt.Errorf("%w: %q (no bytecode)", ErrLayoutNotFound, name)
	}
	dsl, ok := bytecode.Reflection.Layout(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q in effect %q", ErrLayoutNotFound, name, bytecode.Name)
	}

	l := &ResourceGroupLayout{
		Name:    name,
		Group:   dsl.Group,
		Entries: dsl.Entries,
		members: make(map[string]int),
		entries: make(map[string]int, len(dsl.Entries)),
	}
	if cb, ok := bytecode.Reflection.ConstantBuffer(name); ok {
		l.ConstantBuffer = cb
		for i, m := range cb.Members {
			l.members[m.KeyName] = i
		}
	}
	for i, e := range dsl.Entries {
		l.entries[e.KeyName] = i
	}
	l.Hash = l.computeHash()
	return l, nil
}

func (l *ResourceGroupLayout) computeHash() common.ObjectID {
	b := common.NewObjectIDBuilder()
	b.WriteString(l.Name)
	if cb := l.ConstantBuffer; cb != nil {
		b.WriteUint32(uint32(cb.Size))
		for _, m := range cb.Members {
			b.WriteString(m.KeyName)
			b.WriteUint32(uint32(m.Class)<<8 | uint32(m.Type))
			b.WriteUint32(uint32(m.Offset))
			b.WriteUint32(uint32(m.Size))
			b.WriteUint32(uint32(m.Elements))
			b.WriteUint32(uint32(m.Stride))
		}
	}
	b.WriteUint32(uint32(len(l.Entries)))
	for _, e := range l.Entries {
		b.WriteString(e.KeyName)
		b.WriteUint32(uint32(e.Type))
		b.WriteUint32(uint32(e.Binding))
	}
	return b.Sum()
}

// Member returns the constant buffer member with the given key name.
func (l *ResourceGroupLayout) Member(keyName string) (*effect.ConstantBufferMember, bool) {
	i, ok := l.members[keyName]
	if !ok {
		return nil, false
	}
	return &l.ConstantBuffer.Members[i], true
}

// EntrySlot returns the descriptor slot of the entry with the given key name.
func (l *ResourceGroupLayout) EntrySlot(keyName string) (int, bool) {
	i, ok := l.entries[keyName]
	return i, ok
}

// ConstantBufferSize returns the size of the constant buffer in bytes, 0 when there is none.
func (l *ResourceGroupLayout) ConstantBufferSize() int {
	if l.ConstantBuffer == nil {
		return 0
	}
	return l.ConstantBuffer.Size
}

// ConstantBufferView is the mapped CPU copy of a resource group's constant buffer.
type ConstantBufferView struct {
	Data []byte
}

// DescriptorSet holds the non-constant resources of a resource group, one value per layout entry.
// Slot 0 of a group with a constant buffer is reserved for the buffer itself.
type DescriptorSet struct {
	values []any
}

// SetValue stores value in slot.
func (d *DescriptorSet) SetValue(slot int, value any) {
	d.values[slot] = value
}

// Value returns the value of slot.
func (d *DescriptorSet) Value(slot int) any {
	return d.values[slot]
}

// Len returns the number of slots.
func (d *DescriptorSet) Len() int {
	return len(d.values)
}

func (d *DescriptorSet) reset(n int) {
	if cap(d.values) < n {
		d.values = make([]any, n)
	}
	d.values = d.values[:n]
	clear(d.values)
}

// ResourceGroup is the bound data of one resource group: the mapped constant buffer and the
// descriptor set. Allocators keep their backend objects in Handle.
type ResourceGroup struct {
	Layout         *ResourceGroupLayout
	ConstantBuffer ConstantBufferView
	DescriptorSet  DescriptorSet

	// Version is incremented by every commit.
	Version uint64

	Handle any
}

// SetMember writes value into the constant buffer member named keyName.
//
// Parameters:
//   - keyName: the member key name
//   - value: the value
//
// Returns:
//   - bool: false if the layout has no such member
//   - error: an error if value does not match the member
func (g *ResourceGroup) SetMember(keyName string, value any) (bool, error) {
	m, ok := g.Layout.Member(keyName)
	if !ok {
		return false, nil
	}
	return true, WriteConstant(g.ConstantBuffer.Data, m, value)
}

// SetResource stores value in the descriptor slot of the entry named keyName.
//
// Parameters:
//   - keyName: the entry key name
//   - value: the value
//
// Returns:
//   - bool: false if the layout has no such entry
func (g *ResourceGroup) SetResource(keyName string, value any) bool {
	slot, ok := g.Layout.EntrySlot(keyName)
	if !ok {
		return false
	}
	g.DescriptorSet.SetValue(slot, value)
	return true
}
