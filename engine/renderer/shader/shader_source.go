package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-lighting/common"
	"github.com/Carmen-Shannon/oxy-lighting/engine/parameter"
)

// ShaderSource is a node of a shader mixin tree. The set of node kinds is closed:
// *ClassSource and *MixinSource.
type ShaderSource interface {
	fmt.Stringer
	parameter.Equaler
	parameter.Hasher
	isShaderSource()
}

// ClassSource instantiates one registered shader class with generic arguments.
type ClassSource struct {
	ClassName        string
	GenericArguments []string
}

// NewClassSource creates a class instance. Generic arguments are formatted with fmt.Sprint.
func NewClassSource(className string, generics ...any) *ClassSource {
	args := make([]string, len(generics))
	for i, g := range generics {
		args[i] = fmt.Sprint(g)
	}
	return &ClassSource{ClassName: className, GenericArguments: args}
}

func (*ClassSource) isShaderSource() {}

func (c *ClassSource) String() string {
	if len(c.GenericArguments) == 0 {
		return c.ClassName
	}
	return c.ClassName + "<" + strings.Join(c.GenericArguments, ",") + ">"
}

func (c *ClassSource) Equal(other any) bool {
	o, ok := other.(*ClassSource)
	if !ok || c == nil || o == nil {
		return ok && c == o
	}
	if c == o {
		return true
	}
	if c.ClassName != o.ClassName || len(c.GenericArguments) != len(o.GenericArguments) {
		return false
	}
	for i := range c.GenericArguments {
		if c.GenericArguments[i] != o.GenericArguments[i] {
			return false
		}
	}
	return true
}

func (c *ClassSource) HashInto(b *common.ObjectIDBuilder) {
	b.WriteString("class")
	b.WriteString(c.ClassName)
	b.WriteUint32(uint32(len(c.GenericArguments)))
	for _, g := range c.GenericArguments {
		b.WriteString(g)
	}
}

// Composition binds a shader source to a named composition slot.
type Composition struct {
	Name   string
	Source ShaderSource
}

// MixinSource combines mixins in order and fills named composition slots.
type MixinSource struct {
	Mixins       []ShaderSource
	Compositions []Composition
}

// NewMixinSource creates a mixin of the given sources.
func NewMixinSource(mixins ...ShaderSource) *MixinSource {
	return &MixinSource{Mixins: mixins}
}

func (*MixinSource) isShaderSource() {}

// AddComposition appends a composition, replacing an existing slot of the same name.
func (m *MixinSource) AddComposition(name string, src ShaderSource) {
	for i := range m.Compositions {
		if m.Compositions[i].Name == name {
			m.Compositions[i].Source = src
			return
		}
	}
	m.Compositions = append(m.Compositions, Composition{Name: name, Source: src})
}

func (m *MixinSource) String() string {
	var sb strings.Builder
	sb.WriteString("mixin(")
	for i, s := range m.Mixins {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(s.String())
	}
	for _, c := range m.Compositions {
		sb.WriteString("; ")
		sb.WriteString(c.Name)
		sb.WriteString("=")
		sb.WriteString(c.Source.String())
	}
	sb.WriteString(")")
	return sb.String()
}

func (m *MixinSource) Equal(other any) bool {
	o, ok := other.(*MixinSource)
	if !ok || m == nil || o == nil {
		return ok && m == o
	}
	if m == o {
		return true
	}
	if len(m.Mixins) != len(o.Mixins) || len(m.Compositions) != len(o.Compositions) {
		return false
	}
	for i := range m.Mixins {
		if !m.Mixins[i].Equal(o.Mixins[i]) {
			return false
		}
	}
	for i := range m.Compositions {
		if m.Compositions[i].Name != o.Compositions[i].Name ||
			!m.Compositions[i].Source.Equal(o.Compositions[i].Source) {
			return false
		}
	}
	return true
}

func (m *MixinSource) HashInto(b *common.ObjectIDBuilder) {
	b.WriteString("mixin")
	b.WriteUint32(uint32(len(m.Mixins)))
	for _, s := range m.Mixins {
		s.HashInto(b)
	}
	b.WriteUint32(uint32(len(m.Compositions)))
	for _, c := range m.Compositions {
		b.WriteString(c.Name)
		c.Source.HashInto(b)
	}
}

// SourceCollection is an ordered list of shader sources, the value type of composition
// list parameters such as the direct light groups of an effect.
type SourceCollection []ShaderSource

func (s SourceCollection) Equal(other any) bool {
	o, ok := other.(SourceCollection)
	if !ok || len(s) != len(o) {
		return false
	}
	for i := range s {
		if !s[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

func (s SourceCollection) HashInto(b *common.ObjectIDBuilder) {
	b.WriteString("sources")
	b.WriteUint32(uint32(len(s)))
	for _, src := range s {
		src.HashInto(b)
	}
}

func (s SourceCollection) String() string {
	parts := make([]string, len(s))
	for i, src := range s {
		parts[i] = src.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ComposeName returns the name of the i-th slot of a composition array, e.g. "directLightGroups[0]".
func ComposeName(base string, index int) string {
	return fmt.Sprintf("%s[%d]", base, index)
}
