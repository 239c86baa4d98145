package parameter

import (
	"hash/fnv"
)

// Kind describes the value class stored under a Key.
type Kind uint8

const (
	KindObject Kind = iota
	KindBool
	KindInt
	KindFloat
	KindVector3
	KindVector4
	KindMatrix
	KindResource
	KindShaderSources
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindVector3:
		return "vector3"
	case KindVector4:
		return "vector4"
	case KindMatrix:
		return "matrix"
	case KindResource:
		return "resource"
	case KindShaderSources:
		return "shader-sources"
	default:
		return "object"
	}
}

// Key identifies a parameter. Keys are immutable values; two keys with the same name
// refer to the same parameter.
type Key struct {
	name string
	kind Kind
	hash uint64
}

// NewKey creates a key with a stable hash derived from its name.
//
// Parameters:
//   - name: the fully qualified parameter name (e.g. "LightGroup.Colors")
//   - kind: the value class stored under the key
//
// Returns:
//   - Key: the new key
func NewKey(name string, kind Kind) Key {
	if name == "" {
		panic("parameter: key name must not be empty")
	}
	h := fnv.New64a()
	h.Write([]byte(name))
	return Key{name: name, kind: kind, hash: h.Sum64()}
}

// Name returns the fully qualified name of the key.
func (k Key) Name() string { return k.name }

// Kind returns the value class of the key.
func (k Key) Kind() Kind { return k.kind }

// Hash returns the stable 64-bit hash of the key name.
func (k Key) Hash() uint64 { return k.hash }

// IsZero reports whether k is the zero key.
func (k Key) IsZero() bool { return k.name == "" }

// ComposeWith derives the key of this parameter inside a composition slot.
// The same base and suffix always yield the same key.
//
// Parameters:
//   - suffix: the composition slot name (e.g. "directLightGroups[0]")
//
// Returns:
//   - Key: the composed key
func (k Key) ComposeWith(suffix string) Key {
	if suffix == "" {
		return k
	}
	return NewKey(k.name+"."+suffix, k.kind)
}

func (k Key) String() string { return k.name }

// less orders keys by hash, then by name so collisions still sort deterministically.
func less(a, b Key) bool {
	if a.hash != b.hash {
		return a.hash < b.hash
	}
	return a.name < b.name
}
