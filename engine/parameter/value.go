package parameter

import (
	"fmt"
	"reflect"

	"github.com/Carmen-Shannon/oxy-lighting/common"
)

// Equaler is implemented by values that define their own equality (e.g. shader source trees).
type Equaler interface {
	Equal(other any) bool
}

// Hasher is implemented by values that can feed themselves into an ObjectID.
type Hasher interface {
	HashInto(b *common.ObjectIDBuilder)
}

// ValuesEqual reports whether two parameter values are equal.
// Values implementing Equaler decide for themselves, comparable values use ==,
// everything else (slices, maps, structs holding them behind interfaces) falls back to a
// deep comparison.
func ValuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if eq, ok := a.(Equaler); ok {
		return eq.Equal(b)
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if reflect.ValueOf(a).Comparable() && reflect.ValueOf(b).Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// HashValue writes a deterministic representation of v into b.
func HashValue(b *common.ObjectIDBuilder, v any) {
	switch x := v.(type) {
	case nil:
		b.WriteString("<nil>")
	case Hasher:
		x.HashInto(b)
	case string:
		b.WriteString(x)
	case bool:
		b.WriteBool(x)
	case int:
		b.WriteUint64(uint64(x))
	case int32:
		b.WriteUint32(uint32(x))
	case uint32:
		b.WriteUint32(x)
	case float32:
		b.WriteFloat32(x)
	default:
		b.WriteString(fmt.Sprintf("%T:%v", v, v))
	}
}

// HashCollection returns the ObjectID of every key and value in c, in key order.
func HashCollection(c ParameterCollection) common.ObjectID {
	b := common.NewObjectIDBuilder()
	c.Range(func(key Key, value any) bool {
		b.WriteString(key.Name())
		HashValue(b, value)
		return true
	})
	return b.Sum()
}
