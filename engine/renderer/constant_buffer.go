package renderer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-lighting/common"
	"github.com/Carmen-Shannon/oxy-lighting/engine/effect"
)

// ErrValueMismatch is returned when a value does not fit the constant buffer member it is written to.
var ErrValueMismatch = errors.New("renderer: value does not match constant buffer member")

// WriteConstant copies value into dst at the member's offset. Array members take slices;
// element i is written at Offset + i*Stride and elements beyond the member's length are ignored.
//
// Parameters:
//   - dst: the mapped constant buffer
//   - member: the reflected member
//   - value: the value
//
// Returns:
//   - error: ErrValueMismatch if the value's type does not match the member
func WriteConstant(dst []byte, member *effect.ConstantBufferMember, value any) error {
	if member.Offset+member.Size > len(dst) {
		return fmt.Errorf("renderer: member %q [%d,%d) exceeds buffer of %d bytes",
			member.KeyName, member.Offset, member.Offset+member.Size, len(dst))
	}

	if member.Elements > 0 {
		return writeArray(dst, member, value)
	}
	if !writeElement(dst[member.Offset:], member, value) {
		return mismatch(member, value)
	}
	return nil
}

func writeArray(dst []byte, member *effect.ConstantBufferMember, value any) error {
	n := 0
	at := func(i int) []byte { return dst[member.Offset+i*member.Stride:] }
	ok := true
	switch v := value.(type) {
	case []float32:
		n = min(len(v), member.Elements)
		for i := range n {
			ok = ok && writeElement(at(i), member, v[i])
		}
	case []int32:
		n = min(len(v), member.Elements)
		for i := range n {
			ok = ok && writeElement(at(i), member, v[i])
		}
	case []common.Vec3:
		n = min(len(v), member.Elements)
		for i := range n {
			ok = ok && writeElement(at(i), member, v[i])
		}
	case [][4]float32:
		n = min(len(v), member.Elements)
		for i := range n {
			ok = ok && writeElement(at(i), member, v[i])
		}
	case []common.Mat4:
		n = min(len(v), member.Elements)
		for i := range n {
			ok = ok && writeElement(at(i), member, v[i])
		}
	default:
		ok = false
	}
	if !ok {
		return mismatch(member, value)
	}
	return nil
}

func writeElement(dst []byte, member *effect.ConstantBufferMember, value any) bool {
	switch member.Class {
	case effect.ParameterClassScalar:
		return writeScalar(dst, member.Type, value)
	case effect.ParameterClassVector:
		var comps []float32
		switch v := value.(type) {
		case common.Vec3:
			comps = v[:]
		case [3]float32:
			comps = v[:]
		case [4]float32:
			comps = v[:]
		default:
			return false
		}
		if len(comps) < member.ColumnCount {
			return false
		}
		for i := range member.ColumnCount {
			putFloat(dst[i*4:], comps[i])
		}
		return true
	case effect.ParameterClassMatrixColumns:
		m, ok := value.(common.Mat4)
		if !ok {
			return false
		}
		for i, f := range m {
			putFloat(dst[i*4:], f)
		}
		return true
	default:
		return false
	}
}

func writeScalar(dst []byte, t effect.ParameterType, value any) bool {
	switch t {
	case effect.ParameterTypeFloat:
		f, ok := value.(float32)
		if ok {
			putFloat(dst, f)
		}
		return ok
	case effect.ParameterTypeInt:
		switch v := value.(type) {
		case int32:
			binary.LittleEndian.PutUint32(dst, uint32(v))
		case int:
			binary.LittleEndian.PutUint32(dst, uint32(int32(v)))
		default:
			return false
		}
		return true
	case effect.ParameterTypeUint:
		switch v := value.(type) {
		case uint32:
			binary.LittleEndian.PutUint32(dst, v)
		case int:
			binary.LittleEndian.PutUint32(dst, uint32(v))
		default:
			return false
		}
		return true
	default:
		return false
	}
}

func putFloat(dst []byte, f float32) {
	binary.LittleEndian.PutUint32(dst, math.Float32bits(f))
}

func mismatch(member *effect.ConstantBufferMember, value any) error {
	return fmt.Errorf("%w: %q cannot hold %T", ErrValueMismatch, member.KeyName, value)
}
