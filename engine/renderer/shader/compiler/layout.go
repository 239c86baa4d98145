package compiler

import (
	"github.com/Carmen-Shannon/oxy-lighting/engine/effect"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer/shader"
)

const constantBufferAlignment = 16

func roundUp(n, align int) int {
	return (n + align - 1) / align * align
}

// memberShape returns the class, scalar type, rows, columns, size and alignment of a value type.
func memberShape(t shader.ValueType) (effect.ParameterClass, effect.ParameterType, int, int, int, int) {
	switch t {
	case shader.ValueTypeInt:
		return effect.ParameterClassScalar, effect.ParameterTypeInt, 1, 1, 4, 4
	case shader.ValueTypeUint:
		return effect.ParameterClassScalar, effect.ParameterTypeUint, 1, 1, 4, 4
	case shader.ValueTypeVector3:
		return effect.ParameterClassVector, effect.ParameterTypeFloat, 1, 3, 12, 16
	case shader.ValueTypeVector4:
		return effect.ParameterClassVector, effect.ParameterTypeFloat, 1, 4, 16, 16
	case shader.ValueTypeMatrix:
		return effect.ParameterClassMatrixColumns, effect.ParameterTypeFloat, 4, 4, 64, 16
	default:
		return effect.ParameterClassScalar, effect.ParameterTypeFloat, 1, 1, 4, 4
	}
}

// layoutConstantBuffer assigns offsets in declaration order. Array elements start on a
// 16 byte boundary and the buffer size is a multiple of 16.
func layoutConstantBuffer(name string, members []shader.MemberDecl) effect.ConstantBufferDescription {
	cb := effect.ConstantBufferDescription{Name: name}
	offset := 0
	for _, m := range members {
		class, typ, rows, cols, size, align := memberShape(m.Type)
		member := effect.ConstantBufferMember{
			KeyName:     m.Name,
			Class:       class,
			Type:        typ,
			RowCount:    rows,
			ColumnCount: cols,
			Size:        size,
		}
		if m.Count > 0 {
			member.Elements = m.Count
			member.Stride = roundUp(size, constantBufferAlignment)
			member.Size = member.Stride * m.Count
			align = constantBufferAlignment
		}
		offset = roundUp(offset, align)
		member.Offset = offset
		offset += member.Size
		cb.Members = append(cb.Members, member)
	}
	cb.Size = roundUp(offset, constantBufferAlignment)
	return cb
}
