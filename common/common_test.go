package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextPowerOfTwo(t *testing.T) {
	cases := map[int]int{-3: 1, 0: 1, 1: 1, 2: 2, 3: 4, 8: 8, 9: 16, 17: 32, 64: 64}
	for in, want := range cases {
		assert.Equal(t, want, NextPowerOfTwo(in), "NextPowerOfTwo(%d)", in)
	}
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, "b", Coalesce("", "b", "c"))
	assert.Equal(t, 0, Coalesce(0, 0))
}

func TestBoundingBoxIntersects(t *testing.T) {
	a := BoundingBox{Min: Vec3{0, 0, 0}, Max: Vec3{1, 1, 1}}
	b := BoundingBox{Min: Vec3{1, 1, 1}, Max: Vec3{2, 2, 2}}
	c := BoundingBox{Min: Vec3{3, 0, 0}, Max: Vec3{4, 1, 1}}

	assert.True(t, a.Intersects(b), "touching boxes intersect")
	assert.False(t, a.Intersects(c))
	assert.Equal(t, BoundingBox{Min: Vec3{0, 0, 0}, Max: Vec3{4, 1, 1}}, a.Merge(c))
	assert.Equal(t, Vec3{0.5, 0.5, 0.5}, a.Center())
}

func TestBoundingBoxFromSphere(t *testing.T) {
	box := BoundingBoxFromSphere(Vec3{1, 2, 3}, 2)
	assert.Equal(t, Vec3{-1, 0, 1}, box.Min)
	assert.Equal(t, Vec3{3, 4, 5}, box.Max)
}

func TestFrustumContainsBox(t *testing.T) {
	proj := Perspective(math32.Pi/2, 1, 0.1, 100)
	view := LookAt(Vec3{0, 0, 5}, Vec3{0, 0, 0}, Vec3{0, 1, 0})
	f := ExtractFrustumFromMatrix(Mul4(proj, view))

	inside := BoundingBox{Min: Vec3{-1, -1, -1}, Max: Vec3{1, 1, 1}}
	behind := BoundingBox{Min: Vec3{-1, -1, 10}, Max: Vec3{1, 1, 12}}
	far := BoundingBox{Min: Vec3{-1, -1, -200}, Max: Vec3{1, 1, -150}}

	assert.True(t, f.ContainsBox(inside))
	assert.False(t, f.ContainsBox(behind))
	assert.False(t, f.ContainsBox(far))
}

func TestTransformPoint(t *testing.T) {
	view := LookAt(Vec3{0, 0, 5}, Vec3{0, 0, 0}, Vec3{0, 1, 0})
	p, w := TransformPoint(view, Vec3{0, 0, 0})
	assert.InDelta(t, 1, w, 1e-6)
	assert.InDelta(t, -5, p[2], 1e-5)
}

func TestObjectIDBuilderDeterministic(t *testing.T) {
	build := func(s string, v uint32) ObjectID {
		b := NewObjectIDBuilder()
		b.WriteString(s)
		b.WriteUint32(v)
		return b.Sum()
	}
	a := build("light", 3)
	require.False(t, a.IsEmpty())
	assert.Equal(t, a, build("light", 3))
	assert.NotEqual(t, a, build("light", 4))
	assert.NotEqual(t, HashString("ab"), HashString("ba"))
	assert.Len(t, a.String(), 32)
}
