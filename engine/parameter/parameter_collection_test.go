package parameter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testColor  = NewKey("Test.Color", KindVector3)
	testCount  = NewKey("Test.Count", KindInt)
	testScale  = NewKey("Test.Scale", KindFloat)
	testExtras = NewKey("Test.Extras", KindObject)
)

func TestParameterCollectionCounters(t *testing.T) {
	pc := NewParameterCollection(WithName("material"))
	assert.Equal(t, "material", pc.Name())
	assert.Zero(t, pc.DirtyCount())

	pc.Set(testCount, 3)
	assert.Equal(t, uint64(1), pc.DirtyCount(), "adding a key is structural")
	assert.Equal(t, uint64(1), pc.Counter(testCount))

	pc.Set(testCount, 3)
	assert.Equal(t, uint64(1), pc.DirtyCount(), "overwriting is not structural")
	assert.Equal(t, uint64(2), pc.Counter(testCount), "equal values still bump the counter")

	require.True(t, pc.Remove(testCount))
	assert.False(t, pc.Remove(testCount))
	assert.Equal(t, uint64(2), pc.DirtyCount())
	assert.Zero(t, pc.Counter(testCount))
}

func TestParameterCollectionOrderIsByHash(t *testing.T) {
	a := NewParameterCollection()
	b := NewParameterCollection()
	keys := []Key{testColor, testCount, testScale, testExtras}
	for i, k := range keys {
		a.Set(k, i)
	}
	for i := len(keys) - 1; i >= 0; i-- {
		b.Set(keys[i], i)
	}
	assert.Equal(t, a.Keys(), b.Keys())
	assert.Equal(t, HashCollection(a), HashCollection(b))

	ka := a.Keys()
	for i := 1; i < len(ka); i++ {
		assert.LessOrEqual(t, ka[i-1].Hash(), ka[i].Hash())
	}
}

func TestParameterCollectionClearAndClone(t *testing.T) {
	pc := NewParameterCollection()
	pc.Set(testScale, float32(2))
	pc.Set(testExtras, []int{1, 2})

	clone := Clone(pc)
	assert.True(t, ContainsAll(clone, pc))
	assert.True(t, ContainsAll(pc, clone))

	before := pc.DirtyCount()
	pc.Clear()
	assert.Zero(t, pc.Len())
	assert.Equal(t, before+1, pc.DirtyCount())
	pc.Clear()
	assert.Equal(t, before+1, pc.DirtyCount(), "clearing an empty collection is a no-op")

	v, ok := clone.GetByName("Test.Scale")
	require.True(t, ok)
	assert.Equal(t, float32(2), v)
}

func TestContainsAll(t *testing.T) {
	set := NewParameterCollection()
	set.Set(testCount, 4)
	set.Set(testScale, float32(1))

	subset := NewParameterCollection()
	subset.Set(testCount, 4)
	assert.True(t, ContainsAll(set, subset))

	subset.Set(testCount, 5)
	assert.False(t, ContainsAll(set, subset))

	subset.Set(testCount, 4)
	subset.Set(testColor, [3]float32{1, 1, 1})
	assert.False(t, ContainsAll(set, subset))
}

func TestKeyComposeWith(t *testing.T) {
	composed := testColor.ComposeWith("directLightGroups[0]")
	assert.Equal(t, "Test.Color.directLightGroups[0]", composed.Name())
	assert.Equal(t, composed, testColor.ComposeWith("directLightGroups[0]"))
	assert.NotEqual(t, composed.Hash(), testColor.ComposeWith("directLightGroups[1]").Hash())
	assert.Equal(t, testColor, testColor.ComposeWith(""))
	assert.Panics(t, func() { NewKey("", KindInt) })
}

func TestValuesEqual(t *testing.T) {
	type tagged struct {
		Name  string
		Value any
	}
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"both nil", nil, nil, true},
		{"nil and value", nil, 1, false},
		{"ints", 3, 3, true},
		{"different types", int32(3), 3, false},
		{"arrays", [3]float32{1, 2, 3}, [3]float32{1, 2, 3}, true},
		{"slices", []float32{1, 2}, []float32{1, 2}, true},
		{"slices differ", []float32{1, 2}, []float32{1, 3}, false},
		{"structs", tagged{"a", 1}, tagged{"a", 1}, true},
		{"structs holding slices", tagged{"a", []int{1}}, tagged{"a", []int{1}}, true},
		{"structs holding different slices", tagged{"a", []int{1}}, tagged{"a", []int{2}}, false},
		{"structs holding a slice and a scalar", tagged{"a", []int{1}}, tagged{"a", 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValuesEqual(tt.a, tt.b))
		})
	}
}
