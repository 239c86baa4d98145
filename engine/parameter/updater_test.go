package parameter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// snapshot builds a definition over the winning values of the given collections and
// commits levels and counters, as a rebind does.
func snapshot(t *testing.T, keys []Key, collections ...ParameterCollection) (*Updater, *UpdaterDefinition) {
	t.Helper()
	u := NewUpdater(collections...)
	used := NewParameterCollection(WithName("used"))
	for _, k := range keys {
		for c := len(collections) - 1; c >= 0; c-- {
			if v, ok := collections[c].Get(k); ok {
				used.Set(k, v)
				break
			}
		}
	}
	def := NewUpdaterDefinition(used)
	u.Update(def)
	u.ComputeLevels(def)
	u.UpdateCounters(def)
	return u, def
}

func TestUpdaterDefinitionArraysAligned(t *testing.T) {
	used := NewParameterCollection()
	used.Set(testCount, 1)
	used.Set(testScale, float32(0.5))
	used.Set(testColor, [3]float32{1, 0, 0})
	def := NewUpdaterDefinition(used)

	require.Equal(t, 3, def.Len())
	assert.Len(t, def.SortedKeyHashes, 3)
	assert.Len(t, def.SortedCompilationValues, 3)
	assert.Len(t, def.SortedCounters, 3)
	assert.Len(t, def.SortedLevels, 3)
	assert.Len(t, def.SortedSources, 3)
	for i, k := range def.SortedKeys {
		assert.Equal(t, k.Hash(), def.SortedKeyHashes[i])
		assert.Equal(t, i, def.IndexOf(k))
	}
	assert.Equal(t, -1, def.IndexOf(testExtras))
	assert.Same(t, used, def.Parameters())
}

func TestHasChangedIsStableWithoutMutation(t *testing.T) {
	material := NewParameterCollection()
	material.Set(testCount, 2)
	material.Set(testScale, float32(1))
	u, def := snapshot(t, []Key{testCount, testScale}, material)

	for i := 0; i < 5; i++ {
		assert.False(t, u.HasChanged(def))
	}
}

func TestHasChangedDetectsValueMutation(t *testing.T) {
	material := NewParameterCollection()
	material.Set(testCount, 2)
	u, def := snapshot(t, []Key{testCount}, material)

	material.Set(testCount, 4)
	assert.True(t, u.HasChanged(def))
	assert.True(t, u.HasChanged(def), "still changed until counters are committed")

	u.UpdateCounters(def)
	assert.False(t, u.HasChanged(def))
}

func TestHasChangedEqualRewriteIsUnchanged(t *testing.T) {
	material := NewParameterCollection()
	material.Set(testCount, 2)
	u, def := snapshot(t, []Key{testCount}, material)

	material.Set(testCount, 2)
	assert.False(t, u.HasChanged(def), "counter moved but the value equals the compilation value")
}

func TestHasChangedStructuralChanges(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(low, high ParameterCollection)
		changed bool
	}{
		{
			name:    "untracked key in winning collection",
			mutate:  func(low, _ ParameterCollection) { low.Set(testExtras, "x") },
			changed: false,
		},
		{
			name:    "untracked key in other collection",
			mutate:  func(_, high ParameterCollection) { high.Set(testExtras, "x") },
			changed: false,
		},
		{
			name:    "tracked key moves with equal value",
			mutate:  func(_, high ParameterCollection) { high.Set(testCount, 2) },
			changed: true,
		},
		{
			name:    "tracked key moves with different value",
			mutate:  func(_, high ParameterCollection) { high.Set(testCount, 7) },
			changed: true,
		},
		{
			name:    "tracked key removed",
			mutate:  func(low, _ ParameterCollection) { low.Remove(testCount) },
			changed: true,
		},
		{
			name: "structural change then value change in same collection",
			mutate: func(low, _ ParameterCollection) {
				low.Set(testExtras, "x")
				low.Set(testCount, 9)
			},
			changed: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			low := NewParameterCollection(WithName("low"))
			high := NewParameterCollection(WithName("high"))
			low.Set(testCount, 2)
			high.Set(testScale, float32(1))
			u, def := snapshot(t, []Key{testCount}, low, high)
			require.False(t, u.HasChanged(def))

			tt.mutate(low, high)
			assert.Equal(t, tt.changed, u.HasChanged(def))
		})
	}
}

func TestHasChangedAfterRelevelIsUnchanged(t *testing.T) {
	low := NewParameterCollection()
	high := NewParameterCollection()
	low.Set(testCount, 2)
	u, def := snapshot(t, []Key{testCount}, low, high)

	high.Set(testCount, 2)
	require.True(t, u.HasChanged(def))

	u.ComputeLevels(def)
	u.UpdateCounters(def)
	assert.False(t, u.HasChanged(def))
	assert.Equal(t, 1, u.SourceAtIndex(0))
}

func TestUpdaterAbsentKeyBindsToNothing(t *testing.T) {
	used := NewParameterCollection()
	used.Set(testColor, nil)
	def := NewUpdaterDefinition(used)
	u := NewUpdater(NewParameterCollection())
	u.Update(def)
	u.ComputeLevels(def)
	u.UpdateCounters(def)

	v, ok := u.GetAtIndex(0)
	assert.False(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, SourceNone, def.SortedSources[0])
	assert.False(t, u.HasChanged(def))
}

func TestResetCountersFallsBackToValues(t *testing.T) {
	material := NewParameterCollection()
	material.Set(testCount, 2)
	u, def := snapshot(t, []Key{testCount}, material)

	def.ResetCounters()
	assert.False(t, u.HasChanged(def))
	material.Set(testCount, 3)
	assert.True(t, u.HasChanged(def))
}

func TestUpdateUsedParameters(t *testing.T) {
	used := NewParameterCollection()
	used.Set(testCount, 1)
	def := NewUpdaterDefinition(used)

	next := NewParameterCollection()
	next.Set(testCount, 5)
	def.UpdateUsedParameters(next)
	assert.Equal(t, []any{5}, def.SortedCompilationValues)

	wider := NewParameterCollection()
	wider.Set(testCount, 5)
	wider.Set(testScale, float32(2))
	def.UpdateUsedParameters(wider)
	assert.Equal(t, 2, def.Len())
	assert.Same(t, wider, def.Parameters())
}
