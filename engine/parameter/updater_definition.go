package parameter

import (
	"sort"
)

const (
	// SourceNone marks a key that no collection defines.
	SourceNone = -1
	// sourceUnknown marks a key whose winning collection has not been recorded yet.
	sourceUnknown = -2
)

// UpdaterDefinition is the snapshot of the parameters an effect was compiled with.
// All Sorted* slices are index aligned and ordered by key hash.
type UpdaterDefinition struct {
	parameters ParameterCollection

	SortedKeys              []Key
	SortedKeyHashes         []uint64
	SortedCompilationValues []any
	SortedCounters          []uint64
	SortedLevels            []uint64
	SortedSources           []int
}

// NewUpdaterDefinition snapshots the keys and values of the used parameters.
// Counters start at zero and levels and sources are unknown until the first
// ComputeLevels / UpdateCounters against an Updater.
func NewUpdaterDefinition(usedParameters ParameterCollection) *UpdaterDefinition {
	if usedParameters == nil {
		panic("parameter: used parameters must not be nil")
	}
	d := &UpdaterDefinition{}
	d.rebuild(usedParameters)
	return d
}

func (d *UpdaterDefinition) rebuild(used ParameterCollection) {
	d.parameters = used
	n := used.Len()
	d.SortedKeys = make([]Key, 0, n)
	d.SortedKeyHashes = make([]uint64, 0, n)
	d.SortedCompilationValues = make([]any, 0, n)
	used.Range(func(key Key, value any) bool {
		d.SortedKeys = append(d.SortedKeys, key)
		d.SortedKeyHashes = append(d.SortedKeyHashes, key.Hash())
		d.SortedCompilationValues = append(d.SortedCompilationValues, value)
		return true
	})
	d.SortedCounters = make([]uint64, n)
	d.SortedLevels = make([]uint64, n)
	d.SortedSources = make([]int, n)
	for i := range d.SortedSources {
		d.SortedSources[i] = sourceUnknown
	}
}

// Parameters returns the used parameters the definition was built from.
func (d *UpdaterDefinition) Parameters() ParameterCollection {
	return d.parameters
}

// Len returns the number of tracked keys.
func (d *UpdaterDefinition) Len() int {
	return len(d.SortedKeys)
}

// UpdateUsedParameters refreshes the compilation values after the same effect was bound again
// with a new set of used parameters. When the key set differs the definition is rebuilt.
func (d *UpdaterDefinition) UpdateUsedParameters(used ParameterCollection) {
	if used.Len() != len(d.SortedKeys) {
		d.rebuild(used)
		return
	}
	i := 0
	same := true
	used.Range(func(key Key, _ any) bool {
		same = d.SortedKeys[i].Name() == key.Name()
		i++
		return same
	})
	if !same {
		d.rebuild(used)
		return
	}
	d.parameters = used
	i = 0
	used.Range(func(_ Key, value any) bool {
		d.SortedCompilationValues[i] = value
		i++
		return true
	})
}

// IndexOf returns the position of key in the sorted arrays, or -1.
func (d *UpdaterDefinition) IndexOf(key Key) int {
	h := key.Hash()
	i := sort.Search(len(d.SortedKeyHashes), func(i int) bool { return d.SortedKeyHashes[i] >= h })
	for ; i < len(d.SortedKeyHashes) && d.SortedKeyHashes[i] == h; i++ {
		if d.SortedKeys[i].Name() == key.Name() {
			return i
		}
	}
	return -1
}

// ResetCounters forgets the recorded counters and sources, so the next check compares values.
func (d *UpdaterDefinition) ResetCounters() {
	for i := range d.SortedCounters {
		d.SortedCounters[i] = 0
		d.SortedSources[i] = sourceUnknown
	}
}
