package parameter

// Updater resolves the keys of an UpdaterDefinition against an ordered list of collections
// and decides whether the values an effect was compiled with are still current.
// When several collections define the same key, the last one in the list wins.
type Updater struct {
	collections []ParameterCollection
	sources     []int
	values      []any
	counters    []uint64
}

// NewUpdater creates an updater over collections, lowest priority first.
func NewUpdater(collections ...ParameterCollection) *Updater {
	for _, c := range collections {
		if c == nil {
			panic("parameter: updater collections must not be nil")
		}
	}
	return &Updater{collections: collections}
}

// Collections returns the collections the updater resolves against.
func (u *Updater) Collections() []ParameterCollection {
	return u.collections
}

// SameCollections reports whether cs is the same collection list, compared by identity.
func (u *Updater) SameCollections(cs []ParameterCollection) bool {
	if len(cs) != len(u.collections) {
		return false
	}
	for i := range cs {
		if cs[i] != u.collections[i] {
			return false
		}
	}
	return true
}

// Update binds every key of def to its winning collection and captures the live value and counter.
// Keys no collection defines bind to SourceNone with a nil value.
func (u *Updater) Update(def *UpdaterDefinition) {
	n := def.Len()
	u.sources = resize(u.sources, n)
	u.values = resize(u.values, n)
	u.counters = resize(u.counters, n)

	for i, key := range def.SortedKeys {
		u.sources[i] = SourceNone
		u.values[i] = nil
		u.counters[i] = 0
		for c := len(u.collections) - 1; c >= 0; c-- {
			if v, ok := u.collections[c].Get(key); ok {
				u.sources[i] = c
				u.values[i] = v
				u.counters[i] = u.collections[c].Counter(key)
				break
			}
		}
	}
}

// HasChanged re-resolves def against the live collections and reports whether any tracked key
// differs from the snapshot.
//
// A key is changed when its winning collection moved. While the owning collection had no
// structural change since ComputeLevels, an equal counter means unchanged and a different
// counter is confirmed by comparing values. After a structural change only values are compared.
func (u *Updater) HasChanged(def *UpdaterDefinition) bool {
	u.Update(def)
	for i := range def.SortedKeys {
		src := u.sources[i]
		recorded := def.SortedSources[i]
		if recorded != sourceUnknown && recorded != src {
			return true
		}
		if src == SourceNone {
			if def.SortedCompilationValues[i] != nil {
				return true
			}
			continue
		}
		if recorded != sourceUnknown && u.collections[src].DirtyCount() == def.SortedLevels[i] &&
			u.counters[i] == def.SortedCounters[i] {
			continue
		}
		if !ValuesEqual(u.values[i], def.SortedCompilationValues[i]) {
			return true
		}
	}
	return false
}

// ComputeLevels re-resolves def and records, for every key, the winning collection and its current dirty count.
func (u *Updater) ComputeLevels(def *UpdaterDefinition) {
	u.Update(def)
	for i := range def.SortedKeys {
		src := u.sources[i]
		def.SortedSources[i] = src
		if src == SourceNone {
			def.SortedLevels[i] = 0
			continue
		}
		def.SortedLevels[i] = u.collections[src].DirtyCount()
	}
}

// UpdateCounters re-resolves def and records the live counter of every key without touching levels.
func (u *Updater) UpdateCounters(def *UpdaterDefinition) {
	u.Update(def)
	copy(def.SortedCounters, u.counters)
}

// GetAtIndex returns the resolved value of the key at index i of the last bound definition.
//
// Returns:
//   - any: the live value, or nil when no collection defines the key
//   - bool: true if the key resolved to a collection
func (u *Updater) GetAtIndex(i int) (any, bool) {
	if i < 0 || i >= len(u.sources) || u.sources[i] == SourceNone {
		return nil, false
	}
	return u.values[i], true
}

// SourceAtIndex returns the collection index that won the key at index i, or SourceNone.
func (u *Updater) SourceAtIndex(i int) int {
	if i < 0 || i >= len(u.sources) {
		return SourceNone
	}
	return u.sources[i]
}

func resize[T any](s []T, n int) []T {
	if cap(s) < n {
		return make([]T, n)
	}
	return s[:n]
}
