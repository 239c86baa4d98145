package parameter

import (
	"sort"
)

// ParameterCollection is an ordered, versioned key/value store.
// Every Set increments the entry's generation counter, and structural changes (adding or
// removing keys) increment the collection's DirtyCount. These two counters are what the
// Updater compares to decide whether a compiled effect is still valid.
// Collections are not safe for concurrent mutation.
type ParameterCollection interface {
	// Name returns the debug name of the collection.
	//
	// Returns:
	//   - string: the collection name
	Name() string

	// Set stores value under key.
	// Adding a new key increments DirtyCount; every call increments the entry counter,
	// even when the value is equal to the previous one.
	//
	// Parameters:
	//   - key: the parameter key
	//   - value: the value to store
	Set(key Key, value any)

	// Get returns the value stored under key.
	//
	// Parameters:
	//   - key: the parameter key
	//
	// Returns:
	//   - any: the stored value, or nil
	//   - bool: true if the key is defined in this collection
	Get(key Key) (any, bool)

	// GetByName returns the value stored under the key with the given name.
	//
	// Parameters:
	//   - name: the fully qualified key name
	//
	// Returns:
	//   - any: the stored value, or nil
	//   - bool: true if a key with that name is defined
	GetByName(name string) (any, bool)

	// Contains reports whether key is defined in this collection.
	//
	// Parameters:
	//   - key: the parameter key
	//
	// Returns:
	//   - bool: true if the key is defined
	Contains(key Key) bool

	// Counter returns the generation counter of key.
	//
	// Parameters:
	//   - key: the parameter key
	//
	// Returns:
	//   - uint64: the counter, or 0 if the key is not defined
	Counter(key Key) uint64

	// Remove deletes key. Removing a defined key increments DirtyCount.
	//
	// Parameters:
	//   - key: the parameter key
	//
	// Returns:
	//   - bool: true if the key was defined
	Remove(key Key) bool

	// Clear removes every key. DirtyCount is incremented when the collection was not empty.
	Clear()

	// DirtyCount returns the structural change counter of the collection.
	//
	// Returns:
	//   - uint64: the number of structural changes since creation
	DirtyCount() uint64

	// Len returns the number of defined keys.
	//
	// Returns:
	//   - int: the key count
	Len() int

	// Keys returns the defined keys sorted by hash.
	//
	// Returns:
	//   - []Key: a new slice of keys
	Keys() []Key

	// Range calls fn for every entry in key hash order until fn returns false.
	//
	// Parameters:
	//   - fn: the visitor
	Range(fn func(key Key, value any) bool)

	// CopyTo sets every entry of this collection into dst.
	//
	// Parameters:
	//   - dst: the destination collection
	CopyTo(dst ParameterCollection)
}

type entry struct {
	key     Key
	value   any
	counter uint64
}

type parameterCollectionImpl struct {
	name       string
	entries    map[string]*entry
	sorted     []*entry
	dirtyCount uint64
}

var _ ParameterCollection = &parameterCollectionImpl{}

// NewParameterCollection creates an empty collection.
func NewParameterCollection(options ...ParameterCollectionBuilderOption) ParameterCollection {
	pc := &parameterCollectionImpl{}
	for _, opt := range options {
		opt(pc)
	}
	if pc.entries == nil {
		pc.entries = make(map[string]*entry)
	}
	return pc
}

func (pc *parameterCollectionImpl) Name() string {
	return pc.name
}

func (pc *parameterCollectionImpl) Set(key Key, value any) {
	if key.IsZero() {
		panic("parameter: cannot set the zero key")
	}
	if e, ok := pc.entries[key.name]; ok {
		e.value = value
		e.counter++
		return
	}
	e := &entry{key: key, value: value, counter: 1}
	pc.entries[key.name] = e
	i := sort.Search(len(pc.sorted), func(i int) bool { return !less(pc.sorted[i].key, key) })
	pc.sorted = append(pc.sorted, nil)
	copy(pc.sorted[i+1:], pc.sorted[i:])
	pc.sorted[i] = e
	pc.dirtyCount++
}

func (pc *parameterCollectionImpl) Get(key Key) (any, bool) {
	return pc.GetByName(key.name)
}

func (pc *parameterCollectionImpl) GetByName(name string) (any, bool) {
	if e, ok := pc.entries[name]; ok {
		return e.value, true
	}
	return nil, false
}

func (pc *parameterCollectionImpl) Contains(key Key) bool {
	_, ok := pc.entries[key.name]
	return ok
}

func (pc *parameterCollectionImpl) Counter(key Key) uint64 {
	if e, ok := pc.entries[key.name]; ok {
		return e.counter
	}
	return 0
}

func (pc *parameterCollectionImpl) Remove(key Key) bool {
	e, ok := pc.entries[key.name]
	if !ok {
		return false
	}
	delete(pc.entries, key.name)
	for i, s := range pc.sorted {
		if s == e {
			pc.sorted = append(pc.sorted[:i], pc.sorted[i+1:]...)
			break
		}
	}
	pc.dirtyCount++
	return true
}

func (pc *parameterCollectionImpl) Clear() {
	if len(pc.sorted) == 0 {
		return
	}
	clear(pc.entries)
	pc.sorted = pc.sorted[:0]
	pc.dirtyCount++
}

func (pc *parameterCollectionImpl) DirtyCount() uint64 {
	return pc.dirtyCount
}

func (pc *parameterCollectionImpl) Len() int {
	return len(pc.sorted)
}

func (pc *parameterCollectionImpl) Keys() []Key {
	keys := make([]Key, len(pc.sorted))
	for i, e := range pc.sorted {
		keys[i] = e.key
	}
	return keys
}

func (pc *parameterCollectionImpl) Range(fn func(key Key, value any) bool) {
	for _, e := range pc.sorted {
		if !fn(e.key, e.value) {
			return
		}
	}
}

func (pc *parameterCollectionImpl) CopyTo(dst ParameterCollection) {
	for _, e := range pc.sorted {
		dst.Set(e.key, e.value)
	}
}

// Clone returns a new collection holding the same entries as src.
//
// Parameters:
//   - src: the collection to copy
//
// Returns:
//   - ParameterCollection: an independent copy
func Clone(src ParameterCollection) ParameterCollection {
	dst := NewParameterCollection(WithName(src.Name()), WithCapacity(src.Len()))
	src.CopyTo(dst)
	return dst
}

// ContainsAll reports whether every entry of subset is defined in set with an equal value.
// A nil entry in subset also matches a key that set does not define.
//
// Parameters:
//   - set: the collection to test
//   - subset: the entries that must be present
//
// Returns:
//   - bool: true if subset is contained in set
func ContainsAll(set, subset ParameterCollection) bool {
	ok := true
	subset.Range(func(key Key, value any) bool {
		v, _ := set.Get(key)
		ok = ValuesEqual(v, value)
		return ok
	})
	return ok
}
