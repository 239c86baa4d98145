package parameter

// ParameterCollectionBuilderOption configures a collection created by NewParameterCollection.
type ParameterCollectionBuilderOption func(*parameterCollectionImpl)

// WithName sets the debug name of the collection.
func WithName(name string) ParameterCollectionBuilderOption {
	return func(pc *parameterCollectionImpl) {
		pc.name = name
	}
}

// WithCapacity preallocates room for n entries.
func WithCapacity(n int) ParameterCollectionBuilderOption {
	return func(pc *parameterCollectionImpl) {
		pc.entries = make(map[string]*entry, n)
		pc.sorted = make([]*entry, 0, n)
	}
}
