package renderer

import (
	"github.com/Carmen-Shannon/oxy-lighting/engine/parameter"
)

// EffectValidator collects the permutation parameters render features require from an effect.
// Its collection is one of the effect instance's parameter collections, so a changed value
// makes the dynamic effect compiler produce a new permutation.
//
// A validation round is BeginEffectValidation, any number of ValidateParameter calls, then
// EndEffectValidation. Values equal to the stored ones are not written again, so an unchanged
// permutation keeps its counters and the compiler stays on its fast path.
type EffectValidator struct {
	params  parameter.ParameterCollection
	touched map[parameter.Key]struct{}
	changed bool
}

// NewEffectValidator creates a validator with an empty permutation collection.
func NewEffectValidator(name string) *EffectValidator {
	return &EffectValidator{
		params:  parameter.NewParameterCollection(parameter.WithName(name + ".permutation")),
		touched: make(map[parameter.Key]struct{}),
	}
}

// Parameters returns the permutation collection.
func (v *EffectValidator) Parameters() parameter.ParameterCollection {
	return v.params
}

// BeginEffectValidation starts a validation round.
func (v *EffectValidator) BeginEffectValidation() {
	clear(v.touched)
	v.changed = false
}

// ValidateParameter requires key to hold value. The collection is only written when the
// stored value differs.
//
// Parameters:
//   - key: the permutation parameter
//   - value: the required value
func (v *EffectValidator) ValidateParameter(key parameter.Key, value any) {
	v.touched[key] = struct{}{}
	if cur, ok := v.params.Get(key); ok && parameter.ValuesEqual(cur, value) {
		return
	}
	v.params.Set(key, value)
	v.changed = true
}

// EndEffectValidation removes the parameters nobody validated this round.
//
// Returns:
//   - bool: true if the permutation changed during the round
func (v *EffectValidator) EndEffectValidation() bool {
	for _, key := range v.params.Keys() {
		if _, ok := v.touched[key]; !ok {
			v.params.Remove(key)
			v.changed = true
		}
	}
	return v.changed
}
