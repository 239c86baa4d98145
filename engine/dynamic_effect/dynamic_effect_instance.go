package dynamic_effect

import (
	"time"

	"github.com/Carmen-Shannon/oxy-lighting/engine/effect"
	"github.com/Carmen-Shannon/oxy-lighting/engine/parameter"
)

// EffectState is the compilation state of a DynamicEffectInstance.
type EffectState uint8

const (
	// StateNoEffect means no effect was bound yet.
	StateNoEffect EffectState = iota
	// StateCompiling means an asynchronous compilation is in flight; a fallback may be bound.
	StateCompiling
	// StateBound means the bound effect is the one compiled for the current parameters,
	// or the error fallback.
	StateBound
)

func (s EffectState) String() string {
	switch s {
	case StateCompiling:
		return "compiling"
	case StateBound:
		return "bound"
	default:
		return "no_effect"
	}
}

// FallbackKind is the reason a fallback effect is bound.
type FallbackKind uint8

const (
	// FallbackCompiling is bound while the real effect compiles in the background.
	FallbackCompiling FallbackKind = iota + 1
	// FallbackError is bound when the real effect failed to compile.
	FallbackError
)

func (k FallbackKind) String() string {
	switch k {
	case FallbackCompiling:
		return "compiling"
	case FallbackError:
		return "error"
	default:
		return "none"
	}
}

// DynamicEffectInstance is the per-drawable state a DynamicEffectCompiler keeps up to date:
// the parameter collections the drawable contributes, the bound effect and the snapshot of
// the parameters it was compiled with.
type DynamicEffectInstance struct {
	effectName  string
	collections []parameter.ParameterCollection

	effect       *effect.Effect
	fallback     FallbackKind
	definition   *parameter.UpdaterDefinition
	updater      *parameter.Updater
	groupScratch []parameter.ParameterCollection

	compiling     *effect.EffectTask
	compilingUsed parameter.ParameterCollection

	hasErrors      bool
	lastErrorCheck time.Time
	lastErr        error
}

// NewDynamicEffectInstance creates an instance contributing collections, in increasing
// priority (for example material, model, mesh). Nil collections are ignored.
func NewDynamicEffectInstance(collections ...parameter.ParameterCollection) *DynamicEffectInstance {
	inst := &DynamicEffectInstance{}
	inst.SetParameterCollections(collections...)
	return inst
}

// SetParameterCollections replaces the contributed collections. A different list forces the
// next update to compare parameter values instead of trusting counters.
func (i *DynamicEffectInstance) SetParameterCollections(collections ...parameter.ParameterCollection) {
	i.collections = i.collections[:0]
	for _, c := range collections {
		if c != nil {
			i.collections = append(i.collections, c)
		}
	}
}

// ParameterCollections returns the contributed collections.
func (i *DynamicEffectInstance) ParameterCollections() []parameter.ParameterCollection {
	return i.collections
}

// EffectName returns the effect the instance was first updated with, empty before that.
func (i *DynamicEffectInstance) EffectName() string {
	return i.effectName
}

// Effect returns the bound effect, which may be a fallback.
func (i *DynamicEffectInstance) Effect() *effect.Effect {
	return i.effect
}

// Fallback returns the kind of the bound fallback effect.
//
// Returns:
//   - FallbackKind: the fallback kind
//   - bool: false if the bound effect is not a fallback
func (i *DynamicEffectInstance) Fallback() (FallbackKind, bool) {
	return i.fallback, i.fallback != 0
}

// State returns the compilation state.
func (i *DynamicEffectInstance) State() EffectState {
	switch {
	case i.compiling != nil:
		return StateCompiling
	case i.effect == nil:
		return StateNoEffect
	default:
		return StateBound
	}
}

// HasErrors reports whether the last compilation failed.
func (i *DynamicEffectInstance) HasErrors() bool {
	return i.hasErrors
}

// Err returns the last compilation error, nil once a compilation succeeds.
func (i *DynamicEffectInstance) Err() error {
	return i.lastErr
}

// UpdaterDefinition returns the snapshot of the bound effect's parameters.
func (i *DynamicEffectInstance) UpdaterDefinition() *parameter.UpdaterDefinition {
	return i.definition
}

// Updater returns the updater binding the snapshot to the live collections.
func (i *DynamicEffectInstance) Updater() *parameter.Updater {
	return i.updater
}
