package renderer

import (
	"github.com/Carmen-Shannon/oxy-lighting/engine/dynamic_effect"
	"github.com/Carmen-Shannon/oxy-lighting/engine/effect"
)

// RenderEffectState tells render features whether the bound effect is the real permutation.
type RenderEffectState uint8

const (
	// RenderEffectStateNone means no effect was bound yet.
	RenderEffectStateNone RenderEffectState = iota
	// RenderEffectStateNormal means the bound effect is the permutation compiled for the current parameters.
	RenderEffectStateNormal
	// RenderEffectStateFallback means a fallback is bound while the permutation compiles.
	RenderEffectStateFallback
	// RenderEffectStateError means the permutation failed to compile and the error fallback is bound.
	RenderEffectStateError
)

func (s RenderEffectState) String() string {
	switch s {
	case RenderEffectStateNormal:
		return "normal"
	case RenderEffectStateFallback:
		return "fallback"
	case RenderEffectStateError:
		return "error"
	default:
		return "none"
	}
}

// RenderEffect is the effect slot of a render node: the dynamic instance the compiler keeps
// current, the validator render features write permutation parameters into, and the resulting
// state. Nodes of the same mesh in different views use different slots.
type RenderEffect struct {
	EffectName string
	Effect     *effect.Effect
	State      RenderEffectState
	Validator  *EffectValidator
	Instance   *dynamic_effect.DynamicEffectInstance
}

// NewRenderEffect creates an effect slot for a node of mesh. The validator's permutation collection
// has the highest priority.
//
// Parameters:
//   - mesh: the mesh
//
// Returns:
//   - *RenderEffect: the effect slot
func NewRenderEffect(mesh *RenderMesh) *RenderEffect {
	if mesh == nil {
		panic("renderer: mesh must not be nil")
	}
	validator := NewEffectValidator(mesh.Name)
	collections := append(mesh.ParameterCollections(), validator.Parameters())
	return &RenderEffect{
		EffectName: mesh.EffectName,
		Validator:  validator,
		Instance:   dynamic_effect.NewDynamicEffectInstance(collections...),
	}
}

// Sync copies the bound effect and its state from the dynamic instance.
func (e *RenderEffect) Sync() {
	e.Effect = e.Instance.Effect()
	kind, isFallback := e.Instance.Fallback()
	switch {
	case e.Instance.HasErrors() || kind == dynamic_effect.FallbackError:
		e.State = RenderEffectStateError
	case isFallback:
		e.State = RenderEffectStateFallback
	case e.Effect == nil:
		e.State = RenderEffectStateNone
	default:
		e.State = RenderEffectStateNormal
	}
}
