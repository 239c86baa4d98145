package effect

import (
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-lighting/engine/parameter"
)

// Effect is a program bound to one bytecode. Effects are created and cached by the EffectSystem,
// one per bytecode ID, and are released when their sources change or the system is destroyed.
type Effect struct {
	name     string
	bytecode *Bytecode
	released atomic.Bool
}

func newEffect(name string, bytecode *Bytecode) *Effect {
	return &Effect{name: name, bytecode: bytecode}
}

// Name returns the effect name the bytecode was compiled for.
func (e *Effect) Name() string {
	return e.name
}

// Bytecode returns the compiled bytecode.
func (e *Effect) Bytecode() *Bytecode {
	return e.bytecode
}

// IsReleased reports whether the effect was evicted from its system.
func (e *Effect) IsReleased() bool {
	return e.released.Load()
}

func (e *Effect) release() {
	e.released.Store(true)
}

// EffectResult is the outcome of loading an effect.
type EffectResult struct {
	Effect         *Effect
	UsedParameters parameter.ParameterCollection
	Err            error
}

// EffectTask completes with a loaded effect.
type EffectTask = Task[EffectResult]
