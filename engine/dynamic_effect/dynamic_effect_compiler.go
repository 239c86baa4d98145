package dynamic_effect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Carmen-Shannon/oxy-lighting/engine/effect"
	"github.com/Carmen-Shannon/oxy-lighting/engine/parameter"
)

// DefaultErrorRetryInterval is how long an instance in error waits before compiling again.
const DefaultErrorRetryInterval = time.Second

// FallbackResult is an effect substituted for the real one.
type FallbackResult struct {
	Effect         *effect.Effect
	UsedParameters parameter.ParameterCollection
}

// FallbackFunc computes the fallback effect bound while the real effect compiles or after it failed.
//
// Parameters:
//   - ctx: the update context
//   - compiler: the compiler requesting the fallback
//   - kind: why a fallback is needed
//   - effectName: the effect that is compiling or failed
//   - params: the compiler parameters of the real effect
//
// Returns:
//   - FallbackResult: the fallback effect and its used parameters
//   - error: an error if no fallback could be loaded
type FallbackFunc func(ctx context.Context, compiler DynamicEffectCompiler, kind FallbackKind, effectName string, params *effect.CompilerParameters) (FallbackResult, error)

// DynamicEffectCompiler keeps the effects of DynamicEffectInstances in sync with their parameters.
//
// Each Update either confirms the bound effect is current through the instance's updater, or
// builds compiler parameters from the pass, instance and device collections and loads the
// matching effect. With asynchronous compilation a fallback effect is bound until the real
// effect is ready, so Update never blocks on compilation.
type DynamicEffectCompiler interface {
	// EffectName returns the compiled effect name.
	EffectName() string

	// EffectSystem returns the system effects are loaded from.
	EffectSystem() effect.EffectSystem

	// Update brings the instance up to date.
	//
	// Parameters:
	//   - ctx: the update context, used for synchronous waits
	//   - instance: the instance to update
	//   - pass: the pass parameters, highest priority after the instance collections; may be nil
	//
	// Returns:
	//   - bool: true if the bound effect or its parameter snapshot changed
	//   - error: effect.ErrCompilation when compilation failed and the error fallback was bound,
	//     or a configuration error such as effect.ErrEffectNotFound
	Update(ctx context.Context, instance *DynamicEffectInstance, pass parameter.ParameterCollection) (bool, error)

	// SwitchFallbackEffect binds a fallback to the instance and marks it in error.
	//
	// Parameters:
	//   - ctx: the update context
	//   - kind: the fallback kind
	//   - instance: the instance
	//   - pass: the pass parameters; may be nil
	//
	// Returns:
	//   - error: an error if the fallback could not be loaded
	SwitchFallbackEffect(ctx context.Context, kind FallbackKind, instance *DynamicEffectInstance, pass parameter.ParameterCollection) error
}

type dynamicEffectCompilerImpl struct {
	system     effect.EffectSystem
	effectName string
	logger     zerolog.Logger

	async         bool
	taskPriority  int
	device        parameter.ParameterCollection
	fallback      FallbackFunc
	retryInterval time.Duration
	now           func() time.Time
}

var _ DynamicEffectCompiler = &dynamicEffectCompilerImpl{}

// NewDynamicEffectCompiler creates a compiler for one effect name.
//
// Parameters:
//   - system: the effect system
//   - effectName: the effect name
//   - options: builder options
//
// Returns:
//   - DynamicEffectCompiler: the compiler
func NewDynamicEffectCompiler(system effect.EffectSystem, effectName string, options ...DynamicEffectCompilerBuilderOption) DynamicEffectCompiler {
	if system == nil {
		panic("dynamic_effect: effect system must not be nil")
	}
	if effectName == "" {
		panic("dynamic_effect: effect name must not be empty")
	}
	c := &dynamicEffectCompilerImpl{
		system:        system,
		effectName:    effectName,
		logger:        zerolog.Nop(),
		fallback:      DefaultFallback,
		retryInterval: DefaultErrorRetryInterval,
		now:           time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "dynamic_effect_compiler").Str("effect", effectName).Logger()
	return c
}

// DefaultFallback loads the same effect with empty compiler parameters, compiled inline.
func DefaultFallback(ctx context.Context, compiler DynamicEffectCompiler, _ FallbackKind, effectName string, _ *effect.CompilerParameters) (FallbackResult, error) {
	params := effect.NewCompilerParameters()
	params.TaskPriority = -1
	task, err := compiler.EffectSystem().LoadEffect(ctx, effectName, params)
	if err != nil {
		return FallbackResult{}, err
	}
	res, err := task.Wait(ctx)
	if err != nil {
		return FallbackResult{}, err
	}
	if res.Err != nil {
		return FallbackResult{}, res.Err
	}
	return FallbackResult{Effect: res.Effect, UsedParameters: res.UsedParameters}, nil
}

func (c *dynamicEffectCompilerImpl) EffectName() string {
	return c.effectName
}

func (c *dynamicEffectCompilerImpl) EffectSystem() effect.EffectSystem {
	return c.system
}

func (c *dynamicEffectCompilerImpl) Update(ctx context.Context, inst *DynamicEffectInstance, pass parameter.ParameterCollection) (bool, error) {
	if inst == nil {
		panic("dynamic_effect: instance must not be nil")
	}
	if inst.effectName == "" {
		inst.effectName = c.effectName
	} else if inst.effectName != c.effectName {
		panic(fmt.Sprintf("dynamic_effect: instance bound to effect %q updated with %q", inst.effectName, c.effectName))
	}

	changed := false
	if inst.compiling != nil {
		res, done := inst.compiling.Result()
		if !done {
			return false, nil
		}
		used := inst.compilingUsed
		inst.compiling = nil
		inst.compilingUsed = nil

		if res.Err != nil {
			params := effect.NewCompilerParameters()
			if used != nil {
				used.CopyTo(params.ParameterCollection)
			}
			err := fmt.Errorf("dynamic_effect: %w", res.Err)
			if ferr := c.switchFallback(ctx, FallbackError, inst, pass, params, err); ferr != nil {
				return true, errors.Join(err, ferr)
			}
			return true, err
		}
		inst.hasErrors = false
		inst.lastErr = nil
		changed = true
	}

	if !changed && inst.effect != nil && c.system.IsValid(inst.effect) && !inst.hasErrors {
		if !c.hasCollectionChanged(inst, pass) {
			return false, nil
		}
	}

	if inst.hasErrors {
		now := c.now()
		if now.Before(inst.lastErrorCheck.Add(c.retryInterval)) {
			return false, nil
		}
		inst.lastErrorCheck = now
	}

	err := c.createEffect(ctx, inst, pass)
	if err != nil && !errors.Is(err, effect.ErrCompilation) {
		return false, err
	}
	return true, err
}

func (c *dynamicEffectCompilerImpl) hasCollectionChanged(inst *DynamicEffectInstance, pass parameter.ParameterCollection) bool {
	rebuilt := c.prepareUpdater(inst, pass)
	if inst.updater.HasChanged(inst.definition) {
		return true
	}
	if rebuilt {
		// values matched after a collection swap, re-arm the counter fast path
		inst.updater.ComputeLevels(inst.definition)
		inst.updater.UpdateCounters(inst.definition)
	}
	return false
}

func (c *dynamicEffectCompilerImpl) createEffect(ctx context.Context, inst *DynamicEffectInstance, pass parameter.ParameterCollection) error {
	params := c.buildCompilerParameters(inst, pass)

	task, err := c.system.LoadEffect(ctx, c.effectName, params)
	if err != nil {
		if !errors.Is(err, effect.ErrCompilation) {
			return err
		}
		if ferr := c.switchFallback(ctx, FallbackError, inst, pass, params, err); ferr != nil {
			return errors.Join(err, ferr)
		}
		return err
	}

	if c.async && !task.IsCompleted() {
		inst.compiling = task
		inst.compilingUsed = params.ParameterCollection
		if inst.hasErrors {
			// stay on the error fallback instead of flickering to the compiling one
			return nil
		}
		fb, err := c.fallback(ctx, c, FallbackCompiling, c.effectName, params)
		if err != nil {
			c.logger.Warn().Err(err).Msg("failed to load compiling fallback")
			return nil
		}
		c.bind(inst, fb.Effect, fb.UsedParameters, pass)
		inst.fallback = FallbackCompiling
		return nil
	}

	res, err := task.Wait(ctx)
	if err != nil {
		return err
	}
	if res.Err != nil {
		err := fmt.Errorf("dynamic_effect: %w", res.Err)
		if ferr := c.switchFallback(ctx, FallbackError, inst, pass, params, err); ferr != nil {
			return errors.Join(err, ferr)
		}
		return err
	}

	inst.hasErrors = false
	inst.lastErr = nil
	c.bind(inst, res.Effect, res.UsedParameters, pass)
	inst.fallback = 0
	inst.compiling = nil
	inst.compilingUsed = nil
	return nil
}

func (c *dynamicEffectCompilerImpl) SwitchFallbackEffect(ctx context.Context, kind FallbackKind, inst *DynamicEffectInstance, pass parameter.ParameterCollection) error {
	return c.switchFallback(ctx, kind, inst, pass, c.buildCompilerParameters(inst, pass), nil)
}

func (c *dynamicEffectCompilerImpl) switchFallback(ctx context.Context, kind FallbackKind, inst *DynamicEffectInstance, pass parameter.ParameterCollection, params *effect.CompilerParameters, cause error) error {
	inst.hasErrors = true
	inst.lastErrorCheck = c.now()
	inst.lastErr = cause
	if cause != nil {
		c.logger.Error().Err(cause).Msg("effect compilation failed, binding fallback")
	}

	fb, err := c.fallback(ctx, c, kind, c.effectName, params)
	if err != nil {
		return fmt.Errorf("dynamic_effect: failed to load %s fallback: %w", kind, err)
	}
	c.bind(inst, fb.Effect, fb.UsedParameters, pass)
	inst.fallback = kind
	return nil
}

// buildCompilerParameters merges pass, instance and device parameters, later collections winning.
func (c *dynamicEffectCompilerImpl) buildCompilerParameters(inst *DynamicEffectInstance, pass parameter.ParameterCollection) *effect.CompilerParameters {
	params := effect.NewCompilerParameters()
	if pass != nil {
		pass.CopyTo(params.ParameterCollection)
	}
	for _, pc := range inst.collections {
		pc.CopyTo(params.ParameterCollection)
	}
	params.TaskPriority = c.taskPriority
	if c.device != nil {
		c.device.CopyTo(params.ParameterCollection)
	}
	return params
}

// bind makes e the instance's effect. A new effect gets a new snapshot; the same effect keeps
// its snapshot and refreshes the compilation values.
func (c *dynamicEffectCompilerImpl) bind(inst *DynamicEffectInstance, e *effect.Effect, used parameter.ParameterCollection, pass parameter.ParameterCollection) {
	if used == nil {
		used = parameter.NewParameterCollection(parameter.WithName("used"))
	}
	if e != inst.effect || inst.definition == nil {
		inst.effect = e
		inst.definition = parameter.NewUpdaterDefinition(used)
		inst.updater = nil
	} else {
		inst.definition.UpdateUsedParameters(used)
	}

	c.prepareUpdater(inst, pass)
	inst.updater.ComputeLevels(inst.definition)
	inst.updater.UpdateCounters(inst.definition)
}

// prepareUpdater rebuilds the updater when the collection list changed by identity, and
// then forgets the snapshot counters so the next check compares values.
func (c *dynamicEffectCompilerImpl) prepareUpdater(inst *DynamicEffectInstance, pass parameter.ParameterCollection) bool {
	group := inst.groupScratch[:0]
	group = append(group, inst.definition.Parameters())
	if pass != nil {
		group = append(group, pass)
	}
	group = append(group, inst.collections...)
	if c.device != nil {
		group = append(group, c.device)
	}
	inst.groupScratch = group

	if inst.updater != nil && inst.updater.SameCollections(group) {
		return false
	}
	inst.updater = parameter.NewUpdater(append([]parameter.ParameterCollection(nil), group...)...)
	inst.definition.ResetCounters()
	return true
}
