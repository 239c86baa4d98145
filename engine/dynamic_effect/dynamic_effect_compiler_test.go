package dynamic_effect

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-lighting/common"
	"github.com/Carmen-Shannon/oxy-lighting/engine/effect"
	"github.com/Carmen-Shannon/oxy-lighting/engine/parameter"
)

const testEffect = "TestForward"

var (
	lightCountKey = parameter.NewKey("Test.LightCount", parameter.KindInt)
	colorKey      = parameter.NewKey("Test.Color", parameter.KindVector3)
)

// gatedCompiler produces one bytecode per light count. While gated, requests with a
// non-negative priority stay pending until open is called. A light count of 13 fails.
type gatedCompiler struct {
	mu      sync.Mutex
	gated   bool
	pending []func()
}

func (c *gatedCompiler) Compile(_ context.Context, effectName string, params *effect.CompilerParameters) (*effect.CompilerResults, error) {
	if effectName != testEffect {
		return nil, effect.ErrEffectNotFound
	}
	count, _ := params.Get(lightCountKey)
	used := parameter.NewParameterCollection()
	used.Set(lightCountKey, count)

	var result effect.BytecodeResult
	if count == 13 {
		result.Messages = []effect.Message{{Severity: effect.SeverityError, Text: "too many lights"}}
	} else {
		b := common.NewObjectIDBuilder()
		parameter.HashValue(b, count)
		result.Bytecode = &effect.Bytecode{ID: b.Sum(), Name: effectName}
	}

	task := effect.NewTask[effect.BytecodeResult]()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gated && params.TaskPriority >= 0 {
		c.pending = append(c.pending, func() { task.Complete(result) })
	} else {
		task.Complete(result)
	}
	return &effect.CompilerResults{EffectName: effectName, Bytecode: task, UsedParameters: used}, nil
}

func (c *gatedCompiler) ResetCache([]string) {}

func (c *gatedCompiler) SourcePath(string) (string, bool) { return "", false }

func (c *gatedCompiler) open() {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.gated = false
	c.mu.Unlock()
	for _, p := range pending {
		p()
	}
}

func newSystem(t *testing.T, c effect.Compiler) effect.EffectSystem {
	t.Helper()
	s, err := effect.NewEffectSystem(c)
	require.NoError(t, err)
	t.Cleanup(s.Destroy)
	return s
}

func lightCount(t *testing.T, inst *DynamicEffectInstance) any {
	t.Helper()
	require.NotNil(t, inst.Effect())
	idx := inst.UpdaterDefinition().IndexOf(lightCountKey)
	require.GreaterOrEqual(t, idx, 0)
	return inst.UpdaterDefinition().SortedCompilationValues[idx]
}

func TestUpdateSynchronous(t *testing.T) {
	system := newSystem(t, &gatedCompiler{})
	dc := NewDynamicEffectCompiler(system, testEffect)

	material := parameter.NewParameterCollection(parameter.WithName("material"))
	material.Set(lightCountKey, 4)
	material.Set(colorKey, [3]float32{1, 1, 1})
	inst := NewDynamicEffectInstance(material)
	ctx := context.Background()

	assert.Equal(t, StateNoEffect, inst.State())
	changed, err := dc.Update(ctx, inst, nil)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StateBound, inst.State())
	assert.Equal(t, 4, lightCount(t, inst))
	_, isFallback := inst.Fallback()
	assert.False(t, isFallback)

	for i := 0; i < 3; i++ {
		changed, err = dc.Update(ctx, inst, nil)
		require.NoError(t, err)
		assert.False(t, changed)
	}

	// untracked parameter
	material.Set(colorKey, [3]float32{0, 1, 0})
	changed, err = dc.Update(ctx, inst, nil)
	require.NoError(t, err)
	assert.False(t, changed)

	first := inst.Effect()
	material.Set(lightCountKey, 8)
	changed, err = dc.Update(ctx, inst, nil)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NotSame(t, first, inst.Effect())
	assert.Equal(t, 8, lightCount(t, inst))
}

func TestUpdatePassParametersOverrideInstance(t *testing.T) {
	system := newSystem(t, &gatedCompiler{})
	device := parameter.NewParameterCollection(parameter.WithName("device"))
	device.Set(lightCountKey, 1)
	dc := NewDynamicEffectCompiler(system, testEffect, WithDeviceParameters(device))

	material := parameter.NewParameterCollection()
	inst := NewDynamicEffectInstance(material)
	pass := parameter.NewParameterCollection(parameter.WithName("pass"))
	pass.Set(lightCountKey, 2)

	_, err := dc.Update(context.Background(), inst, pass)
	require.NoError(t, err)
	assert.Equal(t, 1, lightCount(t, inst), "device parameters are merged last")
}

func TestUpdateCollectionSwapWithEqualValues(t *testing.T) {
	system := newSystem(t, &gatedCompiler{})
	dc := NewDynamicEffectCompiler(system, testEffect)
	ctx := context.Background()

	a := parameter.NewParameterCollection()
	a.Set(lightCountKey, 4)
	inst := NewDynamicEffectInstance(a)
	_, err := dc.Update(ctx, inst, nil)
	require.NoError(t, err)

	b := parameter.NewParameterCollection()
	b.Set(lightCountKey, 4)
	inst.SetParameterCollections(b)
	changed, err := dc.Update(ctx, inst, nil)
	require.NoError(t, err)
	assert.False(t, changed)

	b.Set(lightCountKey, 16)
	changed, err = dc.Update(ctx, inst, nil)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestUpdateAsyncBindsFallbackUntilCompiled(t *testing.T) {
	compiler := &gatedCompiler{gated: true}
	system := newSystem(t, compiler)
	dc := NewDynamicEffectCompiler(system, testEffect, WithAsyncCompilation(true))

	material := parameter.NewParameterCollection()
	material.Set(lightCountKey, 4)
	inst := NewDynamicEffectInstance(material)
	ctx := context.Background()

	changed, err := dc.Update(ctx, inst, nil)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StateCompiling, inst.State())
	kind, isFallback := inst.Fallback()
	require.True(t, isFallback)
	assert.Equal(t, FallbackCompiling, kind)
	assert.Nil(t, lightCount(t, inst), "fallback is compiled without parameters")
	fallback := inst.Effect()

	changed, err = dc.Update(ctx, inst, nil)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Same(t, fallback, inst.Effect())

	task := inst.compiling
	require.NotNil(t, task)
	compiler.open()
	<-task.Done()

	changed, err = dc.Update(ctx, inst, nil)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StateBound, inst.State())
	assert.Equal(t, 4, lightCount(t, inst))
	_, isFallback = inst.Fallback()
	assert.False(t, isFallback)

	changed, err = dc.Update(ctx, inst, nil)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestUpdateCompileErrorBindsErrorFallback(t *testing.T) {
	system := newSystem(t, &gatedCompiler{})
	now := time.Unix(1000, 0)
	dc := NewDynamicEffectCompiler(system, testEffect, WithClock(func() time.Time { return now }))

	material := parameter.NewParameterCollection()
	material.Set(lightCountKey, 13)
	inst := NewDynamicEffectInstance(material)
	ctx := context.Background()

	changed, err := dc.Update(ctx, inst, nil)
	assert.ErrorIs(t, err, effect.ErrCompilation)
	assert.True(t, changed)
	assert.True(t, inst.HasErrors())
	kind, isFallback := inst.Fallback()
	require.True(t, isFallback)
	assert.Equal(t, FallbackError, kind)
	require.NotNil(t, inst.Effect())

	material.Set(lightCountKey, 4)
	changed, err = dc.Update(ctx, inst, nil)
	require.NoError(t, err)
	assert.False(t, changed, "retry waits for the error interval")

	now = now.Add(2 * DefaultErrorRetryInterval)
	changed, err = dc.Update(ctx, inst, nil)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.False(t, inst.HasErrors())
	assert.Nil(t, inst.Err())
	assert.Equal(t, 4, lightCount(t, inst))
}

func TestUpdateAfterSystemDestroyed(t *testing.T) {
	system := newSystem(t, &gatedCompiler{})
	dc := NewDynamicEffectCompiler(system, testEffect)
	material := parameter.NewParameterCollection()
	material.Set(lightCountKey, 4)
	inst := NewDynamicEffectInstance(material)
	ctx := context.Background()

	_, err := dc.Update(ctx, inst, nil)
	require.NoError(t, err)

	system.Destroy()
	assert.False(t, system.IsValid(inst.Effect()))
	changed, err := dc.Update(ctx, inst, nil)
	assert.ErrorIs(t, err, effect.ErrSystemDestroyed)
	assert.False(t, changed)
}

func TestConfigurationErrors(t *testing.T) {
	system := newSystem(t, &gatedCompiler{})
	assert.Panics(t, func() { NewDynamicEffectCompiler(nil, testEffect) })
	assert.Panics(t, func() { NewDynamicEffectCompiler(system, "") })

	inst := NewDynamicEffectInstance()
	_, err := NewDynamicEffectCompiler(system, testEffect).Update(context.Background(), inst, nil)
	require.NoError(t, err)
	assert.Panics(t, func() {
		_, _ = NewDynamicEffectCompiler(system, "Other").Update(context.Background(), inst, nil)
	})

	_, err = NewDynamicEffectCompiler(system, "Missing").Update(context.Background(), NewDynamicEffectInstance(), nil)
	assert.ErrorIs(t, err, effect.ErrEffectNotFound)
}
