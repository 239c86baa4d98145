package effect

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-lighting/common"
	"github.com/Carmen-Shannon/oxy-lighting/engine/parameter"
)

var (
	testLightCount = parameter.NewKey("Test.LightCount", parameter.KindInt)
	testShadows    = parameter.NewKey("Test.Shadows", parameter.KindBool)
)

// fakeCompiler produces one bytecode per light count. Bytecode tasks stay pending while
// deferred is set, until release is called.
type fakeCompiler struct {
	mu       sync.Mutex
	compiles int
	resets   [][]string
	deferred bool
	pending  []func()
	fail     bool
}

func (c *fakeCompiler) Compile(_ context.Context, effectName string, params *CompilerParameters) (*CompilerResults, error) {
	if effectName != "TestEffect" {
		return nil, ErrEffectNotFound
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.compiles++

	count, _ := params.Get(testLightCount)
	used := parameter.NewParameterCollection()
	used.Set(testLightCount, count)

	b := common.NewObjectIDBuilder()
	b.WriteString(effectName)
	parameter.HashValue(b, count)
	result := BytecodeResult{Bytecode: &Bytecode{
		ID:          b.Sum(),
		Name:        effectName,
		HashSources: map[string]common.ObjectID{"TestShading": common.HashString("body")},
	}}
	if c.fail {
		result = BytecodeResult{Messages: []Message{{Severity: SeverityError, Text: "generation failed"}}}
	}

	task := NewTask[BytecodeResult]()
	if c.deferred {
		c.pending = append(c.pending, func() { task.Complete(result) })
	} else {
		task.Complete(result)
	}
	return &CompilerResults{EffectName: effectName, Bytecode: task, UsedParameters: used}, nil
}

func (c *fakeCompiler) ResetCache(modifiedSources []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resets = append(c.resets, modifiedSources)
}

func (c *fakeCompiler) SourcePath(string) (string, bool) {
	return "", false
}

func (c *fakeCompiler) release() {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, p := range pending {
		p()
	}
}

func (c *fakeCompiler) compileCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compiles
}

func compilerParams(count int, shadows bool) *CompilerParameters {
	p := NewCompilerParameters()
	p.Set(testLightCount, count)
	p.Set(testShadows, shadows)
	return p
}

func loadEffect(t *testing.T, s EffectSystem, params *CompilerParameters) EffectResult {
	t.Helper()
	task, err := s.LoadEffect(context.Background(), "TestEffect", params)
	require.NoError(t, err)
	res, err := task.Wait(context.Background())
	require.NoError(t, err)
	return res
}

func TestLoadEffectCachesOneEffectPerBytecode(t *testing.T) {
	fc := &fakeCompiler{}
	s, err := NewEffectSystem(fc)
	require.NoError(t, err)
	defer s.Destroy()

	first := loadEffect(t, s, compilerParams(4, false))
	require.NoError(t, first.Err)
	require.NotNil(t, first.Effect)
	assert.True(t, s.IsValid(first.Effect))

	// unused parameter differs, early cache serves the previous result
	second := loadEffect(t, s, compilerParams(4, true))
	require.NoError(t, second.Err)
	assert.Same(t, first.Effect, second.Effect)
	assert.Equal(t, 1, fc.compileCount())

	third := loadEffect(t, s, compilerParams(8, false))
	assert.NotSame(t, first.Effect, third.Effect)
	assert.Equal(t, 2, fc.compileCount())
	assert.Equal(t, 2, s.CachedEffectCount())
}

func TestLoadEffectRejectsInvalidArguments(t *testing.T) {
	s, err := NewEffectSystem(&fakeCompiler{})
	require.NoError(t, err)
	defer s.Destroy()

	_, err = s.LoadEffect(context.Background(), "", NewCompilerParameters())
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = s.LoadEffect(context.Background(), "TestEffect", nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = s.LoadEffect(context.Background(), "Unknown", NewCompilerParameters())
	assert.ErrorIs(t, err, ErrEffectNotFound)
}

func TestLoadEffectPendingBytecode(t *testing.T) {
	fc := &fakeCompiler{deferred: true}
	s, err := NewEffectSystem(fc)
	require.NoError(t, err)
	defer s.Destroy()

	task, err := s.LoadEffect(context.Background(), "TestEffect", compilerParams(2, false))
	require.NoError(t, err)
	assert.False(t, task.IsCompleted())

	fc.release()
	res, err := task.Wait(context.Background())
	require.NoError(t, err)
	require.NoError(t, res.Err)
	assert.True(t, s.IsValid(res.Effect))
}

func TestLoadEffectBytecodeFailure(t *testing.T) {
	fc := &fakeCompiler{fail: true}
	s, err := NewEffectSystem(fc)
	require.NoError(t, err)
	defer s.Destroy()

	res := loadEffect(t, s, compilerParams(2, false))
	assert.ErrorIs(t, res.Err, ErrCompilation)
	assert.Nil(t, res.Effect)

	// failed results are evicted, the next load compiles again
	fc.fail = false
	res = loadEffect(t, s, compilerParams(2, false))
	require.NoError(t, res.Err)
	assert.Equal(t, 2, fc.compileCount())
}

func TestCompletionAfterDestroy(t *testing.T) {
	fc := &fakeCompiler{deferred: true}
	s, err := NewEffectSystem(fc)
	require.NoError(t, err)

	task, err := s.LoadEffect(context.Background(), "TestEffect", compilerParams(2, false))
	require.NoError(t, err)
	s.Destroy()
	fc.release()

	res, err := task.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, errors.Is(res.Err, ErrSystemDestroyed))
	assert.Equal(t, 0, s.CachedEffectCount())
}

func TestSourceModificationInvalidatesEffects(t *testing.T) {
	fc := &fakeCompiler{}
	s, err := NewEffectSystem(fc)
	require.NoError(t, err)
	defer s.Destroy()

	res := loadEffect(t, s, compilerParams(4, false))
	require.NoError(t, res.Err)

	s.NotifySourceModified("Unrelated")
	s.UpdateEffects()
	assert.True(t, s.IsValid(res.Effect))

	s.NotifySourceModified("TestShading")
	assert.True(t, s.IsValid(res.Effect), "modifications apply on UpdateEffects")
	s.UpdateEffects()
	assert.False(t, s.IsValid(res.Effect))
	assert.True(t, res.Effect.IsReleased())
	assert.Equal(t, [][]string{{"Unrelated"}, {"TestShading"}}, fc.resets)

	reloaded := loadEffect(t, s, compilerParams(4, false))
	assert.NotSame(t, res.Effect, reloaded.Effect)
	assert.Equal(t, 2, fc.compileCount())
}

func TestRecordEffectCompile(t *testing.T) {
	s, err := NewEffectSystem(&fakeCompiler{})
	require.NoError(t, err)
	defer s.Destroy()

	assert.ErrorIs(t, s.StopRecordEffectCompile(), ErrNotRecording)

	rec, err := OpenSQLiteCompileRecorder(filepath.Join(t.TempDir(), "compile.db"))
	require.NoError(t, err)
	defer rec.Close()

	require.NoError(t, s.StartRecordEffectCompile(rec))
	assert.ErrorIs(t, s.StartRecordEffectCompile(rec), ErrAlreadyRecording)

	loadEffect(t, s, compilerParams(4, false))
	loadEffect(t, s, compilerParams(4, true))
	loadEffect(t, s, compilerParams(8, false))
	require.NoError(t, s.StopRecordEffectCompile())
	loadEffect(t, s, compilerParams(16, false))

	requests, err := rec.Requests(context.Background())
	require.NoError(t, err)
	require.Len(t, requests, 2)
	for _, r := range requests {
		assert.Equal(t, "TestEffect", r.EffectName)
		assert.Contains(t, r.Parameters, "Test.LightCount=")
	}
}

func TestTaskWaitHonorsContext(t *testing.T) {
	task := NewTask[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := task.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	task.Complete(3)
	task.Complete(4)
	v, ok := task.Result()
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestSourceName(t *testing.T) {
	assert.Equal(t, "LightDirectional", SourceName(filepath.Join("shaders", "LightDirectional.wgsl")))
}

func TestEarlyCacheConcurrentUpdates(t *testing.T) {
	sys, err := NewEffectSystem(&fakeCompiler{})
	require.NoError(t, err)
	defer sys.Destroy()
	s := sys.(*effectSystemImpl)

	const n = 64
	results := make([]*CompilerResults, n)
	for i := range results {
		results[i] = &CompilerResults{EffectName: "TestEffect", Bytecode: NewTask[BytecodeResult]()}
	}

	var wg sync.WaitGroup
	for i, r := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.addEarlyResult("TestEffect", r)
			if i%2 == 1 {
				s.removeEarlyResults("TestEffect", func(c *CompilerResults) bool { return c == r })
			}
		}()
	}
	wg.Wait()

	list, ok := s.earlyCache.Peek("TestEffect")
	require.True(t, ok)
	assert.Len(t, list, n/2, "no update is lost and no removed result comes back")
	for _, r := range list {
		assert.Equal(t, 0, slices.Index(results, r)%2)
	}

	failed := NewTask[BytecodeResult]()
	failed.Complete(BytecodeResult{Messages: []Message{{Severity: SeverityError, Text: "generation failed"}}})
	s.addEarlyResult("Failed", &CompilerResults{EffectName: "Failed", Bytecode: failed})
	_, ok = s.earlyCache.Peek("Failed")
	assert.False(t, ok, "a failed generation is never cached")
}
