// Package compiler is the in-process effect compiler. It runs registered effect generators to
// build a mixin tree, expands the tree's classes into WGSL and derives the reflection the
// renderer binds resources from.
package compiler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/Carmen-Shannon/oxy-lighting/common"
	"github.com/Carmen-Shannon/oxy-lighting/engine/effect"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer/shader"
)

// EffectCompiler is an effect.Compiler backed by a shader registry.
type EffectCompiler interface {
	effect.Compiler

	// Close stops the worker pool. Pending asynchronous generations may never complete afterwards.
	Close()
}

type effectCompilerImpl struct {
	registry *shader.Registry
	pp       shader.PreProcessor
	logger   zerolog.Logger
	workers  int

	pool   worker.DynamicWorkerPool
	taskID atomic.Int64

	loads singleflight.Group

	mu     sync.Mutex
	memo   map[common.ObjectID]*effect.BytecodeTask
	bodies map[string]string
}

var _ EffectCompiler = &effectCompilerImpl{}

// NewEffectCompiler creates a compiler for the effects and classes of registry.
//
// Parameters:
//   - registry: the shader registry
//   - options: builder options
//
// Returns:
//   - EffectCompiler: the compiler
func NewEffectCompiler(registry *shader.Registry, options ...EffectCompilerBuilderOption) EffectCompiler {
	if registry == nil {
		panic("compiler: registry must not be nil")
	}
	c := &effectCompilerImpl{
		registry: registry,
		pp:       shader.NewPreProcessor(registry.Struct),
		logger:   zerolog.Nop(),
		memo:     make(map[common.ObjectID]*effect.BytecodeTask),
		bodies:   make(map[string]string),
	}
	for _, opt := range options {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "effect_compiler").Logger()
	if c.workers > 0 {
		c.pool = worker.NewDynamicWorkerPool(c.workers, 64, time.Second)
	}
	return c
}

func (c *effectCompilerImpl) Compile(ctx context.Context, effectName string, params *effect.CompilerParameters) (*effect.CompilerResults, error) {
	gen, ok := c.registry.Effect(effectName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", effect.ErrEffectNotFound, effectName)
	}
	if params == nil {
		params = effect.NewCompilerParameters()
	}

	mctx := shader.NewMixinContext(params.ParameterCollection)
	results := &effect.CompilerResults{EffectName: effectName, UsedParameters: mctx.UsedParameters()}
	if err := gen(mctx); err != nil {
		results.Messages = append(results.Messages, effect.Message{
			Severity: effect.SeverityError,
			Text:     fmt.Sprintf("effect generator %q failed: %v", effectName, err),
		})
		results.Bytecode = effect.CompletedTask(effect.BytecodeResult{Messages: results.Messages})
		return results, nil
	}

	root := mctx.Root()
	b := common.NewObjectIDBuilder()
	b.WriteString(effectName)
	root.HashInto(b)
	key := b.Sum()

	c.mu.Lock()
	task, ok := c.memo[key]
	if !ok {
		task = effect.NewTask[effect.BytecodeResult]()
		c.memo[key] = task
	}
	c.mu.Unlock()
	results.Bytecode = task
	if ok {
		return results, nil
	}

	generate := func() {
		res := c.generate(effectName, root)
		if res.HasErrors() {
			c.mu.Lock()
			if c.memo[key] == task {
				delete(c.memo, key)
			}
			c.mu.Unlock()
		}
		task.Complete(res)
	}

	if c.pool == nil || params.TaskPriority < 0 {
		generate()
		return results, nil
	}
	c.pool.SubmitTask(worker.Task{
		ID:      int(c.taskID.Add(1)),
		Payload: effectName,
		Do: func() (any, error) {
			generate()
			return nil, nil
		},
	})
	return results, nil
}

func (c *effectCompilerImpl) generate(effectName string, root *shader.MixinSource) effect.BytecodeResult {
	start := time.Now()
	g := newGenerator(c.pp, c.registry.Class, c.classBody)
	if err := g.walk(root, ""); err != nil {
		return effect.BytecodeResult{Messages: []effect.Message{{Severity: effect.SeverityError, Text: err.Error()}}}
	}
	bytecode := g.build(effectName)
	c.logger.Debug().
		Str("effect", effectName).
		Str("bytecode", bytecode.ID.String()).
		Dur("elapsed", time.Since(start)).
		Msg("bytecode generated")
	return effect.BytecodeResult{Bytecode: bytecode, Messages: g.messages}
}

// classBody returns the body of a class, loading file-backed classes once until their source is reset.
func (c *effectCompilerImpl) classBody(decl shader.ClassDecl) (string, error) {
	c.mu.Lock()
	body, ok := c.bodies[decl.Name]
	c.mu.Unlock()
	if ok {
		return body, nil
	}

	v, err, _ := c.loads.Do(decl.Name, func() (any, error) {
		body, err := c.registry.LoadBody(decl)
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.bodies[decl.Name] = body
		c.mu.Unlock()
		return body, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *effectCompilerImpl) ResetCache(modifiedSources []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range modifiedSources {
		delete(c.bodies, name)
	}
	removed := 0
	for key, task := range c.memo {
		res, ok := task.Result()
		if ok && res.Bytecode != nil && res.Bytecode.DependsOn(modifiedSources) {
			delete(c.memo, key)
			removed++
		}
	}
	c.logger.Debug().Strs("sources", modifiedSources).Int("bytecodes", removed).Msg("compiler cache reset")
}

func (c *effectCompilerImpl) SourcePath(className string) (string, bool) {
	decl, ok := c.registry.Class(className)
	if !ok || decl.Path == "" {
		return "", false
	}
	return decl.Path, true
}

func (c *effectCompilerImpl) Close() {
	if c.pool != nil {
		c.pool.Stop()
	}
}
