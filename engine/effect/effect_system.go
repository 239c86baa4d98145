package effect

import (
	"context"
	"fmt"
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/Carmen-Shannon/oxy-lighting/common"
)

// DefaultEarlyCacheSize is the number of effect names whose successful compile results are kept
// for parameter-subset lookups.
const DefaultEarlyCacheSize = 256

// EffectSystem loads compiled effects, caches one Effect per bytecode and invalidates effects
// whose shader sources changed.
//
// Usage pattern:
//  1. LoadEffect is called with an effect name and compiler parameters
//  2. The returned task completes immediately on a cache hit, or later when bytecode is generated
//  3. UpdateEffects is called once per frame to apply source modifications
//  4. IsValid tells holders of an Effect whether it was invalidated
type EffectSystem interface {
	// LoadEffect resolves the effect permutation selected by params.
	//
	// Parameters:
	//   - ctx: the request context
	//   - effectName: the registered effect name
	//   - params: the compiler parameters
	//
	// Returns:
	//   - *EffectTask: completes with the effect, or an EffectResult.Err if bytecode generation fails
	//   - error: ErrInvalidArgument, ErrEffectNotFound or ErrCompilation for failures known up front
	LoadEffect(ctx context.Context, effectName string, params *CompilerParameters) (*EffectTask, error)

	// IsValid reports whether effect is still the cached effect of its bytecode.
	//
	// Parameters:
	//   - effect: the effect to check
	//
	// Returns:
	//   - bool: false if the effect was invalidated, released, or is nil
	IsValid(effect *Effect) bool

	// NotifySourceModified marks a shader source as modified. Safe to call from any goroutine;
	// the change is applied by the next UpdateEffects call.
	//
	// Parameters:
	//   - sourceName: the shader class name
	NotifySourceModified(sourceName string)

	// UpdateEffects applies every source modification reported since the last call.
	UpdateEffects()

	// ResetCache invalidates compiled effects built from any of the named sources.
	//
	// Parameters:
	//   - sourceNames: shader class names
	ResetCache(sourceNames ...string)

	// StartRecordEffectCompile starts recording every compile request into recorder.
	//
	// Parameters:
	//   - recorder: the destination of recorded requests
	//
	// Returns:
	//   - error: ErrAlreadyRecording if recording is active
	StartRecordEffectCompile(recorder CompileRecorder) error

	// StopRecordEffectCompile stops recording compile requests.
	//
	// Returns:
	//   - error: ErrNotRecording if recording is not active
	StopRecordEffectCompile() error

	// Compiler returns the underlying compiler.
	//
	// Returns:
	//   - Compiler: the compiler
	Compiler() Compiler

	// CachedEffectCount returns the number of live cached effects.
	//
	// Returns:
	//   - int: the effect count
	CachedEffectCount() int

	// Destroy releases every effect. Compilations completing afterwards do not create effects.
	Destroy()
}

type effectSystemImpl struct {
	compiler       Compiler
	logger         zerolog.Logger
	earlyCacheSize int
	watchSources   bool

	mu            sync.Mutex
	initialized   bool
	cachedEffects map[common.ObjectID]*Effect

	earlyMu    sync.Mutex
	earlyCache *lru.Cache[string, []*CompilerResults]

	modifiedMu       sync.Mutex
	recentlyModified map[string]struct{}

	recorderMu sync.Mutex
	recorder   CompileRecorder

	watcher *SourceWatcher
}

var _ EffectSystem = &effectSystemImpl{}

// NewEffectSystem creates an effect system on top of compiler.
//
// Parameters:
//   - compiler: the effect compiler
//   - options: builder options
//
// Returns:
//   - EffectSystem: the initialized system
//   - error: an error if the early cache or the source watcher could not be created
func NewEffectSystem(compiler Compiler, options ...EffectSystemBuilderOption) (EffectSystem, error) {
	if compiler == nil {
		panic("effect: compiler must not be nil")
	}
	s := &effectSystemImpl{
		compiler:         compiler,
		logger:           zerolog.Nop(),
		earlyCacheSize:   DefaultEarlyCacheSize,
		initialized:      true,
		cachedEffects:    make(map[common.ObjectID]*Effect),
		recentlyModified: make(map[string]struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "effect_system").Logger()

	cache, err := lru.New[string, []*CompilerResults](s.earlyCacheSize)
	if err != nil {
		return nil, fmt.Errorf("effect: failed to create early compiler cache: %w", err)
	}
	s.earlyCache = cache

	if s.watchSources {
		w, err := NewSourceWatcher(s.logger, s.NotifySourceModified)
		if err != nil {
			return nil, err
		}
		s.watcher = w
	}
	return s, nil
}

func (s *effectSystemImpl) Compiler() Compiler {
	return s.compiler
}

func (s *effectSystemImpl) LoadEffect(ctx context.Context, effectName string, params *CompilerParameters) (*EffectTask, error) {
	if effectName == "" || params == nil {
		return nil, fmt.Errorf("%w: effect name and compiler parameters are required", ErrInvalidArgument)
	}

	results, err := s.compilerResults(ctx, effectName, params)
	if err != nil {
		return nil, err
	}
	if results.HasErrors() {
		return nil, fmt.Errorf("%w: effect %q: %s", ErrCompilation, effectName, joinMessages(results.Messages))
	}

	if bytecode, ok := results.Bytecode.Result(); ok {
		return CompletedTask(s.createEffect(effectName, bytecode, results)), nil
	}

	task := NewTask[EffectResult]()
	go func() {
		<-results.Bytecode.Done()
		bytecode, _ := results.Bytecode.Result()
		task.Complete(s.createEffect(effectName, bytecode, results))
	}()
	return task, nil
}

// compilerResults returns a previous successful result whose used parameters are all matched by
// params, or compiles a new one.
func (s *effectSystemImpl) compilerResults(ctx context.Context, effectName string, params *CompilerParameters) (*CompilerResults, error) {
	if list, ok := s.earlyCache.Get(effectName); ok {
		for _, r := range list {
			if params.Contains(r.UsedParameters) {
				return r, nil
			}
		}
	}

	results, err := s.compiler.Compile(ctx, effectName, params)
	if err != nil {
		return nil, fmt.Errorf("effect: failed to compile %q: %w", effectName, err)
	}
	s.logMessages(effectName, results.Messages)
	if results.HasErrors() {
		return results, nil
	}

	s.recorderMu.Lock()
	recorder := s.recorder
	s.recorderMu.Unlock()
	if recorder != nil {
		if err := recorder.Record(ctx, effectName, results.UsedParameters); err != nil {
			s.logger.Warn().Err(err).Str("effect", effectName).Msg("failed to record compile request")
		}
	}

	s.addEarlyResult(effectName, results)
	return results, nil
}

func (s *effectSystemImpl) addEarlyResult(effectName string, results *CompilerResults) {
	// lists are replaced, never mutated in place, so readers may keep iterating an old one
	s.earlyMu.Lock()
	defer s.earlyMu.Unlock()
	if bytecode, ok := results.Bytecode.Result(); ok && bytecode.HasErrors() {
		return
	}
	list, _ := s.earlyCache.Peek(effectName)
	if slices.Contains(list, results) {
		return
	}
	next := make([]*CompilerResults, 0, len(list)+1)
	next = append(next, list...)
	next = append(next, results)
	s.earlyCache.Add(effectName, next)
}

func (s *effectSystemImpl) removeEarlyResults(effectName string, drop func(*CompilerResults) bool) {
	s.earlyMu.Lock()
	defer s.earlyMu.Unlock()
	list, ok := s.earlyCache.Peek(effectName)
	if !ok {
		return
	}
	next := slices.DeleteFunc(slices.Clone(list), drop)
	if len(next) == 0 {
		s.earlyCache.Remove(effectName)
		return
	}
	s.earlyCache.Add(effectName, next)
}

func (s *effectSystemImpl) createEffect(effectName string, bytecode BytecodeResult, results *CompilerResults) EffectResult {
	s.logMessages(effectName, bytecode.Messages)
	if bytecode.HasErrors() {
		s.removeEarlyResults(effectName, func(r *CompilerResults) bool { return r == results })
		return EffectResult{Err: fmt.Errorf("%w: effect %q: %s", ErrCompilation, effectName, joinMessages(bytecode.Messages))}
	}

	var created *Effect
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return EffectResult{Err: ErrSystemDestroyed}
	}
	effect, ok := s.cachedEffects[bytecode.Bytecode.ID]
	if !ok {
		effect = newEffect(effectName, bytecode.Bytecode)
		s.cachedEffects[bytecode.Bytecode.ID] = effect
		created = effect
	}
	s.mu.Unlock()

	if created != nil {
		s.logger.Debug().Str("effect", effectName).Str("bytecode", created.bytecode.ID.String()).Msg("effect created")
		s.trackSources(created.bytecode)
	}
	return EffectResult{Effect: effect, UsedParameters: results.UsedParameters}
}

func (s *effectSystemImpl) trackSources(bytecode *Bytecode) {
	if s.watcher == nil {
		return
	}
	for name := range bytecode.HashSources {
		path, ok := s.compiler.SourcePath(name)
		if !ok {
			continue
		}
		if err := s.watcher.Track(path); err != nil {
			s.logger.Warn().Err(err).Str("source", name).Msg("failed to watch shader source")
		}
	}
}

func (s *effectSystemImpl) logMessages(effectName string, messages []Message) {
	for _, m := range messages {
		var ev *zerolog.Event
		switch m.Severity {
		case SeverityError:
			ev = s.logger.Error()
		case SeverityWarning:
			ev = s.logger.Warn()
		default:
			ev = s.logger.Debug()
		}
		ev.Str("effect", effectName).Msg(m.Text)
	}
}

func (s *effectSystemImpl) IsValid(effect *Effect) bool {
	if effect == nil || effect.IsReleased() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cachedEffects[effect.bytecode.ID] == effect
}

func (s *effectSystemImpl) NotifySourceModified(sourceName string) {
	s.modifiedMu.Lock()
	s.recentlyModified[sourceName] = struct{}{}
	s.modifiedMu.Unlock()
}

func (s *effectSystemImpl) UpdateEffects() {
	s.modifiedMu.Lock()
	if len(s.recentlyModified) == 0 {
		s.modifiedMu.Unlock()
		return
	}
	sources := make([]string, 0, len(s.recentlyModified))
	for name := range s.recentlyModified {
		sources = append(sources, name)
	}
	clear(s.recentlyModified)
	s.modifiedMu.Unlock()

	slices.Sort(sources)
	s.ResetCache(sources...)
}

func (s *effectSystemImpl) ResetCache(sourceNames ...string) {
	if len(sourceNames) == 0 {
		return
	}
	s.compiler.ResetCache(sourceNames)

	removed := 0
	s.mu.Lock()
	for id, effect := range s.cachedEffects {
		if effect.bytecode.DependsOn(sourceNames) {
			effect.release()
			delete(s.cachedEffects, id)
			removed++
		}
	}
	s.mu.Unlock()

	for _, name := range s.earlyCache.Keys() {
		s.removeEarlyResults(name, func(r *CompilerResults) bool {
			bytecode, ok := r.Bytecode.Result()
			return ok && bytecode.Bytecode != nil && bytecode.Bytecode.DependsOn(sourceNames)
		})
	}

	s.logger.Info().Strs("sources", sourceNames).Int("effects", removed).Msg("shader sources modified, effects invalidated")
}

func (s *effectSystemImpl) StartRecordEffectCompile(recorder CompileRecorder) error {
	if recorder == nil {
		return fmt.Errorf("%w: recorder must not be nil", ErrInvalidArgument)
	}
	s.recorderMu.Lock()
	defer s.recorderMu.Unlock()
	if s.recorder != nil {
		return ErrAlreadyRecording
	}
	s.recorder = recorder
	return nil
}

func (s *effectSystemImpl) StopRecordEffectCompile() error {
	s.recorderMu.Lock()
	defer s.recorderMu.Unlock()
	if s.recorder == nil {
		return ErrNotRecording
	}
	s.recorder = nil
	return nil
}

func (s *effectSystemImpl) CachedEffectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cachedEffects)
}

func (s *effectSystemImpl) Destroy() {
	s.mu.Lock()
	for id, effect := range s.cachedEffects {
		effect.release()
		delete(s.cachedEffects, id)
	}
	s.initialized = false
	s.mu.Unlock()

	s.earlyCache.Purge()
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to close source watcher")
		}
		s.watcher = nil
	}
}
