package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Carmen-Shannon/oxy-lighting/engine/dynamic_effect"
	"github.com/Carmen-Shannon/oxy-lighting/engine/effect"
	"github.com/Carmen-Shannon/oxy-lighting/engine/lighting"
	"github.com/Carmen-Shannon/oxy-lighting/engine/profiler"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer"
	"github.com/Carmen-Shannon/oxy-lighting/engine/scene"
)

// ErrAlreadyRunning is returned by Run while another Run is in progress.
var ErrAlreadyRunning = errors.New("engine: already running")

// Profiler phases recorded by RenderFrame.
const (
	PhaseUpdateEffects = "update_effects"
	PhaseCollect       = "collect"
	PhasePermutations  = "permutations"
	PhaseCompile       = "compile"
	PhasePrepare       = "prepare"
)

// FrameStats summarizes one rendered frame.
type FrameStats struct {
	Scenes   int
	Views    int
	Lights   int
	Nodes    int
	LitNodes int

	// Effects is the number of render effects updated, Recompiled how many of them changed
	// and Errors how many are bound to the error fallback.
	Effects    int
	Recompiled int
	Errors     int
}

// engine implements the Engine interface.
// Coordinates the tick and render loops.
type engine struct {
	mu *sync.RWMutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	logger zerolog.Logger

	system           effect.EffectSystem
	lightingOptions  []lighting.ForwardLightingBuilderOption
	compilerOptions  []dynamic_effect.DynamicEffectCompilerBuilderOption
	features         map[scene.Scene]lighting.ForwardLighting
	compilers        map[string]dynamic_effect.DynamicEffectCompiler
	effectsScratch   map[*renderer.RenderEffect]struct{}
	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(stats FrameStats)

	scenes map[int]scene.Scene

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine drives the lighting of its scenes frame by frame.
// Each frame runs, per active scene in ascending key order: Collect, PrepareEffectPermutations,
// the dynamic effect compilers of the visible render effects, then Prepare.
type Engine interface {
	// EffectSystem returns the effect system effects are loaded from.
	//
	// Returns:
	//   - effect.EffectSystem: the effect system
	EffectSystem() effect.EffectSystem

	// Lighting returns the forward lighting feature of a scene, creating it on first use.
	//
	// Parameters:
	//   - s: the scene
	//
	// Returns:
	//   - lighting.ForwardLighting: the feature
	Lighting(s scene.Scene) lighting.ForwardLighting

	// Profiler returns the frame profiler.
	//
	// Returns:
	//   - *profiler.Profiler: the profiler
	Profiler() *profiler.Profiler

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for scene updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this to move lights, add meshes or change views.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each rendered frame.
	//
	// Parameters:
	//   - callback: function receiving the frame's statistics
	SetRenderCallback(callback func(stats FrameStats))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddScene registers a scene at the given z-index key.
	// Scenes are rendered in ascending key order.
	//
	// Parameters:
	//   - key: the z-index determining render order (lower renders first)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given z-index key and drops its lighting feature.
	//
	// Parameters:
	//   - key: the z-index of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given z-index key.
	// Returns nil if no scene exists at that key.
	//
	// Parameters:
	//   - key: the z-index of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by z-index.
	//
	// Returns:
	//   - map[int]scene.Scene: a copy of the scenes map
	Scenes() map[int]scene.Scene

	// RenderFrame lights one frame of every active scene.
	//
	// Parameters:
	//   - ctx: the frame context, used for synchronous compilation waits
	//
	// Returns:
	//   - FrameStats: the frame's statistics
	//   - error: an error if an effect could not be loaded for another reason than a failed
	//     compilation, or ctx is done
	RenderFrame(ctx context.Context) (FrameStats, error)

	// Run starts the tick and render loops and blocks until Quit is called, ctx is done or
	// a frame fails.
	//
	// Parameters:
	//   - ctx: the run context
	//
	// Returns:
	//   - error: nil after Quit, ctx.Err() after cancellation, or the frame error
	Run(ctx context.Context) error

	// Quit signals the loops to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine on top of an effect system.
//
// Parameters:
//   - system: the effect system (must not be nil)
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(system effect.EffectSystem, options ...EngineBuilderOption) Engine {
	if system == nil {
		panic("engine: NewEngine requires a non-nil EffectSystem")
	}
	e := &engine{
		mu:              &sync.RWMutex{},
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		logger:          zerolog.Nop(),
		system:          system,
		features:        make(map[scene.Scene]lighting.ForwardLighting),
		compilers:       make(map[string]dynamic_effect.DynamicEffectCompiler),
		effectsScratch:  make(map[*renderer.RenderEffect]struct{}),
		scenes:          make(map[int]scene.Scene),
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}
	e.logger = e.logger.With().Str("component", "engine").Logger()
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger))
	}
	return e
}

func (e *engine) EffectSystem() effect.EffectSystem {
	return e.system
}

func (e *engine) Profiler() *profiler.Profiler {
	return e.profiler
}

func (e *engine) Lighting(s scene.Scene) lighting.ForwardLighting {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.feature(s)
}

func (e *engine) feature(s scene.Scene) lighting.ForwardLighting {
	fl, ok := e.features[s]
	if !ok {
		opts := append([]lighting.ForwardLightingBuilderOption{lighting.WithLogger(e.logger)}, e.lightingOptions...)
		fl = lighting.NewForwardLighting(opts...)
		e.features[s] = fl
	}
	return fl
}

func (e *engine) compiler(effectName string) dynamic_effect.DynamicEffectCompiler {
	c, ok := e.compilers[effectName]
	if !ok {
		opts := append([]dynamic_effect.DynamicEffectCompilerBuilderOption{dynamic_effect.WithLogger(e.logger)}, e.compilerOptions...)
		c = dynamic_effect.NewDynamicEffectCompiler(e.system, effectName, opts...)
		e.compilers[effectName] = c
	}
	return c
}

func (e *engine) activeScenes() []scene.Scene {
	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	var active []scene.Scene
	for _, k := range keys {
		if s := e.scenes[k]; s.Active() {
			active = append(active, s)
		}
	}
	return active
}

func (e *engine) RenderFrame(ctx context.Context) (FrameStats, error) {
	var stats FrameStats
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	end := e.profiler.Begin(PhaseUpdateEffects)
	e.system.UpdateEffects()
	end()

	for _, s := range e.activeScenes() {
		if err := e.renderScene(ctx, s, &stats); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (e *engine) renderScene(ctx context.Context, s scene.Scene, stats *FrameStats) error {
	fl := e.feature(s)
	views := s.Views()
	lights := s.Lights()
	nodes := s.RenderNodes()
	stats.Scenes++
	stats.Views += len(views)
	stats.Lights += len(lights)
	stats.Nodes += len(nodes)

	end := e.profiler.Begin(PhaseCollect)
	fl.Collect(views, lights)
	end()

	end = e.profiler.Begin(PhasePermutations)
	fl.PrepareEffectPermutations(nodes)
	end()

	end = e.profiler.Begin(PhaseCompile)
	err := e.updateEffects(ctx, s, nodes, stats)
	end()
	if err != nil {
		return err
	}

	end = e.profiler.Begin(PhasePrepare)
	stats.LitNodes += fl.Prepare(nodes)
	end()
	return nil
}

// updateEffects updates the render effect of every node once.
func (e *engine) updateEffects(ctx context.Context, s scene.Scene, nodes []*renderer.RenderNode, stats *FrameStats) error {
	clear(e.effectsScratch)
	for _, node := range nodes {
		re := node.Effect
		if _, ok := e.effectsScratch[re]; ok {
			continue
		}
		e.effectsScratch[re] = struct{}{}
		stats.Effects++

		changed, err := e.compiler(re.EffectName).Update(ctx, re.Instance, nil)
		re.Sync()
		if changed {
			stats.Recompiled++
		}
		if re.State == renderer.RenderEffectStateError {
			stats.Errors++
		}
		if err != nil {
			if errors.Is(err, effect.ErrCompilation) {
				e.logger.Warn().Err(err).Str("scene", s.Name()).Str("effect", re.EffectName).Msg("effect bound to error fallback")
				continue
			}
			return fmt.Errorf("engine: failed to update effect %q of mesh %q: %w", re.EffectName, node.Mesh.Name, err)
		}
	}
	return nil
}

func (e *engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer e.running.Store(false)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.handleEngine(ctx) })
	g.Go(func() error { return e.handleRender(ctx) })
	return g.Wait()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// handleEngine runs the fixed-rate engine tick loop.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed or ctx is done.
func (e *engine) handleEngine(ctx context.Context) error {
	e.mu.RLock()
	rate := e.engineTickRate
	e.mu.RUnlock()
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			e.mu.RLock()
			cb := e.tickCallback
			e.mu.RUnlock()
			if cb != nil {
				cb(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.mu.Lock()
			e.engineTickRate = newRate
			e.mu.Unlock()
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop.
// Recovers from panics, signals quit and reports the panic as an error.
func (e *engine) handleRender(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Interface("panic", r).Msg("render loop recovered from panic")
			e.signalQuit()
			err = fmt.Errorf("engine: render loop panicked: %v", r)
		}
	}()

	for {
		select {
		case <-e.quitChannel:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frameStart := time.Now()
		stats, err := e.RenderFrame(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}

		e.mu.RLock()
		cb := e.renderCallback
		profiling := e.profilingEnabled
		limit := e.renderFrameLimit
		e.mu.RUnlock()

		if cb != nil {
			cb(stats)
		}
		if profiling {
			e.profiler.Tick()
		}

		// Frame rate limiting
		if limit > 0 {
			if remaining := limit - time.Since(frameStart); remaining > 0 {
				timer := time.NewTimer(remaining)
				select {
				case <-timer.C:
				case <-e.quitChannel:
					timer.Stop()
					return nil
				case <-ctx.Done():
					timer.Stop()
					return ctx.Err()
				}
			}
		}
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = false
}

func tickInterval(fps float64) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	return time.Duration(float64(time.Second) / fps)
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	newRate := tickInterval(fps)

	if e.running.Load() {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.engineTickRate = newRate
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(stats FrameStats)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = tickInterval(fps)
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.scenes[key]; ok {
		delete(e.features, s)
	}
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}
