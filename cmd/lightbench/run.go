package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Carmen-Shannon/oxy-lighting/config"
	"github.com/Carmen-Shannon/oxy-lighting/engine"
	"github.com/Carmen-Shannon/oxy-lighting/engine/dynamic_effect"
	"github.com/Carmen-Shannon/oxy-lighting/engine/effect"
	"github.com/Carmen-Shannon/oxy-lighting/engine/lighting"
	bgp "github.com/Carmen-Shannon/oxy-lighting/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer/shader/compiler"
)

// runTotals accumulates the statistics of a benchmark run.
type runTotals struct {
	frames     int
	litNodes   int
	recompiled int
	errors     int
	nodes      int
}

func (t *runTotals) add(stats engine.FrameStats) {
	t.frames++
	t.litNodes += stats.LitNodes
	t.recompiled += stats.Recompiled
	t.errors += stats.Errors
	t.nodes += stats.Nodes
}

func newRunCommand(a *app) *cobra.Command {
	var frames int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Light the benchmark scene for a number of frames",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("frames") {
				a.cfg.Bench.Frames = frames
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			totals, elapsed, err := runBench(ctx, a.cfg, a.logger)
			if err != nil {
				return err
			}
			ev := a.logger.Info().
				Int("frames", totals.frames).
				Dur("elapsed", elapsed).
				Int("lit_nodes", totals.litNodes).
				Int("recompiled", totals.recompiled).
				Int("errors", totals.errors)
			if totals.frames > 0 {
				ev = ev.Dur("frame_avg", elapsed/time.Duration(totals.frames)).
					Float64("lit_ratio", float64(totals.litNodes)/float64(max(totals.nodes, 1)))
			}
			ev.Msg("benchmark finished")
			return nil
		},
	}
	cmd.Flags().IntVarP(&frames, "frames", "n", 0, "number of frames to render (default from config)")
	return cmd
}

// newEffectSystem builds the shader registry, the reference compiler and the effect system.
func newEffectSystem(cfg config.EffectsConfig, logger zerolog.Logger) (effect.EffectSystem, error) {
	reg := shader.NewRegistry()
	if err := lighting.RegisterShaders(reg); err != nil {
		return nil, err
	}
	c := compiler.NewEffectCompiler(reg, compiler.WithLogger(logger))
	return effect.NewEffectSystem(c,
		effect.WithLogger(logger),
		effect.WithEarlyCacheSize(cfg.EarlyCacheSize),
		effect.WithSourceWatching(cfg.WatchSources),
	)
}

// engineOptions translates the configuration. A non-nil device backs resource groups and shadow
// atlases with GPU resources.
func engineOptions(cfg *config.Config, logger zerolog.Logger, device *bgp.Device) ([]engine.EngineBuilderOption, error) {
	lightingOpts := []lighting.ForwardLightingBuilderOption{lighting.WithLayoutCacheSize(cfg.Lighting.LayoutCacheSize)}
	shadowOpts := []lighting.ShadowMapRendererBuilderOption{lighting.WithShadowAtlasSize(cfg.Lighting.ShadowAtlasSize)}
	if device != nil {
		sampler, err := device.ComparisonSampler()
		if err != nil {
			return nil, err
		}
		lightingOpts = append(lightingOpts, lighting.WithResourceAllocator(device.Allocator()))
		shadowOpts = append(shadowOpts, lighting.WithShadowTextureFactory(device.ShadowAtlasTexture), lighting.WithShadowSampler(sampler))
	}
	if cfg.Lighting.Shadows {
		lightingOpts = append(lightingOpts, lighting.WithShadowMapOptions(shadowOpts...))
	} else {
		lightingOpts = append(lightingOpts, lighting.WithShadows(nil))
	}
	return []engine.EngineBuilderOption{
		engine.WithLogger(logger),
		engine.WithTickRate(cfg.Engine.TickRate),
		engine.WithRenderFrameLimit(cfg.Engine.FrameLimit),
		engine.WithProfiling(cfg.Engine.Profiling),
		engine.WithLightingOptions(lightingOpts...),
		engine.WithDynamicCompilerOptions(
			dynamic_effect.WithAsyncCompilation(cfg.Effects.AsyncCompilation),
			dynamic_effect.WithErrorRetryInterval(cfg.Effects.ErrorRetryInterval),
		),
	}, nil
}

// runBench renders cfg.Bench.Frames frames of the benchmark scene.
func runBench(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (runTotals, time.Duration, error) {
	var totals runTotals
	system, err := newEffectSystem(cfg.Effects, logger)
	if err != nil {
		return totals, 0, err
	}
	defer system.Destroy()

	if cfg.Effects.RecordPath != "" {
		rec, err := effect.OpenSQLiteCompileRecorder(cfg.Effects.RecordPath)
		if err != nil {
			return totals, 0, err
		}
		defer rec.Close()
		if err := system.StartRecordEffectCompile(rec); err != nil {
			return totals, 0, err
		}
		defer system.StopRecordEffectCompile()
	}

	var device *bgp.Device
	if cfg.Lighting.GPU {
		device, err = bgp.OpenDevice(cfg.Lighting.SoftwareGPU, logger)
		if err != nil {
			return totals, 0, err
		}
		defer device.Release()
	}
	opts, err := engineOptions(cfg, logger, device)
	if err != nil {
		return totals, 0, err
	}

	bench := newBenchScene(cfg.Bench)
	eng := engine.NewEngine(system, append(opts, engine.WithScene(0, bench.scene))...)
	eng.SetRenderCallback(func(stats engine.FrameStats) {
		totals.add(stats)
		logger.Debug().Int("frame", totals.frames).Int("lit_nodes", stats.LitNodes).Int("recompiled", stats.Recompiled).Msg("frame")
		if totals.frames >= cfg.Bench.Frames {
			eng.Quit()
			return
		}
		bench.animate(totals.frames)
	})

	if cfg.Bench.Frames <= 0 {
		return totals, 0, nil
	}
	start := time.Now()
	err = eng.Run(ctx)
	elapsed := time.Since(start)
	if errors.Is(err, context.Canceled) {
		logger.Warn().Int("frames", totals.frames).Msg("benchmark interrupted")
		err = nil
	}
	if err != nil {
		return totals, elapsed, fmt.Errorf("benchmark failed: %w", err)
	}
	return totals, elapsed, nil
}
