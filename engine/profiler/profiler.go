package profiler

import (
	"runtime"
	"slices"
	"time"

	"github.com/rs/zerolog"
)

// Profiler tracks frame rate, per-phase frame timings and memory statistics.
// Outputs stats to the logger at a configurable interval.
// Not safe for concurrent use; the frame driver owns it.
type Profiler struct {
	logger zerolog.Logger
	now    func() time.Time

	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	phases     map[string]*phaseStats
	phaseOrder []string
}

type phaseStats struct {
	total time.Duration
	max   time.Duration
	count int
}

// Report is one interval of profiling data.
type Report struct {
	Frames      int
	FPS         float64
	Phases      map[string]time.Duration
	HeapMB      float64
	AllocRateMB float64
	GCCount     uint32
}

// NewProfiler creates a new Profiler.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		logger:         zerolog.Nop(),
		now:            time.Now,
		updateInterval: time.Second,
		phases:         make(map[string]*phaseStats),
	}
	for _, opt := range options {
		opt(p)
	}
	p.logger = p.logger.With().Str("component", "profiler").Logger()
	p.lastTime = p.now()
	return p
}

// Begin starts timing a phase of the current frame.
//
// Parameters:
//   - phase: the phase name
//
// Returns:
//   - func(): ends the phase and records its duration
func (p *Profiler) Begin(phase string) func() {
	start := p.now()
	return func() {
		p.Record(phase, p.now().Sub(start))
	}
}

// Record adds one duration to a phase.
//
// Parameters:
//   - phase: the phase name
//   - d: the duration spent in the phase
func (p *Profiler) Record(phase string, d time.Duration) {
	s, ok := p.phases[phase]
	if !ok {
		s = &phaseStats{}
		p.phases[phase] = s
		p.phaseOrder = append(p.phaseOrder, phase)
	}
	s.total += d
	s.max = max(s.max, d)
	s.count++
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, average time per phase, heap usage, allocation rate, GC count/pause times.
//
// Returns:
//   - *Report: the logged report, nil if the interval has not elapsed
func (p *Profiler) Tick() *Report {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return nil
	}

	r := &Report{
		Frames: p.frameCount,
		FPS:    float64(p.frameCount) / elapsed.Seconds(),
		Phases: make(map[string]time.Duration, len(p.phases)),
	}

	runtime.ReadMemStats(&p.memStats)
	r.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	r.AllocRateMB = float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses
	gcCount := p.memStats.NumGC
	r.GCCount = gcCount
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	ev := p.logger.Info().
		Int("frames", r.Frames).
		Float64("fps", r.FPS).
		Float64("heap_mb", r.HeapMB).
		Float64("alloc_rate_mb_s", r.AllocRateMB).
		Uint32("gc", gcCount).
		Uint64("gc_last_pause_us", lastPauseUs).
		Uint64("gc_max_pause_us", maxPauseUs)
	for _, name := range slices.Sorted(slices.Values(p.phaseOrder)) {
		s := p.phases[name]
		if s.count == 0 {
			continue
		}
		avg := s.total / time.Duration(s.count)
		r.Phases[name] = avg
		ev = ev.Dur(name+"_avg", avg).Dur(name+"_max", s.max)
		*s = phaseStats{}
	}
	ev.Msg("frame stats")

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return r
}
