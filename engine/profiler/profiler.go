// Package profiler reports frame rate and Go memory statistics from inside the render loop.
package profiler

import (
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
)

// Stats is one reporting window of the profiler.
type Stats struct {
	FPS         float64
	HeapMB      float64
	AllocRateMB float64
	SysMB       float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64
}

// Profiler tracks frame rate and memory statistics. It logs once per interval from Tick.
type Profiler struct {
	logger   *log.Entry
	interval time.Duration
	now      func() time.Time

	frames         int
	windowStart    time.Time
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Stats
}

// ProfilerBuilderOption is a functional option for configuring a Profiler.
type ProfilerBuilderOption func(*Profiler)

// WithInterval sets how often statistics are logged. Non-positive values keep the one second default.
func WithInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithLogger sets the log entry statistics are written to.
func WithLogger(entry *log.Entry) ProfilerBuilderOption {
	return func(p *Profiler) {
		if entry != nil {
			p.logger = entry
		}
	}
}

// WithClock replaces time.Now as the profiler's time source.
func WithClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		if now != nil {
			p.now = now
		}
	}
}

// NewProfiler creates a Profiler that reports once per second.
//
// Parameters:
//   - options: functional options
//
// Returns:
//   - *Profiler: the newly created profiler
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		logger:   log.WithField("component", "profiler"),
		interval: time.Second,
		now:      time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.windowStart = p.now()
	return p
}

// Tick counts one frame. When the interval has elapsed it samples memory statistics, logs them at Info and starts
// a new window.
//
// Returns:
//   - bool: true if statistics were reported this tick
func (p *Profiler) Tick() bool {
	p.frames++
	now := p.now()
	elapsed := now.Sub(p.windowStart)
	if elapsed < p.interval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	ms := &p.memStats
	s := Stats{
		FPS:         float64(p.frames) / elapsed.Seconds(),
		HeapMB:      float64(ms.Alloc) / 1024 / 1024,
		AllocRateMB: float64(ms.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		SysMB:       float64(ms.Sys) / 1024 / 1024,
		GCCount:     ms.NumGC,
	}

	// PauseNs is a ring of the last 256 pauses.
	if ms.NumGC > 0 {
		s.LastPauseUs = ms.PauseNs[(ms.NumGC-1)%256] / 1000
		start := p.lastGCCount
		if ms.NumGC-start > 256 {
			start = ms.NumGC - 256
		}
		for i := start; i < ms.NumGC; i++ {
			s.MaxPauseUs = max(s.MaxPauseUs, ms.PauseNs[i%256]/1000)
		}
	}

	p.logger.WithFields(log.Fields{
		"fps":           s.FPS,
		"heap_mb":       s.HeapMB,
		"alloc_rate_mb": s.AllocRateMB,
		"gc":            s.GCCount,
		"gc_last_us":    s.LastPauseUs,
		"gc_max_us":     s.MaxPauseUs,
		"sys_mb":        s.SysMB,
	}).Info("frame stats")

	p.last = s
	p.frames = 0
	p.windowStart = now
	p.lastGCCount = ms.NumGC
	p.lastTotalAlloc = ms.TotalAlloc
	return true
}

// Last returns the most recently reported statistics, or the zero Stats before the first report.
func (p *Profiler) Last() Stats {
	return p.last
}
