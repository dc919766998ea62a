// Package loop drives the per-frame callback at the pace of a refresh source.
package loop

import (
	"context"
	"time"

	"github.com/Carmen-Shannon/oxy-sss/engine/profiler"
	log "github.com/sirupsen/logrus"
)

// RefreshSource blocks until the next display refresh.
type RefreshSource interface {
	// WaitRefresh returns true at the next refresh, or false once the source is gone and the loop must stop.
	WaitRefresh() bool
}

type runConfig struct {
	profiler *profiler.Profiler
	logger   *log.Entry
}

// RunOption is a functional option for Run.
type RunOption func(*runConfig)

// WithProfiler ticks p once per frame.
func WithProfiler(p *profiler.Profiler) RunOption {
	return func(c *runConfig) {
		c.profiler = p
	}
}

// WithLogger sets the log entry the loop reports start and stop to.
func WithLogger(entry *log.Entry) RunOption {
	return func(c *runConfig) {
		if entry != nil {
			c.logger = entry
		}
	}
}

// Run calls frame, then waits for the next refresh from source, and repeats until source reports it is gone.
// There is no frame cap beyond the refresh and missed refreshes are not caught up.
//
// Parameters:
//   - source: paces the loop and decides when it ends
//   - frame: renders one frame
//   - options: functional options
//
// Returns:
//   - int: the number of frames rendered
func Run(source RefreshSource, frame func(), options ...RunOption) int {
	cfg := runConfig{logger: log.WithField("component", "loop")}
	for _, opt := range options {
		opt(&cfg)
	}

	cfg.logger.Info("render loop started")
	frames := 0
	for {
		frame()
		frames++
		if cfg.profiler != nil {
			cfg.profiler.Tick()
		}
		if !source.WaitRefresh() {
			break
		}
	}
	cfg.logger.WithField("frames", frames).Info("render loop stopped")
	return frames
}

// tickerSource is a RefreshSource driven by a time.Ticker.
type tickerSource struct {
	ctx    context.Context
	ticker *time.Ticker
}

// NewTickerSource returns a RefreshSource that refreshes hz times per second until ctx is done. It stands in for
// a display when rendering headless. Non-positive hz uses 60.
//
// Parameters:
//   - ctx: ends the source when done
//   - hz: refreshes per second
//
// Returns:
//   - RefreshSource: the ticker-driven source
func NewTickerSource(ctx context.Context, hz float64) RefreshSource {
	if hz <= 0 {
		hz = 60
	}
	return &tickerSource{
		ctx:    ctx,
		ticker: time.NewTicker(time.Duration(float64(time.Second) / hz)),
	}
}

func (s *tickerSource) WaitRefresh() bool {
	select {
	case <-s.ctx.Done():
		s.ticker.Stop()
		return false
	case <-s.ticker.C:
		if s.ctx.Err() != nil {
			s.ticker.Stop()
			return false
		}
		return true
	}
}

// countedSource wraps a RefreshSource and ends after a fixed number of refreshes.
type countedSource struct {
	inner     RefreshSource
	remaining int
}

// Limit wraps source so that Run renders exactly n frames. Run always renders the first frame, so n below one
// still renders one.
func Limit(source RefreshSource, n int) RefreshSource {
	return &countedSource{inner: source, remaining: n}
}

func (s *countedSource) WaitRefresh() bool {
	s.remaining--
	if s.remaining <= 0 {
		return false
	}
	return s.inner.WaitRefresh()
}

// conditionalSource ends when its condition turns false.
type conditionalSource struct {
	inner RefreshSource
	cond  func() bool
}

// While wraps source so that it ends as soon as cond reports false. cond is checked before each wait.
func While(source RefreshSource, cond func() bool) RefreshSource {
	return &conditionalSource{inner: source, cond: cond}
}

func (s *conditionalSource) WaitRefresh() bool {
	if !s.cond() {
		return false
	}
	return s.inner.WaitRefresh()
}
