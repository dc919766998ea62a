package profiler

import (
	"io"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

// fakeClock advances by step on every call.
type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func quietLogger() *log.Entry {
	l := log.New()
	l.SetOutput(io.Discard)
	return log.NewEntry(l)
}

func TestTickReportsOncePerInterval(t *testing.T) {
	tests := []struct {
		name     string
		step     time.Duration
		interval time.Duration
		ticks    int
		reports  int
	}{
		{"50 fps over one second", 20 * time.Millisecond, time.Second, 50, 1},
		{"below interval", time.Millisecond, time.Second, 100, 0},
		{"every tick", time.Second, time.Second, 3, 3},
		{"custom interval", 100 * time.Millisecond, 500 * time.Millisecond, 10, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{t: time.Unix(0, 0), step: tt.step}
			p := NewProfiler(WithClock(clock.now), WithInterval(tt.interval), WithLogger(quietLogger()))

			reports := 0
			for range tt.ticks {
				if p.Tick() {
					reports++
				}
			}
			if reports != tt.reports {
				t.Errorf("reports = %d, want %d", reports, tt.reports)
			}
		})
	}
}

func TestTickComputesFPS(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0), step: 20 * time.Millisecond}
	p := NewProfiler(WithClock(clock.now), WithLogger(quietLogger()))

	for range 50 {
		p.Tick()
	}
	got := p.Last()
	if got.FPS < 49.9 || got.FPS > 50.1 {
		t.Errorf("FPS = %f, want 50", got.FPS)
	}
	if got.SysMB <= 0 {
		t.Errorf("SysMB = %f, want > 0", got.SysMB)
	}
}

func TestLastIsZeroBeforeFirstReport(t *testing.T) {
	p := NewProfiler(WithLogger(quietLogger()))
	if got := p.Last(); got != (Stats{}) {
		t.Errorf("Last() = %+v, want zero", got)
	}
}
