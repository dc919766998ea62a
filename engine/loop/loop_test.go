package loop

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-sss/engine/profiler"
	log "github.com/sirupsen/logrus"
)

// scriptedSource reports the scripted results in order, then false.
type scriptedSource struct {
	results []bool
	waits   int
}

func (s *scriptedSource) WaitRefresh() bool {
	s.waits++
	if len(s.results) == 0 {
		return false
	}
	r := s.results[0]
	s.results = s.results[1:]
	return r
}

func quietLogger() *log.Entry {
	l := log.New()
	l.SetOutput(io.Discard)
	return log.NewEntry(l)
}

// =============================================================================
// Run
// =============================================================================

func TestRunFramesUntilSourceEnds(t *testing.T) {
	tests := []struct {
		name       string
		results    []bool
		wantFrames int
	}{
		{"source gone immediately", nil, 1},
		{"three refreshes", []bool{true, true, true}, 4},
		{"stops at first false", []bool{true, false, true}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &scriptedSource{results: tt.results}
			calls := 0
			got := Run(src, func() { calls++ }, WithLogger(quietLogger()))
			if got != tt.wantFrames || calls != tt.wantFrames {
				t.Errorf("Run = %d frames (%d calls), want %d", got, calls, tt.wantFrames)
			}
			if src.waits != tt.wantFrames {
				t.Errorf("waits = %d, want one per frame (%d)", src.waits, tt.wantFrames)
			}
		})
	}
}

func TestRunFrameRunsBeforeWait(t *testing.T) {
	var order []string
	src := refreshFunc(func() bool {
		order = append(order, "wait")
		return len(order) < 4
	})
	Run(src, func() { order = append(order, "frame") }, WithLogger(quietLogger()))

	want := []string{"frame", "wait", "frame", "wait"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestRunTicksProfiler(t *testing.T) {
	clock := time.Unix(0, 0)
	p := profiler.NewProfiler(
		profiler.WithLogger(quietLogger()),
		profiler.WithInterval(time.Second),
		profiler.WithClock(func() time.Time {
			clock = clock.Add(100 * time.Millisecond)
			return clock
		}),
	)
	Run(Limit(&scriptedSource{results: []bool{true, true, true, true, true, true, true, true, true, true}}, 10),
		func() {}, WithProfiler(p), WithLogger(quietLogger()))

	if p.Last().FPS == 0 {
		t.Error("profiler never reported after ten 100ms frames")
	}
}

type refreshFunc func() bool

func (f refreshFunc) WaitRefresh() bool { return f() }

// =============================================================================
// Sources
// =============================================================================

func TestLimitRendersExactlyN(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{1, 1},
		{5, 5},
		{0, 1},
	}
	for _, tt := range tests {
		always := refreshFunc(func() bool { return true })
		if got := Run(Limit(always, tt.n), func() {}, WithLogger(quietLogger())); got != tt.want {
			t.Errorf("Limit(%d) rendered %d frames, want %d", tt.n, got, tt.want)
		}
	}
}

func TestTickerSourceStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := NewTickerSource(ctx, 1000)

	if !src.WaitRefresh() {
		t.Fatal("WaitRefresh() = false before cancel")
	}
	cancel()
	if src.WaitRefresh() {
		t.Error("WaitRefresh() = true after cancel")
	}
}

func TestTickerSourcePacesFrames(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	frames := Run(NewTickerSource(ctx, 100), func() {}, WithLogger(quietLogger()))
	elapsed := time.Since(start)

	if elapsed < 90*time.Millisecond {
		t.Errorf("loop ended after %v, before the context deadline", elapsed)
	}
	// 100 Hz over 100ms is about 10 frames; allow generous scheduler slack.
	if frames < 3 || frames > 15 {
		t.Errorf("rendered %d frames at 100 Hz over 100ms", frames)
	}
}

func TestWhileStopsWhenConditionFails(t *testing.T) {
	frames := 0
	always := refreshFunc(func() bool { return true })
	got := Run(While(always, func() bool { return frames < 4 }), func() { frames++ }, WithLogger(quietLogger()))
	if got != 4 {
		t.Errorf("rendered %d frames, want 4", got)
	}
}
