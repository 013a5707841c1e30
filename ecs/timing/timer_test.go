package timing

import (
	"testing"
	"time"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestTimerStartsStopped(t *testing.T) {
	timer := New(NewManualSource(epoch))
	if timer.Running() {
		t.Fatalf("new timer should be stopped")
	}
	if timer.Elapsed() != 0 {
		t.Fatalf("new timer should read zero, got %v", timer.Elapsed())
	}
}

func TestTimerAccumulatesSegments(t *testing.T) {
	src := NewManualSource(epoch)
	timer := New(src)

	timer.Start()
	src.Advance(30 * time.Millisecond)
	timer.Stop()
	src.Advance(time.Second) // stopped time does not count
	timer.Start()
	src.Advance(20 * time.Millisecond)

	if got := timer.Elapsed(); got != 50*time.Millisecond {
		t.Fatalf("expected 50ms, got %v", got)
	}
	if got := timer.ElapsedMilliseconds(); got != 50 {
		t.Fatalf("expected 50 ms as float, got %v", got)
	}
	if got := timer.ElapsedSeconds(); got != 0.05 {
		t.Fatalf("expected 0.05 s, got %v", got)
	}
}

func TestTimerStartIsIdempotent(t *testing.T) {
	src := NewManualSource(epoch)
	timer := New(src)
	timer.Start()
	src.Advance(10 * time.Millisecond)
	timer.Start()
	src.Advance(10 * time.Millisecond)
	if got := timer.Elapsed(); got != 20*time.Millisecond {
		t.Fatalf("second Start must not reopen the segment, got %v", got)
	}
	timer.Stop()
	timer.Stop()
	if got := timer.Elapsed(); got != 20*time.Millisecond {
		t.Fatalf("second Stop must be a no-op, got %v", got)
	}
}

func TestTimerMonotonicAcrossCycles(t *testing.T) {
	src := NewManualSource(epoch)
	timer := New(src)

	var last time.Duration
	steps := []func(){
		timer.Start,
		func() { src.Advance(3 * time.Millisecond) },
		timer.Stop,
		func() { src.Advance(7 * time.Millisecond) },
		timer.Start,
		func() { src.Advance(time.Millisecond) },
		timer.Start,
		func() { src.Advance(2 * time.Millisecond) },
		timer.Stop,
	}
	for i, step := range steps {
		step()
		got := timer.Elapsed()
		if got < last {
			t.Fatalf("step %d: elapsed decreased from %v to %v", i, last, got)
		}
		last = got
	}
}

func TestTimerClampsRegression(t *testing.T) {
	src := NewManualSource(epoch)
	timer := New(src)
	timer.Start()
	src.Advance(-5 * time.Millisecond)

	if got := timer.Elapsed(); got != 0 {
		t.Fatalf("running elapsed should clamp to zero, got %v", got)
	}
	timer.Stop()
	if got := timer.Elapsed(); got != 0 {
		t.Fatalf("stopped elapsed should clamp to zero, got %v", got)
	}
}

func TestTimerRestartAndReset(t *testing.T) {
	src := NewManualSource(epoch)
	timer := New(src)
	timer.Start()
	src.Advance(40 * time.Millisecond)

	timer.Restart()
	if !timer.Running() {
		t.Fatalf("restart should leave the timer running")
	}
	if got := timer.Elapsed(); got != 0 {
		t.Fatalf("restart should discard accumulated time, got %v", got)
	}
	src.Advance(5 * time.Millisecond)
	if got := timer.Elapsed(); got != 5*time.Millisecond {
		t.Fatalf("expected 5ms after restart, got %v", got)
	}

	timer.Reset()
	src.Advance(5 * time.Millisecond)
	if timer.Running() || timer.Elapsed() != 0 {
		t.Fatalf("reset should stop and zero the timer")
	}
}

func TestTimerWallClockScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("wall-clock scenario")
	}
	timer := New(nil)
	timer.Start()
	time.Sleep(100 * time.Millisecond)
	timer.Stop()

	got := timer.ElapsedMilliseconds()
	// Sleep never returns early; the upper bound allows for a loaded scheduler.
	if got < 100 || got > 150 {
		t.Fatalf("expected ~100ms, got %.3fms", got)
	}

	timer.Restart()
	if got := timer.ElapsedMilliseconds(); got > 5 {
		t.Fatalf("expected ~0ms right after restart, got %.3fms", got)
	}
}

// steppingSource moves forward by step on every read.
type steppingSource struct {
	now  time.Time
	step time.Duration
}

func (s *steppingSource) Now() time.Time {
	now := s.now
	s.now = s.now.Add(s.step)
	return now
}

func TestTimerLapUsesSingleReading(t *testing.T) {
	src := &steppingSource{now: epoch, step: time.Millisecond}
	timer := New(src)
	timer.Start()

	var total time.Duration
	for i := 0; i < 10; i++ {
		total += timer.Lap()
	}
	// Start read epoch and the tenth lap read epoch+10ms; no reading is lost in between.
	if total != 10*time.Millisecond {
		t.Fatalf("expected laps to sum to 10ms, got %v", total)
	}
	if !timer.Running() {
		t.Fatalf("lap should leave the timer running")
	}
}

func TestTimerLapStartsStoppedTimer(t *testing.T) {
	src := NewManualSource(epoch)
	timer := New(src)
	if got := timer.Lap(); got != 0 {
		t.Fatalf("lap of a fresh timer should be zero, got %v", got)
	}
	src.Advance(40 * time.Millisecond)
	if got := timer.Lap(); got != 40*time.Millisecond {
		t.Fatalf("expected 40ms lap, got %v", got)
	}
	src.Advance(-10 * time.Millisecond)
	if got := timer.Lap(); got != 0 {
		t.Fatalf("regressed lap should clamp to zero, got %v", got)
	}
}
