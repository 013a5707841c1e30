// Package timing measures wall-clock durations across start/stop cycles.
package timing

import "time"

// Timer accumulates elapsed time over any number of running segments.
// A Timer has a single owner and is not safe for concurrent use.
type Timer struct {
	src     Source
	elapsed time.Duration
	start   time.Time
	running bool
}

// New returns a stopped timer reading src. A nil src uses SystemSource.
func New(src Source) *Timer {
	if src == nil {
		src = SystemSource{}
	}
	return &Timer{src: src}
}

// Start opens a segment. It does nothing if the timer is already running.
func (t *Timer) Start() {
	if t.running {
		return
	}
	t.start = t.src.Now()
	t.running = true
}

// Stop folds the open segment into the accumulated total. A regressed source
// never makes the total negative.
func (t *Timer) Stop() {
	if !t.running {
		return
	}
	t.elapsed += t.src.Now().Sub(t.start)
	if t.elapsed < 0 {
		t.elapsed = 0
	}
	t.start = time.Time{}
	t.running = false
}

// Restart zeroes the total and opens a new segment from a single reading of the source.
func (t *Timer) Restart() {
	t.elapsed = 0
	t.start = t.src.Now()
	t.running = true
}

// Lap returns Elapsed and restarts the timer, both from one reading of the
// source, so consecutive laps add up to the wall time that passed.
func (t *Timer) Lap() time.Duration {
	now := t.src.Now()
	total := t.elapsed
	if t.running {
		if segment := now.Sub(t.start); segment > 0 {
			total += segment
		}
	}
	t.elapsed = 0
	t.start = now
	t.running = true
	return total
}

// Reset zeroes the total and stops the timer.
func (t *Timer) Reset() {
	t.elapsed = 0
	t.start = time.Time{}
	t.running = false
}

// Running reports whether a segment is open.
func (t *Timer) Running() bool {
	return t.running
}

// Elapsed returns the accumulated time plus the open segment, if any.
// An open segment that reads negative counts as zero.
func (t *Timer) Elapsed() time.Duration {
	if !t.running {
		return t.elapsed
	}
	segment := t.src.Now().Sub(t.start)
	if segment < 0 {
		segment = 0
	}
	return t.elapsed + segment
}

// ElapsedMilliseconds returns Elapsed in fractional milliseconds.
func (t *Timer) ElapsedMilliseconds() float64 {
	return float64(t.Elapsed()) / float64(time.Millisecond)
}

// ElapsedSeconds returns Elapsed in fractional seconds.
func (t *Timer) ElapsedSeconds() float64 {
	return t.Elapsed().Seconds()
}
