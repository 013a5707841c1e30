package simclock

import (
	"math"
	"sync/atomic"

	ecs "github.com/DangerosoDavo/simecs"
)

// ClockResource is the world resource name the clock is published under and
// the name jobs declare access to.
const ClockResource = "sim_clock"

// Clock is the simulation time in seconds. It has a single writer, the clock
// job of a FrameScheduler; any goroutine may read it.
type Clock struct {
	bits atomic.Uint64
}

// NewClock returns a clock at zero.
func NewClock() *Clock {
	return &Clock{}
}

// Seconds returns the current simulation time.
func (c *Clock) Seconds() float64 {
	return math.Float64frombits(c.bits.Load())
}

// Set moves the clock to seconds. Negative and NaN values set zero.
func (c *Clock) Set(seconds float64) {
	if !(seconds > 0) {
		seconds = 0
	}
	c.bits.Store(math.Float64bits(seconds))
}

// Advance adds delta seconds. Non-positive deltas leave the clock unchanged,
// so simulation time never regresses.
func (c *Clock) Advance(delta float64) {
	if !(delta > 0) {
		return
	}
	for {
		old := c.bits.Load()
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if c.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

// ClockOf returns the clock published in world.
func ClockOf(world *ecs.World) (*Clock, error) {
	return ecs.Singleton[*Clock](world, ClockResource)
}
