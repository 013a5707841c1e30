// Package simclock advances the simulation clock at an adjustable playback
// speed and integrates orbiting entities once per frame.
package simclock

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	ecs "github.com/DangerosoDavo/simecs"
	"github.com/DangerosoDavo/simecs/ecs/timing"
	"github.com/DangerosoDavo/simecs/ecs/vmath"
)

// DefaultName is the system name a FrameScheduler registers under.
const DefaultName = "simclock"

// FrameScheduler is the system that owns the simulation clock. Each frame it
// turns elapsed wall time into a scaled delta and schedules two jobs: the
// orbit pass over every Transform, then the clock advance gated on it.
type FrameScheduler struct {
	name   string
	timer  *timing.Timer
	clock  *Clock
	factor atomic.Uint64
	batch  int

	transforms ecs.IndexedView
	rates      ecs.ComponentView

	started   bool
	frames    uint64
	lastDelta float64
}

// Option customises a FrameScheduler.
type Option func(*FrameScheduler)

// WithSource sets the wall-clock source the frame timer reads.
func WithSource(src timing.Source) Option {
	return func(f *FrameScheduler) {
		f.timer = timing.New(src)
	}
}

// WithClock injects the clock to advance instead of allocating one in Init.
func WithClock(clock *Clock) Option {
	return func(f *FrameScheduler) {
		f.clock = clock
	}
}

// WithBatchSize sets the number of transform slots per orbit partition.
// Non-positive values let the job graph choose.
func WithBatchSize(n int) Option {
	return func(f *FrameScheduler) {
		f.batch = n
	}
}

// WithName overrides DefaultName.
func WithName(name string) Option {
	return func(f *FrameScheduler) {
		if name != "" {
			f.name = name
		}
	}
}

// NewFrameScheduler returns an uninitialised scheduler; register it with an
// ecs.Scheduler, which calls Init.
func NewFrameScheduler(opts ...Option) *FrameScheduler {
	f := &FrameScheduler{name: DefaultName}
	for _, opt := range opts {
		opt(f)
	}
	if f.timer == nil {
		f.timer = timing.New(nil)
	}
	return f
}

func (f *FrameScheduler) Descriptor() ecs.SystemDescriptor {
	return ecs.SystemDescriptor{Name: f.name, Tags: []string{"clock", "orbit"}}
}

// Init sets the speed factor to 1, zeroes the clock, and publishes it as the
// world's ClockResource.
func (f *FrameScheduler) Init(world *ecs.World) error {
	if err := RegisterComponents(world); err != nil {
		return err
	}
	transforms, err := world.IndexedComponent(TransformComponent)
	if err != nil {
		return fmt.Errorf("simclock: transforms: %w", err)
	}
	rates, err := world.ViewComponent(OrbitRateComponent)
	if err != nil {
		return fmt.Errorf("simclock: orbit rates: %w", err)
	}
	f.transforms = transforms
	f.rates = rates

	if f.clock == nil {
		f.clock = NewClock()
	}
	f.clock.Set(0)
	ecs.SetSingleton(world, ClockResource, f.clock)
	f.ChangeSpeed(Normal)
	f.started = false
	return nil
}

// ChangeSpeed selects the playback speed. It takes effect on the next frame
// and is safe to call from any goroutine.
func (f *FrameScheduler) ChangeSpeed(s Speed) {
	f.factor.Store(math.Float64bits(s.Factor()))
}

// SpeedFactor returns the current multiplier.
func (f *FrameScheduler) SpeedFactor() float64 {
	return math.Float64frombits(f.factor.Load())
}

// Clock returns the clock this scheduler advances. Nil before Init unless
// injected with WithClock.
func (f *FrameScheduler) Clock() *Clock {
	return f.clock
}

// LastDelta returns the delta of the most recent frame. Owner goroutine only.
func (f *FrameScheduler) LastDelta() float64 {
	return f.lastDelta
}

// Frames returns the number of frames scheduled. Owner goroutine only.
func (f *FrameScheduler) Frames() uint64 {
	return f.frames
}

// Update samples the frame delta and schedules the orbit and clock jobs. The
// returned handle completes once the clock reflects this frame. If the clock
// job cannot be scheduled, the error comes with the orbit job's handle.
func (f *FrameScheduler) Update(ctx context.Context, frame ecs.FrameContext, deps *ecs.JobHandle) (*ecs.JobHandle, error) {
	if f.transforms == nil {
		return nil, fmt.Errorf("simclock: %s used before Init", f.name)
	}
	if !f.started {
		f.timer.Start()
		f.clock.Set(0)
		f.started = true
		frame.Logger().Info("simulation clock started", "speed", f.SpeedFactor())
	}

	delta := f.sample()
	f.lastDelta = delta
	f.frames++

	jobs := frame.Jobs()
	orbit, err := jobs.ScheduleParallel(ctx, ecs.JobDescriptor{
		Name:   f.name + "/orbit",
		Reads:  []ecs.ComponentType{OrbitRateComponent},
		Writes: []ecs.ComponentType{TransformComponent},
	}, f.transforms.Span(), f.batch, f.orbitPass(frame, delta), deps)
	if err != nil {
		return nil, fmt.Errorf("simclock: schedule orbit: %w", err)
	}

	clock := f.clock
	advance, err := jobs.Schedule(ctx, ecs.JobDescriptor{
		Name:      f.name + "/clock",
		Resources: []ecs.ResourceAccess{{Name: ClockResource, Mode: ecs.AccessModeWrite}},
	}, func(context.Context) error {
		clock.Advance(delta)
		return nil
	}, orbit)
	if err != nil {
		// The orbit pass is already queued; the caller must still wait on it.
		return orbit, fmt.Errorf("simclock: schedule clock: %w", err)
	}
	return advance, nil
}

// sample laps the timer before anything is scheduled and scales the reading.
// Negative and NaN results are clamped to zero.
func (f *FrameScheduler) sample() float64 {
	delta := f.timer.Lap().Seconds() * f.SpeedFactor()
	if !(delta > 0) {
		return 0
	}
	return delta
}

func (f *FrameScheduler) orbitPass(frame ecs.FrameContext, delta float64) func(context.Context, int, int, int) error {
	transforms := f.transforms
	rates := f.rates
	buffers := frame.Buffers()
	return func(_ context.Context, worker, start, end int) error {
		var failed error
		transforms.IterateRange(start, end, func(id ecs.EntityID, value any) bool {
			t, ok := value.(*Transform)
			if !ok {
				failed = fmt.Errorf("simclock: entity %v transform has type %T", id, value)
				return false
			}
			raw, ok := rates.Get(id)
			if !ok {
				return true
			}
			rate, _ := raw.(OrbitRate)
			before := t.Revolutions()
			integrate(t, delta*rate.RadiansPerSecond)
			if after := t.Revolutions(); after != before && worker < buffers.Lanes() {
				EncodeRevolution(buffers.Lane(worker).Reserve(RevolutionSize), RevolutionEvent{Entity: id, Revolutions: after})
			}
			return true
		})
		return failed
	}
}

// integrate rotates position and orientation by the same incremental
// rotation about vmath.OrbitAxis. Rotating rather than extrapolating keeps the
// distance from the axis fixed for any accumulated angle.
func integrate(t *Transform, angle float64) {
	if angle == 0 {
		return
	}
	q := vmath.QuatAxisAngle(vmath.OrbitAxis, angle)
	t.Orientation = vmath.QuatNormalize(vmath.QuatMul(q, t.Orientation))
	t.Position = vmath.QuatRotate(q, t.Position)
	t.Angle += angle
}

var _ ecs.System = (*FrameScheduler)(nil)
